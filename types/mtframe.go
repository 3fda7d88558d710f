package types

// MTMessageType is the 16-bit tag at offset 2 of an MT payload (spec §4.2
// "File write for received MT", §6 "MT dispatch by message type").
type MTMessageType uint16

// Sentinel types are never saved as files (spec §6). The session layer
// forwards some of them to a collaborator as an immediate side effect;
// no command-ack message is sent for any of them.
const (
	MTRemoteResetA        MTMessageType = 0x0001
	MTRemoteResetB        MTMessageType = 0x0002
	MTRemoteAckAck        MTMessageType = 0x0003
	MTConfigDownloadReq   MTMessageType = 0x0004
	MTPowerCycleModem     MTMessageType = 0x0005
	MTFormatCard          MTMessageType = 0x0006
	MTPowerCycleCIS       MTMessageType = 0x0007
	MTPurgeRulesImage     MTMessageType = 0x0008
	MTDeleteRulesFile     MTMessageType = 0x0009
	MTDownloadCISConfig   MTMessageType = 0x000A
	MTFWAck3SystemLog     MTMessageType = 0x000B
	MTModemLogSnapshot    MTMessageType = 0x000C
	MTVersionSnapshot     MTMessageType = 0x000D
	MTGPSLocationSnapshot MTMessageType = 0x000E
	MTReset573Bus         MTMessageType = 0x000F
	MTGetLogsNow          MTMessageType = 0x0010
	MTGetLogsAfterFDR     MTMessageType = 0x0011
)

// sentinelTypes lists every MTMessageType handled as an immediate
// side-effect rather than a saved file.
var sentinelTypes = map[MTMessageType]bool{
	MTRemoteResetA: true, MTRemoteResetB: true, MTRemoteAckAck: true,
	MTConfigDownloadReq: true, MTPowerCycleModem: true, MTFormatCard: true,
	MTPowerCycleCIS: true, MTPurgeRulesImage: true, MTDeleteRulesFile: true,
	MTDownloadCISConfig: true, MTFWAck3SystemLog: true, MTModemLogSnapshot: true,
	MTVersionSnapshot: true, MTGPSLocationSnapshot: true, MTReset573Bus: true,
	MTGetLogsNow: true, MTGetLogsAfterFDR: true,
}

// IsSentinel reports whether t triggers an immediate action instead of a
// saved file.
func (t MTMessageType) IsSentinel() bool { return sentinelTypes[t] }

// Subdir is the modem-device file subdirectory an MT write lands under.
// Ranges skip "error" and "working": those are reached only by write
// failure or in-flight staging, never by direct dispatch (spec §6).
type Subdir uint8

const (
	SubdirNone Subdir = iota
	SubdirInbox
	SubdirOutbox
	SubdirSent
	SubdirError
	SubdirWorking
)

func (s Subdir) String() string {
	switch s {
	case SubdirInbox:
		return "inbox"
	case SubdirOutbox:
		return "outbox"
	case SubdirSent:
		return "sent"
	case SubdirError:
		return "error"
	case SubdirWorking:
		return "working"
	default:
		return "no-subdir"
	}
}

// Device identifies one of the target file-tree roots an MT message type
// range maps into (spec §6: modem, port-3/COPY_PORT3, ELA..system).
type Device string

const (
	DeviceRoot   Device = "root"   // 0x0700..0x071F
	DeviceModem  Device = "modem"  // stepping by 0x20 per subdirectory
	DevicePort3  Device = "port3"  // 0x4222_port2 ranges, COPY_PORT3-tagged
	DeviceELA    Device = "ela"
	DeviceSystem Device = "system"
)

// RangeEntry is one row of the §6 range table: messages with Type in
// [Low, High] land under (Device, Subdir). CopyPort3 marks the
// "COPY_PORT3-tagged" ranges that also get copied to port-3's subdirectory.
type RangeEntry struct {
	Low, High MTMessageType
	Dev       Device
	Sub       Subdir
	CopyPort3 bool
}

// DispatchTable is the range-coded mapping of spec §6. It is data, not the
// source's fragile single running counter (wCorrelateMTMType) — spec §9's
// Open Question explicitly asks for "the exact mapping table of §6 rather
// than the counter arithmetic". Ranges are non-overlapping and checked in
// order; Lookup returns the first match.
var DispatchTable = []RangeEntry{
	{Low: 0x0700, High: 0x071F, Dev: DeviceRoot, Sub: SubdirNone},

	{Low: 0x0800, High: 0x081F, Dev: DeviceModem, Sub: SubdirInbox},
	{Low: 0x0820, High: 0x083F, Dev: DeviceModem, Sub: SubdirOutbox},
	{Low: 0x0840, High: 0x085F, Dev: DeviceModem, Sub: SubdirSent},

	{Low: 0x0900, High: 0x091F, Dev: DevicePort3, Sub: SubdirInbox, CopyPort3: true},
	{Low: 0x0920, High: 0x093F, Dev: DevicePort3, Sub: SubdirOutbox, CopyPort3: true},

	{Low: 0x0A00, High: 0x0A1F, Dev: DeviceELA, Sub: SubdirInbox},
	{Low: 0x0A20, High: 0x0A3F, Dev: DeviceELA, Sub: SubdirOutbox},

	{Low: 0x0B00, High: 0x0B1F, Dev: DeviceSystem, Sub: SubdirInbox},
	{Low: 0x0B20, High: 0x0B3F, Dev: DeviceSystem, Sub: SubdirOutbox},
}

// Lookup returns the first matching range for t.
func Lookup(t MTMessageType) (RangeEntry, bool) {
	for _, e := range DispatchTable {
		if t >= e.Low && t <= e.High {
			return e, true
		}
	}
	return RangeEntry{}, false
}

// MTFrame is the decoded form of spec §6's "MT-binary frame": big-endian
// u16 length, length bytes of payload, big-endian u16 additive checksum,
// trailing '0'.
type MTFrame struct {
	Length   uint16
	Payload  []byte
	Checksum uint16
}

// MsgType returns the 16-bit tag at payload offset 2, or 0 if the payload
// is too short to carry one.
func (f MTFrame) MsgType() MTMessageType {
	if len(f.Payload) < 4 {
		return 0
	}
	return MTMessageType(uint16(f.Payload[2])<<8 | uint16(f.Payload[3]))
}

// AdditiveChecksum computes the big-endian 16-bit additive checksum (sum
// of payload bytes mod 2^16) spec §4.2 item 2 and §6 define for both
// transmitted and received binary frames.
func AdditiveChecksum(payload []byte) uint16 {
	var sum uint32
	for _, b := range payload {
		sum += uint32(b)
	}
	return uint16(sum)
}
