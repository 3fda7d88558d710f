package l2

import (
	"testing"
	"time"

	"github.com/windward-avionics/sbdlink/collab"
	"github.com/windward-avionics/sbdlink/errcode"
	"github.com/windward-avionics/sbdlink/internal/timerx"
	"github.com/windward-avionics/sbdlink/l1"
	"github.com/windward-avionics/sbdlink/types"
)

func newTestDriver(t *testing.T) (*Driver, *l1.FakeTransport, *timerx.VirtualClock) {
	t.Helper()
	d, transport, clock, _ := newTestDriverWithEEPROM(t, &collab.FakeEEPROM{})
	return d, transport, clock
}

func newTestDriverWithEEPROM(t *testing.T, eeprom collab.EEPROM) (*Driver, *l1.FakeTransport, *timerx.VirtualClock, collab.EEPROM) {
	t.Helper()
	lines, _ := l1.NewFakeControlLines()
	transport := l1.NewFakeTransport()
	port := l1.NewPort(transport, lines)
	if code := port.Open(types.DefaultSerialConfig()); code != errcode.None {
		t.Fatalf("port open: %v", code)
	}
	clock := timerx.NewVirtualClock(time.Unix(0, 0))
	fs := collab.NewFakeFilesystem()
	log := &collab.FakeModemLog{}
	return New(port, fs, log, eeprom, clock), transport, clock, eeprom
}

// rxSettle is how long a test waits after Feed for Port's RX pump
// goroutine to copy the fed bytes into the RX ring; Tick only sees bytes
// already in the ring.
const rxSettle = 20 * time.Millisecond

// feedAndTick pushes resp into the fake transport, waits for the RX pump
// to deliver it, then ticks the driver enough times to drain it through
// the tokenizer.
func feedAndTick(d *Driver, transport *l1.FakeTransport, resp string) {
	transport.Feed([]byte(resp))
	time.Sleep(rxSettle)
	for i := 0; i < 4; i++ {
		d.Tick()
	}
}

func TestInitHappyPath(t *testing.T) {
	d, transport, _ := newTestDriver(t)
	d.cmd.State = types.StateInitialising
	if !d.Init() {
		t.Fatal("Init rejected from initialising state")
	}
	if d.SubState() != types.SubInitIMEIQuery {
		t.Fatalf("sub-state = %v, want SubInitIMEIQuery", d.SubState())
	}

	feedAndTick(d, transport, "300234010203040\r")
	if d.IMEI() != "300234010203040" {
		t.Fatalf("imei = %q", d.IMEI())
	}
	if d.SubState() != types.SubInitMTAlertConfig {
		t.Fatalf("sub-state after imei = %v", d.SubState())
	}

	feedAndTick(d, transport, "0\r")
	if d.SubState() != types.SubInitAutoRegister {
		t.Fatalf("sub-state after mt-alert ack = %v", d.SubState())
	}

	feedAndTick(d, transport, "0\r")
	if d.SubState() != types.SubInitSession {
		t.Fatalf("sub-state after auto-register ack = %v", d.SubState())
	}

	feedAndTick(d, transport, "+SBDIX: 0, 12, 0, -1, 0, 0\r0\r")
	if d.SubState() != types.SubInitRevisionQuery {
		t.Fatalf("sub-state after init session = %v", d.SubState())
	}

	feedAndTick(d, transport, "Call Processor Version: IS020C00 filler text\r")
	if d.State() != types.StateSucceeded {
		t.Fatalf("state = %v, want succeeded", d.State())
	}
	if d.SoftwareVersion() != "IS020C0" {
		t.Fatalf("software version = %q", d.SoftwareVersion())
	}
}

// TestInitWritesIMEIMirrorWhenDifferent covers spec §6's "writes it back
// only if the modem reports a different IMEI than the mirror".
func TestInitWritesIMEIMirrorWhenDifferent(t *testing.T) {
	mirror := &collab.FakeEEPROM{IMEI: "000000000000000"}
	d, transport, _, _ := newTestDriverWithEEPROM(t, mirror)
	d.cmd.State = types.StateInitialising
	if !d.Init() {
		t.Fatal("Init rejected")
	}

	feedAndTick(d, transport, "300234010203040\r")
	if d.IMEI() != "300234010203040" {
		t.Fatalf("imei = %q", d.IMEI())
	}
	if mirror.IMEI != "300234010203040" {
		t.Fatalf("eeprom mirror = %q, want the modem's IMEI written back", mirror.IMEI)
	}
}

// countingEEPROM wraps collab.FakeEEPROM to count WriteIMEI calls, since
// a same-value write is otherwise indistinguishable from a skipped one.
type countingEEPROM struct {
	collab.FakeEEPROM
	writes int
}

func (e *countingEEPROM) WriteIMEI(imei string) error {
	e.writes++
	return e.FakeEEPROM.WriteIMEI(imei)
}

// TestInitSkipsIMEIWritebackWhenUnchanged covers the same invariant's
// other half: a mirror already matching the modem must not be rewritten.
func TestInitSkipsIMEIWritebackWhenUnchanged(t *testing.T) {
	eeprom := &countingEEPROM{FakeEEPROM: collab.FakeEEPROM{IMEI: "300234010203040"}}
	d, transport, _, _ := newTestDriverWithEEPROM(t, eeprom)
	d.cmd.State = types.StateInitialising
	if !d.Init() {
		t.Fatal("Init rejected")
	}

	feedAndTick(d, transport, "300234010203040\r")
	if d.IMEI() != "300234010203040" {
		t.Fatalf("imei = %q", d.IMEI())
	}
	if eeprom.writes != 0 {
		t.Fatalf("WriteIMEI called %d times, want 0 for an unchanged IMEI", eeprom.writes)
	}
}

func TestSendBinaryFileHappyPath(t *testing.T) {
	d, transport, _ := newTestDriver(t)
	d.cmd.State = types.StateIdle

	payload := []byte{0x07, 0x00, 0x00, 0x01}
	if !d.SendBinaryFile(payload) {
		t.Fatal("SendBinaryFile rejected while idle")
	}
	if d.SubState() != types.SubSendAwaitReady {
		t.Fatalf("sub-state = %v", d.SubState())
	}

	feedAndTick(d, transport, "READY\r")
	if d.SubState() != types.SubSendAwaitZero {
		t.Fatalf("sub-state after READY = %v", d.SubState())
	}

	feedAndTick(d, transport, "0\r")
	if d.SubState() != types.SubSendInitiateSession {
		t.Fatalf("sub-state after payload ack = %v", d.SubState())
	}

	feedAndTick(d, transport, "+SBDIX: 0, 5, 0, -1, 0, 0\r0\r")
	if d.State() != types.StateSucceeded {
		t.Fatalf("state = %v, want succeeded", d.State())
	}
	if d.Info().MOMSN != "5" {
		t.Fatalf("momsn = %q", d.Info().MOMSN)
	}
}

// TestReadMTBinaryAfterSendDoesNotReuseStaleBuffer guards against binBuf
// carrying over a prior SendBinaryFile's payload into the next MT
// receive's SubMTAwaitLength read.
func TestReadMTBinaryAfterSendDoesNotReuseStaleBuffer(t *testing.T) {
	d, transport, _ := newTestDriver(t)
	d.cmd.State = types.StateIdle

	sent := []byte{0x99, 0x99, 0x99, 0x99} // would misread as length 0x9999 if reused
	if !d.SendBinaryFile(sent) {
		t.Fatal("SendBinaryFile rejected while idle")
	}
	feedAndTick(d, transport, "READY\r")
	feedAndTick(d, transport, "0\r")
	feedAndTick(d, transport, "+SBDIX: 0, 5, 0, -1, 0, 0\r0\r")
	if d.State() != types.StateSucceeded {
		t.Fatalf("send state = %v, want succeeded", d.State())
	}

	d.cmd.State = types.StateIdle
	d.info.MTLength = 0
	d.ReadMTBinary()

	payload := []byte{0x00, 0x00, 0x08, 0x01, 0x03}
	checksum := types.AdditiveChecksum(payload)
	frame := make([]byte, 0, 2+len(payload)+2+1)
	frame = append(frame, byte(len(payload)>>8), byte(len(payload)))
	frame = append(frame, payload...)
	frame = append(frame, byte(checksum>>8), byte(checksum))
	frame = append(frame, '0')

	transport.Feed(frame)
	time.Sleep(rxSettle)
	for i := 0; i < 8; i++ {
		d.Tick()
	}

	if d.State() != types.StateSucceeded {
		t.Fatalf("receive state = %v, want succeeded", d.State())
	}
	got, ok := d.PendingMT()
	if !ok {
		t.Fatal("expected a pending MT frame")
	}
	if got.MsgType() != types.MTMessageType(0x0801) {
		t.Fatalf("msg type = %x, stale binBuf corrupted the length read", got.MsgType())
	}
}

func TestSendBinaryFileBadChecksum(t *testing.T) {
	d, transport, _ := newTestDriver(t)
	d.cmd.State = types.StateIdle
	d.SendBinaryFile([]byte{0x01, 0x02})
	feedAndTick(d, transport, "2\r")
	if d.State() != types.StateFailed {
		t.Fatalf("state = %v, want failed", d.State())
	}
	if code := d.ErrorCode(); code != errcode.TxBinBadChecksum {
		t.Fatalf("error = %v", code)
	}
}

func TestReadMTBinaryHappyPath(t *testing.T) {
	d, transport, _ := newTestDriver(t)
	d.cmd.State = types.StateIdle
	d.info.MTLength = 0 // unknown, first read

	if !d.ReadMTBinary() {
		t.Fatal("ReadMTBinary rejected while idle")
	}

	payload := []byte{0x00, 0x00, 0x08, 0x01, 0x03} // offset 2-3 -> msg type 0x0801, modem-inbox range
	checksum := types.AdditiveChecksum(payload)
	frame := make([]byte, 0, 2+len(payload)+2+1)
	frame = append(frame, byte(len(payload)>>8), byte(len(payload)))
	frame = append(frame, payload...)
	frame = append(frame, byte(checksum>>8), byte(checksum))
	frame = append(frame, '0')

	transport.Feed(frame)
	time.Sleep(rxSettle)
	for i := 0; i < 8; i++ {
		d.Tick()
	}

	if d.State() != types.StateSucceeded {
		t.Fatalf("state = %v, want succeeded", d.State())
	}
	got, ok := d.PendingMT()
	if !ok {
		t.Fatal("expected a pending MT frame")
	}
	if got.MsgType() != types.MTMessageType(0x0801) {
		t.Fatalf("msg type = %x", got.MsgType())
	}
}

func TestReadMTBinaryBadChecksum(t *testing.T) {
	d, transport, _ := newTestDriver(t)
	d.cmd.State = types.StateIdle
	d.ReadMTBinary()

	payload := []byte{0x08, 0x00, 0x01, 0x02}
	frame := []byte{0x00, byte(len(payload))}
	frame = append(frame, payload...)
	frame = append(frame, 0xFF, 0xFF) // deliberately wrong checksum
	frame = append(frame, '0')

	transport.Feed(frame)
	time.Sleep(rxSettle)
	for i := 0; i < 8; i++ {
		d.Tick()
	}

	if d.State() != types.StateFailed {
		t.Fatalf("state = %v, want failed", d.State())
	}
	if code := d.ErrorCode(); code != errcode.RxBadChecksum {
		t.Fatalf("error = %v", code)
	}
	if !d.fs.Exists(string(types.DeviceModem) + "/" + types.SubdirError.String() + "/" + d.info.MTMSN + ".bin") {
		t.Fatal("bad-checksum frame not written to the error subdirectory")
	}
}

// TestReadMTBinaryBadLength covers spec §3 invariant 4's other trigger: a
// length disagreeing with the session layer's previously-reported
// MTLength must also land in the error subdirectory rather than inbox.
func TestReadMTBinaryBadLength(t *testing.T) {
	d, transport, _ := newTestDriver(t)
	d.cmd.State = types.StateIdle
	d.info.MTLength = 4
	d.ReadMTBinary()

	frame := []byte{0x00, 0x05} // claims length 5, disagrees with MTLength 4

	transport.Feed(frame)
	time.Sleep(rxSettle)
	for i := 0; i < 8; i++ {
		d.Tick()
	}

	if d.State() != types.StateFailed {
		t.Fatalf("state = %v, want failed", d.State())
	}
	if code := d.ErrorCode(); code != errcode.RxBadFileLength {
		t.Fatalf("error = %v", code)
	}
	if !d.fs.Exists(string(types.DeviceModem) + "/" + types.SubdirError.String() + "/" + d.info.MTMSN + ".bin") {
		t.Fatal("bad-length frame not written to the error subdirectory")
	}
}

func TestQuerySignalTimeoutIsSilent(t *testing.T) {
	d, _, clock := newTestDriver(t)
	d.cmd.State = types.StateIdle
	d.QuerySignal()
	clock.Advance(StdTimeout + time.Second)
	d.Tick()
	if d.State() != types.StateTimedOut {
		t.Fatalf("state = %v, want timed-out", d.State())
	}
	if code := d.ErrorCode(); code != errcode.None {
		t.Fatalf("expected no error kind recorded for a silent CSQF timeout, got %v", code)
	}
}

func TestAckInitResetsOutstandingConversation(t *testing.T) {
	d, transport, _ := newTestDriver(t)
	d.cmd.State = types.StateIdle
	d.SendBinaryFile([]byte{0x01})
	feedAndTick(d, transport, "READY\r")

	d.AckInit()
	if d.State() != types.StateInitialising {
		t.Fatalf("state after AckInit = %v", d.State())
	}
	if d.SubState() != types.SubNone {
		t.Fatalf("sub-state after AckInit = %v", d.SubState())
	}
}

// TestPeekErrorCodeDoesNotClear guards the non-clearing accessor
// instrumentation (status publishing) relies on: unlike ErrorCode,
// repeated reads must not consume the recorded kind.
func TestPeekErrorCodeDoesNotClear(t *testing.T) {
	d, transport, _ := newTestDriver(t)
	d.cmd.State = types.StateIdle
	d.SendBinaryFile([]byte{0x01, 0x02})
	feedAndTick(d, transport, "2\r") // deliberately wrong checksum echo

	if code := d.PeekErrorCode(); code != errcode.TxBinBadChecksum {
		t.Fatalf("peek 1 = %v", code)
	}
	if code := d.PeekErrorCode(); code != errcode.TxBinBadChecksum {
		t.Fatalf("peek 2 = %v, want PeekErrorCode to leave the kind in place", code)
	}
	if code := d.ErrorCode(); code != errcode.TxBinBadChecksum {
		t.Fatalf("final ErrorCode = %v", code)
	}
	if code := d.ErrorCode(); code != errcode.None {
		t.Fatalf("error = %v, want cleared after ErrorCode's own read", code)
	}
}

func TestCISReloadFlashHappyPath(t *testing.T) {
	d, transport, _ := newTestDriver(t)
	d.cmd.State = types.StateIdle

	lines := []string{"line one", "line two"}
	idx := 0
	next := func() (string, bool) {
		if idx >= len(lines) {
			return "", false
		}
		l := lines[idx]
		idx++
		return l, true
	}

	if !d.ProgramCIS(next) {
		t.Fatal("ProgramCIS rejected while idle")
	}
	if d.State() != types.StateProgramming {
		t.Fatalf("state = %v, want programming", d.State())
	}

	feedAndTick(d, transport, "20400000 1B010000\r")
	if d.SubState() != types.SubCISReloadFlashAck {
		t.Fatalf("sub-state after version check = %v, want SubCISReloadFlashAck (first line auto-sent)", d.SubState())
	}

	transport.Feed([]byte("a"))
	time.Sleep(rxSettle)
	for i := 0; i < 4; i++ {
		d.Tick()
	}
	if d.SubState() != types.SubCISReloadFlashAck {
		t.Fatalf("sub-state after second line ack = %v", d.SubState())
	}

	transport.Feed([]byte("aC"))
	time.Sleep(rxSettle)
	for i := 0; i < 4; i++ {
		d.Tick()
	}
	if d.State() != types.StateSucceeded {
		t.Fatalf("state = %v, want succeeded", d.State())
	}
	if d.port.Mux() != types.PortData {
		t.Fatalf("port mux not restored to data after upload")
	}
}

// TestCISReloadFlashHardwareError covers the 'H' byte, distinct from
// N/n/F: it fails the upload rather than restarting it.
func TestCISReloadFlashHardwareError(t *testing.T) {
	d, transport, _ := newTestDriver(t)
	d.cmd.State = types.StateIdle

	lines := []string{"line one"}
	idx := 0
	next := func() (string, bool) {
		if idx >= len(lines) {
			return "", false
		}
		l := lines[idx]
		idx++
		return l, true
	}

	if !d.ProgramCIS(next) {
		t.Fatal("ProgramCIS rejected while idle")
	}
	feedAndTick(d, transport, "20400000 1B010000\r")
	if d.SubState() != types.SubCISReloadFlashAck {
		t.Fatalf("sub-state after version check = %v", d.SubState())
	}

	feedAndTick(d, transport, "H")
	if d.State() != types.StateFailed {
		t.Fatalf("state = %v, want failed", d.State())
	}
	if code := d.ErrorCode(); code != errcode.CISFlashHWError {
		t.Fatalf("error = %v", code)
	}
	if d.port.Mux() != types.PortData {
		t.Fatalf("port mux not restored to data after hardware error")
	}
}

// TestCISTimeoutTransitionsToTimedOut covers spec §4.2 "Timer expiry
// transitions to timed-out": a CIS timer expiry while programming must
// land in StateTimedOut like every other conversation's timeout, not
// StateFailed.
func TestCISTimeoutTransitionsToTimedOut(t *testing.T) {
	d, _, clock := newTestDriver(t)
	d.cmd.State = types.StateIdle

	if !d.ProgramCIS(func() (string, bool) { return "", false }) {
		t.Fatal("ProgramCIS rejected while idle")
	}
	if d.State() != types.StateProgramming {
		t.Fatalf("state = %v, want programming", d.State())
	}

	clock.Advance(CISTimeout)
	d.Tick()

	if d.State() != types.StateTimedOut {
		t.Fatalf("state = %v, want timed-out", d.State())
	}
	if code := d.ErrorCode(); code != errcode.RspTimedOut {
		t.Fatalf("error = %v, want rsp-timed-out", code)
	}
	if d.port.Mux() != types.PortData {
		t.Fatalf("port mux not restored to data after CIS timeout")
	}
}
