package l2

import (
	"github.com/windward-avionics/sbdlink/errcode"
	"github.com/windward-avionics/sbdlink/types"
)

// tickBinaryReceive drives the raw byte-counting MT receive script (spec
// §4.2 item 5, §6 "MT-binary frame"): big-endian u16 length, length bytes
// of payload, big-endian u16 additive checksum, a trailing '0'. It
// processes as many sub-states as the bytes on hand allow in one tick,
// rather than waiting one sub-state per tick, since SBDRB can deliver the
// whole frame in a single read.
func (d *Driver) tickBinaryReceive() {
	buf := make([]byte, 64)
	if n := d.port.RecvInto(buf); n > 0 {
		d.binBuf = append(d.binBuf, buf[:n]...)
	}
	if d.port.Overflowed() {
		d.fail(errcode.RxBufferOverflow)
		return
	}

	for {
		switch d.cmd.SubState {
		case types.SubMTAwaitLength:
			if len(d.binBuf) < 2 {
				return
			}
			length := int(uint16(d.binBuf[0])<<8 | uint16(d.binBuf[1]))
			d.binBuf = d.binBuf[2:]
			if length > MaxRxFileLen || (d.info.MTLength != 0 && length != d.info.MTLength) {
				d.writeMTErrorFile(nil)
				d.fail(errcode.RxBadFileLength)
				return
			}
			d.binWant = length
			d.mtPayload = d.mtPayload[:0]
			d.cmd.SubState = types.SubMTAwaitPayload

		case types.SubMTAwaitPayload:
			if d.binWant == 0 {
				d.cmd.SubState = types.SubMTAwaitChecksum
				continue
			}
			if len(d.binBuf) < d.binWant {
				return
			}
			d.mtPayload = append(d.mtPayload, d.binBuf[:d.binWant]...)
			d.binBuf = d.binBuf[d.binWant:]
			d.cmd.SubState = types.SubMTAwaitChecksum

		case types.SubMTAwaitChecksum:
			if len(d.binBuf) < 2 {
				return
			}
			d.binCksum = uint16(d.binBuf[0])<<8 | uint16(d.binBuf[1])
			d.binBuf = d.binBuf[2:]
			d.cmd.SubState = types.SubMTAwaitTrailingZero

		case types.SubMTAwaitTrailingZero:
			if len(d.binBuf) < 1 {
				return
			}
			d.binBuf = d.binBuf[1:]
			d.finishMTReceive()
			return

		default:
			return
		}
	}
}

// finishMTReceive validates the checksum, stashes every valid frame as
// the pending MT for the session layer, and writes non-sentinel types to
// the filesystem collaborator directly (spec §6: sentinel
// types get "no saved file"; everything else lands under the range
// table's (Device, Subdir)).
func (d *Driver) finishMTReceive() {
	payload := append([]byte(nil), d.mtPayload...)
	if types.AdditiveChecksum(payload) != d.binCksum {
		d.writeMTErrorFile(payload)
		d.fail(errcode.RxBadChecksum)
		return
	}
	frame := types.MTFrame{Length: uint16(len(payload)), Payload: payload, Checksum: d.binCksum}
	d.pendingMT = frame
	d.pendingMTValid = true

	if frame.MsgType().IsSentinel() {
		// Sentinel side effects (power-cycle, purge-rules, config-download
		// request, ...) belong to the session layer, which holds the
		// RulesEngine and PowerManager collaborators l2 does not.
		d.succeed()
		return
	}
	if err := d.writeMTFile(frame); err != nil {
		d.fail(errcode.FileWriteErr)
		return
	}
	d.succeed()
}

// writeMTErrorFile relocates a length- or checksum-bad MT frame to the
// modem device's error subdirectory (spec §3 invariant 4: "length and
// checksum mismatches produce a written file in the error sub-directory,
// not in inbox"), writing whatever payload bytes were collected even
// when the frame never reached a valid length. The write error itself is
// not escalated here: the caller already has a more specific errcode
// (RxBadFileLength/RxBadChecksum) to report via fail.
func (d *Driver) writeMTErrorFile(payload []byte) {
	path := string(types.DeviceModem) + "/" + types.SubdirError.String() + "/" + d.info.MTMSN + ".bin"
	d.fs.Write(path, payload)
}

// writeMTFile lands a non-sentinel MT frame under the range table's
// device/subdirectory, copying to the port-3 tree as well when the range
// is COPY_PORT3-tagged (spec §6).
func (d *Driver) writeMTFile(frame types.MTFrame) error {
	entry, ok := types.Lookup(frame.MsgType())
	if !ok {
		return d.fs.Write(string(types.DeviceRoot)+"/"+d.info.MTMSN+".bin", frame.Payload)
	}
	name := d.info.MTMSN + ".bin"
	path := string(entry.Dev) + "/" + entry.Sub.String() + "/" + name
	if err := d.fs.Write(path, frame.Payload); err != nil {
		return err
	}
	if entry.CopyPort3 {
		copyPath := string(types.DevicePort3) + "/" + entry.Sub.String() + "/" + name
		if err := d.fs.Write(copyPath, frame.Payload); err != nil {
			return err
		}
	}
	return nil
}
