package l2

import (
	"github.com/windward-avionics/sbdlink/errcode"
	"github.com/windward-avionics/sbdlink/types"
)

// Tick drains whatever L1 has buffered and advances the outstanding
// conversation by at most what that data allows (spec §4.2 "tick() ...
// must be called frequently from the main loop"). It never blocks.
func (d *Driver) Tick() {
	if d.cmd.State == types.StatePoweredDown {
		return
	}
	if d.checkTimeout() {
		return
	}
	if d.cmd.State.Terminal() {
		return // awaiting AckIdle/AckInit from the upper layer
	}

	switch d.cmd.SubState {
	case types.SubMTAwaitLength, types.SubMTAwaitPayload, types.SubMTAwaitChecksum, types.SubMTAwaitTrailingZero:
		d.tickBinaryReceive()
	case types.SubCISReloadFlashLine, types.SubCISReloadFlashAck:
		d.tickReloadFlash()
	default:
		d.tickLines()
	}
}

// checkTimeout fires the silent-vs-reported timeout rule (spec §4.2,
// §4.3 "signal-strength failed"/"gateway status ... quiet"): SBDSX and
// CSQF time out silently.
func (d *Driver) checkTimeout() bool {
	if d.cmd.State == types.StateProgramming {
		if d.cisTimer.Expired() {
			d.cmd.LastErr = errcode.RspTimedOut
			d.cmd.State = types.StateTimedOut
			d.cisTimer.Stop()
			d.port.SetMux(types.PortData)
			return true
		}
		return false
	}
	if !d.rspTimer.Expired() {
		return false
	}
	silent := d.cmd.SubState == types.SubSBDSXAwaitResponse || d.cmd.SubState == types.SubCSQAwaitResponse
	d.timedOut(silent)
	return true
}

// tickLines feeds newly received bytes into the line tokenizer and
// dispatches each completed line to the current script's handler.
func (d *Driver) tickLines() {
	buf := make([]byte, 256)
	if n := d.port.RecvInto(buf); n > 0 {
		d.tok.Feed(buf[:n])
	}
	if d.port.Overflowed() {
		d.cmd.LastErr = errcode.RxBufferOverflow
	}
	for {
		line, ok := d.tok.Next()
		if !ok {
			return
		}
		d.handleLine(line)
		if d.cmd.State.Terminal() {
			return
		}
	}
}
