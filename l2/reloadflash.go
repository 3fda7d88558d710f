package l2

import (
	"github.com/windward-avionics/sbdlink/errcode"
	"github.com/windward-avionics/sbdlink/types"
)

// tickReloadFlash drives the line-by-line CIS image upload (spec §4.2
// item 11, §8 scenario 5): each accepted line is acked with `a`; `N`/`n`/
// `F` are recoverable by cancelling and restarting from the top; `a`
// followed by `C` means upload complete.
func (d *Driver) tickReloadFlash() {
	buf := make([]byte, 64)
	n := d.port.RecvInto(buf)
	if n == 0 {
		if d.cmd.SubState == types.SubCISReloadFlashLine {
			d.sendNextReloadLine()
		}
		return
	}
	d.cisLineBuf = append(d.cisLineBuf, buf[:n]...)

	for len(d.cisLineBuf) > 0 {
		c := d.cisLineBuf[0]
		d.cisLineBuf = d.cisLineBuf[1:]
		switch c {
		case 'a':
			if len(d.cisLineBuf) > 0 && d.cisLineBuf[0] == 'C' {
				d.cisLineBuf = d.cisLineBuf[1:]
				d.succeed()
				d.port.SetMux(types.PortData)
				return
			}
			d.sendNextReloadLine()
		case 'N', 'n', 'F':
			// Recoverable: cancel and restart the upload from the top.
			d.sendRaw([]byte(cisCancelLoad))
			d.sendRaw([]byte(cisReloadFlash))
			d.cmd.SubState = types.SubCISReloadFlashLine
			d.armCIS()
			return
		case 'H':
			// Hardware error: unlike N/n/F this is not recoverable by
			// restarting the upload.
			d.fail(errcode.CISFlashHWError)
			d.port.SetMux(types.PortData)
			return
		case 'M', 'O', 'E', 'e', 'C':
			// M/O/E/e are CIS protocol status bytes that don't gate flow
			// control on their own; a lone C with no preceding 'a' is
			// ignored (handled above when it follows 'a').
		}
	}
}

// sendNextReloadLine pulls the next config line from the supplied
// callback and streams it. Once the callback is exhausted it sends
// nothing more and the upload completes only on the CIS's a/C
// terminator. A nil callback fails the upload.
func (d *Driver) sendNextReloadLine() {
	if d.reloadNextLine == nil {
		d.fail(errcode.GenericError)
		d.port.SetMux(types.PortData)
		return
	}
	line, ok := d.reloadNextLine()
	if !ok {
		return // wait for the modem's own a/C terminator
	}
	d.sendRaw([]byte(line))
	d.cmd.SubState = types.SubCISReloadFlashAck
	d.armCIS()
}
