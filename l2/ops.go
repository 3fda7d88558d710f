package l2

import (
	"github.com/windward-avionics/sbdlink/types"
	"github.com/windward-avionics/sbdlink/x/conv"
)

// Init starts the init script (spec §4.2 item 1): IMEI query, MT-alert
// config, auto-register, initiate-session, revision query. It also reads
// the IMEI mirror from the EEPROM collaborator (spec §6 "Persistent
// state"), compared against the modem's own report once onInitIMEI's
// response arrives.
func (d *Driver) Init() bool {
	if d.cmd.State != types.StateInitialising && d.cmd.State != types.StatePoweredDown {
		return false
	}
	d.cmd.State = types.StateInitialising
	d.cmd.SubState = types.SubInitIMEIQuery
	d.cmd.LastErr = ""
	if d.eeprom != nil {
		if mirror, err := d.eeprom.ReadIMEI(); err == nil {
			d.imeiMirror = mirror
		}
	}
	d.sendAT("CGSN\r")
	d.armStd()
	return true
}

// SendBinaryFile sends payload as a binary report (spec §4.2 item 2).
func (d *Driver) SendBinaryFile(payload []byte) bool {
	if !d.idleOrFail(types.StateSending, types.SubSendAwaitReady) {
		return false
	}
	d.binBuf = append(d.binBuf[:0], payload...)
	d.binWant = len(payload)
	d.binGot = 0
	var lenBuf [20]byte
	d.sendAT("SBDWB=" + string(conv.Itoa(lenBuf[:], int64(len(payload)))) + "\r")
	d.armStd()
	return true
}

// SendText sends text as an SBD text message (spec §4.2 item 3).
func (d *Driver) SendText(text string) bool {
	if !d.idleOrFail(types.StateSending, types.SubTextAwaitResult) {
		return false
	}
	d.sendAT("SBDWT=" + text + "\r")
	d.armStd()
	return true
}

// MailboxCheck clears the MO buffer then initiates an empty session (spec
// §4.2 item 4).
func (d *Driver) MailboxCheck() bool {
	if !d.idleOrFail(types.StateSending, types.SubMailboxClear) {
		return false
	}
	d.sendAT("SBDD0\r")
	d.armStd()
	return true
}

// ReadMTBinary reads the pending MT message (spec §4.2 item 5).
func (d *Driver) ReadMTBinary() bool {
	if !d.idleOrFail(types.StateReceiving, types.SubMTAwaitLength) {
		return false
	}
	d.binGot = 0
	d.binWant = 0
	d.binBuf = d.binBuf[:0]
	d.mtPayload = d.mtPayload[:0]
	d.tok.Reset()
	d.sendAT("SBDRB\r")
	d.armSat()
	return true
}

// QuerySignal issues CSQF (spec §4.2 item 6).
func (d *Driver) QuerySignal() bool {
	if !d.idleOrFail(types.StateSending, types.SubCSQAwaitResponse) {
		return false
	}
	d.sendAT("CSQF\r")
	d.armStd()
	return true
}

// QueryRegistration issues CREG? (spec §4.2 item 7).
func (d *Driver) QueryRegistration() bool {
	if !d.idleOrFail(types.StateSending, types.SubCREGAwaitResponse) {
		return false
	}
	d.sendAT("CREG?\r")
	d.armStd()
	return true
}

// QueryGatewayStatus issues SBDSX (spec §4.2 item 8).
func (d *Driver) QueryGatewayStatus() bool {
	if !d.idleOrFail(types.StateSending, types.SubSBDSXAwaitResponse) {
		return false
	}
	d.sendAT("SBDSX\r")
	d.armStd()
	return true
}

// QueryCallStatus issues CLCC (spec §4.2 item 9).
func (d *Driver) QueryCallStatus() bool {
	if !d.idleOrFail(types.StateSending, types.SubCLCCAwaitResponse) {
		return false
	}
	d.sendAT("CLCC\r")
	d.armStd()
	return true
}

// HangUp issues CHUP (spec §4.2 item 10).
func (d *Driver) HangUp() bool {
	if !d.idleOrFail(types.StateSending, types.SubHangupAwaitResult) {
		return false
	}
	d.sendAT("CHUP\r")
	d.armStd()
	return true
}
