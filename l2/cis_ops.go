package l2

import "github.com/windward-avionics/sbdlink/types"

// CIS command literals, exact per spec §6 "CIS command table".
const (
	cisSetRelayOff0 = "set relay 0 0\r"
	cisSetRelayOn0  = "set relay 0 1\r"
	cisGetRelay0    = "set relay 0\r"
	cisSetRelayOff1 = "set relay 1 0\r"
	cisSetRelayOn1  = "set relay 1 1\r"
	cisGetRelay1    = "set relay 1\r"
	cisRingerOn     = "set ringer 1\r"
	cisRingerOff    = "set ringer 0\r"
	cisGetRinger    = "set ringer\r"
	cisReset        = "reset"
	cisDownloadCfg  = "download config\r\n"
	cisVersionCheck = "~"
	cisReloadFlash  = "reload flash"
	cisCancelLoad   = "c\r"
)

// startCIS switches the port mux to programming (spec §3 invariant 2) and
// arms the driver busy in StateProgramming.
func (d *Driver) startCIS(op types.PendingCISOp, sub types.SubState) bool {
	if d.cmd.State != types.StateIdle && d.cmd.State != types.StatePoweredDown {
		return false
	}
	d.info.PendingCIS = op
	d.port.SetMux(types.PortProgramming)
	d.cmd.State = types.StateProgramming
	d.cmd.SubState = sub
	d.cmd.LastErr = ""
	return true
}

// ToggleRinger drives the CIS ringer relay on or off.
func (d *Driver) ToggleRinger(on bool) bool {
	op := types.CISRingerOff
	cmd := cisRingerOff
	if on {
		op, cmd = types.CISRingerOn, cisRingerOn
	}
	if !d.startCIS(op, types.SubCISAwaitAck) {
		return false
	}
	d.sendRaw([]byte(cmd))
	d.armCIS()
	return true
}

// ToggleRelay drives CIS relay 1 or 2 on or off.
func (d *Driver) ToggleRelay(nr int, on bool) bool {
	var op types.PendingCISOp
	var cmd string
	switch {
	case nr == 1 && on:
		op, cmd = types.CISRelay1On, cisSetRelayOn0
	case nr == 1 && !on:
		op, cmd = types.CISRelay1Off, cisSetRelayOff0
	case nr == 2 && on:
		op, cmd = types.CISRelay2On, cisSetRelayOn1
	default:
		op, cmd = types.CISRelay2Off, cisSetRelayOff1
	}
	if !d.startCIS(op, types.SubCISAwaitAck) {
		return false
	}
	d.sendRaw([]byte(cmd))
	d.armCIS()
	return true
}

// QueryRingerStatus requests the CIS ringer status.
func (d *Driver) QueryRingerStatus() bool {
	if !d.startCIS(types.CISRingerStatus, types.SubCISAwaitAck) {
		return false
	}
	d.sendRaw([]byte(cisGetRinger))
	d.armCIS()
	return true
}

// QueryRelayStatus requests a CIS relay's status.
func (d *Driver) QueryRelayStatus(nr int) bool {
	op, cmd := types.CISRelay1Status, cisGetRelay0
	if nr == 2 {
		op, cmd = types.CISRelay2Status, cisGetRelay1
	}
	if !d.startCIS(op, types.SubCISAwaitAck) {
		return false
	}
	d.sendRaw([]byte(cmd))
	d.armCIS()
	return true
}

// ResetCIS issues the CIS reset command.
func (d *Driver) ResetCIS() bool {
	if !d.startCIS(types.CISReset, types.SubCISAwaitAck) {
		return false
	}
	d.sendRaw([]byte(cisReset))
	d.armCIS()
	return true
}

// UploadCISConfig begins a bulk download-config capture (spec §4.2 item
// 11): the download timer replaces the standard CIS timer for the
// duration.
func (d *Driver) UploadCISConfig() bool {
	if !d.startCIS(types.CISDownloadConfig, types.SubCISDownloadConfig) {
		return false
	}
	d.sendRaw([]byte(cisDownloadCfg))
	d.armCISDL()
	return true
}

// ProgramCIS begins the reload-flash script (spec §4.2 item 11, §8
// scenario 5): version-check, then line-by-line upload driven by
// nextLine, which the session layer supplies from the rules engine.
func (d *Driver) ProgramCIS(nextLine func() (string, bool)) bool {
	if !d.startCIS(types.CISVersionCheck, types.SubCISVersionCheck) {
		return false
	}
	d.reloadNextLine = nextLine
	d.sendRaw([]byte(cisVersionCheck))
	d.armCIS()
	return true
}
