package l2

import (
	"strings"

	"github.com/windward-avionics/sbdlink/errcode"
	"github.com/windward-avionics/sbdlink/types"
)

// onCISAck parses the textual ack for relay/ringer/reset commands (spec
// §6: "Ringer(s) On|Off", "Relay[0] On|Off", "Relay[1] On|Off").
func (d *Driver) onCISAck(line string) {
	switch {
	case strings.Contains(line, "On"), strings.Contains(line, "Off"):
		d.applyCISStatus(line)
		d.cmd.State = types.StateSucceeded
		d.cisTimer.Stop()
		d.port.SetMux(types.PortData)
	case line == "":
		// ignore blank lines between CIS prompt echoes
	default:
		// Any other text is treated as a recoverable failure; CIS never
		// reports a generic "4" the way AT commands do.
		d.fail(errcode.GenericError)
		d.port.SetMux(types.PortData)
	}
}

func (d *Driver) applyCISStatus(line string) {
	on := strings.Contains(line, "On")
	switch d.info.PendingCIS {
	case types.CISRingerOn, types.CISRingerOff, types.CISRingerStatus:
		d.info.RingerOn = on
	case types.CISRelay1On, types.CISRelay1Off, types.CISRelay1Status:
		d.info.Relay1On = on
	case types.CISRelay2On, types.CISRelay2Off, types.CISRelay2Status:
		d.info.Relay2On = on
	}
}

// onCISVersionCheck expects the literal "20400000 1B010000" (spec §4.2
// item 11), then kicks off the reload-flash upload.
func (d *Driver) onCISVersionCheck(line string) {
	if strings.TrimSpace(line) != "20400000 1B010000" {
		d.fail(errcode.GenericError)
		d.port.SetMux(types.PortData)
		return
	}
	d.cmd.SubState = types.SubCISReloadFlashLine
	d.sendRaw([]byte(cisReloadFlash))
	d.armCIS()
}

// onCISDownloadLine accumulates bulk-capture lines until the collaborator
// stops accepting them; spec leaves the exact terminator to the
// rules-engine collaborator, so this simply hands every line to the
// accumulator and succeeds once maxCISDownloadBytes have been captured;
// a shorter capture ends when the CIS download timer expires.
func (d *Driver) onCISDownloadLine(line string) {
	d.cisLineBuf = append(d.cisLineBuf, []byte(line+"\n")...)
	if len(d.cisLineBuf) >= maxCISDownloadBytes {
		d.succeed()
		d.port.SetMux(types.PortData)
	}
}

// maxCISDownloadBytes bounds the bulk capture (spec §4.2 item 11:
// "bulk capture of up to a fixed byte count").
const maxCISDownloadBytes = 8192
