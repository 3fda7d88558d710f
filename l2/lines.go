package l2

import (
	"strings"

	"github.com/windward-avionics/sbdlink/atparse"
	"github.com/windward-avionics/sbdlink/errcode"
	"github.com/windward-avionics/sbdlink/types"
)

// handleLine dispatches one completed line to the handler for the
// current sub-state (spec §4.2's per-script tables).
func (d *Driver) handleLine(line string) {
	switch d.cmd.SubState {
	case types.SubInitIMEIQuery:
		d.onInitIMEI(line)
	case types.SubInitMTAlertConfig:
		d.onInitAckLine(line, types.SubInitAutoRegister, "SBDAREG=1\r")
	case types.SubInitAutoRegister:
		d.onInitAckLine(line, types.SubInitSession, "")
	case types.SubInitSession:
		d.onInitSession(line)
	case types.SubInitRevisionQuery:
		d.onInitRevision(line)

	case types.SubSendAwaitReady:
		d.onSendAwaitReady(line)
	case types.SubSendAwaitZero:
		d.onFinalZeroOrFour(line, types.SubSendInitiateSession, (*Driver).sendSessionCmd)
	case types.SubSendInitiateSession, types.SubTextInitiateSession, types.SubMailboxInitiateSession:
		d.onSessionResponse(line)
	case types.SubTextAwaitResult:
		d.onFinalZeroOrFour(line, types.SubTextInitiateSession, (*Driver).sendSessionCmd)
	case types.SubMailboxClear:
		d.onFinalZeroOrFour(line, types.SubMailboxInitiateSession, (*Driver).sendSessionCmd)

	case types.SubCSQAwaitResponse:
		d.onCSQF(line)
	case types.SubCREGAwaitResponse:
		d.onCREG(line)
	case types.SubSBDSXAwaitResponse:
		d.onSBDSX(line)
	case types.SubCLCCAwaitResponse:
		d.onCLCC(line)
	case types.SubHangupAwaitResult:
		d.onFinal01(line)

	case types.SubCISAwaitAck:
		d.onCISAck(line)
	case types.SubCISVersionCheck:
		d.onCISVersionCheck(line)
	case types.SubCISDownloadConfig:
		d.onCISDownloadLine(line)
	}
}

// sendSessionCmd issues INITIATE-SESSION, shared by the send-binary,
// send-text and mailbox-check scripts (spec §4.2 items 2-4).
func (d *Driver) sendSessionCmd() {
	d.sendRaw([]byte("AT" + "SBDIX\r\n"))
	d.armSat()
}

// onInitIMEI parses the raw IMEI line (no AT prefix echoed back; spec §8
// scenario 1 feeds it as a bare digit string), then writes it back to the
// EEPROM mirror only if it differs from the mirror read at Init (spec §6
// "Persistent state").
func (d *Driver) onInitIMEI(line string) {
	imei := strings.TrimSpace(line)
	if imei == "" || !isAllDigits(imei) {
		return // keep waiting; a stray blank line is not the IMEI
	}
	d.imei = imei
	if d.eeprom != nil && imei != d.imeiMirror {
		if err := d.eeprom.WriteIMEI(imei); err == nil {
			d.imeiMirror = imei
		}
	}
	d.cmd.SubState = types.SubInitMTAlertConfig
	d.sendAT("SBDMTA=0\r")
	d.armStd()
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// onInitAckLine consumes a `0`/`4` acknowledgement and advances to next,
// issuing cmd if non-empty; an empty cmd issues INITIATE-SESSION instead
// (the init script's session step).
func (d *Driver) onInitAckLine(line string, next types.SubState, cmd string) {
	switch atparse.Classify(line) {
	case atparse.TypeFinal:
		if line == "4" {
			// Init restarts at the most recent configuration command on
			// failure (spec §4.2 item 1).
			d.sendAT(initRestartCmd(d.cmd.SubState))
			d.armStd()
			return
		}
		d.cmd.SubState = next
		if cmd != "" {
			d.sendAT(cmd)
			d.armStd()
		} else {
			d.sendSessionCmd()
		}
	}
}

func initRestartCmd(sub types.SubState) string {
	switch sub {
	case types.SubInitMTAlertConfig:
		return "SBDMTA=0\r"
	case types.SubInitAutoRegister:
		return "SBDAREG=1\r"
	default:
		return "CGSN\r"
	}
}

// onInitSession parses the drain-registration session response; any mo in
// 0..4 advances to the revision query regardless of MT payload (the init
// script only cares that registration happened).
func (d *Driver) onInitSession(line string) {
	res, ok := atparse.ParseSBDIX(line)
	if !ok {
		if line == "0" {
			return // trailing zero after the session line; ignore
		}
		return
	}
	if errcode.SBDIXCode(res.MO) != errcode.None {
		d.sendAT("SBDAREG=1\r")
		d.cmd.SubState = types.SubInitAutoRegister
		d.armStd()
		return
	}
	d.applySessionSuccess(res)
	d.cmd.SubState = types.SubInitRevisionQuery
	d.sendAT("CGMR\r")
	d.armStd()
}

// onInitRevision parses the ~145-byte CGMR banner (spec §8 scenario 1:
// "Call Processor Version: IS020C00" plus filler).
func (d *Driver) onInitRevision(line string) {
	const prefix = atparse.VersionPrefix
	if idx := strings.Index(line, prefix); idx >= 0 {
		rest := line[idx+len(prefix):]
		if len(rest) > 7 {
			rest = rest[:7]
		}
		d.swVersion = rest
		d.succeed()
	}
}

// onSendAwaitReady waits for the literal "READY" response before
// streaming the payload (spec §4.2 item 2).
func (d *Driver) onSendAwaitReady(line string) {
	if line == atparse.Ready {
		d.cmd.SubState = types.SubSendAwaitZero
		d.tok.Reset()
		d.sendRaw(d.binBuf)
		sum := checksum16(d.binBuf)
		d.sendRaw([]byte{byte(sum >> 8), byte(sum)})
		d.armStd()
		return
	}
	switch line {
	case "1":
		d.fail(errcode.TxBinTimeout)
	case "2":
		d.fail(errcode.TxBinBadChecksum)
	case "3":
		d.fail(errcode.TxBinBadSize)
	}
}

// onFinalZeroOrFour advances on "0", fails generic on "4".
func (d *Driver) onFinalZeroOrFour(line string, next types.SubState, thenCmd func(*Driver)) {
	switch line {
	case "0":
		d.cmd.SubState = next
		thenCmd(d)
	case "4":
		d.fail(errcode.GenericError)
	}
}

// onSessionResponse parses the common +SBDIX:/trailing-0 pair shared by
// send-binary, send-text, and mailbox-check (spec §4.2 items 2-4).
func (d *Driver) onSessionResponse(line string) {
	if res, ok := atparse.ParseSBDIX(line); ok {
		d.applySessionSuccess(res)
		return
	}
	if line == "0" {
		if d.cmd.LastErr == errcode.None {
			d.succeed()
		} else {
			d.fail(d.cmd.LastErr)
		}
	}
}

// applySessionSuccess records MT fields on success only (spec §4.2
// "Session-initiate response parsing ... mt, mtlen, mtqueuenbr are stored
// only on success").
func (d *Driver) applySessionSuccess(res atparse.SBDIXResult) {
	kind := errcode.SBDIXCode(res.MO)
	if kind != errcode.None {
		d.cmd.LastErr = kind
		return
	}
	d.info.MOMSN = itoaSimple(res.MOMSN)
	d.info.MTMSN = itoaSimple(res.MTMSN)
	d.info.MTLength = res.MTLen
	d.info.MTQueued = res.Queued
}

func itoaSimple(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func (d *Driver) onCSQF(line string) {
	if line == "4" {
		d.fail(errcode.CSQError)
		return
	}
	if n, ok := atparse.ParseCSQF(line); ok {
		d.info.SignalStrength = n
		if n == 0 {
			d.fail(errcode.None) // reported as failure but no Iridium error kind
			return
		}
		d.succeed()
	}
}

func (d *Driver) onCREG(line string) {
	res, ok := atparse.ParseCREG(line)
	if !ok {
		return
	}
	kind, isSuccess := errcode.CREGCode(res.Status)
	d.cmd.LastErr = kind
	if isSuccess {
		d.succeed()
	} else {
		d.fail(kind)
	}
}

func (d *Driver) onSBDSX(line string) {
	res, ok := atparse.ParseSBDSX(line)
	if !ok {
		return
	}
	d.info.MTQueued = res.Queued
	if res.RA == 1 || d.info.MTQueued != 0 || res.Queued > 0 {
		d.succeed()
		return
	}
	d.fail(errcode.None) // quiet failure: no error kind, not a timeout
}

func (d *Driver) onCLCC(line string) {
	n, ok := atparse.ParseCLCC(line)
	if !ok {
		return
	}
	switch n {
	case 2:
		d.fail(errcode.CallDialing)
	case 0:
		d.info.CallStatus = types.CallIdle
		d.cmd.LastErr = errcode.CallIdle
		d.succeed()
	case 1:
		d.info.CallStatus = types.CallActive
		d.cmd.LastErr = errcode.CallActive
		d.succeed()
	case 3:
		d.info.CallStatus = types.CallHeld
		d.cmd.LastErr = errcode.CallHeld
		d.succeed()
	case 4:
		d.info.CallStatus = types.CallIncoming
		d.cmd.LastErr = errcode.CallIncoming
		d.succeed()
	case 5:
		d.info.CallStatus = types.CallWaiting
		d.cmd.LastErr = errcode.CallWaiting
		d.succeed()
	case 6:
		d.info.CallStatus = types.CallInvalid
		d.succeed()
	}
}

func (d *Driver) onFinal01(line string) {
	switch line {
	case "0":
		d.succeed()
	case "4":
		d.fail(errcode.GenericError)
	}
}

func checksum16(b []byte) uint16 {
	var sum uint32
	for _, v := range b {
		sum += uint32(v)
	}
	return uint16(sum)
}
