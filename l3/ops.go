package l3

import "github.com/windward-avionics/sbdlink/types"

// Init starts the modem init script (spec §4.3 contract `init`). Returns
// false if the session is not powered-down/initialising or L2 refuses.
func (s *Session) Init() bool {
	if s.state != types.SessionPoweredDown && s.state != types.SessionInitialising {
		return false
	}
	if !s.driver.Init() {
		return false
	}
	s.state = types.SessionInitialising
	s.goBusy(cmdInit)
	return true
}

// EnableSending turns on the outbox-file auto-send priority (spec §4.3
// "enable_sending is automatic after init").
func (s *Session) EnableSending() { s.sendingEnabled = true }

// DisableSending stops new file picks without cancelling an in-flight
// transmission (spec §4.3 "Sending control").
func (s *Session) DisableSending() { s.sendingEnabled = false }

// SendText queues an explicit text message (spec §4.3 `send_text`).
func (s *Session) SendText(text string) bool {
	if s.state != types.SessionIdle {
		return false
	}
	if !s.driver.SendText(text) {
		return false
	}
	s.goBusy(cmdTextSend)
	return true
}

// SendBinary queues an explicit binary buffer transmit (spec §4.3
// `send_binary`).
func (s *Session) SendBinary(buf []byte) bool {
	if s.state != types.SessionIdle {
		return false
	}
	if !s.driver.SendBinaryFile(buf) {
		return false
	}
	s.goBusy(cmdBinarySend)
	return true
}

// GetTextResponse and GetBinaryResponse expose the last session-initiate
// result fields (spec §4.3 `get_text_response`/`get_binary_response`):
// MOMSN/MTMSN are common to both send paths, so both getters return the
// same cached pair.
func (s *Session) GetTextResponse() (momsn, mtmsn string) {
	info := s.driver.Info()
	return info.MOMSN, info.MTMSN
}
func (s *Session) GetBinaryResponse() (momsn, mtmsn string) { return s.GetTextResponse() }

// ToggleRinger drives the CIS ringer relay, queuing the request if the
// session cannot dispatch it immediately (spec §4.3 `toggle_ringer`).
func (s *Session) ToggleRinger(on bool) {
	op := types.CISRingerOff
	if on {
		op = types.CISRingerOn
	}
	s.dispatchOrQueueCIS(op, func() bool { return s.driver.ToggleRinger(on) })
}

// ToggleRelay drives CIS relay 1 or 2 (spec §4.3 `toggle_relay`).
func (s *Session) ToggleRelay(nr int, on bool) {
	var op types.PendingCISOp
	switch {
	case nr == 1 && on:
		op = types.CISRelay1On
	case nr == 1 && !on:
		op = types.CISRelay1Off
	case nr == 2 && on:
		op = types.CISRelay2On
	default:
		op = types.CISRelay2Off
	}
	s.dispatchOrQueueCIS(op, func() bool { return s.driver.ToggleRelay(nr, on) })
}

// SendRingerStatusQuery and SendRelayStatusQuery issue CIS status reads
// (spec §4.3 `send_ringer_status_query`/`send_relay_status_query`).
func (s *Session) SendRingerStatusQuery() {
	s.dispatchOrQueueCIS(types.CISRingerStatus, func() bool { return s.driver.QueryRingerStatus() })
}
func (s *Session) SendRelayStatusQuery(nr int) {
	op := types.CISRelay1Status
	if nr == 2 {
		op = types.CISRelay2Status
	}
	s.dispatchOrQueueCIS(op, func() bool { return s.driver.QueryRelayStatus(nr) })
}

// GetRingerStatus and GetRelayStatus read the cached CIS state (spec §4.3
// `get_ringer_status`/`get_relay_status`).
func (s *Session) GetRingerStatus() bool { return s.driver.Info().RingerOn }
func (s *Session) GetRelayStatus(nr int) bool {
	if nr == 2 {
		return s.driver.Info().Relay2On
	}
	return s.driver.Info().Relay1On
}

// HangupCall issues CHUP (spec §4.3 `hangup_call`).
func (s *Session) HangupCall() bool {
	if s.state != types.SessionIdle {
		return false
	}
	if !s.driver.HangUp() {
		return false
	}
	s.goBusy(cmdHangup)
	return true
}

// UploadCISConfig begins a bulk download-config capture (spec §4.3
// `upload_cis_config`).
func (s *Session) UploadCISConfig() bool {
	return s.dispatchOrQueueCIS(types.CISDownloadConfig, func() bool { return s.driver.UploadCISConfig() })
}

// ProgramCIS begins the reload-flash script (spec §4.3 `program_cis`).
func (s *Session) ProgramCIS(nextLine func() (string, bool)) bool {
	s.reloadNextLine = nextLine
	return s.dispatchOrQueueCIS(types.CISVersionCheck, func() bool { return s.driver.ProgramCIS(nextLine) })
}

// ResetCIS issues the CIS reset command (spec §4.3 `reset_cis`).
func (s *Session) ResetCIS() bool {
	return s.dispatchOrQueueCIS(types.CISReset, func() bool { return s.driver.ResetCIS() })
}

// ReportPCMCIAError lets the filesystem collaborator report a hardware
// fault through the session (spec §4.3 `report_pcmcia_error`); it always
// escalates to the system log since there is no AT recovery for it.
func (s *Session) ReportPCMCIAError(reason string) {
	if s.sysLog != nil {
		s.sysLog.LogHardwareError(reason)
	}
}

// dispatchOrQueueCIS attempts to start a CIS operation right away; on
// failure to dispatch (busy, or prerequisites not met) it enqueues op on
// the deferred-CIS queue for priority 1 of the idle tick to retry (spec
// §4.3 "each dequeued item invokes the corresponding L2 operation, and on
// failure-to-dispatch, is re-enqueued").
func (s *Session) dispatchOrQueueCIS(op types.PendingCISOp, dispatch func() bool) bool {
	if dispatch() {
		s.pendingCISOp = op
		s.goBusy(cmdCISRingerRelayReset)
		if op == types.CISDownloadConfig || op == types.CISVersionCheck {
			s.pending = cmdCISUploadOrProgram
		}
		return true
	}
	s.cisQueue.Push(op, struct{}{}, func(old struct{}) struct{} { return old })
	return false
}
