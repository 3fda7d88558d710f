package l3

import (
	"github.com/windward-avionics/sbdlink/errcode"
	"github.com/windward-avionics/sbdlink/l1"
	"github.com/windward-avionics/sbdlink/types"
)

// mtRetryLimit bounds MT-receive retries (spec §4.3 "retry up to the
// configured count"); the contract lists no setter for it, unlike the other
// retry counts, so it is a fixed constant rather than a Config field.
const mtRetryLimit = 3

// postCommandCleanup runs spec §4.3's "post-command cleanup" table against
// the L2 outcome that just went terminal, dispatched on which command the
// session was busy with. It never calls driver.AckIdle/AckInit itself —
// that, and the CIS-from-powered-down restore, stay in tickBusy.
func (s *Session) postCommandCleanup() {
	st := s.driver.State()
	err := s.driver.ErrorCode()

	s.checkFatalConditions(st, err)

	switch s.pending {
	case cmdInit:
		s.cleanupInit(st)
	case cmdFileSend:
		s.cleanupFileSend(st, err)
	case cmdMTReceive:
		s.cleanupMTReceive(st)
	case cmdTextSend, cmdBinarySend:
		s.cleanupBufferSend(st)
	case cmdCallStatus:
		s.armWait()
	case cmdSignal:
		s.cleanupSignal(st)
	case cmdGatewayStatus:
		s.armGateway()
	case cmdHangup:
		s.logModem("hangup", errName(err))
		s.armWait()
	case cmdCISRingerRelayReset:
		s.cleanupCISSimple(st)
	case cmdCISUploadOrProgram:
		s.cleanupCISUploadOrProgram(st, err)
	}
}

// checkFatalConditions implements spec §7's "Fatal conditions" independent
// of which command was busy: sbd-blocked always escalates to the system
// log, and ten minutes of back-to-back timeouts request a CIS power-cycle
// (falling back to a queued CIS reset if the power-cycle itself fails).
func (s *Session) checkFatalConditions(st types.State, err errcode.Code) {
	if err == errcode.SBDBlocked && s.sysLog != nil {
		s.sysLog.LogHardwareError("sbd-blocked")
	}

	if st != types.StateTimedOut {
		s.commTimer.Stop()
		return
	}
	if !s.commTimer.Armed() {
		s.armCommTimeout()
		return
	}
	if !s.commTimer.Expired() {
		return
	}
	s.commTimer.Stop()
	if s.power == nil {
		return
	}
	if perr := s.power.PowerCycleCIS(); perr != nil {
		s.cisQueue.Push(types.CISReset, struct{}{}, func(old struct{}) struct{} { return old })
	}
}

func (s *Session) cleanupInit(st types.State) {
	if st != types.StateSucceeded {
		s.logEvent("init failed")
		return
	}
	s.sendingEnabled = true // spec §4.3 "enable_sending is automatic after init"
	s.armSignal()
	s.armGateway()
}

func (s *Session) cleanupFileSend(st types.State, err errcode.Code) {
	if st == types.StateSucceeded {
		s.sendRetries = 0
		s.logModem("sent", "")
		s.keepOrDeleteOutboxFile()
		s.afterSuccessHangupOrWait()
		return
	}
	s.sendRetries++
	if s.sendRetries < s.cfg.FileSendRetryCount {
		s.retryTimer.Start(s.cfg.FileSendRetryDelay)
		return
	}
	s.sendRetries = 0
	src := outboxDir + "/" + s.pendingFile
	if mvErr := s.fs.Move(src, errorDir+"/"+s.pendingFile); mvErr != nil {
		s.fs.Delete(src)
	}
	s.logModem("send-failed", errName(err))
	s.armWait()
}

// keepOrDeleteOutboxFile implements the keep-list rule (spec §4.3 "file send
// succeeded"): NULL keeps nothing, "*" keeps everything, otherwise keep any
// file whose first character matches one of the listed flags.
func (s *Session) keepOrDeleteOutboxFile() {
	src := outboxDir + "/" + s.pendingFile
	if s.keepListMatches(s.pendingFile) {
		if err := s.fs.Move(src, sentDir+"/"+s.pendingFile); err == nil {
			return
		}
	}
	s.fs.Delete(src)
}

func (s *Session) keepListMatches(name string) bool {
	if s.cfg.KeepList == "*" {
		return true
	}
	if s.cfg.KeepList == "" || name == "" {
		return false
	}
	first := name[0]
	for i := 0; i < len(s.cfg.KeepList); i++ {
		if s.cfg.KeepList[i] == first {
			return true
		}
	}
	return false
}

func (s *Session) cleanupMTReceive(st types.State) {
	if st == types.StateSucceeded {
		s.mtRetries = 0
		s.logModem("mt-received", "")
		s.forwardPendingMTSentinel()
		s.afterSuccessHangupOrWait()
		return
	}
	if st == types.StateTimedOut {
		s.mtRetries++
		if s.mtRetries < mtRetryLimit {
			if s.driver.ReadMTBinary() {
				s.goBusy(cmdMTReceive)
				return
			}
		}
	}
	s.mtRetries = 0
	s.armWait()
}

// forwardPendingMTSentinel hands a sentinel MT message type (spec §6: an
// "immediate side-effect without a saved file") to the rules engine or
// power manager collaborator; l2 only stashes the decoded frame since it
// holds neither collaborator itself.
func (s *Session) forwardPendingMTSentinel() {
	frame, ok := s.driver.PendingMT()
	if !ok {
		return
	}
	s.driver.ClearPendingMT()
	if !frame.MsgType().IsSentinel() {
		return
	}
	switch frame.MsgType() {
	case types.MTFormatCard:
		s.logEvent("format card requested")
	case types.MTPurgeRulesImage:
		if s.rules != nil {
			s.rules.PurgeRulesImage()
		}
	case types.MTDeleteRulesFile:
		if s.rules != nil {
			s.rules.DeleteRulesFile()
		}
	case types.MTConfigDownloadReq:
		if s.rules != nil {
			s.rules.NotifyConfigDownloadRequest(frame.Payload)
		}
	case types.MTPowerCycleModem:
		if s.power != nil {
			s.power.PowerCycleModem()
		}
	case types.MTPowerCycleCIS:
		if s.power != nil {
			s.power.PowerCycleCIS()
		}
	}
}

func (s *Session) cleanupBufferSend(st types.State) {
	if st == types.StateSucceeded {
		s.afterSuccessHangupOrWait()
		return
	}
	s.armWait()
}

// afterSuccessHangupOrWait is the "if DSR is high, issue a hangup;
// otherwise, if no MT pending, begin the incoming-call wait window" rule
// common to file send, MT receive, and buffer transmit success (spec
// §4.3, and scenario 2's "on the next tick issue a hang-up because DSR is
// simulated high"). The hangup itself is dispatched by tickBusy once L2
// has been acked back to idle.
func (s *Session) afterSuccessHangupOrWait() {
	if s.port != nil && s.port.Line(l1.LineDSR) {
		s.pendingHangup = true
		return
	}
	if s.driver.Info().MTQueued == 0 {
		s.armWait()
	}
}

func (s *Session) cleanupSignal(st types.State) {
	if st == types.StateSucceeded {
		s.signalDebounce = 0
		s.armSignal()
		return
	}
	s.signalDebounce++
	if s.signalDebounce < s.cfg.SignalRetryCount {
		s.signalTimer.Start(s.cfg.SignalRetryDelay)
		return
	}
	s.signalDebounce = 0
	s.driver.Info().SignalStrength = -1
	s.logModem("signal-failed", "csq-error")
	s.logEvent("signal strength unavailable")
	s.armSignal()
}

func (s *Session) cleanupCISSimple(st types.State) {
	if st != types.StateSucceeded {
		s.cisQueue.Push(s.pendingCISOp, struct{}{}, func(old struct{}) struct{} { return old })
	}
}

func (s *Session) cleanupCISUploadOrProgram(st types.State, err errcode.Code) {
	s.logEvent("CIS action complete")
	if st == types.StateSucceeded {
		if s.pendingCISOp == types.CISVersionCheck {
			// Reload-flash just replaced the CIS firmware image; queue a
			// restore of the ringer/relay outputs from the cache L2
			// preserved across the programming run (spec §8 scenario 5).
			// Queued rather than dispatched here: L2 is not idle again
			// until tickBusy acks it right after this cleanup returns.
			s.queueRingerRelayRestore()
		}
		return
	}
	if s.pendingCISOp == types.CISVersionCheck {
		if s.eeprom != nil {
			s.eeprom.WriteCISInvalidation([]byte{0xFF})
		}
		if s.power != nil {
			s.power.PowerCycleCIS()
		}
		s.logModem("program-cis-failed", errName(err))
	}
}

// queueRingerRelayRestore pushes the cached ringer/relay states onto the
// deferred-CIS queue so the next idle tick reapplies them one at a time
// through the normal drain path, rather than dispatching a new L2
// conversation while this cleanup's own command hasn't been acked yet.
func (s *Session) queueRingerRelayRestore() {
	info := s.driver.Info()
	ringerOp := types.CISRingerOff
	if info.RingerOn {
		ringerOp = types.CISRingerOn
	}
	relay1Op := types.CISRelay1Off
	if info.Relay1On {
		relay1Op = types.CISRelay1On
	}
	relay2Op := types.CISRelay2Off
	if info.Relay2On {
		relay2Op = types.CISRelay2On
	}
	merge := func(old struct{}) struct{} { return old }
	s.cisQueue.Push(ringerOp, struct{}{}, merge)
	s.cisQueue.Push(relay1Op, struct{}{}, merge)
	s.cisQueue.Push(relay2Op, struct{}{}, merge)
}
