package l3

import (
	"github.com/windward-avionics/sbdlink/l1"
	"github.com/windward-avionics/sbdlink/types"
)

// Tick drives one step of the session's priority list (spec §4.3). It
// must be called at least as often as l2.Driver.Tick (the caller is
// expected to call driver.Tick() immediately before this).
func (s *Session) Tick() {
	defer s.publishStatus()

	switch s.driver.State() {
	case types.StatePoweredDown:
		if s.state != types.SessionPoweredDown {
			s.logEvent("modem power lost")
			s.state = types.SessionPoweredDown
			s.sendingEnabled = false
		}
	}

	switch s.state {
	case types.SessionPoweredDown:
		s.drainCISQueue()
	case types.SessionInitialising:
		// Waiting for Init's busy outcome; nothing else to do.
	case types.SessionIdle:
		s.tickIdle()
	case types.SessionBusy:
		s.tickBusy()
	}
}

// tickIdle runs spec §4.3's seven-step idle priority list, in order,
// stopping as soon as one step puts the driver back in motion.
func (s *Session) tickIdle() {
	if s.drainCISQueue() {
		return
	}

	if s.waitTimer.Armed() && s.waitTimer.Expired() {
		s.waitTimer.Stop()
		s.sendingEnabled = true
	}

	if s.driver.Info().MTQueued > 0 {
		if s.driver.ReadMTBinary() {
			s.goBusy(cmdMTReceive)
			return
		}
	}

	if s.port != nil && s.port.Line(l1.LineDSR) {
		if !s.callStatusTimer.Armed() || s.callStatusTimer.Expired() {
			if s.driver.QueryCallStatus() {
				s.logEvent("phone off-hook")
				s.callStatusTimer.Start(s.cfg.GatewayPollInterval)
				s.goBusy(cmdCallStatus)
				return
			}
		}
	}

	if s.port != nil && s.port.Line(l1.LineRI) {
		s.logEvent("incoming call")
	}

	if s.signalTimer.Armed() && s.signalTimer.Expired() {
		if s.driver.QuerySignal() {
			s.goBusy(cmdSignal)
			return
		}
	}

	retrying := s.retryTimer.Armed()
	if retrying && s.retryTimer.Expired() {
		s.retryTimer.Stop()
		retrying = false
	}

	if s.sendingEnabled && !retrying {
		if name, ok := s.nextOutboxFile(); ok {
			data, err := s.fs.Read(outboxDir + "/" + name)
			if err == nil && s.driver.SendBinaryFile(data) {
				s.pendingFile = name
				s.logModem("send", "")
				s.goBusy(cmdFileSend)
				return
			}
		} else if s.gatewayTimer.Armed() && s.gatewayTimer.Expired() {
			if s.driver.QueryGatewayStatus() {
				s.goBusy(cmdGatewayStatus)
				return
			}
		}
	}
}

// nextOutboxFile returns the first file in the outbox directory in
// ascending name order (spec §4.3 "pick the next file ... in ascending
// name order").
func (s *Session) nextOutboxFile() (string, bool) {
	names, err := s.fs.List(outboxDir)
	if err != nil || len(names) == 0 {
		return "", false
	}
	return names[0], true
}

// drainCISQueue pops and retries one deferred CIS operation; it is
// re-enqueued if it still can't dispatch (spec §4.3 priority 1). Returns
// true if an operation was dispatched (L2 is now busy).
func (s *Session) drainCISQueue() bool {
	op, _, ok := s.cisQueue.PopFront()
	if !ok {
		return false
	}
	if s.dispatchQueuedCIS(op) {
		return true
	}
	s.cisQueue.Push(op, struct{}{}, func(old struct{}) struct{} { return old })
	return false
}

// dispatchQueuedCIS re-issues a previously queued CIS op without
// re-queuing on success (dispatchOrQueueCIS would re-queue a dispatch
// failure, which is exactly what the caller here handles instead).
func (s *Session) dispatchQueuedCIS(op types.PendingCISOp) bool {
	var ok bool
	switch op {
	case types.CISRingerOn:
		ok = s.driver.ToggleRinger(true)
	case types.CISRingerOff:
		ok = s.driver.ToggleRinger(false)
	case types.CISRingerStatus:
		ok = s.driver.QueryRingerStatus()
	case types.CISRelay1On:
		ok = s.driver.ToggleRelay(1, true)
	case types.CISRelay1Off:
		ok = s.driver.ToggleRelay(1, false)
	case types.CISRelay1Status:
		ok = s.driver.QueryRelayStatus(1)
	case types.CISRelay2On:
		ok = s.driver.ToggleRelay(2, true)
	case types.CISRelay2Off:
		ok = s.driver.ToggleRelay(2, false)
	case types.CISRelay2Status:
		ok = s.driver.QueryRelayStatus(2)
	case types.CISReset:
		ok = s.driver.ResetCIS()
	case types.CISDownloadConfig:
		ok = s.driver.UploadCISConfig()
	case types.CISVersionCheck:
		ok = s.driver.ProgramCIS(s.reloadNextLine)
	}
	if !ok {
		return false
	}
	s.pendingCISOp = op
	s.goBusy(cmdCISRingerRelayReset)
	if op == types.CISDownloadConfig || op == types.CISVersionCheck {
		s.pending = cmdCISUploadOrProgram
	}
	return true
}

// tickBusy observes L2's state (spec §4.3 "Priority in busy"): on a
// terminal state it runs post-command cleanup, acks L2 idle, and returns
// to session-idle; on an unexpected state it logs and forces L2 to
// re-initialise.
func (s *Session) tickBusy() {
	switch s.driver.State() {
	case types.StateSucceeded, types.StateFailed, types.StateTimedOut:
		s.postCommandCleanup()
		// Spec §4.3 "CIS commands from powered-down": only a CIS
		// conversation started while the session was powered-down
		// returns there (re-asserting L2's powered-down); every other
		// command acks L2 idle and returns the session to idle.
		cis := s.pending == cmdCISRingerRelayReset || s.pending == cmdCISUploadOrProgram
		if cis && s.prevState == types.SessionPoweredDown {
			s.driver.NotifyModemPowerLoss()
			s.state = types.SessionPoweredDown
			return
		}
		s.driver.AckIdle()
		s.state = types.SessionIdle
		if s.pendingHangup {
			s.pendingHangup = false
			if s.driver.HangUp() {
				s.goBusy(cmdHangup)
			}
		}
	case types.StatePoweredDown:
		s.logEvent("unexpected response")
		s.driver.AckInit()
		s.state = types.SessionInitialising
	}
}
