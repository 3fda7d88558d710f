package l3

import (
	"github.com/windward-avionics/sbdlink/bus"
	"github.com/windward-avionics/sbdlink/collab"
	"github.com/windward-avionics/sbdlink/errcode"
	"github.com/windward-avionics/sbdlink/internal/timerx"
	"github.com/windward-avionics/sbdlink/l1"
	"github.com/windward-avionics/sbdlink/l2"
	"github.com/windward-avionics/sbdlink/types"
	"github.com/windward-avionics/sbdlink/x/qring"
)

// Outbox/sent/error subdirectories the file-send priority picks from and
// files land in after the post-command cleanup of spec §4.3.
const (
	outboxDir = "outbox"
	sentDir   = "sent"
	errorDir  = "error"
)

// cmdKind records which L2 operation is in flight, so Session's busy
// handler knows which of spec §4.3's "post-command cleanup" branches to
// run once L2 reaches a terminal state.
type cmdKind uint8

const (
	cmdNone cmdKind = iota
	cmdInit
	cmdFileSend
	cmdTextSend
	cmdBinarySend
	cmdMTReceive
	cmdCallStatus
	cmdSignal
	cmdGatewayStatus
	cmdHangup
	cmdCISRingerRelayReset
	cmdCISUploadOrProgram
)

// Session is the L3 policy layer: one Session drives one l2.Driver
// through the idle/busy priority list (spec §4.3), owns the deferred-CIS
// queue, retry/backoff timers, and the outbox file cursor.
type Session struct {
	driver   *l2.Driver
	port     *l1.Port
	fs       collab.Filesystem
	sysLog   collab.SystemLog
	modemLog collab.ModemLog
	power    collab.PowerManager
	rules    collab.RulesEngine
	eeprom   collab.EEPROM
	clock    timerx.Clock

	cfg Config

	state          types.SessionState
	prevState      types.SessionState // CIS-from-powered-down restore target
	sendingEnabled bool

	pending      cmdKind
	pendingFile  string
	pendingCISOp types.PendingCISOp

	sendRetries    int
	mtRetries      int
	signalDebounce int
	pendingHangup  bool

	waitTimer       *timerx.Handle
	signalTimer     *timerx.Handle
	gatewayTimer    *timerx.Handle
	retryTimer      *timerx.Handle
	commTimer       *timerx.Handle
	callStatusTimer *timerx.Handle

	cisQueue *qring.Ring[types.PendingCISOp, struct{}]

	// reloadNextLine is stashed across a program-cis call so Tick's busy
	// handler doesn't need it threaded through.
	reloadNextLine func() (string, bool)

	// statusBus, when attached via AttachBus, receives a retained status
	// message every Tick. Nil by default.
	statusBus *bus.Bus
}

// New constructs a Session wired to driver and its collaborators. Sending
// starts disabled; Init enables it automatically on success (spec §4.3
// "enable_sending is automatic after init").
func New(driver *l2.Driver, fs collab.Filesystem, sysLog collab.SystemLog, modemLog collab.ModemLog, power collab.PowerManager, rules collab.RulesEngine, eeprom collab.EEPROM, clock timerx.Clock, cfg Config) *Session {
	s := &Session{
		driver:   driver,
		port:     driver.Port(),
		fs:       fs,
		sysLog:   sysLog,
		modemLog: modemLog,
		power:    power,
		rules:    rules,
		eeprom:   eeprom,
		clock:    clock,
		cfg:      cfg,
		state:    types.SessionPoweredDown,
		cisQueue: qring.New[types.PendingCISOp, struct{}](8),
	}
	s.waitTimer = timerx.NewHandle(clock)
	s.signalTimer = timerx.NewHandle(clock)
	s.gatewayTimer = timerx.NewHandle(clock)
	s.retryTimer = timerx.NewHandle(clock)
	s.commTimer = timerx.NewHandle(clock)
	s.callStatusTimer = timerx.NewHandle(clock)
	driver.SetSatelliteTimeout(cfg.SatelliteTimeout)
	return s
}

// State returns the current top-level session state.
func (s *Session) State() types.SessionState { return s.state }

// Config returns the session's current configurable parameters.
func (s *Session) Config() Config { return s.cfg }

// SetConfig replaces the configurable parameters and forwards the
// satellite timeout to L2 (spec §4.3 "satellite response timeout:
// forwarded to L2").
func (s *Session) SetConfig(cfg Config) {
	s.cfg = cfg
	s.driver.SetSatelliteTimeout(cfg.SatelliteTimeout)
}

func (s *Session) armWait()       { s.waitTimer.Start(s.cfg.WaitForCallsWindow) }
func (s *Session) armSignal()     { s.signalTimer.Start(s.cfg.SignalPollInterval) }
func (s *Session) armGateway()    { s.gatewayTimer.Start(s.cfg.GatewayPollInterval) }
func (s *Session) armCommTimeout() { s.commTimer.Start(s.cfg.CommTimeout) }

// goBusy arms the driver with kind and transitions to busy, remembering
// the previous state for the CIS-from-powered-down rule.
func (s *Session) goBusy(kind cmdKind) {
	s.prevState = s.state
	s.pending = kind
	s.state = types.SessionBusy
}

func (s *Session) logEvent(phrase string) {
	if s.sysLog != nil {
		s.sysLog.LogEvent(phrase)
	}
}

func (s *Session) logModem(phrase, subErr string) {
	if s.modemLog == nil {
		return
	}
	info := s.driver.Info()
	s.modemLog.LogEvent(info.SignalStrength, s.pendingFile, phrase, subErr, info.MOMSN, info.MTMSN)
}

// errName maps an errcode.Code to its sub-error phrase for the log, or ""
// for no error.
func errName(c errcode.Code) string {
	if c == errcode.None {
		return ""
	}
	return string(c)
}
