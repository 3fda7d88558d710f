// Package l2 is the AT command state machine (spec §4.2): it formats AT
// and CIS commands, tracks the sub-state of the one outstanding
// conversation, parses responses via atparse, decodes error codes, writes
// received MT messages through the collab.Filesystem collaborator, and
// exposes one operation per externally meaningful command. Grounded on
// the teacher's cooperative tick()-driven worker shape
// (services/hal/worker.go, services/hal/gpio_worker.go) generalized from
// a measurement state machine to an AT conversation state machine, and on
// i4energy-sms-gateway's AT command vocabulary (at/at.go) for the
// response grammar.
package l2

import (
	"time"

	"github.com/windward-avionics/sbdlink/atparse"
	"github.com/windward-avionics/sbdlink/collab"
	"github.com/windward-avionics/sbdlink/errcode"
	"github.com/windward-avionics/sbdlink/internal/timerx"
	"github.com/windward-avionics/sbdlink/l1"
	"github.com/windward-avionics/sbdlink/types"
)

// Standard and satellite timeouts per spec §4.2 "Timeouts".
const (
	StdTimeout        = 5 * time.Second
	SatTimeoutDefault = 65 * time.Second
	CISTimeout        = 5 * time.Second
	CISDownloadTimeout = 65 * time.Second
)

// MaxRxFileLen bounds a received MT payload (spec §8 property 5).
const MaxRxFileLen = 2048

// Driver is one L2 instance: exactly one outstanding conversation, one
// Port, one modem-info cache (spec §3 invariant 1).
type Driver struct {
	port   *l1.Port
	tok    *atparse.Tokenizer
	fs     collab.Filesystem
	log    collab.ModemLog
	eeprom collab.EEPROM

	cmd  types.OutstandingCommand
	info types.ModemInfo

	clock      timerx.Clock
	rspTimer   *timerx.Handle
	cisTimer   *timerx.Handle
	satTimeout time.Duration

	imei       string
	imeiMirror string // eeprom's copy as of the last Init, for the read-compare-writeback in onInitIMEI
	swVersion  string

	// Binary-phase byte accounting (send and receive share one counter;
	// at most one conversation is ever live, per spec §3 invariant 1).
	binWant  int
	binGot   int
	binBuf   []byte
	binCksum uint16

	// mtPayload accumulates the current MT receive's payload bytes across
	// the length/payload/checksum/trailing-zero sub-states.
	mtPayload []byte

	// pendingMT is the most recently decoded MT frame, left for the
	// session layer to forward sentinel types to the rules engine and
	// power manager collaborators (spec §6): l2 has no RulesEngine or
	// PowerManager of its own.
	pendingMT      types.MTFrame
	pendingMTValid bool

	sendRetries int
	mtRetries   int

	reloadNextLine func() (string, bool)
	cisLineBuf     []byte

	modemRunning bool
	cisRunning   bool
}

// New constructs a Driver. clock is injected so tests can use
// timerx.VirtualClock. eeprom may be nil, in which case the IMEI mirror
// read-compare-writeback in Init/onInitIMEI is skipped.
func New(port *l1.Port, fs collab.Filesystem, log collab.ModemLog, eeprom collab.EEPROM, clock timerx.Clock) *Driver {
	d := &Driver{
		port:       port,
		tok:        atparse.NewTokenizer(),
		fs:         fs,
		log:        log,
		eeprom:     eeprom,
		clock:      clock,
		satTimeout: SatTimeoutDefault,
	}
	d.rspTimer = timerx.NewHandle(clock)
	d.cisTimer = timerx.NewHandle(clock)
	return d
}

// State returns the current top-level AT state.
func (d *Driver) State() types.State { return d.cmd.State }

// SubState returns the current conversation step.
func (d *Driver) SubState() types.SubState { return d.cmd.SubState }

// ErrorCode returns, then clears, the last recorded error kind (spec §7
// "Kinds are cleared on read").
func (d *Driver) ErrorCode() errcode.Code {
	c := d.cmd.LastErr
	d.cmd.LastErr = errcode.None
	return c
}

// PeekErrorCode returns the last recorded error kind without clearing it,
// for observers (status instrumentation, diagnostics) that must not
// consume the one read session cleanup itself depends on.
func (d *Driver) PeekErrorCode() errcode.Code { return d.cmd.LastErr }

// IMEI returns the cached IMEI, populated by Init.
func (d *Driver) IMEI() string { return d.imei }

// SoftwareVersion returns the cached revision string.
func (d *Driver) SoftwareVersion() string { return d.swVersion }

// Info exposes the modem-info cache directly (read-only use expected).
func (d *Driver) Info() *types.ModemInfo { return &d.info }

// Port exposes the underlying L1 port so the session layer can read the
// physical control lines (DSR for a live voice call, RI for an incoming
// ring) that spec §4.3's priority list reacts to directly, bypassing AT
// commands entirely.
func (d *Driver) Port() *l1.Port { return d.port }

// PendingMT returns the most recently decoded MT frame, if any has not
// yet been consumed by the session layer.
func (d *Driver) PendingMT() (types.MTFrame, bool) { return d.pendingMT, d.pendingMTValid }

// ClearPendingMT marks the pending MT frame consumed.
func (d *Driver) ClearPendingMT() { d.pendingMTValid = false }

// SetSatelliteTimeout programs the satellite timer's duration (spec §4.2
// "programmable 1..255 s"), clamped to that range.
func (d *Driver) SetSatelliteTimeout(d2 time.Duration) {
	if d2 < time.Second {
		d2 = time.Second
	}
	if d2 > 255*time.Second {
		d2 = 255 * time.Second
	}
	d.satTimeout = d2
}

// AckIdle acknowledges a terminal state and returns to idle, flushing the
// receive queue (spec §3 invariant 5).
func (d *Driver) AckIdle() {
	d.cmd.Reset(types.StateIdle)
	d.port.FlushRX()
}

// AckInit is the only cancellation primitive (spec §5 "Cancellation"): it
// clears byte buffers, stops timers, discards any partial response, and
// forces initialising.
func (d *Driver) AckInit() {
	d.cmd.Reset(types.StateInitialising)
	d.port.FlushRX()
	d.port.FlushTX()
	d.tok.Reset()
	d.rspTimer.Stop()
	d.cisTimer.Stop()
	d.binWant, d.binGot = 0, 0
	d.mtPayload = nil
}

// NotifyModemPowerGood transitions powered-down → initialising (spec §4.2
// item 1 trigger).
func (d *Driver) NotifyModemPowerGood() {
	wasRunning := d.modemRunning
	d.modemRunning = true
	if !wasRunning && d.cmd.State == types.StatePoweredDown {
		d.AckInit()
	}
}

// NotifyModemPowerLoss immediately jumps to powered-down, clears modem
// info (preserving ringer/relay), cancels timers and buffers (spec §4.2
// "Detected power loss").
func (d *Driver) NotifyModemPowerLoss() {
	d.modemRunning = false
	d.info.ClearOnPowerLoss()
	d.cmd.Reset(types.StatePoweredDown)
	d.rspTimer.Stop()
	d.cisTimer.Stop()
	d.tok.Reset()
	d.port.FlushRX()
	d.port.FlushTX()
}

// NotifyCISPowerLoss marks the CIS as not running. When a programming
// script is live it resets the conversation to idle, stops the CIS timer,
// clears the tokenizer and both byte queues, and forces the port mux back
// to data. Unlike NotifyModemPowerLoss it does not enter powered-down and
// does not clear the modem-info cache.
func (d *Driver) NotifyCISPowerLoss() {
	d.cisRunning = false
	if d.cmd.State == types.StateProgramming {
		d.cmd.Reset(types.StateIdle)
		d.cisTimer.Stop()
		d.tok.Reset()
		d.port.FlushRX()
		d.port.FlushTX()
		d.port.SetMux(types.PortData)
	}
}

// idleOrFail returns true and arms the driver busy if idle; otherwise
// leaves everything untouched and returns false (spec §4.2: "returns true
// only if the driver was idle").
func (d *Driver) idleOrFail(next types.State, sub types.SubState) bool {
	if d.cmd.State != types.StateIdle {
		return false
	}
	d.cmd.State = next
	d.cmd.SubState = sub
	d.cmd.LastErr = errcode.None
	return true
}

func (d *Driver) sendAT(cmd string) { d.port.Send([]byte("AT" + cmd)) }
func (d *Driver) sendRaw(b []byte)  { d.port.Send(b) }

func (d *Driver) armStd()  { d.rspTimer.Start(StdTimeout) }
func (d *Driver) armSat()  { d.rspTimer.Start(d.satTimeout) }
func (d *Driver) armCIS()  { d.cisTimer.Start(CISTimeout) }
func (d *Driver) armCISDL() { d.cisTimer.Start(CISDownloadTimeout) }

// fail transitions to failed with the given kind, stopping timers.
func (d *Driver) fail(kind errcode.Code) {
	d.cmd.LastErr = kind
	d.cmd.State = types.StateFailed
	d.rspTimer.Stop()
	d.cisTimer.Stop()
}

// succeed transitions to succeeded, stopping timers.
func (d *Driver) succeed() {
	d.cmd.State = types.StateSucceeded
	d.rspTimer.Stop()
	d.cisTimer.Stop()
}

// timedOut transitions to timed-out (silent for SBDSX/CSQF per spec).
func (d *Driver) timedOut(silent bool) {
	if !silent {
		d.cmd.LastErr = errcode.RspTimedOut
	}
	d.cmd.State = types.StateTimedOut
	d.rspTimer.Stop()
}
