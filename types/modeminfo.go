package types

import "github.com/windward-avionics/sbdlink/errcode"

// ModemInfo is the aggregate status cache L2 mutates on parse success (spec
// §3 "Modem info block"). Ringer and relay state survive a modem power
// loss (spec §3 lifecycle note) so the session layer can restore CIS state
// afterward; every other field is cleared.
type ModemInfo struct {
	SignalStrength int // -1..5, -1 = unknown/failed

	MOMSN string // last mobile-originated sequence number

	MTMSN       string // last mobile-terminated sequence number
	MTLength    int
	MTQueued    int // queue depth at the gateway
	RingAlert   bool

	CallStatus CallStatus

	RingerOn bool
	Relay1On bool
	Relay2On bool

	PendingCIS PendingCISOp

	IMEI            string
	SoftwareVersion string
}

// ClearOnPowerLoss resets every field except ringer/relay state, matching
// spec §3's lifecycle rule.
func (m *ModemInfo) ClearOnPowerLoss() {
	ringer, r1, r2 := m.RingerOn, m.Relay1On, m.Relay2On
	*m = ModemInfo{}
	m.SignalStrength = -1
	m.RingerOn, m.Relay1On, m.Relay2On = ringer, r1, r2
}

// OutstandingCommand is the per-driver-instance record spec §3 names: one
// live conversation, its sub-state, the last error kind, and a response
// deadline (owned by the caller via internal/timerx.Handle).
type OutstandingCommand struct {
	State    State
	SubState SubState
	LastErr  errcode.Code
}

// Reset returns the record to its post-acknowledgement shape (spec §3
// lifecycle: "reset on every acknowledgement and on every detected power
// loss").
func (o *OutstandingCommand) Reset(next State) {
	o.State = next
	o.SubState = SubNone
	o.LastErr = errcode.None
}
