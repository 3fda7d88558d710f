package l3

import (
	"github.com/windward-avionics/sbdlink/bus"
)

// StatusTopic is the retained topic Session publishes its status snapshot
// to when a bus is attached (SPEC_FULL's retained-status feature). Kept
// as a package-level default so groundtool and a future integrator
// subscribe to the same path without passing it around separately.
var StatusTopic = bus.Topic{bus.S("sbdlink"), bus.S("status")}

// StatusMessage is the retained payload shape published on StatusTopic.
type StatusMessage struct {
	SessionState   string
	DriverState    string
	ErrorCode      string
	SignalStrength int
	MOMSN          string
	MTMSN          string
	SendingEnabled bool
}

// AttachBus wires b so every Tick republishes the session's current status
// as a retained message on StatusTopic. Passing a nil bus (the default)
// leaves Tick's behaviour unchanged; this is strictly additive
// instrumentation, never consulted by Session's own state machine.
func (s *Session) AttachBus(b *bus.Bus) {
	s.statusBus = b
}

func (s *Session) publishStatus() {
	if s.statusBus == nil {
		return
	}
	info := s.driver.Info()
	msg := StatusMessage{
		SessionState:   s.state.String(),
		DriverState:    s.driver.State().String(),
		ErrorCode:      string(s.driver.PeekErrorCode()),
		SignalStrength: info.SignalStrength,
		MOMSN:          info.MOMSN,
		MTMSN:          info.MTMSN,
		SendingEnabled: s.sendingEnabled,
	}
	s.statusBus.Publish(&bus.Message{
		Topic:    StatusTopic,
		Payload:  msg,
		Retained: true,
	})
}
