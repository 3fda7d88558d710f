// Package timerx provides the opaque timer handles spec §9 calls for:
// "Timers are opaque handles issued by an external service; the core asks
// expired? and start(deadline_ms). A test double replaces the service with
// a virtual clock." Six logical session timers and two L2 timers (spec
// §5 "Timer resources") all share this one abstraction; starting or
// stopping one never affects another.
//
// The wall-clock Handle is grounded on the repeated time.Timer-plus-reset
// idiom in services/hal/worker.go and services/hal/hal.go (drainTimer,
// "(re)arm timer" before the select). Timerx deliberately does not use
// time.Timer directly: the driver only ever asks "has this deadline
// passed?" on each Tick, which is simpler to fake deterministically than
// coordinating with timer channels.
package timerx

import "time"

// Clock is the time source a Handle asks for "now". Production code uses
// WallClock; tests use a VirtualClock.
type Clock interface {
	Now() time.Time
}

// WallClock is the real system clock.
type WallClock struct{}

func (WallClock) Now() time.Time { return time.Now() }

// VirtualClock is a test double: Now() returns whatever was last set with
// Advance or Set, never the real clock.
type VirtualClock struct {
	now time.Time
}

// NewVirtualClock creates a VirtualClock starting at t.
func NewVirtualClock(t time.Time) *VirtualClock { return &VirtualClock{now: t} }

func (c *VirtualClock) Now() time.Time { return c.now }

// Advance moves the virtual clock forward by d.
func (c *VirtualClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// Set pins the virtual clock to t.
func (c *VirtualClock) Set(t time.Time) { c.now = t }

// Handle is a single logical timer: armed with a deadline, observed with
// Expired, and independent of every other Handle sharing the same Clock.
type Handle struct {
	clock    Clock
	deadline time.Time
	armed    bool
}

// NewHandle creates an unarmed Handle against clock.
func NewHandle(clock Clock) *Handle {
	if clock == nil {
		clock = WallClock{}
	}
	return &Handle{clock: clock}
}

// Start arms the timer to expire after d from now.
func (h *Handle) Start(d time.Duration) {
	h.deadline = h.clock.Now().Add(d)
	h.armed = true
}

// Stop disarms the timer without it being observed as expired.
func (h *Handle) Stop() { h.armed = false }

// Armed reports whether the timer is currently running.
func (h *Handle) Armed() bool { return h.armed }

// Expired reports whether the timer is armed and its deadline has passed.
// It does not disarm the timer; callers that treat expiry as one-shot call
// Stop() themselves (mirroring spec's "response deadline is cancelled
// before the upper layer observes the outcome").
func (h *Handle) Expired() bool {
	return h.armed && !h.clock.Now().Before(h.deadline)
}

// Remaining returns the time left until expiry, or 0 if expired/unarmed.
func (h *Handle) Remaining() time.Duration {
	if !h.armed {
		return 0
	}
	d := h.deadline.Sub(h.clock.Now())
	if d < 0 {
		return 0
	}
	return d
}
