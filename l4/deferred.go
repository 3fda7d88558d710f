package l4

import "github.com/windward-avionics/sbdlink/x/qring"

// deferredCapacity bounds the interrupt-safe deferred-log queue (spec §3);
// the spec names no explicit size for it, so it shares the dedup ring's
// capacity — the set of distinct event kinds an ISR could plausibly raise
// between main-loop drains is the same order of magnitude.
const deferredCapacity = dedupCapacity

// DeferredQueue is the "interrupt-safe deferred-log queue" of spec §3: a
// small set-like ring of event-kind values an ISR may append to without
// losing other entries, duplicates suppressed. It carries no timestamp or
// signal-strength context (the ISR has none to give), so draining it logs
// each kind with a blank filename and no sequence numbers.
type DeferredQueue struct {
	ring *qring.Ring[string, struct{}]
}

// NewDeferredQueue constructs an empty queue.
func NewDeferredQueue() *DeferredQueue {
	return &DeferredQueue{ring: qring.New[string, struct{}](deferredCapacity)}
}

// Append records kind, callable from an ISR: append is a no-op if kind is
// already queued (spec §3 "duplicates are skipped").
func (q *DeferredQueue) Append(kind string) {
	q.ring.Push(kind, struct{}{}, func(old struct{}) struct{} { return old })
}

// Drain empties the queue into log, one LogEvent call per distinct kind.
// Called from the main loop, never from interrupt context.
func (q *DeferredQueue) Drain(log *Log, signalStrength int) {
	for {
		kind, _, ok := q.ring.PopFront()
		if !ok {
			return
		}
		log.LogEvent(signalStrength, "", kind, "", "", "")
	}
}
