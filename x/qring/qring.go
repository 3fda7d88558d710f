// Package qring implements small, fixed-capacity, set-like rings of typed
// values where duplicates collapse instead of growing the ring. It
// generalizes the non-blocking-channel-plus-drop-counter idiom used by
// services/hal/gpio_worker.go's isrQ/outQ in the teacher repo to the three
// dedup rings spec §3 requires:
//
//   - the deferred-log queue an ISR appends terminal-status events to
//   - the deferred CIS-operation queue the session layer drains in idle
//   - the short-term error deduplication ring (timestamp, kind, repeat count)
//
// All three share the same shape: a new value whose key already appears
// either updates the existing slot (deferred queues: no-op; dedup ring:
// bump repeat-count and refresh timestamp) or, for a genuinely new key,
// evicts the oldest slot and ring-advances.
package qring

import "sync"

// Entry is one slot of a dedup ring.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
	valid bool
}

// Ring is a fixed-capacity ring of at most N distinct keys. It is safe for
// concurrent use: Push may be called from an interrupt-simulating context
// while PopFront is called from the main loop, matching spec §5's "Shared
// resources" rule that every structure touched by both contexts brackets
// its mutation.
type Ring[K comparable, V any] struct {
	mu      sync.Mutex
	entries []Entry[K, V]
	next    int // ring-advance cursor for eviction order
}

// New creates a Ring holding at most capacity distinct keys.
func New[K comparable, V any](capacity int) *Ring[K, V] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring[K, V]{entries: make([]Entry[K, V], capacity)}
}

// Push inserts or updates the slot for key. If the key is already present,
// update is called with the existing value and its return value replaces
// it (the deferred queues pass an update that just returns the old value
// unchanged, i.e. "append is a no-op"; the error-dedup ring passes one that
// bumps a repeat-count and refreshes a timestamp). If the key is new, the
// oldest slot is overwritten (ring advance) and evicted is true.
func (r *Ring[K, V]) Push(key K, value V, update func(old V) V) (evictedKey K, evictedVal V, evicted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.entries {
		if r.entries[i].valid && r.entries[i].Key == key {
			if update != nil {
				r.entries[i].Value = update(r.entries[i].Value)
			} else {
				r.entries[i].Value = value
			}
			return evictedKey, evictedVal, false
		}
	}

	slot := &r.entries[r.next]
	if slot.valid {
		evictedKey, evictedVal, evicted = slot.Key, slot.Value, true
	}
	slot.Key = key
	slot.Value = value
	slot.valid = true
	r.next = (r.next + 1) % len(r.entries)
	return evictedKey, evictedVal, evicted
}

// Contains reports whether key currently occupies a slot.
func (r *Ring[K, V]) Contains(key K) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].valid && r.entries[i].Key == key {
			return true
		}
	}
	return false
}

// Remove clears the slot for key, if present, and reports whether it was.
func (r *Ring[K, V]) Remove(key K) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].valid && r.entries[i].Key == key {
			r.entries[i] = Entry[K, V]{}
			return true
		}
	}
	return false
}

// PopFront removes and returns the oldest-inserted present entry, in ring
// order starting just after the last eviction point. ok is false if the
// ring holds nothing. This is the drain primitive the session layer and
// the main loop use on deferred queues (spec §4.3 priority 1, §4.4
// "interrupt-safe deferred-log queue... the main loop drains it").
func (r *Ring[K, V]) PopFront() (key K, value V, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.entries)
	for i := 0; i < n; i++ {
		idx := (r.next + i) % n // oldest-first: just after the eviction cursor
		if r.entries[idx].valid {
			key, value = r.entries[idx].Key, r.entries[idx].Value
			r.entries[idx] = Entry[K, V]{}
			return key, value, true
		}
	}
	return key, value, false
}

// Len reports the number of occupied slots.
func (r *Ring[K, V]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for i := range r.entries {
		if r.entries[i].valid {
			n++
		}
	}
	return n
}

// Snapshot returns a copy of all valid entries, oldest-first. Used by L4 to
// build the binary snapshot message from the error-dedup ring.
func (r *Ring[K, V]) Snapshot() []Entry[K, V] {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry[K, V], 0, len(r.entries))
	n := len(r.entries)
	for i := 0; i < n; i++ {
		idx := (r.next + i) % n
		if r.entries[idx].valid {
			out = append(out, r.entries[idx])
		}
	}
	return out
}
