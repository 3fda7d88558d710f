// Package shmring implements a lock-free single-producer/single-consumer
// byte ring buffer with atomic index stores, the L1 byte queue primitive
// spec §9 calls for: "favour a lock-free SPSC ring buffer with atomic index
// stores and release/acquire ordering, so no explicit interrupt masking is
// needed on modern microcontrollers; on the historical target, fall back to
// masking interrupts around index updates." The producer-side and
// consumer-side methods never allocate and never block, so either one may
// be called from an interrupt handler.
package shmring

import "sync/atomic"

// New creates a Ring of the given power-of-two capacity (>= 2). Capacity
// must exceed the largest single modem response (spec §3: "a 4 KiB buffer
// is recommended").
func New(size int) *Ring {
	if size < 2 || (size&(size-1)) != 0 {
		panic("shmring: size must be power of two >= 2")
	}
	return &Ring{
		buf:      make([]byte, size),
		mask:     uint32(size - 1),
		readable: make(chan struct{}, 1),
		writable: make(chan struct{}, 1),
	}
}

// Ring is a single-producer, single-consumer byte ring.
type Ring struct {
	buf  []byte
	mask uint32
	rd   atomic.Uint32 // consumer index (monotonic)
	wr   atomic.Uint32 // producer index (monotonic)

	readable chan struct{} // edge notify: 0 -> >0 available
	writable chan struct{} // edge notify: 0 -> >0 space

	overflowed atomic.Bool
	dropped    atomic.Uint64
}

func (r *Ring) size() uint32 { return uint32(len(r.buf)) }

// Space reports free capacity in bytes.
func (r *Ring) Space() int {
	rd := r.rd.Load()
	wr := r.wr.Load()
	return int(r.size() - (wr - rd))
}

// Available reports unread bytes.
func (r *Ring) Available() int {
	rd := r.rd.Load()
	wr := r.wr.Load()
	return int(wr - rd)
}

// WriteFrom copies as much of src as fits and returns the number of bytes
// written. It never blocks and never evicts already-buffered data; when
// src doesn't fully fit, the tail of src goes unwritten. Callers that need
// spec §4.1's drop-oldest-on-overflow behaviour call DropOldest first (see
// l1.Port.pumpRX).
func (r *Ring) WriteFrom(src []byte) (n int) {
	if len(src) == 0 {
		return 0
	}
	rd := r.rd.Load()
	wr := r.wr.Load()
	beforeAvail := wr - rd
	space := int(r.size() - beforeAvail)
	if space <= 0 {
		return 0
	}
	if len(src) < space {
		space = len(src)
	}
	n = space

	size := r.size()
	wrIdx := wr & r.mask
	first := int(size - wrIdx)
	if first > n {
		first = n
	}
	copy(r.buf[wrIdx:wrIdx+uint32(first)], src[:first])
	if second := n - first; second > 0 {
		copy(r.buf[:second], src[first:n])
	}
	r.wr.Store(wr + uint32(n)) // release

	if beforeAvail == 0 {
		select {
		case r.readable <- struct{}{}:
		default:
		}
	}
	return n
}

// ReadInto copies as many buffered bytes into dst as fit and returns the
// count.
func (r *Ring) ReadInto(dst []byte) (n int) {
	if len(dst) == 0 {
		return 0
	}
	rd := r.rd.Load()
	wr := r.wr.Load() // acquire
	avail := int(wr - rd)
	if avail <= 0 {
		return 0
	}
	if len(dst) < avail {
		avail = len(dst)
	}
	n = avail

	size := r.size()
	rdIdx := rd & r.mask
	first := int(size - rdIdx)
	if first > n {
		first = n
	}
	copy(dst[:first], r.buf[rdIdx:rdIdx+uint32(first)])
	if second := n - first; second > 0 {
		copy(dst[first:n], r.buf[:second])
	}
	r.rd.Store(rd + uint32(n)) // release

	beforeSpace := int(size - (wr - rd))
	if beforeSpace == 0 {
		select {
		case r.writable <- struct{}{}:
		default:
		}
	}
	return n
}

// ReadByte pops a single byte. ok is false if the ring is empty.
func (r *Ring) ReadByte() (b byte, ok bool) {
	var buf [1]byte
	if r.ReadInto(buf[:]) == 0 {
		return 0, false
	}
	return buf[0], true
}

// DropOldest discards up to n of the oldest buffered bytes by advancing the
// read cursor directly, without copying them out. It backs spec §4.1's
// receive-overflow rule ("drop oldest byte, flag an overflow error kind;
// never panic"). Returns the number actually dropped.
func (r *Ring) DropOldest(n int) int {
	if n <= 0 {
		return 0
	}
	rd := r.rd.Load()
	wr := r.wr.Load()
	avail := int(wr - rd)
	if n > avail {
		n = avail
	}
	if n == 0 {
		return 0
	}
	r.rd.Store(rd + uint32(n))
	r.overflowed.Store(true)
	r.dropped.Add(uint64(n))
	return n
}

// Reset empties the ring without reporting overflow. Used on ack_init and
// on port-mux switch (spec §3 invariant 5, §5 "Cancellation").
func (r *Ring) Reset() {
	wr := r.wr.Load()
	r.rd.Store(wr)
}

// Overflowed reports, then clears, whether DropOldest has fired since the
// last call.
func (r *Ring) Overflowed() bool { return r.overflowed.Swap(false) }

// Dropped returns the cumulative count of bytes discarded by DropOldest.
func (r *Ring) Dropped() uint64 { return r.dropped.Load() }

func (r *Ring) Readable() <-chan struct{} { return r.readable }
func (r *Ring) Writable() <-chan struct{} { return r.writable }

// Watermarks exposes the raw cursors, used by the property tests of spec
// §8 (invariant 2: write_index - read_index <= capacity, modulo capacity).
func (r *Ring) Watermarks() (rd, wr uint32) {
	return r.rd.Load(), r.wr.Load()
}
