// Package l4 is the event log (spec §4.4): a rolling append-only text log
// plus an in-memory deduplicated summary of the last N terminal-status
// events, snapshotted to a binary message on demand. It implements
// collab.ModemLog so l2/l3 log through the same interface regardless of
// which concrete filesystem backs it.
package l4

import (
	"time"

	"github.com/windward-avionics/sbdlink/x/qring"
)

// dedupCapacity is spec §3's "Last N (=15) recorded terminal-status events".
const dedupCapacity = 15

// dedupEntry is the (timestamp, repeat-count) pair spec §3 pairs with the
// event-kind key; the fields needed to reconstruct the text-log line are
// kept alongside so the binary snapshot can describe the same event without
// a second lookup.
type dedupEntry struct {
	timestamp      time.Time
	repeatCount    int
	signalStrength int
	filename       string
	subError       string
	momsn          string
	mtmsn          string
}

// dedupKind is the event-kind key the ring dedups on: the event phrase
// alone, matching spec §3's "if the event kind is already present" (the
// filename and sub-error vary per occurrence and do not split the kind).
type dedupKind = string

func bumpDedup(ring *qring.Ring[dedupKind, dedupEntry], kind dedupKind, now time.Time, signal int, filename, subErr, momsn, mtmsn string) {
	fresh := dedupEntry{
		timestamp:      now,
		repeatCount:    1,
		signalStrength: signal,
		filename:       filename,
		subError:       subErr,
		momsn:          momsn,
		mtmsn:          mtmsn,
	}
	ring.Push(kind, fresh, func(old dedupEntry) dedupEntry {
		old.timestamp = now
		old.repeatCount++
		old.signalStrength = signal
		old.filename = filename
		old.subError = subErr
		old.momsn = momsn
		old.mtmsn = mtmsn
		return old
	})
}
