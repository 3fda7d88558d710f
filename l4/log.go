package l4

import (
	"time"

	"github.com/windward-avionics/sbdlink/collab"
	"github.com/windward-avionics/sbdlink/x/qring"
	"github.com/windward-avionics/sbdlink/x/strconvx"
)

// LogPath is the single rolling text-log file spec §4.4 describes.
const LogPath = "eventlog.txt"

// Log implements collab.ModemLog: a rolling text log plus a deduplicated
// in-memory ring used to build the binary snapshot. Grounded on the
// teacher's services/config pattern of a small struct wrapping a
// collab.Filesystem-shaped dependency rather than touching os directly,
// so the same code runs against the fake, the host filesystem, and the
// embedded flash-backed filesystem alike.
type Log struct {
	fs    collab.Filesystem
	clock collab.Clock
	path  string
	dedup *qring.Ring[dedupKind, dedupEntry]
}

// New constructs a Log writing to LogPath and keyed to clock for
// timestamps.
func New(fs collab.Filesystem, clock collab.Clock) *Log {
	return &Log{
		fs:    fs,
		clock: clock,
		path:  LogPath,
		dedup: qring.New[dedupKind, dedupEntry](dedupCapacity),
	}
}

// LogEvent implements collab.ModemLog (spec §4.4). Every call: bumps the
// dedup ring (independent of whether a new slot was evicted), formats one
// line, then opens, appends, and closes the text log — every call, so a
// power loss during the next call leaves at most this one event missing.
func (l *Log) LogEvent(signalStrength int, filename, eventPhrase, subErrorPhrase string, momsn, mtmsn string) {
	now := l.clock.Now()
	bumpDedup(l.dedup, eventPhrase, now, signalStrength, filename, subErrorPhrase, momsn, mtmsn)
	l.appendLine(formatLine(now, signalStrength, filename, eventPhrase, subErrorPhrase, momsn, mtmsn))
}

// formatLine renders spec §4.4's exact line grammar: `timestamp " (" signal
// "): " filename " " event_phrase [sub-error_phrase] [" MOMSN: " s | " MTMSN:
// " s] CRLF`.
func formatLine(now time.Time, signal int, filename, eventPhrase, subErrorPhrase, momsn, mtmsn string) string {
	line := now.UTC().Format(time.RFC3339) + " (" + strconvx.Itoa(signal) + "): " + filename + " " + eventPhrase
	if subErrorPhrase != "" {
		line += " " + subErrorPhrase
	}
	switch {
	case momsn != "":
		line += " MOMSN: " + momsn
	case mtmsn != "":
		line += " MTMSN: " + mtmsn
	}
	return line + "\r\n"
}

// appendLine implements the "create|append|write, then close, every call"
// discipline over collab.Filesystem, which exposes whole-file Read/Write
// rather than a POSIX append mode: the existing bytes (if any) are read
// back and Write is handed the whole file, old bytes plus the new line, so
// a Filesystem's Write replaces the file's content, and this code never
// needs to distinguish "file exists" from "file is empty".
func (l *Log) appendLine(line string) {
	existing, err := l.fs.Read(l.path)
	if err != nil {
		existing = nil
	}
	l.fs.Write(l.path, append(existing, line...))
}
