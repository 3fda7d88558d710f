// Package collab defines the external collaborators spec §1 and §6 list
// as out-of-scope but interface-specified: the filesystem and PCMCIA path
// construction, the clock/GPS time source, the power manager, the
// rules/event engine, the modem log writer, the system log, and the EEPROM
// mirror. l2/l3/l4 depend only on these interfaces, never on a concrete
// filesystem or OS clock, mirroring how the teacher's services/hal package
// depends on its own small Adaptor/GPIOPin interfaces rather than on
// `machine` directly.
package collab

import "time"

// Filesystem is the modem device's file tree: outbox/inbox/sent/error/
// working subdirectories under each device root named in spec §6's MT
// dispatch table.
type Filesystem interface {
	// List returns file names under dir in ascending order (spec §6
	// "ascending filename order").
	List(dir string) ([]string, error)
	Read(path string) ([]byte, error)
	Write(path string, data []byte) error
	Delete(path string) error
	Move(src, dst string) error
	Exists(path string) bool
}

// Clock is the time/GPS source used for log timestamps. Kept distinct
// from internal/timerx.Clock (which only needs Now) so a collaborator
// implementation can additionally expose GPS fix quality without l2/l3
// depending on that detail.
type Clock interface {
	Now() time.Time
}

// PowerManager power-cycles the modem or the CIS board (a CIS reset, when
// the power-cycle fails, is queued by l3 itself, not requested here), per spec §4.3 "modem-communications timeout ... power-cycle the
// CIS; if that fails, enqueue a CIS reset" and §7 "ten minutes of
// back-to-back timeouts request a CIS power-cycle."
type PowerManager interface {
	PowerCycleModem() error
	PowerCycleCIS() error
}

// RulesEngine produces the binary report files the session layer sends;
// the core only reacts to sentinel MT message types that must be
// forwarded to it (spec §6 "forwarded to the external collaborators").
type RulesEngine interface {
	PurgeRulesImage() error
	DeleteRulesFile() error
	NotifyConfigDownloadRequest(payload []byte) error
}

// SystemLog is the system-wide log distinct from the modem-specific L4
// log; sbd-blocked and persistent comm timeouts escalate here (spec §7
// "Fatal conditions").
type SystemLog interface {
	LogHardwareError(reason string)
	LogEvent(phrase string)
}

// ModemLog is L4's append-only text/binary log writer, injected into l2
// and l3 so post-command cleanup can log outcomes without depending on a
// concrete log implementation (spec §4.4).
type ModemLog interface {
	LogEvent(signalStrength int, filename, eventPhrase, subErrorPhrase string, momsn, mtmsn string)
	Snapshot(requestedTime time.Time) ([]byte, error)
}

// EEPROM is the persistent mirror spec §6 names: the IMEI mirror and the
// CIS configuration invalidation marker.
type EEPROM interface {
	ReadIMEI() (string, error)
	WriteIMEI(imei string) error
	WriteCISInvalidation(marker []byte) error
}
