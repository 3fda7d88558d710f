// Package errcode defines the stable error-kind identifiers observable after
// every terminal AT/CIS conversation (spec §7). A Code is a comparable,
// allocation-free string newtype so the driver never needs a heap-allocated
// error value on the hot path.
package errcode

// Code is a stable, bus-facing error identifier.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes, grouped per spec §7's table.
const (
	None Code = "" // no error recorded yet / cleared

	// Transport (L1).
	HWError         Code = "hw-error"
	RxBufferOverflow Code = "rx-buffer-overflow"
	RspTimedOut     Code = "rsp-timed-out"
	BadParameter    Code = "bad-parameter"

	// Generic AT failure.
	GenericError          Code = "error" // the literal "4" response
	ClearModemBufferError Code = "clear-modem-buffer-error"

	// TX binary (WRITE-BIN / WRITE-BUFFER).
	TxBinTimeout     Code = "tx-bin-timeout"
	TxBinBadChecksum Code = "tx-bin-bad-checksum"
	TxBinBadSize     Code = "tx-bin-bad-size"

	// Session-initiate (SBDIX/SBDIXA), mo=10..36.
	GSSTimeout        Code = "gss-timeout"
	GSSQueueFull      Code = "gss-queue-full"
	MOSegmentError    Code = "mo-segment-error"
	IncompleteSession Code = "incomplete-session"
	SegmentSizeError  Code = "segment-size-error"
	AccessDenied      Code = "access-denied"
	SBDBlocked        Code = "sbd-blocked" // also escalates a system-level hw error
	ISUTimeout        Code = "isu-timeout"
	RFDrop            Code = "rf-drop"
	ProtocolError     Code = "protocol-error"
	NoNetworkService  Code = "no-network-service"
	ISUBusy           Code = "isu-busy"
	SBDGenericFail    Code = "sbd-generic-fail"

	// Registration (CREG).
	NotRegistered    Code = "not-registered"
	RegisteredHome   Code = "registered-home"
	Searching        Code = "searching"
	Denied           Code = "denied"
	UnknownReg       Code = "unknown"
	RegisteredRoaming Code = "registered-roaming"

	// Signal (CSQF).
	CSQError Code = "csq-error"

	// Call status (CLCC).
	CallActive   Code = "active"
	CallHeld     Code = "held"
	CallDialing  Code = "dialing"
	CallIncoming Code = "incoming"
	CallWaiting  Code = "waiting"
	CallIdle     Code = "idle"

	// MT receive (SBDRB).
	RxNoMsgWaiting   Code = "rx-no-msg-waiting"
	RxBadChecksum    Code = "rx-bad-checksum"
	RxBadFileLength  Code = "rx-bad-file-length"

	// File I/O (external filesystem collaborator).
	FileOpenErr    Code = "file-open-err"
	FileReadErr    Code = "file-read-err"
	FileWriteErr   Code = "file-write-err"
	TruncatedFile  Code = "truncated-file"

	// Modem power.
	ModemPoweredDown Code = "modem-powered-down"

	// CIS.
	CISRingerOn   Code = "cis-ringer-on"
	CISRingerOff  Code = "cis-ringer-off"
	CISRelay1On   Code = "cis-relay1-on"
	CISRelay1Off  Code = "cis-relay1-off"
	CISRelay2On   Code = "cis-relay2-on"
	CISRelay2Off  Code = "cis-relay2-off"

	// CIS reload-flash protocol (spec §4.2 item 11): 'H' is the CIS
	// image upload's hardware-error byte, unlike 'N'/'n'/'F' which are
	// recoverable by restarting the upload from the top.
	CISFlashHWError Code = "cis-flash-hw-error"
)

// E wraps a Code with operation context and an optional cause, for the
// rarer case where the bare Code doesn't carry enough information to act on.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	if e.Msg != "" {
		return string(e.C) + ": " + e.Msg
	}
	return string(e.C)
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Of extracts a Code from an error, defaulting to GenericError.
func Of(err error) Code {
	if err == nil {
		return None
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return GenericError
}

// SBDIXCode maps a session-initiate `mo` status to an error Code. mo values
// 0..4 are success variants and return None; mo 10..36 map to the specific
// failure kinds enumerated in spec §4.2; anything else falls back to
// SBDGenericFail, matching the source's handling of reserved codes.
func SBDIXCode(mo int) Code {
	switch {
	case mo >= 0 && mo <= 4:
		return None
	case mo == 10:
		return GSSTimeout
	case mo == 11:
		return GSSQueueFull
	case mo == 12:
		return MOSegmentError
	case mo == 13:
		return IncompleteSession
	case mo == 14:
		return SegmentSizeError
	case mo == 15:
		return AccessDenied
	case mo == 16:
		return SBDBlocked
	case mo == 17:
		return ISUTimeout
	case mo == 18:
		return RFDrop
	case mo == 19:
		return ProtocolError
	case mo >= 20 && mo <= 31:
		return NoNetworkService
	case mo == 32:
		return ISUBusy
	case mo >= 33 && mo <= 36:
		return SBDGenericFail
	default:
		return SBDGenericFail
	}
}

// CREGCode maps a CREG status digit to a Code. status 0 is the only failure;
// all others are "success" outcomes that still carry an informative Code.
func CREGCode(status int) (Code, bool) {
	switch status {
	case 0:
		return NotRegistered, false
	case 1:
		return RegisteredHome, true
	case 2:
		return Searching, true
	case 3:
		return Denied, true
	case 4:
		return UnknownReg, true
	case 5:
		return RegisteredRoaming, true
	default:
		return UnknownReg, true
	}
}
