package types

import "github.com/windward-avionics/sbdlink/errcode"

// ------------------------
// L1 serial configuration (spec §4.1)
// ------------------------

// Parity is a small enum to avoid string parsing on the hot path.
type Parity uint8

const (
	ParityNone Parity = iota
	ParityEven
	ParityOdd
)

func (p Parity) String() string {
	switch p {
	case ParityEven:
		return "even"
	case ParityOdd:
		return "odd"
	default:
		return "none"
	}
}

func (p Parity) MarshalJSON() ([]byte, error) { return []byte(`"` + p.String() + `"`), nil }

// StopBits counts stop bits; 1.5 is represented as OnePointFive.
type StopBits uint8

const (
	StopBitsOne StopBits = iota
	StopBitsOnePointFive
	StopBitsTwo
)

// FlowControl selects hardware/software flow control. XONXOFF is accepted
// by the type system but always rejected at Open (spec §4.1: "XON-XOFF
// (unsupported — returns error)").
type FlowControl uint8

const (
	FlowNone FlowControl = iota
	FlowXONXOFF
	FlowRTSCTS
)

// SerialConfig carries every option spec §4.1 names. DataBits must be 8 or
// 9; invalid combinations fail Open with errcode.BadParameter.
type SerialConfig struct {
	BitRate     uint32 // default 9600 (spec §6)
	DataBits    uint8  // 8 or 9
	Parity      Parity
	StopBits    StopBits
	FlowControl FlowControl
}

// DefaultSerialConfig matches the wire protocol spec §6 names: 8-N-1 at
// 9600, RTS/CTS flow control.
func DefaultSerialConfig() SerialConfig {
	return SerialConfig{
		BitRate:     9600,
		DataBits:    8,
		Parity:      ParityNone,
		StopBits:    StopBitsOne,
		FlowControl: FlowRTSCTS,
	}
}

// Validate rejects combinations spec §4.1 calls out as invalid.
func (c SerialConfig) Validate() errcode.Code {
	if c.DataBits != 8 && c.DataBits != 9 {
		return errcode.BadParameter
	}
	if c.FlowControl == FlowXONXOFF {
		return errcode.BadParameter
	}
	if c.BitRate == 0 {
		return errcode.BadParameter
	}
	return errcode.None
}
