// Package l1 is the serial transport layer: byte queues, discrete control
// lines, and port muxing between the modem's data and programming UARTs
// (spec §4.1). Grounded on i4energy-sms-gateway's modem.Transport/Dialer
// split for the byte stream, and on jangala's services/hal GPIO adaptor
// for discrete line control.
package l1

import "io"

// Transport is an already-open, bidirectional byte stream to the modem's
// data UART or, while muxed, its programming UART.
type Transport interface {
	io.ReadWriteCloser
}

// Dialer opens a Transport. Used once at construction; the Dialer itself
// is discarded once a Transport is obtained.
type Dialer interface {
	Dial() (Transport, error)
}

// Line names one of the seven discrete signals spec §4.1 enumerates:
// ring indicator, carrier detect, data set ready, clear/request to send,
// data terminal ready, and CIS power enable.
type Line uint8

const (
	LineRI Line = iota
	LineDCD
	LineDSR
	LineCTS
	LineRTS
	LineDTR
	LineCISPWR
)

func (l Line) String() string {
	switch l {
	case LineRI:
		return "RI"
	case LineDCD:
		return "DCD"
	case LineDSR:
		return "DSR"
	case LineCTS:
		return "CTS"
	case LineRTS:
		return "RTS"
	case LineDTR:
		return "DTR"
	case LineCISPWR:
		return "CISPWR"
	default:
		return "unknown"
	}
}

// Pin is a single discrete GPIO line: an input line is read-only, an
// output line is write-only, but both expose Get/Set so a fake can record
// and replay either direction uniformly.
type Pin interface {
	Get() bool
	Set(level bool)
}

// ControlLines is the fixed set of discrete lines a Port exposes,
// independent of whether the underlying pins are real silicon or a fake.
type ControlLines struct {
	pins map[Line]Pin
}

// NewControlLines builds a ControlLines set from the given pins. Lines with
// no entry in pins read/write as a no-op false, matching hardware that
// lacks that particular signal.
func NewControlLines(pins map[Line]Pin) ControlLines {
	return ControlLines{pins: pins}
}

func (c ControlLines) Get(l Line) bool {
	if p, ok := c.pins[l]; ok {
		return p.Get()
	}
	return false
}

func (c ControlLines) Set(l Line, level bool) {
	if p, ok := c.pins[l]; ok {
		p.Set(level)
	}
}
