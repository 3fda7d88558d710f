//go:build !pico

package l1

import (
	"go.bug.st/serial"

	"github.com/windward-avionics/sbdlink/types"
)

// HostDialer opens the modem's data UART as a plain OS serial device,
// grounded on go.bug.st/serial usage in the wider example pack (e.g. the
// Station-Manager serial client).
type HostDialer struct {
	PortName string
	Config   types.SerialConfig
}

func (d HostDialer) Dial() (Transport, error) {
	mode := &serial.Mode{
		BaudRate: int(d.Config.BitRate),
		DataBits: int(d.Config.DataBits),
		Parity:   toSerialParity(d.Config.Parity),
		StopBits: toSerialStopBits(d.Config.StopBits),
	}
	p, err := serial.Open(d.PortName, mode)
	if err != nil {
		return nil, err
	}
	if d.Config.FlowControl == types.FlowRTSCTS {
		_ = p.SetRTS(true)
	}
	return p, nil
}

func toSerialParity(p types.Parity) serial.Parity {
	switch p {
	case types.ParityEven:
		return serial.EvenParity
	case types.ParityOdd:
		return serial.OddParity
	default:
		return serial.NoParity
	}
}

func toSerialStopBits(s types.StopBits) serial.StopBits {
	switch s {
	case types.StopBitsOnePointFive:
		return serial.OnePointFiveStopBits
	case types.StopBitsTwo:
		return serial.TwoStopBits
	default:
		return serial.OneStopBit
	}
}

// hostPin reads a modem status line (DCD/DSR/RI/CTS) through go.bug.st/serial's
// ModemStatusBits poll, and drives an output line (DTR) through the port's
// setters. Direction is fixed per Line at construction.
type hostPin struct {
	port  serial.Port
	line  Line
	write bool
}

func (p hostPin) Get() bool {
	bits, err := p.port.GetModemStatusBits()
	if err != nil {
		return false
	}
	switch p.line {
	case LineDCD:
		return bits.DCD
	case LineDSR:
		return bits.DSR
	case LineRI:
		return bits.RI
	case LineCTS:
		return bits.CTS
	default:
		return false
	}
}

func (p hostPin) Set(level bool) {
	if !p.write {
		return
	}
	switch p.line {
	case LineDTR:
		_ = p.port.SetDTR(level)
	case LineRTS:
		_ = p.port.SetRTS(level)
	}
}

// HostControlLines builds a ControlLines backed by the host OS serial
// port's modem-status-bits and DTR/RTS setters. CISPWR has no standard
// RS-232 equivalent and is left unwired (Get always false, Set a no-op);
// host bench rigs drive CIS power through a separate relay service.
func HostControlLines(port serial.Port) ControlLines {
	return NewControlLines(map[Line]Pin{
		LineDCD: hostPin{port: port, line: LineDCD},
		LineDSR: hostPin{port: port, line: LineDSR},
		LineRI:  hostPin{port: port, line: LineRI},
		LineCTS: hostPin{port: port, line: LineCTS},
		LineRTS: hostPin{port: port, line: LineRTS, write: true},
		LineDTR: hostPin{port: port, line: LineDTR, write: true},
	})
}
