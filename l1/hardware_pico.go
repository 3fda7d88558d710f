//go:build pico

package l1

import (
	"machine"

	"tinygo.org/x/drivers"

	"github.com/jangala-dev/tinygo-uartx"
)

// picoTransport wraps an interrupt-driven uartx.UART as a Transport. Read
// and Write block exactly as uartx documents: Read waits for at least one
// buffered byte, Write waits for the software TX buffer (and/or hardware
// FIFO) to accept everything offered.
type picoTransport struct {
	uart *uartx.UART
}

func (t *picoTransport) Read(p []byte) (int, error)  { return t.uart.Read(p) }
func (t *picoTransport) Write(p []byte) (int, error) { return t.uart.Write(p) }
func (t *picoTransport) Close() error                { return t.uart.Flush() }

// PicoDialer opens the modem's data UART on a Raspberry Pi Pico using the
// interrupt-driven tinygo-uartx driver in place of TinyGo's default
// blocking machine.UART, matching spec §9's ISR-safety requirement for the
// byte queues underneath.
type PicoDialer struct {
	UART    *machine.UART
	TX, RX  machine.Pin
	BitRate uint32
}

func (d PicoDialer) Dial() (Transport, error) {
	d.UART.Configure(machine.UARTConfig{
		BaudRate: d.BitRate,
		TX:       d.TX,
		RX:       d.RX,
	})
	return &picoTransport{uart: uartx.Wrap(d.UART)}, nil
}

// rp2Pin is a direct GPIO line (RI, DCD, DSR, CTS, RTS, DTR), grounded on
// the teacher's rp2Pin adaptor.
type rp2Pin struct {
	p     machine.Pin
	write bool
}

func (p rp2Pin) Get() bool { return p.p.Get() }

func (p rp2Pin) Set(level bool) {
	if p.write {
		p.p.Set(level)
	}
}

// expanderPin drives CISPWR through an I2C GPIO expander rather than a
// direct GPIO line: CIS power switching on the target board routes through
// a latching relay gated by an I2C expander, the same drivers.I2C
// abstraction the teacher's ltc4015 driver uses.
type expanderPin struct {
	bus  drivers.I2C
	addr uint8
	bit  uint8
}

func (p expanderPin) Get() bool {
	var reg [1]byte
	if err := p.bus.Tx(uint16(p.addr), nil, reg[:]); err != nil {
		return false
	}
	return reg[0]&(1<<p.bit) != 0
}

func (p expanderPin) Set(level bool) {
	var reg [1]byte
	if err := p.bus.Tx(uint16(p.addr), nil, reg[:]); err != nil {
		return
	}
	if level {
		reg[0] |= 1 << p.bit
	} else {
		reg[0] &^= 1 << p.bit
	}
	_ = p.bus.Tx(uint16(p.addr), reg[:], nil)
}

// PicoControlLines wires RI/DCD/DSR/CTS/RTS/DTR to direct rp2040 GPIO and
// CISPWR to an I2C expander bit.
func PicoControlLines(ri, dcd, dsr, cts, rts, dtr machine.Pin, expander drivers.I2C, expanderAddr, cisBit uint8) ControlLines {
	for _, in := range []machine.Pin{ri, dcd, dsr, cts} {
		in.Configure(machine.PinConfig{Mode: machine.PinInput})
	}
	for _, out := range []machine.Pin{rts, dtr} {
		out.Configure(machine.PinConfig{Mode: machine.PinOutput})
	}
	return NewControlLines(map[Line]Pin{
		LineRI:     rp2Pin{p: ri},
		LineDCD:    rp2Pin{p: dcd},
		LineDSR:    rp2Pin{p: dsr},
		LineCTS:    rp2Pin{p: cts},
		LineRTS:    rp2Pin{p: rts, write: true},
		LineDTR:    rp2Pin{p: dtr, write: true},
		LineCISPWR: expanderPin{bus: expander, addr: expanderAddr, bit: cisBit},
	})
}
