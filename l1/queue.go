package l1

import (
	"github.com/windward-avionics/sbdlink/errcode"
	"github.com/windward-avionics/sbdlink/types"
	"github.com/windward-avionics/sbdlink/x/shmring"
)

// ringCapacity is the byte-queue size spec §3 recommends ("a 4 KiB buffer
// is recommended" — large enough for the biggest single response, the
// 340-byte SBD payload plus AT framing).
const ringCapacity = 4096

// Port is the L1 serial endpoint: one TX ring, one RX ring, a set of
// discrete control lines, and the port-mux state deciding whether the
// shared UART currently reaches the modem's data or programming
// interface (spec §3 invariant 2, §4.1).
type Port struct {
	transport Transport
	lines     ControlLines

	tx *shmring.Ring
	rx *shmring.Ring

	cfg types.SerialConfig
	mux types.PortMux

	open bool
}

// NewPort wires transport and lines into a closed Port. Call Open before
// use.
func NewPort(transport Transport, lines ControlLines) *Port {
	return &Port{
		transport: transport,
		lines:     lines,
		tx:        shmring.New(ringCapacity),
		rx:        shmring.New(ringCapacity),
		mux:       types.PortData,
	}
}

// Open validates cfg and begins the pump goroutine moving bytes between
// the rings and the transport. It is a no-op, returning errcode.None, if
// already open with the same config.
func (p *Port) Open(cfg types.SerialConfig) errcode.Code {
	if code := cfg.Validate(); code != errcode.None {
		return code
	}
	if p.open && p.cfg == cfg {
		return errcode.None
	}
	p.cfg = cfg
	p.tx.Reset()
	p.rx.Reset()
	p.open = true
	go p.pumpRX()
	go p.pumpTX()
	return errcode.None
}

// Close stops the pump and releases the transport.
func (p *Port) Close() error {
	p.open = false
	return p.transport.Close()
}

// Send enqueues bytes for transmission, returning the number accepted
// (never blocks; mirrors shmring.Ring.WriteFrom).
func (p *Port) Send(b []byte) int { return p.tx.WriteFrom(b) }

// RecvByte pops one received byte if available.
func (p *Port) RecvByte() (byte, bool) { return p.rx.ReadByte() }

// RecvInto drains as many received bytes into dst as are available.
func (p *Port) RecvInto(dst []byte) int { return p.rx.ReadInto(dst) }

// FlushRX discards all buffered received bytes without reporting overflow
// (spec §5 "Cancellation": the byte queue is reset on ack_init and on
// port-mux switch).
func (p *Port) FlushRX() { p.rx.Reset() }

// FlushTX discards all buffered outgoing bytes.
func (p *Port) FlushTX() { p.tx.Reset() }

// Overflowed reports, then clears, whether the RX ring has dropped bytes
// due to overflow since the last call.
func (p *Port) Overflowed() bool { return p.rx.Overflowed() }

// SetMux switches the shared UART between the modem's data and
// programming interface, resetting both rings (spec §3 invariant 2: the
// two interfaces never carry traffic simultaneously).
func (p *Port) SetMux(m types.PortMux) {
	if p.mux == m {
		return
	}
	p.mux = m
	p.rx.Reset()
	p.tx.Reset()
}

// Mux reports the current port-mux setting.
func (p *Port) Mux() types.PortMux { return p.mux }

// Line reads a discrete control line's current level.
func (p *Port) Line(l Line) bool { return p.lines.Get(l) }

// SetLine drives a discrete output control line.
func (p *Port) SetLine(l Line, level bool) { p.lines.Set(l, level) }

// pumpRX copies transport reads into the RX ring, dropping the oldest
// buffered bytes on overflow rather than blocking (spec §4.1 "receive
// buffer overflow ... drop oldest byte, flag an overflow error kind;
// never panic").
func (p *Port) pumpRX() {
	buf := make([]byte, 256)
	for p.open {
		n, err := p.transport.Read(buf)
		if err != nil {
			return
		}
		if n == 0 {
			continue
		}
		chunk := buf[:n]
		if need := len(chunk) - p.rx.Space(); need > 0 {
			p.rx.DropOldest(need)
		}
		p.rx.WriteFrom(chunk)
	}
}

// pumpTX drains the TX ring to the transport as space allows.
func (p *Port) pumpTX() {
	buf := make([]byte, 256)
	for p.open {
		n := p.tx.ReadInto(buf)
		if n == 0 {
			<-p.tx.Readable()
			continue
		}
		if _, err := p.transport.Write(buf[:n]); err != nil {
			return
		}
	}
}
