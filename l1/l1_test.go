package l1

import (
	"testing"
	"time"

	"github.com/windward-avionics/sbdlink/errcode"
	"github.com/windward-avionics/sbdlink/types"
)

func TestPortOpenRejectsBadConfig(t *testing.T) {
	transport := NewFakeTransport()
	lines, _ := NewFakeControlLines()
	p := NewPort(transport, lines)

	cfg := types.DefaultSerialConfig()
	cfg.FlowControl = types.FlowXONXOFF
	if code := p.Open(cfg); code == errcode.None {
		t.Fatalf("expected Open to reject XON-XOFF flow control")
	}
}

func TestPortSendAndReceive(t *testing.T) {
	transport := NewFakeTransport()
	lines, _ := NewFakeControlLines()
	p := NewPort(transport, lines)

	if code := p.Open(types.DefaultSerialConfig()); code != errcode.None {
		t.Fatalf("Open failed: %v", code)
	}
	defer p.Close()

	p.Send([]byte("AT\r"))
	deadline := time.After(time.Second)
	for len(transport.Written()) < 3 {
		select {
		case <-deadline:
			t.Fatalf("transport never saw the written bytes, got %q", transport.Written())
		case <-time.After(time.Millisecond):
		}
	}
	if got := string(transport.Written()); got != "AT\r" {
		t.Fatalf("transport.Written() = %q, want %q", got, "AT\r")
	}

	transport.Feed([]byte("OK\r\n"))
	var got []byte
	buf := make([]byte, 16)
	deadline = time.After(time.Second)
	for len(got) < 4 {
		select {
		case <-deadline:
			t.Fatalf("never received fed bytes, got %q", got)
		case <-time.After(time.Millisecond):
			if n := p.RecvInto(buf); n > 0 {
				got = append(got, buf[:n]...)
			}
		}
	}
	if string(got) != "OK\r\n" {
		t.Fatalf("RecvInto = %q, want %q", got, "OK\r\n")
	}
}

func TestPortSetMuxResetsRings(t *testing.T) {
	transport := NewFakeTransport()
	lines, _ := NewFakeControlLines()
	p := NewPort(transport, lines)
	_ = p.Open(types.DefaultSerialConfig())
	defer p.Close()

	p.Send([]byte("buffered"))
	time.Sleep(10 * time.Millisecond)

	p.SetMux(types.PortProgramming)
	if p.Mux() != types.PortProgramming {
		t.Fatalf("Mux() = %v, want PortProgramming", p.Mux())
	}
}

func TestControlLinesDriveAndRead(t *testing.T) {
	lines, pins := NewFakeControlLines()
	pins[LineRI].Drive(func() bool { return true })
	if !lines.Get(LineRI) {
		t.Fatalf("expected RI to read true once driven")
	}

	lines.Set(LineDTR, true)
	if !pins[LineDTR].Get() {
		t.Fatalf("expected DTR pin to record Set(true)")
	}
}
