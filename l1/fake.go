package l1

import (
	"io"
	"sync"
)

// FakeTransport simulates a blocking transport using channels, grounded on
// i4energy-sms-gateway's modem.TestTransport: Read blocks until data is
// queued, matching how a real serial port behaves for the pump goroutines
// in Port.
type FakeTransport struct {
	mu       sync.Mutex
	readChan chan []byte
	written  []byte
	closed   bool
}

// NewFakeTransport creates a transport with no data queued.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{readChan: make(chan []byte, 64)}
}

func (t *FakeTransport) Read(p []byte) (int, error) {
	data, ok := <-t.readChan
	if !ok {
		return 0, io.EOF
	}
	return copy(p, data), nil
}

func (t *FakeTransport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.written = append(t.written, p...)
	return len(p), nil
}

func (t *FakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.readChan)
	return nil
}

// Feed queues bytes for the next Read, simulating modem output.
func (t *FakeTransport) Feed(b []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		cp := make([]byte, len(b))
		copy(cp, b)
		t.readChan <- cp
	}
}

// Written returns everything written so far.
func (t *FakeTransport) Written() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]byte, len(t.written))
	copy(out, t.written)
	return out
}

// FakePin is an in-memory Pin for tests: Set records the level, Get
// returns it unless an override function is installed (simulating an
// input line driven by a test scenario).
type FakePin struct {
	mu       sync.Mutex
	level    bool
	onGet    func() bool
}

func (p *FakePin) Set(level bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
}

func (p *FakePin) Get() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.onGet != nil {
		return p.onGet()
	}
	return p.level
}

// Drive installs a callback controlling Get's return value, used to
// simulate an externally toggled input line such as RI or DCD.
func (p *FakePin) Drive(fn func() bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onGet = fn
}

// NewFakeControlLines builds a ControlLines with a FakePin for every line,
// returning the map for tests to drive directly.
func NewFakeControlLines() (ControlLines, map[Line]*FakePin) {
	pins := map[Line]*FakePin{
		LineRI:     {},
		LineDCD:    {},
		LineDSR:    {},
		LineCTS:    {},
		LineRTS:    {},
		LineDTR:    {},
		LineCISPWR: {},
	}
	generic := make(map[Line]Pin, len(pins))
	for l, p := range pins {
		generic[l] = p
	}
	return NewControlLines(generic), pins
}
