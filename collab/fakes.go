package collab

import (
	"errors"
	"sort"
	"time"
)

// ErrNotFound is returned by FakeFilesystem for a missing path.
var ErrNotFound = errors.New("collab: not found")

// FakeFilesystem is an in-memory Filesystem for tests, grounded on the
// teacher's preference for small hand-rolled fakes over a mocking
// framework (e.g. i4energy's TestTransport, the teacher's adaptor_*_test
// fakes).
type FakeFilesystem struct {
	files map[string][]byte
}

func NewFakeFilesystem() *FakeFilesystem {
	return &FakeFilesystem{files: map[string][]byte{}}
}

func (f *FakeFilesystem) dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return ""
}

func (f *FakeFilesystem) List(dir string) ([]string, error) {
	var names []string
	prefix := dir + "/"
	for path := range f.files {
		if f.dirOf(path) == dir {
			names = append(names, path[len(prefix):])
		}
	}
	sort.Strings(names)
	return names, nil
}

func (f *FakeFilesystem) Read(path string) ([]byte, error) {
	b, ok := f.files[path]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (f *FakeFilesystem) Write(path string, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	f.files[path] = cp
	return nil
}

func (f *FakeFilesystem) Delete(path string) error {
	if _, ok := f.files[path]; !ok {
		return ErrNotFound
	}
	delete(f.files, path)
	return nil
}

func (f *FakeFilesystem) Move(src, dst string) error {
	b, ok := f.files[src]
	if !ok {
		return ErrNotFound
	}
	f.files[dst] = b
	delete(f.files, src)
	return nil
}

func (f *FakeFilesystem) Exists(path string) bool {
	_, ok := f.files[path]
	return ok
}

// FakeClock is a settable Clock for tests.
type FakeClock struct{ t time.Time }

func NewFakeClock(t time.Time) *FakeClock    { return &FakeClock{t: t} }
func (c *FakeClock) Now() time.Time          { return c.t }
func (c *FakeClock) Set(t time.Time)         { c.t = t }
func (c *FakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// FakePowerManager records power-cycle requests.
type FakePowerManager struct {
	ModemCycles int
	CISCycles   int
	FailModem   bool
	FailCIS     bool
}

func (p *FakePowerManager) PowerCycleModem() error {
	p.ModemCycles++
	if p.FailModem {
		return errors.New("fake: modem power cycle failed")
	}
	return nil
}

func (p *FakePowerManager) PowerCycleCIS() error {
	p.CISCycles++
	if p.FailCIS {
		return errors.New("fake: cis power cycle failed")
	}
	return nil
}

// FakeRulesEngine records sentinel-dispatch calls.
type FakeRulesEngine struct {
	Purged        int
	Deleted       int
	ConfigReqs    [][]byte
}

func (r *FakeRulesEngine) PurgeRulesImage() error  { r.Purged++; return nil }
func (r *FakeRulesEngine) DeleteRulesFile() error  { r.Deleted++; return nil }
func (r *FakeRulesEngine) NotifyConfigDownloadRequest(payload []byte) error {
	r.ConfigReqs = append(r.ConfigReqs, payload)
	return nil
}

// FakeSystemLog records events for assertions.
type FakeSystemLog struct {
	HardwareErrors []string
	Events         []string
}

func (s *FakeSystemLog) LogHardwareError(reason string) {
	s.HardwareErrors = append(s.HardwareErrors, reason)
}
func (s *FakeSystemLog) LogEvent(phrase string) { s.Events = append(s.Events, phrase) }

// FakeModemLog records lines without any text formatting, for assertions
// on the l2/l3 call sites rather than on l4's own formatting (l4 has its
// own tests for that).
type FakeModemLogEntry struct {
	Signal                        int
	Filename, Event, SubError     string
	MOMSN, MTMSN                  string
}

type FakeModemLog struct {
	Entries []FakeModemLogEntry
}

func (m *FakeModemLog) LogEvent(signal int, filename, event, subError, momsn, mtmsn string) {
	m.Entries = append(m.Entries, FakeModemLogEntry{signal, filename, event, subError, momsn, mtmsn})
}

func (m *FakeModemLog) Snapshot(requestedTime time.Time) ([]byte, error) { return nil, nil }

// FakeEEPROM is an in-memory EEPROM.
type FakeEEPROM struct {
	IMEI         string
	Invalidation []byte
}

func (e *FakeEEPROM) ReadIMEI() (string, error)  { return e.IMEI, nil }
func (e *FakeEEPROM) WriteIMEI(imei string) error { e.IMEI = imei; return nil }
func (e *FakeEEPROM) WriteCISInvalidation(marker []byte) error {
	e.Invalidation = append([]byte(nil), marker...)
	return nil
}
