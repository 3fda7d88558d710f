package l3

import (
	"testing"
	"time"

	"github.com/windward-avionics/sbdlink/collab"
	"github.com/windward-avionics/sbdlink/errcode"
	"github.com/windward-avionics/sbdlink/internal/timerx"
	"github.com/windward-avionics/sbdlink/l1"
	"github.com/windward-avionics/sbdlink/l2"
	"github.com/windward-avionics/sbdlink/types"
)

type testRig struct {
	sess      *Session
	driver    *l2.Driver
	transport *l1.FakeTransport
	pins      map[l1.Line]*l1.FakePin
	fs        *collab.FakeFilesystem
	sysLog    *collab.FakeSystemLog
	modemLog  *collab.FakeModemLog
	power     *collab.FakePowerManager
	rules     *collab.FakeRulesEngine
	eeprom    *collab.FakeEEPROM
	clock     *timerx.VirtualClock
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	lines, pins := l1.NewFakeControlLines()
	transport := l1.NewFakeTransport()
	port := l1.NewPort(transport, lines)
	if code := port.Open(types.DefaultSerialConfig()); code != errcode.None {
		t.Fatalf("port open: %v", code)
	}
	clock := timerx.NewVirtualClock(time.Unix(0, 0))
	fs := collab.NewFakeFilesystem()
	modemLog := &collab.FakeModemLog{}
	sysLog := &collab.FakeSystemLog{}
	power := &collab.FakePowerManager{}
	rules := &collab.FakeRulesEngine{}
	eeprom := &collab.FakeEEPROM{}

	driver := l2.New(port, fs, modemLog, eeprom, clock)
	cfg := DefaultConfig()
	sess := New(driver, fs, sysLog, modemLog, power, rules, eeprom, clock, cfg)

	return &testRig{sess, driver, transport, pins, fs, sysLog, modemLog, power, rules, eeprom, clock}
}

// rxSettle is how long a test waits after Feed for Port's RX pump
// goroutine to copy the fed bytes into the RX ring; Tick only sees bytes
// already in the ring.
const rxSettle = 20 * time.Millisecond

func (r *testRig) feedAndTick(resp string, n int) {
	if resp != "" {
		r.transport.Feed([]byte(resp))
		time.Sleep(rxSettle)
	}
	for i := 0; i < n; i++ {
		r.driver.Tick()
		r.sess.Tick()
	}
}

// TestColdBootFirstSend runs spec §8 scenario 1 through the session layer:
// init, auto-enabled sending, one outbox file picked and sent, then deleted
// and the wait window begun (default keep-list is NULL).
func TestColdBootFirstSend(t *testing.T) {
	r := newTestRig(t)
	r.driver.NotifyModemPowerGood()
	if !r.sess.Init() {
		t.Fatal("Init rejected")
	}

	r.feedAndTick("300234010000000\r\n", 4)
	r.feedAndTick("0\r", 4)
	r.feedAndTick("0\r", 4)
	r.feedAndTick("+SBDIX: 0, 0, 0, -1, 0, 0\r\n0\r", 4)
	r.feedAndTick("Call Processor Version: IS020C00 filler text\r", 4)

	if r.sess.State() != types.SessionIdle {
		t.Fatalf("session state = %v, want idle", r.sess.State())
	}
	if !r.sess.sendingEnabled {
		t.Fatal("sending not auto-enabled after init")
	}

	if err := r.fs.Write(outboxDir+"/A0001.rpt", []byte("report payload bytes!")); err != nil {
		t.Fatalf("seed outbox file: %v", err)
	}

	r.driver.Tick()
	r.sess.Tick()
	if r.sess.State() != types.SessionBusy {
		t.Fatalf("session state after file pick = %v, want busy", r.sess.State())
	}

	r.feedAndTick("READY\r\n", 4)
	r.feedAndTick("0\r", 4)
	r.feedAndTick("+SBDIX: 1, 42, 0, -1, 0, 0\r\n0\r", 4)

	if r.fs.Exists(outboxDir + "/A0001.rpt") {
		t.Fatal("sent file should have been deleted under the default keep-list")
	}
	if r.sess.State() != types.SessionIdle {
		t.Fatalf("session state after send = %v, want idle", r.sess.State())
	}
	if !r.sess.waitTimer.Armed() {
		t.Fatal("wait-for-calls window not armed after successful send")
	}
}

// TestFileSendRetryThenError exercises the file-send-failed cleanup branch
// through to moving the file into the error directory once retries are
// exhausted.
func TestFileSendRetryThenError(t *testing.T) {
	r := newTestRig(t)
	r.sess.state = types.SessionIdle
	r.driver.AckIdle()
	r.sess.sendingEnabled = true
	r.sess.cfg.FileSendRetryCount = 2
	r.sess.cfg.FileSendRetryDelay = 3 * time.Second

	r.fs.Write(outboxDir+"/B0001.rpt", []byte("xx"))

	r.driver.Tick()
	r.sess.Tick()
	if r.sess.State() != types.SessionBusy {
		t.Fatal("expected busy after picking the file")
	}

	r.feedAndTick("3\r", 4) // SBDWB bad-size failure, in SubSendAwaitReady
	if r.sess.State() != types.SessionIdle {
		t.Fatalf("state = %v, want idle after first failure (retry pending)", r.sess.State())
	}
	if !r.fs.Exists(outboxDir + "/B0001.rpt") {
		t.Fatal("file should remain in outbox while retrying")
	}

	r.clock.Advance(4 * time.Second)
	r.driver.Tick()
	r.sess.Tick()
	if r.sess.State() != types.SessionBusy {
		t.Fatal("expected retry dispatch once retry delay elapsed")
	}

	r.feedAndTick("3\r", 4)
	if r.fs.Exists(outboxDir + "/B0001.rpt") {
		t.Fatal("file should have moved out of outbox after exhausting retries")
	}
	if !r.fs.Exists(errorDir + "/B0001.rpt") {
		t.Fatal("file should have landed in the error directory")
	}
}

// TestSignalDebounceLogsOnThirdFailure is spec §8 scenario 4: three
// consecutive CSQF failures before the system log records anything.
func TestSignalDebounceLogsOnThirdFailure(t *testing.T) {
	r := newTestRig(t)
	r.sess.state = types.SessionIdle
	r.driver.AckIdle()
	r.sess.cfg.SignalRetryDelay = 25 * time.Second
	r.sess.signalTimer.Start(0)

	for i := 0; i < 2; i++ {
		r.driver.Tick()
		r.sess.Tick()
		r.feedAndTick("+CSQF:0\r\n", 4)
		if r.sess.signalDebounce != i+1 {
			t.Fatalf("round %d: debounce = %d, want %d", i, r.sess.signalDebounce, i+1)
		}
		r.clock.Advance(25 * time.Second)
	}

	r.driver.Tick()
	r.sess.Tick()
	r.feedAndTick("+CSQF:0\r\n", 4)

	if r.sess.signalDebounce != 0 {
		t.Fatalf("debounce should reset after the final failure, got %d", r.sess.signalDebounce)
	}
	if r.driver.Info().SignalStrength != -1 {
		t.Fatalf("signal strength = %d, want -1 after giving up", r.driver.Info().SignalStrength)
	}
	found := false
	for _, e := range r.sysLog.Events {
		if e == "signal strength unavailable" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected the final signal failure to be logged to the system log")
	}
}

// TestMTReceiveThenHangupOnDSR is spec §8 scenario 2: a pending MT message
// is read, and because DSR is high the session issues a hangup next.
func TestMTReceiveThenHangupOnDSR(t *testing.T) {
	r := newTestRig(t)
	r.sess.state = types.SessionIdle
	r.driver.AckIdle()
	r.driver.Info().MTQueued = 1
	r.pins[l1.LineDSR].Drive(func() bool { return true })

	r.driver.Tick()
	r.sess.Tick()
	if r.sess.State() != types.SessionBusy {
		t.Fatal("expected MT receive dispatch")
	}

	payload := []byte{0x00, 0x00, 0x08, 0x01, 0x03}
	checksum := types.AdditiveChecksum(payload)
	frame := make([]byte, 0, 2+len(payload)+2+1)
	frame = append(frame, byte(len(payload)>>8), byte(len(payload)))
	frame = append(frame, payload...)
	frame = append(frame, byte(checksum>>8), byte(checksum))
	frame = append(frame, '0')
	r.transport.Feed(frame)
	time.Sleep(rxSettle)
	for i := 0; i < 8; i++ {
		r.driver.Tick()
		r.sess.Tick()
	}

	if r.sess.State() != types.SessionBusy {
		t.Fatalf("expected a hangup dispatched right after the MT receive, state = %v", r.sess.State())
	}
}

// TestCISFromPoweredDownRestoresState is spec §8's "CIS commands from
// powered-down": a ringer toggle issued while powered down returns the
// session to powered-down on completion rather than idle.
func TestCISFromPoweredDownRestoresState(t *testing.T) {
	r := newTestRig(t)
	r.sess.state = types.SessionPoweredDown
	r.driver.NotifyModemPowerLoss()

	r.sess.ToggleRinger(true)
	r.driver.Tick()
	r.sess.Tick()
	if r.sess.State() != types.SessionBusy {
		t.Fatalf("state after ToggleRinger from powered-down = %v, want busy", r.sess.State())
	}

	r.feedAndTick("Ringer On\r", 4)

	if r.sess.State() != types.SessionPoweredDown {
		t.Fatalf("state after CIS completion = %v, want powered-down again", r.sess.State())
	}
}
