// Command groundtool is the host-side bench harness for exercising the
// session/policy layer against a real UART (via go.bug.st/serial) or a
// scripted fake transport, without needing the pico build. Grounded on
// the teacher's cmd/boardtest and cmd/uart-test run style (open hardware,
// drive a tick loop, print outcomes with println-style logging) adapted
// to a host binary with an interactive console on top, since the teacher
// itself has no host-bench equivalent for this subsystem.
package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/shlex"
	flags "github.com/jessevdk/go-flags"

	"github.com/windward-avionics/sbdlink/bus"
	"github.com/windward-avionics/sbdlink/collab"
	"github.com/windward-avionics/sbdlink/errcode"
	"github.com/windward-avionics/sbdlink/internal/timerx"
	"github.com/windward-avionics/sbdlink/l1"
	"github.com/windward-avionics/sbdlink/l2"
	"github.com/windward-avionics/sbdlink/l3"
	"github.com/windward-avionics/sbdlink/l4"
	"github.com/windward-avionics/sbdlink/types"
)

type options struct {
	Port     string `long:"port" short:"p" description:"serial device path (e.g. /dev/ttyUSB0); omit to run against an in-process fake transport" default:""`
	Baud     int    `long:"baud" short:"b" description:"bit rate" default:"9600"`
	DataRoot string `long:"data-root" short:"d" description:"directory holding outbox/sent/error/working and the event log" default:"./groundtool-data"`
	Config   string `long:"config" short:"c" description:"path to a JSON config blob (l3.LoadConfig format); omitted = defaults"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	fs, err := newHostFilesystem(opts.DataRoot)
	if err != nil {
		logger.Error("create data root", "error", err)
		os.Exit(1)
	}

	cfg := l3.DefaultConfig()
	if opts.Config != "" {
		raw, err := os.ReadFile(opts.Config)
		if err != nil {
			logger.Error("read config", "error", err)
			os.Exit(1)
		}
		cfg, err = l3.LoadConfig(raw)
		if err != nil {
			logger.Error("parse config", "error", err)
			os.Exit(1)
		}
	}

	port, transport, err := openPort(opts)
	if err != nil {
		logger.Error("open port", "error", err)
		os.Exit(1)
	}

	clock := timerx.WallClock{}
	sysLog := &slogSystemLog{logger: logger}
	modemLog := l4.New(fs, clock)
	power := &collab.FakePowerManager{}
	rules := &collab.FakeRulesEngine{}
	eeprom := &collab.FakeEEPROM{}

	driver := l2.New(port, fs, modemLog, eeprom, clock)
	sess := l3.New(driver, fs, sysLog, modemLog, power, rules, eeprom, clock, cfg)

	statusBus := bus.NewBus(8)
	sess.AttachBus(statusBus)

	logger.Info("groundtool ready", "port", opts.Port, "data_root", opts.DataRoot)
	if transport != nil {
		driver.NotifyModemPowerGood()
	}

	done := make(chan struct{})
	go tickLoop(driver, sess, done)
	defer close(done)

	runConsole(driver, sess, fs, modemLog, statusBus)
}

// tickLoop drives driver.Tick/session.Tick at a fixed interval, matching
// spec §4.2's "tick() must be called frequently from the main loop
// (ideally every few ms)".
func tickLoop(driver *l2.Driver, sess *l3.Session, done <-chan struct{}) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			driver.Tick()
			sess.Tick()
		}
	}
}

// openPort dials a real serial device when Port is set, otherwise stands
// up an in-process fake transport so groundtool can be exercised with no
// hardware attached.
func openPort(opts options) (*l1.Port, *l1.FakeTransport, error) {
	if opts.Port == "" {
		lines, _ := l1.NewFakeControlLines()
		transport := l1.NewFakeTransport()
		port := l1.NewPort(transport, lines)
		cfg := types.DefaultSerialConfig()
		cfg.BitRate = uint32(opts.Baud)
		if code := port.Open(cfg); code != errcode.None {
			return nil, nil, fmt.Errorf("open fake port: %s", code)
		}
		return port, transport, nil
	}

	dialer := l1.HostDialer{PortName: opts.Port, Config: types.DefaultSerialConfig()}
	dialer.Config.BitRate = uint32(opts.Baud)
	transport, err := dialer.Dial()
	if err != nil {
		return nil, nil, err
	}
	// Control-line wiring (DCD/DSR/RI/CTS/RTS/DTR) needs the concrete
	// serial.Port HostDialer opened internally; l1.HostControlLines takes
	// that type directly rather than the Transport interface, so a bench
	// run through groundtool without it still works (every line reads as
	// its no-signal default) but a full control-line exercise needs the
	// caller to build the port directly against go.bug.st/serial instead.
	port := l1.NewPort(transport, l1.ControlLines{})
	if code := port.Open(dialer.Config); code != errcode.None {
		return nil, nil, fmt.Errorf("open port: %s", code)
	}
	return port, nil, nil
}

// runConsole reads shlex-tokenized commands from stdin until EOF or
// "quit" (teacher's bus/cmd/selftest has no interactive console to
// ground this on directly; shlex itself is the teacher's own dependency,
// carried from bus's command tokenizing use elsewhere in the pack).
func runConsole(driver *l2.Driver, sess *l3.Session, fs *hostFilesystem, modemLog *l4.Log, statusBus *bus.Bus) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("groundtool> type 'help' for commands")
	for {
		fmt.Print("groundtool> ")
		if !scanner.Scan() {
			return
		}
		args, err := shlex.Split(scanner.Text())
		if err != nil || len(args) == 0 {
			continue
		}
		if !dispatch(args, driver, sess, fs, modemLog, statusBus) {
			return
		}
	}
}
