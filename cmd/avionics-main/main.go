//go:build pico

// Command avionics-main is the embedded entry point: it wires the
// hardware UART and discrete control lines through l1, builds the
// l2/l3/l4 stack, and runs the tick loop. Grounded on the teacher's root
// main.go (pico build, bare println, a time.Ticker-driven loop) and
// services/hal/internal/provider/rp2_resources.go for the
// uartx.UART0/machine.Pin wiring shape.
package main

import (
	"machine"
	"time"

	"tinygo.org/x/drivers"

	"github.com/windward-avionics/sbdlink/collab"
	"github.com/windward-avionics/sbdlink/errcode"
	"github.com/windward-avionics/sbdlink/internal/timerx"
	"github.com/windward-avionics/sbdlink/l1"
	"github.com/windward-avionics/sbdlink/l2"
	"github.com/windward-avionics/sbdlink/l3"
	"github.com/windward-avionics/sbdlink/l4"
	"github.com/windward-avionics/sbdlink/types"
)

// Pin assignments for the modem UART and its discrete lines. Board-
// specific; adjust per target schematic.
const (
	modemTXPin    = machine.GPIO0
	modemRXPin    = machine.GPIO1
	lineRIPin     = machine.GPIO2
	lineDCDPin    = machine.GPIO3
	lineDSRPin    = machine.GPIO4
	lineCTSPin    = machine.GPIO5
	lineRTSPin    = machine.GPIO6
	lineDTRPin    = machine.GPIO7
	cisExpanderAddr = 0x20
	cisExpanderBit  = 0
)

func main() {
	time.Sleep(2 * time.Second) // let USB CDC enumerate before the first println
	println("avionics-main: boot")

	dialer := l1.PicoDialer{
		UART:    machine.UART0,
		TX:      modemTXPin,
		RX:      modemRXPin,
		BitRate: 9600,
	}
	transport, err := dialer.Dial()
	if err != nil {
		println("avionics-main: uart dial failed")
		return
	}

	var i2c drivers.I2C = machine.I2C0
	lines := l1.PicoControlLines(lineRIPin, lineDCDPin, lineDSRPin, lineCTSPin, lineRTSPin, lineDTRPin, i2c, cisExpanderAddr, cisExpanderBit)

	port := l1.NewPort(transport, lines)
	if code := port.Open(types.DefaultSerialConfig()); code != errcode.None {
		println("avionics-main: port open failed: ", string(code))
		return
	}

	clock := timerx.WallClock{}

	// Filesystem, power manager, rules engine, and EEPROM are spec §6's
	// external collaborators: genuinely out of this driver's scope (they
	// depend on the target board's storage and power rails), so the
	// firmware integrator supplies the real ones. These no-op stand-ins
	// let the stack boot on bare silicon for a bench flash; swap them for
	// the board's flash filesystem, rail-switch driver, and rules engine
	// before shipping.
	fs := collab.NewFakeFilesystem()
	sysLog := &printlnSystemLog{}
	modemLog := l4.New(fs, clock)
	power := &collab.FakePowerManager{}
	rules := &collab.FakeRulesEngine{}
	eeprom := &collab.FakeEEPROM{}

	driver := l2.New(port, fs, modemLog, eeprom, clock)
	sess := l3.New(driver, fs, sysLog, modemLog, power, rules, eeprom, clock, l3.DefaultConfig())

	driver.NotifyModemPowerGood()
	sess.Init()

	println("avionics-main: running")
	for {
		driver.Tick()
		sess.Tick()
		time.Sleep(5 * time.Millisecond)
	}
}

// printlnSystemLog is the MCU-safe collab.SystemLog shim spec's ambient
// logging note calls for: bare println, no heap allocation, in place of
// the host binary's slog handler.
type printlnSystemLog struct{}

func (printlnSystemLog) LogHardwareError(reason string) { println("hw-error: ", reason) }
func (printlnSystemLog) LogEvent(phrase string)          { println("event: ", phrase) }
