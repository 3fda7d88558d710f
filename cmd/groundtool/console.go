package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/windward-avionics/sbdlink/bus"
	"github.com/windward-avionics/sbdlink/l2"
	"github.com/windward-avionics/sbdlink/l3"
	"github.com/windward-avionics/sbdlink/l4"
)

// dispatch runs one tokenized console command. It returns false when the
// console should stop reading further input.
func dispatch(args []string, driver *l2.Driver, sess *l3.Session, fs *hostFilesystem, modemLog *l4.Log, statusBus *bus.Bus) bool {
	switch args[0] {
	case "quit", "exit":
		return false
	case "help":
		printHelp()
	case "status":
		cmdStatus(driver, sess)
	case "init":
		fmt.Println("init:", sess.Init())
	case "enable":
		sess.EnableSending()
	case "disable":
		sess.DisableSending()
	case "send-text":
		if len(args) < 2 {
			fmt.Println("usage: send-text <message>")
			return true
		}
		fmt.Println("send-text:", sess.SendText(args[1]))
	case "send-file":
		cmdSendFile(args, fs)
	case "ringer":
		cmdRinger(args, sess)
	case "relay":
		cmdRelay(args, sess)
	case "ringer-status":
		sess.SendRingerStatusQuery()
	case "relay-status":
		cmdRelayStatus(args, sess)
	case "hangup":
		fmt.Println("hangup:", sess.HangupCall())
	case "upload-cis":
		fmt.Println("upload-cis:", sess.UploadCISConfig())
	case "reset-cis":
		fmt.Println("reset-cis:", sess.ResetCIS())
	case "program-cis":
		cmdProgramCIS(args, sess)
	case "snapshot":
		cmdSnapshot(args, modemLog)
	case "watch":
		cmdWatch(statusBus)
	default:
		fmt.Println("unknown command:", args[0])
	}
	return true
}

func printHelp() {
	fmt.Println(`commands:
  status
  init
  enable | disable
  send-text <message>
  send-file <path>            copy a file into the outbox
  ringer on|off
  relay <1|2> on|off
  ringer-status
  relay-status <1|2>
  hangup
  upload-cis
  reset-cis
  program-cis <lines-file>    bulk-config lines, one per line
  snapshot <out-path>
  watch                       print the retained status message, then live updates for 5s
  quit`)
}

func cmdStatus(driver *l2.Driver, sess *l3.Session) {
	info := driver.Info()
	fmt.Printf("session=%v driver=%v error=%v signal=%d momsn=%s mtmsn=%s ringer=%v relay1=%v relay2=%v\n",
		sess.State(), driver.State(), driver.PeekErrorCode(), info.SignalStrength, info.MOMSN, info.MTMSN,
		info.RingerOn, info.Relay1On, info.Relay2On)
}

func cmdSendFile(args []string, fs *hostFilesystem) {
	if len(args) < 2 {
		fmt.Println("usage: send-file <path>")
		return
	}
	data, err := os.ReadFile(args[1])
	if err != nil {
		fmt.Println("read:", err)
		return
	}
	name := filepathBase(args[1])
	if err := fs.Write("outbox/"+name, data); err != nil {
		fmt.Println("write outbox:", err)
		return
	}
	fmt.Println("queued in outbox:", name)
}

func filepathBase(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

func cmdRinger(args []string, sess *l3.Session) {
	if len(args) < 2 {
		fmt.Println("usage: ringer on|off")
		return
	}
	sess.ToggleRinger(args[1] == "on")
}

func cmdRelay(args []string, sess *l3.Session) {
	if len(args) < 3 {
		fmt.Println("usage: relay <1|2> on|off")
		return
	}
	nr, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Println("bad relay number:", args[1])
		return
	}
	sess.ToggleRelay(nr, args[2] == "on")
}

func cmdRelayStatus(args []string, sess *l3.Session) {
	if len(args) < 2 {
		fmt.Println("usage: relay-status <1|2>")
		return
	}
	nr, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Println("bad relay number:", args[1])
		return
	}
	sess.SendRelayStatusQuery(nr)
}

func cmdProgramCIS(args []string, sess *l3.Session) {
	if len(args) < 2 {
		fmt.Println("usage: program-cis <lines-file>")
		return
	}
	data, err := os.ReadFile(args[1])
	if err != nil {
		fmt.Println("read:", err)
		return
	}
	lines := splitLines(string(data))
	i := 0
	next := func() (string, bool) {
		if i >= len(lines) {
			return "", false
		}
		line := lines[i]
		i++
		return line, true
	}
	fmt.Println("program-cis:", sess.ProgramCIS(next))
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			line := s[start:i]
			if len(line) > 0 && line[len(line)-1] == '\r' {
				line = line[:len(line)-1]
			}
			lines = append(lines, line)
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

// cmdWatch subscribes to the session's retained status topic and prints
// every update for a short window, the way a live dashboard would tail it.
func cmdWatch(statusBus *bus.Bus) {
	conn := statusBus.NewConnection("console-watch")
	defer conn.Disconnect()

	sub := conn.Subscribe(l3.StatusTopic)
	deadline := time.After(5 * time.Second)
	for {
		select {
		case msg := <-sub.Channel():
			fmt.Printf("status: %+v\n", msg.Payload)
		case <-deadline:
			return
		}
	}
}

func cmdSnapshot(args []string, modemLog *l4.Log) {
	if len(args) < 2 {
		fmt.Println("usage: snapshot <out-path>")
		return
	}
	msg, err := modemLog.Snapshot(time.Now())
	if err != nil {
		fmt.Println("snapshot:", err)
		return
	}
	if err := os.WriteFile(args[1], msg, 0o644); err != nil {
		fmt.Println("write:", err)
		return
	}
	fmt.Println("wrote", len(msg), "bytes to", args[1])
}
