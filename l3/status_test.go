package l3

import (
	"testing"
	"time"

	"github.com/windward-avionics/sbdlink/bus"
)

// TestAttachBusPublishesRetainedStatus confirms Tick republishes a status
// snapshot that a late subscriber still receives via retained delivery.
func TestAttachBusPublishesRetainedStatus(t *testing.T) {
	r := newTestRig(t)
	b := bus.NewBus(4)
	r.sess.AttachBus(b)

	r.driver.NotifyModemPowerGood()
	r.feedAndTick("", 1)

	conn := b.NewConnection("test")
	defer conn.Disconnect()
	sub := conn.Subscribe(StatusTopic)

	select {
	case msg := <-sub.Channel():
		status, ok := msg.Payload.(StatusMessage)
		if !ok {
			t.Fatalf("payload type = %T, want StatusMessage", msg.Payload)
		}
		if status.SessionState == "" {
			t.Fatal("SessionState empty")
		}
	case <-time.After(time.Second):
		t.Fatal("no retained status message delivered")
	}
}

// TestNilBusTickIsNoop confirms Tick works unchanged when no bus is
// attached, since AttachBus is opt-in instrumentation.
func TestNilBusTickIsNoop(t *testing.T) {
	r := newTestRig(t)
	r.driver.NotifyModemPowerGood()
	r.feedAndTick("", 1)
}
