package bus

import (
	"sync"
	"testing"

	"github.com/jbird-nerd/CalendarCaptureExtension/internal/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "console"})
	if err != nil {
		t.Fatalf("logger.New() error = %v", err)
	}
	return log
}

func TestBus_SendStampsSender(t *testing.T) {
	b := New(testLogger(t))
	content := b.Register(ContextContent, 4)
	background := b.Register(ContextBackground, 4)

	if err := content.Send(ContextBackground, Envelope{Type: MsgGetSettings, RequestID: "r1"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	env := <-background.Inbox()
	if env.From != ContextContent {
		t.Errorf("expected From = content, got %q", env.From)
	}
	if env.Type != MsgGetSettings || env.RequestID != "r1" {
		t.Errorf("unexpected envelope %+v", env)
	}
}

func TestBus_UnknownTarget(t *testing.T) {
	b := New(testLogger(t))
	content := b.Register(ContextContent, 1)

	if err := content.Send(ContextPopup, Envelope{Type: MsgDeliverImage}); err == nil {
		t.Error("expected an error for unregistered target")
	}
}

func TestBus_FullInboxDrops(t *testing.T) {
	b := New(testLogger(t))
	b.Register(ContextPopup, 1)
	background := b.Register(ContextBackground, 4)

	if err := background.Send(ContextPopup, Envelope{Type: MsgDeliverImage, RequestID: "a"}); err != nil {
		t.Fatalf("first Send() error = %v", err)
	}
	if err := background.Send(ContextPopup, Envelope{Type: MsgDeliverImage, RequestID: "b"}); err == nil {
		t.Error("expected second send to report the drop")
	}
}

func TestBus_RegisterReplacesEndpoint(t *testing.T) {
	b := New(testLogger(t))
	old := b.Register(ContextPopup, 1)
	fresh := b.Register(ContextPopup, 1)
	background := b.Register(ContextBackground, 1)

	if _, ok := <-old.Inbox(); ok {
		t.Error("expected replaced inbox to be closed")
	}

	if err := background.Send(ContextPopup, Envelope{Type: MsgDeliverImage}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	select {
	case env := <-fresh.Inbox():
		if env.Type != MsgDeliverImage {
			t.Errorf("unexpected envelope %+v", env)
		}
	default:
		t.Error("expected envelope on the fresh endpoint")
	}
}

func TestBus_UnregisterIgnoresStaleEndpoint(t *testing.T) {
	b := New(testLogger(t))
	old := b.Register(ContextPopup, 1)
	fresh := b.Register(ContextPopup, 1)
	background := b.Register(ContextBackground, 1)

	// Unregistering the superseded endpoint must not detach the current one.
	b.Unregister(old)

	if err := background.Send(ContextPopup, Envelope{Type: MsgDeliverImage}); err != nil {
		t.Fatalf("Send() after stale unregister error = %v", err)
	}
	<-fresh.Inbox()
}

func TestBus_ConcurrentSendAndUnregister(t *testing.T) {
	// A response racing the receiver's detach must be dropped or rejected,
	// never panic the sender. Mirrors the background replying while the
	// popup closes.
	b := New(testLogger(t))
	background := b.Register(ContextBackground, 1)

	for i := 0; i < 2000; i++ {
		popup := b.Register(ContextPopup, 1)

		var wg sync.WaitGroup
		wg.Add(3)
		for j := 0; j < 3; j++ {
			go func() {
				defer wg.Done()
				background.Send(ContextPopup, Envelope{Type: MsgResponse})
			}()
		}
		b.Unregister(popup)
		wg.Wait()

		// Drain whatever landed before the detach.
		select {
		case <-popup.Inbox():
		default:
		}
	}

	if err := background.Send(ContextPopup, Envelope{Type: MsgResponse}); err == nil {
		t.Error("expected an error after the popup detached")
	}
}

func TestLatest_SupersededResponseRejected(t *testing.T) {
	var latest Latest

	first := latest.Begin()
	second := latest.Begin()

	if latest.Accept(first) {
		t.Error("superseded request ID must be rejected")
	}
	if !latest.Accept(second) {
		t.Error("current request ID must be accepted")
	}
	// Accept does not consume; the same ID stays current until superseded.
	if !latest.Accept(second) {
		t.Error("current request ID must remain accepted")
	}
}

func TestLatest_ClearRejectsEverything(t *testing.T) {
	var latest Latest
	id := latest.Begin()
	latest.Clear()

	if latest.Accept(id) {
		t.Error("cleared tracker must reject the old ID")
	}
	if latest.Accept("") {
		t.Error("empty request ID must never be accepted")
	}
}

func TestLatest_OutOfOrderResponses(t *testing.T) {
	// A response for an old request arriving after a newer request began
	// must be dropped, while the newer one is applied.
	var latest Latest
	slow := latest.Begin()
	fast := latest.Begin()

	if latest.Accept(slow) {
		t.Error("late response for superseded request must be dropped")
	}
	if !latest.Accept(fast) {
		t.Error("response for current request must be applied")
	}
}
