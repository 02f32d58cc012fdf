package events

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus(10)
	defer bus.Shutdown()

	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	bus.Publish(Event{Type: TypeLoaded, ViewID: "v1", Records: 3})

	select {
	case got := <-sub:
		if got.ViewID != "v1" || got.Type != TypeLoaded || got.Records != 3 {
			t.Errorf("event = %+v", got)
		}
		if got.Timestamp.IsZero() {
			t.Error("Timestamp should be set on publish")
		}
	case <-time.After(time.Second):
		t.Fatal("did not receive event")
	}
}

func TestBusNonBlockingPublish(t *testing.T) {
	bus := NewBus(1)
	defer bus.Shutdown()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			bus.Publish(Event{Type: TypeMounted, ViewID: "v"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked")
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus(4)
	defer bus.Shutdown()

	sub := bus.Subscribe()
	if bus.Subscribers() != 1 {
		t.Fatalf("Subscribers = %d, want 1", bus.Subscribers())
	}
	bus.Unsubscribe(sub)
	bus.Unsubscribe(sub) // second call is a no-op

	if _, ok := <-sub; ok {
		t.Error("channel should be closed")
	}
	if bus.Subscribers() != 0 {
		t.Errorf("Subscribers = %d, want 0", bus.Subscribers())
	}
}

func TestBusShutdown(t *testing.T) {
	bus := NewBus(4)
	sub := bus.Subscribe()

	bus.Shutdown()
	bus.Shutdown()

	if _, ok := <-sub; ok {
		t.Error("subscriber should be closed on shutdown")
	}
	// Publishing and unsubscribing after shutdown must not panic.
	bus.Publish(Event{Type: TypeUnmounted})
	bus.Unsubscribe(sub)

	late := bus.Subscribe()
	if _, ok := <-late; ok {
		t.Error("subscription after shutdown should be closed")
	}
}

func TestNilBusPublish(t *testing.T) {
	var bus *Bus
	bus.Publish(Event{Type: TypeMounted})
}

func TestFormatSSE(t *testing.T) {
	s, err := FormatSSE(Event{Type: TypeSessionExpired, ViewID: "v", HTTPStatus: 401})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(s, "event: session_expired\ndata: ") || !strings.HasSuffix(s, "\n\n") {
		t.Fatalf("bad framing: %q", s)
	}

	payload := strings.TrimSuffix(strings.SplitN(s, "data: ", 2)[1], "\n\n")
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		t.Fatal(err)
	}
	if ev.HTTPStatus != 401 || ev.Type != TypeSessionExpired {
		t.Errorf("decoded = %+v", ev)
	}
	if strings.Contains(payload, "view_id") || strings.Contains(payload, `"v"`) {
		t.Errorf("view ID must not be streamed: %s", payload)
	}
}
