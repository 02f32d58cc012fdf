// Package events fans out view lifecycle events to live SSE subscribers.
package events

import (
	"encoding/json"
	"sync"
	"time"
)

// Type is the kind of a lifecycle event.
type Type string

const (
	TypeMounted        Type = "mounted"
	TypeLoaded         Type = "loaded"
	TypeLoadFailed     Type = "load_failed"
	TypeSessionExpired Type = "session_expired"
	TypeUnmounted      Type = "unmounted"
)

// Event is one lifecycle event of a history view. It never carries record
// content. The view ID stays in process since it addresses a live view.
type Event struct {
	Type       Type      `json:"type"`
	ViewID     string    `json:"-"`
	LoadID     string    `json:"load_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Outcome    string    `json:"outcome,omitempty"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Records    int       `json:"records,omitempty"`
	DurationMs int64     `json:"duration_ms,omitempty"`
}

// Bus manages event publishing and subscription for SSE consumers.
type Bus struct {
	events      chan Event
	subscribers map[chan Event]struct{}
	mu          sync.RWMutex
	shutdown    chan struct{}
	once        sync.Once
}

// NewBus creates a bus with the given publish buffer size and starts forwarding.
func NewBus(bufferSize int) *Bus {
	b := &Bus{
		events:      make(chan Event, bufferSize),
		subscribers: make(map[chan Event]struct{}),
		shutdown:    make(chan struct{}),
	}
	go b.forward()
	return b
}

func (b *Bus) forward() {
	for {
		select {
		case ev := <-b.events:
			b.mu.RLock()
			for ch := range b.subscribers {
				select {
				case ch <- ev:
				default:
					// slow subscriber, drop
				}
			}
			b.mu.RUnlock()
		case <-b.shutdown:
			return
		}
	}
}

// Publish never blocks; events are dropped when the buffer is full or the bus is shut down.
// A nil bus discards everything.
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	select {
	case <-b.shutdown:
		return
	default:
	}
	select {
	case b.events <- ev:
	default:
	}
}

// Subscribe creates a new subscription channel.
func (b *Bus) Subscribe() chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	select {
	case <-b.shutdown:
		close(ch)
	default:
		b.subscribers[ch] = struct{}{}
	}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscription channel and closes it.
func (b *Bus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	if _, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Subscribers returns the number of live subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Shutdown stops forwarding and closes every subscriber channel.
func (b *Bus) Shutdown() {
	b.once.Do(func() {
		b.mu.Lock()
		close(b.shutdown)
		for ch := range b.subscribers {
			close(ch)
		}
		b.subscribers = make(map[chan Event]struct{})
		b.mu.Unlock()
	})
}

// FormatSSE formats an event in Server-Sent Events wire format.
func FormatSSE(ev Event) (string, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return "", err
	}
	return "event: " + string(ev.Type) + "\ndata: " + string(data) + "\n\n", nil
}
