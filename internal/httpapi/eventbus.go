package httpapi

import (
	"encoding/json"
	"sync"

	"github.com/websoft9/portd/internal/registry"
)

// EventBus fans registry.Event out to every currently-connected websocket
// client. It is a plain in-process map of subscriber channels guarded by a
// mutex — not a message broker — because there is exactly one portd
// process per workstation.
type EventBus struct {
	mu   sync.Mutex
	subs map[chan []byte]bool
}

// NewEventBus creates an empty EventBus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan []byte]bool)}
}

// Notify adapts an EventBus into a registry.Notifier for Registry's
// WithNotifier option.
func (b *EventBus) Notify(e registry.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	b.broadcast(data)
}

func (b *EventBus) broadcast(data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- data:
		default:
			// Slow subscriber: drop the event rather than block the
			// registry operation that produced it.
		}
	}
}

// Subscribe registers a new channel and returns an unsubscribe func.
func (b *EventBus) Subscribe() (chan []byte, func()) {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	b.subs[ch] = true
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
		close(ch)
	}
	return ch, unsubscribe
}
