package events

import (
	"sync"

	"wizline/internal/domain"
)

// Bus fans committed events out to in-process subscribers such as the
// websocket hub. Slow subscribers miss events rather than block publishers.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[chan domain.Event]struct{}
}

func NewBus() *Bus {
	return &Bus{subscribers: make(map[chan domain.Event]struct{})}
}

func (b *Bus) Subscribe() chan domain.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan domain.Event, 100)
	b.subscribers[ch] = struct{}{}
	return ch
}

func (b *Bus) Unsubscribe(ch chan domain.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(ch)
	}
}

// Publish is a no-op on a nil Bus.
func (b *Bus) Publish(evt domain.Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
		}
	}
}
