package events

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

const DefaultBufferSize = 64

// Bus fans events out to every live subscriber. Publishing never blocks: a
// subscriber that falls behind by more than its buffer loses events.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	next   int
	buffer int
}

func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = DefaultBufferSize
	}

	return &Bus{
		subs:   make(map[int]chan Event),
		buffer: buffer,
	}
}

// Subscribe returns a channel that is closed when ctx is done.
func (b *Bus) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, b.buffer)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		close(ch)
		b.mu.Unlock()
	}()

	return ch
}

func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			log.WithFields(log.Fields{
				"subscriber": id,
				"kind":       ev.Kind,
				"address":    ev.Address.String(),
			}).Warn("event subscriber is full, dropping event")
		}
	}
}

// Publisher is what chain adapters need from a bus.
type Publisher interface {
	Publish(ev Event)
}

// Discard drops every event.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(Event) {}
