package realtime

import (
	"context"
	"sync"
)

// Broker fans events out to in-process subscribers. It is both a Publisher
// and a Subscriber, which is all a single instance needs.
type Broker struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string]map[uint64]func(Event)
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[uint64]func(Event))}
}

func (b *Broker) Subscribe(key string, fn func(Event)) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	if b.subs[key] == nil {
		b.subs[key] = make(map[uint64]func(Event))
	}
	b.subs[key][id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[key], id)
			if len(b.subs[key]) == 0 {
				delete(b.subs, key)
			}
		})
	}
}

// Publish delivers ev to the local subscribers only
func (b *Broker) Publish(_ context.Context, ev Event) error {
	b.Dispatch(ev)
	return nil
}

// Dispatch runs every subscriber of ev.Key
func (b *Broker) Dispatch(ev Event) {
	b.mu.RLock()
	fns := make([]func(Event), 0, len(b.subs[ev.Key]))
	for _, fn := range b.subs[ev.Key] {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Subscribers counts the subscribers of key
func (b *Broker) Subscribers(key string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[key])
}
