package store

import (
	"sync"

	"github.com/dmitrijs2005/herdsync/internal/client/models"
)

// subscriber coalesces changes per collection. A writer only marks the
// collection pending; a forwarding goroutine delivers one Change per pending
// collection, so a slow reader may see fewer events but never misses a
// collection.
type subscriber struct {
	out  chan Change
	wake chan struct{}
	done chan struct{}
	once sync.Once

	mu      sync.Mutex
	pending map[models.EntityType]bool
}

func (sub *subscriber) notify(e models.EntityType) {
	sub.mu.Lock()
	sub.pending[e] = true
	sub.mu.Unlock()

	select {
	case sub.wake <- struct{}{}:
	default:
	}
}

func (sub *subscriber) take() []models.EntityType {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	var out []models.EntityType
	for _, e := range models.SyncOrder {
		if sub.pending[e] {
			out = append(out, e)
		}
	}
	clear(sub.pending)
	return out
}

func (sub *subscriber) run() {
	defer close(sub.out)
	for {
		select {
		case <-sub.done:
			return
		case <-sub.wake:
		}
		for _, e := range sub.take() {
			select {
			case sub.out <- Change{Entity: e}:
			case <-sub.done:
				return
			}
		}
	}
}

func (sub *subscriber) stop() {
	sub.once.Do(func() { close(sub.done) })
}

// Subscribe returns a channel of committed changes and a function that
// unsubscribes. The channel is closed shortly after unsubscribing or
// closing the store. Delivery never blocks a writer.
func (s *Store) Subscribe(buffer int) (<-chan Change, func()) {
	if buffer < 1 {
		buffer = 1
	}
	sub := &subscriber{
		out:     make(chan Change, buffer),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		pending: make(map[models.EntityType]bool),
	}

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = sub
	s.mu.Unlock()

	go sub.run()

	return sub.out, func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
		sub.stop()
	}
}

func (s *Store) publish(c Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		sub.notify(c.Entity)
	}
}

func (s *Store) closeSubscribers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sub := range s.subs {
		delete(s.subs, id)
		sub.stop()
	}
}
