package orchestrator

import (
	"sync"

	"identity-dna/internal/domain"
)

// queue is the bounded intake buffer. Push never blocks: when the cap
// is exceeded the oldest events are evicted to make room, favoring
// recent signals over stale ones.
type queue struct {
	mu    sync.Mutex
	items []domain.Event
	cap   int
}

func newQueue(capacity int) *queue {
	return &queue{cap: capacity}
}

// push appends the event and returns any events evicted to stay within
// the cap.
func (q *queue) push(e domain.Event) []domain.Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, e)
	if len(q.items) <= q.cap {
		return nil
	}

	over := len(q.items) - q.cap
	evicted := make([]domain.Event, over)
	copy(evicted, q.items[:over])
	q.items = append(q.items[:0], q.items[over:]...)
	return evicted
}

// drain removes and returns everything in enqueue order.
func (q *queue) drain() []domain.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

func (q *queue) depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
