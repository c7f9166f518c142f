package contact

import (
	"log/slog"
	"sync"

	"pfeifer.dev/trackd/physics"
)

const DEFAULT_QUEUE_SIZE = 256

// Queue buffers contact events between the world's callback and the once per
// tick drain. When full the oldest event is dropped.
type Queue struct {
	mu      sync.Mutex
	events  []physics.Contact
	size    int
	dropped int
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DEFAULT_QUEUE_SIZE
	}
	return &Queue{size: size, events: make([]physics.Contact, 0, size)}
}

func (q *Queue) Push(c physics.Contact) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) >= q.size {
		q.events = q.events[1:]
		q.dropped++
		slog.Debug("contact queue full, dropping oldest event", "dropped", q.dropped)
	}
	q.events = append(q.events, c)
}

// Drain returns pending events in arrival order and empties the queue.
func (q *Queue) Drain() []physics.Contact {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return nil
	}
	out := q.events
	q.events = make([]physics.Contact, 0, q.size)
	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

func (q *Queue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
