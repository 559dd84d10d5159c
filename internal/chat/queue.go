package chat

import "sync"

// Queue is the per-turn side channel tools push progress events into. One
// Queue belongs to exactly one turn; the multiplexer creates it before the
// generation starts and drains it as the primary stream advances, so
// concurrent turns never observe each other's events.
type Queue struct {
	mu     sync.Mutex
	events []Event
}

// NewQueue creates an empty side-channel queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Put appends an event to the queue.
func (q *Queue) Put(event Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, event)
}

// Drain removes and returns all queued events in enqueue order.
func (q *Queue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	drained := q.events
	q.events = nil
	return drained
}

// Len reports the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}
