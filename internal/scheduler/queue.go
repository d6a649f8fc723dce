package scheduler

import "sync"

// RetryQueue holds failed-but-retryable work in failure order. The scheduler
// drains it before pulling fresh requests, so an item that keeps failing can
// block the head of the line until its attempts run out.
type RetryQueue[E any] struct {
	mu    sync.Mutex
	items []E
}

// Push appends an item at the tail.
func (q *RetryQueue[E]) Push(item E) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item)
}

// Pop removes the oldest item.
func (q *RetryQueue[E]) Pop() (E, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero E
	if len(q.items) == 0 {
		return zero, false
	}
	item := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	return item, true
}

// Len returns the number of queued items.
func (q *RetryQueue[E]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
