// Package queue provides the bounded in-memory FIFO the realtime
// dispatcher drains. Oldest entries are dropped when the queue is full so
// a stalled consumer never blocks the update handlers feeding it.
package queue

import (
	"sync"
)

type Queue[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
	dropped  uint64
}

func New[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{capacity: capacity}
}

// Push appends an item, evicting the oldest entry when the queue is full.
// It reports whether an eviction happened.
func (q *Queue[T]) Push(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	evicted := false
	if len(q.items) >= q.capacity {
		q.items = q.items[1:]
		q.dropped++
		evicted = true
	}
	q.items = append(q.items, item)
	return evicted
}

// Pop removes and returns the oldest item. The second value is false when
// the queue is empty.
func (q *Queue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped returns how many items were evicted since creation.
func (q *Queue[T]) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
