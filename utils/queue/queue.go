// Package queue provides a bounded blocking FIFO queue for multi-producer,
// single-consumer pipelines.
package queue

// Bounded is a fixed-capacity FIFO queue safe for any number of concurrent
// producers and one consumer. Capacity exhaustion is backpressure: a Push into
// a full queue suspends the calling goroutine until the consumer frees a slot.
// The queue never drops, overwrites, or reorders items, and each producer's
// successive pushes are delivered in that producer's call order.
//
// It is built on a buffered channel, which gives blocking send semantics and
// FIFO delivery without additional locking.
type Bounded[T any] struct {
	ch chan T
}

// NewBounded creates a queue with the given capacity.
// Panics if capacity is not positive, as a zero-capacity queue would deadlock
// the first producer.
func NewBounded[T any](capacity int) *Bounded[T] {
	if capacity <= 0 {
		panic("queue: capacity must be positive")
	}
	return &Bounded[T]{ch: make(chan T, capacity)}
}

// Push inserts item at the tail, blocking while the queue is full.
// It never fails; backpressure is the only outcome of contention.
func (q *Bounded[T]) Push(item T) {
	q.ch <- item
}

// Process runs the consumer loop on the calling goroutine, forever: it blocks
// until an item is available, pops it, and invokes fn synchronously.
//
// Exactly one goroutine may call Process for the lifetime of the queue;
// concurrent callers would steal items from each other and break the FIFO
// delivery guarantee.
func (q *Bounded[T]) Process(fn func(T)) {
	for item := range q.ch {
		fn(item)
	}
}

// Len returns the number of items currently buffered. The value is a snapshot
// and may be stale by the time the caller observes it.
func (q *Bounded[T]) Len() int {
	return len(q.ch)
}

// Cap returns the fixed capacity the queue was created with.
func (q *Bounded[T]) Cap() int {
	return cap(q.ch)
}
