package event

import "sync/atomic"

// DefaultQueueSize matches the engine's fixed OS event budget per frame.
const DefaultQueueSize = 64

// Queue is a bounded single-producer single-consumer ring of events.
//
// The producer is the OS callback goroutine, the consumer is the render
// goroutine draining events at the start of each frame. Push never blocks,
// a full queue rejects the event and counts it as dropped. One slot is kept
// free to tell a full ring from an empty one.
type Queue struct {
	buf     []Event
	head    atomic.Uint32 // next slot to pop, written by consumer
	tail    atomic.Uint32 // next slot to push, written by producer
	dropped atomic.Uint64
}

// NewQueue returns a queue holding up to size-1 pending events. Sizes below
// 2 fall back to DefaultQueueSize.
func NewQueue(size int) *Queue {
	if size < 2 {
		size = DefaultQueueSize
	}
	return &Queue{buf: make([]Event, size)}
}

func (q *Queue) next(i uint32) uint32 {
	return (i + 1) % uint32(len(q.buf))
}

// Push appends e. It returns false if the queue is full.
func (q *Queue) Push(e Event) bool {
	tail := q.tail.Load()
	next := q.next(tail)
	if next == q.head.Load() {
		q.dropped.Add(1)
		return false
	}
	q.buf[tail] = e
	q.tail.Store(next)
	return true
}

// Pop removes the oldest event. ok is false when the queue is empty.
func (q *Queue) Pop() (e Event, ok bool) {
	head := q.head.Load()
	if head == q.tail.Load() {
		return Event{}, false
	}
	e = q.buf[head]
	q.head.Store(q.next(head))
	return e, true
}

// Drain pops every pending event and passes it to fn, returning the count.
func (q *Queue) Drain(fn func(Event)) int {
	n := 0
	for {
		e, ok := q.Pop()
		if !ok {
			return n
		}
		fn(e)
		n++
	}
}

// Len returns the number of pending events.
func (q *Queue) Len() int {
	head, tail := q.head.Load(), q.tail.Load()
	if tail >= head {
		return int(tail - head)
	}
	return len(q.buf) - int(head-tail)
}

// Dropped returns how many pushes were rejected because the queue was full.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}
