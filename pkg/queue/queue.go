package queue

import (
	"sync/atomic"
)

// New creates an unbounded multi-producer single-consumer queue.
func New[E any]() *Queue[E] {
	q := &Queue[E]{}
	stub := &node[E]{}
	q.head.Store(stub)
	q.tail.Store(stub)
	return q
}

type node[E any] struct {
	value E
	next  atomic.Pointer[node[E]]
}

// Queue is an intrusive lock-free MPSC queue. Enqueue is safe from any
// goroutine, Dequeue and IsEmpty must only be called by the single
// consumer that owns the queue.
type Queue[E any] struct {
	head atomic.Pointer[node[E]]
	tail atomic.Pointer[node[E]]
	len  atomic.Int64
}

func (q *Queue[E]) Enqueue(value E) {
	n := &node[E]{value: value}
	prev := q.tail.Swap(n)
	prev.next.Store(n)
	q.len.Add(1)
}

func (q *Queue[E]) Dequeue() (value E, ok bool) {
	head := q.head.Load()
	next := head.next.Load()
	if next == nil {
		return
	}
	q.head.Store(next)
	value = next.value
	var zero E
	next.value = zero
	q.len.Add(-1)
	ok = true
	return
}

func (q *Queue[E]) Length() int64 {
	return q.len.Load()
}

func (q *Queue[E]) IsEmpty() bool {
	// len can momentarily trail a concurrent Enqueue that already swapped
	// the tail, so probe the link instead of the counter.
	return q.head.Load().next.Load() == nil
}
