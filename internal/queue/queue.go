// Package queue provides the in-process work queue that feeds the single
// narration worker.
package queue

import "sync"

// Queue is an unbounded FIFO queue of job identifiers with exactly one
// consumer. Enqueue never blocks; Dequeue blocks the worker until an id is
// available or the queue is closed. The queue holds only identifiers, so
// it can be rebuilt from the job store after a restart.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	ids    []string
	closed bool
}

// New creates an empty queue.
func New() *Queue {
	q := &Queue{
		ids:    nil,
		closed: false,
	}
	q.cond = sync.NewCond(&q.mu)

	return q
}

// Enqueue appends an id to the queue. It is safe to call from any number
// of concurrent submitters and never blocks. Ids enqueued after Close are
// dropped; the job store still holds them for recovery.
func (q *Queue) Enqueue(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.ids = append(q.ids, id)
	q.cond.Signal()
}

// Dequeue blocks until an id is available and returns it in FIFO order.
// Once the queue has been closed and emptied it returns ok=false,
// signalling the worker to stop.
func (q *Queue) Dequeue() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.ids) == 0 && !q.closed {
		q.cond.Wait()
	}

	if len(q.ids) == 0 {
		return "", false
	}

	id := q.ids[0]
	q.ids = q.ids[1:]

	return id, true
}

// Len reports the number of ids currently waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.ids)
}

// Close releases a blocked consumer. Ids already queued are still handed
// out before Dequeue reports the stop sentinel.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()
}
