package jobqueue

import (
	"context"
	"sync"
)

// Queue is the FIFO admission line. Arrival order is processing order, and
// the 1-based position of a job among the still-queued ids is answered from
// here. Membership in the queue is the source of truth for "queued": Take
// runs the caller's claim hook under the queue lock, so a position query can
// never observe a job that a worker has already claimed.
type Queue struct {
	mu   sync.Mutex
	ids  []string
	wake chan struct{}
}

// NewQueue returns an empty admission queue.
func NewQueue() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

// Enqueue appends id to the tail and wakes one waiting worker.
func (q *Queue) Enqueue(id string) {
	q.mu.Lock()
	q.ids = append(q.ids, id)
	q.mu.Unlock()
	q.signal()
}

// Take blocks until an id is available or ctx is done, removes the head and
// invokes claim with the queue lock held. The claim hook is where the
// queued -> processing transition happens, which keeps dequeue and the state
// change atomic with respect to PositionOf.
func (q *Queue) Take(ctx context.Context, claim func(id string)) (string, error) {
	for {
		q.mu.Lock()
		if len(q.ids) > 0 {
			id := q.ids[0]
			q.ids = q.ids[1:]
			if claim != nil {
				claim(id)
			}
			remaining := len(q.ids)
			q.mu.Unlock()
			if remaining > 0 {
				// Pass the wakeup on so sibling workers see the rest.
				q.signal()
			}
			return id, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-q.wake:
		}
	}
}

// PositionOf returns the 1-based rank of id among queued ids, or -1 when the
// id is not queued.
func (q *Queue) PositionOf(id string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, queued := range q.ids {
		if queued == id {
			return i + 1
		}
	}
	return -1
}

// Len reports how many ids are waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ids)
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
