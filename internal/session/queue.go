package session

import (
	"errors"
	"sync"
)

// ErrQueueClosed is returned by Submit after Close.
var ErrQueueClosed = errors.New("session: queue closed")

// Queue runs tasks one at a time per identity, in submission order.
// Tasks of different identities run concurrently. Each identity with pending
// work owns one goroutine, which exits once its lane is empty.
type Queue struct {
	mu     sync.Mutex
	idle   *sync.Cond
	lanes  map[int64][]func()
	closed bool
}

// NewQueue constructs an empty queue.
func NewQueue() *Queue {
	q := &Queue{lanes: make(map[int64][]func())}
	q.idle = sync.NewCond(&q.mu)
	return q
}

// Submit appends task to the lane of id.
func (q *Queue) Submit(id int64, task func()) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	pending, running := q.lanes[id]
	q.lanes[id] = append(pending, task)
	if !running {
		go q.drain(id)
	}
	return nil
}

func (q *Queue) drain(id int64) {
	for {
		q.mu.Lock()
		pending := q.lanes[id]
		if len(pending) == 0 {
			delete(q.lanes, id)
			if len(q.lanes) == 0 {
				q.idle.Broadcast()
			}
			q.mu.Unlock()
			return
		}
		task := pending[0]
		pending[0] = nil
		q.lanes[id] = pending[1:]
		q.mu.Unlock()

		task()
	}
}

// Wait blocks until every submitted task has finished.
func (q *Queue) Wait() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.lanes) > 0 {
		q.idle.Wait()
	}
}

// Close rejects further tasks and waits for the pending ones.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.Wait()
}

// Len reports how many identities have pending work.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lanes)
}
