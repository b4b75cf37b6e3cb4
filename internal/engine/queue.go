package engine

import "sync"

// request pairs a submitted command with the channel its outcome is sent on.
type request struct {
	cmd   Command
	reply chan reply
}

type reply struct {
	outcome Outcome
	err     error
}

// commandQueue is a thread-safe FIFO of pending requests.
//
// Submitters enqueue from any goroutine (HTTP handlers, websocket readers);
// only the Run loop dequeues. A buffered signal channel of size 1 lets Run
// wait on the queue and a context at the same time.
type commandQueue struct {
	mu     sync.Mutex
	items  []*request
	closed bool
	signal chan struct{}
}

func newCommandQueue() *commandQueue {
	return &commandQueue{
		items:  make([]*request, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds r to the back of the queue.
// Returns false if the queue is closed.
func (q *commandQueue) Enqueue(r *request) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.items = append(q.items, r)

	// Non-blocking: the buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front request without blocking.
func (q *commandQueue) TryDequeue() (*request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}
	r := q.items[0]
	q.items[0] = nil
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return r, true
}

// Wait returns a channel that fires when requests may be available. It is
// closed, and so always ready, once the queue is closed.
func (q *commandQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of pending requests.
func (q *commandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops accepting requests and wakes the waiter. Idempotent.
func (q *commandQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
