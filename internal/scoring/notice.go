package scoring

import "sync"

// NoticeKind distinguishes advisory notices.
type NoticeKind string

const (
	NoticeChangeEnds      NoticeKind = "change_ends"
	NoticeGame            NoticeKind = "game"
	NoticeBreak           NoticeKind = "break"
	NoticeTiebreakStarted NoticeKind = "tiebreak_started"
	NoticeSetWon          NoticeKind = "set_won"
	NoticeMatchWon        NoticeKind = "match_won"
	NoticeRetired         NoticeKind = "retired"
	NoticeSuspended       NoticeKind = "suspended"
	NoticeUndo            NoticeKind = "undo"
)

// Severity controls how prominently a presentation layer shows a notice.
type Severity string

const (
	SeverityNormal Severity = "normal"
	SeverityMajor  Severity = "major"
)

// Notice is a structured advisory record. It never feeds back into State.
type Notice struct {
	Kind     NoticeKind `json:"kind"`
	Severity Severity   `json:"severity"`

	// Player is the subject of the notice (game winner, retiring player, ...).
	// Zero when the notice has no subject.
	Player Player `json:"player,omitempty"`

	// Score is the game score of the set concerned, or the final tiebreak
	// score for a tiebreak game.
	Score *Score `json:"score,omitempty"`

	// Target is the tiebreak target for tiebreak_started.
	Target int `json:"target,omitempty"`

	// Deferred marks a change of ends that applies from the next set.
	Deferred bool `json:"deferred,omitempty"`
}

// DefaultNoticeCapacity bounds a NoticeQueue.
const DefaultNoticeCapacity = 256

// NoticeQueue is a thread-safe bounded FIFO of notices.
//
// When full, Enqueue drops the oldest notice. Notices are advisory, so
// losing one never affects scoring.
//
// The queue uses a channel for signaling to enable context-aware waiting
// by consumers, following the same pattern as the engine command queue.
type NoticeQueue struct {
	mu       sync.Mutex
	notices  []Notice
	capacity int
	dropped  int
	closed   bool
	signal   chan struct{} // buffered, size 1
}

// NewNoticeQueue creates an empty queue. A capacity below 1 falls back to
// DefaultNoticeCapacity.
func NewNoticeQueue(capacity int) *NoticeQueue {
	if capacity < 1 {
		capacity = DefaultNoticeCapacity
	}
	return &NoticeQueue{
		notices:  make([]Notice, 0, 16),
		capacity: capacity,
		signal:   make(chan struct{}, 1),
	}
}

// Enqueue appends n, dropping the oldest notice when the queue is full.
// Returns false if the queue is closed.
func (q *NoticeQueue) Enqueue(n Notice) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	if len(q.notices) >= q.capacity {
		q.notices[0] = Notice{}
		q.notices = q.notices[1:]
		q.dropped++
	}
	q.notices = append(q.notices, n)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front notice without blocking.
func (q *NoticeQueue) TryDequeue() (Notice, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.notices) == 0 {
		return Notice{}, false
	}
	n := q.notices[0]
	q.notices[0] = Notice{}
	if len(q.notices) == 1 {
		q.notices = q.notices[:0]
	} else {
		q.notices = q.notices[1:]
	}
	return n, true
}

// Drain removes and returns every queued notice in order.
func (q *NoticeQueue) Drain() []Notice {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.notices) == 0 {
		return nil
	}
	out := make([]Notice, len(q.notices))
	copy(out, q.notices)
	clear(q.notices)
	q.notices = q.notices[:0]
	return out
}

// Wait returns a channel that signals when notices may be available.
func (q *NoticeQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *NoticeQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.notices)
}

// Dropped returns how many notices were discarded because the queue was full.
func (q *NoticeQueue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Close stops further enqueues and wakes any waiters.
func (q *NoticeQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
