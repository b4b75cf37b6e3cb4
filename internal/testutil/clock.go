package testutil

import (
	"sync"
	"time"
)

// DefaultStart is the wall time FixedClock starts at when given the zero time:
// 2024-06-01 10:00:00 UTC.
var DefaultStart = time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC)

// FixedClock is a deterministic wall clock for tests.
//
// Each call to Now returns the current instant and then advances it by the
// configured step, so consecutive point timestamps are distinct and
// reproducible. Implements scoring.Clock.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FixedClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewFixedClock creates a clock starting at start that advances by step on
// every Now call. A zero start uses DefaultStart; a zero step freezes time.
func NewFixedClock(start time.Time, step time.Duration) *FixedClock {
	if start.IsZero() {
		start = DefaultStart
	}
	return &FixedClock{now: start, step: step}
}

// Now returns the current instant, then advances the clock by step.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Peek returns the current instant without advancing.
func (c *FixedClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
