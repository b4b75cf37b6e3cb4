package engine

import (
	"sync/atomic"
	"time"
)

// Clock is the engine's logical clock. Every processed command is stamped
// with the next value, so the outcome order is explicit and never depends
// on wall time.
//
// Wall time is a separate concern: point timestamps and match start/end
// times come from the scoring.Clock handed to each Match.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock that continues after start.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next advances the clock and returns the new value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last value handed out.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// systemClock is the wall clock used when none is configured.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
