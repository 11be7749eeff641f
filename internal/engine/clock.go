package engine

import "sync/atomic"

// Clock is a monotonic logical clock stamping changelog entries.
//
// All ordering in the changelog uses seq numbers from this clock, never
// wall-clock timestamps, so listings are deterministic across runs with
// the same inputs.
//
// Thread-safety: atomic; though the engine's single-writer design means
// only one goroutine typically calls Next().
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0; the first Next() returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
// Callers use it to bracket an operation and inspect just its cascade.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
