package heuristic

// Clock stamps journal entries with a strictly increasing sequence number.
//
// Decisions are ordered by this logical clock, never by wall time, so two
// runs over the same graph produce identical journals.
//
// Clock is not safe for concurrent use; one Heuristic owns one Clock.
type Clock struct {
	seq int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock that resumes after start. Used when several
// heuristic instances of one fixpoint run share a journal.
func NewClockAt(start int64) *Clock {
	return &Clock{seq: start}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	c.seq++
	return c.seq
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq
}
