package engine

// Clock is the run's logical clock.
//
// Every emitted event is stamped with the next value, so a trace can be
// ordered without wall-clock time. Two runs of the same program produce the
// same stamps.
//
// Not safe for concurrent use; it belongs to one Control.
type Clock struct {
	seq int64
}

// NewClock creates a clock starting at 0. The first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock whose next value is start+1.
func NewClockAt(start int64) *Clock {
	return &Clock{seq: start}
}

// Next advances the clock and returns the new value.
func (c *Clock) Next() int64 {
	c.seq++
	return c.seq
}

// Current returns the last value handed out.
func (c *Clock) Current() int64 {
	return c.seq
}
