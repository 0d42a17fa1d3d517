package room

import "time"

// RealClock is the production Clock, backed by the standard library's
// monotonic clock reading (time.Now's monotonic component survives
// through time.Since/Sub even though it's hidden from the wall-clock
// fields).
type RealClock struct{ start time.Time }

// NewRealClock returns a Clock whose MonotonicNs is relative to the
// moment it was constructed.
func NewRealClock() *RealClock {
	return &RealClock{start: time.Now()}
}

func (c *RealClock) NowMs() int64 {
	return time.Now().UnixMilli()
}

func (c *RealClock) MonotonicNs() int64 {
	return int64(time.Since(c.start))
}

func (c *RealClock) SleepNs(ns int64) {
	if ns <= 0 {
		return
	}
	time.Sleep(time.Duration(ns))
}
