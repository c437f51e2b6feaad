package core

import "time"

// Clock is the time source used for software-timed pulse emission.
// Implementations busy-wait; there is no hardware timer behind it.
type Clock interface {
	// DelayMicros blocks for us microseconds. Non-positive values return at once.
	DelayMicros(us int)

	// NowMicros returns a monotonic timestamp in microseconds.
	NowMicros() int64
}

// spinThreshold is the longest delay RealClock spins for; longer delays sleep first.
const spinThreshold = 2 * time.Millisecond

// RealClock delays against the wall clock.
type RealClock struct {
	start time.Time
}

// NewRealClock creates a clock whose timestamps start at zero now
func NewRealClock() *RealClock {
	return &RealClock{start: time.Now()}
}

// DelayMicros busy-waits for short delays and sleeps through the bulk of long ones
func (c *RealClock) DelayMicros(us int) {
	if us <= 0 {
		return
	}
	d := time.Duration(us) * time.Microsecond
	deadline := time.Now().Add(d)
	if d > spinThreshold {
		time.Sleep(d - spinThreshold)
	}
	for time.Now().Before(deadline) {
	}
}

// NowMicros returns microseconds since the clock was created
func (c *RealClock) NowMicros() int64 {
	return time.Since(c.start).Microseconds()
}

// SimClock is a virtual clock: delays advance time instantly.
// Used for dry runs on the host and in tests.
type SimClock struct {
	now int64
}

// NewSimClock creates a virtual clock at time zero
func NewSimClock() *SimClock {
	return &SimClock{}
}

// DelayMicros advances virtual time
func (c *SimClock) DelayMicros(us int) {
	if us > 0 {
		c.now += int64(us)
	}
}

// NowMicros returns the virtual time
func (c *SimClock) NowMicros() int64 {
	return c.now
}

// Elapsed returns the virtual time as a duration
func (c *SimClock) Elapsed() time.Duration {
	return time.Duration(c.now) * time.Microsecond
}
