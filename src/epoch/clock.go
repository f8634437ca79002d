// Package epoch maps wall-clock time to consensus epochs. An epoch is a fixed
// window of time during which a single participant is eligible to propose
// blocks. All nodes are configured with the same genesis timestamp and epoch
// duration, so they agree on the current epoch number without communicating.
package epoch

import (
	"time"
)

// DefaultDuration is the epoch length used when none is configured.
const DefaultDuration = 10 * time.Second

// Clock derives monotonically increasing epoch numbers from a fixed genesis
// timestamp and a fixed epoch duration.
type Clock struct {
	genesis  time.Time
	duration time.Duration

	// now is swapped out in tests
	now func() time.Time
}

// NewClock creates a Clock anchored at the given genesis timestamp.
func NewClock(genesis time.Time, duration time.Duration) *Clock {
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Clock{
		genesis:  genesis,
		duration: duration,
		now:      time.Now,
	}
}

// NewClockAt creates a Clock with a custom time source. It is used by tests
// that need to pin or advance the epoch deterministically.
func NewClockAt(genesis time.Time, duration time.Duration, now func() time.Time) *Clock {
	c := NewClock(genesis, duration)
	if now != nil {
		c.now = now
	}
	return c
}

// Genesis returns the genesis timestamp.
func (c *Clock) Genesis() time.Time {
	return c.genesis
}

// Duration returns the epoch length.
func (c *Clock) Duration() time.Duration {
	return c.duration
}

// Current returns the epoch number containing the present instant. The epoch
// containing the genesis timestamp is epoch 0. A clock queried before genesis
// also reports epoch 0.
func (c *Clock) Current() int {
	elapsed := c.now().Sub(c.genesis)
	if elapsed < 0 {
		return 0
	}
	return int(elapsed / c.duration)
}

// NextEpochStart returns the time remaining until the next epoch boundary.
func (c *Clock) NextEpochStart() time.Duration {
	elapsed := c.now().Sub(c.genesis)
	if elapsed < 0 {
		return -elapsed
	}
	return c.duration - (elapsed % c.duration)
}
