package node

import (
	"time"
)

type timerFactory func(time.Duration) <-chan time.Time

// EpochTimer drives the node's epoch loop. It is reset after every tick with
// the time remaining until the next epoch boundary, so that nodes sharing a
// genesis timestamp tick in step.
type EpochTimer struct {
	timerFactory timerFactory
	tickCh       chan struct{}      //sends a signal to listening process
	resetCh      chan time.Duration //receives instruction to reset the timer
	stopCh       chan struct{}      //receives instruction to stop the timer
	shutdownCh   chan struct{}      //receives instruction to exit Run loop
	set          bool
}

// NewEpochTimer creates an EpochTimer with a custom timer factory.
func NewEpochTimer(timerFactory timerFactory) *EpochTimer {
	return &EpochTimer{
		timerFactory: timerFactory,
		tickCh:       make(chan struct{}),
		resetCh:      make(chan time.Duration),
		stopCh:       make(chan struct{}),
		shutdownCh:   make(chan struct{}),
	}
}

// NewWallClockEpochTimer creates an EpochTimer backed by time.After.
func NewWallClockEpochTimer() *EpochTimer {
	return NewEpochTimer(func(d time.Duration) <-chan time.Time {
		if d == 0 {
			return nil
		}
		return time.After(d)
	})
}

// Run enters the timer loop. The first tick fires after init.
func (c *EpochTimer) Run(init time.Duration) {

	setTimer := func(t time.Duration) <-chan time.Time {
		c.set = true
		return c.timerFactory(t)
	}

	timer := setTimer(init)
	for {
		select {
		case <-timer:
			c.tickCh <- struct{}{}
			c.set = false
		case t := <-c.resetCh:
			timer = setTimer(t)
		case <-c.stopCh:
			timer = nil
			c.set = false
		case <-c.shutdownCh:
			c.set = false
			return
		}
	}
}

// Shutdown exits the Run loop.
func (c *EpochTimer) Shutdown() {
	close(c.shutdownCh)
}
