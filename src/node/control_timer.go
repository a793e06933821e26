package node

import (
	"time"
)

type timerFactory func(time.Duration) <-chan time.Time

// ControlTimer produces the ticks of the control loop. A tick is only re-armed
// once the previous one has been received, so ticks never overlap.
type ControlTimer struct {
	timerFactory timerFactory
	tickCh       chan time.Time //sends a signal to listening process
	shutdownCh   chan struct{}  //receives instruction to exit Run loop
}

// NewControlTimer creates a ControlTimer with the given timer factory.
func NewControlTimer(timerFactory timerFactory) *ControlTimer {
	return &ControlTimer{
		timerFactory: timerFactory,
		tickCh:       make(chan time.Time),
		shutdownCh:   make(chan struct{}),
	}
}

// NewFixedControlTimer creates a ControlTimer that ticks at a fixed interval.
func NewFixedControlTimer() *ControlTimer {
	fixedTimeout := func(d time.Duration) <-chan time.Time {
		if d <= 0 {
			return nil
		}
		return time.After(d)
	}
	return NewControlTimer(fixedTimeout)
}

// Run ticks every interval until Shutdown is called.
func (c *ControlTimer) Run(interval time.Duration) {
	timer := c.timerFactory(interval)
	for {
		select {
		case t := <-timer:
			select {
			case c.tickCh <- t:
			case <-c.shutdownCh:
				return
			}
			timer = c.timerFactory(interval)
		case <-c.shutdownCh:
			return
		}
	}
}

// Shutdown terminates the Run loop.
func (c *ControlTimer) Shutdown() {
	close(c.shutdownCh)
}
