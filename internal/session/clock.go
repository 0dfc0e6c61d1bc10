package session

import (
	"context"
	"sync"
	"time"
)

// Clock is the monotonic countdown for one session. It decrements once
// per interval (one second in production; tests shrink it) and feeds
// tick/expiry signals into the controller's queue. The controller cancels
// the clock's context the instant the session leaves the Testing phase,
// so a late tick can never fire after termination or submission.
type Clock struct {
	interval time.Duration

	mu        sync.Mutex
	remaining int
}

func newClock(seconds int, interval time.Duration) *Clock {
	return &Clock{interval: interval, remaining: seconds}
}

// Remaining returns the seconds left, floored at zero.
func (c *Clock) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

func (c *Clock) tick() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.remaining > 0 {
		c.remaining--
	}
	return c.remaining
}

// Run counts down until zero or cancellation. On reaching zero it emits
// one expiry signal and returns; holding at zero is the controller's
// concern (auto-submit off keeps the session answerable past zero).
func (c *Clock) Run(ctx context.Context, signals chan<- signal) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rem := c.tick()

			select {
			case signals <- signal{kind: sigTick, remaining: rem}:
			case <-ctx.Done():
				return
			}

			if rem <= 0 {
				select {
				case signals <- signal{kind: sigExpired}:
				case <-ctx.Done():
				}
				return
			}
		}
	}
}
