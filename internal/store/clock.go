package store

import (
	"sync"
	"time"
)

// Clock hands out creation timestamps that never go backwards, even when the
// wall clock does.
type Clock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

// NewClock returns a Clock reading from now, or time.Now when now is nil.
func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

// Stamp returns the current time, or the previously returned time if the
// clock moved backwards. Monotonic readings are stripped so values compare
// equal after a round trip through a backend.
func (c *Clock) Stamp() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Round(0).Truncate(time.Millisecond)
	if t.Before(c.last) {
		t = c.last
	}
	c.last = t
	return t
}

// Assign sets msg.CreatedAt from the clock unless it is already set.
func (c *Clock) Assign(msg *Message) {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = c.Stamp()
	}
}
