package testfixtures

import (
	"sync"
	"time"

	"github.com/example/training-scheduler/internal/application"
)

// Clock is a manually driven time source for stores, notifications and the
// calendar's "today" marker.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{now: start}
}

// Now returns the clock time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// NowFunc returns Now for injection; a nil clock yields the wall clock.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Today returns the calendar day of the clock time.
func (c *Clock) Today() application.Date {
	return application.DateOf(c.Now())
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// JumpTo moves the clock to noon UTC of day.
func (c *Clock) JumpTo(day application.Date) {
	c.mu.Lock()
	c.now = day.Time(time.UTC).Add(12 * time.Hour)
	c.mu.Unlock()
}
