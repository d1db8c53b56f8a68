package testfixtures

import (
	"sync"
	"time"

	"github.com/example/bizdesk/internal/daytime"
)

// Clock is a manually driven time source shared by the store and the
// availability engine in tests.
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

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// NowFunc adapts the clock to the now hooks of StoreConfig and NewEngine.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Advance moves the clock by d and returns the new instant.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// AdvanceDays moves the clock by whole calendar days.
func (c *Clock) AdvanceDays(days int) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.AddDate(0, 0, days)
	return c.now
}

// At moves the clock to a "YYYY-MM-DD" date and "HH:MM" time in UTC.
func (c *Clock) At(date, clock string) error {
	day, err := daytime.ParseDate(date, time.UTC)
	if err != nil {
		return err
	}
	minutes, err := daytime.ParseClock(clock)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = day.Add(time.Duration(minutes) * time.Minute)
	return nil
}

// Today is the clock's calendar day in UTC.
func (c *Clock) Today() string {
	return daytime.FormatDate(c.Now().UTC())
}
