package kernel

import (
	"sync"
	"time"
)

// Clock supplies the current instant to the engine. OffsetDays is the
// non-production "test offset": the number of extra days added to the
// pickup instant of newly created orders. It never takes part in deadline
// arithmetic.
type Clock interface {
	Now() time.Time
	OffsetDays() int
}

// SystemClock reads the wall clock.
type SystemClock struct {
	offsetDays int
}

// NewSystemClock returns a wall clock with the given test offset. Callers
// pass 0 in production.
func NewSystemClock(offsetDays int) SystemClock {
	return SystemClock{offsetDays: offsetDays}
}

func (c SystemClock) Now() time.Time {
	return time.Now()
}

func (c SystemClock) OffsetDays() int {
	return c.offsetDays
}

// FixedClock is a settable clock for deterministic tests and replays.
// It is safe for concurrent use.
type FixedClock struct {
	mu         sync.Mutex
	now        time.Time
	offsetDays int
}

func NewFixedClock(now time.Time) *FixedClock {
	return &FixedClock{now: now}
}

func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FixedClock) OffsetDays() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offsetDays
}

// Set moves the clock to now.
func (c *FixedClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// SetOffsetDays changes the test offset.
func (c *FixedClock) SetOffsetDays(days int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offsetDays = days
}
