package sim

import (
	"sync"
	"time"
)

// Clock is a manual slot clock. Every executed instruction advances it by
// one slot.
type Clock struct {
	mu   sync.Mutex
	slot uint64
	now  time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() (uint64, int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slot, c.now.Unix()
}

// Advance moves the clock forward by slots and d.
func (c *Clock) Advance(slots uint64, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slot += slots
	c.now = c.now.Add(d)
}
