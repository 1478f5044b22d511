package syncengine

import (
	"sync/atomic"
	"time"

	"github.com/erauner12/finsync-api/internal/syncx"
)

// Clock hands out strictly increasing millisecond timestamps even if the
// wall clock stalls or steps backwards.
type Clock struct {
	now  func() time.Time
	last atomic.Int64
}

func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

// Now returns max(wall clock, previous + 1ms)
func (c *Clock) Now() syncx.Millis {
	for {
		prev := c.last.Load()
		next := int64(syncx.FromTime(c.now()))
		if next <= prev {
			next = prev + 1
		}
		if c.last.CompareAndSwap(prev, next) {
			return syncx.Millis(next)
		}
	}
}

// Wall returns the unadjusted wall clock
func (c *Clock) Wall() time.Time {
	return c.now()
}
