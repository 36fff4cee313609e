package board

import (
	"sync"
	"time"
)

// Clock issues commit timestamps in milliseconds, monotonic per client even
// when the wall clock stalls or steps backwards.
type Clock struct {
	mu   sync.Mutex
	last int64
}

// Tick returns the next commit timestamp.
func (c *Clock) Tick() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now().UnixMilli()
	if now <= c.last {
		now = c.last + 1
	}
	c.last = now
	return now
}

// Observe advances the clock past a timestamp seen on a remote action, so
// later local commits sort after it on this client.
func (c *Clock) Observe(ts int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ts > c.last {
		c.last = ts
	}
}
