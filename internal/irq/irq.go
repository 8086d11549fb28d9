// Package irq models the single hardware interrupt line the lamp uses: a
// periodic timer whose handler can be held off while timing-critical output
// is in progress.
package irq

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Controller gates interrupt delivery. While interrupts are disabled a raised
// handler waits and runs as soon as they are enabled again, so a masked
// timer interrupt is delayed but never dropped.
type Controller struct {
	mu      sync.Mutex
	masked  atomic.Bool
	delayed atomic.Uint64
}

// Disable masks interrupts. Every Disable must be paired with an Enable.
func (c *Controller) Disable() {
	c.mu.Lock()
	c.masked.Store(true)
}

// Enable unmasks interrupts and lets any pending handler run.
func (c *Controller) Enable() {
	c.masked.Store(false)
	c.mu.Unlock()
}

// Masked reports whether interrupts are currently disabled.
func (c *Controller) Masked() bool {
	return c.masked.Load()
}

// Delayed returns how many handlers had to wait for an Enable.
func (c *Controller) Delayed() uint64 {
	return c.delayed.Load()
}

// Raise delivers an interrupt to handler, waiting while interrupts are masked.
func (c *Controller) Raise(handler func()) {
	if c.masked.Load() {
		c.delayed.Add(1)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	handler()
}

// RunTimer raises handler every period until ctx is cancelled.
func RunTimer(ctx context.Context, c *Controller, period time.Duration, handler func()) error {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Raise(handler)
		}
	}
}
