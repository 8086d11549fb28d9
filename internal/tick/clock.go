// Package tick provides the millisecond time base shared by the polling loop
// and the timer interrupt.
package tick

import (
	"context"
	"sync/atomic"
	"time"
)

// Tick is a count of milliseconds since boot. It wraps after 2^32 ms.
type Tick uint32

// Period is the nominal interval between two timer interrupts.
const Period = time.Millisecond

// Since returns the number of ticks from then to now. Unsigned subtraction
// keeps the result correct across a counter wrap.
func Since(now, then Tick) uint32 {
	return uint32(now - then)
}

// Clock is the interrupt-driven millisecond counter. ISR is the only writer;
// everything else reads it through Now.
type Clock struct {
	count  atomic.Uint32
	notify chan struct{}
}

// NewClock returns a clock starting at start.
func NewClock(start Tick) *Clock {
	c := &Clock{notify: make(chan struct{}, 1)}
	c.count.Store(uint32(start))
	return c
}

// Now returns the current tick. The load is atomic so a read racing an
// increment never observes a torn value.
func (c *Clock) Now() Tick {
	return Tick(c.count.Load())
}

// ISR advances the counter by one and wakes a waiting loop. It runs in
// constant time and touches nothing but the counter.
func (c *Clock) ISR() {
	c.count.Add(1)
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// Wait blocks until the counter differs from last and returns the new value.
func (c *Clock) Wait(ctx context.Context, last Tick) (Tick, error) {
	for {
		if now := c.Now(); now != last {
			return now, nil
		}
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-c.notify:
		}
	}
}
