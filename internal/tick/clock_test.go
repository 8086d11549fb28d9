package tick

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSinceAcrossWrap(t *testing.T) {
	assert.Equal(t, uint32(10), Since(5, math.MaxUint32-4))
	assert.Equal(t, uint32(500), Since(1500, 1000))
	assert.Equal(t, uint32(0), Since(42, 42))
}

func TestISRIncrementsAndWraps(t *testing.T) {
	c := NewClock(math.MaxUint32)
	c.ISR()
	assert.Equal(t, Tick(0), c.Now())
	c.ISR()
	assert.Equal(t, Tick(1), c.Now())
}

func TestWaitReturnsOnNextTick(t *testing.T) {
	c := NewClock(100)

	go func() {
		time.Sleep(5 * time.Millisecond)
		c.ISR()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	now, err := c.Wait(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, Tick(101), now)
}

func TestWaitReturnsImmediatelyWhenBehind(t *testing.T) {
	c := NewClock(7)
	now, err := c.Wait(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, Tick(7), now)
}

func TestWaitHonoursCancellation(t *testing.T) {
	c := NewClock(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Wait(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
}
