package encoder

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cybre/clap-lamp/internal/tick"
)

func TestTransitionTable(t *testing.T) {
	// Forward Gray sequence 00 -> 01 -> 11 -> 10 -> 00 reads +1 on every
	// edge as laid out in the table.
	forward := map[[2]uint8]bool{{0, 2}: true, {2, 3}: true, {3, 1}: true, {1, 0}: true}
	backward := map[[2]uint8]bool{{0, 1}: true, {1, 3}: true, {3, 2}: true, {2, 0}: true}

	for last := uint8(0); last < 4; last++ {
		for curr := uint8(0); curr < 4; curr++ {
			got := Transition(last, curr)
			assert.Contains(t, []int8{-1, 0, 1}, got)

			key := [2]uint8{last, curr}
			switch {
			case forward[key]:
				assert.Equal(t, int8(1), got, "last=%02b curr=%02b", last, curr)
			case backward[key]:
				assert.Equal(t, int8(-1), got, "last=%02b curr=%02b", last, curr)
			default:
				assert.Equal(t, int8(0), got, "last=%02b curr=%02b", last, curr)
			}
		}
	}
}

// levels for the sequence 00 -> 01 -> 11 -> 10 written as (A, B).
var rotation = [][2]bool{{false, true}, {true, true}, {true, false}, {false, false}}

func TestFullRotationSums(t *testing.T) {
	var d Decoder
	const cycles = 5

	sum := 0
	for range cycles {
		for _, l := range rotation {
			sum += int(d.Step(l[0], l[1]))
		}
	}
	assert.Equal(t, -4*cycles, sum)

	var r Decoder
	sum = 0
	for range cycles {
		for i := len(rotation) - 1; i >= 0; i-- {
			l := rotation[(i+len(rotation)-1)%len(rotation)]
			sum += int(r.Step(l[0], l[1]))
		}
	}
	assert.Equal(t, 4*cycles, sum)
}

func TestBounceIsIgnored(t *testing.T) {
	var d Decoder
	assert.Equal(t, int8(0), d.Step(true, true)) // 00 -> 11 skips a state
	assert.Equal(t, int8(0), d.Step(true, true)) // no change
	assert.Equal(t, int8(0), d.Step(false, false))
}

func TestButtonEdges(t *testing.T) {
	var b Button
	now := tick.Tick(1000)

	assert.Equal(t, int8(0), b.Poll(true, now))
	assert.Equal(t, int8(-1), b.Poll(false, now+1))
	assert.Equal(t, int8(0), b.Poll(false, now+2))
	assert.Equal(t, int8(1), b.Poll(true, now+40))
}

func TestButtonDebounce(t *testing.T) {
	var b Button
	now := tick.Tick(5000)

	assert.Equal(t, int8(-1), b.Poll(false, now))
	// Contact bounce shortly after the press.
	assert.Equal(t, int8(0), b.Poll(true, now+3))
	assert.Equal(t, int8(0), b.Poll(false, now+5))
	assert.Equal(t, int8(0), b.Poll(true, now+19))
	assert.Equal(t, int8(1), b.Poll(true, now+20))
}

func TestButtonDebounceAcrossWrap(t *testing.T) {
	var b Button
	start := tick.Tick(^uint32(0) - 5)

	assert.Equal(t, int8(-1), b.Poll(false, start))
	assert.Equal(t, int8(0), b.Poll(true, start+10))
	assert.Equal(t, int8(1), b.Poll(true, start+25))
}
