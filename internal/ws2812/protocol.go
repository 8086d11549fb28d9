// Package ws2812 encodes colours for WS2812B addressable LEDs and sends them
// as one uninterrupted frame.
package ws2812

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/cybre/clap-lamp/internal/color"
)

var ErrInvalidOrder = eris.New("invalid colour order")

// Timing is the one-wire protocol contract: how long the line stays high and
// low for each bit value, and how long it must idle low to latch a frame.
type Timing struct {
	T0H, T0L time.Duration
	T1H, T1L time.Duration
	Reset    time.Duration
}

// DefaultTiming is what the lamp's 20 MHz firmware emits, within WS2812B
// tolerance (±150 ns).
var DefaultTiming = Timing{
	T0H:   300 * time.Nanosecond,
	T0L:   750 * time.Nanosecond,
	T1H:   650 * time.Nanosecond,
	T1L:   400 * time.Nanosecond,
	Reset: 280 * time.Microsecond,
}

// BitCycles is a Timing expressed in CPU cycles.
type BitCycles struct {
	T0H, T0L int
	T1H, T1L int
}

// Cycles converts the timing to whole CPU cycles at clockHz, rounding to the
// nearest cycle.
func (t Timing) Cycles(clockHz int64) BitCycles {
	conv := func(d time.Duration) int {
		return int((int64(d)*clockHz + int64(time.Second)/2) / int64(time.Second))
	}
	return BitCycles{
		T0H: conv(t.T0H), T0L: conv(t.T0L),
		T1H: conv(t.T1H), T1L: conv(t.T1L),
	}
}

// BitPeriod returns the duration of one encoded bit of value v.
func (t Timing) BitPeriod(v bool) time.Duration {
	if v {
		return t.T1H + t.T1L
	}
	return t.T0H + t.T0L
}

// Order is the byte order a strip expects per LED, e.g. "GRB".
type Order [3]byte

var (
	// GRB is the order of WS2812B parts.
	GRB = Order{'G', 'R', 'B'}
	// RGB passes colours through unchanged, for drivers that reorder
	// themselves.
	RGB = Order{'R', 'G', 'B'}
)

// ParseOrder validates a colour order string: a permutation of R, G and B.
func ParseOrder(s string) (Order, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != 3 || !strings.ContainsRune(s, 'R') || !strings.ContainsRune(s, 'G') || !strings.ContainsRune(s, 'B') {
		return Order{}, eris.Wrapf(ErrInvalidOrder, "%q", s)
	}
	return Order{s[0], s[1], s[2]}, nil
}

func (o Order) String() string {
	return string(o[:])
}

// Put writes c into dst in wire order.
func (o Order) Put(dst []byte, c color.RGB) {
	for i, ch := range o {
		switch ch {
		case 'R':
			dst[i] = c.R
		case 'G':
			dst[i] = c.G
		default:
			dst[i] = c.B
		}
	}
}

// Frame lays pixels out back to back in wire order.
func Frame(pixels []color.RGB, order Order) []byte {
	frame := make([]byte, len(pixels)*3)
	for i, px := range pixels {
		order.Put(frame[i*3:], px)
	}
	return frame
}

// Pulse is one encoded bit: a high phase followed by a low phase.
type Pulse struct {
	High, Low time.Duration
}

// Waveform expands frame into the exact pulse train on the data line, most
// significant bit first.
func Waveform(frame []byte, t Timing) []Pulse {
	out := make([]Pulse, 0, len(frame)*8)
	for _, v := range frame {
		for bit := 7; bit >= 0; bit-- {
			if v&(1<<bit) != 0 {
				out = append(out, Pulse{High: t.T1H, Low: t.T1L})
			} else {
				out = append(out, Pulse{High: t.T0H, Low: t.T0L})
			}
		}
	}
	return out
}

// Duration returns how long a frame of n bytes occupies the line, excluding
// the latch.
func (t Timing) Duration(frame []byte) time.Duration {
	var d time.Duration
	for _, v := range frame {
		for bit := 7; bit >= 0; bit-- {
			d += t.BitPeriod(v&(1<<bit) != 0)
		}
	}
	return d
}
