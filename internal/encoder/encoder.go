// Package encoder turns raw mechanical input levels into clean events: signed
// steps from a quadrature rotary encoder and debounced edges from a button.
package encoder

import "github.com/cybre/clap-lamp/internal/tick"

// transitions is indexed by last<<2 | current, where each reading is the
// two-bit value A<<1 | B. Single Gray-code steps yield ±1; no change, double
// steps and bounce yield 0.
var transitions = [16]int8{0, -1, 1, 0, 1, 0, 0, -1, -1, 0, 0, 1, 0, 1, -1, 0}

// Decoder decodes one quadrature encoder. The zero value is ready to use and
// assumes both lines were low at startup.
type Decoder struct {
	last uint8
}

// Reading packs two line levels into the two-bit value used by the table.
func Reading(a, b bool) uint8 {
	var r uint8
	if a {
		r |= 2
	}
	if b {
		r |= 1
	}
	return r
}

// Transition returns the step for a move from last to curr.
func Transition(last, curr uint8) int8 {
	return transitions[(last&3)<<2|curr&3]
}

// Step consumes the current levels of lines A and B and returns -1, 0 or +1.
func (d *Decoder) Step(a, b bool) int8 {
	curr := Reading(a, b)
	step := Transition(d.last, curr)
	d.last = curr
	return step
}

// ButtonDebounce is how long after an accepted edge further edges are ignored.
const ButtonDebounce = 20

// Button filters an active-low push button.
type Button struct {
	pressed    bool
	lastChange tick.Tick
}

// Poll returns -1 when the button goes down, +1 when it is released and 0
// otherwise. Changes within ButtonDebounce ms of the previous accepted change
// are ignored and picked up on a later poll if the level persists.
func (b *Button) Poll(level bool, now tick.Tick) int8 {
	pressed := !level
	if pressed == b.pressed {
		return 0
	}
	if tick.Since(now, b.lastChange) < ButtonDebounce {
		return 0
	}
	b.pressed = pressed
	b.lastChange = now
	if pressed {
		return -1
	}
	return 1
}
