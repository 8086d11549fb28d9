// Package board adapts real and simulated hardware to the lamp's input lines
// and LED transmitter.
package board

import (
	"github.com/rotisserie/eris"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

var ErrPinNotFound = eris.New("gpio pin not found")

// OpenPin looks a pin up by name (e.g. "GPIO17") and configures it as a
// pulled-up input.
func OpenPin(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, eris.Wrapf(ErrPinNotFound, "%q", name)
	}
	if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, eris.Wrapf(err, "configure %s as input", name)
	}
	return p, nil
}

// Button reads an active-low push button.
type Button struct {
	pin gpio.PinIn
}

func NewButton(pin gpio.PinIn) *Button {
	return &Button{pin: pin}
}

// Level reports true while the line is high, i.e. released.
func (b *Button) Level() bool {
	return b.pin.Read() == gpio.High
}

// Encoder reads the two quadrature lines of a rotary encoder.
type Encoder struct {
	a, b gpio.PinIn
}

func NewEncoder(a, b gpio.PinIn) *Encoder {
	return &Encoder{a: a, b: b}
}

func (e *Encoder) Levels() (bool, bool) {
	return e.a.Read() == gpio.High, e.b.Read() == gpio.High
}
