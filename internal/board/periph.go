package board

import (
	"github.com/rotisserie/eris"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/host/v3"

	"github.com/cybre/clap-lamp/internal/lamp"
)

// Pins names the GPIO lines of the lamp's controls.
type Pins struct {
	Button      string `yaml:"button"`
	BrightnessA string `yaml:"brightness_a"`
	BrightnessB string `yaml:"brightness_b"`
	HueA        string `yaml:"hue_a"`
	HueB        string `yaml:"hue_b"`
}

// Periph holds the controls of a lamp wired to a periph.io supported host.
type Periph struct {
	Button     *Button
	Brightness *Encoder
	Hue        *Encoder
}

// InitHost loads the periph.io host drivers.
func InitHost() error {
	if _, err := host.Init(); err != nil {
		return eris.Wrap(err, "initialize periph host")
	}
	return nil
}

// OpenPeriph opens every control pin. InitHost must have run.
func OpenPeriph(pins Pins) (*Periph, error) {
	names := []string{pins.Button, pins.BrightnessA, pins.BrightnessB, pins.HueA, pins.HueB}
	opened := make([]gpio.PinIO, len(names))
	for i, name := range names {
		p, err := OpenPin(name)
		if err != nil {
			return nil, err
		}
		opened[i] = p
	}
	return &Periph{
		Button:     NewButton(opened[0]),
		Brightness: NewEncoder(opened[1], opened[2]),
		Hue:        NewEncoder(opened[3], opened[4]),
	}, nil
}

func (p *Periph) Inputs(mic lamp.Microphone) lamp.Inputs {
	return lamp.Inputs{
		Button:     p.Button,
		Brightness: p.Brightness,
		Hue:        p.Hue,
		Mic:        mic,
	}
}
