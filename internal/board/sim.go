package board

import (
	"sync/atomic"
	"time"

	"github.com/cybre/clap-lamp/internal/lamp"
	"github.com/cybre/clap-lamp/internal/utils"
	"github.com/cybre/clap-lamp/internal/ws2812"
)

const (
	// SimClapLevel is what the simulated microphone reads during a clap.
	SimClapLevel = 1000
	// SimClapSamples is how many consecutive readings one clap lasts.
	SimClapSamples = 3
	// SimTapHold is how long a tap holds the button down, longer than the
	// debounce interval.
	SimTapHold = 60 * time.Millisecond
)

// gray is the quadrature sequence that decodes as one forward step per move.
var gray = [4][2]bool{{false, false}, {true, false}, {true, true}, {false, true}}

// SimButton is a push button driven from the keyboard.
type SimButton struct {
	pressed atomic.Bool
}

func (b *SimButton) Level() bool {
	return !b.pressed.Load()
}

// Set presses or releases the button.
func (b *SimButton) Set(pressed bool) {
	b.pressed.Store(pressed)
}

// SimEncoder walks the quadrature sequence one state per detent.
type SimEncoder struct {
	pos atomic.Int32
}

// Turn moves steps states forward, or backward when negative.
func (e *SimEncoder) Turn(steps int) {
	e.pos.Add(int32(steps))
}

func (e *SimEncoder) Levels() (bool, bool) {
	s := gray[utils.WrapIndex(e.pos.Load(), 4)]
	return s[0], s[1]
}

// SimMic reads a steady quiet level, with short loud bursts on Clap.
type SimMic struct {
	quiet   uint16
	pending atomic.Int32
}

func NewSimMic(quiet uint16) *SimMic {
	return &SimMic{quiet: quiet}
}

// Clap makes the next SimClapSamples readings loud.
func (m *SimMic) Clap() {
	m.pending.Store(SimClapSamples)
}

func (m *SimMic) SampleRaw() uint16 {
	for {
		n := m.pending.Load()
		if n <= 0 {
			return m.quiet
		}
		if m.pending.CompareAndSwap(n, n-1) {
			return SimClapLevel
		}
	}
}

// Sim is a keyboard-driven stand-in for the lamp's hardware. Frames sent to
// the LEDs are kept in Strip.
type Sim struct {
	Button     SimButton
	Brightness SimEncoder
	Hue        SimEncoder
	Mic        *SimMic
	Strip      ws2812.Recorder
}

func NewSim() *Sim {
	return &Sim{Mic: NewSimMic(MicMid)}
}

// Inputs returns the simulated controls. mic replaces the simulated
// microphone when not nil.
func (s *Sim) Inputs(mic lamp.Microphone) lamp.Inputs {
	if mic == nil {
		mic = s.Mic
	}
	return lamp.Inputs{
		Button:     &s.Button,
		Brightness: &s.Brightness,
		Hue:        &s.Hue,
		Mic:        mic,
	}
}

// Tap presses the button and releases it after SimTapHold.
func (s *Sim) Tap() {
	s.Button.Set(true)
	time.AfterFunc(SimTapHold, func() { s.Button.Set(false) })
}

func (s *Sim) TurnBrightness(steps int) {
	s.Brightness.Turn(steps)
}

func (s *Sim) TurnHue(steps int) {
	s.Hue.Turn(steps)
}

func (s *Sim) Clap() {
	s.Mic.Clap()
}
