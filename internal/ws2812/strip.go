package ws2812

import (
	"sync"

	"github.com/rotisserie/eris"

	"github.com/cybre/clap-lamp/internal/color"
)

// DefaultCount is the number of LEDs in the lamp.
const DefaultCount = 8

// Transmitter puts one encoded-ready frame on the data line.
type Transmitter interface {
	Transmit(frame []byte) error
}

// Masker disables preemption around the transmission.
type Masker interface {
	Disable()
	Enable()
}

// Strip drives a fixed-length chain of LEDs.
type Strip struct {
	count int
	order Order
	irq   Masker
	tx    Transmitter
}

// NewStrip returns a strip of count LEDs in the given byte order.
func NewStrip(count int, order Order, irq Masker, tx Transmitter) *Strip {
	if count <= 0 {
		count = DefaultCount
	}
	return &Strip{count: count, order: order, irq: irq, tx: tx}
}

// Count returns the number of LEDs.
func (s *Strip) Count() int {
	return s.count
}

// Fill shows the same colour on every LED.
func (s *Strip) Fill(c color.RGB) error {
	pixels := make([]color.RGB, s.count)
	for i := range pixels {
		pixels[i] = c
	}
	return s.Show(pixels)
}

// Show sends one colour per LED as a single contiguous frame. Interrupts are
// masked for exactly the duration of the transmission.
func (s *Strip) Show(pixels []color.RGB) error {
	if len(pixels) != s.count {
		return eris.Errorf("got %d pixels for a strip of %d", len(pixels), s.count)
	}
	frame := Frame(pixels, s.order)

	if err := s.transmit(frame); err != nil {
		return eris.Wrap(err, "transmit frame")
	}
	return nil
}

func (s *Strip) transmit(frame []byte) error {
	s.irq.Disable()
	defer s.irq.Enable()
	return s.tx.Transmit(frame)
}

// Recorder is a Transmitter that keeps the frames it was given, for the
// simulator and tests.
type Recorder struct {
	mu     sync.Mutex
	frames [][]byte
	during func()
}

// OnTransmit registers fn to run inside every transmission.
func (r *Recorder) OnTransmit(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.during = fn
}

// Transmit records a copy of frame.
func (r *Recorder) Transmit(frame []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.during != nil {
		r.during()
	}
	r.frames = append(r.frames, append([]byte(nil), frame...))
	return nil
}

// Frames returns the number of frames sent so far.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

// Last returns the most recent frame, or nil.
func (r *Recorder) Last() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return nil
	}
	return r.frames[len(r.frames)-1]
}
