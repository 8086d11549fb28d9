// Package lamp wires the input filters, clap detector, config store and LED
// strip into the single polling loop that runs once per tick.
package lamp

import (
	"context"
	"log/slog"

	"github.com/rotisserie/eris"

	"github.com/cybre/clap-lamp/internal/clap"
	"github.com/cybre/clap-lamp/internal/color"
	"github.com/cybre/clap-lamp/internal/encoder"
	"github.com/cybre/clap-lamp/internal/settings"
	"github.com/cybre/clap-lamp/internal/tick"
)

const (
	// settleTicks is how long the microphone settles after power-up before
	// calibration starts.
	settleTicks = 500
	// calibrationSamples is the number of readings, one per tick, averaged to
	// seed the clap detector.
	calibrationSamples = 256
)

// Microphone returns a raw 10-bit reading of the audio line.
type Microphone interface {
	SampleRaw() uint16
}

// EncoderLines returns the A and B levels of a rotary encoder.
type EncoderLines interface {
	Levels() (a, b bool)
}

// ButtonLine returns the level of an active-low push button.
type ButtonLine interface {
	Level() bool
}

// LEDs shows a colour on every LED of the lamp.
type LEDs interface {
	Fill(c color.RGB) error
}

// Inputs groups the lamp's physical controls.
type Inputs struct {
	Button     ButtonLine
	Brightness EncoderLines
	Hue        EncoderLines
	Mic        Microphone
}

// Status is a snapshot of the lamp after a pass.
type Status struct {
	Tick       tick.Tick
	Config     settings.Config
	Color      color.RGB
	ClapState  clap.State
	MicLevel   uint16
	MicAverage uint16
	LastTouch  tick.Tick
	Claps      uint64
	Refreshes  uint64
	Dirty      bool
	Writes     uint64
}

// Lamp owns all per-pass state. It is driven from one goroutine only.
type Lamp struct {
	clock    *tick.Clock
	store    *settings.Store
	detector *clap.Detector
	inputs   Inputs
	leds     LEDs
	logger   *slog.Logger

	button     encoder.Button
	brightness encoder.Decoder
	hue        encoder.Decoder

	lastTouch tick.Tick
	micLevel  uint16
	claps     uint64

	displayed    bool
	displayedRev uint64
	failedRev    uint64
	shown        color.RGB
	refreshes    uint64

	observer func(Status)
}

// New assembles a lamp. observer, if not nil, receives a Status after every
// pass.
func New(
	clock *tick.Clock,
	store *settings.Store,
	detector *clap.Detector,
	inputs Inputs,
	leds LEDs,
	logger *slog.Logger,
	observer func(Status),
) *Lamp {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lamp{
		clock:    clock,
		store:    store,
		detector: detector,
		inputs:   inputs,
		leds:     leds,
		logger:   logger,
		observer: observer,
	}
}

// Start loads the persisted config, lights the LEDs to match, lets the
// microphone settle and calibrates the clap detector.
func (l *Lamp) Start(ctx context.Context) error {
	l.store.Load()
	l.refresh()

	start := l.clock.Now()
	now := start
	for tick.Since(now, start) < settleTicks {
		var err error
		if now, err = l.clock.Wait(ctx, now); err != nil {
			return eris.Wrap(err, "wait for microphone to settle")
		}
	}

	samples := make([]uint16, 0, calibrationSamples)
	for len(samples) < calibrationSamples {
		samples = append(samples, l.inputs.Mic.SampleRaw())
		var err error
		if now, err = l.clock.Wait(ctx, now); err != nil {
			return eris.Wrap(err, "calibrate microphone")
		}
	}
	l.detector.Calibrate(samples)

	l.logger.Info("lamp started",
		slog.String("config", l.store.Config().String()),
		slog.Int("mic_average", int(l.detector.Average())),
	)
	return nil
}

// Run waits for each new tick and runs one pass, until ctx is cancelled.
func (l *Lamp) Run(ctx context.Context) error {
	last := l.clock.Now()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		now, err := l.clock.Wait(ctx, last)
		if err != nil {
			return err
		}
		last = now
		l.Pass(now)
	}
}

// Pass runs one full poll at now: button, encoders, microphone, LED refresh
// and config flush, in that order. Every step uses now, even if the clock
// moves on while the pass runs.
func (l *Lamp) Pass(now tick.Tick) {
	if l.touched(l.button.Poll(l.inputs.Button.Level(), now), now) == 1 {
		l.store.Toggle(now)
		l.logger.Info("button toggled lamp", slog.Bool("on", l.store.Config().On))
	}

	l.store.AdjustBrightness(l.touched(l.brightness.Step(l.inputs.Brightness.Levels()), now), now)
	l.store.AdjustHue(l.touched(l.hue.Step(l.inputs.Hue.Levels()), now), now)

	l.micLevel = l.inputs.Mic.SampleRaw()
	if l.detector.Process(l.micLevel, now, l.lastTouch) {
		l.claps++
		l.store.Toggle(now)
		l.logger.Info("double clap toggled lamp", slog.Bool("on", l.store.Config().On))
	}

	l.refresh()
	l.store.FlushIfDue(now)

	if l.observer != nil {
		l.observer(l.Status(now))
	}
}

// Status returns a snapshot of the lamp at now.
func (l *Lamp) Status(now tick.Tick) Status {
	return Status{
		Tick:       now,
		Config:     l.store.Config(),
		Color:      l.shown,
		ClapState:  l.detector.State(),
		MicLevel:   l.micLevel,
		MicAverage: l.detector.Average(),
		LastTouch:  l.lastTouch,
		Claps:      l.claps,
		Refreshes:  l.refreshes,
		Dirty:      l.store.Dirty(),
		Writes:     l.store.Writes(),
	}
}

// touched records manual activity and passes the delta through.
func (l *Lamp) touched(delta int8, now tick.Tick) int8 {
	if delta != 0 {
		l.lastTouch = now
	}
	return delta
}

// refresh re-sends the colour only when the config changed since the LEDs
// were last updated.
func (l *Lamp) refresh() {
	rev := l.store.Revision()
	if l.displayed && l.displayedRev == rev {
		return
	}

	cfg := l.store.Config()
	c := color.Render(cfg.On, cfg.Brightness, cfg.Hue)
	if err := l.leds.Fill(c); err != nil {
		if l.failedRev != rev {
			l.failedRev = rev
			l.logger.Warn("failed to refresh LEDs", slog.Any("error", err))
		}
		l.displayed = false
		return
	}

	l.shown = c
	l.displayed = true
	l.displayedRev = rev
	l.refreshes++
}
