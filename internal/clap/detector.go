// Package clap detects double claps in a stream of raw microphone readings.
package clap

import (
	"log/slog"

	"github.com/cybre/clap-lamp/internal/tick"
	"github.com/cybre/clap-lamp/internal/utils"
)

// State is the position of the detector in a double-clap cycle.
type State int

const (
	// NoClap waits for a first clap.
	NoClap State = iota
	// FirstClap has seen one clap and waits for the second.
	FirstClap
	// DoubleClap has seen two claps and waits to be sure no touch follows.
	DoubleClap
)

// String returns a human-friendly name for the state.
func (s State) String() string {
	switch s {
	case NoClap:
		return "no-clap"
	case FirstClap:
		return "first-clap"
	case DoubleClap:
		return "double-clap"
	default:
		return "unknown"
	}
}

// Options tunes the Detector. Zero fields take the defaults below; all
// durations are in ticks.
type Options struct {
	// TouchGuard suppresses detection for this long after a manual control
	// was touched. Default 500.
	TouchGuard uint32
	// InterMin and InterMax bound the gap between the two claps.
	// Defaults 200 and 700.
	InterMin uint32
	InterMax uint32
	// ConfirmDelay is how long after the second clap the event fires,
	// giving a touch time to cancel it. Default 100.
	ConfirmDelay uint32
	// Threshold is the distance from the running average that counts as a
	// clap, on the 0..1023 ADC scale. Default 300.
	Threshold int
}

// WithDefaults fills zero fields with the defaults.
func (o Options) WithDefaults() Options {
	if o.TouchGuard == 0 {
		o.TouchGuard = 500
	}
	if o.InterMin == 0 {
		o.InterMin = 200
	}
	if o.InterMax == 0 {
		o.InterMax = 700
	}
	if o.ConfirmDelay == 0 {
		o.ConfirmDelay = 100
	}
	if o.Threshold <= 0 {
		o.Threshold = 300
	}
	return o
}

// Detector runs the double-clap state machine over a running average of the
// microphone level.
type Detector struct {
	opts   Options
	logger *slog.Logger

	avg      RunningAverage
	state    State
	lastClap tick.Tick
}

// NewDetector returns a detector in the NoClap state with an empty average.
func NewDetector(opts Options, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{opts: opts.WithDefaults(), logger: logger}
}

// Options returns the effective options.
func (d *Detector) Options() Options {
	return d.opts
}

// Calibrate seeds the running average with the mean of samples, typically a
// quiet burst taken at startup.
func (d *Detector) Calibrate(samples []uint16) {
	d.avg.Seed(samples)
	d.logger.Debug("microphone calibrated", slog.Int("average", int(d.avg.Level())))
}

// State returns the current state.
func (d *Detector) State() State {
	return d.state
}

// Average returns the current running average level.
func (d *Detector) Average() uint16 {
	return d.avg.Level()
}

// Process consumes one reading taken at now. lastTouch is the most recent
// tick at which a manual control moved. It returns true exactly once per
// confirmed double clap.
func (d *Detector) Process(reading uint16, now, lastTouch tick.Tick) bool {
	d.avg.Update(reading)

	if tick.Since(now, lastTouch) < d.opts.TouchGuard {
		d.setState(NoClap, now)
		return false
	}

	detected := utils.Abs(int(reading)-int(d.avg.Level())) >= d.opts.Threshold
	elapsed := tick.Since(now, d.lastClap)

	switch d.state {
	case NoClap:
		if detected {
			d.setState(FirstClap, now)
			d.lastClap = now
		}
	case FirstClap:
		switch {
		case elapsed < d.opts.InterMin:
		case elapsed < d.opts.InterMax:
			if detected {
				d.setState(DoubleClap, now)
				d.lastClap = now
			}
		default:
			d.setState(NoClap, now)
		}
	case DoubleClap:
		if elapsed > d.opts.ConfirmDelay {
			d.setState(NoClap, now)
			d.logger.Debug("double clap confirmed", slog.Uint64("tick", uint64(now)))
			return true
		}
	}
	return false
}

func (d *Detector) setState(s State, now tick.Tick) {
	if d.state == s {
		return
	}
	d.logger.Debug("clap state",
		slog.String("from", d.state.String()),
		slog.String("to", s.String()),
		slog.Uint64("tick", uint64(now)),
	)
	d.state = s
}
