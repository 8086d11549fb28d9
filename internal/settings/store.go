// Package settings owns the lamp configuration and its persistence.
package settings

import (
	"log/slog"

	"github.com/rotisserie/eris"

	"github.com/cybre/clap-lamp/internal/tick"
	"github.com/cybre/clap-lamp/internal/utils"
)

// QuietInterval is how long the config must stay unchanged before it is
// written back to storage.
const QuietInterval = 500

// Storage is the block-level persistence primitive.
type Storage interface {
	ReadBlock(offset, size int) ([]byte, error)
	WriteBlock(offset int, data []byte) error
}

// Store holds the live Config and coalesces changes into delayed writes.
// Every mutator takes the tick of the pass that made the change, so a pass
// stamps and flushes against one tick.
type Store struct {
	storage Storage
	logger  *slog.Logger

	cfg        Config
	written    bool
	lastChange tick.Tick
	revision   uint64
	writes     uint64
}

// NewStore constructs a Store holding the default config. Call Load to read
// the persisted one.
func NewStore(storage Storage, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		storage: storage,
		logger:  logger,
		cfg:     Default(),
		written: true,
	}
}

// Load reads the persisted record. Out-of-range fields are replaced by their
// defaults in memory only; storage is not rewritten until the next change.
// Unreadable storage leaves the defaults in place.
func (s *Store) Load() Config {
	rec, err := s.storage.ReadBlock(RecordOffset, RecordSize)
	if err == nil {
		var cfg Config
		cfg, err = UnmarshalRecord(rec)
		if err == nil {
			if cfg.Sanitize() {
				s.logger.Warn("persisted config out of range, using defaults",
					slog.Int("brightness", int(rec[1])),
					slog.Int("hue", int(rec[2])),
				)
			}
			s.cfg = cfg
		}
	}
	if err != nil {
		s.logger.Warn("failed to read persisted config", slog.Any("error", eris.Wrap(err, "load config")))
		s.cfg = Default()
	}

	s.written = true
	s.revision++
	s.logger.Info("config loaded", slog.String("config", s.cfg.String()))
	return s.cfg
}

// Config returns a copy of the live config.
func (s *Store) Config() Config {
	return s.cfg
}

// Dirty reports whether a change has not been persisted yet.
func (s *Store) Dirty() bool {
	return !s.written
}

// Revision increases on every accepted change.
func (s *Store) Revision() uint64 {
	return s.revision
}

// Writes returns the number of successful persistence writes.
func (s *Store) Writes() uint64 {
	return s.writes
}

// SetOn switches the lamp on or off.
func (s *Store) SetOn(on bool, now tick.Tick) {
	if s.cfg.On == on {
		return
	}
	s.cfg.On = on
	s.changed(now)
}

// Toggle flips the on/off state.
func (s *Store) Toggle(now tick.Tick) {
	s.SetOn(!s.cfg.On, now)
}

// AdjustBrightness moves brightness by delta (-1, 0 or +1). Steps that would
// leave [MinBrightness, MaxBrightness] are ignored.
func (s *Store) AdjustBrightness(delta int8, now tick.Tick) {
	if delta != -1 && delta != 1 {
		return
	}
	next := int(s.cfg.Brightness) + int(delta)
	if next < MinBrightness || next > MaxBrightness {
		return
	}
	s.cfg.Brightness = uint8(next)
	s.changed(now)
}

// AdjustHue moves hue by delta (-1, 0 or +1) around the hue ring.
func (s *Store) AdjustHue(delta int8, now tick.Tick) {
	if delta != -1 && delta != 1 {
		return
	}
	s.cfg.Hue = uint8(utils.WrapIndex(int(s.cfg.Hue)+int(delta), HueSteps))
	s.changed(now)
}

// FlushIfDue writes the config once it has been dirty and unchanged for at
// least QuietInterval. A failed write is not retried before another quiet
// interval has passed; the in-memory config stays authoritative. It reports
// whether a write was attempted.
func (s *Store) FlushIfDue(now tick.Tick) bool {
	if s.written || tick.Since(now, s.lastChange) < QuietInterval {
		return false
	}

	if err := s.storage.WriteBlock(RecordOffset, s.cfg.MarshalRecord()); err != nil {
		s.lastChange = now
		s.logger.Warn("failed to persist config", slog.Any("error", eris.Wrap(err, "flush config")))
		return true
	}

	s.written = true
	s.writes++
	s.logger.Debug("config persisted", slog.String("config", s.cfg.String()))
	return true
}

func (s *Store) changed(now tick.Tick) {
	s.lastChange = now
	s.written = false
	s.revision++
}
