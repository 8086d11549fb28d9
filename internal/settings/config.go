package settings

import (
	"fmt"

	"github.com/rotisserie/eris"
)

const (
	// MinBrightness and MaxBrightness bound the brightness setting.
	MinBrightness = 1
	MaxBrightness = 64
	// HueSteps is the size of the hue ring: 6 sectors of 32 steps.
	HueSteps = 192

	// DefaultBrightness replaces an out-of-range persisted brightness.
	DefaultBrightness = 8
	// DefaultHue replaces an out-of-range persisted hue.
	DefaultHue = 0

	// RecordSize is the persisted size of a Config in bytes.
	RecordSize = 3
	// RecordOffset is where the record lives in storage.
	RecordOffset = 0

	flagOn = 1 << 0
)

var ErrShortRecord = eris.New("config record too short")

// Config is the user-visible lamp setting.
type Config struct {
	On         bool
	Brightness uint8
	Hue        uint8
}

// Default is the config used when storage cannot be read.
func Default() Config {
	return Config{On: false, Brightness: DefaultBrightness, Hue: DefaultHue}
}

// Valid reports whether every field is inside its range.
func (c Config) Valid() bool {
	return c.Brightness >= MinBrightness && c.Brightness <= MaxBrightness && c.Hue < HueSteps
}

// Sanitize resets out-of-range fields to their defaults and reports whether
// anything changed.
func (c *Config) Sanitize() bool {
	fixed := false
	if c.Brightness < MinBrightness || c.Brightness > MaxBrightness {
		c.Brightness = DefaultBrightness
		fixed = true
	}
	if c.Hue >= HueSteps {
		c.Hue = DefaultHue
		fixed = true
	}
	return fixed
}

func (c Config) String() string {
	return fmt.Sprintf("on=%t brightness=%d hue=%d", c.On, c.Brightness, c.Hue)
}

// MarshalRecord encodes c into its fixed storage layout:
// byte 0 flags (bit 0 = on), byte 1 brightness, byte 2 hue.
func (c Config) MarshalRecord() []byte {
	rec := make([]byte, RecordSize)
	if c.On {
		rec[0] |= flagOn
	}
	rec[1] = c.Brightness
	rec[2] = c.Hue
	return rec
}

// UnmarshalRecord decodes a stored record without validating ranges.
func UnmarshalRecord(rec []byte) (Config, error) {
	if len(rec) < RecordSize {
		return Config{}, eris.Wrapf(ErrShortRecord, "got %d bytes, want %d", len(rec), RecordSize)
	}
	return Config{
		On:         rec[0]&flagOn != 0,
		Brightness: rec[1],
		Hue:        rec[2],
	}, nil
}
