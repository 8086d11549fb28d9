package clap

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cybre/clap-lamp/internal/tick"
)

const (
	quiet = 512
	loud  = 1000
)

// scenario describes a microphone trace relative to a start tick.
type scenario struct {
	start   tick.Tick
	claps   map[uint32]uint16 // offset -> reading
	touches []uint32
	length  uint32
}

// run feeds the scenario tick by tick and returns the offsets at which the
// detector fired.
func (s scenario) run(d *Detector) []uint32 {
	lastTouch := s.start - 10_000
	var fired []uint32
	for off := uint32(0); off < s.length; off++ {
		now := s.start + tick.Tick(off)
		for _, t := range s.touches {
			if t == off {
				lastTouch = now
			}
		}
		reading := uint16(quiet)
		if v, ok := s.claps[off]; ok {
			reading = v
		}
		if d.Process(reading, now, lastTouch) {
			fired = append(fired, off)
		}
	}
	return fired
}

func newCalibrated() *Detector {
	d := NewDetector(Options{}, nil)
	d.Calibrate([]uint16{quiet, quiet, quiet, quiet})
	return d
}

func TestDoubleClapFiresOnce(t *testing.T) {
	d := newCalibrated()
	fired := scenario{
		start:  10_000,
		claps:  map[uint32]uint16{0: loud, 300: loud},
		length: 3000,
	}.run(d)

	assert.Equal(t, []uint32{401}, fired)
	assert.Equal(t, NoClap, d.State())
}

func TestSustainedClapsFireOnce(t *testing.T) {
	claps := map[uint32]uint16{}
	for i := uint32(0); i < 20; i++ {
		claps[i] = loud
		claps[250+i] = loud
	}
	fired := scenario{start: 50_000, claps: claps, length: 2000}.run(newCalibrated())
	assert.Equal(t, []uint32{351}, fired)
}

func TestQuietDipCountsAsClap(t *testing.T) {
	fired := scenario{
		start:  10_000,
		claps:  map[uint32]uint16{0: 100, 400: 100},
		length: 1000,
	}.run(newCalibrated())
	assert.Equal(t, []uint32{501}, fired)
}

func TestClapsTooFarApartNeverFire(t *testing.T) {
	fired := scenario{
		start:  10_000,
		claps:  map[uint32]uint16{0: loud, 900: loud},
		length: 3000,
	}.run(newCalibrated())
	assert.Empty(t, fired)
}

func TestClapsTooCloseNeverFire(t *testing.T) {
	fired := scenario{
		start:  10_000,
		claps:  map[uint32]uint16{0: loud, 150: loud},
		length: 3000,
	}.run(newCalibrated())
	assert.Empty(t, fired)
}

func TestTouchBetweenClapsCancels(t *testing.T) {
	fired := scenario{
		start:   10_000,
		claps:   map[uint32]uint16{0: loud, 300: loud},
		touches: []uint32{150},
		length:  3000,
	}.run(newCalibrated())
	assert.Empty(t, fired)
}

func TestTouchInConfirmWindowCancels(t *testing.T) {
	fired := scenario{
		start:   10_000,
		claps:   map[uint32]uint16{0: loud, 300: loud},
		touches: []uint32{350},
		length:  3000,
	}.run(newCalibrated())
	assert.Empty(t, fired)
}

func TestSingleClapNeverFires(t *testing.T) {
	fired := scenario{
		start:  10_000,
		claps:  map[uint32]uint16{0: loud},
		length: 10_000,
	}.run(newCalibrated())
	assert.Empty(t, fired)
}

func TestWindowsSurviveTickWrap(t *testing.T) {
	fired := scenario{
		start:  tick.Tick(^uint32(0) - 150),
		claps:  map[uint32]uint16{0: loud, 300: loud},
		length: 1000,
	}.run(newCalibrated())
	assert.Equal(t, []uint32{401}, fired)
}

func TestRecentTouchForcesNoClap(t *testing.T) {
	d := newCalibrated()
	assert.False(t, d.Process(loud, 10_000, 0))
	assert.Equal(t, FirstClap, d.State())

	assert.False(t, d.Process(quiet, 10_001, 9_900))
	assert.Equal(t, NoClap, d.State())
}

func TestCustomOptions(t *testing.T) {
	d := NewDetector(Options{InterMin: 50, InterMax: 100, ConfirmDelay: 10, Threshold: 100}, nil)
	d.Calibrate([]uint16{quiet})

	fired := scenario{
		start:  10_000,
		claps:  map[uint32]uint16{0: quiet + 150, 60: quiet + 150},
		length: 500,
	}.run(d)
	assert.Equal(t, []uint32{71}, fired)
	assert.Equal(t, uint32(500), d.Options().TouchGuard)
}

func TestRunningAverage(t *testing.T) {
	var a RunningAverage
	a.Seed([]uint16{500, 502, 504})
	assert.Equal(t, uint16(502), a.Level())

	a.Set(100)
	for range 65536 {
		a.Update(900)
	}
	// One time constant covers ~63% of the step.
	assert.InDelta(t, 100+0.632*800, float64(a.Level()), 10)

	a.Seed(nil)
	assert.Greater(t, a.Level(), uint16(100))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "no-clap", NoClap.String())
	assert.Equal(t, "first-clap", FirstClap.String())
	assert.Equal(t, "double-clap", DoubleClap.String())
	assert.Equal(t, "unknown", State(9).String())
}
