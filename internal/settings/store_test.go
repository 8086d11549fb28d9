package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybre/clap-lamp/internal/eeprom"
	"github.com/cybre/clap-lamp/internal/tick"
)

const now0 tick.Tick = 1000

func newTestStore(t *testing.T) (*Store, *eeprom.Memory) {
	t.Helper()
	mem := eeprom.NewMemory(16)
	return NewStore(mem, nil), mem
}

func TestHueWrapsBothWays(t *testing.T) {
	s, _ := newTestStore(t)
	s.Load()
	start := s.Config().Hue

	for range HueSteps {
		s.AdjustHue(1, now0)
		assert.Less(t, s.Config().Hue, uint8(HueSteps))
	}
	assert.Equal(t, start, s.Config().Hue)

	for range HueSteps {
		s.AdjustHue(-1, now0)
	}
	assert.Equal(t, start, s.Config().Hue)

	s.AdjustHue(-1, now0)
	assert.Equal(t, uint8(HueSteps-1), s.Config().Hue)
}

func TestBrightnessClamped(t *testing.T) {
	s, mem := newTestStore(t)
	require.NoError(t, mem.WriteBlock(RecordOffset, Config{On: true, Brightness: 1}.MarshalRecord()))
	s.Load()

	rev := s.Revision()
	s.AdjustBrightness(-1, now0)
	assert.Equal(t, uint8(1), s.Config().Brightness)
	assert.Equal(t, rev, s.Revision())
	assert.False(t, s.Dirty())

	require.NoError(t, mem.WriteBlock(RecordOffset, Config{On: true, Brightness: 64}.MarshalRecord()))
	s.Load()
	rev = s.Revision()
	s.AdjustBrightness(1, now0)
	assert.Equal(t, uint8(64), s.Config().Brightness)
	assert.Equal(t, rev, s.Revision())
}

func TestInvalidDeltasIgnored(t *testing.T) {
	s, _ := newTestStore(t)
	s.Load()
	before := s.Config()

	s.AdjustBrightness(0, now0)
	s.AdjustBrightness(3, now0)
	s.AdjustHue(0, now0)
	s.AdjustHue(-2, now0)

	assert.Equal(t, before, s.Config())
	assert.False(t, s.Dirty())
}

func TestBurstCoalescesIntoOneWrite(t *testing.T) {
	s, mem := newTestStore(t)
	s.Load()

	var last tick.Tick
	for i := range 10 {
		last = 10_000 + tick.Tick(i*40)
		s.AdjustBrightness(1, last)
		assert.False(t, s.FlushIfDue(last))
	}

	for now := last; now < last+QuietInterval; now++ {
		assert.False(t, s.FlushIfDue(now), "tick %d", now)
	}
	assert.Equal(t, 0, mem.Writes())

	assert.True(t, s.FlushIfDue(last+QuietInterval))
	assert.Equal(t, 1, mem.Writes())
	assert.False(t, s.Dirty())

	assert.False(t, s.FlushIfDue(last+QuietInterval+1000))
	assert.Equal(t, 1, mem.Writes())
}

func TestChangeStampedWithCallerTick(t *testing.T) {
	s, mem := newTestStore(t)
	s.Load()

	// The flush runs at the same tick as the change, however late in the
	// pass it comes.
	s.AdjustHue(1, now0)
	assert.False(t, s.FlushIfDue(now0))
	assert.False(t, s.FlushIfDue(now0+QuietInterval-1))
	assert.Equal(t, 0, mem.Writes())
	assert.True(t, s.FlushIfDue(now0+QuietInterval))
}

func TestFlushAcrossTickWrap(t *testing.T) {
	start := tick.Tick(^uint32(0) - 100)
	s, mem := newTestStore(t)
	s.Load()

	s.AdjustHue(1, start)
	assert.False(t, s.FlushIfDue(start+200))
	assert.True(t, s.FlushIfDue(start+QuietInterval))
	assert.Equal(t, 1, mem.Writes())
}

func TestRoundTrip(t *testing.T) {
	s, mem := newTestStore(t)
	s.Load()

	s.SetOn(true, now0)
	for range 20 {
		s.AdjustBrightness(1, now0)
	}
	for range 77 {
		s.AdjustHue(1, now0)
	}
	want := s.Config()
	require.True(t, s.FlushIfDue(now0+QuietInterval))

	reloaded := NewStore(mem, nil)
	assert.Equal(t, want, reloaded.Load())
}

func TestRecordRoundTripAllValid(t *testing.T) {
	for b := MinBrightness; b <= MaxBrightness; b++ {
		for h := 0; h < HueSteps; h += 7 {
			for _, on := range []bool{false, true} {
				cfg := Config{On: on, Brightness: uint8(b), Hue: uint8(h)}
				got, err := UnmarshalRecord(cfg.MarshalRecord())
				require.NoError(t, err)
				assert.Equal(t, cfg, got)
			}
		}
	}
}

func TestCorruptLoadUsesDefaults(t *testing.T) {
	s, mem := newTestStore(t)
	require.NoError(t, mem.WriteBlock(RecordOffset, []byte{flagOn, 200, 255}))

	cfg := s.Load()
	assert.Equal(t, Config{On: true, Brightness: DefaultBrightness, Hue: DefaultHue}, cfg)
	assert.False(t, s.Dirty(), "corrected values are held in memory only")
	assert.Equal(t, 1, mem.Writes(), "only the setup write reached storage")
}

func TestErasedStorageLoads(t *testing.T) {
	s, _ := newTestStore(t)
	cfg := s.Load()
	assert.True(t, cfg.Valid())
	assert.Equal(t, uint8(DefaultBrightness), cfg.Brightness)
}

type brokenStorage struct{}

func (brokenStorage) ReadBlock(int, int) ([]byte, error) { return nil, eeprom.ErrOutOfRange }
func (brokenStorage) WriteBlock(int, []byte) error      { return eeprom.ErrWriteFailed }

func TestUnreadableStorageFallsBack(t *testing.T) {
	s := NewStore(brokenStorage{}, nil)
	assert.Equal(t, Default(), s.Load())
}

func TestFailedWriteIsBestEffort(t *testing.T) {
	s, mem := newTestStore(t)
	s.Load()
	mem.FailWrites(true)

	s.Toggle(now0)
	want := s.Config()
	assert.True(t, s.FlushIfDue(now0+QuietInterval))
	assert.True(t, s.Dirty())
	assert.Equal(t, want, s.Config())

	// Not retried on the next tick.
	assert.False(t, s.FlushIfDue(now0+QuietInterval+1))

	mem.FailWrites(false)
	assert.True(t, s.FlushIfDue(now0+2*QuietInterval))
	assert.False(t, s.Dirty())
	assert.Equal(t, uint64(1), s.Writes())
}

func TestSetOnSameValueIsNoChange(t *testing.T) {
	s, _ := newTestStore(t)
	s.Load()
	rev := s.Revision()
	s.SetOn(s.Config().On, now0)
	assert.Equal(t, rev, s.Revision())
}
