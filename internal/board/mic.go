package board

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/rotisserie/eris"

	"github.com/cybre/clap-lamp/internal/utils"
)

const (
	// MicMid is the reading of a silent line on the 10-bit ADC scale.
	MicMid = 512
	// MicMax is the largest ADC reading.
	MicMax = 1023
)

// MicConfig selects the capture device and buffer shape.
type MicConfig struct {
	Device     *portaudio.DeviceInfo
	SampleRate float64
	FrameSize  int
	Latency    time.Duration
}

// Mic samples a PortAudio input and reports the most extreme sample of the
// latest buffer as a 10-bit ADC reading.
type Mic struct {
	stream *portaudio.Stream
	level  atomic.Uint32
}

// OpenMic opens and starts a mono capture stream. PortAudio must already be
// initialized.
func OpenMic(cfg MicConfig) (*Mic, error) {
	if cfg.Device == nil {
		return nil, eris.New("audio device is not specified")
	}
	if cfg.Device.MaxInputChannels < 1 {
		return nil, eris.Errorf("device %s has no input channels", cfg.Device.Name)
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   cfg.Device,
			Channels: 1,
			Latency:  cfg.Device.DefaultLowInputLatency,
		},
		SampleRate:      cfg.SampleRate,
		FramesPerBuffer: cfg.FrameSize,
	}
	if params.SampleRate <= 0 {
		params.SampleRate = cfg.Device.DefaultSampleRate
	}
	if cfg.Latency > 0 {
		params.Input.Latency = cfg.Latency
	}

	m := &Mic{}
	m.level.Store(MicMid)

	stream, err := portaudio.OpenStream(params, m.process)
	if err != nil {
		return nil, eris.Wrap(err, "open audio stream")
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, eris.Wrap(err, "start audio stream")
	}
	m.stream = stream
	return m, nil
}

func (m *Mic) process(in []float32) {
	if len(in) == 0 {
		return
	}
	m.level.Store(uint32(ToRaw(Extreme(in))))
}

func (m *Mic) SampleRaw() uint16 {
	return uint16(m.level.Load())
}

func (m *Mic) Close() error {
	if m.stream == nil {
		return nil
	}
	if err := m.stream.Stop(); err != nil {
		m.stream.Close()
		return eris.Wrap(err, "stop audio stream")
	}
	return m.stream.Close()
}

// Extreme returns the sample furthest from zero, keeping its sign.
func Extreme(in []float32) float32 {
	var peak float32
	for _, s := range in {
		if math.Abs(float64(s)) > math.Abs(float64(peak)) {
			peak = s
		}
	}
	return peak
}

// ToRaw maps a sample in [-1, 1] onto the ADC range centred on MicMid.
func ToRaw(s float32) uint16 {
	v := MicMid + int(math.Round(float64(s)*(MicMax-MicMid)))
	return uint16(utils.Clamp(v, 0, MicMax))
}
