package main

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"

	"github.com/cybre/clap-lamp/internal/board"
	"github.com/cybre/clap-lamp/internal/clap"
	"github.com/cybre/clap-lamp/internal/eeprom"
	"github.com/cybre/clap-lamp/internal/settings"
	"github.com/cybre/clap-lamp/internal/ui"
	"github.com/cybre/clap-lamp/internal/ws2812"
)

const (
	driverSPI    = "spi"
	driverNRZLED = "nrzled"

	logFormatText = "text"
	logFormatJSON = "json"
)

var ErrInvalidConfig = eris.New("invalid config")

// Config is the YAML configuration of the host build.
type Config struct {
	LED     LEDConfig     `yaml:"led"`
	Pins    board.Pins    `yaml:"pins"`
	EEPROM  EEPROMConfig  `yaml:"eeprom"`
	Clap    ClapConfig    `yaml:"clap"`
	Audio   AudioConfig   `yaml:"audio"`
	Logging LoggingConfig `yaml:"logging"`
}

type LEDConfig struct {
	Count   int    `yaml:"count"`
	Order   string `yaml:"order"`
	Driver  string `yaml:"driver"` // "spi" | "nrzled"
	SPIPort string `yaml:"spi_port"`
	// NRZFreqKHz only applies to the nrzled driver; 0 keeps 800 kHz.
	NRZFreqKHz int `yaml:"nrz_freq_khz,omitempty"`
}

type EEPROMConfig struct {
	Path string `yaml:"path"`
	Size int    `yaml:"size"`
}

// ClapConfig overrides the detector tuning. Zero fields keep the defaults.
type ClapConfig struct {
	TouchGuardMs   uint32 `yaml:"touch_guard_ms,omitempty"`
	InterMinMs     uint32 `yaml:"inter_min_ms,omitempty"`
	InterMaxMs     uint32 `yaml:"inter_max_ms,omitempty"`
	ConfirmDelayMs uint32 `yaml:"confirm_delay_ms,omitempty"`
	Threshold      int    `yaml:"threshold,omitempty"`
}

type AudioConfig struct {
	SampleRate float64 `yaml:"sample_rate,omitempty"`
	FrameSize  int     `yaml:"frame_size"`
	LatencyMs  int     `yaml:"latency_ms,omitempty"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" | "json"
}

func DefaultConfig() Config {
	return Config{
		LED: LEDConfig{
			Count:  ws2812.DefaultCount,
			Order:  ws2812.GRB.String(),
			Driver: driverSPI,
		},
		Pins: board.Pins{
			Button:      "GPIO17",
			BrightnessA: "GPIO22",
			BrightnessB: "GPIO23",
			HueA:        "GPIO24",
			HueB:        "GPIO25",
		},
		EEPROM: EEPROMConfig{
			Path: "clap-lamp.eeprom",
			Size: eeprom.DefaultSize,
		},
		Audio: AudioConfig{
			FrameSize: 64,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: logFormatText,
		},
	}
}

// LoadConfig reads path over DefaultConfig. An empty path returns the
// defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, eris.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, eris.Wrapf(err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.LED.Count <= 0 {
		return eris.Wrapf(ErrInvalidConfig, "led.count must be positive, got %d", c.LED.Count)
	}
	if _, err := ws2812.ParseOrder(c.LED.Order); err != nil {
		return eris.Wrap(ErrInvalidConfig, err.Error())
	}
	switch c.LED.Driver {
	case driverSPI, driverNRZLED:
	default:
		return eris.Wrapf(ErrInvalidConfig, "led.driver must be %q or %q, got %q", driverSPI, driverNRZLED, c.LED.Driver)
	}
	if c.EEPROM.Path == "" {
		return eris.Wrap(ErrInvalidConfig, "eeprom.path is required")
	}
	if c.EEPROM.Size < settings.RecordOffset+settings.RecordSize {
		return eris.Wrapf(ErrInvalidConfig, "eeprom.size too small: %d", c.EEPROM.Size)
	}
	if c.Clap.InterMaxMs != 0 && c.Clap.InterMaxMs <= c.Clap.options().WithDefaults().InterMin {
		return eris.Wrap(ErrInvalidConfig, "clap.inter_max_ms must exceed inter_min_ms")
	}
	if _, err := c.Logging.level(); err != nil {
		return eris.Wrap(ErrInvalidConfig, err.Error())
	}
	switch c.Logging.Format {
	case "", logFormatText, logFormatJSON:
	default:
		return eris.Wrapf(ErrInvalidConfig, "logging.format must be %q or %q, got %q", logFormatText, logFormatJSON, c.Logging.Format)
	}
	return nil
}

// ledOrder returns the colour order the strip must be built with. The
// nrzled driver reorders to GRB itself and takes RGB input.
func (c LEDConfig) ledOrder() ws2812.Order {
	if c.Driver == driverNRZLED {
		return ws2812.RGB
	}
	o, err := ws2812.ParseOrder(c.Order)
	if err != nil {
		return ws2812.GRB
	}
	return o
}

func (c LEDConfig) nrzFreq() physic.Frequency {
	return physic.Frequency(c.NRZFreqKHz) * physic.KiloHertz
}

// options converts the overrides; the tick is 1 ms so they map one to one.
func (c ClapConfig) options() clap.Options {
	return clap.Options{
		TouchGuard:   c.TouchGuardMs,
		InterMin:     c.InterMinMs,
		InterMax:     c.InterMaxMs,
		ConfirmDelay: c.ConfirmDelayMs,
		Threshold:    c.Threshold,
	}
}

func (c LoggingConfig) level() (slog.Level, error) {
	var lvl slog.Level
	if c.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo, eris.Wrapf(err, "logging.level %q", c.Level)
	}
	return lvl, nil
}

// hardwareChoice is the board, LED driver and microphone the lamp runs on.
type hardwareChoice struct {
	board  string
	driver string
	// device is nil for the simulated microphone.
	device *portaudio.DeviceInfo
}

// silentMic reports a real board left with the simulated microphone, which
// nothing can clap into.
func (h hardwareChoice) silentMic() bool {
	return h.board == boardPeriph && h.device == nil
}

var (
	boardNames  = []string{boardSim, boardPeriph}
	driverNames = []string{driverSPI, driverNRZLED}
)

// Setup form rows, in order.
const (
	fieldBoard = iota
	fieldDriver
	fieldMic
)

// chooseHardware settles the hardware from the flags, asking on the terminal
// for whatever the flags left open. Without a terminal the form's initial
// choices are used.
func chooseHardware(
	devices []*portaudio.DeviceInfo,
	defaultDeviceIndex int,
	opts runtimeOptions,
	led LEDConfig,
) (hardwareChoice, error) {
	fields, err := setupFields(devices, defaultDeviceIndex, opts, led)
	if err != nil {
		return hardwareChoice{}, err
	}

	choices, err := ui.RunSetup(fields)
	switch {
	case eris.Is(err, ui.ErrNoInteractiveTTY):
		choices = ui.InitialChoices(fields)
	case err != nil:
		return hardwareChoice{}, err
	}

	choice := hardwareChoice{
		board:  boardNames[choices[fieldBoard]],
		driver: driverNames[choices[fieldDriver]],
	}
	if i := choices[fieldMic]; i > 0 {
		choice.device = devices[i-1]
	}
	return choice, nil
}

func setupFields(
	devices []*portaudio.DeviceInfo,
	defaultDeviceIndex int,
	opts runtimeOptions,
	led LEDConfig,
) ([]ui.Field, error) {
	board := ui.Field{
		Name: "Board",
		Options: []ui.Option{
			{Label: boardSim, Detail: "keyboard controls, LEDs shown in the panel"},
			{Label: boardPeriph, Detail: "GPIO encoders and button, WS2812 strip on SPI"},
		},
	}
	if opts.board != "" {
		board.Initial = slices.Index(boardNames, opts.board)
		if board.Initial < 0 {
			return nil, eris.Errorf("unknown board %q", opts.board)
		}
		board.Locked = true
	}

	driver := ui.Field{
		Name: "LED driver",
		Options: []ui.Option{
			{Label: driverSPI, Detail: "three SPI bits per LED bit at 2.4 MHz"},
			{Label: driverNRZLED, Detail: "periph nrzled driver on the SPI port"},
		},
		Initial: slices.Index(driverNames, led.Driver),
	}
	if opts.driver != "" {
		driver.Initial = slices.Index(driverNames, opts.driver)
		if driver.Initial < 0 {
			return nil, eris.Errorf("unknown LED driver %q", opts.driver)
		}
		driver.Locked = true
	}

	mic := ui.Field{Name: "Microphone", Options: buildMicOptions(devices)}
	mode := opts.mic
	if mode == "" && opts.deviceIndex >= 0 {
		mode = micPortAudio
	}
	switch mode {
	case micSim:
		mic.Locked = true
	case micPortAudio:
		if len(devices) == 0 {
			return nil, eris.New("no input devices available")
		}
		if opts.deviceIndex >= len(devices) {
			return nil, eris.Errorf("invalid device index %d", opts.deviceIndex)
		}
		mic.Initial = 1 + effectiveInitialDeviceIndex(opts.deviceIndex, defaultDeviceIndex, len(devices))
		mic.Locked = opts.deviceIndex >= 0
	case "":
		if opts.board == boardPeriph && len(devices) > 0 {
			mic.Initial = 1 + effectiveInitialDeviceIndex(-1, defaultDeviceIndex, len(devices))
		}
	default:
		return nil, eris.Errorf("unknown microphone backend %q", opts.mic)
	}

	return []ui.Field{board, driver, mic}, nil
}

// buildMicOptions lists the simulated microphone first, then every PortAudio
// input.
func buildMicOptions(devices []*portaudio.DeviceInfo) []ui.Option {
	options := make([]ui.Option, 0, len(devices)+1)
	options = append(options, ui.Option{Label: "simulated", Detail: "press c in the panel to clap"})
	for i, dev := range devices {
		options = append(options, ui.Option{
			Label: fmt.Sprintf("[%d] %s", i, dev.Name),
			Detail: fmt.Sprintf("%.0f Hz · %d in · %.1f ms latency",
				dev.DefaultSampleRate,
				dev.MaxInputChannels,
				dev.DefaultLowInputLatency.Seconds()*1000,
			),
		})
	}
	return options
}

func effectiveInitialDeviceIndex(requested, fallback, length int) int {
	if length == 0 {
		return 0
	}
	if requested >= 0 && requested < length {
		return requested
	}
	if fallback >= 0 && fallback < length {
		return fallback
	}
	return 0
}

func buildMicConfig(device *portaudio.DeviceInfo, audio AudioConfig) board.MicConfig {
	return board.MicConfig{
		Device:     device,
		SampleRate: audio.SampleRate,
		FrameSize:  effectiveFrameSize(audio.FrameSize),
		Latency:    time.Duration(audio.LatencyMs) * time.Millisecond,
	}
}

func effectiveFrameSize(requested int) int {
	if requested > 0 {
		return requested
	}

	return 64
}
