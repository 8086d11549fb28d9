package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gordonklaus/portaudio"
	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/cybre/clap-lamp/internal/board"
	"github.com/cybre/clap-lamp/internal/clap"
	"github.com/cybre/clap-lamp/internal/color"
	"github.com/cybre/clap-lamp/internal/eeprom"
	"github.com/cybre/clap-lamp/internal/irq"
	"github.com/cybre/clap-lamp/internal/lamp"
	"github.com/cybre/clap-lamp/internal/settings"
	"github.com/cybre/clap-lamp/internal/tick"
	"github.com/cybre/clap-lamp/internal/ui"
	"github.com/cybre/clap-lamp/internal/ws2812"
)

// hardware is an opened board: its controls, LED transmitter and anything
// that must be released on exit.
type hardware struct {
	name     string
	inputs   func(lamp.Microphone) lamp.Inputs
	tx       ws2812.Transmitter
	controls ui.Controls
	closers  []io.Closer
}

func main() {
	opts := parseCLIFlags()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := runLamp(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func runLamp(ctx context.Context, opts runtimeOptions) error {
	cfg, err := LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.eepromPath != "" {
		cfg.EEPROM.Path = opts.eepromPath
	}

	var (
		devices       []*portaudio.DeviceInfo
		defaultDevice = -1
	)
	if opts.mic != micSim {
		devices, defaultDevice, err = openAudio()
		switch {
		case err == nil:
			defer portaudio.Terminate()
		case opts.mic == micPortAudio || opts.deviceIndex >= 0:
			return err
		}
	}

	choice, err := chooseHardware(devices, defaultDevice, opts, cfg.LED)
	if err != nil {
		return eris.Wrap(err, "choose hardware")
	}
	cfg.LED.Driver = choice.driver

	showPanel := opts.ui && ui.IsInteractiveTerminal()
	logger, err := newLogger(logOutput(showPanel), cfg.Logging, opts.debug, showPanel)
	if err != nil {
		return err
	}
	if choice.silentMic() {
		logger.Warn("periph board has no microphone, double claps are disabled",
			slog.String("hint", "run with -mic portaudio"))
	}

	hw, err := openHardware(choice.board, cfg)
	if err != nil {
		return err
	}
	defer hw.close(logger)

	var mic lamp.Microphone
	if choice.device != nil {
		logger.Info("using audio input device",
			slog.String("name", choice.device.Name),
			slog.Float64("sample_rate", choice.device.DefaultSampleRate))
		m, err := board.OpenMic(buildMicConfig(choice.device, cfg.Audio))
		if err != nil {
			return err
		}
		defer m.Close()
		mic = m
	}

	if err := run(ctx, logger, cfg, hw, mic, showPanel); err != nil && !eris.Is(err, context.Canceled) {
		logger.Error("lamp loop failed", slog.Any("error", err))
		return err
	}

	return nil
}

// openAudio initializes PortAudio and lists its devices along with the index
// of the default input, or -1. On success the caller must Terminate.
func openAudio() ([]*portaudio.DeviceInfo, int, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, -1, eris.Wrap(err, "initialize PortAudio")
	}
	devices, err := portaudio.Devices()
	if err != nil {
		portaudio.Terminate()
		return nil, -1, eris.Wrap(err, "enumerate audio devices")
	}
	def := -1
	if d, err := portaudio.DefaultInputDevice(); err == nil {
		def = d.Index
	}
	return devices, def, nil
}

// logOutput is stderr while the panel owns stdout.
func logOutput(panel bool) io.Writer {
	if panel {
		return os.Stderr
	}
	return os.Stdout
}

// newLogger builds the process logger from the logging config. -debug wins;
// otherwise the panel keeps anything below warn off the screen.
func newLogger(out io.Writer, logging LoggingConfig, debug, panel bool) (*slog.Logger, error) {
	level, err := logging.level()
	if err != nil {
		return nil, eris.Wrap(ErrInvalidConfig, err.Error())
	}
	switch {
	case debug:
		level = slog.LevelDebug
	case panel:
		level = max(level, slog.LevelWarn)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(out, opts)
	if logging.Format == logFormatJSON {
		handler = slog.NewJSONHandler(out, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}

func openHardware(name string, cfg Config) (*hardware, error) {
	if name == boardSim {
		sim := board.NewSim()
		return &hardware{
			name:     name,
			inputs:   sim.Inputs,
			tx:       &sim.Strip,
			controls: sim,
		}, nil
	}

	if err := board.InitHost(); err != nil {
		return nil, err
	}
	p, err := board.OpenPeriph(cfg.Pins)
	if err != nil {
		return nil, err
	}
	hw := &hardware{
		name: name,
		inputs: func(mic lamp.Microphone) lamp.Inputs {
			if mic == nil {
				mic = board.NewSimMic(board.MicMid)
			}
			return p.Inputs(mic)
		},
	}

	switch cfg.LED.Driver {
	case driverNRZLED:
		strip, err := board.OpenNRZStrip(cfg.LED.SPIPort, cfg.LED.Count, cfg.LED.nrzFreq())
		if err != nil {
			return nil, err
		}
		hw.tx = strip
		hw.closers = append(hw.closers, strip)
	default:
		strip, err := board.OpenSPIStrip(cfg.LED.SPIPort, ws2812.DefaultTiming.Reset)
		if err != nil {
			return nil, err
		}
		hw.tx = strip
		hw.closers = append(hw.closers, strip)
	}
	return hw, nil
}

func (h *hardware) close(logger *slog.Logger) {
	for _, c := range h.closers {
		if err := c.Close(); err != nil {
			logger.Warn("failed to release hardware", slog.String("board", h.name), slog.Any("error", err))
		}
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg Config, hw *hardware, mic lamp.Microphone, showPanel bool) error {
	logger.Info("starting lamp",
		slog.String("board", hw.name),
		slog.Int("leds", cfg.LED.Count),
		slog.String("order", cfg.LED.ledOrder().String()),
		slog.String("eeprom", cfg.EEPROM.Path),
	)

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	clock := tick.NewClock(0)
	ctl := &irq.Controller{}
	store := settings.NewStore(eeprom.NewFile(cfg.EEPROM.Path, cfg.EEPROM.Size), logger)
	detector := clap.NewDetector(cfg.Clap.options(), logger)
	strip := ws2812.NewStrip(cfg.LED.Count, cfg.LED.ledOrder(), ctl, hw.tx)

	var observer func(lamp.Status)
	if showPanel {
		panel := ui.NewPanel(cancel, hw.controls)
		defer panel.Close()
		observer = panel.Update
	} else if hw.controls != nil {
		logger.Warn("simulator controls need the panel; run in a terminal with -ui")
	}

	l := lamp.New(clock, store, detector, hw.inputs(mic), strip, logger, observer)

	g, gctx := errgroup.WithContext(loopCtx)

	g.Go(func() error {
		return irq.RunTimer(gctx, ctl, tick.Period, clock.ISR)
	})

	g.Go(func() error {
		if err := l.Start(gctx); err != nil {
			return err
		}
		return l.Run(gctx)
	})

	err := g.Wait()

	if ferr := strip.Fill(color.Off); ferr != nil {
		logger.Warn("failed to blank LEDs", slog.Any("error", ferr))
	}

	if err != nil {
		if eris.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	return nil
}
