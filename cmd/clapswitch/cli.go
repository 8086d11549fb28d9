package main

import (
	"flag"
)

const (
	boardSim    = "sim"
	boardPeriph = "periph"

	micSim       = "sim"
	micPortAudio = "portaudio"
)

type runtimeOptions struct {
	configPath  string
	board       string
	driver      string
	mic         string
	deviceIndex int
	eepromPath  string
	ui          bool
	debug       bool
}

func parseCLIFlags() runtimeOptions {
	var cfg runtimeOptions

	flag.StringVar(&cfg.configPath, "config", "", "path to a YAML config file (defaults apply when empty)")
	flag.StringVar(&cfg.board, "board", "", "hardware backend: sim or periph (leave blank to choose interactively)")
	flag.StringVar(&cfg.driver, "driver", "", "LED driver: spi or nrzled (overrides led.driver from the config)")
	flag.StringVar(&cfg.mic, "mic", "", "microphone backend: sim or portaudio (leave blank to choose interactively)")
	flag.IntVar(&cfg.deviceIndex, "device", -1, "audio input device index, implies -mic portaudio (leave blank to choose interactively)")
	flag.StringVar(&cfg.eepromPath, "eeprom", "", "override the EEPROM image path from the config file")
	flag.BoolVar(&cfg.ui, "ui", true, "show the live lamp panel (logs go to stderr)")
	flag.BoolVar(&cfg.debug, "debug", false, "enable debug logging")
	flag.Parse()

	return cfg
}
