package ws2812

import (
	"time"

	"periph.io/x/conn/v3/physic"
)

// SPIClock is the SPI clock at which three SPI bits span one WS2812 bit:
// 417 ns per SPI bit, so a 1 is 833 ns high + 417 ns low and a 0 is
// 417 ns high + 833 ns low.
const SPIClock = 2400 * physic.KiloHertz

const (
	spiOne  = 0b110
	spiZero = 0b100
)

// spiLUT maps a data byte to its 24-bit SPI expansion.
var spiLUT = func() (lut [256][3]byte) {
	for v := range 256 {
		var out uint32
		for bit := 7; bit >= 0; bit-- {
			if v&(1<<bit) != 0 {
				out = out<<3 | spiOne
			} else {
				out = out<<3 | spiZero
			}
		}
		lut[v] = [3]byte{byte(out >> 16), byte(out >> 8), byte(out)}
	}
	return lut
}()

// EncodeSPI expands frame so that clocking it out of MOSI at SPIClock
// reproduces the WS2812 waveform, followed by a low latch.
func EncodeSPI(frame []byte, reset time.Duration) []byte {
	out := make([]byte, 0, len(frame)*3+SPIResetBytes(reset))
	for _, v := range frame {
		out = append(out, spiLUT[v][:]...)
	}
	return append(out, make([]byte, SPIResetBytes(reset))...)
}

// SPIResetBytes returns how many zero bytes hold the line low for at least
// reset at SPIClock.
func SPIResetBytes(reset time.Duration) int {
	bytePeriod := 8 * SPIClock.Period()
	return int((reset + bytePeriod - 1) / bytePeriod)
}
