package board

import (
	"time"

	"github.com/rotisserie/eris"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"

	"github.com/cybre/clap-lamp/internal/ws2812"
)

// SPIStrip clocks WS2812 frames out of an SPI MOSI line, three SPI bits per
// data bit.
type SPIStrip struct {
	port  spi.PortCloser
	conn  spi.Conn
	reset time.Duration
}

// OpenSPIStrip opens the named SPI port ("" for the first one) at
// ws2812.SPIClock.
func OpenSPIStrip(name string, reset time.Duration) (*SPIStrip, error) {
	port, err := spireg.Open(name)
	if err != nil {
		return nil, eris.Wrapf(err, "open SPI port %q", name)
	}
	conn, err := port.Connect(ws2812.SPIClock, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, eris.Wrap(err, "connect SPI port")
	}
	s := NewSPIStrip(conn, reset)
	s.port = port
	return s, nil
}

// NewSPIStrip wraps an already connected SPI conn.
func NewSPIStrip(conn spi.Conn, reset time.Duration) *SPIStrip {
	return &SPIStrip{conn: conn, reset: reset}
}

func (s *SPIStrip) Transmit(frame []byte) error {
	if err := s.conn.Tx(ws2812.EncodeSPI(frame, s.reset), nil); err != nil {
		return eris.Wrap(err, "spi transfer")
	}
	return nil
}

func (s *SPIStrip) Close() error {
	if s.port == nil {
		return nil
	}
	return s.port.Close()
}

// NRZStrip hands frames to the periph.io NRZ LED driver. The driver expects
// RGB input and reorders to GRB on the wire, so the strip in front of it
// must use ws2812.RGB.
type NRZStrip struct {
	port spi.PortCloser
	dev  *nrzled.Dev
}

// nrzFreq is the WS2812 bit rate.
const nrzFreq = 800 * physic.KiloHertz

// OpenNRZStrip opens the named SPI port and an nrzled device of count LEDs.
// freq of zero means nrzFreq.
func OpenNRZStrip(name string, count int, freq physic.Frequency) (*NRZStrip, error) {
	port, err := spireg.Open(name)
	if err != nil {
		return nil, eris.Wrapf(err, "open SPI port %q", name)
	}
	if freq <= 0 {
		freq = nrzFreq
	}
	opts := nrzled.Opts{NumPixels: count, Channels: 3, Freq: freq}
	dev, err := nrzled.NewSPI(port, &opts)
	if err != nil {
		port.Close()
		return nil, eris.Wrap(err, "open nrzled device")
	}
	return &NRZStrip{port: port, dev: dev}, nil
}

func (n *NRZStrip) Transmit(frame []byte) error {
	if _, err := n.dev.Write(frame); err != nil {
		return eris.Wrap(err, "nrzled write")
	}
	return nil
}

// Close blanks the LEDs and releases the port.
func (n *NRZStrip) Close() error {
	haltErr := n.dev.Halt()
	if err := n.port.Close(); err != nil {
		return err
	}
	return haltErr
}
