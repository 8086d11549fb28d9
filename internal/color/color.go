// Package color maps the lamp setting onto an RGB triple using integer HSL
// with saturation fixed at 1.
package color

import (
	"fmt"

	"github.com/cybre/clap-lamp/internal/utils"
)

const (
	// SectorSteps is the number of hue steps per 60° sector.
	SectorSteps = 32
	// Sectors is the number of hue sectors around the colour wheel.
	Sectors = 6
)

// RGB is one LED colour.
type RGB struct {
	R, G, B uint8
}

// Off is the colour of a dark lamp.
var Off = RGB{}

// Hex returns the colour as #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Max returns the brightest channel.
func (c RGB) Max() uint8 {
	return max(c.R, c.G, c.B)
}

// Lightness maps brightness onto L in 0..255 with a quadratic curve. The
// floor of 1 keeps the lamp visibly lit at the lowest setting.
func Lightness(brightness uint8) int {
	b := int(brightness)
	return utils.Clamp(b*b/16, 1, 255)
}

// Chroma returns C for lightness v at full saturation.
func Chroma(v int) int {
	return 255 - utils.Abs(2*v-255)
}

// Peak returns the value the brightest channel takes for brightness.
func Peak(brightness uint8) uint8 {
	v := Lightness(brightness)
	c := Chroma(v)
	return uint8(min(c+v-c/2, 255))
}

// Render converts the lamp setting to RGB. hue is a step on the 192-step
// wheel and brightness is in 1..64; the caller guarantees both ranges.
func Render(on bool, brightness, hue uint8) RGB {
	if !on {
		return Off
	}

	v := Lightness(brightness)
	c := Chroma(v)

	sector := int(hue) / SectorSteps
	pos := int(hue) % SectorSteps
	var xt int
	if sector&1 == 1 {
		xt = 8 * pos
	} else {
		xt = 8 * (SectorSteps - pos)
	}
	x := c * (256 - xt) >> 8

	var r, g, b int
	switch sector {
	case 0:
		r, g = c, x
	case 1:
		r, g = x, c
	case 2:
		g, b = c, x
	case 3:
		g, b = x, c
	case 4:
		r, b = x, c
	default:
		r, b = c, x
	}

	m := v - c/2
	return RGB{
		R: uint8(min(r+m, 255)),
		G: uint8(min(g+m, 255)),
		B: uint8(min(b+m, 255)),
	}
}
