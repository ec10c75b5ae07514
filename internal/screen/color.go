package screen

import (
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/termenv"
)

// Color is a tagged 32-bit color value (spec.md §3): bit 24 set means
// 24-bit RGB in the low 24 bits, bit 25 set means "default", otherwise
// the low 8 bits are a palette index (0-15 basic/bright, 16-255
// palette).
type Color uint32

const (
	colorRGBFlag     Color = 1 << 24
	colorDefaultFlag Color = 1 << 25
)

// DefaultColor is the unset/"use terminal default" color.
const DefaultColor Color = colorDefaultFlag

// Indexed builds a palette-index color (0-255).
func Indexed(i uint8) Color {
	return Color(i)
}

// RGB builds a 24-bit truecolor value.
func RGB(r, g, b uint8) Color {
	return colorRGBFlag | Color(r)<<16 | Color(g)<<8 | Color(b)
}

// IsDefault reports whether c is the default-color marker.
func (c Color) IsDefault() bool { return c&colorDefaultFlag != 0 }

// IsRGB reports whether c carries a 24-bit RGB value.
func (c Color) IsRGB() bool { return !c.IsDefault() && c&colorRGBFlag != 0 }

// RGBValues extracts the red, green, blue components of an RGB color.
// Meaningless if !IsRGB().
func (c Color) RGBValues() (r, g, b uint8) {
	return uint8(c >> 16), uint8(c >> 8), uint8(c)
}

// Index extracts the palette index. Meaningless if IsDefault() or
// IsRGB().
func (c Color) Index() uint8 { return uint8(c) }

// ansi16 are the 16 basic/bright ANSI colors in palette-index order,
// used both as the literal index 0-15 palette and as downsample
// targets for truecolor degradation.
var ansi16 = [16]colorful.Color{
	mustHex("#000000"), mustHex("#800000"), mustHex("#008000"), mustHex("#808000"),
	mustHex("#000080"), mustHex("#800080"), mustHex("#008080"), mustHex("#c0c0c0"),
	mustHex("#808080"), mustHex("#ff0000"), mustHex("#00ff00"), mustHex("#ffff00"),
	mustHex("#0000ff"), mustHex("#ff00ff"), mustHex("#00ffff"), mustHex("#ffffff"),
}

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// xterm256 returns the colorful.Color for a 256-color palette index,
// computed from the standard 6x6x6 cube + grayscale ramp layout.
func xterm256(idx uint8) colorful.Color {
	if idx < 16 {
		return ansi16[idx]
	}
	if idx < 232 {
		i := int(idx) - 16
		levels := [6]uint8{0, 95, 135, 175, 215, 255}
		r := levels[(i/36)%6]
		g := levels[(i/6)%6]
		b := levels[i%6]
		return colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	}
	gray := 8 + (int(idx)-232)*10
	f := float64(gray) / 255
	return colorful.Color{R: f, G: f, B: f}
}

// Downsample converts c to the nearest representable color in
// profile, using go-colorful's Lab-space distance for truecolor-to-
// palette degradation (render.go needs this to drive real terminals
// that announced a narrower color profile over termenv).
func (c Color) Downsample(profile termenv.Profile) Color {
	if c.IsDefault() {
		return c
	}
	switch profile {
	case termenv.TrueColor:
		return c
	case termenv.ANSI256:
		if c.IsRGB() {
			return Indexed(nearestPaletteIndex(c, 256))
		}
		return c
	case termenv.ANSI:
		if c.IsRGB() || c.Index() >= 16 {
			return Indexed(nearestPaletteIndex(c, 16))
		}
		return c
	default: // termenv.Ascii or unknown: no color at all
		return DefaultColor
	}
}

func nearestPaletteIndex(c Color, paletteSize int) uint8 {
	var target colorful.Color
	if c.IsRGB() {
		r, g, b := c.RGBValues()
		target = colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	} else {
		target = xterm256(c.Index())
	}
	best := uint8(0)
	bestDist := -1.0
	for i := 0; i < paletteSize; i++ {
		cand := xterm256(uint8(i))
		d := target.DistanceLab(cand)
		if bestDist < 0 || d < bestDist {
			bestDist = d
			best = uint8(i)
		}
	}
	return best
}
