// Package color implements the hex/HSL/temperature color math shared by
// the palette extractor, weight calculator, and theming engine.
//
// Colors are represented as hex strings ("#rrggbb") at rest in the
// database and as HSL triples (H in [0,360), S and L in [0,1]) while
// being manipulated, mirroring the representation the theming template
// filters operate on.
package color

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// HSL is a color in hue/saturation/lightness space. H is in degrees
// [0, 360); S and L are fractions in [0, 1].
type HSL struct {
	H, S, L float64
}

// RGB is an 8-bit-per-channel color.
type RGB struct {
	R, G, B uint8
}

// ParseHex converts a "#rrggbb" or "rrggbb" string to RGB.
func ParseHex(hex string) (RGB, error) {
	s := strings.TrimPrefix(hex, "#")
	if len(s) != 6 {
		return RGB{}, fmt.Errorf("color: invalid hex color %q", hex)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("color: invalid hex color %q: %w", hex, err)
	}
	return RGB{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
	}, nil
}

// Hex renders an RGB as a lowercase "#rrggbb" string.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ToHSL converts an RGB color to HSL.
func (c RGB) ToHSL() HSL {
	r := float64(c.R) / 255.0
	g := float64(c.G) / 255.0
	b := float64(c.B) / 255.0

	max := math.Max(math.Max(r, g), b)
	min := math.Min(math.Min(r, g), b)
	delta := max - min

	l := (max + min) / 2.0

	var h, s float64
	if delta == 0 {
		h, s = 0, 0
	} else {
		if l < 0.5 {
			s = delta / (max + min)
		} else {
			s = delta / (2.0 - max - min)
		}

		switch max {
		case r:
			h = (g - b) / delta
			if g < b {
				h += 6
			}
		case g:
			h = (b-r)/delta + 2
		case b:
			h = (r-g)/delta + 4
		}
		h *= 60
	}

	return HSL{H: h, S: s, L: l}
}

// ToRGB converts an HSL color back to RGB, rounding to the nearest
// 8-bit channel value.
func (hsl HSL) ToRGB() RGB {
	h := math.Mod(hsl.H, 360)
	if h < 0 {
		h += 360
	}
	h /= 360.0
	s := clamp01(hsl.S)
	l := clamp01(hsl.L)

	if s == 0 {
		v := uint8(math.Round(l * 255))
		return RGB{v, v, v}
	}

	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q

	return RGB{
		R: uint8(math.Round(hueToRGB(p, q, h+1.0/3.0) * 255)),
		G: uint8(math.Round(hueToRGB(p, q, h) * 255)),
		B: uint8(math.Round(hueToRGB(p, q, h-1.0/3.0) * 255)),
	}
}

// Hex converts HSL directly to a hex string.
func (hsl HSL) Hex() string {
	return hsl.ToRGB().Hex()
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	default:
		return p
	}
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// WrapHue normalizes a hue in degrees into [0, 360).
func WrapHue(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return h
}

// Clamp01 clamps v to [0, 1]. Exported for callers outside this package
// that need to clamp S/L values after a filter operation.
func Clamp01(v float64) float64 {
	return clamp01(v)
}

// CircularMeanHue computes the circular mean of a set of hues (degrees),
// via the angle of their summed unit vectors. This is the spec-mandated
// replacement for an arithmetic mean, which is undefined across the
// 359/0 wraparound.
func CircularMeanHue(hues []float64) float64 {
	if len(hues) == 0 {
		return 0
	}
	var sumX, sumY float64
	for _, h := range hues {
		rad := h * math.Pi / 180.0
		sumX += math.Cos(rad)
		sumY += math.Sin(rad)
	}
	if sumX == 0 && sumY == 0 {
		return 0
	}
	deg := math.Atan2(sumY, sumX) * 180.0 / math.Pi
	return WrapHue(deg)
}

// Mean returns the arithmetic mean of a slice of values, or 0 for an
// empty slice.
func Mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// Temperature maps a saturation-weighted mean hue onto a warm/cool scale
// in [-1, 1]: reds/oranges/yellows are warm (+), cyans/blues/violets are
// cool (-), greens are transitional. If the summed saturation across the
// sample is below 0.1, the temperature is defined to be exactly 0 (spec
// §3, §4.5): a near-greyscale image carries no color temperature.
func Temperature(hues, saturations []float64) float64 {
	if len(hues) == 0 || len(hues) != len(saturations) {
		return 0
	}

	var sumSat float64
	for _, s := range saturations {
		sumSat += s
	}
	if sumSat < 0.1 {
		return 0
	}

	var weighted float64
	for i, h := range hues {
		weighted += hueTemperature(h) * saturations[i]
	}
	return clamp(weighted/sumSat, -1, 1)
}

// hueTemperature maps a single hue in degrees to a warm/cool scalar.
// 0=red (warm, +1), 60=yellow (warm), 120=green (neutral/transitional,
// slightly cool), 180=cyan (cool, -1), 240=blue (cool), 300=magenta
// (transitional back to warm).
func hueTemperature(h float64) float64 {
	h = WrapHue(h)
	// Project hue onto a warm/cool axis peaking at 0/360 (warm, +1)
	// and trough at 180 (cool, -1), using a cosine curve so the
	// transition through green (120) and magenta (300) is smooth.
	rad := h * math.Pi / 180.0
	return math.Cos(rad)
}
