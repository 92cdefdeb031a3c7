package color

// Darken subtracts x from the lightness channel, clamping to [0, 1].
func (hsl HSL) Darken(x float64) HSL {
	return HSL{H: hsl.H, S: hsl.S, L: clamp01(hsl.L - x)}
}

// Lighten adds x to the lightness channel, clamping to [0, 1].
func (hsl HSL) Lighten(x float64) HSL {
	return HSL{H: hsl.H, S: hsl.S, L: clamp01(hsl.L + x)}
}

// Saturate adds x to the saturation channel, clamping to [0, 1].
func (hsl HSL) Saturate(x float64) HSL {
	return HSL{H: hsl.H, S: clamp01(hsl.S + x), L: hsl.L}
}

// Desaturate subtracts x from the saturation channel, clamping to [0, 1].
func (hsl HSL) Desaturate(x float64) HSL {
	return HSL{H: hsl.H, S: clamp01(hsl.S - x), L: hsl.L}
}

// Blend averages this color's RGB channels with another color's,
// returning the midpoint color. Hue wraps mod 360 after conversion back
// to HSL via RGB rounding, same as every other filter in the pipeline.
func (hsl HSL) Blend(other HSL) HSL {
	a := hsl.ToRGB()
	b := other.ToRGB()
	mixed := RGB{
		R: uint8((int(a.R) + int(b.R)) / 2),
		G: uint8((int(a.G) + int(b.G)) / 2),
		B: uint8((int(a.B) + int(b.B)) / 2),
	}
	return mixed.ToHSL()
}
