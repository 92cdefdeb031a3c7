package color

import "math"

// Metrics is the aggregate derived-metric triple (plus temperature)
// computed for a palette: the same four values compared by Similarity.
type Metrics struct {
	Hue         float64 // 0-360
	Saturation  float64 // 0-1
	Lightness   float64 // 0-1
	Temperature float64 // -1..1
}

const (
	weightHue         = 0.35
	weightSaturation  = 0.15
	weightLightness   = 0.35
	weightTemperature = 0.15
)

// Similarity computes the weighted sum of four subscores between two
// metric sets, each in [0, 1]. It is symmetric (Similarity(a,b) ==
// Similarity(b,a)) and returns 1 for identical inputs, per spec §8.
func Similarity(a, b Metrics) float64 {
	hueScore := 1 - hueDistance(a.Hue, b.Hue)/180.0
	satScore := 1 - math.Abs(a.Saturation-b.Saturation)
	lightScore := 1 - math.Abs(a.Lightness-b.Lightness)
	tempScore := 1 - math.Abs(a.Temperature-b.Temperature)/2.0

	sum := hueScore*weightHue + satScore*weightSaturation +
		lightScore*weightLightness + tempScore*weightTemperature
	return clamp01(sum)
}

// hueDistance returns the circular distance between two hues in degrees,
// in [0, 180].
func hueDistance(h1, h2 float64) float64 {
	d := math.Abs(WrapHue(h1) - WrapHue(h2))
	if d > 180 {
		d = 360 - d
	}
	return d
}
