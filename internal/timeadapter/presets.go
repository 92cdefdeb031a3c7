// Package timeadapter determines the current day/night period and the
// target palette metrics that period should steer selection and theming
// toward, per spec §4.6.
package timeadapter

import "github.com/adewale/smartselect/internal/models"

// preset is one named point in lightness/temperature/saturation space.
type preset struct {
	Lightness   float64
	Temperature float64
	Saturation  float64
}

// presets is the fixed enumeration of named palette targets from spec
// §4.6. "custom" is handled separately since its values come from the
// config's override fields rather than this table.
var presets = map[string]preset{
	"bright_day":  {Lightness: 0.7, Temperature: 0.3, Saturation: 0.6},
	"neutral_day": {Lightness: 0.6, Temperature: 0.0, Saturation: 0.5},
	"cozy_night":  {Lightness: 0.3, Temperature: 0.4, Saturation: 0.4},
	"cool_night":  {Lightness: 0.25, Temperature: -0.3, Saturation: 0.5},
	"dark_mode":   {Lightness: 0.2, Temperature: 0.0, Saturation: 0.4},
}

// resolvePreset looks up name in the fixed table, falling back to the
// "custom" case (cfg's override fields) when name is "custom" or
// unrecognized.
func resolvePreset(name string, cfg models.SelectionConfig) models.PaletteTarget {
	if p, ok := presets[name]; ok {
		return models.PaletteTarget{
			Lightness:   floatPtr(p.Lightness),
			Temperature: floatPtr(p.Temperature),
			Saturation:  floatPtr(p.Saturation),
			Tolerance:   cfg.Tolerance,
		}
	}
	return models.PaletteTarget{
		Lightness:   cfg.OverrideLightness,
		Temperature: cfg.OverrideTemperature,
		Saturation:  cfg.OverrideSaturation,
		Tolerance:   cfg.Tolerance,
	}
}

func floatPtr(v float64) *float64 {
	return &v
}
