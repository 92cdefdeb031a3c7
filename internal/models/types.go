// Package models defines the core data structures shared between the
// database, indexer, palette, weight, selector, time adapter, and theming
// packages of the smart selection engine.
package models

import "time"

// PaletteStatus tracks whether an image's 16-color palette has been
// extracted yet.
type PaletteStatus string

const (
	PaletteStatusPending   PaletteStatus = "pending"
	PaletteStatusExtracted PaletteStatus = "extracted"
	PaletteStatusFailed    PaletteStatus = "failed"
)

// RecencyDecay selects the shape of the recency-cooldown curve.
type RecencyDecay string

const (
	DecayExponential RecencyDecay = "exponential"
	DecayLinear      RecencyDecay = "linear"
	DecayStep        RecencyDecay = "step"
)

// TimeAdaptationMethod selects how the current period (day/night) is
// determined.
type TimeAdaptationMethod string

const (
	MethodSunriseSunset TimeAdaptationMethod = "sunrise_sunset"
	MethodFixed         TimeAdaptationMethod = "fixed"
	MethodSystemTheme   TimeAdaptationMethod = "system_theme"
)

// ImageRecord is the primary entity, keyed by absolute file path.
type ImageRecord struct {
	FilePath       string
	FileName       string
	SourceID       *int64
	Width          int
	Height         int
	AspectRatio    float64
	FileSize       int64
	FileModTime    time.Time
	IsFavorite     bool
	FirstIndexedAt time.Time
	LastIndexedAt  time.Time
	LastShownAt    *time.Time
	TimesShown     int
	PaletteStatus  PaletteStatus
}

// SourceRecord is a named rotation source: a folder, a remote feed, or a
// favorites bin.
type SourceRecord struct {
	SourceID    int64
	SourceType  string
	LastShownAt *time.Time
	TimesShown  int
}

// PaletteRecord is the per-image palette, keyed by FilePath and
// cascade-deleted with its image.
type PaletteRecord struct {
	FilePath string
	Color0   string
	Color1   string
	Color2   string
	Color3   string
	Color4   string
	Color5   string
	Color6   string
	Color7   string
	Color8   string
	Color9   string
	Color10  string
	Color11  string
	Color12  string
	Color13  string
	Color14  string
	Color15  string

	Background string
	Foreground string
	Cursor     string

	AvgHue           float64
	AvgSaturation    float64
	AvgLightness     float64
	ColorTemperature float64
	IndexedAt        time.Time
}

// Colors returns the 16 palette slots in color0..color15 order.
func (p *PaletteRecord) Colors() [16]string {
	return [16]string{
		p.Color0, p.Color1, p.Color2, p.Color3,
		p.Color4, p.Color5, p.Color6, p.Color7,
		p.Color8, p.Color9, p.Color10, p.Color11,
		p.Color12, p.Color13, p.Color14, p.Color15,
	}
}

// SetColors assigns colors[0..15] into Color0..Color15.
func (p *PaletteRecord) SetColors(colors [16]string) {
	p.Color0, p.Color1, p.Color2, p.Color3 = colors[0], colors[1], colors[2], colors[3]
	p.Color4, p.Color5, p.Color6, p.Color7 = colors[4], colors[5], colors[6], colors[7]
	p.Color8, p.Color9, p.Color10, p.Color11 = colors[8], colors[9], colors[10], colors[11]
	p.Color12, p.Color13, p.Color14, p.Color15 = colors[12], colors[13], colors[14], colors[15]
}

// PaletteTarget is the desired palette metrics the selector scores
// candidates against: a subset of avg_* metrics plus a similarity
// tolerance.
type PaletteTarget struct {
	Lightness   *float64
	Temperature *float64
	Saturation  *float64
	Tolerance   float64
}

// SelectionConstraints are optional per-call filters passed to
// Selector.Select.
type SelectionConstraints struct {
	MinWidth        *int
	MinHeight       *int
	MaxWidth        *int
	MaxHeight       *int
	MinAspectRatio  *float64
	MaxAspectRatio  *float64
	SourceWhitelist []int64
	FavoritesOnly   bool

	TargetPalette *PaletteTarget
	MinSimilarity float64

	ContinuityMode    bool
	ContinuityWeight  float64
	ContinuityPalette *PaletteRecord
}

// SelectionConfig holds process-wide tunables for the weight calculator
// and time adapter. It is owned by the host and passed by value.
type SelectionConfig struct {
	Enabled            bool
	ImageCooldownDays  float64
	SourceCooldownDays float64
	FavoriteBoost      float64
	NewImageBoost      float64
	ColorMatchWeight   float64
	RecencyDecay       RecencyDecay

	TimeAdaptationMethod TimeAdaptationMethod
	Latitude             float64
	Longitude            float64
	DayStart             string // "HH:MM"
	NightStart           string // "HH:MM"
	DayPreset            string
	NightPreset          string
	OverrideLightness    *float64
	OverrideTemperature  *float64
	OverrideSaturation   *float64
	Tolerance            float64
}

// DefaultSelectionConfig returns the tunables documented in spec §3.
func DefaultSelectionConfig() SelectionConfig {
	return SelectionConfig{
		Enabled:              true,
		ImageCooldownDays:    7,
		SourceCooldownDays:   1,
		FavoriteBoost:        2.0,
		NewImageBoost:        1.5,
		ColorMatchWeight:     1.0,
		RecencyDecay:         DecayExponential,
		TimeAdaptationMethod: MethodFixed,
		DayStart:             "07:00",
		NightStart:           "19:00",
		DayPreset:            "neutral_day",
		NightPreset:          "cozy_night",
		Tolerance:            0.15,
	}
}

// IndexingResult reports the outcome of an incremental index or rebuild.
type IndexingResult struct {
	Added   int
	Updated int
	Removed int
}

// ProgressCallback is invoked after each processed file during indexing
// or palette extraction, with a human-readable message.
type ProgressCallback func(current, total int, message string)

// Statistics is the aggregate snapshot returned by GetStatistics.
type Statistics struct {
	TotalImages       int
	TotalFavorites    int
	TotalPalettes     int
	TotalShown        int
	LightnessBuckets  map[string]int
	HueFamilyBuckets  map[string]int
	SaturationBuckets map[string]int
	FreshnessBuckets  map[string]int
}
