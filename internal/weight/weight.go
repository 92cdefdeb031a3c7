// Package weight computes the selection weight of a candidate image
// from its recency, favorite status, freshness, and palette similarity
// to a target, per spec §4.3.
package weight

import (
	"math"
	"time"

	"github.com/adewale/smartselect/internal/color"
	"github.com/adewale/smartselect/internal/models"
)

// MinWeight is the floor every computed weight is clamped to, so an
// image that has accumulated every penalty can still be drawn rather
// than divide-by-zero out of the candidate pool entirely.
const MinWeight = 1e-6

// Factors is the per-image decomposition of its final weight, exposed
// mainly for tests and diagnostics.
type Factors struct {
	Recency       float64
	SourceRecency float64
	Favorite      float64
	Newness       float64
	ColorMatch    float64
}

// Calculator computes image weights from a SelectionConfig.
type Calculator struct {
	cfg models.SelectionConfig
}

// NewCalculator builds a Calculator bound to cfg.
func NewCalculator(cfg models.SelectionConfig) *Calculator {
	return &Calculator{cfg: cfg}
}

// Weight computes the final selection weight for img, given its
// source (may be nil if the image has no source), the current time,
// and optional selection constraints carrying a target palette and
// continuity palette.
func (c *Calculator) Weight(img *models.ImageRecord, source *models.SourceRecord, palette *models.PaletteRecord, now time.Time, constraints *models.SelectionConstraints) (float64, Factors) {
	f := Factors{
		Recency:       c.recencyFactor(img.LastShownAt, now),
		SourceRecency: c.sourceRecencyFactor(source, now),
		Favorite:      c.favoriteFactor(img.IsFavorite),
		Newness:       c.newnessFactor(img.TimesShown),
		ColorMatch:    c.colorMatchFactor(palette, constraints),
	}

	w := f.Recency * f.SourceRecency * f.Favorite * f.Newness * f.ColorMatch
	if w < MinWeight {
		w = MinWeight
	}
	return w, f
}

// recencyFactor applies the configured cooldown-decay curve to the
// time since an image was last shown. An image never shown has no
// recency penalty.
func (c *Calculator) recencyFactor(lastShownAt *time.Time, now time.Time) float64 {
	if lastShownAt == nil {
		return 1.0
	}
	daysSince := now.Sub(*lastShownAt).Hours() / 24.0
	return decayCurve(c.cfg.RecencyDecay, daysSince, c.cfg.ImageCooldownDays)
}

// sourceRecencyFactor applies the same decay curve to the time since
// any image from this image's source was last shown, so a source that
// was just used is deprioritized even if this particular image wasn't
// the one shown.
func (c *Calculator) sourceRecencyFactor(source *models.SourceRecord, now time.Time) float64 {
	if source == nil || source.LastShownAt == nil {
		return 1.0
	}
	daysSince := now.Sub(*source.LastShownAt).Hours() / 24.0
	return decayCurve(c.cfg.RecencyDecay, daysSince, c.cfg.SourceCooldownDays)
}

// decayCurve evaluates one of the three recency-decay shapes. daysSince
// and cooldownDays are both in days; cooldownDays <= 0 disables the
// cooldown (the factor is always 1).
func decayCurve(shape models.RecencyDecay, daysSince, cooldownDays float64) float64 {
	if cooldownDays <= 0 {
		return 1.0
	}
	ratio := daysSince / cooldownDays
	if ratio < 0 {
		ratio = 0
	}

	switch shape {
	case models.DecayLinear:
		if ratio >= 1.0 {
			return 1.0
		}
		return ratio
	case models.DecayStep:
		if ratio >= 1.0 {
			return 1.0
		}
		return 0.0
	case models.DecayExponential:
		fallthrough
	default:
		// Sigmoid centered on ratio=0.5, the steepness spec §4.3 names
		// (k=12): ~0 just after being shown, ~0.5 at the cooldown
		// midpoint, asymptotically ~1 once the cooldown has elapsed.
		return 1.0 / (1.0 + math.Exp(-12*(ratio-0.5)))
	}
}

// favoriteFactor multiplies in the configured favorite boost.
func (c *Calculator) favoriteFactor(isFavorite bool) float64 {
	if isFavorite && c.cfg.FavoriteBoost > 0 {
		return c.cfg.FavoriteBoost
	}
	return 1.0
}

// newnessFactor boosts an image that has never been shown. Per spec
// §4.3 this is a boolean step on TimesShown, not a time-based decay:
// an image keeps the full boost until the first time it's drawn, then
// drops to 1 permanently, regardless of how long ago it was indexed.
func (c *Calculator) newnessFactor(timesShown int) float64 {
	if timesShown == 0 {
		return c.cfg.NewImageBoost
	}
	return 1.0
}

// colorMatchFactor scores a candidate's palette similarity against the
// constraints' target and/or continuity palette, per the §4.3 mapping:
// no target (or ColorMatchWeight == 0) leaves the factor at 1; a
// candidate with no extracted palette takes the fixed 0.8 penalty;
// otherwise similarity >= 0.5 maps onto [1, 1+ColorMatchWeight] and
// similarity < 0.5 maps onto [0.1, 1] (this lower branch is not scaled
// by ColorMatchWeight), then clamped to [0.1, 2.0].
func (c *Calculator) colorMatchFactor(palette *models.PaletteRecord, constraints *models.SelectionConstraints) float64 {
	if constraints == nil || c.cfg.ColorMatchWeight <= 0 {
		return 1.0
	}
	hasTarget := constraints.TargetPalette != nil
	hasContinuity := constraints.ContinuityMode && constraints.ContinuityPalette != nil
	if !hasTarget && !hasContinuity {
		return 1.0
	}
	if palette == nil {
		return 0.8
	}

	sim := blendedSimilarity(palette, constraints, hasTarget, hasContinuity)
	return colorAffinity(sim, c.cfg.ColorMatchWeight)
}

// blendedSimilarity combines target-palette similarity and
// continuity-palette similarity when both are active, weighted by
// ContinuityWeight; either alone is used directly.
func blendedSimilarity(palette *models.PaletteRecord, constraints *models.SelectionConstraints, hasTarget, hasContinuity bool) float64 {
	switch {
	case hasTarget && hasContinuity:
		simTarget := similarityToTarget(palette, constraints.TargetPalette)
		simCont := color.Similarity(metricsOf(palette), metricsOf(constraints.ContinuityPalette))
		w := constraints.ContinuityWeight
		return simTarget*(1-w) + simCont*w
	case hasContinuity:
		return color.Similarity(metricsOf(palette), metricsOf(constraints.ContinuityPalette))
	default:
		return similarityToTarget(palette, constraints.TargetPalette)
	}
}

// colorAffinity implements spec §4.3's similarity-to-multiplier mapping.
func colorAffinity(sim, w float64) float64 {
	var aff float64
	if sim >= 0.5 {
		aff = 1 + (sim-0.5)*2*w
	} else {
		aff = 0.1 + (sim/0.5)*0.9
	}
	return clampRange(aff, 0.1, 2.0)
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func metricsOf(p *models.PaletteRecord) color.Metrics {
	return color.Metrics{
		Hue:         p.AvgHue,
		Saturation:  p.AvgSaturation,
		Lightness:   p.AvgLightness,
		Temperature: p.ColorTemperature,
	}
}

// similarityToTarget scores a palette against a partial target: only
// the dimensions the target specifies are compared, each weighted
// evenly. The target's Tolerance is not read here, and the selector's
// hard filter uses MinSimilarity rather than Tolerance — this function
// only produces the raw [0,1] score colorAffinity maps onto a weight
// multiplier.
func similarityToTarget(p *models.PaletteRecord, target *models.PaletteTarget) float64 {
	var scores []float64
	if target.Lightness != nil {
		scores = append(scores, 1-math.Abs(p.AvgLightness-*target.Lightness))
	}
	if target.Temperature != nil {
		scores = append(scores, 1-math.Abs(p.ColorTemperature-*target.Temperature)/2.0)
	}
	if target.Saturation != nil {
		scores = append(scores, 1-math.Abs(p.AvgSaturation-*target.Saturation))
	}
	if len(scores) == 0 {
		return 1.0
	}
	return color.Clamp01(color.Mean(scores))
}
