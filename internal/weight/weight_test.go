package weight

import (
	"testing"
	"time"

	"github.com/adewale/smartselect/internal/models"
)

func baseConfig() models.SelectionConfig {
	cfg := models.DefaultSelectionConfig()
	cfg.ImageCooldownDays = 7
	cfg.SourceCooldownDays = 1
	return cfg
}

func TestWeightNeverShownHasNoRecencyPenalty(t *testing.T) {
	calc := NewCalculator(baseConfig())
	img := &models.ImageRecord{FirstIndexedAt: time.Now().Add(-365 * 24 * time.Hour)}
	w, f := calc.Weight(img, nil, nil, time.Now(), nil)
	if f.Recency != 1.0 {
		t.Errorf("expected recency factor 1.0 for never-shown image, got %f", f.Recency)
	}
	if w <= 0 {
		t.Errorf("expected positive weight, got %f", w)
	}
}

func TestWeightJustShownIsPenalized(t *testing.T) {
	calc := NewCalculator(baseConfig())
	now := time.Now()
	justShown := now.Add(-time.Minute)
	img := &models.ImageRecord{LastShownAt: &justShown, FirstIndexedAt: now.Add(-365 * 24 * time.Hour)}

	w, _ := calc.Weight(img, nil, nil, now, nil)
	if w >= 1.0 {
		t.Errorf("expected a just-shown image to be heavily penalized, got weight %f", w)
	}
	if w < MinWeight {
		t.Errorf("weight should never fall below MinWeight, got %f", w)
	}
}

func TestWeightRecencyRecoversAfterCooldown(t *testing.T) {
	calc := NewCalculator(baseConfig())
	now := time.Now()
	longAgo := now.Add(-30 * 24 * time.Hour)
	img := &models.ImageRecord{LastShownAt: &longAgo, FirstIndexedAt: now.Add(-365 * 24 * time.Hour)}

	_, f := calc.Weight(img, nil, nil, now, nil)
	if f.Recency != 1.0 {
		t.Errorf("expected recency factor to fully recover after cooldown elapsed, got %f", f.Recency)
	}
}

func TestWeightRecencyAtHalfCooldownIsApproximatelyHalf(t *testing.T) {
	calc := NewCalculator(baseConfig())
	now := time.Now()
	halfway := now.Add(-3.5 * 24 * time.Hour)
	img := &models.ImageRecord{LastShownAt: &halfway, FirstIndexedAt: now.Add(-365 * 24 * time.Hour)}

	_, f := calc.Weight(img, nil, nil, now, nil)
	if f.Recency < 0.45 || f.Recency > 0.55 {
		t.Errorf("expected recency factor near 0.5 at cooldown midpoint, got %f", f.Recency)
	}
}

func TestWeightFavoriteBoost(t *testing.T) {
	cfg := baseConfig()
	cfg.FavoriteBoost = 2.0
	calc := NewCalculator(cfg)
	now := time.Now()

	plain := &models.ImageRecord{FirstIndexedAt: now.Add(-365 * 24 * time.Hour)}
	fav := &models.ImageRecord{FirstIndexedAt: now.Add(-365 * 24 * time.Hour), IsFavorite: true}

	wPlain, _ := calc.Weight(plain, nil, nil, now, nil)
	wFav, _ := calc.Weight(fav, nil, nil, now, nil)

	if wFav <= wPlain {
		t.Errorf("expected favorite weight (%f) to exceed plain weight (%f)", wFav, wPlain)
	}
}

func TestWeightNewnessBoostIsStepOnTimesShown(t *testing.T) {
	cfg := baseConfig()
	cfg.NewImageBoost = 2.0
	calc := NewCalculator(cfg)
	now := time.Now()

	// Never shown, indexed long ago: still gets the full boost.
	neverShownOld := &models.ImageRecord{FirstIndexedAt: now.Add(-365 * 24 * time.Hour), TimesShown: 0}
	// Shown once, indexed moments ago: boost is already gone.
	shownRecent := &models.ImageRecord{FirstIndexedAt: now, TimesShown: 1}

	wNeverShownOld, _ := calc.Weight(neverShownOld, nil, nil, now, nil)
	wShownRecent, _ := calc.Weight(shownRecent, nil, nil, now, nil)

	if wNeverShownOld <= wShownRecent {
		t.Errorf("expected unshown image weight (%f) to exceed already-shown image weight (%f) regardless of age", wNeverShownOld, wShownRecent)
	}
}

func TestWeightColorMatchFavorsCloserPalette(t *testing.T) {
	cfg := baseConfig()
	cfg.ColorMatchWeight = 1.0
	calc := NewCalculator(cfg)
	now := time.Now()
	img := &models.ImageRecord{FirstIndexedAt: now.Add(-365 * 24 * time.Hour)}

	targetLightness := 0.5
	constraints := &models.SelectionConstraints{
		TargetPalette: &models.PaletteTarget{Lightness: &targetLightness, Tolerance: 0.5},
	}

	close := &models.PaletteRecord{AvgLightness: 0.5}
	far := &models.PaletteRecord{AvgLightness: 0.05}

	wClose, _ := calc.Weight(img, nil, close, now, constraints)
	wFar, _ := calc.Weight(img, nil, far, now, constraints)

	if wClose <= wFar {
		t.Errorf("expected closer palette weight (%f) to exceed farther palette weight (%f)", wClose, wFar)
	}
}

func TestWeightMissingPaletteTakesFixedPenalty(t *testing.T) {
	cfg := baseConfig()
	cfg.ColorMatchWeight = 1.0
	calc := NewCalculator(cfg)
	now := time.Now()
	img := &models.ImageRecord{FirstIndexedAt: now.Add(-365 * 24 * time.Hour)}

	targetLightness := 0.5
	constraints := &models.SelectionConstraints{
		TargetPalette: &models.PaletteTarget{Lightness: &targetLightness},
	}

	_, f := calc.Weight(img, nil, nil, now, constraints)
	if f.ColorMatch != 0.8 {
		t.Errorf("expected fixed 0.8 penalty for missing palette, got %f", f.ColorMatch)
	}
}

func TestWeightColorMatchClampedToRange(t *testing.T) {
	cfg := baseConfig()
	cfg.ColorMatchWeight = 10.0 // exaggerate to push past the clamp
	calc := NewCalculator(cfg)
	now := time.Now()
	img := &models.ImageRecord{FirstIndexedAt: now.Add(-365 * 24 * time.Hour)}

	targetLightness := 0.5
	constraints := &models.SelectionConstraints{
		TargetPalette: &models.PaletteTarget{Lightness: &targetLightness},
	}
	exact := &models.PaletteRecord{AvgLightness: 0.5}

	_, f := calc.Weight(img, nil, exact, now, constraints)
	if f.ColorMatch > 2.0 || f.ColorMatch < 0.1 {
		t.Errorf("color match factor %f escaped the [0.1, 2.0] clamp", f.ColorMatch)
	}
}

func TestWeightNeverBelowMinWeight(t *testing.T) {
	cfg := baseConfig()
	cfg.FavoriteBoost = 0
	calc := NewCalculator(cfg)
	now := time.Now()
	justShown := now.Add(-time.Second)
	img := &models.ImageRecord{LastShownAt: &justShown, FirstIndexedAt: now}

	w, _ := calc.Weight(img, nil, nil, now, nil)
	if w < MinWeight {
		t.Errorf("weight %f fell below MinWeight %f", w, MinWeight)
	}
}
