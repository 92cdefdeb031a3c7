// Package selector picks the next image to display: it loads
// candidates matching a set of constraints, weighs each one, and draws
// without replacement using a cumulative-weight binary search, per
// spec §4.4.
package selector

import (
	"fmt"
	"math/rand"
	"os"
	"sort"
	"time"

	"github.com/adewale/smartselect/internal/database"
	"github.com/adewale/smartselect/internal/models"
	"github.com/adewale/smartselect/internal/weight"
)

// Selector draws weighted-random images from the database.
type Selector struct {
	db   *database.DB
	cfg  models.SelectionConfig
	rand *rand.Rand
}

// New builds a Selector bound to db, using cfg for weighting.
func New(db *database.DB, cfg models.SelectionConfig) *Selector {
	return &Selector{
		db:   db,
		cfg:  cfg,
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetConfig replaces the selection config used for subsequent calls.
func (s *Selector) SetConfig(cfg models.SelectionConfig) {
	s.cfg = cfg
}

// weightedCandidate pairs an image with its computed weight, mirroring
// the cumulative weightList structure of a bisect-based weighted
// sampler: candidates are laid out in a slice with running cumulative
// weights, and a draw picks a random point in [0, total) then binary
// searches for the first cumulative weight exceeding it.
type weightedCandidate struct {
	image  *models.ImageRecord
	weight float64
}

// Select draws up to n distinct images matching constraints, weighted
// by recency, favorite status, newness, and palette affinity. Returns
// fewer than n if fewer candidates are available.
func (s *Selector) Select(n int, constraints *models.SelectionConstraints) ([]*models.ImageRecord, error) {
	if n <= 0 {
		return nil, nil
	}

	candidates, err := s.db.FindCandidates(constraints)
	if err != nil {
		return nil, fmt.Errorf("selector: failed to load candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	candidates = filterExisting(candidates)
	candidates = filterByPalette(candidates, constraints, s.loadPalette)
	if len(candidates) == 0 {
		return nil, nil
	}

	// Disabled selection reduces to uniform random over the surviving
	// candidates: every factor collapses to weight 1, skipping the
	// database round-trips weighAll would otherwise make to score them.
	if !s.cfg.Enabled {
		weighted := make([]weightedCandidate, len(candidates))
		for i, img := range candidates {
			weighted[i] = weightedCandidate{image: img, weight: 1}
		}
		return sampleWithoutReplacement(weighted, n, s.rand), nil
	}

	weighted, err := s.weighAll(candidates, constraints)
	if err != nil {
		return nil, err
	}
	if len(weighted) == 0 {
		return nil, nil
	}

	return sampleWithoutReplacement(weighted, n, s.rand), nil
}

// filterExisting drops candidates whose backing file no longer exists
// on disk, per spec §4.4 pipeline step 2.
func filterExisting(candidates []*models.ImageRecord) []*models.ImageRecord {
	out := make([]*models.ImageRecord, 0, len(candidates))
	for _, img := range candidates {
		if _, err := os.Stat(img.FilePath); err == nil {
			out = append(out, img)
		}
	}
	return out
}

func (s *Selector) loadPalette(filepath string) (*models.PaletteRecord, error) {
	return s.db.GetPalette(filepath)
}

// filterByPalette drops candidates whose palette similarity to the
// constraints' target falls below MinSimilarity. Images without an
// extracted palette are kept unfiltered: a pending-palette image is
// still eligible to be shown, it's just not scored on color.
func filterByPalette(candidates []*models.ImageRecord, constraints *models.SelectionConstraints, loadPalette func(string) (*models.PaletteRecord, error)) []*models.ImageRecord {
	if constraints == nil || constraints.TargetPalette == nil || constraints.MinSimilarity <= 0 {
		return candidates
	}

	var out []*models.ImageRecord
	for _, img := range candidates {
		p, err := loadPalette(img.FilePath)
		if err != nil || p == nil {
			out = append(out, img)
			continue
		}
		if paletteMeetsMinSimilarity(p, constraints) {
			out = append(out, img)
		}
	}
	return out
}

func paletteMeetsMinSimilarity(p *models.PaletteRecord, constraints *models.SelectionConstraints) bool {
	sim := targetSimilarity(p, constraints.TargetPalette)
	return sim >= constraints.MinSimilarity
}

func targetSimilarity(p *models.PaletteRecord, target *models.PaletteTarget) float64 {
	n := 0.0
	sum := 0.0
	if target.Lightness != nil {
		sum += 1 - absf(p.AvgLightness-*target.Lightness)
		n++
	}
	if target.Saturation != nil {
		sum += 1 - absf(p.AvgSaturation-*target.Saturation)
		n++
	}
	if target.Temperature != nil {
		sum += (1 - absf(p.ColorTemperature-*target.Temperature)/2.0)
		n++
	}
	if n == 0 {
		return 1
	}
	return sum / n
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func (s *Selector) weighAll(candidates []*models.ImageRecord, constraints *models.SelectionConstraints) ([]weightedCandidate, error) {
	calc := weight.NewCalculator(s.cfg)
	now := time.Now()

	sourceIDs := make([]int64, 0, len(candidates))
	seen := make(map[int64]bool)
	for _, img := range candidates {
		if img.SourceID != nil && !seen[*img.SourceID] {
			seen[*img.SourceID] = true
			sourceIDs = append(sourceIDs, *img.SourceID)
		}
	}
	sources, err := s.db.GetSourcesByIDs(sourceIDs)
	if err != nil {
		return nil, fmt.Errorf("selector: failed to load sources: %w", err)
	}

	var filepaths []string
	for _, img := range candidates {
		filepaths = append(filepaths, img.FilePath)
	}
	palettes, err := s.db.GetPalettesByFilepaths(filepaths)
	if err != nil {
		return nil, fmt.Errorf("selector: failed to load palettes: %w", err)
	}

	out := make([]weightedCandidate, 0, len(candidates))
	for _, img := range candidates {
		var source *models.SourceRecord
		if img.SourceID != nil {
			source = sources[*img.SourceID]
		}
		palette := palettes[img.FilePath]
		w, _ := calc.Weight(img, source, palette, now, constraints)
		out = append(out, weightedCandidate{image: img, weight: w})
	}
	return out, nil
}

// sampleWithoutReplacement draws up to n items from weighted candidates
// using a cumulative-weight array and binary search, removing each
// drawn item (and rebuilding the cumulative array) so later draws
// cannot repeat it.
func sampleWithoutReplacement(weighted []weightedCandidate, n int, rng *rand.Rand) []*models.ImageRecord {
	pool := make([]weightedCandidate, len(weighted))
	copy(pool, weighted)

	var result []*models.ImageRecord
	for len(pool) > 0 && len(result) < n {
		cumulative := make([]float64, len(pool))
		var total float64
		for i, c := range pool {
			total += c.weight
			cumulative[i] = total
		}

		var idx int
		if total <= 0 {
			// Every remaining weight is zero: fall back to uniform
			// random over the pool rather than stopping early.
			idx = rng.Intn(len(pool))
		} else {
			roll := rng.Float64() * total
			idx = sort.Search(len(cumulative), func(i int) bool {
				return cumulative[i] > roll
			})
			if idx >= len(pool) {
				idx = len(pool) - 1
			}
		}

		result = append(result, pool[idx].image)
		pool = append(pool[:idx], pool[idx+1:]...)
	}
	return result
}

// RecordShown marks img and its source as having just been shown.
func (s *Selector) RecordShown(img *models.ImageRecord) error {
	now := time.Now()
	if err := s.db.RecordImageShown(img.FilePath, now); err != nil {
		return fmt.Errorf("selector: failed to record image shown: %w", err)
	}
	if img.SourceID != nil {
		if err := s.db.RecordSourceShown(*img.SourceID, now); err != nil {
			return fmt.Errorf("selector: failed to record source shown: %w", err)
		}
	}
	return nil
}

// ClearHistory resets last_shown_at and times_shown across the whole
// library.
func (s *Selector) ClearHistory() error {
	return s.db.ClearShownHistory()
}
