// Package engine composes the database, indexer, selector, palette,
// timeadapter, and theming packages behind the single surface a host
// application consumes, per spec §6: select_images, record_shown,
// rebuild_index, extract_all_palettes, clear_history, get_statistics,
// get_time_based_temperature, get_time_period, and the theme_engine's
// apply/apply_debounced pair.
package engine

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/adewale/smartselect/internal/database"
	"github.com/adewale/smartselect/internal/indexer"
	"github.com/adewale/smartselect/internal/models"
	"github.com/adewale/smartselect/internal/palette"
	"github.com/adewale/smartselect/internal/selector"
	"github.com/adewale/smartselect/internal/theming"
	"github.com/adewale/smartselect/internal/timeadapter"
)

// defaultSourceType names the rotation source that RecordShown's
// on-the-fly indexing registers an image under when record_shown sees
// a path the database doesn't already know about and no source can be
// inferred from the path's directory layout.
const defaultSourceType = "adhoc"

// Options configures a new Engine. AnalyzerBinary/AnalyzerConfigPath/
// AnalyzerCacheDir wire the palette extractor's external analyzer
// process; ThemingOverlayPath is the optional JSON enable/disable
// overlay. A zero Options value produces reasonable defaults.
type Options struct {
	WorkerCount         int
	FavoritesRoot       string
	AnalyzerBinary      string
	AnalyzerConfigPath  string
	AnalyzerCacheDir    string
	ThemingOverlayPath  string
	PaletteExtractionOn bool
}

// Engine is the single composed entry point the surrounding host
// application drives.
type Engine struct {
	db       *database.DB
	index    *indexer.Engine
	sel      *selector.Selector
	extract  *palette.Extractor
	pool     *palette.Pool
	adapter  *timeadapter.Adapter
	theme    *theming.Engine
	cfg      models.SelectionConfig
	opts     Options
}

// New builds an Engine bound to db, using cfg for weighting and time
// adaptation.
func New(db *database.DB, cfg models.SelectionConfig, opts Options) *Engine {
	if opts.AnalyzerBinary == "" {
		opts.AnalyzerBinary = "wallust"
	}

	extractor := palette.NewExtractor(opts.AnalyzerBinary, opts.AnalyzerConfigPath, opts.AnalyzerCacheDir)
	return &Engine{
		db:      db,
		index:   indexer.NewEngine(db, opts.WorkerCount, opts.FavoritesRoot),
		sel:     selector.New(db, cfg),
		extract: extractor,
		pool:    palette.NewPool(extractor, opts.WorkerCount),
		adapter: timeadapter.New(cfg),
		theme:   theming.NewEngine(db, opts.AnalyzerConfigPath, opts.ThemingOverlayPath),
		cfg:     cfg,
		opts:    opts,
	}
}

// SetConfig swaps the selection/time-adaptation config used by
// subsequent calls.
func (e *Engine) SetConfig(cfg models.SelectionConfig) {
	e.cfg = cfg
	e.sel.SetConfig(cfg)
	e.adapter.SetConfig(cfg)
}

// SelectImages draws up to count distinct file paths matching
// constraints, per spec §4.4.
func (e *Engine) SelectImages(count int, constraints *models.SelectionConstraints) ([]string, error) {
	images, err := e.sel.Select(count, constraints)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(images))
	for i, img := range images {
		paths[i] = img.FilePath
	}
	return paths, nil
}

// RecordShown runs the idempotent-on-retry sequence from spec §4.4:
// on-the-fly index the image if it's unknown, bump its and its
// source's show history, persist the supplied palette (or extract one
// synchronously if none was supplied and extraction is enabled).
func (e *Engine) RecordShown(filepath_ string, palette_ *models.PaletteRecord) error {
	img, err := e.db.GetImage(filepath_)
	if err != nil {
		return fmt.Errorf("engine: failed to look up %s: %w", filepath_, err)
	}
	if img == nil {
		img, err = e.index.IndexSinglePath(filepath_, inferSourceType(filepath_))
		if err != nil {
			return fmt.Errorf("engine: failed to index %s on the fly: %w", filepath_, err)
		}
	}

	if err := e.sel.RecordShown(img); err != nil {
		return err
	}

	if palette_ != nil {
		palette_.FilePath = filepath_
		if err := e.db.UpsertPalette(palette_); err != nil {
			return fmt.Errorf("engine: failed to persist supplied palette for %s: %w", filepath_, err)
		}
		return nil
	}

	if !e.opts.PaletteExtractionOn {
		return nil
	}

	extracted, err := e.extract.Extract(filepath_)
	if err != nil {
		return fmt.Errorf("engine: failed to extract palette for %s: %w", filepath_, err)
	}
	if extracted == nil {
		if err := e.db.SetPaletteStatus(filepath_, models.PaletteStatusFailed); err != nil {
			return fmt.Errorf("engine: failed to mark palette extraction failed for %s: %w", filepath_, err)
		}
		return nil
	}
	if err := e.db.UpsertPalette(extracted); err != nil {
		return fmt.Errorf("engine: failed to persist extracted palette for %s: %w", filepath_, err)
	}
	return nil
}

// inferSourceType derives a rotation source name from an on-the-fly
// indexed path's parent directory, falling back to defaultSourceType
// when the path has no usable parent (e.g. a bare filename).
func inferSourceType(path string) string {
	dir := filepath.Base(filepath.Dir(path))
	if dir == "" || dir == "." || dir == string(filepath.Separator) {
		return defaultSourceType
	}
	return dir
}

// RebuildIndex backs up the database, then re-indexes every folder in
// folders, preserving history on paths that remain present, per spec
// §4.4's "Rebuild index" step.
func (e *Engine) RebuildIndex(folders []string, progress models.ProgressCallback) (*models.IndexingResult, error) {
	backupPath := fmt.Sprintf("%s.bak-%d", "smartselect", time.Now().UnixNano())
	if err := e.db.Backup(backupPath); err != nil {
		return nil, fmt.Errorf("engine: failed to back up database before rebuild: %w", err)
	}

	e.index.SetProgressCallback(progress)

	total := &models.IndexingResult{}
	for _, folder := range folders {
		result, err := e.index.IndexSource(folder, filepath.Base(folder))
		if err != nil {
			return total, fmt.Errorf("engine: failed to rebuild index for %s: %w", folder, err)
		}
		total.Added += result.Added
		total.Updated += result.Updated
		total.Removed += result.Removed
	}
	return total, nil
}

// extractBatchPageSize bounds how many pending-palette images are
// pulled from the database per page during ExtractAllPalettes, so a
// very large pending backlog never loads entirely into memory at once.
const extractBatchPageSize = 200

// ExtractAllPalettes extracts palettes for every image whose
// palette_status is still "pending", paging through the backlog so
// memory use stays bounded regardless of library size.
func (e *Engine) ExtractAllPalettes(progress models.ProgressCallback) (int, error) {
	processed := 0
	for {
		pending, err := e.db.GetImagesWithoutPalettes(extractBatchPageSize, 0)
		if err != nil {
			return processed, fmt.Errorf("engine: failed to load pending-palette images: %w", err)
		}
		if len(pending) == 0 {
			return processed, nil
		}

		paths := make([]string, len(pending))
		for i, img := range pending {
			paths[i] = img.FilePath
		}

		results := e.pool.ExtractBatch(paths, progress)
		for _, r := range results {
			processed++
			if r.Err != nil || r.Palette == nil {
				_ = e.db.SetPaletteStatus(r.FilePath, models.PaletteStatusFailed)
				continue
			}
			_ = e.db.UpsertPalette(r.Palette)
		}
	}
}

// ClearHistory resets last_shown_at and times_shown across the whole
// library.
func (e *Engine) ClearHistory() error {
	return e.sel.ClearHistory()
}

// GetStatistics returns the aggregate library snapshot from spec §4.1.
func (e *Engine) GetStatistics() (*models.Statistics, error) {
	return e.db.GetStatistics()
}

// GetTimeBasedTemperature returns the current period's target color
// temperature, or 0 if the configured preset doesn't specify one.
func (e *Engine) GetTimeBasedTemperature() (float64, error) {
	target, err := e.adapter.PaletteTarget()
	if err != nil {
		return 0, err
	}
	if target.Temperature == nil {
		return 0, nil
	}
	return *target.Temperature, nil
}

// GetTimePeriod reports the current "day"/"night" classification.
func (e *Engine) GetTimePeriod() (timeadapter.Period, error) {
	return e.adapter.CurrentPeriod()
}

// ApplyTheme synchronously expands the template registry against
// imagePath's cached palette.
func (e *Engine) ApplyTheme(imagePath string) error {
	return e.theme.Apply(imagePath)
}

// ApplyThemeDebounced schedules a debounced theme apply for imagePath.
func (e *Engine) ApplyThemeDebounced(imagePath string) {
	e.theme.ApplyDebounced(imagePath)
}

// Close releases the theming engine's debounce timer. It does not
// close the underlying database; the caller owns that lifecycle.
func (e *Engine) Close() {
	e.theme.Close()
}
