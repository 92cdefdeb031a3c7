// Package indexer implements the incremental filesystem-to-database
// sync for the image library: it walks one or more source roots,
// diffs what it finds against what is already indexed by modification
// time, and applies the difference as a batch of upserts and deletes.
//
// It deliberately never decodes pixel data itself beyond reading an
// image's dimensions (via image.DecodeConfig) — palette extraction is
// a separate, later stage (internal/palette) run against whatever the
// indexer leaves in the pending queue.
package indexer

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/adewale/smartselect/internal/database"
	"github.com/adewale/smartselect/internal/models"
)

// supportedExtensions lists the file extensions the indexer will walk
// into the database, per spec §4.2. AVIF is included here because the
// spec calls it out as a supported format, but no decoder in this
// module's dependency set can read it: image.DecodeConfig will fail on
// an AVIF file today, and that failure is handled the same way as any
// other unreadable image (logged, skipped, no row written).
var supportedExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".webp": true, ".avif": true,
}

// Engine walks source directories and incrementally syncs the image
// database to match what it finds on disk.
type Engine struct {
	db               *database.DB
	workerCount      int
	favoritesRoot    string
	progressCallback models.ProgressCallback

	mu    sync.Mutex
	stats models.IndexingResult
}

// NewEngine creates an indexing engine bound to db, using workerCount
// goroutines to stat and decode image headers concurrently. A
// workerCount <= 0 defaults to 4. favoritesRoot is the configured
// favorites directory a walked file's path is prefix-matched against
// to determine favorite status, per spec §4.2; an empty favoritesRoot
// means no file is ever classified as a favorite by the walk.
func NewEngine(db *database.DB, workerCount int, favoritesRoot string) *Engine {
	if workerCount <= 0 {
		workerCount = 4
	}
	return &Engine{db: db, workerCount: workerCount, favoritesRoot: favoritesRoot}
}

// SetProgressCallback registers a callback invoked after each file is
// classified, with a running (current, total) count.
func (e *Engine) SetProgressCallback(cb models.ProgressCallback) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.progressCallback = cb
}

// fileEntry is one file discovered by walking a source root.
type fileEntry struct {
	path       string
	sourceType string
	isFavorite bool
	modTime    time.Time
}

// IndexSource walks rootPath, classifying every image file it finds as
// added, updated, or unchanged against the current index, and removes
// index rows for files that are no longer present under this root.
// sourceType names the rotation source (spec §3's SourceRecord) that
// every file under rootPath belongs to.
func (e *Engine) IndexSource(rootPath, sourceType string) (*models.IndexingResult, error) {
	entries, err := walkImages(rootPath, sourceType, e.favoritesRoot)
	if err != nil {
		return nil, fmt.Errorf("indexer: failed to walk %s: %w", rootPath, err)
	}

	sourceID, err := e.db.UpsertSource(sourceType)
	if err != nil {
		return nil, fmt.Errorf("indexer: failed to register source %s: %w", sourceType, err)
	}

	indexedMtimes, err := e.db.GetIndexedMtimeMap(rootPath)
	if err != nil {
		return nil, fmt.Errorf("indexer: failed to load indexed mtimes: %w", err)
	}

	onDisk := make(map[string]bool, len(entries))
	var toProcess []fileEntry
	for _, ent := range entries {
		onDisk[ent.path] = true
		existingMtime, known := indexedMtimes[ent.path]
		if known && existingMtime == ent.modTime.UnixNano() {
			continue // unchanged
		}
		toProcess = append(toProcess, ent)
	}

	var removed []string
	for path := range indexedMtimes {
		if !onDisk[path] {
			removed = append(removed, path)
		}
	}

	result := &models.IndexingResult{}
	records, failed := e.decodeAll(toProcess, sourceID)
	result.Added = len(records) - countKnown(records, indexedMtimes)
	result.Updated = len(records) - result.Added
	result.Removed = len(removed)
	_ = failed

	if err := e.upsertWithHistory(records); err != nil {
		return nil, err
	}

	if len(removed) > 0 {
		if err := e.db.BatchDeleteImages(removed); err != nil {
			return nil, fmt.Errorf("indexer: failed to remove stale entries: %w", err)
		}
	}

	e.mu.Lock()
	e.stats = *result
	e.mu.Unlock()

	return result, nil
}

// IndexSinglePath decodes and upserts one file outside of any source
// walk, for the on-the-fly indexing step record_shown performs when a
// host reports an image the database doesn't know about yet (spec
// §4.4). sourceType names the rotation source the file belongs to; a
// source record is created if it doesn't already exist.
func (e *Engine) IndexSinglePath(path, sourceType string) (*models.ImageRecord, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("indexer: failed to stat %s: %w", path, err)
	}

	sourceID, err := e.db.UpsertSource(sourceType)
	if err != nil {
		return nil, fmt.Errorf("indexer: failed to register source %s: %w", sourceType, err)
	}

	ent := fileEntry{
		path:       path,
		sourceType: sourceType,
		isFavorite: pathUnderFavoritesRoot(path, e.favoritesRoot),
		modTime:    info.ModTime(),
	}
	record, err := decodeImageFile(ent, sourceID)
	if err != nil {
		return nil, fmt.Errorf("indexer: failed to decode %s: %w", path, err)
	}

	if err := e.upsertWithHistory([]*models.ImageRecord{record}); err != nil {
		return nil, err
	}
	return record, nil
}

func countKnown(records []*models.ImageRecord, indexed map[string]int64) int {
	n := 0
	for _, r := range records {
		if _, ok := indexed[r.FilePath]; ok {
			n++
		}
	}
	return n
}

// upsertWithHistory preserves FirstIndexedAt/TimesShown/LastShownAt
// across a re-index by reading the existing row (if any) before
// overwriting it — UpsertImage's own SQL intentionally omits those
// columns from its ON CONFLICT SET clause, but a freshly decoded
// record still needs its FirstIndexedAt seeded correctly for brand new
// rows and its history fields carried for existing ones.
func (e *Engine) upsertWithHistory(records []*models.ImageRecord) error {
	now := time.Now()
	for _, r := range records {
		existing, err := e.db.GetImage(r.FilePath)
		if err != nil {
			return fmt.Errorf("indexer: failed to read existing image %s: %w", r.FilePath, err)
		}
		if existing != nil {
			r.FirstIndexedAt = existing.FirstIndexedAt
			r.TimesShown = existing.TimesShown
			r.LastShownAt = existing.LastShownAt
			r.PaletteStatus = existing.PaletteStatus
		} else {
			r.FirstIndexedAt = now
			r.PaletteStatus = models.PaletteStatusPending
		}
		r.LastIndexedAt = now
	}
	return e.db.BatchUpsertImages(records)
}

// decodeAll stats and decodes image headers for entries concurrently
// across e.workerCount goroutines, reporting progress as it goes.
func (e *Engine) decodeAll(entries []fileEntry, sourceID int64) ([]*models.ImageRecord, []error) {
	if len(entries) == 0 {
		return nil, nil
	}

	workCh := make(chan fileEntry, 100)
	type outcome struct {
		record *models.ImageRecord
		err    error
	}
	resultsCh := make(chan outcome, len(entries))

	var wg sync.WaitGroup
	for i := 0; i < e.workerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for ent := range workCh {
				rec, err := decodeImageFile(ent, sourceID)
				resultsCh <- outcome{record: rec, err: err}
			}
		}(i)
	}

	go func() {
		for _, ent := range entries {
			workCh <- ent
		}
		close(workCh)
	}()

	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	var records []*models.ImageRecord
	var errs []error
	processed := 0
	for res := range resultsCh {
		processed++
		if res.err != nil {
			errs = append(errs, res.err)
			log.Printf("indexer: skipping unreadable file: %v", res.err)
		} else {
			records = append(records, res.record)
		}

		e.mu.Lock()
		cb := e.progressCallback
		e.mu.Unlock()
		if cb != nil {
			cb(processed, len(entries), "indexing")
		}
	}

	return records, errs
}

// decodeImageFile reads a single file's dimensions and builds its
// ImageRecord. Decode failures (including any AVIF file, since this
// module carries no AVIF decoder) are returned as errors and treated
// as skippable by the caller, never as fatal.
func decodeImageFile(ent fileEntry, sourceID int64) (*models.ImageRecord, error) {
	f, err := os.Open(ent.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", ent.path, err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image header for %s: %w", ent.path, err)
	}

	info, err := os.Stat(ent.path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", ent.path, err)
	}

	var aspect float64
	if cfg.Height > 0 {
		aspect = float64(cfg.Width) / float64(cfg.Height)
	}

	return &models.ImageRecord{
		FilePath:    ent.path,
		FileName:    filepath.Base(ent.path),
		SourceID:    &sourceID,
		Width:       cfg.Width,
		Height:      cfg.Height,
		AspectRatio: aspect,
		FileSize:    info.Size(),
		FileModTime: ent.modTime,
		IsFavorite:  ent.isFavorite,
	}, nil
}

// walkImages walks rootPath, classifying a file as a favorite when its
// path falls under favoritesRoot (spec §4.2's "prefix match against a
// configured favorites root"). A non-existent root is treated as empty
// rather than an error, per the same section's edge policy.
//
// Unlike filepath.Walk, symlinked directories are followed — also per
// §4.2 — but only once per resolved real path: each directory's
// EvalSymlinks target is recorded in visited before descending, so a
// symlink cycle terminates instead of walking forever.
func walkImages(rootPath, sourceType, favoritesRoot string) ([]fileEntry, error) {
	var entries []fileEntry
	visited := make(map[string]bool)

	var walk func(path string) error
	walk = func(path string) error {
		real, err := filepath.EvalSymlinks(path)
		if err != nil {
			real = path
		}
		if visited[real] {
			return nil
		}
		visited[real] = true

		info, err := os.Stat(path)
		if err != nil {
			if path == rootPath {
				return nil // non-existent root: treat as empty
			}
			log.Printf("indexer: error walking %s: %v", path, err)
			return nil
		}

		if info.IsDir() {
			children, err := os.ReadDir(path)
			if err != nil {
				log.Printf("indexer: error reading directory %s: %v", path, err)
				return nil
			}
			for _, c := range children {
				if err := walk(filepath.Join(path, c.Name())); err != nil {
					return err
				}
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if !supportedExtensions[ext] {
			return nil
		}
		entries = append(entries, fileEntry{
			path:       path,
			sourceType: sourceType,
			isFavorite: pathUnderFavoritesRoot(path, favoritesRoot),
			modTime:    info.ModTime(),
		})
		return nil
	}

	if err := walk(rootPath); err != nil {
		return nil, err
	}
	return entries, nil
}

// pathUnderFavoritesRoot reports whether path falls under favoritesRoot,
// per spec §4.2's prefix-match rule. An empty favoritesRoot never
// matches. Both sides are filepath.Clean'd first so trailing slashes
// and "." segments don't produce false negatives.
func pathUnderFavoritesRoot(path, favoritesRoot string) bool {
	if favoritesRoot == "" {
		return false
	}
	path = filepath.Clean(path)
	root := filepath.Clean(favoritesRoot)
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}

// Stats returns a snapshot of the most recently completed IndexSource
// result.
func (e *Engine) Stats() models.IndexingResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}
