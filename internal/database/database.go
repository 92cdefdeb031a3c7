// Package database provides the thread-safe, transactional SQLite store
// for the smart selection engine's images, sources, and palettes.
//
// All public operations acquire an internal mutex so that any sequence
// of operations issued from one goroutine is atomic with respect to
// others; concurrent callers are serialized at the component boundary,
// per spec §4.1. Close holds the same lock and is idempotent.
package database

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/adewale/smartselect/internal/models"
)

// execer is satisfied by both *sql.DB and *sql.Tx, letting the schema
// and migration helpers run against either.
type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// DB is the thread-safe SQLite-backed image database.
type DB struct {
	mu     sync.Mutex
	sqldb  *sql.DB
	closed bool
}

// Open creates (or opens) the database file at path, enabling WAL mode
// and foreign-key cascades, and runs schema migrations to bring it to
// schemaVersion.
func Open(path string) (*DB, error) {
	sqldb, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("database: failed to open %s: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := sqldb.Exec(p); err != nil {
			sqldb.Close()
			return nil, fmt.Errorf("database: failed to set pragma %q: %w", p, err)
		}
	}

	db := &DB{sqldb: sqldb}
	if err := db.migrate(); err != nil {
		sqldb.Close()
		return nil, err
	}

	return db, nil
}

// migrate creates the base schema (idempotent) and runs any pending
// migration steps, recording the resulting version in schema_info.
func (db *DB) migrate() error {
	if _, err := db.sqldb.Exec(baseSchema); err != nil {
		return fmt.Errorf("database: failed to create schema: %w", err)
	}

	var count int
	if err := db.sqldb.QueryRow("SELECT COUNT(*) FROM schema_info").Scan(&count); err != nil {
		return fmt.Errorf("database: failed to read schema_info: %w", err)
	}

	var current int
	if count == 0 {
		current = 0
		if _, err := db.sqldb.Exec("INSERT INTO schema_info (version) VALUES (?)", current); err != nil {
			return fmt.Errorf("database: failed to seed schema_info: %w", err)
		}
	} else {
		if err := db.sqldb.QueryRow("SELECT version FROM schema_info LIMIT 1").Scan(&current); err != nil {
			return fmt.Errorf("database: failed to read schema version: %w", err)
		}
	}

	for current < schemaVersion && current < len(migrations) {
		if err := migrations[current](db.sqldb); err != nil {
			return fmt.Errorf("database: migration step %d failed: %w", current, err)
		}
		current++
		if _, err := db.sqldb.Exec("UPDATE schema_info SET version = ?", current); err != nil {
			return fmt.Errorf("database: failed to advance schema version: %w", err)
		}
	}

	return nil
}

// Close releases the underlying connection. It holds the internal lock
// to prevent use-after-close and is safe to call more than once.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil
	}
	db.closed = true
	return db.sqldb.Close()
}

func (db *DB) checkOpen() error {
	if db.closed {
		return fmt.Errorf("database: use of closed database")
	}
	return nil
}

// --- Images -----------------------------------------------------------

// UpsertImage inserts an image row, or updates an existing one. On
// conflict the update leaves first_indexed_at, last_shown_at and
// times_shown untouched, so show history survives a re-index; the
// values those fields carry in img are only written for a new row.
func (db *DB) UpsertImage(img *models.ImageRecord) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.checkOpen(); err != nil {
		return err
	}
	return upsertImage(db.sqldb, img)
}

func upsertImage(ex execer, img *models.ImageRecord) error {
	_, err := ex.Exec(`
		INSERT INTO images (
			filepath, filename, source_id, width, height, aspect_ratio,
			file_size, file_mtime, is_favorite, first_indexed_at,
			last_indexed_at, last_shown_at, times_shown, palette_status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(filepath) DO UPDATE SET
			filename = excluded.filename,
			source_id = excluded.source_id,
			width = excluded.width,
			height = excluded.height,
			aspect_ratio = excluded.aspect_ratio,
			file_size = excluded.file_size,
			file_mtime = excluded.file_mtime,
			is_favorite = excluded.is_favorite,
			last_indexed_at = excluded.last_indexed_at,
			palette_status = excluded.palette_status
	`,
		img.FilePath, img.FileName, nullInt64(img.SourceID), img.Width, img.Height,
		img.AspectRatio, img.FileSize, img.FileModTime, img.IsFavorite,
		img.FirstIndexedAt, img.LastIndexedAt, nullTime(img.LastShownAt),
		img.TimesShown, string(img.PaletteStatus),
	)
	if err != nil {
		return fmt.Errorf("database: failed to upsert image %s: %w", img.FilePath, err)
	}
	return nil
}

// GetImage returns the image at filepath, or (nil, nil) if absent.
func (db *DB) GetImage(filepath string) (*models.ImageRecord, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.checkOpen(); err != nil {
		return nil, err
	}
	return getImage(db.sqldb, filepath)
}

func getImage(q queryer, filepath string) (*models.ImageRecord, error) {
	row := q.QueryRow(`
		SELECT filepath, filename, source_id, width, height, aspect_ratio,
		       file_size, file_mtime, is_favorite, first_indexed_at,
		       last_indexed_at, last_shown_at, times_shown, palette_status
		FROM images WHERE filepath = ?
	`, filepath)
	img, err := scanImage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("database: failed to get image %s: %w", filepath, err)
	}
	return img, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanImage(row rowScanner) (*models.ImageRecord, error) {
	var img models.ImageRecord
	var sourceID sql.NullInt64
	var aspectRatio sql.NullFloat64
	var lastShownAt sql.NullTime
	var paletteStatus string

	err := row.Scan(
		&img.FilePath, &img.FileName, &sourceID, &img.Width, &img.Height,
		&aspectRatio, &img.FileSize, &img.FileModTime, &img.IsFavorite,
		&img.FirstIndexedAt, &img.LastIndexedAt, &lastShownAt,
		&img.TimesShown, &paletteStatus,
	)
	if err != nil {
		return nil, err
	}

	if sourceID.Valid {
		v := sourceID.Int64
		img.SourceID = &v
	}
	if aspectRatio.Valid {
		img.AspectRatio = aspectRatio.Float64
	}
	if lastShownAt.Valid {
		t := lastShownAt.Time
		img.LastShownAt = &t
	}
	img.PaletteStatus = models.PaletteStatus(paletteStatus)
	return &img, nil
}

// DeleteImage removes an image row (and, via the foreign-key cascade,
// its palette row).
func (db *DB) DeleteImage(filepath string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.checkOpen(); err != nil {
		return err
	}
	_, err := db.sqldb.Exec("DELETE FROM images WHERE filepath = ?", filepath)
	if err != nil {
		return fmt.Errorf("database: failed to delete image %s: %w", filepath, err)
	}
	return nil
}

// SetPaletteStatus updates an image's palette_status directly, for
// callers that need to record a failed extraction attempt without a
// palette row to upsert alongside it.
func (db *DB) SetPaletteStatus(filepath string, status models.PaletteStatus) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.checkOpen(); err != nil {
		return err
	}
	_, err := db.sqldb.Exec("UPDATE images SET palette_status = ? WHERE filepath = ?", string(status), filepath)
	if err != nil {
		return fmt.Errorf("database: failed to set palette status for %s: %w", filepath, err)
	}
	return nil
}

// RecordImageShown sets last_shown_at to now and increments times_shown.
// Calling it twice in sequence increments times_shown by exactly 2
// (spec §8).
func (db *DB) RecordImageShown(filepath string, now time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.checkOpen(); err != nil {
		return err
	}
	res, err := db.sqldb.Exec(`
		UPDATE images SET last_shown_at = ?, times_shown = times_shown + 1
		WHERE filepath = ?
	`, now, filepath)
	if err != nil {
		return fmt.Errorf("database: failed to record image shown %s: %w", filepath, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("database: record_image_shown: no such image %s", filepath)
	}
	return nil
}

// --- Sources ------------------------------------------------------------

// UpsertSource inserts a source by type if absent and returns its ID.
func (db *DB) UpsertSource(sourceType string) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.checkOpen(); err != nil {
		return 0, err
	}
	return upsertSource(db.sqldb, sourceType)
}

func upsertSource(ex interface {
	Exec(string, ...interface{}) (sql.Result, error)
	QueryRow(string, ...interface{}) *sql.Row
}, sourceType string) (int64, error) {
	_, err := ex.Exec(`
		INSERT INTO sources (source_type) VALUES (?)
		ON CONFLICT(source_type) DO NOTHING
	`, sourceType)
	if err != nil {
		return 0, fmt.Errorf("database: failed to upsert source %s: %w", sourceType, err)
	}

	var id int64
	if err := ex.QueryRow("SELECT source_id FROM sources WHERE source_type = ?", sourceType).Scan(&id); err != nil {
		return 0, fmt.Errorf("database: failed to read source id for %s: %w", sourceType, err)
	}
	return id, nil
}

// RecordSourceShown sets a source's last_shown_at and increments its
// times_shown.
func (db *DB) RecordSourceShown(sourceID int64, now time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.checkOpen(); err != nil {
		return err
	}
	_, err := db.sqldb.Exec(`
		UPDATE sources SET last_shown_at = ?, times_shown = times_shown + 1
		WHERE source_id = ?
	`, now, sourceID)
	if err != nil {
		return fmt.Errorf("database: failed to record source shown %d: %w", sourceID, err)
	}
	return nil
}

// GetSourcesByIDs batch-loads sources by ID in a single query.
func (db *DB) GetSourcesByIDs(ids []int64) (map[int64]*models.SourceRecord, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.checkOpen(); err != nil {
		return nil, err
	}
	return getSourcesByIDs(db.sqldb, ids)
}

func getSourcesByIDs(q queryer, ids []int64) (map[int64]*models.SourceRecord, error) {
	result := make(map[int64]*models.SourceRecord, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	placeholders, args := inClause(int64sToAny(ids))
	rows, err := q.Query(fmt.Sprintf(`
		SELECT source_id, source_type, last_shown_at, times_shown
		FROM sources WHERE source_id IN (%s)
	`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("database: failed to get sources by ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s models.SourceRecord
		var lastShownAt sql.NullTime
		if err := rows.Scan(&s.SourceID, &s.SourceType, &lastShownAt, &s.TimesShown); err != nil {
			return nil, fmt.Errorf("database: failed to scan source: %w", err)
		}
		if lastShownAt.Valid {
			t := lastShownAt.Time
			s.LastShownAt = &t
		}
		result[s.SourceID] = &s
	}
	return result, rows.Err()
}

// --- Palettes -----------------------------------------------------------

// UpsertPalette inserts or replaces a palette row and marks the parent
// image's palette_status as extracted.
func (db *DB) UpsertPalette(p *models.PaletteRecord) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.checkOpen(); err != nil {
		return err
	}
	return upsertPalette(db.sqldb, p)
}

func upsertPalette(ex execer, p *models.PaletteRecord) error {
	c := p.Colors()
	_, err := ex.Exec(`
		INSERT INTO palettes (
			filepath, color0, color1, color2, color3, color4, color5,
			color6, color7, color8, color9, color10, color11, color12,
			color13, color14, color15, background, foreground, cursor,
			avg_hue, avg_saturation, avg_lightness, color_temperature, indexed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(filepath) DO UPDATE SET
			color0=excluded.color0, color1=excluded.color1, color2=excluded.color2,
			color3=excluded.color3, color4=excluded.color4, color5=excluded.color5,
			color6=excluded.color6, color7=excluded.color7, color8=excluded.color8,
			color9=excluded.color9, color10=excluded.color10, color11=excluded.color11,
			color12=excluded.color12, color13=excluded.color13, color14=excluded.color14,
			color15=excluded.color15, background=excluded.background,
			foreground=excluded.foreground, cursor=excluded.cursor,
			avg_hue=excluded.avg_hue, avg_saturation=excluded.avg_saturation,
			avg_lightness=excluded.avg_lightness, color_temperature=excluded.color_temperature,
			indexed_at=excluded.indexed_at
	`,
		p.FilePath, c[0], c[1], c[2], c[3], c[4], c[5], c[6], c[7], c[8], c[9],
		c[10], c[11], c[12], c[13], c[14], c[15], p.Background, p.Foreground, p.Cursor,
		p.AvgHue, p.AvgSaturation, p.AvgLightness, p.ColorTemperature, p.IndexedAt,
	)
	if err != nil {
		return fmt.Errorf("database: failed to upsert palette %s: %w", p.FilePath, err)
	}

	if _, err := ex.Exec(`UPDATE images SET palette_status = ? WHERE filepath = ?`,
		string(models.PaletteStatusExtracted), p.FilePath); err != nil {
		return fmt.Errorf("database: failed to mark palette extracted for %s: %w", p.FilePath, err)
	}
	return nil
}

// GetPalette returns the palette for filepath, or (nil, nil) if absent.
func (db *DB) GetPalette(filepath string) (*models.PaletteRecord, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.checkOpen(); err != nil {
		return nil, err
	}
	return getPalette(db.sqldb, filepath)
}

func getPalette(q queryer, filepath string) (*models.PaletteRecord, error) {
	row := q.QueryRow(paletteSelectSQL+" WHERE filepath = ?", filepath)
	p, err := scanPalette(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("database: failed to get palette %s: %w", filepath, err)
	}
	return p, nil
}

const paletteSelectSQL = `
	SELECT filepath, color0, color1, color2, color3, color4, color5,
	       color6, color7, color8, color9, color10, color11, color12,
	       color13, color14, color15, background, foreground, cursor,
	       avg_hue, avg_saturation, avg_lightness, color_temperature, indexed_at
	FROM palettes
`

func scanPalette(row rowScanner) (*models.PaletteRecord, error) {
	var p models.PaletteRecord
	var c [16]string
	err := row.Scan(
		&p.FilePath, &c[0], &c[1], &c[2], &c[3], &c[4], &c[5], &c[6], &c[7],
		&c[8], &c[9], &c[10], &c[11], &c[12], &c[13], &c[14], &c[15],
		&p.Background, &p.Foreground, &p.Cursor,
		&p.AvgHue, &p.AvgSaturation, &p.AvgLightness, &p.ColorTemperature, &p.IndexedAt,
	)
	if err != nil {
		return nil, err
	}
	p.SetColors(c)
	return &p, nil
}

// GetPalettesByFilepaths batch-loads palettes in a single round trip per
// chunk, chunked to respect SQLite's bound-parameter limit.
func (db *DB) GetPalettesByFilepaths(filepaths []string) (map[string]*models.PaletteRecord, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.checkOpen(); err != nil {
		return nil, err
	}
	return getPalettesByFilepaths(db.sqldb, filepaths)
}

func getPalettesByFilepaths(q queryer, filepaths []string) (map[string]*models.PaletteRecord, error) {
	result := make(map[string]*models.PaletteRecord, len(filepaths))
	for _, chunk := range chunkStrings(filepaths, maxSQLiteParams) {
		if len(chunk) == 0 {
			continue
		}
		placeholders, args := inClause(stringsToAny(chunk))
		rows, err := q.Query(paletteSelectSQL+fmt.Sprintf(" WHERE filepath IN (%s)", placeholders), args...)
		if err != nil {
			return nil, fmt.Errorf("database: failed to get palettes by filepaths: %w", err)
		}
		for rows.Next() {
			p, err := scanPalette(rows)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("database: failed to scan palette: %w", err)
			}
			result[p.FilePath] = p
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return result, nil
}

// GetImagesWithoutPalettes streams images whose palette_status is still
// "pending", for batch extraction (spec §4.1).
func (db *DB) GetImagesWithoutPalettes(limit, offset int) ([]*models.ImageRecord, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := db.sqldb.Query(`
		SELECT filepath, filename, source_id, width, height, aspect_ratio,
		       file_size, file_mtime, is_favorite, first_indexed_at,
		       last_indexed_at, last_shown_at, times_shown, palette_status
		FROM images WHERE palette_status = ?
		ORDER BY filepath LIMIT ? OFFSET ?
	`, string(models.PaletteStatusPending), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("database: failed to get images without palettes: %w", err)
	}
	defer rows.Close()

	var out []*models.ImageRecord
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("database: failed to scan image: %w", err)
		}
		out = append(out, img)
	}
	return out, rows.Err()
}
