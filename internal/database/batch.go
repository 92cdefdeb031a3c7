package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/adewale/smartselect/internal/models"
)

// batchSize matches the indexer's own upsert batching (spec §4.2): each
// transaction covers at most this many rows.
const batchSize = 500

// BatchUpsertImages upserts images in transactional batches of
// batchSize, so a crash mid-index leaves at most one batch uncommitted.
func (db *DB) BatchUpsertImages(images []*models.ImageRecord) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.checkOpen(); err != nil {
		return err
	}

	for start := 0; start < len(images); start += batchSize {
		end := start + batchSize
		if end > len(images) {
			end = len(images)
		}
		if err := db.batchUpsertImagesTx(images[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) batchUpsertImagesTx(batch []*models.ImageRecord) error {
	tx, err := db.sqldb.Begin()
	if err != nil {
		return fmt.Errorf("database: failed to begin batch upsert images: %w", err)
	}
	for _, img := range batch {
		if err := upsertImage(tx, img); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("database: failed to commit batch upsert images: %w", err)
	}
	return nil
}

// BatchUpsertSources upserts distinct source types in one transaction
// and returns their IDs keyed by type.
func (db *DB) BatchUpsertSources(sourceTypes []string) (map[string]int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.checkOpen(); err != nil {
		return nil, err
	}

	tx, err := db.sqldb.Begin()
	if err != nil {
		return nil, fmt.Errorf("database: failed to begin batch upsert sources: %w", err)
	}

	result := make(map[string]int64, len(sourceTypes))
	seen := make(map[string]bool, len(sourceTypes))
	for _, st := range sourceTypes {
		if seen[st] {
			continue
		}
		seen[st] = true
		id, err := upsertSource(tx, st)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		result[st] = id
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("database: failed to commit batch upsert sources: %w", err)
	}
	return result, nil
}

// BatchDeleteImages removes the given filepaths (and, via cascade,
// their palette rows), chunked to respect SQLite's parameter limit.
func (db *DB) BatchDeleteImages(filepaths []string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.checkOpen(); err != nil {
		return err
	}

	for _, chunk := range chunkStrings(filepaths, maxSQLiteParams) {
		placeholders, args := inClause(stringsToAny(chunk))
		_, err := db.sqldb.Exec(fmt.Sprintf("DELETE FROM images WHERE filepath IN (%s)", placeholders), args...)
		if err != nil {
			return fmt.Errorf("database: failed to batch delete images: %w", err)
		}
	}
	return nil
}

// GetIndexedMtimeMap returns filepath -> file_mtime (as unix nanos) for
// every indexed image whose path starts with prefix, letting the
// indexer diff the filesystem against the index without loading full
// rows (spec §4.2).
func (db *DB) GetIndexedMtimeMap(prefix string) (map[string]int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := db.sqldb.Query(`
		SELECT filepath, file_mtime FROM images WHERE filepath LIKE ? ESCAPE '\'
	`, escapeLike(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("database: failed to get indexed mtime map: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var fp string
		var mtime time.Time
		if err := rows.Scan(&fp, &mtime); err != nil {
			return nil, fmt.Errorf("database: failed to scan mtime row: %w", err)
		}
		out[fp] = mtime.UnixNano()
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer("\\", "\\\\", "%", "\\%", "_", "\\_")
	return r.Replace(s)
}

// ClearShownHistory resets last_shown_at and times_shown for every
// image and source, the bulk operation behind the public
// clear_history operation (spec §6).
func (db *DB) ClearShownHistory() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.checkOpen(); err != nil {
		return err
	}

	tx, err := db.sqldb.Begin()
	if err != nil {
		return fmt.Errorf("database: failed to begin clear history: %w", err)
	}
	if _, err := tx.Exec("UPDATE images SET last_shown_at = NULL, times_shown = 0"); err != nil {
		tx.Rollback()
		return fmt.Errorf("database: failed to clear image history: %w", err)
	}
	if _, err := tx.Exec("UPDATE sources SET last_shown_at = NULL, times_shown = 0"); err != nil {
		tx.Rollback()
		return fmt.Errorf("database: failed to clear source history: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("database: failed to commit clear history: %w", err)
	}
	return nil
}
