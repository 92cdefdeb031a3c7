package database

import (
	"fmt"
	"os"

	"github.com/adewale/smartselect/internal/models"
)

// GetStatistics computes the aggregate snapshot described in spec §4.1:
// plain counts plus four histograms bucketed directly in SQL via
// GROUP BY CASE, so the whole computation is one round trip per bucket
// set rather than a full table scan in Go.
func (db *DB) GetStatistics() (*models.Statistics, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.checkOpen(); err != nil {
		return nil, err
	}

	stats := &models.Statistics{
		LightnessBuckets:  map[string]int{},
		HueFamilyBuckets:  map[string]int{},
		SaturationBuckets: map[string]int{},
		FreshnessBuckets:  map[string]int{},
	}

	if err := db.sqldb.QueryRow("SELECT COUNT(*) FROM images").Scan(&stats.TotalImages); err != nil {
		return nil, fmt.Errorf("database: failed to count images: %w", err)
	}
	if err := db.sqldb.QueryRow("SELECT COUNT(*) FROM images WHERE is_favorite = 1").Scan(&stats.TotalFavorites); err != nil {
		return nil, fmt.Errorf("database: failed to count favorites: %w", err)
	}
	if err := db.sqldb.QueryRow("SELECT COUNT(*) FROM palettes").Scan(&stats.TotalPalettes); err != nil {
		return nil, fmt.Errorf("database: failed to count palettes: %w", err)
	}
	if err := db.sqldb.QueryRow("SELECT COUNT(*) FROM images WHERE times_shown > 0").Scan(&stats.TotalShown); err != nil {
		return nil, fmt.Errorf("database: failed to count shown images: %w", err)
	}

	if err := db.bucketQuery(`
		SELECT CASE
			WHEN avg_lightness < 0.2 THEN 'very_dark'
			WHEN avg_lightness < 0.4 THEN 'dark'
			WHEN avg_lightness < 0.6 THEN 'medium'
			WHEN avg_lightness < 0.8 THEN 'light'
			ELSE 'very_light'
		END AS bucket, COUNT(*)
		FROM palettes GROUP BY bucket
	`, stats.LightnessBuckets); err != nil {
		return nil, err
	}

	if err := db.bucketQuery(`
		SELECT CASE
			WHEN avg_hue < 15 OR avg_hue >= 345 THEN 'red'
			WHEN avg_hue < 45 THEN 'orange'
			WHEN avg_hue < 70 THEN 'yellow'
			WHEN avg_hue < 170 THEN 'green'
			WHEN avg_hue < 200 THEN 'cyan'
			WHEN avg_hue < 260 THEN 'blue'
			WHEN avg_hue < 290 THEN 'purple'
			ELSE 'magenta'
		END AS bucket, COUNT(*)
		FROM palettes GROUP BY bucket
	`, stats.HueFamilyBuckets); err != nil {
		return nil, err
	}

	if err := db.bucketQuery(`
		SELECT CASE
			WHEN avg_saturation < 0.15 THEN 'greyscale'
			WHEN avg_saturation < 0.4 THEN 'muted'
			WHEN avg_saturation < 0.7 THEN 'moderate'
			ELSE 'vivid'
		END AS bucket, COUNT(*)
		FROM palettes GROUP BY bucket
	`, stats.SaturationBuckets); err != nil {
		return nil, err
	}

	if err := db.bucketQuery(`
		SELECT CASE
			WHEN last_shown_at IS NULL THEN 'never_shown'
			WHEN julianday('now') - julianday(last_shown_at) < 1 THEN 'today'
			WHEN julianday('now') - julianday(last_shown_at) < 7 THEN 'this_week'
			WHEN julianday('now') - julianday(last_shown_at) < 30 THEN 'this_month'
			ELSE 'stale'
		END AS bucket, COUNT(*)
		FROM images GROUP BY bucket
	`, stats.FreshnessBuckets); err != nil {
		return nil, err
	}

	return stats, nil
}

func (db *DB) bucketQuery(query string, into map[string]int) error {
	rows, err := db.sqldb.Query(query)
	if err != nil {
		return fmt.Errorf("database: failed to run bucket query: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var bucket string
		var count int
		if err := rows.Scan(&bucket, &count); err != nil {
			return fmt.Errorf("database: failed to scan bucket row: %w", err)
		}
		into[bucket] = count
	}
	return rows.Err()
}

// Vacuum reclaims space freed by deletes. It must run outside any
// transaction, which holds true here since every other exported method
// completes its own transaction before returning.
func (db *DB) Vacuum() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.checkOpen(); err != nil {
		return err
	}
	if _, err := db.sqldb.Exec("VACUUM"); err != nil {
		return fmt.Errorf("database: failed to vacuum: %w", err)
	}
	return nil
}

// VerifyIntegrity runs SQLite's built-in integrity check and returns an
// error describing the first reported problem, if any.
func (db *DB) VerifyIntegrity() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.checkOpen(); err != nil {
		return err
	}

	var result string
	if err := db.sqldb.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("database: failed to run integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database: integrity check failed: %s", result)
	}
	return nil
}

// CleanupOrphans deletes palette rows whose parent image row no longer
// exists. The schema's ON DELETE CASCADE makes this a no-op in normal
// operation; it exists to repair a database that was edited outside
// this package or restored from a partial backup.
func (db *DB) CleanupOrphans() (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.checkOpen(); err != nil {
		return 0, err
	}

	res, err := db.sqldb.Exec(`
		DELETE FROM palettes WHERE filepath NOT IN (SELECT filepath FROM images)
	`)
	if err != nil {
		return 0, fmt.Errorf("database: failed to clean up orphan palettes: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// RemoveMissingFiles deletes every indexed image whose file no longer
// exists on disk, returning the removed filepaths.
func (db *DB) RemoveMissingFiles() ([]string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := db.sqldb.Query("SELECT filepath FROM images")
	if err != nil {
		return nil, fmt.Errorf("database: failed to list images: %w", err)
	}
	var all []string
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			rows.Close()
			return nil, fmt.Errorf("database: failed to scan filepath: %w", err)
		}
		all = append(all, fp)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	var missing []string
	for _, fp := range all {
		if _, err := os.Stat(fp); os.IsNotExist(err) {
			missing = append(missing, fp)
		}
	}

	for _, chunk := range chunkStrings(missing, maxSQLiteParams) {
		placeholders, args := inClause(stringsToAny(chunk))
		if _, err := db.sqldb.Exec(fmt.Sprintf("DELETE FROM images WHERE filepath IN (%s)", placeholders), args...); err != nil {
			return nil, fmt.Errorf("database: failed to remove missing files: %w", err)
		}
	}
	return missing, nil
}

// Backup writes a consistent snapshot of the database to target using
// SQLite's "VACUUM INTO", which produces a clean single-file copy
// without requiring exclusive access or a WAL checkpoint beforehand.
func (db *DB) Backup(target string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.checkOpen(); err != nil {
		return err
	}
	if _, err := db.sqldb.Exec("VACUUM INTO ?", target); err != nil {
		return fmt.Errorf("database: failed to back up to %s: %w", target, err)
	}
	return nil
}
