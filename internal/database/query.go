package database

import (
	"fmt"
	"strings"

	"github.com/adewale/smartselect/internal/models"
)

// FindCandidates returns every image matching the non-palette filters
// of constraints (dimensions, aspect ratio, favorites-only, source
// whitelist). Palette-based filtering (target palette similarity,
// continuity) happens afterward in the selector package, since it
// needs the color-math package rather than SQL.
func (db *DB) FindCandidates(constraints *models.SelectionConstraints) ([]*models.ImageRecord, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.checkOpen(); err != nil {
		return nil, err
	}

	where, args := buildCandidateWhereClause(constraints)
	query := `
		SELECT filepath, filename, source_id, width, height, aspect_ratio,
		       file_size, file_mtime, is_favorite, first_indexed_at,
		       last_indexed_at, last_shown_at, times_shown, palette_status
		FROM images
	`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	rows, err := db.sqldb.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("database: failed to find candidates: %w", err)
	}
	defer rows.Close()

	var out []*models.ImageRecord
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("database: failed to scan candidate: %w", err)
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

func buildCandidateWhereClause(c *models.SelectionConstraints) ([]string, []interface{}) {
	var where []string
	var args []interface{}
	if c == nil {
		return where, args
	}

	if c.MinWidth != nil {
		where = append(where, "width >= ?")
		args = append(args, *c.MinWidth)
	}
	if c.MinHeight != nil {
		where = append(where, "height >= ?")
		args = append(args, *c.MinHeight)
	}
	if c.MaxWidth != nil {
		where = append(where, "width <= ?")
		args = append(args, *c.MaxWidth)
	}
	if c.MaxHeight != nil {
		where = append(where, "height <= ?")
		args = append(args, *c.MaxHeight)
	}
	if c.MinAspectRatio != nil {
		where = append(where, "aspect_ratio >= ?")
		args = append(args, *c.MinAspectRatio)
	}
	if c.MaxAspectRatio != nil {
		where = append(where, "aspect_ratio <= ?")
		args = append(args, *c.MaxAspectRatio)
	}
	if c.FavoritesOnly {
		where = append(where, "is_favorite = 1")
	}
	if len(c.SourceWhitelist) > 0 {
		placeholders, sourceArgs := inClause(int64sToAny(c.SourceWhitelist))
		where = append(where, fmt.Sprintf("source_id IN (%s)", placeholders))
		args = append(args, sourceArgs...)
	}

	return where, args
}
