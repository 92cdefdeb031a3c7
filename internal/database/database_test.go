package database

import (
	"testing"
	"time"

	"github.com/adewale/smartselect/internal/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenCreatesSchema(t *testing.T) {
	db := openTestDB(t)

	for _, table := range []string{"images", "sources", "palettes", "schema_info"} {
		var count int
		if err := db.sqldb.QueryRow(
			"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&count); err != nil {
			t.Fatalf("querying sqlite_master for %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("expected table %s to exist", table)
		}
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got: %v", err)
	}
}

func sampleImage(path string) *models.ImageRecord {
	now := time.Now()
	return &models.ImageRecord{
		FilePath:       path,
		FileName:       "example.png",
		Width:          1920,
		Height:         1080,
		AspectRatio:    1920.0 / 1080.0,
		FileSize:       12345,
		FileModTime:    now,
		FirstIndexedAt: now,
		LastIndexedAt:  now,
		PaletteStatus:  models.PaletteStatusPending,
	}
}

func TestUpsertAndGetImage(t *testing.T) {
	db := openTestDB(t)
	img := sampleImage("/wallpapers/one.png")

	if err := db.UpsertImage(img); err != nil {
		t.Fatalf("UpsertImage: %v", err)
	}

	got, err := db.GetImage(img.FilePath)
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	if got == nil {
		t.Fatal("expected image to be found")
	}
	if got.Width != 1920 || got.Height != 1080 {
		t.Errorf("unexpected dimensions: %dx%d", got.Width, got.Height)
	}
}

func TestGetImageMissingReturnsNilNotError(t *testing.T) {
	db := openTestDB(t)
	got, err := db.GetImage("/nope.png")
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil for missing image")
	}
}

func TestUpsertImagePreservesHistoryFieldsNotInSetClause(t *testing.T) {
	db := openTestDB(t)
	img := sampleImage("/wallpapers/history.png")
	if err := db.UpsertImage(img); err != nil {
		t.Fatalf("initial UpsertImage: %v", err)
	}

	now := time.Now()
	if err := db.RecordImageShown(img.FilePath, now); err != nil {
		t.Fatalf("RecordImageShown: %v", err)
	}
	if err := db.RecordImageShown(img.FilePath, now.Add(time.Minute)); err != nil {
		t.Fatalf("second RecordImageShown: %v", err)
	}

	// Re-index with changed dimensions; the upsert must not reset
	// times_shown or last_shown_at.
	img.Width = 2560
	img.Height = 1440
	if err := db.UpsertImage(img); err != nil {
		t.Fatalf("re-index UpsertImage: %v", err)
	}

	got, err := db.GetImage(img.FilePath)
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	if got.TimesShown != 2 {
		t.Errorf("expected times_shown to survive re-index as 2, got %d", got.TimesShown)
	}
	if got.LastShownAt == nil {
		t.Fatal("expected last_shown_at to survive re-index")
	}
	if got.Width != 2560 {
		t.Errorf("expected dimensions to update, got width=%d", got.Width)
	}
}

func TestRecordImageShownMissingReturnsError(t *testing.T) {
	db := openTestDB(t)
	if err := db.RecordImageShown("/nope.png", time.Now()); err == nil {
		t.Fatal("expected error recording shown for a nonexistent image")
	}
}

func TestDeleteImageCascadesPalette(t *testing.T) {
	db := openTestDB(t)
	img := sampleImage("/wallpapers/cascade.png")
	if err := db.UpsertImage(img); err != nil {
		t.Fatalf("UpsertImage: %v", err)
	}

	palette := samplePalette(img.FilePath)
	if err := db.UpsertPalette(palette); err != nil {
		t.Fatalf("UpsertPalette: %v", err)
	}

	if err := db.DeleteImage(img.FilePath); err != nil {
		t.Fatalf("DeleteImage: %v", err)
	}

	p, err := db.GetPalette(img.FilePath)
	if err != nil {
		t.Fatalf("GetPalette: %v", err)
	}
	if p != nil {
		t.Fatal("expected palette row to be cascade-deleted with its image")
	}
}

func samplePalette(path string) *models.PaletteRecord {
	p := &models.PaletteRecord{
		FilePath:         path,
		Background:       "#101010",
		Foreground:       "#f0f0f0",
		Cursor:           "#f0f0f0",
		AvgHue:           30,
		AvgSaturation:    0.5,
		AvgLightness:     0.4,
		ColorTemperature: 0.6,
		IndexedAt:        time.Now(),
	}
	colors := [16]string{
		"#000000", "#111111", "#222222", "#333333",
		"#444444", "#555555", "#666666", "#777777",
		"#888888", "#999999", "#aaaaaa", "#bbbbbb",
		"#cccccc", "#dddddd", "#eeeeee", "#ffffff",
	}
	p.SetColors(colors)
	return p
}

func TestUpsertPaletteMarksImageExtracted(t *testing.T) {
	db := openTestDB(t)
	img := sampleImage("/wallpapers/extracted.png")
	if err := db.UpsertImage(img); err != nil {
		t.Fatalf("UpsertImage: %v", err)
	}

	if err := db.UpsertPalette(samplePalette(img.FilePath)); err != nil {
		t.Fatalf("UpsertPalette: %v", err)
	}

	got, err := db.GetImage(img.FilePath)
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	if got.PaletteStatus != models.PaletteStatusExtracted {
		t.Errorf("expected palette_status extracted, got %s", got.PaletteStatus)
	}
}

func TestGetPalettesByFilepathsBatches(t *testing.T) {
	db := openTestDB(t)
	var paths []string
	for i := 0; i < 5; i++ {
		path := sampleImage("/wallpapers/batch" + string(rune('a'+i)) + ".png")
		if err := db.UpsertImage(path); err != nil {
			t.Fatalf("UpsertImage: %v", err)
		}
		if err := db.UpsertPalette(samplePalette(path.FilePath)); err != nil {
			t.Fatalf("UpsertPalette: %v", err)
		}
		paths = append(paths, path.FilePath)
	}

	got, err := db.GetPalettesByFilepaths(paths)
	if err != nil {
		t.Fatalf("GetPalettesByFilepaths: %v", err)
	}
	if len(got) != 5 {
		t.Errorf("expected 5 palettes, got %d", len(got))
	}
}

func TestUpsertSourceIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	id1, err := db.UpsertSource("wallpapers")
	if err != nil {
		t.Fatalf("UpsertSource: %v", err)
	}
	id2, err := db.UpsertSource("wallpapers")
	if err != nil {
		t.Fatalf("second UpsertSource: %v", err)
	}
	if id1 != id2 {
		t.Errorf("expected stable source id, got %d and %d", id1, id2)
	}
}

func TestBatchDeleteImagesRemovesRows(t *testing.T) {
	db := openTestDB(t)
	var paths []string
	for i := 0; i < 3; i++ {
		img := sampleImage("/wallpapers/del" + string(rune('a'+i)) + ".png")
		if err := db.UpsertImage(img); err != nil {
			t.Fatalf("UpsertImage: %v", err)
		}
		paths = append(paths, img.FilePath)
	}

	if err := db.BatchDeleteImages(paths); err != nil {
		t.Fatalf("BatchDeleteImages: %v", err)
	}

	for _, p := range paths {
		got, err := db.GetImage(p)
		if err != nil {
			t.Fatalf("GetImage: %v", err)
		}
		if got != nil {
			t.Errorf("expected %s to be deleted", p)
		}
	}
}

func TestGetStatisticsCountsImagesAndFavorites(t *testing.T) {
	db := openTestDB(t)
	img1 := sampleImage("/wallpapers/stat1.png")
	img2 := sampleImage("/wallpapers/stat2.png")
	img2.IsFavorite = true

	if err := db.UpsertImage(img1); err != nil {
		t.Fatalf("UpsertImage: %v", err)
	}
	if err := db.UpsertImage(img2); err != nil {
		t.Fatalf("UpsertImage: %v", err)
	}
	if err := db.UpsertPalette(samplePalette(img1.FilePath)); err != nil {
		t.Fatalf("UpsertPalette: %v", err)
	}

	stats, err := db.GetStatistics()
	if err != nil {
		t.Fatalf("GetStatistics: %v", err)
	}
	if stats.TotalImages != 2 {
		t.Errorf("expected 2 images, got %d", stats.TotalImages)
	}
	if stats.TotalFavorites != 1 {
		t.Errorf("expected 1 favorite, got %d", stats.TotalFavorites)
	}
	if stats.TotalPalettes != 1 {
		t.Errorf("expected 1 palette, got %d", stats.TotalPalettes)
	}
}

func TestVerifyIntegrityOnFreshDatabase(t *testing.T) {
	db := openTestDB(t)
	if err := db.VerifyIntegrity(); err != nil {
		t.Fatalf("expected a fresh database to pass integrity check: %v", err)
	}
}

func TestRemoveMissingFilesRemovesAbsentPaths(t *testing.T) {
	db := openTestDB(t)
	// sampleImage paths point at files that were never created on disk,
	// so every indexed row here is "missing".
	img := sampleImage("/wallpapers/neverexisted.png")
	if err := db.UpsertImage(img); err != nil {
		t.Fatalf("UpsertImage: %v", err)
	}

	removed, err := db.RemoveMissingFiles()
	if err != nil {
		t.Fatalf("RemoveMissingFiles: %v", err)
	}
	if len(removed) != 1 {
		t.Fatalf("expected 1 removed path, got %d", len(removed))
	}

	got, err := db.GetImage(img.FilePath)
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	if got != nil {
		t.Fatal("expected missing file to be removed from index")
	}
}
