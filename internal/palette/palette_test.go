package palette

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizePaletteType(t *testing.T) {
	cases := map[string]string{
		"dark16": "Dark16",
		"DARK16": "Dark16",
		"":       defaultPaletteType,
		"light":  "Light",
	}
	for in, want := range cases {
		if got := normalizePaletteType(in); got != want {
			t.Errorf("normalizePaletteType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadAnalyzerConfigDefaultsOnMissingFile(t *testing.T) {
	InvalidateConfigCache()
	cfg := LoadAnalyzerConfig(filepath.Join(t.TempDir(), "nonexistent.toml"))
	if cfg.Palette != defaultPaletteType || cfg.Backend != defaultBackend || cfg.ColorSpace != defaultColorSpace {
		t.Errorf("expected defaults for missing config file, got %+v", cfg)
	}
}

func TestLoadAnalyzerConfigParsesFile(t *testing.T) {
	InvalidateConfigCache()
	dir := t.TempDir()
	path := filepath.Join(dir, "wallust.toml")
	contents := "palette = \"dark16\"\nbackend = \"resize\"\ncolor_space = \"lab\"\n"
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := LoadAnalyzerConfig(path)
	if cfg.Palette != "Dark16" {
		t.Errorf("expected normalized palette Dark16, got %q", cfg.Palette)
	}
	if cfg.Backend != "resize" || cfg.ColorSpace != "lab" {
		t.Errorf("expected parsed backend/color_space, got %+v", cfg)
	}
}

func TestImageHashDeterministic(t *testing.T) {
	a := imageHash("/home/user/wallpapers/sunset.jpg")
	b := imageHash("/home/user/wallpapers/sunset.jpg")
	if a != b {
		t.Errorf("expected imageHash to be deterministic, got %q and %q", a, b)
	}
	c := imageHash("/home/user/wallpapers/sunrise.jpg")
	if a == c {
		t.Errorf("expected different paths to hash differently")
	}
}

func TestParseCacheFileDerivesMetrics(t *testing.T) {
	dir := t.TempDir()
	cacheFile := filepath.Join(dir, "Dark16_wal_auto_json")

	payload := map[string]string{
		"color0": "#1a1a1a", "color1": "#cc241d", "color2": "#98971a",
		"color3": "#d79921", "color4": "#458588", "color5": "#b16286",
		"color6": "#689d6a", "color7": "#a89984", "color8": "#928374",
		"color9": "#fb4934", "color10": "#b8bb26", "color11": "#fabd2f",
		"color12": "#83a598", "color13": "#d3869b", "color14": "#8ec07c",
		"color15": "#ebdbb2",
		"background": "#282828", "foreground": "#ebdbb2", "cursor": "#ebdbb2",
	}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cacheFile, data, 0644); err != nil {
		t.Fatal(err)
	}

	rec, err := parseCacheFile("/images/bg.jpg", cacheFile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Background != "#282828" {
		t.Errorf("expected background #282828, got %s", rec.Background)
	}
	if rec.AvgHue < 0 || rec.AvgHue >= 360 {
		t.Errorf("AvgHue out of range: %f", rec.AvgHue)
	}
	if rec.AvgSaturation < 0 || rec.AvgSaturation > 1 {
		t.Errorf("AvgSaturation out of range: %f", rec.AvgSaturation)
	}
	if rec.ColorTemperature < -1 || rec.ColorTemperature > 1 {
		t.Errorf("ColorTemperature out of range: %f", rec.ColorTemperature)
	}
}

func TestParseCacheFileMalformedJSONIsError(t *testing.T) {
	dir := t.TempDir()
	cacheFile := filepath.Join(dir, "Dark16_wal_auto_json")
	if err := os.WriteFile(cacheFile, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := parseCacheFile("/images/bg.jpg", cacheFile)
	if err == nil {
		t.Error("expected an error for malformed cache JSON")
	}
}

func TestExtractorReportsMissingBinaryUnavailable(t *testing.T) {
	e := NewExtractor("wallust-definitely-not-on-path-xyz", "", "")
	e.lookupBinary = func(string) (string, error) {
		return "", os.ErrNotExist
	}
	if e.Available() {
		t.Fatal("expected Available() to report false for a missing binary")
	}
}
