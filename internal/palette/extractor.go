package palette

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/adewale/smartselect/internal/color"
	"github.com/adewale/smartselect/internal/models"
)

// analyzerTimeout bounds how long a single child analyzer process may
// run before it is killed, per spec §4.5.
const analyzerTimeout = 30 * time.Second

// cacheFileStaleAfter is the "treat it as stale" window from spec §4.5
// step 4: a cache file whose mtime lies more than this long (plus
// mtimeEpsilon) before the moment it is checked, just after the
// analyzer returned, is not trusted as the result of this invocation.
const cacheFileStaleAfter = 2 * time.Second

// mtimeEpsilon accounts for filesystem timestamp resolution when
// comparing a cache file's mtime against the invocation's start time.
const mtimeEpsilon = 1 * time.Second

// Extractor drives the external analyzer binary (or, when it is
// unavailable, a pixel-based fallback) to produce a PaletteRecord for
// one image at a time.
type Extractor struct {
	binary        string // conventionally "wallust"
	configPath    string // wallust.toml
	cacheDir      string // <user-cache>/wallust
	lookupBinary  func(string) (string, error)
	runAnalyzer   func(ctx context.Context, binary, imagePath string) error
}

// NewExtractor builds an Extractor that invokes binary (found on PATH)
// using configPath for analyzer settings and cacheDir as the root of
// the analyzer's JSON palette cache.
func NewExtractor(binary, configPath, cacheDir string) *Extractor {
	return &Extractor{
		binary:       binary,
		configPath:   configPath,
		cacheDir:     cacheDir,
		lookupBinary: exec.LookPath,
		runAnalyzer:  runAnalyzerProcess,
	}
}

// Available reports whether the external analyzer binary can be found.
func (e *Extractor) Available() bool {
	_, err := e.lookupBinary(e.binary)
	return err == nil
}

// Extract produces a PaletteRecord for filepath. When the analyzer
// binary is absent it returns the pixel-based fallback's result
// instead. It returns (nil, nil) — not an error — whenever the spec's
// error-handling design calls for a null result rather than a
// propagated failure: analyzer timeout/non-zero exit, or a cache file
// that never materializes. Only genuinely unexpected conditions (a malformed cache
// file that does exist, e.g.) are returned as errors, since those
// indicate a bug worth surfacing rather than "extraction didn't work
// this time."
func (e *Extractor) Extract(filepath_ string) (*models.PaletteRecord, error) {
	if !e.Available() {
		return extractFallback(filepath_)
	}

	cfg := LoadAnalyzerConfig(e.configPath)

	ctx, cancel := context.WithTimeout(context.Background(), analyzerTimeout)
	defer cancel()

	start := time.Now()
	if err := e.runAnalyzer(ctx, e.binary, filepath_); err != nil {
		// Non-zero exit or timeout: null result, per spec §7.
		return nil, nil
	}

	cacheFile, err := e.findCacheFile(filepath_, cfg, start)
	if err != nil {
		return nil, nil
	}
	if cacheFile == "" {
		return nil, nil
	}

	return parseCacheFile(filepath_, cacheFile)
}

// runAnalyzerProcess invokes the analyzer with exactly the flag set
// from spec §6: skip terminal escapes, skip template rendering, silent
// mode, force cache overwrite, and the fastest backend.
func runAnalyzerProcess(ctx context.Context, binary, imagePath string) error {
	cmd := exec.CommandContext(ctx, binary,
		"run",
		"--skip-term",
		"-s", // skip templates
		"-q", // quiet
		"-o", // force cache overwrite
		"--backend", "fastresize",
		imagePath,
	)
	return cmd.Run()
}

// imageHash computes the cache-directory hash component the analyzer
// derives from an image path. The spec leaves the exact algorithm
// unspecified and flags it as an open question (§9); this module
// resolves it by hashing the absolute image path itself (not file
// content, which would require re-reading potentially large images
// just to find a cache entry already keyed by path) with SHA-256,
// hex-encoded and truncated to 16 characters, matching the length of
// the hash component the analyzer is documented to emit.
func imageHash(imagePath string) string {
	abs, err := filepath.Abs(imagePath)
	if err != nil {
		abs = imagePath
	}
	sum := sha256.Sum256([]byte(abs))
	return hex.EncodeToString(sum[:])[:16]
}

// findCacheFile resolves the JSON palette file the analyzer just wrote
// for imagePath. It first tries an exact match on the hash-derived
// cache subdirectory (the resolved open question); if that directory
// doesn't exist — e.g. a differently-versioned analyzer cache layout —
// it falls back to the newest-file-within-tolerance heuristic scoped to
// the whole cache root.
func (e *Extractor) findCacheFile(imagePath string, cfg AnalyzerConfig, start time.Time) (string, error) {
	hash := imageHash(imagePath)

	entries, err := os.ReadDir(e.cacheDir)
	if err != nil {
		return "", err
	}

	var exactDir string
	for _, ent := range entries {
		if ent.IsDir() && strings.HasPrefix(ent.Name(), hash+"_") {
			exactDir = filepath.Join(e.cacheDir, ent.Name())
			break
		}
	}

	if exactDir != "" {
		if f := newestMatchingFile(exactDir, cfg.Palette, start); f != "" {
			return f, nil
		}
	}

	// Fall back to scanning every cache subdirectory for the newest
	// matching file within tolerance.
	var newest string
	var newestTime time.Time
	for _, ent := range entries {
		if !ent.IsDir() {
			continue
		}
		dir := filepath.Join(e.cacheDir, ent.Name())
		candidate := newestMatchingFile(dir, cfg.Palette, start)
		if candidate == "" {
			continue
		}
		info, err := os.Stat(candidate)
		if err != nil {
			continue
		}
		if info.ModTime().After(newestTime) {
			newestTime = info.ModTime()
			newest = candidate
		}
	}
	return newest, nil
}

// newestMatchingFile returns the newest file in dir whose name contains
// paletteType, accepting it only if its mtime is at least
// start-mtimeEpsilon and no more than cacheFileStaleAfter+mtimeEpsilon
// before now.
func newestMatchingFile(dir, paletteType string, start time.Time) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}

	var newest string
	var newestTime time.Time
	for _, ent := range entries {
		if ent.IsDir() || !strings.Contains(ent.Name(), paletteType) {
			continue
		}
		info, err := ent.Info()
		if err != nil {
			continue
		}
		mtime := info.ModTime()
		if mtime.Before(start.Add(-mtimeEpsilon)) {
			continue
		}
		if time.Since(mtime) > cacheFileStaleAfter+mtimeEpsilon {
			continue
		}
		if mtime.After(newestTime) {
			newestTime = mtime
			newest = filepath.Join(dir, ent.Name())
		}
	}
	return newest
}

// cacheFileJSON is the shape of the analyzer's per-palette JSON output,
// per spec §6: sixteen numbered colors plus three named slots.
type cacheFileJSON struct {
	Color0  string `json:"color0"`
	Color1  string `json:"color1"`
	Color2  string `json:"color2"`
	Color3  string `json:"color3"`
	Color4  string `json:"color4"`
	Color5  string `json:"color5"`
	Color6  string `json:"color6"`
	Color7  string `json:"color7"`
	Color8  string `json:"color8"`
	Color9  string `json:"color9"`
	Color10 string `json:"color10"`
	Color11 string `json:"color11"`
	Color12 string `json:"color12"`
	Color13 string `json:"color13"`
	Color14 string `json:"color14"`
	Color15 string `json:"color15"`

	Background string `json:"background"`
	Foreground string `json:"foreground"`
	Cursor     string `json:"cursor"`
}

func parseCacheFile(imagePath, cacheFile string) (*models.PaletteRecord, error) {
	data, err := os.ReadFile(cacheFile)
	if err != nil {
		// The file existed moments ago when we found it; a read
		// failure here is transient, not a malformed-cache bug.
		return nil, nil
	}

	var raw cacheFileJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("palette: malformed cache file %s: %w", cacheFile, err)
	}

	colors := [16]string{
		raw.Color0, raw.Color1, raw.Color2, raw.Color3,
		raw.Color4, raw.Color5, raw.Color6, raw.Color7,
		raw.Color8, raw.Color9, raw.Color10, raw.Color11,
		raw.Color12, raw.Color13, raw.Color14, raw.Color15,
	}

	rec := &models.PaletteRecord{
		FilePath:   imagePath,
		Background: raw.Background,
		Foreground: raw.Foreground,
		Cursor:     raw.Cursor,
		IndexedAt:  time.Now(),
	}
	rec.SetColors(colors)
	applyDerivedMetrics(rec, colors)
	return rec, nil
}

// applyDerivedMetrics computes avg_hue/avg_saturation/avg_lightness/
// color_temperature from 16 hex colors, per spec §3 and §4.5.
func applyDerivedMetrics(rec *models.PaletteRecord, colors [16]string) {
	hues := make([]float64, 0, 16)
	sats := make([]float64, 0, 16)
	lights := make([]float64, 0, 16)

	for _, hex := range colors {
		rgb, err := color.ParseHex(hex)
		if err != nil {
			continue
		}
		hsl := rgb.ToHSL()
		hues = append(hues, hsl.H)
		sats = append(sats, hsl.S)
		lights = append(lights, hsl.L)
	}

	rec.AvgHue = color.CircularMeanHue(hues)
	rec.AvgSaturation = color.Mean(sats)
	rec.AvgLightness = color.Mean(lights)
	rec.ColorTemperature = color.Temperature(hues, sats)
}
