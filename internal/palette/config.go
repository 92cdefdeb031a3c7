// Package palette extracts 16-color terminal palettes (plus derived
// HSL/temperature metrics) from images, per spec §4.5. The primary path
// drives an external analyzer process (conventionally `wallust`); when
// that binary is unavailable, extraction falls back to direct pixel
// clustering.
package palette

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
)

// AnalyzerConfig is the read-only parse of the user's analyzer
// configuration file (conventionally `<user-config>/wallust/wallust.toml`),
// per spec §6: the `palette`, `backend`, and `color_space` top-level
// keys, plus the `[templates]` table shared with the theming engine.
type AnalyzerConfig struct {
	Palette    string                    `toml:"palette"`
	Backend    string                    `toml:"backend"`
	ColorSpace string                    `toml:"color_space"`
	Templates  map[string]TemplateEntry  `toml:"templates"`
}

// TemplateEntry is one `[templates.<name>]` entry: a template source
// path and the destination it renders to.
type TemplateEntry struct {
	Template string `toml:"template"`
	Target   string `toml:"target"`
}

const (
	defaultPaletteType = "Dark16"
	defaultBackend     = "wal"
	defaultColorSpace  = "auto"
)

// configCache is a process-wide singleton holding the last parsed
// AnalyzerConfig, reparsed only when the backing file's modification
// time changes. Access is guarded by double-checked locking: a cheap
// RLock-protected mtime check on the hot path, falling through to a
// full Lock + reparse only when the file actually changed.
//
// This mirrors spec §5's "global singletons use double-checked locking
// for first initialization" and is deliberately the one piece of
// process-wide mutable state in this package.
type configCache struct {
	mu      sync.RWMutex
	path    string
	mtime   time.Time
	cfg     AnalyzerConfig
	loaded  bool
}

var globalConfigCache configCache

// LoadAnalyzerConfig returns the parsed analyzer configuration at path,
// using the process-wide cache when path's mtime has not changed since
// the last parse. A missing or malformed file yields the documented
// defaults (Dark16 / wal / auto) rather than an error, per spec §6.
func LoadAnalyzerConfig(path string) AnalyzerConfig {
	return globalConfigCache.load(path)
}

// InvalidateConfigCache clears the cached parse, forcing the next
// LoadAnalyzerConfig call to reparse path regardless of mtime. Exposed
// for tests that rewrite the config file within the same timestamp
// resolution window.
func InvalidateConfigCache() {
	globalConfigCache.mu.Lock()
	defer globalConfigCache.mu.Unlock()
	globalConfigCache.loaded = false
}

func (c *configCache) load(path string) AnalyzerConfig {
	info, statErr := os.Stat(path)

	c.mu.RLock()
	if c.loaded && c.path == path && statErr == nil && info.ModTime().Equal(c.mtime) {
		defer c.mu.RUnlock()
		return c.cfg
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Re-check under the write lock: another goroutine may have just
	// refreshed the cache while we were waiting.
	if c.loaded && c.path == path && statErr == nil && info.ModTime().Equal(c.mtime) {
		return c.cfg
	}

	cfg := parseAnalyzerConfig(path)
	c.path = path
	c.cfg = cfg
	c.loaded = true
	if statErr == nil {
		c.mtime = info.ModTime()
	}
	return cfg
}

func parseAnalyzerConfig(path string) AnalyzerConfig {
	cfg := AnalyzerConfig{
		Palette:    defaultPaletteType,
		Backend:    defaultBackend,
		ColorSpace: defaultColorSpace,
	}

	var raw AnalyzerConfig
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return cfg
	}

	if raw.Palette != "" {
		cfg.Palette = normalizePaletteType(raw.Palette)
	}
	if raw.Backend != "" {
		cfg.Backend = raw.Backend
	}
	if raw.ColorSpace != "" {
		cfg.ColorSpace = raw.ColorSpace
	}
	cfg.Templates = raw.Templates
	return cfg
}

// normalizePaletteType case-insensitively normalizes a palette type name
// to TitleCase (e.g. "dark16" -> "Dark16"), per spec §6.
func normalizePaletteType(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return defaultPaletteType
	}
	runes := []rune(name)
	out := make([]rune, 0, len(runes))
	startOfWord := true
	for _, r := range runes {
		if startOfWord && r >= 'a' && r <= 'z' {
			out = append(out, r-('a'-'A'))
			startOfWord = false
		} else {
			out = append(out, r)
			if r < '0' || r > '9' {
				startOfWord = false
			} else {
				startOfWord = true
			}
		}
	}
	return string(out)
}

// defaultWallustConfigPath returns the conventional location of
// wallust's own configuration file under a user config directory.
func defaultWallustConfigPath(userConfigDir string) string {
	return filepath.Join(userConfigDir, "wallust", "wallust.toml")
}
