package theming

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/adewale/smartselect/internal/database"
)

// debounceInterval is the fixed delay spec §4.7 prescribes for
// apply_debounced: rapid successive calls coalesce into one render of
// the final image path.
const debounceInterval = 100 * time.Millisecond

// reloadTimeout bounds each dispatched reload subprocess.
const reloadTimeout = 5 * time.Second

// templateCacheEntry holds a parsed (here: raw-text, since rendering is
// cheap and pure) template body alongside the source mtime it was read
// at, so Apply only re-reads a template file when it actually changes.
type templateCacheEntry struct {
	mtime time.Time
	body  string
}

// Engine applies a cached palette to the configured template registry,
// writing outputs atomically and dispatching debounced reload commands.
// A single mutex guards the template cache, the overlay cache, the
// pending-image slot, and the timer handle, per spec §4.7's
// concurrency model — template writes are each individually atomic, so
// two rapid applies never produce a torn output file even though the
// cache and timer state around them is serialized.
type Engine struct {
	db          *database.DB
	configPath  string
	overlayPath string

	mu            sync.Mutex
	templateCache map[string]templateCacheEntry
	overlay       *Overlay
	overlayMTime  time.Time

	pendingImage string
	timer        *time.Timer
}

// NewEngine builds a theming Engine. configPath is the TOML file
// carrying the `[templates]` registry (shared with the palette
// extractor's analyzer config); overlayPath is the optional JSON
// overlay file.
func NewEngine(db *database.DB, configPath, overlayPath string) *Engine {
	return &Engine{
		db:            db,
		configPath:    configPath,
		overlayPath:   overlayPath,
		templateCache: make(map[string]templateCacheEntry),
	}
}

// Apply looks up imagePath's cached palette and, if present, expands
// every enabled template entry against it, writing each output
// atomically and then dispatching the reload commands for the entries
// that were rewritten. A missing palette is a no-op success, per spec
// §4.7 step 1 — the image simply hasn't had a palette extracted yet.
func (e *Engine) Apply(imagePath string) error {
	palette, err := e.db.GetPalette(imagePath)
	if err != nil {
		return fmt.Errorf("theming: failed to load palette for %s: %w", imagePath, err)
	}
	if palette == nil {
		return nil
	}

	e.mu.Lock()
	overlay := e.refreshOverlayLocked()
	entries := buildEntries(e.configPath, overlay)
	e.mu.Unlock()

	var reloadCommands []string
	for _, entry := range entries {
		if !entry.Enabled {
			continue
		}
		body, err := e.readTemplateCached(entry.TemplateSource)
		if err != nil {
			log.Printf("theming: failed to read template %s: %v", entry.TemplateSource, err)
			continue
		}

		rendered, err := Render(body, palette)
		if err != nil {
			log.Printf("theming: failed to render template %s: %v", entry.Name, err)
			continue
		}

		if err := atomicWrite(entry.OutputTarget, rendered); err != nil {
			log.Printf("theming: failed to write template output %s: %v", entry.OutputTarget, err)
			continue
		}

		if entry.ReloadCommand != "" {
			reloadCommands = append(reloadCommands, entry.ReloadCommand)
		}
	}

	for _, cmd := range reloadCommands {
		runReloadCommand(cmd)
	}
	return nil
}

// refreshOverlayLocked reparses the overlay file if its mtime changed
// since the last read. Caller must hold e.mu.
func (e *Engine) refreshOverlayLocked() *Overlay {
	mtime := fileMTime(e.overlayPath)
	if e.overlay != nil && mtime.Equal(e.overlayMTime) {
		return e.overlay
	}
	ov, err := loadOverlay(e.overlayPath)
	if err != nil {
		log.Printf("theming: failed to parse overlay %s: %v", e.overlayPath, err)
		if e.overlay != nil {
			return e.overlay
		}
		ov = &Overlay{}
	}
	e.overlay = ov
	e.overlayMTime = mtime
	return ov
}

// readTemplateCached returns path's contents, re-reading only when its
// mtime has changed since the last read.
func (e *Engine) readTemplateCached(path string) (string, error) {
	mtime := fileMTime(path)

	e.mu.Lock()
	if cached, ok := e.templateCache[path]; ok && mtime.Equal(cached.mtime) && !mtime.IsZero() {
		e.mu.Unlock()
		return cached.body, nil
	}
	e.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	e.mu.Lock()
	e.templateCache[path] = templateCacheEntry{mtime: mtime, body: string(data)}
	e.mu.Unlock()

	return string(data), nil
}

// atomicWrite writes content to a temp file in target's directory, then
// renames it over target, per spec §4.7 step 2 — grounded in the
// example pack's temp-file + os.Rename persistence pattern
// (ImageStore.saveCacheInternalOriginalLocked).
func atomicWrite(target, content string) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create parent directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-theme-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename temp file into place: %w", err)
	}
	return nil
}

// runReloadCommand executes a reload command with a bounded timeout.
// Failures are logged, never returned — spec §7 requires reload
// failures to never propagate.
func runReloadCommand(command string) {
	if command == "" {
		return
	}
	cmd := exec.Command("sh", "-c", command)
	done := make(chan error, 1)
	if err := cmd.Start(); err != nil {
		log.Printf("theming: failed to start reload command %q: %v", command, err)
		return
	}
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			log.Printf("theming: reload command %q exited with error: %v", command, err)
		}
	case <-time.After(reloadTimeout):
		log.Printf("theming: reload command %q timed out, killing", command)
		_ = cmd.Process.Kill()
		<-done
	}
}
