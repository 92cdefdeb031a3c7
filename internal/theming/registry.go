package theming

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/adewale/smartselect/internal/palette"
)

// Entry is one template registry entry: a name, the template source
// file to render, the destination file to render it to, and whether
// it's currently enabled.
type Entry struct {
	Name           string
	TemplateSource string
	OutputTarget   string
	Enabled        bool
	ReloadCommand  string
}

// Overlay is the optional host-supplied file that enables/disables
// registry entries by name and overrides reload commands, per spec
// §4.7 and the `<user-config>/variety/theming.json` shape in §6.
type Overlay struct {
	Enabled        *bool             `json:"enabled,omitempty"`
	Templates      map[string]bool   `json:"templates,omitempty"`
	ReloadCommands map[string]string `json:"reload_commands,omitempty"`
}

// loadOverlay parses the JSON overlay file at path. A missing file is
// not an error — it means no overlay is configured — but a malformed
// one is, since a broken overlay is a configuration mistake worth
// surfacing rather than one broken template among many (spec §7
// distinguishes "malformed cache/config, caught per-entry" from this
// top-level file, which gates every entry).
func loadOverlay(path string) (*Overlay, error) {
	if path == "" {
		return &Overlay{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Overlay{}, nil
		}
		return nil, fmt.Errorf("theming: failed to read overlay %s: %w", path, err)
	}
	var ov Overlay
	if err := json.Unmarshal(data, &ov); err != nil {
		return nil, fmt.Errorf("theming: malformed overlay %s: %w", path, err)
	}
	return &ov, nil
}

// buildEntries merges the analyzer config's [templates] table with the
// overlay's enable/disable map and reload command overrides, producing
// the concrete list of entries Apply will render.
func buildEntries(configPath string, overlay *Overlay) []Entry {
	cfg := palette.LoadAnalyzerConfig(configPath)

	entries := make([]Entry, 0, len(cfg.Templates))
	for name, t := range cfg.Templates {
		enabled := true
		if overlay != nil {
			if v, ok := overlay.Templates[name]; ok {
				enabled = v
			} else if overlay.Enabled != nil {
				enabled = *overlay.Enabled
			}
		}

		reload := ""
		if overlay != nil {
			reload = overlay.ReloadCommands[name]
		}

		entries = append(entries, Entry{
			Name:           name,
			TemplateSource: t.Template,
			OutputTarget:   t.Target,
			Enabled:        enabled,
			ReloadCommand:  reload,
		})
	}
	return entries
}

// fileMTime returns path's modification time, or the zero time if the
// file doesn't exist or can't be stat'd.
func fileMTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
