package timeadapter

import (
	"context"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// systemThemeTimeout bounds the desktop preference query subprocess.
const systemThemeTimeout = 2 * time.Second

// querySystemColorScheme shells out to the desktop's standard
// preference query and returns its raw output. The spec leaves the
// exact mechanism for "query the host system's color-scheme
// preference" unspecified; this module resolves it (SPEC_FULL §9) with
// `gsettings get org.gnome.desktop.interface color-scheme` on
// GNOME-based Linux and `defaults read -g AppleInterfaceStyle` on
// Darwin, mirroring the teacher's own external-process invocation style
// (testdata/generate_dng_fixtures.go's exiftool subprocess helper). A
// non-zero exit or unrecognized platform is treated as "day" by the
// caller.
func querySystemColorScheme() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), systemThemeTimeout)
	defer cancel()

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "defaults", "read", "-g", "AppleInterfaceStyle")
	default:
		cmd = exec.CommandContext(ctx, "gsettings", "get", "org.gnome.desktop.interface", "color-scheme")
	}

	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
