package palette

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sort"
	"time"

	"github.com/mccutchen/palettor"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/adewale/smartselect/internal/color"
	"github.com/adewale/smartselect/internal/models"
)

// fallbackClusters is the number of k-means clusters extracted directly
// from pixels when the external analyzer binary is unavailable. Spec
// §4.5 only requires the derived metrics in this path, not sixteen
// genuinely distinct terminal colors, but producing sixteen slots keeps
// the PaletteRecord shape uniform for every downstream consumer
// (theming templates reference color0..color15 unconditionally).
const fallbackClusters = 16

// fallbackResizeWidth downscales the source image before clustering, the
// same "downscale, quantize, analyze" strategy spec §4.5 describes for
// a pixel-based fallback, grounded in the teacher's own
// ExtractColourPalette + rgbToHSL pipeline (internal/indexer/color.go),
// generalized here from "dominant colours for faceted search" to
// "sixteen-slot terminal palette."
const fallbackResizeWidth = 150

// extractFallback computes a PaletteRecord directly from pixel data via
// k-means clustering, used when the wallust binary is not on PATH.
func extractFallback(filepath_ string) (*models.PaletteRecord, error) {
	f, err := os.Open(filepath_)
	if err != nil {
		return nil, nil // invalid/unreadable image: null result, not an error
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, nil
	}

	small := resize.Resize(fallbackResizeWidth, 0, img, resize.Lanczos3)

	clusters, err := palettor.Extract(fallbackClusters, 50, small)
	if err != nil {
		return nil, nil
	}

	entries := clusters.Entries()
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Weight > entries[j].Weight
	})

	colors := make([]color.RGB, 0, fallbackClusters)
	for _, e := range entries {
		r, g, b, _ := e.Color.RGBA()
		colors = append(colors, color.RGB{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8)})
	}
	for len(colors) < fallbackClusters {
		// Fewer distinct clusters than slots (a near-monochrome image):
		// repeat the last (or a mid-grey default) to fill every slot.
		if len(colors) == 0 {
			colors = append(colors, color.RGB{R: 128, G: 128, B: 128})
			continue
		}
		colors = append(colors, colors[len(colors)-1])
	}

	var hexColors [16]string
	for i := 0; i < 16; i++ {
		hexColors[i] = colors[i].Hex()
	}

	background, foreground, cursor := pickNamedSlots(colors)

	rec := &models.PaletteRecord{
		FilePath:   filepath_,
		Background: background,
		Foreground: foreground,
		Cursor:     cursor,
		IndexedAt:  time.Now(),
	}
	rec.SetColors(hexColors)
	applyDerivedMetrics(rec, hexColors)
	return rec, nil
}

// pickNamedSlots derives background/foreground/cursor from the darkest,
// lightest, and most-saturated cluster respectively, per SPEC_FULL §4.5.
func pickNamedSlots(colors []color.RGB) (background, foreground, cursor string) {
	if len(colors) == 0 {
		return "#000000", "#ffffff", "#ffffff"
	}

	darkestIdx, lightestIdx, mostSaturatedIdx := 0, 0, 0
	darkestL, lightestL, mostSat := 2.0, -1.0, -1.0

	for i, c := range colors {
		hsl := c.ToHSL()
		if hsl.L < darkestL {
			darkestL = hsl.L
			darkestIdx = i
		}
		if hsl.L > lightestL {
			lightestL = hsl.L
			lightestIdx = i
		}
		if hsl.S > mostSat {
			mostSat = hsl.S
			mostSaturatedIdx = i
		}
	}

	return colors[darkestIdx].Hex(), colors[lightestIdx].Hex(), colors[mostSaturatedIdx].Hex()
}
