// Package theming implements the template registry, filter pipeline,
// atomic file writes, and debounced reload dispatch described in spec
// §4.7: regenerating terminal/bar/editor color configs from a cached
// palette whenever the wallpaper changes.
package theming

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/adewale/smartselect/internal/color"
	"github.com/adewale/smartselect/internal/models"
)

// commentPattern strips `{# ... #}` comments before any variable
// expansion, per spec §4.7.
var commentPattern = regexp.MustCompile(`(?s)\{#.*?#\}`)

// variablePattern matches a `{{identifier | filter(arg)? ...}}`
// reference. The body is captured whole and split on "|" so filter
// argument lists (which may themselves contain commas or parens) don't
// need to be excluded from the outer regex.
var variablePattern = regexp.MustCompile(`\{\{\s*(.*?)\s*\}\}`)

// filterCallPattern matches one pipeline stage: a bare identifier, or
// an identifier with a single parenthesized argument.
var filterCallPattern = regexp.MustCompile(`^(\w+)(?:\(\s*(.*?)\s*\))?$`)

// Render expands every `{{...}}` reference in src against palette,
// after stripping `{#...#}` comments. Rendering the same src against
// the same palette is byte-identical across runs (spec §8): the
// expansion is a pure function of its inputs.
func Render(src string, palette *models.PaletteRecord) (string, error) {
	stripped := commentPattern.ReplaceAllString(src, "")

	var firstErr error
	out := variablePattern.ReplaceAllStringFunc(stripped, func(match string) string {
		if firstErr != nil {
			return match
		}
		inner := variablePattern.FindStringSubmatch(match)[1]
		rendered, err := evalReference(inner, palette)
		if err != nil {
			firstErr = err
			return match
		}
		return rendered
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// evalReference evaluates one "identifier | filter | filter(arg)"
// pipeline against palette.
func evalReference(body string, palette *models.PaletteRecord) (string, error) {
	stages := strings.Split(body, "|")
	for i := range stages {
		stages[i] = strings.TrimSpace(stages[i])
	}
	if len(stages) == 0 || stages[0] == "" {
		return "", fmt.Errorf("theming: empty template reference")
	}

	hex := lookupIdentifier(stages[0], palette)
	val := newValue(hex)

	for _, stage := range stages[1:] {
		m := filterCallPattern.FindStringSubmatch(stage)
		if m == nil {
			return "", fmt.Errorf("theming: invalid filter expression %q", stage)
		}
		name, arg := m[1], m[2]
		var err error
		val, err = applyFilter(val, name, arg, palette)
		if err != nil {
			return "", err
		}
	}

	return val.render(), nil
}

// value is a color carried through the filter pipeline: its HSL
// representation plus whether `strip` has been applied (which affects
// only final rendering, not further color math).
type value struct {
	hsl      color.HSL
	stripped bool
}

func newValue(hex string) value {
	rgb, err := color.ParseHex(hex)
	if err != nil {
		// An unparseable slot (empty string, bad data) renders as
		// black rather than aborting the whole template.
		rgb = color.RGB{}
	}
	return value{hsl: rgb.ToHSL()}
}

func (v value) render() string {
	hex := v.hsl.Hex()
	if v.stripped {
		return strings.TrimPrefix(hex, "#")
	}
	return hex
}

// applyFilter dispatches one pipeline stage by name, per spec §4.7's
// filter set. Every HSL-space filter clamps afterward (hue wraps mod
// 360, S/L clamp to [0,1]), matching the spec's "clamped after every
// filter" invariant.
func applyFilter(v value, name, arg string, palette *models.PaletteRecord) (value, error) {
	switch name {
	case "strip":
		v.stripped = true
		return v, nil
	case "darken":
		x, err := parseAmount(arg)
		if err != nil {
			return v, err
		}
		v.hsl = v.hsl.Darken(x)
		return v, nil
	case "lighten":
		x, err := parseAmount(arg)
		if err != nil {
			return v, err
		}
		v.hsl = v.hsl.Lighten(x)
		return v, nil
	case "saturate":
		x, err := parseAmount(arg)
		if err != nil {
			return v, err
		}
		v.hsl = v.hsl.Saturate(x)
		return v, nil
	case "desaturate":
		x, err := parseAmount(arg)
		if err != nil {
			return v, err
		}
		v.hsl = v.hsl.Desaturate(x)
		return v, nil
	case "blend":
		other := lookupIdentifier(strings.TrimSpace(arg), palette)
		otherRGB, err := color.ParseHex(other)
		if err != nil {
			return v, fmt.Errorf("theming: blend: invalid color reference %q: %w", arg, err)
		}
		v.hsl = v.hsl.Blend(otherRGB.ToHSL())
		return v, nil
	default:
		return v, fmt.Errorf("theming: unknown filter %q", name)
	}
}

func parseAmount(arg string) (float64, error) {
	x, err := strconv.ParseFloat(strings.TrimSpace(arg), 64)
	if err != nil {
		return 0, fmt.Errorf("theming: invalid filter argument %q: %w", arg, err)
	}
	return x, nil
}

// lookupIdentifier resolves a palette slot name to its hex color,
// applying the spec's missing-identifier fallback chain: color7 falls
// back to foreground, cursor falls back to foreground, and any other
// colorN falls back to background.
func lookupIdentifier(name string, palette *models.PaletteRecord) string {
	if palette == nil {
		return "#000000"
	}

	slots := map[string]string{
		"color0": palette.Color0, "color1": palette.Color1, "color2": palette.Color2,
		"color3": palette.Color3, "color4": palette.Color4, "color5": palette.Color5,
		"color6": palette.Color6, "color7": palette.Color7, "color8": palette.Color8,
		"color9": palette.Color9, "color10": palette.Color10, "color11": palette.Color11,
		"color12": palette.Color12, "color13": palette.Color13, "color14": palette.Color14,
		"color15": palette.Color15,
		"background": palette.Background, "foreground": palette.Foreground, "cursor": palette.Cursor,
	}

	if v, ok := slots[name]; ok && v != "" {
		return v
	}

	switch name {
	case "color7":
		return fallbackNonEmpty(palette.Foreground, palette.Background)
	case "cursor":
		return fallbackNonEmpty(palette.Foreground, palette.Background)
	default:
		if strings.HasPrefix(name, "color") {
			return fallbackNonEmpty(palette.Background, "#000000")
		}
	}
	return "#000000"
}

func fallbackNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return "#000000"
}
