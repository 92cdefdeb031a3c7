package theming

import (
	"testing"

	"github.com/adewale/smartselect/internal/models"
)

func testPalette() *models.PaletteRecord {
	p := &models.PaletteRecord{
		Background: "#282828",
		Foreground: "#ebdbb2",
		Cursor:     "#ebdbb2",
	}
	p.SetColors([16]string{
		"#1a1a1a", "#cc241d", "#98971a", "#d79921",
		"#458588", "#b16286", "#689d6a", "#a89984",
		"#928374", "#fb4934", "#b8bb26", "#fabd2f",
		"#83a598", "#d3869b", "#8ec07c", "#ebdbb2",
	})
	return p
}

func TestRenderBasicVariable(t *testing.T) {
	out, err := Render(`background = "{{background}}"`, testPalette())
	if err != nil {
		t.Fatal(err)
	}
	if out != `background = "#282828"` {
		t.Errorf("got %q", out)
	}
}

func TestRenderStripRemovesHash(t *testing.T) {
	out, err := Render(`accent = {{color1 | strip}}`, testPalette())
	if err != nil {
		t.Fatal(err)
	}
	if out != "accent = cc241d" {
		t.Errorf("got %q", out)
	}
}

func TestRenderDarkenThenStrip(t *testing.T) {
	out, err := Render(`accent = "{{color1 | darken(0.2) | strip}}"`, testPalette())
	if err != nil {
		t.Fatal(err)
	}
	if out == `accent = "cc241d"` {
		t.Error("expected darkened color to differ from the original")
	}
}

func TestRenderRemovesComments(t *testing.T) {
	out, err := Render("{# this is a comment #}value = \"{{background}}\"", testPalette())
	if err != nil {
		t.Fatal(err)
	}
	if out != `value = "#282828"` {
		t.Errorf("got %q", out)
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	src := `a = "{{color1 | darken(0.1) | saturate(0.1)}}" b = "{{color2 | lighten(0.2)}}"`
	p := testPalette()
	a, err := Render(src, p)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Render(src, p)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("expected byte-identical renders, got %q and %q", a, b)
	}
}

func TestRenderBlend(t *testing.T) {
	out, err := Render(`mix = "{{color1 | blend(color2)}}"`, testPalette())
	if err != nil {
		t.Fatal(err)
	}
	if out == "" {
		t.Error("expected a non-empty blended color")
	}
}

func TestRenderMissingCursorFallsBackToForeground(t *testing.T) {
	p := testPalette()
	p.Cursor = ""
	out, err := Render(`c = "{{cursor}}"`, p)
	if err != nil {
		t.Fatal(err)
	}
	if out != `c = "#ebdbb2"` {
		t.Errorf("expected cursor to fall back to foreground, got %q", out)
	}
}

func TestRenderMissingColor7FallsBackToForeground(t *testing.T) {
	p := testPalette()
	p.Color7 = ""
	out, err := Render(`c = "{{color7}}"`, p)
	if err != nil {
		t.Fatal(err)
	}
	if out != `c = "#ebdbb2"` {
		t.Errorf("expected color7 to fall back to foreground, got %q", out)
	}
}

func TestRenderMissingOtherColorFallsBackToBackground(t *testing.T) {
	p := testPalette()
	p.Color3 = ""
	out, err := Render(`c = "{{color3}}"`, p)
	if err != nil {
		t.Fatal(err)
	}
	if out != `c = "#282828"` {
		t.Errorf("expected color3 to fall back to background, got %q", out)
	}
}

func TestStripIsIdempotent(t *testing.T) {
	once, err := Render(`{{color1 | strip}}`, testPalette())
	if err != nil {
		t.Fatal(err)
	}
	twice, err := Render(`{{color1 | strip | strip}}`, testPalette())
	if err != nil {
		t.Fatal(err)
	}
	if once != twice {
		t.Errorf("expected strip to be idempotent, got %q and %q", once, twice)
	}
}
