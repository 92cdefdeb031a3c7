package timeadapter

import (
	"testing"
	"time"

	"github.com/adewale/smartselect/internal/models"
)

func fixedConfig() models.SelectionConfig {
	cfg := models.DefaultSelectionConfig()
	cfg.TimeAdaptationMethod = models.MethodFixed
	cfg.DayStart = "07:00"
	cfg.NightStart = "19:00"
	cfg.DayPreset = "neutral_day"
	cfg.NightPreset = "cozy_night"
	return cfg
}

func TestFixedScheduleDayPeriod(t *testing.T) {
	a := New(fixedConfig())
	a.now = func() time.Time { return time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC) }

	period, err := a.CurrentPeriod()
	if err != nil {
		t.Fatal(err)
	}
	if period != PeriodDay {
		t.Errorf("expected day at noon, got %s", period)
	}
}

func TestFixedScheduleNightPeriod(t *testing.T) {
	a := New(fixedConfig())
	a.now = func() time.Time { return time.Date(2026, 7, 31, 22, 0, 0, 0, time.UTC) }

	period, err := a.CurrentPeriod()
	if err != nil {
		t.Fatal(err)
	}
	if period != PeriodNight {
		t.Errorf("expected night at 22:00, got %s", period)
	}
}

func TestFixedScheduleOvernightWindow(t *testing.T) {
	cfg := fixedConfig()
	cfg.DayStart = "07:00"
	cfg.NightStart = "03:00" // day window 07:00-03:00 wraps past midnight
	a := New(cfg)

	a.now = func() time.Time { return time.Date(2026, 7, 31, 1, 0, 0, 0, time.UTC) }
	period, err := a.CurrentPeriod()
	if err != nil {
		t.Fatal(err)
	}
	if period != PeriodDay {
		t.Errorf("expected day at 01:00 with overnight day window, got %s", period)
	}
}

func TestPaletteTargetResolvesNamedPreset(t *testing.T) {
	a := New(fixedConfig())
	a.now = func() time.Time { return time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC) }

	target, err := a.PaletteTarget()
	if err != nil {
		t.Fatal(err)
	}
	if target.Lightness == nil || *target.Lightness != 0.6 {
		t.Errorf("expected neutral_day lightness 0.6, got %+v", target.Lightness)
	}
}

func TestPaletteTargetResolvesNightPreset(t *testing.T) {
	a := New(fixedConfig())
	a.now = func() time.Time { return time.Date(2026, 7, 31, 22, 0, 0, 0, time.UTC) }

	target, err := a.PaletteTarget()
	if err != nil {
		t.Fatal(err)
	}
	if target.Temperature == nil || *target.Temperature != 0.4 {
		t.Errorf("expected cozy_night temperature 0.4, got %+v", target.Temperature)
	}
}

func TestSystemThemeMapsDarkToNight(t *testing.T) {
	cfg := models.DefaultSelectionConfig()
	cfg.TimeAdaptationMethod = models.MethodSystemTheme
	a := New(cfg)
	a.theme = func() (string, error) { return "prefer-dark", nil }

	period, err := a.CurrentPeriod()
	if err != nil {
		t.Fatal(err)
	}
	if period != PeriodNight {
		t.Errorf("expected dark scheme to map to night, got %s", period)
	}
}

func TestSystemThemeMapsLightToDay(t *testing.T) {
	cfg := models.DefaultSelectionConfig()
	cfg.TimeAdaptationMethod = models.MethodSystemTheme
	a := New(cfg)
	a.theme = func() (string, error) { return "default", nil }

	period, err := a.CurrentPeriod()
	if err != nil {
		t.Fatal(err)
	}
	if period != PeriodDay {
		t.Errorf("expected non-dark scheme to map to day, got %s", period)
	}
}

func TestSunriseSunsetPeriod(t *testing.T) {
	cfg := models.DefaultSelectionConfig()
	cfg.TimeAdaptationMethod = models.MethodSunriseSunset
	cfg.Latitude = 51.5074
	cfg.Longitude = -0.1278 // London
	a := New(cfg)
	a.now = func() time.Time { return time.Date(2026, 7, 31, 13, 0, 0, 0, time.UTC) }

	period, err := a.CurrentPeriod()
	if err != nil {
		t.Fatal(err)
	}
	if period != PeriodDay {
		t.Errorf("expected day at 13:00 UTC in London in late July, got %s", period)
	}
}
