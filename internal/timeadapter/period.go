package timeadapter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adewale/smartselect/internal/models"
)

// Period is the coarse day/night classification spec §4.6 exposes.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodNight Period = "night"
)

// Adapter determines the current period and target palette from a
// SelectionConfig's time-adaptation fields.
type Adapter struct {
	cfg   models.SelectionConfig
	now   func() time.Time
	theme func() (string, error) // overridable for tests; real impl shells out
}

// New builds an Adapter bound to cfg.
func New(cfg models.SelectionConfig) *Adapter {
	return &Adapter{
		cfg:   cfg,
		now:   time.Now,
		theme: querySystemColorScheme,
	}
}

// SetConfig replaces the config used for subsequent calls.
func (a *Adapter) SetConfig(cfg models.SelectionConfig) {
	a.cfg = cfg
}

// CurrentPeriod reports whether it is currently "day" or "night",
// according to the configured detection method.
func (a *Adapter) CurrentPeriod() (Period, error) {
	now := a.now()

	switch a.cfg.TimeAdaptationMethod {
	case models.MethodSunriseSunset:
		return a.sunriseSunsetPeriod(now)
	case models.MethodSystemTheme:
		return a.systemThemePeriod()
	case models.MethodFixed:
		fallthrough
	default:
		return a.fixedSchedulePeriod(now)
	}
}

func (a *Adapter) fixedSchedulePeriod(now time.Time) (Period, error) {
	dayStart, err := parseClock(a.cfg.DayStart, now)
	if err != nil {
		return "", fmt.Errorf("timeadapter: invalid day_start %q: %w", a.cfg.DayStart, err)
	}
	nightStart, err := parseClock(a.cfg.NightStart, now)
	if err != nil {
		return "", fmt.Errorf("timeadapter: invalid night_start %q: %w", a.cfg.NightStart, err)
	}

	if withinRange(now, dayStart, nightStart) {
		return PeriodDay, nil
	}
	return PeriodNight, nil
}

func (a *Adapter) sunriseSunsetPeriod(now time.Time) (Period, error) {
	sunrise, sunset, ok := sunriseSunset(now, a.cfg.Latitude, a.cfg.Longitude)
	if !ok {
		// Polar day/night: fall back to the fixed schedule so the
		// adapter always returns a definite period.
		return a.fixedSchedulePeriod(now)
	}
	if withinRange(now, sunrise, sunset) {
		return PeriodDay, nil
	}
	return PeriodNight, nil
}

func (a *Adapter) systemThemePeriod() (Period, error) {
	scheme, err := a.theme()
	if err != nil || !strings.Contains(strings.ToLower(scheme), "dark") {
		return PeriodDay, nil
	}
	return PeriodNight, nil
}

// withinRange reports whether now's time-of-day falls in [start, end)
// (both given as today's clock time), handling the case where end is
// earlier than start (an overnight window) by treating it as wrapping
// past midnight.
func withinRange(now, start, end time.Time) bool {
	s := clockMinutes(start)
	e := clockMinutes(end)
	n := clockMinutes(now)

	if s <= e {
		return n >= s && n < e
	}
	// Overnight window, e.g. day_start 07:00, night_start 03:00.
	return n >= s || n < e
}

func clockMinutes(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// parseClock parses "HH:MM" against the date portion of ref, returning
// a time.Time on the same day.
func parseClock(hhmm string, ref time.Time) (time.Time, error) {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("expected HH:MM")
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return time.Time{}, fmt.Errorf("invalid hour")
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return time.Time{}, fmt.Errorf("invalid minute")
	}
	y, mo, d := ref.Date()
	return time.Date(y, mo, d, h, m, 0, 0, ref.Location()), nil
}

// PaletteTarget returns the target palette metrics for the current
// period, resolved from the configured day/night preset names (or the
// config's override fields for "custom").
func (a *Adapter) PaletteTarget() (models.PaletteTarget, error) {
	period, err := a.CurrentPeriod()
	if err != nil {
		return models.PaletteTarget{}, err
	}

	presetName := a.cfg.DayPreset
	if period == PeriodNight {
		presetName = a.cfg.NightPreset
	}
	return resolvePreset(presetName, a.cfg), nil
}
