package timeadapter

import (
	"math"
	"time"
)

// sunriseSunset computes today's sunrise and sunset for date at
// (lat, lon) using the NOAA solar position algorithm — a standard,
// public-domain formula. No astronomy package appears anywhere in the
// example pack (SPEC_FULL §4.6), so this is implemented directly
// against the standard library's math package: the one ambient-stack
// justification recorded in DESIGN.md for reaching past the example
// pack's dependency set.
//
// Returns times in date's location. If the sun never rises or sets on
// this date at this latitude (polar day/night), ok is false; the caller
// then falls back to the fixed day/night schedule.
func sunriseSunset(date time.Time, lat, lon float64) (sunrise, sunset time.Time, ok bool) {
	year, month, day := date.Date()
	jd := julianDay(year, int(month), day)

	// Fractional year, in radians.
	gamma := 2 * math.Pi / 365 * (float64(jd-referenceJD(date)) + float64(date.Hour()-12)/24)

	eqTime := equationOfTime(gamma)
	decl := solarDeclination(gamma)

	latRad := lat * math.Pi / 180

	cosHourAngle := (math.Cos(90.833*math.Pi/180) / (math.Cos(latRad) * math.Cos(decl))) - (math.Tan(latRad) * math.Tan(decl))
	if cosHourAngle > 1 || cosHourAngle < -1 {
		return time.Time{}, time.Time{}, false
	}
	hourAngle := math.Acos(cosHourAngle) * 180 / math.Pi

	solarNoonMinutes := 720 - 4*lon - eqTime
	sunriseMinutes := solarNoonMinutes - 4*hourAngle
	sunsetMinutes := solarNoonMinutes + 4*hourAngle

	y, m, d := date.Date()
	// The NOAA formula yields minutes after UTC midnight.
	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	sunrise = midnight.Add(time.Duration(sunriseMinutes * float64(time.Minute))).In(date.Location())
	sunset = midnight.Add(time.Duration(sunsetMinutes * float64(time.Minute))).In(date.Location())
	return sunrise, sunset, true
}

// julianDay returns the (simplified) Julian day number for a Gregorian
// calendar date.
func julianDay(year, month, day int) int {
	a := (14 - month) / 12
	y := year + 4800 - a
	m := month + 12*a - 3
	return day + (153*m+2)/5 + 365*y + y/4 - y/100 + y/400 - 32045
}

// referenceJD returns the Julian day of Jan 1st in date's year, used to
// compute a 0-based day-of-year offset for the fractional-year formula.
func referenceJD(date time.Time) int {
	return julianDay(date.Year(), 1, 1)
}

// equationOfTime returns the equation of time in minutes for a
// fractional year gamma (radians), per the NOAA formula.
func equationOfTime(gamma float64) float64 {
	return 229.18 * (0.000075 +
		0.001868*math.Cos(gamma) - 0.032077*math.Sin(gamma) -
		0.014615*math.Cos(2*gamma) - 0.040849*math.Sin(2*gamma))
}

// solarDeclination returns the solar declination angle in radians for a
// fractional year gamma (radians), per the NOAA formula.
func solarDeclination(gamma float64) float64 {
	return 0.006918 - 0.399912*math.Cos(gamma) + 0.070257*math.Sin(gamma) -
		0.006758*math.Cos(2*gamma) + 0.000907*math.Sin(2*gamma) -
		0.002697*math.Cos(3*gamma) + 0.00148*math.Sin(3*gamma)
}
