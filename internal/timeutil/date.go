package timeutil

import (
	"fmt"
	"time"
)

// Zone builds a fixed location from an offset in minutes, e.g. -420 for
// US/Pacific daylight time. The name renders like "-07:00".
func Zone(offsetMinutes int) *time.Location {
	sign := "+"
	abs := offsetMinutes
	if abs < 0 {
		sign = "-"
		abs = -abs
	}
	name := fmt.Sprintf("%s%02d:%02d", sign, abs/60, abs%60)
	return time.FixedZone(name, offsetMinutes*60)
}

// InOffset presents t in the fixed timezone of the given offset. Missing
// timezone information on t is treated as UTC.
func InOffset(t time.Time, offsetMinutes int) time.Time {
	return t.In(Zone(offsetMinutes))
}

// HoursToMinutes converts an identity-provider timezone (fractional hours,
// e.g. -7 or 5.5) to a minutes offset.
func HoursToMinutes(hours float64) int {
	return int(hours * 60)
}
