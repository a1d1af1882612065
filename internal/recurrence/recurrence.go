// Package recurrence computes occurrence dates for repeating tasks.
// All functions are pure: dates are naive calendar values normalized to
// midnight UTC, and identical inputs always yield identical output.
package recurrence

import "time"

// Supported patterns.
const (
	Daily    = "daily"
	Weekly   = "weekly"
	BiWeekly = "bi-weekly"
	Monthly  = "monthly"
	Yearly   = "yearly"
)

// Known reports whether pattern is a supported recurrence pattern.
func Known(pattern string) bool {
	switch pattern {
	case Daily, Weekly, BiWeekly, Monthly, Yearly:
		return true
	}
	return false
}

// DateOnly strips the time-of-day and timezone, keeping the calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Expand returns the ascending occurrence sequence that begins at start and
// steps by pattern, truncated at the inclusive end bound. An unknown pattern
// or zero start yields an empty sequence rather than an error.
func Expand(start time.Time, pattern string, end time.Time) []time.Time {
	return After(start, pattern, time.Time{}, end)
}

// After returns the occurrences of the series anchored at start that fall
// strictly after the `after` date and at or before `end`. Monthly and yearly
// occurrences are always derived from start's original day-of-month, so a
// clamp in one step never shifts later ones.
func After(start time.Time, pattern string, after, end time.Time) []time.Time {
	if start.IsZero() || !Known(pattern) {
		return nil
	}
	start = DateOnly(start)
	end = DateOnly(end)
	if !after.IsZero() {
		after = DateOnly(after)
	}

	var dates []time.Time
	for n := 0; ; n++ {
		d := occurrence(start, pattern, n)
		if d.After(end) {
			return dates
		}
		if after.IsZero() || d.After(after) {
			dates = append(dates, d)
		}
	}
}

// NextAfter returns the first occurrence of the series anchored at start
// that falls strictly after the given date. ok is false for an unknown
// pattern or zero start.
func NextAfter(start time.Time, pattern string, after time.Time) (next time.Time, ok bool) {
	if start.IsZero() || !Known(pattern) {
		return time.Time{}, false
	}
	start = DateOnly(start)
	after = DateOnly(after)
	for n := 0; ; n++ {
		d := occurrence(start, pattern, n)
		if d.After(after) {
			return d, true
		}
	}
}

// occurrence computes the nth date of a series (n = 0 is start itself).
func occurrence(start time.Time, pattern string, n int) time.Time {
	switch pattern {
	case Daily:
		return start.AddDate(0, 0, n)
	case Weekly:
		return start.AddDate(0, 0, 7*n)
	case BiWeekly:
		return start.AddDate(0, 0, 14*n)
	case Monthly:
		return addMonthsClamped(start, n)
	case Yearly:
		return addMonthsClamped(start, 12*n)
	}
	return time.Time{}
}

// addMonthsClamped advances by whole months keeping the original
// day-of-month, clamping to the last day of the target month when that day
// does not exist there. Feb 29 therefore comes back in every leap year.
func addMonthsClamped(start time.Time, months int) time.Time {
	y, m, d := start.Date()
	total := int(m) - 1 + months
	ty := y + total/12
	tm := time.Month(total%12 + 1)
	if last := daysInMonth(tm, ty); d > last {
		d = last
	}
	return time.Date(ty, tm, d, 0, 0, 0, 0, time.UTC)
}

// daysInMonth moves to the next month and rolls back a day.
func daysInMonth(month time.Month, year int) int {
	firstOfNext := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return firstOfNext.AddDate(0, 0, -1).Day()
}
