package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestExpand_Daily(t *testing.T) {
	got := Expand(date(2024, time.March, 30), Daily, date(2024, time.April, 2))
	want := []time.Time{
		date(2024, time.March, 30),
		date(2024, time.March, 31),
		date(2024, time.April, 1),
		date(2024, time.April, 2),
	}
	assert.Equal(t, want, got)
}

func TestExpand_WeeklyAndBiWeekly(t *testing.T) {
	weekly := Expand(date(2024, time.January, 1), Weekly, date(2024, time.January, 22))
	assert.Equal(t, []time.Time{
		date(2024, time.January, 1),
		date(2024, time.January, 8),
		date(2024, time.January, 15),
		date(2024, time.January, 22),
	}, weekly)

	biweekly := Expand(date(2024, time.January, 1), BiWeekly, date(2024, time.February, 1))
	assert.Equal(t, []time.Time{
		date(2024, time.January, 1),
		date(2024, time.January, 15),
		date(2024, time.January, 29),
	}, biweekly)
}

func TestExpand_MonthlyClampRetriesOriginalDay(t *testing.T) {
	got := Expand(date(2024, time.January, 31), Monthly, date(2024, time.May, 31))
	want := []time.Time{
		date(2024, time.January, 31),
		date(2024, time.February, 29),
		date(2024, time.March, 31),
		date(2024, time.April, 30),
		date(2024, time.May, 31),
	}
	assert.Equal(t, want, got)
}

func TestExpand_YearlyFeb29Recovers(t *testing.T) {
	got := Expand(date(2024, time.February, 29), Yearly, date(2028, time.December, 31))
	want := []time.Time{
		date(2024, time.February, 29),
		date(2025, time.February, 28),
		date(2026, time.February, 28),
		date(2027, time.February, 28),
		date(2028, time.February, 29),
	}
	assert.Equal(t, want, got)
}

func TestExpand_UnknownPatternOrZeroStart(t *testing.T) {
	assert.Empty(t, Expand(date(2024, time.January, 1), "fortnightly", date(2025, time.January, 1)))
	assert.Empty(t, Expand(date(2024, time.January, 1), "", date(2025, time.January, 1)))
	assert.Empty(t, Expand(time.Time{}, Daily, date(2025, time.January, 1)))
}

func TestExpand_StartAfterBound(t *testing.T) {
	assert.Empty(t, Expand(date(2024, time.June, 1), Weekly, date(2024, time.May, 1)))
}

func TestExpand_AscendingWithinBoundForAllPatterns(t *testing.T) {
	start := date(2023, time.October, 31)
	end := date(2026, time.October, 31)
	for _, pattern := range []string{Daily, Weekly, BiWeekly, Monthly, Yearly} {
		got := Expand(start, pattern, end)
		require.NotEmpty(t, got, pattern)
		assert.Equal(t, start, got[0], pattern)
		for i := 1; i < len(got); i++ {
			assert.True(t, got[i].After(got[i-1]), "%s: not ascending at %d", pattern, i)
		}
		assert.False(t, got[len(got)-1].After(end), pattern)
	}
}

func TestAfter_ExcludesBoundaryAndDerivesFromOriginalDay(t *testing.T) {
	// Latest materialized date is the clamped Feb 29; the next occurrence
	// must come from the original day 31, not from 29.
	got := After(date(2024, time.January, 31), Monthly, date(2024, time.February, 29), date(2024, time.April, 30))
	want := []time.Time{
		date(2024, time.March, 31),
		date(2024, time.April, 30),
	}
	assert.Equal(t, want, got)
}

func TestNextAfter(t *testing.T) {
	next, ok := NextAfter(date(2024, time.January, 31), Monthly, date(2024, time.February, 28))
	require.True(t, ok)
	assert.Equal(t, date(2024, time.February, 29), next)

	// Before the series start, the start itself is next.
	next, ok = NextAfter(date(2024, time.June, 15), Weekly, date(2024, time.January, 1))
	require.True(t, ok)
	assert.Equal(t, date(2024, time.June, 15), next)

	_, ok = NextAfter(date(2024, time.June, 15), "hourly", date(2024, time.January, 1))
	assert.False(t, ok)
}

func TestDateOnly(t *testing.T) {
	loc := time.FixedZone("plus5", 5*3600)
	in := time.Date(2024, time.July, 4, 23, 59, 59, 0, loc)
	assert.Equal(t, date(2024, time.July, 4), DateOnly(in))
}
