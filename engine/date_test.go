package engine_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/timekeeping-engine/engine"
)

// =============================================================================
// DATE TESTS
// =============================================================================

func TestParseDate_RoundTrip(t *testing.T) {
	d, err := engine.ParseDate("2024-06-12")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-12", d.String())
	assert.Equal(t, 2024, d.Year())
	assert.Equal(t, time.June, d.Month())
	assert.Equal(t, 12, d.Day())
}

func TestParseDate_Invalid(t *testing.T) {
	_, err := engine.ParseDate("12.06.2024")
	assert.Error(t, err)
}

func TestDaysBetween_Inclusive(t *testing.T) {
	// GIVEN: A Monday and the Friday of the same week
	// THEN: 5 calendar days, both ends counted
	from := engine.NewDate(2024, time.July, 1)
	to := engine.NewDate(2024, time.July, 5)
	assert.Equal(t, 5, engine.DaysBetween(from, to))
	assert.Equal(t, 1, engine.DaysBetween(from, from))
}

func TestDaysBetween_InvertedRange(t *testing.T) {
	from := engine.NewDate(2024, time.July, 5)
	to := engine.NewDate(2024, time.July, 1)
	assert.Equal(t, 0, engine.DaysBetween(from, to))
}

func TestAddDays_MonthRollover(t *testing.T) {
	d := engine.NewDate(2024, time.January, 31)
	assert.Equal(t, "2024-02-01", d.AddDays(1).String())
	assert.Equal(t, "2024-02-29", d.AddDays(29).String()) // leap year
}

func TestAddMonths_YearRollover(t *testing.T) {
	d := engine.NewDate(2024, time.December, 15)
	assert.Equal(t, "2025-01-15", d.AddMonths(1).String())
	assert.Equal(t, "2024-06-15", d.AddMonths(-6).String())
}

func TestAddYears(t *testing.T) {
	d := engine.NewDate(2024, time.June, 12)
	assert.Equal(t, "2025-06-12", d.AddYears(1).String())
	assert.Equal(t, "2023-06-12", d.AddYears(-1).String())
}

func TestIsWeekend(t *testing.T) {
	assert.False(t, engine.NewDate(2024, time.June, 12).IsWeekend()) // Wednesday
	assert.True(t, engine.NewDate(2024, time.June, 15).IsWeekend())  // Saturday
	assert.True(t, engine.NewDate(2024, time.June, 16).IsWeekend())  // Sunday
}

func TestStartOfISOWeek(t *testing.T) {
	// 2024 week 1 starts on January 1 (a Monday)
	assert.Equal(t, "2024-01-01", engine.StartOfISOWeek(2024, 1).String())

	// 2026 week 1 starts in the previous calendar year
	assert.Equal(t, "2025-12-29", engine.StartOfISOWeek(2026, 1).String())

	// Every result is a Monday
	for week := 1; week <= 52; week++ {
		assert.Equal(t, time.Monday, engine.StartOfISOWeek(2024, week).Weekday())
	}
}

func TestStartOfISOWeek_MatchesISOWeek(t *testing.T) {
	monday := engine.StartOfISOWeek(2024, 24)
	year, week := monday.ISOWeek()
	assert.Equal(t, 2024, year)
	assert.Equal(t, 24, week)
}

func TestEndOfMonth(t *testing.T) {
	assert.Equal(t, "2024-02-29", engine.EndOfMonth(2024, time.February).String())
	assert.Equal(t, "2023-02-28", engine.EndOfMonth(2023, time.February).String())
	assert.Equal(t, "2024-12-31", engine.EndOfMonth(2024, time.December).String())
}

// =============================================================================
// CLOCK TIME TESTS
// =============================================================================

func TestParseClockTime(t *testing.T) {
	c, err := engine.ParseClockTime("08:30")
	require.NoError(t, err)
	assert.Equal(t, 510, c.Minutes())
	assert.Equal(t, "08:30", c.String())
}

func TestParseClockTime_EndOfDay(t *testing.T) {
	c, err := engine.ParseClockTime("24:00")
	require.NoError(t, err)
	assert.Equal(t, engine.MinutesPerDay, c.Minutes())
}

func TestParseClockTime_Invalid(t *testing.T) {
	_, err := engine.ParseClockTime("25:00")
	assert.Error(t, err)
}

func TestRangesOverlap(t *testing.T) {
	nine := engine.NewClockTime(9, 0)
	ten := engine.NewClockTime(10, 0)
	eleven := engine.NewClockTime(11, 0)
	noon := engine.NewClockTime(12, 0)

	assert.True(t, engine.RangesOverlap(nine, eleven, ten, noon))
	assert.True(t, engine.RangesOverlap(ten, eleven, nine, noon)) // containment

	// Touching ranges do not overlap: half-open semantics
	assert.False(t, engine.RangesOverlap(nine, ten, ten, eleven))
	assert.False(t, engine.RangesOverlap(eleven, noon, nine, ten))
}

// =============================================================================
// TIME ENTRY DERIVATION TESTS
// =============================================================================

func TestTimeEntry_WorkedHours(t *testing.T) {
	// GIVEN: 08:00-17:00 with a 45 minute lunch break
	// THEN: exactly 8.25 worked hours
	entry := &engine.TimeEntry{
		Start: engine.NewClockTime(8, 0),
		End:   engine.NewClockTime(17, 0),
		Breaks: []engine.BreakInterval{
			{Start: engine.NewClockTime(12, 0), End: engine.NewClockTime(12, 45)},
		},
	}
	assert.Equal(t, 495, entry.WorkedMinutes())
	assert.Equal(t, "8.25", entry.WorkedHours().String())
}

func TestTimeEntry_WorkedHours_MinuteExact(t *testing.T) {
	// 07:30-16:00 minus 30 minutes is exactly 8 hours
	entry := &engine.TimeEntry{
		Start: engine.NewClockTime(7, 30),
		End:   engine.NewClockTime(16, 0),
		Breaks: []engine.BreakInterval{
			{Start: engine.NewClockTime(9, 0), End: engine.NewClockTime(9, 30)},
		},
	}
	assert.True(t, entry.WorkedHours().Equal(decimal.NewFromInt(8)))
}

func TestTimeEntry_Overlaps(t *testing.T) {
	base := &engine.TimeEntry{
		EmployeeID: "emp-1",
		Date:       engine.NewDate(2024, time.June, 11),
		Start:      engine.NewClockTime(8, 0),
		End:        engine.NewClockTime(12, 0),
	}

	colliding := &engine.TimeEntry{
		EmployeeID: "emp-1",
		Date:       engine.NewDate(2024, time.June, 11),
		Start:      engine.NewClockTime(11, 0),
		End:        engine.NewClockTime(15, 0),
	}
	assert.True(t, base.Overlaps(colliding))

	// Touching on the boundary minute is not a collision
	touching := &engine.TimeEntry{
		EmployeeID: "emp-1",
		Date:       engine.NewDate(2024, time.June, 11),
		Start:      engine.NewClockTime(12, 0),
		End:        engine.NewClockTime(15, 0),
	}
	assert.False(t, base.Overlaps(touching))

	// Same minutes on another day, or logged by another employee
	otherDay := *colliding
	otherDay.Date = engine.NewDate(2024, time.June, 12)
	assert.False(t, base.Overlaps(&otherDay))

	otherEmployee := *colliding
	otherEmployee.EmployeeID = "emp-2"
	assert.False(t, base.Overlaps(&otherEmployee))
}

func TestHolidayRequest_Days(t *testing.T) {
	req := &engine.HolidayRequest{
		StartDate: engine.NewDate(2024, time.July, 1),
		EndDate:   engine.NewDate(2024, time.July, 14),
	}
	assert.Equal(t, 14, req.Days())
	assert.True(t, req.Covers(engine.NewDate(2024, time.July, 7)))
	assert.False(t, req.Covers(engine.NewDate(2024, time.July, 15)))
	assert.True(t, req.Intersects(engine.NewDate(2024, time.July, 14), engine.NewDate(2024, time.July, 20)))
	assert.False(t, req.Intersects(engine.NewDate(2024, time.July, 15), engine.NewDate(2024, time.July, 20)))
}
