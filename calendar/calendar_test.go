package calendar_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/timekeeping-engine/calendar"
	"github.com/warp/timekeeping-engine/engine"
	"github.com/warp/timekeeping-engine/store/memory"
)

func newTestCalendar(t *testing.T, canton string) *calendar.Calendar {
	t.Helper()
	return calendar.New(canton, memory.New().Holidays(), nil)
}

// =============================================================================
// EASTER COMPUTATION
// =============================================================================

func TestEasterSunday_KnownDates(t *testing.T) {
	cases := map[int]string{
		2023: "2023-04-09",
		2024: "2024-03-31",
		2025: "2025-04-20",
		2026: "2026-04-05",
	}
	for year, want := range cases {
		assert.Equal(t, want, calendar.EasterSunday(year).String(), "easter %d", year)
	}
}

// =============================================================================
// GENERATION
// =============================================================================

func TestGenerate_Idempotent(t *testing.T) {
	// GIVEN: A fresh store
	// WHEN: Generating the same year twice
	// THEN: The first call creates rows, the second is a no-op
	cal := newTestCalendar(t, "ZH")
	ctx := context.Background()

	created, err := cal.Generate(ctx, 2024)
	require.NoError(t, err)
	assert.Greater(t, created, 0)

	again, err := cal.Generate(ctx, 2024)
	require.NoError(t, err)
	assert.Equal(t, 0, again)

	defs, err := cal.HolidaysForYear(ctx, 2024)
	require.NoError(t, err)
	assert.Len(t, defs, created)
}

func TestGenerate_MovableHolidays2024(t *testing.T) {
	cal := newTestCalendar(t, "ZH")
	ctx := context.Background()

	defs, err := cal.HolidaysForYear(ctx, 2024)
	require.NoError(t, err)

	byName := map[string]string{}
	for _, d := range defs {
		byName[d.Name] = d.Date.String()
	}

	// Easter 2024 is March 31
	assert.Equal(t, "2024-03-29", byName["Karfreitag"])
	assert.Equal(t, "2024-04-01", byName["Ostermontag"])
	assert.Equal(t, "2024-05-09", byName["Auffahrt"])
	assert.Equal(t, "2024-05-20", byName["Pfingstmontag"])
}

func TestGenerate_CantonFiltering(t *testing.T) {
	// Berchtoldstag applies in ZH but not in GE
	ctx := context.Background()

	zh, err := newTestCalendar(t, "ZH").IsHoliday(ctx, engine.NewDate(2024, time.January, 2))
	require.NoError(t, err)
	assert.True(t, zh)

	ge, err := newTestCalendar(t, "GE").IsHoliday(ctx, engine.NewDate(2024, time.January, 2))
	require.NoError(t, err)
	assert.False(t, ge)
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

func TestIsHoliday(t *testing.T) {
	cal := newTestCalendar(t, "ZH")
	ctx := context.Background()

	cases := []struct {
		date string
		want bool
	}{
		{"2024-01-01", true},  // Neujahr
		{"2024-04-01", true},  // Ostermontag
		{"2024-08-01", true},  // Bundesfeier
		{"2024-12-25", true},  // Weihnachten
		{"2024-06-12", false}, // ordinary Wednesday
		{"2024-08-02", false}, // day after Bundesfeier
	}
	for _, tc := range cases {
		d, err := engine.ParseDate(tc.date)
		require.NoError(t, err)
		got, err := cal.IsHoliday(ctx, d)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, tc.date)
	}
}

func TestWorkFreeDays_SpansYears(t *testing.T) {
	// A range over New Year touches two years; both are generated on demand
	cal := newTestCalendar(t, "ZH")
	ctx := context.Background()

	days, err := cal.WorkFreeDays(ctx,
		engine.NewDate(2024, time.December, 20),
		engine.NewDate(2025, time.January, 10))
	require.NoError(t, err)

	assert.Contains(t, days, "2024-12-25")
	assert.Contains(t, days, "2024-12-26")
	assert.Contains(t, days, "2025-01-01")
	assert.Contains(t, days, "2025-01-02") // Berchtoldstag in ZH
}

func TestWorkingDaysBetween(t *testing.T) {
	cal := newTestCalendar(t, "ZH")
	ctx := context.Background()

	// Plain Monday-Friday, no holidays
	days, err := cal.WorkingDaysBetween(ctx,
		engine.NewDate(2024, time.July, 1),
		engine.NewDate(2024, time.July, 5))
	require.NoError(t, err)
	assert.Equal(t, 5, days)

	// Full week: weekend does not count
	days, err = cal.WorkingDaysBetween(ctx,
		engine.NewDate(2024, time.July, 1),
		engine.NewDate(2024, time.July, 7))
	require.NoError(t, err)
	assert.Equal(t, 5, days)

	// Week containing Bundesfeier (Thursday Aug 1): one day less
	days, err = cal.WorkingDaysBetween(ctx,
		engine.NewDate(2024, time.July, 29),
		engine.NewDate(2024, time.August, 2))
	require.NoError(t, err)
	assert.Equal(t, 4, days)
}

func TestWorkingDaysBetween_InvertedRange(t *testing.T) {
	cal := newTestCalendar(t, "ZH")
	days, err := cal.WorkingDaysBetween(context.Background(),
		engine.NewDate(2024, time.July, 5),
		engine.NewDate(2024, time.July, 1))
	require.NoError(t, err)
	assert.Equal(t, 0, days)
}
