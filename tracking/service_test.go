package tracking_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/timekeeping-engine/calendar"
	"github.com/warp/timekeeping-engine/engine"
	"github.com/warp/timekeeping-engine/store/memory"
	"github.com/warp/timekeeping-engine/tracking"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// testNow is a fixed Wednesday so date-window checks are deterministic.
var testNow = time.Date(2024, time.June, 12, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*tracking.Service, *memory.Memory) {
	t.Helper()
	store := memory.New()
	store.PutEmployee(&engine.Employee{
		ID:            "emp-1",
		Name:          "Muster Hans",
		WeeklyHours:   decimal.RequireFromString("42.5"),
		HourlyRate:    decimal.RequireFromString("45"),
		ContractStart: engine.NewDate(2020, time.January, 1),
		VacationDays:  decimal.NewFromInt(25),
	})
	store.PutProject(&engine.Project{ID: "proj-1", Name: "Neubau Seestrasse", Active: true})

	cal := calendar.New("ZH", store.Holidays(), nil)
	svc := tracking.NewService(store, cal, nil).WithNow(func() time.Time { return testNow })
	return svc, store
}

func draftEntry(date string, start, end engine.ClockTime) *engine.TimeEntry {
	d, _ := engine.ParseDate(date)
	return &engine.TimeEntry{
		EmployeeID: "emp-1",
		ProjectID:  "proj-1",
		Date:       d,
		Start:      start,
		End:        end,
		Title:      "Schalung Erdgeschoss",
	}
}

// =============================================================================
// CREATE
// =============================================================================

func TestCreate_ValidEntry(t *testing.T) {
	// GIVEN: 08:00-17:00 with a 45 minute lunch break
	// WHEN: Submitting the entry
	// THEN: It is persisted as PENDING with 8.25 derived hours
	svc, _ := newTestService(t)
	ctx := context.Background()

	draft := draftEntry("2024-06-11", engine.NewClockTime(8, 0), engine.NewClockTime(17, 0))
	draft.Breaks = []engine.BreakInterval{
		{Start: engine.NewClockTime(12, 0), End: engine.NewClockTime(12, 45)},
	}

	entry, err := svc.Create(ctx, draft)
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, engine.StatusPending, entry.Status)
	assert.Equal(t, "8.25", entry.WorkedHours().String())
	assert.Equal(t, testNow, entry.CreatedAt)
}

func TestCreate_OverlapRejected(t *testing.T) {
	// GIVEN: An existing 08:00-17:00 entry
	// WHEN: Submitting 16:00-18:00 on the same date
	// THEN: Rejected with an OverlapError naming the existing entry
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, draftEntry("2024-06-11", engine.NewClockTime(8, 0), engine.NewClockTime(17, 0)))
	require.NoError(t, err)

	_, err = svc.Create(ctx, draftEntry("2024-06-11", engine.NewClockTime(16, 0), engine.NewClockTime(18, 0)))
	require.Error(t, err)

	var overlapErr *engine.OverlapError
	require.ErrorAs(t, err, &overlapErr)
	assert.Equal(t, first.ID, overlapErr.ExistingID)
	assert.True(t, engine.IsConflict(err))
}

func TestCreate_TouchingEntriesAllowed(t *testing.T) {
	// 08:00-12:00 and 12:00-17:00 share a boundary minute but do not overlap
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, draftEntry("2024-06-11", engine.NewClockTime(8, 0), engine.NewClockTime(12, 0)))
	require.NoError(t, err)

	_, err = svc.Create(ctx, draftEntry("2024-06-11", engine.NewClockTime(12, 0), engine.NewClockTime(17, 0)))
	assert.NoError(t, err)
}

func TestCreate_HolidayLookupInsideTransaction(t *testing.T) {
	// GIVEN: A fresh store whose holiday year has not been generated yet
	// WHEN: Creating an entry on Tag der Arbeit without the surcharge flag,
	//       which makes the advisory check look the holiday up while the
	//       insert transaction is open
	// THEN: The call returns and the entry is persisted (the lookup must
	//       read through the transaction's store view, not the outer store)
	svc, _ := newTestService(t)

	var entry *engine.TimeEntry
	var err error
	done := make(chan struct{})
	go func() {
		defer close(done)
		entry, err = svc.Create(context.Background(),
			draftEntry("2024-05-01", engine.NewClockTime(8, 0), engine.NewClockTime(17, 0)))
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Create did not return: holiday lookup blocked while the insert transaction held the store lock")
	}
	require.NoError(t, err)
	assert.Equal(t, engine.StatusPending, entry.Status)
}

func TestCreate_SameTimeDifferentDaysAllowed(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, draftEntry("2024-06-11", engine.NewClockTime(8, 0), engine.NewClockTime(17, 0)))
	require.NoError(t, err)

	_, err = svc.Create(ctx, draftEntry("2024-06-12", engine.NewClockTime(8, 0), engine.NewClockTime(17, 0)))
	assert.NoError(t, err)
}

// =============================================================================
// FIELD AND RANGE VALIDATION
// =============================================================================

func TestCreate_MissingTitle(t *testing.T) {
	svc, _ := newTestService(t)

	draft := draftEntry("2024-06-11", engine.NewClockTime(8, 0), engine.NewClockTime(17, 0))
	draft.Title = "   "

	_, err := svc.Create(context.Background(), draft)
	require.Error(t, err)

	var missing *engine.MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "title", missing.Field)
	assert.True(t, engine.IsValidation(err))
}

func TestCreate_UnknownProject(t *testing.T) {
	svc, _ := newTestService(t)

	draft := draftEntry("2024-06-11", engine.NewClockTime(8, 0), engine.NewClockTime(17, 0))
	draft.ProjectID = "proj-missing"

	_, err := svc.Create(context.Background(), draft)
	require.Error(t, err)
	assert.True(t, engine.IsNotFound(err))
}

func TestCreate_StartNotBeforeEnd(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(),
		draftEntry("2024-06-11", engine.NewClockTime(17, 0), engine.NewClockTime(8, 0)))
	require.Error(t, err)

	var rangeErr *engine.TimeRangeError
	assert.ErrorAs(t, err, &rangeErr)
}

func TestCreate_TooShort(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(),
		draftEntry("2024-06-11", engine.NewClockTime(8, 0), engine.NewClockTime(8, 10)))
	require.Error(t, err)
	assert.True(t, engine.IsValidation(err))
}

func TestCreate_DateWindow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// More than 365 days before the fixed testNow
	_, err := svc.Create(ctx, draftEntry("2023-01-01", engine.NewClockTime(8, 0), engine.NewClockTime(17, 0)))
	require.Error(t, err)
	var dateErr *engine.DateRangeError
	assert.ErrorAs(t, err, &dateErr)

	// More than 30 days ahead
	_, err = svc.Create(ctx, draftEntry("2024-08-01", engine.NewClockTime(8, 0), engine.NewClockTime(17, 0)))
	require.Error(t, err)
	assert.ErrorAs(t, err, &dateErr)

	// Exactly 30 days ahead is fine
	_, err = svc.Create(ctx, draftEntry("2024-07-12", engine.NewClockTime(8, 0), engine.NewClockTime(17, 0)))
	assert.NoError(t, err)
}

func TestCreate_BeforeContractStart(t *testing.T) {
	svc, store := newTestService(t)
	store.PutEmployee(&engine.Employee{
		ID:            "emp-new",
		Name:          "Neuer Mitarbeiter",
		WeeklyHours:   decimal.RequireFromString("42.5"),
		HourlyRate:    decimal.RequireFromString("40"),
		ContractStart: engine.NewDate(2024, time.June, 10),
		VacationDays:  decimal.NewFromInt(25),
	})

	draft := draftEntry("2024-06-07", engine.NewClockTime(8, 0), engine.NewClockTime(17, 0))
	draft.EmployeeID = "emp-new"

	_, err := svc.Create(context.Background(), draft)
	require.Error(t, err)
	var dateErr *engine.DateRangeError
	assert.ErrorAs(t, err, &dateErr)
}

// =============================================================================
// BREAK VALIDATION
// =============================================================================

func TestCreate_BreakOutsideWindow(t *testing.T) {
	svc, _ := newTestService(t)

	draft := draftEntry("2024-06-11", engine.NewClockTime(8, 0), engine.NewClockTime(12, 0))
	draft.Breaks = []engine.BreakInterval{
		{Start: engine.NewClockTime(12, 30), End: engine.NewClockTime(13, 0)},
	}

	_, err := svc.Create(context.Background(), draft)
	require.Error(t, err)
	var breakErr *engine.BreakError
	require.ErrorAs(t, err, &breakErr)
	assert.Equal(t, 0, breakErr.Index)
}

func TestCreate_BreakTooShort(t *testing.T) {
	svc, _ := newTestService(t)

	draft := draftEntry("2024-06-11", engine.NewClockTime(8, 0), engine.NewClockTime(17, 0))
	draft.Breaks = []engine.BreakInterval{
		{Start: engine.NewClockTime(12, 0), End: engine.NewClockTime(12, 10)},
	}

	_, err := svc.Create(context.Background(), draft)
	require.Error(t, err)
	assert.True(t, engine.IsValidation(err))
}

func TestCreate_OverlappingBreaks(t *testing.T) {
	svc, _ := newTestService(t)

	draft := draftEntry("2024-06-11", engine.NewClockTime(8, 0), engine.NewClockTime(17, 0))
	draft.Breaks = []engine.BreakInterval{
		{Start: engine.NewClockTime(12, 0), End: engine.NewClockTime(13, 0)},
		{Start: engine.NewClockTime(12, 30), End: engine.NewClockTime(13, 30)},
	}

	_, err := svc.Create(context.Background(), draft)
	require.Error(t, err)
	var breakErr *engine.BreakError
	require.ErrorAs(t, err, &breakErr)
	assert.Equal(t, 1, breakErr.Index)
}

func TestCreate_BreaksConsumeWholeWindow(t *testing.T) {
	// Two 2 hour breaks inside a 4 hour window leave nothing worked
	svc, _ := newTestService(t)

	draft := draftEntry("2024-06-11", engine.NewClockTime(8, 0), engine.NewClockTime(12, 0))
	draft.Breaks = []engine.BreakInterval{
		{Start: engine.NewClockTime(8, 0), End: engine.NewClockTime(10, 0)},
		{Start: engine.NewClockTime(10, 0), End: engine.NewClockTime(12, 0)},
	}

	_, err := svc.Create(context.Background(), draft)
	require.Error(t, err)
	var breakErr *engine.BreakError
	assert.ErrorAs(t, err, &breakErr)
}

// =============================================================================
// UPDATE
// =============================================================================

func TestUpdate_DoesNotCollideWithSelf(t *testing.T) {
	// GIVEN: A persisted 08:00-17:00 entry
	// WHEN: Updating it to 08:30-17:00
	// THEN: The old version of itself is not an overlap conflict
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, draftEntry("2024-06-11", engine.NewClockTime(8, 0), engine.NewClockTime(17, 0)))
	require.NoError(t, err)

	updated := draftEntry("2024-06-11", engine.NewClockTime(8, 30), engine.NewClockTime(17, 0))
	updated.ID = created.ID

	result, err := svc.Update(ctx, updated)
	require.NoError(t, err)
	assert.Equal(t, engine.NewClockTime(8, 30), result.Start)
	assert.Equal(t, engine.StatusPending, result.Status)
	assert.Equal(t, created.CreatedAt, result.CreatedAt)
}

func TestUpdate_StillChecksOtherEntries(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, draftEntry("2024-06-11", engine.NewClockTime(8, 0), engine.NewClockTime(12, 0)))
	require.NoError(t, err)
	second, err := svc.Create(ctx, draftEntry("2024-06-11", engine.NewClockTime(13, 0), engine.NewClockTime(17, 0)))
	require.NoError(t, err)

	moved := draftEntry("2024-06-11", engine.NewClockTime(11, 0), engine.NewClockTime(15, 0))
	moved.ID = second.ID

	_, err = svc.Update(ctx, moved)
	require.Error(t, err)
	assert.True(t, engine.IsConflict(err))
}

func TestUpdate_FinalizedEntryRejected(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, draftEntry("2024-06-11", engine.NewClockTime(8, 0), engine.NewClockTime(17, 0)))
	require.NoError(t, err)

	err = store.TimeEntries().UpdateStatus(ctx, created.ID,
		engine.StatusPending, engine.StatusApproved, "boss-1", testNow, "")
	require.NoError(t, err)

	changed := draftEntry("2024-06-11", engine.NewClockTime(9, 0), engine.NewClockTime(17, 0))
	changed.ID = created.ID

	_, err = svc.Update(ctx, changed)
	assert.ErrorIs(t, err, engine.ErrAlreadyFinalized)
}

func TestUpdate_UnknownEntry(t *testing.T) {
	svc, _ := newTestService(t)

	ghost := draftEntry("2024-06-11", engine.NewClockTime(8, 0), engine.NewClockTime(17, 0))
	ghost.ID = "entry-missing"

	_, err := svc.Update(context.Background(), ghost)
	require.Error(t, err)
	assert.True(t, engine.IsNotFound(err))
}

// =============================================================================
// LISTING
// =============================================================================

func TestListRange_OrderedByDateThenStart(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, draftEntry("2024-06-11", engine.NewClockTime(13, 0), engine.NewClockTime(17, 0)))
	require.NoError(t, err)
	_, err = svc.Create(ctx, draftEntry("2024-06-11", engine.NewClockTime(8, 0), engine.NewClockTime(12, 0)))
	require.NoError(t, err)
	_, err = svc.Create(ctx, draftEntry("2024-06-10", engine.NewClockTime(8, 0), engine.NewClockTime(17, 0)))
	require.NoError(t, err)

	entries, err := svc.ListRange(ctx, "emp-1",
		engine.NewDate(2024, time.June, 10), engine.NewDate(2024, time.June, 16))
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "2024-06-10", entries[0].Date.String())
	assert.Equal(t, engine.NewClockTime(8, 0), entries[1].Start)
	assert.Equal(t, engine.NewClockTime(13, 0), entries[2].Start)
}

func TestListRange_InvertedRange(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ListRange(context.Background(), "emp-1",
		engine.NewDate(2024, time.June, 16), engine.NewDate(2024, time.June, 10))
	require.Error(t, err)
	var dateErr *engine.DateRangeError
	assert.ErrorAs(t, err, &dateErr)
}
