package absence_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/timekeeping-engine/absence"
	"github.com/warp/timekeeping-engine/calendar"
	"github.com/warp/timekeeping-engine/engine"
	"github.com/warp/timekeeping-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var testNow = time.Date(2024, time.June, 12, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*absence.Service, *memory.Memory) {
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

	cal := calendar.New("ZH", store.Holidays(), nil)
	svc := absence.NewService(store, cal, nil).WithNow(func() time.Time { return testNow })
	return svc, store
}

func draftRequest(start, end, typeCode string) *engine.HolidayRequest {
	s, _ := engine.ParseDate(start)
	e, _ := engine.ParseDate(end)
	return &engine.HolidayRequest{
		EmployeeID: "emp-1",
		StartDate:  s,
		EndDate:    e,
		TypeCode:   typeCode,
	}
}

func approve(t *testing.T, store *memory.Memory, id engine.RequestID) {
	t.Helper()
	err := store.HolidayRequests().UpdateStatus(context.Background(), id,
		engine.StatusPending, engine.StatusApproved, "boss-1", testNow, "")
	require.NoError(t, err)
}

// =============================================================================
// SUBMISSION
// =============================================================================

func TestSubmit_ValidRequest(t *testing.T) {
	// GIVEN: Two summer weeks of paid vacation
	// WHEN: Submitting
	// THEN: Persisted as PENDING
	svc, _ := newTestService(t)

	req, err := svc.Submit(context.Background(),
		draftRequest("2024-07-01", "2024-07-14", engine.TypePaidVacation))
	require.NoError(t, err)
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, engine.StatusPending, req.Status)
	assert.Equal(t, 14, req.Days())
}

func TestSubmit_OverlapCarriesConflictContext(t *testing.T) {
	// GIVEN: An existing request July 1-5
	// WHEN: Submitting July 5-7 (inclusive ranges touch on the 5th)
	// THEN: Rejected; the error names the conflicting request's range and status
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Submit(ctx, draftRequest("2024-07-01", "2024-07-05", engine.TypePaidVacation))
	require.NoError(t, err)

	_, err = svc.Submit(ctx, draftRequest("2024-07-05", "2024-07-07", engine.TypeSickness))
	require.Error(t, err)

	var overlapErr *engine.HolidayOverlapError
	require.ErrorAs(t, err, &overlapErr)
	assert.Equal(t, first.ID, overlapErr.ConflictID)
	assert.Equal(t, "2024-07-01", overlapErr.Start.String())
	assert.Equal(t, "2024-07-05", overlapErr.End.String())
	assert.Equal(t, engine.TypePaidVacation, overlapErr.TypeCode)
	assert.Equal(t, engine.StatusPending, overlapErr.Status)
	assert.True(t, engine.IsConflict(err))
}

func TestSubmit_RejectedRequestDoesNotBlock(t *testing.T) {
	// A REJECTED request frees its date range for a new submission
	svc, store := newTestService(t)
	ctx := context.Background()

	first, err := svc.Submit(ctx, draftRequest("2024-07-01", "2024-07-05", engine.TypePaidVacation))
	require.NoError(t, err)
	err = store.HolidayRequests().UpdateStatus(ctx, first.ID,
		engine.StatusPending, engine.StatusRejected, "boss-1", testNow, "staffing")
	require.NoError(t, err)

	_, err = svc.Submit(ctx, draftRequest("2024-07-01", "2024-07-05", engine.TypePaidVacation))
	assert.NoError(t, err)
}

func TestSubmit_TooLong(t *testing.T) {
	// 31 inclusive calendar days exceeds the 30 day ceiling
	svc, _ := newTestService(t)

	_, err := svc.Submit(context.Background(),
		draftRequest("2024-07-01", "2024-07-31", engine.TypeUnpaidLeave))
	require.Error(t, err)

	var ruleErr *engine.RuleError
	assert.ErrorAs(t, err, &ruleErr)
	assert.True(t, engine.IsValidation(err))
}

func TestSubmit_ExactlyThirtyDaysAllowed(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Submit(context.Background(),
		draftRequest("2024-07-01", "2024-07-30", engine.TypeUnpaidLeave))
	assert.NoError(t, err)
}

func TestSubmit_StartInPast(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Submit(context.Background(),
		draftRequest("2024-06-10", "2024-06-14", engine.TypePaidVacation))
	require.Error(t, err)

	var dateErr *engine.DateRangeError
	assert.ErrorAs(t, err, &dateErr)
}

func TestSubmit_EndBeforeStart(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Submit(context.Background(),
		draftRequest("2024-07-14", "2024-07-01", engine.TypePaidVacation))
	require.Error(t, err)
	assert.True(t, engine.IsValidation(err))
}

func TestSubmit_UnknownType(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Submit(context.Background(),
		draftRequest("2024-07-01", "2024-07-05", "SABBATICAL"))
	require.Error(t, err)
	assert.True(t, engine.IsNotFound(err))
}

func TestSubmit_UnknownEmployee(t *testing.T) {
	svc, _ := newTestService(t)

	draft := draftRequest("2024-07-01", "2024-07-05", engine.TypePaidVacation)
	draft.EmployeeID = "emp-missing"

	_, err := svc.Submit(context.Background(), draft)
	require.Error(t, err)
	assert.True(t, engine.IsNotFound(err))
}

// =============================================================================
// VACATION BOOKKEEPING
// =============================================================================

func TestUsedVacationDays_WeekendsDontConsume(t *testing.T) {
	// GIVEN: An approved two-week vacation July 1-14 (10 working days)
	// THEN: Only the 10 working days consume allotment
	svc, store := newTestService(t)
	ctx := context.Background()

	req, err := svc.Submit(ctx, draftRequest("2024-07-01", "2024-07-14", engine.TypePaidVacation))
	require.NoError(t, err)
	approve(t, store, req.ID)

	used, err := svc.UsedVacationDays(ctx, "emp-1", 2024)
	require.NoError(t, err)
	assert.Equal(t, 10, used)

	remaining, err := svc.RemainingVacationDays(ctx, "emp-1", 2024)
	require.NoError(t, err)
	assert.Equal(t, "15", remaining.String())
}

func TestUsedVacationDays_HolidaysDontConsume(t *testing.T) {
	// The week around Bundesfeier (Thursday Aug 1) costs only 4 days
	svc, store := newTestService(t)
	ctx := context.Background()

	req, err := svc.Submit(ctx, draftRequest("2024-07-29", "2024-08-02", engine.TypePaidVacation))
	require.NoError(t, err)
	approve(t, store, req.ID)

	used, err := svc.UsedVacationDays(ctx, "emp-1", 2024)
	require.NoError(t, err)
	assert.Equal(t, 4, used)
}

func TestUsedVacationDays_PendingAndSicknessIgnored(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	// Pending vacation: not yet consumed
	_, err := svc.Submit(ctx, draftRequest("2024-07-01", "2024-07-05", engine.TypePaidVacation))
	require.NoError(t, err)

	// Approved sickness: not vacation
	sick, err := svc.Submit(ctx, draftRequest("2024-08-05", "2024-08-09", engine.TypeSickness))
	require.NoError(t, err)
	approve(t, store, sick.ID)

	used, err := svc.UsedVacationDays(ctx, "emp-1", 2024)
	require.NoError(t, err)
	assert.Equal(t, 0, used)
}

func TestUsedVacationDays_ClipsToYearBounds(t *testing.T) {
	// GIVEN: A vacation spanning New Year, approved
	// THEN: Each year is charged only its own share
	svc, store := newTestService(t)
	ctx := context.Background()

	// Dec 23 2024 (Mon) - Jan 3 2025 (Fri). 2024 share: Dec 23, 24, 27, 30, 31
	// (Dec 25/26 are holidays). 2025 share: Jan 3 (Jan 1 and 2 are holidays
	// in ZH).
	req, err := svc.Submit(ctx, draftRequest("2024-12-23", "2025-01-03", engine.TypePaidVacation))
	require.NoError(t, err)
	approve(t, store, req.ID)

	used2024, err := svc.UsedVacationDays(ctx, "emp-1", 2024)
	require.NoError(t, err)
	assert.Equal(t, 5, used2024)

	used2025, err := svc.UsedVacationDays(ctx, "emp-1", 2025)
	require.NoError(t, err)
	assert.Equal(t, 1, used2025)
}

func TestListByEmployee_NewestFirst(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, draftRequest("2024-07-01", "2024-07-05", engine.TypePaidVacation))
	require.NoError(t, err)
	_, err = svc.Submit(ctx, draftRequest("2024-08-05", "2024-08-09", engine.TypePaidVacation))
	require.NoError(t, err)

	requests, err := svc.ListByEmployee(ctx, "emp-1")
	require.NoError(t, err)
	assert.Len(t, requests, 2)
}
