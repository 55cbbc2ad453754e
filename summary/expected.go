/*
Package summary reconciles worked hours against expected hours.

PURPOSE:
  Computes what each day should have contributed (expected hours) and
  rolls actual entries up into daily, weekly, monthly and cumulative
  views. Positive deltas are overtime, negative deltas undertime; the two
  are tracked separately during aggregation and only netted in the
  top-level balance.

EXPECTED HOURS RULE:
  - 0 on Saturdays and Sundays
  - 0 on active work-free public holidays
  - otherwise contracted weekly hours / 5
  - when the day is covered by an APPROVED absence, the absence type's
    configured factor scales the standard workday instead (sick leave may
    expect 0, unpaid leave may keep the full expectation to track a
    deficit)

TOTALITY:
  Aggregations never fail on missing data. Days without entries simply
  contribute zero worked hours, so every summary is a total function over
  its input range.

SEE ALSO:
  - aggregator.go: the roll-up views
  - calendar: holiday classification
*/
package summary

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/warp/timekeeping-engine/calendar"
	"github.com/warp/timekeeping-engine/engine"
)

// ExpectedHours computes the contracted expectation for single days.
type ExpectedHours struct {
	cal   *calendar.Calendar
	types engine.HolidayTypeStore
}

func NewExpectedHours(cal *calendar.Calendar, types engine.HolidayTypeStore) *ExpectedHours {
	return &ExpectedHours{cal: cal, types: types}
}

// ForDate returns the standard expectation for a date: zero on weekends
// and work-free holidays, weekly/5 otherwise. Absence overrides are the
// aggregator's concern because they depend on the employee's requests.
func (e *ExpectedHours) ForDate(ctx context.Context, employee *engine.Employee, date engine.Date) (decimal.Decimal, error) {
	if date.IsWeekend() {
		return decimal.Zero, nil
	}
	holiday, err := e.cal.IsHoliday(ctx, date)
	if err != nil {
		return decimal.Zero, err
	}
	if holiday {
		return decimal.Zero, nil
	}
	return employee.StandardDailyHours(), nil
}

// factorFor resolves the expected-hours factor of an absence type.
// Unknown or inactive types fall back to factor 0 so a stale code never
// inflates the expectation.
func (e *ExpectedHours) factorFor(ctx context.Context, typeCode string) (decimal.Decimal, error) {
	t, err := e.types.Get(ctx, typeCode)
	if err != nil {
		return decimal.Zero, err
	}
	if t == nil || !t.Active {
		return decimal.Zero, nil
	}
	return t.ExpectedFactor, nil
}
