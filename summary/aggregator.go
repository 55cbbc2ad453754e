package summary

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/timekeeping-engine/calendar"
	"github.com/warp/timekeeping-engine/engine"
)

// =============================================================================
// RECORDS
// =============================================================================

// DayRecord is one reconciled day: hours logged, hours expected and the
// resulting delta. Absence coverage is flagged, never merged into worked
// hours. Filler days pad monthly grids to full weeks and carry no values.
type DayRecord struct {
	Date     engine.Date
	Worked   decimal.Decimal
	Expected decimal.Decimal
	Delta    decimal.Decimal

	Weekend     bool
	Holiday     bool
	HolidayName string

	AbsenceType   string
	AbsenceStatus engine.ApprovalStatus

	Entries int
	Filler  bool
}

// WeekRecord aggregates one ISO week. Overtime and Undertime are kept
// separate; only Delta nets them.
type WeekRecord struct {
	Year int
	Week int
	Days []DayRecord

	Worked    decimal.Decimal
	Expected  decimal.Decimal
	Delta     decimal.Decimal
	Overtime  decimal.Decimal
	Undertime decimal.Decimal
}

// MonthRecord aggregates one calendar month. Days is a full-week grid:
// leading and trailing days outside the month are present but flagged as
// filler and excluded from the totals.
type MonthRecord struct {
	Year  int
	Month time.Month
	Days  []DayRecord

	Worked    decimal.Decimal
	Expected  decimal.Decimal
	Delta     decimal.Decimal
	Overtime  decimal.Decimal
	Undertime decimal.Decimal
}

// =============================================================================
// AGGREGATOR
// =============================================================================

// Aggregator rolls persisted entries up against expected hours. All its
// methods are pure reads over a bounded date range and safe to run
// concurrently.
type Aggregator struct {
	store    engine.Stores
	cal      *calendar.Calendar
	expected *ExpectedHours
	now      func() time.Time
}

func NewAggregator(store engine.Stores, cal *calendar.Calendar, expected *ExpectedHours) *Aggregator {
	return &Aggregator{store: store, cal: cal, expected: expected, now: time.Now}
}

// WithNow fixes the aggregator's clock. Test hook.
func (a *Aggregator) WithNow(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

// DailySummary returns one DayRecord per date in [from, to], in order.
// Missing entries and holidays contribute zero; the summary never fails
// on absent data.
func (a *Aggregator) DailySummary(ctx context.Context, employeeID engine.EmployeeID, from, to engine.Date) ([]DayRecord, error) {
	if to.Before(from) {
		return nil, &engine.DateRangeError{Field: "to", Value: to, Reason: "before from"}
	}
	employee, err := a.store.Employees().Get(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if employee == nil {
		return nil, &engine.NotFoundError{Kind: "employee", ID: string(employeeID)}
	}

	entries, err := a.store.TimeEntries().ListByEmployeeRange(ctx, employeeID, from, to)
	if err != nil {
		return nil, err
	}
	holidays, err := a.cal.WorkFreeDays(ctx, from, to)
	if err != nil {
		return nil, err
	}
	absences, err := a.store.HolidayRequests().ListActiveByEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	workedByDay := make(map[string]decimal.Decimal)
	countByDay := make(map[string]int)
	for _, e := range entries {
		key := e.Date.String()
		workedByDay[key] = workedByDay[key].Add(e.WorkedHours())
		countByDay[key]++
	}

	var records []DayRecord
	for d := from; d.BeforeOrEqual(to); d = d.AddDays(1) {
		rec, err := a.dayRecord(ctx, employee, d, workedByDay, countByDay, holidays, absences)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (a *Aggregator) dayRecord(
	ctx context.Context,
	employee *engine.Employee,
	d engine.Date,
	workedByDay map[string]decimal.Decimal,
	countByDay map[string]int,
	holidays map[string]engine.HolidayDefinition,
	absences []*engine.HolidayRequest,
) (DayRecord, error) {
	key := d.String()
	rec := DayRecord{
		Date:    d,
		Worked:  workedByDay[key],
		Weekend: d.IsWeekend(),
		Entries: countByDay[key],
	}
	if h, ok := holidays[key]; ok {
		rec.Holiday = true
		rec.HolidayName = h.Name
	}

	// Flag absence coverage. Pending absences are flagged but do not
	// change the expectation; only approved ones override it.
	var approvedAbsence *engine.HolidayRequest
	for _, r := range absences {
		if !r.Covers(d) {
			continue
		}
		rec.AbsenceType = r.TypeCode
		rec.AbsenceStatus = r.Status
		if r.Status == engine.StatusApproved {
			approvedAbsence = r
			break
		}
	}

	// Standard expectation first; an approved absence scales it by the
	// type's factor. Weekends and holidays already expect zero, so the
	// factor never resurrects them.
	expected, err := a.expected.ForDate(ctx, employee, d)
	if err != nil {
		return DayRecord{}, err
	}
	if approvedAbsence != nil {
		factor, err := a.expected.factorFor(ctx, approvedAbsence.TypeCode)
		if err != nil {
			return DayRecord{}, err
		}
		expected = expected.Mul(factor)
	}
	rec.Expected = expected

	rec.Delta = rec.Worked.Sub(rec.Expected)
	return rec, nil
}

// WeeklySummary aggregates one ISO week (Monday start).
func (a *Aggregator) WeeklySummary(ctx context.Context, employeeID engine.EmployeeID, year, week int) (*WeekRecord, error) {
	monday := engine.StartOfISOWeek(year, week)
	days, err := a.DailySummary(ctx, employeeID, monday, monday.AddDays(6))
	if err != nil {
		return nil, err
	}
	rec := &WeekRecord{Year: year, Week: week, Days: days}
	rec.Worked, rec.Expected, rec.Delta, rec.Overtime, rec.Undertime = totals(days)
	return rec, nil
}

// MonthlySummary returns twelve month records for the year. Each month's
// grid is padded to full Monday-Sunday weeks; padding days are filler and
// excluded from the totals.
func (a *Aggregator) MonthlySummary(ctx context.Context, employeeID engine.EmployeeID, year int) ([]MonthRecord, error) {
	var months []MonthRecord
	for m := time.January; m <= time.December; m++ {
		first := engine.StartOfMonth(year, m)
		last := engine.EndOfMonth(year, m)

		days, err := a.DailySummary(ctx, employeeID, first, last)
		if err != nil {
			return nil, err
		}

		rec := MonthRecord{Year: year, Month: m}
		rec.Worked, rec.Expected, rec.Delta, rec.Overtime, rec.Undertime = totals(days)

		for d := startOfWeek(first); d.Before(first); d = d.AddDays(1) {
			rec.Days = append(rec.Days, DayRecord{Date: d, Filler: true})
		}
		rec.Days = append(rec.Days, days...)
		for d := last.AddDays(1); d.Weekday() != time.Monday; d = d.AddDays(1) {
			rec.Days = append(rec.Days, DayRecord{Date: d, Filler: true})
		}

		months = append(months, rec)
	}
	return months, nil
}

// CumulativeBalance nets all deltas from sinceDate through today. This is
// the only place overtime and undertime cancel out.
func (a *Aggregator) CumulativeBalance(ctx context.Context, employeeID engine.EmployeeID, since engine.Date) (decimal.Decimal, error) {
	today := engine.DateOf(a.now())
	if today.Before(since) {
		return decimal.Zero, nil
	}
	days, err := a.DailySummary(ctx, employeeID, since, today)
	if err != nil {
		return decimal.Zero, err
	}
	balance := decimal.Zero
	for _, d := range days {
		balance = balance.Add(d.Delta)
	}
	return balance, nil
}

// totals sums a day slice, skipping filler. Overtime collects positive
// deltas, undertime the magnitude of negative ones; they are not netted.
func totals(days []DayRecord) (worked, expected, delta, overtime, undertime decimal.Decimal) {
	for _, d := range days {
		if d.Filler {
			continue
		}
		worked = worked.Add(d.Worked)
		expected = expected.Add(d.Expected)
		delta = delta.Add(d.Delta)
		if d.Delta.IsPositive() {
			overtime = overtime.Add(d.Delta)
		} else if d.Delta.IsNegative() {
			undertime = undertime.Add(d.Delta.Neg())
		}
	}
	return worked, expected, delta, overtime, undertime
}

// startOfWeek returns the Monday on or before d.
func startOfWeek(d engine.Date) engine.Date {
	for d.Weekday() != time.Monday {
		d = d.AddDays(-1)
	}
	return d
}
