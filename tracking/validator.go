/*
Package tracking validates and records time entries.

PURPOSE:
  Guards every time entry before it is persisted. Validation runs a fixed
  sequence of checks and short-circuits on the first violated rule with a
  typed error; advisory findings (weekend work without the weekend
  surcharge flag, a manually keyed hours value far from the derived one)
  are logged, never rejected.

CHECK ORDER:
  1. Required fields present
  2. Employee and project exist; date not before contract start
  3. Date within [today-365, today+30]
  4. Start before end, duration between 15 minutes and 24 hours
  5. No overlap with an existing entry (create only)
  6. Breaks inside the window, 15-240 minutes, pairwise disjoint,
     never the whole window
  7. Surcharge flag advisories (soft)
  8. Derived hours in [0, 24]; manual-value discrepancy advisory (soft)

ATOMICITY:
  The overlap check reads existing rows for the same employee and date.
  Service.Create runs validation and the insert inside one store
  transaction so two concurrent submissions cannot both pass check 5.

SEE ALSO:
  - engine/errors.go: the error kinds raised here
  - service.go: transaction boundary around validate-then-insert
*/
package tracking

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/warp/timekeeping-engine/calendar"
	"github.com/warp/timekeeping-engine/engine"
)

const (
	// Entry duration bounds.
	minEntryMinutes = 15
	maxEntryMinutes = 24 * 60

	// Break duration bounds.
	minBreakMinutes = 15
	maxBreakMinutes = 240

	// Submission window around today.
	maxDaysInPast   = 365
	maxDaysInFuture = 30

	// Manual hours discrepancy worth flagging, in minutes.
	reportedHoursToleranceMin = 30
)

// Validator checks a single proposed time entry against the business rules.
// It holds no state beyond its collaborators and may be rebuilt per call;
// Service does exactly that with transaction-scoped stores.
type Validator struct {
	stores engine.Stores
	cal    *calendar.Calendar
	log    *logrus.Logger
	now    func() time.Time
}

func NewValidator(stores engine.Stores, cal *calendar.Calendar, log *logrus.Logger) *Validator {
	if log == nil {
		log = logrus.New()
	}
	return &Validator{stores: stores, cal: cal, log: log, now: time.Now}
}

// WithNow fixes the validator's clock. Test hook.
func (v *Validator) WithNow(now func() time.Time) *Validator {
	v.now = now
	return v
}

// Validate runs all checks in order and returns the first violated rule.
// isUpdate relaxes the overlap check so an entry does not collide with the
// version of itself it replaces.
func (v *Validator) Validate(ctx context.Context, draft *engine.TimeEntry, isUpdate bool) error {
	if err := v.checkRequired(draft); err != nil {
		return err
	}
	employee, err := v.checkReferences(ctx, draft)
	if err != nil {
		return err
	}
	if err := v.checkDateWindow(draft); err != nil {
		return err
	}
	if err := v.checkTimeRange(draft); err != nil {
		return err
	}
	if !isUpdate {
		if err := v.checkOverlap(ctx, draft); err != nil {
			return err
		}
	} else if err := v.checkOverlapExcludingSelf(ctx, draft); err != nil {
		return err
	}
	if err := v.checkBreaks(draft); err != nil {
		return err
	}
	if err := v.adviseSurcharges(ctx, draft); err != nil {
		return err
	}
	if err := v.checkDerivedHours(draft, employee); err != nil {
		return err
	}
	return nil
}

// 1. Required fields
func (v *Validator) checkRequired(draft *engine.TimeEntry) error {
	switch {
	case draft.EmployeeID == "":
		return &engine.MissingFieldError{Field: "employeeId"}
	case draft.ProjectID == "":
		return &engine.MissingFieldError{Field: "projectId"}
	case draft.Date.IsZero():
		return &engine.MissingFieldError{Field: "date"}
	case draft.Start == 0 && draft.End == 0:
		return &engine.MissingFieldError{Field: "start/end"}
	case isBlank(draft.Title):
		return &engine.MissingFieldError{Field: "title"}
	}
	return nil
}

// 2. References exist, date not before contract start
func (v *Validator) checkReferences(ctx context.Context, draft *engine.TimeEntry) (*engine.Employee, error) {
	employee, err := v.stores.Employees().Get(ctx, draft.EmployeeID)
	if err != nil {
		return nil, err
	}
	if employee == nil {
		return nil, &engine.NotFoundError{Kind: "employee", ID: string(draft.EmployeeID)}
	}
	project, err := v.stores.Projects().Get(ctx, draft.ProjectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, &engine.NotFoundError{Kind: "project", ID: string(draft.ProjectID)}
	}
	if draft.Date.Before(employee.ContractStart) {
		return nil, &engine.DateRangeError{
			Field:  "date",
			Value:  draft.Date,
			Reason: "before contractual start " + employee.ContractStart.String(),
		}
	}
	return employee, nil
}

// 3. Date within the submission window
func (v *Validator) checkDateWindow(draft *engine.TimeEntry) error {
	today := engine.DateOf(v.now())
	earliest := today.AddDays(-maxDaysInPast)
	latest := today.AddDays(maxDaysInFuture)
	if draft.Date.Before(earliest) {
		return &engine.DateRangeError{Field: "date", Value: draft.Date, Reason: "more than 365 days in the past"}
	}
	if draft.Date.After(latest) {
		return &engine.DateRangeError{Field: "date", Value: draft.Date, Reason: "more than 30 days in the future"}
	}
	return nil
}

// 4. Time range and duration bounds
func (v *Validator) checkTimeRange(draft *engine.TimeEntry) error {
	if !draft.Start.Valid() || !draft.End.Valid() {
		return &engine.TimeRangeError{Start: draft.Start, End: draft.End, Reason: "outside 00:00-24:00"}
	}
	if draft.Start >= draft.End {
		return &engine.TimeRangeError{Start: draft.Start, End: draft.End, Reason: "start must be before end"}
	}
	dur := draft.DurationMinutes()
	if dur < minEntryMinutes {
		return &engine.TimeRangeError{Start: draft.Start, End: draft.End, Reason: "shorter than 15 minutes"}
	}
	if dur > maxEntryMinutes {
		return &engine.TimeRangeError{Start: draft.Start, End: draft.End, Reason: "longer than 24 hours"}
	}
	return nil
}

// 5. Overlap against existing entries (create)
func (v *Validator) checkOverlap(ctx context.Context, draft *engine.TimeEntry) error {
	return v.overlap(ctx, draft, "")
}

// 5b. Overlap for updates: the replaced version of the entry is exempt.
func (v *Validator) checkOverlapExcludingSelf(ctx context.Context, draft *engine.TimeEntry) error {
	return v.overlap(ctx, draft, draft.ID)
}

func (v *Validator) overlap(ctx context.Context, draft *engine.TimeEntry, exclude engine.EntryID) error {
	existing, err := v.stores.TimeEntries().ListByEmployeeDate(ctx, draft.EmployeeID, draft.Date)
	if err != nil {
		return err
	}
	for _, e := range existing {
		if exclude != "" && e.ID == exclude {
			continue
		}
		if draft.Overlaps(e) {
			return &engine.OverlapError{
				ExistingID: e.ID,
				Date:       e.Date,
				Start:      e.Start,
				End:        e.End,
			}
		}
	}
	return nil
}

// 6. Break placement and duration
func (v *Validator) checkBreaks(draft *engine.TimeEntry) error {
	totalBreak := 0
	for i, b := range draft.Breaks {
		if b.Start >= b.End {
			return &engine.BreakError{Index: i, Break: b, Reason: "start must be before end"}
		}
		if b.Start < draft.Start || b.End > draft.End {
			return &engine.BreakError{Index: i, Break: b, Reason: "outside entry time range"}
		}
		if b.Minutes() < minBreakMinutes {
			return &engine.BreakError{Index: i, Break: b, Reason: "shorter than 15 minutes"}
		}
		if b.Minutes() > maxBreakMinutes {
			return &engine.BreakError{Index: i, Break: b, Reason: "longer than 240 minutes"}
		}
		for j := 0; j < i; j++ {
			other := draft.Breaks[j]
			if engine.RangesOverlap(b.Start, b.End, other.Start, other.End) {
				return &engine.BreakError{Index: i, Break: b, Reason: "overlaps another break"}
			}
		}
		totalBreak += b.Minutes()
	}
	if len(draft.Breaks) > 0 && totalBreak >= draft.DurationMinutes() {
		return &engine.BreakError{
			Index:  len(draft.Breaks) - 1,
			Break:  draft.Breaks[len(draft.Breaks)-1],
			Reason: "breaks consume the entire work window",
		}
	}
	return nil
}

// 7. Surcharge advisories. Weekend or holiday work without the matching
// flag is a business observation, not a rejection.
func (v *Validator) adviseSurcharges(ctx context.Context, draft *engine.TimeEntry) error {
	if draft.Date.IsWeekend() && !draft.WeekendSurcharge {
		v.log.WithFields(logrus.Fields{
			"employee": draft.EmployeeID,
			"date":     draft.Date.String(),
		}).Warn("weekend entry without weekend surcharge flag")
	}
	if v.cal != nil {
		holiday, err := v.cal.IsHoliday(ctx, draft.Date)
		if err != nil {
			return err
		}
		if holiday && !draft.HolidaySurcharge {
			v.log.WithFields(logrus.Fields{
				"employee": draft.EmployeeID,
				"date":     draft.Date.String(),
			}).Warn("holiday entry without holiday surcharge flag")
		}
	}
	return nil
}

// 8. Derived hours bounds; manual value discrepancy advisory
func (v *Validator) checkDerivedHours(draft *engine.TimeEntry, employee *engine.Employee) error {
	worked := draft.WorkedMinutes()
	if worked < 0 {
		return &engine.HoursError{Minutes: worked, Reason: "negative after subtracting breaks"}
	}
	if worked > maxEntryMinutes {
		return &engine.HoursError{Minutes: worked, Reason: "exceeds 24 hours"}
	}
	if draft.ReportedHours != nil {
		derived := draft.WorkedHours()
		diffMinutes := draft.ReportedHours.Sub(derived).Abs().Mul(decimal.NewFromInt(60))
		if diffMinutes.GreaterThanOrEqual(decimal.NewFromInt(reportedHoursToleranceMin)) {
			v.log.WithFields(logrus.Fields{
				"employee": draft.EmployeeID,
				"date":     draft.Date.String(),
				"reported": draft.ReportedHours.String(),
				"derived":  derived.String(),
			}).Warn("reported hours differ from derived hours by 30 minutes or more")
		}
	}
	return nil
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
