/*
Package absence validates and records vacation and absence requests.

PURPOSE:
  Guards absence requests before persistence and computes vacation-day
  consumption. A request spans an inclusive date range; two requests of
  the same employee conflict when their ranges touch on any calendar day
  and both are still PENDING or APPROVED.

CHECK ORDER:
  1. Required fields present
  2. Start not after end
  3. Start not in the past relative to submission
  4. Employee exists; start not before contractual start
  5. Holiday type exists and is active
  6. Inclusive duration at most 30 calendar days
  7. No overlap with an existing PENDING or APPROVED request

On overlap the error carries the conflicting request's own range, type and
status for caller display.

SEE ALSO:
  - tracking: the same validate-then-insert transaction pattern for entries
  - summary: consumes approved requests for expected-hours overrides
*/
package absence

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warp/timekeeping-engine/engine"
)

// maxRequestDays is the inclusive calendar-day ceiling for one request.
const maxRequestDays = 30

// Validator checks a proposed absence request against the business rules.
type Validator struct {
	stores engine.Stores
	log    *logrus.Logger
	now    func() time.Time
}

func NewValidator(stores engine.Stores, log *logrus.Logger) *Validator {
	if log == nil {
		log = logrus.New()
	}
	return &Validator{stores: stores, log: log, now: time.Now}
}

// WithNow fixes the validator's clock. Test hook.
func (v *Validator) WithNow(now func() time.Time) *Validator {
	v.now = now
	return v
}

// Validate runs all checks in order and returns the first violated rule.
func (v *Validator) Validate(ctx context.Context, draft *engine.HolidayRequest) error {
	if err := v.checkRequired(draft); err != nil {
		return err
	}
	if draft.EndDate.Before(draft.StartDate) {
		return &engine.DateRangeError{
			Field:  "endDate",
			Value:  draft.EndDate,
			Reason: "before start date " + draft.StartDate.String(),
		}
	}
	today := engine.DateOf(v.now())
	if draft.StartDate.Before(today) {
		return &engine.DateRangeError{Field: "startDate", Value: draft.StartDate, Reason: "in the past"}
	}

	employee, err := v.stores.Employees().Get(ctx, draft.EmployeeID)
	if err != nil {
		return err
	}
	if employee == nil {
		return &engine.NotFoundError{Kind: "employee", ID: string(draft.EmployeeID)}
	}
	if draft.StartDate.Before(employee.ContractStart) {
		return &engine.DateRangeError{
			Field:  "startDate",
			Value:  draft.StartDate,
			Reason: "before contractual start " + employee.ContractStart.String(),
		}
	}

	holidayType, err := v.stores.HolidayTypes().Get(ctx, draft.TypeCode)
	if err != nil {
		return err
	}
	if holidayType == nil || !holidayType.Active {
		return &engine.NotFoundError{Kind: "holiday type", ID: draft.TypeCode}
	}

	if days := draft.Days(); days > maxRequestDays {
		return &engine.RuleError{
			Rule:   "max absence duration",
			Detail: fmt.Sprintf("%d days requested, maximum is %d", days, maxRequestDays),
		}
	}

	return v.checkOverlap(ctx, draft)
}

// checkOverlap rejects the draft when any PENDING or APPROVED request of
// the same employee intersects it on the calendar (inclusive bounds).
func (v *Validator) checkOverlap(ctx context.Context, draft *engine.HolidayRequest) error {
	active, err := v.stores.HolidayRequests().ListActiveByEmployee(ctx, draft.EmployeeID)
	if err != nil {
		return err
	}
	for _, r := range active {
		if r.ID == draft.ID {
			continue
		}
		if r.Intersects(draft.StartDate, draft.EndDate) {
			return &engine.HolidayOverlapError{
				ConflictID: r.ID,
				Start:      r.StartDate,
				End:        r.EndDate,
				TypeCode:   r.TypeCode,
				Status:     r.Status,
			}
		}
	}
	return nil
}

func (v *Validator) checkRequired(draft *engine.HolidayRequest) error {
	switch {
	case draft.EmployeeID == "":
		return &engine.MissingFieldError{Field: "employeeId"}
	case draft.StartDate.IsZero():
		return &engine.MissingFieldError{Field: "startDate"}
	case draft.EndDate.IsZero():
		return &engine.MissingFieldError{Field: "endDate"}
	case draft.TypeCode == "":
		return &engine.MissingFieldError{Field: "typeCode"}
	}
	return nil
}
