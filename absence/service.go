package absence

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/warp/timekeeping-engine/calendar"
	"github.com/warp/timekeeping-engine/engine"
)

// Service owns the validate-then-persist sequence for absence requests and
// the vacation-day bookkeeping built on top of approved ones.
type Service struct {
	store engine.Store
	cal   *calendar.Calendar
	log   *logrus.Logger
	now   func() time.Time
}

func NewService(store engine.Store, cal *calendar.Calendar, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.New()
	}
	return &Service{store: store, cal: cal, log: log, now: time.Now}
}

// WithNow fixes the service's clock. Test hook.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// Submit validates the draft and inserts it as PENDING. The overlap check
// and the insert share one transaction.
func (s *Service) Submit(ctx context.Context, draft *engine.HolidayRequest) (*engine.HolidayRequest, error) {
	err := s.store.WithTx(ctx, func(tx engine.Stores) error {
		v := NewValidator(tx, s.log).WithNow(s.now)
		if err := v.Validate(ctx, draft); err != nil {
			return err
		}
		now := s.now()
		draft.Status = engine.StatusPending
		draft.CreatedAt = now
		draft.UpdatedAt = now
		return tx.HolidayRequests().Insert(ctx, draft)
	})
	if err != nil {
		return nil, err
	}
	return draft, nil
}

// ListByEmployee returns all requests of an employee, newest first.
func (s *Service) ListByEmployee(ctx context.Context, employeeID engine.EmployeeID) ([]*engine.HolidayRequest, error) {
	return s.store.HolidayRequests().ListByEmployee(ctx, employeeID)
}

// UsedVacationDays sums working days over all APPROVED paid-vacation
// requests intersecting the year, each clipped to the year's bounds.
// Weekends and public holidays inside a request never consume allotment.
func (s *Service) UsedVacationDays(ctx context.Context, employeeID engine.EmployeeID, year int) (int, error) {
	yearStart := engine.StartOfYear(year)
	yearEnd := engine.EndOfYear(year)

	approved, err := s.store.HolidayRequests().ListApprovedInRange(ctx, employeeID, yearStart, yearEnd)
	if err != nil {
		return 0, err
	}

	used := 0
	for _, r := range approved {
		if r.TypeCode != engine.TypePaidVacation {
			continue
		}
		start, end := r.StartDate, r.EndDate
		if start.Before(yearStart) {
			start = yearStart
		}
		if end.After(yearEnd) {
			end = yearEnd
		}
		days, err := s.cal.WorkingDaysBetween(ctx, start, end)
		if err != nil {
			return 0, err
		}
		used += days
	}
	return used, nil
}

// RemainingVacationDays is the employee's annual allotment minus used days.
// May go negative when an employee was granted more than the allotment.
func (s *Service) RemainingVacationDays(ctx context.Context, employeeID engine.EmployeeID, year int) (decimal.Decimal, error) {
	employee, err := s.store.Employees().Get(ctx, employeeID)
	if err != nil {
		return decimal.Zero, err
	}
	if employee == nil {
		return decimal.Zero, &engine.NotFoundError{Kind: "employee", ID: string(employeeID)}
	}
	used, err := s.UsedVacationDays(ctx, employeeID, year)
	if err != nil {
		return decimal.Zero, err
	}
	return employee.VacationDays.Sub(decimal.NewFromInt(int64(used))), nil
}
