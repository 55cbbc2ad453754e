package tracking

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warp/timekeeping-engine/calendar"
	"github.com/warp/timekeeping-engine/engine"
)

// Service owns the validate-then-persist sequence for time entries.
// All writes run inside one store transaction so the overlap check and the
// insert are atomic per employee.
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

// Create validates the draft and inserts it. On success the draft is
// returned with status PENDING and timestamps set; on failure nothing is
// persisted.
func (s *Service) Create(ctx context.Context, draft *engine.TimeEntry) (*engine.TimeEntry, error) {
	err := s.store.WithTx(ctx, func(tx engine.Stores) error {
		v := NewValidator(tx, s.cal.WithHolidays(tx.Holidays()), s.log).WithNow(s.now)
		if err := v.Validate(ctx, draft, false); err != nil {
			return err
		}
		now := s.now()
		draft.Status = engine.StatusPending
		draft.CreatedAt = now
		draft.UpdatedAt = now
		return tx.TimeEntries().Insert(ctx, draft)
	})
	if err != nil {
		return nil, err
	}
	return draft, nil
}

// Update replaces an existing entry in full. Terminal entries cannot change.
func (s *Service) Update(ctx context.Context, draft *engine.TimeEntry) (*engine.TimeEntry, error) {
	err := s.store.WithTx(ctx, func(tx engine.Stores) error {
		current, err := tx.TimeEntries().Get(ctx, draft.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return &engine.NotFoundError{Kind: "time entry", ID: string(draft.ID)}
		}
		if current.Status.Terminal() {
			return engine.ErrAlreadyFinalized
		}
		v := NewValidator(tx, s.cal.WithHolidays(tx.Holidays()), s.log).WithNow(s.now)
		if err := v.Validate(ctx, draft, true); err != nil {
			return err
		}
		draft.Status = current.Status
		draft.CreatedAt = current.CreatedAt
		draft.UpdatedAt = s.now()
		return tx.TimeEntries().Update(ctx, draft)
	})
	if err != nil {
		return nil, err
	}
	return draft, nil
}

// Get returns one entry.
func (s *Service) Get(ctx context.Context, id engine.EntryID) (*engine.TimeEntry, error) {
	entry, err := s.store.TimeEntries().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, &engine.NotFoundError{Kind: "time entry", ID: string(id)}
	}
	return entry, nil
}

// ListRange returns an employee's entries in [from, to] inclusive.
func (s *Service) ListRange(ctx context.Context, employeeID engine.EmployeeID, from, to engine.Date) ([]*engine.TimeEntry, error) {
	if to.Before(from) {
		return nil, &engine.DateRangeError{Field: "to", Value: to, Reason: "before from"}
	}
	return s.store.TimeEntries().ListByEmployeeRange(ctx, employeeID, from, to)
}
