/*
Package approval drives the PENDING/APPROVED/REJECTED lifecycle shared by
time entries and absence requests.

STATE MACHINE:
  PENDING -> APPROVED   records approver and timestamp
  PENDING -> REJECTED   records approver and optional reason
  APPROVED, REJECTED    terminal; any further transition fails with
                        ErrAlreadyFinalized

RACES:
  Transitions are compare-and-set at the store: the status update only
  succeeds when the row is still PENDING. Two racing approvals resolve to
  exactly one winner with one recorded approver.

BULK APPROVAL:
  ApproveWeek applies PENDING -> APPROVED to every matching entry inside
  one transaction. A missing employee or approver aborts the whole batch
  before any entry is touched; a store failure mid-batch rolls everything
  back. All-or-nothing, per batch.

SEE ALSO:
  - engine/store.go: UpdateStatus compare-and-set contract
*/
package approval

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warp/timekeeping-engine/engine"
)

// Workflow transitions entries and requests through approval states.
type Workflow struct {
	store engine.Store
	log   *logrus.Logger
	now   func() time.Time
}

func NewWorkflow(store engine.Store, log *logrus.Logger) *Workflow {
	if log == nil {
		log = logrus.New()
	}
	return &Workflow{store: store, log: log, now: time.Now}
}

// WithNow fixes the workflow's clock. Test hook.
func (w *Workflow) WithNow(now func() time.Time) *Workflow {
	w.now = now
	return w
}

// =============================================================================
// SINGLE TRANSITIONS
// =============================================================================

// ApproveEntry transitions one time entry PENDING -> APPROVED.
func (w *Workflow) ApproveEntry(ctx context.Context, id engine.EntryID, approverID engine.EmployeeID) error {
	if err := w.requireApprover(ctx, w.store, approverID); err != nil {
		return err
	}
	return w.store.TimeEntries().UpdateStatus(ctx, id, engine.StatusPending, engine.StatusApproved, approverID, w.now(), "")
}

// RejectEntry transitions one time entry PENDING -> REJECTED.
func (w *Workflow) RejectEntry(ctx context.Context, id engine.EntryID, approverID engine.EmployeeID, reason string) error {
	if err := w.requireApprover(ctx, w.store, approverID); err != nil {
		return err
	}
	return w.store.TimeEntries().UpdateStatus(ctx, id, engine.StatusPending, engine.StatusRejected, approverID, w.now(), reason)
}

// ApproveRequest transitions one absence request PENDING -> APPROVED.
func (w *Workflow) ApproveRequest(ctx context.Context, id engine.RequestID, approverID engine.EmployeeID) error {
	if err := w.requireApprover(ctx, w.store, approverID); err != nil {
		return err
	}
	return w.store.HolidayRequests().UpdateStatus(ctx, id, engine.StatusPending, engine.StatusApproved, approverID, w.now(), "")
}

// RejectRequest transitions one absence request PENDING -> REJECTED.
func (w *Workflow) RejectRequest(ctx context.Context, id engine.RequestID, approverID engine.EmployeeID, reason string) error {
	if err := w.requireApprover(ctx, w.store, approverID); err != nil {
		return err
	}
	return w.store.HolidayRequests().UpdateStatus(ctx, id, engine.StatusPending, engine.StatusRejected, approverID, w.now(), reason)
}

// =============================================================================
// BULK APPROVAL
// =============================================================================

// ApproveWeek approves every PENDING entry of one employee in one ISO
// week. All-or-nothing: a missing employee or approver aborts the batch
// with no entries mutated, and any mid-batch failure rolls back.
// Returns the number of entries approved.
func (w *Workflow) ApproveWeek(ctx context.Context, employeeID engine.EmployeeID, year, week int, approverID engine.EmployeeID) (int, error) {
	approved := 0
	err := w.store.WithTx(ctx, func(tx engine.Stores) error {
		employee, err := tx.Employees().Get(ctx, employeeID)
		if err != nil {
			return err
		}
		if employee == nil {
			return &engine.ApprovalTargetError{Kind: "employee", ID: string(employeeID)}
		}
		if err := w.requireApprover(ctx, tx, approverID); err != nil {
			return err
		}

		monday := engine.StartOfISOWeek(year, week)
		entries, err := tx.TimeEntries().ListByEmployeeRange(ctx, employeeID, monday, monday.AddDays(6))
		if err != nil {
			return err
		}

		at := w.now()
		for _, e := range entries {
			if e.Status != engine.StatusPending {
				continue
			}
			if err := tx.TimeEntries().UpdateStatus(ctx, e.ID, engine.StatusPending, engine.StatusApproved, approverID, at, ""); err != nil {
				return err
			}
			approved++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	w.log.WithFields(logrus.Fields{
		"employee": employeeID,
		"year":     year,
		"week":     week,
		"approved": approved,
	}).Info("bulk approval completed")
	return approved, nil
}

func (w *Workflow) requireApprover(ctx context.Context, stores engine.Stores, approverID engine.EmployeeID) error {
	if approverID == "" {
		return &engine.MissingFieldError{Field: "approverId"}
	}
	approver, err := stores.Employees().Get(ctx, approverID)
	if err != nil {
		return err
	}
	if approver == nil {
		return &engine.ApprovalTargetError{Kind: "approver", ID: string(approverID)}
	}
	return nil
}
