/*
store.go - Persistence interfaces between the engine and the database

PURPOSE:
  Defines the narrow repository interfaces the engine's validators,
  aggregators and the approval workflow depend on. Implementations live in
  store/sqlite (production) and store/memory (tests/dev).

UNIT OF WORK:
  The overlap invariants (no two entries with intersecting time ranges for
  the same employee and date, no two active absence requests with
  intersecting date ranges) require the check-then-insert sequence to be
  atomic. Store.WithTx provides that boundary: the validator reads and the
  insert commit inside one transaction, so two concurrent submissions
  cannot both pass validation.

STATUS TRANSITIONS:
  UpdateStatus on entries and requests is a compare-and-set: it succeeds
  only when the row is still in the expected source status. Two racing
  approvals therefore resolve to exactly one winner; the loser receives
  ErrAlreadyFinalized.

SEE ALSO:
  - store/sqlite/sqlite.go: production implementation
  - store/memory/memory.go: in-memory implementation
*/
package engine

import (
	"context"
	"time"
)

// =============================================================================
// REPOSITORIES
// =============================================================================

// TimeEntryStore persists time entries keyed by employee and date.
type TimeEntryStore interface {
	Get(ctx context.Context, id EntryID) (*TimeEntry, error)

	// ListByEmployeeDate returns all entries of one employee on one date,
	// ordered by start time. Used for overlap validation.
	ListByEmployeeDate(ctx context.Context, employeeID EmployeeID, date Date) ([]*TimeEntry, error)

	// ListByEmployeeRange returns entries with Date in [from, to] inclusive,
	// ordered by date then start time.
	ListByEmployeeRange(ctx context.Context, employeeID EmployeeID, from, to Date) ([]*TimeEntry, error)

	Insert(ctx context.Context, entry *TimeEntry) error

	// Update replaces the full entry. Only non-terminal entries may change.
	Update(ctx context.Context, entry *TimeEntry) error

	// UpdateStatus transitions the entry from the expected source status.
	// Returns ErrAlreadyFinalized when the row is no longer in `from`,
	// or a NotFoundError when the entry does not exist.
	UpdateStatus(ctx context.Context, id EntryID, from, to ApprovalStatus, approver EmployeeID, at time.Time, reason string) error
}

// HolidayRequestStore persists absence requests.
type HolidayRequestStore interface {
	Get(ctx context.Context, id RequestID) (*HolidayRequest, error)

	// ListActiveByEmployee returns the employee's PENDING and APPROVED
	// requests. Used for overlap validation.
	ListActiveByEmployee(ctx context.Context, employeeID EmployeeID) ([]*HolidayRequest, error)

	// ListApprovedInRange returns APPROVED requests intersecting [from, to].
	ListApprovedInRange(ctx context.Context, employeeID EmployeeID, from, to Date) ([]*HolidayRequest, error)

	// ListByEmployee returns all requests of an employee, newest first.
	ListByEmployee(ctx context.Context, employeeID EmployeeID) ([]*HolidayRequest, error)

	Insert(ctx context.Context, req *HolidayRequest) error

	// UpdateStatus: same compare-and-set contract as TimeEntryStore.
	UpdateStatus(ctx context.Context, id RequestID, from, to ApprovalStatus, approver EmployeeID, at time.Time, reason string) error
}

// HolidayStore persists generated public-holiday definitions. Generation
// writes once per year; lookups afterwards are plain range queries.
type HolidayStore interface {
	// YearExists reports whether any definition for (year, canton) is stored.
	YearExists(ctx context.Context, year int, canton string) (bool, error)

	// InsertDefinitions stores a generated batch atomically.
	InsertDefinitions(ctx context.Context, defs []HolidayDefinition) error

	// ListYear returns all active definitions for (year, canton), national
	// definitions included, ordered by date.
	ListYear(ctx context.Context, year int, canton string) ([]HolidayDefinition, error)

	// ListRange returns active work-free definitions with Date in [from, to].
	ListRange(ctx context.Context, canton string, from, to Date) ([]HolidayDefinition, error)
}

// HolidayTypeStore persists absence categories. Types are keyed by their
// stable code; there is no lookup by display name.
type HolidayTypeStore interface {
	Get(ctx context.Context, code string) (*HolidayType, error)
	List(ctx context.Context) ([]HolidayType, error)

	// Insert adds a non-system type. Inserting an existing code fails.
	Insert(ctx context.Context, t HolidayType) error
}

// =============================================================================
// DIRECTORIES - Read-only views of externally owned records
// =============================================================================

// EmployeeDirectory resolves employee contract data. The engine never
// writes employees; they are owned by the surrounding back office.
type EmployeeDirectory interface {
	Get(ctx context.Context, id EmployeeID) (*Employee, error)
	List(ctx context.Context) ([]*Employee, error)
}

// ProjectDirectory answers project existence checks.
type ProjectDirectory interface {
	Get(ctx context.Context, id ProjectID) (*Project, error)
	List(ctx context.Context) ([]*Project, error)
}

// =============================================================================
// STORE - Bundle plus unit-of-work boundary
// =============================================================================

// Stores bundles every repository so services reach all of them through a
// single handle, inside or outside a transaction.
type Stores interface {
	TimeEntries() TimeEntryStore
	HolidayRequests() HolidayRequestStore
	Holidays() HolidayStore
	HolidayTypes() HolidayTypeStore
	Employees() EmployeeDirectory
	Projects() ProjectDirectory
}

// Store is the full persistence contract: the repositories plus the
// transactional boundary required by the overlap invariants.
type Store interface {
	Stores

	// WithTx executes fn within one transaction. The Stores handed to fn
	// read and write through that transaction. If fn returns an error the
	// transaction is rolled back, otherwise committed.
	WithTx(ctx context.Context, fn func(Stores) error) error
}
