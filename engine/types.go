/*
Package engine provides the core domain model of the time and absence
accounting system.

PURPOSE:
  This package defines the entities every other package operates on:
  time entries with their break intervals, absence (holiday) requests,
  public-holiday definitions and types, plus the read-only employee and
  project records consumed from the surrounding back office.

KEY CONCEPTS IN THIS FILE (types.go):
  - TimeEntry: A single day's logged work with breaks and surcharge flags
  - BreakInterval: An unpaid pause strictly inside the entry's time range
  - HolidayRequest: An absence spanning an inclusive date range
  - HolidayType: Absence category keyed by a stable code
  - HolidayDefinition: A concrete public holiday for one year
  - ApprovalStatus: The shared PENDING/APPROVED/REJECTED lifecycle

DESIGN PRINCIPLES:
  1. Derived values stay derived: worked hours are always computed from
     start/end/breaks, never stored independently.
  2. Precision: decimal.Decimal for all hour and money quantities.
  3. Type safety: strong typing for IDs prevents mixing employee,
     project and entry identifiers.
  4. Stable keys: holiday types are addressed by code only; display
     names are presentation data.

SEE ALSO:
  - errors.go: Validation error taxonomy
  - store.go: Persistence interfaces over these types
  - date.go: Date and ClockTime value types
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type ProjectID string
type EntryID string
type RequestID string

// =============================================================================
// APPROVAL STATUS - Shared lifecycle for entries and absence requests
// =============================================================================

type ApprovalStatus string

const (
	StatusPending  ApprovalStatus = "PENDING"
	StatusApproved ApprovalStatus = "APPROVED"
	StatusRejected ApprovalStatus = "REJECTED"
)

// Terminal reports whether no further transition is allowed.
func (s ApprovalStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// =============================================================================
// TIME ENTRY
// =============================================================================

// BreakInterval is an unpaid pause inside a time entry. Boundaries are
// half-open [Start, End) for overlap purposes.
type BreakInterval struct {
	Start ClockTime
	End   ClockTime
}

func (b BreakInterval) Minutes() int { return b.End.Minutes() - b.Start.Minutes() }

// TimeEntry is one employee's logged work for a single date.
//
// INVARIANTS (enforced by tracking.Validator):
//   - Start < End, total duration 15 minutes to 24 hours
//   - Each break lies strictly inside [Start, End], lasts 15-240 minutes
//   - Breaks do not overlap each other and never consume the whole window
//   - WorkedHours() == (End-Start) - sum of breaks, in [0, 24]
//
// Entries are created by employee submission and afterwards mutated only by
// full-replace update or an approval transition. There is no partial patch.
type TimeEntry struct {
	ID         EntryID
	EmployeeID EmployeeID
	ProjectID  ProjectID
	Date       Date
	Start      ClockTime
	End        ClockTime
	Breaks     []BreakInterval
	Title      string

	// Rate snapshot at submission time; the employee's current rate may
	// change later without rewriting history.
	HourlyRate decimal.Decimal

	Billable         bool
	Invoiced         bool
	NightSurcharge   bool
	WeekendSurcharge bool
	HolidaySurcharge bool

	TravelMinutes  int
	WaitingMinutes int
	DisposalCost   decimal.Decimal

	// ReportedHours is the hours value the employee keyed in manually, if
	// any. Informational only: the engine trusts the derived value and just
	// logs large discrepancies.
	ReportedHours *decimal.Decimal

	Status     ApprovalStatus
	ApprovedBy EmployeeID
	ApprovedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DurationMinutes is the raw window length, breaks not yet subtracted.
func (e *TimeEntry) DurationMinutes() int { return e.End.Minutes() - e.Start.Minutes() }

func (e *TimeEntry) BreakMinutes() int {
	total := 0
	for _, b := range e.Breaks {
		total += b.Minutes()
	}
	return total
}

func (e *TimeEntry) WorkedMinutes() int { return e.DurationMinutes() - e.BreakMinutes() }

// WorkedHours derives hours worked from start/end/breaks. Minute-exact:
// 495 minutes minus a 45 minute break is exactly 7.5 hours, never 7.4999.
func (e *TimeEntry) WorkedHours() decimal.Decimal {
	return decimal.NewFromInt(int64(e.WorkedMinutes())).Div(decimal.NewFromInt(60))
}

// Overlaps reports whether two entries collide: same employee, same date,
// intersecting half-open time ranges.
func (e *TimeEntry) Overlaps(other *TimeEntry) bool {
	if e.EmployeeID != other.EmployeeID || !e.Date.Equal(other.Date) {
		return false
	}
	return RangesOverlap(e.Start, e.End, other.Start, other.End)
}

// =============================================================================
// HOLIDAY REQUEST - Absence spanning an inclusive date range
// =============================================================================

// HolidayRequest is a vacation/absence request. StartDate and EndDate are
// inclusive calendar bounds; overlap between requests is inclusive too
// (two requests touching on the same day conflict).
type HolidayRequest struct {
	ID         RequestID
	EmployeeID EmployeeID
	StartDate  Date
	EndDate    Date
	TypeCode   string
	Reason     string

	Status          ApprovalStatus
	ApprovedBy      EmployeeID
	ApprovedAt      *time.Time
	RejectionReason string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Days returns the inclusive calendar-day count of the request.
func (r *HolidayRequest) Days() int { return DaysBetween(r.StartDate, r.EndDate) }

// Intersects reports whether the request's range touches [from, to].
func (r *HolidayRequest) Intersects(from, to Date) bool {
	return r.StartDate.BeforeOrEqual(to) && from.BeforeOrEqual(r.EndDate)
}

// Covers reports whether a single date falls inside the request.
func (r *HolidayRequest) Covers(d Date) bool {
	return r.StartDate.BeforeOrEqual(d) && d.BeforeOrEqual(r.EndDate)
}

// =============================================================================
// HOLIDAY TYPE - Absence category, keyed by stable code
// =============================================================================

// System-defined type codes. These are seeded at migration and cannot be
// deleted or deactivated.
const (
	TypePaidVacation = "PAID_VACATION"
	TypeSickness     = "SICKNESS"
	TypeAccident     = "ACCIDENT"
	TypeUnpaidLeave  = "UNPAID_LEAVE"
	TypeMilitary     = "MILITARY_SERVICE"
	TypePublic       = "PUBLIC_HOLIDAY"
)

// HolidayType categorizes an absence. ExpectedFactor scales the standard
// workday when a day is covered by this type instead of normal work:
// 0 means the day expects nothing (sickness), 1 keeps the full expectation
// so a deficit accumulates (unpaid leave).
type HolidayType struct {
	Code           string
	Name           string
	ExpectedFactor decimal.Decimal
	Active         bool
	SystemReserved bool
}

// =============================================================================
// HOLIDAY DEFINITION - One public holiday in one year
// =============================================================================

// HolidayDefinition is a concrete public holiday. Canton is empty for
// national holidays. At most one active definition exists per
// (year, date, canton); the store enforces this.
type HolidayDefinition struct {
	ID       string
	Year     int
	Date     Date
	Name     string
	Canton   string
	Movable  bool // computed relative to Easter rather than a fixed month/day
	Editable bool // false for system-generated, locked definitions
	Active   bool
	WorkFree bool
	TypeCode string
}

// =============================================================================
// CONSUMED RECORDS - Owned by the surrounding back office, read-only here
// =============================================================================

// Employee carries the contract inputs the engine needs. The engine never
// writes employees.
type Employee struct {
	ID            EmployeeID
	Name          string
	WeeklyHours   decimal.Decimal // contracted hours per week
	HourlyRate    decimal.Decimal
	ContractStart Date
	VacationDays  decimal.Decimal // annual allotment in working days
}

// StandardDailyHours is the contracted weekly hours spread over a
// five-day week.
func (e *Employee) StandardDailyHours() decimal.Decimal {
	return e.WeeklyHours.Div(decimal.NewFromInt(5))
}

// Project is an existence-check-only reference.
type Project struct {
	ID     ProjectID
	Name   string
	Active bool
}
