/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

WIRE FORMATS:
  - Dates:       "2006-01-02"
  - Clock times: "15:04" (minutes since midnight internally)
  - Hours/money: JSON strings via decimal.Decimal to keep exact values

VALIDATION:
  Structural validation (required fields, formats) runs through struct
  tags on the request types. Domain validation (overlaps, date windows,
  business rules) stays in the engine's validators.

SEE ALSO:
  - handlers.go: Uses these types
  - engine/types.go: The domain model behind them
*/
package api

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/warp/timekeeping-engine/engine"
	"github.com/warp/timekeeping-engine/summary"
)

// validate checks the structural rules declared on request types.
var validate = validator.New()

// =============================================================================
// TIME ENTRIES
// =============================================================================

// BreakDTO is one unpaid pause, "15:04" bounds.
type BreakDTO struct {
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
}

// SubmitEntryRequest is the body for creating or replacing a time entry.
type SubmitEntryRequest struct {
	EmployeeID string     `json:"employee_id" validate:"required"`
	ProjectID  string     `json:"project_id" validate:"required"`
	Date       string     `json:"date" validate:"required"`
	Start      string     `json:"start" validate:"required"`
	End        string     `json:"end" validate:"required"`
	Breaks     []BreakDTO `json:"breaks,omitempty" validate:"dive"`
	Title      string     `json:"title" validate:"required"`

	HourlyRate       string `json:"hourly_rate,omitempty"`
	Billable         bool   `json:"billable"`
	NightSurcharge   bool   `json:"night_surcharge"`
	WeekendSurcharge bool   `json:"weekend_surcharge"`
	HolidaySurcharge bool   `json:"holiday_surcharge"`

	TravelMinutes  int    `json:"travel_minutes" validate:"gte=0"`
	WaitingMinutes int    `json:"waiting_minutes" validate:"gte=0"`
	DisposalCost   string `json:"disposal_cost,omitempty"`

	// Hours the employee keyed in by hand, cross-checked against the
	// derived value.
	ReportedHours *string `json:"reported_hours,omitempty"`
}

// toEntry converts the request into a domain draft. Format errors surface
// as engine validation errors so the handler maps them to 400.
func (r *SubmitEntryRequest) toEntry() (*engine.TimeEntry, error) {
	date, err := engine.ParseDate(r.Date)
	if err != nil {
		return nil, &engine.DateRangeError{Field: "date", Reason: "invalid format, want YYYY-MM-DD"}
	}
	start, err := engine.ParseClockTime(r.Start)
	if err != nil {
		return nil, &engine.TimeRangeError{Reason: "invalid start time, want HH:MM"}
	}
	end, err := engine.ParseClockTime(r.End)
	if err != nil {
		return nil, &engine.TimeRangeError{Reason: "invalid end time, want HH:MM"}
	}

	entry := &engine.TimeEntry{
		EmployeeID:       engine.EmployeeID(r.EmployeeID),
		ProjectID:        engine.ProjectID(r.ProjectID),
		Date:             date,
		Start:            start,
		End:              end,
		Title:            r.Title,
		Billable:         r.Billable,
		NightSurcharge:   r.NightSurcharge,
		WeekendSurcharge: r.WeekendSurcharge,
		HolidaySurcharge: r.HolidaySurcharge,
		TravelMinutes:    r.TravelMinutes,
		WaitingMinutes:   r.WaitingMinutes,
	}

	for i, b := range r.Breaks {
		bs, err := engine.ParseClockTime(b.Start)
		if err != nil {
			return nil, &engine.BreakError{Index: i, Reason: "invalid start time"}
		}
		be, err := engine.ParseClockTime(b.End)
		if err != nil {
			return nil, &engine.BreakError{Index: i, Reason: "invalid end time"}
		}
		entry.Breaks = append(entry.Breaks, engine.BreakInterval{Start: bs, End: be})
	}

	if entry.HourlyRate, err = parseDecimal(r.HourlyRate, "hourly_rate"); err != nil {
		return nil, err
	}
	if entry.DisposalCost, err = parseDecimal(r.DisposalCost, "disposal_cost"); err != nil {
		return nil, err
	}
	if r.ReportedHours != nil {
		reported, err := decimal.NewFromString(*r.ReportedHours)
		if err != nil {
			return nil, &engine.HoursError{Reason: "invalid reported_hours"}
		}
		entry.ReportedHours = &reported
	}
	return entry, nil
}

func parseDecimal(s, field string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &engine.RuleError{Rule: field, Detail: "invalid decimal value"}
	}
	return d, nil
}

// EntryDTO represents a time entry in API responses.
type EntryDTO struct {
	ID         string     `json:"id"`
	EmployeeID string     `json:"employee_id"`
	ProjectID  string     `json:"project_id"`
	Date       string     `json:"date"`
	Start      string     `json:"start"`
	End        string     `json:"end"`
	Breaks     []BreakDTO `json:"breaks,omitempty"`
	Title      string     `json:"title"`

	WorkedHours string `json:"worked_hours"`
	HourlyRate  string `json:"hourly_rate"`

	Billable         bool `json:"billable"`
	Invoiced         bool `json:"invoiced"`
	NightSurcharge   bool `json:"night_surcharge"`
	WeekendSurcharge bool `json:"weekend_surcharge"`
	HolidaySurcharge bool `json:"holiday_surcharge"`

	TravelMinutes  int    `json:"travel_minutes,omitempty"`
	WaitingMinutes int    `json:"waiting_minutes,omitempty"`
	DisposalCost   string `json:"disposal_cost,omitempty"`

	Status     string  `json:"status"`
	ApprovedBy string  `json:"approved_by,omitempty"`
	ApprovedAt *string `json:"approved_at,omitempty"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

func entryToDTO(e *engine.TimeEntry) EntryDTO {
	dto := EntryDTO{
		ID:               string(e.ID),
		EmployeeID:       string(e.EmployeeID),
		ProjectID:        string(e.ProjectID),
		Date:             e.Date.String(),
		Start:            e.Start.String(),
		End:              e.End.String(),
		Title:            e.Title,
		WorkedHours:      e.WorkedHours().String(),
		HourlyRate:       e.HourlyRate.String(),
		Billable:         e.Billable,
		Invoiced:         e.Invoiced,
		NightSurcharge:   e.NightSurcharge,
		WeekendSurcharge: e.WeekendSurcharge,
		HolidaySurcharge: e.HolidaySurcharge,
		TravelMinutes:    e.TravelMinutes,
		WaitingMinutes:   e.WaitingMinutes,
		Status:           string(e.Status),
		ApprovedBy:       string(e.ApprovedBy),
		CreatedAt:        e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        e.UpdatedAt.Format(time.RFC3339),
	}
	if !e.DisposalCost.IsZero() {
		dto.DisposalCost = e.DisposalCost.String()
	}
	for _, b := range e.Breaks {
		dto.Breaks = append(dto.Breaks, BreakDTO{Start: b.Start.String(), End: b.End.String()})
	}
	if e.ApprovedAt != nil {
		at := e.ApprovedAt.Format(time.RFC3339)
		dto.ApprovedAt = &at
	}
	return dto
}

// =============================================================================
// ABSENCE REQUESTS
// =============================================================================

// SubmitAbsenceRequest is the body for submitting an absence request.
type SubmitAbsenceRequest struct {
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
	TypeCode  string `json:"type_code" validate:"required"`
	Reason    string `json:"reason,omitempty"`
}

func (r *SubmitAbsenceRequest) toRequest(employeeID string) (*engine.HolidayRequest, error) {
	start, err := engine.ParseDate(r.StartDate)
	if err != nil {
		return nil, &engine.DateRangeError{Field: "start_date", Reason: "invalid format, want YYYY-MM-DD"}
	}
	end, err := engine.ParseDate(r.EndDate)
	if err != nil {
		return nil, &engine.DateRangeError{Field: "end_date", Reason: "invalid format, want YYYY-MM-DD"}
	}
	return &engine.HolidayRequest{
		EmployeeID: engine.EmployeeID(employeeID),
		StartDate:  start,
		EndDate:    end,
		TypeCode:   r.TypeCode,
		Reason:     r.Reason,
	}, nil
}

// AbsenceDTO represents an absence request in API responses.
type AbsenceDTO struct {
	ID         string `json:"id"`
	EmployeeID string `json:"employee_id"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	Days       int    `json:"days"`
	TypeCode   string `json:"type_code"`
	Reason     string `json:"reason,omitempty"`

	Status          string  `json:"status"`
	ApprovedBy      string  `json:"approved_by,omitempty"`
	ApprovedAt      *string `json:"approved_at,omitempty"`
	RejectionReason string  `json:"rejection_reason,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

func absenceToDTO(r *engine.HolidayRequest) AbsenceDTO {
	dto := AbsenceDTO{
		ID:              string(r.ID),
		EmployeeID:      string(r.EmployeeID),
		StartDate:       r.StartDate.String(),
		EndDate:         r.EndDate.String(),
		Days:            r.Days(),
		TypeCode:        r.TypeCode,
		Reason:          r.Reason,
		Status:          string(r.Status),
		ApprovedBy:      string(r.ApprovedBy),
		RejectionReason: r.RejectionReason,
		CreatedAt:       r.CreatedAt.Format(time.RFC3339),
	}
	if r.ApprovedAt != nil {
		at := r.ApprovedAt.Format(time.RFC3339)
		dto.ApprovedAt = &at
	}
	return dto
}

// =============================================================================
// APPROVALS
// =============================================================================

// DecisionRequest carries who decides and, for rejections, why.
type DecisionRequest struct {
	ApproverID string `json:"approver_id" validate:"required"`
	Reason     string `json:"reason,omitempty"`
}

// BulkApprovalDTO reports the outcome of a weekly bulk approval.
type BulkApprovalDTO struct {
	EmployeeID string `json:"employee_id"`
	Year       int    `json:"year"`
	Week       int    `json:"week"`
	Approved   int    `json:"approved"`
}

// =============================================================================
// SUMMARIES
// =============================================================================

// DayDTO is one reconciled day.
type DayDTO struct {
	Date     string `json:"date"`
	Worked   string `json:"worked"`
	Expected string `json:"expected"`
	Delta    string `json:"delta"`

	Weekend     bool   `json:"weekend,omitempty"`
	Holiday     bool   `json:"holiday,omitempty"`
	HolidayName string `json:"holiday_name,omitempty"`

	AbsenceType   string `json:"absence_type,omitempty"`
	AbsenceStatus string `json:"absence_status,omitempty"`

	Entries int  `json:"entries,omitempty"`
	Filler  bool `json:"filler,omitempty"`
}

// WeekDTO is one aggregated ISO week.
type WeekDTO struct {
	Year      int      `json:"year"`
	Week      int      `json:"week"`
	Worked    string   `json:"worked"`
	Expected  string   `json:"expected"`
	Delta     string   `json:"delta"`
	Overtime  string   `json:"overtime"`
	Undertime string   `json:"undertime"`
	Days      []DayDTO `json:"days"`
}

// MonthDTO is one aggregated month with its full-week grid.
type MonthDTO struct {
	Year      int      `json:"year"`
	Month     int      `json:"month"`
	Worked    string   `json:"worked"`
	Expected  string   `json:"expected"`
	Delta     string   `json:"delta"`
	Overtime  string   `json:"overtime"`
	Undertime string   `json:"undertime"`
	Days      []DayDTO `json:"days"`
}

// BalanceDTO is the cumulative overtime balance.
type BalanceDTO struct {
	EmployeeID string `json:"employee_id"`
	Since      string `json:"since"`
	Balance    string `json:"balance"`
}

// VacationDTO is the paid-vacation bookkeeping for one year.
type VacationDTO struct {
	EmployeeID string `json:"employee_id"`
	Year       int    `json:"year"`
	Allotment  string `json:"allotment"`
	Used       int    `json:"used"`
	Remaining  string `json:"remaining"`
}

func dayToDTO(d summary.DayRecord) DayDTO {
	dto := DayDTO{
		Date:        d.Date.String(),
		Worked:      d.Worked.String(),
		Expected:    d.Expected.String(),
		Delta:       d.Delta.String(),
		Weekend:     d.Weekend,
		Holiday:     d.Holiday,
		HolidayName: d.HolidayName,
		AbsenceType: d.AbsenceType,
		Entries:     d.Entries,
		Filler:      d.Filler,
	}
	if d.AbsenceStatus != "" {
		dto.AbsenceStatus = string(d.AbsenceStatus)
	}
	return dto
}

func daysToDTO(days []summary.DayRecord) []DayDTO {
	out := make([]DayDTO, len(days))
	for i, d := range days {
		out[i] = dayToDTO(d)
	}
	return out
}

func weekToDTO(w *summary.WeekRecord) WeekDTO {
	return WeekDTO{
		Year:      w.Year,
		Week:      w.Week,
		Worked:    w.Worked.String(),
		Expected:  w.Expected.String(),
		Delta:     w.Delta.String(),
		Overtime:  w.Overtime.String(),
		Undertime: w.Undertime.String(),
		Days:      daysToDTO(w.Days),
	}
}

func monthToDTO(m summary.MonthRecord) MonthDTO {
	return MonthDTO{
		Year:      m.Year,
		Month:     int(m.Month),
		Worked:    m.Worked.String(),
		Expected:  m.Expected.String(),
		Delta:     m.Delta.String(),
		Overtime:  m.Overtime.String(),
		Undertime: m.Undertime.String(),
		Days:      daysToDTO(m.Days),
	}
}

// =============================================================================
// HOLIDAYS AND TYPES
// =============================================================================

// HolidayDTO represents one public-holiday definition.
type HolidayDTO struct {
	ID       string `json:"id"`
	Year     int    `json:"year"`
	Date     string `json:"date"`
	Name     string `json:"name"`
	Canton   string `json:"canton,omitempty"`
	Movable  bool   `json:"movable"`
	WorkFree bool   `json:"work_free"`
}

func holidayToDTO(h engine.HolidayDefinition) HolidayDTO {
	return HolidayDTO{
		ID:       h.ID,
		Year:     h.Year,
		Date:     h.Date.String(),
		Name:     h.Name,
		Canton:   h.Canton,
		Movable:  h.Movable,
		WorkFree: h.WorkFree,
	}
}

// HolidayTypeDTO represents an absence category.
type HolidayTypeDTO struct {
	Code           string `json:"code"`
	Name           string `json:"name"`
	ExpectedFactor string `json:"expected_factor"`
	Active         bool   `json:"active"`
	SystemReserved bool   `json:"system_reserved"`
}

// CreateHolidayTypeRequest adds a company-specific absence category.
type CreateHolidayTypeRequest struct {
	Code           string `json:"code" validate:"required,uppercase"`
	Name           string `json:"name" validate:"required"`
	ExpectedFactor string `json:"expected_factor" validate:"required"`
}

// =============================================================================
// DIRECTORY
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	WeeklyHours   string `json:"weekly_hours"`
	HourlyRate    string `json:"hourly_rate"`
	ContractStart string `json:"contract_start"`
	VacationDays  string `json:"vacation_days"`
}

// UpsertEmployeeRequest creates or replaces an employee record.
type UpsertEmployeeRequest struct {
	ID            string `json:"id" validate:"required"`
	Name          string `json:"name" validate:"required"`
	WeeklyHours   string `json:"weekly_hours" validate:"required"`
	HourlyRate    string `json:"hourly_rate" validate:"required"`
	ContractStart string `json:"contract_start" validate:"required"`
	VacationDays  string `json:"vacation_days" validate:"required"`
}

func employeeToDTO(e *engine.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:            string(e.ID),
		Name:          e.Name,
		WeeklyHours:   e.WeeklyHours.String(),
		HourlyRate:    e.HourlyRate.String(),
		ContractStart: e.ContractStart.String(),
		VacationDays:  e.VacationDays.String(),
	}
}

// ProjectDTO represents a project reference.
type ProjectDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// UpsertProjectRequest creates or replaces a project record.
type UpsertProjectRequest struct {
	ID     string `json:"id" validate:"required"`
	Name   string `json:"name" validate:"required"`
	Active bool   `json:"active"`
}
