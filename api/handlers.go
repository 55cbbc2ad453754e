/*
handlers.go - HTTP API handlers for the timekeeping engine

PURPOSE:
  Exposes time tracking, absence requests, summaries and approvals via a
  REST API. Handles HTTP request/response and JSON serialization, then
  delegates to the domain services.

ENDPOINTS:
  Entries:
    POST   /api/entries                        Submit a time entry
    GET    /api/entries/{id}                   Get one entry
    PUT    /api/entries/{id}                   Replace a pending entry
    POST   /api/entries/{id}/approve           Approve an entry
    POST   /api/entries/{id}/reject            Reject an entry

  Employees:
    GET    /api/employees                      List employees
    POST   /api/employees                      Upsert employee (back-office sync)
    GET    /api/employees/{id}                 Get one employee
    GET    /api/employees/{id}/entries         Entries in a date range
    GET    /api/employees/{id}/absences        All absence requests
    POST   /api/employees/{id}/absences        Submit an absence request
    GET    /api/employees/{id}/summary/daily   Day-by-day reconciliation
    GET    /api/employees/{id}/summary/weekly  One ISO week
    GET    /api/employees/{id}/summary/monthly Twelve months of one year
    GET    /api/employees/{id}/balance         Cumulative overtime balance
    GET    /api/employees/{id}/vacation        Vacation allotment bookkeeping
    POST   /api/employees/{id}/weeks/approve   Bulk-approve one ISO week

  Absences:
    POST   /api/absences/{id}/approve          Approve a request
    POST   /api/absences/{id}/reject           Reject a request

  Holidays:
    GET    /api/holidays                       Definitions for one year
    POST   /api/holidays/generate              Pre-generate a year

  Holiday types:
    GET    /api/holiday-types                  List absence categories
    POST   /api/holiday-types                  Add a company-specific category

  Projects:
    GET    /api/projects                       List projects
    POST   /api/projects                       Upsert project (back-office sync)

ERROR HANDLING:
  Domain errors map onto HTTP status via the engine's error taxonomy:
  - 400: validation failures and malformed input
  - 404: missing entities and approval targets
  - 409: overlaps and already-finalized transitions
  - 500: everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/warp/timekeeping-engine/absence"
	"github.com/warp/timekeeping-engine/approval"
	"github.com/warp/timekeeping-engine/calendar"
	"github.com/warp/timekeeping-engine/engine"
	"github.com/warp/timekeeping-engine/summary"
	"github.com/warp/timekeeping-engine/tracking"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Directory is the writable side of the employee/project directories, fed
// by the back office. store/sqlite and store/memory both implement it.
type Directory interface {
	UpsertEmployee(ctx context.Context, e *engine.Employee) error
	UpsertProject(ctx context.Context, p *engine.Project) error
}

// Handler holds all dependencies for the HTTP handlers.
type Handler struct {
	Store     engine.Store
	Tracking  *tracking.Service
	Absence   *absence.Service
	Approval  *approval.Workflow
	Summary   *summary.Aggregator
	Calendar  *calendar.Calendar
	Directory Directory
	Log       *logrus.Logger
}

// =============================================================================
// TIME ENTRY HANDLERS
// =============================================================================

// SubmitEntry validates and persists a new time entry.
func (h *Handler) SubmitEntry(w http.ResponseWriter, r *http.Request) {
	var req SubmitEntryRequest
	if !h.decode(w, r, &req) {
		return
	}
	draft, err := req.toEntry()
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	entry, err := h.Tracking.Create(r.Context(), draft)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entryToDTO(entry))
}

// GetEntry returns one entry.
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	id := engine.EntryID(chi.URLParam(r, "id"))
	entry, err := h.Tracking.Get(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entryToDTO(entry))
}

// UpdateEntry fully replaces a pending entry.
func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	var req SubmitEntryRequest
	if !h.decode(w, r, &req) {
		return
	}
	draft, err := req.toEntry()
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	draft.ID = engine.EntryID(chi.URLParam(r, "id"))
	entry, err := h.Tracking.Update(r.Context(), draft)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entryToDTO(entry))
}

// ApproveEntry transitions an entry PENDING -> APPROVED.
func (h *Handler) ApproveEntry(w http.ResponseWriter, r *http.Request) {
	var req DecisionRequest
	if !h.decode(w, r, &req) {
		return
	}
	id := engine.EntryID(chi.URLParam(r, "id"))
	if err := h.Approval.ApproveEntry(r.Context(), id, engine.EmployeeID(req.ApproverID)); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(engine.StatusApproved)})
}

// RejectEntry transitions an entry PENDING -> REJECTED.
func (h *Handler) RejectEntry(w http.ResponseWriter, r *http.Request) {
	var req DecisionRequest
	if !h.decode(w, r, &req) {
		return
	}
	id := engine.EntryID(chi.URLParam(r, "id"))
	if err := h.Approval.RejectEntry(r.Context(), id, engine.EmployeeID(req.ApproverID), req.Reason); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(engine.StatusRejected)})
}

// ListEntries returns an employee's entries in ?from..?to.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	employeeID := engine.EmployeeID(chi.URLParam(r, "id"))
	from, to, ok := h.dateRangeParams(w, r)
	if !ok {
		return
	}
	entries, err := h.Tracking.ListRange(r.Context(), employeeID, from, to)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]EntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = entryToDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ABSENCE HANDLERS
// =============================================================================

// SubmitAbsence validates and persists a new absence request.
func (h *Handler) SubmitAbsence(w http.ResponseWriter, r *http.Request) {
	var req SubmitAbsenceRequest
	if !h.decode(w, r, &req) {
		return
	}
	draft, err := req.toRequest(chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	created, err := h.Absence.Submit(r.Context(), draft)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, absenceToDTO(created))
}

// ListAbsences returns all absence requests of an employee, newest first.
func (h *Handler) ListAbsences(w http.ResponseWriter, r *http.Request) {
	employeeID := engine.EmployeeID(chi.URLParam(r, "id"))
	requests, err := h.Absence.ListByEmployee(r.Context(), employeeID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]AbsenceDTO, len(requests))
	for i, req := range requests {
		dtos[i] = absenceToDTO(req)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ApproveAbsence transitions a request PENDING -> APPROVED.
func (h *Handler) ApproveAbsence(w http.ResponseWriter, r *http.Request) {
	var req DecisionRequest
	if !h.decode(w, r, &req) {
		return
	}
	id := engine.RequestID(chi.URLParam(r, "id"))
	if err := h.Approval.ApproveRequest(r.Context(), id, engine.EmployeeID(req.ApproverID)); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(engine.StatusApproved)})
}

// RejectAbsence transitions a request PENDING -> REJECTED.
func (h *Handler) RejectAbsence(w http.ResponseWriter, r *http.Request) {
	var req DecisionRequest
	if !h.decode(w, r, &req) {
		return
	}
	id := engine.RequestID(chi.URLParam(r, "id"))
	if err := h.Approval.RejectRequest(r.Context(), id, engine.EmployeeID(req.ApproverID), req.Reason); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(engine.StatusRejected)})
}

// ApproveWeek bulk-approves an employee's PENDING entries in one ISO week.
func (h *Handler) ApproveWeek(w http.ResponseWriter, r *http.Request) {
	var req DecisionRequest
	if !h.decode(w, r, &req) {
		return
	}
	employeeID := engine.EmployeeID(chi.URLParam(r, "id"))
	year, ok := h.intParam(w, r, "year")
	if !ok {
		return
	}
	week, ok := h.intParam(w, r, "week")
	if !ok {
		return
	}
	approved, err := h.Approval.ApproveWeek(r.Context(), employeeID, year, week, engine.EmployeeID(req.ApproverID))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BulkApprovalDTO{
		EmployeeID: string(employeeID),
		Year:       year,
		Week:       week,
		Approved:   approved,
	})
}

// =============================================================================
// SUMMARY HANDLERS
// =============================================================================

// DailySummary returns day records for ?from..?to.
func (h *Handler) DailySummary(w http.ResponseWriter, r *http.Request) {
	employeeID := engine.EmployeeID(chi.URLParam(r, "id"))
	from, to, ok := h.dateRangeParams(w, r)
	if !ok {
		return
	}
	days, err := h.Summary.DailySummary(r.Context(), employeeID, from, to)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, daysToDTO(days))
}

// WeeklySummary returns one aggregated ISO week (?year, ?week).
func (h *Handler) WeeklySummary(w http.ResponseWriter, r *http.Request) {
	employeeID := engine.EmployeeID(chi.URLParam(r, "id"))
	year, ok := h.intParam(w, r, "year")
	if !ok {
		return
	}
	week, ok := h.intParam(w, r, "week")
	if !ok {
		return
	}
	rec, err := h.Summary.WeeklySummary(r.Context(), employeeID, year, week)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, weekToDTO(rec))
}

// MonthlySummary returns all twelve month grids of ?year.
func (h *Handler) MonthlySummary(w http.ResponseWriter, r *http.Request) {
	employeeID := engine.EmployeeID(chi.URLParam(r, "id"))
	year, ok := h.intParam(w, r, "year")
	if !ok {
		return
	}
	months, err := h.Summary.MonthlySummary(r.Context(), employeeID, year)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]MonthDTO, len(months))
	for i, m := range months {
		dtos[i] = monthToDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Balance returns the cumulative overtime balance since ?since, defaulting
// to one year back.
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	employeeID := engine.EmployeeID(chi.URLParam(r, "id"))
	since := engine.Today().AddYears(-1)
	if sinceStr := r.URL.Query().Get("since"); sinceStr != "" {
		parsed, err := engine.ParseDate(sinceStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since date, want YYYY-MM-DD", err)
			return
		}
		since = parsed
	}
	balance, err := h.Summary.CumulativeBalance(r.Context(), employeeID, since)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{
		EmployeeID: string(employeeID),
		Since:      since.String(),
		Balance:    balance.String(),
	})
}

// Vacation returns the paid-vacation bookkeeping for ?year.
func (h *Handler) Vacation(w http.ResponseWriter, r *http.Request) {
	employeeID := engine.EmployeeID(chi.URLParam(r, "id"))
	year, ok := h.intParam(w, r, "year")
	if !ok {
		return
	}
	employee, err := h.Store.Employees().Get(r.Context(), employeeID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if employee == nil {
		writeError(w, http.StatusNotFound, "employee not found", nil)
		return
	}
	used, err := h.Absence.UsedVacationDays(r.Context(), employeeID, year)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	remaining, err := h.Absence.RemainingVacationDays(r.Context(), employeeID, year)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, VacationDTO{
		EmployeeID: string(employeeID),
		Year:       year,
		Allotment:  employee.VacationDays.String(),
		Used:       used,
		Remaining:  remaining.String(),
	})
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

// ListHolidays returns all definitions of ?year, generating on first access.
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	year, ok := h.intParam(w, r, "year")
	if !ok {
		return
	}
	defs, err := h.Calendar.HolidaysForYear(r.Context(), year)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]HolidayDTO, len(defs))
	for i, d := range defs {
		dtos[i] = holidayToDTO(d)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GenerateHolidays pre-generates ?year. Idempotent.
func (h *Handler) GenerateHolidays(w http.ResponseWriter, r *http.Request) {
	year, ok := h.intParam(w, r, "year")
	if !ok {
		return
	}
	created, err := h.Calendar.Generate(r.Context(), year)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"year": year, "created": created})
}

// ListHolidayTypes returns all absence categories.
func (h *Handler) ListHolidayTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Store.HolidayTypes().List(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]HolidayTypeDTO, len(types))
	for i, t := range types {
		dtos[i] = HolidayTypeDTO{
			Code:           t.Code,
			Name:           t.Name,
			ExpectedFactor: t.ExpectedFactor.String(),
			Active:         t.Active,
			SystemReserved: t.SystemReserved,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateHolidayType adds a company-specific absence category.
func (h *Handler) CreateHolidayType(w http.ResponseWriter, r *http.Request) {
	var req CreateHolidayTypeRequest
	if !h.decode(w, r, &req) {
		return
	}
	factor, err := decimal.NewFromString(req.ExpectedFactor)
	if err != nil || factor.IsNegative() || factor.GreaterThan(decimal.NewFromInt(1)) {
		writeError(w, http.StatusBadRequest, "expected_factor must be a decimal in [0, 1]", nil)
		return
	}
	t := engine.HolidayType{
		Code:           req.Code,
		Name:           req.Name,
		ExpectedFactor: factor,
		Active:         true,
	}
	if err := h.Store.HolidayTypes().Insert(r.Context(), t); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, HolidayTypeDTO{
		Code:           t.Code,
		Name:           t.Name,
		ExpectedFactor: t.ExpectedFactor.String(),
		Active:         t.Active,
	})
}

// =============================================================================
// DIRECTORY HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.Employees().List(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = employeeToDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns one employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id := engine.EmployeeID(chi.URLParam(r, "id"))
	employee, err := h.Store.Employees().Get(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if employee == nil {
		writeError(w, http.StatusNotFound, "employee not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, employeeToDTO(employee))
}

// UpsertEmployee ingests an employee record from the back office.
func (h *Handler) UpsertEmployee(w http.ResponseWriter, r *http.Request) {
	var req UpsertEmployeeRequest
	if !h.decode(w, r, &req) {
		return
	}
	weekly, err := decimal.NewFromString(req.WeeklyHours)
	if err != nil || !weekly.IsPositive() {
		writeError(w, http.StatusBadRequest, "weekly_hours must be a positive decimal", nil)
		return
	}
	rate, err := decimal.NewFromString(req.HourlyRate)
	if err != nil || rate.IsNegative() {
		writeError(w, http.StatusBadRequest, "hourly_rate must be a non-negative decimal", nil)
		return
	}
	vacation, err := decimal.NewFromString(req.VacationDays)
	if err != nil || vacation.IsNegative() {
		writeError(w, http.StatusBadRequest, "vacation_days must be a non-negative decimal", nil)
		return
	}
	start, err := engine.ParseDate(req.ContractStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid contract_start, want YYYY-MM-DD", err)
		return
	}
	employee := &engine.Employee{
		ID:            engine.EmployeeID(req.ID),
		Name:          req.Name,
		WeeklyHours:   weekly,
		HourlyRate:    rate,
		ContractStart: start,
		VacationDays:  vacation,
	}
	if err := h.Directory.UpsertEmployee(r.Context(), employee); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, employeeToDTO(employee))
}

// ListProjects returns all projects.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Store.Projects().List(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]ProjectDTO, len(projects))
	for i, p := range projects {
		dtos[i] = ProjectDTO{ID: string(p.ID), Name: p.Name, Active: p.Active}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// UpsertProject ingests a project record from the back office.
func (h *Handler) UpsertProject(w http.ResponseWriter, r *http.Request) {
	var req UpsertProjectRequest
	if !h.decode(w, r, &req) {
		return
	}
	project := &engine.Project{ID: engine.ProjectID(req.ID), Name: req.Name, Active: req.Active}
	if err := h.Directory.UpsertProject(r.Context(), project); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ProjectDTO{ID: req.ID, Name: req.Name, Active: req.Active})
}

// =============================================================================
// HELPERS
// =============================================================================

// decode unmarshals the body into dst and runs structural validation.
// Writes the 400 itself and returns false on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed", err)
		return false
	}
	return true
}

func (h *Handler) dateRangeParams(w http.ResponseWriter, r *http.Request) (engine.Date, engine.Date, bool) {
	from, err := engine.ParseDate(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from date, want YYYY-MM-DD", err)
		return engine.Date{}, engine.Date{}, false
	}
	to, err := engine.ParseDate(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to date, want YYYY-MM-DD", err)
		return engine.Date{}, engine.Date{}, false
	}
	return from, to, true
}

func (h *Handler) intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name+" parameter", err)
		return 0, false
	}
	return v, true
}

// writeDomainError maps engine errors to HTTP status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case engine.IsConflict(err):
		writeError(w, http.StatusConflict, err.Error(), nil)
	case engine.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	default:
		h.Log.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := errorResponse{Error: msg}
	if err != nil {
		resp.Detail = err.Error()
	}
	writeJSON(w, status, resp)
}
