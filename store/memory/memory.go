// Package memory provides an in-memory engine.Store for tests and dev mode.
//
// Transactions are simulated with a full snapshot taken under the write
// lock: if the callback fails, the snapshot is restored, so a failed batch
// leaves no partial state, matching the sqlite adapter's semantics.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/timekeeping-engine/engine"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	entries   map[engine.EntryID]*engine.TimeEntry
	requests  map[engine.RequestID]*engine.HolidayRequest
	holidays  []engine.HolidayDefinition
	types     map[string]engine.HolidayType
	employees map[engine.EmployeeID]*engine.Employee
	projects  map[engine.ProjectID]*engine.Project
}

func New() *Memory {
	m := &Memory{
		entries:   make(map[engine.EntryID]*engine.TimeEntry),
		requests:  make(map[engine.RequestID]*engine.HolidayRequest),
		types:     make(map[string]engine.HolidayType),
		employees: make(map[engine.EmployeeID]*engine.Employee),
		projects:  make(map[engine.ProjectID]*engine.Project),
	}
	for _, t := range systemTypes() {
		m.types[t.Code] = t
	}
	return m
}

// systemTypes mirrors the rows the sqlite adapter seeds at migration.
func systemTypes() []engine.HolidayType {
	one := decimal.NewFromInt(1)
	return []engine.HolidayType{
		{Code: engine.TypePaidVacation, Name: "Bezahlte Ferien", ExpectedFactor: decimal.Zero, Active: true, SystemReserved: true},
		{Code: engine.TypeSickness, Name: "Krankheit", ExpectedFactor: decimal.Zero, Active: true, SystemReserved: true},
		{Code: engine.TypeAccident, Name: "Unfall", ExpectedFactor: decimal.Zero, Active: true, SystemReserved: true},
		{Code: engine.TypeUnpaidLeave, Name: "Unbezahlter Urlaub", ExpectedFactor: one, Active: true, SystemReserved: true},
		{Code: engine.TypeMilitary, Name: "Militärdienst", ExpectedFactor: decimal.Zero, Active: true, SystemReserved: true},
	}
}

// =============================================================================
// SEEDING - Dev mode and tests populate the consumed directories directly
// =============================================================================

func (m *Memory) PutEmployee(e *engine.Employee) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.employees[e.ID] = &cp
}

func (m *Memory) PutProject(p *engine.Project) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.projects[p.ID] = &cp
}

func (m *Memory) PutHolidayType(t engine.HolidayType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.types[t.Code] = t
}

// UpsertEmployee and UpsertProject satisfy the API's directory-sync
// interface so dev mode serves the same endpoints as the sqlite store.

func (m *Memory) UpsertEmployee(_ context.Context, e *engine.Employee) error {
	m.PutEmployee(e)
	return nil
}

func (m *Memory) UpsertProject(_ context.Context, p *engine.Project) error {
	m.PutProject(p)
	return nil
}

// =============================================================================
// STORES BUNDLE
// =============================================================================

func (m *Memory) TimeEntries() engine.TimeEntryStore           { return &entryRepo{m: m, locked: false} }
func (m *Memory) HolidayRequests() engine.HolidayRequestStore  { return &requestRepo{m: m, locked: false} }
func (m *Memory) Holidays() engine.HolidayStore                { return &holidayRepo{m: m, locked: false} }
func (m *Memory) HolidayTypes() engine.HolidayTypeStore        { return &typeRepo{m: m, locked: false} }
func (m *Memory) Employees() engine.EmployeeDirectory          { return &employeeRepo{m: m, locked: false} }
func (m *Memory) Projects() engine.ProjectDirectory            { return &projectRepo{m: m, locked: false} }

// WithTx runs fn under the write lock against a snapshot-backed view.
// On error the snapshot is restored.
func (m *Memory) WithTx(ctx context.Context, fn func(engine.Stores) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(&txView{m: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type txView struct {
	m *Memory
}

func (v *txView) TimeEntries() engine.TimeEntryStore          { return &entryRepo{m: v.m, locked: true} }
func (v *txView) HolidayRequests() engine.HolidayRequestStore { return &requestRepo{m: v.m, locked: true} }
func (v *txView) Holidays() engine.HolidayStore               { return &holidayRepo{m: v.m, locked: true} }
func (v *txView) HolidayTypes() engine.HolidayTypeStore       { return &typeRepo{m: v.m, locked: true} }
func (v *txView) Employees() engine.EmployeeDirectory         { return &employeeRepo{m: v.m, locked: true} }
func (v *txView) Projects() engine.ProjectDirectory           { return &projectRepo{m: v.m, locked: true} }

type snapshot struct {
	entries  map[engine.EntryID]*engine.TimeEntry
	requests map[engine.RequestID]*engine.HolidayRequest
	holidays []engine.HolidayDefinition
	types    map[string]engine.HolidayType
}

func (m *Memory) snapshot() snapshot {
	s := snapshot{
		entries:  make(map[engine.EntryID]*engine.TimeEntry, len(m.entries)),
		requests: make(map[engine.RequestID]*engine.HolidayRequest, len(m.requests)),
		holidays: append([]engine.HolidayDefinition(nil), m.holidays...),
		types:    make(map[string]engine.HolidayType, len(m.types)),
	}
	for k, v := range m.entries {
		s.entries[k] = copyEntry(v)
	}
	for k, v := range m.requests {
		cp := *v
		s.requests[k] = &cp
	}
	for k, v := range m.types {
		s.types[k] = v
	}
	return s
}

func (m *Memory) restore(s snapshot) {
	m.entries = s.entries
	m.requests = s.requests
	m.holidays = s.holidays
	m.types = s.types
}

// lock helpers: repos outside a transaction lock the parent themselves,
// tx-scoped repos run under the lock WithTx already holds.

func (m *Memory) rlock(locked bool) func() {
	if locked {
		return func() {}
	}
	m.mu.RLock()
	return m.mu.RUnlock
}

func (m *Memory) wlock(locked bool) func() {
	if locked {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func copyEntry(e *engine.TimeEntry) *engine.TimeEntry {
	cp := *e
	cp.Breaks = append([]engine.BreakInterval(nil), e.Breaks...)
	return &cp
}

// =============================================================================
// TIME ENTRIES
// =============================================================================

type entryRepo struct {
	m      *Memory
	locked bool
}

func (r *entryRepo) Get(_ context.Context, id engine.EntryID) (*engine.TimeEntry, error) {
	defer r.m.rlock(r.locked)()
	e, ok := r.m.entries[id]
	if !ok {
		return nil, nil
	}
	return copyEntry(e), nil
}

func (r *entryRepo) ListByEmployeeDate(_ context.Context, employeeID engine.EmployeeID, date engine.Date) ([]*engine.TimeEntry, error) {
	defer r.m.rlock(r.locked)()
	var out []*engine.TimeEntry
	for _, e := range r.m.entries {
		if e.EmployeeID == employeeID && e.Date.Equal(date) {
			out = append(out, copyEntry(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

func (r *entryRepo) ListByEmployeeRange(_ context.Context, employeeID engine.EmployeeID, from, to engine.Date) ([]*engine.TimeEntry, error) {
	defer r.m.rlock(r.locked)()
	var out []*engine.TimeEntry
	for _, e := range r.m.entries {
		if e.EmployeeID == employeeID && e.Date.AfterOrEqual(from) && e.Date.BeforeOrEqual(to) {
			out = append(out, copyEntry(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Start < out[j].Start
	})
	return out, nil
}

func (r *entryRepo) Insert(_ context.Context, entry *engine.TimeEntry) error {
	defer r.m.wlock(r.locked)()
	if entry.ID == "" {
		entry.ID = engine.EntryID(uuid.NewString())
	}
	r.m.entries[entry.ID] = copyEntry(entry)
	return nil
}

func (r *entryRepo) Update(_ context.Context, entry *engine.TimeEntry) error {
	defer r.m.wlock(r.locked)()
	if _, ok := r.m.entries[entry.ID]; !ok {
		return &engine.NotFoundError{Kind: "time entry", ID: string(entry.ID)}
	}
	r.m.entries[entry.ID] = copyEntry(entry)
	return nil
}

func (r *entryRepo) UpdateStatus(_ context.Context, id engine.EntryID, from, to engine.ApprovalStatus, approver engine.EmployeeID, at time.Time, reason string) error {
	defer r.m.wlock(r.locked)()
	e, ok := r.m.entries[id]
	if !ok {
		return &engine.ApprovalTargetError{Kind: "time entry", ID: string(id)}
	}
	if e.Status != from {
		return engine.ErrAlreadyFinalized
	}
	e.Status = to
	e.ApprovedBy = approver
	e.ApprovedAt = &at
	e.UpdatedAt = at
	_ = reason // entries carry no rejection reason field
	return nil
}

// =============================================================================
// HOLIDAY REQUESTS
// =============================================================================

type requestRepo struct {
	m      *Memory
	locked bool
}

func (r *requestRepo) Get(_ context.Context, id engine.RequestID) (*engine.HolidayRequest, error) {
	defer r.m.rlock(r.locked)()
	req, ok := r.m.requests[id]
	if !ok {
		return nil, nil
	}
	cp := *req
	return &cp, nil
}

func (r *requestRepo) ListActiveByEmployee(_ context.Context, employeeID engine.EmployeeID) ([]*engine.HolidayRequest, error) {
	defer r.m.rlock(r.locked)()
	var out []*engine.HolidayRequest
	for _, req := range r.m.requests {
		if req.EmployeeID == employeeID && (req.Status == engine.StatusPending || req.Status == engine.StatusApproved) {
			cp := *req
			out = append(out, &cp)
		}
	}
	sortRequests(out)
	return out, nil
}

func (r *requestRepo) ListApprovedInRange(_ context.Context, employeeID engine.EmployeeID, from, to engine.Date) ([]*engine.HolidayRequest, error) {
	defer r.m.rlock(r.locked)()
	var out []*engine.HolidayRequest
	for _, req := range r.m.requests {
		if req.EmployeeID == employeeID && req.Status == engine.StatusApproved && req.Intersects(from, to) {
			cp := *req
			out = append(out, &cp)
		}
	}
	sortRequests(out)
	return out, nil
}

func (r *requestRepo) ListByEmployee(_ context.Context, employeeID engine.EmployeeID) ([]*engine.HolidayRequest, error) {
	defer r.m.rlock(r.locked)()
	var out []*engine.HolidayRequest
	for _, req := range r.m.requests {
		if req.EmployeeID == employeeID {
			cp := *req
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *requestRepo) Insert(_ context.Context, req *engine.HolidayRequest) error {
	defer r.m.wlock(r.locked)()
	if req.ID == "" {
		req.ID = engine.RequestID(uuid.NewString())
	}
	cp := *req
	r.m.requests[req.ID] = &cp
	return nil
}

func (r *requestRepo) UpdateStatus(_ context.Context, id engine.RequestID, from, to engine.ApprovalStatus, approver engine.EmployeeID, at time.Time, reason string) error {
	defer r.m.wlock(r.locked)()
	req, ok := r.m.requests[id]
	if !ok {
		return &engine.ApprovalTargetError{Kind: "holiday request", ID: string(id)}
	}
	if req.Status != from {
		return engine.ErrAlreadyFinalized
	}
	req.Status = to
	req.ApprovedBy = approver
	req.ApprovedAt = &at
	req.RejectionReason = reason
	req.UpdatedAt = at
	return nil
}

func sortRequests(reqs []*engine.HolidayRequest) {
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].StartDate.Before(reqs[j].StartDate) })
}

// =============================================================================
// HOLIDAY DEFINITIONS
// =============================================================================

type holidayRepo struct {
	m      *Memory
	locked bool
}

func (r *holidayRepo) YearExists(_ context.Context, year int, canton string) (bool, error) {
	defer r.m.rlock(r.locked)()
	for _, d := range r.m.holidays {
		if d.Year == year && (d.Canton == "" || d.Canton == canton) {
			return true, nil
		}
	}
	return false, nil
}

func (r *holidayRepo) InsertDefinitions(_ context.Context, defs []engine.HolidayDefinition) error {
	defer r.m.wlock(r.locked)()
	for _, d := range defs {
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		r.m.holidays = append(r.m.holidays, d)
	}
	return nil
}

func (r *holidayRepo) ListYear(_ context.Context, year int, canton string) ([]engine.HolidayDefinition, error) {
	defer r.m.rlock(r.locked)()
	var out []engine.HolidayDefinition
	for _, d := range r.m.holidays {
		if d.Year == year && d.Active && (d.Canton == "" || d.Canton == canton) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *holidayRepo) ListRange(_ context.Context, canton string, from, to engine.Date) ([]engine.HolidayDefinition, error) {
	defer r.m.rlock(r.locked)()
	var out []engine.HolidayDefinition
	for _, d := range r.m.holidays {
		if d.Active && d.WorkFree && (d.Canton == "" || d.Canton == canton) &&
			d.Date.AfterOrEqual(from) && d.Date.BeforeOrEqual(to) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// =============================================================================
// HOLIDAY TYPES
// =============================================================================

type typeRepo struct {
	m      *Memory
	locked bool
}

func (r *typeRepo) Get(_ context.Context, code string) (*engine.HolidayType, error) {
	defer r.m.rlock(r.locked)()
	t, ok := r.m.types[code]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *typeRepo) List(_ context.Context) ([]engine.HolidayType, error) {
	defer r.m.rlock(r.locked)()
	out := make([]engine.HolidayType, 0, len(r.m.types))
	for _, t := range r.m.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *typeRepo) Insert(_ context.Context, t engine.HolidayType) error {
	defer r.m.wlock(r.locked)()
	if _, exists := r.m.types[t.Code]; exists {
		return &engine.RuleError{Rule: "holiday type code", Detail: "code already exists: " + t.Code}
	}
	r.m.types[t.Code] = t
	return nil
}

// =============================================================================
// DIRECTORIES
// =============================================================================

type employeeRepo struct {
	m      *Memory
	locked bool
}

func (r *employeeRepo) Get(_ context.Context, id engine.EmployeeID) (*engine.Employee, error) {
	defer r.m.rlock(r.locked)()
	e, ok := r.m.employees[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (r *employeeRepo) List(_ context.Context) ([]*engine.Employee, error) {
	defer r.m.rlock(r.locked)()
	out := make([]*engine.Employee, 0, len(r.m.employees))
	for _, e := range r.m.employees {
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type projectRepo struct {
	m      *Memory
	locked bool
}

func (r *projectRepo) Get(_ context.Context, id engine.ProjectID) (*engine.Project, error) {
	defer r.m.rlock(r.locked)()
	p, ok := r.m.projects[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *projectRepo) List(_ context.Context) ([]*engine.Project, error) {
	defer r.m.rlock(r.locked)()
	out := make([]*engine.Project, 0, len(r.m.projects))
	for _, p := range r.m.projects {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
