/*
Package calendar computes Swiss public holidays and working-day arithmetic.

PURPOSE:
  Classifies any date as work-free or not and counts working days between
  dates. Fixed holidays come from month/day rules; movable holidays are
  offsets from Easter Sunday (Good Friday = Easter-2, Easter Monday =
  Easter+1, Ascension = Easter+39, Whit Monday = Easter+50).

GENERATION:
  Holiday definitions are generated once per (year, canton) and persisted
  through engine.HolidayStore, so later lookups are plain range queries.
  Generation is idempotent: if definitions for the year already exist the
  call is a no-op and reports zero rows created. A periodic scheduler
  (api/scheduler.go) pre-generates upcoming years.

CANTONS:
  Rules with an empty canton list are national. Canton-specific rules are
  merged in for the calendar's configured canton. The default canton is ZH.

SEE ALSO:
  - easter.go: Gregorian Easter computation
  - summary: consumes IsHoliday and WorkFreeDays for expected hours
*/
package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warp/timekeeping-engine/engine"
)

// =============================================================================
// HOLIDAY RULES
// =============================================================================

// rule describes one holiday. Fixed rules use Month/Day; movable rules use
// EasterOffset in days relative to Easter Sunday.
type rule struct {
	Name         string
	Month        time.Month
	Day          int
	EasterOffset int
	Movable      bool
	WorkFree     bool
	Cantons      []string // empty = national
}

var swissRules = []rule{
	// National, fixed
	{Name: "Neujahr", Month: time.January, Day: 1, WorkFree: true},
	{Name: "Bundesfeier", Month: time.August, Day: 1, WorkFree: true},
	{Name: "Weihnachten", Month: time.December, Day: 25, WorkFree: true},
	{Name: "Stephanstag", Month: time.December, Day: 26, WorkFree: true},

	// National, Easter-relative
	{Name: "Karfreitag", EasterOffset: -2, Movable: true, WorkFree: true},
	{Name: "Ostermontag", EasterOffset: 1, Movable: true, WorkFree: true},
	{Name: "Auffahrt", EasterOffset: 39, Movable: true, WorkFree: true},
	{Name: "Pfingstmontag", EasterOffset: 50, Movable: true, WorkFree: true},

	// Canton extras
	{Name: "Berchtoldstag", Month: time.January, Day: 2, WorkFree: true, Cantons: []string{"ZH", "BE", "AG", "TG"}},
	{Name: "Tag der Arbeit", Month: time.May, Day: 1, WorkFree: true, Cantons: []string{"ZH", "BS", "BL", "SH", "TG", "TI", "NE", "JU"}},
	{Name: "Fronleichnam", EasterOffset: 60, Movable: true, WorkFree: true, Cantons: []string{"LU", "ZG", "TI", "VS", "FR", "JU", "NE", "SO"}},
}

func (r rule) appliesTo(canton string) bool {
	if len(r.Cantons) == 0 {
		return true
	}
	for _, c := range r.Cantons {
		if c == canton {
			return true
		}
	}
	return false
}

func (r rule) dateIn(year int) engine.Date {
	if r.Movable {
		return EasterSunday(year).AddDays(r.EasterOffset)
	}
	return engine.NewDate(year, r.Month, r.Day)
}

// =============================================================================
// CALENDAR
// =============================================================================

// Calendar classifies dates for one canton, persisting generated years
// through the holiday store.
type Calendar struct {
	canton   string
	holidays engine.HolidayStore
	log      *logrus.Logger
}

func New(canton string, holidays engine.HolidayStore, log *logrus.Logger) *Calendar {
	if canton == "" {
		canton = "ZH"
	}
	if log == nil {
		log = logrus.New()
	}
	return &Calendar{canton: canton, holidays: holidays, log: log}
}

func (c *Calendar) Canton() string { return c.canton }

// WithHolidays returns a copy of the calendar bound to another holiday
// store. Services use it to route lookups through an open transaction:
// the memory store's lock is not reentrant, so a calendar built over the
// non-transactional store must never be called while a transaction holds
// the write lock.
func (c *Calendar) WithHolidays(holidays engine.HolidayStore) *Calendar {
	cp := *c
	cp.holidays = holidays
	return &cp
}

// Generate computes and persists all holiday definitions for one year.
// Idempotent: returns (0, nil) when the year already exists.
func (c *Calendar) Generate(ctx context.Context, year int) (int, error) {
	exists, err := c.holidays.YearExists(ctx, year, c.canton)
	if err != nil {
		return 0, fmt.Errorf("checking holiday year %d: %w", year, err)
	}
	if exists {
		return 0, nil
	}

	defs := c.compute(year)
	if err := c.holidays.InsertDefinitions(ctx, defs); err != nil {
		return 0, fmt.Errorf("storing holiday year %d: %w", year, err)
	}

	c.log.WithFields(logrus.Fields{
		"year":   year,
		"canton": c.canton,
		"count":  len(defs),
	}).Info("generated holiday definitions")

	return len(defs), nil
}

// compute builds the definitions for a year without touching the store.
func (c *Calendar) compute(year int) []engine.HolidayDefinition {
	var defs []engine.HolidayDefinition
	for _, r := range swissRules {
		if !r.appliesTo(c.canton) {
			continue
		}
		canton := ""
		if len(r.Cantons) > 0 {
			canton = c.canton
		}
		defs = append(defs, engine.HolidayDefinition{
			Year:     year,
			Date:     r.dateIn(year),
			Name:     r.Name,
			Canton:   canton,
			Movable:  r.Movable,
			Editable: false,
			Active:   true,
			WorkFree: r.WorkFree,
			TypeCode: engine.TypePublic,
		})
	}
	return defs
}

// HolidaysForYear returns all active definitions for the year, generating
// and persisting them first if this is the year's first lookup.
func (c *Calendar) HolidaysForYear(ctx context.Context, year int) ([]engine.HolidayDefinition, error) {
	if _, err := c.Generate(ctx, year); err != nil {
		return nil, err
	}
	return c.holidays.ListYear(ctx, year, c.canton)
}

// IsHoliday reports whether the date is an active work-free holiday.
func (c *Calendar) IsHoliday(ctx context.Context, d engine.Date) (bool, error) {
	days, err := c.WorkFreeDays(ctx, d, d)
	if err != nil {
		return false, err
	}
	_, ok := days[d.String()]
	return ok, nil
}

// WorkFreeDays returns the active work-free holidays in [from, to], keyed
// by ISO date string. Years touched by the range are generated on demand.
func (c *Calendar) WorkFreeDays(ctx context.Context, from, to engine.Date) (map[string]engine.HolidayDefinition, error) {
	for year := from.Year(); year <= to.Year(); year++ {
		if _, err := c.Generate(ctx, year); err != nil {
			return nil, err
		}
	}
	defs, err := c.holidays.ListRange(ctx, c.canton, from, to)
	if err != nil {
		return nil, err
	}
	out := make(map[string]engine.HolidayDefinition, len(defs))
	for _, d := range defs {
		if d.Active && d.WorkFree {
			out[d.Date.String()] = d
		}
	}
	return out, nil
}

// WorkingDaysBetween counts days in [from, to] inclusive that are neither
// Saturday, Sunday nor an active work-free holiday. Returns 0 when the
// range is inverted.
func (c *Calendar) WorkingDaysBetween(ctx context.Context, from, to engine.Date) (int, error) {
	if to.Before(from) {
		return 0, nil
	}
	holidays, err := c.WorkFreeDays(ctx, from, to)
	if err != nil {
		return 0, err
	}
	count := 0
	for d := from; d.BeforeOrEqual(to); d = d.AddDays(1) {
		if d.IsWeekend() {
			continue
		}
		if _, ok := holidays[d.String()]; ok {
			continue
		}
		count++
	}
	return count, nil
}
