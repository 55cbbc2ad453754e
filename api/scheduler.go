/*
scheduler.go - Background holiday pre-generation

PURPOSE:
  Periodically makes sure holiday definitions exist for the current year
  and a configurable number of years ahead, so date classification never
  pays the generation cost on a request path and a new year is ready
  before January 1st.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - Each tick generates the current year plus the look-ahead years;
    generation is idempotent, so most ticks are no-ops
  - Stop() blocks until the goroutine has exited

USAGE:
  scheduler := NewHolidayScheduler(cal, log, 24*time.Hour)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - calendar/calendar.go: Generate (the idempotent worker)
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warp/timekeeping-engine/calendar"
)

// HolidayScheduler keeps upcoming holiday years generated.
type HolidayScheduler struct {
	cal       *calendar.Calendar
	log       *logrus.Logger
	interval  time.Duration
	lookahead int

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewHolidayScheduler(cal *calendar.Calendar, log *logrus.Logger, interval time.Duration) *HolidayScheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if log == nil {
		log = logrus.New()
	}
	return &HolidayScheduler{
		cal:       cal,
		log:       log,
		interval:  interval,
		lookahead: 1,
		stop:      make(chan struct{}),
	}
}

// WithLookahead sets how many years beyond the current one each check
// keeps generated. Values below 1 fall back to 1.
func (s *HolidayScheduler) WithLookahead(years int) *HolidayScheduler {
	if years >= 1 {
		s.lookahead = years
	}
	return s
}

// Start begins the scheduler and runs one check immediately.
func (s *HolidayScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ticker = time.NewTicker(s.interval)
	s.wg.Add(1)
	go s.run()

	s.log.WithField("interval", s.interval).Info("holiday scheduler started")
}

// Stop stops the scheduler and waits for the goroutine to exit.
func (s *HolidayScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		s.log.Info("holiday scheduler stopped")
	}
}

func (s *HolidayScheduler) run() {
	defer s.wg.Done()

	s.check()
	for {
		select {
		case <-s.ticker.C:
			s.check()
		case <-s.stop:
			return
		}
	}
}

// check generates the current year and the look-ahead horizon. Errors
// are logged, never fatal: the next tick retries.
func (s *HolidayScheduler) check() {
	ctx := context.Background()
	year := time.Now().Year()

	for y := year; y <= year+s.lookahead; y++ {
		created, err := s.cal.Generate(ctx, y)
		if err != nil {
			s.log.WithError(err).WithField("year", y).Error("holiday generation failed")
			continue
		}
		if created > 0 {
			s.log.WithFields(logrus.Fields{"year": y, "created": created}).Info("pre-generated holiday year")
		}
	}
}
