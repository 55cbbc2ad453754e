/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the timekeeping engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse environment configuration
  2. Initialize store (SQLite, or in-memory with -memory)
  3. Wire calendar, services, workflow and aggregator
  4. Configure HTTP router and start the holiday scheduler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -memory  Use the in-memory store instead of SQLite. Data is lost on
           exit; intended for demos and local frontend development.

ENVIRONMENT:
  TIMEKEEPING_HOST, TIMEKEEPING_PORT, TIMEKEEPING_DB_PATH,
  TIMEKEEPING_CANTON, TIMEKEEPING_HOLIDAY_CHECK_INTERVAL,
  TIMEKEEPING_HOLIDAY_LOOKAHEAD_YEARS, TIMEKEEPING_LOG_LEVEL.
  See config/config.go for defaults.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the holiday scheduler
  4. Close the database connection

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Environment settings
*/
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/warp/timekeeping-engine/absence"
	"github.com/warp/timekeeping-engine/api"
	"github.com/warp/timekeeping-engine/approval"
	"github.com/warp/timekeeping-engine/calendar"
	"github.com/warp/timekeeping-engine/config"
	"github.com/warp/timekeeping-engine/engine"
	"github.com/warp/timekeeping-engine/store/memory"
	"github.com/warp/timekeeping-engine/store/sqlite"
	"github.com/warp/timekeeping-engine/summary"
	"github.com/warp/timekeeping-engine/tracking"
)

func main() {
	useMemory := flag.Bool("memory", false, "use the in-memory store (data lost on exit)")
	flag.Parse()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	// Store
	var (
		store     engine.Store
		directory api.Directory
		closeFn   func() error
	)
	if *useMemory {
		mem := memory.New()
		store, directory = mem, mem
		closeFn = func() error { return nil }
		log.Warn("using in-memory store, data will not survive a restart")
	} else {
		db, err := sqlite.New(cfg.DBPath)
		if err != nil {
			log.WithError(err).Fatal("failed to initialize database")
		}
		store, directory = db, db
		closeFn = db.Close
		log.WithField("path", cfg.DBPath).Info("sqlite store ready")
	}

	// Domain wiring
	cal := calendar.New(cfg.Canton, store.Holidays(), log)
	expected := summary.NewExpectedHours(cal, store.HolidayTypes())

	handler := &api.Handler{
		Store:     store,
		Tracking:  tracking.NewService(store, cal, log),
		Absence:   absence.NewService(store, cal, log),
		Approval:  approval.NewWorkflow(store, log),
		Summary:   summary.NewAggregator(store, cal, expected),
		Calendar:  cal,
		Directory: directory,
		Log:       log,
	}

	scheduler := api.NewHolidayScheduler(cal, log, cfg.HolidayCheckInterval).
		WithLookahead(cfg.HolidayLookaheadYears)
	scheduler.Start()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"addr":   cfg.Addr(),
			"canton": cfg.Canton,
		}).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("forced shutdown")
	}

	scheduler.Stop()
	if err := closeFn(); err != nil {
		log.WithError(err).Error("closing store")
	}

	log.Info("server stopped")
}
