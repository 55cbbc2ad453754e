package api_test

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/warp/timekeeping-engine/api"
	"github.com/warp/timekeeping-engine/calendar"
	"github.com/warp/timekeeping-engine/store/memory"
)

func TestHolidayScheduler_GeneratesLookaheadYears(t *testing.T) {
	// GIVEN: A scheduler with a two year look-ahead
	// WHEN: Starting it
	// THEN: The first check generates the current year plus two more
	store := memory.New()
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	cal := calendar.New("ZH", store.Holidays(), log)

	scheduler := api.NewHolidayScheduler(cal, log, time.Hour).WithLookahead(2)
	scheduler.Start()
	defer scheduler.Stop()

	year := time.Now().Year()
	assert.Eventually(t, func() bool {
		for y := year; y <= year+2; y++ {
			exists, err := store.Holidays().YearExists(context.Background(), y, "ZH")
			if err != nil || !exists {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHolidayScheduler_LookaheadFloor(t *testing.T) {
	// Zero or negative look-ahead falls back to one year ahead
	store := memory.New()
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	cal := calendar.New("ZH", store.Holidays(), log)

	scheduler := api.NewHolidayScheduler(cal, log, time.Hour).WithLookahead(0)
	scheduler.Start()
	defer scheduler.Stop()

	year := time.Now().Year()
	assert.Eventually(t, func() bool {
		exists, err := store.Holidays().YearExists(context.Background(), year+1, "ZH")
		return err == nil && exists
	}, 2*time.Second, 10*time.Millisecond)
}
