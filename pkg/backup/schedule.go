package backup

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"backupmon/pkg/log"

	"github.com/robfig/cron/v3"
)

const (
	IntervalDaily  = "daily"
	IntervalHourly = "hourly"
)

// ErrInvalidSchedule is returned for an interval that is neither daily,
// hourly nor a positive number of minutes.
var ErrInvalidSchedule = errors.New("invalid backup schedule")

// ScheduleSpec turns an interval ("daily", "hourly" or minutes) and the HH:MM
// of the daily run into a cron spec.
func ScheduleSpec(interval, at string) (string, error) {
	switch interval {
	case IntervalDaily:
		t, err := time.Parse("15:04", at)
		if err != nil {
			return "", fmt.Errorf("%w: time %q", ErrInvalidSchedule, at)
		}
		return fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour()), nil
	case IntervalHourly:
		return "@every 1h", nil
	}

	minutes, err := strconv.Atoi(interval)
	if err != nil || minutes < 1 {
		return "", fmt.Errorf("%w: interval %q", ErrInvalidSchedule, interval)
	}
	return fmt.Sprintf("@every %dm", minutes), nil
}

// Scheduler runs backups once at start, then on a cron schedule.
type Scheduler struct {
	runner   *Runner
	schedule cron.Schedule
	spec     string
}

// NewScheduler creates a scheduler for runner on a standard cron spec.
func NewScheduler(runner *Runner, spec string) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	return &Scheduler{runner: runner, schedule: schedule, spec: spec}, nil
}

// Next returns the first scheduled run after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// Run backs up immediately, then on schedule until ctx is done. A run still in
// progress when the next one is due makes that one skip.
func (s *Scheduler) Run(ctx context.Context) {
	logger := cronLogger{}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.SkipIfStillRunning(logger)))
	c.Schedule(s.schedule, cron.FuncJob(func() { s.runOnce(ctx) }))

	log.Info().Str("schedule", s.spec).Msg("Running initial backup")
	s.runOnce(ctx)

	c.Start()
	log.Info().Str("schedule", s.spec).Time("next", s.Next(time.Now())).Msg("Backup scheduler started")

	<-ctx.Done()
	<-c.Stop().Done()
	log.Info().Msg("Backup scheduler stopped")
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.runner.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Backup run failed")
	}
}

// cronLogger routes cron's logging to zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
