// Package jobs runs the time-driven operations: the weekly booking reset,
// the reset reminder, the equipment sweep and refresh token cleanup. The
// same Tasks back both the in-process gocron scheduler and clubctl.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/iliyamo/sportsclub/internal/service"
	"github.com/iliyamo/sportsclub/internal/slot"
)

var errNoOccurrence = errors.New("reset rule has no further occurrence")

var defaultSchedule = func() ResetSchedule {
	r, err := ParseResetRule(DefaultResetRule)
	if err != nil {
		panic(err)
	}
	return r
}()

type TokenPurger interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// Tasks are the job bodies.
type Tasks struct {
	Sweeper *service.Sweeper
	Tokens  TokenPurger
	Log     *zap.Logger
	Now     func() time.Time
	// Rule schedules the reset job and dates the reminder. Nil means
	// DefaultResetRule.
	Rule *ResetSchedule
}

func (t *Tasks) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func (t *Tasks) schedule() ResetSchedule {
	if t.Rule != nil {
		return *t.Rule
	}
	return defaultSchedule
}

// NextReset returns the first reset after now.
func (t *Tasks) NextReset() (time.Time, error) {
	return t.schedule().Next(t.now())
}

// Reset cancels every booking that has not started yet. Bookings already
// under way or finished are left as they are.
func (t *Tasks) Reset(ctx context.Context) (int64, error) {
	return t.Sweeper.Reset(ctx, t.now())
}

// Remind notifies coaches when the next reset is ReminderLeadDays away.
// sent is false on days that are not reminder days.
func (t *Tasks) Remind(ctx context.Context) (sent bool, err error) {
	now := t.now()
	next, err := t.schedule().Next(now)
	if err != nil {
		return false, err
	}
	if civilDaysBetween(now, next) != ReminderLeadDays {
		return false, nil
	}
	n := t.Sweeper.RemindReset(ctx, next)
	t.Log.Info("reset reminder sent", zap.Time("reset_at", next), zap.Int("coaches", n))
	return true, nil
}

func (t *Tasks) Sweep(ctx context.Context) (service.SweepResult, error) {
	return t.Sweeper.ReleaseElapsed(ctx, t.now())
}

func (t *Tasks) PurgeTokens(ctx context.Context) (int64, error) {
	if t.Tokens == nil {
		return 0, nil
	}
	return t.Tokens.PurgeExpired(ctx, t.now())
}

type Config struct {
	ReminderCron  string
	SweepInterval time.Duration
	PurgeInterval time.Duration
	// Timeout bounds a single run of any job.
	Timeout time.Duration
}

// Scheduler wraps a gocron scheduler running in club time.
type Scheduler struct {
	s     gocron.Scheduler
	tasks *Tasks
	cfg   Config
	log   *zap.Logger
}

func NewScheduler(cfg Config, tasks *Tasks, log *zap.Logger) (*Scheduler, error) {
	if cfg.ReminderCron == "" {
		cfg.ReminderCron = "0 8 * * *"
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 10 * time.Minute
	}
	if cfg.PurgeInterval <= 0 {
		cfg.PurgeInterval = 6 * time.Hour
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if tasks.Log == nil {
		tasks.Log = log
	}

	s, err := gocron.NewScheduler(gocron.WithLocation(slot.Location))
	if err != nil {
		return nil, fmt.Errorf("new scheduler: %w", err)
	}
	sch := &Scheduler{s: s, tasks: tasks, cfg: cfg, log: log}

	defs := []struct {
		name string
		def  gocron.JobDefinition
		run  func(context.Context) error
	}{
		{"bookings-reset", tasks.schedule().jobDefinition(), func(ctx context.Context) error {
			_, err := tasks.Reset(ctx)
			return err
		}},
		{"reset-reminder", gocron.CronJob(cfg.ReminderCron, false), func(ctx context.Context) error {
			_, err := tasks.Remind(ctx)
			return err
		}},
		{"equipment-sweep", gocron.DurationJob(cfg.SweepInterval), func(ctx context.Context) error {
			_, err := tasks.Sweep(ctx)
			return err
		}},
		{"token-purge", gocron.DurationJob(cfg.PurgeInterval), func(ctx context.Context) error {
			n, err := tasks.PurgeTokens(ctx)
			if n > 0 {
				log.Info("expired refresh tokens purged", zap.Int64("deleted", n))
			}
			return err
		}},
	}
	for _, d := range defs {
		if _, err := s.NewJob(d.def, gocron.NewTask(sch.wrap(d.name, d.run)),
			gocron.WithName(d.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			_ = s.Shutdown()
			return nil, fmt.Errorf("schedule %s: %w", d.name, err)
		}
	}
	return sch, nil
}

func (s *Scheduler) wrap(name string, run func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
		defer cancel()
		start := time.Now()
		if err := run(ctx); err != nil {
			s.log.Error("job failed", zap.String("job", name), zap.Error(err))
			return
		}
		s.log.Debug("job finished", zap.String("job", name), zap.Duration("took", time.Since(start)))
	}
}

// Jobs reports the registered job names.
func (s *Scheduler) Jobs() []string {
	var names []string
	for _, j := range s.s.Jobs() {
		names = append(names, j.Name())
	}
	return names
}

func (s *Scheduler) Start() {
	s.s.Start()
	s.log.Info("job scheduler started", zap.Strings("jobs", s.Jobs()))
}

func (s *Scheduler) Shutdown() error { return s.s.Shutdown() }
