// Package scheduler fires the daily run and the hourly retries that follow a
// failure, up to a daily cutoff
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Dan9191/float-report/internal/config"
	"github.com/Dan9191/float-report/internal/models"
	"github.com/Dan9191/float-report/internal/service"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const dateLayout = "2006-01-02"

// Phase of the daily cycle
type Phase int

const (
	Idle Phase = iota
	AwaitingScheduledRun
	RetryPending
	RetryWindowExpired
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case AwaitingScheduledRun:
		return "awaiting scheduled run"
	case RetryPending:
		return "retry pending"
	case RetryWindowExpired:
		return "retry window expired"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// State is everything the scheduler remembers between ticks. Dates are
// formatted in the policy location
type State struct {
	Phase             Phase
	LastSuccessDate   string
	LastScheduledDate string
	LastAttempt       time.Time
}

// Policy holds the wall-clock rules, times in minutes after midnight
type Policy struct {
	Location   *time.Location
	RunAt      int
	RetryUntil int
}

// NewPolicy builds a Policy from validated schedule settings
func NewPolicy(s config.Schedule) (Policy, error) {
	runAt, err := config.ParseClock(s.RunAt)
	if err != nil {
		return Policy{}, err
	}
	retryUntil, err := config.ParseClock(s.RetryUntil)
	if err != nil {
		return Policy{}, err
	}
	loc := s.Location
	if loc == nil {
		if loc, err = time.LoadLocation(s.Timezone); err != nil {
			return Policy{}, err
		}
	}
	return Policy{Location: loc, RunAt: runAt, RetryUntil: retryUntil}, nil
}

// Runner performs one reconciliation run
type Runner interface {
	Run(ctx context.Context) models.RunResult
}

// Scheduler drives a Runner according to a Policy
type Scheduler struct {
	policy Policy
	runner Runner
	log    *logrus.Logger

	mu    sync.Mutex
	state State
}

// NewScheduler creates a scheduler in the Idle phase
func NewScheduler(policy Policy, runner Runner, log *logrus.Logger) *Scheduler {
	return &Scheduler{policy: policy, runner: runner, log: log}
}

// State returns a copy of the current state
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Tick advances the scheduler's own state to now
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = s.Step(ctx, s.state, now)
}

// Step decides what to do at now and returns the next state. The only side
// effect is invoking the runner
func (s *Scheduler) Step(ctx context.Context, st State, now time.Time) State {
	now = now.In(s.policy.Location)
	today := now.Format(dateLayout)
	minute := now.Hour()*60 + now.Minute()

	switch {
	case st.Phase == Idle:
		st.Phase = AwaitingScheduledRun
	case st.Phase != AwaitingScheduledRun && st.LastScheduledDate != today:
		// a new day starts from a clean slate
		st.Phase = AwaitingScheduledRun
	}

	if minute == s.policy.RunAt && st.LastSuccessDate != today && st.LastScheduledDate != today {
		s.log.Infof("Starting scheduled daily run at %s", now.Format("2006-01-02 15:04:05"))
		st.LastScheduledDate = today
		return s.attempt(ctx, st, now, "Scheduled report")
	}

	if st.Phase != RetryPending {
		return st
	}
	if minute >= s.policy.RetryUntil {
		s.log.Warnf("Maximum retry window reached (after %s). Will not retry until next scheduled run.", clock(s.policy.RetryUntil))
		st.Phase = RetryWindowExpired
		return st
	}
	if now.Minute() == 0 && !hourKey(now).Equal(hourKey(st.LastAttempt.In(s.policy.Location))) {
		s.log.Infof("Retrying extraction at %s...", now.Format("15:04"))
		return s.attempt(ctx, st, now, "Retry attempt")
	}
	return st
}

func (s *Scheduler) attempt(ctx context.Context, st State, now time.Time, what string) State {
	res := s.runner.Run(ctx)
	st.LastAttempt = now
	if res.Success {
		st.LastSuccessDate = now.Format(dateLayout)
		st.Phase = AwaitingScheduledRun
		s.log.WithField("status", "success").Infof("%s completed successfully: %s", what, service.Describe(res))
		return st
	}
	st.Phase = RetryPending
	s.log.Warnf("%s failed: %s. Will retry in one hour.", what, service.Describe(res))
	return st
}

// Loop ticks every poll interval until ctx is cancelled, then waits for an
// in-flight run to finish. rotate, when set, runs at midnight
func (s *Scheduler) Loop(ctx context.Context, poll time.Duration, rotate func() error) error {
	logger := cron.PrintfLogger(s.log)
	c := cron.New(
		cron.WithLocation(s.policy.Location),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	if _, err := c.AddFunc(fmt.Sprintf("@every %s", poll), func() { s.Tick(ctx, time.Now()) }); err != nil {
		return fmt.Errorf("failed to schedule tick: %w", err)
	}
	if rotate != nil {
		_, err := c.AddFunc("0 0 * * *", func() {
			if err := rotate(); err != nil {
				s.log.Errorf("Failed to rotate log file: %v", err)
			}
		})
		if err != nil {
			return fmt.Errorf("failed to schedule log rotation: %w", err)
		}
	}

	s.log.Infof("Scheduler started: daily run at %s %s, retries until %s, checking every %s",
		clock(s.policy.RunAt), s.policy.Location, clock(s.policy.RetryUntil), poll)
	s.Tick(ctx, time.Now())
	c.Start()

	<-ctx.Done()
	s.log.Info("Scheduler stopping, waiting for running jobs...")
	<-c.Stop().Done()
	s.log.Info("Scheduler stopped")
	return nil
}

func hourKey(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

func clock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
