package scheduler

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/Dan9191/float-report/internal/config"
	"github.com/Dan9191/float-report/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ict = time.FixedZone("ICT", 7*60*60)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// scriptedRunner returns the queued outcomes in order, then failures
type scriptedRunner struct {
	outcomes []bool
	now      *time.Time
	calls    []string
}

func (r *scriptedRunner) Run(context.Context) models.RunResult {
	r.calls = append(r.calls, r.now.Format("01-02 15:04:05"))
	ok := false
	if len(r.outcomes) > 0 {
		ok, r.outcomes = r.outcomes[0], r.outcomes[1:]
	}
	return models.RunResult{ID: "test", Success: ok}
}

func defaultPolicy() Policy {
	return Policy{Location: ict, RunAt: 2*60 + 1, RetryUntil: 9*60 + 1}
}

// simulate ticks every 15s over [from, to)
func simulate(s *Scheduler, r *scriptedRunner, from, to time.Time) {
	now := from
	r.now = &now
	for ; now.Before(to); now = now.Add(15 * time.Second) {
		s.Tick(context.Background(), now)
	}
}

func TestStep_FailingDayRetriesHourlyUntilCutoff(t *testing.T) {
	// every attempt on day one fails, the next day's scheduled run succeeds
	r := &scriptedRunner{outcomes: []bool{false, false, false, false, false, false, false, false, true}}
	s := NewScheduler(defaultPolicy(), r, quietLogger())

	simulate(s, r, time.Date(2025, 6, 5, 23, 0, 0, 0, ict), time.Date(2025, 6, 6, 9, 1, 0, 0, ict))
	assert.Equal(t, []string{
		"06-06 02:01:00",
		"06-06 03:00:00",
		"06-06 04:00:00",
		"06-06 05:00:00",
		"06-06 06:00:00",
		"06-06 07:00:00",
		"06-06 08:00:00",
		"06-06 09:00:00",
	}, r.calls)
	assert.Equal(t, RetryPending, s.State().Phase)

	simulate(s, r, time.Date(2025, 6, 6, 9, 1, 0, 0, ict), time.Date(2025, 6, 7, 0, 0, 0, 0, ict))
	assert.Len(t, r.calls, 8, "no retries after the cutoff")
	assert.Equal(t, RetryWindowExpired, s.State().Phase)

	simulate(s, r, time.Date(2025, 6, 7, 0, 0, 0, 0, ict), time.Date(2025, 6, 7, 2, 1, 0, 0, ict))
	assert.Len(t, r.calls, 8)
	assert.Equal(t, AwaitingScheduledRun, s.State().Phase)

	simulate(s, r, time.Date(2025, 6, 7, 2, 1, 0, 0, ict), time.Date(2025, 6, 7, 12, 0, 0, 0, ict))
	require.Len(t, r.calls, 9)
	assert.Equal(t, "06-07 02:01:00", r.calls[8])

	st := s.State()
	assert.Equal(t, AwaitingScheduledRun, st.Phase)
	assert.Equal(t, "2025-06-07", st.LastSuccessDate)
}

func TestStep_RetrySuccessClearsRetry(t *testing.T) {
	r := &scriptedRunner{outcomes: []bool{false, true}}
	s := NewScheduler(defaultPolicy(), r, quietLogger())

	simulate(s, r, time.Date(2025, 6, 6, 2, 0, 0, 0, ict), time.Date(2025, 6, 6, 23, 59, 0, 0, ict))

	assert.Equal(t, []string{"06-06 02:01:00", "06-06 03:00:00"}, r.calls)
	st := s.State()
	assert.Equal(t, AwaitingScheduledRun, st.Phase)
	assert.Equal(t, "2025-06-06", st.LastSuccessDate)
	assert.Equal(t, "2025-06-06", st.LastScheduledDate)
}

func TestStep_SuccessRunsOncePerDay(t *testing.T) {
	r := &scriptedRunner{outcomes: []bool{true, true, true}}
	s := NewScheduler(defaultPolicy(), r, quietLogger())

	simulate(s, r, time.Date(2025, 6, 6, 0, 0, 0, 0, ict), time.Date(2025, 6, 8, 0, 0, 0, 0, ict))

	assert.Equal(t, []string{"06-06 02:01:00", "06-07 02:01:00"}, r.calls)
}

func TestStep_NoCatchUpAfterLateStart(t *testing.T) {
	r := &scriptedRunner{outcomes: []bool{true}}
	s := NewScheduler(defaultPolicy(), r, quietLogger())

	simulate(s, r, time.Date(2025, 6, 6, 5, 30, 0, 0, ict), time.Date(2025, 6, 7, 2, 0, 0, 0, ict))

	assert.Empty(t, r.calls)
	assert.Equal(t, AwaitingScheduledRun, s.State().Phase)
}

func TestStep_UsesPolicyLocation(t *testing.T) {
	r := &scriptedRunner{outcomes: []bool{true}}
	s := NewScheduler(defaultPolicy(), r, quietLogger())

	// 19:01 UTC is 02:01 in Bangkok
	now := time.Date(2025, 6, 5, 19, 1, 0, 0, time.UTC)
	r.now = &now
	st := s.Step(context.Background(), State{}, now)

	assert.Len(t, r.calls, 1)
	assert.Equal(t, "2025-06-06", st.LastSuccessDate)
}

func at(hour, min, sec int) time.Time {
	return time.Date(2025, 6, 6, hour, min, sec, 0, ict)
}

func TestStep_RetryOnlyOnTheHour(t *testing.T) {
	tests := []struct {
		name      string
		outcomes  []bool
		ticks     []time.Time
		wantCalls []string
		wantPhase Phase
	}{
		{
			// the scheduled run overran 03:00, so its ticks were skipped
			name:      "overrun past the hour waits for the next boundary",
			ticks:     []time.Time{at(2, 1, 0), at(3, 27, 15), at(3, 59, 45), at(4, 0, 0), at(4, 0, 15)},
			wantCalls: []string{"06-06 02:01:00", "06-06 04:00:00"},
			wantPhase: RetryPending,
		},
		{
			name:      "retry finishing after the next hour starts",
			ticks:     []time.Time{at(2, 1, 0), at(3, 0, 0), at(4, 10, 15), at(4, 59, 45), at(5, 0, 0)},
			wantCalls: []string{"06-06 02:01:00", "06-06 03:00:00", "06-06 05:00:00"},
			wantPhase: RetryPending,
		},
		{
			name:      "late tick inside the hour still counts",
			ticks:     []time.Time{at(2, 1, 0), at(3, 0, 40), at(3, 0, 55)},
			wantCalls: []string{"06-06 02:01:00", "06-06 03:00:40"},
			wantPhase: RetryPending,
		},
		{
			name:      "missed 09:00 leaves no retry before the cutoff",
			ticks:     []time.Time{at(2, 1, 0), at(8, 0, 0), at(8, 59, 45), at(9, 1, 0), at(10, 0, 0)},
			wantCalls: []string{"06-06 02:01:00", "06-06 08:00:00"},
			wantPhase: RetryWindowExpired,
		},
		{
			name:      "retry success stops further retries",
			outcomes:  []bool{false, true},
			ticks:     []time.Time{at(2, 1, 0), at(3, 12, 0), at(4, 0, 0), at(5, 0, 0)},
			wantCalls: []string{"06-06 02:01:00", "06-06 04:00:00"},
			wantPhase: AwaitingScheduledRun,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &scriptedRunner{outcomes: tt.outcomes}
			s := NewScheduler(defaultPolicy(), r, quietLogger())

			var now time.Time
			r.now = &now
			for _, now = range tt.ticks {
				s.Tick(context.Background(), now)
			}

			assert.Equal(t, tt.wantCalls, r.calls)
			assert.Equal(t, tt.wantPhase, s.State().Phase)
		})
	}
}

func TestStep_NewDayClearsPreviousPhase(t *testing.T) {
	s := NewScheduler(defaultPolicy(), &scriptedRunner{}, quietLogger())

	for _, phase := range []Phase{RetryWindowExpired, RetryPending} {
		yesterday := State{Phase: phase, LastScheduledDate: "2025-06-05", LastAttempt: time.Date(2025, 6, 5, 9, 0, 0, 0, ict)}
		st := s.Step(context.Background(), yesterday, at(0, 0, 0))
		assert.Equal(t, AwaitingScheduledRun, st.Phase, phase.String())
	}

	sameDay := State{Phase: RetryWindowExpired, LastScheduledDate: "2025-06-06"}
	st := s.Step(context.Background(), sameDay, at(12, 0, 0))
	assert.Equal(t, RetryWindowExpired, st.Phase)
}

func TestStep_IdleBecomesAwaiting(t *testing.T) {
	s := NewScheduler(defaultPolicy(), &scriptedRunner{}, quietLogger())
	st := s.Step(context.Background(), State{}, time.Date(2025, 6, 6, 12, 0, 0, 0, ict))
	assert.Equal(t, AwaitingScheduledRun, st.Phase)
}

func TestNewPolicy(t *testing.T) {
	p, err := NewPolicy(config.Schedule{Timezone: "Asia/Bangkok", RunAt: "02:01", RetryUntil: "09:01"})
	require.NoError(t, err)
	assert.Equal(t, 121, p.RunAt)
	assert.Equal(t, 541, p.RetryUntil)
	assert.Equal(t, "Asia/Bangkok", p.Location.String())

	_, err = NewPolicy(config.Schedule{Timezone: "Asia/Bangkok", RunAt: "2am", RetryUntil: "09:01"})
	assert.Error(t, err)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "retry pending", RetryPending.String())
	assert.Equal(t, "phase(9)", Phase(9).String())
}
