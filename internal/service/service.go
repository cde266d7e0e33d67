package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Dan9191/float-report/internal/models"
	"github.com/Dan9191/float-report/internal/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const notifyTimeout = time.Minute

// Sources groups the three portals of a run
type Sources struct {
	V2   BalanceSource
	VAS  BalanceSource
	CIMB BalanceSource
}

// Service runs one reconciliation: extract, reconcile, report, notify, clean up
type Service struct {
	sources    Sources
	notifier   Notifier
	scratch    Scratch
	log        *logrus.Logger
	loc        *time.Location
	runTimeout time.Duration
	now        func() time.Time
}

// Option customises a Service
type Option func(*Service)

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService initializes a new service
func NewService(sources Sources, notifier Notifier, scratch Scratch, loc *time.Location,
	runTimeout time.Duration, log *logrus.Logger, opts ...Option) *Service {
	s := &Service{
		sources:    sources,
		notifier:   notifier,
		scratch:    scratch,
		log:        log,
		loc:        loc,
		runTimeout: runTimeout,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run performs one full reconciliation. Success is reported only when all
// three balances were obtained; the email outcome does not affect it
func (s *Service) Run(ctx context.Context) models.RunResult {
	run := models.RunResult{
		ID:        uuid.NewString(),
		StartedAt: s.clock(),
	}
	log := s.log.WithField("run_id", run.ID)

	runCtx := ctx
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	v2 := s.extract(runCtx, log, s.sources.V2)
	vas := s.extract(runCtx, log, s.sources.VAS)
	cimb := s.extract(runCtx, log, s.sources.CIMB)
	if runCtx.Err() != nil {
		log.Warnf("Run watchdog expired after %s: %v", s.runTimeout, runCtx.Err())
	}

	run.Result = Reconcile(v2, vas, cimb, s.clock())
	run.Report = RenderReport(run.Result, s.location())
	log.Info("Report generated:")
	log.Info(run.Report.Text)

	// the watchdog may be spent, give the email its own budget
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	run.Delivery = s.notifier.Send(notifyCtx, run.Result, run.Report)
	cancel()

	if s.scratch != nil {
		s.scratch.Purge()
	}

	run.Success = run.Result.Complete
	run.FinishedAt = s.clock()
	log.WithFields(logrus.Fields{
		"success":  run.Success,
		"delivery": run.Delivery.Outcome,
		"took":     run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String(),
	}).Info("Run finished")
	return run
}

func (s *Service) extract(ctx context.Context, log *logrus.Entry, src BalanceSource) (b models.Balance) {
	name := src.Name()
	log.Infof("Extracting %s balance...", name)

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("%s extraction panicked: %v", name, r)
			b = models.NoBalance
		}
	}()

	b = src.Extract(ctx)
	if !b.Valid {
		log.Errorf("Could not extract %s balance", name)
		return models.NoBalance
	}
	if b.ObtainedAt.IsZero() {
		b = b.At(s.clock())
	}
	log.WithField("status", "success").Infof("Extracted %s Balance: %s %s at %s",
		name, utils.FormatAmount(b.Amount), models.Currency, b.ObtainedAt.In(s.location()).Format(timestampLayout))
	return b
}

func (s *Service) clock() time.Time {
	return s.now().In(s.location())
}

func (s *Service) location() *time.Location {
	if s.loc == nil {
		return time.UTC
	}
	return s.loc
}

// Describe summarizes a run in one line
func Describe(r models.RunResult) string {
	if r.Success {
		return fmt.Sprintf("run %s succeeded, residual %s %s", r.ID, utils.FormatAmount(r.Result.Residual.Decimal), models.Currency)
	}
	return fmt.Sprintf("run %s failed, balances incomplete", r.ID)
}
