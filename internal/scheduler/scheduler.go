// Package scheduler runs the background jobs: the daily audit and the
// periodic sweep of expired test sessions.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/abhisek/skillcert/internal/audit"
	"github.com/abhisek/skillcert/internal/logging"
)

const (
	DefaultAuditSchedule = "0 3 * * *"
	DefaultSweepInterval = 30 * time.Second
)

type Auditor interface {
	RunAuditCheck(ctx context.Context, now time.Time) (audit.Report, error)
}

type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

type Options struct {
	Auditor Auditor
	Sweeper Sweeper

	// AuditSchedule is a standard five-field cron spec or descriptor.
	AuditSchedule string
	SweepInterval time.Duration
	Location      *time.Location

	Logger logrus.FieldLogger
	Now    func() time.Time
}

// Scheduler owns a cron instance. A job still running when its next tick
// arrives is skipped, so audits never overlap.
type Scheduler struct {
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	auditor Auditor
	sweeper Sweeper
	log     logrus.FieldLogger
	now     func() time.Time

	auditID cron.EntryID
}

// New validates the schedules and registers the jobs. Nothing runs until
// Start.
func New(opts Options) (*Scheduler, error) {
	if opts.Auditor == nil || opts.Sweeper == nil {
		return nil, fmt.Errorf("scheduler: auditor and sweeper are required")
	}
	if opts.AuditSchedule == "" {
		opts.AuditSchedule = DefaultAuditSchedule
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		ctx:     ctx,
		cancel:  cancel,
		auditor: opts.Auditor,
		sweeper: opts.Sweeper,
		log:     opts.Logger,
		now:     opts.Now,
	}
	cronLog := cron.PrintfLogger(opts.Logger.WithField("component", "cron"))
	s.cron = cron.New(
		cron.WithLocation(opts.Location),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)

	id, err := s.cron.AddFunc(opts.AuditSchedule, s.runAudit)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("audit schedule %q: %w", opts.AuditSchedule, err)
	}
	s.auditID = id
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", opts.SweepInterval), s.runSweep); err != nil {
		cancel()
		return nil, fmt.Errorf("sweep interval %s: %w", opts.SweepInterval, err)
	}
	return s, nil
}

// Start runs the jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.WithField("next_audit", s.NextAudit()).Info("scheduler started")
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// NextAudit is the next time the audit will run. Zero before Start.
func (s *Scheduler) NextAudit() time.Time {
	return s.cron.Entry(s.auditID).Next
}

func (s *Scheduler) runAudit() {
	rep, err := s.auditor.RunAuditCheck(s.ctx, s.now())
	if err != nil {
		s.log.WithError(err).Error("audit run failed")
		return
	}
	if err := rep.Err(); err != nil {
		s.log.WithError(err).Warn("audit finished with failures")
	}
}

func (s *Scheduler) runSweep() {
	if _, err := s.sweeper.Sweep(s.ctx); err != nil {
		s.log.WithError(err).Warn("session sweep failed")
	}
}
