// Package audit implements the decay job: once a skill's audit deadline has
// passed, holders who did not renew inside the audit window are debuffed to
// level zero.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/abhisek/skillcert/internal/ledger"
	"github.com/abhisek/skillcert/internal/logging"
	"github.com/abhisek/skillcert/internal/metrics"
	"github.com/abhisek/skillcert/internal/store"
)

// Ledger is the part of the confirmation ledger the audit reads and appends to.
type Ledger interface {
	Pairs(ctx context.Context) ([]store.Pair, error)
	LatestEvent(ctx context.Context, userID, skillID string) (*ledger.Event, error)
	AppendEvent(ctx context.Context, userID, skillID, skillVersion string, typ ledger.EventType, level int) (ledger.Event, error)
}

type Options struct {
	Skills  store.SkillRepo
	Ledger  Ledger
	Logger  logrus.FieldLogger
	Metrics *metrics.Metrics
}

// Auditor runs RunAuditCheck. It holds no state between runs.
type Auditor struct {
	skills  store.SkillRepo
	ledger  Ledger
	log     logrus.FieldLogger
	metrics *metrics.Metrics
}

func New(opts Options) *Auditor {
	a := &Auditor{
		skills:  opts.Skills,
		ledger:  opts.Ledger,
		log:     opts.Logger,
		metrics: opts.Metrics,
	}
	if a.log == nil {
		a.log = logging.Discard()
	}
	return a
}

// PairError is a failure to process one (user, skill) pair.
type PairError struct {
	UserID  string
	SkillID string
	Err     error
}

func (e *PairError) Error() string {
	return fmt.Sprintf("audit %s/%s: %v", e.UserID, e.SkillID, e.Err)
}

func (e *PairError) Unwrap() error { return e.Err }

// Report summarizes one audit pass.
type Report struct {
	// Checked counts pairs whose skill was due and whose level was positive.
	Checked  int
	Skipped  int
	Debuffed int
	Failures []*PairError
}

// Err joins the per-pair failures, or returns nil.
func (r Report) Err() error {
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// RunAuditCheck evaluates every (user, skill) pair with at least one event.
// A pair whose skill deadline has passed is compliant when its latest event
// falls inside the audit window; otherwise a Debuff to level 0 is appended.
// Failures are collected per pair and never stop the scan. The returned
// error is non-nil only when the pass could not start.
func (a *Auditor) RunAuditCheck(ctx context.Context, now time.Time) (Report, error) {
	start := time.Now()
	var rep Report

	skills, err := a.skills.ListSkills(ctx)
	if err != nil {
		return rep, fmt.Errorf("list skills: %w", err)
	}
	byID := make(map[string]store.Skill, len(skills))
	for _, sk := range skills {
		byID[sk.ID] = sk
	}

	pairs, err := a.ledger.Pairs(ctx)
	if err != nil {
		return rep, fmt.Errorf("list pairs: %w", err)
	}

	for _, p := range pairs {
		if err := ctx.Err(); err != nil {
			rep.Failures = append(rep.Failures, &PairError{UserID: p.UserID, SkillID: p.SkillID, Err: err})
			break
		}
		sk, ok := byID[p.SkillID]
		if !ok || !due(sk, now) {
			rep.Skipped++
			continue
		}
		debuffed, skipped, err := a.checkPair(ctx, p, sk)
		switch {
		case err != nil:
			rep.Failures = append(rep.Failures, &PairError{UserID: p.UserID, SkillID: p.SkillID, Err: err})
			a.log.WithError(err).WithFields(logrus.Fields{
				"user_id":  p.UserID,
				"skill_id": p.SkillID,
			}).Warn("audit pair failed")
		case skipped:
			rep.Skipped++
		default:
			rep.Checked++
			if debuffed {
				rep.Debuffed++
			}
		}
	}

	a.metrics.AuditRun(rep.Debuffed, len(rep.Failures), time.Since(start))
	a.log.WithFields(logrus.Fields{
		"checked":  rep.Checked,
		"skipped":  rep.Skipped,
		"debuffed": rep.Debuffed,
		"failures": len(rep.Failures),
	}).Info("audit finished")
	return rep, nil
}

// due reports whether the skill's audit deadline has passed at now.
func due(sk store.Skill, now time.Time) bool {
	return sk.AuditDate != nil && sk.AuditOpenedAt != nil && now.After(*sk.AuditDate)
}

func (a *Auditor) checkPair(ctx context.Context, p store.Pair, sk store.Skill) (debuffed, skipped bool, err error) {
	last, err := a.ledger.LatestEvent(ctx, p.UserID, p.SkillID)
	if err != nil {
		return false, false, err
	}
	// Nothing to revoke.
	if last == nil || last.Level == 0 {
		return false, true, nil
	}
	if !last.OccurredAt.Before(*sk.AuditOpenedAt) {
		return false, false, nil
	}
	if _, err := a.ledger.AppendEvent(ctx, p.UserID, p.SkillID, sk.CurrentVersion, ledger.Debuff, 0); err != nil {
		return false, false, err
	}
	a.log.WithFields(logrus.Fields{
		"user_id":    p.UserID,
		"skill_id":   p.SkillID,
		"prev_level": last.Level,
	}).Info("certification lapsed")
	return true, false, nil
}
