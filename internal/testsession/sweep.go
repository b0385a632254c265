package testsession

import (
	"context"
	"errors"
	"fmt"
)

// Sweep finalizes every stored session whose deadline has passed and
// returns how many it ended. One failing session does not stop the rest.
func (e *Engine) Sweep(ctx context.Context) (int, error) {
	now := e.now()
	expired, err := e.sessions.ExpiredSessions(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list expired sessions: %w", err)
	}

	var (
		ended int
		errs  []error
	)
	for _, s := range expired {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		ok, err := e.sweepOne(ctx, s.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", s.ID, err))
			continue
		}
		if ok {
			ended++
		}
	}
	if ended > 0 || len(errs) > 0 {
		e.log.WithField("ended", ended).WithField("failed", len(errs)).Info("session sweep")
	}
	return ended, errors.Join(errs...)
}

func (e *Engine) sweepOne(ctx context.Context, id string) (bool, error) {
	unlock := e.locks.lock(id)
	defer unlock()

	sess, err := e.sessions.GetSession(ctx, id)
	if err != nil {
		return false, fmt.Errorf("get session: %w", err)
	}
	// Ended or extended since it was listed.
	if sess == nil || !sess.Expired(e.now()) {
		return false, nil
	}
	test, err := e.loadTest(ctx, sess.TestID)
	if err != nil {
		return false, err
	}
	if _, err := e.finalize(ctx, sess, test, triggerSweep); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Resume re-arms deadline timers for sessions that survived a restart and
// finalizes the ones that expired while the process was down. It returns
// the number of timers armed.
func (e *Engine) Resume(ctx context.Context) (int, error) {
	if _, err := e.Sweep(ctx); err != nil {
		e.log.WithError(err).Warn("resume: sweep incomplete")
	}

	sessions, err := e.sessions.ListSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}
	armed := 0
	now := e.now()
	for _, s := range sessions {
		if s.Expired(now) {
			continue
		}
		e.arm(s)
		armed++
	}
	e.log.WithField("armed", armed).Info("sessions resumed")
	return armed, nil
}
