// Package testsession is the Test Session Engine. It runs one scored,
// time-boxed attempt per (user, test), completes it exactly once, and on a
// pass certifies the user in the confirmation ledger.
//
// A session's deadline is persisted with it. Expiry is detected three ways,
// all converging on the same scoring routine: an in-process timer, a lazy
// check on every access, and a periodic Sweep. Only the first is lost on a
// restart.
package testsession

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/abhisek/skillcert/internal/apperr"
	"github.com/abhisek/skillcert/internal/ledger"
	"github.com/abhisek/skillcert/internal/logging"
	"github.com/abhisek/skillcert/internal/metrics"
	"github.com/abhisek/skillcert/internal/store"
	"github.com/abhisek/skillcert/internal/testdef"
)

const (
	// DefaultPassLevel is the level granted for passing a test.
	DefaultPassLevel = 3

	// DefaultRetryMaxElapsed bounds retries of background finalization and
	// certification.
	DefaultRetryMaxElapsed = 2 * time.Minute
)

// What ended a session; used as the metrics label.
const (
	triggerExplicit = "explicit"
	triggerTimer    = "timer"
	triggerLazy     = "lazy"
	triggerSweep    = "sweep"
)

// sessionNamespace scopes the name-based UUIDs used as session keys.
var sessionNamespace = uuid.MustParse("6f1c2a3e-8d4b-5e0f-9a7c-2b1d4e6f8a90")

// SessionKey is the deterministic session id for a (user, test) pair.
func SessionKey(userID, testID string) string {
	return uuid.NewSHA1(sessionNamespace, []byte(userID+"\x00"+testID)).String()
}

// LedgerAppender is the slice of the ledger the engine writes to.
type LedgerAppender interface {
	AppendEvent(ctx context.Context, userID, skillID, skillVersion string, typ ledger.EventType, level int) (ledger.Event, error)
}

// Options configures an Engine. Tests, Results, Sessions, Ledger and Skills
// are required.
type Options struct {
	Tests    store.TestRepo
	Results  store.ResultRepo
	Sessions store.SessionRepo
	Ledger   LedgerAppender
	Skills   store.SkillRepo

	Logger          logrus.FieldLogger
	Metrics         *metrics.Metrics
	Now             func() time.Time
	PassLevel       int
	RetryMaxElapsed time.Duration
}

// Started describes a live session handed back by StartSession.
type Started struct {
	SessionID string
	Test      testdef.PublicTest
	StartedAt time.Time
	Deadline  time.Time

	// Resumed is true when the session already existed.
	Resumed bool
}

// Outcome is the result of finalizing a session.
type Outcome struct {
	Result store.TestResult
	Passed bool

	// Certified is true when the Acquired event was written. A passed
	// outcome that is not certified is retried in the background.
	Certified bool
	Level     int
}

// Engine runs test sessions. It is safe for concurrent use.
type Engine struct {
	tests    store.TestRepo
	results  store.ResultRepo
	sessions store.SessionRepo
	ledger   LedgerAppender
	skills   store.SkillRepo

	log             logrus.FieldLogger
	metrics         *metrics.Metrics
	now             func() time.Time
	passLevel       int
	retryMaxElapsed time.Duration

	locks  *keyedMutex
	timers *timerSet

	bgCtx    context.Context
	bgCancel context.CancelFunc
	bgMu     sync.Mutex
	bgWG     sync.WaitGroup
	closed   bool
}

// NewEngine creates an engine. Call Close to stop its timers and
// background retries.
func NewEngine(opts Options) *Engine {
	e := &Engine{
		tests:           opts.Tests,
		results:         opts.Results,
		sessions:        opts.Sessions,
		ledger:          opts.Ledger,
		skills:          opts.Skills,
		log:             opts.Logger,
		metrics:         opts.Metrics,
		now:             opts.Now,
		passLevel:       opts.PassLevel,
		retryMaxElapsed: opts.RetryMaxElapsed,
		locks:           newKeyedMutex(),
		timers:          newTimerSet(),
	}
	if e.log == nil {
		e.log = logging.Discard()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.passLevel <= 0 {
		e.passLevel = DefaultPassLevel
	}
	if e.retryMaxElapsed <= 0 {
		e.retryMaxElapsed = DefaultRetryMaxElapsed
	}
	e.bgCtx, e.bgCancel = context.WithCancel(context.Background())
	return e
}

// Close stops all pending timers, cancels background retries and waits for
// them to return. Sessions stay in the store and are picked up again by
// Resume or Sweep.
func (e *Engine) Close() {
	e.bgMu.Lock()
	e.closed = true
	e.bgMu.Unlock()

	e.timers.close()
	e.bgCancel()
	e.bgWG.Wait()
}

// StartSession opens a session for the user on the test, or returns the
// live one if it already exists. The returned test has no correctness flags.
func (e *Engine) StartSession(ctx context.Context, userID, testID string) (Started, error) {
	if userID == "" {
		return Started{}, fmt.Errorf("%w: user id is required", apperr.ErrInvalidInput)
	}
	test, err := e.loadTest(ctx, testID)
	if err != nil {
		return Started{}, err
	}

	id := SessionKey(userID, testID)
	unlock := e.locks.lock(id)
	defer unlock()

	sess, err := e.sessions.GetSession(ctx, id)
	if err != nil {
		return Started{}, fmt.Errorf("get session: %w", err)
	}

	prior, err := e.results.GetResult(ctx, userID, testID)
	if err != nil {
		return Started{}, fmt.Errorf("get result: %w", err)
	}
	if prior != nil {
		if sess != nil {
			// Left behind by a finalize that persisted the result but
			// failed to delete the session.
			e.discard(ctx, id)
		}
		return Started{}, fmt.Errorf("%w: user %q test %q", ErrAlreadyCompleted, userID, testID)
	}

	now := e.now().UTC()
	if sess != nil {
		if sess.Expired(now) {
			if _, err := e.finalize(ctx, sess, test, triggerLazy); err != nil {
				return Started{}, err
			}
			return Started{}, fmt.Errorf("%w: user %q test %q", ErrAlreadyCompleted, userID, testID)
		}
		if !e.timers.armed(id) {
			e.arm(sess)
		}
		return Started{
			SessionID: id,
			Test:      test.Redact(),
			StartedAt: sess.StartedAt,
			Deadline:  sess.Deadline,
			Resumed:   true,
		}, nil
	}

	sess = &store.Session{
		ID:               id,
		UserID:           userID,
		TestID:           testID,
		StartedAt:        now,
		Deadline:         now.Add(time.Duration(test.TimeLimitSeconds) * time.Second),
		TimeLimitSeconds: test.TimeLimitSeconds,
		Answers:          make(map[string]string),
	}
	if err := e.sessions.PutSession(ctx, sess); err != nil {
		return Started{}, fmt.Errorf("put session: %w", err)
	}
	e.arm(sess)
	e.metrics.SessionStarted()
	e.sessionLog(sess).WithField("deadline", sess.Deadline).Info("session started")

	return Started{
		SessionID: id,
		Test:      test.Redact(),
		StartedAt: sess.StartedAt,
		Deadline:  sess.Deadline,
	}, nil
}

// RecordAnswer stores answerID as the user's answer to questionID,
// replacing any earlier answer to the same question.
func (e *Engine) RecordAnswer(ctx context.Context, sessionID, userID, questionID, answerID string) error {
	unlock := e.locks.lock(sessionID)
	defer unlock()

	sess, test, err := e.liveSession(ctx, sessionID, userID)
	if err != nil {
		return err
	}

	q := test.Question(questionID)
	if q == nil {
		return fmt.Errorf("%w: question %q", ErrInvalidAnswer, questionID)
	}
	if q.Variant(answerID) == nil {
		return fmt.Errorf("%w: variant %q of question %q", ErrInvalidAnswer, answerID, questionID)
	}

	sess.Answers[questionID] = answerID
	if err := e.sessions.PutSession(ctx, sess); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

// EndSession scores the session, persists the result and removes the
// session. A second call for the same session returns ErrSessionNotFound.
func (e *Engine) EndSession(ctx context.Context, sessionID, userID string) (Outcome, error) {
	unlock := e.locks.lock(sessionID)
	defer unlock()

	sess, test, err := e.liveSession(ctx, sessionID, userID)
	if err != nil {
		return Outcome{}, err
	}
	return e.finalize(ctx, sess, test, triggerExplicit)
}

// liveSession loads an owned, unexpired session. An expired one is
// finalized on the spot and reported as not found. Callers hold the lock.
func (e *Engine) liveSession(ctx context.Context, sessionID, userID string) (*store.Session, *testdef.TestDefinition, error) {
	sess, err := e.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("get session: %w", err)
	}
	if sess == nil {
		return nil, nil, fmt.Errorf("%w: %q", ErrSessionNotFound, sessionID)
	}
	test, err := e.loadTest(ctx, sess.TestID)
	if err != nil {
		return nil, nil, err
	}
	if sess.Expired(e.now()) {
		if _, err := e.finalize(ctx, sess, test, triggerLazy); err != nil {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: %q timed out", ErrSessionNotFound, sessionID)
	}
	if sess.UserID != userID {
		return nil, nil, ErrForbidden
	}
	return sess, test, nil
}

func (e *Engine) loadTest(ctx context.Context, testID string) (*testdef.TestDefinition, error) {
	test, err := e.tests.GetTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("get test: %w", err)
	}
	if test == nil {
		return nil, fmt.Errorf("%w: %q", ErrTestNotFound, testID)
	}
	return test, nil
}

// finalize is the single scoring routine behind every way a session ends.
// Callers hold the session lock.
func (e *Engine) finalize(ctx context.Context, sess *store.Session, test *testdef.TestDefinition, trigger string) (Outcome, error) {
	e.timers.stop(sess.ID)

	score := Score(test, sess.Answers)
	result := store.TestResult{
		ID:            uuid.NewString(),
		UserID:        sess.UserID,
		TestID:        sess.TestID,
		Score:         score,
		PassThreshold: test.PassThreshold,
		Passed:        score >= test.PassThreshold,
		Answers:       answerRecords(test, sess.Answers),
		CompletedAt:   e.now().UTC(),
	}

	if err := e.results.CreateResult(ctx, &result); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			e.discard(ctx, sess.ID)
			return Outcome{}, fmt.Errorf("%w: %q already ended", ErrSessionNotFound, sess.ID)
		}
		if trigger == triggerExplicit && !sess.Expired(e.now()) {
			e.arm(sess)
		}
		return Outcome{}, fmt.Errorf("save result: %w", err)
	}

	if err := e.sessions.DeleteSession(ctx, sess.ID); err != nil {
		// The result is durable; StartSession and Sweep clear the leftover.
		e.sessionLog(sess).WithError(err).Warn("delete finished session")
	}

	e.metrics.SessionEnded(trigger)
	e.metrics.TestResult(result.Passed)
	e.sessionLog(sess).WithFields(logrus.Fields{
		"trigger": trigger,
		"score":   score,
		"passed":  result.Passed,
	}).Info("session ended")

	out := Outcome{Result: result, Passed: result.Passed}
	if !result.Passed {
		return out, nil
	}

	ev, err := e.certify(ctx, sess.UserID, test)
	if err != nil {
		e.sessionLog(sess).WithError(err).Warn("certification failed, retrying in background")
		e.retryCertify(sess.UserID, test)
		return out, nil
	}
	out.Certified = true
	out.Level = ev.Level
	return out, nil
}

// certify appends the Acquired event for the skill behind the test.
func (e *Engine) certify(ctx context.Context, userID string, test *testdef.TestDefinition) (ledger.Event, error) {
	sv, err := e.skills.GetSkillVersion(ctx, test.SkillVersionID)
	if err != nil {
		return ledger.Event{}, fmt.Errorf("get skill version: %w", err)
	}
	if sv == nil {
		return ledger.Event{}, fmt.Errorf("%w: skill version %q", apperr.ErrNotFound, test.SkillVersionID)
	}
	return e.ledger.AppendEvent(ctx, userID, sv.SkillID, sv.Version, ledger.Acquired, e.passLevel)
}

func (e *Engine) retryCertify(userID string, test *testdef.TestDefinition) {
	e.background(func(ctx context.Context) {
		op := func() error {
			_, err := e.certify(ctx, userID, test)
			if isPermanent(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		err := backoff.RetryNotify(op, e.newBackOff(ctx), func(err error, wait time.Duration) {
			e.log.WithError(err).WithFields(logrus.Fields{
				"user_id": userID,
				"test_id": test.ID,
				"wait":    wait,
			}).Debug("certification retry")
		})
		if err != nil {
			e.log.WithError(err).WithFields(logrus.Fields{
				"user_id": userID,
				"test_id": test.ID,
			}).Error("certification abandoned")
		}
	})
}

// discard drops a session whose result is already stored.
func (e *Engine) discard(ctx context.Context, id string) {
	e.timers.stop(id)
	if err := e.sessions.DeleteSession(ctx, id); err != nil {
		e.log.WithError(err).WithField("session_id", id).Warn("delete stale session")
	}
}

// arm schedules the auto-submit for sess at its deadline.
func (e *Engine) arm(sess *store.Session) {
	d := sess.Deadline.Sub(e.now())
	if d < 0 {
		d = 0
	}
	id := sess.ID
	e.timers.arm(id, d, func() {
		e.background(func(ctx context.Context) { e.autoSubmit(ctx, id) })
	})
}

// autoSubmit ends a session whose timer fired, retrying with backoff: a
// missed auto-submit would leave the session open past its time limit.
func (e *Engine) autoSubmit(ctx context.Context, id string) {
	op := func() error {
		_, err := e.expire(ctx, id, triggerTimer)
		switch {
		case err == nil, errors.Is(err, ErrSessionNotFound):
			return nil
		case isPermanent(err):
			return backoff.Permanent(err)
		}
		return err
	}
	err := backoff.RetryNotify(op, e.newBackOff(ctx), func(err error, wait time.Duration) {
		e.log.WithError(err).WithFields(logrus.Fields{
			"session_id": id,
			"wait":       wait,
		}).Warn("auto-submit failed, retrying")
	})
	if err != nil {
		e.log.WithError(err).WithField("session_id", id).Error("auto-submit abandoned, left to sweep")
	}
}

// expire finalizes the session with the given id regardless of owner.
func (e *Engine) expire(ctx context.Context, id, trigger string) (Outcome, error) {
	unlock := e.locks.lock(id)
	defer unlock()

	sess, err := e.sessions.GetSession(ctx, id)
	if err != nil {
		return Outcome{}, fmt.Errorf("get session: %w", err)
	}
	if sess == nil {
		return Outcome{}, fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	test, err := e.loadTest(ctx, sess.TestID)
	if err != nil {
		return Outcome{}, err
	}
	return e.finalize(ctx, sess, test, trigger)
}

// background runs fn on a tracked goroutine unless the engine is closed.
func (e *Engine) background(fn func(ctx context.Context)) {
	e.bgMu.Lock()
	defer e.bgMu.Unlock()
	if e.closed {
		return
	}
	e.bgWG.Add(1)
	go func() {
		defer e.bgWG.Done()
		fn(e.bgCtx)
	}()
}

func (e *Engine) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = e.retryMaxElapsed
	return backoff.WithContext(b, ctx)
}

func (e *Engine) sessionLog(sess *store.Session) logrus.FieldLogger {
	return e.log.WithFields(logrus.Fields{
		"session_id": sess.ID,
		"user_id":    sess.UserID,
		"test_id":    sess.TestID,
	})
}

// isPermanent reports errors that a retry cannot fix.
func isPermanent(err error) bool {
	switch apperr.Kind(err) {
	case apperr.ErrNotFound, apperr.ErrInvalidInput, apperr.ErrForbidden:
		return true
	}
	return false
}
