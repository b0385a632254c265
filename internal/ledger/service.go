package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/abhisek/skillcert/internal/logging"
	"github.com/abhisek/skillcert/internal/metrics"
	"github.com/abhisek/skillcert/internal/store"
)

// DefaultMinimalLevel is granted by a re-confirmation with nothing to restore.
const DefaultMinimalLevel = 1

// Options configures a Service. Repo is required.
type Options struct {
	Repo store.LedgerRepo

	// Skills, when set, is used to reject events for unknown skills.
	Skills store.SkillRepo

	Logger       logrus.FieldLogger
	Metrics      *metrics.Metrics
	Now          func() time.Time
	MinimalLevel int
}

// Service is the confirmation ledger. It only ever appends; the single
// exception is DeleteEvent for administrative correction.
type Service struct {
	repo     store.LedgerRepo
	skills   store.SkillRepo
	log      logrus.FieldLogger
	metrics  *metrics.Metrics
	now      func() time.Time
	minLevel int
}

// NewService creates a ledger service.
func NewService(opts Options) *Service {
	s := &Service{
		repo:     opts.Repo,
		skills:   opts.Skills,
		log:      opts.Logger,
		metrics:  opts.Metrics,
		now:      opts.Now,
		minLevel: opts.MinimalLevel,
	}
	if s.log == nil {
		s.log = logging.Discard()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.minLevel <= 0 {
		s.minLevel = DefaultMinimalLevel
	}
	return s
}

// AppendEvent records a new confirmation event. Debuff conventionally
// carries level 0 but that is not enforced.
func (s *Service) AppendEvent(ctx context.Context, userID, skillID, skillVersion string, typ EventType, level int) (Event, error) {
	if userID == "" || skillID == "" {
		return Event{}, ErrInvalidReference
	}
	if !typ.Valid() {
		return Event{}, fmt.Errorf("%w: %q", ErrInvalidEventType, typ)
	}
	if level < 0 {
		return Event{}, fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}
	if s.skills != nil {
		sk, err := s.skills.GetSkill(ctx, skillID)
		if err != nil {
			return Event{}, fmt.Errorf("lookup skill: %w", err)
		}
		if sk == nil {
			return Event{}, fmt.Errorf("%w: %q", ErrSkillNotFound, skillID)
		}
	}

	rec := &store.ConfirmationEvent{
		UserID:       userID,
		SkillID:      skillID,
		SkillVersion: skillVersion,
		Type:         string(typ),
		Level:        level,
		OccurredAt:   s.now(),
	}
	if err := s.repo.AppendConfirmation(ctx, rec); err != nil {
		return Event{}, fmt.Errorf("append event: %w", err)
	}
	s.metrics.LedgerEvent(string(typ))
	s.log.WithFields(logrus.Fields{
		"user_id":  userID,
		"skill_id": skillID,
		"type":     typ,
		"level":    level,
	}).Debug("confirmation event appended")
	return fromRecord(*rec), nil
}

// LatestEvent returns the event backing the effective level, or nil.
func (s *Service) LatestEvent(ctx context.Context, userID, skillID string) (*Event, error) {
	rec, err := s.repo.LatestConfirmation(ctx, userID, skillID)
	if err != nil {
		return nil, fmt.Errorf("latest event: %w", err)
	}
	if rec == nil {
		return nil, nil
	}
	ev := fromRecord(*rec)
	return &ev, nil
}

// EffectiveLevel is the level of the most recent event for the pair, or
// NotAcquired if there is none.
func (s *Service) EffectiveLevel(ctx context.Context, userID, skillID string) (int, error) {
	ev, err := s.LatestEvent(ctx, userID, skillID)
	if err != nil {
		return 0, err
	}
	if ev == nil {
		return NotAcquired, nil
	}
	return ev.Level, nil
}

// History returns every event for the pair, oldest first.
func (s *Service) History(ctx context.Context, userID, skillID string) ([]Event, error) {
	recs, err := s.repo.Confirmations(ctx, userID, skillID)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	events := make([]Event, len(recs))
	for i, r := range recs {
		events[i] = fromRecord(r)
	}
	return events, nil
}

// RestoreOrMinimal returns the level a re-confirmation should grant; see
// RestoreTarget.
func (s *Service) RestoreOrMinimal(ctx context.Context, userID, skillID string) (int, error) {
	events, err := s.History(ctx, userID, skillID)
	if err != nil {
		return 0, err
	}
	return RestoreTarget(events, s.minLevel), nil
}

// ConfirmDocument handles an "I have read this" acknowledgment: it restores
// a revoked level, or grants the minimal level, as a new Acquired event.
// Fails with ErrAlreadyConfirmed when the user already holds the skill.
func (s *Service) ConfirmDocument(ctx context.Context, userID, skillID, skillVersion string) (Event, error) {
	level, err := s.EffectiveLevel(ctx, userID, skillID)
	if err != nil {
		return Event{}, err
	}
	if level > NotAcquired {
		return Event{}, fmt.Errorf("%w: user %q holds %q at level %d", ErrAlreadyConfirmed, userID, skillID, level)
	}
	target, err := s.RestoreOrMinimal(ctx, userID, skillID)
	if err != nil {
		return Event{}, err
	}
	return s.AppendEvent(ctx, userID, skillID, skillVersion, Acquired, target)
}

// DeleteEvent removes one event by id. This is an administrative correction
// and the only mutation that is not an append.
func (s *Service) DeleteEvent(ctx context.Context, id int64) error {
	ok, err := s.repo.DeleteConfirmation(ctx, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: id %d", ErrEventNotFound, id)
	}
	s.log.WithField("event_id", id).Info("confirmation event deleted")
	return nil
}

// Holders lists users whose effective level for the skill is above zero.
func (s *Service) Holders(ctx context.Context, skillID string) ([]string, error) {
	users, err := s.repo.ConfirmationUsers(ctx, skillID)
	if err != nil {
		return nil, fmt.Errorf("holders: %w", err)
	}
	var holders []string
	for _, u := range users {
		level, err := s.EffectiveLevel(ctx, u, skillID)
		if err != nil {
			return nil, err
		}
		if level > NotAcquired {
			holders = append(holders, u)
		}
	}
	return holders, nil
}

// Pairs lists every (user, skill) pair with at least one event.
func (s *Service) Pairs(ctx context.Context) ([]store.Pair, error) {
	pairs, err := s.repo.ConfirmationPairs(ctx)
	if err != nil {
		return nil, fmt.Errorf("pairs: %w", err)
	}
	return pairs, nil
}
