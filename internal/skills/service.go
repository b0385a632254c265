// Package skills manages the skill registry: audit deadlines and published
// versions. Publishing a version applies the authoring policy to the
// confirmation ledger.
package skills

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/mod/semver"

	"github.com/abhisek/skillcert/internal/apperr"
	"github.com/abhisek/skillcert/internal/ledger"
	"github.com/abhisek/skillcert/internal/logging"
	"github.com/abhisek/skillcert/internal/store"
)

// DefaultAuthorLevel is granted to the author of a new version.
const DefaultAuthorLevel = 5

var (
	ErrSkillNotFound   = fmt.Errorf("%w: skill", apperr.ErrNotFound)
	ErrSkillExists     = fmt.Errorf("%w: skill already exists", apperr.ErrConflict)
	ErrInvalidSkill    = fmt.Errorf("%w: skill id and name are required", apperr.ErrInvalidInput)
	ErrInvalidVersion  = fmt.Errorf("%w: version must be semantic, like v1.2.0", apperr.ErrInvalidInput)
	ErrVersionNotNewer = fmt.Errorf("%w: version must be newer than the current one", apperr.ErrConflict)
	ErrInvalidAudit    = fmt.Errorf("%w: audit date must be in the future", apperr.ErrInvalidInput)
)

// Ledger is what publishing needs from the confirmation ledger.
type Ledger interface {
	AppendEvent(ctx context.Context, userID, skillID, skillVersion string, typ ledger.EventType, level int) (ledger.Event, error)
	Holders(ctx context.Context, skillID string) ([]string, error)
}

type Options struct {
	Repo        store.SkillRepo
	Ledger      Ledger
	Logger      logrus.FieldLogger
	Now         func() time.Time
	AuthorLevel int
}

type Service struct {
	repo        store.SkillRepo
	ledger      Ledger
	log         logrus.FieldLogger
	now         func() time.Time
	authorLevel int
}

func NewService(opts Options) *Service {
	s := &Service{
		repo:        opts.Repo,
		ledger:      opts.Ledger,
		log:         opts.Logger,
		now:         opts.Now,
		authorLevel: opts.AuthorLevel,
	}
	if s.log == nil {
		s.log = logging.Discard()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.authorLevel <= 0 {
		s.authorLevel = DefaultAuthorLevel
	}
	return s
}

// VersionID is the id of a skill version, referenced by test definitions.
func VersionID(skillID, version string) string {
	return skillID + "@" + version
}

// Create registers a skill with no versions and no audit.
func (s *Service) Create(ctx context.Context, id, name string) (*store.Skill, error) {
	if id == "" || name == "" {
		return nil, ErrInvalidSkill
	}
	sk := &store.Skill{ID: id, Name: name, CreatedAt: s.now().UTC()}
	if err := s.repo.CreateSkill(ctx, sk); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %q", ErrSkillExists, id)
		}
		return nil, err
	}
	s.log.WithField("skill_id", id).Info("skill created")
	return sk, nil
}

func (s *Service) Get(ctx context.Context, id string) (*store.Skill, error) {
	sk, err := s.repo.GetSkill(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get skill: %w", err)
	}
	if sk == nil {
		return nil, fmt.Errorf("%w: %q", ErrSkillNotFound, id)
	}
	return sk, nil
}

func (s *Service) List(ctx context.Context) ([]store.Skill, error) {
	return s.repo.ListSkills(ctx)
}

// ScheduleAudit sets the renewal deadline of a skill. The renewal window
// opens now: holders whose latest confirmation is older than this moment
// must renew before auditDate or be debuffed.
func (s *Service) ScheduleAudit(ctx context.Context, skillID string, auditDate time.Time) (*store.Skill, error) {
	now := s.now().UTC()
	if !auditDate.After(now) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAudit, auditDate.Format(time.RFC3339))
	}
	sk, err := s.Get(ctx, skillID)
	if err != nil {
		return nil, err
	}
	auditDate = auditDate.UTC()
	if err := s.repo.UpdateSkillAudit(ctx, skillID, auditDate, now); err != nil {
		return nil, err
	}
	sk.AuditDate = &auditDate
	sk.AuditOpenedAt = &now
	s.log.WithFields(logrus.Fields{
		"skill_id":   skillID,
		"audit_date": auditDate,
	}).Info("audit scheduled")
	return sk, nil
}

// Publication reports what publishing a version did to the ledger.
type Publication struct {
	Version  store.SkillVersion
	Debuffed []string
	Failures []error
}

// Err joins the per-holder failures, or returns nil.
func (p Publication) Err() error {
	return errors.Join(p.Failures...)
}

// PublishVersion records a new version of the skill. Every prior holder
// except the author is debuffed to zero, since the content they certified
// against changed, and the author is certified at the author level.
// Per-holder failures are collected in the Publication and do not stop the
// others.
func (s *Service) PublishVersion(ctx context.Context, skillID, version, authorID string) (Publication, error) {
	if !semver.IsValid(version) {
		return Publication{}, fmt.Errorf("%w: %q", ErrInvalidVersion, version)
	}
	if authorID == "" {
		return Publication{}, fmt.Errorf("%w: author is required", apperr.ErrInvalidInput)
	}
	sk, err := s.Get(ctx, skillID)
	if err != nil {
		return Publication{}, err
	}
	if sk.CurrentVersion != "" && semver.Compare(version, sk.CurrentVersion) <= 0 {
		return Publication{}, fmt.Errorf("%w: %s is not after %s", ErrVersionNotNewer, version, sk.CurrentVersion)
	}

	holders, err := s.ledger.Holders(ctx, skillID)
	if err != nil {
		return Publication{}, err
	}

	v := store.SkillVersion{
		ID:        VersionID(skillID, version),
		SkillID:   skillID,
		Version:   version,
		AuthorID:  authorID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.AddSkillVersion(ctx, &v); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return Publication{}, fmt.Errorf("%w: %s already published", ErrVersionNotNewer, version)
		}
		return Publication{}, err
	}

	pub := Publication{Version: v}
	for _, userID := range holders {
		if userID == authorID {
			continue
		}
		if _, err := s.ledger.AppendEvent(ctx, userID, skillID, version, ledger.Debuff, 0); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"user_id":  userID,
				"skill_id": skillID,
			}).Warn("debuff prior holder")
			pub.Failures = append(pub.Failures, fmt.Errorf("debuff %s: %w", userID, err))
			continue
		}
		pub.Debuffed = append(pub.Debuffed, userID)
	}

	if _, err := s.ledger.AppendEvent(ctx, authorID, skillID, version, ledger.Acquired, s.authorLevel); err != nil {
		pub.Failures = append(pub.Failures, fmt.Errorf("certify author %s: %w", authorID, err))
	}

	s.log.WithFields(logrus.Fields{
		"skill_id": skillID,
		"version":  version,
		"author":   authorID,
		"debuffed": len(pub.Debuffed),
		"failures": len(pub.Failures),
	}).Info("skill version published")
	return pub, nil
}
