package store

import (
	"context"
	"errors"
	"time"

	"github.com/abhisek/skillcert/internal/testdef"
)

// ErrDuplicate is returned when an insert collides with a unique key.
var ErrDuplicate = errors.New("duplicate record")

// ConfirmationEvent is one immutable row of the confirmation ledger.
type ConfirmationEvent struct {
	ID           int64
	Sequence     int64
	UserID       string
	SkillID      string
	SkillVersion string
	Type         string
	Level        int
	OccurredAt   time.Time
}

// Pair identifies one (user, skill) ledger stream.
type Pair struct {
	UserID  string
	SkillID string
}

// LedgerRepo provides append-only access to confirmation events.
type LedgerRepo interface {
	// AppendConfirmation inserts ev, filling ID and Sequence. A zero
	// OccurredAt is set to the current UTC time.
	AppendConfirmation(ctx context.Context, ev *ConfirmationEvent) error

	// LatestConfirmation returns the most recent event for the pair, or nil.
	LatestConfirmation(ctx context.Context, userID, skillID string) (*ConfirmationEvent, error)

	// Confirmations returns every event for the pair, oldest first.
	Confirmations(ctx context.Context, userID, skillID string) ([]ConfirmationEvent, error)

	// DeleteConfirmation removes one event by id (administrative correction).
	// Reports whether a row was deleted.
	DeleteConfirmation(ctx context.Context, id int64) (bool, error)

	// ConfirmationPairs lists every pair with at least one event.
	ConfirmationPairs(ctx context.Context) ([]Pair, error)

	// ConfirmationUsers lists users with at least one event for the skill.
	ConfirmationUsers(ctx context.Context, skillID string) ([]string, error)
}

// Skill is a certifiable competency.
type Skill struct {
	ID             string
	Name           string
	CurrentVersion string
	AuditDate      *time.Time // renewal deadline
	AuditOpenedAt  *time.Time // start of the renewal window
	CreatedAt      time.Time
}

// SkillVersion is one published revision of a skill.
type SkillVersion struct {
	ID        string
	SkillID   string
	Version   string
	AuthorID  string
	CreatedAt time.Time
}

// SkillRepo manages skills and their versions.
type SkillRepo interface {
	CreateSkill(ctx context.Context, sk *Skill) error
	GetSkill(ctx context.Context, id string) (*Skill, error)
	ListSkills(ctx context.Context) ([]Skill, error)
	UpdateSkillAudit(ctx context.Context, id string, auditDate, openedAt time.Time) error

	// AddSkillVersion records v and makes it the skill's current version.
	AddSkillVersion(ctx context.Context, v *SkillVersion) error
	GetSkillVersion(ctx context.Context, id string) (*SkillVersion, error)
}

// TestRepo stores test definitions. Saving an existing id replaces the
// whole definition.
type TestRepo interface {
	SaveTest(ctx context.Context, t *testdef.TestDefinition) error
	GetTest(ctx context.Context, id string) (*testdef.TestDefinition, error)
	ListTests(ctx context.Context) ([]testdef.TestDefinition, error)
}

// AnswerRecord is one captured answer in a completed test.
type AnswerRecord struct {
	QuestionID string `json:"question_id"`
	AnswerID   string `json:"answer_id"`
}

// TestResult is the durable outcome of one completed session.
type TestResult struct {
	ID            string
	UserID        string
	TestID        string
	Score         int
	PassThreshold int
	Passed        bool
	Answers       []AnswerRecord
	CompletedAt   time.Time
}

// ResultRepo stores test results, at most one per (user, test).
type ResultRepo interface {
	// CreateResult returns ErrDuplicate when the user already has a result
	// for the test.
	CreateResult(ctx context.Context, r *TestResult) error
	GetResult(ctx context.Context, userID, testID string) (*TestResult, error)
}

// Session is an in-progress test attempt.
type Session struct {
	ID               string
	UserID           string
	TestID           string
	StartedAt        time.Time
	Deadline         time.Time
	TimeLimitSeconds int
	Answers          map[string]string // question id -> answer id
}

// Expired reports whether the session's deadline has passed at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.Deadline)
}

// Clone returns a deep copy of s.
func (s *Session) Clone() *Session {
	c := *s
	c.Answers = make(map[string]string, len(s.Answers))
	for k, v := range s.Answers {
		c.Answers[k] = v
	}
	return &c
}

// SessionRepo is the Session Store: ephemeral, keyed by session id, with a
// deadline on every record.
type SessionRepo interface {
	GetSession(ctx context.Context, id string) (*Session, error)
	PutSession(ctx context.Context, s *Session) error
	DeleteSession(ctx context.Context, id string) error

	// ListSessions returns every stored session.
	ListSessions(ctx context.Context) ([]*Session, error)

	// ExpiredSessions returns sessions whose deadline is at or before now.
	ExpiredSessions(ctx context.Context, now time.Time) ([]*Session, error)
}
