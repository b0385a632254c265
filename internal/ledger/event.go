// Package ledger is the skill confirmation ledger: an append-only log of
// certification events per (user, skill), and the resolver that derives a
// user's effective level from it.
package ledger

import (
	"fmt"
	"time"

	"github.com/abhisek/skillcert/internal/apperr"
	"github.com/abhisek/skillcert/internal/store"
)

// EventType classifies a confirmation event.
type EventType string

const (
	// Acquired: the user earned or renewed a level (test, document, authorship).
	Acquired EventType = "acquired"
	// Debuff: automatic or manual revocation, conventionally to level 0.
	Debuff EventType = "debuff"
	// AdminSet: manual administrative override.
	AdminSet EventType = "admin_set"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case Acquired, Debuff, AdminSet:
		return true
	}
	return false
}

var (
	ErrInvalidEventType = fmt.Errorf("%w: unknown event type", apperr.ErrInvalidInput)
	ErrInvalidLevel     = fmt.Errorf("%w: level must not be negative", apperr.ErrInvalidInput)
	ErrInvalidReference = fmt.Errorf("%w: user and skill are required", apperr.ErrInvalidInput)
	ErrSkillNotFound    = fmt.Errorf("%w: skill", apperr.ErrNotFound)
	ErrEventNotFound    = fmt.Errorf("%w: confirmation event", apperr.ErrNotFound)
	ErrAlreadyConfirmed = fmt.Errorf("%w: skill already confirmed", apperr.ErrConflict)
)

// Event is an immutable confirmation event.
type Event struct {
	ID           int64
	Sequence     int64
	UserID       string
	SkillID      string
	SkillVersion string
	Type         EventType
	Level        int
	OccurredAt   time.Time
}

// After reports whether e is ordered after o: later occurredAt, with the
// store's sequence breaking ties.
func (e Event) After(o Event) bool {
	if !e.OccurredAt.Equal(o.OccurredAt) {
		return e.OccurredAt.After(o.OccurredAt)
	}
	return e.Sequence > o.Sequence
}

func fromRecord(r store.ConfirmationEvent) Event {
	return Event{
		ID:           r.ID,
		Sequence:     r.Sequence,
		UserID:       r.UserID,
		SkillID:      r.SkillID,
		SkillVersion: r.SkillVersion,
		Type:         EventType(r.Type),
		Level:        r.Level,
		OccurredAt:   r.OccurredAt,
	}
}
