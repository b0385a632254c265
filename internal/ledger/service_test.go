package ledger

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/abhisek/skillcert/internal/apperr"
	"github.com/abhisek/skillcert/internal/store"
)

// memLedgerRepo implements store.LedgerRepo in memory.
type memLedgerRepo struct {
	events    []store.ConfirmationEvent
	seq       int64
	appendErr error
}

func (m *memLedgerRepo) AppendConfirmation(_ context.Context, ev *store.ConfirmationEvent) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.seq++
	ev.ID = m.seq
	ev.Sequence = m.seq
	m.events = append(m.events, *ev)
	return nil
}

func (m *memLedgerRepo) pair(userID, skillID string) []store.ConfirmationEvent {
	var out []store.ConfirmationEvent
	for _, e := range m.events {
		if e.UserID == userID && e.SkillID == skillID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.Before(out[j].OccurredAt)
		}
		return out[i].Sequence < out[j].Sequence
	})
	return out
}

func (m *memLedgerRepo) LatestConfirmation(_ context.Context, userID, skillID string) (*store.ConfirmationEvent, error) {
	p := m.pair(userID, skillID)
	if len(p) == 0 {
		return nil, nil
	}
	return &p[len(p)-1], nil
}

func (m *memLedgerRepo) Confirmations(_ context.Context, userID, skillID string) ([]store.ConfirmationEvent, error) {
	return m.pair(userID, skillID), nil
}

func (m *memLedgerRepo) DeleteConfirmation(_ context.Context, id int64) (bool, error) {
	for i, e := range m.events {
		if e.ID == id {
			m.events = append(m.events[:i], m.events[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memLedgerRepo) ConfirmationPairs(_ context.Context) ([]store.Pair, error) {
	seen := map[store.Pair]bool{}
	var out []store.Pair
	for _, e := range m.events {
		p := store.Pair{UserID: e.UserID, SkillID: e.SkillID}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memLedgerRepo) ConfirmationUsers(_ context.Context, skillID string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, e := range m.events {
		if e.SkillID == skillID && !seen[e.UserID] {
			seen[e.UserID] = true
			out = append(out, e.UserID)
		}
	}
	return out, nil
}

// clock returns a Now func that advances one minute per call.
func clock() func() time.Time {
	now := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Minute)
		return now
	}
}

func newTestService() (*Service, *memLedgerRepo) {
	repo := &memLedgerRepo{}
	return NewService(Options{Repo: repo, Now: clock()}), repo
}

func TestAppendEvent_Validation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	tests := []struct {
		name  string
		user  string
		skill string
		typ   EventType
		level int
		want  error
	}{
		{"missing user", "", "go", Acquired, 1, ErrInvalidReference},
		{"missing skill", "u1", "", Acquired, 1, ErrInvalidReference},
		{"bad type", "u1", "go", "promoted", 1, ErrInvalidEventType},
		{"negative level", "u1", "go", AdminSet, -1, ErrInvalidLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AppendEvent(ctx, tt.user, tt.skill, "v1.0.0", tt.typ, tt.level)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if !errors.Is(err, apperr.ErrInvalidInput) {
				t.Errorf("err = %v, want InvalidInput category", err)
			}
		})
	}
}

func TestEffectiveLevel(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	level, err := svc.EffectiveLevel(ctx, "u1", "go")
	if err != nil || level != 0 {
		t.Fatalf("empty log: level=%d err=%v, want 0", level, err)
	}

	steps := []struct {
		typ   EventType
		level int
	}{
		{Acquired, 3},
		{AdminSet, 5},
		{Debuff, 0},
		{AdminSet, 0},
		{Acquired, 2},
	}
	for _, s := range steps {
		if _, err := svc.AppendEvent(ctx, "u1", "go", "v1.0.0", s.typ, s.level); err != nil {
			t.Fatalf("append: %v", err)
		}
		got, err := svc.EffectiveLevel(ctx, "u1", "go")
		if err != nil {
			t.Fatalf("level: %v", err)
		}
		if got != s.level {
			t.Errorf("after %s(%d): level = %d", s.typ, s.level, got)
		}
	}
}

func TestConfirmDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("never acquired grants minimal", func(t *testing.T) {
		svc, _ := newTestService()
		e, err := svc.ConfirmDocument(ctx, "u1", "go", "v2.0.0")
		if err != nil {
			t.Fatalf("confirm: %v", err)
		}
		if e.Type != Acquired || e.Level != 1 {
			t.Errorf("event = %+v, want Acquired(1)", e)
		}
	})

	t.Run("debuffed restores previous level", func(t *testing.T) {
		svc, _ := newTestService()
		svc.AppendEvent(ctx, "u1", "go", "v1.0.0", Acquired, 5)
		svc.AppendEvent(ctx, "u1", "go", "v1.0.0", Debuff, 0)

		e, err := svc.ConfirmDocument(ctx, "u1", "go", "v2.0.0")
		if err != nil {
			t.Fatalf("confirm: %v", err)
		}
		if e.Level != 5 {
			t.Errorf("restored level = %d, want 5", e.Level)
		}
		if e.SkillVersion != "v2.0.0" {
			t.Errorf("skill version = %q", e.SkillVersion)
		}
	})

	t.Run("already confirmed", func(t *testing.T) {
		svc, repo := newTestService()
		svc.AppendEvent(ctx, "u1", "go", "v1.0.0", Acquired, 3)
		before := len(repo.events)

		_, err := svc.ConfirmDocument(ctx, "u1", "go", "v1.0.0")
		if !errors.Is(err, ErrAlreadyConfirmed) || !errors.Is(err, apperr.ErrConflict) {
			t.Fatalf("err = %v, want ErrAlreadyConfirmed", err)
		}
		if len(repo.events) != before {
			t.Error("nothing should be appended on conflict")
		}
	})
}

func TestDeleteEvent(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	first, _ := svc.AppendEvent(ctx, "u1", "go", "", Acquired, 3)
	second, _ := svc.AppendEvent(ctx, "u1", "go", "", AdminSet, 1)

	if err := svc.DeleteEvent(ctx, second.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	level, _ := svc.EffectiveLevel(ctx, "u1", "go")
	if level != first.Level {
		t.Errorf("level after correction = %d, want %d", level, first.Level)
	}
	if err := svc.DeleteEvent(ctx, second.ID); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("second delete: err = %v, want ErrEventNotFound", err)
	}
}

func TestHolders(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	svc.AppendEvent(ctx, "ann", "go", "", Acquired, 3)
	svc.AppendEvent(ctx, "bob", "go", "", Acquired, 2)
	svc.AppendEvent(ctx, "bob", "go", "", Debuff, 0)
	svc.AppendEvent(ctx, "cid", "sql", "", Acquired, 4)

	holders, err := svc.Holders(ctx, "go")
	if err != nil {
		t.Fatalf("holders: %v", err)
	}
	if len(holders) != 1 || holders[0] != "ann" {
		t.Errorf("holders = %v, want [ann]", holders)
	}
}

func TestAppendEvent_StoreError(t *testing.T) {
	svc, repo := newTestService()
	repo.appendErr = errors.New("disk full")
	if _, err := svc.AppendEvent(context.Background(), "u1", "go", "", Acquired, 1); err == nil {
		t.Fatal("expected error")
	}
}
