package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

var sessionColumns = []string{
	"session_id", "user_id", "test_id", "started_at", "deadline", "time_limit_seconds", "answers",
}

// sessionRepo is the durable Session Store. Sessions survive a restart with
// their deadline, so expiry never depends on an in-process timer.
type sessionRepo struct {
	db *sql.DB
}

func (r *sessionRepo) GetSession(ctx context.Context, id string) (*Session, error) {
	sessions, err := r.list(ctx, entsql.EQ("session_id", id))
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return sessions[0], nil
}

func (r *sessionRepo) PutSession(ctx context.Context, s *Session) error {
	answers, err := json.Marshal(s.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	query, args := entsql.Dialect(dialect.SQLite).
		Insert("test_sessions").
		Columns(sessionColumns...).
		Values(s.ID, s.UserID, s.TestID, s.StartedAt.UTC(), s.Deadline.UTC(), s.TimeLimitSeconds, string(answers)).
		OnConflict(
			entsql.ConflictColumns("session_id"),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (r *sessionRepo) DeleteSession(ctx context.Context, id string) error {
	query, args := entsql.Dialect(dialect.SQLite).
		Delete("test_sessions").
		Where(entsql.EQ("session_id", id)).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *sessionRepo) ListSessions(ctx context.Context) ([]*Session, error) {
	return r.list(ctx, nil)
}

func (r *sessionRepo) ExpiredSessions(ctx context.Context, now time.Time) ([]*Session, error) {
	return r.list(ctx, entsql.LTE("deadline", now.UTC()))
}

func (r *sessionRepo) list(ctx context.Context, where *entsql.Predicate) ([]*Session, error) {
	sel := entsql.Dialect(dialect.SQLite).
		Select(sessionColumns...).
		From(entsql.Table("test_sessions")).
		OrderBy("deadline")
	if where != nil {
		sel = sel.Where(where)
	}
	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var (
			s       Session
			answers []byte
		)
		if err := rows.Scan(&s.ID, &s.UserID, &s.TestID, &s.StartedAt, &s.Deadline, &s.TimeLimitSeconds, &answers); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if err := json.Unmarshal(answers, &s.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal answers of %q: %w", s.ID, err)
		}
		if s.Answers == nil {
			s.Answers = make(map[string]string)
		}
		s.StartedAt = s.StartedAt.UTC()
		s.Deadline = s.Deadline.UTC()
		sessions = append(sessions, &s)
	}
	return sessions, rows.Err()
}
