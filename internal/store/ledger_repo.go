package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

const confirmationEventsTable = "confirmation_events"

var confirmationColumns = []string{
	"id", "sequence", "occurred_at", "user_id", "skill_id", "skill_version", "type", "level",
}

// ledgerRepo implements LedgerRepo on SQLite.
type ledgerRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

func (r *ledgerRepo) AppendConfirmation(ctx context.Context, ev *ConfirmationEvent) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}
	ev.OccurredAt = ev.OccurredAt.UTC()

	query, args := entsql.Dialect(dialect.SQLite).
		Insert(confirmationEventsTable).
		Columns("sequence", "occurred_at", "user_id", "skill_id", "skill_version", "type", "level").
		Values(seqNum, ev.OccurredAt, ev.UserID, ev.SkillID, ev.SkillVersion, ev.Type, ev.Level).
		Query()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("save confirmation event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("confirmation event id: %w", err)
	}
	ev.ID = id
	ev.Sequence = seqNum
	return nil
}

func (r *ledgerRepo) LatestConfirmation(ctx context.Context, userID, skillID string) (*ConfirmationEvent, error) {
	query, args := entsql.Dialect(dialect.SQLite).
		Select(confirmationColumns...).
		From(entsql.Table(confirmationEventsTable)).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.EQ("skill_id", skillID),
		)).
		OrderBy(entsql.Desc("occurred_at"), entsql.Desc("sequence")).
		Limit(1).
		Query()
	events, err := r.query(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("query latest confirmation: %w", err)
	}
	if len(events) == 0 {
		return nil, nil
	}
	return &events[0], nil
}

func (r *ledgerRepo) Confirmations(ctx context.Context, userID, skillID string) ([]ConfirmationEvent, error) {
	query, args := entsql.Dialect(dialect.SQLite).
		Select(confirmationColumns...).
		From(entsql.Table(confirmationEventsTable)).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.EQ("skill_id", skillID),
		)).
		OrderBy(entsql.Asc("occurred_at"), entsql.Asc("sequence")).
		Query()
	events, err := r.query(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("query confirmations: %w", err)
	}
	return events, nil
}

func (r *ledgerRepo) DeleteConfirmation(ctx context.Context, id int64) (bool, error) {
	query, args := entsql.Dialect(dialect.SQLite).
		Delete(confirmationEventsTable).
		Where(entsql.EQ("id", id)).
		Query()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("delete confirmation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete confirmation: %w", err)
	}
	return n > 0, nil
}

func (r *ledgerRepo) ConfirmationPairs(ctx context.Context) ([]Pair, error) {
	query, args := entsql.Dialect(dialect.SQLite).
		Select("user_id", "skill_id").
		From(entsql.Table(confirmationEventsTable)).
		Distinct().
		OrderBy("skill_id", "user_id").
		Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query confirmation pairs: %w", err)
	}
	defer rows.Close()

	var pairs []Pair
	for rows.Next() {
		var p Pair
		if err := rows.Scan(&p.UserID, &p.SkillID); err != nil {
			return nil, fmt.Errorf("scan pair: %w", err)
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

func (r *ledgerRepo) ConfirmationUsers(ctx context.Context, skillID string) ([]string, error) {
	query, args := entsql.Dialect(dialect.SQLite).
		Select("user_id").
		From(entsql.Table(confirmationEventsTable)).
		Where(entsql.EQ("skill_id", skillID)).
		Distinct().
		OrderBy("user_id").
		Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query confirmation users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *ledgerRepo) query(ctx context.Context, query string, args []any) ([]ConfirmationEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []ConfirmationEvent
	for rows.Next() {
		var e ConfirmationEvent
		if err := rows.Scan(&e.ID, &e.Sequence, &e.OccurredAt, &e.UserID, &e.SkillID, &e.SkillVersion, &e.Type, &e.Level); err != nil {
			return nil, fmt.Errorf("scan confirmation: %w", err)
		}
		e.OccurredAt = e.OccurredAt.UTC()
		events = append(events, e)
	}
	return events, rows.Err()
}
