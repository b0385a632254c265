package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/sqlgraph"
)

// resultRepo implements ResultRepo on SQLite. The unique index on
// (user_id, test_id) is what makes completion exactly-once.
type resultRepo struct {
	db *sql.DB
}

func (r *resultRepo) CreateResult(ctx context.Context, res *TestResult) error {
	answers, err := json.Marshal(res.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	query, args := entsql.Dialect(dialect.SQLite).
		Insert("test_results").
		Columns("id", "user_id", "test_id", "score", "pass_threshold", "passed", "answers", "completed_at").
		Values(res.ID, res.UserID, res.TestID, res.Score, res.PassThreshold, res.Passed, string(answers), res.CompletedAt.UTC()).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if sqlgraph.IsUniqueConstraintError(err) {
			return fmt.Errorf("result for user %q test %q: %w", res.UserID, res.TestID, ErrDuplicate)
		}
		return fmt.Errorf("save test result: %w", err)
	}
	return nil
}

func (r *resultRepo) GetResult(ctx context.Context, userID, testID string) (*TestResult, error) {
	query, args := entsql.Dialect(dialect.SQLite).
		Select("id", "user_id", "test_id", "score", "pass_threshold", "passed", "answers", "completed_at").
		From(entsql.Table("test_results")).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.EQ("test_id", testID),
		)).
		Query()

	var (
		res     TestResult
		answers []byte
	)
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&res.ID, &res.UserID, &res.TestID, &res.Score, &res.PassThreshold, &res.Passed, &answers, &res.CompletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query test result: %w", err)
	}
	if err := json.Unmarshal(answers, &res.Answers); err != nil {
		return nil, fmt.Errorf("unmarshal answers: %w", err)
	}
	return &res, nil
}
