package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/skillcert/internal/testdef"
)

// testRepo implements TestRepo on SQLite. Questions are stored as a JSON
// column so a definition is always read and replaced as one unit.
type testRepo struct {
	db *sql.DB
}

func (r *testRepo) SaveTest(ctx context.Context, t *testdef.TestDefinition) error {
	questions, err := json.Marshal(t.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	query, args := entsql.Dialect(dialect.SQLite).
		Insert("test_definitions").
		Columns("id", "skill_version_id", "title", "time_limit_seconds", "pass_threshold", "questions", "created_at").
		Values(t.ID, t.SkillVersionID, t.Title, t.TimeLimitSeconds, t.PassThreshold, string(questions), time.Now().UTC()).
		OnConflict(
			entsql.ConflictColumns("id"),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save test definition: %w", err)
	}
	return nil
}

func (r *testRepo) GetTest(ctx context.Context, id string) (*testdef.TestDefinition, error) {
	tests, err := r.list(ctx, entsql.EQ("id", id))
	if err != nil {
		return nil, err
	}
	if len(tests) == 0 {
		return nil, nil
	}
	return &tests[0], nil
}

func (r *testRepo) ListTests(ctx context.Context) ([]testdef.TestDefinition, error) {
	return r.list(ctx, nil)
}

func (r *testRepo) list(ctx context.Context, where *entsql.Predicate) ([]testdef.TestDefinition, error) {
	sel := entsql.Dialect(dialect.SQLite).
		Select("id", "skill_version_id", "title", "time_limit_seconds", "pass_threshold", "questions").
		From(entsql.Table("test_definitions")).
		OrderBy("id")
	if where != nil {
		sel = sel.Where(where)
	}
	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query test definitions: %w", err)
	}
	defer rows.Close()

	var tests []testdef.TestDefinition
	for rows.Next() {
		var (
			t         testdef.TestDefinition
			questions []byte
		)
		if err := rows.Scan(&t.ID, &t.SkillVersionID, &t.Title, &t.TimeLimitSeconds, &t.PassThreshold, &questions); err != nil {
			return nil, fmt.Errorf("scan test definition: %w", err)
		}
		if err := json.Unmarshal(questions, &t.Questions); err != nil {
			return nil, fmt.Errorf("unmarshal questions of %q: %w", t.ID, err)
		}
		tests = append(tests, t)
	}
	return tests, rows.Err()
}
