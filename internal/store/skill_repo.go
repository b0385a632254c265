package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/sqlgraph"
)

// skillRepo implements SkillRepo on SQLite.
type skillRepo struct {
	db *sql.DB
}

func (r *skillRepo) CreateSkill(ctx context.Context, sk *Skill) error {
	if sk.CreatedAt.IsZero() {
		sk.CreatedAt = time.Now().UTC()
	}
	query, args := entsql.Dialect(dialect.SQLite).
		Insert("skills").
		Columns("id", "name", "current_version", "audit_date", "audit_opened_at", "created_at").
		Values(sk.ID, sk.Name, sk.CurrentVersion, nullTime(sk.AuditDate), nullTime(sk.AuditOpenedAt), sk.CreatedAt).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if sqlgraph.IsUniqueConstraintError(err) {
			return fmt.Errorf("create skill %q: %w", sk.ID, ErrDuplicate)
		}
		return fmt.Errorf("create skill: %w", err)
	}
	return nil
}

func (r *skillRepo) GetSkill(ctx context.Context, id string) (*Skill, error) {
	skills, err := r.list(ctx, entsql.EQ("id", id))
	if err != nil {
		return nil, err
	}
	if len(skills) == 0 {
		return nil, nil
	}
	return &skills[0], nil
}

func (r *skillRepo) ListSkills(ctx context.Context) ([]Skill, error) {
	return r.list(ctx, nil)
}

func (r *skillRepo) list(ctx context.Context, where *entsql.Predicate) ([]Skill, error) {
	sel := entsql.Dialect(dialect.SQLite).
		Select("id", "name", "current_version", "audit_date", "audit_opened_at", "created_at").
		From(entsql.Table("skills")).
		OrderBy("id")
	if where != nil {
		sel = sel.Where(where)
	}
	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query skills: %w", err)
	}
	defer rows.Close()

	var skills []Skill
	for rows.Next() {
		var (
			sk              Skill
			audit, openedAt sql.NullTime
		)
		if err := rows.Scan(&sk.ID, &sk.Name, &sk.CurrentVersion, &audit, &openedAt, &sk.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan skill: %w", err)
		}
		sk.AuditDate = timePtr(audit)
		sk.AuditOpenedAt = timePtr(openedAt)
		skills = append(skills, sk)
	}
	return skills, rows.Err()
}

func (r *skillRepo) UpdateSkillAudit(ctx context.Context, id string, auditDate, openedAt time.Time) error {
	query, args := entsql.Dialect(dialect.SQLite).
		Update("skills").
		Set("audit_date", auditDate.UTC()).
		Set("audit_opened_at", openedAt.UTC()).
		Where(entsql.EQ("id", id)).
		Query()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update skill audit: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update skill audit: skill %q: %w", id, sql.ErrNoRows)
	}
	return nil
}

func (r *skillRepo) AddSkillVersion(ctx context.Context, v *SkillVersion) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	insert, args := entsql.Dialect(dialect.SQLite).
		Insert("skill_versions").
		Columns("id", "skill_id", "version", "author_id", "created_at").
		Values(v.ID, v.SkillID, v.Version, v.AuthorID, v.CreatedAt).
		Query()
	if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
		if sqlgraph.IsUniqueConstraintError(err) {
			return fmt.Errorf("add skill version %q: %w", v.ID, ErrDuplicate)
		}
		return fmt.Errorf("add skill version: %w", err)
	}

	update, args := entsql.Dialect(dialect.SQLite).
		Update("skills").
		Set("current_version", v.Version).
		Where(entsql.EQ("id", v.SkillID)).
		Query()
	if _, err := tx.ExecContext(ctx, update, args...); err != nil {
		return fmt.Errorf("set current version: %w", err)
	}

	return tx.Commit()
}

func (r *skillRepo) GetSkillVersion(ctx context.Context, id string) (*SkillVersion, error) {
	query, args := entsql.Dialect(dialect.SQLite).
		Select("id", "skill_id", "version", "author_id", "created_at").
		From(entsql.Table("skill_versions")).
		Where(entsql.EQ("id", id)).
		Query()
	var v SkillVersion
	err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&v.ID, &v.SkillID, &v.Version, &v.AuthorID, &v.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query skill version: %w", err)
	}
	return &v, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
