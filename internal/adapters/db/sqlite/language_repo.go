package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"linguaflow/internal/domain"
)

type LanguageRepo struct{ *Repo }

func NewLanguageRepo(db *sql.DB) *LanguageRepo { return &LanguageRepo{NewRepo(db)} }

// Ensure returns the language with the given code, creating it if needed.
// A non-empty name fills in a missing one but never overwrites.
func (r *LanguageRepo) Ensure(ctx context.Context, code, name string) (*domain.Language, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, errors.New("language code is required")
	}
	q := r.SQ.Insert("languages").Columns("code", "name").Values(code, name).
		Suffix("ON CONFLICT(code) DO UPDATE SET name = CASE WHEN languages.name = '' THEN excluded.name ELSE languages.name END")
	sqlStr, args, _ := q.ToSql()
	if _, err := r.DB.ExecContext(ctx, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("ensure language %q: %w", code, err)
	}
	l, err := r.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, fmt.Errorf("language %q: %w", code, domain.ErrNotFound)
	}
	return l, nil
}

func (r *LanguageRepo) GetByCode(ctx context.Context, code string) (*domain.Language, error) {
	q := r.SQ.Select("id", "code", "name").From("languages").Where(sq.Eq{"code": code}).Limit(1)
	sqlStr, args, _ := q.ToSql()
	var l domain.Language
	if err := r.DB.QueryRowContext(ctx, sqlStr, args...).Scan(&l.ID, &l.Code, &l.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

func (r *LanguageRepo) List(ctx context.Context) ([]*domain.Language, error) {
	q := r.SQ.Select("id", "code", "name").From("languages").OrderBy("code")
	sqlStr, args, _ := q.ToSql()
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Language
	for rows.Next() {
		var l domain.Language
		if err := rows.Scan(&l.ID, &l.Code, &l.Name); err != nil {
			return nil, err
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}
