package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"linguaflow/internal/domain"
)

type KeyRepo struct{ *Repo }

func NewKeyRepo(db *sql.DB) *KeyRepo { return &KeyRepo{NewRepo(db)} }

// Ensure returns the key row for (projectID, key), creating it on first use.
func (r *KeyRepo) Ensure(ctx context.Context, projectID int64, key string) (*domain.TranslationKey, error) {
	if key == "" {
		return nil, errors.New("translation key is required")
	}
	_, ts := nowText()
	q := r.SQ.Insert("translation_keys").Columns("project_id", "key", "created_at", "updated_at").
		Values(projectID, key, ts, ts).
		Suffix("ON CONFLICT(project_id, key) DO NOTHING")
	sqlStr, args, _ := q.ToSql()
	if _, err := r.DB.ExecContext(ctx, sqlStr, args...); err != nil {
		return nil, fmt.Errorf("ensure key %q: %w", key, err)
	}
	k, err := r.GetByName(ctx, projectID, key)
	if err != nil {
		return nil, err
	}
	if k == nil {
		return nil, fmt.Errorf("key %q: %w", key, domain.ErrNotFound)
	}
	return k, nil
}

func (r *KeyRepo) GetByName(ctx context.Context, projectID int64, key string) (*domain.TranslationKey, error) {
	q := r.SQ.Select("id", "project_id", "key", "description", "created_at", "updated_at").From("translation_keys").
		Where(sq.Eq{"project_id": projectID, "key": key}).Limit(1)
	sqlStr, args, _ := q.ToSql()
	var k domain.TranslationKey
	var created, updated string
	err := r.DB.QueryRowContext(ctx, sqlStr, args...).Scan(&k.ID, &k.ProjectID, &k.Key, &k.Description, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	k.CreatedAt = parseTime(created)
	k.UpdatedAt = parseTime(updated)
	return &k, nil
}

func (r *KeyRepo) List(ctx context.Context, projectID int64) ([]*domain.TranslationKey, error) {
	q := r.SQ.Select("id", "project_id", "key", "description", "created_at", "updated_at").From("translation_keys").
		Where(sq.Eq{"project_id": projectID}).OrderBy("key")
	sqlStr, args, _ := q.ToSql()
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.TranslationKey
	for rows.Next() {
		var k domain.TranslationKey
		var created, updated string
		if err := rows.Scan(&k.ID, &k.ProjectID, &k.Key, &k.Description, &created, &updated); err != nil {
			return nil, err
		}
		k.CreatedAt = parseTime(created)
		k.UpdatedAt = parseTime(updated)
		out = append(out, &k)
	}
	return out, rows.Err()
}

// Rename changes the display text of a key. The row and its translations keep their IDs.
func (r *KeyRepo) Rename(ctx context.Context, id int64, key string) error {
	if key == "" {
		return errors.New("translation key is required")
	}
	_, ts := nowText()
	q := r.SQ.Update("translation_keys").Set("key", key).Set("updated_at", ts).Where(sq.Eq{"id": id})
	sqlStr, args, _ := q.ToSql()
	res, err := r.DB.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("key %q: %w", key, domain.ErrAlreadyExists)
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("key %d: %w", id, domain.ErrNotFound)
	}
	return nil
}
