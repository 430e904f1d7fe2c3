package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"linguaflow/internal/domain"
)

type ProjectRepo struct{ *Repo }

func NewProjectRepo(db *sql.DB) *ProjectRepo { return &ProjectRepo{NewRepo(db)} }

func (r *ProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	now, ts := nowText()
	q := r.SQ.Insert("projects").Columns("name", "source_lang", "created_at", "updated_at").
		Values(p.Name, p.SourceLang, ts, ts)
	sqlStr, args, _ := q.ToSql()
	res, err := r.DB.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	p.ID = id
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

func (r *ProjectRepo) Get(ctx context.Context, id int64) (*domain.Project, error) {
	q := r.SQ.Select("id", "name", "source_lang", "created_at", "updated_at").From("projects").Where(sq.Eq{"id": id})
	sqlStr, args, _ := q.ToSql()
	row := r.DB.QueryRowContext(ctx, sqlStr, args...)
	var p domain.Project
	var created, updated string
	if err := row.Scan(&p.ID, &p.Name, &p.SourceLang, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	p.CreatedAt = parseTime(created)
	p.UpdatedAt = parseTime(updated)
	return &p, nil
}

func (r *ProjectRepo) List(ctx context.Context) ([]*domain.Project, error) {
	q := r.SQ.Select("id", "name", "source_lang", "created_at", "updated_at").From("projects").OrderBy("id DESC")
	sqlStr, args, _ := q.ToSql()
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Project
	for rows.Next() {
		var p domain.Project
		var created, updated string
		if err := rows.Scan(&p.ID, &p.Name, &p.SourceLang, &created, &updated); err != nil {
			return nil, err
		}
		p.CreatedAt = parseTime(created)
		p.UpdatedAt = parseTime(updated)
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (r *ProjectRepo) Delete(ctx context.Context, id int64) error {
	q := r.SQ.Delete("projects").Where(sq.Eq{"id": id})
	sqlStr, args, _ := q.ToSql()
	_, err := r.DB.ExecContext(ctx, sqlStr, args...)
	return err
}

// AddLanguage attaches a language to a project. Attaching twice is a no-op.
func (r *ProjectRepo) AddLanguage(ctx context.Context, projectID, languageID int64) error {
	_, ts := nowText()
	q := r.SQ.Insert("project_languages").Columns("project_id", "language_id", "created_at").
		Values(projectID, languageID, ts).
		Suffix("ON CONFLICT(project_id, language_id) DO NOTHING")
	sqlStr, args, _ := q.ToSql()
	if _, err := r.DB.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("add language %d to project %d: %w", languageID, projectID, err)
	}
	return nil
}

func (r *ProjectRepo) ListLanguages(ctx context.Context, projectID int64) ([]*domain.Language, error) {
	q := r.SQ.Select("l.id", "l.code", "l.name").From("languages l").
		Join("project_languages pl ON pl.language_id = l.id").
		Where(sq.Eq{"pl.project_id": projectID}).OrderBy("l.code")
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
