package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"linguaflow/internal/domain"
)

type TranslationRepo struct{ *Repo }

func NewTranslationRepo(db *sql.DB) *TranslationRepo { return &TranslationRepo{NewRepo(db)} }

var translationColumns = []string{"t.id", "t.key_id", "k.key", "t.language_id", "t.content", "t.status", "t.entry_order", "t.translator_id", "t.created_at", "t.updated_at"}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTranslation(row rowScanner) (*domain.Translation, error) {
	var t domain.Translation
	var created, updated string
	if err := row.Scan(&t.ID, &t.KeyID, &t.Key, &t.LanguageID, &t.Content, &t.Status, &t.EntryOrder, &t.TranslatorID, &created, &updated); err != nil {
		return nil, err
	}
	t.CreatedAt = parseTime(created)
	t.UpdatedAt = parseTime(updated)
	return &t, nil
}

// Save writes c inside one transaction. A new row gets the next entry_order of
// its (project, language); every content change appends the next version
// number. A status-only change updates the row without a version.
func (r *TranslationRepo) Save(ctx context.Context, c domain.TranslationChange) (*domain.Translation, bool, error) {
	if c.Status == "" {
		c.Status = domain.StatusApproved
	}
	var out *domain.Translation
	var wrote bool
	err := WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		cur, err := r.get(ctx, tx, c.KeyID, c.LanguageID)
		if err != nil {
			return err
		}
		_, ts := nowText()
		var id int64
		prev := ""
		switch {
		case cur == nil:
			q := r.SQ.Select("COALESCE(MAX(t.entry_order), 0) + 1").From("translations t").
				Join("translation_keys k ON k.id = t.key_id").
				Where(sq.Eq{"k.project_id": c.ProjectID, "t.language_id": c.LanguageID})
			sqlStr, args, _ := q.ToSql()
			var order int
			if err := tx.QueryRowContext(ctx, sqlStr, args...).Scan(&order); err != nil {
				return fmt.Errorf("next entry order: %w", err)
			}
			ins := r.SQ.Insert("translations").
				Columns("key_id", "language_id", "content", "status", "entry_order", "translator_id", "created_at", "updated_at").
				Values(c.KeyID, c.LanguageID, c.Content, c.Status, order, c.ChangedBy, ts, ts)
			sqlStr, args, _ = ins.ToSql()
			res, err := tx.ExecContext(ctx, sqlStr, args...)
			if err != nil {
				return fmt.Errorf("insert translation: %w", err)
			}
			id, _ = res.LastInsertId()
		case cur.Content == c.Content && cur.Status == c.Status:
			out = cur
			return nil
		default:
			id, prev = cur.ID, cur.Content
			upd := r.SQ.Update("translations").Set("content", c.Content).Set("status", c.Status).
				Set("translator_id", c.ChangedBy).Set("updated_at", ts).Where(sq.Eq{"id": id})
			sqlStr, args, _ := upd.ToSql()
			if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
				return fmt.Errorf("update translation %d: %w", id, err)
			}
		}
		if cur == nil || cur.Content != c.Content {
			if err := r.appendVersion(ctx, tx, id, c, prev, ts); err != nil {
				return err
			}
		}
		wrote = true
		out, err = r.get(ctx, tx, c.KeyID, c.LanguageID)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return out, wrote, nil
}

func (r *TranslationRepo) appendVersion(ctx context.Context, tx *sql.Tx, translationID int64, c domain.TranslationChange, prev, ts string) error {
	q := r.SQ.Select("COALESCE(MAX(version_number), 0) + 1").From("version_history").Where(sq.Eq{"translation_id": translationID})
	sqlStr, args, _ := q.ToSql()
	var next int
	if err := tx.QueryRowContext(ctx, sqlStr, args...).Scan(&next); err != nil {
		return fmt.Errorf("next version: %w", err)
	}
	ins := r.SQ.Insert("version_history").
		Columns("translation_id", "version_number", "content", "previous_content", "changed_by", "version_name", "created_at").
		Values(translationID, next, c.Content, prev, c.ChangedBy, c.VersionName, ts)
	sqlStr, args, _ = ins.ToSql()
	if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("append version %d of translation %d: %w", next, translationID, err)
	}
	return nil
}

func (r *TranslationRepo) get(ctx context.Context, tx *sql.Tx, keyID, languageID int64) (*domain.Translation, error) {
	q := r.SQ.Select(translationColumns...).From("translations t").
		Join("translation_keys k ON k.id = t.key_id").
		Where(sq.Eq{"t.key_id": keyID, "t.language_id": languageID}).Limit(1)
	sqlStr, args, _ := q.ToSql()
	var row *sql.Row
	if tx != nil {
		row = tx.QueryRowContext(ctx, sqlStr, args...)
	} else {
		row = r.DB.QueryRowContext(ctx, sqlStr, args...)
	}
	t, err := scanTranslation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

func (r *TranslationRepo) Get(ctx context.Context, keyID, languageID int64) (*domain.Translation, error) {
	return r.get(ctx, nil, keyID, languageID)
}

// ListByProjectLanguage returns a language's translations in export order.
func (r *TranslationRepo) ListByProjectLanguage(ctx context.Context, projectID, languageID int64) ([]*domain.Translation, error) {
	q := r.SQ.Select(translationColumns...).From("translations t").
		Join("translation_keys k ON k.id = t.key_id").
		Where(sq.Eq{"k.project_id": projectID, "t.language_id": languageID}).
		OrderBy("t.entry_order", "t.id")
	sqlStr, args, _ := q.ToSql()
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Translation
	for rows.Next() {
		t, err := scanTranslation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TranslationRepo) ListVersions(ctx context.Context, translationID int64) ([]*domain.VersionHistory, error) {
	q := r.SQ.Select("id", "translation_id", "version_number", "content", "previous_content", "changed_by", "version_name", "created_at").
		From("version_history").Where(sq.Eq{"translation_id": translationID}).OrderBy("version_number")
	sqlStr, args, _ := q.ToSql()
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.VersionHistory
	for rows.Next() {
		var v domain.VersionHistory
		var created string
		if err := rows.Scan(&v.ID, &v.TranslationID, &v.VersionNumber, &v.Content, &v.PreviousContent, &v.ChangedBy, &v.VersionName, &created); err != nil {
			return nil, err
		}
		v.CreatedAt = parseTime(created)
		out = append(out, &v)
	}
	return out, rows.Err()
}
