package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"linguaflow/internal/domain"
)

// SyncHistoryRepo stores sync attempts. Rows are never updated.
type SyncHistoryRepo struct{ *Repo }

func NewSyncHistoryRepo(db *sql.DB) *SyncHistoryRepo { return &SyncHistoryRepo{NewRepo(db)} }

var syncHistoryColumns = []string{"id", "project_id", "integration_id", "kind", "status", "details_json", "created_at"}

func (r *SyncHistoryRepo) Create(ctx context.Context, h *domain.SyncHistory) error {
	details, err := json.Marshal(h.Details)
	if err != nil {
		return fmt.Errorf("encode sync details: %w", err)
	}
	now, ts := nowText()
	q := r.SQ.Insert("sync_history").Columns("project_id", "integration_id", "kind", "status", "details_json", "created_at").
		Values(h.ProjectID, h.IntegrationID, h.Kind, h.Status, string(details), ts)
	sqlStr, args, _ := q.ToSql()
	res, err := r.DB.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	h.ID = id
	h.CreatedAt = now
	return nil
}

func scanSyncHistory(row rowScanner) (*domain.SyncHistory, error) {
	var h domain.SyncHistory
	var details, created string
	if err := row.Scan(&h.ID, &h.ProjectID, &h.IntegrationID, &h.Kind, &h.Status, &details, &created); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(details), &h.Details); err != nil {
		return nil, fmt.Errorf("decode sync details %d: %w", h.ID, err)
	}
	h.CreatedAt = parseTime(created)
	return &h, nil
}

// ListByProject returns the newest entries first.
func (r *SyncHistoryRepo) ListByProject(ctx context.Context, projectID int64, limit int) ([]*domain.SyncHistory, error) {
	if limit <= 0 {
		limit = 50
	}
	q := r.SQ.Select(syncHistoryColumns...).From("sync_history").Where(sq.Eq{"project_id": projectID}).
		OrderBy("id DESC").Limit(uint64(limit))
	sqlStr, args, _ := q.ToSql()
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.SyncHistory
	for rows.Next() {
		h, err := scanSyncHistory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Latest returns the newest entry matching kind and status, or nil.
func (r *SyncHistoryRepo) Latest(ctx context.Context, projectID, integrationID int64, kind, status string) (*domain.SyncHistory, error) {
	where := sq.Eq{"project_id": projectID, "integration_id": integrationID}
	if kind != "" {
		where["kind"] = kind
	}
	if status != "" {
		where["status"] = status
	}
	q := r.SQ.Select(syncHistoryColumns...).From("sync_history").Where(where).OrderBy("id DESC").Limit(1)
	sqlStr, args, _ := q.ToSql()
	h, err := scanSyncHistory(r.DB.QueryRowContext(ctx, sqlStr, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return h, nil
}
