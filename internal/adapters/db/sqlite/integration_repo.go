package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"linguaflow/internal/domain"
)

type IntegrationRepo struct{ *Repo }

func NewIntegrationRepo(db *sql.DB) *IntegrationRepo { return &IntegrationRepo{NewRepo(db)} }

var integrationColumns = []string{"id", "project_id", "provider", "config_json", "is_connected", "last_synced_at", "created_at", "updated_at"}

func (r *IntegrationRepo) Create(ctx context.Context, in *domain.Integration) error {
	cfg, err := json.Marshal(in.Config)
	if err != nil {
		return fmt.Errorf("encode integration config: %w", err)
	}
	now, ts := nowText()
	q := r.SQ.Insert("integrations").Columns("project_id", "provider", "config_json", "is_connected", "created_at", "updated_at").
		Values(in.ProjectID, in.Provider, string(cfg), in.IsConnected, ts, ts)
	sqlStr, args, _ := q.ToSql()
	res, err := r.DB.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("integration for project %d: %w", in.ProjectID, domain.ErrAlreadyExists)
		}
		return err
	}
	id, _ := res.LastInsertId()
	in.ID = id
	in.CreatedAt = now
	in.UpdatedAt = now
	return nil
}

func (r *IntegrationRepo) scan(row rowScanner) (*domain.Integration, error) {
	var in domain.Integration
	var cfg, created, updated string
	var last sql.NullString
	if err := row.Scan(&in.ID, &in.ProjectID, &in.Provider, &cfg, &in.IsConnected, &last, &created, &updated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(cfg), &in.Config); err != nil {
		return nil, fmt.Errorf("decode config of integration %d: %w", in.ID, err)
	}
	if last.Valid {
		t := parseTime(last.String)
		in.LastSyncedAt = &t
	}
	in.CreatedAt = parseTime(created)
	in.UpdatedAt = parseTime(updated)
	return &in, nil
}

func (r *IntegrationRepo) getWhere(ctx context.Context, where sq.Eq) (*domain.Integration, error) {
	q := r.SQ.Select(integrationColumns...).From("integrations").Where(where).Limit(1)
	sqlStr, args, _ := q.ToSql()
	in, err := r.scan(r.DB.QueryRowContext(ctx, sqlStr, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return in, nil
}

func (r *IntegrationRepo) Get(ctx context.Context, id int64) (*domain.Integration, error) {
	return r.getWhere(ctx, sq.Eq{"id": id})
}

func (r *IntegrationRepo) GetByProject(ctx context.Context, projectID int64) (*domain.Integration, error) {
	return r.getWhere(ctx, sq.Eq{"project_id": projectID})
}

func (r *IntegrationRepo) UpdateConfig(ctx context.Context, id int64, cfg domain.RepoConfig) error {
	b, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode integration config: %w", err)
	}
	_, ts := nowText()
	q := r.SQ.Update("integrations").Set("config_json", string(b)).Set("updated_at", ts).Where(sq.Eq{"id": id})
	return r.execOne(ctx, q, id)
}

// UpdateStatus sets the connected flag. A nil lastSynced keeps the stored value.
func (r *IntegrationRepo) UpdateStatus(ctx context.Context, id int64, connected bool, lastSynced *time.Time) error {
	_, ts := nowText()
	q := r.SQ.Update("integrations").Set("is_connected", connected).Set("updated_at", ts).Where(sq.Eq{"id": id})
	if lastSynced != nil {
		q = q.Set("last_synced_at", lastSynced.UTC().Format(time.RFC3339))
	}
	return r.execOne(ctx, q, id)
}

func (r *IntegrationRepo) execOne(ctx context.Context, q sq.UpdateBuilder, id int64) error {
	sqlStr, args, _ := q.ToSql()
	res, err := r.DB.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("integration %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *IntegrationRepo) Delete(ctx context.Context, id int64) error {
	q := r.SQ.Delete("integrations").Where(sq.Eq{"id": id})
	sqlStr, args, _ := q.ToSql()
	_, err := r.DB.ExecContext(ctx, sqlStr, args...)
	return err
}
