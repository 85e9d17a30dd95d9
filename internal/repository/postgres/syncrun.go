package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/ignite/campaign-reporter/internal/domain"
)

// SyncRunStore persists sync-run rows.
type SyncRunStore struct {
	db *sql.DB
}

// NewSyncRunStore creates a sync-run store.
func NewSyncRunStore(db *sql.DB) *SyncRunStore { return &SyncRunStore{db: db} }

// Begin inserts the run row at start time and assigns its id.
func (s *SyncRunStore) Begin(ctx context.Context, run *domain.SyncRun) error {
	run.ID = uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_runs (id, source_tag, outcome, started_at)
		 VALUES ($1, $2, $3, $4)`,
		run.ID, run.SourceTag, string(run.Outcome), run.StartedAt)
	if err != nil {
		return fmt.Errorf("begin sync run: %w", err)
	}
	return nil
}

// Finish writes the completion fields. Called exactly once per run.
func (s *SyncRunStore) Finish(ctx context.Context, run *domain.SyncRun) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sync_runs SET
			outcome = $2, finished_at = $3,
			files_processed = $4, campaigns_processed = $5,
			records_processed = $6, error_count = $7, error_summary = $8
		 WHERE id = $1`,
		run.ID, string(run.Outcome), run.FinishedAt,
		run.FilesProcessed, run.CampaignsProcessed,
		run.RecordsProcessed, run.ErrorCount, run.ErrorSummary)
	if err != nil {
		return fmt.Errorf("finish sync run: %w", err)
	}
	return nil
}

// Recent returns the latest runs across all sources, newest first.
func (s *SyncRunStore) Recent(ctx context.Context, limit int) ([]domain.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_tag, outcome, started_at, finished_at,
			files_processed, campaigns_processed, records_processed,
			error_count, error_summary
		 FROM sync_runs
		 ORDER BY started_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent sync runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.SyncRun
	for rows.Next() {
		var (
			run     domain.SyncRun
			outcome string
		)
		if err := rows.Scan(&run.ID, &run.SourceTag, &outcome, &run.StartedAt,
			&run.FinishedAt, &run.FilesProcessed, &run.CampaignsProcessed,
			&run.RecordsProcessed, &run.ErrorCount, &run.ErrorSummary); err != nil {
			return nil, fmt.Errorf("scan sync run: %w", err)
		}
		run.Outcome = domain.RunOutcome(outcome)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// TenantStore reads and seeds tenant rows.
type TenantStore struct {
	db *sql.DB
}

// NewTenantStore creates a tenant store.
func NewTenantStore(db *sql.DB) *TenantStore { return &TenantStore{db: db} }

// Ensure inserts a tenant by name if it does not exist and returns its id.
func (s *TenantStore) Ensure(ctx context.Context, name string) (int64, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tenants (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name)
	if err != nil {
		return 0, fmt.Errorf("ensure tenant: %w", err)
	}
	var id int64
	err = s.db.QueryRowContext(ctx, `SELECT id FROM tenants WHERE name = $1`, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("lookup tenant: %w", err)
	}
	return id, nil
}

// List returns all tenants ordered by name.
func (s *TenantStore) List(ctx context.Context) ([]domain.Tenant, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM tenants ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []domain.Tenant
	for rows.Next() {
		var t domain.Tenant
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}
