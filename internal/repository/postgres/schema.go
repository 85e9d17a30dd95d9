// Package postgres holds the canonical-store schema and the stores that
// don't belong to a domain engine.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/campaign-reporter/internal/pkg/logger"
)

// schemaStatements create the canonical store. Statements are idempotent
// so EnsureSchema can run on every boot.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS tenants (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS campaigns (
		id UUID PRIMARY KEY,
		source_tag TEXT NOT NULL,
		external_id TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		tenant_id BIGINT REFERENCES tenants(id) ON DELETE SET NULL,
		record_count BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (source_tag, external_id)
	)`,

	`CREATE TABLE IF NOT EXISTS records (
		id UUID PRIMARY KEY,
		campaign_id UUID NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
		recipient TEXT NOT NULL,
		event_at TIMESTAMPTZ NOT NULL,
		status TEXT NOT NULL,
		raw_status TEXT NOT NULL DEFAULT '',
		cost_cents BIGINT NOT NULL DEFAULT 0,
		fee_cents BIGINT NOT NULL DEFAULT 0,
		failure_reason TEXT,
		source_tag TEXT NOT NULL,
		source_batch TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (campaign_id, recipient, event_at)
	)`,

	`CREATE TABLE IF NOT EXISTS imported_files (
		id BIGSERIAL PRIMARY KEY,
		file_name TEXT NOT NULL UNIQUE,
		source_tag TEXT NOT NULL,
		record_count INT NOT NULL DEFAULT 0,
		error_count INT NOT NULL DEFAULT 0,
		imported_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS fetch_windows (
		id BIGSERIAL PRIMARY KEY,
		tenant_id BIGINT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
		source_tag TEXT NOT NULL,
		month TEXT NOT NULL,
		from_at TIMESTAMPTZ NOT NULL,
		to_at TIMESTAMPTZ NOT NULL,
		fetched_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (tenant_id, source_tag, month)
	)`,

	`CREATE TABLE IF NOT EXISTS sync_runs (
		id UUID PRIMARY KEY,
		source_tag TEXT NOT NULL,
		outcome TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ,
		files_processed INT NOT NULL DEFAULT 0,
		campaigns_processed INT NOT NULL DEFAULT 0,
		records_processed INT NOT NULL DEFAULT 0,
		error_count INT NOT NULL DEFAULT 0,
		error_summary TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE INDEX IF NOT EXISTS idx_records_event_at ON records (event_at)`,
	`CREATE INDEX IF NOT EXISTS idx_records_campaign_status ON records (campaign_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_campaigns_tenant ON campaigns (tenant_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sync_runs_started ON sync_runs (source_tag, started_at DESC)`,
}

// EnsureSchema creates all tables and indexes if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	logger.Info("postgres: schema ensured")
	return nil
}
