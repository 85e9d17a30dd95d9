// Package merge upserts normalized records into the canonical store. It is
// the only writer of record rows and of the denormalized campaign record
// counts.
package merge

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/ignite/campaign-reporter/internal/domain"
	"github.com/ignite/campaign-reporter/internal/pkg/logger"
)

// Stats summarizes one merged batch.
type Stats struct {
	Campaigns int
	Records   int
}

// Engine is the dedup/merge engine over the canonical Postgres store.
type Engine struct {
	db *sql.DB
}

// New creates a merge engine.
func New(db *sql.DB) *Engine { return &Engine{db: db} }

// MergeBatch upserts a batch of canonical records for one source. Records
// are grouped per campaign; each campaign's group is merged in its own
// transaction, and the campaign's denormalized record count is recomputed
// with a full COUNT afterwards (never incremented, so overlapping runs
// cannot drift it).
//
// Upserts key on (campaign_id, recipient, event_at). A conflict means the
// same logical event was delivered again: the mutable fields (status,
// costs, failure reason) are refreshed, last write wins. Constraint races
// between concurrent runs resolve through the same ON CONFLICT path and
// are never surfaced as errors.
func (e *Engine) MergeBatch(ctx context.Context, tag string, records []*domain.Record) (Stats, error) {
	var stats Stats
	if len(records) == 0 {
		return stats, nil
	}

	// Group per campaign, preserving first-seen order
	groups := make(map[string][]*domain.Record)
	var order []string
	for _, rec := range records {
		key := rec.CampaignExternalID
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], rec)
	}

	for _, externalID := range order {
		group := groups[externalID]
		n, err := e.mergeCampaign(ctx, tag, externalID, group)
		if err != nil {
			return stats, fmt.Errorf("merge campaign %s/%s: %w", tag, externalID, err)
		}
		stats.Campaigns++
		stats.Records += n
	}
	return stats, nil
}

func (e *Engine) mergeCampaign(ctx context.Context, tag, externalID string, group []*domain.Record) (int, error) {
	campaignID, err := e.ensureCampaign(ctx, tag, externalID, group[0].CampaignName)
	if err != nil {
		return 0, err
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	merged := 0
	for _, rec := range group {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO records
				(id, campaign_id, recipient, event_at, status, raw_status,
				 cost_cents, fee_cents, failure_reason, source_tag, source_batch,
				 created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
			 ON CONFLICT (campaign_id, recipient, event_at) DO UPDATE SET
				status = EXCLUDED.status,
				raw_status = EXCLUDED.raw_status,
				cost_cents = EXCLUDED.cost_cents,
				fee_cents = EXCLUDED.fee_cents,
				failure_reason = EXCLUDED.failure_reason,
				source_batch = EXCLUDED.source_batch,
				updated_at = NOW()`,
			uuid.New().String(), campaignID, rec.Recipient, rec.EventAt,
			string(rec.Status), rec.RawStatus,
			int64(rec.CostCents), int64(rec.FeeCents), rec.FailureReason,
			rec.SourceTag, rec.SourceBatch)
		if err != nil {
			return merged, fmt.Errorf("upsert record: %w", err)
		}
		merged++
	}

	// Recompute the denormalized count inside the same transaction so the
	// count never reflects a half-merged batch.
	_, err = tx.ExecContext(ctx,
		`UPDATE campaigns
		 SET record_count = (SELECT COUNT(*) FROM records WHERE campaign_id = $1),
		     updated_at = NOW()
		 WHERE id = $1`, campaignID)
	if err != nil {
		return merged, fmt.Errorf("recompute record count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return merged, fmt.Errorf("commit: %w", err)
	}
	return merged, nil
}

// ensureCampaign returns the campaign row id for (tag, externalID),
// creating it untenanted when first seen. Correlation to a tenant happens
// separately in RelinkCampaigns.
func (e *Engine) ensureCampaign(ctx context.Context, tag, externalID, name string) (string, error) {
	_, err := e.db.ExecContext(ctx,
		`INSERT INTO campaigns (id, source_tag, external_id, name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NOW(), NOW())
		 ON CONFLICT (source_tag, external_id) DO NOTHING`,
		uuid.New().String(), tag, externalID, name)
	if err != nil {
		return "", fmt.Errorf("ensure campaign: %w", err)
	}

	var id string
	err = e.db.QueryRowContext(ctx,
		`SELECT id FROM campaigns WHERE source_tag = $1 AND external_id = $2`,
		tag, externalID).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("lookup campaign: %w", err)
	}
	return id, nil
}

// RelinkCampaigns re-evaluates tenant correlation for every campaign.
// Called once per sync run, after merging: tenants can be renamed, so the
// result of Correlate is never cached across runs.
func (e *Engine) RelinkCampaigns(ctx context.Context) error {
	tenants, err := e.listTenants(ctx)
	if err != nil {
		return err
	}

	rows, err := e.db.QueryContext(ctx, `SELECT id, name FROM campaigns`)
	if err != nil {
		return fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	type link struct {
		id       string
		tenantID *int64
	}
	var links []link
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return fmt.Errorf("scan campaign: %w", err)
		}
		l := link{id: id}
		if tenantID, ok := Correlate(name, tenants); ok {
			l.tenantID = &tenantID
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	relinked := 0
	for _, l := range links {
		res, err := e.db.ExecContext(ctx,
			`UPDATE campaigns SET tenant_id = $1, updated_at = NOW()
			 WHERE id = $2 AND tenant_id IS DISTINCT FROM $1`,
			l.tenantID, l.id)
		if err != nil {
			return fmt.Errorf("relink campaign %s: %w", l.id, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			relinked++
		}
	}
	if relinked > 0 {
		logger.Info("merge: campaigns relinked", "count", relinked)
	}
	return nil
}

func (e *Engine) listTenants(ctx context.Context) ([]domain.Tenant, error) {
	rows, err := e.db.QueryContext(ctx, `SELECT id, name FROM tenants`)
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

// Tenants exposes the tenant list for the orchestrator's per-tenant loop.
func (e *Engine) Tenants(ctx context.Context) ([]domain.Tenant, error) {
	return e.listTenants(ctx)
}
