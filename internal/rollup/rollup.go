// Package rollup serves the read side: tenant, campaign, and record level
// aggregations over the canonical store. All aggregation happens in SQL;
// this package never loads record sets into memory to count them.
package rollup

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ignite/campaign-reporter/internal/domain"
)

// Metrics is the status breakdown shown on the metric cards. It is always
// computed over the date-filtered scope only — a status filter on the
// record list never changes these numbers.
type Metrics struct {
	Total   int64 `json:"total"`
	Success int64 `json:"success"`
	Failure int64 `json:"failure"`
	Other   int64 `json:"other"`
}

// TenantRollup is one row of the top-level tenant breakdown. Campaigns
// that correlate to no tenant are grouped under the Unknown bucket with a
// nil TenantID.
type TenantRollup struct {
	TenantID      *int64  `json:"tenant_id"`
	TenantName    string  `json:"tenant_name"`
	CampaignCount int64   `json:"campaign_count"`
	Metrics       Metrics `json:"metrics"`
}

// CampaignRollup is one row of a tenant's campaign breakdown.
type CampaignRollup struct {
	CampaignID string  `json:"campaign_id"`
	ExternalID string  `json:"external_id"`
	Name       string  `json:"name"`
	SourceTag  string  `json:"source_tag"`
	Metrics    Metrics `json:"metrics"`
}

// RecordRow is one record in the drill-down list.
type RecordRow struct {
	ID            string        `json:"id"`
	CampaignID    string        `json:"campaign_id"`
	CampaignName  string        `json:"campaign_name"`
	Recipient     string        `json:"recipient"`
	EventAt       time.Time     `json:"event_at"`
	Status        domain.Status `json:"status"`
	RawStatus     string        `json:"raw_status"`
	CostCents     int64         `json:"cost_cents"`
	FeeCents      int64         `json:"fee_cents"`
	FailureReason string        `json:"failure_reason,omitempty"`
	SourceTag     string        `json:"source_tag"`
}

// RecordPage is the paginated record list plus the metrics for the same
// scope. Metrics ignore the status filter so the cards stay stable while
// the list is filtered underneath them.
type RecordPage struct {
	Records    []RecordRow `json:"records"`
	Metrics    Metrics     `json:"metrics"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	Total      int64       `json:"total"`
	TotalPages int         `json:"total_pages"`
}

// Engine answers rollup queries against Postgres.
type Engine struct {
	db *sql.DB
}

// New creates a rollup engine.
func New(db *sql.DB) *Engine { return &Engine{db: db} }

// metricsSelect is the shared status-breakdown projection. Sub-counts use
// FILTER so one pass over the rows yields all four numbers, and they
// always sum to the total by construction.
const metricsSelect = `COUNT(r.id) AS total,
	COUNT(r.id) FILTER (WHERE r.status = 'success') AS success,
	COUNT(r.id) FILTER (WHERE r.status = 'failure') AS failure,
	COUNT(r.id) FILTER (WHERE r.status = 'other') AS other`

// dateClauses renders the inclusive event-timestamp bounds, appending the
// bound values to args. Only the date range belongs here: the status
// filter is applied separately and only to record lists.
func dateClauses(f Filter, args *[]interface{}) []string {
	var clauses []string
	if f.From != nil {
		*args = append(*args, *f.From)
		clauses = append(clauses, fmt.Sprintf("r.event_at >= $%d", len(*args)))
	}
	if f.To != nil {
		*args = append(*args, *f.To)
		clauses = append(clauses, fmt.Sprintf("r.event_at <= $%d", len(*args)))
	}
	return clauses
}

func whereSQL(clauses []string) string {
	if len(clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(clauses, " AND ")
}

// Tenants returns the tenant-level breakdown for the given date range,
// ordered by record volume. Untenanted campaigns appear as one Unknown
// row so their records are never silently dropped from the report.
func (e *Engine) Tenants(ctx context.Context, f Filter) ([]TenantRollup, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	var args []interface{}
	clauses := dateClauses(f, &args)

	query := fmt.Sprintf(
		`SELECT t.id, COALESCE(t.name, '%s') AS tenant_name,
			COUNT(DISTINCT c.id) AS campaign_count, %s
		 FROM records r
		 JOIN campaigns c ON c.id = r.campaign_id
		 LEFT JOIN tenants t ON t.id = c.tenant_id
		 %s
		 GROUP BY t.id, t.name
		 ORDER BY total DESC, tenant_name ASC`,
		domain.UnknownTenant, metricsSelect, whereSQL(clauses))

	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("tenant rollup: %w", err)
	}
	defer rows.Close()

	var out []TenantRollup
	for rows.Next() {
		var (
			tr TenantRollup
			id sql.NullInt64
		)
		if err := rows.Scan(&id, &tr.TenantName, &tr.CampaignCount,
			&tr.Metrics.Total, &tr.Metrics.Success, &tr.Metrics.Failure, &tr.Metrics.Other); err != nil {
			return nil, fmt.Errorf("scan tenant rollup: %w", err)
		}
		if id.Valid {
			v := id.Int64
			tr.TenantID = &v
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

// Campaigns returns the campaign-level breakdown for one tenant. A nil
// tenantID selects the Unknown bucket (campaigns with no correlation).
func (e *Engine) Campaigns(ctx context.Context, tenantID *int64, f Filter) ([]CampaignRollup, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	var args []interface{}
	clauses := dateClauses(f, &args)
	if tenantID != nil {
		args = append(args, *tenantID)
		clauses = append(clauses, fmt.Sprintf("c.tenant_id = $%d", len(args)))
	} else {
		clauses = append(clauses, "c.tenant_id IS NULL")
	}

	query := fmt.Sprintf(
		`SELECT c.id, c.external_id, c.name, c.source_tag, %s
		 FROM records r
		 JOIN campaigns c ON c.id = r.campaign_id
		 %s
		 GROUP BY c.id, c.external_id, c.name, c.source_tag
		 ORDER BY total DESC, c.name ASC`,
		metricsSelect, whereSQL(clauses))

	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("campaign rollup: %w", err)
	}
	defer rows.Close()

	var out []CampaignRollup
	for rows.Next() {
		var cr CampaignRollup
		if err := rows.Scan(&cr.CampaignID, &cr.ExternalID, &cr.Name, &cr.SourceTag,
			&cr.Metrics.Total, &cr.Metrics.Success, &cr.Metrics.Failure, &cr.Metrics.Other); err != nil {
			return nil, fmt.Errorf("scan campaign rollup: %w", err)
		}
		out = append(out, cr)
	}
	return out, rows.Err()
}

// Records returns one page of the record-level drill-down plus the
// metrics for the same scope. The status filter narrows the page and the
// pagination total only; the metrics are computed before it is applied.
func (e *Engine) Records(ctx context.Context, f Filter, page Page) (*RecordPage, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	// Re-normalize here as well: a zero-size page must never reach the
	// TotalPages division.
	page = NormalizePage(page.Number, page.Size)

	// Scope shared by the metrics and the list: dates, tenant, campaign.
	var scopeArgs []interface{}
	scope := dateClauses(f, &scopeArgs)
	if f.CampaignID != nil {
		scopeArgs = append(scopeArgs, *f.CampaignID)
		scope = append(scope, fmt.Sprintf("r.campaign_id = $%d", len(scopeArgs)))
	}
	if f.TenantID != nil {
		scopeArgs = append(scopeArgs, *f.TenantID)
		scope = append(scope, fmt.Sprintf("c.tenant_id = $%d", len(scopeArgs)))
	}

	out := &RecordPage{Page: page.Number, PageSize: page.Size, Records: []RecordRow{}}

	metricsQuery := fmt.Sprintf(
		`SELECT %s
		 FROM records r
		 JOIN campaigns c ON c.id = r.campaign_id
		 %s`, metricsSelect, whereSQL(scope))
	err := e.db.QueryRowContext(ctx, metricsQuery, scopeArgs...).Scan(
		&out.Metrics.Total, &out.Metrics.Success, &out.Metrics.Failure, &out.Metrics.Other)
	if err != nil {
		return nil, fmt.Errorf("record metrics: %w", err)
	}

	// The list additionally honors the status filter.
	listArgs := append([]interface{}{}, scopeArgs...)
	listClauses := append([]string{}, scope...)
	if f.Status != nil {
		listArgs = append(listArgs, string(*f.Status))
		listClauses = append(listClauses, fmt.Sprintf("r.status = $%d", len(listArgs)))
	}

	countQuery := fmt.Sprintf(
		`SELECT COUNT(r.id)
		 FROM records r
		 JOIN campaigns c ON c.id = r.campaign_id
		 %s`, whereSQL(listClauses))
	if err := e.db.QueryRowContext(ctx, countQuery, listArgs...).Scan(&out.Total); err != nil {
		return nil, fmt.Errorf("record count: %w", err)
	}
	out.TotalPages = int((out.Total + int64(page.Size) - 1) / int64(page.Size))

	pageArgs := append([]interface{}{}, listArgs...)
	pageArgs = append(pageArgs, page.Size, page.Offset())
	listQuery := fmt.Sprintf(
		`SELECT r.id, r.campaign_id, c.name, r.recipient, r.event_at,
			r.status, r.raw_status, r.cost_cents, r.fee_cents,
			COALESCE(r.failure_reason, ''), r.source_tag
		 FROM records r
		 JOIN campaigns c ON c.id = r.campaign_id
		 %s
		 ORDER BY r.event_at DESC, r.id ASC
		 LIMIT $%d OFFSET $%d`,
		whereSQL(listClauses), len(pageArgs)-1, len(pageArgs))

	rows, err := e.db.QueryContext(ctx, listQuery, pageArgs...)
	if err != nil {
		return nil, fmt.Errorf("record list: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rr     RecordRow
			status string
		)
		if err := rows.Scan(&rr.ID, &rr.CampaignID, &rr.CampaignName, &rr.Recipient,
			&rr.EventAt, &status, &rr.RawStatus, &rr.CostCents, &rr.FeeCents,
			&rr.FailureReason, &rr.SourceTag); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rr.Status = domain.Status(status)
		out.Records = append(out.Records, rr)
	}
	return out, rows.Err()
}
