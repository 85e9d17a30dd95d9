// Package fetchwindow tracks which bulk files and which (tenant, month)
// windows have already been retrieved, so re-running the orchestrator
// skips everything already ingested.
package fetchwindow

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ignite/campaign-reporter/internal/domain"
)

// Tracker persists fetch markers in Postgres. It records and reports; it
// never computes gaps or decides what to fetch next beyond listing
// unmarked months.
type Tracker struct {
	db *sql.DB
}

// New creates a Postgres-backed tracker.
func New(db *sql.DB) *Tracker { return &Tracker{db: db} }

// IsFileImported reports whether the named file has already been ingested.
func (t *Tracker) IsFileImported(ctx context.Context, name string) (bool, error) {
	var n int
	err := t.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM imported_files WHERE file_name = $1`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check imported file: %w", err)
	}
	return n > 0, nil
}

// MarkFileImported records a file as ingested. A duplicate mark is an
// idempotent no-op, never an error: the uniqueness constraint is the guard.
func (t *Tracker) MarkFileImported(ctx context.Context, f domain.ImportedFile) error {
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO imported_files (file_name, source_tag, record_count, error_count, imported_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (file_name) DO NOTHING`,
		f.FileName, f.SourceTag, f.RecordCount, f.ErrorCount)
	if err != nil {
		return fmt.Errorf("mark file imported: %w", err)
	}
	return nil
}

// IsMonthFetched reports whether the (tenant, source, month) window has
// been marked fetched.
func (t *Tracker) IsMonthFetched(ctx context.Context, tenantID int64, tag string, month domain.Month) (bool, error) {
	var n int
	err := t.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM fetch_windows
		 WHERE tenant_id = $1 AND source_tag = $2 AND month = $3`,
		tenantID, tag, string(month)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check fetch window: %w", err)
	}
	return n > 0, nil
}

// MarkMonthFetched records a window as fetched, including the literal
// from/to actually queried so partial-month fetches stay distinguishable.
// Duplicate marks are idempotent no-ops.
func (t *Tracker) MarkMonthFetched(ctx context.Context, w domain.FetchWindow) error {
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO fetch_windows (tenant_id, source_tag, month, from_at, to_at, fetched_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 ON CONFLICT (tenant_id, source_tag, month) DO NOTHING`,
		w.TenantID, w.SourceTag, string(w.Month), w.From, w.To)
	if err != nil {
		return fmt.Errorf("mark month fetched: %w", err)
	}
	return nil
}

// MonthsToFetch returns the completed whole months in [since, until) not
// yet marked fetched for the tenant, in ascending chronological order. The
// month containing until is still accumulating data and is never listed;
// it becomes fetchable once until crosses into the following month.
func (t *Tracker) MonthsToFetch(ctx context.Context, tenantID int64, tag string, since, until time.Time) ([]domain.Month, error) {
	rows, err := t.db.QueryContext(ctx,
		`SELECT month FROM fetch_windows
		 WHERE tenant_id = $1 AND source_tag = $2`,
		tenantID, tag)
	if err != nil {
		return nil, fmt.Errorf("list fetch windows: %w", err)
	}
	defer rows.Close()

	fetched := make(map[domain.Month]bool)
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan fetch window: %w", err)
		}
		fetched[domain.Month(m)] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var missing []domain.Month
	last := domain.MonthOf(until)
	for m := domain.MonthOf(since); m.Before(last); m = m.Next() {
		if !fetched[m] {
			missing = append(missing, m)
		}
	}
	return missing, nil
}

// ResetFile forgets an imported file so the next run re-ingests it.
// Data-reset use only.
func (t *Tracker) ResetFile(ctx context.Context, name string) error {
	_, err := t.db.ExecContext(ctx,
		`DELETE FROM imported_files WHERE file_name = $1`, name)
	if err != nil {
		return fmt.Errorf("reset imported file: %w", err)
	}
	return nil
}

// ResetMonth forgets a fetched window so the next run re-requests it.
// Data-reset use only.
func (t *Tracker) ResetMonth(ctx context.Context, tenantID int64, tag string, month domain.Month) error {
	_, err := t.db.ExecContext(ctx,
		`DELETE FROM fetch_windows
		 WHERE tenant_id = $1 AND source_tag = $2 AND month = $3`,
		tenantID, tag, string(month))
	if err != nil {
		return fmt.Errorf("reset fetch window: %w", err)
	}
	return nil
}
