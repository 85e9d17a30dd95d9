package domain

import (
	"fmt"
	"time"
)

// Month is a calendar month in "YYYY-MM" form, the coarse fetch-window unit
// for the API sources.
type Month string

// MonthOf returns the Month containing t (in UTC).
func MonthOf(t time.Time) Month {
	return Month(t.UTC().Format("2006-01"))
}

// Bounds returns the inclusive start and exclusive end of the month in UTC.
func (m Month) Bounds() (time.Time, time.Time, error) {
	t, err := time.Parse("2006-01", string(m))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month %q: %w", m, err)
	}
	return t, t.AddDate(0, 1, 0), nil
}

// Next returns the following calendar month.
func (m Month) Next() Month {
	t, err := time.Parse("2006-01", string(m))
	if err != nil {
		return m
	}
	return MonthOf(t.AddDate(0, 1, 0))
}

// Before reports whether m sorts before other. The "YYYY-MM" form makes
// lexicographic and chronological order identical.
func (m Month) Before(other Month) bool { return m < other }

// FetchWindow marks that a (tenant, source, month) window has been
// retrieved. From/To record the literal timestamps actually queried so a
// partial-month fetch stays distinguishable from a full one; the tracker
// records, it never computes gaps.
type FetchWindow struct {
	TenantID  int64     `json:"tenant_id" db:"tenant_id"`
	SourceTag string    `json:"source_tag" db:"source_tag"`
	Month     Month     `json:"month" db:"month"`
	From      time.Time `json:"from" db:"from_at"`
	To        time.Time `json:"to" db:"to_at"`
	FetchedAt time.Time `json:"fetched_at" db:"fetched_at"`
}

// ImportedFile marks that a bulk-delivery file has been ingested. A file
// name is processed at most once.
type ImportedFile struct {
	FileName    string    `json:"file_name" db:"file_name"`
	SourceTag   string    `json:"source_tag" db:"source_tag"`
	RecordCount int       `json:"record_count" db:"record_count"`
	ErrorCount  int       `json:"error_count" db:"error_count"`
	ImportedAt  time.Time `json:"imported_at" db:"imported_at"`
}
