// Package source defines the adapter contracts for the external systems
// campaign data is ingested from: the bulk-file delivery channel, the
// marketing-automation API, and the call-center API.
//
// Adapters fetch and translate; they never persist anything. Progress
// markers (imported files, fetched month windows) are advanced by the
// orchestrator only after successful downstream processing, so a failed
// fetch leaves no partial cursor behind.
package source

import (
	"context"
	"time"

	"github.com/ignite/campaign-reporter/internal/domain"
)

// Well-known RawRecord field keys. Every adapter maps its vendor-specific
// shape into these before handing records to the normalizer.
const (
	FieldCampaignID   = "campaign_id"
	FieldCampaignName = "campaign_name"
	FieldRecipient    = "recipient"
	FieldStatus       = "status"
	FieldEventAt      = "event_at"
	FieldCost         = "cost"
	FieldFee          = "fee"
	FieldReason       = "reason"
)

// RawRecord is one untyped row from a source before normalization.
type RawRecord struct {
	// Fields holds the adapter-mapped values under the well-known keys.
	Fields map[string]string
	// Batch is the provenance tag: the file name for the bulk channel,
	// "tag/tenant/month" for the windowed API sources.
	Batch string
}

// Get returns the named field, or "" when absent.
func (r RawRecord) Get(key string) string { return r.Fields[key] }

// FileSource is the contract for the bulk-file delivery channel. Discovery
// is a listing of the drop area; the caller diffs it against the
// imported-file set and fetches only new files.
type FileSource interface {
	Tag() string
	ListFiles(ctx context.Context) ([]string, error)
	FetchFile(ctx context.Context, name string) ([]RawRecord, error)
}

// WindowSource is the contract for the month-windowed API sources. The
// cursor is a (tenant, month) pair; the adapter fetches exactly the
// requested range and fails closed on any upstream error.
type WindowSource interface {
	Tag() string
	FetchWindow(ctx context.Context, tenant domain.Tenant, from, to time.Time) ([]RawRecord, error)
}
