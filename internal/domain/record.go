package domain

import (
	"time"
)

// Status is the normalized outcome of one delivery record. Every raw status
// string from every source maps into exactly one of these three values.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusOther   Status = "other"
)

// Valid reports whether s is one of the three normalized statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusSuccess, StatusFailure, StatusOther:
		return true
	}
	return false
}

// Cents is a fixed-point money amount in hundredths of the account currency.
// Summation over integer cents is exact; the float the sources deliver is
// converted once at normalization time and never used again.
type Cents int64

// Dollars returns the amount as a float for display purposes only.
func (c Cents) Dollars() float64 { return float64(c) / 100 }

// Record is the atomic unit of delivered activity: one outbound contact
// attempt and its outcome.
//
// Identity key = (CampaignID, Recipient, EventAt). Duplicate deliveries of
// the same logical event collapse to one stored row; re-ingestion refreshes
// the mutable fields (status, costs, failure reason) and never changes the
// identity fields.
type Record struct {
	ID            string    `json:"id" db:"id"`
	CampaignID    string    `json:"campaign_id" db:"campaign_id"`
	Recipient     string    `json:"recipient" db:"recipient"`
	EventAt       time.Time `json:"event_at" db:"event_at"`
	Status        Status    `json:"status" db:"status"`
	RawStatus     string    `json:"raw_status" db:"raw_status"`
	CostCents     Cents     `json:"cost_cents" db:"cost_cents"`
	FeeCents      Cents     `json:"fee_cents" db:"fee_cents"`
	FailureReason string    `json:"failure_reason,omitempty" db:"failure_reason"`

	// Provenance
	SourceTag   string `json:"source_tag" db:"source_tag"`
	SourceBatch string `json:"source_batch" db:"source_batch"`

	// Campaign identity as delivered by the source, used by the merge
	// engine to resolve/create the campaign row before upserting.
	CampaignExternalID string `json:"-" db:"-"`
	CampaignName       string `json:"-" db:"-"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
