package domain

import "time"

// Tenant is a customer whose campaign data is tracked separately from
// others. The name doubles as the cross-source correlation key: bulk-file
// campaign name prefixes are matched against it case-insensitively and
// trimmed.
type Tenant struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// UnknownTenant is the rollup bucket for records whose campaign could not
// be correlated to any tenant.
const UnknownTenant = "Unknown"

// Campaign is a named batch of outbound contact attempts. A campaign is
// globally unique within its source by ExternalID, belongs to at most one
// tenant (nil until correlated), and carries a denormalized record count
// maintained exclusively by the merge engine.
type Campaign struct {
	ID          string    `json:"id" db:"id"`
	SourceTag   string    `json:"source_tag" db:"source_tag"`
	ExternalID  string    `json:"external_id" db:"external_id"`
	Name        string    `json:"name" db:"name"`
	TenantID    *int64    `json:"tenant_id" db:"tenant_id"`
	RecordCount int       `json:"record_count" db:"record_count"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
