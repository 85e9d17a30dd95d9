package rollup

import (
	"fmt"
	"time"

	"github.com/ignite/campaign-reporter/internal/domain"
)

// Filter is the one explicit query-filter type passed between layers,
// validated once at the query boundary. The date range applies before
// aggregation at every level; the status filter applies only to the
// record list, never to the aggregate metrics.
type Filter struct {
	From       *time.Time
	To         *time.Time
	Status     *domain.Status
	TenantID   *int64
	CampaignID *string
}

// Validate checks bounds ordering and enum membership.
func (f Filter) Validate() error {
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return fmt.Errorf("date range: to (%s) before from (%s)",
			f.To.Format(time.RFC3339), f.From.Format(time.RFC3339))
	}
	if f.Status != nil && !f.Status.Valid() {
		return fmt.Errorf("invalid status filter %q", *f.Status)
	}
	return nil
}

// Page is a validated pagination request.
type Page struct {
	Number int
	Size   int
}

// NormalizePage applies defaults and caps.
func NormalizePage(number, size int) Page {
	if number < 1 {
		number = 1
	}
	if size < 1 {
		size = 50
	}
	if size > 500 {
		size = 500
	}
	return Page{Number: number, Size: size}
}

// Offset returns the row offset for this page.
func (p Page) Offset() int { return (p.Number - 1) * p.Size }
