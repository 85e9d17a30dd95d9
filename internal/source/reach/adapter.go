package reach

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ignite/campaign-reporter/internal/domain"
	"github.com/ignite/campaign-reporter/internal/source"
)

// SourceTag identifies this adapter in provenance and sync-run rows.
const SourceTag = "reach"

// Adapter implements source.WindowSource over the Reach client. The
// tenant's account slug on the Reach side is its lowercased name.
type Adapter struct {
	client *Client
}

// NewAdapter wraps a Reach client as a window source.
func NewAdapter(client *Client) *Adapter { return &Adapter{client: client} }

// Tag returns the adapter's source tag.
func (a *Adapter) Tag() string { return SourceTag }

// FetchWindow fetches one tenant's message events for [from, to). Any
// upstream error fails the whole window: no records, no partial cursor.
func (a *Adapter) FetchWindow(ctx context.Context, tenant domain.Tenant, from, to time.Time) ([]source.RawRecord, error) {
	account := accountSlug(tenant.Name)
	events, err := a.client.Messages(ctx, account, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetch reach window %s %s: %w", account, from.Format("2006-01"), err)
	}

	batch := fmt.Sprintf("%s/%s/%s", SourceTag, account, from.Format("2006-01"))
	records := make([]source.RawRecord, 0, len(events))
	for _, ev := range events {
		records = append(records, source.RawRecord{
			Batch: batch,
			Fields: map[string]string{
				source.FieldCampaignID:   ev.CampaignID,
				source.FieldCampaignName: ev.CampaignName,
				source.FieldRecipient:    ev.Recipient,
				source.FieldStatus:       ev.Status,
				source.FieldEventAt:      ev.SentAt,
				source.FieldCost:         strconv.FormatFloat(ev.Cost, 'f', -1, 64),
				source.FieldFee:          strconv.FormatFloat(ev.Fee, 'f', -1, 64),
				source.FieldReason:       ev.Reason,
			},
		})
	}
	return records, nil
}

// accountSlug derives the Reach account identifier from a tenant name.
func accountSlug(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}
