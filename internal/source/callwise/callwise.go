// Package callwise ingests call outcome records from the Callwise
// call-center API, one whole (tenant, month) window at a time.
package callwise

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ignite/campaign-reporter/internal/config"
	"github.com/ignite/campaign-reporter/internal/domain"
	"github.com/ignite/campaign-reporter/internal/pkg/httpretry"
	"github.com/ignite/campaign-reporter/internal/source"
)

// SourceTag identifies this adapter in provenance and sync-run rows.
const SourceTag = "callwise"

// Client is the Callwise API client. Authentication is a static API key.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient httpretry.HTTPDoer
}

// NewClient creates a Callwise API client from config.
func NewClient(cfg config.CallwiseConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: httpretry.New(&http.Client{
			Timeout: cfg.Timeout(),
		}, 3),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing).
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

// callRecord is one call attempt as the API returns it.
type callRecord struct {
	CampaignRef  string  `json:"campaign_ref"`
	CampaignName string  `json:"campaign_name"`
	Number       string  `json:"number"`
	Disposition  string  `json:"disposition"`
	CalledAt     string  `json:"called_at"`
	Charge       float64 `json:"charge"`
	Note         string  `json:"note"`
}

type callsResponse struct {
	Calls []callRecord `json:"calls"`
}

// Calls fetches all call records for a client account in [from, to).
func (c *Client) Calls(ctx context.Context, account string, from, to time.Time) ([]callRecord, error) {
	params := url.Values{}
	params.Set("client", account)
	params.Set("from", from.UTC().Format(time.RFC3339))
	params.Set("to", to.UTC().Format(time.RFC3339))

	endpoint := fmt.Sprintf("%s/api/v2/calls?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("callwise request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("callwise API error (status %d): %s", resp.StatusCode, string(body))
	}

	var out callsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out.Calls, nil
}

// Adapter implements source.WindowSource over the Callwise client.
type Adapter struct {
	client *Client
}

// NewAdapter wraps a Callwise client as a window source.
func NewAdapter(client *Client) *Adapter { return &Adapter{client: client} }

// Tag returns the adapter's source tag.
func (a *Adapter) Tag() string { return SourceTag }

// FetchWindow fetches one tenant's call records for [from, to). Any
// upstream error fails the whole window: no records, no partial cursor.
func (a *Adapter) FetchWindow(ctx context.Context, tenant domain.Tenant, from, to time.Time) ([]source.RawRecord, error) {
	account := strings.ToLower(strings.TrimSpace(tenant.Name))
	calls, err := a.client.Calls(ctx, account, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetch callwise window %s %s: %w", account, from.Format("2006-01"), err)
	}

	batch := fmt.Sprintf("%s/%s/%s", SourceTag, account, from.Format("2006-01"))
	records := make([]source.RawRecord, 0, len(calls))
	for _, call := range calls {
		records = append(records, source.RawRecord{
			Batch: batch,
			Fields: map[string]string{
				source.FieldCampaignID:   call.CampaignRef,
				source.FieldCampaignName: call.CampaignName,
				source.FieldRecipient:    call.Number,
				source.FieldStatus:       call.Disposition,
				source.FieldEventAt:      call.CalledAt,
				source.FieldCost:         strconv.FormatFloat(call.Charge, 'f', -1, 64),
				source.FieldReason:       call.Note,
			},
		})
	}
	return records, nil
}
