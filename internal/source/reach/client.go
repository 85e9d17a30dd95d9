// Package reach ingests campaign message events from the Reach
// marketing-automation API, one whole (tenant, month) window at a time.
package reach

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ignite/campaign-reporter/internal/config"
	"github.com/ignite/campaign-reporter/internal/pkg/httpretry"
	"golang.org/x/oauth2/clientcredentials"
)

// Client is the Reach API client. Authentication is OAuth2 client
// credentials; the token source refreshes transparently.
type Client struct {
	baseURL    string
	httpClient httpretry.HTTPDoer
}

// NewClient creates a Reach API client from config.
func NewClient(cfg config.ReachConfig) *Client {
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}
	base := cc.Client(context.Background())
	base.Timeout = cfg.Timeout()
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: httpretry.New(base, 3),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing).
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

// messageEvent is one delivered-message event as the API returns it.
type messageEvent struct {
	CampaignID   string  `json:"campaign_id"`
	CampaignName string  `json:"campaign_name"`
	Recipient    string  `json:"recipient"`
	Status       string  `json:"status"`
	SentAt       string  `json:"sent_at"`
	Cost         float64 `json:"cost"`
	Fee          float64 `json:"fee"`
	Reason       string  `json:"reason"`
}

type messagesResponse struct {
	Events []messageEvent `json:"events"`
	Next   string         `json:"next,omitempty"`
}

// Messages fetches all message events for an account in [from, to).
// Pagination follows the opaque "next" token until exhausted.
func (c *Client) Messages(ctx context.Context, account string, from, to time.Time) ([]messageEvent, error) {
	var all []messageEvent
	next := ""

	for {
		endpoint := fmt.Sprintf("%s/v1/accounts/%s/messages", c.baseURL, url.PathEscape(account))
		params := url.Values{}
		params.Set("from", from.UTC().Format(time.RFC3339))
		params.Set("to", to.UTC().Format(time.RFC3339))
		if next != "" {
			params.Set("next", next)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("reach request failed: %w", err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("reach API error (status %d): %s", resp.StatusCode, string(body))
		}

		var page messagesResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		all = append(all, page.Events...)

		if page.Next == "" {
			return all, nil
		}
		next = page.Next
	}
}
