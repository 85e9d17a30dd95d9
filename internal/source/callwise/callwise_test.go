package callwise

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ignite/campaign-reporter/internal/domain"
	"github.com/ignite/campaign-reporter/internal/source"
)

func testClient(baseURL, apiKey string) *Client {
	c := &Client{baseURL: baseURL, apiKey: apiKey}
	c.SetHTTPClient(http.DefaultClient)
	return c
}

func TestCallsSendsAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "secret-key" {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		if got := r.URL.Query().Get("client"); got != "acme" {
			t.Errorf("client param = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(callsResponse{Calls: []callRecord{
			{CampaignRef: "CW-1", Number: "+15550100", Disposition: "answered", CalledAt: "2026-03-05T14:00:00Z", Charge: 0.30},
		}})
	}))
	defer server.Close()

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	calls, err := testClient(server.URL, "secret-key").Calls(context.Background(), "acme", from, from.AddDate(0, 1, 0))
	if err != nil {
		t.Fatalf("Calls() error: %v", err)
	}
	if len(calls) != 1 || calls[0].CampaignRef != "CW-1" {
		t.Errorf("calls = %+v", calls)
	}
}

func TestCallsWrongKeyFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := testClient(server.URL, "wrong").Calls(context.Background(), "acme", from, from.AddDate(0, 1, 0))
	if err == nil {
		t.Error("Calls() swallowed an auth failure")
	}
}

func TestFetchWindowMapsCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(callsResponse{Calls: []callRecord{{
			CampaignRef:  "CW-7",
			CampaignName: "Globex - Winback Calls",
			Number:       "+15550123",
			Disposition:  "no_answer",
			CalledAt:     "2026-03-10T16:30:00Z",
			Charge:       0.45,
			Note:         "rang out",
		}}})
	}))
	defer server.Close()

	adapter := NewAdapter(testClient(server.URL, "k"))
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	records, err := adapter.FetchWindow(context.Background(),
		domain.Tenant{ID: 2, Name: "Globex"}, from, from.AddDate(0, 1, 0))
	if err != nil {
		t.Fatalf("FetchWindow() error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	rec := records[0]
	if rec.Batch != "callwise/globex/2026-03" {
		t.Errorf("Batch = %q", rec.Batch)
	}
	if rec.Get(source.FieldRecipient) != "+15550123" {
		t.Errorf("recipient = %q", rec.Get(source.FieldRecipient))
	}
	if rec.Get(source.FieldStatus) != "no_answer" {
		t.Errorf("status = %q", rec.Get(source.FieldStatus))
	}
	if rec.Get(source.FieldCost) != "0.45" {
		t.Errorf("cost = %q", rec.Get(source.FieldCost))
	}
	if rec.Get(source.FieldReason) != "rang out" {
		t.Errorf("reason = %q", rec.Get(source.FieldReason))
	}
}
