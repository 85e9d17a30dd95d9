package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ignite/campaign-reporter/internal/domain"
	"github.com/ignite/campaign-reporter/internal/pkg/httputil"
	"github.com/ignite/campaign-reporter/internal/rollup"
)

// parseFilter reads the shared query params: from, to, status, campaign_id.
// Dates accept RFC3339 or plain "2006-01-02"; a date-only "to" is widened
// to the end of that day so the range stays inclusive.
func parseFilter(r *http.Request) (rollup.Filter, error) {
	var f rollup.Filter
	q := r.URL.Query()

	if raw := q.Get("from"); raw != "" {
		t, _, err := parseDate(raw)
		if err != nil {
			return f, fmt.Errorf("from: %w", err)
		}
		f.From = &t
	}
	if raw := q.Get("to"); raw != "" {
		t, dateOnly, err := parseDate(raw)
		if err != nil {
			return f, fmt.Errorf("to: %w", err)
		}
		if dateOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		f.To = &t
	}
	if raw := q.Get("status"); raw != "" {
		st := domain.Status(raw)
		if !st.Valid() {
			return f, fmt.Errorf("status: unknown value %q", raw)
		}
		f.Status = &st
	}
	if raw := q.Get("campaign_id"); raw != "" {
		f.CampaignID = &raw
	}
	return f, nil
}

func parseDate(raw string) (time.Time, bool, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.UTC(), true, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid date %q", raw)
	}
	return t.UTC(), false, nil
}

// HandleTenantRollup returns the tenant-level breakdown.
//
//	GET /api/rollup/tenants?from=&to=
func (h *Handlers) HandleTenantRollup(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	tenants, err := h.rollups.Tenants(r.Context(), f)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if tenants == nil {
		tenants = []rollup.TenantRollup{}
	}
	httputil.OK(w, map[string]any{"tenants": tenants})
}

// HandleCampaignRollup returns one tenant's campaign breakdown. The path
// segment "unknown" selects campaigns correlated to no tenant.
//
//	GET /api/rollup/tenants/{tenantID}/campaigns?from=&to=
func (h *Handlers) HandleCampaignRollup(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	var tenantID *int64
	if raw := chi.URLParam(r, "tenantID"); raw != domain.UnknownTenant && raw != "unknown" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httputil.BadRequest(w, "invalid tenant id: "+raw)
			return
		}
		tenantID = &id
	}

	campaigns, err := h.rollups.Campaigns(r.Context(), tenantID, f)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if campaigns == nil {
		campaigns = []rollup.CampaignRollup{}
	}
	httputil.OK(w, map[string]any{"campaigns": campaigns})
}

// HandleRecords returns one page of the record drill-down with its
// scope metrics. The status filter narrows the list only, never the
// metrics.
//
//	GET /api/rollup/records?from=&to=&status=&campaign_id=&tenant_id=&page=&limit=
func (h *Handlers) HandleRecords(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if raw := r.URL.Query().Get("tenant_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httputil.BadRequest(w, "invalid tenant_id: "+raw)
			return
		}
		f.TenantID = &id
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	result, err := h.rollups.Records(r.Context(), f, rollup.NormalizePage(page, limit))
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, result)
}
