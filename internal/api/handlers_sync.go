package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/ignite/campaign-reporter/internal/domain"
	"github.com/ignite/campaign-reporter/internal/pkg/httputil"
	"github.com/ignite/campaign-reporter/internal/rollup"
	"github.com/ignite/campaign-reporter/internal/syncer"
)

// RunHistory is the read side of the sync-run log.
type RunHistory interface {
	Recent(ctx context.Context, limit int) ([]domain.SyncRun, error)
}

// Handlers holds the API dependencies.
type Handlers struct {
	syncers map[string]*syncer.Syncer
	runs    RunHistory
	rollups *rollup.Engine
	health  *HealthChecker
}

// HandleSyncTrigger starts a sync for one source.
// Returns 202 when the run started, 409 when one is already in flight.
//
//	POST /api/sync/{source}/trigger
func (h *Handlers) HandleSyncTrigger(w http.ResponseWriter, r *http.Request) {
	tag := chi.URLParam(r, "source")
	s, ok := h.syncers[tag]
	if !ok {
		httputil.NotFound(w, "unknown source: "+tag)
		return
	}

	if err := s.TriggerNow(); err != nil {
		if errors.Is(err, syncer.ErrSyncInProgress) {
			httputil.Conflict(w, "sync already in progress for "+tag)
			return
		}
		httputil.InternalError(w, err)
		return
	}

	httputil.Accepted(w, map[string]string{
		"source": tag,
		"status": "started",
	})
}

// HandleSyncProgress returns the live progress snapshot for one source.
//
//	GET /api/sync/{source}/progress
func (h *Handlers) HandleSyncProgress(w http.ResponseWriter, r *http.Request) {
	tag := chi.URLParam(r, "source")
	s, ok := h.syncers[tag]
	if !ok {
		httputil.NotFound(w, "unknown source: "+tag)
		return
	}
	httputil.OK(w, s.Progress())
}

// HandleSyncRuns returns recent sync runs across all sources, newest first.
//
//	GET /api/sync/runs?limit=N
func (h *Handlers) HandleSyncRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.runs.Recent(r.Context(), limit)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if runs == nil {
		runs = []domain.SyncRun{}
	}
	httputil.OK(w, map[string]any{"runs": runs})
}
