// Package api exposes the HTTP surface: sync triggers and progress,
// run history, and the rollup read endpoints.
package api

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/ignite/campaign-reporter/internal/rollup"
	"github.com/ignite/campaign-reporter/internal/syncer"
	"github.com/redis/go-redis/v9"
)

// Server is the API server.
type Server struct {
	handler http.Handler
	server  *http.Server
}

// NewServer wires the handlers and routes.
func NewServer(syncers []*syncer.Syncer, runs RunHistory, rollups *rollup.Engine, db *sql.DB, redisClient *redis.Client) *Server {
	h := &Handlers{
		syncers: make(map[string]*syncer.Syncer, len(syncers)),
		runs:    runs,
		rollups: rollups,
		health:  NewHealthChecker(db, redisClient),
	}
	for _, s := range syncers {
		h.syncers[s.Tag()] = s
	}
	return &Server{handler: SetupRoutes(h)}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.handler
}
