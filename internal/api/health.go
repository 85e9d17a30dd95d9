package api

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/ignite/campaign-reporter/internal/pkg/httputil"
	"github.com/redis/go-redis/v9"
)

// HealthStatus is the overall health of the system.
type HealthStatus struct {
	Status string                    `json:"status"` // "healthy", "degraded"
	Uptime string                    `json:"uptime"`
	Checks map[string]ComponentCheck `json:"checks"`
}

// ComponentCheck is the health of a single dependency.
type ComponentCheck struct {
	Status  string `json:"status"` // "up", "down", "not_configured"
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// HealthChecker probes the store and the lock backend. Redis may be nil;
// the check then reports "not_configured" rather than failing.
type HealthChecker struct {
	db          *sql.DB
	redisClient *redis.Client
	startTime   time.Time
}

// NewHealthChecker creates a HealthChecker.
func NewHealthChecker(db *sql.DB, redisClient *redis.Client) *HealthChecker {
	return &HealthChecker{db: db, redisClient: redisClient, startTime: time.Now()}
}

// HandleHealth returns the health of all components. Postgres down means
// degraded with a 503; Redis down only degrades, the lock falls back to
// advisory locks.
//
//	GET /health
func (hc *HealthChecker) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := HealthStatus{
		Status: "healthy",
		Uptime: time.Since(hc.startTime).Round(time.Second).String(),
		Checks: map[string]ComponentCheck{
			"postgres": hc.checkPostgres(ctx),
			"redis":    hc.checkRedis(ctx),
		},
	}

	code := http.StatusOK
	if status.Checks["postgres"].Status == "down" {
		status.Status = "degraded"
		code = http.StatusServiceUnavailable
	} else if status.Checks["redis"].Status == "down" {
		status.Status = "degraded"
	}
	httputil.JSON(w, code, status)
}

func (hc *HealthChecker) checkPostgres(ctx context.Context) ComponentCheck {
	if hc.db == nil {
		return ComponentCheck{Status: "not_configured"}
	}
	start := time.Now()
	if err := hc.db.PingContext(ctx); err != nil {
		return ComponentCheck{Status: "down", Message: err.Error()}
	}
	return ComponentCheck{Status: "up", Latency: fmt.Sprintf("%dms", time.Since(start).Milliseconds())}
}

func (hc *HealthChecker) checkRedis(ctx context.Context) ComponentCheck {
	if hc.redisClient == nil {
		return ComponentCheck{Status: "not_configured"}
	}
	start := time.Now()
	if err := hc.redisClient.Ping(ctx).Err(); err != nil {
		return ComponentCheck{Status: "down", Message: err.Error()}
	}
	return ComponentCheck{Status: "up", Latency: fmt.Sprintf("%dms", time.Since(start).Milliseconds())}
}
