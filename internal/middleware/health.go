package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthStatus struct {
	Status      string    `json:"status"`
	Database    string    `json:"database"`
	LastChecked time.Time `json:"last_checked"`
	Uptime      string    `json:"uptime"`
	Version     string    `json:"version"`
}

// HealthChecker reports liveness together with database reachability. The
// result is cached briefly so frequent health checks do not hammer the pool.
type HealthChecker struct {
	db            Pinger
	version       string
	startTime     time.Time
	cacheDuration time.Duration
	now           func() time.Time

	mu         sync.Mutex
	last       HealthStatus
	lastStatus int
}

func NewHealthChecker(db Pinger, version string) *HealthChecker {
	return &HealthChecker{
		db:            db,
		version:       version,
		startTime:     time.Now(),
		cacheDuration: 5 * time.Second,
		now:           time.Now,
	}
}

func (h *HealthChecker) Handle(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	if h.lastStatus != 0 && now.Sub(h.last.LastChecked) < h.cacheDuration {
		c.JSON(h.lastStatus, h.last)
		return
	}

	status := HealthStatus{
		Status:      "ok",
		Database:    "ok",
		LastChecked: now,
		Uptime:      now.Sub(h.startTime).Round(time.Second).String(),
		Version:     h.version,
	}
	code := http.StatusOK

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		status.Status = "degraded"
		status.Database = "unreachable"
		code = http.StatusServiceUnavailable
	}

	h.last, h.lastStatus = status, code
	c.JSON(code, status)
}
