package http

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck probes one dependency; a non-nil error marks it down.
type HealthCheck func(ctx context.Context) error

// CheckResult is the outcome of one HealthCheck.
type CheckResult struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latencyMs"`
}

type HealthResponse struct {
	Status  string                 `json:"status"`
	Version string                 `json:"version,omitempty"`
	Uptime  string                 `json:"uptime"`
	Checks  map[string]CheckResult `json:"checks"`
}

type HealthController struct {
	version string
	started time.Time
	checks  map[string]HealthCheck
}

func NewHealthController(version string, checks map[string]HealthCheck) *HealthController {
	return &HealthController{version: version, started: time.Now(), checks: checks}
}

// Live handles GET /healthz. It only reports that the process is up.
func (h *HealthController) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Status handles GET /health, running every registered check. Failures are
// logged; the response only says which dependency is down.
func (h *HealthController) Status(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := HealthResponse{
		Status:  "healthy",
		Version: h.version,
		Uptime:  time.Since(h.started).Round(time.Second).String(),
		Checks:  make(map[string]CheckResult, len(names)),
	}
	for _, name := range names {
		start := time.Now()
		err := h.checks[name](ctx)
		result := CheckResult{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
		if err != nil {
			requestLogger(c).WithError(err).WithField("check", name).Warn("health check failed")
			result.Status = "down"
			resp.Status = "unhealthy"
		}
		resp.Checks[name] = result
	}

	code := http.StatusOK
	if resp.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, resp)
}
