package http

import (
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-prediction-demo/internal/lifecycle"
	"github.com/kjstillabower/weather-prediction-demo/internal/traffic"
)

// Health states reported by GET /health.
const (
	StatusHealthy      = "healthy"
	StatusDegraded     = "degraded"
	StatusOverloaded   = "overloaded"
	StatusShuttingDown = "shutting-down"
)

// HealthConfig holds the thresholds for the health handler.
type HealthConfig struct {
	Service              string
	Version              string
	OverloadWindow       time.Duration
	OverloadThresholdPct int
	RateLimitRPS         int // 0 when the rate limiter is disabled
	DegradedWindow       time.Duration
	DegradedErrorPct     int
	// CachePing, when set, reports cache reachability under checks.cache.
	CachePing func() error
}

// HealthHandler serves GET /health and logs status transitions.
type HealthHandler struct {
	cfg    HealthConfig
	logger *zap.Logger

	mu   sync.Mutex
	prev string
}

// NewHealthHandler returns a HealthHandler.
func NewHealthHandler(cfg HealthConfig, logger *zap.Logger) *HealthHandler {
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	return &HealthHandler{cfg: cfg, logger: logger}
}

type healthResult struct {
	status     string
	statusCode int
	reason     string
}

type healthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	result := h.compute()

	h.mu.Lock()
	if h.prev != "" && h.prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", h.prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.prev = result.status
	h.mu.Unlock()

	checks := map[string]string{"predictions": "healthy"}
	if result.status == StatusDegraded {
		checks["predictions"] = "unhealthy"
	}
	if h.cfg.CachePing != nil {
		checks["cache"] = "healthy"
		if err := h.cfg.CachePing(); err != nil {
			checks["cache"] = "unhealthy"
			h.logger.Debug("cache ping failed", zap.Error(err))
		}
	}

	writeJSON(w, result.statusCode, healthResponse{
		Status:    result.status,
		Service:   h.cfg.Service,
		Version:   h.cfg.Version,
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// compute evaluates, in order: shutting-down, overloaded, degraded, healthy.
func (h *HealthHandler) compute() healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{StatusShuttingDown, http.StatusServiceUnavailable, "signal"}
	}
	if h.overloaded() {
		return healthResult{StatusOverloaded, http.StatusServiceUnavailable, "overload_threshold"}
	}
	if h.cfg.DegradedWindow > 0 && h.cfg.DegradedErrorPct > 0 {
		failures, total := traffic.ErrorRate(h.cfg.DegradedWindow)
		if total > 0 && failures*100 >= h.cfg.DegradedErrorPct*total {
			return healthResult{StatusDegraded, http.StatusServiceUnavailable, "error_rate_breach"}
		}
	}
	return healthResult{StatusHealthy, http.StatusOK, ""}
}

// overloaded reports whether requests in the window exceed OverloadThresholdPct of the
// rate limiter's capacity for that window.
func (h *HealthHandler) overloaded() bool {
	if h.cfg.RateLimitRPS <= 0 || h.cfg.OverloadWindow <= 0 || h.cfg.OverloadThresholdPct <= 0 {
		return false
	}
	capacity := float64(h.cfg.RateLimitRPS) * h.cfg.OverloadWindow.Seconds()
	threshold := capacity * float64(h.cfg.OverloadThresholdPct) / 100
	return float64(traffic.RequestCount(h.cfg.OverloadWindow)) > threshold
}
