package http

import (
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-prediction-demo/internal/lifecycle"
	"github.com/kjstillabower/weather-prediction-demo/internal/observability"
	"github.com/kjstillabower/weather-prediction-demo/internal/traffic"
)

// TestControl simulates load and errors so health transitions can be exercised by hand.
type TestControl struct {
	health  *HealthHandler
	limiter *rate.Limiter
}

// NewTestControl returns a TestControl reporting through health. limiter may be nil.
func NewTestControl(health *HealthHandler, limiter *rate.Limiter) *TestControl {
	return &TestControl{health: health, limiter: limiter}
}

func (c *TestControl) window() time.Duration {
	if c.health.cfg.DegradedWindow > 0 {
		return c.health.cfg.DegradedWindow
	}
	return time.Minute
}

// GetStatus handles GET /test.
func (c *TestControl) GetStatus(w http.ResponseWriter, r *http.Request) {
	window := c.window()
	failures, total := traffic.ErrorRate(window)
	writeJSON(w, http.StatusOK, map[string]any{
		"state":                     c.health.compute().status,
		"total_requests_in_window":  traffic.RequestCount(window),
		"denied_requests_in_window": traffic.DenialCount(window),
		"errors_in_window":          failures,
		"outcomes_in_window":        total,
		"window_length":             window.String(),
	})
}

// PostAction handles POST /test/{action} for load, error, reset and shutdown.
func (c *TestControl) PostAction(w http.ResponseWriter, r *http.Request) {
	action := mux.Vars(r)["action"]
	switch action {
	case "load":
		accepted, denied := c.load(readCount(r, 10))
		writeJSON(w, http.StatusOK, map[string]any{
			"action": action, "accepted": accepted, "denied": denied, "state": c.health.compute().status,
		})
	case "error":
		n := readCount(r, 1)
		for i := 0; i < n; i++ {
			traffic.Record(traffic.Failure)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"action": action, "recorded": n, "state": c.health.compute().status,
		})
	case "reset":
		traffic.Reset()
		lifecycle.Reset()
		writeJSON(w, http.StatusOK, map[string]any{"action": action, "state": c.health.compute().status})
	case "shutdown":
		lifecycle.BeginShutdown()
		writeJSON(w, http.StatusOK, map[string]any{"action": action, "state": c.health.compute().status})
	default:
		writeError(w, r, http.StatusNotFound, "UNKNOWN_ACTION", "unknown test action: "+action)
	}
}

// load records n simulated requests through the rate limiter.
func (c *TestControl) load(n int) (accepted, denied int) {
	for i := 0; i < n; i++ {
		if c.limiter != nil && !c.limiter.Allow() {
			traffic.Record(traffic.Denied)
			observability.RateLimitDeniedTotal.Inc()
			denied++
			continue
		}
		traffic.Record(traffic.Success)
		accepted++
	}
	return accepted, denied
}

// maxTestCount caps the count accepted by the load and error actions.
const maxTestCount = 10000

// readCount reads {"count":n} from the body, falling back to def and capped at maxTestCount.
func readCount(r *http.Request, def int) int {
	var body struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1024)).Decode(&body); err != nil || body.Count <= 0 {
		return def
	}
	return min(body.Count, maxTestCount)
}
