package http

import (
	"net/http"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-prediction-demo/internal/lifecycle"
	"github.com/kjstillabower/weather-prediction-demo/internal/service"
)

func newTestControlRouter(t *testing.T, limiter *rate.Limiter) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	health := NewHealthHandler(HealthConfig{
		DegradedWindow:       time.Minute,
		DegradedErrorPct:     50,
		OverloadWindow:       time.Minute,
		OverloadThresholdPct: 50,
		RateLimitRPS:         1,
	}, logger)
	router, err := NewServiceRouter(RouterConfig{
		Service:     ServiceBasics,
		Handler:     NewHandler(service.NewPredictionService(nil, 0)),
		Health:      health,
		Limiter:     limiter,
		TestControl: NewTestControl(health, limiter),
		Logger:      logger,
	})
	if err != nil {
		t.Fatal(err)
	}
	return router
}

// TestTestControl_Actions walks error, shutdown and reset and checks the reported state.
func TestTestControl_Actions(t *testing.T) {
	resetHealthState(t)
	router := newTestControlRouter(t, nil)

	w := do(router, http.MethodPost, "/test/error", `{"count":3}`)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"state":"degraded"`) {
		t.Errorf("error action = %d %s", w.Code, w.Body.String())
	}

	w = do(router, http.MethodPost, "/test/shutdown", "")
	if !strings.Contains(w.Body.String(), `"state":"shutting-down"`) || !lifecycle.IsShuttingDown() {
		t.Errorf("shutdown action = %s", w.Body.String())
	}

	w = do(router, http.MethodPost, "/test/reset", "")
	if !strings.Contains(w.Body.String(), `"state":"healthy"`) || lifecycle.IsShuttingDown() {
		t.Errorf("reset action = %s", w.Body.String())
	}

	w = do(router, http.MethodPost, "/test/explode", "")
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), "UNKNOWN_ACTION") {
		t.Errorf("unknown action = %d %s", w.Code, w.Body.String())
	}
}

func TestTestControl_LoadThroughLimiter(t *testing.T) {
	resetHealthState(t)
	router := newTestControlRouter(t, rate.NewLimiter(rate.Every(time.Hour), 5))

	w := do(router, http.MethodPost, "/test/load", `{"count":40}`)
	var resp struct {
		Accepted int    `json:"accepted"`
		Denied   int    `json:"denied"`
		State    string `json:"state"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Accepted != 5 || resp.Denied != 35 {
		t.Errorf("accepted/denied = %d/%d, want 5/35", resp.Accepted, resp.Denied)
	}
	if resp.State != StatusOverloaded {
		t.Errorf("state = %q, want overloaded", resp.State)
	}

	w = do(router, http.MethodGet, "/test", "")
	if !strings.Contains(w.Body.String(), `"denied_requests_in_window":35`) {
		t.Errorf("status = %s", w.Body.String())
	}
}

// TestTestControl_CountCapped verifies that an oversized count is clamped.
func TestTestControl_CountCapped(t *testing.T) {
	resetHealthState(t)
	router := newTestControlRouter(t, nil)

	w := do(router, http.MethodPost, "/test/error", `{"count":1000000000}`)
	if !strings.Contains(w.Body.String(), `"recorded":10000`) {
		t.Errorf("error action = %d %s, want recorded capped at 10000", w.Code, w.Body.String())
	}
}
