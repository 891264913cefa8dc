package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-prediction-demo/internal/observability"
	"github.com/kjstillabower/weather-prediction-demo/internal/traffic"
)

// TestCorrelationIDMiddleware_Generated verifies that a correlation ID is generated, echoed
// and made available with a scoped logger to the handler.
func TestCorrelationIDMiddleware_Generated(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	var ctxID string
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(zap.New(core)))
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		ctxID = observability.CorrelationID(r.Context())
		observability.LoggerFromContext(r.Context()).Info("handled")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	header := w.Header().Get(CorrelationIDHeader)
	if header == "" {
		t.Fatal("X-Correlation-ID header missing")
	}
	if ctxID != header {
		t.Errorf("context correlation ID = %q, header = %q", ctxID, header)
	}
	entries := logs.FilterMessage("handled").All()
	if len(entries) != 1 || entries[0].ContextMap()["correlation_id"] != header {
		t.Errorf("scoped logger entries = %+v", entries)
	}
}

func TestCorrelationIDMiddleware_Propagated(t *testing.T) {
	router := newTestRouter(t, ServiceRain, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/rain-prediction", nil)
	req.Header.Set(CorrelationIDHeader, "client-provided-id")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if got := w.Header().Get(CorrelationIDHeader); got != "client-provided-id" {
		t.Errorf("X-Correlation-ID = %q, want client-provided-id", got)
	}
}

// TestMetricsMiddleware_RouteTemplate verifies that requests are counted under the route
// template with a status class label.
func TestMetricsMiddleware_RouteTemplate(t *testing.T) {
	router := newTestRouter(t, ServiceWeather, nil)
	counter := observability.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/weather-clustering", "4xx")
	before := testutil.ToFloat64(counter)

	do(router, http.MethodGet, "/api/weather-clustering?temperature=abc", "")

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("4xx counter delta = %v, want 1", got)
	}
}

func TestStatusRecorder_FirstWriteWins(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}
	_, _ = rec.Write([]byte("ok"))
	rec.WriteHeader(http.StatusInternalServerError)
	if rec.statusCode != http.StatusOK {
		t.Errorf("statusCode = %d, want 200", rec.statusCode)
	}
	if got := statusClass(503); got != "5xx" {
		t.Errorf("statusClass(503) = %q", got)
	}
}

func TestRouteLabel_Unmatched(t *testing.T) {
	if got := routeLabel(httptest.NewRequest(http.MethodGet, "/nowhere", nil)); got != "unmatched" {
		t.Errorf("routeLabel() = %q, want unmatched", got)
	}
}

// TestTimeoutMiddleware_CancelsContextAfterTimeout verifies the handler sees the deadline.
func TestTimeoutMiddleware_CancelsContextAfterTimeout(t *testing.T) {
	var ctxErr error
	h := TimeoutMiddleware(10 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		ctxErr = r.Context().Err()
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if ctxErr != context.DeadlineExceeded {
		t.Errorf("ctx.Err() = %v, want DeadlineExceeded", ctxErr)
	}
}

func TestTimeoutMiddleware_ZeroDisables(t *testing.T) {
	var hasDeadline bool
	h := TimeoutMiddleware(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasDeadline = r.Context().Deadline()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if hasDeadline {
		t.Error("zero timeout should not set a deadline")
	}
}

// TestRateLimitMiddleware_Returns429WhenExceeded verifies that requests beyond the burst get
// 429 RATE_LIMITED and are recorded as denials.
func TestRateLimitMiddleware_Returns429WhenExceeded(t *testing.T) {
	traffic.Reset()
	t.Cleanup(traffic.Reset)
	limiter := rate.NewLimiter(rate.Every(time.Hour), 2)
	logger := zap.NewNop()
	router, err := NewServiceRouter(RouterConfig{
		Service: ServiceWeather,
		Handler: NewHandler(nil),
		Health:  NewHealthHandler(HealthConfig{}, logger),
		Limiter: limiter,
		Logger:  logger,
	})
	if err != nil {
		t.Fatal(err)
	}
	denied := testutil.ToFloat64(observability.RateLimitDeniedTotal)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		// Invalid input keeps the handler off the nil service.
		codes = append(codes, do(router, http.MethodGet, "/api/weather-condition-prediction?temperature=x", "").Code)
	}

	if codes[0] != http.StatusBadRequest || codes[1] != http.StatusBadRequest || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v, want [400 400 429]", codes)
	}
	if got := testutil.ToFloat64(observability.RateLimitDeniedTotal) - denied; got != 1 {
		t.Errorf("RateLimitDeniedTotal delta = %v, want 1", got)
	}
	if got := traffic.DenialCount(time.Minute); got != 1 {
		t.Errorf("DenialCount = %d, want 1", got)
	}

	// Health and schema stay outside the limiter.
	if w := do(router, http.MethodGet, "/health", ""); w.Code != http.StatusOK {
		t.Errorf("/health status = %d, want 200", w.Code)
	}

	w := do(router, http.MethodGet, "/api/weather-clustering", "")
	var resp errorBody
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Error.Code != "RATE_LIMITED" {
		t.Errorf("body = %s, want RATE_LIMITED envelope", w.Body.String())
	}
}

func TestRateLimitMiddleware_NilLimiterPassesThrough(t *testing.T) {
	called := false
	h := RateLimitMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Error("handler not called with nil limiter")
	}
}
