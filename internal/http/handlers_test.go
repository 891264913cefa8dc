package http

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kjstillabower/weather-prediction-demo/internal/cache"
	"github.com/kjstillabower/weather-prediction-demo/internal/service"
	"github.com/kjstillabower/weather-prediction-demo/internal/traffic"
)

// newTestRouter builds the router of one prediction service backed by an in-memory cache.
func newTestRouter(t *testing.T, svc string, logger *zap.Logger) *mux.Router {
	t.Helper()
	if logger == nil {
		logger = zap.NewNop()
	}
	predictions := service.NewPredictionService(cache.NewInMemoryCache(), time.Minute)
	router, err := NewServiceRouter(RouterConfig{
		Service: svc,
		Handler: NewHandler(predictions),
		Health:  NewHealthHandler(HealthConfig{Service: svc}, logger),
		Logger:  logger,
	})
	if err != nil {
		t.Fatalf("NewServiceRouter(%q) error = %v", svc, err)
	}
	return router
}

func do(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestPredictionEndpoints verifies every prediction route end to end, including
// the defaults applied to missing inputs.
func TestPredictionEndpoints(t *testing.T) {
	tests := []struct {
		name     string
		service  string
		method   string
		target   string
		body     string
		wantBody string
	}{
		{"rain humid", ServiceRain, http.MethodPost, "/api/rain-prediction", `{"humidity":80}`, `{"prediction":"Rain"}`},
		{"rain at threshold", ServiceRain, http.MethodPost, "/api/rain-prediction", `{"humidity":70}`, `{"prediction":"No Rain"}`},
		{"rain missing humidity", ServiceRain, http.MethodPost, "/api/rain-prediction", `{}`, `{"prediction":"No Rain"}`},
		{"rain empty body", ServiceRain, http.MethodPost, "/api/rain-prediction", "", `{"prediction":"No Rain"}`},
		{"temperature", ServiceTemperature, http.MethodPost, "/api/temperature-prediction", `{"humidity":80}`, `{"prediction":84}`},
		{"temperature default", ServiceTemperature, http.MethodPost, "/api/temperature-prediction", `{}`, `{"prediction":60}`},
		{"cluster moderate", ServiceWeather, http.MethodGet, "/api/weather-clustering?temperature=15&humidity=70", "", `{"cluster":"Cluster 3: Moderate"}`},
		{"cluster cold humid", ServiceWeather, http.MethodGet, "/api/weather-clustering?temperature=10&humidity=80", "", `{"cluster":"Cluster 1: Cold-Humid"}`},
		{"cluster hot dry", ServiceWeather, http.MethodGet, "/api/weather-clustering?temperature=30&humidity=20", "", `{"cluster":"Cluster 2: Hot-Dry"}`},
		{"condition mild", ServiceWeather, http.MethodGet, "/api/weather-condition-prediction?temperature=15", "", `{"prediction":"Mild"}`},
		{"condition missing", ServiceWeather, http.MethodGet, "/api/weather-condition-prediction", "", `{"prediction":"Cold"}`},
		{"alert heat", ServiceAlert, http.MethodPost, "/api/weather-alert", `{"temperature":32,"humidity":35}`, `{"action":"Send Heat Alert"}`},
		{"alert defaults", ServiceAlert, http.MethodPost, "/api/weather-alert", `{}`, `{"action":"No Action"}`},
		{"basics root", ServiceBasics, http.MethodGet, "/", "", `{"message":"Welcome to the Backend Basics API!"}`},
		{"recommendations", ServiceBasics, http.MethodPost, "/recommendations", `{"userId":1}`, `{"recommendations":["Movie 1","Movie 2","Movie 3"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(newTestRouter(t, tt.service, nil), tt.method, tt.target, tt.body)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200; body = %s", w.Code, w.Body.String())
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}
			if got := strings.TrimSpace(w.Body.String()); got != tt.wantBody {
				t.Errorf("body = %s, want %s", got, tt.wantBody)
			}
		})
	}
}

// TestPredictionEndpoints_InvalidInput verifies that malformed bodies and non-numeric
// query values are rejected with 400 INVALID_INPUT and the error envelope.
func TestPredictionEndpoints_InvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		service string
		method  string
		target  string
		body    string
		wantMsg string
	}{
		{"malformed json", ServiceRain, http.MethodPost, "/api/rain-prediction", `{"humidity":`, "JSON object"},
		{"string humidity", ServiceTemperature, http.MethodPost, "/api/temperature-prediction", `{"humidity":"high"}`, "JSON object"},
		{"array body", ServiceAlert, http.MethodPost, "/api/weather-alert", `[32,35]`, "JSON object"},
		{"non-numeric temperature", ServiceWeather, http.MethodGet, "/api/weather-clustering?temperature=warm&humidity=70", "", "temperature: not a number"},
		{"non-numeric humidity", ServiceWeather, http.MethodGet, "/api/weather-clustering?temperature=15&humidity=x", "", "humidity: not a number"},
		{"infinite temperature", ServiceWeather, http.MethodGet, "/api/weather-condition-prediction?temperature=Inf", "", "temperature: not a finite number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(newTestRouter(t, tt.service, nil), tt.method, tt.target, tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400; body = %s", w.Code, w.Body.String())
			}
			var resp errorBody
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if resp.Error.Code != "INVALID_INPUT" {
				t.Errorf("code = %q, want INVALID_INPUT", resp.Error.Code)
			}
			if !strings.Contains(resp.Error.Message, tt.wantMsg) {
				t.Errorf("message = %q, want it to contain %q", resp.Error.Message, tt.wantMsg)
			}
			if resp.Error.RequestID == "" || resp.Error.RequestID != w.Header().Get(CorrelationIDHeader) {
				t.Errorf("requestId = %q, header = %q", resp.Error.RequestID, w.Header().Get(CorrelationIDHeader))
			}
		})
	}
}

// TestPredictionEndpoints_RecordTraffic verifies that served and rejected requests count as
// successes so input errors never degrade health.
func TestPredictionEndpoints_RecordTraffic(t *testing.T) {
	traffic.Reset()
	t.Cleanup(traffic.Reset)
	router := newTestRouter(t, ServiceRain, nil)

	do(router, http.MethodPost, "/api/rain-prediction", `{"humidity":90}`)
	do(router, http.MethodPost, "/api/rain-prediction", `not json`)

	failures, total := traffic.ErrorRate(time.Minute)
	if failures != 0 || total != 2 {
		t.Errorf("ErrorRate() = %d/%d, want 0/2", failures, total)
	}
}

// TestPredictionEndpoints_DeadlineExceeded verifies that a request whose deadline has already
// passed is answered with 503 TIMEOUT and counted as a failure.
func TestPredictionEndpoints_DeadlineExceeded(t *testing.T) {
	traffic.Reset()
	t.Cleanup(traffic.Reset)
	core, logs := observer.New(zapcore.WarnLevel)
	logger := zap.New(core)
	predictions := service.NewPredictionService(nil, 0)
	router, err := NewServiceRouter(RouterConfig{
		Service:        ServiceWeather,
		Handler:        NewHandler(predictions),
		Health:         NewHealthHandler(HealthConfig{}, logger),
		RequestTimeout: time.Nanosecond,
		Logger:         logger,
	})
	if err != nil {
		t.Fatal(err)
	}

	w := do(router, http.MethodGet, "/api/weather-condition-prediction?temperature=15", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"TIMEOUT"`) {
		t.Errorf("body = %s, want TIMEOUT code", w.Body.String())
	}
	if failures, _ := traffic.ErrorRate(time.Minute); failures != 1 {
		t.Errorf("failures = %d, want 1", failures)
	}
	if logs.FilterMessage("request deadline exceeded").Len() != 1 {
		t.Error("expected a deadline warning log")
	}
}

// TestServiceRouter_RoutesIsolated verifies that a service only exposes its own endpoints.
func TestServiceRouter_RoutesIsolated(t *testing.T) {
	router := newTestRouter(t, ServiceRain, nil)

	if w := do(router, http.MethodPost, "/api/weather-alert", `{}`); w.Code != http.StatusNotFound {
		t.Errorf("alert on rain service status = %d, want 404", w.Code)
	}
	if w := do(router, http.MethodGet, "/api/rain-prediction", ""); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET rain-prediction status = %d, want 405", w.Code)
	}
	for _, path := range []string{"/health", "/metrics", "/api/schema"} {
		if w := do(router, http.MethodGet, path, ""); w.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, w.Code)
		}
	}
}

func TestNewServiceRouter_UnknownService(t *testing.T) {
	_, err := NewServiceRouter(RouterConfig{
		Service: "snow",
		Handler: NewHandler(service.NewPredictionService(nil, 0)),
		Health:  NewHealthHandler(HealthConfig{}, zap.NewNop()),
		Logger:  zap.NewNop(),
	})
	if err == nil {
		t.Fatal("expected error for unknown service")
	}
}

// TestSchemaEndpoint verifies that /api/schema describes the request and response bodies.
func TestSchemaEndpoint(t *testing.T) {
	w := do(newTestRouter(t, ServiceAlert, nil), http.MethodGet, "/api/schema", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{`"path":"/api/weather-alert"`, `"temperature"`, `"humidity"`, `"action"`} {
		if !strings.Contains(body, want) {
			t.Errorf("schema missing %s: %s", want, body)
		}
	}

	for _, svc := range Services {
		if len(schemasFor(svc)) == 0 {
			t.Errorf("schemasFor(%q) is empty", svc)
		}
	}
}

func TestDecodeBody_Null(t *testing.T) {
	w := do(newTestRouter(t, ServiceAlert, nil), http.MethodPost, "/api/weather-alert", `null`)
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("No Action")) {
		t.Errorf("status = %d body = %s", w.Code, w.Body.String())
	}
}
