package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-prediction-demo/internal/observability"
)

// Prediction service names, one listener each.
const (
	ServiceRain        = "rain"
	ServiceTemperature = "temperature"
	ServiceWeather     = "weather"
	ServiceAlert       = "alert"
	ServiceBasics      = "basics"
)

// Services lists every prediction service in start order.
var Services = []string{ServiceRain, ServiceTemperature, ServiceWeather, ServiceAlert, ServiceBasics}

// RouterConfig wires one prediction service listener.
type RouterConfig struct {
	Service        string
	Handler        *Handler
	Health         *HealthHandler
	Limiter        *rate.Limiter // nil disables rate limiting
	RequestTimeout time.Duration
	// TestControl exposes GET /test and POST /test/{action} for load and error simulation.
	TestControl *TestControl
	Logger      *zap.Logger
}

// NewServiceRouter builds the router for one prediction service. Every service also
// serves /health, /metrics and /api/schema.
func NewServiceRouter(cfg RouterConfig) (*mux.Router, error) {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(cfg.Logger))
	router.Use(MetricsMiddleware)

	router.Handle("/health", cfg.Health).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)
	router.HandleFunc("/api/schema", schemaHandler(cfg.Service)).Methods(http.MethodGet)

	if cfg.TestControl != nil {
		router.HandleFunc("/test", cfg.TestControl.GetStatus).Methods(http.MethodGet)
		router.HandleFunc("/test/{action}", cfg.TestControl.PostAction).Methods(http.MethodPost)
	}

	// Predictions are limited and bounded in time; the basics routes sit at the root.
	api := router.PathPrefix("/api").Subrouter()
	api.Use(RateLimitMiddleware(cfg.Limiter))
	api.Use(TimeoutMiddleware(cfg.RequestTimeout))

	h := cfg.Handler
	switch cfg.Service {
	case ServiceRain:
		api.HandleFunc("/rain-prediction", h.PostRainPrediction).Methods(http.MethodPost)
	case ServiceTemperature:
		api.HandleFunc("/temperature-prediction", h.PostTemperaturePrediction).Methods(http.MethodPost)
	case ServiceWeather:
		api.HandleFunc("/weather-clustering", h.GetWeatherClustering).Methods(http.MethodGet)
		api.HandleFunc("/weather-condition-prediction", h.GetWeatherCondition).Methods(http.MethodGet)
	case ServiceAlert:
		api.HandleFunc("/weather-alert", h.PostWeatherAlert).Methods(http.MethodPost)
	case ServiceBasics:
		router.HandleFunc("/", h.GetBasicsRoot).Methods(http.MethodGet)
		router.HandleFunc("/recommendations", h.PostRecommendations).Methods(http.MethodPost)
	default:
		return nil, fmt.Errorf("unknown service %q", cfg.Service)
	}
	return router, nil
}
