package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kjstillabower/weather-prediction-demo/internal/traffic"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 latency increases.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation.
	HTTPRequestsInFlight prometheus.Gauge

	// Outbound prediction calls by endpoint and status class.
	PredictionCallsTotal *prometheus.CounterVec

	// Outbound prediction call latency. Watch for: p99 close to the call timeout.
	PredictionCallDuration *prometheus.HistogramVec

	// Retry attempts for prediction calls. Watch for: high retries = unstable upstream.
	PredictionRetriesTotal *prometheus.CounterVec

	// Failed prediction calls by error category.
	PredictionErrorsTotal *prometheus.CounterVec

	// Circuit breaker state per endpoint: 0=closed, 1=open, 2=half_open.
	CircuitBreakerState *prometheus.GaugeVec

	// Circuit breaker transitions per endpoint.
	CircuitBreakerTransitionsTotal *prometheus.CounterVec

	// Predictions served by the prediction services, by kind.
	PredictionsServedTotal *prometheus.CounterVec

	// Cache hits by prediction kind.
	CacheHitsTotal *prometheus.CounterVec

	// Cache errors by operation and category. Cache errors never fail a request.
	CacheErrorsTotal *prometheus.CounterVec

	// Cache operation latency.
	CacheOperationDurationSeconds *prometheus.HistogramVec

	// Dashboard mounts.
	DashboardMountsTotal prometheus.Counter

	// Dashboard fields settled, by field key and final state (resolved, failed, discarded).
	DashboardFieldsTotal *prometheus.CounterVec

	// Time from mount to settlement per field.
	DashboardFieldSettleSeconds *prometheus.HistogramVec

	// Rate limit denials. Watch for: overload, capacity exceeded.
	RateLimitDeniedTotal prometheus.Counter

	rateLimitGaugesOnce sync.Once
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	PredictionCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictionCallsTotal",
			Help: "Total number of outbound prediction endpoint calls",
		},
		[]string{"endpoint", "status"},
	)
	PredictionCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "predictionCallDurationSeconds",
			Help:    "Outbound prediction call latency in seconds (per attempt)",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint", "status"},
	)
	PredictionRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictionRetriesTotal",
			Help: "Total number of retry attempts for prediction calls",
		},
		[]string{"endpoint"},
	)
	PredictionErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictionErrorsTotal",
			Help: "Failed prediction calls by error category",
		},
		[]string{"endpoint", "category"},
	)
	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuitBreakerState",
			Help: "Circuit breaker state per endpoint (0=closed, 1=open, 2=half_open)",
		},
		[]string{"component"},
	)
	CircuitBreakerTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuitBreakerTransitionsTotal",
			Help: "Circuit breaker state transitions",
		},
		[]string{"component", "from", "to"},
	)
	PredictionsServedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictionsServedTotal",
			Help: "Predictions served, by kind",
		},
		[]string{"kind"},
	)
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheHitsTotal",
			Help: "Total number of prediction cache hits. Misses = predictionsServedTotal - cacheHitsTotal.",
		},
		[]string{"kind"},
	)
	CacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheErrorsTotal",
			Help: "Cache errors by operation and category",
		},
		[]string{"operation", "category"},
	)
	CacheOperationDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cacheOperationDurationSeconds",
			Help:    "Cache operation latency in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5},
		},
		[]string{"operation", "status"},
	)
	DashboardMountsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dashboardMountsTotal",
			Help: "Total number of dashboard mounts",
		},
	)
	DashboardFieldsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboardFieldsTotal",
			Help: "Dashboard fields settled, by field and state",
		},
		[]string{"field", "state"},
	)
	DashboardFieldSettleSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashboardFieldSettleSeconds",
			Help:    "Time from mount until a field resolved or failed",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"field"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		PredictionCallsTotal, PredictionCallDuration, PredictionRetriesTotal, PredictionErrorsTotal,
		CircuitBreakerState, CircuitBreakerTransitionsTotal,
		PredictionsServedTotal, CacheHitsTotal, CacheErrorsTotal, CacheOperationDurationSeconds,
		DashboardMountsTotal, DashboardFieldsTotal, DashboardFieldSettleSeconds,
		RateLimitDeniedTotal,
	)
}

// RegisterRateLimitGauges registers load and rejects gauges for the rate-limited path.
// Call from main after config load with cfg.OverloadWindow.
func RegisterRateLimitGauges(window time.Duration) {
	rateLimitGaugesOnce.Do(func() {
		registry.MustRegister(
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "rateLimitRequestsInWindow",
					Help: "Requests hitting rate-limited path in sliding window; load/capacity planning",
				},
				func() float64 { return float64(traffic.RequestCount(window)) },
			),
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "rateLimitRejectsInWindow",
					Help: "429 responses in sliding window; are we rejecting requests",
				},
				func() float64 { return float64(traffic.DenialCount(window)) },
			),
		)
	})
}

// RecordCircuitBreakerTransition counts a breaker transition and updates the state gauge.
// to is the numeric state (0=closed, 1=open, 2=half_open).
func RecordCircuitBreakerTransition(component, from, to string, toValue int) {
	CircuitBreakerTransitionsTotal.WithLabelValues(component, from, to).Inc()
	CircuitBreakerState.WithLabelValues(component).Set(float64(toValue))
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
