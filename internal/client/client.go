package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-prediction-demo/internal/circuitbreaker"
	"github.com/kjstillabower/weather-prediction-demo/internal/config"
	"github.com/kjstillabower/weather-prediction-demo/internal/models"
	"github.com/kjstillabower/weather-prediction-demo/internal/observability"
)

// Endpoint names, used as metric labels and breaker names.
const (
	EndpointRain        = "rain-prediction"
	EndpointTemperature = "temperature-prediction"
	EndpointCluster     = "weather-clustering"
	EndpointCondition   = "weather-condition-prediction"
	EndpointAlert       = "weather-alert"
)

// maxBodyBytes caps how much of a prediction response is read.
const maxBodyBytes = 1 << 20

// Predictor is the set of prediction calls the dashboard makes.
type Predictor interface {
	PredictRain(ctx context.Context, humidity float64) (string, error)
	PredictTemperature(ctx context.Context, humidity float64) (float64, error)
	ClusterWeather(ctx context.Context, temperature, humidity float64) (string, error)
	PredictCondition(ctx context.Context, temperature float64) (string, error)
	WeatherAlert(ctx context.Context, temperature, humidity float64) (string, error)
}

var (
	ErrBadRequest      = errors.New("bad request")
	ErrNotFound        = errors.New("endpoint not found")
	ErrRateLimited     = errors.New("rate limited")
	ErrUpstreamFailure = errors.New("upstream failure")
	ErrUnreachable     = errors.New("endpoint unreachable")
	ErrMalformedBody   = errors.New("malformed response body")
	ErrMissingField    = errors.New("response missing field")
)

// Endpoints holds the base URLs of the prediction services, without trailing slash.
type Endpoints struct {
	Rain        string
	Temperature string
	Weather     string
	Alert       string
}

// Options tunes the transport. Zero values mean: no per-call deadline, a single
// attempt, no circuit breakers and http.DefaultClient's transport.
type Options struct {
	CallTimeout    time.Duration
	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	// Breaker enables one circuit breaker per endpoint when non-nil. Name and
	// OnTransition are filled in per endpoint.
	Breaker *circuitbreaker.Settings

	HTTPClient *http.Client
}

// PredictionClient calls the local prediction services over HTTP/JSON.
type PredictionClient struct {
	endpoints Endpoints
	opts      Options
	http      *http.Client
	breakers  map[string]*circuitbreaker.Breaker
}

var _ Predictor = (*PredictionClient)(nil)

// New creates a PredictionClient.
func New(endpoints Endpoints, opts Options) *PredictionClient {
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 1
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	c := &PredictionClient{endpoints: endpoints, opts: opts, http: hc}
	if opts.Breaker != nil {
		c.breakers = make(map[string]*circuitbreaker.Breaker)
		for _, name := range []string{EndpointRain, EndpointTemperature, EndpointCluster, EndpointCondition, EndpointAlert} {
			s := *opts.Breaker
			s.Name = name
			s.Counts = countsAgainstEndpoint
			s.OnTransition = func(name string, from, to circuitbreaker.State) {
				observability.RecordCircuitBreakerTransition(name, from.String(), to.String(), int(to))
			}
			c.breakers[name] = circuitbreaker.New(s)
		}
	}
	return c
}

// NewFromConfig builds a client from the dashboard endpoint and client settings.
func NewFromConfig(cfg *config.Config) *PredictionClient {
	opts := Options{
		CallTimeout:    cfg.CallTimeout,
		RetryAttempts:  cfg.RetryAttempts,
		RetryBaseDelay: cfg.RetryBaseDelay,
		RetryMaxDelay:  cfg.RetryMaxDelay,
	}
	if cfg.CircuitBreakerEnabled {
		opts.Breaker = &circuitbreaker.Settings{
			FailureThreshold: cfg.CircuitBreakerFailureThreshold,
			SuccessThreshold: cfg.CircuitBreakerSuccessThreshold,
			CoolDown:         cfg.CircuitBreakerTimeout,
		}
	}
	return New(Endpoints{
		Rain:        cfg.RainURL,
		Temperature: cfg.TemperatureURL,
		Weather:     cfg.WeatherURL,
		Alert:       cfg.AlertURL,
	}, opts)
}

// PredictRain posts the humidity to the rain service and returns its label.
func (c *PredictionClient) PredictRain(ctx context.Context, humidity float64) (string, error) {
	var out struct {
		Prediction *string `json:"prediction"`
	}
	body := models.HumidityRequest{Humidity: &humidity}
	if err := c.do(ctx, EndpointRain, http.MethodPost, c.endpoints.Rain+"/api/rain-prediction", body, &out); err != nil {
		return "", err
	}
	return required(EndpointRain, "prediction", out.Prediction)
}

// PredictTemperature posts the humidity to the temperature service.
func (c *PredictionClient) PredictTemperature(ctx context.Context, humidity float64) (float64, error) {
	var out struct {
		Prediction *float64 `json:"prediction"`
	}
	body := models.HumidityRequest{Humidity: &humidity}
	if err := c.do(ctx, EndpointTemperature, http.MethodPost, c.endpoints.Temperature+"/api/temperature-prediction", body, &out); err != nil {
		return 0, err
	}
	return required(EndpointTemperature, "prediction", out.Prediction)
}

// ClusterWeather queries the weather service for the cluster of a reading.
func (c *PredictionClient) ClusterWeather(ctx context.Context, temperature, humidity float64) (string, error) {
	var out struct {
		Cluster *string `json:"cluster"`
	}
	q := url.Values{}
	q.Set("temperature", formatFloat(temperature))
	q.Set("humidity", formatFloat(humidity))
	if err := c.do(ctx, EndpointCluster, http.MethodGet, c.endpoints.Weather+"/api/weather-clustering?"+q.Encode(), nil, &out); err != nil {
		return "", err
	}
	return required(EndpointCluster, "cluster", out.Cluster)
}

// PredictCondition queries the weather service for the condition at a temperature.
func (c *PredictionClient) PredictCondition(ctx context.Context, temperature float64) (string, error) {
	var out struct {
		Prediction *string `json:"prediction"`
	}
	q := url.Values{}
	q.Set("temperature", formatFloat(temperature))
	if err := c.do(ctx, EndpointCondition, http.MethodGet, c.endpoints.Weather+"/api/weather-condition-prediction?"+q.Encode(), nil, &out); err != nil {
		return "", err
	}
	return required(EndpointCondition, "prediction", out.Prediction)
}

// WeatherAlert posts a reading to the alert service and returns the recommended action.
func (c *PredictionClient) WeatherAlert(ctx context.Context, temperature, humidity float64) (string, error) {
	var out struct {
		Action *string `json:"action"`
	}
	body := models.AlertRequest{Temperature: &temperature, Humidity: &humidity}
	if err := c.do(ctx, EndpointAlert, http.MethodPost, c.endpoints.Alert+"/api/weather-alert", body, &out); err != nil {
		return "", err
	}
	return required(EndpointAlert, "action", out.Action)
}

func required[T any](endpoint, field string, v *T) (T, error) {
	if v == nil {
		var zero T
		observability.PredictionErrorsTotal.WithLabelValues(endpoint, string(ErrorCategoryMissingField)).Inc()
		return zero, fmt.Errorf("%w: %s", ErrMissingField, field)
	}
	return *v, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// do runs one logical call: retries with exponential backoff while the error is
// retryable, through the endpoint's breaker when one is configured.
func (c *PredictionClient) do(ctx context.Context, endpoint, method, rawURL string, body, out any) error {
	attempt := 0
	operation := func() error {
		attempt++
		if attempt > 1 {
			observability.PredictionRetriesTotal.WithLabelValues(endpoint).Inc()
		}
		err := c.guarded(endpoint, func() error {
			return c.callOnce(ctx, endpoint, method, rawURL, body, out)
		})
		if err != nil && !isRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	if c.opts.RetryBaseDelay > 0 {
		bo.InitialInterval = c.opts.RetryBaseDelay
	}
	if c.opts.RetryMaxDelay > 0 {
		bo.MaxInterval = c.opts.RetryMaxDelay
	}
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.opts.RetryAttempts-1)), ctx)

	notify := func(err error, wait time.Duration) {
		if logger := observability.LoggerFromContext(ctx); logger != nil {
			logger.Debug("retrying prediction call",
				zap.String("endpoint", endpoint),
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
		}
	}

	err := backoff.RetryNotify(operation, policy, notify)
	if err != nil {
		observability.PredictionErrorsTotal.WithLabelValues(endpoint, string(CategorizeError(err))).Inc()
		if attempt > 1 {
			return fmt.Errorf("%s after %d attempts: %w", endpoint, attempt, err)
		}
		return fmt.Errorf("%s: %w", endpoint, err)
	}
	return nil
}

func (c *PredictionClient) guarded(endpoint string, fn func() error) error {
	if b, ok := c.breakers[endpoint]; ok {
		return b.Execute(fn)
	}
	return fn()
}

func (c *PredictionClient) callOnce(ctx context.Context, endpoint, method, rawURL string, body, out any) error {
	start := time.Now()
	if c.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.CallTimeout)
		defer cancel()
	}

	req, err := buildRequest(ctx, method, rawURL, body)
	if err != nil {
		observability.PredictionCallsTotal.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		observability.PredictionCallsTotal.WithLabelValues(endpoint, "error").Inc()
		observability.PredictionCallDuration.WithLabelValues(endpoint, "error").Observe(time.Since(start).Seconds())
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return fmt.Errorf("request timeout: %w", err)
		}
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	status := statusLabel(resp.StatusCode)
	observability.PredictionCallsTotal.WithLabelValues(endpoint, status).Inc()
	observability.PredictionCallDuration.WithLabelValues(endpoint, status).Observe(time.Since(start).Seconds())

	if err := errorForStatus(resp); err != nil {
		return err
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return nil
}

func buildRequest(ctx context.Context, method, rawURL string, body any) (*http.Request, error) {
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, rdr)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if id := observability.CorrelationID(ctx); id != "" {
		req.Header.Set("X-Correlation-ID", id)
	}
	return req, nil
}

func errorForStatus(resp *http.Response) error {
	code := resp.StatusCode
	if code >= 200 && code < 300 {
		return nil
	}
	detail := errorDetail(resp)
	switch {
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP %d%s", ErrRateLimited, code, detail)
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: HTTP %d%s", ErrNotFound, code, detail)
	case code >= 400 && code < 500:
		return fmt.Errorf("%w: HTTP %d%s", ErrBadRequest, code, detail)
	default:
		return fmt.Errorf("%w: HTTP %d%s", ErrUpstreamFailure, code, detail)
	}
}

// errorDetail extracts the message of a JSON error envelope, if the body carries one.
func errorDetail(resp *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &env) != nil || env.Error.Message == "" {
		return ""
	}
	return ": " + strings.TrimSpace(env.Error.Message)
}

func isRetryable(err error) bool {
	switch {
	case errors.Is(err, circuitbreaker.ErrOpen):
		return false
	case errors.Is(err, ErrRateLimited), errors.Is(err, ErrUpstreamFailure), errors.Is(err, ErrUnreachable):
		return true
	case errors.Is(err, context.DeadlineExceeded):
		return true
	}
	return false
}

// countsAgainstEndpoint keeps caller-side errors from opening a breaker.
func countsAgainstEndpoint(err error) bool {
	return !errors.Is(err, ErrBadRequest) && !errors.Is(err, context.Canceled)
}

func statusLabel(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "success"
	case statusCode == http.StatusTooManyRequests:
		return "rate_limited"
	case statusCode >= 400 && statusCode < 500:
		return "client_error"
	case statusCode >= 500:
		return "server_error"
	}
	return "error"
}
