package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-prediction-demo/internal/models"
	"github.com/kjstillabower/weather-prediction-demo/internal/observability"
	"github.com/kjstillabower/weather-prediction-demo/internal/predict"
	"github.com/kjstillabower/weather-prediction-demo/internal/service"
	"github.com/kjstillabower/weather-prediction-demo/internal/traffic"
	"github.com/kjstillabower/weather-prediction-demo/internal/validation"
)

// maxRequestBody caps prediction request bodies.
const maxRequestBody = 64 << 10

// BasicsMessage is returned by the basics API root.
const BasicsMessage = "Welcome to the Backend Basics API!"

// Recommendations is the fixed list returned by POST /recommendations.
var Recommendations = []string{"Movie 1", "Movie 2", "Movie 3"}

// Handler serves the prediction endpoints.
type Handler struct {
	predictions *service.PredictionService
}

// NewHandler returns a new Handler.
func NewHandler(predictions *service.PredictionService) *Handler {
	return &Handler{predictions: predictions}
}

// PostRainPrediction handles POST /api/rain-prediction.
func (h *Handler) PostRainPrediction(w http.ResponseWriter, r *http.Request) {
	var req models.HumidityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	humidity, err := validation.BodyFloat("humidity", req.Humidity, predict.DefaultRainHumidity)
	if err != nil {
		writeInputError(w, r, err)
		return
	}
	p := h.predictions.Rain(r.Context(), humidity)
	respond(w, r, models.LabelResponse{Prediction: p.Label})
}

// PostTemperaturePrediction handles POST /api/temperature-prediction.
func (h *Handler) PostTemperaturePrediction(w http.ResponseWriter, r *http.Request) {
	var req models.HumidityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	humidity, err := validation.BodyFloat("humidity", req.Humidity, predict.DefaultTemperatureHumidity)
	if err != nil {
		writeInputError(w, r, err)
		return
	}
	p := h.predictions.Temperature(r.Context(), humidity)
	respond(w, r, models.ValueResponse{Prediction: p.Value})
}

// GetWeatherClustering handles GET /api/weather-clustering?temperature=&humidity=.
func (h *Handler) GetWeatherClustering(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	temperature, err := validation.QueryFloat(q, "temperature", 0)
	if err != nil {
		writeInputError(w, r, err)
		return
	}
	humidity, err := validation.QueryFloat(q, "humidity", 0)
	if err != nil {
		writeInputError(w, r, err)
		return
	}
	p := h.predictions.Cluster(r.Context(), temperature, humidity)
	respond(w, r, models.ClusterResponse{Cluster: p.Label})
}

// GetWeatherCondition handles GET /api/weather-condition-prediction?temperature=.
func (h *Handler) GetWeatherCondition(w http.ResponseWriter, r *http.Request) {
	temperature, err := validation.QueryFloat(r.URL.Query(), "temperature", 0)
	if err != nil {
		writeInputError(w, r, err)
		return
	}
	p := h.predictions.Condition(r.Context(), temperature)
	respond(w, r, models.LabelResponse{Prediction: p.Label})
}

// PostWeatherAlert handles POST /api/weather-alert.
func (h *Handler) PostWeatherAlert(w http.ResponseWriter, r *http.Request) {
	var req models.AlertRequest
	if !decodeBody(w, r, &req) {
		return
	}
	temperature, err := validation.BodyFloat("temperature", req.Temperature, predict.DefaultAlertTemperature)
	if err != nil {
		writeInputError(w, r, err)
		return
	}
	humidity, err := validation.BodyFloat("humidity", req.Humidity, predict.DefaultAlertHumidity)
	if err != nil {
		writeInputError(w, r, err)
		return
	}
	p := h.predictions.Alert(r.Context(), temperature, humidity)
	respond(w, r, models.AlertResponse{Action: p.Label})
}

// GetBasicsRoot handles GET / on the basics service.
func (h *Handler) GetBasicsRoot(w http.ResponseWriter, r *http.Request) {
	respond(w, r, models.MessageResponse{Message: BasicsMessage})
}

// PostRecommendations handles POST /recommendations. The body is ignored.
func (h *Handler) PostRecommendations(w http.ResponseWriter, r *http.Request) {
	respond(w, r, models.RecommendationsResponse{Recommendations: Recommendations})
}

// decodeBody decodes a JSON body into v. An empty body leaves v untouched so
// endpoint defaults apply. Writes a 400 and returns false on malformed input.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	if logger := observability.LoggerFromContext(r.Context()); logger != nil {
		logger.Debug("malformed request body", zap.Error(err))
	}
	traffic.Record(traffic.Success)
	writeError(w, r, http.StatusBadRequest, "INVALID_INPUT", "request body must be a JSON object")
	return false
}

// writeInputError answers 400 for a validation error. Input errors do not count
// toward the degraded error rate.
func writeInputError(w http.ResponseWriter, r *http.Request, err error) {
	traffic.Record(traffic.Success)
	writeError(w, r, http.StatusBadRequest, "INVALID_INPUT", err.Error())
}

// respond writes v unless the request deadline expired while the prediction was
// served, in which case it answers 503 TIMEOUT and records a failure.
func respond(w http.ResponseWriter, r *http.Request, v any) {
	if err := r.Context().Err(); errors.Is(err, context.DeadlineExceeded) {
		traffic.Record(traffic.Failure)
		if logger := observability.LoggerFromContext(r.Context()); logger != nil {
			logger.Warn("request deadline exceeded", zap.String("path", r.URL.Path))
		}
		writeError(w, r, http.StatusServiceUnavailable, "TIMEOUT", "prediction took too long")
		return
	}
	traffic.Record(traffic.Success)
	writeJSON(w, http.StatusOK, v)
}

// writeJSON writes v as JSON with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId"`
}

// writeError writes the standard error envelope, including the correlation ID when known.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{
		Code:      code,
		Message:   message,
		RequestID: observability.CorrelationID(r.Context()),
	}})
}
