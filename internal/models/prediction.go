package models

import "time"

// Prediction kinds. Used as cache key prefixes and metric labels.
const (
	KindRain        = "rain"
	KindTemperature = "temperature"
	KindCluster     = "cluster"
	KindCondition   = "condition"
	KindAlert       = "alert"
)

// Prediction is a computed prediction as stored in the cache.
// Label carries textual results (rain, cluster, condition, alert) and Value numeric ones (temperature).
type Prediction struct {
	Kind       string    `json:"kind"`
	Label      string    `json:"label,omitempty"`
	Value      float64   `json:"value,omitempty"`
	ComputedAt time.Time `json:"computedAt"`
}

// HumidityRequest is the body of POST /api/rain-prediction and POST /api/temperature-prediction.
// A missing humidity falls back to the endpoint's default.
type HumidityRequest struct {
	Humidity *float64 `json:"humidity,omitempty" jsonschema:"description=Relative humidity in percent"`
}

// AlertRequest is the body of POST /api/weather-alert.
type AlertRequest struct {
	Temperature *float64 `json:"temperature,omitempty" jsonschema:"description=Air temperature in degrees Celsius"`
	Humidity    *float64 `json:"humidity,omitempty" jsonschema:"description=Relative humidity in percent"`
}

// LabelResponse is returned by rain-prediction and weather-condition-prediction.
type LabelResponse struct {
	Prediction string `json:"prediction"`
}

// ValueResponse is returned by temperature-prediction.
type ValueResponse struct {
	Prediction float64 `json:"prediction"`
}

// ClusterResponse is returned by weather-clustering.
type ClusterResponse struct {
	Cluster string `json:"cluster"`
}

// AlertResponse is returned by weather-alert.
type AlertResponse struct {
	Action string `json:"action"`
}

// MessageResponse is returned by the basics API root.
type MessageResponse struct {
	Message string `json:"message"`
}

// RecommendationsResponse is returned by POST /recommendations.
type RecommendationsResponse struct {
	Recommendations []string `json:"recommendations"`
}
