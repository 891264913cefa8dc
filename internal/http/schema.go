package http

import (
	"net/http"

	"github.com/invopop/jsonschema"

	"github.com/kjstillabower/weather-prediction-demo/internal/models"
)

// EndpointSchema describes the request and response bodies of one endpoint.
type EndpointSchema struct {
	Method   string             `json:"method"`
	Path     string             `json:"path"`
	Request  *jsonschema.Schema `json:"request,omitempty"`
	Response *jsonschema.Schema `json:"response"`
}

// schemasFor returns the schemas of the endpoints a service exposes, in route order.
func schemasFor(service string) []EndpointSchema {
	switch service {
	case ServiceRain:
		return []EndpointSchema{
			{http.MethodPost, "/api/rain-prediction", jsonschema.Reflect(&models.HumidityRequest{}), jsonschema.Reflect(&models.LabelResponse{})},
		}
	case ServiceTemperature:
		return []EndpointSchema{
			{http.MethodPost, "/api/temperature-prediction", jsonschema.Reflect(&models.HumidityRequest{}), jsonschema.Reflect(&models.ValueResponse{})},
		}
	case ServiceWeather:
		return []EndpointSchema{
			{http.MethodGet, "/api/weather-clustering", nil, jsonschema.Reflect(&models.ClusterResponse{})},
			{http.MethodGet, "/api/weather-condition-prediction", nil, jsonschema.Reflect(&models.LabelResponse{})},
		}
	case ServiceAlert:
		return []EndpointSchema{
			{http.MethodPost, "/api/weather-alert", jsonschema.Reflect(&models.AlertRequest{}), jsonschema.Reflect(&models.AlertResponse{})},
		}
	case ServiceBasics:
		return []EndpointSchema{
			{http.MethodGet, "/", nil, jsonschema.Reflect(&models.MessageResponse{})},
			{http.MethodPost, "/recommendations", nil, jsonschema.Reflect(&models.RecommendationsResponse{})},
		}
	}
	return nil
}

// schemaHandler serves GET /api/schema for one service.
func schemaHandler(service string) http.HandlerFunc {
	schemas := schemasFor(service)
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, schemas)
	}
}
