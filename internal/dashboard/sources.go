package dashboard

import (
	"context"
	"fmt"

	"github.com/kjstillabower/weather-prediction-demo/internal/client"
	"github.com/kjstillabower/weather-prediction-demo/internal/config"
)

// Variants.
const (
	VariantFull      = "full"      // rain, temperature, cluster, alert
	VariantCondition = "condition" // rain, temperature, condition
)

// Field keys.
const (
	FieldRain        = "rainPrediction"
	FieldTemperature = "temperaturePrediction"
	FieldCluster     = "weatherCluster"
	FieldCondition   = "weatherCondition"
	FieldAlert       = "weatherAlert"
)

// Sources returns the fields of a variant, in display order, wired to p with the fixed inputs.
func Sources(variant string, p client.Predictor, in config.Inputs) ([]Source, error) {
	rain := Source{
		Key:   FieldRain,
		Label: "Rain Prediction",
		Fetch: func(ctx context.Context) (any, error) { return p.PredictRain(ctx, in.RainHumidity) },
	}
	temperature := Source{
		Key:   FieldTemperature,
		Label: "Temperature Prediction",
		Fetch: func(ctx context.Context) (any, error) { return p.PredictTemperature(ctx, in.TemperatureHumidity) },
	}

	switch variant {
	case VariantFull:
		return []Source{
			rain,
			temperature,
			{
				Key:   FieldCluster,
				Label: "Weather Cluster",
				Fetch: func(ctx context.Context) (any, error) {
					return p.ClusterWeather(ctx, in.ClusterTemperature, in.ClusterHumidity)
				},
			},
			{
				Key:   FieldAlert,
				Label: "Weather Alert",
				Fetch: func(ctx context.Context) (any, error) {
					return p.WeatherAlert(ctx, in.AlertTemperature, in.AlertHumidity)
				},
			},
		}, nil
	case VariantCondition:
		return []Source{
			rain,
			temperature,
			{
				Key:   FieldCondition,
				Label: "Weather Condition",
				Fetch: func(ctx context.Context) (any, error) { return p.PredictCondition(ctx, in.ConditionTemp) },
			},
		}, nil
	}
	return nil, fmt.Errorf("unknown dashboard variant %q", variant)
}
