// Package predict holds the fixed rules behind the prediction endpoints.
package predict

// Defaults applied when a request omits an input.
const (
	DefaultRainHumidity        = 0.0
	DefaultTemperatureHumidity = 50.0
	DefaultAlertTemperature    = 20.0
	DefaultAlertHumidity       = 50.0
)

// Rain labels.
const (
	Rain   = "Rain"
	NoRain = "No Rain"
)

// Cluster labels.
const (
	ClusterColdHumid = "Cluster 1: Cold-Humid"
	ClusterHotDry    = "Cluster 2: Hot-Dry"
	ClusterModerate  = "Cluster 3: Moderate"
)

// Condition labels.
const (
	ConditionCold = "Cold"
	ConditionMild = "Mild"
	ConditionHot  = "Hot"
)

// Alert actions.
const (
	AlertHeat = "Send Heat Alert"
	AlertCold = "Send Cold Alert"
	AlertNone = "No Action"
)

// RainThreshold is the humidity above which rain is predicted.
const RainThreshold = 70.0

// RainFor predicts rain when humidity exceeds RainThreshold.
func RainFor(humidity float64) string {
	if humidity > RainThreshold {
		return Rain
	}
	return NoRain
}

// Temperature applies the linear regression 0.8*humidity + 20.
func Temperature(humidity float64) float64 {
	return 0.8*humidity + 20
}

// Cluster assigns a temperature/humidity pair to one of three fixed clusters.
func Cluster(temperature, humidity float64) string {
	switch {
	case temperature < 15 && humidity > 60:
		return ClusterColdHumid
	case temperature > 25 && humidity < 50:
		return ClusterHotDry
	default:
		return ClusterModerate
	}
}

// Condition buckets a temperature into cold, mild or hot.
func Condition(temperature float64) string {
	switch {
	case temperature < 10:
		return ConditionCold
	case temperature < 25:
		return ConditionMild
	default:
		return ConditionHot
	}
}

// Alert decides whether a heat or cold alert should be sent.
func Alert(temperature, humidity float64) string {
	switch {
	case temperature > 30 && humidity < 40:
		return AlertHeat
	case temperature < 5 && humidity > 70:
		return AlertCold
	default:
		return AlertNone
	}
}
