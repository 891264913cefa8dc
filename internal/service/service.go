package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-prediction-demo/internal/cache"
	"github.com/kjstillabower/weather-prediction-demo/internal/client"
	"github.com/kjstillabower/weather-prediction-demo/internal/models"
	"github.com/kjstillabower/weather-prediction-demo/internal/observability"
	"github.com/kjstillabower/weather-prediction-demo/internal/predict"
)

// PredictionService serves predictions with a cache-aside lookup in front of the
// rules. Cache failures are logged and counted; they never fail a prediction.
type PredictionService struct {
	cache cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

// NewPredictionService creates a PredictionService. A nil cache disables caching.
func NewPredictionService(c cache.Cache, ttl time.Duration) *PredictionService {
	return &PredictionService{cache: c, ttl: ttl, now: time.Now}
}

// Rain predicts rain for the given humidity.
func (s *PredictionService) Rain(ctx context.Context, humidity float64) models.Prediction {
	key := cacheKey(models.KindRain, input{"h", humidity})
	return s.serve(ctx, models.KindRain, key, func() models.Prediction {
		return models.Prediction{Label: predict.RainFor(humidity)}
	})
}

// Temperature predicts the temperature for the given humidity.
func (s *PredictionService) Temperature(ctx context.Context, humidity float64) models.Prediction {
	key := cacheKey(models.KindTemperature, input{"h", humidity})
	return s.serve(ctx, models.KindTemperature, key, func() models.Prediction {
		return models.Prediction{Value: predict.Temperature(humidity)}
	})
}

// Cluster assigns the reading to a weather cluster.
func (s *PredictionService) Cluster(ctx context.Context, temperature, humidity float64) models.Prediction {
	key := cacheKey(models.KindCluster, input{"t", temperature}, input{"h", humidity})
	return s.serve(ctx, models.KindCluster, key, func() models.Prediction {
		return models.Prediction{Label: predict.Cluster(temperature, humidity)}
	})
}

// Condition buckets the temperature.
func (s *PredictionService) Condition(ctx context.Context, temperature float64) models.Prediction {
	key := cacheKey(models.KindCondition, input{"t", temperature})
	return s.serve(ctx, models.KindCondition, key, func() models.Prediction {
		return models.Prediction{Label: predict.Condition(temperature)}
	})
}

// Alert decides the alert action for the reading.
func (s *PredictionService) Alert(ctx context.Context, temperature, humidity float64) models.Prediction {
	key := cacheKey(models.KindAlert, input{"t", temperature}, input{"h", humidity})
	return s.serve(ctx, models.KindAlert, key, func() models.Prediction {
		return models.Prediction{Label: predict.Alert(temperature, humidity)}
	})
}

func (s *PredictionService) serve(ctx context.Context, kind, key string, compute func() models.Prediction) models.Prediction {
	logger := observability.LoggerFromContext(ctx)
	defer observability.PredictionsServedTotal.WithLabelValues(kind).Inc()

	if s.cache != nil {
		getStart := time.Now()
		cached, ok, err := s.cache.Get(ctx, key)
		getDuration := time.Since(getStart).Seconds()
		switch {
		case err != nil:
			observability.CacheErrorsTotal.WithLabelValues("get", string(client.CategorizeError(err))).Inc()
			observability.CacheOperationDurationSeconds.WithLabelValues("get", "error").Observe(getDuration)
			if logger != nil {
				logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
			}
		case ok:
			observability.CacheOperationDurationSeconds.WithLabelValues("get", "success").Observe(getDuration)
			observability.CacheHitsTotal.WithLabelValues(kind).Inc()
			if logger != nil {
				logger.Debug("prediction served", zap.String("key", key), zap.Bool("cached", true))
			}
			return cached
		default:
			observability.CacheOperationDurationSeconds.WithLabelValues("get", "miss").Observe(getDuration)
		}
	}

	p := compute()
	p.Kind = kind
	p.ComputedAt = s.now().UTC()

	if s.cache != nil {
		setStart := time.Now()
		if err := s.cache.Set(ctx, key, p, s.ttl); err != nil {
			observability.CacheErrorsTotal.WithLabelValues("set", string(client.CategorizeError(err))).Inc()
			observability.CacheOperationDurationSeconds.WithLabelValues("set", "error").Observe(time.Since(setStart).Seconds())
			if logger != nil {
				logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
			}
		} else {
			observability.CacheOperationDurationSeconds.WithLabelValues("set", "success").Observe(time.Since(setStart).Seconds())
		}
	}
	if logger != nil {
		logger.Debug("prediction served", zap.String("key", key), zap.Bool("cached", false))
	}
	return p
}

type input struct {
	name  string
	value float64
}

// cacheKey builds keys like "cluster:t=15,h=70". -0 and 0 share a key.
func cacheKey(kind string, inputs ...input) string {
	var b strings.Builder
	b.WriteString(kind)
	b.WriteByte(':')
	for i, in := range inputs {
		if i > 0 {
			b.WriteByte(',')
		}
		v := in.value
		if v == 0 {
			v = 0
		}
		b.WriteString(in.name)
		b.WriteByte('=')
		b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
	}
	return b.String()
}
