package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-prediction-demo/internal/cache"
	"github.com/kjstillabower/weather-prediction-demo/internal/config"
	httphandler "github.com/kjstillabower/weather-prediction-demo/internal/http"
	"github.com/kjstillabower/weather-prediction-demo/internal/observability"
	"github.com/kjstillabower/weather-prediction-demo/internal/server"
	"github.com/kjstillabower/weather-prediction-demo/internal/service"
)

var version = "dev"

type cli struct {
	EnvFile       kongdotenv.ENVFileConfig `kong:"optional,name=env-file,default='.env',help='Path to .env file'"`
	Service       []string                 `kong:"name=service,short=s,help='Services to start (rain, temperature, weather, alert, basics). Repeatable; defaults to all.'"`
	TestEndpoints bool                     `kong:"name=test-endpoints,help='Expose GET /test and POST /test/{action} on every listener.'"`
	Version       kong.VersionFlag         `kong:"help='Print version and exit.'"`
}

func main() {
	var c cli
	kong.Parse(&c,
		kong.Name("predictd"),
		kong.Description("Rule-based prediction services for the weather dashboard."),
		kong.Vars{"version": version},
	)

	logger, err := observability.NewLogger("predictd")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, c, logger); err != nil {
		logger.Fatal("predictd", zap.Error(err))
	}
}

func run(ctx context.Context, c cli, logger *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	services := c.Service
	if len(services) == 0 {
		services = httphandler.Services
	}
	for _, name := range services {
		if _, ok := cfg.ServicePorts[name]; !ok {
			return fmt.Errorf("unknown service %q", name)
		}
	}

	store, ping, closeCache, err := newCache(cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	handler := httphandler.NewHandler(service.NewPredictionService(store, cfg.CacheTTL))

	// One limiter for the process so the services share a budget.
	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	observability.RegisterRateLimitGauges(cfg.OverloadWindow)

	listeners := make([]server.Listener, 0, len(services))
	for _, name := range services {
		health := httphandler.NewHealthHandler(httphandler.HealthConfig{
			Service:              name,
			Version:              version,
			OverloadWindow:       cfg.OverloadWindow,
			OverloadThresholdPct: cfg.OverloadThresholdPct,
			RateLimitRPS:         cfg.RateLimitRPS,
			DegradedWindow:       cfg.DegradedWindow,
			DegradedErrorPct:     cfg.DegradedErrorPct,
			CachePing:            ping,
		}, logger.With(zap.String("service", name)))

		rc := httphandler.RouterConfig{
			Service:        name,
			Handler:        handler,
			Health:         health,
			Limiter:        limiter,
			RequestTimeout: cfg.RequestTimeout,
			Logger:         logger,
		}
		if c.TestEndpoints {
			rc.TestControl = httphandler.NewTestControl(health, limiter)
		}
		router, err := httphandler.NewServiceRouter(rc)
		if err != nil {
			return err
		}

		listeners = append(listeners, server.Listener{
			Name:   name,
			Server: server.New(":"+cfg.ServicePorts[name], router),
			Started: func(addr net.Addr) {
				logger.Info("prediction service listening", zap.String("service", name), zap.String("addr", addr.String()))
			},
		})
	}
	if c.TestEndpoints {
		logger.Warn("test endpoints enabled")
	}

	return server.Run(ctx, logger, listeners, server.ShutdownFromConfig(cfg))
}

// newCache builds the configured backend. ping is nil for the in-memory cache.
func newCache(cfg *config.Config, logger *zap.Logger) (cache.Cache, func() error, func(), error) {
	switch cfg.CacheBackend {
	case "memcached":
		mc := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
		return mc, mc.Ping, closer(mc.Close, "memcached", logger), nil
	case "redis":
		rc := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		logger.Info("cache backend: redis", zap.String("addr", cfg.RedisAddr))
		return rc, rc.Ping, closer(rc.Close, "redis", logger), nil
	case "in_memory":
		logger.Info("cache backend: in_memory", zap.Int("max_entries", cfg.CacheMaxEntries))
		return cache.NewInMemoryCacheSize(cfg.CacheMaxEntries), nil, func() {}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}

func closer(fn func() error, backend string, logger *zap.Logger) func() {
	return func() {
		if err := fn(); err != nil {
			logger.Warn("cache close", zap.String("backend", backend), zap.Error(err))
		}
	}
}
