package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default listener ports for the prediction services, keyed by service name.
var DefaultServicePorts = map[string]string{
	"rain":        "5000",
	"temperature": "8000",
	"weather":     "8080",
	"alert":       "5001",
	"basics":      "5050",
}

// Config holds configuration for the demo responder, the prediction services
// and the dashboard, loaded from YAML and env.
type Config struct {
	DemoPort string

	ServicePorts   map[string]string
	RequestTimeout time.Duration
	RateLimitRPS   int
	RateLimitBurst int

	CacheBackend string // "in_memory", "memcached" or "redis"
	CacheTTL     time.Duration
	// CacheMaxEntries bounds the in_memory backend.
	CacheMaxEntries int

	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OverloadWindow       time.Duration
	OverloadThresholdPct int
	DegradedWindow       time.Duration
	DegradedErrorPct     int

	DashboardPort    string
	DashboardVariant string // "full" or "condition"
	RefreshInterval  time.Duration

	RainURL        string
	TemperatureURL string
	WeatherURL     string
	AlertURL       string

	Inputs Inputs

	CallTimeout    time.Duration // 0 disables the per-call deadline
	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	CircuitBreakerEnabled          bool
	CircuitBreakerFailureThreshold int
	CircuitBreakerSuccessThreshold int
	CircuitBreakerTimeout          time.Duration

	ShutdownTimeout               time.Duration
	ShutdownInFlightTimeout       time.Duration
	ShutdownInFlightCheckInterval time.Duration
}

// Inputs are the fixed values the dashboard sends with each prediction call.
type Inputs struct {
	RainHumidity        float64
	TemperatureHumidity float64
	ClusterTemperature  float64
	ClusterHumidity     float64
	ConditionTemp       float64
	AlertTemperature    float64
	AlertHumidity       float64
}

type fileConfig struct {
	Demo struct {
		Port string `yaml:"port"`
	} `yaml:"demo"`

	Predictions struct {
		Services       map[string]string `yaml:"services"`
		RequestTimeout string            `yaml:"request_timeout"`
		RateLimitRPS   int               `yaml:"rate_limit_rps"`
		RateLimitBurst int               `yaml:"rate_limit_burst"`
	} `yaml:"predictions"`

	Cache struct {
		Backend    string `yaml:"backend"`
		TTL        string `yaml:"ttl"`
		MaxEntries int    `yaml:"max_entries"`
		Memcached  struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Health struct {
		OverloadWindow       string `yaml:"overload_window"`
		OverloadThresholdPct int    `yaml:"overload_threshold_pct"`
		DegradedWindow       string `yaml:"degraded_window"`
		DegradedErrorPct     int    `yaml:"degraded_error_pct"`
	} `yaml:"health"`

	Dashboard struct {
		Port            string `yaml:"port"`
		Variant         string `yaml:"variant"`
		RefreshInterval string `yaml:"refresh_interval"`
		Endpoints       struct {
			Rain        string `yaml:"rain"`
			Temperature string `yaml:"temperature"`
			Weather     string `yaml:"weather"`
			Alert       string `yaml:"alert"`
		} `yaml:"endpoints"`
		Inputs struct {
			RainHumidity        *float64 `yaml:"rain_humidity"`
			TemperatureHumidity *float64 `yaml:"temperature_humidity"`
			ClusterTemperature  *float64 `yaml:"cluster_temperature"`
			ClusterHumidity     *float64 `yaml:"cluster_humidity"`
			ConditionTemp       *float64 `yaml:"condition_temperature"`
			AlertTemperature    *float64 `yaml:"alert_temperature"`
			AlertHumidity       *float64 `yaml:"alert_humidity"`
		} `yaml:"inputs"`
	} `yaml:"dashboard"`

	Client struct {
		CallTimeout      string `yaml:"call_timeout"`
		RetryMaxAttempts int    `yaml:"retry_max_attempts"`
		RetryBaseDelay   string `yaml:"retry_base_delay"`
		RetryMaxDelay    string `yaml:"retry_max_delay"`
		CircuitBreaker   struct {
			Enabled          bool   `yaml:"enabled"`
			FailureThreshold int    `yaml:"failure_threshold"`
			SuccessThreshold int    `yaml:"success_threshold"`
			Timeout          string `yaml:"timeout"`
		} `yaml:"circuit_breaker"`
	} `yaml:"client"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) relative to the
// working directory. A missing file is not an error: every field has a default.
func Load() (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	return LoadFile(filepath.Join(cwd, "config", env+".yaml"))
}

// LoadFile reads configuration from the given YAML path and applies env overrides and defaults.
func LoadFile(path string) (*Config, error) {
	var fc fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}

	cfg.DemoPort = strings.TrimSpace(fc.Demo.Port)
	if cfg.DemoPort == "" {
		cfg.DemoPort = "3000"
	}

	cfg.ServicePorts = make(map[string]string, len(DefaultServicePorts))
	for name, port := range DefaultServicePorts {
		cfg.ServicePorts[name] = port
	}
	for name, port := range fc.Predictions.Services {
		name = strings.ToLower(strings.TrimSpace(name))
		if p := strings.TrimSpace(port); p != "" {
			cfg.ServicePorts[name] = p
		}
	}
	cfg.RequestTimeout = parseDuration(fc.Predictions.RequestTimeout, 5*time.Second)
	cfg.RateLimitRPS = fc.Predictions.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 100
	}
	cfg.RateLimitBurst = fc.Predictions.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 250
	}

	cfg.CacheBackend = strings.TrimSpace(strings.ToLower(os.Getenv("CACHE_BACKEND")))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = strings.TrimSpace(strings.ToLower(fc.Cache.Backend))
	}
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = "in_memory"
	}
	cfg.CacheTTL = parseDuration(fc.Cache.TTL, 5*time.Minute)
	cfg.CacheMaxEntries = fc.Cache.MaxEntries
	if cfg.CacheMaxEntries <= 0 {
		cfg.CacheMaxEntries = 10000
	}
	cfg.MemcachedAddrs = strings.TrimSpace(os.Getenv("MEMCACHED_ADDRS"))
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = strings.TrimSpace(fc.Cache.Memcached.Addrs)
	}
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = "localhost:11211"
	}
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}
	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = strings.TrimSpace(fc.Cache.Redis.Addr)
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}
	cfg.RedisPassword = fc.Cache.Redis.Password
	cfg.RedisDB = fc.Cache.Redis.DB

	cfg.OverloadWindow = parseDuration(fc.Health.OverloadWindow, 60*time.Second)
	cfg.OverloadThresholdPct = fc.Health.OverloadThresholdPct
	if cfg.OverloadThresholdPct <= 0 {
		cfg.OverloadThresholdPct = 80
	}
	cfg.DegradedWindow = parseDuration(fc.Health.DegradedWindow, 60*time.Second)
	cfg.DegradedErrorPct = fc.Health.DegradedErrorPct
	if cfg.DegradedErrorPct <= 0 {
		cfg.DegradedErrorPct = 50
	}

	cfg.DashboardPort = strings.TrimSpace(fc.Dashboard.Port)
	if cfg.DashboardPort == "" {
		cfg.DashboardPort = "4200"
	}
	cfg.DashboardVariant = strings.TrimSpace(strings.ToLower(fc.Dashboard.Variant))
	if cfg.DashboardVariant == "" {
		cfg.DashboardVariant = "full"
	}
	cfg.RefreshInterval = parseDuration(fc.Dashboard.RefreshInterval, 2*time.Second)

	cfg.RainURL = orDefault(fc.Dashboard.Endpoints.Rain, "http://127.0.0.1:5000")
	cfg.TemperatureURL = orDefault(fc.Dashboard.Endpoints.Temperature, "http://127.0.0.1:8000")
	cfg.WeatherURL = orDefault(fc.Dashboard.Endpoints.Weather, "http://127.0.0.1:8080")
	cfg.AlertURL = orDefault(fc.Dashboard.Endpoints.Alert, "http://127.0.0.1:5001")

	in := fc.Dashboard.Inputs
	cfg.Inputs = Inputs{
		RainHumidity:        floatOr(in.RainHumidity, 80),
		TemperatureHumidity: floatOr(in.TemperatureHumidity, 80),
		ClusterTemperature:  floatOr(in.ClusterTemperature, 15),
		ClusterHumidity:     floatOr(in.ClusterHumidity, 70),
		ConditionTemp:       floatOr(in.ConditionTemp, 15),
		AlertTemperature:    floatOr(in.AlertTemperature, 32),
		AlertHumidity:       floatOr(in.AlertHumidity, 35),
	}

	cfg.CallTimeout = parseDurationOrZero(fc.Client.CallTimeout, 0)
	cfg.RetryAttempts = fc.Client.RetryMaxAttempts
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 1
	}
	cfg.RetryBaseDelay = parseDuration(fc.Client.RetryBaseDelay, 100*time.Millisecond)
	cfg.RetryMaxDelay = parseDuration(fc.Client.RetryMaxDelay, 2*time.Second)
	cfg.CircuitBreakerEnabled = fc.Client.CircuitBreaker.Enabled
	cfg.CircuitBreakerFailureThreshold = fc.Client.CircuitBreaker.FailureThreshold
	if cfg.CircuitBreakerFailureThreshold <= 0 {
		cfg.CircuitBreakerFailureThreshold = 5
	}
	cfg.CircuitBreakerSuccessThreshold = fc.Client.CircuitBreaker.SuccessThreshold
	if cfg.CircuitBreakerSuccessThreshold <= 0 {
		cfg.CircuitBreakerSuccessThreshold = 2
	}
	cfg.CircuitBreakerTimeout = parseDuration(fc.Client.CircuitBreaker.Timeout, 30*time.Second)

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 10*time.Second)
	cfg.ShutdownInFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Returns zero or negative durations as-is (caller should handle fallback).
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

func orDefault(s, def string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return strings.TrimRight(s, "/")
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// validate performs post-load validation of configuration values.
func validate(cfg *Config) error {
	switch cfg.CacheBackend {
	case "in_memory", "memcached", "redis":
	default:
		return fmt.Errorf("cache.backend must be in_memory, memcached or redis, got %q", cfg.CacheBackend)
	}
	switch cfg.DashboardVariant {
	case "full", "condition":
	default:
		return fmt.Errorf("dashboard.variant must be full or condition, got %q", cfg.DashboardVariant)
	}
	if cfg.CallTimeout < 0 {
		return fmt.Errorf("client.call_timeout must not be negative")
	}
	for name, port := range cfg.ServicePorts {
		if _, ok := DefaultServicePorts[name]; !ok {
			return fmt.Errorf("predictions.services: unknown service %q", name)
		}
		if err := validatePort(port); err != nil {
			return fmt.Errorf("predictions.services.%s: %w", name, err)
		}
	}
	if err := validatePort(cfg.DemoPort); err != nil {
		return fmt.Errorf("demo.port: %w", err)
	}
	if err := validatePort(cfg.DashboardPort); err != nil {
		return fmt.Errorf("dashboard.port: %w", err)
	}
	return nil
}

func validatePort(port string) error {
	n, err := strconv.Atoi(port)
	if err != nil || n <= 0 || n > 65535 {
		return fmt.Errorf("invalid port %q", port)
	}
	return nil
}
