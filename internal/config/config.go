package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds service configuration loaded from YAML and env.
type Config struct {
	ServerPort string

	ForecastAPIURL     string
	ForecastAPITimeout time.Duration

	ZonesPath string
	ZonesTTL  time.Duration

	CacheBackend string // "in_memory" or "memcached"

	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	RequestTimeout   time.Duration
	ResponseCacheTTL time.Duration
	RateLimitRPS     int
	RateLimitBurst   int

	TraceExporter   string
	MetricsExporter string

	ShutdownTimeout time.Duration
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	ForecastAPI struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"forecast_api"`

	Zones struct {
		Path string `yaml:"path"`
		TTL  string `yaml:"ttl"`
	} `yaml:"zones"`

	Cache struct {
		Backend   string `yaml:"backend"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
	} `yaml:"cache"`

	Request struct {
		Timeout          string `yaml:"timeout"`
		ResponseCacheTTL string `yaml:"response_cache_ttl"`
		RateLimitRPS     int    `yaml:"rate_limit_rps"`
		RateLimitBurst   int    `yaml:"rate_limit_burst"`
	} `yaml:"request"`

	Telemetry struct {
		TraceExporter   string `yaml:"trace_exporter"`
		MetricsExporter string `yaml:"metrics_exporter"`
	} `yaml:"telemetry"`

	Shutdown struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"shutdown"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) with env
// overrides for the cache backend and exporters. Call from project root.
func Load() (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}

	cfg.ServerPort = fc.Server.Port
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.ForecastAPIURL = strings.TrimSpace(os.Getenv("FORECAST_API_URL"))
	if cfg.ForecastAPIURL == "" {
		cfg.ForecastAPIURL = strings.TrimSpace(fc.ForecastAPI.URL)
	}
	if cfg.ForecastAPIURL == "" {
		cfg.ForecastAPIURL = "https://api.weather.gov"
	}
	cfg.ForecastAPIURL = strings.TrimRight(cfg.ForecastAPIURL, "/")
	cfg.ForecastAPITimeout = parseDuration(fc.ForecastAPI.Timeout, 10*time.Second)

	cfg.ZonesPath = strings.TrimSpace(os.Getenv("ZONES_PATH"))
	if cfg.ZonesPath == "" {
		cfg.ZonesPath = strings.TrimSpace(fc.Zones.Path)
	}
	if cfg.ZonesPath == "" {
		cfg.ZonesPath = filepath.Join("data", "zones.json")
	}
	cfg.ZonesTTL = parseDuration(fc.Zones.TTL, time.Hour)

	cfg.CacheBackend = strings.TrimSpace(strings.ToLower(os.Getenv("CACHE_BACKEND")))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = strings.TrimSpace(strings.ToLower(fc.Cache.Backend))
	}
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = "in_memory"
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

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 15*time.Second)
	cfg.ResponseCacheTTL = parseDuration(fc.Request.ResponseCacheTTL, 5*time.Second)
	cfg.RateLimitRPS = fc.Request.RateLimitRPS
	cfg.RateLimitBurst = fc.Request.RateLimitBurst
	if cfg.RateLimitRPS > 0 && cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = cfg.RateLimitRPS * 2
	}

	cfg.TraceExporter = strings.TrimSpace(strings.ToLower(os.Getenv("TRACE_EXPORTER")))
	if cfg.TraceExporter == "" {
		cfg.TraceExporter = strings.TrimSpace(strings.ToLower(fc.Telemetry.TraceExporter))
	}
	cfg.MetricsExporter = strings.TrimSpace(strings.ToLower(os.Getenv("METRICS_EXPORTER")))
	if cfg.MetricsExporter == "" {
		cfg.MetricsExporter = strings.TrimSpace(strings.ToLower(fc.Telemetry.MetricsExporter))
	}
	if cfg.MetricsExporter == "" {
		cfg.MetricsExporter = "prometheus"
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseDuration parses a duration string and returns defaultVal if parsing
// fails or the result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// validate performs post-load validation. Ensures RequestTimeout leaves room
// for the upstream call and the backend/exporter names are known values.
func validate(cfg *Config) error {
	if cfg.RequestTimeout <= cfg.ForecastAPITimeout {
		cfg.RequestTimeout = cfg.ForecastAPITimeout + time.Second
	}
	switch cfg.CacheBackend {
	case "in_memory", "memcached":
		// valid
	default:
		return fmt.Errorf("cache.backend must be in_memory or memcached, got %q", cfg.CacheBackend)
	}
	switch cfg.TraceExporter {
	case "", "none", "stdout":
		// valid
	default:
		return fmt.Errorf("telemetry.trace_exporter must be stdout or none, got %q", cfg.TraceExporter)
	}
	switch cfg.MetricsExporter {
	case "", "none", "stdout", "prometheus":
		// valid
	default:
		return fmt.Errorf("telemetry.metrics_exporter must be prometheus, stdout or none, got %q", cfg.MetricsExporter)
	}
	return nil
}
