// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Cache backend selectors.
const (
	CacheBackendMemory = "memory"
	CacheBackendSQLite = "sqlite"
)

// defaultPattern counts anchor tags whose href points at an absolute
// http(s) URL, matching across line boundaries.
const defaultPattern = `<a\s+[^>]*href\s*=\s*["'](?:http|https)://[^"']*["'][^>]*>(.*?)</a>`

// defaultSites is the out-of-the-box analysis set.
var defaultSites = []string{
	"https://www.lapatilla.com",
	"https://www.paradigmadigital.com",
	"https://www.realpython.com",
	"https://www.facebook.com",
	"https://www.instagram.com",
	"https://www.youtube.com",
	"https://www.mozilla.org",
	"https://www.github.com",
	"https://www.google.com",
	"https://www.holachamo.com",
}

// Config captures all service configuration knobs loaded via Viper.
// It is resolved once at process start and shared by reference.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Analyzer AnalyzerConfig `mapstructure:"analyzer"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AnalyzerConfig holds the search pattern and the configured site list.
type AnalyzerConfig struct {
	Pattern string   `mapstructure:"pattern"`
	Sites   []string `mapstructure:"sites"`
}

// HTTPConfig configures per-attempt timeouts and retry behavior.
type HTTPConfig struct {
	TimeoutSeconds   int    `mapstructure:"timeout_seconds"`
	MaxRetries       int    `mapstructure:"max_retries"`
	BackoffInitialMs int    `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int    `mapstructure:"backoff_max_ms"`
	UserAgent        string `mapstructure:"user_agent"`
	Accept           string `mapstructure:"accept"`
}

// FetchConfig governs the concurrency gate and per-host politeness.
type FetchConfig struct {
	GateMultiplier int     `mapstructure:"gate_multiplier"`
	PerHostRPS     float64 `mapstructure:"per_host_rps"`
}

// CacheConfig selects and sizes the response cache backend.
type CacheConfig struct {
	Backend       string `mapstructure:"backend"`
	ExpireSeconds int    `mapstructure:"expire_seconds"`
	DBPath        string `mapstructure:"db_path"`
	Capacity      int    `mapstructure:"capacity"`
}

// LoggingConfig controls the root logger. Level accepts the zap level
// names (debug, info, warn, error); Development switches to console
// encoding with colored levels.
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("COUNTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("analyzer.pattern", defaultPattern)
	v.SetDefault("analyzer.sites", defaultSites)
	v.SetDefault("http.timeout_seconds", 10)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.backoff_initial_ms", 250)
	v.SetDefault("http.backoff_max_ms", 5000)
	v.SetDefault("http.user_agent", "Mozilla/5.0 (compatible; HrefCounter/1.0)")
	v.SetDefault("http.accept", "text/html,application/xhtml+xml")
	v.SetDefault("fetch.gate_multiplier", 2)
	v.SetDefault("fetch.per_host_rps", 0)
	v.SetDefault("cache.backend", CacheBackendMemory)
	v.SetDefault("cache.expire_seconds", 300)
	v.SetDefault("cache.db_path", "data/responses.db")
	v.SetDefault("cache.capacity", 1024)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Analyzer.Pattern == "" {
		return fmt.Errorf("analyzer.pattern must not be empty")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must be >= 0")
	}
	if c.Fetch.GateMultiplier <= 0 {
		return fmt.Errorf("fetch.gate_multiplier must be > 0")
	}
	switch c.Cache.Backend {
	case CacheBackendMemory:
		if c.Cache.Capacity <= 0 {
			return fmt.Errorf("cache.capacity must be > 0 for the memory backend")
		}
	case CacheBackendSQLite:
		if c.Cache.DBPath == "" {
			return fmt.Errorf("cache.db_path must be set for the sqlite backend")
		}
	default:
		return fmt.Errorf("cache.backend must be %q or %q", CacheBackendMemory, CacheBackendSQLite)
	}
	if c.Cache.ExpireSeconds <= 0 {
		return fmt.Errorf("cache.expire_seconds must be > 0")
	}
	return nil
}

// Timeout converts the per-attempt timeout into a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// BackoffInitial converts the initial backoff delay into a duration.
func (c Config) BackoffInitial() time.Duration {
	return time.Duration(c.HTTP.BackoffInitialMs) * time.Millisecond
}

// BackoffMax converts the backoff ceiling into a duration.
func (c Config) BackoffMax() time.Duration {
	return time.Duration(c.HTTP.BackoffMaxMs) * time.Millisecond
}

// CacheExpire converts the cache TTL into a duration.
func (c Config) CacheExpire() time.Duration {
	return time.Duration(c.Cache.ExpireSeconds) * time.Second
}
