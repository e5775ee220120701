// Package config loads the storefront command line configuration from an
// optional YAML file and STOREFRONT_* environment variables, in that
// order, on top of the defaults.
//
// Usage:
//
//	cfg, err := config.Load("storefront.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMySQL  = "mysql"
)

// Config is the complete client configuration.
type Config struct {
	APIURL      string        `yaml:"api_url"`
	Timeout     time.Duration `yaml:"timeout"`
	TokenHeader string        `yaml:"token_header"`
	Tracing     bool          `yaml:"tracing"`
	LogLevel    string        `yaml:"log_level"`
	MetricsAddr string        `yaml:"metrics_addr"`

	Store   StoreConfig   `yaml:"store"`
	Menu    MenuConfig    `yaml:"menu"`
	Breaker BreakerConfig `yaml:"breaker"`
	Serve   ServeConfig   `yaml:"serve"`
}

// StoreConfig selects the local persistence backend.
type StoreConfig struct {
	Backend string `yaml:"backend"`
	// DSN is a file path for sqlite, a redis URL or a MySQL DSN.
	DSN    string `yaml:"dsn"`
	Prefix string `yaml:"prefix"`
	// CleanupInterval is how often a long running shell purges expired
	// records. Zero disables the cleanup.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// MenuConfig tunes the menu cache.
type MenuConfig struct {
	MinLoading      time.Duration `yaml:"min_loading"`
	TTL             time.Duration `yaml:"ttl"`
	DefaultCategory string        `yaml:"default_category"`
}

// BreakerConfig tunes the gateway circuit breaker. A zero
// FailureThreshold disables the breaker.
type BreakerConfig struct {
	FailureThreshold uint32        `yaml:"failure_threshold"`
	MaxRequests      uint32        `yaml:"max_requests"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout"`
}

// ServeConfig configures the reference backend started by "serve".
type ServeConfig struct {
	Addr     string            `yaml:"addr"`
	TokenTTL time.Duration     `yaml:"token_ttl"`
	Users    map[string]string `yaml:"users"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		APIURL:      "http://localhost:3000",
		Timeout:     10 * time.Second,
		TokenHeader: "token",
		LogLevel:    "info",
		Store: StoreConfig{
			Backend:         BackendSQLite,
			DSN:             "storefront.db",
			CleanupInterval: time.Minute,
		},
		Menu: MenuConfig{
			MinLoading:      2 * time.Second,
			DefaultCategory: "All",
		},
		Breaker: BreakerConfig{
			FailureThreshold: 5,
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          30 * time.Second,
		},
		Serve: ServeConfig{
			Addr:     ":3000",
			TokenTTL: time.Hour,
		},
	}
}

// Load returns the defaults overridden by the YAML file at path, when path
// is not empty, and then by the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.LoadFromFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile overlays the YAML file at path. Keys missing from the file
// keep their current value.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv overlays STOREFRONT_* environment variables.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("STOREFRONT_API_URL"); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv("STOREFRONT_TOKEN_HEADER"); v != "" {
		c.TokenHeader = v
	}
	if v := os.Getenv("STOREFRONT_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("STOREFRONT_METRICS_ADDR"); v != "" {
		c.MetricsAddr = v
	}
	if v := os.Getenv("STOREFRONT_STORE"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("STOREFRONT_STORE_DSN"); v != "" {
		c.Store.DSN = v
	}
	if v := os.Getenv("STOREFRONT_STORE_PREFIX"); v != "" {
		c.Store.Prefix = v
	}
	if v := os.Getenv("STOREFRONT_SERVE_ADDR"); v != "" {
		c.Serve.Addr = v
	}

	if v := os.Getenv("STOREFRONT_TRACING"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("STOREFRONT_TRACING: %w", err)
		}
		c.Tracing = b
	}

	durations := map[string]*time.Duration{
		"STOREFRONT_TIMEOUT":          &c.Timeout,
		"STOREFRONT_MENU_MIN_LOADING": &c.Menu.MinLoading,
		"STOREFRONT_MENU_TTL":         &c.Menu.TTL,
		"STOREFRONT_BREAKER_TIMEOUT":  &c.Breaker.Timeout,
		"STOREFRONT_STORE_CLEANUP":    &c.Store.CleanupInterval,
	}
	for name, dst := range durations {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = d
	}

	if v := os.Getenv("STOREFRONT_BREAKER_THRESHOLD"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("STOREFRONT_BREAKER_THRESHOLD: %w", err)
		}
		c.Breaker.FailureThreshold = uint32(n)
	}

	return nil
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	var errs []error

	if u, err := url.Parse(c.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("api_url %q is not an absolute url", c.APIURL))
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendSQLite, BackendRedis, BackendMySQL:
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("store.dsn is required for backend %q", c.Store.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}

	if c.Timeout < 0 || c.Menu.MinLoading < 0 || c.Menu.TTL < 0 || c.Store.CleanupInterval < 0 {
		errs = append(errs, errors.New("durations must not be negative"))
	}

	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Level returns the zerolog level named by LogLevel.
func (c *Config) Level() (zerolog.Level, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("log_level: %w", err)
	}
	return lvl, nil
}
