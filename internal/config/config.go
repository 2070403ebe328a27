// Package config loads daemon settings from an optional YAML file and
// LIFEDROP_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"lifedrop.org/internal/donors"
)

// Gateway drivers.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	HTTPAddr string `yaml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr"`
	LogLevel string `yaml:"log_level"`

	Gateway      Gateway      `yaml:"gateway"`
	Registration Registration `yaml:"registration"`
	Donors       Donors       `yaml:"donors"`
	HTTP         HTTP         `yaml:"http"`
}

type Gateway struct {
	Driver      string        `yaml:"driver"`
	DataDir     string        `yaml:"data_dir"`
	PostgresDSN string        `yaml:"postgres_dsn"`
	RedisURL    string        `yaml:"redis_url"`
	RedisPrefix string        `yaml:"redis_prefix"`
	Timeout     time.Duration `yaml:"timeout"`
}

type Registration struct {
	SubmitDelay time.Duration `yaml:"submit_delay"`
}

type Donors struct {
	RosterPath string  `yaml:"roster_path"`
	RadiusKm   float64 `yaml:"radius_km"`
	Limit      int     `yaml:"limit"`
}

type HTTP struct {
	RateBurst     int   `yaml:"rate_burst"`
	RatePerSecond int   `yaml:"rate_per_second"`
	MaxBodyBytes  int64 `yaml:"max_body_bytes"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		HTTPAddr: "127.0.0.1:8080",
		GRPCAddr: "127.0.0.1:9090",
		LogLevel: "info",
		Gateway: Gateway{
			Driver:      DriverFile,
			DataDir:     "./data",
			RedisPrefix: "lifedrop:",
			Timeout:     5 * time.Second,
		},
		Registration: Registration{SubmitDelay: 1500 * time.Millisecond},
		Donors:       Donors{RadiusKm: 10, Limit: 20},
		HTTP:         HTTP{RateBurst: 20, RatePerSecond: 10, MaxBodyBytes: 64 << 10},
	}
}

// Load reads path (if non-empty) over the defaults, then applies env overrides
// and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("LIFEDROP_HTTP_ADDR", &c.HTTPAddr)
	str("LIFEDROP_GRPC_ADDR", &c.GRPCAddr)
	str("LIFEDROP_LOG_LEVEL", &c.LogLevel)
	str("LIFEDROP_GATEWAY", &c.Gateway.Driver)
	str("LIFEDROP_DATA_DIR", &c.Gateway.DataDir)
	str("LIFEDROP_PG_DSN", &c.Gateway.PostgresDSN)
	str("LIFEDROP_REDIS_URL", &c.Gateway.RedisURL)
	str("LIFEDROP_DONOR_ROSTER", &c.Donors.RosterPath)

	if v, ok := lookup("LIFEDROP_GATEWAY_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: LIFEDROP_GATEWAY_TIMEOUT: %v", ErrInvalid, err)
		}
		c.Gateway.Timeout = d
	}
	if v, ok := lookup("LIFEDROP_RATE_BURST"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: LIFEDROP_RATE_BURST: %v", ErrInvalid, err)
		}
		c.HTTP.RateBurst = n
	}
	return nil
}

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	switch c.Gateway.Driver {
	case DriverMemory:
	case DriverFile:
		if strings.TrimSpace(c.Gateway.DataDir) == "" {
			return fmt.Errorf("%w: gateway.data_dir is required for the file driver", ErrInvalid)
		}
	case DriverPostgres:
		if c.Gateway.PostgresDSN == "" {
			return fmt.Errorf("%w: gateway.postgres_dsn is required for the postgres driver", ErrInvalid)
		}
	case DriverRedis:
		if c.Gateway.RedisURL == "" {
			return fmt.Errorf("%w: gateway.redis_url is required for the redis driver", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown gateway driver %q", ErrInvalid, c.Gateway.Driver)
	}
	if c.Gateway.Timeout < 0 {
		return fmt.Errorf("%w: gateway.timeout must not be negative", ErrInvalid)
	}
	if c.Registration.SubmitDelay < 0 {
		return fmt.Errorf("%w: registration.submit_delay must not be negative", ErrInvalid)
	}
	if !donors.ValidRadius(c.Donors.RadiusKm) {
		return fmt.Errorf("%w: donors.radius_km must be 0 or one of %v", ErrInvalid, donors.RadiusOptions)
	}
	if c.Donors.Limit < 0 {
		return fmt.Errorf("%w: donors.limit must not be negative", ErrInvalid)
	}
	if c.HTTP.RateBurst <= 0 || c.HTTP.RatePerSecond <= 0 {
		return fmt.Errorf("%w: http rate limit must be positive", ErrInvalid)
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		return fmt.Errorf("%w: http.max_body_bytes must be positive", ErrInvalid)
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("%w: http_addr is required", ErrInvalid)
	}
	return nil
}
