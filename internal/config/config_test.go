package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.Equal(t, DriverFile, cfg.Gateway.Driver)
	require.Equal(t, 1500*time.Millisecond, cfg.Registration.SubmitDelay)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lifedrop.yaml")
	doc := `
http_addr: 0.0.0.0:9000
gateway:
  driver: redis
  redis_url: redis://localhost:6379/0
  timeout: 2s
registration:
  submit_delay: 0s
donors:
  radius_km: 20
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	t.Setenv("LIFEDROP_HTTP_ADDR", "127.0.0.1:7000")
	t.Setenv("LIFEDROP_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:7000", cfg.HTTPAddr)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, DriverRedis, cfg.Gateway.Driver)
	require.Equal(t, 2*time.Second, cfg.Gateway.Timeout)
	require.Equal(t, time.Duration(0), cfg.Registration.SubmitDelay)
	require.Equal(t, 20.0, cfg.Donors.RadiusKm)
	require.Equal(t, 20, cfg.Donors.Limit)
	require.Equal(t, "lifedrop:", cfg.Gateway.RedisPrefix)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"unknown driver":   func(c *Config) { c.Gateway.Driver = "sqlite" },
		"postgres no dsn":  func(c *Config) { c.Gateway.Driver = DriverPostgres },
		"redis no url":     func(c *Config) { c.Gateway.Driver = DriverRedis },
		"negative timeout": func(c *Config) { c.Gateway.Timeout = -time.Second },
		"negative delay":   func(c *Config) { c.Registration.SubmitDelay = -1 },
		"zero burst":       func(c *Config) { c.HTTP.RateBurst = 0 },
		"odd radius":       func(c *Config) { c.Donors.RadiusKm = 15 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestEnvDriverOverride(t *testing.T) {
	t.Setenv("LIFEDROP_GATEWAY", "postgres")
	t.Setenv("LIFEDROP_PG_DSN", "postgres://u:p@localhost/lifedrop")
	t.Setenv("LIFEDROP_GATEWAY_TIMEOUT", "750ms")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, DriverPostgres, cfg.Gateway.Driver)
	require.Equal(t, 750*time.Millisecond, cfg.Gateway.Timeout)

	t.Setenv("LIFEDROP_GATEWAY_TIMEOUT", "soon")
	_, err = Load("")
	require.ErrorIs(t, err, ErrInvalid)
}

func TestLoadExampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "lifedrop.example.yaml"))
	require.NoError(t, err)
	require.Equal(t, DriverFile, cfg.Gateway.Driver)
	require.Equal(t, 5*time.Second, cfg.Gateway.Timeout)
	require.Equal(t, "configs/donors.example.yaml", cfg.Donors.RosterPath)
	require.Equal(t, int64(65536), cfg.HTTP.MaxBodyBytes)
}
