package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "rfq.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "questions", cfg.Questions.Dir)
	assert.Equal(t, int64(1599), cfg.Payment.Fee)
	assert.False(t, cfg.Payment.Production)
	assert.Equal(t, "log", cfg.Mail.Provider)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, 15, cfg.Auth.LinkTTLMins)
	assert.Equal(t, 168, cfg.Auth.SessionTTLHours)
	assert.Equal(t, 5, cfg.Distribution.Concurrency)
	assert.InDelta(t, 10, cfg.Distribution.RatePerSecond, 0.001)
	assert.InDelta(t, 3, cfg.Notion.RatePerSecond, 0.001)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/rfq
log:
  level: debug
  format: console
server:
  port: 9090
payment:
  fee: 2499
  production: true
redis:
  addr: localhost:6379
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/rfq", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, int64(2499), cfg.Payment.Fee)
	assert.True(t, cfg.Payment.Production)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	// Defaults still apply for unset values
	assert.Equal(t, 5, cfg.Distribution.Concurrency)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("RFQ_STORE_DRIVER", "postgres")
	t.Setenv("RFQ_LOG_LEVEL", "warn")
	t.Setenv("RFQ_AUTH_SECRET", "from-env")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "from-env", cfg.Auth.Secret)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "invalid", Format: "json"}))
}

func validServe() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "rfq.db"
	cfg.Server.Port = 8080
	cfg.Auth.Secret = strings.Repeat("s", 32)
	cfg.Distribution.Concurrency = 5
	cfg.Payment.Fee = 1599
	cfg.Mail.Provider = "log"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"serve ok", "serve", func(*Config) {}, ""},
		{"migrate ignores server", "migrate", func(c *Config) { c.Server.Port = 0; c.Auth.Secret = "" }, ""},
		{"bad driver", "migrate", func(c *Config) { c.Store.Driver = "mysql" }, "store.driver"},
		{"no dsn", "import", func(c *Config) { c.Store.DatabaseURL = "" }, "store.database_url is required"},
		{"port", "serve", func(c *Config) { c.Server.Port = 0 }, "server.port must be > 0"},
		{"short secret", "serve", func(c *Config) { c.Auth.Secret = "short" }, "auth.secret"},
		{"concurrency", "serve", func(c *Config) { c.Distribution.Concurrency = 51 }, "distribution.concurrency must be between 1 and 50"},
		{"smtp host", "serve", func(c *Config) { c.Mail.Provider = "smtp" }, "smtp.host is required"},
		{"mail provider", "serve", func(c *Config) { c.Mail.Provider = "pigeon" }, "mail.provider"},
		{"fee", "serve", func(c *Config) { c.Payment.Fee = 0 }, "payment.fee"},
		{"unknown mode", "fly", func(*Config) {}, "unknown mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validServe()
			tt.mutate(cfg)
			err := cfg.Validate(tt.mode)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
