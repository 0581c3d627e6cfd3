package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanctuari/rfq-cli/internal/config"
	"github.com/sanctuari/rfq-cli/internal/payment"
)

// useConfig installs a default config backed by a temp SQLite file.
// Tests that call it share the package-level cfg and must not run in
// parallel.
func useConfig(t *testing.T) {
	t.Helper()
	c, err := config.Load()
	require.NoError(t, err)
	c.Store.Driver = "sqlite"
	c.Store.DatabaseURL = filepath.Join(t.TempDir(), "rfq.db")
	c.Auth.Secret = strings.Repeat("s", 32)
	c.Mail.Provider = "log"

	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

func TestInitApp_SQLite(t *testing.T) {
	useConfig(t)

	env, err := initApp(context.Background())
	require.NoError(t, err)
	defer env.Close()

	assert.NotNil(t, env.Server)
	assert.Nil(t, env.Redis)
	assert.NotNil(t, env.Server.Handler())
}

func TestInitApp_Redis(t *testing.T) {
	useConfig(t)
	mr := miniredis.RunT(t)
	cfg.Redis.Addr = mr.Addr()

	env, err := initApp(context.Background())
	require.NoError(t, err)
	defer env.Close()

	assert.NotNil(t, env.Redis)
}

func TestInitApp_InvalidConfig(t *testing.T) {
	useConfig(t)
	cfg.Auth.Secret = "short"

	_, err := initApp(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.secret")
}

func TestInitGateway(t *testing.T) {
	useConfig(t)

	assert.IsType(t, payment.Disabled{}, initGateway())

	cfg.Payment.ServerKey = "SB-Mid-server-test"
	assert.IsType(t, &payment.MidtransGateway{}, initGateway())
}
