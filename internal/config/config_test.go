package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://localhost:8080", cfg.KeycloakURL)
	assert.Equal(t, "anybank", cfg.KeycloakRealm)
	assert.Equal(t, "tenant-003", cfg.BusinessTenantID)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 25, cfg.BurstCount)
	assert.True(t, cfg.Headless)
}

func TestDerivedURLs(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "http://localhost:8080/realms/anybank", cfg.RealmURL())
	assert.Equal(t, "http://localhost:8080/realms/anybank/protocol/openid-connect/token", cfg.TokenURL())
	assert.Equal(t, "http://localhost:3000/debug", cfg.DebugUIURL())
	assert.Equal(t, "http://localhost:3000/debug/api", cfg.DebugAPIURL())
	assert.Equal(t, "http://localhost:3000/debug/events/stream", cfg.DebugSSEURL())
	assert.Equal(t, "http://localhost:8000/debug/events/stream", cfg.BackendSSEURL())
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "harness.yaml")
	data := []byte("backend_url: http://bank.internal:9000\nburst_count: 10\nhttp_timeout: 2s\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://bank.internal:9000", cfg.BackendURL)
	assert.Equal(t, 10, cfg.BurstCount)
	assert.Equal(t, 2*time.Second, cfg.HTTPTimeout)
	// Untouched fields keep defaults.
	assert.Equal(t, "jdoe@example.com", cfg.Email)
}

func TestLoad_FileMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "harness.yaml")
	require.NoError(t, os.WriteFile(path, []byte("email: file@example.com\n"), 0o644))

	t.Setenv(EnvPrefix+"EMAIL", "env@example.com")
	t.Setenv(EnvPrefix+"HEADLESS", "false")
	t.Setenv(EnvPrefix+"BURST_COUNT", "7")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env@example.com", cfg.Email)
	assert.False(t, cfg.Headless)
	assert.Equal(t, 7, cfg.BurstCount)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Password = ""
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.BurstCount = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.HTTPTimeout = 0
	assert.Error(t, cfg.Validate())
}
