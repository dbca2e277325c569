package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchpad-hq/lpcore/config"
)

func TestLoad_DefaultsWithNoConfigFile(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultCredentialsPath, cfg.CredentialsPath)
	assert.Equal(t, 10, cfg.Pool.Max)
	assert.Equal(t, 3, cfg.Remote.Retries)
	assert.Equal(t, 30*time.Second, cfg.Remote.CacheTTL)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lpcore.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"pool": {"max": 42}, "remote": {"base_url": "https://api.example.com"}}`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Pool.Max)
	assert.Equal(t, "https://api.example.com", cfg.Remote.BaseURL)
	assert.Equal(t, 3, cfg.Remote.Retries)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lpcore.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"pool": {"max": 42}}`), 0o644))

	t.Setenv("LPCORE_POOL_MAX", "7")
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Pool.Max)
}

func TestLoad_MissingFileReturnsError(t *testing.T) {
	_, err := config.Load("/no/such/lpcore.json")
	assert.Error(t, err)
}
