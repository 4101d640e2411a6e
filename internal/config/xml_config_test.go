package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"PORT", "DATA_DIR", "UPSTREAM_URL", "DASHBOARD_MODE", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_CreatesDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.xml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err, "default config is written on first run")

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "production", cfg.Dashboard.Mode)
	assert.Equal(t, filepath.Join(dir, "data", "objects_log"), cfg.Storage.ObjectsLogDirectory)
	assert.Equal(t, filepath.Join(dir, "cameras.yaml"), cfg.Storage.CamerasFile)
	assert.Equal(t, 10*time.Second, cfg.UpstreamTimeout())
	assert.False(t, cfg.UsesUpstream())
}

func TestLoadConfig_ReadsFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.xml")

	custom := DefaultConfig()
	custom.Server.Port = 9100
	custom.Upstream.BaseURL = "http://processor:8000"
	custom.Upstream.TimeoutSeconds = 3
	custom.Dashboard.Mode = "development"
	custom.Storage.HistoryDatabase = "/var/lib/dashboard/history.duckdb"
	require.NoError(t, custom.Save(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "http://processor:8000", cfg.Upstream.BaseURL)
	assert.True(t, cfg.UsesUpstream())
	assert.Equal(t, 3*time.Second, cfg.UpstreamTimeout())
	assert.Equal(t, "development", cfg.Dashboard.Mode)
	assert.Equal(t, "/var/lib/dashboard/history.duckdb", cfg.Storage.HistoryDatabase)
	assert.Equal(t, "0.0.0.0:9100", cfg.GetServerAddr())
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	data := filepath.Join(dir, "elsewhere")
	t.Setenv("PORT", "9200")
	t.Setenv("DATA_DIR", data)
	t.Setenv("UPSTREAM_URL", "http://processor:8000/")
	t.Setenv("DASHBOARD_MODE", "dev")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig(filepath.Join(dir, "config.xml"))
	require.NoError(t, err)

	assert.Equal(t, 9200, cfg.Server.Port)
	assert.Equal(t, data, cfg.Storage.DataDirectory)
	assert.Equal(t, filepath.Join(data, "objects_log"), cfg.Storage.ObjectsLogDirectory)
	assert.Equal(t, filepath.Join(data, "history.duckdb"), cfg.Storage.HistoryDatabase)
	assert.Equal(t, "http://processor:8000", cfg.Upstream.BaseURL)
	assert.Equal(t, "dev", cfg.Dashboard.Mode)
	assert.Equal(t, "debug", cfg.Advanced.LogLevel)
}

func TestLoadConfig_RejectsBadFiles(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	t.Run("malformed xml", func(t *testing.T) {
		path := filepath.Join(dir, "broken.xml")
		require.NoError(t, os.WriteFile(path, []byte("<SmartDistancingDashboard><Server>"), 0644))
		_, err := LoadConfig(path)
		assert.Error(t, err)
	})

	t.Run("bad timezone", func(t *testing.T) {
		path := filepath.Join(dir, "tz.xml")
		cfg := DefaultConfig()
		cfg.Dashboard.Timezone = "Mars/Olympus_Mons"
		require.NoError(t, cfg.Save(path))
		_, err := LoadConfig(path)
		assert.ErrorContains(t, err, "invalid timezone")
	})

	t.Run("zero timeout", func(t *testing.T) {
		path := filepath.Join(dir, "timeout.xml")
		cfg := DefaultConfig()
		cfg.Upstream.TimeoutSeconds = 0
		require.NoError(t, cfg.Save(path))
		_, err := LoadConfig(path)
		assert.ErrorContains(t, err, "timeout")
	})

	t.Run("zero cleanup interval", func(t *testing.T) {
		path := filepath.Join(dir, "cleanup.xml")
		cfg := DefaultConfig()
		cfg.Dashboard.CleanupIntervalMinutes = 0
		require.NoError(t, cfg.Save(path))
		_, err := LoadConfig(path)
		assert.ErrorContains(t, err, "cleanup")
	})
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))

	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("DASHBOARD_TEST_VALUE=from-file\n"), 0644))
	t.Setenv("DASHBOARD_TEST_VALUE", "")
	os.Unsetenv("DASHBOARD_TEST_VALUE")

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("DASHBOARD_TEST_VALUE"))
}

func TestLocation(t *testing.T) {
	cfg := DefaultConfig()
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	cfg.Dashboard.Timezone = "UTC"
	loc, err = cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
}
