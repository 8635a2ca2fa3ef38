package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("BACKEND_URL: http://backend:9000/\nREQUEST_TIMEOUT: 5\nSTILL_WORKING_DELAY_MS: 250\nMAX_RETRIES: 0\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg := Load(zap.NewNop(), path)

	assert.Equal(t, "http://backend:9000", cfg.BackendURL)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.StillWorkingDelay)
	assert.Equal(t, 1, cfg.MaxRetries)
	assert.Equal(t, int64(20*1024*1024), cfg.LargeDatasetBytes)
	assert.Equal(t, 8080, cfg.WebPort)
	assert.Equal(t, time.Hour, cfg.SessionMaxIdle)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("WEB_PORT", "9191")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load(zap.NewNop(), filepath.Join(t.TempDir(), "missing.yaml"))

	assert.Equal(t, 9191, cfg.WebPort)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, time.Second, cfg.StillWorkingDelay)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "http://localhost:8000", cfg.BackendURL)
	assert.Equal(t, 120*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 8, cfg.DirectorsCutCacheSize)
}
