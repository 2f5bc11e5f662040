package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.Equal(t, "asha_db", cfg.MongoDatabase)
	assert.Equal(t, "sessions", cfg.MongoCollection)
	assert.Equal(t, ProviderOllama, cfg.EmbedProvider)
	assert.Equal(t, 384, cfg.EmbedDimension)
	assert.Equal(t, 20, cfg.ContextMaxSessions)
	assert.Equal(t, time.Hour, cfg.ContextTTL)
	assert.Equal(t, 5, cfg.MaxResults)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MONGO_DB", "staging_db")
	t.Setenv("SESSIONSCOUT_MAX_RESULTS", "10")
	t.Setenv("SESSIONSCOUT_CONTEXT_TTL", "30m")
	t.Setenv("SESSIONSCOUT_LOG_LEVEL", "debug")

	cfg := Load()
	assert.Equal(t, "staging_db", cfg.MongoDatabase)
	assert.Equal(t, 10, cfg.MaxResults)
	assert.Equal(t, 30*time.Minute, cfg.ContextTTL)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoadEnvIgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("SESSIONSCOUT_MAX_RESULTS", "lots")
	cfg := Load()
	assert.Equal(t, 5, cfg.MaxResults)
}

func TestLoadFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"mongo_database: file_db\nmax_results: 3\n"), 0644))

	cfg, err := LoadFile(Load(), path)
	require.NoError(t, err)
	assert.Equal(t, "file_db", cfg.MongoDatabase)
	assert.Equal(t, 3, cfg.MaxResults)
	// Fields absent from the file keep their defaults.
	assert.Equal(t, "sessions", cfg.MongoCollection)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(Load(), "/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, parseLogLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLogLevel("ERROR"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("garbled"))
}
