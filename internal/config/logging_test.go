package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLoggerWithWritersFansOut(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Info("corpus loaded", "sessions", 42)

	assert.Contains(t, stderr.String(), "corpus loaded")
	assert.Contains(t, stderr.String(), "sessions=42")

	// File output is JSON, one object per line.
	var entry map[string]any
	require.NoError(t, json.Unmarshal(file.Bytes(), &entry))
	assert.Equal(t, "corpus loaded", entry["msg"])
	assert.Equal(t, float64(42), entry["sessions"])
}

func TestSetupLoggerWithWritersFiltersLevel(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelWarn)

	logger.Debug("rebuild skipped")
	logger.Info("corpus loaded")

	assert.Empty(t, stderr.String())
	assert.Empty(t, file.String())

	logger.Warn("embedding backend unavailable")
	assert.Contains(t, stderr.String(), "embedding backend unavailable")
	assert.Contains(t, file.String(), "embedding backend unavailable")
}
