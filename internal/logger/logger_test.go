package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linuxheadsets/internal/config"
)

func TestJSONHandler(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(newHandler(&buf, config.LoggerConfig{Level: "info", Format: "json"}))

	log.Info("state published", "state", "Loading")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	assert.Equal(t, "state published", entry["msg"])
	assert.Equal(t, "Loading", entry["state"])
}

func TestTextHandlerFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(newHandler(&buf, config.LoggerConfig{Level: "warn", Format: "text"}))

	log.Info("hidden")
	log.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.input), "parseLevel(%q)", tt.input)
	}
}

func TestNewFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "headsets.log")

	log, closer, err := New(config.LoggerConfig{Level: "info", Format: "text", Output: path})
	require.NoError(t, err)

	log.Info("written to file")
	require.NoError(t, closer())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestNewBadOutput(t *testing.T) {
	_, _, err := New(config.LoggerConfig{Output: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open log output")
}
