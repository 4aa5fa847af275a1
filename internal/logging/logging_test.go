package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNewWithWriter(t *testing.T) {
	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewWithWriter(&buf, "info", "json")
		logger.Debug("hidden")
		logger.Info("dictionary refreshed", "terms", 3)

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "dictionary refreshed", entry["msg"])
		assert.Equal(t, float64(3), entry["terms"])
	})

	t.Run("Text", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewWithWriter(&buf, "debug", "text")
		logger.Debug("scan finished", "found", 2)
		assert.Contains(t, buf.String(), "msg=\"scan finished\"")
		assert.Contains(t, buf.String(), "found=2")
	})
}
