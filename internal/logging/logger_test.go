package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"debug", zapcore.DebugLevel},
		{"WARN", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, err := New(Options{Level: tt.level})
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.want))
			if tt.want > zapcore.DebugLevel {
				assert.False(t, logger.Core().Enabled(tt.want-1))
			}
		})
	}
}

func TestNew_InvalidOptions(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	assert.Error(t, err)

	_, err = New(Options{Format: "xml"})
	assert.Error(t, err)
}

func TestNew_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stampkit.log")

	logger, err := New(Options{Level: "info", Format: "json", File: path})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("normalized", zap.String("file", "neynar.png"), zap.Int("threshold", 250))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "normalized", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "neynar.png", entry["file"])
	assert.EqualValues(t, 250, entry["threshold"])
}

func TestNew_ConsoleFileIsPlain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "stampkit.log")
	logger, err := New(Options{Level: "warn", Format: "console", File: path})
	require.NoError(t, err)

	logger.Warn("file not found, skipping", zap.String("file", "based.png"))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	assert.NotContains(t, line, "\x1b[")
	assert.Contains(t, line, "\tWARN\t")
	assert.Contains(t, line, "file not found, skipping")
}

func TestNewEncoder_ColorOnlyForTerminal(t *testing.T) {
	entry := zapcore.Entry{Level: zapcore.ErrorLevel, Message: "failed"}

	for _, tt := range []struct {
		colored bool
		want    bool
	}{{true, true}, {false, false}} {
		enc, err := newEncoder("console", tt.colored)
		require.NoError(t, err)
		buf, err := enc.EncodeEntry(entry, nil)
		require.NoError(t, err)
		assert.Equal(t, tt.want, strings.Contains(buf.String(), "\x1b["), "colored=%v", tt.colored)
	}
}
