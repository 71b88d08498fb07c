package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"servo-service/internal/config"
)

func TestNewLoggerLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		logger, err := NewLogger(&config.LoggingConfig{Level: level, Format: "json", Output: "stderr"})
		require.NoError(t, err, level)
		assert.NotNil(t, logger)
	}

	_, err := NewLogger(&config.LoggingConfig{Level: "chatty", Output: "stdout"})
	assert.Error(t, err)
}

func TestNewLoggerFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "servo.log")
	logger, err := NewLogger(&config.LoggingConfig{
		Level:      "info",
		Format:     "console",
		Output:     path,
		MaxSize:    1,
		MaxBackups: 1,
	})
	require.NoError(t, err)

	logger.Info("hello")
	require.NoError(t, CloseLogger(logger))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}

func TestParseLevel(t *testing.T) {
	level, err := parseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, level)

	level, err = parseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, level)
}
