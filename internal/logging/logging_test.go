package logging_test

import (
	"bytes"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/loadline/barrage/internal/config"
	"github.com/loadline/barrage/internal/logging"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"":      zapcore.WarnLevel,
		"debug": zapcore.DebugLevel,
		"INFO":  zapcore.InfoLevel,
		" warn": zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
	}
	for in, want := range cases {
		got, err := logging.ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := logging.ParseLevel("loud")
	assert.Error(t, err)
}

func TestJSONLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewWithSink(config.LogConfig{Level: "info", Format: "json"}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("run started", zap.Int("concurrency", 8))
	require.NoError(t, logger.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, jsoniter.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "run started", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.EqualValues(t, 8, entry["concurrency"])
}

func TestConsoleLoggerDefaultsToWarn(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewWithSink(config.LogConfig{}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	logger.Info("quiet")
	logger.Warn("loud")

	out := buf.String()
	assert.NotContains(t, out, "quiet")
	assert.Contains(t, out, "loud")
	assert.Contains(t, out, "WARN")
}

func TestRejectsUnknownFormat(t *testing.T) {
	_, err := logging.NewWithSink(config.LogConfig{Format: "xml"}, zapcore.AddSync(&bytes.Buffer{}))
	assert.Error(t, err)
}

func TestFailureLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, logging.FailureLevel(config.LogConfig{}))
	assert.Equal(t, zapcore.WarnLevel, logging.FailureLevel(config.LogConfig{Errors: true}))
}

func TestNewWritesToStderr(t *testing.T) {
	logger, err := logging.New(config.LogConfig{Level: "error", Format: "json"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.ErrorLevel))
	assert.False(t, logger.Core().Enabled(zapcore.WarnLevel))
}
