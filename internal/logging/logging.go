// Package logging builds the zap logger used for diagnostics. Reports go to
// stdout; everything logged here goes to stderr so the two never interleave.
package logging

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/loadline/barrage/internal/config"
)

// New returns a logger for cfg writing to stderr.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	return NewWithSink(cfg, zapcore.Lock(os.Stderr))
}

// NewWithSink is New with an explicit destination.
func NewWithSink(cfg config.LogConfig, sink zapcore.WriteSyncer) (*zap.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var enc zapcore.Encoder
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "json":
		ec := zap.NewProductionEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(ec)
	case "", "console":
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeTime = zapcore.TimeEncoderOfLayout(time.TimeOnly)
		enc = zapcore.NewConsoleEncoder(ec)
	default:
		return nil, fmt.Errorf("unsupported log format %q", cfg.Format)
	}

	core := zapcore.NewCore(enc, sink, level)
	return zap.New(core, zap.ErrorOutput(sink)), nil
}

// ParseLevel maps a config level name onto a zap level. Empty means warn.
func ParseLevel(name string) (zapcore.Level, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return zapcore.WarnLevel, nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return zapcore.WarnLevel, fmt.Errorf("invalid log level %q", name)
	}
	return level, nil
}

// FailureLevel is the level individual request failures are logged at. With
// errors enabled they show at the default level, otherwise only with debug.
func FailureLevel(cfg config.LogConfig) zapcore.Level {
	if cfg.Errors {
		return zapcore.WarnLevel
	}
	return zapcore.DebugLevel
}
