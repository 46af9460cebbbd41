package runner_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/loadline/barrage/internal/runner"
)

func TestWithLoggingLogsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	inner := runner.RequesterFunc(func(ctx context.Context) (runner.Response, error) {
		return runner.Response{}, context.DeadlineExceeded
	})

	req := runner.WithLogging(inner, zap.New(core), zapcore.WarnLevel)
	_, err := req.Do(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)

	entries := logs.FilterMessage("request failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "timeout", entries[0].ContextMap()["kind"])
	assert.Equal(t, "request timeout", entries[0].ContextMap()["cause"])
}

func TestWithLoggingRespectsLevel(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	inner := runner.RequesterFunc(func(ctx context.Context) (runner.Response, error) {
		return runner.Response{}, errors.New("connection refused")
	})

	req := runner.WithLogging(inner, zap.New(core), zapcore.DebugLevel)
	_, _ = req.Do(context.Background())

	assert.Zero(t, logs.Len())
}

func TestWithLoggingPassesThroughResponses(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	inner := runner.RequesterFunc(func(ctx context.Context) (runner.Response, error) {
		return runner.Response{StatusCode: 503, ContentLength: 12}, nil
	})

	resp, err := runner.WithLogging(inner, zap.New(core), zapcore.WarnLevel).Do(context.Background())
	require.NoError(t, err)
	assert.Equal(t, runner.Response{StatusCode: 503, ContentLength: 12}, resp)
	assert.Equal(t, 1, logs.FilterMessage("server error response").Len())
	assert.Zero(t, logs.FilterMessage("request failed").Len())
}

func TestWithLoggingNilLogger(t *testing.T) {
	inner := runner.RequesterFunc(func(ctx context.Context) (runner.Response, error) {
		return runner.Response{}, nil
	})
	req := runner.WithLogging(inner, nil, zapcore.WarnLevel)
	_, ok := req.(runner.RequesterFunc)
	assert.True(t, ok)
}
