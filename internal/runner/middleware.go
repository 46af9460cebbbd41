package runner

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/loadline/barrage/internal/metrics"
)

// loggingRequester wraps a Requester with failure logging.
type loggingRequester struct {
	inner  Requester
	logger *zap.Logger
	level  zapcore.Level
}

// WithLogging wraps a Requester to log failed requests at level. A nil
// logger returns req unchanged.
func WithLogging(req Requester, logger *zap.Logger, level zapcore.Level) Requester {
	if logger == nil || req == nil {
		return req
	}
	return &loggingRequester{inner: req, logger: logger, level: level}
}

func (l *loggingRequester) Do(ctx context.Context) (Response, error) {
	resp, err := l.inner.Do(ctx)
	if err != nil {
		if ce := l.logger.Check(l.level, "request failed"); ce != nil {
			kind, cause := metrics.Classify(err)
			ce.Write(
				zap.Stringer("kind", kind),
				zap.String("cause", cause),
				zap.Error(err),
			)
		}
		return resp, err
	}
	if resp.StatusCode >= 500 {
		if ce := l.logger.Check(zapcore.DebugLevel, "server error response"); ce != nil {
			ce.Write(zap.Int("status", resp.StatusCode))
		}
	}
	return resp, nil
}
