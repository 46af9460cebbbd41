// Package bench wires a configuration into one complete load-test run:
// transport, workers, statistics, optional exporters and the final summary.
package bench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/loadline/barrage/internal/config"
	"github.com/loadline/barrage/internal/httpclient"
	"github.com/loadline/barrage/internal/logging"
	"github.com/loadline/barrage/internal/metrics"
	"github.com/loadline/barrage/internal/output"
	"github.com/loadline/barrage/internal/promexport"
	"github.com/loadline/barrage/internal/report"
	"github.com/loadline/barrage/internal/runner"
	"github.com/loadline/barrage/internal/threshold"
	"github.com/loadline/barrage/internal/tracing"
)

const (
	progressInterval = time.Second
	shutdownTimeout  = 5 * time.Second
)

// Deps are the collaborators a run needs besides its configuration.
type Deps struct {
	Logger *zap.Logger
	// Progress receives the live progress line; nil disables it.
	Progress io.Writer
	// Requester replaces the HTTP requester built from the configuration.
	Requester runner.Requester
}

// Result is the outcome of a completed run.
type Result struct {
	Report output.Report
	Run    runner.Result
}

// Run executes one load test and blocks until every worker has returned and
// every outcome has been aggregated. Errors are configuration-time failures
// only; a run in which every request failed still returns a Result.
func Run(ctx context.Context, cfg *config.Config, deps Deps) (*Result, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return nil, err
	}

	tracer, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}
	defer shutdown(logger, "tracing", tracer.Shutdown)

	requester := deps.Requester
	if requester == nil {
		requester, err = newHTTPRequester(cfg, tracer, logger)
		if err != nil {
			return nil, err
		}
	}
	requester = runner.WithLogging(requester, logger, logging.FailureLevel(cfg.Log))

	runID := report.NewRunID()
	collector := metrics.NewCollector(metrics.Options{})
	defer collector.Close()

	var recorder metrics.Recorder = collector
	if addr := strings.TrimSpace(cfg.Metrics.Listen); addr != "" {
		exporter := promexport.New(runID)
		srv, err := exporter.Serve(addr, logger)
		if err != nil {
			return nil, fmt.Errorf("metrics listener: %w", err)
		}
		defer shutdown(logger, "metrics server", srv.Shutdown)
		recorder = metrics.Tee(collector, exporter)
	}

	duration, total := cfg.StopCondition()
	r := runner.New(runner.Options{
		Concurrency:   cfg.Concurrency,
		TotalRequests: total,
		Duration:      duration,
		Timeout:       cfg.Timeout,
		RatePerSecond: cfg.Rate,
		ArrivalModel:  toRunnerArrivalModel(cfg.Arrival.Model),
		RandomSeed:    cfg.Arrival.Seed,
		Requester:     requester,
		Recorder:      recorder,
	})

	logger.Info("run starting",
		zap.String("run_id", runID),
		zap.String("target", cfg.TargetURL),
		zap.Int("concurrency", cfg.Concurrency),
		zap.Duration("duration", duration),
		zap.Int64("total", total),
	)

	var progress *output.ProgressReporter
	if deps.Progress != nil {
		progress = output.NewProgressReporter(collector, progressInterval, deps.Progress)
		progress.Start()
	}

	started := time.Now()
	result := r.Run(ctx)
	if progress != nil {
		progress.Stop()
	}
	snap := collector.Close()

	summary := report.Build(snap, result.Duration, report.Meta{
		RunID:       runID,
		URL:         cfg.TargetURL,
		Method:      cfg.Method,
		Concurrency: cfg.Concurrency,
		StopReason:  StopReason(result.Reason),
		StartedAt:   started,
	})
	rep := output.Report{
		Summary:    summary,
		Thresholds: threshold.NewEvaluator(thresholds).Evaluate(summary),
	}

	logger.Info("run finished",
		zap.String("run_id", runID),
		zap.Int64("issued", result.Issued),
		zap.Int64("total", summary.Total),
		zap.Int64("failed", summary.Failed),
		zap.Duration("elapsed", result.Duration),
		zap.String("reason", summary.StopReason),
	)
	if snap.Dropped > 0 {
		logger.Warn("outcomes recorded after close were dropped", zap.Int64("dropped", snap.Dropped))
	}

	if path := strings.TrimSpace(cfg.Output.History); path != "" {
		if err := output.AppendHistory(context.WithoutCancel(ctx), path, rep); err != nil {
			logger.Warn("history not written", zap.String("path", path), zap.Error(err))
		}
	}

	return &Result{Report: rep, Run: result}, nil
}

func newHTTPRequester(cfg *config.Config, tracer *tracing.Provider, logger *zap.Logger) (runner.Requester, error) {
	builder, err := httpclient.NewRequestBuilder(cfg)
	if err != nil {
		return nil, err
	}
	if p := builder.Payload(); p.Len() > 0 {
		logger.Debug("request body loaded", zap.String("origin", p.Origin()), zap.Int64("bytes", p.Len()))
	}
	client, err := httpclient.NewClient(httpclient.ClientOptionsFromConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("http client: %w", err)
	}
	return httpclient.NewRequester(client, builder, tracer), nil
}

// StopReason renders why a run stopped.
func StopReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, runner.ErrDurationElapsed):
		return "duration elapsed"
	case errors.Is(err, runner.ErrBudgetExhausted):
		return "request count reached"
	case errors.Is(err, context.Canceled):
		return "interrupted"
	case errors.Is(err, context.DeadlineExceeded):
		return "deadline exceeded"
	default:
		return err.Error()
	}
}

func toRunnerArrivalModel(model config.ArrivalModel) runner.ArrivalModel {
	if strings.EqualFold(string(model), string(config.ArrivalModelPoisson)) {
		return runner.ArrivalModelPoisson
	}
	return runner.ArrivalModelUniform
}

func shutdown(logger *zap.Logger, what string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		logger.Debug("shutdown failed", zap.String("component", what), zap.Error(err))
	}
}
