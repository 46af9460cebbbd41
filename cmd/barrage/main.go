package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/loadline/barrage/internal/bench"
	"github.com/loadline/barrage/internal/config"
	"github.com/loadline/barrage/internal/logging"
	"github.com/loadline/barrage/internal/output"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// run executes the CLI and returns the process exit code: 0 for any
// completed run, 1 when the run could not start or its report could not be
// written.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.NewLoader().Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	// Logs and the progress line share stderr.
	errOut := zapcore.Lock(zapcore.AddSync(stderr))
	logger, err := logging.NewWithSink(cfg.Log, errOut)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	deps := bench.Deps{Logger: logger}
	if !cfg.Output.NoProgress && cfg.Output.Format == config.OutputText {
		deps.Progress = errOut
	}

	res, err := bench.Run(ctx, cfg, deps)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	useColor := output.ColorEnabled(stdout, cfg.Output.NoColor)
	if err := output.Render(stdout, cfg.Output.Format, res.Report, useColor); err != nil {
		logger.Error("writing report failed", zap.Error(err))
		return 1
	}
	return 0
}
