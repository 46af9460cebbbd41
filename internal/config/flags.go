package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "barrage [flags] <url>",
		Short:         "HTTP load generator",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	def := Defaults()

	// Request
	flags.StringP("method", "m", def.Method, "HTTP method to use")
	flags.StringArrayP("header", "H", nil, "Request header \"Name: value\" (repeatable; @file reads one per line)")
	flags.StringP("data", "d", "", "Request body (@file reads the body from file)")
	flags.String("data-file", "", "Path to file containing the request body")

	// Load control
	flags.IntP("concurrency", "c", def.Concurrency, "Number of concurrent workers")
	flags.VarP(newSecondsValue(0), "duration", "z", fmt.Sprintf("How long to run, in seconds or as a duration (e.g. 5, 30s, 1m); default %s when no total is set", DefaultDuration))
	flags.Int64P("total", "n", 0, "Total number of requests to send (exclusive with --duration)")
	flags.Duration("timeout", def.Timeout, "Per-request timeout")
	flags.IntP("rate", "r", 0, "Requests per second limit across all workers (0 means unlimited)")
	flags.String("arrival-model", string(def.Arrival.Model), "Arrival model to use when pacing requests (uniform or poisson)")
	flags.Int64("seed", 0, "Random seed for the poisson arrival model (0 means time-based)")

	// Transport
	flags.BoolP("insecure", "k", false, "Skip TLS certificate verification")
	flags.String("cacert", "", "PEM file with additional CA certificates")
	flags.Bool("disable-keepalive", false, "Open a new connection for every request")
	flags.Bool("disable-compression", false, "Do not request compressed responses")

	// Output
	flags.StringP("output", "o", string(def.Output.Format), "Report format: text, json or yaml")
	flags.Bool("no-color", false, "Disable colored text output")
	flags.Bool("no-progress", false, "Disable the live progress line")
	flags.String("history", "", "Append the run summary as a JSON line to this file")
	flags.StringArray("threshold", nil, "Threshold assertion (repeatable, e.g. 'http_req_duration:p95 < 500')")
	flags.String("config", "", "Path to configuration file (JSON, YAML or TOML)")

	// Logging
	flags.String("log-level", def.Log.Level, "Log level: debug, info, warn or error")
	flags.String("log-format", def.Log.Format, "Log format: console or json")
	flags.Bool("log-errors", false, "Log each failed request to stderr")

	// Telemetry
	flags.String("metrics-listen", "", "Expose Prometheus metrics on this address during the run (e.g. :9090)")
	flags.String("otel-endpoint", "", "OTLP endpoint for request spans (empty disables tracing)")
	flags.String("otel-protocol", string(def.Tracing.Protocol), "OTLP protocol: grpc or http")
	flags.Bool("otel-insecure", false, "Use a plaintext connection to the OTLP endpoint")
	flags.Float64("otel-sample-rate", def.Tracing.SampleRate, "Fraction of requests to trace (0..1)")
	flags.Bool("otel-propagate", false, "Inject W3C trace context into outgoing requests")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	var err error
	str := func(name string, dst *string) {
		if err == nil && fs.Changed(name) {
			*dst, err = fs.GetString(name)
		}
	}
	boolean := func(name string, dst *bool) {
		if err == nil && fs.Changed(name) {
			*dst, err = fs.GetBool(name)
		}
	}
	integer := func(name string, dst *int) {
		if err == nil && fs.Changed(name) {
			*dst, err = fs.GetInt(name)
		}
	}
	duration := func(name string, dst *time.Duration) {
		if err == nil && fs.Changed(name) {
			*dst, err = fs.GetDuration(name)
		}
	}

	str("method", &cfg.Method)
	integer("concurrency", &cfg.Concurrency)
	integer("rate", &cfg.Rate)
	duration("timeout", &cfg.Timeout)
	boolean("insecure", &cfg.TLS.Insecure)
	str("cacert", &cfg.TLS.CACert)
	boolean("disable-keepalive", &cfg.Transport.DisableKeepAlive)
	boolean("disable-compression", &cfg.Transport.DisableCompression)
	boolean("no-color", &cfg.Output.NoColor)
	boolean("no-progress", &cfg.Output.NoProgress)
	str("history", &cfg.Output.History)
	str("log-level", &cfg.Log.Level)
	str("log-format", &cfg.Log.Format)
	boolean("log-errors", &cfg.Log.Errors)
	str("metrics-listen", &cfg.Metrics.Listen)
	str("otel-endpoint", &cfg.Tracing.Endpoint)
	boolean("otel-insecure", &cfg.Tracing.Insecure)
	boolean("otel-propagate", &cfg.Tracing.Propagate)
	if err != nil {
		return err
	}

	// A stop condition given on the command line replaces the file's.
	durationChanged, totalChanged := fs.Changed("duration"), fs.Changed("total")
	if durationChanged {
		if cfg.Duration, err = fs.GetDuration("duration"); err != nil {
			return err
		}
		if !totalChanged {
			cfg.Total = 0
		}
	}
	if totalChanged {
		if cfg.Total, err = fs.GetInt64("total"); err != nil {
			return err
		}
		if !durationChanged {
			cfg.Duration = 0
		}
	}

	if fs.Changed("data") {
		val, err := fs.GetString("data")
		if err != nil {
			return err
		}
		if path, ok := strings.CutPrefix(val, "@"); ok {
			cfg.BodyFile = path
			cfg.Body = ""
		} else {
			cfg.Body = val
			cfg.BodyFile = ""
		}
	}
	if fs.Changed("data-file") {
		val, err := fs.GetString("data-file")
		if err != nil {
			return err
		}
		cfg.BodyFile = val
		if !fs.Changed("data") {
			cfg.Body = ""
		}
	}
	if fs.Changed("header") {
		vals, err := fs.GetStringArray("header")
		if err != nil {
			return err
		}
		headers, err := ExpandHeaders(vals)
		if err != nil {
			return err
		}
		cfg.Headers = append(cfg.Headers, headers...)
	}
	if fs.Changed("arrival-model") {
		val, err := fs.GetString("arrival-model")
		if err != nil {
			return err
		}
		cfg.Arrival.Model = ArrivalModel(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("seed") {
		if cfg.Arrival.Seed, err = fs.GetInt64("seed"); err != nil {
			return err
		}
	}
	if fs.Changed("output") {
		val, err := fs.GetString("output")
		if err != nil {
			return err
		}
		cfg.Output.Format = OutputFormat(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("threshold") {
		vals, err := fs.GetStringArray("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = append(cfg.Thresholds, vals...)
	}
	if fs.Changed("otel-protocol") {
		val, err := fs.GetString("otel-protocol")
		if err != nil {
			return err
		}
		cfg.Tracing.Protocol = TracingProtocol(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("otel-sample-rate") {
		if cfg.Tracing.SampleRate, err = fs.GetFloat64("otel-sample-rate"); err != nil {
			return err
		}
	}
	return nil
}
