package config

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// DefaultDuration applies when neither a duration nor a request total is given.
const DefaultDuration = 5 * time.Second

type Config struct {
	TargetURL   string          `mapstructure:"target" validate:"required"`
	Method      string          `mapstructure:"method" validate:"required,alpha"`
	Headers     []Header        `mapstructure:"headers" validate:"dive"`
	Body        string          `mapstructure:"body"`
	BodyFile    string          `mapstructure:"body_file"`
	Concurrency int             `mapstructure:"concurrency" validate:"gte=1"`
	Rate        int             `mapstructure:"rate" validate:"gte=0"`
	Duration    time.Duration   `mapstructure:"duration" validate:"gte=0"`
	Total       int64           `mapstructure:"total" validate:"gte=0"`
	Timeout     time.Duration   `mapstructure:"timeout" validate:"gt=0"`
	Arrival     ArrivalConfig   `mapstructure:"arrival"`
	TLS         TLSConfig       `mapstructure:"tls"`
	Transport   TransportConfig `mapstructure:"transport"`
	Output      OutputConfig    `mapstructure:"output"`
	Log         LogConfig       `mapstructure:"log"`
	Metrics     MetricsConfig   `mapstructure:"metrics"`
	Tracing     TracingConfig   `mapstructure:"tracing"`
	Thresholds  []string        `mapstructure:"thresholds"`
	ConfigFile  string          `mapstructure:"-"`
}

// Header is one request header. Order and duplicates are preserved.
type Header struct {
	Name  string `mapstructure:"name" validate:"required"`
	Value string `mapstructure:"value"`
}

type ArrivalModel string

const (
	ArrivalModelUniform ArrivalModel = "uniform"
	ArrivalModelPoisson ArrivalModel = "poisson"
)

type ArrivalConfig struct {
	Model ArrivalModel `mapstructure:"model" validate:"omitempty,oneof=uniform poisson"`
	Seed  int64        `mapstructure:"seed"`
}

type TLSConfig struct {
	Insecure bool   `mapstructure:"insecure"`
	CACert   string `mapstructure:"ca_cert"`
}

type TransportConfig struct {
	DisableKeepAlive   bool `mapstructure:"disable_keepalive"`
	DisableCompression bool `mapstructure:"disable_compression"`
}

type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
	OutputYAML OutputFormat = "yaml"
)

type OutputConfig struct {
	Format     OutputFormat `mapstructure:"format" validate:"oneof=text json yaml"`
	NoColor    bool         `mapstructure:"no_color"`
	NoProgress bool         `mapstructure:"no_progress"`
	History    string       `mapstructure:"history"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
	Errors bool   `mapstructure:"errors"`
}

type MetricsConfig struct {
	Listen string `mapstructure:"listen" validate:"omitempty,hostname_port"`
}

type TracingProtocol string

const (
	TracingGRPC TracingProtocol = "grpc"
	TracingHTTP TracingProtocol = "http"
)

type TracingConfig struct {
	Endpoint    string          `mapstructure:"endpoint"`
	ServiceName string          `mapstructure:"service_name"`
	Protocol    TracingProtocol `mapstructure:"protocol" validate:"oneof=grpc http"`
	Insecure    bool            `mapstructure:"insecure"`
	SampleRate  float64         `mapstructure:"sample_rate" validate:"gte=0,lte=1"`
	Propagate   bool            `mapstructure:"propagate"`
}

// Enabled reports whether spans should be exported.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != ""
}

// Defaults returns the configuration used before any file or flag applies.
func Defaults() Config {
	return Config{
		Method:      "GET",
		Concurrency: 50,
		Timeout:     30 * time.Second,
		Arrival:     ArrivalConfig{Model: ArrivalModelUniform},
		Output:      OutputConfig{Format: OutputText},
		Log:         LogConfig{Level: "warn", Format: "console"},
		Tracing:     TracingConfig{Protocol: TracingGRPC, SampleRate: 1},
	}
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their config-file key rather than the Go field name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (c Config) Validate() error {
	var issues []string

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("validate config: %w", err)
		}
		for _, fe := range fieldErrs {
			issues = append(issues, describeFieldError(fe))
		}
	}

	if strings.TrimSpace(c.TargetURL) != "" {
		if issue := validateTarget(c.TargetURL); issue != "" {
			issues = append(issues, issue)
		}
	}
	if c.Duration > 0 && c.Total > 0 {
		issues = append(issues, "duration and total are mutually exclusive")
	}
	if c.Body != "" && strings.TrimSpace(c.BodyFile) != "" {
		issues = append(issues, "body and body_file are mutually exclusive")
	}
	if c.TLS.Insecure && strings.TrimSpace(c.TLS.CACert) != "" {
		issues = append(issues, "tls.insecure and tls.ca_cert are mutually exclusive")
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func validateTarget(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Sprintf("target %q is not a valid URL: %v", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Sprintf("target %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Sprintf("target %q has no host", raw)
	}
	return ""
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	// Drop the root struct name ("Config.").
	if idx := strings.Index(field, "."); idx != -1 {
		field = field[idx+1:]
	}
	switch fe.Tag() {
	case "required":
		if field == "target" {
			return "target is required (use --help for usage information)"
		}
		return fmt.Sprintf("%s is required", field)
	case "gte":
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be > %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be <= %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fmt.Sprint(fe.Value()))
	case "alpha":
		return fmt.Sprintf("%s %q is not a valid HTTP method", field, fmt.Sprint(fe.Value()))
	case "hostname_port":
		return fmt.Sprintf("%s %q must be host:port", field, fmt.Sprint(fe.Value()))
	default:
		return fmt.Sprintf("%s failed %q validation", field, fe.Tag())
	}
}

// StopCondition returns the effective stop condition: a request total when
// one is set, otherwise a duration (DefaultDuration when neither is set).
func (c Config) StopCondition() (time.Duration, int64) {
	if c.Total > 0 {
		return 0, c.Total
	}
	if c.Duration > 0 {
		return c.Duration, 0
	}
	return DefaultDuration, 0
}
