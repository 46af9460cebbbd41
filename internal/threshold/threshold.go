// Package threshold checks run summaries against assertions of the form
// "metric:aggregate operator value", e.g. "http_req_duration:p95 < 500".
package threshold

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/loadline/barrage/internal/report"
)

// Threshold is one parsed assertion.
type Threshold struct {
	Metric    string  // e.g. "http_req_duration"
	Aggregate string  // e.g. "p95", "rate"
	Operator  string  // <, <=, >, >=, ==, !=
	Value     float64 // latency values are milliseconds
	Raw       string
}

// Result is the outcome of checking one threshold.
type Result struct {
	Threshold Threshold `json:"-" yaml:"-"`
	Expr      string    `json:"threshold" yaml:"threshold"`
	Actual    float64   `json:"actual" yaml:"actual"`
	Pass      bool      `json:"pass" yaml:"pass"`
	Message   string    `json:"message" yaml:"message"`
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Pass {
			return false
		}
	}
	return true
}

type reading func(report.Summary) float64

// readings maps metric:aggregate to the summary value it asserts on.
var readings = map[string]reading{
	"http_req_duration:p50":  func(s report.Summary) float64 { return s.Latency.P50Ms },
	"http_req_duration:p90":  func(s report.Summary) float64 { return s.Latency.P90Ms },
	"http_req_duration:p95":  func(s report.Summary) float64 { return s.Latency.P95Ms },
	"http_req_duration:p99":  func(s report.Summary) float64 { return s.Latency.P99Ms },
	"http_req_duration:p999": func(s report.Summary) float64 { return s.Latency.P999Ms },
	"http_req_duration:avg":  func(s report.Summary) float64 { return s.Latency.MeanMs },
	"http_req_duration:mean": func(s report.Summary) float64 { return s.Latency.MeanMs },
	"http_req_duration:min":  func(s report.Summary) float64 { return s.Latency.MinMs },
	"http_req_duration:max":  func(s report.Summary) float64 { return s.Latency.MaxMs },

	"http_req_failed:count": func(s report.Summary) float64 { return float64(s.Failed) },
	"http_req_failed:rate":  report.Summary.FailureRate,

	"http_req_timeouts:count": func(s report.Summary) float64 { return float64(s.Timeouts) },
	"http_req_timeouts:rate": func(s report.Summary) float64 {
		if s.Total == 0 {
			return 0
		}
		return float64(s.Timeouts) / float64(s.Total)
	},

	"http_requests:count": func(s report.Summary) float64 { return float64(s.Total) },
	"http_requests:rate":  func(s report.Summary) float64 { return s.RequestsPerSec },

	"data_received:total": func(s report.Summary) float64 { return float64(s.TotalBytes) },
	"data_received:rate":  func(s report.Summary) float64 { return s.BytesPerSec },
}

const epsilon = 1e-9

var operators = map[string]func(actual, want float64) bool{
	"<":  func(a, w float64) bool { return a < w },
	"<=": func(a, w float64) bool { return a <= w || math.Abs(a-w) < epsilon },
	">":  func(a, w float64) bool { return a > w },
	">=": func(a, w float64) bool { return a >= w || math.Abs(a-w) < epsilon },
	"==": func(a, w float64) bool { return math.Abs(a-w) < epsilon },
	"!=": func(a, w float64) bool { return math.Abs(a-w) >= epsilon },
}

// Supported returns the accepted metric:aggregate pairs, sorted.
func Supported() []string {
	keys := make([]string, 0, len(readings))
	for k := range readings {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func aggregatesOf(metric string) []string {
	var out []string
	for _, k := range Supported() {
		if m, agg, _ := strings.Cut(k, ":"); m == metric {
			out = append(out, agg)
		}
	}
	return out
}

var thresholdPattern = regexp.MustCompile(`^([a-z_]+):([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)

// Parse reads a single threshold expression. The metric, aggregate and
// operator are all validated here so a bad expression fails before the run.
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}
	m := thresholdPattern.FindStringSubmatch(s)
	if m == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected metric:aggregate operator value, e.g. 'http_req_duration:p95 < 500')", s)
	}
	t := Threshold{Metric: m[1], Aggregate: m[2], Operator: m[3], Raw: s}

	value, err := strconv.ParseFloat(m[4], 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %v", m[4], err)
	}
	t.Value = value

	if _, ok := readings[t.key()]; !ok {
		aggs := aggregatesOf(t.Metric)
		if len(aggs) == 0 {
			return Threshold{}, fmt.Errorf("unsupported metric %q", t.Metric)
		}
		return Threshold{}, fmt.Errorf("unsupported aggregate %q for %s (supported: %s)", t.Aggregate, t.Metric, strings.Join(aggs, ", "))
	}
	if _, ok := operators[t.Operator]; !ok {
		return Threshold{}, fmt.Errorf("unsupported operator %q (supported: <, <=, >, >=, ==, !=)", t.Operator)
	}
	return t, nil
}

// ParseMultiple parses every expression and reports all failures at once.
func ParseMultiple(exprs []string) ([]Threshold, error) {
	if len(exprs) == 0 {
		return nil, nil
	}
	out := make([]Threshold, 0, len(exprs))
	var problems []string
	for i, s := range exprs {
		t, err := Parse(s)
		if err != nil {
			problems = append(problems, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		out = append(out, t)
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(problems, "; "))
	}
	return out, nil
}

func (t Threshold) key() string { return t.Metric + ":" + t.Aggregate }

// Check evaluates t against s. A threshold that was not produced by Parse
// and names an unknown metric or operator fails with an error message.
func (t Threshold) Check(s report.Summary) Result {
	res := Result{Threshold: t, Expr: t.Raw}
	read, ok := readings[t.key()]
	if !ok {
		res.Message = fmt.Sprintf("error: unsupported threshold %s", t.key())
		return res
	}
	cmp, ok := operators[t.Operator]
	if !ok {
		res.Message = fmt.Sprintf("error: unsupported operator %q", t.Operator)
		return res
	}

	res.Actual = read(s)
	res.Pass = cmp(res.Actual, t.Value)
	mark := "✓"
	if !res.Pass {
		mark = "✗"
	}
	res.Message = fmt.Sprintf("%s %s: %.2f %s %.2f", mark, t.Raw, res.Actual, t.Operator, t.Value)
	return res
}

// Evaluator checks a fixed set of thresholds.
type Evaluator struct {
	thresholds []Threshold
}

func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{thresholds: thresholds}
}

// Evaluate returns one result per threshold, in order, or nil when there are none.
func (e *Evaluator) Evaluate(s report.Summary) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}
	results := make([]Result, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		results = append(results, t.Check(s))
	}
	return results
}
