package threshold

import (
	"strings"
	"testing"
	"time"

	"github.com/loadline/barrage/internal/report"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      Threshold
		wantError bool
	}{
		{
			name:  "valid p95 latency threshold",
			input: "http_req_duration:p95 < 500",
			want: Threshold{
				Metric:    "http_req_duration",
				Aggregate: "p95",
				Operator:  "<",
				Value:     500,
				Raw:       "http_req_duration:p95 < 500",
			},
			wantError: false,
		},
		{
			name:  "valid failure rate threshold",
			input: "http_req_failed:rate < 0.01",
			want: Threshold{
				Metric:    "http_req_failed",
				Aggregate: "rate",
				Operator:  "<",
				Value:     0.01,
				Raw:       "http_req_failed:rate < 0.01",
			},
			wantError: false,
		},
		{
			name:  "valid p99 latency with <=",
			input: "http_req_duration:p99 <= 1000",
			want: Threshold{
				Metric:    "http_req_duration",
				Aggregate: "p99",
				Operator:  "<=",
				Value:     1000,
				Raw:       "http_req_duration:p99 <= 1000",
			},
			wantError: false,
		},
		{
			name:  "valid requests rate threshold with >",
			input: "http_requests:rate > 100",
			want: Threshold{
				Metric:    "http_requests",
				Aggregate: "rate",
				Operator:  ">",
				Value:     100,
				Raw:       "http_requests:rate > 100",
			},
			wantError: false,
		},
		{
			name:  "valid avg latency",
			input: "http_req_duration:avg < 200",
			want: Threshold{
				Metric:    "http_req_duration",
				Aggregate: "avg",
				Operator:  "<",
				Value:     200,
				Raw:       "http_req_duration:avg < 200",
			},
			wantError: false,
		},
		{
			name:      "empty string",
			input:     "",
			wantError: true,
		},
		{
			name:      "invalid format - missing operator",
			input:     "http_req_duration:p95 500",
			wantError: true,
		},
		{
			name:      "invalid metric",
			input:     "invalid_metric:p95 < 500",
			wantError: true,
		},
		{
			name:      "invalid aggregate",
			input:     "http_req_duration:p85 < 500",
			wantError: true,
		},
		{
			name:      "aggregate not offered by metric",
			input:     "http_req_failed:p95 < 5",
			wantError: true,
		},
		{
			name:  "timeout rate",
			input: "http_req_timeouts:rate<0.1",
			want: Threshold{
				Metric:    "http_req_timeouts",
				Aggregate: "rate",
				Operator:  "<",
				Value:     0.1,
				Raw:       "http_req_timeouts:rate<0.1",
			},
		},
		{
			name:      "invalid operator",
			input:     "http_req_duration:p95 << 500",
			wantError: true,
		},
		{
			name:      "invalid value - not a number",
			input:     "http_req_duration:p95 < abc",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if (err != nil) != tt.wantError {
				t.Errorf("Parse() error = %v, wantError %v", err, tt.wantError)
				return
			}
			if !tt.wantError {
				if got.Metric != tt.want.Metric {
					t.Errorf("Parse() Metric = %v, want %v", got.Metric, tt.want.Metric)
				}
				if got.Aggregate != tt.want.Aggregate {
					t.Errorf("Parse() Aggregate = %v, want %v", got.Aggregate, tt.want.Aggregate)
				}
				if got.Operator != tt.want.Operator {
					t.Errorf("Parse() Operator = %v, want %v", got.Operator, tt.want.Operator)
				}
				if got.Value != tt.want.Value {
					t.Errorf("Parse() Value = %v, want %v", got.Value, tt.want.Value)
				}
				if got.Raw != tt.want.Raw {
					t.Errorf("Parse() Raw = %v, want %v", got.Raw, tt.want.Raw)
				}
			}
		})
	}
}

func TestParseMultiple(t *testing.T) {
	tests := []struct {
		name      string
		input     []string
		wantCount int
		wantError bool
	}{
		{
			name: "multiple valid thresholds",
			input: []string{
				"http_req_duration:p95 < 500",
				"http_req_failed:rate < 0.01",
				"http_requests:rate > 100",
			},
			wantCount: 3,
			wantError: false,
		},
		{
			name:      "empty slice",
			input:     []string{},
			wantCount: 0,
			wantError: false,
		},
		{
			name: "one valid, one invalid",
			input: []string{
				"http_req_duration:p95 < 500",
				"invalid threshold",
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMultiple(tt.input)
			if (err != nil) != tt.wantError {
				t.Errorf("ParseMultiple() error = %v, wantError %v", err, tt.wantError)
				return
			}
			if !tt.wantError && len(got) != tt.wantCount {
				t.Errorf("ParseMultiple() returned %d thresholds, want %d", len(got), tt.wantCount)
			}
		})
	}
}

func TestEvaluator(t *testing.T) {
	// Create sample stats
	stats := report.Summary{
		Total:          1000,
		Successful:     980,
		Failed:         20,
		Elapsed:        10 * time.Second,
		RequestsPerSec: 100,
		Latency: report.Latency{
			MinMs:  10,
			MaxMs:  500,
			MeanMs: 100,
			P50Ms:  80,
			P90Ms:  200,
			P95Ms:  300,
			P99Ms:  400,
			P999Ms: 480,
		},
	}

	tests := []struct {
		name       string
		thresholds []string
		wantPass   []bool
	}{
		{
			name: "all thresholds pass",
			thresholds: []string{
				"http_req_duration:p99 < 500",
				"http_req_failed:rate < 0.05",
				"http_requests:rate > 50",
			},
			wantPass: []bool{true, true, true},
		},
		{
			name: "some thresholds fail",
			thresholds: []string{
				"http_req_duration:p99 < 300",
				"http_req_failed:rate < 0.01",
				"http_requests:rate > 50",
			},
			wantPass: []bool{false, false, true},
		},
		{
			name: "latency percentiles",
			thresholds: []string{
				"http_req_duration:p50 < 100",
				"http_req_duration:p90 < 250",
				"http_req_duration:p99 < 450",
				"http_req_duration:p999 < 450",
			},
			wantPass: []bool{true, true, true, false},
		},
		{
			name: "avg and max latency",
			thresholds: []string{
				"http_req_duration:avg < 150",
				"http_req_duration:max < 600",
				"http_req_duration:min > 5",
			},
			wantPass: []bool{true, true, true},
		},
		{
			name: "failure count",
			thresholds: []string{
				"http_req_failed:count < 50",
			},
			wantPass: []bool{true},
		},
		{
			name: "request count",
			thresholds: []string{
				"http_requests:count > 900",
			},
			wantPass: []bool{true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			thresholds, err := ParseMultiple(tt.thresholds)
			if err != nil {
				t.Fatalf("ParseMultiple() error = %v", err)
			}

			evaluator := NewEvaluator(thresholds)
			results := evaluator.Evaluate(stats)

			if len(results) != len(tt.wantPass) {
				t.Fatalf("got %d results, want %d", len(results), len(tt.wantPass))
			}

			for i, result := range results {
				if result.Pass != tt.wantPass[i] {
					t.Errorf("threshold[%d] %q: got pass=%v, want %v (actual=%.2f)",
						i, result.Threshold.Raw, result.Pass, tt.wantPass[i], result.Actual)
				}
			}
		})
	}
}

func TestCompareValues(t *testing.T) {
	tests := []struct {
		name     string
		actual   float64
		operator string
		expected float64
		want     bool
	}{
		{"less than true", 50, "<", 100, true},
		{"less than false", 100, "<", 50, false},
		{"less than equal", 100, "<", 100, false},
		{"less than or equal true", 50, "<=", 100, true},
		{"less than or equal equal", 100, "<=", 100, true},
		{"less than or equal false", 150, "<=", 100, false},
		{"greater than true", 150, ">", 100, true},
		{"greater than false", 50, ">", 100, false},
		{"greater than equal", 100, ">", 100, false},
		{"greater than or equal true", 150, ">=", 100, true},
		{"greater than or equal equal", 100, ">=", 100, true},
		{"greater than or equal false", 50, ">=", 100, false},
		{"equal true", 100, "==", 100, true},
		{"equal false", 100, "==", 101, false},
		{"equal with floating point precision", 100.0000000001, "==", 100, true},
		{"not equal true", 100, "!=", 101, true},
		{"not equal false", 100, "!=", 100, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := operators[tt.operator](tt.actual, tt.expected)
			if got != tt.want {
				t.Errorf("%.2f %s %.2f = %v, want %v",
					tt.actual, tt.operator, tt.expected, got, tt.want)
			}
		})
	}
}

func TestCheckReadsSummary(t *testing.T) {
	stats := report.Summary{
		Total:          1000,
		Successful:     950,
		Failed:         50,
		Timeouts:       20,
		RequestsPerSec: 123.45,
		TotalBytes:     4096,
		BytesPerSec:    409.6,
		Latency: report.Latency{
			MinMs:  10.5,
			MaxMs:  500.25,
			MeanMs: 100.75,
			P50Ms:  80.5,
			P90Ms:  200.25,
			P95Ms:  300.5,
			P99Ms:  400.5,
			P999Ms: 450.75,
		},
	}

	tests := []struct {
		name      string
		threshold Threshold
		want      float64
		wantError bool
	}{
		{
			name:      "http_req_duration p50",
			threshold: Threshold{Metric: "http_req_duration", Aggregate: "p50"},
			want:      80.5,
		},
		{
			name:      "http_req_duration p90",
			threshold: Threshold{Metric: "http_req_duration", Aggregate: "p90"},
			want:      200.25,
		},
		{
			name:      "http_req_duration p95",
			threshold: Threshold{Metric: "http_req_duration", Aggregate: "p95"},
			want:      300.5,
		},
		{
			name:      "http_req_duration p99",
			threshold: Threshold{Metric: "http_req_duration", Aggregate: "p99"},
			want:      400.5,
		},
		{
			name:      "http_req_duration p999",
			threshold: Threshold{Metric: "http_req_duration", Aggregate: "p999"},
			want:      450.75,
		},
		{
			name:      "http_req_duration avg",
			threshold: Threshold{Metric: "http_req_duration", Aggregate: "avg"},
			want:      100.75,
		},
		{
			name:      "http_req_duration min",
			threshold: Threshold{Metric: "http_req_duration", Aggregate: "min"},
			want:      10.5,
		},
		{
			name:      "http_req_duration max",
			threshold: Threshold{Metric: "http_req_duration", Aggregate: "max"},
			want:      500.25,
		},
		{
			name:      "http_req_failed rate",
			threshold: Threshold{Metric: "http_req_failed", Aggregate: "rate"},
			want:      0.05,
		},
		{
			name:      "http_req_failed count",
			threshold: Threshold{Metric: "http_req_failed", Aggregate: "count"},
			want:      50,
		},
		{
			name:      "http_requests rate",
			threshold: Threshold{Metric: "http_requests", Aggregate: "rate"},
			want:      123.45,
		},
		{
			name:      "http_requests count",
			threshold: Threshold{Metric: "http_requests", Aggregate: "count"},
			want:      1000,
		},
		{
			name:      "http_req_timeouts count",
			threshold: Threshold{Metric: "http_req_timeouts", Aggregate: "count"},
			want:      20,
		},
		{
			name:      "http_req_timeouts rate",
			threshold: Threshold{Metric: "http_req_timeouts", Aggregate: "rate"},
			want:      0.02,
		},
		{
			name:      "data_received total",
			threshold: Threshold{Metric: "data_received", Aggregate: "total"},
			want:      4096,
		},
		{
			name:      "data_received rate",
			threshold: Threshold{Metric: "data_received", Aggregate: "rate"},
			want:      409.6,
		},
		{
			name:      "unsupported metric",
			threshold: Threshold{Metric: "invalid_metric", Aggregate: "p95"},
			wantError: true,
		},
		{
			name:      "unsupported aggregate for metric",
			threshold: Threshold{Metric: "http_req_failed", Aggregate: "p95"},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := tt.threshold
			th.Operator = ">="
			res := th.Check(stats)
			if gotError := strings.HasPrefix(res.Message, "error:"); gotError != tt.wantError {
				t.Errorf("Check() message = %q, wantError %v", res.Message, tt.wantError)
				return
			}
			if !tt.wantError && res.Actual != tt.want {
				t.Errorf("Check() actual = %v, want %v", res.Actual, tt.want)
			}
		})
	}
}

func TestEvaluateResultsCarryExpression(t *testing.T) {
	thresholds, err := ParseMultiple([]string{"http_requests:count >= 3", "http_req_failed:count == 0"})
	if err != nil {
		t.Fatalf("ParseMultiple() error = %v", err)
	}
	results := NewEvaluator(thresholds).Evaluate(report.Summary{Total: 3, Successful: 2, Failed: 1})

	if results[0].Expr != "http_requests:count >= 3" || !results[0].Pass {
		t.Errorf("unexpected first result: %+v", results[0])
	}
	if results[1].Pass {
		t.Errorf("expected failure count threshold to fail: %+v", results[1])
	}
	if AllPassed(results) {
		t.Error("AllPassed() = true with a failing result")
	}
	if !AllPassed(results[:1]) || !AllPassed(nil) {
		t.Error("AllPassed() = false for passing results")
	}
}

func TestEvaluateNoDataSummary(t *testing.T) {
	thresholds, err := ParseMultiple([]string{"http_req_failed:rate < 0.01", "http_req_duration:p95 < 100"})
	if err != nil {
		t.Fatalf("ParseMultiple() error = %v", err)
	}
	for _, r := range NewEvaluator(thresholds).Evaluate(report.Summary{NoData: true}) {
		if r.Actual != 0 || !r.Pass {
			t.Errorf("unexpected result on empty run: %+v", r)
		}
	}
}

func TestSupportedIsSortedAndParseable(t *testing.T) {
	keys := Supported()
	if len(keys) != len(readings) {
		t.Fatalf("Supported() returned %d keys, want %d", len(keys), len(readings))
	}
	for i, k := range keys {
		if i > 0 && keys[i-1] >= k {
			t.Errorf("Supported() not sorted at %d: %q >= %q", i, keys[i-1], k)
		}
		if _, err := Parse(k + " < 1"); err != nil {
			t.Errorf("Parse(%q) error = %v", k, err)
		}
	}
}

func TestParseErrorListsAggregates(t *testing.T) {
	_, err := Parse("http_requests:p99 < 1")
	if err == nil {
		t.Fatal("Parse() error = nil, want error")
	}
	if !strings.Contains(err.Error(), "count, rate") {
		t.Errorf("error %q does not list the supported aggregates", err)
	}
}
