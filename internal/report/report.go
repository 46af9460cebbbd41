// Package report turns a drained metrics snapshot into the run summary that
// every output format renders.
package report

import (
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/loadline/barrage/internal/histogram"
	"github.com/loadline/barrage/internal/metrics"
)

// HistogramBuckets is the number of bars in the response-time histogram.
const HistogramBuckets = 10

// DistributionQuantiles are the rows of the latency distribution section.
var DistributionQuantiles = []float64{0.10, 0.25, 0.50, 0.75, 0.90, 0.95, 0.99, 0.999}

// Meta describes the run the summary belongs to.
type Meta struct {
	RunID       string
	URL         string
	Method      string
	Concurrency int
	StopReason  string
	StartedAt   time.Time
}

// NewRunID returns a sortable unique run identifier.
func NewRunID() string {
	return ulid.Make().String()
}

// Latency holds the latency statistics of successful requests. Duration
// fields are for rendering; the millisecond fields are what gets serialized.
type Latency struct {
	Mean   time.Duration `json:"-" yaml:"-"`
	StdDev time.Duration `json:"-" yaml:"-"`
	Min    time.Duration `json:"-" yaml:"-"`
	Max    time.Duration `json:"-" yaml:"-"`
	P50    time.Duration `json:"-" yaml:"-"`
	P90    time.Duration `json:"-" yaml:"-"`
	P95    time.Duration `json:"-" yaml:"-"`
	P99    time.Duration `json:"-" yaml:"-"`
	P999   time.Duration `json:"-" yaml:"-"`

	MeanMs   float64 `json:"mean_ms" yaml:"mean_ms"`
	StdDevMs float64 `json:"stddev_ms" yaml:"stddev_ms"`
	MinMs    float64 `json:"min_ms" yaml:"min_ms"`
	MaxMs    float64 `json:"max_ms" yaml:"max_ms"`
	P50Ms    float64 `json:"p50_ms" yaml:"p50_ms"`
	P90Ms    float64 `json:"p90_ms" yaml:"p90_ms"`
	P95Ms    float64 `json:"p95_ms" yaml:"p95_ms"`
	P99Ms    float64 `json:"p99_ms" yaml:"p99_ms"`
	P999Ms   float64 `json:"p99_9_ms" yaml:"p99_9_ms"`
}

// Percentile is one row of the latency distribution.
type Percentile struct {
	Quantile  float64       `json:"quantile" yaml:"quantile"`
	Latency   time.Duration `json:"-" yaml:"-"`
	LatencyMs float64       `json:"latency_ms" yaml:"latency_ms"`
}

// Bucket is one bar of the response-time histogram.
type Bucket struct {
	Mark   time.Duration `json:"-" yaml:"-"`
	MarkMs float64       `json:"mark_ms" yaml:"mark_ms"`
	Count  int64         `json:"count" yaml:"count"`
}

// Summary is the complete, immutable result of a run.
type Summary struct {
	RunID       string        `json:"run_id" yaml:"run_id"`
	URL         string        `json:"url" yaml:"url"`
	Method      string        `json:"method,omitempty" yaml:"method,omitempty"`
	Concurrency int           `json:"concurrency" yaml:"concurrency"`
	StartedAt   time.Time     `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	StopReason  string        `json:"stop_reason,omitempty" yaml:"stop_reason,omitempty"`
	Elapsed     time.Duration `json:"-" yaml:"-"`
	ElapsedMs   float64       `json:"elapsed_ms" yaml:"elapsed_ms"`
	NoData      bool          `json:"no_data" yaml:"no_data"`

	Total           int64 `json:"total" yaml:"total"`
	Successful      int64 `json:"successful" yaml:"successful"`
	Failed          int64 `json:"failed" yaml:"failed"`
	Timeouts        int64 `json:"timeouts" yaml:"timeouts"`
	TransportErrors int64 `json:"transport_errors" yaml:"transport_errors"`

	RequestsPerSec  float64 `json:"requests_per_sec" yaml:"requests_per_sec"`
	BytesPerSec     float64 `json:"bytes_per_sec" yaml:"bytes_per_sec"`
	TotalBytes      int64   `json:"total_bytes" yaml:"total_bytes"`
	AvgBytesPerResp float64 `json:"avg_bytes_per_response" yaml:"avg_bytes_per_response"`

	Latency      Latency          `json:"latency" yaml:"latency"`
	Distribution []Percentile     `json:"latency_distribution,omitempty" yaml:"latency_distribution,omitempty"`
	Histogram    []Bucket         `json:"histogram,omitempty" yaml:"histogram,omitempty"`
	StatusCodes  map[int]int64    `json:"status_codes,omitempty" yaml:"status_codes,omitempty"`
	Errors       map[string]int64 `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// StatusRows returns the status-code distribution in ascending code order.
func (s Summary) StatusRows() []metrics.StatusRow {
	return metrics.StatusRows(s.StatusCodes)
}

// ErrorRows returns the error distribution, most frequent first.
func (s Summary) ErrorRows() []metrics.ErrorRow {
	return metrics.ErrorRows(s.Errors)
}

// FailureRate is Failed/Total, or 0 when nothing was recorded.
func (s Summary) FailureRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Failed) / float64(s.Total)
}

// Build derives the summary from a drained snapshot. It does not modify snap.
// A zero elapsed time yields zero rates; a snapshot without outcomes yields a
// NoData summary with every numeric field zero.
func Build(snap metrics.Snapshot, elapsed time.Duration, meta Meta) Summary {
	s := Summary{
		RunID:       meta.RunID,
		URL:         meta.URL,
		Method:      meta.Method,
		Concurrency: meta.Concurrency,
		StartedAt:   meta.StartedAt,
		StopReason:  meta.StopReason,
		Elapsed:     elapsed,
		ElapsedMs:   millis(elapsed),
	}
	if snap.Total == 0 {
		s.NoData = true
		return s
	}

	s.Total = snap.Total
	s.Successful = snap.Successes
	s.Failed = snap.Failures()
	s.Timeouts = snap.Timeouts
	s.TransportErrors = snap.TransportErrors
	s.TotalBytes = snap.TotalBytes
	s.StatusCodes = copyMap(snap.StatusCodes)
	s.Errors = copyMap(snap.Errors)

	if elapsed > 0 {
		secs := elapsed.Seconds()
		s.RequestsPerSec = float64(snap.Total) / secs
		s.BytesPerSec = float64(snap.TotalBytes) / secs
	}
	if snap.Successes > 0 {
		s.AvgBytesPerResp = float64(snap.TotalBytes) / float64(snap.Successes)
	}

	if h := snap.Latency; h != nil && h.Count() > 0 {
		s.Latency = latencyOf(h)
		s.Distribution = distributionOf(h)
		s.Histogram = bucketsOf(h)
	}
	return s
}

func latencyOf(h *histogram.Histogram) Latency {
	l := Latency{
		Mean:   h.Mean(),
		StdDev: h.StdDev(),
		Min:    h.Min(),
		Max:    h.Max(),
		P50:    h.Quantile(0.50),
		P90:    h.Quantile(0.90),
		P95:    h.Quantile(0.95),
		P99:    h.Quantile(0.99),
		P999:   h.Quantile(0.999),
	}
	l.MeanMs = millis(l.Mean)
	l.StdDevMs = millis(l.StdDev)
	l.MinMs = millis(l.Min)
	l.MaxMs = millis(l.Max)
	l.P50Ms = millis(l.P50)
	l.P90Ms = millis(l.P90)
	l.P95Ms = millis(l.P95)
	l.P99Ms = millis(l.P99)
	l.P999Ms = millis(l.P999)
	return l
}

func distributionOf(h *histogram.Histogram) []Percentile {
	rows := make([]Percentile, len(DistributionQuantiles))
	for i, q := range DistributionQuantiles {
		v := h.Quantile(q)
		rows[i] = Percentile{Quantile: q, Latency: v, LatencyMs: millis(v)}
	}
	return rows
}

func bucketsOf(h *histogram.Histogram) []Bucket {
	raw := h.Buckets(HistogramBuckets)
	out := make([]Bucket, len(raw))
	for i, b := range raw {
		out[i] = Bucket{Mark: b.Mark, MarkMs: millis(b.Mark), Count: b.Count}
	}
	return out
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func copyMap[K comparable](m map[K]int64) map[K]int64 {
	if len(m) == 0 {
		return nil
	}
	out := make(map[K]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
