// Package histogram records request latencies into a bounded-memory HDR histogram.
//
// Quantiles come from the HDR counts and carry the configured relative error.
// Count, min, max, mean and standard deviation are exact; they are tracked
// beside the HDR buckets. Quantile answers are clamped into [Min, Max] so the
// reported percentiles never fall outside the observed range.
package histogram

import (
	"math"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Config bounds the trackable latency range.
type Config struct {
	Lowest  time.Duration // smallest distinguishable value (>= 1ns)
	Highest time.Duration // values above are clamped
	SigFigs int           // significant decimal digits, 1..5
}

// DefaultConfig tracks 1ns up to one hour with 3 significant digits.
func DefaultConfig() Config {
	return Config{
		Lowest:  time.Nanosecond,
		Highest: time.Hour,
		SigFigs: 3,
	}
}

func (c Config) normalize() Config {
	def := DefaultConfig()
	if c.Lowest < time.Nanosecond {
		c.Lowest = def.Lowest
	}
	if c.Highest <= c.Lowest {
		c.Highest = def.Highest
	}
	if c.SigFigs < 1 || c.SigFigs > 5 {
		c.SigFigs = def.SigFigs
	}
	return c
}

// Histogram is not safe for concurrent use; the metrics collector owns it
// from a single goroutine.
type Histogram struct {
	cfg  Config
	hdr  *hdrhistogram.Histogram
	n    int64
	min  int64
	max  int64
	mean float64
	m2   float64
}

// New creates an empty histogram.
func New(cfg Config) *Histogram {
	cfg = cfg.normalize()
	return &Histogram{
		cfg: cfg,
		hdr: hdrhistogram.New(int64(cfg.Lowest), int64(cfg.Highest), cfg.SigFigs),
	}
}

// Config returns the normalized configuration.
func (h *Histogram) Config() Config {
	return h.cfg
}

// Record adds one latency sample.
func (h *Histogram) Record(d time.Duration) {
	ns := int64(d)
	if ns < int64(h.cfg.Lowest) {
		ns = int64(h.cfg.Lowest)
	}
	if ns > int64(h.cfg.Highest) {
		ns = int64(h.cfg.Highest)
	}
	// Clamped above, so RecordValue cannot reject the value.
	_ = h.hdr.RecordValue(ns)

	if h.n == 0 || ns < h.min {
		h.min = ns
	}
	if ns > h.max {
		h.max = ns
	}
	h.n++
	delta := float64(ns) - h.mean
	h.mean += delta / float64(h.n)
	h.m2 += delta * (float64(ns) - h.mean)
}

// Count returns the number of recorded samples.
func (h *Histogram) Count() int64 {
	return h.n
}

// Min returns the smallest recorded sample, or 0 when empty.
func (h *Histogram) Min() time.Duration {
	return time.Duration(h.min)
}

// Max returns the largest recorded sample, or 0 when empty.
func (h *Histogram) Max() time.Duration {
	return time.Duration(h.max)
}

// Mean returns the arithmetic mean, or 0 when empty.
func (h *Histogram) Mean() time.Duration {
	if h.n == 0 {
		return 0
	}
	return time.Duration(math.Round(h.mean))
}

// StdDev returns the population standard deviation, or 0 when empty.
func (h *Histogram) StdDev() time.Duration {
	if h.n == 0 {
		return 0
	}
	return time.Duration(math.Round(math.Sqrt(h.m2 / float64(h.n))))
}

// Quantile returns the value at q, where q is a fraction in [0, 1].
// Out of range fractions are clamped. An empty histogram returns 0.
func (h *Histogram) Quantile(q float64) time.Duration {
	if h.n == 0 {
		return 0
	}
	if math.IsNaN(q) || q < 0 {
		q = 0
	}
	if q > 1 {
		q = 1
	}
	v := h.hdr.ValueAtQuantile(q * 100)
	if v < h.min {
		v = h.min
	}
	if v > h.max {
		v = h.max
	}
	return time.Duration(v)
}

// Merge folds other into h. Both histograms should share a Config; samples
// outside h's range are clamped by the HDR merge.
func (h *Histogram) Merge(other *Histogram) {
	if other == nil || other.n == 0 {
		return
	}
	h.hdr.Merge(other.hdr)
	if h.n == 0 || other.min < h.min {
		h.min = other.min
	}
	if other.max > h.max {
		h.max = other.max
	}
	// Chan et al. parallel variance combination.
	n := h.n + other.n
	delta := other.mean - h.mean
	h.m2 += other.m2 + delta*delta*float64(h.n)*float64(other.n)/float64(n)
	h.mean += delta * float64(other.n) / float64(n)
	h.n = n
}

// Copy returns an independent deep copy.
func (h *Histogram) Copy() *Histogram {
	cp := New(h.cfg)
	cp.Merge(h)
	return cp
}

// Bucket is one bar of the response-time histogram: Count samples at or
// below Mark (and above the previous bucket's Mark).
type Bucket struct {
	Mark  time.Duration `json:"mark" yaml:"mark"`
	Count int64         `json:"count" yaml:"count"`
}

// Buckets spreads the recorded samples over n linear buckets between Min and
// Max. It returns nil when the histogram is empty or n < 1.
func (h *Histogram) Buckets(n int) []Bucket {
	if h.n == 0 || n < 1 {
		return nil
	}
	lo, hi := float64(h.min), float64(h.max)
	if hi <= lo {
		return []Bucket{{Mark: time.Duration(h.max), Count: h.n}}
	}
	step := (hi - lo) / float64(n)
	buckets := make([]Bucket, n)
	for i := range buckets {
		buckets[i].Mark = time.Duration(lo + step*float64(i+1))
	}
	buckets[n-1].Mark = time.Duration(h.max)

	for _, bar := range h.hdr.Distribution() {
		if bar.Count == 0 {
			continue
		}
		v := math.Min(math.Max(float64(bar.To), lo), hi)
		idx := int(math.Ceil((v-lo)/step)) - 1
		if idx < 0 {
			idx = 0
		}
		if idx >= n {
			idx = n - 1
		}
		buckets[idx].Count += bar.Count
	}
	return buckets
}
