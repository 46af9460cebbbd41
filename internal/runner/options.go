package runner

import (
	"context"
	"math/rand"
	"time"

	"golang.org/x/time/rate"

	"github.com/loadline/barrage/internal/metrics"
)

// DefaultTimeout bounds a request when Options.Timeout is unset.
const DefaultTimeout = 30 * time.Second

// ArrivalModel selects how paced requests are spaced.
type ArrivalModel string

const (
	ArrivalModelUniform ArrivalModel = "uniform"
	ArrivalModelPoisson ArrivalModel = "poisson"
)

// Response is what a Requester reports for a completed exchange.
type Response struct {
	StatusCode    int
	ContentLength int64
}

// Requester executes one request. It returns an error only when no response
// was obtained; any HTTP status is a successful exchange.
type Requester interface {
	Do(ctx context.Context) (Response, error)
}

// RequesterFunc adapts a function to Requester.
type RequesterFunc func(ctx context.Context) (Response, error)

func (f RequesterFunc) Do(ctx context.Context) (Response, error) { return f(ctx) }

// Recorder receives one outcome per issued request.
type Recorder interface {
	Record(metrics.Outcome)
}

// Options configure the Runner.
type Options struct {
	Concurrency    int                         // number of worker goroutines
	TotalRequests  int64                       // request budget (0 means unlimited)
	Duration       time.Duration               // overall time limit (0 means no duration cap)
	Timeout        time.Duration               // per-request timeout (0 means DefaultTimeout)
	RatePerSecond  int                         // pacing across all workers (0 means unpaced)
	ArrivalModel   ArrivalModel                // spacing of paced requests
	RandomSeed     int64                       // Poisson sampler seed (0 means time-based)
	PoissonSampler func() float64              // optional Exp(1) sampler injection for tests
	LimiterFactory func(rps int) *rate.Limiter // optional injection for tests
	Requester      Requester                   // request executor (required)
	Recorder       Recorder                    // outcome sink (nil discards)
}

func (o *Options) normalize() {
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.TotalRequests < 0 {
		o.TotalRequests = 0
	}
	if o.Duration < 0 {
		o.Duration = 0
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.RatePerSecond < 0 {
		o.RatePerSecond = 0
	}
	if o.ArrivalModel == "" {
		o.ArrivalModel = ArrivalModelUniform
	}
	if o.RandomSeed == 0 {
		o.RandomSeed = time.Now().UnixNano()
	}
	if o.PoissonSampler == nil && o.ArrivalModel == ArrivalModelPoisson {
		o.PoissonSampler = rand.New(rand.NewSource(o.RandomSeed)).ExpFloat64
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			if rps <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			// Burst equal to rps to smooth pacing under concurrency.
			return rate.NewLimiter(rate.Limit(rps), rps)
		}
	}
}
