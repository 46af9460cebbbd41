package runner_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/loadline/barrage/internal/metrics"
	"github.com/loadline/barrage/internal/runner"
)

// fakeRequester simulates performing a request with fixed latency.
type fakeRequester struct {
	latency time.Duration
	calls   atomic.Int64
	err     error
}

func (f *fakeRequester) Do(ctx context.Context) (runner.Response, error) {
	f.calls.Add(1)
	select {
	case <-time.After(f.latency):
	case <-ctx.Done():
		return runner.Response{}, ctx.Err()
	}
	if f.err != nil {
		return runner.Response{}, f.err
	}
	return runner.Response{StatusCode: 200, ContentLength: 2}, nil
}

type sliceRecorder struct {
	mu       sync.Mutex
	outcomes []metrics.Outcome
}

func (s *sliceRecorder) Record(o metrics.Outcome) {
	s.mu.Lock()
	s.outcomes = append(s.outcomes, o)
	s.mu.Unlock()
}

func (s *sliceRecorder) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.outcomes)
}

// TestRunnerRespectsTotalRequests ensures the budget is never exceeded.
func TestRunnerRespectsTotalRequests(t *testing.T) {
	req := &fakeRequester{latency: time.Millisecond}
	rec := &sliceRecorder{}
	r := runner.New(runner.Options{
		Concurrency:   4,
		TotalRequests: 25,
		Requester:     req,
		Recorder:      rec,
	})
	res := r.Run(context.Background())
	if res.Issued != 25 {
		t.Fatalf("expected 25 issued, got %d", res.Issued)
	}
	if req.calls.Load() != 25 {
		t.Fatalf("expected requester called 25 times, got %d", req.calls.Load())
	}
	if rec.len() != 25 {
		t.Fatalf("expected 25 outcomes, got %d", rec.len())
	}
	if !errors.Is(res.Reason, runner.ErrBudgetExhausted) {
		t.Fatalf("expected budget reason, got %v", res.Reason)
	}
}

func TestBudgetExactUnderHighConcurrency(t *testing.T) {
	for i := 0; i < 20; i++ {
		req := &fakeRequester{}
		rec := &sliceRecorder{}
		res := runner.New(runner.Options{
			Concurrency:   64,
			TotalRequests: 100,
			Requester:     req,
			Recorder:      rec,
		}).Run(context.Background())
		if res.Issued != 100 || rec.len() != 100 || req.calls.Load() != 100 {
			t.Fatalf("round %d: issued=%d recorded=%d calls=%d", i, res.Issued, rec.len(), req.calls.Load())
		}
	}
}

// TestRunnerHonorsDuration ensures duration cap stops even if total not reached.
func TestRunnerHonorsDuration(t *testing.T) {
	req := &fakeRequester{latency: 5 * time.Millisecond}
	rec := &sliceRecorder{}
	r := runner.New(runner.Options{
		Concurrency: 10,
		Duration:    50 * time.Millisecond,
		Requester:   req,
		Recorder:    rec,
	})
	start := time.Now()
	res := r.Run(context.Background())
	elapsed := time.Since(start)
	if elapsed < 50*time.Millisecond || elapsed > 250*time.Millisecond {
		// allow some scheduling fudge but not extremely off
		t.Fatalf("duration enforcement off: %s", elapsed)
	}
	if res.Duration <= 0 {
		t.Fatalf("result duration not recorded")
	}
	if res.Issued <= 0 {
		t.Fatalf("expected some requests executed")
	}
	if int64(rec.len()) != res.Issued {
		t.Fatalf("every issued request must be recorded: issued=%d recorded=%d", res.Issued, rec.len())
	}
	if !errors.Is(res.Reason, runner.ErrDurationElapsed) {
		t.Fatalf("expected duration reason, got %v", res.Reason)
	}
}

func TestInFlightRequestsFinishAfterStop(t *testing.T) {
	req := &fakeRequester{latency: 80 * time.Millisecond}
	rec := &sliceRecorder{}
	res := runner.New(runner.Options{
		Concurrency: 3,
		Duration:    10 * time.Millisecond,
		Requester:   req,
		Recorder:    rec,
	}).Run(context.Background())

	if res.Issued != 3 {
		t.Fatalf("expected one request per worker, got %d", res.Issued)
	}
	for _, o := range rec.outcomes {
		if o.Kind != metrics.KindSuccess {
			t.Fatalf("in-flight request was cancelled: %+v", o)
		}
	}
}

func TestParentCancellationStopsRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	req := &fakeRequester{latency: time.Millisecond}
	done := make(chan runner.Result, 1)
	go func() {
		done <- runner.New(runner.Options{Concurrency: 2, Requester: req}).Run(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case res := <-done:
		if !errors.Is(res.Reason, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", res.Reason)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop after cancellation")
	}
}

func TestTimeoutsAreClassified(t *testing.T) {
	rec := &sliceRecorder{}
	runner.New(runner.Options{
		Concurrency:   2,
		TotalRequests: 4,
		Timeout:       5 * time.Millisecond,
		Requester:     &fakeRequester{latency: time.Second},
		Recorder:      rec,
	}).Run(context.Background())

	if rec.len() != 4 {
		t.Fatalf("expected 4 outcomes, got %d", rec.len())
	}
	for _, o := range rec.outcomes {
		if o.Kind != metrics.KindTimeout || o.Message != metrics.TimeoutMessage {
			t.Fatalf("expected timeout outcome, got %+v", o)
		}
		if o.Latency > 500*time.Millisecond {
			t.Fatalf("timeout not enforced, latency %s", o.Latency)
		}
	}
}

func TestTransportErrorsAreRecorded(t *testing.T) {
	rec := &sliceRecorder{}
	runner.New(runner.Options{
		Concurrency:   2,
		TotalRequests: 6,
		Requester:     &fakeRequester{err: errors.New("connection refused")},
		Recorder:      rec,
	}).Run(context.Background())

	if rec.len() != 6 {
		t.Fatalf("expected 6 outcomes, got %d", rec.len())
	}
	for _, o := range rec.outcomes {
		if o.Kind != metrics.KindTransport || o.Message != "connection refused" {
			t.Fatalf("unexpected outcome %+v", o)
		}
	}
}

func TestExternalSignalStopsWorkers(t *testing.T) {
	stop := runner.NewStopSignal(context.Background())
	r := runner.New(runner.Options{Concurrency: 4, Requester: &fakeRequester{latency: time.Millisecond}})
	reason := errors.New("operator stop")
	time.AfterFunc(20*time.Millisecond, func() { stop.Fire(reason) })

	res := r.RunWithSignal(stop)
	if !errors.Is(res.Reason, reason) {
		t.Fatalf("expected operator reason, got %v", res.Reason)
	}
}

// TestRateLimiterCapsThroughput ensures rate limiter restricts RPS.
func TestRateLimiterCapsThroughput(t *testing.T) {
	req := &fakeRequester{}
	rateLimit := 100 // requests per second theoretical maximum
	duration := 100 * time.Millisecond
	r := runner.New(runner.Options{
		Concurrency:    20,
		Duration:       duration,
		RatePerSecond:  rateLimit,
		Requester:      req,
		LimiterFactory: func(rps int) *rate.Limiter { return rate.NewLimiter(rate.Limit(rps), 1) },
	})
	res := r.Run(context.Background())
	// expected upper bound ~ rateLimit * (duration seconds)
	maxExpected := int64(float64(rateLimit)*(float64(duration)/float64(time.Second))*1.20) + 1 // 20% slack
	if res.Issued > maxExpected {
		t.Fatalf("rate limiter exceeded: total=%d max=%d", res.Issued, maxExpected)
	}
	if req.calls.Load() != res.Issued {
		t.Fatalf("calls mismatch: %d vs %d", req.calls.Load(), res.Issued)
	}
}

func TestPoissonPacingCapsThroughput(t *testing.T) {
	req := &fakeRequester{}
	res := runner.New(runner.Options{
		Concurrency:    8,
		Duration:       100 * time.Millisecond,
		RatePerSecond:  100,
		ArrivalModel:   runner.ArrivalModelPoisson,
		PoissonSampler: func() float64 { return 1 },
		Requester:      req,
	}).Run(context.Background())

	// A constant sampler gives exactly 10ms gaps.
	if res.Issued > 12 {
		t.Fatalf("poisson pacing exceeded rate: %d", res.Issued)
	}
}

func TestNilRequesterRecordsFailure(t *testing.T) {
	rec := &sliceRecorder{}
	runner.New(runner.Options{TotalRequests: 2, Recorder: rec}).Run(context.Background())
	if rec.len() != 2 || rec.outcomes[0].Kind != metrics.KindTransport {
		t.Fatalf("expected transport failures, got %+v", rec.outcomes)
	}
}
