package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/loadline/barrage/internal/metrics"
)

var errNoRequester = errors.New("no requester configured")

// Result captures execution summary.
type Result struct {
	Issued   int64         // requests started; each produced exactly one outcome
	Duration time.Duration // wall time from start until every worker returned
	Reason   error         // why the run stopped
}

// Runner drives Concurrency workers against a Requester until the stop
// signal fires.
type Runner struct {
	opt     Options
	arrival arrivalController
}

func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{opt: opt, arrival: newArrivalController(opt)}
}

// Options returns the normalized options.
func (r *Runner) Options() Options {
	return r.opt
}

// Run blocks until the duration elapses, the request budget is spent or ctx
// is cancelled, and then until every in-flight request has been recorded.
func (r *Runner) Run(ctx context.Context) Result {
	return r.RunWithSignal(NewStopSignal(ctx))
}

// RunWithSignal is Run with a caller-owned stop signal, so other parts of the
// program can stop the workers or observe why they stopped.
func (r *Runner) RunWithSignal(stop *StopSignal) Result {
	start := time.Now()

	if r.opt.Duration > 0 {
		timer := time.AfterFunc(r.opt.Duration, func() { stop.Fire(ErrDurationElapsed) })
		defer timer.Stop()
	}

	b := &budget{limit: r.opt.TotalRequests}
	var issued atomic.Int64

	var wg sync.WaitGroup
	wg.Add(r.opt.Concurrency)
	for i := 0; i < r.opt.Concurrency; i++ {
		go func() {
			defer wg.Done()
			r.work(stop, b, &issued)
		}()
	}
	wg.Wait()

	return Result{
		Issued:   issued.Load(),
		Duration: time.Since(start),
		Reason:   stop.Reason(),
	}
}

func (r *Runner) work(stop *StopSignal, b *budget, issued *atomic.Int64) {
	for {
		// Stop has priority over starting another cycle.
		if stop.Fired() {
			return
		}
		if r.arrival != nil {
			if err := r.arrival.Wait(stop.Context()); err != nil {
				return
			}
			if stop.Fired() {
				return
			}
		}
		ok, last := b.acquire()
		if !ok {
			return
		}
		if last {
			stop.Fire(ErrBudgetExhausted)
		}
		issued.Add(1)
		r.issue(stop.Context())
	}
}

// issue performs one request. Its context keeps the run's values but not its
// cancellation, so a stop lets the request finish or time out.
func (r *Runner) issue(parent context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), r.opt.Timeout)
	defer cancel()

	var o metrics.Outcome
	begin := time.Now()
	if r.opt.Requester == nil {
		o = metrics.Failure(0, errNoRequester)
	} else {
		resp, err := r.opt.Requester.Do(ctx)
		elapsed := time.Since(begin)
		if err != nil {
			o = metrics.Failure(elapsed, err)
		} else {
			o = metrics.Success(elapsed, resp.StatusCode, resp.ContentLength)
		}
	}
	if r.opt.Recorder != nil {
		r.opt.Recorder.Record(o)
	}
}

// budget hands out at most limit permits; limit 0 means unlimited.
type budget struct {
	limit int64
	used  atomic.Int64
}

// acquire takes one permit. last is true for exactly one caller: the one
// that took the final permit.
func (b *budget) acquire() (ok, last bool) {
	if b.limit <= 0 {
		return true, false
	}
	for {
		n := b.used.Load()
		if n >= b.limit {
			return false, false
		}
		if b.used.CompareAndSwap(n, n+1) {
			return true, n+1 == b.limit
		}
	}
}
