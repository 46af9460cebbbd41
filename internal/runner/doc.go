// Package runner is the worker pool that issues requests.
//
// A [Runner] starts [Options.Concurrency] goroutines. Each loops: check the
// [StopSignal], wait for pacing if a rate is set, take a permit from the
// request budget, issue one request and hand its [metrics.Outcome] to the
// [Recorder].
//
//	r := runner.New(runner.Options{
//		Concurrency:   10,
//		TotalRequests: 1000,
//		Timeout:       5 * time.Second,
//		Requester:     req,
//		Recorder:      collector,
//	})
//	res := r.Run(ctx) // res.Reason == runner.ErrBudgetExhausted
//
// # Stopping
//
// The signal fires on the first of: the duration elapsing
// ([ErrDurationElapsed]), the last budget permit being taken
// ([ErrBudgetExhausted]), or ctx being cancelled. Workers never start a new
// cycle after it fires. Requests already in flight are not cancelled; they
// finish or hit their own timeout and are recorded.
//
// # Pacing
//
// [Options.RatePerSecond] caps the aggregate request rate with either
// [ArrivalModelUniform] (token bucket) or [ArrivalModelPoisson]
// (exponential gaps).
//
// # Middleware
//
// [WithLogging] logs failed requests through zap.
package runner
