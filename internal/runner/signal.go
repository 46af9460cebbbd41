package runner

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrDurationElapsed is the stop reason when the configured duration passes.
	ErrDurationElapsed = errors.New("duration elapsed")
	// ErrBudgetExhausted is the stop reason when the last permitted request was issued.
	ErrBudgetExhausted = errors.New("request budget exhausted")
)

// StopSignal is a one-shot, broadcast stop flag with a recorded reason.
// It also fires when its parent context is cancelled; the parent's cause
// becomes the reason.
type StopSignal struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	mu     sync.Mutex
}

// NewStopSignal derives a signal from parent.
func NewStopSignal(parent context.Context) *StopSignal {
	ctx, cancel := context.WithCancelCause(parent)
	return &StopSignal{ctx: ctx, cancel: cancel}
}

// Fire stops the signal with reason. Only the first call has an effect; it
// reports whether this call was the one that fired.
func (s *StopSignal) Fire(reason error) bool {
	if reason == nil {
		reason = context.Canceled
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return false
	}
	s.cancel(reason)
	return context.Cause(s.ctx) == reason
}

// Fired is the non-blocking check.
func (s *StopSignal) Fired() bool {
	return s.ctx.Err() != nil
}

// Done is closed once the signal fires.
func (s *StopSignal) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Reason returns why the signal fired, or nil while it has not.
func (s *StopSignal) Reason() error {
	if s.ctx.Err() == nil {
		return nil
	}
	return context.Cause(s.ctx)
}

// Context is cancelled when the signal fires and carries the parent's values.
func (s *StopSignal) Context() context.Context {
	return s.ctx
}
