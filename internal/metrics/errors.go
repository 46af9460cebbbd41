package metrics

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
)

// ErrTimeout marks a request that did not complete within its deadline.
// Requesters may return it (or wrap it) to force timeout classification.
var ErrTimeout = errors.New(TimeoutMessage)

// TimeoutMessage is the error-distribution key shared by every timed-out request.
const TimeoutMessage = "request timeout"

// Classify maps a request error to its failure kind and the message used as
// the error-distribution key. A nil error classifies as KindSuccess.
func Classify(err error) (Kind, string) {
	if err == nil {
		return KindSuccess, ""
	}
	if isTimeout(err) {
		return KindTimeout, TimeoutMessage
	}
	return KindTransport, causeMessage(err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrTimeout) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// causeMessage strips the "Get \"http://...\":" prefix url.Error adds and
// walks the single-error Unwrap chain down to the innermost cause, so that
// the same failure against different ports or paths groups under one key.
func causeMessage(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	for {
		next := errors.Unwrap(err)
		if next == nil {
			break
		}
		err = next
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return "unknown error"
	}
	return msg
}
