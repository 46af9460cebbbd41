package metrics

import "time"

// Kind discriminates request outcomes.
type Kind uint8

const (
	KindSuccess Kind = iota
	KindTimeout
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindTimeout:
		return "timeout"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Outcome is the result of one request attempt. Any HTTP response, whatever
// its status, is a success; only timeouts and transport errors are failures.
type Outcome struct {
	Kind          Kind
	Latency       time.Duration
	StatusCode    int
	ContentLength int64
	Message       string
}

// Success builds the outcome of a request that produced a response.
func Success(latency time.Duration, statusCode int, contentLength int64) Outcome {
	if contentLength < 0 {
		contentLength = 0
	}
	return Outcome{
		Kind:          KindSuccess,
		Latency:       latency,
		StatusCode:    statusCode,
		ContentLength: contentLength,
	}
}

// Failure builds the outcome of a request that returned err. The latency is
// informational; failed attempts never enter the latency histogram.
// A nil err is reported as a transport failure with an "unknown error" message.
func Failure(latency time.Duration, err error) Outcome {
	kind, msg := Classify(err)
	if kind == KindSuccess {
		kind, msg = KindTransport, "unknown error"
	}
	return Outcome{Kind: kind, Latency: latency, Message: msg}
}

// Failed reports whether the outcome is a timeout or transport failure.
func (o Outcome) Failed() bool {
	return o.Kind != KindSuccess
}

// Recorder consumes outcomes. Implementations must be safe for concurrent use.
type Recorder interface {
	Record(Outcome)
}

type tee []Recorder

func (t tee) Record(o Outcome) {
	for _, r := range t {
		r.Record(o)
	}
}

// Tee fans every outcome out to each non-nil recorder, in order.
func Tee(recorders ...Recorder) Recorder {
	out := make(tee, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}
