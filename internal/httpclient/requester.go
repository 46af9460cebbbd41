package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/loadline/barrage/internal/runner"
	"github.com/loadline/barrage/internal/tracing"
)

// Requester issues the configured request and drains the response body.
type Requester struct {
	client  *http.Client
	builder *RequestBuilder
	tracer  *tracing.Provider
}

// NewRequester returns a runner.Requester. tracer may be nil.
func NewRequester(client *http.Client, builder *RequestBuilder, tracer *tracing.Provider) *Requester {
	return &Requester{client: client, builder: builder, tracer: tracer}
}

var _ runner.Requester = (*Requester)(nil)

// Do sends one request. Any response counts as completed, whatever the
// status; ContentLength is the number of body bytes actually read. A failure
// while reading the body is returned as an error.
func (r *Requester) Do(ctx context.Context) (runner.Response, error) {
	ctx, span := r.tracer.StartRequestSpan(ctx, r.builder.method, r.builder.target)

	req, err := r.builder.Build(ctx)
	if err != nil {
		tracing.EndSpan(span, err)
		return runner.Response{}, fmt.Errorf("build request: %w", err)
	}
	r.tracer.InjectHTTPHeaders(ctx, req.Header)

	resp, err := r.client.Do(req)
	if err != nil {
		tracing.EndSpan(span, err)
		return runner.Response{}, err
	}
	n, err := io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		tracing.EndSpan(span, err)
		return runner.Response{}, err
	}

	tracing.EndResponseSpan(span, resp.StatusCode, n)
	return runner.Response{StatusCode: resp.StatusCode, ContentLength: n}, nil
}
