package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// StartRequestSpan starts a client span for one HTTP request.
func (p *Provider) StartRequestSpan(ctx context.Context, method, target string) (context.Context, trace.Span) {
	ctx, span := p.Tracer().Start(ctx, "HTTP "+method,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	if span.IsRecording() {
		span.SetAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.full", target),
		)
	}
	return ctx, span
}

// EndSpan finishes a span, recording error status if applicable.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// EndResponseSpan finishes a span for a request that got a response. 5xx
// responses mark the span as failed without turning the request into an error.
func EndResponseSpan(span trace.Span, statusCode int, bodyBytes int64) {
	span.SetAttributes(
		attribute.Int("http.response.status_code", statusCode),
		attribute.Int64("http.response.body.size", bodyBytes),
	)
	if statusCode >= 500 {
		span.SetStatus(codes.Error, http.StatusText(statusCode))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// InjectHTTPHeaders injects W3C trace context into HTTP headers when
// propagation is enabled.
func (p *Provider) InjectHTTPHeaders(ctx context.Context, headers http.Header) {
	if !p.ShouldPropagate() || p.propagator == nil {
		return
	}
	p.propagator.Inject(ctx, propagation.HeaderCarrier(headers))
}
