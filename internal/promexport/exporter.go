// Package promexport exposes live run counters for Prometheus scraping.
//
// Each run builds its own registry, so nothing is registered globally and
// several exporters can coexist in one process (tests do this).
package promexport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/loadline/barrage/internal/metrics"
)

const namespace = "barrage"

// Exporter records outcomes into Prometheus metrics. It implements
// metrics.Recorder and is safe for concurrent use.
type Exporter struct {
	reg      *prometheus.Registry
	requests *prometheus.CounterVec
	statuses *prometheus.CounterVec
	latency  prometheus.Histogram
	bytes    prometheus.Counter
}

var _ metrics.Recorder = (*Exporter)(nil)

// New creates an exporter whose series carry the run id as a constant label.
func New(runID string) *Exporter {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	labels := prometheus.Labels{"run_id": runID}
	factory := promauto.With(reg)

	return &Exporter{
		reg: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "requests_total",
			Help:        "Completed request attempts by outcome.",
			ConstLabels: labels,
		}, []string{"outcome"}),
		statuses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "responses_total",
			Help:        "Responses by HTTP status code.",
			ConstLabels: labels,
		}, []string{"code"}),
		latency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "request_duration_seconds",
			Help:        "Latency of successful requests.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.001, 2, 16),
		}),
		bytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "response_bytes_total",
			Help:        "Response body bytes read.",
			ConstLabels: labels,
		}),
	}
}

// Record implements metrics.Recorder.
func (e *Exporter) Record(o metrics.Outcome) {
	e.requests.WithLabelValues(o.Kind.String()).Inc()
	if o.Kind != metrics.KindSuccess {
		return
	}
	e.statuses.WithLabelValues(strconv.Itoa(o.StatusCode)).Inc()
	e.latency.Observe(o.Latency.Seconds())
	e.bytes.Add(float64(o.ContentLength))
}

// Registry returns the run's registry.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.reg, promhttp.HandlerOpts{DisableCompression: true})
}

// Server is a running /metrics endpoint.
type Server struct {
	srv    *http.Server
	ln     net.Listener
	logger *zap.Logger
	done   chan struct{}
}

// Serve binds addr and serves /metrics in the background. Binding errors are
// returned immediately.
func (e *Exporter) Serve(addr string, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())

	s := &Server{
		srv: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		ln:     ln,
		logger: logger,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", ln.Addr().String()))
	return s, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Shutdown stops the server and waits for the serve loop to exit.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)
	<-s.done
	return err
}
