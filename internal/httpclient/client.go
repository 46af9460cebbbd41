package httpclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/loadline/barrage/internal/config"
)

type RequestBuilder struct {
	method  string
	target  string
	host    string
	headers http.Header
	body    *Payload
}

func NewRequestBuilder(cfg *config.Config) (*RequestBuilder, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	target := strings.TrimSpace(cfg.TargetURL)
	if target == "" {
		return nil, errors.New("target URL is required")
	}

	method := strings.TrimSpace(cfg.Method)
	if method == "" {
		method = http.MethodGet
	}
	method = strings.ToUpper(method)

	payload, err := LoadPayload(cfg)
	if err != nil {
		return nil, err
	}

	builder := &RequestBuilder{
		method:  method,
		target:  target,
		headers: http.Header{},
		body:    payload,
	}
	for _, h := range cfg.Headers {
		trimmedKey := strings.TrimSpace(h.Name)
		if trimmedKey == "" || strings.ContainsAny(trimmedKey, " \t\r\n") {
			return nil, fmt.Errorf("invalid header key %q", h.Name)
		}
		canonicalKey := http.CanonicalHeaderKey(trimmedKey)
		if strings.ContainsAny(h.Value, "\r\n") {
			return nil, fmt.Errorf("invalid header value for %s", canonicalKey)
		}
		// net/http sends Host from req.Host, not from the header map.
		if canonicalKey == "Host" {
			builder.host = h.Value
			continue
		}
		builder.headers.Add(canonicalKey, h.Value)
	}

	// Probe once so a malformed target fails before the run starts.
	if _, err := http.NewRequest(method, target, nil); err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}
	return builder, nil
}

// Method returns the request method.
func (b *RequestBuilder) Method() string { return b.method }

// Target returns the request URL.
func (b *RequestBuilder) Target() string { return b.target }

// Payload returns the body sent with every request.
func (b *RequestBuilder) Payload() *Payload { return b.body }

func (b *RequestBuilder) Build(ctx context.Context) (*http.Request, error) {
	if b == nil {
		return nil, errors.New("builder cannot be nil")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	req, err := http.NewRequestWithContext(ctx, b.method, b.target, nil)
	if err != nil {
		return nil, err
	}
	b.body.attach(req)

	req.Header = b.headers.Clone()
	if b.host != "" {
		req.Host = b.host
	}

	return req, nil
}

// ClientOptions tune the shared HTTP client.
type ClientOptions struct {
	Timeout            time.Duration
	MaxConnsPerHost    int // 0 means unlimited
	Insecure           bool
	CACertFile         string
	DisableKeepAlive   bool
	DisableCompression bool
}

// ClientOptionsFromConfig derives client options from cfg.
func ClientOptionsFromConfig(cfg *config.Config) ClientOptions {
	return ClientOptions{
		Timeout:            cfg.Timeout,
		MaxConnsPerHost:    cfg.Concurrency,
		Insecure:           cfg.TLS.Insecure,
		CACertFile:         strings.TrimSpace(cfg.TLS.CACert),
		DisableKeepAlive:   cfg.Transport.DisableKeepAlive,
		DisableCompression: cfg.Transport.DisableCompression,
	}
}

// NewClient builds one client shared by all workers. The idle pool is sized
// to the worker count so connections are reused rather than re-dialed.
func NewClient(opts ClientOptions) (*http.Client, error) {
	timeout := opts.Timeout
	if timeout < 0 {
		timeout = 0
	}

	tlsConfig, err := newTLSConfig(opts)
	if err != nil {
		return nil, err
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	idle := 32
	if opts.MaxConnsPerHost > idle {
		idle = opts.MaxConnsPerHost
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          max(256, idle),
		MaxIdleConnsPerHost:   idle,
		MaxConnsPerHost:       max(opts.MaxConnsPerHost, 0),
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig:       tlsConfig,
		DisableKeepAlives:     opts.DisableKeepAlive,
		DisableCompression:    opts.DisableCompression,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}, nil
}

func newTLSConfig(opts ClientOptions) (*tls.Config, error) {
	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: opts.Insecure,
	}
	if opts.CACertFile == "" {
		return cfg, nil
	}
	pem, err := os.ReadFile(opts.CACertFile)
	if err != nil {
		return nil, fmt.Errorf("ca cert: %w", err)
	}
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("ca cert %s: no PEM certificates found", opts.CACertFile)
	}
	cfg.RootCAs = pool
	return cfg, nil
}
