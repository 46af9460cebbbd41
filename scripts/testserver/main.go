// Command testserver is a small target for manual barrage runs.
//
//	go run ./scripts/testserver --listen :8080
//	barrage -z 10s "http://localhost:8080/?delay=20ms&status=503&size=512"
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const maxBodySize = 10 << 20

func main() {
	listen := pflag.String("listen", ":8080", "Listen address")
	pflag.Parse()

	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	srv := &http.Server{
		Addr:              *listen,
		Handler:           newHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("test server listening", zap.String("addr", *listen))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server failed", zap.Error(err))
	}
}

// newHandler answers every path. Query knobs:
//
//	delay  Go duration to wait before responding
//	status response status code (default 200)
//	size   response body size in bytes (default 2)
func newHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		if raw := q.Get("delay"); raw != "" {
			delay, err := time.ParseDuration(raw)
			if err != nil {
				http.Error(w, "bad delay: "+err.Error(), http.StatusBadRequest)
				return
			}
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}

		status := http.StatusOK
		if raw := q.Get("status"); raw != "" {
			code, err := strconv.Atoi(raw)
			if err != nil || code < 100 || code > 999 {
				http.Error(w, "bad status", http.StatusBadRequest)
				return
			}
			status = code
		}

		body := "ok"
		if raw := q.Get("size"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 || n > maxBodySize {
				http.Error(w, "bad size", http.StatusBadRequest)
				return
			}
			body = strings.Repeat("x", n)
		}

		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}
