package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wsmux/config"
	"wsmux/internal/metrics"
	"wsmux/util"
)

// newStatusRouter exposes the collector over HTTP.
//
// Routes:
//   - GET /healthz - liveness probe
//   - GET /stats   - JSON snapshot of the collector
//   - GET /metrics - Prometheus exposition
func newStatusRouter(c *metrics.Collector) (http.Handler, error) {
	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg, c); err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok\n")) //nolint:errcheck
	})
	r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(c.Snapshot()) //nolint:errcheck
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return r, nil
}

// serveStatus runs the status endpoint on ln until ctx ends.
func serveStatus(ctx context.Context, ln net.Listener, h http.Handler, logger *util.Logger) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.DefaultShutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("status server shutdown: %v", err)
		}
	})
	defer stop()

	logger.Info("status endpoint on http://%s (/metrics, /stats, /healthz)", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
