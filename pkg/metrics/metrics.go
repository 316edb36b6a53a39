// Package metrics exposes the Prometheus metrics of the Recurly client.
// All metrics are defined in their respective packages (client, cache,
// ratelimit, list) and registered via promauto; this package serves them.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the client.
var Registry = prometheus.DefaultRegisterer

// Handler returns the HTTP handler serving all registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Metrics Documentation
//
// Rate Limit Metrics (pkg/ratelimit):
//   - recurly_rate_limit_remaining (Gauge): Requests remaining in the current window
//   - recurly_rate_limit_blocks_total (Counter): Requests blocked due to critical rate limit
//   - recurly_rate_limit_throttles_total (Counter): Requests throttled due to warning rate limit
//
// Cache Metrics (pkg/cache):
//   - recurly_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - recurly_cache_misses_total (Counter): Cache misses
//   - recurly_cache_size_bytes{layer="redis"} (Gauge): Bytes written to the cache
//   - recurly_304_responses_total (Counter): 304 Not Modified responses
//   - recurly_conditional_requests_total (Counter): Conditional requests sent
//   - recurly_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/client):
//   - recurly_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - recurly_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - recurly_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - recurly_retries_total{error_class} (Counter): Retry attempts by error class
//   - recurly_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - recurly_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// List Metrics (pkg/list):
//   - recurly_list_fetches_total{element, result} (Counter): Page fetches by entity element
//   - recurly_list_items_total{element} (Counter): Entities parsed into pages
//
// Example Prometheus Queries:
//
//	# Rate limit headroom
//	recurly_rate_limit_remaining < 20
//
//	# Request Error Rate
//	rate(recurly_errors_total[5m])
//
//	# P95 Request Latency
//	histogram_quantile(0.95, rate(recurly_request_duration_seconds_bucket[5m]))
//
//	# Average page size
//	rate(recurly_list_items_total[5m]) / rate(recurly_list_fetches_total{result="ok"}[5m])
