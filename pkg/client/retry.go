package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for retry operations.
var (
	recurlyRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recurly_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	recurlyRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recurly_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	recurlyRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recurly_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// RetryConfigForErrorClass derives the retry configuration for an error
// class from base. With the default base this yields 1s..10s for server
// errors, 5s..60s for rate limiting and 2s..30s for network errors.
func RetryConfigForErrorClass(base RetryConfig, errorClass ErrorClass) RetryConfig {
	cfg := base
	switch errorClass {
	case ErrorClassServer:
		cfg.MaxBackoff = base.MaxBackoff / 3
	case ErrorClassRateLimit:
		cfg.InitialBackoff = base.InitialBackoff * 5
		cfg.MaxBackoff = base.MaxBackoff * 2
	case ErrorClassNetwork:
		cfg.InitialBackoff = base.InitialBackoff * 2
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}
	return cfg
}

// newExponentialBackOff builds a jittered (±20%) exponential backoff that
// never gives up on elapsed time; attempts are bounded by the caller.
func newExponentialBackOff(cfg RetryConfig) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialBackoff
	b.MaxInterval = cfg.MaxBackoff
	b.Multiplier = cfg.BackoffMultiplier
	b.RandomizationFactor = 0.2
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// classBackOff switches between per-class backoff schedules depending on
// the class of the most recent failure.
type classBackOff struct {
	class *ErrorClass
	offs  map[ErrorClass]backoff.BackOff
}

func newClassBackOff(base RetryConfig, class *ErrorClass) *classBackOff {
	offs := make(map[ErrorClass]backoff.BackOff, 3)
	for _, c := range []ErrorClass{ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork} {
		offs[c] = newExponentialBackOff(RetryConfigForErrorClass(base, c))
	}
	return &classBackOff{class: class, offs: offs}
}

// NextBackOff implements backoff.BackOff.
func (b *classBackOff) NextBackOff() time.Duration {
	off, ok := b.offs[*b.class]
	if !ok {
		return backoff.Stop
	}
	return off.NextBackOff()
}

// Reset implements backoff.BackOff.
func (b *classBackOff) Reset() {
	for _, off := range b.offs {
		off.Reset()
	}
}

// isIdempotent reports whether a request with method may be repeated
// without side effects.
func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}

// attemptFunc performs one attempt. A nil error ends the retry loop; an
// error with a retriable class triggers another attempt.
type attemptFunc func() (ErrorClass, error)

// retryWithBackoff executes fn with exponential backoff retry logic.
// Non-idempotent methods are attempted exactly once. Context cancellation
// during a backoff pause aborts with ErrContextCancelled.
func (c *Client) retryWithBackoff(ctx context.Context, method string, fn attemptFunc) error {
	cfg := c.config.retryConfig()

	var errClass ErrorClass
	attempts := 0
	operation := func() error {
		attempts++
		class, err := fn()
		if err == nil {
			if attempts > 1 {
				c.logger.Info().
					Str("error_class", string(errClass)).
					Int("attempt", attempts).
					Msg("Request succeeded after retry")
			}
			return nil
		}
		errClass = class
		if !shouldRetry(class) || !isIdempotent(method) {
			return backoff.Permanent(err)
		}
		return err
	}

	var b backoff.BackOff = newClassBackOff(cfg, &errClass)
	b = backoff.WithMaxRetries(b, uint64(max(cfg.MaxAttempts-1, 0)))
	b = backoff.WithContext(b, ctx)

	notify := func(err error, wait time.Duration) {
		recurlyRetriesTotal.WithLabelValues(string(errClass)).Inc()
		recurlyRetryBackoffSeconds.WithLabelValues(string(errClass)).Observe(wait.Seconds())
		c.logger.Debug().
			Err(err).
			Str("error_class", string(errClass)).
			Int("attempt", attempts).
			Dur("backoff", wait).
			Msg("Retrying request after backoff")
	}

	err := backoff.RetryNotify(operation, b, notify)
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		c.logger.Warn().
			Str("error_class", string(errClass)).
			Int("attempt", attempts).
			Msg("Context cancelled during retry backoff")
		return fmt.Errorf("%w: %w", ErrContextCancelled, ctxErr)
	}

	if attempts > 1 && shouldRetry(errClass) && isIdempotent(method) {
		recurlyRetryExhaustedTotal.WithLabelValues(string(errClass)).Inc()
		c.logger.Error().
			Str("error_class", string(errClass)).
			Int("max_attempts", attempts).
			Msg("Retry attempts exhausted")
		return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempts, err)
	}
	return err
}
