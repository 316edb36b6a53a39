// Package client provides the Recurly HTTP request orchestrator with rate
// limiting, conditional caching, retries and XML error handling.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/recurly-client/internal/auth"
	"github.com/Sternrassler/recurly-client/pkg/cache"
	"github.com/Sternrassler/recurly-client/pkg/logging"
	"github.com/Sternrassler/recurly-client/pkg/ratelimit"
)

// Prometheus metrics for client operations.
var (
	recurlyRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recurly_requests_total",
		Help: "Total Recurly requests by endpoint and status",
	}, []string{"endpoint", "status"})

	recurlyRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recurly_request_duration_seconds",
		Help:    "Recurly request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	recurlyErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recurly_errors_total",
		Help: "Total Recurly errors by class",
	}, []string{"class"})
)

const (
	// DefaultAPIVersion is sent in the X-Api-Version header.
	DefaultAPIVersion = "2.29"

	// DefaultPageSize is the per_page value used when none is configured.
	DefaultPageSize = 50

	// MaxPageSize is the largest page size the API accepts.
	MaxPageSize = 200

	// DefaultUserAgent identifies this client.
	DefaultUserAgent = "recurly-client-go/1.0"

	// maxBodySize bounds how much of a response body is buffered.
	maxBodySize = 32 << 20

	headerRequestID = "X-Request-Id"
)

// Client is the Recurly request orchestrator.
type Client struct {
	httpClient  *http.Client
	credentials *auth.Credentials
	rateLimiter *ratelimit.Tracker
	cache       *cache.Manager
	config      Config
	baseURL     *url.URL
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API root, e.g. "https://mysite.recurly.com/v2".
	BaseURL string

	// APIKey is the private API key, sent as the Basic auth user name.
	APIKey string

	// APIVersion is sent as X-Api-Version.
	APIVersion string

	// UserAgent header.
	UserAgent string

	// PageSize is appended as per_page to every list URL (1..200).
	PageSize int

	// Redis enables the response cache and shares rate limit state across
	// processes. Optional.
	Redis *redis.Client

	// CacheTTL bounds how long cached responses are kept for revalidation.
	CacheTTL time.Duration

	// Timeout for a single HTTP round trip.
	Timeout time.Duration

	// Retry
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL, apiKey string) Config {
	return Config{
		BaseURL:        baseURL,
		APIKey:         apiKey,
		APIVersion:     DefaultAPIVersion,
		UserAgent:      DefaultUserAgent,
		PageSize:       DefaultPageSize,
		CacheTTL:       cache.DefaultTTL,
		Timeout:        30 * time.Second,
		MaxRetries:     3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
	}
}

func (cfg Config) retryConfig() RetryConfig {
	rc := DefaultRetryConfig()
	rc.MaxAttempts = cfg.MaxRetries
	if cfg.InitialBackoff > 0 {
		rc.InitialBackoff = cfg.InitialBackoff
	}
	if cfg.MaxBackoff > 0 {
		rc.MaxBackoff = cfg.MaxBackoff
	}
	return rc
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || !base.IsAbs() {
		return nil, fmt.Errorf("base url must be absolute (got %q)", cfg.BaseURL)
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	if cfg.PageSize == 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.PageSize < 1 || cfg.PageSize > MaxPageSize {
		return nil, fmt.Errorf("page_size must be between 1 and %d (got %d)", MaxPageSize, cfg.PageSize)
	}

	if cfg.MaxRetries < 1 {
		return nil, fmt.Errorf("max_retries must be >= 1 (got %d)", cfg.MaxRetries)
	}

	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = cache.DefaultTTL
	}

	logger := logging.NewLogger("recurly-client")
	credentials := &auth.Credentials{APIKey: cfg.APIKey}

	// Rate limit state is shared through Redis when available
	var store ratelimit.Store = ratelimit.NewMemoryStore()
	var cacheManager *cache.Manager
	if cfg.Redis != nil {
		store = ratelimit.NewRedisStore(cfg.Redis, credentials.Fingerprint())
		cacheManager = cache.NewManager(cfg.Redis)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		credentials: credentials,
		rateLimiter: ratelimit.NewTracker(store, logging.NewLogger("ratelimit")),
		cache:       cacheManager,
		config:      cfg,
		baseURL:     base,
		logger:      logger,
	}, nil
}

// PageSize returns the configured per_page value.
func (c *Client) PageSize() int {
	return c.config.PageSize
}

// Do performs an HTTP request with rate limiting, caching, and error handling.
// This is the core request method that orchestrates all client features.
//
// The returned response body is fully buffered. Responses with status >= 400
// that are not retried are returned as-is; callers that want a
// TransportError use PerformRequest.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := c.endpointLabel(req.URL.Path)

	// Start request timing
	startTime := time.Now()
	defer func() {
		recurlyRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Check Rate Limit
	allowed, err := c.rateLimiter.ShouldAllowRequest(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("Rate limit check failed")
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if !allowed {
		c.logger.Error().
			Str("endpoint", endpoint).
			Msg("Request blocked by rate limiter")
		recurlyRequestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
		return nil, ErrRequestBlocked
	}

	// Step 2: Check Cache (GET only)
	var cacheKey cache.CacheKey
	var cachedEntry *cache.CacheEntry
	if c.cache != nil && req.Method == http.MethodGet {
		cacheKey = cache.KeyForRequest(req, c.credentials.Fingerprint())
		cachedEntry, err = c.cache.Get(ctx, cacheKey)
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
	}

	// Step 3: Make Conditional Request if cache hit
	if cache.ShouldMakeConditionalRequest(cachedEntry) {
		cache.AddConditionalHeaders(req, cachedEntry)
		cache.ConditionalRequestsSent.Inc()
		c.logger.Debug().
			Str("endpoint", endpoint).
			Str("etag", cachedEntry.ETag).
			Msg("Making conditional request")
	}

	// Step 4: Authentication and default headers
	c.applyHeaders(req)

	// Step 5: Execute HTTP Request with Retry Logic
	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Str("request_id", req.Header.Get(headerRequestID)).
		Msg("Executing Recurly request")

	var resp *http.Response
	retryErr := c.retryWithBackoff(ctx, req.Method, func() (ErrorClass, error) {
		attempt, err := rewind(req)
		if err != nil {
			return "", fmt.Errorf("rewind request body: %w", err)
		}

		httpResp, err := c.httpClient.Do(attempt)
		if err != nil {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
			recurlyErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			recurlyRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return ErrorClassNetwork, newNetworkError(attempt, err)
		}

		body, err := readBody(httpResp)
		if err != nil {
			recurlyErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			return ErrorClassNetwork, newNetworkError(attempt, err)
		}
		httpResp.Body = io.NopCloser(bytes.NewReader(body))
		resp = httpResp

		// Step 6: Update Rate Limit from headers
		if err := c.rateLimiter.UpdateFromHeaders(ctx, httpResp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
		}

		// 304 Not Modified is handled below
		if httpResp.StatusCode == http.StatusNotModified {
			return "", nil
		}

		if httpResp.StatusCode >= 400 {
			errClass := classifyStatus(httpResp.StatusCode)
			recurlyErrorsTotal.WithLabelValues(string(errClass)).Inc()
			recurlyRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(httpResp.StatusCode)).Inc()

			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", httpResp.StatusCode).
				Str("error_class", string(errClass)).
				Msg("Recurly request error")

			if shouldRetry(errClass) {
				return errClass, newStatusError(attempt, httpResp, body)
			}

			// Client errors are not retried; the caller handles the status
			return "", nil
		}

		recurlyRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(httpResp.StatusCode)).Inc()
		return "", nil
	})
	if retryErr != nil {
		return nil, retryErr
	}

	// Step 7: Handle 304 Not Modified
	if resp.StatusCode == http.StatusNotModified && cachedEntry != nil {
		c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified - using cache")
		recurlyRequestsTotal.WithLabelValues(endpoint, "304").Inc()
		cache.NotModifiedResponses.Inc()

		if err := c.cache.Refresh(ctx, cacheKey, cachedEntry, c.config.CacheTTL); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to refresh cache entry")
		}
		return cache.EntryToResponse(cachedEntry, req), nil
	}

	// Step 8: Update Cache on success
	if c.cache != nil && req.Method == http.MethodGet && resp.StatusCode == http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body = io.NopCloser(bytes.NewReader(body))

		entry := cache.NewEntry(resp.StatusCode, resp.Header, body, c.config.CacheTTL)
		if cache.ShouldMakeConditionalRequest(entry) {
			if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to cache response")
			} else {
				c.logger.Debug().
					Str("endpoint", endpoint).
					Dur("ttl", entry.TTL()).
					Msg("Cached response")
			}
		}
	}

	return resp, nil
}

// applyHeaders sets authentication and the default request headers.
func (c *Client) applyHeaders(req *http.Request) {
	c.credentials.Apply(req)
	req.Header.Set("Accept", "application/xml")
	req.Header.Set("X-Api-Version", c.config.APIVersion)
	req.Header.Set("User-Agent", c.config.UserAgent)
	if req.Header.Get(headerRequestID) == "" {
		req.Header.Set(headerRequestID, uuid.NewString())
	}
	if req.Body != nil && req.Body != http.NoBody {
		req.Header.Set("Content-Type", "application/xml; charset=utf-8")
	}
}

// endpointLabel reduces a request path to its first segment below the base
// path, keeping metric label cardinality bounded.
func (c *Client) endpointLabel(path string) string {
	path = strings.TrimPrefix(path, c.baseURL.Path)
	path = strings.Trim(path, "/")
	if path == "" {
		return "/"
	}
	first, _, _ := strings.Cut(path, "/")
	return "/" + first
}

// resolve joins relative URLs to the base URL; absolute URLs are kept.
func (c *Client) resolve(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.IsAbs() {
		return raw, nil
	}
	return c.baseURL.String() + "/" + strings.TrimPrefix(raw, "/"), nil
}

// rewind returns req with a fresh body so it can be sent again.
func rewind(req *http.Request) (*http.Request, error) {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody == nil {
		return req, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	attempt := req.Clone(req.Context())
	attempt.Body = body
	return attempt, nil
}

// readBody buffers and closes the response body.
func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if len(body) > maxBodySize {
		return nil, fmt.Errorf("response body exceeds %d bytes", maxBodySize)
	}
	return body, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// PurgeCache drops every cached response of this client's credentials.
// It is a no-op without Redis.
func (c *Client) PurgeCache(ctx context.Context) (int, error) {
	if c.cache == nil {
		return 0, nil
	}
	return c.cache.Purge(ctx, c.credentials.Fingerprint())
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// GetCache returns the cache manager, nil when caching is disabled.
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}

// RateLimiter returns the rate limit tracker.
func (c *Client) RateLimiter() *ratelimit.Tracker {
	return c.rateLimiter
}
