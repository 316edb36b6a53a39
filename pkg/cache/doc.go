// Package cache provides a Redis-backed response cache used for conditional
// revalidation of Recurly GET requests.
//
// Cached responses are never served on their own. An entry is only used
// after the server confirmed it with 304 Not Modified, so pages are never
// built from data the server has not vouched for.
//
// # Basic Usage
//
//	manager := cache.NewManager(redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	}))
//
//	key := cache.KeyForRequest(req, credentials.Fingerprint())
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// Cache miss - plain request
//	}
//
// # Conditional Requests
//
//	if cache.ShouldMakeConditionalRequest(entry) {
//		cache.AddConditionalHeaders(req, entry)
//		// The server answers 304 if the resource is unchanged
//	}
//
//	// On 304
//	resp = cache.EntryToResponse(entry, req)
//
// # Metrics
//
//   - recurly_cache_hits_total{layer="redis"} - Cache hits
//   - recurly_cache_misses_total - Cache misses
//   - recurly_cache_size_bytes{layer="redis"} - Bytes written to the cache
//   - recurly_conditional_requests_total - Conditional requests sent
//   - recurly_304_responses_total - Conditional request successes
//   - recurly_cache_errors_total{operation} - Cache operation errors
package cache
