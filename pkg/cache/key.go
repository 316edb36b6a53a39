package cache

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// keyPrefix starts every cache key.
const keyPrefix = "recurly"

// CacheKey represents a unique identifier for a cached response.
type CacheKey struct {
	// Method is the HTTP method (only GET responses are cached).
	Method string

	// Path is the request path (e.g., "/v2/accounts").
	Path string

	// Query holds the query parameters (e.g., {"per_page": "20"}).
	Query url.Values

	// Scope isolates entries per credential (an API key fingerprint).
	Scope string
}

// KeyForRequest builds the cache key for req within scope.
func KeyForRequest(req *http.Request, scope string) CacheKey {
	return CacheKey{
		Method: req.Method,
		Path:   req.URL.Path,
		Query:  req.URL.Query(),
		Scope:  scope,
	}
}

// String generates a deterministic cache key string.
// Format: recurly:method:path:query1=val1:query2=val2:scope
//
// Example:
//
//	recurly:get:v2/accounts:cursor=abc:per_page=20:9f86d081884c7d65
func (k CacheKey) String() string {
	parts := []string{keyPrefix, strings.ToLower(k.Method)}

	// Add path (normalized)
	if path := strings.Trim(k.Path, "/"); path != "" {
		parts = append(parts, path)
	}

	// Add query params (sorted for determinism)
	if len(k.Query) > 0 {
		queryKeys := make([]string, 0, len(k.Query))
		for key := range k.Query {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, key+"="+strings.Join(k.Query[key], ","))
		}
	}

	if k.Scope != "" {
		parts = append(parts, k.Scope)
	}

	return strings.Join(parts, ":")
}
