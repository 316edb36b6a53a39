// Package testutil provides a mock Recurly API server for tests.
package testutil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest is a request received by the mock server.
type RecordedRequest struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     string
}

// URL returns the request path with its query.
func (r RecordedRequest) URL() string {
	if r.RawQuery == "" {
		return r.Path
	}
	return r.Path + "?" + r.RawQuery
}

// MockAPI is a configurable mock API server routed by chi. Routes use chi
// patterns, e.g. "/v2/accounts/{code}".
type MockAPI struct {
	server   *httptest.Server
	router   chi.Router
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	requests         []RecordedRequest
	conditionalCount int
}

// NewMockAPI creates and starts a mock API server.
func NewMockAPI() *MockAPI {
	m := &MockAPI{
		router:   chi.NewRouter(),
		handlers: make(map[string]http.HandlerFunc),
	}

	m.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteResponse(w, NewErrorResponse(http.StatusNotFound, "not_found", "The requested resource was not found"))
	})

	// Recorded outside chi so unrouted requests are counted too
	m.server = httptest.NewServer(m.record(m.router))
	return m
}

// record tracks every request before routing.
func (m *MockAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body.Close()
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		m.mu.Lock()
		m.requests = append(m.requests, RecordedRequest{
			Method:   r.Method,
			Path:     r.URL.Path,
			RawQuery: r.URL.RawQuery,
			Header:   r.Header.Clone(),
			Body:     string(body),
		})
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			m.conditionalCount++
		}
		m.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears all recorded requests.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.conditionalCount = 0
}

// SetHandler installs handler for method and pattern, replacing any
// previous handler for the same route.
func (m *MockAPI) SetHandler(method, pattern string, handler http.HandlerFunc) {
	key := method + " " + pattern

	m.mu.Lock()
	_, exists := m.handlers[key]
	m.handlers[key] = handler
	m.mu.Unlock()

	if !exists {
		m.router.Method(method, pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.mu.RLock()
			h := m.handlers[key]
			m.mu.RUnlock()
			h(w, r)
		}))
	}
}

// SetResponse configures a fixed response for method and pattern.
func (m *MockAPI) SetResponse(method, pattern string, resp MockResponse) {
	m.SetHandler(method, pattern, func(w http.ResponseWriter, r *http.Request) {
		WriteResponse(w, resp)
	})
}

// SetSequence answers successive requests with responses in order; the
// last response repeats once the sequence is exhausted.
func (m *MockAPI) SetSequence(method, pattern string, responses ...MockResponse) {
	var mu sync.Mutex
	i := 0
	m.SetHandler(method, pattern, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		resp := responses[min(i, len(responses)-1)]
		i++
		mu.Unlock()
		WriteResponse(w, resp)
	})
}

// Requests returns a copy of all recorded requests.
func (m *MockAPI) Requests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// LastRequest returns the most recent request.
func (m *MockAPI) LastRequest() (RecordedRequest, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.requests) == 0 {
		return RecordedRequest{}, false
	}
	return m.requests[len(m.requests)-1], true
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockAPI) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conditionalCount
}

// WriteResponse writes resp to w, adding default rate limit headers.
func WriteResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}

	setRateLimitHeaders(w.Header(), 1999)
	if resp.Body != "" {
		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}

	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if resp.Body != "" {
		io.WriteString(w, resp.Body)
	}
}

func setRateLimitHeaders(h http.Header, remaining int) {
	h.Set("X-RateLimit-Limit", "2000")
	h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(5*time.Minute).Unix(), 10))
}

// Links holds the cursor URLs of a collection response.
type Links struct {
	Start string
	Next  string
	Prev  string
}

// Header renders the links as a Link header value.
func (l Links) Header() string {
	var parts []string
	for _, link := range []struct{ url, rel string }{{l.Start, "start"}, {l.Prev, "prev"}, {l.Next, "next"}} {
		if link.url != "" {
			parts = append(parts, fmt.Sprintf("<%s>; rel=\"%s\"", link.url, link.rel))
		}
	}
	return strings.Join(parts, ", ")
}

// NewXMLResponse creates a 200 OK response carrying an XML document.
func NewXMLResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
	}
}

// NewListResponse creates a collection response. records < 0 omits
// X-Records.
func NewListResponse(body string, records int, links Links) MockResponse {
	resp := NewXMLResponse(body)
	resp.Headers = map[string]string{}
	if records >= 0 {
		resp.Headers["X-Records"] = strconv.Itoa(records)
	}
	if h := links.Header(); h != "" {
		resp.Headers["Link"] = h
	}
	return resp
}

// Collection renders a collection document with root element root wrapping
// the given entity elements.
func Collection(root string, elements ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	fmt.Fprintf(&b, "<%s type=\"array\">\n", root)
	for _, e := range elements {
		b.WriteString("  " + e + "\n")
	}
	fmt.Fprintf(&b, "</%s>\n", root)
	return b.String()
}

// NewErrorResponse creates an error response with a single <error> document.
func NewErrorResponse(status int, symbol, description string) MockResponse {
	return MockResponse{
		StatusCode: status,
		Body: fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<error>
  <symbol>%s</symbol>
  <description lang="en-US">%s</description>
</error>`, symbol, description),
	}
}

// NewValidationErrorResponse creates a 422 response with field errors,
// given as field, symbol, message triples.
func NewValidationErrorResponse(fields ...[3]string) MockResponse {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n<errors>\n")
	for _, f := range fields {
		fmt.Fprintf(&b, "  <error field=\"%s\" symbol=\"%s\">%s</error>\n", f[0], f[1], f[2])
	}
	b.WriteString("</errors>")
	return MockResponse{StatusCode: http.StatusUnprocessableEntity, Body: b.String()}
}

// NewNotModifiedResponse creates a 304 Not Modified response.
func NewNotModifiedResponse() MockResponse {
	return MockResponse{StatusCode: http.StatusNotModified}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	resp := NewErrorResponse(http.StatusTooManyRequests, "rate_limited", "You have made too many API requests")
	resp.Headers = map[string]string{"X-RateLimit-Remaining": "0"}
	return resp
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return NewErrorResponse(http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred")
}

// NewConditionalHandler answers 304 when If-None-Match matches etag and
// the full document otherwise.
func NewConditionalHandler(etag string, resp MockResponse) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == etag {
			WriteResponse(w, NewNotModifiedResponse())
			return
		}
		full := resp
		full.Headers = map[string]string{"ETag": etag}
		for k, v := range resp.Headers {
			full.Headers[k] = v
		}
		WriteResponse(w, full)
	}
}
