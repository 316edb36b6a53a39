package client

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Sternrassler/recurly-client/pkg/xmlcodec"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrRequestBlocked is returned when the rate limiter refuses a request.
	ErrRequestBlocked = errors.New("request blocked: rate limit critical")
)

// ErrorClass represents a classification of HTTP errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 rate limit errors.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// ErrorDetail is a single error reported by the API in the response body.
type ErrorDetail struct {
	// Field is the offending request field, e.g. "account.email".
	Field string

	// Symbol is the machine readable error code, e.g. "taken" or "not_found".
	Symbol string

	Description string
}

// TransportError reports an HTTP level failure: a network error or a
// response with status >= 400.
type TransportError struct {
	Method     string
	URL        string
	StatusCode int
	ErrorClass ErrorClass
	Message    string

	// RequestID is the X-Request-Id sent with the failing request.
	RequestID string

	// Details holds the errors parsed from the response body, if any.
	Details []ErrorDetail

	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "recurly %s error", e.ErrorClass)
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	fmt.Fprintf(&b, ": %s %s", e.Method, e.URL)
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Symbol returns the symbol of the first reported error detail.
func (e *TransportError) Symbol() string {
	if len(e.Details) == 0 {
		return ""
	}
	return e.Details[0].Symbol
}

// classifyStatus maps an HTTP status code to an ErrorClass.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		// 4xx errors are deterministic; repeating them only burns rate limit budget.
		return false
	}
}

// newStatusError builds a TransportError from an error response.
func newStatusError(req *http.Request, resp *http.Response, body []byte) *TransportError {
	te := &TransportError{
		Method:     req.Method,
		URL:        req.URL.String(),
		StatusCode: resp.StatusCode,
		ErrorClass: classifyStatus(resp.StatusCode),
		Message:    resp.Status,
		RequestID:  req.Header.Get(headerRequestID),
	}

	details, err := parseErrorBody(body)
	if err != nil {
		te.Err = err
	}
	te.Details = details
	if len(details) > 0 && details[0].Description != "" {
		te.Message = details[0].Description
	}
	return te
}

// newNetworkError wraps a failure that produced no response.
func newNetworkError(req *http.Request, err error) *TransportError {
	return &TransportError{
		Method:     req.Method,
		URL:        req.URL.String(),
		ErrorClass: ErrorClassNetwork,
		Message:    "request failed",
		RequestID:  req.Header.Get(headerRequestID),
		Err:        err,
	}
}

// parseErrorBody decodes the two error document shapes of the API:
//
//	<errors><error field="account.email" symbol="invalid_email">is invalid</error></errors>
//	<error><symbol>not_found</symbol><description>Couldn't find Account</description></error>
//
// Bodies that are empty or not XML yield no details and no error.
func parseErrorBody(body []byte) ([]ErrorDetail, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '<' {
		return nil, nil
	}

	r := xmlcodec.NewReader(bytes.NewReader(trimmed))
	root, err := r.Root()
	if err != nil {
		if errors.Is(err, xmlcodec.ErrEmptyDocument) {
			return nil, nil
		}
		return nil, fmt.Errorf("parse error body: %w", err)
	}

	var details []ErrorDetail
	switch root {
	case "errors":
		err = r.EachChild(func(name string) error {
			if name != "error" {
				return nil
			}
			d := ErrorDetail{Field: r.Attr("field"), Symbol: r.Attr("symbol")}
			text, err := r.Text()
			d.Description = strings.TrimSpace(text)
			details = append(details, d)
			return err
		})
	case "error":
		var d ErrorDetail
		err = r.EachChild(func(name string) error {
			var err error
			switch name {
			case "symbol":
				d.Symbol, err = r.Text()
			case "description":
				d.Description, err = r.Text()
			case "details":
				var text string
				text, err = r.Text()
				if d.Description == "" {
					d.Description = text
				}
			}
			return err
		})
		d.Symbol = strings.TrimSpace(d.Symbol)
		d.Description = strings.TrimSpace(d.Description)
		details = append(details, d)
	}
	if err != nil {
		return details, fmt.Errorf("parse error body: %w", err)
	}
	return details, nil
}
