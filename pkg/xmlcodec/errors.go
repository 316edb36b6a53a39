package xmlcodec

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyDocument is returned when a document has no root element.
	ErrEmptyDocument = errors.New("xml document has no root element")

	// ErrUnexpectedElement is returned when a document's root element is not
	// the one the caller asked for.
	ErrUnexpectedElement = errors.New("unexpected element")

	// ErrUnknownToken is returned when an enum element carries a token the
	// mapping does not know.
	ErrUnknownToken = errors.New("unknown token")

	errNotOnStartTag = errors.New("reader is not positioned on a start tag")
)

// ParseError reports malformed or unexpected content for a single element.
type ParseError struct {
	// Element is the local name of the offending element.
	Element string

	// Value is the raw text that failed to decode, if any.
	Value string

	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("xml: element <%s>: invalid value %q: %v", e.Element, e.Value, e.Err)
	}
	return fmt.Sprintf("xml: element <%s>: %v", e.Element, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ParseError) Unwrap() error {
	return e.Err
}
