package xmlcodec

import (
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	xpp "github.com/mmcdole/goxpp"
	"golang.org/x/net/html/charset"
)

// TimeLayout is the timestamp encoding used on the wire.
const TimeLayout = time.RFC3339

// Reader is a forward-only XML pull reader.
//
// Read helpers (Text, Int, Skip, ...) must be called while the reader is
// positioned on a start tag and leave it on the matching end tag.
type Reader struct {
	p *xpp.XMLPullParser
}

// NewReader creates a Reader over r. Documents declaring a non UTF-8
// encoding are transcoded.
func NewReader(r io.Reader) *Reader {
	return &Reader{p: xpp.NewXMLPullParser(r, true, charset.NewReaderLabel)}
}

// Root advances to the document's root element and returns its name.
// Returns ErrEmptyDocument when the document contains no element.
func (r *Reader) Root() (string, error) {
	for {
		ev, err := r.p.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", ErrEmptyDocument
			}
			return "", &ParseError{Element: "#document", Err: err}
		}
		switch ev {
		case xpp.StartTag:
			return r.p.Name, nil
		case xpp.EndDocument:
			return "", ErrEmptyDocument
		}
	}
}

// Name returns the local name of the current element.
func (r *Reader) Name() string {
	return r.p.Name
}

// Attr returns the value of the named attribute on the current start tag.
func (r *Reader) Attr(name string) string {
	for _, a := range r.p.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// IsNil reports whether the current start tag is marked nil="nil".
func (r *Reader) IsNil() bool {
	v := r.Attr("nil")
	return v == "nil" || v == "true"
}

// EachChild calls fn for every child element of the current element, with
// the reader positioned on the child's start tag. Children fn leaves
// unconsumed are skipped. On return the reader is on the current
// element's end tag.
func (r *Reader) EachChild(fn func(name string) error) error {
	if r.p.Event != xpp.StartTag {
		return &ParseError{Element: r.p.Name, Err: errNotOnStartTag}
	}
	parent := r.p.Name

	for {
		ev, err := r.p.Next()
		if err != nil {
			return &ParseError{Element: parent, Err: err}
		}

		switch ev {
		case xpp.EndTag:
			return nil
		case xpp.EndDocument:
			return &ParseError{Element: parent, Err: io.ErrUnexpectedEOF}
		case xpp.StartTag:
			name := r.p.Name
			if err := fn(name); err != nil {
				return err
			}
			if r.p.Event == xpp.StartTag {
				if err := r.p.Skip(); err != nil {
					return &ParseError{Element: name, Err: err}
				}
			}
		}
	}
}

// Skip consumes the current element including all of its children.
func (r *Reader) Skip() error {
	name := r.p.Name
	if err := r.p.Skip(); err != nil {
		return &ParseError{Element: name, Err: err}
	}
	return nil
}

// Text returns the character content of the current element.
func (r *Reader) Text() (string, error) {
	name := r.p.Name
	s, err := r.p.NextText()
	if err != nil {
		return "", &ParseError{Element: name, Err: err}
	}
	return s, nil
}

// OptionalString returns nil for a nil-marked element, the content otherwise.
func (r *Reader) OptionalString() (*string, error) {
	isNil := r.IsNil()
	s, err := r.Text()
	if err != nil || isNil {
		return nil, err
	}
	return &s, nil
}

// Int decodes the element content as a decimal integer.
func (r *Reader) Int() (int, error) {
	name := r.p.Name
	s, err := r.Text()
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, &ParseError{Element: name, Value: s, Err: err}
	}
	return v, nil
}

// IntOrDefault decodes the element content as a decimal integer and
// returns def when the content is not a number.
func (r *Reader) IntOrDefault(def int) (int, error) {
	s, err := r.Text()
	if err != nil {
		return def, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def, nil
	}
	return v, nil
}

// OptionalInt returns nil for nil-marked or empty elements.
func (r *Reader) OptionalInt() (*int, error) {
	name := r.p.Name
	isNil := r.IsNil()
	s, err := r.Text()
	if err != nil {
		return nil, err
	}
	s = strings.TrimSpace(s)
	if isNil || s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, &ParseError{Element: name, Value: s, Err: err}
	}
	return &v, nil
}

// Bool decodes the element content as a boolean.
func (r *Reader) Bool() (bool, error) {
	name := r.p.Name
	s, err := r.Text()
	if err != nil {
		return false, err
	}
	v, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false, &ParseError{Element: name, Value: s, Err: err}
	}
	return v, nil
}

// OptionalBool returns nil for nil-marked or empty elements.
func (r *Reader) OptionalBool() (*bool, error) {
	name := r.p.Name
	isNil := r.IsNil()
	s, err := r.Text()
	if err != nil {
		return nil, err
	}
	s = strings.TrimSpace(s)
	if isNil || s == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil, &ParseError{Element: name, Value: s, Err: err}
	}
	return &v, nil
}

// OptionalTime decodes an RFC 3339 timestamp, nil for nil-marked or empty
// elements.
func (r *Reader) OptionalTime() (*time.Time, error) {
	name := r.p.Name
	isNil := r.IsNil()
	s, err := r.Text()
	if err != nil {
		return nil, err
	}
	s = strings.TrimSpace(s)
	if isNil || s == "" {
		return nil, nil
	}
	v, err := time.Parse(TimeLayout, s)
	if err != nil {
		return nil, &ParseError{Element: name, Value: s, Err: err}
	}
	v = v.UTC()
	return &v, nil
}

// Enum decodes the element content as one of the allowed tokens.
func Enum[E ~string](r *Reader, allowed ...E) (E, error) {
	name := r.Name()
	s, err := r.Text()
	if err != nil {
		return "", err
	}
	s = strings.TrimSpace(s)
	for _, tok := range allowed {
		if string(tok) == s {
			return tok, nil
		}
	}
	return "", &ParseError{Element: name, Value: s, Err: ErrUnknownToken}
}

// OptionalEnum is Enum returning nil for nil-marked or empty elements.
func OptionalEnum[E ~string](r *Reader, allowed ...E) (*E, error) {
	name := r.Name()
	isNil := r.IsNil()
	s, err := r.Text()
	if err != nil {
		return nil, err
	}
	s = strings.TrimSpace(s)
	if isNil || s == "" {
		return nil, nil
	}
	for _, tok := range allowed {
		if string(tok) == s {
			return &tok, nil
		}
	}
	return nil, &ParseError{Element: name, Value: s, Err: ErrUnknownToken}
}
