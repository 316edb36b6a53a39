package xmlcodec

import (
	"encoding/xml"
	"io"
	"strconv"
	"time"
)

// Writer emits XML elements to an underlying stream.
//
// The first error is retained; subsequent calls are no-ops and the error
// is reported by Err, Flush and Close.
type Writer struct {
	enc *xml.Encoder
	err error
}

// NewWriter creates a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: xml.NewEncoder(w)}
}

func (w *Writer) token(t xml.Token) {
	if w.err != nil {
		return
	}
	w.err = w.enc.EncodeToken(t)
}

// Start opens an element.
func (w *Writer) Start(name string) {
	w.token(xml.StartElement{Name: xml.Name{Local: name}})
}

// End closes an element opened with Start.
func (w *Writer) End(name string) {
	w.token(xml.EndElement{Name: xml.Name{Local: name}})
}

// Element writes <name>value</name>.
func (w *Writer) Element(name, value string) {
	w.Start(name)
	if value != "" {
		w.token(xml.CharData(value))
	}
	w.End(name)
}

// OptionalElement writes the element only when value is set.
func (w *Writer) OptionalElement(name string, value *string) {
	if value != nil {
		w.Element(name, *value)
	}
}

// Int writes an integer element.
func (w *Writer) Int(name string, v int) {
	w.Element(name, strconv.Itoa(v))
}

// OptionalInt writes the element only when v is set.
func (w *Writer) OptionalInt(name string, v *int) {
	if v != nil {
		w.Int(name, *v)
	}
}

// Bool writes a boolean element.
func (w *Writer) Bool(name string, v bool) {
	w.Element(name, strconv.FormatBool(v))
}

// OptionalBool writes the element only when v is set.
func (w *Writer) OptionalBool(name string, v *bool) {
	if v != nil {
		w.Bool(name, *v)
	}
}

// OptionalTime writes an RFC 3339 timestamp in UTC when v is set.
func (w *Writer) OptionalTime(name string, v *time.Time) {
	if v != nil {
		w.Element(name, v.UTC().Format(TimeLayout))
	}
}

// WriteOptionalEnum writes an enum token when v is set.
func WriteOptionalEnum[E ~string](w *Writer, name string, v *E) {
	if v != nil {
		w.Element(name, string(*v))
	}
}

// Err returns the first error encountered while writing.
func (w *Writer) Err() error {
	return w.err
}

// Flush writes buffered output to the underlying stream.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	w.err = w.enc.Flush()
	return w.err
}

// Close flushes the output and reports unclosed elements.
func (w *Writer) Close() error {
	if w.err != nil {
		return w.err
	}
	w.err = w.enc.Close()
	return w.err
}
