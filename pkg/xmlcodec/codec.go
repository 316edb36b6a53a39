package xmlcodec

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// Entity is implemented by every record that travels over the API.
//
// ReadXML is called with the reader on the entity's start tag and must
// consume up to and including the matching end tag. WriteXML emits one
// complete element, omitting optional fields that are not set.
type Entity interface {
	ReadXML(r *Reader) error
	WriteXML(w *Writer) error
}

// Marshal renders e as a standalone XML document.
func Marshal(e Entity) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	w := NewWriter(&buf)
	if err := e.WriteXML(w); err != nil {
		return nil, fmt.Errorf("write xml: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close xml writer: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal parses a document whose root element is root into e.
func Unmarshal(data []byte, root string, e Entity) error {
	return ReadDocument(NewReader(bytes.NewReader(data)), root, e)
}

// ReadDocument advances r to the root element, checks its name and lets e
// read itself.
func ReadDocument(r *Reader, root string, e Entity) error {
	name, err := r.Root()
	if err != nil {
		return err
	}
	if name != root {
		return &ParseError{Element: name, Err: fmt.Errorf("%w: want <%s>", ErrUnexpectedElement, root)}
	}
	return e.ReadXML(r)
}
