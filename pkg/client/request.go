package client

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/tomnomnom/linkheader"

	"github.com/Sternrassler/recurly-client/pkg/xmlcodec"
)

// BodyWriter writes a request document.
type BodyWriter func(w *xmlcodec.Writer) error

// BodyReader reads a response document.
type BodyReader func(r *xmlcodec.Reader) error

// ListReader reads one page of a collection response.
type ListReader func(r *xmlcodec.Reader, page PageInfo) error

// PageInfo carries the pagination metadata of a collection response.
type PageInfo struct {
	// Records is the total record count declared by the server, -1 when
	// the server did not declare one.
	Records int

	// Start, Next and Prev are cursor URLs; empty when the page does not
	// exist.
	Start string
	Next  string
	Prev  string
}

// RecordsKnown reports whether the server declared a record count.
func (p PageInfo) RecordsKnown() bool {
	return p.Records >= 0
}

// pageInfoFromHeaders extracts X-Records and the Link cursors.
func pageInfoFromHeaders(h http.Header) PageInfo {
	info := PageInfo{Records: -1}

	if v := strings.TrimSpace(h.Get("X-Records")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			info.Records = n
		}
	}

	for _, link := range linkheader.ParseMultiple(h.Values("Link")) {
		switch link.Rel {
		case "start":
			info.Start = link.URL
		case "next":
			info.Next = link.URL
		case "prev":
			info.Prev = link.URL
		}
	}
	return info
}

// PerformRequest sends a request whose body is produced by write (nil for
// no body) and hands the response document to read (nil to discard it).
// Responses with status >= 400 are returned as *TransportError.
func (c *Client) PerformRequest(ctx context.Context, method, url string, write BodyWriter, read BodyReader) error {
	_, body, err := c.perform(ctx, method, url, write)
	if err != nil {
		return err
	}
	if read == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	return read(xmlcodec.NewReader(bytes.NewReader(body)))
}

// PerformListRequest sends a collection request and hands the response
// document together with its pagination metadata to read.
func (c *Client) PerformListRequest(ctx context.Context, method, url string, read ListReader) error {
	resp, body, err := c.perform(ctx, method, url, nil)
	if err != nil {
		return err
	}
	return read(xmlcodec.NewReader(bytes.NewReader(body)), pageInfoFromHeaders(resp.Header))
}

func (c *Client) perform(ctx context.Context, method, rawURL string, write BodyWriter) (*http.Response, []byte, error) {
	target, err := c.resolve(rawURL)
	if err != nil {
		return nil, nil, err
	}

	var payload io.Reader
	if write != nil {
		var buf bytes.Buffer
		buf.WriteString(xml.Header)
		w := xmlcodec.NewWriter(&buf)
		if err := write(w); err != nil {
			return nil, nil, fmt.Errorf("write request body: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, nil, fmt.Errorf("write request body: %w", err)
		}
		payload = bytes.NewReader(buf.Bytes())
	}

	req, err := http.NewRequestWithContext(ctx, method, target, payload)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, nil, err
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, nil, newStatusError(req, resp, body)
	}
	return resp, body, nil
}
