// Package list implements the lazily fetched, cursor driven collection of
// API entities.
//
// A List is bound to a method and URL and fetched exactly once, before it
// is returned to the caller. Navigating with Start, Next or Prev yields new
// lists bound to the server's cursor URLs; a list never changes after it
// has been populated.
//
//	accounts, err := list.Fetch(ctx, c, recurly.AccountCodec, http.MethodGet, "/accounts")
//	for accounts.Len() > 0 {
//		for _, a := range accounts.All() {
//			fmt.Println(a.Code)
//		}
//		if accounts, err = accounts.Next(ctx); err != nil {
//			return err
//		}
//	}
package list

import (
	"context"
	"errors"
	"iter"
	"slices"

	"github.com/Sternrassler/recurly-client/pkg/client"
	"github.com/Sternrassler/recurly-client/pkg/logging"
	"github.com/Sternrassler/recurly-client/pkg/xmlcodec"
)

// defaultCapacity is used for the backing slice when the server declares no
// record count.
const defaultCapacity = 20

// maxPreallocate bounds preallocation; X-Records counts the whole
// collection, not one page.
const maxPreallocate = client.MaxPageSize

// Requester performs collection requests. *client.Client implements it.
type Requester interface {
	PerformListRequest(ctx context.Context, method, url string, read client.ListReader) error
	PageSize() int
}

// Codec describes how entities of type T appear in a collection document.
type Codec[T xmlcodec.Entity] struct {
	// Element is the name of each entity element, e.g. "account".
	Element string

	// New returns a zero entity ready for ReadXML.
	New func() T
}

type state int

const (
	stateUnbound state = iota
	stateFetching
	statePopulated
)

// List is an immutable page of entities together with its cursors.
type List[T xmlcodec.Entity] struct {
	requester Requester
	codec     Codec[T]

	method string
	url    string

	items   []T
	records int

	startURL string
	nextURL  string
	prevURL  string

	state state
	empty bool
}

// Fetch creates a list bound to method and url and fetches its first page.
// The configured page size is appended as per_page.
func Fetch[T xmlcodec.Entity](ctx context.Context, req Requester, codec Codec[T], method, url string) (*List[T], error) {
	l := newList(req, codec)
	if err := l.fetch(ctx, method, url); err != nil {
		return nil, err
	}
	return l, nil
}

// Empty returns an Empty List: no items, no cursors, and navigation that
// yields further Empty Lists.
func Empty[T xmlcodec.Entity]() *List[T] {
	return &List[T]{
		records: -1,
		state:   statePopulated,
		empty:   true,
	}
}

func newList[T xmlcodec.Entity](req Requester, codec Codec[T]) *List[T] {
	return &List[T]{
		requester: req,
		codec:     codec,
		records:   -1,
	}
}

// fetch performs the request and populates the list. A list can be
// fetched once; on error it must be discarded.
func (l *List[T]) fetch(ctx context.Context, method, url string) error {
	if l.empty || l.state != stateUnbound {
		return ErrUnsupportedOperation
	}
	l.state = stateFetching
	l.method = method
	l.url = url

	logger := logging.NewLogger("list")
	target := withPageSize(url, l.requester.PageSize())

	if err := l.requester.PerformListRequest(ctx, method, target, l.readPage); err != nil {
		listFetchesTotal.WithLabelValues(l.codec.Element, "error").Inc()
		logger.Debug().Err(err).
			Str("method", method).
			Str("url", target).
			Msg("List fetch failed")
		return err
	}
	l.state = statePopulated

	listFetchesTotal.WithLabelValues(l.codec.Element, "ok").Inc()
	listItemsTotal.WithLabelValues(l.codec.Element).Add(float64(len(l.items)))
	logger.Debug().
		Str("method", method).
		Str("url", target).
		Int("items", len(l.items)).
		Int("records", l.records).
		Bool("has_next", l.HasNextPage()).
		Msg("List fetched")
	return nil
}

// readPage is the client.ListReader of a list. It replaces items and
// cursors; it never merges with earlier content.
func (l *List[T]) readPage(r *xmlcodec.Reader, page client.PageInfo) error {
	if l.empty {
		return ErrUnsupportedOperation
	}

	capacity := defaultCapacity
	if page.Records > 0 {
		capacity = min(page.Records, maxPreallocate)
	}
	l.items = make([]T, 0, capacity)
	l.records = page.Records
	l.startURL = page.Start
	l.nextURL = page.Next
	l.prevURL = page.Prev

	if _, err := r.Root(); err != nil {
		if errors.Is(err, xmlcodec.ErrEmptyDocument) {
			return nil
		}
		return err
	}

	return r.EachChild(func(name string) error {
		if name != l.codec.Element {
			return nil
		}
		item := l.codec.New()
		if err := item.ReadXML(r); err != nil {
			return err
		}
		l.add(item)
		return nil
	})
}

// add appends an entity during parsing.
func (l *List[T]) add(item T) {
	l.items = append(l.items, item)
}

// Len returns the number of parsed entities.
func (l *List[T]) Len() int {
	return len(l.items)
}

// At returns the entity at index i.
func (l *List[T]) At(i int) (T, error) {
	if i < 0 || i >= len(l.items) {
		var zero T
		return zero, &OutOfRangeError{Index: i, Len: len(l.items)}
	}
	return l.items[i], nil
}

// Items returns a copy of the entities in document order.
func (l *List[T]) Items() []T {
	return slices.Clone(l.items)
}

// All iterates over the entities in document order.
func (l *List[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i, item := range l.items {
			if !yield(i, item) {
				return
			}
		}
	}
}

// CapacityHint returns the record count the server declared for the last
// fetch, and false when it declared none.
func (l *List[T]) CapacityHint() (int, bool) {
	return l.records, l.records >= 0
}

// Capacity returns the declared record count, or Len when unknown.
func (l *List[T]) Capacity() int {
	if l.records >= 0 {
		return l.records
	}
	return len(l.items)
}

// Method returns the HTTP method the list was fetched with.
func (l *List[T]) Method() string { return l.method }

// URL returns the unpaged URL the list is bound to.
func (l *List[T]) URL() string { return l.url }

// StartURL returns the start cursor, empty when absent.
func (l *List[T]) StartURL() string { return l.startURL }

// NextURL returns the next cursor, empty when absent.
func (l *List[T]) NextURL() string { return l.nextURL }

// PrevURL returns the prev cursor, empty when absent.
func (l *List[T]) PrevURL() string { return l.prevURL }

// IsEmptyList reports whether l is an Empty List.
func (l *List[T]) IsEmptyList() bool { return l.empty }

// HasStartPage reports whether a start cursor is present.
func (l *List[T]) HasStartPage() bool { return l.startURL != "" }

// HasNextPage reports whether a next cursor is present.
func (l *List[T]) HasNextPage() bool { return l.nextURL != "" }

// HasPrevPage reports whether a prev cursor is present.
func (l *List[T]) HasPrevPage() bool { return l.prevURL != "" }

// Start fetches the first page. It returns an Empty List when the cursor
// is absent.
func (l *List[T]) Start(ctx context.Context) (*List[T], error) {
	return l.follow(ctx, l.startURL)
}

// Next fetches the following page. It returns an Empty List when the
// cursor is absent.
func (l *List[T]) Next(ctx context.Context) (*List[T], error) {
	return l.follow(ctx, l.nextURL)
}

// Prev fetches the preceding page. It returns an Empty List when the
// cursor is absent.
func (l *List[T]) Prev(ctx context.Context) (*List[T], error) {
	return l.follow(ctx, l.prevURL)
}

func (l *List[T]) follow(ctx context.Context, cursor string) (*List[T], error) {
	if l.empty || cursor == "" {
		return Empty[T](), nil
	}
	return Fetch(ctx, l.requester, l.codec, l.method, cursor)
}
