package pagination

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/recurly-client/pkg/client"
	"github.com/Sternrassler/recurly-client/pkg/list"
	"github.com/Sternrassler/recurly-client/pkg/xmlcodec"
)

// Config holds walker configuration
type Config struct {
	// MaxPages stops the walk after this many pages; 0 means no limit
	MaxPages int

	// PageTimeout bounds each page fetch; 0 means no per-page timeout
	PageTimeout time.Duration

	// Prefetch is the number of pages fetched ahead of the consumer on a
	// background goroutine. Requests are still issued one at a time. 0
	// fetches each page only when the consumer asks for it.
	Prefetch int
}

// DefaultConfig returns the default walker configuration
func DefaultConfig() Config {
	return Config{
		MaxPages:    0,
		PageTimeout: 15 * time.Second,
		Prefetch:    0,
	}
}

// progressInterval is how often (in pages) walk progress is logged
const progressInterval = 50

type pageResult[T xmlcodec.Entity] struct {
	page *list.List[T]
	err  error
}

// Pages iterates over first and every page after it. An Empty List or a
// nil first page yields nothing. A fetch error is yielded with a nil page
// and ends the iteration.
func Pages[T xmlcodec.Entity](ctx context.Context, first *list.List[T], cfg Config) iter.Seq2[*list.List[T], error] {
	return func(yield func(*list.List[T], error) bool) {
		if first == nil || first.IsEmptyList() {
			return
		}
		if cfg.Prefetch > 0 {
			walkPrefetch(ctx, first, cfg, yield)
			return
		}
		walk(ctx, first, cfg, func(r pageResult[T]) bool {
			return yield(r.page, r.err)
		})
	}
}

// walk fetches pages in order, handing each result to emit until emit
// returns false, the cursors run out or a fetch fails.
func walk[T xmlcodec.Entity](ctx context.Context, first *list.List[T], cfg Config, emit func(pageResult[T]) bool) {
	start := time.Now()
	page := first
	pages, items := 0, 0

	for {
		pages++
		items += page.Len()
		if !emit(pageResult[T]{page: page}) {
			return
		}
		if pages%progressInterval == 0 {
			log.Info().
				Str("url", first.URL()).
				Int("pages", pages).
				Int("items", items).
				Msg("Pagination progress")
		}

		if !page.HasNextPage() {
			break
		}
		if cfg.MaxPages > 0 && pages >= cfg.MaxPages {
			log.Debug().
				Str("url", first.URL()).
				Int("max_pages", cfg.MaxPages).
				Msg("Page limit reached")
			break
		}

		next, err := fetchNext(ctx, page, cfg.PageTimeout)
		if err != nil {
			log.Warn().
				Err(err).
				Str("cursor", page.NextURL()).
				Int("fetched_pages", pages).
				Msg("Page fetch failed")
			emit(pageResult[T]{err: err})
			return
		}
		page = next
	}

	log.Debug().
		Str("url", first.URL()).
		Int("pages", pages).
		Int("items", items).
		Dur("duration", time.Since(start)).
		Msg("Pagination complete")
}

// walkPrefetch runs walk on a goroutine that stays up to cfg.Prefetch pages
// ahead of the consumer.
func walkPrefetch[T xmlcodec.Entity](ctx context.Context, first *list.List[T], cfg Config, yield func(*list.List[T], error) bool) {
	ctx, cancel := context.WithCancel(ctx)
	results := make(chan pageResult[T], cfg.Prefetch)
	done := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(results)
		walk(ctx, first, cfg, func(r pageResult[T]) bool {
			select {
			case results <- r:
				return true
			case <-done:
				return false
			}
		})
	}()

	defer func() {
		close(done)
		cancel()
		wg.Wait()
	}()

	for r := range results {
		if !yield(r.page, r.err) || r.err != nil {
			return
		}
	}
}

func fetchNext[T xmlcodec.Entity](ctx context.Context, page *list.List[T], timeout time.Duration) (*list.List[T], error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	next, err := page.Next(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch page %s: %w", page.NextURL(), err)
	}
	return next, nil
}

// All iterates over the entities of every page in order. A fetch error is
// yielded with the zero entity and ends the iteration.
func All[T xmlcodec.Entity](ctx context.Context, first *list.List[T], cfg Config) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for page, err := range Pages(ctx, first, cfg) {
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			for _, item := range page.All() {
				if !yield(item, nil) {
					return
				}
			}
		}
	}
}

// Collect gathers the entities of every page. On error it returns the
// entities collected so far together with the error.
func Collect[T xmlcodec.Entity](ctx context.Context, first *list.List[T], cfg Config) ([]T, error) {
	return CollectN(ctx, first, -1, cfg)
}

// CollectN gathers at most n entities; n < 0 means all of them.
func CollectN[T xmlcodec.Entity](ctx context.Context, first *list.List[T], n int, cfg Config) ([]T, error) {
	if n == 0 {
		return nil, nil
	}

	var items []T
	if first != nil {
		capacity := first.Len()
		if records, ok := first.CapacityHint(); ok {
			capacity = max(capacity, min(records, client.MaxPageSize*4))
		}
		if n > 0 {
			capacity = min(capacity, n)
		}
		items = make([]T, 0, capacity)
	}

	for item, err := range All(ctx, first, cfg) {
		if err != nil {
			return items, err
		}
		items = append(items, item)
		if n > 0 && len(items) >= n {
			break
		}
	}
	return items, nil
}

// First returns the first entity of the walk, and false when there is none.
func First[T xmlcodec.Entity](ctx context.Context, first *list.List[T], cfg Config) (T, bool, error) {
	for item, err := range All(ctx, first, cfg) {
		return item, err == nil, err
	}
	var zero T
	return zero, false, nil
}

// Take limits seq to its first n values. An error value counts toward n.
func Take[T any](seq iter.Seq2[T, error], n int) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		if n <= 0 {
			return
		}
		taken := 0
		for item, err := range seq {
			if !yield(item, err) {
				return
			}
			taken++
			if taken >= n {
				return
			}
		}
	}
}

// Filter passes through the values of seq for which keep returns true.
// Errors are always passed through.
func Filter[T any](seq iter.Seq2[T, error], keep func(T) bool) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for item, err := range seq {
			if err != nil || keep(item) {
				if !yield(item, err) {
					return
				}
			}
		}
	}
}
