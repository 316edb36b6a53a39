// Package pagination walks cursor paginated collections page by page.
//
// The API links each page to the next through a cursor URL, so pages are
// fetched in order and one at a time. By default the walk is synchronous:
// the next page is requested only when the consumer asks for it. Callers
// may opt into Config.Prefetch, which fetches a bounded number of pages
// ahead of the consumer on a background goroutine.
//
// Example usage:
//
//	first, err := list.Fetch(ctx, c, recurly.AccountCodec, http.MethodGet, "/accounts")
//	if err != nil {
//		return err
//	}
//	for account, err := range pagination.All(ctx, first, pagination.DefaultConfig()) {
//		if err != nil {
//			return err
//		}
//		fmt.Println(account.Code)
//	}
//
// The walker:
//   - Starts with an already fetched first page
//   - Follows next cursors until a page has none
//   - Stops early at Config.MaxPages or when the consumer stops iterating
//   - Bounds each page fetch by Config.PageTimeout
//   - Yields a fetch error once and ends the walk
package pagination
