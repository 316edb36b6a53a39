package list

import (
	"net/url"
	"strconv"
	"strings"
)

// PageSizeParam is the query parameter carrying the page size.
const PageSizeParam = "per_page"

// withPageSize appends per_page=n to rawURL unless it already carries one.
func withPageSize(rawURL string, n int) string {
	if n <= 0 || hasQueryParam(rawURL, PageSizeParam) {
		return rawURL
	}

	sep := "&"
	switch {
	case !strings.Contains(rawURL, "?"):
		sep = "?"
	case strings.HasSuffix(rawURL, "?"), strings.HasSuffix(rawURL, "&"):
		sep = ""
	}
	return rawURL + sep + PageSizeParam + "=" + strconv.Itoa(n)
}

func hasQueryParam(rawURL, name string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return u.Query().Has(name)
}
