package list

import "testing"

func TestWithPageSize(t *testing.T) {
	tests := []struct {
		name string
		url  string
		size int
		want string
	}{
		{name: "no query", url: "/accounts", size: 20, want: "/accounts?per_page=20"},
		{name: "existing query", url: "/accounts?state=active", size: 20, want: "/accounts?state=active&per_page=20"},
		{name: "cursor url", url: "/accounts?cursor=abc", size: 20, want: "/accounts?cursor=abc&per_page=20"},
		{name: "absolute url", url: "https://site.recurly.com/v2/accounts", size: 50, want: "https://site.recurly.com/v2/accounts?per_page=50"},
		{name: "already paged", url: "/accounts?cursor=abc&per_page=20", size: 50, want: "/accounts?cursor=abc&per_page=20"},
		{name: "trailing question mark", url: "/accounts?", size: 5, want: "/accounts?per_page=5"},
		{name: "trailing ampersand", url: "/accounts?state=active&", size: 5, want: "/accounts?state=active&per_page=5"},
		{name: "no page size", url: "/accounts", size: 0, want: "/accounts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := withPageSize(tt.url, tt.size); got != tt.want {
				t.Errorf("withPageSize(%q, %d) = %q, want %q", tt.url, tt.size, got, tt.want)
			}
		})
	}
}
