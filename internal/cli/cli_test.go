package cli_test

import (
	"bytes"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/recurly-client/internal/cli"
	"github.com/Sternrassler/recurly-client/internal/testutil"
)

// setEnv points the CLI at mock and clears settings leaking from the host.
func setEnv(t *testing.T, mock *testutil.MockAPI) {
	t.Helper()
	t.Setenv("RECURLY_BASE_URL", mock.URL()+"/v2")
	t.Setenv("RECURLY_API_KEY", "test-key")
	t.Setenv("RECURLY_SUBDOMAIN", "")
	t.Setenv("RECURLY_REDIS_ADDR", "")
	t.Setenv("RECURLY_PAGE_SIZE", "2")
	t.Setenv("RECURLY_LOG_LEVEL", "error")
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := cli.NewRootCmd("test")
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append(args, "--env-file", ""))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func accountXML(code string) string {
	return `<account><account_code>` + code + `</account_code><state>active</state><email>` + code + `@example.com</email></account>`
}

// serveAccountPages serves three pages of two accounts each, keyed by cursor.
func serveAccountPages(mock *testutil.MockAPI) {
	pages := map[string][]string{
		"":   {"a1", "a2"},
		"p2": {"a3", "a4"},
		"p3": {"a5", "a6"},
	}
	next := map[string]string{"": "p2", "p2": "p3"}

	mock.SetHandler(http.MethodGet, "/v2/accounts", func(w http.ResponseWriter, r *http.Request) {
		cursor := r.URL.Query().Get("cursor")
		var elements []string
		for _, code := range pages[cursor] {
			elements = append(elements, accountXML(code))
		}
		links := testutil.Links{}
		if n, ok := next[cursor]; ok {
			links.Next = mock.URL() + "/v2/accounts?cursor=" + n + "&per_page=2"
		}
		testutil.WriteResponse(w, testutil.NewListResponse(testutil.Collection("accounts", elements...), 6, links))
	})
}

func TestAccountsCmd_FirstPage(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	setEnv(t, mock)
	serveAccountPages(mock)

	stdout, stderr, err := run(t, "accounts", "--state", "active")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"CODE", "STATE", "EMAIL", "COMPANY"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"a1", "active", "a1@example.com"}, strings.Fields(lines[1]))
	assert.Contains(t, stderr, "More results available")

	req, ok := mock.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "state=active&per_page=2", req.RawQuery)
	assert.Equal(t, 1, mock.GetRequestCount())
}

func TestAccountsCmd_All(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	setEnv(t, mock)
	serveAccountPages(mock)

	stdout, stderr, err := run(t, "accounts", "--all")
	require.NoError(t, err)

	for _, code := range []string{"a1", "a2", "a3", "a4", "a5", "a6"} {
		assert.Contains(t, stdout, code+"@example.com")
	}
	assert.NotContains(t, stderr, "More results available")
	assert.Equal(t, 3, mock.GetRequestCount())
}

func TestAccountsCmd_MaxPagesAndLimit(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		rows     int
		requests int
	}{
		{name: "max pages", args: []string{"--all", "--max-pages", "2"}, rows: 4, requests: 2},
		{name: "limit within first page", args: []string{"--all", "--limit", "1"}, rows: 1, requests: 1},
		{name: "limit across pages", args: []string{"--all", "--limit", "3"}, rows: 3, requests: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockAPI()
			defer mock.Close()
			setEnv(t, mock)
			serveAccountPages(mock)

			stdout, _, err := run(t, append([]string{"accounts"}, tt.args...)...)
			require.NoError(t, err)

			lines := strings.Split(strings.TrimSpace(stdout), "\n")
			assert.Len(t, lines, tt.rows+1)
			assert.Equal(t, tt.requests, mock.GetRequestCount())
		})
	}
}

func TestAccountsCmd_InvalidFlags(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	setEnv(t, mock)

	_, _, err := run(t, "accounts", "--state", "dormant")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dormant")

	_, _, err = run(t, "accounts", "--max-pages", "-1")
	require.Error(t, err)

	assert.Zero(t, mock.GetRequestCount())
}

func TestInvoicesCmd_ForAccount(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	setEnv(t, mock)

	invoice := `<invoice><account href="https://mysite.recurly.com/v2/accounts/acme"/><invoice_number>1005</invoice_number><state>paid</state><currency>USD</currency><total_in_cents>1250</total_in_cents></invoice>`
	mock.SetResponse(http.MethodGet, "/v2/accounts/{code}/invoices", testutil.NewListResponse(testutil.Collection("invoices", invoice), 1, testutil.Links{}))

	stdout, stderr, err := run(t, "invoices", "--account", "acme")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"1005", "paid", "acme", "12.50", "USD"}, strings.Fields(lines[1]))
	assert.NotContains(t, stderr, "More results available")

	req, _ := mock.LastRequest()
	assert.Equal(t, "/v2/accounts/acme/invoices", req.Path)
}

func TestSubscriptionsCmd(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	setEnv(t, mock)

	sub := `<subscription><uuid>s1</uuid><state>active</state><plan><plan_code>gold</plan_code></plan><quantity>3</quantity></subscription>`
	mock.SetResponse(http.MethodGet, "/v2/subscriptions", testutil.NewListResponse(testutil.Collection("subscriptions", sub), 1, testutil.Links{}))

	stdout, _, err := run(t, "subscriptions", "--purge-cache")
	require.NoError(t, err)
	assert.Contains(t, stdout, "gold")

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"s1", "active", "gold", "3"}, strings.Fields(lines[1]))
}

func TestRootCmd_TransportError(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	setEnv(t, mock)
	mock.SetResponse(http.MethodGet, "/v2/accounts", testutil.NewErrorResponse(http.StatusUnauthorized, "unauthorized", "Invalid API key"))

	_, _, err := run(t, "accounts")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list accounts")
	assert.Contains(t, err.Error(), "Invalid API key")
}

func TestRootCmd_MissingConfig(t *testing.T) {
	t.Setenv("RECURLY_API_KEY", "")
	t.Setenv("RECURLY_BASE_URL", "")
	t.Setenv("RECURLY_SUBDOMAIN", "")

	_, _, err := run(t, "accounts")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RECURLY_API_KEY is required")
}
