package cli

import (
	"fmt"
	"iter"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/recurly-client/pkg/list"
	"github.com/Sternrassler/recurly-client/pkg/pagination"
	"github.com/Sternrassler/recurly-client/pkg/recurly"
	"github.com/Sternrassler/recurly-client/pkg/xmlcodec"
)

// listOptions are shared by every listing command.
type listOptions struct {
	all      bool
	maxPages int
	limit    int
}

func (o *listOptions) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.all, "all", false, "follow next cursors until the last page")
	cmd.Flags().IntVar(&o.maxPages, "max-pages", 0, "stop after this many pages with --all (0 = no limit)")
	cmd.Flags().IntVar(&o.limit, "limit", 0, "print at most this many rows (0 = no limit)")
}

func (o *listOptions) validate() error {
	if o.maxPages < 0 {
		return fmt.Errorf("--max-pages must be >= 0, got %d", o.maxPages)
	}
	if o.limit < 0 {
		return fmt.Errorf("--limit must be >= 0, got %d", o.limit)
	}
	return nil
}

func newAccountsCmd(root *rootOptions) *cobra.Command {
	var (
		opts  listOptions
		state string
	)

	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			var filter recurly.AccountState
			if state != "" {
				parsed, err := recurly.ParseAccountState(state)
				if err != nil {
					return err
				}
				filter = parsed
			}

			s, err := openSession(cmd, root)
			if err != nil {
				return err
			}
			defer s.Close()

			first, err := s.api.Accounts.List(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("list accounts: %w", err)
			}
			return printRows(cmd, first, opts, []string{"CODE", "STATE", "EMAIL", "COMPANY"}, func(a *recurly.Account) []string {
				var st string
				if a.State != nil {
					st = string(*a.State)
				}
				return []string{a.Code, st, deref(a.Email), deref(a.CompanyName)}
			})
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVar(&state, "state", "", "filter by state (active, closed, past_due, subscriber, non_subscriber)")
	return cmd
}

func newInvoicesCmd(root *rootOptions) *cobra.Command {
	var (
		opts    listOptions
		account string
	)

	cmd := &cobra.Command{
		Use:   "invoices",
		Short: "List invoices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			s, err := openSession(cmd, root)
			if err != nil {
				return err
			}
			defer s.Close()

			var first *list.List[*recurly.Invoice]
			if account != "" {
				first, err = s.api.Invoices.ListForAccount(cmd.Context(), account)
			} else {
				first, err = s.api.Invoices.List(cmd.Context())
			}
			if err != nil {
				return fmt.Errorf("list invoices: %w", err)
			}
			return printRows(cmd, first, opts, []string{"NUMBER", "STATE", "ACCOUNT", "TOTAL"}, func(inv *recurly.Invoice) []string {
				return []string{strconv.Itoa(inv.InvoiceNumber), inv.State, inv.AccountCode, formatCents(inv.TotalInCents, inv.Currency)}
			})
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVar(&account, "account", "", "only invoices of this account code")
	return cmd
}

func newSubscriptionsCmd(root *rootOptions) *cobra.Command {
	var (
		opts    listOptions
		account string
	)

	cmd := &cobra.Command{
		Use:   "subscriptions",
		Short: "List subscriptions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			s, err := openSession(cmd, root)
			if err != nil {
				return err
			}
			defer s.Close()

			var first *list.List[*recurly.Subscription]
			if account != "" {
				first, err = s.api.Subscriptions.ListForAccount(cmd.Context(), account)
			} else {
				first, err = s.api.Subscriptions.List(cmd.Context())
			}
			if err != nil {
				return fmt.Errorf("list subscriptions: %w", err)
			}
			return printRows(cmd, first, opts, []string{"UUID", "STATE", "PLAN", "QUANTITY"}, func(sub *recurly.Subscription) []string {
				return []string{sub.UUID, sub.State, sub.PlanCode, strconv.Itoa(sub.Quantity)}
			})
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVar(&account, "account", "", "only subscriptions of this account code")
	return cmd
}

// printRows writes one tab aligned row per entity. Without --all only the
// first page is printed.
func printRows[T xmlcodec.Entity](cmd *cobra.Command, first *list.List[T], opts listOptions, header []string, row func(T) []string) error {
	var seq iter.Seq2[T, error]
	if opts.all {
		cfg := pagination.DefaultConfig()
		cfg.MaxPages = opts.maxPages
		seq = pagination.All(cmd.Context(), first, cfg)
	} else {
		seq = pageItems(first)
	}
	if opts.limit > 0 {
		seq = pagination.Take(seq, opts.limit)
	}

	const tabPadding = 2
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, tabPadding, ' ', 0)
	fmt.Fprintln(w, strings.Join(header, "\t"))

	rows := 0
	for item, err := range seq {
		if err != nil {
			_ = w.Flush()
			return err
		}
		fmt.Fprintln(w, strings.Join(row(item), "\t"))
		rows++
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if !opts.all && first.HasNextPage() && (opts.limit == 0 || rows < opts.limit) {
		cmd.PrintErrln("More results available, rerun with --all to fetch every page.")
	}
	return nil
}

// pageItems yields the entities of a single page.
func pageItems[T xmlcodec.Entity](page *list.List[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for _, item := range page.All() {
			if !yield(item, nil) {
				return
			}
		}
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// formatCents renders an amount in minor units, e.g. "12.50 USD".
func formatCents(cents int, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	amount := fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
	if currency == "" {
		return amount
	}
	return amount + " " + currency
}
