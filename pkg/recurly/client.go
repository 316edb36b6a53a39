package recurly

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Sternrassler/recurly-client/pkg/client"
	"github.com/Sternrassler/recurly-client/pkg/list"
	"github.com/Sternrassler/recurly-client/pkg/xmlcodec"
)

// ErrMissingIdentifier is returned when a lookup is given an empty code.
var ErrMissingIdentifier = errors.New("identifier is required")

// Requester performs single entity and collection requests.
// *client.Client implements it.
type Requester interface {
	list.Requester
	PerformRequest(ctx context.Context, method, url string, write client.BodyWriter, read client.BodyReader) error
}

// Client groups the Recurly services.
type Client struct {
	Accounts      *AccountService
	Invoices      *InvoiceService
	Subscriptions *SubscriptionService
	Purchases     *PurchaseService
}

// NewClient creates the services on top of req.
func NewClient(req Requester) *Client {
	return &Client{
		Accounts:      &AccountService{req: req},
		Invoices:      &InvoiceService{req: req},
		Subscriptions: &SubscriptionService{req: req},
		Purchases:     &PurchaseService{req: req},
	}
}

// getEntity fetches a single entity whose document root is root.
func getEntity(ctx context.Context, req Requester, path, root string, e xmlcodec.Entity) error {
	return req.PerformRequest(ctx, http.MethodGet, path, nil, func(r *xmlcodec.Reader) error {
		return xmlcodec.ReadDocument(r, root, e)
	})
}

// AccountService manages accounts.
type AccountService struct {
	req Requester
}

// List returns the first page of accounts, filtered by state when state
// is not empty.
func (s *AccountService) List(ctx context.Context, state AccountState) (*list.List[*Account], error) {
	path := "/accounts"
	if state != "" {
		path += "?state=" + url.QueryEscape(string(state))
	}
	return list.Fetch(ctx, s.req, AccountCodec, http.MethodGet, path)
}

// Get looks up an account by its code.
func (s *AccountService) Get(ctx context.Context, code string) (*Account, error) {
	if code == "" {
		return nil, fmt.Errorf("account code: %w", ErrMissingIdentifier)
	}
	a := &Account{}
	if err := getEntity(ctx, s.req, "/accounts/"+url.PathEscape(code), "account", a); err != nil {
		return nil, err
	}
	return a, nil
}

// Create creates a new account and returns it as stored by the server.
func (s *AccountService) Create(ctx context.Context, a *Account) (*Account, error) {
	if a == nil || a.Code == "" {
		return nil, fmt.Errorf("account code: %w", ErrMissingIdentifier)
	}
	created := &Account{}
	err := s.req.PerformRequest(ctx, http.MethodPost, "/accounts", a.WriteXML, func(r *xmlcodec.Reader) error {
		return xmlcodec.ReadDocument(r, "account", created)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// InvoiceService reads invoices.
type InvoiceService struct {
	req Requester
}

// List returns the first page of all invoices.
func (s *InvoiceService) List(ctx context.Context) (*list.List[*Invoice], error) {
	return list.Fetch(ctx, s.req, InvoiceCodec, http.MethodGet, "/invoices")
}

// ListForAccount returns the first page of an account's invoices.
func (s *InvoiceService) ListForAccount(ctx context.Context, accountCode string) (*list.List[*Invoice], error) {
	if accountCode == "" {
		return nil, fmt.Errorf("account code: %w", ErrMissingIdentifier)
	}
	return list.Fetch(ctx, s.req, InvoiceCodec, http.MethodGet, "/accounts/"+url.PathEscape(accountCode)+"/invoices")
}

// Get looks up an invoice by its number.
func (s *InvoiceService) Get(ctx context.Context, number int) (*Invoice, error) {
	if number <= 0 {
		return nil, fmt.Errorf("invoice number %d: %w", number, ErrMissingIdentifier)
	}
	inv := &Invoice{}
	if err := getEntity(ctx, s.req, "/invoices/"+strconv.Itoa(number), "invoice", inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// SubscriptionService reads subscriptions.
type SubscriptionService struct {
	req Requester
}

// List returns the first page of all subscriptions.
func (s *SubscriptionService) List(ctx context.Context) (*list.List[*Subscription], error) {
	return list.Fetch(ctx, s.req, SubscriptionCodec, http.MethodGet, "/subscriptions")
}

// ListForAccount returns the first page of an account's subscriptions.
func (s *SubscriptionService) ListForAccount(ctx context.Context, accountCode string) (*list.List[*Subscription], error) {
	if accountCode == "" {
		return nil, fmt.Errorf("account code: %w", ErrMissingIdentifier)
	}
	return list.Fetch(ctx, s.req, SubscriptionCodec, http.MethodGet, "/accounts/"+url.PathEscape(accountCode)+"/subscriptions")
}

// PurchaseService creates purchases.
type PurchaseService struct {
	req Requester
}

// Invoice creates the purchase and returns the resulting charge invoice.
func (s *PurchaseService) Invoice(ctx context.Context, p *Purchase) (*Invoice, error) {
	return s.post(ctx, "/purchases", p)
}

// Preview runs validations for the purchase without creating
// transactions and returns the invoice it would produce.
func (s *PurchaseService) Preview(ctx context.Context, p *Purchase) (*Invoice, error) {
	return s.post(ctx, "/purchases/preview", p)
}

func (s *PurchaseService) post(ctx context.Context, path string, p *Purchase) (*Invoice, error) {
	if p == nil || p.Account == nil || p.Account.Code == "" {
		return nil, fmt.Errorf("purchase account code: %w", ErrMissingIdentifier)
	}
	inv := &Invoice{}
	err := s.req.PerformRequest(ctx, http.MethodPost, path, p.WriteXML, func(r *xmlcodec.Reader) error {
		return readInvoiceDocument(r, inv)
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}
