package recurly

import (
	"net/url"
	"path"
	"time"

	"github.com/Sternrassler/recurly-client/pkg/list"
	"github.com/Sternrassler/recurly-client/pkg/xmlcodec"
)

// Invoice is a billed or previewed invoice.
type Invoice struct {
	UUID             string
	InvoiceNumber    int
	State            string
	AccountCode      string
	Currency         string
	SubtotalInCents  int
	TaxInCents       int
	TotalInCents     int
	CollectionMethod *CollectionMethod
	NetTerms         *int
	PoNumber         *string
	CreatedAt        *time.Time
	ClosedAt         *time.Time
	LineItems        []*Adjustment
}

// InvoiceCodec describes invoices in collection documents.
var InvoiceCodec = list.Codec[*Invoice]{
	Element: "invoice",
	New:     func() *Invoice { return &Invoice{} },
}

// ReadXML implements xmlcodec.Entity.
func (inv *Invoice) ReadXML(r *xmlcodec.Reader) error {
	return r.EachChild(func(name string) error {
		var err error
		switch name {
		case "uuid":
			inv.UUID, err = r.Text()
		case "invoice_number":
			inv.InvoiceNumber, err = r.Int()
		case "state":
			inv.State, err = r.Text()
		case "account":
			inv.AccountCode = codeFromHref(r.Attr("href"))
		case "currency":
			inv.Currency, err = r.Text()
		case "subtotal_in_cents":
			err = readAmount(r, &inv.SubtotalInCents)
		case "tax_in_cents":
			err = readAmount(r, &inv.TaxInCents)
		case "total_in_cents":
			err = readAmount(r, &inv.TotalInCents)
		case "collection_method":
			inv.CollectionMethod, err = xmlcodec.OptionalEnum(r, collectionMethods...)
		case "net_terms":
			inv.NetTerms, err = r.OptionalInt()
		case "po_number":
			inv.PoNumber, err = r.OptionalString()
		case "created_at":
			inv.CreatedAt, err = r.OptionalTime()
		case "closed_at":
			inv.ClosedAt, err = r.OptionalTime()
		case "line_items":
			inv.LineItems = nil
			err = r.EachChild(func(name string) error {
				if name != "adjustment" {
					return nil
				}
				item := &Adjustment{}
				if err := item.ReadXML(r); err != nil {
					return err
				}
				inv.LineItems = append(inv.LineItems, item)
				return nil
			})
		}
		return err
	})
}

// WriteXML implements xmlcodec.Entity. Invoices are created by the server;
// only the fields a client may set are written.
func (inv *Invoice) WriteXML(w *xmlcodec.Writer) error {
	w.Start("invoice")
	xmlcodec.WriteOptionalEnum(w, "collection_method", inv.CollectionMethod)
	w.OptionalInt("net_terms", inv.NetTerms)
	w.OptionalElement("po_number", inv.PoNumber)
	w.End("invoice")
	return w.Err()
}

// readInvoiceDocument reads an invoice response. Purchases answer with an
// <invoice_collection> whose <charge_invoice> is the invoice of interest.
func readInvoiceDocument(r *xmlcodec.Reader, inv *Invoice) error {
	root, err := r.Root()
	if err != nil {
		return err
	}
	switch root {
	case "invoice":
		return inv.ReadXML(r)
	case "invoice_collection":
		return r.EachChild(func(name string) error {
			if name == "charge_invoice" {
				return inv.ReadXML(r)
			}
			return nil
		})
	default:
		return &xmlcodec.ParseError{Element: root, Err: xmlcodec.ErrUnexpectedElement}
	}
}

// readAmount stores an integer amount; nil-marked amounts leave dst as is.
func readAmount(r *xmlcodec.Reader, dst *int) error {
	v, err := r.OptionalInt()
	if err != nil {
		return err
	}
	if v != nil {
		*dst = *v
	}
	return nil
}

// codeFromHref extracts the trailing code of a resource link such as
// https://mysite.recurly.com/v2/accounts/abc.
func codeFromHref(href string) string {
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	code, err := url.PathUnescape(path.Base(u.EscapedPath()))
	if err != nil {
		return ""
	}
	return code
}
