package recurly

import (
	"time"

	"github.com/Sternrassler/recurly-client/pkg/list"
	"github.com/Sternrassler/recurly-client/pkg/xmlcodec"
)

// Subscription is a plan subscription of an account.
type Subscription struct {
	UUID              string
	State             string
	PlanCode          string
	AccountCode       string
	Currency          string
	UnitAmountInCents int
	Quantity          int
	CollectionMethod  *CollectionMethod
	NetTerms          *int
	AddOns            []*SubscriptionAddOn
	ActivatedAt       *time.Time
	CurrentPeriodEnds *time.Time
}

// SubscriptionCodec describes subscriptions in collection documents.
var SubscriptionCodec = list.Codec[*Subscription]{
	Element: "subscription",
	New:     func() *Subscription { return &Subscription{} },
}

// ReadXML implements xmlcodec.Entity.
func (s *Subscription) ReadXML(r *xmlcodec.Reader) error {
	return r.EachChild(func(name string) error {
		var err error
		switch name {
		case "uuid":
			s.UUID, err = r.Text()
		case "state":
			s.State, err = r.Text()
		case "account":
			s.AccountCode = codeFromHref(r.Attr("href"))
		case "plan":
			err = r.EachChild(func(name string) error {
				var err error
				if name == "plan_code" {
					s.PlanCode, err = r.Text()
				}
				return err
			})
		case "plan_code":
			s.PlanCode, err = r.Text()
		case "currency":
			s.Currency, err = r.Text()
		case "unit_amount_in_cents":
			s.UnitAmountInCents, err = r.Int()
		case "quantity":
			s.Quantity, err = r.Int()
		case "collection_method":
			s.CollectionMethod, err = xmlcodec.OptionalEnum(r, collectionMethods...)
		case "net_terms":
			s.NetTerms, err = r.OptionalInt()
		case "activated_at":
			s.ActivatedAt, err = r.OptionalTime()
		case "current_period_ends_at":
			s.CurrentPeriodEnds, err = r.OptionalTime()
		case "subscription_add_ons":
			s.AddOns = nil
			err = r.EachChild(func(name string) error {
				if name != "subscription_add_on" {
					return nil
				}
				addOn := &SubscriptionAddOn{}
				if err := addOn.ReadXML(r); err != nil {
					return err
				}
				s.AddOns = append(s.AddOns, addOn)
				return nil
			})
		}
		return err
	})
}

// WriteXML implements xmlcodec.Entity using the form embedded in
// purchases.
func (s *Subscription) WriteXML(w *xmlcodec.Writer) error {
	w.Start("subscription")
	w.Element("plan_code", s.PlanCode)
	if s.UnitAmountInCents > 0 {
		w.Int("unit_amount_in_cents", s.UnitAmountInCents)
	}
	if s.Quantity > 0 {
		w.Int("quantity", s.Quantity)
	}
	if len(s.AddOns) > 0 {
		w.Start("subscription_add_ons")
		for _, addOn := range s.AddOns {
			if err := addOn.WriteXML(w); err != nil {
				return err
			}
		}
		w.End("subscription_add_ons")
	}
	w.End("subscription")
	return w.Err()
}
