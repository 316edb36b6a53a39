package recurly

import "github.com/Sternrassler/recurly-client/pkg/xmlcodec"

// Purchase bundles an account with subscriptions, one-time charges and
// coupons into a single invoice.
type Purchase struct {
	// CollectionMethod defaults to automatic when empty.
	CollectionMethod CollectionMethod

	// Account is an existing account (code only) or a new one.
	Account *Account

	Currency string
	PoNumber *string
	NetTerms *int

	// GiftCardRedemptionCode is redeemed against the purchase when set.
	GiftCardRedemptionCode *string

	Subscriptions []*Subscription
	Adjustments   []*Adjustment
	CouponCodes   []string
}

// NewPurchase returns a purchase for an existing account.
func NewPurchase(accountCode, currency string) *Purchase {
	return &Purchase{
		Account:  &Account{Code: accountCode},
		Currency: currency,
	}
}

// WriteXML implements xmlcodec.Entity.
func (p *Purchase) WriteXML(w *xmlcodec.Writer) error {
	method := p.CollectionMethod
	if method == "" {
		method = CollectionAutomatic
	}

	w.Start("purchase")
	w.Element("collection_method", string(method))
	w.OptionalInt("net_terms", p.NetTerms)
	w.Element("currency", p.Currency)
	w.OptionalElement("po_number", p.PoNumber)

	if p.Account != nil {
		if err := p.Account.WriteXML(w); err != nil {
			return err
		}
	}

	if len(p.Adjustments) > 0 {
		w.Start("adjustments")
		for _, adj := range p.Adjustments {
			if err := adj.WriteXML(w); err != nil {
				return err
			}
		}
		w.End("adjustments")
	}

	if len(p.Subscriptions) > 0 {
		w.Start("subscriptions")
		for _, sub := range p.Subscriptions {
			if err := sub.WriteXML(w); err != nil {
				return err
			}
		}
		w.End("subscriptions")
	}

	if len(p.CouponCodes) > 0 {
		w.Start("coupon_codes")
		for _, code := range p.CouponCodes {
			w.Element("coupon_code", code)
		}
		w.End("coupon_codes")
	}

	if p.GiftCardRedemptionCode != nil {
		gc := &GiftCard{RedemptionCode: *p.GiftCardRedemptionCode}
		if err := gc.WriteXML(w); err != nil {
			return err
		}
	}

	w.End("purchase")
	return w.Err()
}

// ReadXML implements xmlcodec.Entity.
func (p *Purchase) ReadXML(r *xmlcodec.Reader) error {
	return r.EachChild(func(name string) error {
		var err error
		switch name {
		case "collection_method":
			p.CollectionMethod, err = xmlcodec.Enum(r, collectionMethods...)
		case "net_terms":
			p.NetTerms, err = r.OptionalInt()
		case "currency":
			p.Currency, err = r.Text()
		case "po_number":
			p.PoNumber, err = r.OptionalString()
		case "account":
			p.Account = &Account{}
			err = p.Account.ReadXML(r)
		case "adjustments":
			p.Adjustments = nil
			err = r.EachChild(func(name string) error {
				if name != "adjustment" {
					return nil
				}
				adj := &Adjustment{}
				p.Adjustments = append(p.Adjustments, adj)
				return adj.ReadXML(r)
			})
		case "subscriptions":
			p.Subscriptions = nil
			err = r.EachChild(func(name string) error {
				if name != "subscription" {
					return nil
				}
				sub := &Subscription{}
				p.Subscriptions = append(p.Subscriptions, sub)
				return sub.ReadXML(r)
			})
		case "coupon_codes":
			p.CouponCodes = nil
			err = r.EachChild(func(name string) error {
				if name != "coupon_code" {
					return nil
				}
				code, err := r.Text()
				p.CouponCodes = append(p.CouponCodes, code)
				return err
			})
		case "gift_card":
			gc := &GiftCard{}
			if err = gc.ReadXML(r); err == nil {
				p.GiftCardRedemptionCode = &gc.RedemptionCode
			}
		}
		return err
	})
}
