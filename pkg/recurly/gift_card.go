package recurly

import "github.com/Sternrassler/recurly-client/pkg/xmlcodec"

// GiftCard is a gift card in its redemption form: only the redemption
// code travels with a purchase.
type GiftCard struct {
	RedemptionCode string
	Currency       *string
	BalanceInCents *int
}

// ReadXML implements xmlcodec.Entity.
func (g *GiftCard) ReadXML(r *xmlcodec.Reader) error {
	return r.EachChild(func(name string) error {
		var err error
		switch name {
		case "redemption_code":
			g.RedemptionCode, err = r.Text()
		case "currency":
			g.Currency, err = r.OptionalString()
		case "balance_in_cents":
			g.BalanceInCents, err = r.OptionalInt()
		}
		return err
	})
}

// WriteXML implements xmlcodec.Entity. Only the redemption code is
// written; currency and balance are server-assigned.
func (g *GiftCard) WriteXML(w *xmlcodec.Writer) error {
	w.Start("gift_card")
	w.Element("redemption_code", g.RedemptionCode)
	w.End("gift_card")
	return w.Err()
}
