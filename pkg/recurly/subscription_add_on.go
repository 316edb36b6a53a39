package recurly

import "github.com/Sternrassler/recurly-client/pkg/xmlcodec"

// SubscriptionAddOn is an add-on attached to a subscription.
type SubscriptionAddOn struct {
	AddOnCode           string
	AddOnType           *AddOnType
	UnitAmountInCents   int
	Quantity            int
	RevenueScheduleType *RevenueSchedule
}

// NewSubscriptionAddOn returns an add-on with quantity 1.
func NewSubscriptionAddOn(code string, addOnType *AddOnType, unitAmountInCents int) *SubscriptionAddOn {
	return &SubscriptionAddOn{
		AddOnCode:         code,
		AddOnType:         addOnType,
		UnitAmountInCents: unitAmountInCents,
		Quantity:          1,
	}
}

// ReadXML implements xmlcodec.Entity.
//
// A quantity that is not a number is an error. An unparsable
// unit_amount_in_cents keeps the current value, and an empty
// revenue_schedule_type leaves the schedule unset.
func (a *SubscriptionAddOn) ReadXML(r *xmlcodec.Reader) error {
	return r.EachChild(func(name string) error {
		var err error
		switch name {
		case "add_on_code":
			a.AddOnCode, err = r.Text()
		case "add_on_type":
			a.AddOnType, err = xmlcodec.OptionalEnum(r, addOnTypes...)
		case "quantity":
			a.Quantity, err = r.Int()
		case "unit_amount_in_cents":
			a.UnitAmountInCents, err = r.IntOrDefault(a.UnitAmountInCents)
		case "revenue_schedule_type":
			a.RevenueScheduleType, err = xmlcodec.OptionalEnum(r, revenueSchedules...)
		}
		return err
	})
}

// WriteXML implements xmlcodec.Entity. The add-on type is defined by the
// plan and is not written.
func (a *SubscriptionAddOn) WriteXML(w *xmlcodec.Writer) error {
	w.Start("subscription_add_on")
	w.Element("add_on_code", a.AddOnCode)
	w.Int("quantity", a.Quantity)
	w.Int("unit_amount_in_cents", a.UnitAmountInCents)
	xmlcodec.WriteOptionalEnum(w, "revenue_schedule_type", a.RevenueScheduleType)
	w.End("subscription_add_on")
	return w.Err()
}
