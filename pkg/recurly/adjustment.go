package recurly

import (
	"time"

	"github.com/Sternrassler/recurly-client/pkg/list"
	"github.com/Sternrassler/recurly-client/pkg/xmlcodec"
)

// Adjustment is a charge or credit, either standalone or as an invoice
// line item.
type Adjustment struct {
	UUID                string
	Description         *string
	AccountingCode      *string
	Currency            string
	UnitAmountInCents   int
	Quantity            int
	TotalInCents        *int
	RevenueScheduleType *RevenueSchedule
	TaxExempt           *bool
	CreatedAt           *time.Time
}

// AdjustmentCodec describes adjustments in collection documents.
var AdjustmentCodec = list.Codec[*Adjustment]{
	Element: "adjustment",
	New:     func() *Adjustment { return &Adjustment{} },
}

// ReadXML implements xmlcodec.Entity.
func (a *Adjustment) ReadXML(r *xmlcodec.Reader) error {
	return r.EachChild(func(name string) error {
		var err error
		switch name {
		case "uuid":
			a.UUID, err = r.Text()
		case "description":
			a.Description, err = r.OptionalString()
		case "accounting_code":
			a.AccountingCode, err = r.OptionalString()
		case "currency":
			a.Currency, err = r.Text()
		case "unit_amount_in_cents":
			a.UnitAmountInCents, err = r.Int()
		case "quantity":
			a.Quantity, err = r.Int()
		case "total_in_cents":
			a.TotalInCents, err = r.OptionalInt()
		case "revenue_schedule_type":
			a.RevenueScheduleType, err = xmlcodec.OptionalEnum(r, revenueSchedules...)
		case "tax_exempt":
			a.TaxExempt, err = r.OptionalBool()
		case "created_at":
			a.CreatedAt, err = r.OptionalTime()
		}
		return err
	})
}

// WriteXML implements xmlcodec.Entity using the form embedded in
// purchases.
func (a *Adjustment) WriteXML(w *xmlcodec.Writer) error {
	w.Start("adjustment")
	w.OptionalElement("description", a.Description)
	w.OptionalElement("accounting_code", a.AccountingCode)
	if a.Currency != "" {
		w.Element("currency", a.Currency)
	}
	w.Int("unit_amount_in_cents", a.UnitAmountInCents)
	w.Int("quantity", a.Quantity)
	xmlcodec.WriteOptionalEnum(w, "revenue_schedule_type", a.RevenueScheduleType)
	w.OptionalBool("tax_exempt", a.TaxExempt)
	w.End("adjustment")
	return w.Err()
}
