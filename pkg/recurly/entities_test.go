package recurly_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/recurly-client/pkg/recurly"
	"github.com/Sternrassler/recurly-client/pkg/xmlcodec"
)

func ptr[T any](v T) *T { return &v }

func TestAccount_RoundTrip(t *testing.T) {
	in := &recurly.Account{
		Code:        "a1",
		Username:    ptr("ada"),
		Email:       ptr("ada@example.com"),
		FirstName:   ptr("Ada"),
		LastName:    ptr("Lovelace"),
		CompanyName: ptr("Engines & Co"),
	}

	data, err := xmlcodec.Marshal(in)
	require.NoError(t, err)

	out := &recurly.Account{}
	require.NoError(t, xmlcodec.Unmarshal(data, "account", out))
	assert.Equal(t, in, out)
}

func TestAccount_ReadServerDocument(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<account href="https://mysite.recurly.com/v2/accounts/a1">
  <adjustments href="https://mysite.recurly.com/v2/accounts/a1/adjustments"/>
  <account_code>a1</account_code>
  <state>active</state>
  <username nil="nil"></username>
  <email>ada@example.com</email>
  <company_name></company_name>
  <address><city>London</city></address>
  <created_at type="datetime">2024-05-01T10:00:00Z</created_at>
</account>`

	a := &recurly.Account{}
	require.NoError(t, xmlcodec.Unmarshal([]byte(doc), "account", a))

	assert.Equal(t, "a1", a.Code)
	require.NotNil(t, a.State)
	assert.Equal(t, recurly.AccountStateActive, *a.State)
	assert.Nil(t, a.Username)
	assert.Equal(t, "ada@example.com", *a.Email)
	require.NotNil(t, a.CompanyName)
	assert.Empty(t, *a.CompanyName)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), *a.CreatedAt)
}

func TestAccount_UnknownState(t *testing.T) {
	err := xmlcodec.Unmarshal([]byte(`<account><state>frozen</state></account>`), "account", &recurly.Account{})
	require.ErrorIs(t, err, xmlcodec.ErrUnknownToken)

	var parseErr *xmlcodec.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "state", parseErr.Element)
	assert.Equal(t, "frozen", parseErr.Value)
}

func TestParseAccountState(t *testing.T) {
	state, err := recurly.ParseAccountState("past_due")
	require.NoError(t, err)
	assert.Equal(t, recurly.AccountStatePastDue, state)

	state, err = recurly.ParseAccountState("")
	require.NoError(t, err)
	assert.Empty(t, state)

	_, err = recurly.ParseAccountState("frozen")
	var stateErr *recurly.UnknownStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, `unknown account state "frozen"`, err.Error())
}

func TestSubscriptionAddOn_RoundTrip(t *testing.T) {
	in := &recurly.SubscriptionAddOn{
		AddOnCode:           "seats",
		UnitAmountInCents:   500,
		Quantity:            3,
		RevenueScheduleType: ptr(recurly.RevenueAtRangeStart),
	}

	data, err := xmlcodec.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<subscription_add_on><add_on_code>seats</add_on_code><quantity>3</quantity><unit_amount_in_cents>500</unit_amount_in_cents><revenue_schedule_type>at_range_start</revenue_schedule_type></subscription_add_on>")

	out := &recurly.SubscriptionAddOn{}
	require.NoError(t, xmlcodec.Unmarshal(data, "subscription_add_on", out))
	assert.Equal(t, in, out)
}

func TestSubscriptionAddOn_WriteDropsAddOnType(t *testing.T) {
	in := &recurly.SubscriptionAddOn{
		AddOnCode: "seats",
		AddOnType: ptr(recurly.AddOnUsage),
		Quantity:  1,
	}

	data, err := xmlcodec.Marshal(in)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "add_on_type")

	out := &recurly.SubscriptionAddOn{}
	require.NoError(t, xmlcodec.Unmarshal(data, "subscription_add_on", out))
	assert.Nil(t, out.AddOnType)
	assert.Equal(t, "seats", out.AddOnCode)
	assert.Equal(t, 1, out.Quantity)
}

func TestSubscriptionAddOn_FieldPolicies(t *testing.T) {
	tests := []struct {
		name      string
		doc       string
		initial   *recurly.SubscriptionAddOn
		expected  *recurly.SubscriptionAddOn
		errTarget error
		errField  string
	}{
		{
			name: "all fields",
			doc: `<subscription_add_on><add_on_code>seats</add_on_code><add_on_type>usage</add_on_type>
<quantity>2</quantity><unit_amount_in_cents>150</unit_amount_in_cents>
<revenue_schedule_type>evenly</revenue_schedule_type></subscription_add_on>`,
			initial: &recurly.SubscriptionAddOn{},
			expected: &recurly.SubscriptionAddOn{
				AddOnCode:           "seats",
				AddOnType:           ptr(recurly.AddOnUsage),
				Quantity:            2,
				UnitAmountInCents:   150,
				RevenueScheduleType: ptr(recurly.RevenueEvenly),
			},
		},
		{
			name:     "non numeric unit amount keeps default",
			doc:      `<subscription_add_on><unit_amount_in_cents>lots</unit_amount_in_cents></subscription_add_on>`,
			initial:  &recurly.SubscriptionAddOn{UnitAmountInCents: 99},
			expected: &recurly.SubscriptionAddOn{UnitAmountInCents: 99},
		},
		{
			name:     "empty revenue schedule is absent",
			doc:      `<subscription_add_on><revenue_schedule_type></revenue_schedule_type></subscription_add_on>`,
			initial:  &recurly.SubscriptionAddOn{},
			expected: &recurly.SubscriptionAddOn{},
		},
		{
			name:     "non numeric quantity fails",
			doc:      `<subscription_add_on><quantity>two</quantity></subscription_add_on>`,
			initial:  &recurly.SubscriptionAddOn{},
			errField: "quantity",
		},
		{
			name:      "unknown revenue schedule fails",
			doc:       `<subscription_add_on><revenue_schedule_type>monthly</revenue_schedule_type></subscription_add_on>`,
			initial:   &recurly.SubscriptionAddOn{},
			errTarget: xmlcodec.ErrUnknownToken,
			errField:  "revenue_schedule_type",
		},
		{
			name:      "unknown add on type fails",
			doc:       `<subscription_add_on><add_on_type>tiered</add_on_type></subscription_add_on>`,
			initial:   &recurly.SubscriptionAddOn{},
			errTarget: xmlcodec.ErrUnknownToken,
			errField:  "add_on_type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := xmlcodec.Unmarshal([]byte(tt.doc), "subscription_add_on", tt.initial)
			if tt.errField == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, tt.initial)
				return
			}

			var parseErr *xmlcodec.ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, tt.errField, parseErr.Element)
			if tt.errTarget != nil {
				assert.ErrorIs(t, err, tt.errTarget)
			}
		})
	}
}

func TestNewSubscriptionAddOn(t *testing.T) {
	a := recurly.NewSubscriptionAddOn("seats", ptr(recurly.AddOnFixed), 200)
	assert.Equal(t, 1, a.Quantity)
	assert.Equal(t, 200, a.UnitAmountInCents)
}

func TestSubscription_ReadServerDocument(t *testing.T) {
	doc := `<subscription href="https://mysite.recurly.com/v2/subscriptions/abc">
  <account href="https://mysite.recurly.com/v2/accounts/a%201"/>
  <plan href="https://mysite.recurly.com/v2/plans/gold"><plan_code>gold</plan_code><name>Gold</name></plan>
  <uuid>abc</uuid>
  <state>active</state>
  <unit_amount_in_cents type="integer">1000</unit_amount_in_cents>
  <currency>USD</currency>
  <quantity type="integer">1</quantity>
  <activated_at type="datetime">2024-01-01T00:00:00Z</activated_at>
  <current_period_ends_at nil="nil"></current_period_ends_at>
  <collection_method>manual</collection_method>
  <net_terms type="integer">30</net_terms>
  <subscription_add_ons type="array">
    <subscription_add_on><add_on_code>seats</add_on_code><quantity>4</quantity><unit_amount_in_cents>100</unit_amount_in_cents></subscription_add_on>
  </subscription_add_ons>
</subscription>`

	s := &recurly.Subscription{}
	require.NoError(t, xmlcodec.Unmarshal([]byte(doc), "subscription", s))

	assert.Equal(t, "abc", s.UUID)
	assert.Equal(t, "a 1", s.AccountCode)
	assert.Equal(t, "gold", s.PlanCode)
	assert.Equal(t, 1000, s.UnitAmountInCents)
	assert.Equal(t, recurly.CollectionManual, *s.CollectionMethod)
	assert.Equal(t, 30, *s.NetTerms)
	assert.Nil(t, s.CurrentPeriodEnds)
	require.Len(t, s.AddOns, 1)
	assert.Equal(t, 4, s.AddOns[0].Quantity)
}

func TestInvoice_ReadServerDocument(t *testing.T) {
	doc := `<invoice href="https://mysite.recurly.com/v2/invoices/1001">
  <account href="https://mysite.recurly.com/v2/accounts/a1"/>
  <uuid>inv-uuid</uuid>
  <state>paid</state>
  <invoice_number type="integer">1001</invoice_number>
  <po_number nil="nil"></po_number>
  <subtotal_in_cents type="integer">1500</subtotal_in_cents>
  <tax_in_cents type="integer" nil="nil"></tax_in_cents>
  <total_in_cents type="integer">1500</total_in_cents>
  <currency>USD</currency>
  <created_at type="datetime">2024-02-03T04:05:06Z</created_at>
  <collection_method>automatic</collection_method>
  <line_items type="array">
    <adjustment href="https://mysite.recurly.com/v2/adjustments/adj1">
      <uuid>adj1</uuid>
      <description>Setup fee</description>
      <unit_amount_in_cents type="integer">1500</unit_amount_in_cents>
      <quantity type="integer">1</quantity>
      <revenue_schedule_type>at_range_end</revenue_schedule_type>
      <tax_exempt type="boolean">false</tax_exempt>
    </adjustment>
  </line_items>
</invoice>`

	inv := &recurly.Invoice{}
	require.NoError(t, xmlcodec.Unmarshal([]byte(doc), "invoice", inv))

	assert.Equal(t, 1001, inv.InvoiceNumber)
	assert.Equal(t, "a1", inv.AccountCode)
	assert.Equal(t, "paid", inv.State)
	assert.Nil(t, inv.PoNumber)
	assert.Equal(t, 1500, inv.SubtotalInCents)
	assert.Zero(t, inv.TaxInCents)
	assert.Equal(t, 1500, inv.TotalInCents)
	assert.Equal(t, recurly.CollectionAutomatic, *inv.CollectionMethod)
	require.Len(t, inv.LineItems, 1)
	assert.Equal(t, "Setup fee", *inv.LineItems[0].Description)
	assert.Equal(t, recurly.RevenueAtRangeEnd, *inv.LineItems[0].RevenueScheduleType)
	assert.False(t, *inv.LineItems[0].TaxExempt)
}

func TestPurchase_WriteXML(t *testing.T) {
	p := recurly.NewPurchase("a1", "USD")
	p.NetTerms = ptr(15)
	p.GiftCardRedemptionCode = ptr("GIFT1")
	p.CouponCodes = []string{"SAVE10", "WELCOME"}
	p.Adjustments = []*recurly.Adjustment{{
		Description:       ptr("Widget"),
		UnitAmountInCents: 250,
		Quantity:          2,
	}}
	p.Subscriptions = []*recurly.Subscription{{
		PlanCode: "gold",
		AddOns:   []*recurly.SubscriptionAddOn{{AddOnCode: "seats", Quantity: 2, UnitAmountInCents: 100}},
	}}

	data, err := xmlcodec.Marshal(p)
	require.NoError(t, err)

	doc := string(data)
	assert.Contains(t, doc, "<purchase><collection_method>automatic</collection_method><net_terms>15</net_terms><currency>USD</currency>")
	assert.Contains(t, doc, "<account><account_code>a1</account_code></account>")
	assert.Contains(t, doc, "<adjustments><adjustment><description>Widget</description><unit_amount_in_cents>250</unit_amount_in_cents><quantity>2</quantity></adjustment></adjustments>")
	assert.Contains(t, doc, "<subscriptions><subscription><plan_code>gold</plan_code><subscription_add_ons><subscription_add_on><add_on_code>seats</add_on_code>")
	assert.Contains(t, doc, "<coupon_codes><coupon_code>SAVE10</coupon_code><coupon_code>WELCOME</coupon_code></coupon_codes>")
	assert.Contains(t, doc, "<gift_card><redemption_code>GIFT1</redemption_code></gift_card></purchase>")
	assert.NotContains(t, doc, "po_number")
}

func TestPurchase_RoundTrip(t *testing.T) {
	in := &recurly.Purchase{
		CollectionMethod:       recurly.CollectionManual,
		Account:                &recurly.Account{Code: "a2", Email: ptr("b@example.com")},
		Currency:               "EUR",
		PoNumber:               ptr("PO-7"),
		NetTerms:               ptr(30),
		GiftCardRedemptionCode: ptr("GIFT2"),
		CouponCodes:            []string{"C1"},
		Adjustments:            []*recurly.Adjustment{{Currency: "EUR", UnitAmountInCents: 10, Quantity: 1}},
		Subscriptions:          []*recurly.Subscription{{PlanCode: "silver", Quantity: 2}},
	}

	data, err := xmlcodec.Marshal(in)
	require.NoError(t, err)

	out := &recurly.Purchase{}
	require.NoError(t, xmlcodec.Unmarshal(data, "purchase", out))
	assert.Equal(t, in, out)
}

func TestGiftCard_RedemptionForm(t *testing.T) {
	in := &recurly.GiftCard{RedemptionCode: "ABC", Currency: ptr("USD"), BalanceInCents: ptr(500)}
	data, err := xmlcodec.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<gift_card><redemption_code>ABC</redemption_code></gift_card>")

	// Server-assigned fields do not survive a write
	out := &recurly.GiftCard{}
	require.NoError(t, xmlcodec.Unmarshal(data, "gift_card", out))
	assert.Equal(t, &recurly.GiftCard{RedemptionCode: "ABC"}, out)
}
