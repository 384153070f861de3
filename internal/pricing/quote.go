// Package pricing computes order totals for the preview endpoint and for
// server-side revalidation at order creation. It is deterministic and
// stateless: the same lines always produce the same quote.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	ord "github.com/MikeMC777/pos-checkout/internal/order"
)

var ErrNoLines = errors.New("no lines to price")

var (
	discountTier1Min  = decimal.NewFromInt(500000)  // 5% off
	discountTier2Min  = decimal.NewFromInt(1000000) // 10% off
	discountTier1Rate = decimal.NewFromFloat(0.05)
	discountTier2Rate = decimal.NewFromFloat(0.10)
	freeShippingMin   = decimal.NewFromInt(300000)
	flatShippingFee   = decimal.NewFromInt(20000)
	vatRate           = decimal.NewFromFloat(0.08)
	giftThreshold     = decimal.NewFromInt(1000000) // one gift per full million
)

type LineInput struct {
	LineItemID string
	Quantity   int
	UnitPrice  decimal.Decimal
}

type Quote struct {
	Original decimal.Decimal
	Discount decimal.Decimal
	Shipping decimal.Decimal
	VAT      decimal.Decimal
	Final    decimal.Decimal

	Promotions []string
	Gifts      []ord.GiftItem
}

// ParseLines converts wire lines into priced inputs, rejecting non-positive
// quantities and malformed amounts.
func ParseLines(lines []ord.CreateOrderLine) ([]LineInput, error) {
	if len(lines) == 0 {
		return nil, ErrNoLines
	}
	out := make([]LineInput, 0, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("line %s: quantity must be positive", l.LineItemID)
		}
		p, err := decimal.NewFromString(l.UnitPrice)
		if err != nil || p.IsNegative() {
			return nil, fmt.Errorf("line %s: invalid unit price %q", l.LineItemID, l.UnitPrice)
		}
		out = append(out, LineInput{LineItemID: l.LineItemID, Quantity: l.Quantity, UnitPrice: p})
	}
	return out, nil
}

func Compute(lines []LineInput) (Quote, error) {
	if len(lines) == 0 {
		return Quote{}, ErrNoLines
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	q := Quote{Original: subtotal, Discount: decimal.Zero, Shipping: flatShippingFee}

	switch {
	case subtotal.GreaterThanOrEqual(discountTier2Min):
		q.Discount = subtotal.Mul(discountTier2Rate).Round(2)
		q.Promotions = append(q.Promotions, "ORDER_VALUE_10PCT")
	case subtotal.GreaterThanOrEqual(discountTier1Min):
		q.Discount = subtotal.Mul(discountTier1Rate).Round(2)
		q.Promotions = append(q.Promotions, "ORDER_VALUE_5PCT")
	}

	if subtotal.GreaterThanOrEqual(freeShippingMin) {
		q.Shipping = decimal.Zero
		q.Promotions = append(q.Promotions, "FREE_SHIPPING")
	}

	discounted := subtotal.Sub(q.Discount)
	q.VAT = discounted.Mul(vatRate).Round(2)
	q.Final = discounted.Add(q.Shipping).Add(q.VAT)

	if gifts := discounted.Div(giftThreshold).IntPart(); gifts > 0 {
		q.Gifts = append(q.Gifts, ord.GiftItem{Name: "LOYALTY_GIFT", Quantity: int(gifts)})
	}
	return q, nil
}

// Preview renders a quote in the wire shape.
func (q Quote) Preview() *ord.PricingPreview {
	promos := q.Promotions
	if promos == nil {
		promos = []string{}
	}
	gifts := q.Gifts
	if gifts == nil {
		gifts = []ord.GiftItem{}
	}
	return &ord.PricingPreview{
		OriginalAmount:    q.Original.String(),
		DiscountAmount:    q.Discount.String(),
		ShippingFee:       q.Shipping.String(),
		VATAmount:         q.VAT.String(),
		FinalAmount:       q.Final.String(),
		AppliedPromotions: promos,
		GiftItems:         gifts,
	}
}
