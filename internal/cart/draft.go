// Package cart holds the client-side order draft: the mutable cart a cashier
// edits before checkout. A Draft is owned by exactly one session goroutine
// and is not safe for concurrent use; the owning pipeline serializes access.
package cart

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	ord "github.com/MikeMC777/pos-checkout/internal/order"
)

var (
	ErrBadQuantity = errors.New("quantity must be positive")
	ErrLineMissing = errors.New("line item not in cart")
)

type DraftLine struct {
	LineItemID string `json:"line_item_id"`
	Quantity   int    `json:"quantity"`
	UnitPrice  string `json:"unit_price"`
	Subtotal   string `json:"subtotal"`
}

type Draft struct {
	Lines           []DraftLine       `json:"lines"`
	CustomerID      string            `json:"customer_id,omitempty"`
	Anonymous       bool              `json:"anonymous"`
	PaymentMethod   ord.PaymentMethod `json:"payment_method,omitempty"`
	ShippingAddress string            `json:"shipping_address,omitempty"`
	Notes           string            `json:"notes,omitempty"`

	rev uint64
}

// Snapshot is an immutable copy handed to the preview engine and the
// submitter, tagged with the revision it was taken at.
type Snapshot struct {
	Revision uint64
	Lines    []DraftLine
}

func NewDraft() *Draft { return &Draft{Anonymous: true} }

// Revision increases on every applied mutation. It identifies which edit a
// preview was priced from; it restarts at zero when a draft is replaced, so
// it must not be used to order events across drafts.
func (d *Draft) Revision() uint64 { return d.rev }

func (d *Draft) Empty() bool { return len(d.Lines) == 0 }

// Upsert adds a line or, if the item is already in the cart, replaces its
// quantity and price.
func (d *Draft) Upsert(lineItemID string, quantity int, unitPrice string) error {
	if quantity <= 0 {
		return ErrBadQuantity
	}
	sub, err := lineSubtotal(unitPrice, quantity)
	if err != nil {
		return err
	}
	d.rev++
	for i := range d.Lines {
		if d.Lines[i].LineItemID == lineItemID {
			d.Lines[i].Quantity = quantity
			d.Lines[i].UnitPrice = unitPrice
			d.Lines[i].Subtotal = sub
			return nil
		}
	}
	d.Lines = append(d.Lines, DraftLine{
		LineItemID: lineItemID, Quantity: quantity, UnitPrice: unitPrice, Subtotal: sub,
	})
	return nil
}

// SetQuantity changes an existing line; zero removes it.
func (d *Draft) SetQuantity(lineItemID string, quantity int) error {
	if quantity < 0 {
		return ErrBadQuantity
	}
	for i := range d.Lines {
		if d.Lines[i].LineItemID != lineItemID {
			continue
		}
		d.rev++
		if quantity == 0 {
			d.Lines = append(d.Lines[:i], d.Lines[i+1:]...)
			return nil
		}
		sub, err := lineSubtotal(d.Lines[i].UnitPrice, quantity)
		if err != nil {
			return err
		}
		d.Lines[i].Quantity = quantity
		d.Lines[i].Subtotal = sub
		return nil
	}
	return ErrLineMissing
}

func (d *Draft) Remove(lineItemID string) error {
	return d.SetQuantity(lineItemID, 0)
}

// Clear empties the cart and bumps the revision so late preview replies for
// the old contents are dropped.
func (d *Draft) Clear() {
	d.rev++
	d.Lines = nil
}

func (d *Draft) Snapshot() Snapshot {
	return Snapshot{Revision: d.rev, Lines: append([]DraftLine(nil), d.Lines...)}
}

// OrderLines renders the draft in the wire shape consumed by the preview and
// order endpoints.
func (s Snapshot) OrderLines() []ord.CreateOrderLine {
	out := make([]ord.CreateOrderLine, 0, len(s.Lines))
	for _, l := range s.Lines {
		out = append(out, ord.CreateOrderLine{LineItemID: l.LineItemID, Quantity: l.Quantity, UnitPrice: l.UnitPrice})
	}
	return out
}

func lineSubtotal(unitPrice string, quantity int) (string, error) {
	p, err := decimal.NewFromString(unitPrice)
	if err != nil || p.IsNegative() {
		return "", fmt.Errorf("invalid unit price %q", unitPrice)
	}
	return p.Mul(decimal.NewFromInt(int64(quantity))).String(), nil
}
