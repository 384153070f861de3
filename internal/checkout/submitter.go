// Package checkout turns a cart draft into a persisted order.
package checkout

import (
	"context"
	"errors"

	"github.com/MikeMC777/pos-checkout/internal/cart"
	ord "github.com/MikeMC777/pos-checkout/internal/order"
)

var (
	ErrEmptyCart  = errors.New("cart has no lines")
	ErrNoCustomer = errors.New("customer reference required for non-anonymous checkout")
)

// OrderCreator is the slice of the order service the submitter calls.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req ord.CreateOrderRequest) (*ord.CreateOrderResponse, error)
}

// Submitter issues exactly one persistence call per Submit. It is not
// reentrancy-safe: the caller must allow at most one concurrent Submit per
// draft (the UI disables the button while a call is in flight).
type Submitter struct {
	orders OrderCreator
}

func NewSubmitter(orders OrderCreator) *Submitter { return &Submitter{orders: orders} }

// Submit validates the draft locally, then creates the order. Validation
// failures never reach the backend, and a failed call mutates nothing.
func (s *Submitter) Submit(ctx context.Context, d *cart.Draft) (*ord.CreateOrderResponse, error) {
	if d.Empty() {
		return nil, ErrEmptyCart
	}
	if !d.Anonymous && d.CustomerID == "" {
		return nil, ErrNoCustomer
	}
	req := ord.CreateOrderRequest{
		CustomerID:      d.CustomerID,
		Lines:           d.Snapshot().OrderLines(),
		PaymentMethod:   d.PaymentMethod,
		ShippingAddress: d.ShippingAddress,
		Notes:           d.Notes,
	}
	return s.orders.CreateOrder(ctx, req)
}
