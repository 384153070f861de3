package order

import "time"

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusConfirmed  Status = "CONFIRMED"
	StatusDelivering Status = "DELIVERING"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

type PaymentMethod string

const (
	PaymentMethodCOD          PaymentMethod = "COD"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
)

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "UNPAID"
	PaymentPaid   PaymentStatus = "PAID"
)

// FulfillmentPath is the forward path every order walks; CANCELLED sits
// outside it and is only reachable from the first two states.
var FulfillmentPath = []Status{StatusPending, StatusConfirmed, StatusDelivering, StatusCompleted}

var statusRank = map[Status]int{
	StatusPending:    0,
	StatusConfirmed:  1,
	StatusDelivering: 2,
	StatusCompleted:  3,
}

func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok || s == StatusCancelled
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Next returns the following status on the fulfillment path, false at the end
// or off the path.
func (s Status) Next() (Status, bool) {
	r, ok := statusRank[s]
	if !ok || r >= len(FulfillmentPath)-1 {
		return "", false
	}
	return FulfillmentPath[r+1], true
}

// AtOrPast reports whether s already reached target on the fulfillment path.
// A cancelled order is past nothing.
func (s Status) AtOrPast(target Status) bool {
	sr, ok1 := statusRank[s]
	tr, ok2 := statusRank[target]
	return ok1 && ok2 && sr >= tr
}

// CanAdvanceTo reports whether to is a legal single-step transition from s:
// the immediate next status on the path, or CANCELLED while the order is
// still PENDING or CONFIRMED.
func (s Status) CanAdvanceTo(to Status) bool {
	if to == StatusCancelled {
		return s == StatusPending || s == StatusConfirmed
	}
	next, ok := s.Next()
	return ok && next == to
}

func (s Status) String() string { return string(s) }

type Order struct {
	ID              string        `json:"id"`
	CustomerID      string        `json:"customer_id,omitempty"`
	Status          Status        `json:"status"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
	PaymentStatus   PaymentStatus `json:"payment_status"`
	Total           string        `json:"total"` // NUMERIC -> string
	ShippingAddress string        `json:"shipping_address,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

type Line struct {
	ID         string `json:"id"`
	OrderID    string `json:"order_id"`
	LineItemID string `json:"line_item_id"`
	Quantity   int    `json:"quantity"`
	UnitPrice  string `json:"unit_price"`
	Subtotal   string `json:"subtotal"`
}
