// Package fulfillment drives a submitted order to completion: the cash
// orchestrator walks the timed status sequence, the bank-transfer session
// polls the ledger until the payment is matched, and the workflow mirror
// tracks the authoritative status for readers.
package fulfillment

import (
	"context"
	"errors"
	"sync"

	ord "github.com/MikeMC777/pos-checkout/internal/order"
)

var (
	ErrCancelled = errors.New("fulfillment cancelled")
	// ErrPaymentNotDetected is reported only when a session is configured
	// with a maximum wait; the base design polls until matched or cancelled.
	ErrPaymentNotDetected = errors.New("payment not detected within the allowed wait")
)

// TransitionAPI is the slice of the order service the orchestrators call.
type TransitionAPI interface {
	UpdateStatus(ctx context.Context, id string, to ord.Status, note string) (*ord.Order, error)
	UpdatePaymentStatus(ctx context.Context, id string, ps ord.PaymentStatus) (*ord.Order, error)
}

// Workflow is the local mirror of one order's status and payment status. It
// is written only by the orchestrator owning the order, and only from
// authoritative service responses, never optimistically. Readers get an
// eventually consistent, monotonically advancing view.
type Workflow struct {
	mu      sync.RWMutex
	orderID string
	status  ord.Status
	payment ord.PaymentStatus
	history []ord.Status
}

func NewWorkflow(orderID string, status ord.Status, payment ord.PaymentStatus) *Workflow {
	return &Workflow{
		orderID: orderID,
		status:  status,
		payment: payment,
		history: []ord.Status{status},
	}
}

func (w *Workflow) OrderID() string { return w.orderID }

func (w *Workflow) Snapshot() (ord.Status, ord.PaymentStatus) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.status, w.payment
}

// History returns every distinct status observed, in order.
func (w *Workflow) History() []ord.Status {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]ord.Status(nil), w.history...)
}

// Adopt takes an authoritative record into the mirror. The status only ever
// advances; a stale read from the service cannot walk the mirror backwards.
func (w *Workflow) Adopt(rec *ord.Order) {
	if rec == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	advanced := rec.Status == ord.StatusCancelled && !w.status.IsTerminal()
	if !advanced {
		advanced = rec.Status.Valid() && !w.status.AtOrPast(rec.Status) && w.status != ord.StatusCancelled
	}
	if advanced && rec.Status != w.status {
		w.status = rec.Status
		w.history = append(w.history, rec.Status)
	}
	if rec.PaymentStatus == ord.PaymentPaid {
		w.payment = ord.PaymentPaid
	}
}
