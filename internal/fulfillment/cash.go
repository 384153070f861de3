package fulfillment

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/MikeMC777/pos-checkout/internal/clients"
	ord "github.com/MikeMC777/pos-checkout/internal/order"
)

var stageNotes = map[ord.Status]string{
	ord.StatusConfirmed:  "order confirmed, deducting stock",
	ord.StatusDelivering: "order handed to delivery",
	ord.StatusCompleted:  "order completed",
}

// CashOrchestrator advances a cash-paid order PENDING → CONFIRMED →
// DELIVERING → COMPLETED on a fixed timer. The cashier already holds the
// money, so there is no external signal to await; the delays let the UI
// narrate progress and give the backend room to apply side effects between
// stages. It is also used to finish a bank-transfer order once its payment
// session reports PAID, in which case the walk starts from the order's
// current status.
type CashOrchestrator struct {
	orders TransitionAPI
	wf     *Workflow
	sched  Scheduler
	delay  time.Duration

	cancelOnce sync.Once
	cancelled  chan struct{}
	done       chan error
}

func NewCashOrchestrator(orders TransitionAPI, wf *Workflow, sched Scheduler, stageDelay time.Duration) *CashOrchestrator {
	return &CashOrchestrator{
		orders:    orders,
		wf:        wf,
		sched:     sched,
		delay:     stageDelay,
		cancelled: make(chan struct{}),
		done:      make(chan error, 1),
	}
}

// Start launches the run. The result (nil, ErrCancelled, or the error of the
// stage that halted the run) arrives on Done exactly once.
func (o *CashOrchestrator) Start(ctx context.Context) {
	go o.run(ctx)
}

func (o *CashOrchestrator) Done() <-chan error { return o.done }

// Cancel stops the run at the next suspension point. Safe to call more than
// once.
func (o *CashOrchestrator) Cancel() {
	o.cancelOnce.Do(func() { close(o.cancelled) })
}

func (o *CashOrchestrator) run(ctx context.Context) {
	id := o.wf.OrderID()
	for {
		status, payment := o.wf.Snapshot()
		next, ok := status.Next()
		if !ok {
			o.done <- nil
			return
		}

		select {
		case <-o.sched.After(o.delay):
		case <-o.cancelled:
			o.done <- ErrCancelled
			return
		case <-ctx.Done():
			o.done <- ctx.Err()
			return
		}

		// The payment must be settled strictly before the completion
		// transition.
		if next == ord.StatusCompleted && payment != ord.PaymentPaid {
			rec, err := o.orders.UpdatePaymentStatus(ctx, id, ord.PaymentPaid)
			if err != nil {
				log.Printf("[fulfillment] order=%s settle payment failed: %v", id, err)
				o.done <- err
				return
			}
			o.wf.Adopt(rec)
		}

		rec, err := o.orders.UpdateStatus(ctx, id, next, stageNotes[next])
		if errors.Is(err, clients.ErrConflict) {
			// already at or past the target; adopt the authoritative state
			// and keep walking
			o.wf.Adopt(rec)
			continue
		}
		if err != nil {
			// halt at the last confirmed status; the caller may retry the
			// whole sequence, transitions are idempotent on the service side
			log.Printf("[fulfillment] order=%s stage %s failed: %v", id, next, err)
			o.done <- err
			return
		}
		o.wf.Adopt(rec)
		log.Printf("[fulfillment] order=%s advanced to %s", id, next)
	}
}
