package fulfillment

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/MikeMC777/pos-checkout/internal/clients"
	ord "github.com/MikeMC777/pos-checkout/internal/order"
)

// PaymentAPI is the slice of the payment service the session calls.
type PaymentAPI interface {
	CreateIntent(ctx context.Context, orderID, amount string) (*clients.Intent, error)
	CheckMatch(ctx context.Context, content, amount string) (bool, error)
}

// SessionResult is delivered exactly once on Done.
type SessionResult struct {
	Matched bool
	Err     error
}

// SessionConfig carries the poll interval and the optional expiry. MaxWait
// zero means the base behavior: poll until matched or cancelled.
type SessionConfig struct {
	Interval time.Duration
	MaxWait  time.Duration
}

// PaymentSession owns one bank-transfer confirmation: it holds the issued
// intent (QR payload, bank account, transfer-content token) and a poll loop
// that asks the ledger for a matching incoming transaction. A matched
// session settles the payment and stops; fulfillment completion is then the
// caller's move.
type PaymentSession struct {
	OrderID string
	Amount  string
	Intent  clients.Intent

	orders   TransitionAPI
	payments PaymentAPI
	wf       *Workflow
	sched    Scheduler
	cfg      SessionConfig

	cancelOnce sync.Once
	cancelled  chan struct{}
	done       chan SessionResult
}

// StartPaymentSession requests a payment intent and starts the poll loop.
// An intent failure means no session exists; nothing needs cancelling.
func StartPaymentSession(ctx context.Context, orders TransitionAPI, payments PaymentAPI,
	wf *Workflow, sched Scheduler, cfg SessionConfig, amount string) (*PaymentSession, error) {

	intent, err := payments.CreateIntent(ctx, wf.OrderID(), amount)
	if err != nil {
		return nil, err
	}
	s := &PaymentSession{
		OrderID:   wf.OrderID(),
		Amount:    amount,
		Intent:    *intent,
		orders:    orders,
		payments:  payments,
		wf:        wf,
		sched:     sched,
		cfg:       cfg,
		cancelled: make(chan struct{}),
		done:      make(chan SessionResult, 1),
	}
	go s.poll(ctx)
	return s, nil
}

func (s *PaymentSession) Done() <-chan SessionResult { return s.done }

// Cancel tears the poll loop down: no further ticks, and a match reply
// already in flight is discarded rather than acted upon. Safe to call more
// than once.
func (s *PaymentSession) Cancel() {
	s.cancelOnce.Do(func() { close(s.cancelled) })
}

func (s *PaymentSession) poll(ctx context.Context) {
	ticks, stop := s.sched.Ticker(s.cfg.Interval)
	defer stop()

	var expiry <-chan time.Time
	if s.cfg.MaxWait > 0 {
		expiry = s.sched.After(s.cfg.MaxWait)
	}

	for {
		select {
		case <-s.cancelled:
			s.finish(SessionResult{Err: ErrCancelled})
			return
		case <-ctx.Done():
			s.finish(SessionResult{Err: ctx.Err()})
			return
		case <-expiry:
			s.finish(SessionResult{Err: ErrPaymentNotDetected})
			return
		case <-ticks:
			matched, err := s.payments.CheckMatch(ctx, s.Intent.TransferContent, s.Amount)
			if err != nil {
				// transient; the next tick is the retry
				log.Printf("[poll] order=%s reconciliation check failed: %v", s.OrderID, err)
				continue
			}
			if !matched {
				continue
			}
			select {
			case <-s.cancelled:
				// the match landed after cancellation; discard it
				s.finish(SessionResult{Err: ErrCancelled})
				return
			default:
			}
			rec, err := s.orders.UpdatePaymentStatus(ctx, s.OrderID, ord.PaymentPaid)
			if err != nil {
				s.finish(SessionResult{Err: err})
				return
			}
			s.wf.Adopt(rec)
			log.Printf("[poll] order=%s transfer matched, payment settled", s.OrderID)
			s.finish(SessionResult{Matched: true})
			return
		}
	}
}

func (s *PaymentSession) finish(r SessionResult) {
	select {
	case s.done <- r:
	default:
	}
}
