package main

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/MikeMC777/pos-checkout/internal/cart"
	"github.com/MikeMC777/pos-checkout/internal/checkout"
	"github.com/MikeMC777/pos-checkout/internal/clients"
	"github.com/MikeMC777/pos-checkout/internal/fulfillment"
	ord "github.com/MikeMC777/pos-checkout/internal/order"
	"github.com/MikeMC777/pos-checkout/internal/preview"
)

// timings groups the workflow constants so tests can shrink them.
type timings struct {
	DebounceWindow time.Duration
	StageDelay     time.Duration
	PollInterval   time.Duration
	PollMaxWait    time.Duration
}

// pipeline is one terminal's checkout session: the cart being edited, the
// debounced preview engine, and the orchestrator or payment session driving
// the current order. All handler access is serialized through mu; the
// background runs own their workflow mirror and only ever touch it through
// its own lock.
type pipeline struct {
	ext   *clients.Ext
	sched fulfillment.Scheduler
	tm    timings

	submitter *checkout.Submitter
	engine    *preview.Engine
	coord     *fulfillment.Coordinator

	mu      sync.Mutex
	draft   *cart.Draft
	wf      *fulfillment.Workflow
	session *fulfillment.PaymentSession
}

func newPipeline(ext *clients.Ext, sched fulfillment.Scheduler, tm timings) *pipeline {
	return &pipeline{
		ext:       ext,
		sched:     sched,
		tm:        tm,
		submitter: checkout.NewSubmitter(ext),
		engine:    preview.NewEngine(ext, tm.DebounceWindow),
		coord:     fulfillment.NewCoordinator(),
		draft:     cart.NewDraft(),
	}
}

// startCash begins the timed walk to COMPLETED for a freshly created order.
func (p *pipeline) startCash(wf *fulfillment.Workflow) {
	orch := fulfillment.NewCashOrchestrator(p.ext, wf, p.sched, p.tm.StageDelay)
	p.coord.Activate(orch)
	orch.Start(context.Background())
	go func() {
		if err := <-orch.Done(); err != nil {
			log.Printf("[pos] order=%s fulfillment halted: %v", wf.OrderID(), err)
		}
	}()
}

// startTransfer issues the payment intent and begins the reconciliation
// poll. Fulfillment completion is handed off once the session reports a
// match.
func (p *pipeline) startTransfer(ctx context.Context, wf *fulfillment.Workflow, amount string) (*fulfillment.PaymentSession, error) {
	cfg := fulfillment.SessionConfig{Interval: p.tm.PollInterval, MaxWait: p.tm.PollMaxWait}
	sess, err := fulfillment.StartPaymentSession(ctx, p.ext, p.ext, wf, p.sched, cfg, amount)
	if err != nil {
		return nil, err
	}
	p.coord.Activate(sess)
	go p.watchSession(sess, wf)
	return sess, nil
}

func (p *pipeline) watchSession(sess *fulfillment.PaymentSession, wf *fulfillment.Workflow) {
	r := <-sess.Done()
	if r.Err != nil {
		if r.Err != fulfillment.ErrCancelled {
			log.Printf("[pos] order=%s payment session ended: %v", wf.OrderID(), r.Err)
		}
		return
	}
	if !r.Matched {
		return
	}

	p.mu.Lock()
	if p.session == sess {
		p.session = nil
	}
	p.mu.Unlock()

	// payment settled; complete fulfillment over the same staged path
	orch := fulfillment.NewCashOrchestrator(p.ext, wf, p.sched, p.tm.StageDelay)
	if !p.coord.Replace(sess, orch) {
		// a newer checkout took over while the match landed
		return
	}
	orch.Start(context.Background())
	go func() {
		if err := <-orch.Done(); err != nil {
			log.Printf("[pos] order=%s completion halted: %v", wf.OrderID(), err)
		}
	}()
}

// consumeDraft swaps in a fresh cart after a successful submit; the old
// draft is consumed exactly once.
func (p *pipeline) consumeDraft() {
	p.draft = cart.NewDraft()
	p.engine.Trigger(p.draft.Snapshot())
}

// mirror is the read model handed to the UI; it tolerates staleness.
type mirror struct {
	OrderID       string            `json:"order_id"`
	Status        ord.Status        `json:"status"`
	PaymentStatus ord.PaymentStatus `json:"payment_status"`
	History       []ord.Status      `json:"history"`
}

func mirrorOf(wf *fulfillment.Workflow) mirror {
	status, payment := wf.Snapshot()
	return mirror{
		OrderID:       wf.OrderID(),
		Status:        status,
		PaymentStatus: payment,
		History:       wf.History(),
	}
}
