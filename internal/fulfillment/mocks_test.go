package fulfillment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MikeMC777/pos-checkout/internal/clients"
	ord "github.com/MikeMC777/pos-checkout/internal/order"
)

// fakeScheduler hands out timers and ticks the test fires by hand, so no
// test ever sleeps through a real stage delay or poll interval.
type fakeScheduler struct {
	afters chan chan time.Time
	ticks  chan time.Time
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{
		afters: make(chan chan time.Time, 16),
		ticks:  make(chan time.Time, 16),
	}
}

func (f *fakeScheduler) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	f.afters <- ch
	return ch
}

func (f *fakeScheduler) Ticker(d time.Duration) (<-chan time.Time, func()) {
	return f.ticks, func() {}
}

// fireNextAfter waits for the next armed timer and fires it.
func (f *fakeScheduler) fireNextAfter(t *testing.T) {
	t.Helper()
	select {
	case ch := <-f.afters:
		ch <- time.Now()
	case <-time.After(2 * time.Second):
		t.Fatal("no timer armed within 2s")
	}
}

func (f *fakeScheduler) tick() { f.ticks <- time.Now() }

// fakeOrders plays the order persistence service: it applies guarded
// transitions to one in-memory record and can be scripted to fail or
// conflict at a given target status.
type fakeOrders struct {
	mu          sync.Mutex
	rec         ord.Order
	statusCalls []ord.Status
	payCalls    int
	failAt      ord.Status
	payErr      error
}

func newFakeOrders(id string, status ord.Status) *fakeOrders {
	return &fakeOrders{rec: ord.Order{ID: id, Status: status, PaymentStatus: ord.PaymentUnpaid}}
}

func (f *fakeOrders) UpdateStatus(_ context.Context, id string, to ord.Status, _ string) (*ord.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls = append(f.statusCalls, to)
	if f.failAt != "" && to == f.failAt {
		return nil, &clients.StatusError{Code: 500, Msg: "stage rejected"}
	}
	if err := ord.CheckTransition(f.rec.Status, to); err != nil {
		cp := f.rec
		if err == ord.ErrAlreadyThere {
			return &cp, clients.ErrConflict
		}
		return nil, &clients.StatusError{Code: 422, Msg: err.Error()}
	}
	f.rec.Status = to
	cp := f.rec
	return &cp, nil
}

func (f *fakeOrders) UpdatePaymentStatus(_ context.Context, id string, ps ord.PaymentStatus) (*ord.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payCalls++
	if f.payErr != nil {
		return nil, f.payErr
	}
	f.rec.PaymentStatus = ps
	cp := f.rec
	return &cp, nil
}

func (f *fakeOrders) snapshot() (ord.Order, []ord.Status, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rec, append([]ord.Status(nil), f.statusCalls...), f.payCalls
}

type matchStep struct {
	matched bool
	err     error
}

// fakePayments scripts the reconciliation answers tick by tick; an optional
// gate lets a test hold a poll reply in flight.
type fakePayments struct {
	mu        sync.Mutex
	intent    clients.Intent
	intentErr error
	script    []matchStep
	calls     int
	gate      chan struct{}
}

func (f *fakePayments) CreateIntent(_ context.Context, orderID, amount string) (*clients.Intent, error) {
	if f.intentErr != nil {
		return nil, f.intentErr
	}
	cp := f.intent
	return &cp, nil
}

func (f *fakePayments) CheckMatch(_ context.Context, content, amount string) (bool, error) {
	f.mu.Lock()
	i := f.calls
	f.calls++
	gate := f.gate
	var step matchStep
	if i < len(f.script) {
		step = f.script[i]
	}
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return step.matched, step.err
}

func (f *fakePayments) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
