// Package preview keeps the cart's displayed totals current: every cart
// mutation triggers a debounced re-price against the pricing endpoint, and
// only the reply for the newest trigger is kept.
package preview

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/MikeMC777/pos-checkout/internal/cart"
	"github.com/MikeMC777/pos-checkout/internal/clients"
	ord "github.com/MikeMC777/pos-checkout/internal/order"
)

// API is the slice of the client bundle the engine needs.
type API interface {
	Preview(ctx context.Context, lines []ord.CreateOrderLine) (*ord.PricingPreview, error)
}

// Engine debounces preview requests. The timer is an owned field: triggering
// again before the quiescence window elapses resets it, so a burst of edits
// issues exactly one request, priced from the last snapshot in the burst.
type Engine struct {
	api    API
	window time.Duration

	mu       sync.Mutex
	timer    *time.Timer
	gen      uint64        // bumped per trigger; stales older timers and replies
	pending  cart.Snapshot // newest snapshot, the one the timer will send
	current  *ord.PricingPreview
	applied  uint64 // revision the current preview was priced from
	lastErr  error
	authErr  bool
	closed   bool
	inflight sync.WaitGroup
}

func NewEngine(api API, window time.Duration) *Engine {
	return &Engine{api: api, window: window}
}

// Trigger notes a cart mutation. An empty snapshot clears the preview
// locally and sends nothing.
func (e *Engine) Trigger(snap cart.Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if len(snap.Lines) == 0 {
		e.gen++
		if e.timer != nil {
			e.timer.Stop()
			e.timer = nil
		}
		e.current = nil
		e.lastErr = nil
		e.authErr = false
		e.applied = snap.Revision
		return
	}
	e.pending = snap
	e.gen++
	gen := e.gen
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(e.window, func() { e.fire(gen) })
}

// fire runs once the window has been quiet; it sends the newest snapshot.
// A timer that fired concurrently with a reset carries a stale gen and is
// dropped here.
func (e *Engine) fire(gen uint64) {
	e.mu.Lock()
	if e.closed || gen != e.gen {
		e.mu.Unlock()
		return
	}
	snap := e.pending
	e.timer = nil
	e.inflight.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		p, err := e.api.Preview(ctx, snap.OrderLines())

		e.mu.Lock()
		defer e.mu.Unlock()
		if e.closed || gen != e.gen {
			// a newer trigger superseded this reply; last write wins.
			// Comparing generations, not revisions: revisions restart at
			// zero when the draft is replaced after a checkout, so a reply
			// for the consumed draft must not outrank the clear.
			return
		}
		if err != nil {
			// keep the last good preview; the next edit is the retry
			e.lastErr = err
			e.authErr = errors.Is(err, clients.ErrUnauthorized)
			log.Printf("[preview] rev=%d failed: %v", snap.Revision, err)
			return
		}
		e.current = p
		e.applied = snap.Revision
		e.lastErr = nil
		e.authErr = false
	}()
}

// Current returns the last successful preview (nil when cleared or never
// priced), the revision it was priced from, and the error of the most recent
// attempt if that attempt failed.
func (e *Engine) Current() (*ord.PricingPreview, uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current, e.applied, e.lastErr
}

// AuthExpired reports whether the most recent failure was an auth failure,
// so the caller can prompt re-authentication instead of retrying blindly.
func (e *Engine) AuthExpired() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.authErr
}

// Close stops the pending timer and waits for any in-flight request to
// settle. Replies landing after Close are discarded.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.mu.Unlock()
	e.inflight.Wait()
}
