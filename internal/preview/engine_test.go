package preview

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeMC777/pos-checkout/internal/cart"
	"github.com/MikeMC777/pos-checkout/internal/clients"
	ord "github.com/MikeMC777/pos-checkout/internal/order"
)

type scriptedAPI struct {
	mu    sync.Mutex
	calls []ord.PreviewRequest
	err   error
	gate  chan struct{} // when set, Preview blocks until the gate closes
}

func (s *scriptedAPI) Preview(ctx context.Context, lines []ord.CreateOrderLine) (*ord.PricingPreview, error) {
	s.mu.Lock()
	s.calls = append(s.calls, ord.PreviewRequest{Lines: lines})
	gate := s.gate
	err := s.err
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	total := fmt.Sprintf("total-for-%d-lines-qty-%d", len(lines), lines[0].Quantity)
	return &ord.PricingPreview{FinalAmount: total}, nil
}

func (s *scriptedAPI) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func snapshotWith(qty int, rev uint64) cart.Snapshot {
	return cart.Snapshot{
		Revision: rev,
		Lines:    []cart.DraftLine{{LineItemID: "sku-1", Quantity: qty, UnitPrice: "50000"}},
	}
}

func TestEngine_DebounceCollapsesBurst(t *testing.T) {
	api := &scriptedAPI{}
	e := NewEngine(api, 60*time.Millisecond)
	defer e.Close()

	// five edits well inside one window
	for i := 1; i <= 5; i++ {
		e.Trigger(snapshotWith(i, uint64(i)))
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return api.callCount() == 1 },
		2*time.Second, 10*time.Millisecond, "burst must collapse into one request")

	p, rev, err := e.Current()
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, uint64(5), rev)
	assert.Equal(t, "total-for-1-lines-qty-5", p.FinalAmount)
	assert.Equal(t, 5, api.calls[0].Lines[0].Quantity, "request must carry the last edit's state")
}

func TestEngine_EmptyCartClearsWithoutRequest(t *testing.T) {
	api := &scriptedAPI{}
	e := NewEngine(api, 20*time.Millisecond)
	defer e.Close()

	e.Trigger(snapshotWith(2, 1))
	e.Trigger(cart.Snapshot{Revision: 2}) // cart emptied inside the window

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, api.callCount(), "empty cart must not be priced")

	p, _, err := e.Current()
	assert.Nil(t, p)
	assert.NoError(t, err)
}

func TestEngine_TransportFailureKeepsLastGood(t *testing.T) {
	api := &scriptedAPI{}
	e := NewEngine(api, 10*time.Millisecond)
	defer e.Close()

	e.Trigger(snapshotWith(2, 1))
	require.Eventually(t, func() bool {
		p, _, _ := e.Current()
		return p != nil
	}, 2*time.Second, 5*time.Millisecond)

	api.mu.Lock()
	api.err = fmt.Errorf("dial tcp: connection refused")
	api.mu.Unlock()

	e.Trigger(snapshotWith(3, 2))
	require.Eventually(t, func() bool {
		_, _, err := e.Current()
		return err != nil
	}, 2*time.Second, 5*time.Millisecond)

	p, rev, _ := e.Current()
	require.NotNil(t, p, "last good preview must be retained on failure")
	assert.Equal(t, "total-for-1-lines-qty-2", p.FinalAmount)
	assert.Equal(t, uint64(1), rev)
	assert.False(t, e.AuthExpired())
}

func TestEngine_AuthFailureSurfacedDistinctly(t *testing.T) {
	api := &scriptedAPI{err: fmt.Errorf("POST /orders/preview: %w", clients.ErrUnauthorized)}
	e := NewEngine(api, 10*time.Millisecond)
	defer e.Close()

	e.Trigger(snapshotWith(1, 1))
	require.Eventually(t, func() bool { return e.AuthExpired() },
		2*time.Second, 5*time.Millisecond)
}

func TestEngine_ConsumedDraftReplyDoesNotResurrect(t *testing.T) {
	gate := make(chan struct{})
	api := &scriptedAPI{gate: gate}
	e := NewEngine(api, 5*time.Millisecond)

	// an edit on the old draft is still in flight when checkout consumes the
	// draft and a fresh one, with revisions restarting at zero, clears the
	// preview
	e.Trigger(snapshotWith(2, 5))
	require.Eventually(t, func() bool { return api.callCount() == 1 },
		2*time.Second, time.Millisecond)
	e.Trigger(cart.Snapshot{Revision: 0})

	close(gate) // the old draft's reply lands after the clear
	e.Close()   // waits for the straggler

	p, rev, err := e.Current()
	require.NoError(t, err)
	assert.Nil(t, p, "a reply for the consumed draft must not undo the clear")
	assert.Equal(t, uint64(0), rev)
}

func TestEngine_StaleReplyDiscarded(t *testing.T) {
	gate := make(chan struct{})
	api := &scriptedAPI{gate: gate}
	e := NewEngine(api, 5*time.Millisecond)

	e.Trigger(snapshotWith(1, 1))
	require.Eventually(t, func() bool { return api.callCount() == 1 },
		2*time.Second, time.Millisecond)

	// a newer edit arrives while rev 1 is still in flight
	api.mu.Lock()
	api.gate = nil
	api.mu.Unlock()
	e.Trigger(snapshotWith(9, 2))
	require.Eventually(t, func() bool { return api.callCount() == 2 },
		2*time.Second, time.Millisecond)
	require.Eventually(t, func() bool {
		p, rev, _ := e.Current()
		return p != nil && rev == 2
	}, 2*time.Second, time.Millisecond)

	close(gate) // rev 1 finally replies
	e.Close()   // waits for the straggler

	p, rev, err := e.Current()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), rev, "stale reply must not overwrite the newer one")
	assert.Equal(t, "total-for-1-lines-qty-9", p.FinalAmount)
}
