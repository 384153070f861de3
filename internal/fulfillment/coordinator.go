package fulfillment

import "sync"

type canceller interface{ Cancel() }

// Coordinator enforces the single-active-orchestrator rule: installing a new
// run cancels whatever was active before, so a prior checkout's timers or
// poller can never mutate the new session's state.
type Coordinator struct {
	mu     sync.Mutex
	active canceller
}

func NewCoordinator() *Coordinator { return &Coordinator{} }

// Activate cancels the previously active run, then installs r.
func (c *Coordinator) Activate(r canceller) {
	c.mu.Lock()
	prev := c.active
	c.active = r
	c.mu.Unlock()
	if prev != nil {
		prev.Cancel()
	}
}

// Replace installs next only if old is still the active run, cancelling old.
// It reports false when something newer already took over, in which case
// next must not be started.
func (c *Coordinator) Replace(old, next canceller) bool {
	c.mu.Lock()
	if c.active != old {
		c.mu.Unlock()
		return false
	}
	c.active = next
	c.mu.Unlock()
	if old != nil {
		old.Cancel()
	}
	return true
}

// Reset cancels the active run, if any.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	prev := c.active
	c.active = nil
	c.mu.Unlock()
	if prev != nil {
		prev.Cancel()
	}
}
