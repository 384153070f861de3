package fulfillment

import "time"

// Scheduler abstracts the two timing primitives the orchestrators use, so
// tests can drive stage delays and poll ticks without wall-clock waits.
type Scheduler interface {
	After(d time.Duration) <-chan time.Time
	Ticker(d time.Duration) (ticks <-chan time.Time, stop func())
}

type wallScheduler struct{}

// NewScheduler returns the wall-clock scheduler used outside tests.
func NewScheduler() Scheduler { return wallScheduler{} }

func (wallScheduler) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (wallScheduler) Ticker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}
