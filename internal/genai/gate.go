package genai

import "context"

// Gate is a counting semaphore bounding in-flight calls to the generation
// backend. One Gate is shared by every caller in the process; the backend
// enforces its own rate limits, so the bound has to be applied client-side
// before the request leaves.
//
// A Gate is an injectable value rather than a package singleton so tests
// can run independent gates side by side.
type Gate struct {
	slots chan struct{}
}

// NewGate creates a gate admitting up to capacity concurrent holders.
// Capacity below 1 is clamped to 1.
func NewGate(capacity int) *Gate {
	if capacity < 1 {
		capacity = 1
	}
	return &Gate{slots: make(chan struct{}, capacity)}
}

// Acquire blocks until a slot is free or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	select {
	case g.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot taken by Acquire.
func (g *Gate) Release() {
	<-g.slots
}

// Capacity returns the configured slot count.
func (g *Gate) Capacity() int {
	return cap(g.slots)
}
