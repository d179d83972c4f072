package opensky

import (
	"context"
	"sync"
	"time"
)

// Minimum interval between successful calls to /states/all.
const (
	StatesIntervalAnonymous     = 10 * time.Second
	StatesIntervalAuthenticated = 5 * time.Second
)

// opGetStates is the logical operation name used for the /states/all rate limit.
const opGetStates = "get_states"

// rateGate tracks, per logical operation, when the last successful call
// completed. Each operation has a one-slot semaphore so that at most one call
// per operation is between the rate check and the success record at a time.
type rateGate struct {
	mu  sync.Mutex
	ops map[string]*opSlot
}

type opSlot struct {
	sem  chan struct{}
	last time.Time
}

func newRateGate() *rateGate {
	return &rateGate{ops: make(map[string]*opSlot)}
}

// acquire takes the operation's slot, blocking until it is free or ctx is done.
// The caller must call release.
func (g *rateGate) acquire(ctx context.Context, op string) (*opSlot, error) {
	g.mu.Lock()
	slot, ok := g.ops[op]
	if !ok {
		slot = &opSlot{sem: make(chan struct{}, 1)}
		g.ops[op] = slot
	}
	g.mu.Unlock()

	select {
	case slot.sem <- struct{}{}:
		return slot, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *opSlot) release() {
	<-s.sem
}

// allowed reports whether at least interval has elapsed since the last
// recorded success. Only valid while the slot is held.
func (s *opSlot) allowed(now time.Time, interval time.Duration) bool {
	if s.last.IsZero() {
		return true
	}
	elapsed := now.Sub(s.last)
	if elapsed < 0 {
		elapsed = -elapsed
	}
	return elapsed >= interval
}

// markSuccess records a successful call. Only valid while the slot is held.
func (s *opSlot) markSuccess(now time.Time) {
	s.last = now
}

// lastSuccess returns the recorded time for op, or the zero time.
func (g *rateGate) lastSuccess(op string) time.Time {
	g.mu.Lock()
	slot, ok := g.ops[op]
	g.mu.Unlock()
	if !ok {
		return time.Time{}
	}

	// Take the slot so the read does not race with markSuccess.
	slot.sem <- struct{}{}
	defer slot.release()
	return slot.last
}
