// Package readiness sequences startup on asynchronous media events.
package readiness

import (
	"context"
	"fmt"
	"sync"
)

// Gate is a one-shot join over up to 64 independent events. It resolves
// when the last outstanding event fires, in any order, and never resets.
type Gate struct {
	mu      sync.Mutex
	want    uint64
	fired   uint64
	done    chan struct{}
	closed  bool
	err     error
	onReady func()
}

// NewGate returns a gate over n events. onReady, if non-nil, runs exactly
// once on the goroutine whose Fire completes the gate.
func NewGate(n int, onReady func()) *Gate {
	if n < 1 || n > 64 {
		panic(fmt.Sprintf("readiness: gate over %d events", n))
	}
	var want uint64
	if n == 64 {
		want = ^uint64(0)
	} else {
		want = (uint64(1) << uint(n)) - 1
	}
	return &Gate{
		want:    want,
		done:    make(chan struct{}),
		onReady: onReady,
	}
}

// Fire latches event i. It returns true only for the call that resolved
// the gate; repeated or late fires are ignored.
func (g *Gate) Fire(i int) bool {
	bit := uint64(1) << uint(i)
	g.mu.Lock()
	if g.closed || g.want&bit == 0 {
		g.mu.Unlock()
		return false
	}
	g.fired |= bit
	if g.fired != g.want {
		g.mu.Unlock()
		return false
	}
	g.closed = true
	close(g.done)
	onReady := g.onReady
	g.mu.Unlock()

	if onReady != nil {
		onReady()
	}
	return true
}

// Fail resolves the gate with err instead of readiness. The completion
// callback does not run.
func (g *Gate) Fail(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.err = err
	g.closed = true
	close(g.done)
}

// Fired reports whether event i has fired.
func (g *Gate) Fired(i int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fired&(uint64(1)<<uint(i)) != 0
}

// Done is closed once the gate resolves or fails.
func (g *Gate) Done() <-chan struct{} {
	return g.done
}

// Ready reports whether every event fired.
func (g *Gate) Ready() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed && g.err == nil
}

// Err returns the failure passed to Fail, if any.
func (g *Gate) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

// Wait blocks until the gate resolves, fails, or ctx ends.
func (g *Gate) Wait(ctx context.Context) error {
	select {
	case <-g.done:
		return g.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
