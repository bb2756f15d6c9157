package acquisition

import "sync"

// Gate blocks producers while acquisition is paused.
type Gate struct {
	mu     sync.Mutex
	cond   *sync.Cond
	paused bool
	closed bool
}

func NewGate() *Gate {
	g := &Gate{}
	g.cond = sync.NewCond(&g.mu)
	return g
}

func (g *Gate) Toggle() bool {
	g.mu.Lock()
	g.paused = !g.paused
	paused := g.paused
	g.mu.Unlock()
	g.cond.Broadcast()
	return paused
}

func (g *Gate) Paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}

// Close releases all waiters for good.
func (g *Gate) Close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
	g.cond.Broadcast()
}

// Wait returns once the gate is open. It reports false if the gate was closed.
// A nil gate never blocks.
func (g *Gate) Wait() bool {
	if g == nil {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for g.paused && !g.closed {
		g.cond.Wait()
	}
	return !g.closed
}
