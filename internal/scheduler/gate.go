package scheduler

import "sync/atomic"

// ContentGate reports content-phase occupancy back to the owning pool. An
// unbound gate is inert, so the decision chain can hold one before the pool
// exists; New binds the pool side.
type ContentGate struct {
	pool atomic.Pointer[Pool]
}

// NewGate returns a gate ready to hand to the decision chain.
func NewGate() *ContentGate {
	return &ContentGate{}
}

func (g *ContentGate) bind(p *Pool) {
	g.pool.Store(p)
}

// Enter marks one worker blocked on content work.
func (g *ContentGate) Enter() {
	if p := g.pool.Load(); p != nil {
		p.gateEnter()
	}
}

// Leave reverses Enter.
func (g *ContentGate) Leave() {
	if p := g.pool.Load(); p != nil {
		p.gateLeave()
	}
}
