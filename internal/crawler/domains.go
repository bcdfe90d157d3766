package crawler

import (
	"context"
	"sync"
)

// DomainGates limits concurrent requests per host. Each host gets a bounded
// counter of capacity maxPerDomain, created lazily on first use and never
// evicted during a run. The mutex covers only map lookup and insertion; the
// counter wait happens outside it.
type DomainGates struct {
	mu           sync.Mutex
	gates        map[string]chan struct{}
	maxPerDomain int
}

// NewDomainGates creates an empty gate registry.
func NewDomainGates(maxPerDomain int) *DomainGates {
	if maxPerDomain < 1 {
		maxPerDomain = 1
	}
	return &DomainGates{
		gates:        make(map[string]chan struct{}),
		maxPerDomain: maxPerDomain,
	}
}

func (g *DomainGates) gate(host string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	gate, ok := g.gates[host]
	if !ok {
		gate = make(chan struct{}, g.maxPerDomain)
		g.gates[host] = gate
	}
	return gate
}

// Acquire blocks until a slot for the host is free, then returns the release
// function. Returns an error only when the context ends first.
func (g *DomainGates) Acquire(ctx context.Context, host string) (release func(), err error) {
	gate := g.gate(host)
	select {
	case gate <- struct{}{}:
		return func() { <-gate }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// InFlight reports the current slot usage for a host. Used by tests to check
// the per-domain cap.
func (g *DomainGates) InFlight(host string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if gate, ok := g.gates[host]; ok {
		return len(gate)
	}
	return 0
}
