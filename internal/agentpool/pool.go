// Package agentpool maintains the round-robin set of monitor-probing agents
// that the worker pipeline draws from for primary and failover probes.
package agentpool

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/watchtower/controlplane/internal/model"
	"github.com/watchtower/controlplane/internal/store"
)

// ErrNoAgents is returned when the pool has no registered monitor agents.
var ErrNoAgents = errors.New("agentpool: no agents available")

// Pool is the process-wide shared state C1 describes: a round-robin cursor
// over the current set of registered monitor agents, refreshed periodically
// from the store.
type Pool struct {
	mu     sync.RWMutex
	agents []model.MonitorAgent
	cursor uint64
}

// New returns an empty pool. Call Refresh before first use, or start Run to
// refresh it on an interval.
func New() *Pool {
	return &Pool{}
}

// Refresh reloads the agent set from the store.
func (p *Pool) Refresh(s store.Store) error {
	agents, err := s.ListMonitorAgents(model.AgentTypeMonitor)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.agents = agents
	p.mu.Unlock()
	return nil
}

// Run refreshes the pool from s every interval until ctx-like stop fires.
// Errors are non-fatal: a stale agent list is better than none.
func (p *Pool) Run(stop <-chan struct{}, s store.Store, interval time.Duration, logf func(string, ...any)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := p.Refresh(s); err != nil && logf != nil {
				logf("[agentpool] refresh failed: %v", err)
			}
		}
	}
}

// Next returns the next agent in round-robin order.
func (p *Pool) Next() (model.MonitorAgent, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.agents) == 0 {
		return model.MonitorAgent{}, ErrNoAgents
	}
	i := atomic.AddUint64(&p.cursor, 1)
	return p.agents[int(i)%len(p.agents)], nil
}

// Other returns any agent whose ID differs from except, for failover/verify.
// Returns ErrNoAgents if the pool has no such agent.
func (p *Pool) Other(except string) (model.MonitorAgent, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.agents) == 0 {
		return model.MonitorAgent{}, ErrNoAgents
	}
	if len(p.agents) == 1 {
		if p.agents[0].ID == except {
			return model.MonitorAgent{}, ErrNoAgents
		}
		return p.agents[0], nil
	}
	i := atomic.AddUint64(&p.cursor, 1)
	start := int(i) % len(p.agents)
	for n := 0; n < len(p.agents); n++ {
		a := p.agents[(start+n)%len(p.agents)]
		if a.ID != except {
			return a, nil
		}
	}
	return model.MonitorAgent{}, ErrNoAgents
}

// Size reports the current number of registered agents.
func (p *Pool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.agents)
}
