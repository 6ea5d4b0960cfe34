package orchestration

import (
	"sync"
	"time"
)

// breakerState is the three-state circuit breaker machine.
type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// AgentCircuitBreaker trips per agent name after consecutive step failures,
// shedding load from an agent that is clearly down rather than retrying it
// into every remaining wave. Deliberately simpler than a general-purpose
// HTTP circuit breaker: orchestration only needs "stop dispatching to this
// agent for a while," not half-open request budgets.
type AgentCircuitBreaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration

	state       breakerState
	failures    int
	openedAt    time.Time
}

// NewAgentCircuitBreaker trips after threshold consecutive failures and
// stays open for cooldown, then goes half-open and allows dispatches until
// the next recorded success or failure.
func NewAgentCircuitBreaker(threshold int, cooldown time.Duration) *AgentCircuitBreaker {
	return &AgentCircuitBreaker{threshold: threshold, cooldown: cooldown}
}

// Allow reports whether a dispatch to this agent may proceed right now.
func (b *AgentCircuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case breakerClosed:
		return true
	case breakerOpen:
		if time.Since(b.openedAt) >= b.cooldown {
			b.state = breakerHalfOpen
			return true
		}
		return false
	case breakerHalfOpen:
		return true
	default:
		return true
	}
}

// RecordSuccess closes the breaker and resets the failure count.
func (b *AgentCircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = breakerClosed
	b.failures = 0
}

// RecordFailure increments the failure count, opening the breaker once
// threshold is reached (or immediately, if the trial half-open dispatch
// also failed).
func (b *AgentCircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == breakerHalfOpen {
		b.state = breakerOpen
		b.openedAt = time.Now()
		return
	}
	b.failures++
	if b.failures >= b.threshold {
		b.state = breakerOpen
		b.openedAt = time.Now()
	}
}

// AgentCircuitBreakers is a per-agent-name registry of AgentCircuitBreaker,
// created lazily on first use.
type AgentCircuitBreakers struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	breakers  map[string]*AgentCircuitBreaker
}

// NewAgentCircuitBreakers returns a registry using the given threshold/cooldown
// for every agent it lazily creates a breaker for.
func NewAgentCircuitBreakers(threshold int, cooldown time.Duration) *AgentCircuitBreakers {
	return &AgentCircuitBreakers{threshold: threshold, cooldown: cooldown, breakers: make(map[string]*AgentCircuitBreaker)}
}

// For returns the breaker for agentName, creating it on first use.
func (r *AgentCircuitBreakers) For(agentName string) *AgentCircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[agentName]
	if !ok {
		b = NewAgentCircuitBreaker(r.threshold, r.cooldown)
		r.breakers[agentName] = b
	}
	return b
}
