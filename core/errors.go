package core

import (
	"errors"
)

// Sentinel errors for comparison with errors.Is(). Kept to the vocabulary
// this module's domain actually raises: AgentRegistry.Add (§7), the
// orchestrator's lookup of a step's assigned agent, and resilience.Retry's
// attempt budget.
var (
	ErrAgentNotFound      = errors.New("agent not found")
	ErrAlreadyRegistered  = errors.New("already registered")
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")
)
