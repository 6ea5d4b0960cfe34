package core

import (
	"context"
	"encoding/json"
	"fmt"
)

// AgentErrorKind tags the AgentError taxonomy (spec-level, distinct from
// the package's errors.Is sentinels in errors.go).
type AgentErrorKind string

const (
	AgentErrorExecutionFailed      AgentErrorKind = "execution_failed"
	AgentErrorProcessError         AgentErrorKind = "process_error"
	AgentErrorParseError           AgentErrorKind = "parse_error"
	AgentErrorSerializationFailed  AgentErrorKind = "serialization_failed"
	AgentErrorOther                AgentErrorKind = "other"
)

// AgentError is the uniform error an Agent.Execute returns. Exactly one of
// the kind-specific fields is meaningful for a given Kind.
type AgentError struct {
	Kind       AgentErrorKind
	Message    string
	StatusCode int           // ProcessError only
	IsRetryable bool         // ProcessError only
	RetryAfter *float64      // ProcessError only; seconds, when the upstream signaled one
	Reason     string        // ParseError only
	Wrapped    error
}

func (e *AgentError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AgentError) Unwrap() error { return e.Wrapped }

// IsTransient returns true for retryable process errors (429/5xx) and
// select transport failures (connect/timeout classified as ProcessError
// with IsRetryable set by the caller). Parse/serialization/execution
// failures and explicit non-retryable process errors are permanent.
func (e *AgentError) IsTransient() bool {
	if e == nil {
		return false
	}
	if e.Kind != AgentErrorProcessError {
		return false
	}
	if e.IsRetryable {
		return true
	}
	return e.StatusCode == 429 || (e.StatusCode >= 500 && e.StatusCode < 600)
}

// NewExecutionFailed builds a terminal, non-transient AgentError.
func NewExecutionFailed(msg string) *AgentError {
	return &AgentError{Kind: AgentErrorExecutionFailed, Message: msg}
}

// NewProcessError builds an HTTP/process AgentError carrying retry hints.
func NewProcessError(statusCode int, msg string, retryable bool, retryAfter *float64) *AgentError {
	return &AgentError{
		Kind:        AgentErrorProcessError,
		Message:     msg,
		StatusCode:  statusCode,
		IsRetryable: retryable,
		RetryAfter:  retryAfter,
	}
}

// NewParseError builds an AgentError for output that didn't parse.
func NewParseError(msg, reason string) *AgentError {
	return &AgentError{Kind: AgentErrorParseError, Message: msg, Reason: reason}
}

// NewSerializationFailed builds an AgentError for a marshal/unmarshal failure.
func NewSerializationFailed(msg string) *AgentError {
	return &AgentError{Kind: AgentErrorSerializationFailed, Message: msg}
}

// NewOtherAgentError wraps an arbitrary error under the Other kind.
func NewOtherAgentError(msg string, wrapped error) *AgentError {
	return &AgentError{Kind: AgentErrorOther, Message: msg, Wrapped: wrapped}
}

// AgentOutput is the wrapper an Agent.Execute succeeds with. Exactly one of
// the two variants is populated; Success carries a JSON-encodable value,
// RequiresApproval signals human-in-the-loop without erroring.
type AgentOutput struct {
	isApproval       bool
	success          json.RawMessage
	messageForHuman  string
	currentPayload   json.RawMessage
}

// Success wraps v (marshaled to JSON) as a successful AgentOutput.
func Success(v interface{}) (AgentOutput, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return AgentOutput{}, err
	}
	return AgentOutput{success: raw}, nil
}

// RequiresApproval builds an AgentOutput signaling that a human must approve
// before the step can complete. currentPayload is the in-progress artifact
// shown to the approver.
func RequiresApproval(messageForHuman string, currentPayload interface{}) (AgentOutput, error) {
	raw, err := json.Marshal(currentPayload)
	if err != nil {
		return AgentOutput{}, err
	}
	return AgentOutput{isApproval: true, messageForHuman: messageForHuman, currentPayload: raw}, nil
}

// IsRequiresApproval reports whether this output is the RequiresApproval variant.
func (o AgentOutput) IsRequiresApproval() bool { return o.isApproval }

// SuccessValue returns the raw JSON of the Success variant (nil otherwise).
func (o AgentOutput) SuccessValue() json.RawMessage { return o.success }

// ApprovalMessage returns the human-facing message of the RequiresApproval variant.
func (o AgentOutput) ApprovalMessage() string { return o.messageForHuman }

// ApprovalPayload returns the in-progress payload of the RequiresApproval variant.
func (o AgentOutput) ApprovalPayload() json.RawMessage { return o.currentPayload }

// Agent is the uniform capability every orchestrated participant exposes:
// execute a payload, describe its expertise, report a name, and report
// availability. Concrete agent implementations (CLI wrappers, REST clients
// for Claude/Gemini/OpenAI/llama.cpp, retry wrappers) are external
// collaborators; this module only consumes them through this contract.
type Agent interface {
	Execute(ctx context.Context, input Payload) (AgentOutput, *AgentError)
	Expertise() string
	Name() string
	IsAvailable() bool
}

// PromptRenderer is an optional capability a DynamicAgent's wrapped Agent may
// satisfy: given the raw JSON of a prior Success output, render a richer
// prompt-form string than raw JSON would provide. Used by downstream steps
// that prefer prompt form over a raw JSON dump.
type PromptRenderer interface {
	RenderPrompt(raw json.RawMessage) (string, bool)
}

// DynamicAgent type-erases any Agent into one whose Execute always returns
// json.RawMessage on success, enabling a heterogeneous registry keyed by name.
type DynamicAgent struct {
	inner Agent
}

// NewDynamicAgent wraps agent for storage in a heterogeneous registry.
func NewDynamicAgent(agent Agent) *DynamicAgent {
	return &DynamicAgent{inner: agent}
}

func (d *DynamicAgent) Execute(ctx context.Context, input Payload) (AgentOutput, *AgentError) {
	return d.inner.Execute(ctx, input)
}

func (d *DynamicAgent) Expertise() string  { return d.inner.Expertise() }
func (d *DynamicAgent) Name() string       { return d.inner.Name() }
func (d *DynamicAgent) IsAvailable() bool  { return d.inner.IsAvailable() }

// TryToPrompt round-trips raw through the wrapped agent's PromptRenderer, if
// it implements one, applying its richer prompt representation. Returns
// ("", false) when no renderer is available.
func (d *DynamicAgent) TryToPrompt(raw json.RawMessage) (string, bool) {
	if r, ok := d.inner.(PromptRenderer); ok {
		return r.RenderPrompt(raw)
	}
	return "", false
}

// AgentRegistry is a name-keyed lookup table of DynamicAgents shared by the
// Strategy Engine (for catalog rendering) and the Parallel Orchestrator (for
// dispatch). It is safe for concurrent read access once populated; writes
// are expected during setup, not mid-run.
type AgentRegistry struct {
	agents map[string]*DynamicAgent
}

// NewAgentRegistry returns an empty registry.
func NewAgentRegistry() *AgentRegistry {
	return &AgentRegistry{agents: make(map[string]*DynamicAgent)}
}

// Add registers agent under its own Name(). Returns ErrAlreadyRegistered,
// wrapped with the agent's name, if that name is already taken.
func (r *AgentRegistry) Add(agent Agent) error {
	if _, exists := r.agents[agent.Name()]; exists {
		return fmt.Errorf("agent %q: %w", agent.Name(), ErrAlreadyRegistered)
	}
	r.agents[agent.Name()] = NewDynamicAgent(agent)
	return nil
}

// Get resolves an agent by name.
func (r *AgentRegistry) Get(name string) (*DynamicAgent, bool) {
	a, ok := r.agents[name]
	return a, ok
}

// Names returns all registered agent names, unordered.
func (r *AgentRegistry) Names() []string {
	out := make([]string, 0, len(r.agents))
	for name := range r.agents {
		out = append(out, name)
	}
	return out
}

// Len reports how many agents are registered.
func (r *AgentRegistry) Len() int { return len(r.agents) }
