package orchestration

import (
	"fmt"
	"time"

	"github.com/gomind-ai/orchestrator-core/core"
)

// RunError is the error taxonomy Execute returns, layered above
// core.AgentError the way orchestration-level failures are layered above
// agent-level ones (§7).
type RunError struct {
	Kind string

	Message  string
	StepID   string
	Duration time.Duration
	Agent    *core.AgentError
	Wrapped  error
}

func (e *RunError) Error() string {
	switch e.Kind {
	case "no_strategy":
		return "no strategy map set on orchestrator"
	case "strategy_generation_failed":
		return fmt.Sprintf("strategy generation failed: %s", e.Message)
	case "execution_failed":
		return fmt.Sprintf("execution failed: %s", e.Message)
	case "agent_error":
		return fmt.Sprintf("step %q: agent error: %v", e.StepID, e.Agent)
	case "step_timeout":
		return fmt.Sprintf("step %q timed out after %s", e.StepID, e.Duration)
	case "cancelled":
		return fmt.Sprintf("step %q cancelled", e.StepID)
	case "template_render_error":
		return fmt.Sprintf("template render error: %s", e.Message)
	default:
		return e.Message
	}
}

func (e *RunError) Unwrap() error {
	if e.Wrapped != nil {
		return e.Wrapped
	}
	if e.Agent != nil {
		return e.Agent
	}
	return nil
}

// ErrNoStrategy reports that Execute was called with no strategy map set.
func ErrNoStrategy() *RunError { return &RunError{Kind: "no_strategy"} }

// ErrStrategyGenerationFailed wraps a failure from strategy.Engine.GenerateStrategy.
func ErrStrategyGenerationFailed(msg string, wrapped error) *RunError {
	return &RunError{Kind: "strategy_generation_failed", Message: msg, Wrapped: wrapped}
}

// ErrExecutionFailed is a catch-all for run-level failures not attributable
// to a single step (e.g. a malformed strategy map discovered mid-run).
func ErrExecutionFailed(msg string, wrapped error) *RunError {
	return &RunError{Kind: "execution_failed", Message: msg, Wrapped: wrapped}
}

// ErrAgentError reports a permanent agent failure surfaced from a specific step.
func ErrAgentError(stepID string, agentErr *core.AgentError) *RunError {
	return &RunError{Kind: "agent_error", StepID: stepID, Agent: agentErr}
}

// ErrStepTimeout reports a step that exceeded its timeout budget.
func ErrStepTimeout(stepID string, d time.Duration) *RunError {
	return &RunError{Kind: "step_timeout", StepID: stepID, Duration: d}
}

// ErrCancelled reports a step cut short by caller cancellation.
func ErrCancelled(stepID string) *RunError {
	return &RunError{Kind: "cancelled", StepID: stepID}
}

// ErrTemplateRender reports an intent_template that failed to render.
func ErrTemplateRender(msg string, wrapped error) *RunError {
	return &RunError{Kind: "template_render_error", Message: msg, Wrapped: wrapped}
}

// errRedesignAndRestart is an unexported sentinel a segment run raises to
// signal "the Strategy Engine decided the whole plan needs regenerating"
// (§4.3.6). Execute's outer control-flow loop matches it immediately and
// never returns it bare: once the full-regeneration budget
// (Config.MaxFullRegenerations) is exhausted it is wrapped as
// ErrExecutionFailed, and a failed regeneration surfaces as
// ErrStrategyGenerationFailed. It only arises when an engine is wired.
type errRedesignAndRestart struct {
	stepID string
	cause  error
}

func (e *errRedesignAndRestart) Error() string {
	return fmt.Sprintf("redesign requested at step %q: %v", e.stepID, e.cause)
}

func (e *errRedesignAndRestart) Unwrap() error { return e.cause }
