package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gomind-ai/orchestrator-core/core"
	"github.com/gomind-ai/orchestrator-core/template"
)

// StringAgent is the Engine's general-purpose LLM used for decisions and
// intent resolution. It is a core.Agent whose Success value unmarshals to a
// plain string; callers are expected to wrap it with a retry policy
// (resilience.Retry) before handing it to NewEngine.
type StringAgent = core.Agent

// JSONAgent is the Engine's structured LLM, constrained to emit a StrategyMap
// (or, for semantic matching, a small JSON object). It is a core.Agent whose
// Success value is the raw JSON text to be parsed by ExtractJSON.
type JSONAgent = core.Agent

// RedesignDecision is decide_redesign's three-way recovery choice.
type RedesignDecision string

const (
	DecisionRetry    RedesignDecision = "retry"
	DecisionTactical RedesignDecision = "tactical"
	DecisionFull     RedesignDecision = "full"
)

// Blueprint is the input to strategy generation: free-form description plus
// an optional Mermaid diagram injected verbatim into the prompt.
type Blueprint struct {
	Description string
	Graph       string // optional Mermaid `graph` field
}

// ProgressSnapshot is what decide_redesign sees of the run so far: which
// steps completed, and the shared context accumulated up to the failure.
type ProgressSnapshot struct {
	CompletedSteps []string
	Context        map[string]interface{}
}

// StrategyGenerationFailed reports that generate_strategy could not produce
// a usable StrategyMap (empty registry, or the JSON agent's response didn't
// parse into one).
type StrategyGenerationFailed struct {
	Reason string
}

func (e *StrategyGenerationFailed) Error() string {
	return fmt.Sprintf("strategy generation failed: %s", e.Reason)
}

// Engine owns the two internal agents wired at construction and implements
// the public contract of §4.2: generate, render, and mutate StrategyMaps.
type Engine struct {
	stringAgent StringAgent
	jsonAgent   JSONAgent
	tracer      core.Telemetry
}

// NewEngine wires an Engine to its two internal agents. Per §4.2, both
// should already be wrapped with a retry policy by the caller.
func NewEngine(stringAgent StringAgent, jsonAgent JSONAgent) *Engine {
	return &Engine{stringAgent: stringAgent, jsonAgent: jsonAgent, tracer: &core.NoOpTelemetry{}}
}

// SetTelemetry installs a tracer for the generate_strategy span.
func (e *Engine) SetTelemetry(t core.Telemetry) { e.tracer = t }

// GenerateStrategy renders a strategy-generation prompt (task, agent
// catalog, blueprint, optional Mermaid diagram, and the assignment rule set)
// and asks the JSON agent to produce a StrategyMap.
func (e *Engine) GenerateStrategy(ctx context.Context, task string, catalog AgentCatalog, blueprint Blueprint) (Map, error) {
	ctx, span := e.tracer.StartSpan(ctx, "generate_strategy")
	span.SetAttribute("task", task)
	defer span.End()

	if catalog.Empty() {
		err := &StrategyGenerationFailed{Reason: "agent registry is empty"}
		span.RecordError(err)
		return Map{}, err
	}

	prompt := buildGenerationPrompt(task, catalog, blueprint)
	raw, agentErr := e.jsonAgent.Execute(ctx, core.NewPayload().WithText(prompt))
	if agentErr != nil {
		span.RecordError(agentErr)
		return Map{}, &StrategyGenerationFailed{Reason: agentErr.Error()}
	}
	if raw.IsRequiresApproval() {
		return Map{}, &StrategyGenerationFailed{Reason: "JSON agent requested approval instead of producing a plan"}
	}

	var text string
	if err := json.Unmarshal(raw.SuccessValue(), &text); err != nil {
		// The agent may have returned the JSON plan directly as its Success
		// value rather than as a string-wrapped blob; fall back to that.
		text = string(raw.SuccessValue())
	}

	extracted, err := ExtractJSON(text)
	if err != nil {
		return Map{}, &StrategyGenerationFailed{Reason: err.Error()}
	}

	var plan Map
	if err := json.Unmarshal(extracted, &plan); err != nil {
		return Map{}, &StrategyGenerationFailed{Reason: fmt.Sprintf("response did not parse into a StrategyMap: %v", err)}
	}
	if err := plan.Validate(); err != nil {
		return Map{}, &StrategyGenerationFailed{Reason: err.Error()}
	}
	return plan, nil
}

func buildGenerationPrompt(task string, catalog AgentCatalog, blueprint Blueprint) string {
	var b strings.Builder
	b.WriteString("You are a planning engine. Produce a strict JSON StrategyMap for the following task.\n\n")
	fmt.Fprintf(&b, "Task: %s\n\n", task)
	if blueprint.Description != "" {
		fmt.Fprintf(&b, "Blueprint: %s\n\n", blueprint.Description)
	}
	if blueprint.Graph != "" {
		fmt.Fprintf(&b, "Blueprint diagram (Mermaid):\n%s\n\n", blueprint.Graph)
	}
	b.WriteString("Registered agents:\n")
	for _, entry := range catalog.Entries {
		fmt.Fprintf(&b, "- %s: %s (available=%v)\n", entry.Name, entry.Expertise, entry.Available)
	}
	b.WriteString("\nRules:\n")
	b.WriteString("1. Assign each step to the agent whose expertise best matches the step's work.\n")
	b.WriteString("2. Each step's intent_template must be self-contained: it is the agent's only input.\n")
	b.WriteString("3. Add a validation step after critical artifacts when appropriate.\n")
	b.WriteString("4. Declare dependencies by step_id; the dependency graph must be acyclic.\n\n")
	b.WriteString(`Respond with only a JSON object: {"goal": "...", "steps": [{"step_id": "...", "description": "...", "assigned_agent": "...", "intent_template": "...", "expected_output": "...", "output_key": "...", "requires_validation": false, "dependencies": []}]}`)
	return b.String()
}

// RenderIntent resolves step.IntentTemplate's placeholders against context.
// Exact key match is tried first; for any placeholder that does not match a
// top-level context key, a semantic matcher asks the string agent to map it
// to the most appropriate prior step's output_key, using step descriptions.
// The orchestrator delivers the rendered intent as the agent's only input,
// so every reference is inlined into a concrete value, never passed by
// reference.
func (e *Engine) RenderIntent(ctx context.Context, step Step, priorSteps []Step, context map[string]interface{}) (string, error) {
	resolved := make(map[string]interface{}, len(context))
	for k, v := range context {
		resolved[k] = v
	}

	for _, placeholder := range template.Placeholders(step.IntentTemplate) {
		top := strings.SplitN(placeholder, ".", 2)[0]
		if _, ok := context[top]; ok {
			continue
		}
		matchedKey, err := e.semanticMatch(ctx, placeholder, step, priorSteps)
		if err != nil || matchedKey == "" {
			continue
		}
		if val, ok := context[matchedKey]; ok {
			resolved[top] = val
		}
	}

	out, err := template.Render(step.IntentTemplate, resolved)
	if err != nil {
		return "", err
	}
	return out, nil
}

// semanticMatch asks the string agent which prior step's output_key the
// given placeholder most likely refers to.
func (e *Engine) semanticMatch(ctx context.Context, placeholder string, step Step, priorSteps []Step) (string, error) {
	if len(priorSteps) == 0 {
		return "", nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "The step %q (%s) references the placeholder %q, which has no exact match in the shared context.\n", step.StepID, step.Description, placeholder)
	b.WriteString("Candidate prior steps and their output keys:\n")
	for _, p := range priorSteps {
		fmt.Fprintf(&b, "- %s (output_key=%s): %s\n", p.StepID, p.ResolvedOutputKey(), p.Description)
	}
	b.WriteString("\nRespond with only the output_key of the single best-matching step, or \"none\".")

	out, agentErr := e.stringAgent.Execute(ctx, core.NewPayload().WithText(b.String()))
	if agentErr != nil {
		return "", agentErr
	}
	var answer string
	if err := json.Unmarshal(out.SuccessValue(), &answer); err != nil {
		answer = string(out.SuccessValue())
	}
	answer = strings.TrimSpace(strings.Trim(answer, `"`))
	if answer == "" || strings.EqualFold(answer, "none") {
		return "", nil
	}
	return answer, nil
}

// DecideRedesign asks the string agent to choose a recovery mode after a
// permanent failure, based on error character.
func (e *Engine) DecideRedesign(ctx context.Context, goal string, failedStep Step, agentErr *core.AgentError, progress ProgressSnapshot) (RedesignDecision, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\n", goal)
	fmt.Fprintf(&b, "Failed step %q (%s): %v\n", failedStep.StepID, failedStep.Description, agentErr)
	fmt.Fprintf(&b, "Completed steps so far: %v\n", progress.CompletedSteps)
	b.WriteString("\nChoose exactly one recovery mode: \"retry\", \"tactical\", or \"full\".\n")
	b.WriteString(`Respond with only a JSON string: "retry" | "tactical" | "full"`)

	out, execErr := e.stringAgent.Execute(ctx, core.NewPayload().WithText(b.String()))
	if execErr != nil {
		return DecisionFull, execErr
	}
	var answer string
	if err := json.Unmarshal(out.SuccessValue(), &answer); err != nil {
		answer = string(out.SuccessValue())
	}
	switch strings.ToLower(strings.TrimSpace(strings.Trim(answer, `"`))) {
	case "retry":
		return DecisionRetry, nil
	case "tactical":
		return DecisionTactical, nil
	default:
		return DecisionFull, nil
	}
}

// TacticalRedesign replaces the tail of the plan starting at the failed
// step; earlier completed steps are preserved and referenced (not re-run).
func (e *Engine) TacticalRedesign(ctx context.Context, plan Map, failedStepIndex int, context map[string]interface{}) ([]Step, error) {
	if failedStepIndex < 0 || failedStepIndex >= len(plan.Steps) {
		return nil, fmt.Errorf("tactical redesign: step index %d out of range", failedStepIndex)
	}
	completed := plan.Steps[:failedStepIndex]

	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\n", plan.Goal)
	b.WriteString("Completed steps (preserved, do not repeat):\n")
	for _, s := range completed {
		fmt.Fprintf(&b, "- %s: %s\n", s.StepID, s.Description)
	}
	fmt.Fprintf(&b, "\nThe step %q failed: %s\n", plan.Steps[failedStepIndex].StepID, plan.Steps[failedStepIndex].Description)
	b.WriteString("Replace it and everything after it with a revised list of steps that still achieves the goal.\n")
	b.WriteString(`Respond with only a JSON array of steps: [{"step_id": ..., "description": ..., "assigned_agent": ..., "intent_template": ..., "expected_output": ..., "output_key": ..., "dependencies": []}]`)

	out, agentErr := e.jsonAgent.Execute(ctx, core.NewPayload().WithText(b.String()))
	if agentErr != nil {
		return nil, agentErr
	}
	var text string
	if err := json.Unmarshal(out.SuccessValue(), &text); err != nil {
		text = string(out.SuccessValue())
	}
	extracted, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}
	var newTail []Step
	if err := json.Unmarshal(extracted, &newTail); err != nil {
		return nil, fmt.Errorf("tactical redesign response did not parse: %w", err)
	}
	return append(append([]Step{}, completed...), newTail...), nil
}

// FullRegenerate produces a fundamentally different plan for the same task;
// completed work from the prior attempt is described to the JSON agent but
// not relied upon structurally.
func (e *Engine) FullRegenerate(ctx context.Context, task string, failed Map, errorSummary string, completedWork []string, catalog AgentCatalog) (Map, error) {
	blueprint := Blueprint{Description: fmt.Sprintf(
		"Prior attempt at goal %q failed: %s. Previously completed work (for context only, do not assume it persists): %v. Produce a different plan.",
		failed.Goal, errorSummary, completedWork,
	)}
	return e.GenerateStrategy(ctx, task, catalog, blueprint)
}

// ClassifyTransientOrPermanent is pure classification, no LLM call: it
// delegates to AgentError.IsTransient().
func (e *Engine) ClassifyTransientOrPermanent(agentErr *core.AgentError) bool {
	return agentErr.IsTransient()
}
