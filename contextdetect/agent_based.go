package contextdetect

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gomind-ai/orchestrator-core/core"
	"github.com/gomind-ai/orchestrator-core/strategy"
)

// AgentBasedDetector wraps any string agent to classify task type, health,
// and user state from the turn's text and env-context summary (§4.6).
type AgentBasedDetector struct {
	agent core.Agent
}

// NewAgentBasedDetector wraps agent for context detection. The agent should
// be wrapped with a retry policy by the caller, same as the Strategy
// Engine's string agent.
func NewAgentBasedDetector(agent core.Agent) *AgentBasedDetector {
	return &AgentBasedDetector{agent: agent}
}

var _ Detector = (*AgentBasedDetector)(nil)

func (d *AgentBasedDetector) Detect(ctx context.Context, payload core.Payload, env EnvSummary) (DetectedContext, error) {
	req := map[string]interface{}{
		"text":            payload.ToText(),
		"redesign_count":  env.RedesignCount,
		"journal_summary": env.JournalSummary,
	}
	reqJSON, err := json.Marshal(req)
	if err != nil {
		return DetectedContext{}, fmt.Errorf("marshal detection request: %w", err)
	}

	prompt := fmt.Sprintf(`Classify the following task turn.

%s

Respond with only a JSON object: {"task_type": ..., "task_health": ..., "user_states": [...], "confidence": 0.0-1.0, "reasoning": "..."}. Omit task_type or task_health if you can't tell.`, string(reqJSON))

	out, agentErr := d.agent.Execute(ctx, core.NewPayload().WithText(prompt))
	if agentErr != nil {
		return DetectedContext{}, agentErr
	}

	var text2 string
	if err := json.Unmarshal(out.SuccessValue(), &text2); err != nil {
		text2 = string(out.SuccessValue())
	}

	extracted, err := strategy.ExtractJSON(text2)
	if err != nil {
		return DetectedContext{}, fmt.Errorf("detection response did not contain JSON: %w", err)
	}

	var detected DetectedContext
	if err := json.Unmarshal(extracted, &detected); err != nil {
		return DetectedContext{}, fmt.Errorf("detection response did not parse: %w", err)
	}
	detected.DetectedBy = "agent_based"
	return detected, nil
}
