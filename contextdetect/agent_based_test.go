package contextdetect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomind-ai/orchestrator-core/core"
)

func TestAgentBasedDetectorParsesResponse(t *testing.T) {
	agent := core.NewMockAgent("classifier", "", "")
	agent.QueueSuccess(`{"task_type": "summarization", "task_health": "healthy", "user_states": ["calm"], "confidence": 0.92, "reasoning": "clear request"}`)

	d := NewAgentBasedDetector(agent)
	out, err := d.Detect(context.Background(), core.NewPayload().WithText("please summarize this document"), EnvSummary{})
	require.NoError(t, err)
	assert.Equal(t, "summarization", out.TaskType)
	assert.Equal(t, "healthy", out.TaskHealth)
	assert.Equal(t, []string{"calm"}, out.UserStates)
	assert.InDelta(t, 0.92, out.Confidence, 0.001)
	assert.Equal(t, "agent_based", out.DetectedBy)
}

func TestAgentBasedDetectorPropagatesAgentError(t *testing.T) {
	agent := core.NewMockAgent("classifier", "", "")
	agent.QueueError(core.NewExecutionFailed("classifier unavailable"))

	d := NewAgentBasedDetector(agent)
	_, err := d.Detect(context.Background(), core.NewPayload().WithText("text"), EnvSummary{})
	require.Error(t, err)
}

func TestAgentBasedDetectorErrorsOnUnparsableResponse(t *testing.T) {
	agent := core.NewMockAgent("classifier", "", "")
	agent.QueueSuccess("not json at all")

	d := NewAgentBasedDetector(agent)
	_, err := d.Detect(context.Background(), core.NewPayload().WithText("text"), EnvSummary{})
	require.Error(t, err)
}
