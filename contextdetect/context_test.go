package contextdetect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeFillsGapsFromLowerConfidence(t *testing.T) {
	rule := DetectedContext{TaskHealth: "healthy", Confidence: 0.6, DetectedBy: "rule_based"}
	agent := DetectedContext{TaskType: "summarization", Confidence: 0.9, DetectedBy: "agent_based"}

	merged := Merge(rule, agent)
	assert.Equal(t, "summarization", merged.TaskType)
	assert.Equal(t, "healthy", merged.TaskHealth)
	assert.Equal(t, 0.9, merged.Confidence)
	assert.Equal(t, "rule_based+agent_based", merged.DetectedBy)
}
