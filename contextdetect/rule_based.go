package contextdetect

import (
	"context"
	"strings"

	"github.com/gomind-ai/orchestrator-core/core"
)

// RuleBasedDetector classifies run health from env-context signals alone —
// no agent call, so it is always available and cheap to run on every turn.
// A fast heuristic layer that runs before ever reaching for an LLM.
type RuleBasedDetector struct {
	// StrugglingAfter is the redesign count at or above which the run is
	// classified "struggling" rather than "healthy". Zero uses a default of 2.
	StrugglingAfter int
}

// NewRuleBasedDetector returns a detector with the default struggling
// threshold.
func NewRuleBasedDetector() *RuleBasedDetector {
	return &RuleBasedDetector{StrugglingAfter: 2}
}

var _ Detector = (*RuleBasedDetector)(nil)

func (d *RuleBasedDetector) Detect(_ context.Context, payload core.Payload, env EnvSummary) (DetectedContext, error) {
	text := payload.ToText()
	threshold := d.StrugglingAfter
	if threshold <= 0 {
		threshold = 2
	}

	health := "healthy"
	confidence := 0.6

	failed := 0
	for _, line := range env.JournalSummary {
		if strings.Contains(strings.ToLower(line), "failed") {
			failed++
		}
	}

	switch {
	case env.RedesignCount >= threshold || failed >= threshold:
		health = "struggling"
		confidence = 0.8
	case env.RedesignCount > 0 || failed > 0:
		health = "recovering"
		confidence = 0.65
	}

	var userStates []string
	lower := strings.ToLower(text)
	if strings.Contains(lower, "urgent") || strings.Contains(lower, "asap") {
		userStates = append(userStates, "urgent")
	}
	if strings.Contains(lower, "frustrat") || strings.Contains(lower, "annoyed") {
		userStates = append(userStates, "frustrated")
	}

	return DetectedContext{
		TaskHealth: health,
		UserStates: userStates,
		Confidence: confidence,
		DetectedBy: "rule_based",
	}, nil
}
