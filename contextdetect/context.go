// Package contextdetect implements the supporting context detectors (§4.6):
// advisory classifiers that inspect a turn's payload and the run's progress
// so far, producing a DetectedContext callers may fold into subsequent
// prompt rendering. Detection is never in the orchestrator's critical path.
package contextdetect

import (
	"context"

	"github.com/gomind-ai/orchestrator-core/core"
)

// EnvSummary is the env-context summary a detector reasons over: the run's
// redesign attempts and a short digest of recent journal entries.
type EnvSummary struct {
	RedesignCount  int
	JournalSummary []string
}

// DetectedContext is what a Detector produces. TaskType and TaskHealth are
// optional (rule-based detection typically leaves TaskType empty).
type DetectedContext struct {
	TaskType   string   `json:"task_type,omitempty"`
	TaskHealth string   `json:"task_health,omitempty"`
	UserStates []string `json:"user_states,omitempty"`
	Confidence float64  `json:"confidence"`
	DetectedBy string   `json:"detected_by"`
	Reasoning  string   `json:"reasoning,omitempty"`
}

// Detector is the interface both rule-based and agent-based detectors
// implement (§4.6: "identical interface detect(Payload) → DetectedContext").
type Detector interface {
	Detect(ctx context.Context, payload core.Payload, env EnvSummary) (DetectedContext, error)
}

// Merge folds b's non-empty fields over a, preferring whichever of the two
// is more confident when both set the same field — a convenience for
// callers combining a rule-based pass with an agent-based one.
func Merge(a, b DetectedContext) DetectedContext {
	out := a
	if b.Confidence < a.Confidence && a.Confidence > 0 {
		// a already wins on every field it sets; only fill gaps from b.
		if out.TaskType == "" {
			out.TaskType = b.TaskType
		}
		if out.TaskHealth == "" {
			out.TaskHealth = b.TaskHealth
		}
		if len(out.UserStates) == 0 {
			out.UserStates = b.UserStates
		}
		return out
	}
	if b.TaskType != "" {
		out.TaskType = b.TaskType
	}
	if b.TaskHealth != "" {
		out.TaskHealth = b.TaskHealth
	}
	if len(b.UserStates) > 0 {
		out.UserStates = append(append([]string{}, out.UserStates...), b.UserStates...)
	}
	if b.Confidence > out.Confidence {
		out.Confidence = b.Confidence
	}
	out.DetectedBy = a.DetectedBy + "+" + b.DetectedBy
	return out
}
