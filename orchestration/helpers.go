package orchestration

import (
	"encoding/json"

	"github.com/gomind-ai/orchestrator-core/template"
)

// renderTemplate is the exact-key-only renderer used for step intents when
// no Strategy Engine is wired for semantic placeholder matching, and for
// Terminate final-output templates in every case.
func renderTemplate(tmpl string, context map[string]interface{}) (string, error) {
	return template.Render(tmpl, context)
}

// unmarshalString reports whether raw is a JSON string scalar, writing it
// into out on success.
func unmarshalString(raw []byte, out *string) error {
	return json.Unmarshal(raw, out)
}
