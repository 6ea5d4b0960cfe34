package dialogue

import (
	"fmt"
	"strings"

	"github.com/gomind-ai/orchestrator-core/core"
)

// FormatMarkdown renders messages as a single "**Speaker:** content" transcript,
// one line per turn — the compact representation used while the transcript
// stays under the configured threshold (§4.4.4).
func FormatMarkdown(messages []DialogueMessage) string {
	var b strings.Builder
	for i, m := range messages {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "**%s:** %s", m.Speaker.String(), m.Content)
	}
	return b.String()
}

// FormatMultipart renders messages as a Payload of individual Message
// content items, preserving each turn's Speaker tag distinctly rather than
// flattening it into prose — used once the transcript reaches the
// configured threshold, where a single markdown blob would bury the
// attribution an agent needs to track who-said-what (§4.4.4).
func FormatMultipart(messages []DialogueMessage, participants []core.ParticipantDescriptor) core.Payload {
	p := core.NewPayload()
	if len(participants) > 0 {
		p = p.WithParticipants(participants)
	}
	for _, m := range messages {
		p = p.WithMessage(core.Message{Speaker: m.Speaker, Content: m.Content})
	}
	return p
}

// RenderContext picks Markdown or multipart formatting based on the
// transcript's total character length against threshold, and always wraps
// the result as the Payload an agent's Execute receives.
func RenderContext(messages []DialogueMessage, participants []core.ParticipantDescriptor, threshold int) core.Payload {
	if totalLength(messages) < threshold {
		return core.NewPayload().WithParticipants(participants).WithText(FormatMarkdown(messages))
	}
	return FormatMultipart(messages, participants)
}

func totalLength(messages []DialogueMessage) int {
	n := 0
	for _, m := range messages {
		n += len(m.Content)
	}
	return n
}
