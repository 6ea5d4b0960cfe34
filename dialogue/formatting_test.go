package dialogue

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gomind-ai/orchestrator-core/core"
)

func TestFormatMarkdownJoinsTurns(t *testing.T) {
	messages := []DialogueMessage{
		{Speaker: core.User("alice", "lead"), Content: "hello"},
		{Speaker: core.NewAgentSpeaker("writer", "", ""), Content: "hi there"},
	}
	out := FormatMarkdown(messages)
	assert.Contains(t, out, "**alice (lead):** hello")
	assert.Contains(t, out, "**writer:** hi there")
}

func TestFormatMultipartPreservesSpeakerTags(t *testing.T) {
	messages := []DialogueMessage{{Speaker: core.User("alice", ""), Content: "hello"}}
	payload := FormatMultipart(messages, nil)
	got := payload.ToMessages()
	assert.Len(t, got, 1)
	assert.Equal(t, "hello", got[0].Content)
}

func TestRenderContextSwitchesOnThreshold(t *testing.T) {
	short := []DialogueMessage{{Speaker: core.User("a", ""), Content: "hi"}}
	payload := RenderContext(short, nil, 100)
	assert.Contains(t, payload.ToText(), "hi")

	long := []DialogueMessage{{Speaker: core.User("a", ""), Content: strings.Repeat("x", 200)}}
	payload = RenderContext(long, nil, 100)
	assert.Empty(t, payload.ToText())
	assert.Len(t, payload.ToMessages(), 1)
}
