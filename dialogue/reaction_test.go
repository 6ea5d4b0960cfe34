package dialogue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlwaysReactAlwaysTrue(t *testing.T) {
	r := AlwaysReact{}
	assert.True(t, r.ShouldReact(Participant{Name: "anyone"}, nil))
}

func TestMentionReactRequiresMention(t *testing.T) {
	r := MentionReact{}
	bob := Participant{Name: "bob"}

	assert.False(t, r.ShouldReact(bob, []DialogueMessage{{Content: "hello there"}}))
	assert.True(t, r.ShouldReact(bob, []DialogueMessage{{Content: "hey @Bob can you help?"}}))
}
