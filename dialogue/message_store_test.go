package dialogue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomind-ai/orchestrator-core/core"
)

func TestMessageStoreAppendAndAll(t *testing.T) {
	s := NewMessageStore()
	s.Append(DialogueMessage{Speaker: core.User("alice", ""), Content: "hi"})
	s.Append(DialogueMessage{Speaker: core.User("alice", ""), Content: "again"})
	assert.Len(t, s.All(), 2)
	assert.Equal(t, 2, s.Len())
}

func TestMessageStoreAppendAssignsMonotonicIDs(t *testing.T) {
	s := NewMessageStore()
	a := s.Append(DialogueMessage{Content: "one"})
	b := s.Append(DialogueMessage{Content: "two"})
	assert.NotZero(t, a.ID)
	assert.Equal(t, a.ID+1, b.ID)
}

func TestMessageStoreRecent(t *testing.T) {
	s := NewMessageStore()
	for i := 0; i < 5; i++ {
		s.Append(DialogueMessage{Content: "m"})
	}
	assert.Len(t, s.Recent(2), 2)
	assert.Len(t, s.Recent(10), 5)
}

func TestMessageStoreCurrentTurnCountsSystemMessages(t *testing.T) {
	s := NewMessageStore()
	assert.Equal(t, 0, s.CurrentTurn())
	s.Append(DialogueMessage{Speaker: core.System(), Content: "start"})
	assert.Equal(t, 1, s.CurrentTurn())
	s.Append(DialogueMessage{Speaker: core.User("alice", "")})
	assert.Equal(t, 1, s.CurrentTurn())
}

func TestMessageStoreUnseenExcludesUserMessagesAndSentRecipients(t *testing.T) {
	s := NewMessageStore()
	s.Append(DialogueMessage{Speaker: core.User("alice", ""), Content: "kickoff"})
	sys := s.Append(DialogueMessage{Speaker: core.System(), Content: "system note"})
	agentMsg := s.Append(DialogueMessage{Speaker: core.NewAgentSpeaker("writer", "", ""), Content: "draft"})

	bob := core.NewAgentSpeaker("bob", "", "")
	unseen := s.Unseen(bob)
	require.Len(t, unseen, 2)
	assert.Equal(t, sys.ID, unseen[0].ID)
	assert.Equal(t, agentMsg.ID, unseen[1].ID)

	s.MarkSent([]int64{sys.ID, agentMsg.ID}, bob)
	assert.Empty(t, s.Unseen(bob))

	alice := core.NewAgentSpeaker("alice", "", "")
	stillUnseen := s.Unseen(alice)
	assert.Len(t, stillUnseen, 2)
}

func TestMessageStoreMarkSentIsPerParticipant(t *testing.T) {
	s := NewMessageStore()
	msg := s.Append(DialogueMessage{Speaker: core.NewAgentSpeaker("writer", "", ""), Content: "draft"})

	bob := core.NewAgentSpeaker("bob", "", "")
	alice := core.NewAgentSpeaker("alice", "", "")
	s.MarkSent([]int64{msg.ID}, bob)

	assert.Empty(t, s.Unseen(bob))
	assert.Len(t, s.Unseen(alice), 1)
}
