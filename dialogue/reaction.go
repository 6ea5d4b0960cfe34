package dialogue

import "strings"

// ReactionStrategy decides whether a participant should speak in response to
// the dialogue's current tail. Only Broadcast turns consult it, filtering the
// candidate participants; Sequential and Mentioned turns pick their speakers
// without it.
type ReactionStrategy interface {
	ShouldReact(participant Participant, tail []DialogueMessage) bool
}

// AlwaysReact is the default: every candidate participant reacts when asked.
type AlwaysReact struct{}

func (AlwaysReact) ShouldReact(Participant, []DialogueMessage) bool { return true }

// MentionReact reacts only when the participant's name is @mentioned
// somewhere in tail (case-insensitive), letting a Broadcast-ordered dialogue
// still behave selectively once participants start addressing each other by
// name.
type MentionReact struct{}

func (MentionReact) ShouldReact(participant Participant, tail []DialogueMessage) bool {
	mention := "@" + strings.ToLower(participant.Name)
	for _, m := range tail {
		if strings.Contains(strings.ToLower(m.Content), mention) {
			return true
		}
	}
	return false
}
