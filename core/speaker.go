package core

// SpeakerKind tags which variant of Speaker is populated.
type SpeakerKind string

const (
	SpeakerSystem SpeakerKind = "system"
	SpeakerUser   SpeakerKind = "user"
	SpeakerAgent  SpeakerKind = "agent"
)

// Speaker attributes a Message to one of System, User, or Agent. Only the
// fields matching Kind are meaningful; the zero value is SpeakerSystem.
type Speaker struct {
	Kind SpeakerKind `json:"kind"`
	Name string      `json:"name,omitempty"`
	Role string      `json:"role,omitempty"`
	// Icon is optional visual identity used in rendered transcripts and to
	// strengthen persona adherence (agent speakers only).
	Icon string `json:"icon,omitempty"`
}

// System returns the singleton System speaker.
func System() Speaker {
	return Speaker{Kind: SpeakerSystem}
}

// User returns a User speaker with the given name and role.
func User(name, role string) Speaker {
	return Speaker{Kind: SpeakerUser, Name: name, Role: role}
}

// NewAgentSpeaker returns an Agent speaker with an optional icon.
func NewAgentSpeaker(name, role, icon string) Speaker {
	return Speaker{Kind: SpeakerAgent, Name: name, Role: role, Icon: icon}
}

// Equal compares two speakers by kind and name, which is sufficient to
// identify a dialogue participant (role/icon are descriptive, not identity).
func (s Speaker) Equal(other Speaker) bool {
	return s.Kind == other.Kind && s.Name == other.Name
}

// String renders a human-readable label, e.g. "Alice (Engineer)".
func (s Speaker) String() string {
	switch s.Kind {
	case SpeakerSystem:
		return "System"
	case SpeakerUser, SpeakerAgent:
		if s.Role != "" {
			return s.Name + " (" + s.Role + ")"
		}
		return s.Name
	default:
		return "Unknown"
	}
}
