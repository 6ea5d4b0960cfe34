// Package dialogue implements the turn-based multi-agent conversation
// runtime: message history, turn-taking strategies, and adaptive context
// formatting (§4.4).
package dialogue

import "github.com/gomind-ai/orchestrator-core/core"

// Participant is one named voice in a Dialogue: the agent that speaks for
// it, plus the directory information other participants see about it.
type Participant struct {
	Name        string
	Role        string
	Description string
	Agent       core.Agent
}

// Descriptor projects Participant down to the directory entry carried in a
// Payload's Participants content item.
func (p Participant) Descriptor() core.ParticipantDescriptor {
	return core.ParticipantDescriptor{Name: p.Name, Role: p.Role, Description: p.Description}
}

// Persona is a reusable participant template: a name, role and description
// plus an expertise hint, without a concrete agent bound yet. PersonaTeam
// (persona_team.go) saves and loads collections of these so a team of
// personas can be assembled into participants against a live agent registry
// (supplements §4.4's Dialogue construction with a persistence layer).
type Persona struct {
	Name        string `json:"name"`
	Role        string `json:"role"`
	Description string `json:"description"`
	Expertise   string `json:"expertise,omitempty"`
}

// Bind resolves a Persona against a registry, producing a live Participant.
// Returns false if no agent is registered under the persona's name.
func (p Persona) Bind(registry *core.AgentRegistry) (Participant, bool) {
	agent, ok := registry.Get(p.Name)
	if !ok {
		return Participant{}, false
	}
	return Participant{Name: p.Name, Role: p.Role, Description: p.Description, Agent: agent}, true
}
