package dialogue

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/gomind-ai/orchestrator-core/core"
)

// PersonaTeam is a named, YAML-defined collection of Personas — the
// persistence layer the distilled design left implicit: teams are authored
// once as a blueprint file and bound against whatever agent registry a
// given run has available (supplements §4.4's Dialogue construction).
type PersonaTeam struct {
	Name     string    `yaml:"name"`
	Personas []Persona `yaml:"personas"`
}

// MarshalYAML-compatible helpers.
func (t PersonaTeam) Encode() ([]byte, error) { return yaml.Marshal(t) }

// DecodePersonaTeam parses a PersonaTeam from its YAML blueprint form.
func DecodePersonaTeam(raw []byte) (PersonaTeam, error) {
	var t PersonaTeam
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return PersonaTeam{}, fmt.Errorf("decode persona team: %w", err)
	}
	return t, nil
}

// Bind resolves every persona in the team against registry, returning the
// participants that bound successfully and the names of any that didn't
// (no agent registered under that name).
func (t PersonaTeam) Bind(registry *core.AgentRegistry) (participants []Participant, unbound []string) {
	for _, p := range t.Personas {
		if participant, ok := p.Bind(registry); ok {
			participants = append(participants, participant)
		} else {
			unbound = append(unbound, p.Name)
		}
	}
	return participants, unbound
}
