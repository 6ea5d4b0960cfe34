// Package strategy implements the typed execution plan (StrategyMap) and the
// Strategy Engine that generates, mutates, and classifies failures against it.
package strategy

import "fmt"

// Step is one unit of work: an agent assignment with an intent template and
// optional dependencies on earlier steps. step_id is unique within its
// StrategyMap; assigned_agent is resolved against the agent registry lazily,
// at execution time.
type Step struct {
	StepID             string   `json:"step_id"`
	Description         string   `json:"description"`
	AssignedAgent       string   `json:"assigned_agent"`
	IntentTemplate      string   `json:"intent_template"`
	ExpectedOutput      string   `json:"expected_output"`
	OutputKey           string   `json:"output_key,omitempty"`
	RequiresValidation  bool     `json:"requires_validation,omitempty"`
	Dependencies        []string `json:"dependencies,omitempty"`
}

// ResolvedOutputKey returns OutputKey if set, otherwise the
// "{step_id}_output" fallback §4.3.3/§4.5 both specify.
func (s Step) ResolvedOutputKey() string {
	if s.OutputKey != "" {
		return s.OutputKey
	}
	return fmt.Sprintf("%s_output", s.StepID)
}

// TerminateInstruction ends a segment, optionally conditionally, optionally
// producing a rendered termination reason.
type TerminateInstruction struct {
	TerminateID          string  `json:"terminate_id"`
	ConditionTemplate    *string `json:"condition_template,omitempty"`
	FinalOutputTemplate  *string `json:"final_output_template,omitempty"`
}

// LoopBlock marks a boundary the parallel executor does not cross; loop
// semantics belong to a future sequential runtime (spec §9 Open Question).
type LoopBlock struct {
	LoopID string `json:"loop_id"`
	Steps  []Step `json:"steps"`
}

// InstructionKind tags which variant of Instruction is populated.
type InstructionKind string

const (
	InstructionStep      InstructionKind = "step"
	InstructionLoop      InstructionKind = "loop"
	InstructionTerminate InstructionKind = "terminate"
)

// Instruction is the tagged union Step(StrategyStep) | Loop(LoopBlock) |
// Terminate(TerminateInstruction).
type Instruction struct {
	Kind      InstructionKind        `json:"kind"`
	Step      *Step                  `json:"step,omitempty"`
	Loop      *LoopBlock             `json:"loop,omitempty"`
	Terminate *TerminateInstruction  `json:"terminate,omitempty"`
}

// StepInstruction wraps a Step as an Instruction.
func StepInstruction(s Step) Instruction { return Instruction{Kind: InstructionStep, Step: &s} }

// LoopInstruction wraps a LoopBlock as an Instruction.
func LoopInstruction(l LoopBlock) Instruction { return Instruction{Kind: InstructionLoop, Loop: &l} }

// TerminateInstructionOf wraps a TerminateInstruction as an Instruction.
func TerminateInstructionOf(t TerminateInstruction) Instruction {
	return Instruction{Kind: InstructionTerminate, Terminate: &t}
}

// Map is the concrete, typed execution plan: {goal, steps, elements}. If
// Elements is empty, Steps is treated as the linearization (one Step
// instruction per step, no Terminate/Loop instructions).
type Map struct {
	Goal     string        `json:"goal"`
	Steps    []Step        `json:"steps"`
	Elements []Instruction `json:"elements,omitempty"`
}

// Linearized returns Elements if non-empty, otherwise Steps wrapped one
// Instruction per Step, per §3's fallback rule.
func (m Map) Linearized() []Instruction {
	if len(m.Elements) > 0 {
		return m.Elements
	}
	out := make([]Instruction, 0, len(m.Steps))
	for _, s := range m.Steps {
		out = append(out, StepInstruction(s))
	}
	return out
}

// Validate checks the two invariants §3 requires statically: every step_id
// is unique, and every dependency referenced by a step exists among Steps.
func (m Map) Validate() error {
	seen := make(map[string]bool, len(m.Steps))
	for _, s := range m.Steps {
		if seen[s.StepID] {
			return fmt.Errorf("duplicate step_id %q", s.StepID)
		}
		seen[s.StepID] = true
	}
	for _, s := range m.Steps {
		for _, dep := range s.Dependencies {
			if !seen[dep] {
				return fmt.Errorf("step %q declares dependency on unknown step %q", s.StepID, dep)
			}
		}
	}
	return nil
}
