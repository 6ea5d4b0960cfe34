package orchestration

import "github.com/gomind-ai/orchestrator-core/strategy"

// Step, Instruction and Map are the orchestrator's view onto the strategy
// package's typed plan; kept as aliases rather than copies so a StrategyMap
// built by strategy.Engine needs no translation step before execution.
type Step = strategy.Step
type Instruction = strategy.Instruction
type Map = strategy.Map
type LoopBlock = strategy.LoopBlock
type TerminateInstruction = strategy.TerminateInstruction

const (
	InstructionStep      = strategy.InstructionStep
	InstructionLoop      = strategy.InstructionLoop
	InstructionTerminate = strategy.InstructionTerminate
)
