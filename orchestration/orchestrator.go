// Package orchestration implements the Parallel Orchestrator: a wave-based
// dataflow scheduler that executes a strategy.Map's steps against a shared
// context, honoring dependencies, cascading failure, retrying transient
// errors within a wave, and pausing for human approval (§4.3).
package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gomind-ai/orchestrator-core/core"
	"github.com/gomind-ai/orchestrator-core/strategy"
	"github.com/gomind-ai/orchestrator-core/template"
)

// ExecuteOptions configures one Execute call.
type ExecuteOptions struct {
	// RunID identifies this run for checkpointing; required if Checkpoints
	// is set and the run may pause for approval.
	RunID string
	// ResumeFrom seeds context and step states from a prior pause.
	ResumeFrom *OrchestrationState
}

// OrchestrationResult is what Execute returns once a run finishes, pauses,
// or fails.
type OrchestrationResult struct {
	RunID          string
	FinalOutput    interface{}
	Context        map[string]interface{}
	Journal        []StepRecord
	StepsExecuted  int
	StepsSkipped   int
	Paused         bool
	PausedStepID   string
	PausedMessage  string
}

// Orchestrator drives one strategy.Map to completion. A single instance is
// built per run; AddAgent/SetStrategyMap/SetEngine are setup-time calls, not
// safe to race against Execute.
type Orchestrator struct {
	registry *core.AgentRegistry
	engine   *strategy.Engine
	plan     strategy.Map
	config   Config

	checkpoints CheckpointStore
	logger      core.Logger
	tracer      core.Telemetry

	breakers *AgentCircuitBreakers
}

// NewOrchestrator builds an Orchestrator with the given config. Checkpoints
// defaults to an in-memory store; override with SetCheckpointStore for
// cross-process pause/resume.
func NewOrchestrator(config Config) *Orchestrator {
	return &Orchestrator{
		registry:    core.NewAgentRegistry(),
		config:      config,
		checkpoints: NewInMemoryCheckpointStore(),
		logger:      &core.NoOpLogger{},
		tracer:      &core.NoOpTelemetry{},
		breakers:    NewAgentCircuitBreakers(5, 30*time.Second),
	}
}

// AddAgent registers an agent under its own Name() for step dispatch.
// Returns core.ErrAlreadyRegistered if that name is already taken.
func (o *Orchestrator) AddAgent(agent core.Agent) error { return o.registry.Add(agent) }

// SetStrategyMap installs the plan this run will execute.
func (o *Orchestrator) SetStrategyMap(m strategy.Map) { o.plan = m }

// SetEngine wires the Strategy Engine used for intent rendering and
// redesign decisions. Without an engine, intent templates render with exact
// key matching only (no semantic fallback) and permanent failures cascade
// to Skipped dependents without any redesign decision.
func (o *Orchestrator) SetEngine(e *strategy.Engine) {
	o.engine = e
	e.SetTelemetry(o.tracer)
}

// SetCheckpointStore overrides the default in-memory checkpoint store.
func (o *Orchestrator) SetCheckpointStore(store CheckpointStore) { o.checkpoints = store }

// SetLogger installs a component-aware logger, namespaced under
// "orchestration/scheduler" (§ ambient logging convention).
func (o *Orchestrator) SetLogger(logger core.Logger) {
	if cal, ok := logger.(core.ComponentAwareLogger); ok {
		logger = cal.WithComponent("orchestration/scheduler")
	}
	o.logger = logger
}

// SetTelemetry installs a tracer for per-step spans, propagating it to the
// Strategy Engine as well when one is already wired so generate_strategy and
// redesign calls share the same trace.
func (o *Orchestrator) SetTelemetry(t core.Telemetry) {
	o.tracer = t
	if o.engine != nil {
		o.engine.SetTelemetry(t)
	}
}

// Execute runs the installed strategy.Map to completion, pause, or failure.
// ctx cancellation stops dispatch of further steps and aborts any still
// running once their own timeout or ctx.Done fires.
func (o *Orchestrator) Execute(ctx context.Context, task string, opts ExecuteOptions) (OrchestrationResult, error) {
	if len(o.plan.Steps) == 0 && len(o.plan.Elements) == 0 {
		return OrchestrationResult{}, ErrNoStrategy()
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.New().String()
	}

	ctx, runSpan := o.tracer.StartSpan(ctx, "orchestrator.run")
	runSpan.SetAttribute("run_id", runID)
	runSpan.SetAttribute("goal", o.plan.Goal)
	defer runSpan.End()

	sharedContext := map[string]interface{}{}
	var mgr *ExecutionStateManager
	allStepIDs := collectStepIDs(o.plan)

	if opts.ResumeFrom != nil {
		for k, v := range opts.ResumeFrom.Context {
			sharedContext[k] = v
		}
		mgr = NewExecutionStateManagerFromSnapshot(allStepIDs, opts.ResumeFrom.ExecutionManager.States)
	} else {
		mgr = NewExecutionStateManager(allStepIDs)
	}

	journal := NewExecutionJournal()

	totalCtx := ctx
	var cancelTotal context.CancelFunc
	if o.config.TotalTimeout > 0 {
		totalCtx, cancelTotal = context.WithTimeout(ctx, o.config.TotalTimeout)
		defer cancelTotal()
	}

	segments := segmentPlan(o.plan)

	var finalOutput interface{}
	fullRegenerations := 0

executeLoop:
	for {
	segmentLoop:
		for _, seg := range segments {
			if seg.kind == segmentLoop {
				o.logger.Info("encountered loop block; truncating plan here, parallel orchestrator does not execute loop bodies", map[string]interface{}{"loop_id": seg.loop.LoopID})
				break segmentLoop
			}

			result, err := o.runSegment(totalCtx, o.plan.Goal, seg.steps, sharedContext, mgr, journal)
			if err != nil {
				var redesign *errRedesignAndRestart
				if errors.As(err, &redesign) && o.engine != nil &&
					(o.config.MaxFullRegenerations <= 0 || fullRegenerations < o.config.MaxFullRegenerations) {
					fullRegenerations++

					var completedWork []string
					for _, id := range allStepIDs {
						if mgr.Get(id).Kind == StateCompleted {
							completedWork = append(completedWork, id)
						}
					}
					catalog := strategy.SnapshotCatalog(o.registry)
					newPlan, genErr := o.engine.FullRegenerate(ctx, task, o.plan, redesign.Error(), completedWork, catalog)
					if genErr != nil {
						runSpan.RecordError(genErr)
						return o.buildResult(runID, finalOutput, sharedContext, journal, allStepIDs, mgr), ErrStrategyGenerationFailed(genErr.Error(), genErr)
					}

					o.plan = newPlan
					allStepIDs = collectStepIDs(o.plan)
					mgr = NewExecutionStateManager(allStepIDs)
					segments = segmentPlan(o.plan)
					continue executeLoop
				}

				if redesign != nil {
					err = ErrExecutionFailed("full regeneration budget exhausted", err)
				}
				runSpan.RecordError(err)
				return o.buildResult(runID, finalOutput, sharedContext, journal, allStepIDs, mgr), err
			}
			if result.paused {
				o.saveCheckpoint(ctx, runID, sharedContext, mgr)
				res := o.buildResult(runID, finalOutput, sharedContext, journal, allStepIDs, mgr)
				res.Paused = true
				res.PausedStepID = result.pausedStepID
				res.PausedMessage = result.pausedMessage
				return res, nil
			}

			if seg.kind == segmentTerminate {
				shouldStop, output, err := o.evaluateTerminate(seg.terminate, sharedContext)
				if err != nil {
					return o.buildResult(runID, finalOutput, sharedContext, journal, allStepIDs, mgr), ErrTemplateRender(err.Error(), err)
				}
				if output != "" {
					finalOutput = output
				}
				if shouldStop {
					break executeLoop
				}
			}
		}
		break executeLoop
	}

	o.checkpoints.Delete(ctx, runID)
	return o.buildResult(runID, finalOutput, sharedContext, journal, allStepIDs, mgr), nil
}

func (o *Orchestrator) saveCheckpoint(ctx context.Context, runID string, sharedContext map[string]interface{}, mgr *ExecutionStateManager) {
	if o.checkpoints == nil {
		return
	}
	if err := o.checkpoints.Save(ctx, runID, Snapshot(sharedContext, mgr)); err != nil {
		o.logger.Error("failed to save checkpoint", map[string]interface{}{"run_id": runID, "error": err.Error()})
	}
}

func (o *Orchestrator) buildResult(runID string, finalOutput interface{}, sharedContext map[string]interface{}, journal *ExecutionJournal, allStepIDs []string, mgr *ExecutionStateManager) OrchestrationResult {
	return OrchestrationResult{
		RunID:         runID,
		FinalOutput:   finalOutput,
		Context:       sharedContext,
		Journal:       journal.Records(),
		StepsExecuted: mgr.CountByKind(allStepIDs, StateCompleted),
		StepsSkipped:  mgr.CountByKind(allStepIDs, StateSkipped),
	}
}

func collectStepIDs(plan strategy.Map) []string {
	var ids []string
	for _, el := range plan.Linearized() {
		switch el.Kind {
		case strategy.InstructionStep:
			ids = append(ids, el.Step.StepID)
		case strategy.InstructionLoop:
			for _, s := range el.Loop.Steps {
				ids = append(ids, s.StepID)
			}
		}
	}
	return ids
}

// segmentKind tags one unit of segmentPlan's output.
type segmentKind int

const (
	segmentSteps segmentKind = iota
	segmentTerminate
	segmentLoop
)

type planSegment struct {
	kind      segmentKind
	steps     []strategy.Step
	terminate strategy.TerminateInstruction
	loop      strategy.LoopBlock
}

// segmentPlan splits the plan's linearized elements into contiguous step
// runs, each ended by either a Terminate instruction or a Loop block (§4.3.1).
func segmentPlan(plan strategy.Map) []planSegment {
	var segments []planSegment
	var current []strategy.Step

	flush := func() {
		if len(current) > 0 {
			segments = append(segments, planSegment{kind: segmentSteps, steps: current})
			current = nil
		}
	}

	for _, el := range plan.Linearized() {
		switch el.Kind {
		case strategy.InstructionStep:
			current = append(current, *el.Step)
		case strategy.InstructionTerminate:
			flush()
			segments = append(segments, planSegment{kind: segmentTerminate, terminate: *el.Terminate})
		case strategy.InstructionLoop:
			flush()
			segments = append(segments, planSegment{kind: segmentLoop, loop: *el.Loop})
		}
	}
	flush()
	return segments
}

// evaluateTerminate renders the optional condition_template; a missing
// condition always terminates (an unconditional end-of-segment marker). A
// present condition stops the run only when it renders, trimmed and
// case-insensitive, to "true".
func (o *Orchestrator) evaluateTerminate(t strategy.TerminateInstruction, context map[string]interface{}) (bool, string, error) {
	shouldStop := true
	if t.ConditionTemplate != nil {
		rendered, err := template.RenderTrimmedLower(*t.ConditionTemplate, context)
		if err != nil {
			return false, "", err
		}
		shouldStop = rendered == "true"
	}
	var output string
	if shouldStop && t.FinalOutputTemplate != nil {
		rendered, err := renderTemplate(*t.FinalOutputTemplate, context)
		if err != nil {
			return false, "", err
		}
		output = rendered
	}
	return shouldStop, output, nil
}

// segmentRunResult reports how runSegment ended.
type segmentRunResult struct {
	paused        bool
	pausedStepID  string
	pausedMessage string
}

// runSegment executes one dependency segment to exhaustion: repeatedly
// dispatching every currently-Ready step as a wave, until no step remains
// Pending/Ready (§4.3.2-§4.3.5). A step that fails permanently is offered to
// the Strategy Engine's redesign decision when one is wired (§4.3.6): retry
// resets the step to Pending, tactical replaces the segment's remaining
// steps, and full returns errRedesignAndRestart for Execute's outer loop
// to catch and act on.
func (o *Orchestrator) runSegment(ctx context.Context, goal string, steps []strategy.Step, sharedContext map[string]interface{}, mgr *ExecutionStateManager, journal *ExecutionJournal) (segmentRunResult, error) {
	graph := NewDependencyGraph(steps)
	if err := graph.Validate(); err != nil {
		return segmentRunResult{}, ErrExecutionFailed(err.Error(), err)
	}

	byID := make(map[string]strategy.Step, len(steps))
	for _, s := range steps {
		byID[s.StepID] = s
	}

	redesignAttempts := map[string]int{}

	for {
		if ctx.Err() != nil {
			return segmentRunResult{}, ctx.Err()
		}

		ready := o.readySteps(graph, mgr)
		if len(ready) == 0 {
			break
		}

		type waveOutcome struct {
			stepID   string
			paused   bool
			message  string
			failed   bool
			agentErr *core.AgentError
		}

		outcomes := make(chan waveOutcome, len(ready))
		sem := make(chan struct{}, maxInt(1, o.config.MaxConcurrency))
		var wg sync.WaitGroup

		for _, stepID := range ready {
			mgr.Set(stepID, ReadyState())
		}

		for _, stepID := range ready {
			step := byID[stepID]
			wg.Add(1)
			sem <- struct{}{}
			go func(step strategy.Step) {
				defer wg.Done()
				defer func() { <-sem }()

				mgr.Set(step.StepID, RunningState())
				outcome := o.runStep(ctx, step, steps, sharedContext, journal)
				switch outcome.Kind {
				case stepOutcomeCompleted:
					mgr.Set(step.StepID, CompletedState())
					outcomes <- waveOutcome{stepID: step.StepID}
				case stepOutcomePaused:
					mgr.Set(step.StepID, PausedForApprovalState(outcome.message, outcome.payload))
					outcomes <- waveOutcome{stepID: step.StepID, paused: true, message: outcome.message}
				case stepOutcomeFailed:
					mgr.Set(step.StepID, FailedState(outcome.failure))
					outcomes <- waveOutcome{stepID: step.StepID, failed: true, agentErr: outcome.agentErr}
				}
			}(step)
		}

		wg.Wait()
		close(outcomes)

		var paused *waveOutcome
		var failedThisWave []waveOutcome
		for res := range outcomes {
			res := res
			if res.paused && paused == nil {
				paused = &res
			}
			if res.failed {
				failedThisWave = append(failedThisWave, res)
			}
		}

		if paused != nil {
			return segmentRunResult{paused: true, pausedStepID: paused.stepID, pausedMessage: paused.message}, nil
		}

		for _, res := range failedThisWave {
			handled, rebuilt, redesignErr := o.redesignFailedStep(ctx, goal, res.stepID, res.agentErr, &steps, byID, graph, mgr, redesignAttempts)
			if redesignErr != nil {
				return segmentRunResult{}, redesignErr
			}
			if handled {
				if rebuilt != nil {
					graph = rebuilt
				}
				continue
			}
			for _, dependent := range graph.TransitiveDependents(res.stepID) {
				if !mgr.Get(dependent).IsTerminal() {
					mgr.Set(dependent, SkippedState())
				}
			}
		}
	}
	return segmentRunResult{}, nil
}

// redesignFailedStep offers a permanently-failed step to the Strategy
// Engine's redesign decision, if an engine is wired. Returns handled=true
// when the step was retried or its tail replaced, in which case the caller
// should skip the usual cascade-to-Skipped; rebuilt is non-nil when the
// dependency graph needs to be replaced because the step list changed. A
// DecisionFull verdict is a whole-run decision this segment cannot act on
// alone, so it's surfaced as an errRedesignAndRestart for Execute's outer
// loop to catch (§4.3.6, §9).
func (o *Orchestrator) redesignFailedStep(ctx context.Context, goal, stepID string, agentErr *core.AgentError, steps *[]strategy.Step, byID map[string]strategy.Step, graph *DependencyGraph, mgr *ExecutionStateManager, attempts map[string]int) (handled bool, rebuilt *DependencyGraph, redesignErr error) {
	if o.engine == nil || agentErr == nil {
		return false, nil, nil
	}
	if o.config.MaxRedesignAttempts > 0 && attempts[stepID] >= o.config.MaxRedesignAttempts {
		return false, nil, nil
	}
	attempts[stepID]++

	var completed []string
	for _, id := range graph.StepIDs() {
		if mgr.Get(id).Kind == StateCompleted {
			completed = append(completed, id)
		}
	}
	progress := strategy.ProgressSnapshot{CompletedSteps: completed}

	decision, err := o.engine.DecideRedesign(ctx, goal, byID[stepID], agentErr, progress)
	if err != nil {
		o.logger.Error("redesign decision failed", map[string]interface{}{"step_id": stepID, "error": err.Error()})
		return false, nil, nil
	}

	switch decision {
	case strategy.DecisionRetry:
		mgr.Set(stepID, PendingState())
		return true, nil, nil
	case strategy.DecisionTactical:
		idx := indexOfStep(*steps, stepID)
		if idx < 0 {
			return false, nil, nil
		}
		plan := strategy.Map{Goal: goal, Steps: *steps}
		newTail, err := o.engine.TacticalRedesign(ctx, plan, idx, map[string]interface{}{})
		if err != nil {
			o.logger.Error("tactical redesign failed", map[string]interface{}{"step_id": stepID, "error": err.Error()})
			return false, nil, nil
		}
		*steps = newTail
		for _, s := range newTail[idx:] {
			byID[s.StepID] = s
			mgr.Set(s.StepID, PendingState())
		}
		return true, NewDependencyGraph(newTail), nil
	default:
		return false, nil, &errRedesignAndRestart{stepID: stepID, cause: agentErr}
	}
}

func indexOfStep(steps []strategy.Step, stepID string) int {
	for i, s := range steps {
		if s.StepID == stepID {
			return i
		}
	}
	return -1
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// readySteps returns every step whose state is Pending and whose
// dependencies are all Completed.
func (o *Orchestrator) readySteps(graph *DependencyGraph, mgr *ExecutionStateManager) []string {
	var ready []string
	for _, id := range graph.StepIDs() {
		if mgr.Get(id).Kind != StatePending {
			continue
		}
		blocked := false
		for _, dep := range graph.GetDependencies(id) {
			if mgr.Get(dep).Kind != StateCompleted {
				blocked = true
				break
			}
		}
		if !blocked {
			ready = append(ready, id)
		}
	}
	return ready
}

// stepOutcomeKind tags runStep's result.
type stepOutcomeKind int

const (
	stepOutcomeCompleted stepOutcomeKind = iota
	stepOutcomePaused
	stepOutcomeFailed
)

type stepOutcome struct {
	Kind     stepOutcomeKind
	message  string
	payload  []byte
	failure  StepFailure
	agentErr *core.AgentError
}

// runStep renders the step's intent, dispatches to its assigned agent with
// retry-within-wave for transient errors and a redesign offramp for
// permanent ones, and records a StepRecord regardless of outcome (§4.3.3,
// §4.3.4, §4.3.6).
func (o *Orchestrator) runStep(ctx context.Context, step strategy.Step, allSteps []strategy.Step, sharedContext map[string]interface{}, journal *ExecutionJournal) stepOutcome {
	started := time.Now()

	ctx, span := o.tracer.StartSpan(ctx, "orchestrator.step")
	span.SetAttribute("step_id", step.StepID)
	span.SetAttribute("assigned_agent", step.AssignedAgent)
	defer span.End()

	outcome := o.runStepTraced(ctx, step, allSteps, sharedContext, journal, started)
	if outcome.Kind == stepOutcomeFailed {
		span.RecordError(fmt.Errorf("%s", outcome.failure.Message))
	}
	return outcome
}

func (o *Orchestrator) runStepTraced(ctx context.Context, step strategy.Step, allSteps []strategy.Step, sharedContext map[string]interface{}, journal *ExecutionJournal, started time.Time) stepOutcome {
	breaker := o.breakers.For(step.AssignedAgent)
	if !breaker.Allow() {
		failure := StepFailure{Kind: FailureOther, Message: fmt.Sprintf("circuit open for agent %q", step.AssignedAgent)}
		journal.Append(StepRecord{StepID: step.StepID, Status: StateFailed, Error: failure.Message, StartedAt: started, EndedAt: time.Now()})
		return stepOutcome{Kind: stepOutcomeFailed, failure: failure}
	}

	agent, ok := o.registry.Get(step.AssignedAgent)
	if !ok {
		err := fmt.Errorf("step %q: assigned agent %q: %w", step.StepID, step.AssignedAgent, core.ErrAgentNotFound)
		failure := StepFailure{Kind: FailureOther, Message: err.Error()}
		journal.Append(StepRecord{StepID: step.StepID, Status: StateFailed, Error: failure.Message, StartedAt: started, EndedAt: time.Now()})
		return stepOutcome{Kind: stepOutcomeFailed, failure: failure}
	}

	intent, err := o.renderIntent(ctx, step, allSteps, sharedContext)
	if err != nil {
		failure := StepFailure{Kind: FailureOther, Message: err.Error()}
		journal.Append(StepRecord{StepID: step.StepID, Status: StateFailed, Error: failure.Message, StartedAt: started, EndedAt: time.Now()})
		return stepOutcome{Kind: stepOutcomeFailed, failure: failure}
	}

	stepCtx := ctx
	var cancel context.CancelFunc
	if o.config.StepTimeout > 0 {
		stepCtx, cancel = context.WithTimeout(ctx, o.config.StepTimeout)
		defer cancel()
	}

	attempts := 0
	maxAttempts := maxInt(1, o.config.MaxStepRemediations)
	for {
		attempts++
		output, agentErr := agent.Execute(stepCtx, core.NewPayload().WithText(intent))
		if agentErr == nil {
			breaker.RecordSuccess()
			if output.IsRequiresApproval() {
				journal.Append(StepRecord{StepID: step.StepID, Status: StatePausedApproval, StartedAt: started, EndedAt: time.Now()})
				return stepOutcome{Kind: stepOutcomePaused, message: output.ApprovalMessage(), payload: output.ApprovalPayload()}
			}
			sharedContext[step.ResolvedOutputKey()] = decodeOutput(output.SuccessValue())
			journal.Append(StepRecord{StepID: step.StepID, Status: StateCompleted, Output: output.SuccessValue(), StartedAt: started, EndedAt: time.Now()})
			return stepOutcome{Kind: stepOutcomeCompleted}
		}

		breaker.RecordFailure()

		if stepCtx.Err() != nil {
			kind := FailureCancelled
			if stepCtx.Err() == context.DeadlineExceeded {
				kind = FailureTimeout
			}
			failure := StepFailure{Kind: kind, Message: agentErr.Error()}
			journal.Append(StepRecord{StepID: step.StepID, Status: StateFailed, Error: failure.Message, StartedAt: started, EndedAt: time.Now()})
			return stepOutcome{Kind: stepOutcomeFailed, failure: failure}
		}

		transient := agentErr.IsTransient()
		if o.engine != nil {
			transient = o.engine.ClassifyTransientOrPermanent(agentErr)
		}
		if transient && attempts < maxAttempts {
			continue
		}

		failure := StepFailure{Kind: FailureAgentError, Message: agentErr.Error()}
		journal.Append(StepRecord{StepID: step.StepID, Status: StateFailed, Error: failure.Message, StartedAt: started, EndedAt: time.Now()})
		return stepOutcome{Kind: stepOutcomeFailed, failure: failure, agentErr: agentErr}
	}
}

// renderIntent delegates to the Strategy Engine when one is wired;
// otherwise it falls back to exact-key template rendering only.
func (o *Orchestrator) renderIntent(ctx context.Context, step strategy.Step, allSteps []strategy.Step, sharedContext map[string]interface{}) (string, error) {
	if o.engine != nil {
		return o.engine.RenderIntent(ctx, step, priorStepsOf(step, allSteps), sharedContext)
	}
	return renderTemplate(step.IntentTemplate, sharedContext)
}

func priorStepsOf(step strategy.Step, allSteps []strategy.Step) []strategy.Step {
	var prior []strategy.Step
	for _, s := range allSteps {
		if s.StepID == step.StepID {
			break
		}
		prior = append(prior, s)
	}
	return prior
}

// decodeOutput unwraps a JSON string scalar to a bare Go string so that
// downstream intent templates referencing {{ .step_1_output }} substitute
// cleanly instead of re-quoting it; any other JSON shape is kept raw.
func decodeOutput(raw []byte) interface{} {
	var s string
	if err := unmarshalString(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
