package dialogue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gomind-ai/orchestrator-core/core"
)

// BroadcastOrder selects how a Broadcast turn's participant replies are
// inserted into the transcript (§4.4.5).
type BroadcastOrder string

const (
	// OrderCompletion appends each reply as soon as it arrives; order
	// depends on agent latency. The default.
	OrderCompletion BroadcastOrder = "completion"
	// OrderParticipantOrder buffers every reply and appends them in
	// registration order once the whole wave completes.
	OrderParticipantOrder BroadcastOrder = "participant_order"
)

// TurnTakingKind selects how a Dialogue picks its next speaker (§4.4.5).
type TurnTakingKind string

const (
	// KindBroadcast delivers every turn's context to every available
	// participant and collects a response from each of them, inserted in
	// the order SetBroadcastOrder selects.
	KindBroadcast TurnTakingKind = "broadcast"
	// KindSequential cycles through participants in a fixed round-robin
	// order, one speaker per turn.
	KindSequential TurnTakingKind = "sequential"
	// KindMentioned picks whichever participant the previous message
	// @mentions; if none is mentioned, it falls back to round-robin.
	KindMentioned TurnTakingKind = "mentioned"
)

// Dialogue runs a turn-based conversation among Participants against a
// shared MessageStore, per the turn-taking strategy it was constructed with.
type Dialogue struct {
	kind            TurnTakingKind
	participants    []Participant
	store           *MessageStore
	reaction        ReactionStrategy
	formatThreshold int
	nextSequential  int
	tracer          core.Telemetry
	broadcastOrder  BroadcastOrder
}

// Broadcast builds a Dialogue where every turn fans out to every available
// participant.
func Broadcast(participants []Participant) *Dialogue {
	return newDialogue(KindBroadcast, participants)
}

// Sequential builds a Dialogue that cycles through participants in the
// order given.
func Sequential(participants []Participant) *Dialogue {
	return newDialogue(KindSequential, participants)
}

// Mentioned builds a Dialogue where the next speaker is whoever the last
// message addresses by @name, falling back to round-robin when nobody is
// mentioned.
func Mentioned(participants []Participant) *Dialogue {
	d := newDialogue(KindMentioned, participants)
	d.reaction = MentionReact{}
	return d
}

func newDialogue(kind TurnTakingKind, participants []Participant) *Dialogue {
	return &Dialogue{
		kind:            kind,
		participants:    participants,
		store:           NewMessageStore(),
		reaction:        AlwaysReact{},
		formatThreshold: 4000,
		tracer:          &core.NoOpTelemetry{},
		broadcastOrder:  OrderCompletion,
	}
}

// SetBroadcastOrder overrides how a Broadcast turn's replies are inserted
// into the transcript; default is OrderCompletion.
func (d *Dialogue) SetBroadcastOrder(o BroadcastOrder) { d.broadcastOrder = o }

// SetTelemetry installs a tracer for per-turn spans.
func (d *Dialogue) SetTelemetry(t core.Telemetry) { d.tracer = t }

// FromBlueprint builds a Dialogue from a free-form description (recorded as
// a System message seeding the transcript) and an already-bound participant
// list.
func FromBlueprint(description string, participants []Participant, kind TurnTakingKind) *Dialogue {
	var d *Dialogue
	switch kind {
	case KindSequential:
		d = Sequential(participants)
	case KindMentioned:
		d = Mentioned(participants)
	default:
		d = Broadcast(participants)
	}
	if description != "" {
		d.store.Append(DialogueMessage{Speaker: core.System(), Content: description})
	}
	return d
}

// FromPersonaTeam resolves team against registry and builds a Dialogue from
// whichever personas bound successfully; unbound persona names are returned
// for the caller to log or surface.
func FromPersonaTeam(team PersonaTeam, registry *core.AgentRegistry, kind TurnTakingKind) (*Dialogue, []string) {
	participants, unbound := team.Bind(registry)
	return FromBlueprint(fmt.Sprintf("Dialogue team: %s", team.Name), participants, kind), unbound
}

// SetContextFormatThreshold overrides the markdown/multipart switchover point.
func (d *Dialogue) SetContextFormatThreshold(n int) { d.formatThreshold = n }

// AddParticipant appends a new participant; it takes effect from the next
// turn onward.
func (d *Dialogue) AddParticipant(p Participant) { d.participants = append(d.participants, p) }

// RemoveParticipant drops a participant by name; a participant mid-turn is
// still allowed to finish its current response.
func (d *Dialogue) RemoveParticipant(name string) {
	out := d.participants[:0]
	for _, p := range d.participants {
		if p.Name != name {
			out = append(out, p)
		}
	}
	d.participants = out
}

// Participants returns the currently registered participants, in order.
func (d *Dialogue) Participants() []Participant {
	out := make([]Participant, len(d.participants))
	copy(out, d.participants)
	return out
}

// History returns the full recorded transcript so far.
func (d *Dialogue) History() []DialogueMessage { return d.store.All() }

// Run drives the dialogue for up to maxTurns turns (a Broadcast "turn" is
// one round across every participant; a Sequential/Mentioned turn is one
// participant's single response), starting from openingMessage as a User
// turn, and returns the full resulting transcript.
func (d *Dialogue) Run(ctx context.Context, openingMessage string, maxTurns int) ([]DialogueMessage, error) {
	if openingMessage != "" {
		d.store.Append(DialogueMessage{Speaker: core.User("user", ""), Content: openingMessage})
	}

	for turn := 0; turn < maxTurns; turn++ {
		if ctx.Err() != nil {
			return d.store.All(), ctx.Err()
		}
		switch d.kind {
		case KindBroadcast:
			if err := d.runBroadcastTurn(ctx); err != nil {
				return d.store.All(), err
			}
		case KindSequential:
			if err := d.runSequentialTurn(ctx); err != nil {
				return d.store.All(), err
			}
		case KindMentioned:
			if err := d.runMentionedTurn(ctx); err != nil {
				return d.store.All(), err
			}
		}
	}
	return d.store.All(), nil
}

// runBroadcastTurn fans one goroutine per reactive, available participant
// (§4.4.2, §5's "one task per participant"), then inserts every reply into
// the transcript according to d.broadcastOrder (§4.4.5).
func (d *Dialogue) runBroadcastTurn(ctx context.Context) error {
	type job struct {
		idx int
		p   Participant
	}
	var jobs []job
	tail := d.store.Recent(1)
	for i, p := range d.participants {
		if !p.Agent.IsAvailable() {
			continue
		}
		if !d.reaction.ShouldReact(p, tail) {
			continue
		}
		jobs = append(jobs, job{idx: i, p: p})
	}
	if len(jobs) == 0 {
		return nil
	}

	type dispatchResult struct {
		idx int
		msg DialogueMessage
		err error
	}
	results := make(chan dispatchResult, len(jobs))
	var wg sync.WaitGroup
	for _, j := range jobs {
		wg.Add(1)
		go func(j job) {
			defer wg.Done()
			msg, err := d.dispatch(ctx, j.p)
			results <- dispatchResult{idx: j.idx, msg: msg, err: err}
		}(j)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	if d.broadcastOrder == OrderParticipantOrder {
		buffered := make(map[int]dispatchResult, len(jobs))
		var firstErr error
		for r := range results {
			if r.err != nil && firstErr == nil {
				firstErr = r.err
				continue
			}
			buffered[r.idx] = r
		}
		if firstErr != nil {
			return firstErr
		}
		for _, j := range jobs {
			d.store.Append(buffered[j.idx].msg)
		}
		return nil
	}

	for r := range results {
		if r.err != nil {
			return r.err
		}
		d.store.Append(r.msg)
	}
	return nil
}

func (d *Dialogue) runSequentialTurn(ctx context.Context) error {
	if len(d.participants) == 0 {
		return nil
	}
	start := d.nextSequential
	for i := 0; i < len(d.participants); i++ {
		idx := (start + i) % len(d.participants)
		p := d.participants[idx]
		d.nextSequential = (idx + 1) % len(d.participants)
		if !p.Agent.IsAvailable() {
			continue
		}
		msg, err := d.dispatch(ctx, p)
		if err != nil {
			return err
		}
		d.store.Append(msg)
		return nil
	}
	return nil
}

func (d *Dialogue) runMentionedTurn(ctx context.Context) error {
	tail := d.store.Recent(1)
	for _, p := range d.participants {
		if (MentionReact{}).ShouldReact(p, tail) && p.Agent.IsAvailable() {
			msg, err := d.dispatch(ctx, p)
			if err != nil {
				return err
			}
			d.store.Append(msg)
			return nil
		}
	}
	return d.runSequentialTurn(ctx)
}

// participantContext builds p's per-turn input: every System/Agent message
// not yet delivered to p, plus the most recent User message (direct turn
// input, always included whether or not SentAgents already lists p —
// §4.4.3 items 1-2).
func (d *Dialogue) participantContext(speaker core.Speaker) []DialogueMessage {
	unseen := d.store.Unseen(speaker)
	if tail := d.store.Recent(1); len(tail) == 1 && tail[0].Speaker.Kind == core.SpeakerUser {
		unseen = append(unseen, tail[0])
	}
	return unseen
}

// dispatch renders p's context, dispatches to its agent, marks every
// context message delivered once the call completes, and returns the
// resulting message without appending it — callers decide insertion order.
func (d *Dialogue) dispatch(ctx context.Context, p Participant) (DialogueMessage, error) {
	ctx, span := d.tracer.StartSpan(ctx, "dialogue.turn")
	span.SetAttribute("participant", p.Name)
	span.SetAttribute("turn_taking", string(d.kind))
	defer span.End()

	speaker := core.NewAgentSpeaker(p.Name, p.Role, "")
	descriptors := make([]core.ParticipantDescriptor, 0, len(d.participants))
	for _, other := range d.participants {
		descriptors = append(descriptors, other.Descriptor())
	}
	unseen := d.participantContext(speaker)
	payload := RenderContext(unseen, descriptors, d.formatThreshold)

	output, agentErr := p.Agent.Execute(ctx, payload)
	if agentErr != nil {
		span.RecordError(agentErr)
		return DialogueMessage{}, fmt.Errorf("participant %q: %w", p.Name, agentErr)
	}

	ids := make([]int64, 0, len(unseen))
	for _, m := range unseen {
		ids = append(ids, m.ID)
	}
	d.store.MarkSent(ids, speaker)

	if output.IsRequiresApproval() {
		return DialogueMessage{Speaker: speaker, Content: output.ApprovalMessage()}, nil
	}
	return DialogueMessage{Speaker: speaker, Content: responseText(output)}, nil
}

func responseText(output core.AgentOutput) string {
	var s string
	if err := json.Unmarshal(output.SuccessValue(), &s); err == nil {
		return s
	}
	return string(output.SuccessValue())
}

// PartialSession is the serializable snapshot a paused dialogue checkpoints
// to and a resumed one is restored from, mirroring the orchestrator's
// OrchestrationState for the conversational runtime.
type PartialSession struct {
	Kind           TurnTakingKind    `json:"kind"`
	Messages       []DialogueMessage `json:"messages"`
	NextSequential int               `json:"next_sequential"`
}

// PartialSession captures the dialogue's current transcript and turn-order
// cursor without requiring the run to have finished.
func (d *Dialogue) PartialSession() PartialSession {
	return PartialSession{Kind: d.kind, Messages: d.store.All(), NextSequential: d.nextSequential}
}

// Resume restores a prior PartialSession's transcript and cursor into this
// Dialogue exactly as paused — message IDs, turns, and SentAgents are kept
// verbatim since this is the same dialogue continuing, not a fresh load
// from a saved transcript. Participants must be re-added by the caller
// beforehand.
func (d *Dialogue) Resume(session PartialSession) {
	d.kind = session.Kind
	d.nextSequential = session.NextSequential
	d.store = NewMessageStore()
	for _, m := range session.Messages {
		d.store.appendRestored(m)
	}
}

// SaveHistory serializes the full transcript to JSON.
func (d *Dialogue) SaveHistory() ([]byte, error) {
	return json.Marshal(d.store.All())
}

// LoadHistory parses a transcript previously produced by SaveHistory into a
// fresh Dialogue using the given participants and turn-taking kind. Per
// §4.4.7's with_history: every restored message gets a fresh MessageId, its
// turn is recomputed by incrementing once per observed System message, and
// SentAgents is set to All so the history displays but is never
// redistributed as unsent context.
func LoadHistory(raw []byte, participants []Participant, kind TurnTakingKind) (*Dialogue, error) {
	var messages []DialogueMessage
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil, fmt.Errorf("load dialogue history: %w", err)
	}
	d := newDialogue(kind, participants)
	if kind == KindMentioned {
		d.reaction = MentionReact{}
	}
	turn := 0
	for _, m := range messages {
		if m.Speaker.Kind == core.SpeakerSystem {
			turn++
		}
		m.Turn = turn
		m.SentAgents = SentAgents{All: true}
		d.store.appendFresh(m)
	}
	return d, nil
}
