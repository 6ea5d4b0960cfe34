package dialogue

import (
	"sync"
	"time"

	"github.com/gomind-ai/orchestrator-core/core"
)

// SentAgents tracks which participants a message has already been
// delivered to as context, so the same message is never redelivered to
// the same agent twice (§4.4.3). All collapses the set to "everyone" —
// used for messages restored from a saved transcript, which contribute to
// display but are not redistributed as unsent context.
type SentAgents struct {
	All    bool           `json:"all,omitempty"`
	Agents []core.Speaker `json:"agents,omitempty"`
}

// Contains reports whether speaker has already received this message.
func (s SentAgents) Contains(speaker core.Speaker) bool {
	if s.All {
		return true
	}
	for _, a := range s.Agents {
		if a.Equal(speaker) {
			return true
		}
	}
	return false
}

// Add records speaker as having received this message, if not already.
func (s *SentAgents) Add(speaker core.Speaker) {
	if s.All || s.Contains(speaker) {
		return
	}
	s.Agents = append(s.Agents, speaker)
}

// DialogueMessage is one turn recorded in a MessageStore. Immutable after
// creation except for SentAgents, which is appended-to as the message is
// distributed to participants.
type DialogueMessage struct {
	ID         int64                  `json:"id"`
	Turn       int                    `json:"turn"`
	Speaker    core.Speaker           `json:"speaker"`
	Content    string                 `json:"content"`
	Timestamp  time.Time              `json:"timestamp"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	SentAgents SentAgents             `json:"sent_agents"`
}

// MessageStore is the mutex-guarded, append-only transcript a Dialogue
// accumulates turns into, plus the per-message SentAgents bookkeeping
// that lets a turn deliver only the context a given participant hasn't
// already seen (§4.4.3).
type MessageStore struct {
	mu       sync.Mutex
	messages []DialogueMessage
	nextID   int64
}

// NewMessageStore returns an empty store.
func NewMessageStore() *MessageStore {
	return &MessageStore{}
}

// Append records msg at the end of the transcript, assigning it a fresh
// MessageId and a turn number of CurrentTurn()+1 if msg.Turn is unset.
// Returns the stored copy, ID and Turn included.
func (s *MessageStore) Append(msg DialogueMessage) DialogueMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	msg.ID = s.nextID
	if msg.Turn == 0 {
		msg.Turn = s.currentTurnLocked() + 1
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	s.messages = append(s.messages, msg)
	return msg
}

// appendRestored re-inserts msg verbatim (its own ID/Turn/SentAgents
// preserved) — used when resuming a paused dialogue from its own prior
// state, as opposed to LoadHistory's "fresh start from a transcript".
func (s *MessageStore) appendRestored(msg DialogueMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.ID > s.nextID {
		s.nextID = msg.ID
	}
	s.messages = append(s.messages, msg)
}

// appendFresh inserts msg with a newly assigned MessageId but keeps the
// caller-computed Turn/SentAgents/Timestamp — used by LoadHistory's
// with_history restore, which recomputes those fields itself.
func (s *MessageStore) appendFresh(msg DialogueMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	msg.ID = s.nextID
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	s.messages = append(s.messages, msg)
}

// All returns every recorded message, in order.
func (s *MessageStore) All() []DialogueMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]DialogueMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Recent returns the last n messages (or fewer, if the transcript is shorter).
func (s *MessageStore) Recent(n int) []DialogueMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n >= len(s.messages) {
		out := make([]DialogueMessage, len(s.messages))
		copy(out, s.messages)
		return out
	}
	start := len(s.messages) - n
	out := make([]DialogueMessage, n)
	copy(out, s.messages[start:])
	return out
}

// CurrentTurn reports the number of System-speaker messages recorded (§3).
func (s *MessageStore) CurrentTurn() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentTurnLocked()
}

func (s *MessageStore) currentTurnLocked() int {
	n := 0
	for _, m := range s.messages {
		if m.Speaker.Kind == core.SpeakerSystem {
			n++
		}
	}
	return n
}

// Unseen returns every System- or Agent-authored message not yet marked
// as delivered to participant — User messages are direct turn input, not
// redistributed as third-party context, so they're excluded here (§4.4.3).
// Does not itself mark anything delivered; call MarkSent once dispatch to
// participant actually completes.
func (s *MessageStore) Unseen(participant core.Speaker) []DialogueMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []DialogueMessage
	for _, m := range s.messages {
		if m.Speaker.Kind == core.SpeakerUser {
			continue
		}
		if m.SentAgents.Contains(participant) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// MarkSent records participant as having received every message in ids —
// called once a participant's dispatch completes, so each agent-authored
// message is delivered to each other agent at most once, ever.
func (s *MessageStore) MarkSent(ids []int64, participant core.Speaker) {
	if len(ids) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for i := range s.messages {
		if want[s.messages[i].ID] {
			s.messages[i].SentAgents.Add(participant)
		}
	}
}

// Len reports how many messages have been recorded.
func (s *MessageStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}
