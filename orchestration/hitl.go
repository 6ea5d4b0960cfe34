package orchestration

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// OrchestrationState is the serialized shape a paused run is checkpointed
// to and a resumed run is restored from: {"context": {...},
// "execution_manager": {"states": {...}}} (§6).
type OrchestrationState struct {
	Context           map[string]interface{} `json:"context"`
	ExecutionManager  executionManagerState  `json:"execution_manager"`
}

type executionManagerState struct {
	States map[string]StepState `json:"states"`
}

// Snapshot captures ctx and mgr into a serializable OrchestrationState.
func Snapshot(ctx map[string]interface{}, mgr *ExecutionStateManager) OrchestrationState {
	return OrchestrationState{
		Context:          ctx,
		ExecutionManager: executionManagerState{States: mgr.Snapshot()},
	}
}

// MarshalJSON-compatible helpers.
func (s OrchestrationState) Encode() ([]byte, error) { return json.Marshal(s) }

func DecodeOrchestrationState(raw []byte) (OrchestrationState, error) {
	var s OrchestrationState
	if err := json.Unmarshal(raw, &s); err != nil {
		return OrchestrationState{}, fmt.Errorf("decode orchestration state: %w", err)
	}
	return s, nil
}

// CheckpointStore persists and retrieves OrchestrationState by run id, the
// way a paused-for-approval run survives a process restart before a human
// resolves it (§4.3.7).
type CheckpointStore interface {
	Save(ctx context.Context, runID string, state OrchestrationState) error
	Load(ctx context.Context, runID string) (OrchestrationState, bool, error)
	Delete(ctx context.Context, runID string) error
}

// InMemoryCheckpointStore is the default CheckpointStore: adequate for a
// single-process deployment or tests, lost on restart.
type InMemoryCheckpointStore struct {
	mu    sync.Mutex
	items map[string]OrchestrationState
}

// NewInMemoryCheckpointStore returns an empty store.
func NewInMemoryCheckpointStore() *InMemoryCheckpointStore {
	return &InMemoryCheckpointStore{items: make(map[string]OrchestrationState)}
}

func (s *InMemoryCheckpointStore) Save(_ context.Context, runID string, state OrchestrationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[runID] = state
	return nil
}

func (s *InMemoryCheckpointStore) Load(_ context.Context, runID string) (OrchestrationState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.items[runID]
	return st, ok, nil
}

func (s *InMemoryCheckpointStore) Delete(_ context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, runID)
	return nil
}
