package core

import (
	"context"
	"sync"
)

// MockAgent is a scriptable Agent test double: each call to Execute pops the
// next scripted response off a queue (or reuses a default if the queue is
// empty), recording every payload it was called with for assertions.
type MockAgent struct {
	mu         sync.Mutex
	name       string
	expertise  string
	available  bool
	responses  []mockResponse
	defaultOut AgentOutput
	defaultErr *AgentError
	Calls      []Payload
}

type mockResponse struct {
	out AgentOutput
	err *AgentError
}

// NewMockAgent returns an available MockAgent with the given name/expertise
// and a default successful response of defaultValue.
func NewMockAgent(name, expertise string, defaultValue interface{}) *MockAgent {
	out, _ := Success(defaultValue)
	return &MockAgent{
		name:       name,
		expertise:  expertise,
		available:  true,
		defaultOut: out,
	}
}

// QueueSuccess appends a scripted successful response.
func (m *MockAgent) QueueSuccess(value interface{}) {
	out, _ := Success(value)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, mockResponse{out: out})
}

// QueueApproval appends a scripted RequiresApproval response.
func (m *MockAgent) QueueApproval(message string, payload interface{}) {
	out, _ := RequiresApproval(message, payload)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, mockResponse{out: out})
}

// QueueError appends a scripted failing response.
func (m *MockAgent) QueueError(err *AgentError) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, mockResponse{err: err})
}

// SetAvailable controls IsAvailable()'s return value.
func (m *MockAgent) SetAvailable(available bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = available
}

func (m *MockAgent) Execute(ctx context.Context, input Payload) (AgentOutput, *AgentError) {
	m.mu.Lock()
	m.Calls = append(m.Calls, input)
	var resp mockResponse
	if len(m.responses) > 0 {
		resp = m.responses[0]
		m.responses = m.responses[1:]
	} else {
		resp = mockResponse{out: m.defaultOut, err: m.defaultErr}
	}
	m.mu.Unlock()

	select {
	case <-ctx.Done():
		return AgentOutput{}, NewOtherAgentError("context done", ctx.Err())
	default:
	}
	return resp.out, resp.err
}

func (m *MockAgent) Expertise() string { return m.expertise }
func (m *MockAgent) Name() string      { return m.name }
func (m *MockAgent) IsAvailable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

// CallCount returns how many times Execute has been invoked so far.
func (m *MockAgent) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
