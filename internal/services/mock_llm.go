package services

import (
	"context"
	"sync"

	"github.com/jwebster45206/tale-engine/pkg/chat"
)

// MockReply is one scripted backend answer.
type MockReply struct {
	Text string
	Err  error
}

// MockLLMAPI is a scripted Backend for tests. Replies are served in order;
// once the script runs out, GenerateFunc (or a fixed "Mock response") is used.
type MockLLMAPI struct {
	GenerateFunc func(ctx context.Context, messages []chat.ChatMessage, opts GenerateOptions) (string, error)

	BackendName string
	IsRemote    bool

	// Track calls for testing
	GenerateCalls []GenerateCall

	script []MockReply
	mu     sync.Mutex // protects all fields above
}

// GenerateCall records one Generate invocation.
type GenerateCall struct {
	Messages []chat.ChatMessage
	Options  GenerateOptions
}

var _ Backend = (*MockLLMAPI)(nil)

// NewMockLLMAPI creates a mock that answers with texts in order.
func NewMockLLMAPI(texts ...string) *MockLLMAPI {
	m := &MockLLMAPI{
		BackendName:   "mock",
		GenerateCalls: make([]GenerateCall, 0),
	}
	for _, t := range texts {
		m.script = append(m.script, MockReply{Text: t})
	}
	return m
}

func (m *MockLLMAPI) Name() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.BackendName
}

func (m *MockLLMAPI) Remote() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.IsRemote
}

// Generate serves the next scripted reply.
func (m *MockLLMAPI) Generate(ctx context.Context, messages []chat.ChatMessage, opts GenerateOptions) (string, error) {
	m.mu.Lock()
	m.GenerateCalls = append(m.GenerateCalls, GenerateCall{Messages: messages, Options: opts})
	var reply *MockReply
	if len(m.script) > 0 {
		reply = &m.script[0]
		m.script = m.script[1:]
	}
	fn := m.GenerateFunc
	name := m.BackendName
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", backendError(name, 0, err)
	}
	if reply != nil {
		if reply.Err != nil {
			return "", backendError(name, 0, reply.Err)
		}
		if reply.Text == "" {
			return "", backendError(name, 0, ErrEmptyResponse)
		}
		return reply.Text, nil
	}
	if fn != nil {
		return fn(ctx, messages, opts)
	}
	return "Mock response", nil
}

// Enqueue appends replies to the script.
func (m *MockLLMAPI) Enqueue(replies ...MockReply) *MockLLMAPI {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, replies...)
	return m
}

// SetGenerateError makes every unscripted call fail with err.
func (m *MockLLMAPI) SetGenerateError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := m.BackendName
	m.GenerateFunc = func(ctx context.Context, messages []chat.ChatMessage, opts GenerateOptions) (string, error) {
		return "", backendError(name, 0, err)
	}
}

// Calls returns a copy of the recorded calls.
func (m *MockLLMAPI) Calls() []GenerateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]GenerateCall, len(m.GenerateCalls))
	copy(out, m.GenerateCalls)
	return out
}

// Reset clears the script and call tracking.
func (m *MockLLMAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = nil
	m.GenerateCalls = make([]GenerateCall, 0)
}
