package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/jwebster45206/tale-engine/pkg/scenario"
	"github.com/jwebster45206/tale-engine/pkg/state"
)

// MockStorage is an in-memory Snapshotter and ScenarioLibrary for testing.
type MockStorage struct {
	mu        sync.RWMutex
	snapshot  *state.WorldState
	crashes   map[uuid.UUID]*state.WorldState
	scenarios map[string]*scenario.Scenario
	pingError error
	saveError error

	SaveCalls int
}

// Ensure MockStorage implements both interfaces
var (
	_ Snapshotter     = (*MockStorage)(nil)
	_ ScenarioLibrary = (*MockStorage)(nil)
)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		crashes:   make(map[uuid.UUID]*state.WorldState),
		scenarios: make(map[string]*scenario.Scenario),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError configures the mock to fail on Save
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// AddScenario registers a scenario under filename
func (m *MockStorage) AddScenario(filename string, s *scenario.Scenario) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scenarios[filename] = s
}

// Crashes returns the forensic snapshots written so far
func (m *MockStorage) Crashes() map[uuid.UUID]*state.WorldState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[uuid.UUID]*state.WorldState, len(m.crashes))
	for k, v := range m.crashes {
		out[k] = v.Clone()
	}
	return out
}

func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MockStorage) Close() error {
	return nil
}

func (m *MockStorage) Save(ctx context.Context, ws *state.WorldState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	if m.saveError != nil {
		return m.saveError
	}
	if ws == nil {
		return errors.New("world state is nil")
	}
	m.snapshot = ws.Clone()
	return nil
}

func (m *MockStorage) Load(ctx context.Context) (*state.WorldState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot.Clone(), nil
}

func (m *MockStorage) Delete(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = nil
	return nil
}

func (m *MockStorage) SaveCrash(ctx context.Context, id uuid.UUID, ws *state.WorldState) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.crashes[id] = ws.Clone()
	return "mock:crash:" + id.String(), nil
}

func (m *MockStorage) ListScenarios(ctx context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.scenarios))
	for filename, s := range m.scenarios {
		out[s.Name] = filename
	}
	return out, nil
}

func (m *MockStorage) GetScenario(ctx context.Context, filename string) (*scenario.Scenario, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.scenarios[filename]
	if !ok {
		return nil, errors.New("scenario not found: " + filename)
	}
	cp := *s
	return &cp, nil
}
