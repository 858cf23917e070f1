package llm

import (
	"context"
	"sync"
)

// MockCompleter is a configurable mock for testing AI-assisted paths.
// Set CompleteFunc to control behavior in tests. Safe for concurrent use.
type MockCompleter struct {
	// CompleteFunc is called when Complete is invoked.
	// If nil, returns an empty response and nil error.
	CompleteFunc func(ctx context.Context, prompt string) (string, error)

	// ModelName is returned by Model. Defaults to "mock-model".
	ModelName string

	mu      sync.Mutex
	calls   int
	prompts []string
}

// NewMockCompleter creates a mock that always returns response.
func NewMockCompleter(response string) *MockCompleter {
	return &MockCompleter{
		CompleteFunc: func(context.Context, string) (string, error) {
			return response, nil
		},
	}
}

// NewFailingCompleter creates a mock that always fails with err.
func NewFailingCompleter(err error) *MockCompleter {
	return &MockCompleter{
		CompleteFunc: func(context.Context, string) (string, error) {
			return "", err
		},
	}
}

// NewBlockingCompleter creates a mock that waits for ctx to end, simulating
// a provider that never answers.
func NewBlockingCompleter() *MockCompleter {
	return &MockCompleter{
		CompleteFunc: func(ctx context.Context, _ string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
}

// Complete implements Completer.
func (m *MockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.prompts = append(m.prompts, prompt)
	fn := m.CompleteFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, prompt)
	}
	return "", nil
}

// Model implements Completer.
func (m *MockCompleter) Model() string {
	if m.ModelName == "" {
		return "mock-model"
	}
	return m.ModelName
}

// Calls returns how many times Complete was invoked.
func (m *MockCompleter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Prompts returns a copy of every prompt received, in order.
func (m *MockCompleter) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}

// Reset clears call tracking.
func (m *MockCompleter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = 0
	m.prompts = nil
}
