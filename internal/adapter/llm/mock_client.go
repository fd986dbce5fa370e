package llm

import (
	"context"
	"sync"
)

// MockClient is a test double for Client.
type MockClient struct {
	mu       sync.Mutex
	Response string
	Err      error
	Calls    int
	Prompts  []string
}

// Complete returns the canned response or error.
func (m *MockClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}
