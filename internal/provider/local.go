package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/toolgate/toolgate/internal/domain"
)

// ExecutorFunc defines an in-process tool executor.
type ExecutorFunc func(ctx context.Context, args domain.Params) (json.RawMessage, error)

// LocalProvider serves tools registered in-process. It backs builtin tools
// and stands in for remote servers in tests.
type LocalProvider struct {
	name string

	mu          sync.RWMutex
	executors   map[string]ExecutorFunc
	descriptors map[string]domain.ToolDescriptor
}

// NewLocalProvider creates an empty local provider.
func NewLocalProvider(name string) *LocalProvider {
	return &LocalProvider{
		name:        name,
		executors:   make(map[string]ExecutorFunc),
		descriptors: make(map[string]domain.ToolDescriptor),
	}
}

// Name identifies the provider.
func (p *LocalProvider) Name() string {
	return p.name
}

// Register adds a tool with its executor.
func (p *LocalProvider) Register(desc domain.ToolDescriptor, exec ExecutorFunc) error {
	if desc.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if exec == nil {
		return fmt.Errorf("executor is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.executors[desc.Name]; exists {
		return fmt.Errorf("executor already registered for %s", desc.Name)
	}
	desc.Server = p.name
	p.executors[desc.Name] = exec
	p.descriptors[desc.Name] = desc
	return nil
}

// MustRegister adds a tool or panics.
func (p *LocalProvider) MustRegister(desc domain.ToolDescriptor, exec ExecutorFunc) {
	if err := p.Register(desc, exec); err != nil {
		panic(err)
	}
}

// ListTools enumerates registered tools.
func (p *LocalProvider) ListTools(ctx context.Context) ([]domain.ToolDescriptor, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]domain.ToolDescriptor, 0, len(p.descriptors))
	for _, d := range p.descriptors {
		out = append(out, d)
	}
	return out, nil
}

// CallTool runs the registered executor.
func (p *LocalProvider) CallTool(ctx context.Context, tool string, args domain.Params) (json.RawMessage, error) {
	p.mu.RLock()
	exec := p.executors[tool]
	p.mu.RUnlock()
	if exec == nil {
		return nil, domain.NewError(domain.ErrCodeToolNotAvailable, "no executor registered for %s", tool)
	}
	return exec(ctx, args)
}
