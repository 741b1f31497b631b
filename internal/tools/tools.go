// Package tools defines the agent's pluggable tool surface: a Tool executes
// a textual query, and a Registry resolves tools by exact name at runtime.
package tools

import (
	"context"
	"sort"
	"sync"
)

// Tool is an external capability the agent can invoke by name.
type Tool interface {
	Name() string
	Execute(ctx context.Context, query string) (string, error)
}

// Registry maps tool names to implementations. Registering a name twice
// replaces the earlier tool.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns every registered tool sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
