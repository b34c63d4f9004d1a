package agents

import (
	"context"
	"sort"
	"sync"

	"factotum/internal/logging"
	"factotum/pkg/schema"
)

// Registry holds the agents available for dispatch. Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]Agent
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]Agent)}
}

// Register adds an agent. Registering the same name twice is a conflict.
func (r *Registry) Register(a Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := a.Name()
	if _, exists := r.agents[name]; exists {
		return schema.NewErrorf(schema.ErrCodeConflict, "agent %q already registered", name)
	}
	r.agents[name] = a
	return nil
}

// Get returns the agent registered under name.
func (r *Registry) Get(name string) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[name]
	return a, ok
}

// List returns the registered agents sorted by name.
func (r *Registry) List() []Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sort.Strings(names)

	list := make([]Agent, 0, len(names))
	for _, name := range names {
		list = append(list, r.agents[name])
	}
	return list
}

// Dispatch invokes the named agent with the given parameters, tagging the
// context so log records carry the agent name.
func (r *Registry) Dispatch(ctx context.Context, name string, params map[string]any) (string, error) {
	agent, ok := r.Get(name)
	if !ok {
		return "", schema.NewErrorf(schema.ErrCodeNotFound, "unknown agent: %s", name)
	}
	return agent.Perform(logging.WithAgent(ctx, name), params)
}
