package sessions

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-sessions/core"
	"github.com/goliatone/go-sessions/providers/devkit"
)

// ProviderFactory builds a connection provider on demand so server
// binaries can select one by name.
type ProviderFactory func() (core.Provider, error)

type ProviderRegistry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

// NewProviderRegistry returns a registry preloaded with the devkit
// provider.
func NewProviderRegistry() *ProviderRegistry {
	registry := &ProviderRegistry{factories: map[string]ProviderFactory{}}
	_ = registry.Register("devkit", DevkitProvider)
	return registry
}

func (r *ProviderRegistry) Register(name string, factory ProviderFactory) error {
	if r == nil {
		return fmt.Errorf("sessions: provider registry is nil")
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return fmt.Errorf("sessions: provider name is required")
	}
	if factory == nil {
		return fmt.Errorf("sessions: provider factory for %q is required", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("sessions: provider %q is already registered", name)
	}
	r.factories[name] = factory
	return nil
}

func (r *ProviderRegistry) Resolve(name string) (core.Provider, error) {
	if r == nil {
		return nil, fmt.Errorf("sessions: provider registry is nil")
	}
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("sessions: unknown provider %q (known: %s)", name, strings.Join(r.Names(), ", "))
	}
	return factory()
}

func (r *ProviderRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DevkitProvider builds the scripted in-memory provider used for local
// development and tests.
func DevkitProvider() (core.Provider, error) {
	return devkit.NewFakeProvider(), nil
}
