package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/MrWong99/revisa/pkg/provider/llm"
)

// ErrProviderNotRegistered is returned by [Registry.CreateLLM] for a provider
// name nobody registered.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// LLMFactory builds a language model provider from its config entry.
type LLMFactory func(ProviderEntry) (llm.Provider, error)

// Registry resolves the provider names used in config files. Names are
// case-insensitive. A Registry is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]LLMFactory
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]LLMFactory)}
}

// RegisterLLM binds name to factory, replacing any earlier binding.
func (r *Registry) RegisterLLM(name string, factory LLMFactory) {
	r.mu.Lock()
	r.factories[strings.ToLower(name)] = factory
	r.mu.Unlock()
}

// CreateLLM builds the provider named by entry.Name.
func (r *Registry) CreateLLM(entry ProviderEntry) (llm.Provider, error) {
	r.mu.RLock()
	factory, ok := r.factories[strings.ToLower(entry.Name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrProviderNotRegistered,
			entry.Name, strings.Join(r.LLMNames(), ", "))
	}
	p, err := factory(entry)
	if err != nil {
		return nil, fmt.Errorf("config: provider %s/%s: %w", entry.Name, entry.Model, err)
	}
	if p == nil {
		return nil, fmt.Errorf("config: provider %s/%s: factory returned nil", entry.Name, entry.Model)
	}
	return p, nil
}

// LLMNames lists the registered names, sorted.
func (r *Registry) LLMNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}
