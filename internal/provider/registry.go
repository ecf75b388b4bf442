package provider

import "sync"

// Registry holds all registered signal sources keyed by name.
type Registry struct {
	mu      sync.RWMutex
	sources map[ProviderName]SignalSource
}

// NewRegistry creates an empty source registry.
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[ProviderName]SignalSource),
	}
}

// Register adds a source to the registry, replacing any previous source with
// the same name.
func (r *Registry) Register(s SignalSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[s.Name()] = s
}

// Get returns a source by name, or nil if not registered.
func (r *Registry) Get(name ProviderName) SignalSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sources[name]
}

// All returns all registered sources in the fixed query order.
func (r *Registry) All() []SignalSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []SignalSource
	for _, name := range AllProviderNames() {
		if s, ok := r.sources[name]; ok {
			result = append(result, s)
		}
	}
	return result
}
