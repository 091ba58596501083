package breaker

import "sync"

// Registry holds one breaker per external service. It is constructed once at
// process start and passed into the pipeline by injection; breaker state is
// deliberately shared across concurrent jobs.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*Breaker
	opts     []Option
}

// NewRegistry constructs an empty registry. Options apply to every breaker it
// creates.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		breakers: make(map[string]*Breaker),
		opts:     opts,
	}
}

// Register returns the breaker for settings.Name, creating it on first use.
// Subsequent calls with the same name return the existing instance regardless
// of settings, so every job observes the same state.
func (r *Registry) Register(settings Settings) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.breakers[settings.Name]; ok {
		return existing
	}
	b := New(settings, r.opts...)
	r.breakers[settings.Name] = b
	return b
}

// Get returns the breaker registered under name, if any.
func (r *Registry) Get(name string) (*Breaker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[name]
	return b, ok
}

// Stats returns a snapshot for every registered breaker.
func (r *Registry) Stats() []Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Stats, 0, len(r.breakers))
	for _, b := range r.breakers {
		out = append(out, b.Stats())
	}
	return out
}
