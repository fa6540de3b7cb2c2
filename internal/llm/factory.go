package llm

import (
	"sync"

	"github.com/promptforge/promptforge/internal/config"
)

// factory builds and caches Provider clients so that rate limiters are
// shared across calls to the same provider.
type factory struct {
	cfg *config.Config

	mu        sync.Mutex
	providers map[string]*Provider
}

// NewFactory creates a Factory backed by the given config.
func NewFactory(cfg *config.Config) Factory {
	return &factory{
		cfg:       cfg,
		providers: make(map[string]*Provider),
	}
}

// Provider returns the cached client for name, creating it on first use.
func (f *factory) Provider(name string) (Invoker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if p, ok := f.providers[name]; ok {
		return p, nil
	}

	p, err := NewProvider(name, f.cfg)
	if err != nil {
		return nil, err
	}
	f.providers[name] = p
	return p, nil
}
