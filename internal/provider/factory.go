package provider

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"funcagent/internal/config"
	"funcagent/internal/domain"
)

// ProviderConstructor creates a provider from a named config entry.
type ProviderConstructor func(name string, pc config.ProviderConfig, logger *slog.Logger) (domain.Provider, error)

// Factory creates and caches model providers from config.
type Factory struct {
	cfg          *config.Config
	logger       *slog.Logger
	constructors map[string]ProviderConstructor // keyed by provider type
	cache        map[string]domain.Provider
	mu           sync.RWMutex
}

// NewFactory creates a provider factory with the built-in constructors registered.
func NewFactory(cfg *config.Config, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Factory{
		cfg:          cfg,
		logger:       logger,
		constructors: make(map[string]ProviderConstructor),
		cache:        make(map[string]domain.Provider),
	}
	f.registerDefaults()
	return f
}

// RegisterConstructor adds (or replaces) a provider constructor by type.
func (f *Factory) RegisterConstructor(typ string, ctor ProviderConstructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructors[typ] = ctor
}

// registerDefaults registers all built-in provider constructors.
func (f *Factory) registerDefaults() {
	f.constructors["openai"] = func(name string, pc config.ProviderConfig, logger *slog.Logger) (domain.Provider, error) {
		if pc.APIKey == "" || config.IsUnresolved(pc.APIKey) {
			return nil, fmt.Errorf("provider %s: API key is not set (check apiKey or the referenced environment variable)", name)
		}
		return NewOpenAI(OpenAIConfig{
			Name:    name,
			APIKey:  pc.APIKey,
			APIBase: pc.APIBase,
			Model:   pc.DefaultModel,
			Timeout: time.Duration(pc.TimeoutSeconds) * time.Second,
			Logger:  logger,
		}), nil
	}

	f.constructors["ollama"] = func(name string, pc config.ProviderConfig, logger *slog.Logger) (domain.Provider, error) {
		return NewOllama(OllamaConfig{
			Name:         name,
			APIBase:      pc.APIBase,
			DefaultModel: pc.DefaultModel,
			Timeout:      time.Duration(pc.TimeoutSeconds) * time.Second,
			Logger:       logger,
		}), nil
	}
}

// Get returns the provider with the given name, or the default if name is empty.
// Created providers are cached so the same instance is reused across calls.
func (f *Factory) Get(name string) (domain.Provider, error) {
	if name == "" {
		name = f.cfg.General.DefaultProvider
	}

	// Fast path: read lock.
	f.mu.RLock()
	if cached, ok := f.cache[name]; ok {
		f.mu.RUnlock()
		return cached, nil
	}
	f.mu.RUnlock()

	// Slow path: write lock with double-check.
	f.mu.Lock()
	defer f.mu.Unlock()

	if cached, ok := f.cache[name]; ok {
		return cached, nil
	}

	pc, ok := f.cfg.Providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
	if !pc.Enabled {
		return nil, fmt.Errorf("provider %s is disabled", name)
	}

	ctor, found := f.constructors[pc.Type]
	if !found {
		return nil, fmt.Errorf("provider %s: no constructor registered for type %q", name, pc.Type)
	}
	p, err := ctor(name, pc, f.logger)
	if err != nil {
		return nil, err
	}

	f.cache[name] = p
	return p, nil
}

// Default returns the provider runs should use. With a failover chain
// configured, every usable member joins the chain in order; otherwise the
// default provider is returned.
func (f *Factory) Default() (domain.Provider, error) {
	chain := f.cfg.General.FailoverChain
	if len(chain) == 0 {
		return f.Get("")
	}

	var members []domain.Provider
	var lastErr error
	for _, name := range chain {
		p, err := f.Get(name)
		if err != nil {
			f.logger.Warn("skipping provider in failover chain", "provider", name, "error", err)
			lastErr = err
			continue
		}
		members = append(members, p)
	}
	switch len(members) {
	case 0:
		return nil, fmt.Errorf("no usable provider in failover chain: %w", lastErr)
	case 1:
		return members[0], nil
	}
	return NewFailoverProvider(members, f.logger), nil
}
