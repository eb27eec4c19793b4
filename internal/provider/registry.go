package provider

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	apperrors "github.com/danielolaszy/glue-mcp/internal/errors"
)

// Factory builds a TicketService from configuration.
type Factory func(ctx context.Context, cfg Config) (TicketService, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a provider available under name. Adapters call it from init.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	name = strings.ToLower(name)
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("provider %q registered twice", name))
	}
	registry[name] = factory
}

// New builds the provider named by cfg.Provider.
func New(ctx context.Context, cfg Config) (TicketService, error) {
	registryMu.RLock()
	factory, ok := registry[strings.ToLower(cfg.Provider)]
	registryMu.RUnlock()

	if !ok {
		return nil, apperrors.Validation("provider",
			fmt.Sprintf("unsupported provider %q, available providers: %s", cfg.Provider, strings.Join(Names(), ", ")))
	}
	return factory(ctx, cfg)
}

// Names lists registered providers in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
