package nodetype

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/zjrosen/contentgraph/internal/log"
)

// Provider supplies raw node type configurations keyed by type name.
type Provider interface {
	NodeTypeConfigurations() (*Tree, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func() (*Tree, error)

// NodeTypeConfigurations implements Provider.
func (f ProviderFunc) NodeTypeConfigurations() (*Tree, error) { return f() }

// StaticProvider returns a provider serving a fixed configuration.
func StaticProvider(configs *Tree) Provider {
	return ProviderFunc(func() (*Tree, error) { return configs.Clone(), nil })
}

// Manager loads node types from a provider on first use and hands out
// immutable registry snapshots. Reload replaces the snapshot wholesale.
type Manager struct {
	provider Provider
	current  atomic.Pointer[Registry]
	mu       sync.Mutex
}

// NewManager creates a manager that defers loading until the first query.
func NewManager(provider Provider) *Manager {
	return &Manager{provider: provider}
}

// Registry returns the current snapshot, building it on first use.
func (m *Manager) Registry() (*Registry, error) {
	if r := m.current.Load(); r != nil {
		return r, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if r := m.current.Load(); r != nil {
		return r, nil
	}
	return m.build()
}

// Reload rebuilds the registry from the provider. On failure the previous
// snapshot stays active.
func (m *Manager) Reload() (*Registry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.build()
}

// Override replaces the snapshot with one built from configs.
func (m *Manager) Override(configs *Tree) error {
	r, err := NewRegistry(configs)
	if err != nil {
		return err
	}
	m.current.Store(r)
	return nil
}

func (m *Manager) build() (*Registry, error) {
	configs, err := m.provider.NodeTypeConfigurations()
	if err != nil {
		log.ErrorErr(log.CatRegistry, "Failed to load node type configuration", err)
		return nil, fmt.Errorf("loading node types: %w", err)
	}
	r, err := NewRegistry(configs)
	if err != nil {
		log.ErrorErr(log.CatRegistry, "Failed to build node type registry", err)
		return nil, err
	}
	m.current.Store(r)
	log.Info(log.CatRegistry, "Node type registry built", "types", len(r.types))
	return r, nil
}
