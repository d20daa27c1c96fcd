package workspace

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/zjrosen/contentgraph/internal/model"
)

// Repository persists workspaces.
// Implementations may use SQLite, in-memory storage, or other backends.
type Repository interface {
	// Save inserts or replaces the workspace with the same name.
	Save(ctx context.Context, w *Workspace) error

	// Find returns ErrWorkspaceDoesNotExist if no workspace has the name.
	Find(ctx context.Context, name model.WorkspaceName) (*Workspace, error)

	// List returns all workspaces ordered by name.
	List(ctx context.Context) ([]*Workspace, error)

	// Delete returns ErrWorkspaceDoesNotExist if no workspace has the name.
	Delete(ctx context.Context, name model.WorkspaceName) error
}

// MemoryRepository keeps workspaces in memory.
type MemoryRepository struct {
	mu         sync.RWMutex
	workspaces map[model.WorkspaceName]*Workspace
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{workspaces: make(map[model.WorkspaceName]*Workspace)}
}

func (r *MemoryRepository) Save(_ context.Context, w *Workspace) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workspaces[w.Name()] = w.clone()
	return nil
}

func (r *MemoryRepository) Find(_ context.Context, name model.WorkspaceName) (*Workspace, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.workspaces[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorkspaceDoesNotExist, name)
	}
	return w.clone(), nil
}

func (r *MemoryRepository) List(_ context.Context) ([]*Workspace, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Workspace, 0, len(r.workspaces))
	for _, w := range r.workspaces {
		out = append(out, w.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

func (r *MemoryRepository) Delete(_ context.Context, name model.WorkspaceName) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.workspaces[name]; !ok {
		return fmt.Errorf("%w: %s", ErrWorkspaceDoesNotExist, name)
	}
	delete(r.workspaces, name)
	return nil
}
