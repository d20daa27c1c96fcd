package workspace

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/zjrosen/contentgraph/internal/command"
	"github.com/zjrosen/contentgraph/internal/contentstream"
	"github.com/zjrosen/contentgraph/internal/handler"
	"github.com/zjrosen/contentgraph/internal/log"
	"github.com/zjrosen/contentgraph/internal/model"
)

// NodeCommandHandler applies node commands to a content stream.
type NodeCommandHandler interface {
	Handle(ctx context.Context, stream contentstream.ID, cmd command.NodeCommand) (*handler.Result, error)
}

// Result describes a handled workspace command.
type Result struct {
	Workspace *Workspace
	// PreviousStreamID is the stream the workspace pointed at before the
	// command. Empty when the workspace was created or not rebound.
	PreviousStreamID contentstream.ID
	// Events counts the events created, published or discarded.
	Events int
	// Conflicts lists commands a forced rebase could not replay.
	Conflicts []CommandThatFailed
}

// Manager handles workspace commands. Workspace commands are serialised;
// node commands addressing a workspace's stream may run concurrently and are
// guarded by the store's version check.
type Manager struct {
	repo  Repository
	store contentstream.Store
	nodes NodeCommandHandler

	mu sync.Mutex
}

// NewManager creates a Manager.
func NewManager(repo Repository, store contentstream.Store, nodes NodeCommandHandler) *Manager {
	return &Manager{repo: repo, store: store, nodes: nodes}
}

// Handle validates and applies cmd.
func (m *Manager) Handle(ctx context.Context, cmd command.WorkspaceCommand) (*Result, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		res *Result
		err error
	)
	switch c := cmd.(type) {
	case *command.CreateRootWorkspaceCommand:
		res, err = m.createRoot(ctx, c)
	case *command.CreateWorkspaceCommand:
		res, err = m.create(ctx, c)
	case *command.PublishWorkspaceCommand:
		res, err = m.publish(ctx, c.WorkspaceName, c.NewContentStreamID)
	case *command.PublishIndividualNodesFromWorkspaceCommand:
		res, err = m.publishIndividualNodes(ctx, c)
	case *command.DiscardWorkspaceCommand:
		res, err = m.discard(ctx, c)
	case *command.DiscardIndividualNodesFromWorkspaceCommand:
		res, err = m.discardIndividualNodes(ctx, c)
	case *command.RebaseWorkspaceCommand:
		res, err = m.rebase(ctx, c)
	case *command.DeleteWorkspaceCommand:
		res, err = m.delete(ctx, c)
	case *command.RenameWorkspaceCommand:
		res, err = m.rename(ctx, c)
	default:
		return nil, fmt.Errorf("%w: %s", handler.ErrUnsupportedCommand, cmd.Type())
	}
	if err != nil {
		log.Debug(log.CatWorkspace, "workspace command rejected", "type", cmd.Type(), "workspace", cmd.Workspace(), "error", err)
		return nil, err
	}
	log.Info(log.CatWorkspace, "workspace command handled",
		"type", cmd.Type(),
		"workspace", cmd.Workspace(),
		"stream", res.Workspace.StreamID(),
		"events", res.Events,
		"conflicts", len(res.Conflicts),
	)
	return res, nil
}

// Find returns the workspace called name.
func (m *Manager) Find(ctx context.Context, name model.WorkspaceName) (*Workspace, error) {
	return m.repo.Find(ctx, name)
}

// List returns all workspaces ordered by name.
func (m *Manager) List(ctx context.Context) ([]*Workspace, error) {
	return m.repo.List(ctx)
}

// Status reports whether the base of the workspace advanced since its stream
// was forked. Root workspaces are always up to date.
func (m *Manager) Status(ctx context.Context, name model.WorkspaceName) (Status, error) {
	w, err := m.repo.Find(ctx, name)
	if err != nil {
		return "", err
	}
	if w.IsRoot() {
		return StatusUpToDate, nil
	}
	s, err := m.load(ctx, w)
	if err != nil {
		return "", err
	}
	return s.status(), nil
}

// Changes returns the records appended to the workspace since its stream was
// forked from the base. Root workspaces have no changes.
func (m *Manager) Changes(ctx context.Context, name model.WorkspaceName) ([]contentstream.Record, error) {
	w, err := m.repo.Find(ctx, name)
	if err != nil {
		return nil, err
	}
	if w.IsRoot() {
		return nil, nil
	}
	s, err := m.load(ctx, w)
	if err != nil {
		return nil, err
	}
	return m.store.Load(ctx, w.StreamID(), s.info.SourceVersion)
}

// Prune removes closed streams no workspace points at and returns their ids.
func (m *Manager) Prune(ctx context.Context) ([]contentstream.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	workspaces, err := m.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	bound := make(map[contentstream.ID]bool, len(workspaces))
	for _, w := range workspaces {
		bound[w.StreamID()] = true
	}
	streams, err := m.store.Streams(ctx)
	if err != nil {
		return nil, err
	}
	var removed []contentstream.ID
	for _, info := range streams {
		if info.Status != contentstream.StatusClosed || bound[info.ID] {
			continue
		}
		if err := m.store.Remove(ctx, info.ID); err != nil {
			return removed, fmt.Errorf("failed to remove stream %s: %w", info.ID, err)
		}
		removed = append(removed, info.ID)
	}
	log.Info(log.CatWorkspace, "pruned content streams", "count", len(removed))
	return removed, nil
}

func (m *Manager) requireAbsent(ctx context.Context, name model.WorkspaceName) error {
	_, err := m.repo.Find(ctx, name)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", ErrWorkspaceAlreadyExists, name)
	case errors.Is(err, ErrWorkspaceDoesNotExist):
		return nil
	default:
		return err
	}
}

func (m *Manager) createRoot(ctx context.Context, c *command.CreateRootWorkspaceCommand) (*Result, error) {
	if err := m.requireAbsent(ctx, c.WorkspaceName); err != nil {
		return nil, err
	}
	if err := m.store.Create(ctx, c.NewContentStreamID); err != nil {
		return nil, fmt.Errorf("failed to create content stream: %w", err)
	}
	w := NewWorkspace(c.WorkspaceName, "", c.Title, c.Description, c.NewContentStreamID)
	if err := m.repo.Save(ctx, w); err != nil {
		m.discardStreams(ctx, c.NewContentStreamID)
		return nil, fmt.Errorf("failed to save workspace: %w", err)
	}
	return &Result{Workspace: w}, nil
}

func (m *Manager) create(ctx context.Context, c *command.CreateWorkspaceCommand) (*Result, error) {
	if err := m.requireAbsent(ctx, c.WorkspaceName); err != nil {
		return nil, err
	}
	base, err := m.repo.Find(ctx, c.BaseWorkspaceName)
	if err != nil {
		if errors.Is(err, ErrWorkspaceDoesNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrBaseWorkspaceDoesNotExist, c.BaseWorkspaceName)
		}
		return nil, err
	}
	if _, err := m.store.Fork(ctx, base.StreamID(), c.NewContentStreamID); err != nil {
		return nil, fmt.Errorf("failed to fork content stream: %w", err)
	}
	w := NewWorkspace(c.WorkspaceName, base.Name(), c.Title, c.Description, c.NewContentStreamID)
	if err := m.repo.Save(ctx, w); err != nil {
		m.discardStreams(ctx, c.NewContentStreamID)
		return nil, fmt.Errorf("failed to save workspace: %w", err)
	}
	return &Result{Workspace: w}, nil
}

func (m *Manager) delete(ctx context.Context, c *command.DeleteWorkspaceCommand) (*Result, error) {
	w, err := m.repo.Find(ctx, c.WorkspaceName)
	if err != nil {
		return nil, err
	}
	all, err := m.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, other := range all {
		if other.BaseName() == w.Name() {
			return nil, fmt.Errorf("%w: %s is the base of %s", ErrWorkspaceHasDependents, w.Name(), other.Name())
		}
	}
	if err := m.repo.Delete(ctx, w.Name()); err != nil {
		return nil, err
	}
	if err := m.store.Remove(ctx, w.StreamID()); err != nil && !errors.Is(err, contentstream.ErrStreamNotFound) {
		return nil, fmt.Errorf("failed to remove content stream: %w", err)
	}
	return &Result{Workspace: w, PreviousStreamID: w.StreamID()}, nil
}

func (m *Manager) rename(ctx context.Context, c *command.RenameWorkspaceCommand) (*Result, error) {
	w, err := m.repo.Find(ctx, c.WorkspaceName)
	if err != nil {
		return nil, err
	}
	w.Rename(c.Title, c.Description)
	if err := m.repo.Save(ctx, w); err != nil {
		return nil, fmt.Errorf("failed to save workspace: %w", err)
	}
	return &Result{Workspace: w}, nil
}

// discardStreams removes temporary streams during a rollback. Failures are
// logged; the streams are closed or unbound and Prune can collect them.
func (m *Manager) discardStreams(ctx context.Context, ids ...contentstream.ID) {
	for _, id := range ids {
		if err := m.store.Remove(ctx, id); err != nil {
			log.ErrorErr(log.CatWorkspace, "failed to remove temporary stream", err, "stream", id)
		}
	}
}
