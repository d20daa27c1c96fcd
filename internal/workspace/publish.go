package workspace

import (
	"context"
	"errors"
	"fmt"

	"github.com/zjrosen/contentgraph/internal/command"
	"github.com/zjrosen/contentgraph/internal/contentstream"
	"github.com/zjrosen/contentgraph/internal/event"
	"github.com/zjrosen/contentgraph/internal/log"
	"github.com/zjrosen/contentgraph/internal/model"
)

// state is a workspace together with its base, read at one point in time.
type state struct {
	ws          *Workspace
	base        *Workspace
	info        contentstream.Info
	baseVersion int64
}

func (s *state) status() Status {
	if s.info.SourceVersion == s.baseVersion {
		return StatusUpToDate
	}
	return StatusOutdated
}

func (s *state) requireUpToDate() error {
	if s.status() != StatusUpToDate {
		return fmt.Errorf("%w: %s was forked at version %d of %s, which is now at %d",
			ErrBaseWorkspaceHasBeenModified, s.ws.Name(), s.info.SourceVersion, s.base.Name(), s.baseVersion)
	}
	return nil
}

func (m *Manager) loadByName(ctx context.Context, name model.WorkspaceName) (*state, error) {
	w, err := m.repo.Find(ctx, name)
	if err != nil {
		return nil, err
	}
	return m.load(ctx, w)
}

func (m *Manager) load(ctx context.Context, w *Workspace) (*state, error) {
	if w.IsRoot() {
		return nil, fmt.Errorf("%w: %s", ErrWorkspaceHasNoBase, w.Name())
	}
	base, err := m.repo.Find(ctx, w.BaseName())
	if err != nil {
		return nil, fmt.Errorf("failed to load base of %s: %w", w.Name(), err)
	}
	info, err := m.store.Info(ctx, w.StreamID())
	if err != nil {
		return nil, fmt.Errorf("failed to read content stream of %s: %w", w.Name(), err)
	}
	baseInfo, err := m.store.Info(ctx, base.StreamID())
	if err != nil {
		return nil, fmt.Errorf("failed to read content stream of %s: %w", base.Name(), err)
	}
	return &state{ws: w, base: base, info: info, baseVersion: baseInfo.Version}, nil
}

// diverged returns the records the workspace appended after its fork.
func (m *Manager) diverged(ctx context.Context, s *state) ([]contentstream.Record, error) {
	return m.store.Load(ctx, s.ws.StreamID(), s.info.SourceVersion)
}

// ===========================================================================
// Full publish and discard
// ===========================================================================

func (m *Manager) publish(ctx context.Context, name model.WorkspaceName, newStream contentstream.ID) (*Result, error) {
	s, err := m.loadByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := s.requireUpToDate(); err != nil {
		return nil, err
	}
	records, err := m.diverged(ctx, s)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return &Result{Workspace: s.ws}, nil
	}

	old := s.ws.StreamID()
	if err := m.store.Close(ctx, old); err != nil {
		return nil, fmt.Errorf("failed to close content stream: %w", err)
	}
	if err := m.appendToBase(ctx, s, records); err != nil {
		m.reopen(ctx, old)
		return nil, err
	}
	if err := m.rebindToFork(ctx, s.ws, s.base.StreamID(), newStream); err != nil {
		return nil, err
	}
	return &Result{Workspace: s.ws, PreviousStreamID: old, Events: len(records)}, nil
}

func (m *Manager) discard(ctx context.Context, c *command.DiscardWorkspaceCommand) (*Result, error) {
	s, err := m.loadByName(ctx, c.WorkspaceName)
	if err != nil {
		return nil, err
	}
	records, err := m.diverged(ctx, s)
	if err != nil {
		return nil, err
	}

	old := s.ws.StreamID()
	if err := m.store.Close(ctx, old); err != nil {
		return nil, fmt.Errorf("failed to close content stream: %w", err)
	}
	if err := m.rebindToFork(ctx, s.ws, s.base.StreamID(), c.NewContentStreamID); err != nil {
		m.reopen(ctx, old)
		return nil, err
	}
	return &Result{Workspace: s.ws, PreviousStreamID: old, Events: len(records)}, nil
}

// appendToBase copies records onto the base stream, expecting the base to be
// at the version the workspace was forked at.
func (m *Manager) appendToBase(ctx context.Context, s *state, records []contentstream.Record) error {
	events := make([]contentstream.Event, len(records))
	for i, r := range records {
		events[i] = r.Event
	}
	if _, err := m.store.Append(ctx, s.base.StreamID(), s.info.SourceVersion, events); err != nil {
		if errors.Is(err, contentstream.ErrConcurrencyConflict) {
			return fmt.Errorf("%w: %w", ErrBaseWorkspaceHasBeenModified, err)
		}
		return fmt.Errorf("failed to publish to %s: %w", s.base.Name(), err)
	}
	return nil
}

// rebindToFork forks source into target and points w at target.
func (m *Manager) rebindToFork(ctx context.Context, w *Workspace, source, target contentstream.ID) error {
	if _, err := m.store.Fork(ctx, source, target); err != nil {
		return fmt.Errorf("failed to fork content stream: %w", err)
	}
	return m.rebind(ctx, w, target)
}

func (m *Manager) rebind(ctx context.Context, w *Workspace, stream contentstream.ID) error {
	previous := w.StreamID()
	w.rebind(stream)
	if err := m.repo.Save(ctx, w); err != nil {
		w.rebind(previous)
		m.discardStreams(ctx, stream)
		return fmt.Errorf("failed to save workspace: %w", err)
	}
	log.Debug(log.CatWorkspace, "workspace rebound", "workspace", w.Name(), "from", previous, "to", stream)
	return nil
}

func (m *Manager) reopen(ctx context.Context, stream contentstream.ID) {
	if err := m.store.Reopen(ctx, stream); err != nil {
		log.ErrorErr(log.CatWorkspace, "failed to reopen content stream", err, "stream", stream)
	}
}

// ===========================================================================
// Replay-based operations
// ===========================================================================

// recordedCommand is a command extracted from the metadata of the first
// event it appended.
type recordedCommand struct {
	sequenceNumber int64
	cmd            command.NodeCommand
}

func recordedCommands(records []contentstream.Record) ([]recordedCommand, error) {
	var out []recordedCommand
	for _, r := range records {
		meta, err := event.MetadataOf(r)
		if err != nil {
			return nil, err
		}
		if meta.IsZero() {
			if len(out) == 0 {
				return nil, fmt.Errorf("event #%d was not recorded by a command", r.SequenceNumber)
			}
			continue
		}
		cmd, err := command.Decode(command.CommandType(meta.CommandType), meta.CommandPayload)
		if err != nil {
			return nil, fmt.Errorf("failed to restore command of event #%d: %w", r.SequenceNumber, err)
		}
		out = append(out, recordedCommand{sequenceNumber: r.SequenceNumber, cmd: cmd})
	}
	return out, nil
}

// replay applies commands to stream in order and returns the ones that fail.
func (m *Manager) replay(ctx context.Context, stream contentstream.ID, commands []recordedCommand) ([]CommandThatFailed, error) {
	var conflicts []CommandThatFailed
	for _, rc := range commands {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := m.nodes.Handle(ctx, stream, rc.cmd); err != nil {
			conflicts = append(conflicts, CommandThatFailed{SequenceNumber: rc.sequenceNumber, Command: rc.cmd, Err: err})
		}
	}
	return conflicts, nil
}

// replayOnFork forks source into target and replays commands onto it. On
// any failure target is removed.
func (m *Manager) replayOnFork(ctx context.Context, source, target contentstream.ID, commands []recordedCommand) ([]CommandThatFailed, error) {
	if _, err := m.store.Fork(ctx, source, target); err != nil {
		return nil, fmt.Errorf("failed to fork content stream: %w", err)
	}
	conflicts, err := m.replay(ctx, target, commands)
	if err != nil {
		m.discardStreams(ctx, target)
		return nil, err
	}
	return conflicts, nil
}

func (m *Manager) rebase(ctx context.Context, c *command.RebaseWorkspaceCommand) (*Result, error) {
	s, err := m.loadByName(ctx, c.WorkspaceName)
	if err != nil {
		return nil, err
	}
	records, err := m.diverged(ctx, s)
	if err != nil {
		return nil, err
	}
	commands, err := recordedCommands(records)
	if err != nil {
		return nil, err
	}

	old := s.ws.StreamID()
	if err := m.store.Close(ctx, old); err != nil {
		return nil, fmt.Errorf("failed to close content stream: %w", err)
	}
	conflicts, err := m.replayOnFork(ctx, s.base.StreamID(), c.RebasedContentStreamID, commands)
	if err != nil {
		m.reopen(ctx, old)
		return nil, err
	}
	if len(conflicts) > 0 && c.ErrorStrategy == command.RebaseFail {
		m.discardStreams(ctx, c.RebasedContentStreamID)
		m.reopen(ctx, old)
		return nil, &RebaseConflictError{Workspace: s.ws.Name(), Conflicts: conflicts}
	}
	if err := m.rebind(ctx, s.ws, c.RebasedContentStreamID); err != nil {
		m.reopen(ctx, old)
		return nil, err
	}
	for _, conflict := range conflicts {
		log.Warn(log.CatWorkspace, "command dropped during rebase",
			"workspace", s.ws.Name(), "sequence", conflict.SequenceNumber, "type", conflict.Command.Type(), "error", conflict.Err)
	}
	return &Result{
		Workspace:        s.ws,
		PreviousStreamID: old,
		Events:           len(records),
		Conflicts:        conflicts,
	}, nil
}

// partition splits commands into those changing one of the selected nodes
// and the rest, keeping their order.
func partition(commands []recordedCommand, selection []command.NodeIDToPublishOrDiscard) (matching, remaining []recordedCommand) {
	for _, rc := range commands {
		selected := false
		for _, n := range selection {
			if rc.cmd.MatchesNode(n) {
				selected = true
				break
			}
		}
		if selected {
			matching = append(matching, rc)
		} else {
			remaining = append(remaining, rc)
		}
	}
	return matching, remaining
}

// publishIndividualNodes publishes the commands changing the selected nodes.
// Both parts are replayed before the base is touched: the matching part on a
// fork of the base, the remaining part on a fork of the matching part, which
// equals the base after publishing.
func (m *Manager) publishIndividualNodes(ctx context.Context, c *command.PublishIndividualNodesFromWorkspaceCommand) (*Result, error) {
	s, err := m.loadByName(ctx, c.WorkspaceName)
	if err != nil {
		return nil, err
	}
	if err := s.requireUpToDate(); err != nil {
		return nil, err
	}
	records, err := m.diverged(ctx, s)
	if err != nil {
		return nil, err
	}
	commands, err := recordedCommands(records)
	if err != nil {
		return nil, err
	}
	matching, remaining := partition(commands, c.NodesToPublish)
	switch {
	case len(matching) == 0:
		return &Result{Workspace: s.ws}, nil
	case len(remaining) == 0:
		return m.publish(ctx, c.WorkspaceName, c.ContentStreamIDForRemainingPart)
	}

	old := s.ws.StreamID()
	if err := m.store.Close(ctx, old); err != nil {
		return nil, fmt.Errorf("failed to close content stream: %w", err)
	}
	rollback := func(streams ...contentstream.ID) {
		m.discardStreams(ctx, streams...)
		m.reopen(ctx, old)
	}

	matchingStream, remainingStream := c.ContentStreamIDForMatchingPart, c.ContentStreamIDForRemainingPart
	conflicts, err := m.replayOnFork(ctx, s.base.StreamID(), matchingStream, matching)
	if err != nil {
		m.reopen(ctx, old)
		return nil, err
	}
	if len(conflicts) > 0 {
		rollback(matchingStream)
		return nil, &RebaseConflictError{Workspace: s.ws.Name(), Conflicts: conflicts}
	}
	conflicts, err = m.replayOnFork(ctx, matchingStream, remainingStream, remaining)
	if err != nil {
		rollback(matchingStream)
		return nil, err
	}
	if len(conflicts) > 0 {
		rollback(matchingStream, remainingStream)
		return nil, &RebaseConflictError{Workspace: s.ws.Name(), Conflicts: conflicts}
	}

	published, err := m.store.Load(ctx, matchingStream, s.baseVersion)
	if err != nil {
		rollback(matchingStream, remainingStream)
		return nil, err
	}
	if err := m.appendToBase(ctx, s, published); err != nil {
		rollback(matchingStream, remainingStream)
		return nil, err
	}
	m.discardStreams(ctx, matchingStream)
	if err := m.rebind(ctx, s.ws, remainingStream); err != nil {
		return nil, err
	}
	return &Result{Workspace: s.ws, PreviousStreamID: old, Events: len(published)}, nil
}

// discardIndividualNodes drops the commands changing the selected nodes by
// replaying the others on a fresh fork of the base.
func (m *Manager) discardIndividualNodes(ctx context.Context, c *command.DiscardIndividualNodesFromWorkspaceCommand) (*Result, error) {
	s, err := m.loadByName(ctx, c.WorkspaceName)
	if err != nil {
		return nil, err
	}
	records, err := m.diverged(ctx, s)
	if err != nil {
		return nil, err
	}
	commands, err := recordedCommands(records)
	if err != nil {
		return nil, err
	}
	matching, remaining := partition(commands, c.NodesToDiscard)
	if len(matching) == 0 {
		return &Result{Workspace: s.ws}, nil
	}

	old := s.ws.StreamID()
	if err := m.store.Close(ctx, old); err != nil {
		return nil, fmt.Errorf("failed to close content stream: %w", err)
	}
	conflicts, err := m.replayOnFork(ctx, s.base.StreamID(), c.NewContentStreamID, remaining)
	if err != nil {
		m.reopen(ctx, old)
		return nil, err
	}
	if len(conflicts) > 0 {
		m.discardStreams(ctx, c.NewContentStreamID)
		m.reopen(ctx, old)
		return nil, &RebaseConflictError{Workspace: s.ws.Name(), Conflicts: conflicts}
	}
	if err := m.rebind(ctx, s.ws, c.NewContentStreamID); err != nil {
		m.reopen(ctx, old)
		return nil, err
	}
	info, err := m.store.Info(ctx, c.NewContentStreamID)
	if err != nil {
		return nil, err
	}
	return &Result{
		Workspace:        s.ws,
		PreviousStreamID: old,
		Events:           len(records) - int(info.Version-info.SourceVersion),
	}, nil
}
