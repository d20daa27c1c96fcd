package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/zjrosen/contentgraph/internal/model"
	"github.com/zjrosen/contentgraph/internal/workspace"
)

const workspaceColumns = `name, base_name, title, description, stream_id, created_at, updated_at`

// WorkspaceRepository implements workspace.Repository using SQLite.
type WorkspaceRepository struct {
	db *sql.DB
}

var _ workspace.Repository = (*WorkspaceRepository)(nil)

func newWorkspaceRepository(db *sql.DB) *WorkspaceRepository {
	return &WorkspaceRepository{db: db}
}

func scanWorkspace(scanner interface{ Scan(...any) error }) (*WorkspaceModel, error) {
	var m WorkspaceModel
	err := scanner.Scan(&m.Name, &m.BaseName, &m.Title, &m.Description, &m.StreamID, &m.CreatedAt, &m.UpdatedAt)
	return &m, err
}

// Save inserts the workspace or replaces the row with the same name.
func (r *WorkspaceRepository) Save(ctx context.Context, w *workspace.Workspace) error {
	m := toWorkspaceModel(w)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO workspaces (`+workspaceColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
			base_name = excluded.base_name, title = excluded.title, description = excluded.description,
			stream_id = excluded.stream_id, updated_at = excluded.updated_at`,
		m.Name, m.BaseName, m.Title, m.Description, m.StreamID, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save workspace: %w", err)
	}
	return nil
}

func (r *WorkspaceRepository) Find(ctx context.Context, name model.WorkspaceName) (*workspace.Workspace, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+workspaceColumns+` FROM workspaces WHERE name = ?`, string(name))
	m, err := scanWorkspace(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", workspace.ErrWorkspaceDoesNotExist, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find workspace: %w", err)
	}
	return m.toDomain(), nil
}

func (r *WorkspaceRepository) List(ctx context.Context) ([]*workspace.Workspace, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+workspaceColumns+` FROM workspaces ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*workspace.Workspace
	for rows.Next() {
		m, err := scanWorkspace(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workspace: %w", err)
		}
		out = append(out, m.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate workspaces: %w", err)
	}
	return out, nil
}

func (r *WorkspaceRepository) Delete(ctx context.Context, name model.WorkspaceName) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM workspaces WHERE name = ?`, string(name))
	if err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", workspace.ErrWorkspaceDoesNotExist, name)
	}
	return nil
}
