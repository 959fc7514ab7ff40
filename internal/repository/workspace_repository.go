package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrWorkspaceNotFound = errors.New("workspace not found")

type WorkspaceRepository struct {
	db *sqlx.DB
}

func NewWorkspaceRepository(db *sqlx.DB) *WorkspaceRepository {
	return &WorkspaceRepository{db: db}
}

// GetOwnerID returns the user whose quota the workspace's blobs count against.
func (r *WorkspaceRepository) GetOwnerID(ctx context.Context, workspaceID uuid.UUID) (uuid.UUID, error) {
	var ownerID uuid.UUID
	err := r.db.GetContext(ctx, &ownerID,
		`SELECT owner_id FROM workspaces WHERE id = $1`,
		workspaceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, ErrWorkspaceNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to get workspace owner: %w", err)
	}

	return ownerID, nil
}
