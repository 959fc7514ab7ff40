package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type BlobRepository struct {
	db *sqlx.DB
}

func NewBlobRepository(db *sqlx.DB) *BlobRepository {
	return &BlobRepository{db: db}
}

// SumWorkspaceBytes returns the total size of the workspace's live blobs.
func (r *BlobRepository) SumWorkspaceBytes(ctx context.Context, workspaceID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.GetContext(ctx, &total,
		`SELECT COALESCE(SUM(size_bytes), 0) FROM blobs WHERE workspace_id = $1 AND deleted_at IS NULL`,
		workspaceID)
	if err != nil {
		return 0, fmt.Errorf("failed to sum blob sizes: %w", err)
	}

	return total, nil
}
