package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"blobquota/internal/domain"
)

type EntitlementRepository struct {
	db *sqlx.DB
}

func NewEntitlementRepository(db *sqlx.DB) *EntitlementRepository {
	return &EntitlementRepository{db: db}
}

// ListQuotaEntitlements returns every quota entitlement ever granted to the
// user, including expired and deactivated ones. Filtering by validity is left
// to domain.ResolveStorageQuota so it stays a pure function of "now".
func (r *EntitlementRepository) ListQuotaEntitlements(ctx context.Context, userID uuid.UUID) ([]domain.Entitlement, error) {
	query := `
        SELECT uf.id, uf.user_id, f.feature, f.version, uf.reason, uf.activated,
               uf.created_at, uf.expired_at, f.configs
        FROM user_features uf
        JOIN features f ON f.id = uf.feature_id
        WHERE uf.user_id = $1 AND f.type = $2
        ORDER BY uf.created_at DESC`

	var entitlements []domain.Entitlement
	err := r.db.SelectContext(ctx, &entitlements, query, userID, domain.FeatureTypeQuota)
	if err != nil {
		return nil, fmt.Errorf("failed to list entitlements: %w", err)
	}

	return entitlements, nil
}
