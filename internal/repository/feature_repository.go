package repository

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jmoiron/sqlx"

	"blobquota/internal/domain"
)

const featureCacheSize = 128

type featureKey struct {
	name    string
	version int
}

// FeatureRepository reads tier definitions. Versions are immutable, so a hit
// in the LRU never goes stale.
type FeatureRepository struct {
	db    *sqlx.DB
	cache *lru.Cache[featureKey, *domain.Feature]
}

func NewFeatureRepository(db *sqlx.DB) (*FeatureRepository, error) {
	cache, err := lru.New[featureKey, *domain.Feature](featureCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create feature cache: %w", err)
	}
	return &FeatureRepository{db: db, cache: cache}, nil
}

func (r *FeatureRepository) GetVersion(ctx context.Context, name string, version int) (*domain.Feature, error) {
	key := featureKey{name: name, version: version}
	if f, ok := r.cache.Get(key); ok {
		return f, nil
	}

	var feature domain.Feature
	err := r.db.GetContext(ctx, &feature,
		`SELECT id, feature, version, type, configs, created_at FROM features WHERE feature = $1 AND version = $2`,
		name, version)
	if err != nil {
		return nil, fmt.Errorf("failed to get feature %s@%d: %w", name, version, err)
	}

	r.cache.Add(key, &feature)
	return &feature, nil
}
