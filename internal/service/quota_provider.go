package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"blobquota/internal/domain"
	"blobquota/internal/metrics"
)

type EntitlementLister interface {
	ListQuotaEntitlements(ctx context.Context, userID uuid.UUID) ([]domain.Entitlement, error)
}

type FeatureGetter interface {
	GetVersion(ctx context.Context, name string, version int) (*domain.Feature, error)
}

// DefaultTier names the feature whose storage quota applies to users without
// an active entitlement. FallbackBytes is used when that feature row is
// missing.
type DefaultTier struct {
	Feature       string
	Version       int
	FallbackBytes int64
}

// EntitlementQuotaProvider resolves a user's quota from their entitlements.
type EntitlementQuotaProvider struct {
	entitlements EntitlementLister
	features     FeatureGetter
	tier         DefaultTier
	now          func() time.Time
}

func NewEntitlementQuotaProvider(entitlements EntitlementLister, features FeatureGetter, tier DefaultTier) *EntitlementQuotaProvider {
	return &EntitlementQuotaProvider{
		entitlements: entitlements,
		features:     features,
		tier:         tier,
		now:          time.Now,
	}
}

func (p *EntitlementQuotaProvider) GetQuotaBytes(ctx context.Context, userID uuid.UUID) (int64, error) {
	entitlements, err := p.entitlements.ListQuotaEntitlements(ctx, userID)
	if err != nil {
		return 0, err
	}

	defaultBytes, err := p.defaultQuota(ctx)
	if err != nil {
		return 0, err
	}

	return domain.ResolveStorageQuota(entitlements, p.now(), defaultBytes), nil
}

func (p *EntitlementQuotaProvider) defaultQuota(ctx context.Context) (int64, error) {
	if p.features == nil || p.tier.Feature == "" {
		return p.tier.FallbackBytes, nil
	}

	feature, err := p.features.GetVersion(ctx, p.tier.Feature, p.tier.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return p.tier.FallbackBytes, nil
	} else if err != nil {
		return 0, err
	}

	if feature.Configs.StorageQuota <= 0 {
		return 0, fmt.Errorf("feature %s@%d has no storage quota", feature.Feature, feature.Version)
	}
	return feature.Configs.StorageQuota, nil
}

type QuotaCacher interface {
	Get(ctx context.Context, userID uuid.UUID) (int64, bool, error)
	Set(ctx context.Context, userID uuid.UUID, quotaBytes int64) error
}

// CachedQuotaProvider fronts another QuotaProvider with a TTL cache. Cache
// failures only cost a lookup; they never fail the request.
type CachedQuotaProvider struct {
	next    QuotaProvider
	cache   QuotaCacher
	metrics *metrics.Metrics
	log     logrus.FieldLogger
}

func NewCachedQuotaProvider(next QuotaProvider, cache QuotaCacher, m *metrics.Metrics, log logrus.FieldLogger) *CachedQuotaProvider {
	return &CachedQuotaProvider{next: next, cache: cache, metrics: m, log: log}
}

func (p *CachedQuotaProvider) GetQuotaBytes(ctx context.Context, userID uuid.UUID) (int64, error) {
	quota, hit, err := p.cache.Get(ctx, userID)
	switch {
	case err != nil:
		p.log.WithError(err).WithField("user_id", userID).Warn("quota cache read failed")
		p.record("error")
	case hit:
		p.record("hit")
		return quota, nil
	default:
		p.record("miss")
	}

	quota, err = p.next.GetQuotaBytes(ctx, userID)
	if err != nil {
		return 0, err
	}

	if err := p.cache.Set(ctx, userID, quota); err != nil {
		p.log.WithError(err).WithField("user_id", userID).Warn("quota cache write failed")
	}
	return quota, nil
}

func (p *CachedQuotaProvider) record(result string) {
	if p.metrics != nil {
		p.metrics.CacheResult(result)
	}
}
