package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blobquota/internal/domain"
	"blobquota/internal/metrics"
)

type fakeEntitlements struct {
	list []domain.Entitlement
	err  error
}

func (f *fakeEntitlements) ListQuotaEntitlements(context.Context, uuid.UUID) ([]domain.Entitlement, error) {
	return f.list, f.err
}

type fakeFeatures struct {
	feature *domain.Feature
	err     error
}

func (f *fakeFeatures) GetVersion(context.Context, string, int) (*domain.Feature, error) {
	return f.feature, f.err
}

var freeTier = DefaultTier{Feature: "free_plan_v1", Version: 1, FallbackBytes: 10 * gib}

func fixedNow(p *EntitlementQuotaProvider, now time.Time) {
	p.now = func() time.Time { return now }
}

func TestEntitlementQuotaProvider_ActiveEntitlement(t *testing.T) {
	now := time.Now()
	ents := &fakeEntitlements{list: []domain.Entitlement{{
		Feature:   "pro_plan_v1",
		Activated: true,
		ValidFrom: now.Add(-time.Hour),
		Configs:   domain.FeatureConfigs{StorageQuota: 100 * gib},
	}}}
	p := NewEntitlementQuotaProvider(ents, &fakeFeatures{err: sql.ErrNoRows}, freeTier)
	fixedNow(p, now)

	quota, err := p.GetQuotaBytes(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 100*gib, quota)
}

func TestEntitlementQuotaProvider_DefaultFromFeature(t *testing.T) {
	features := &fakeFeatures{feature: &domain.Feature{
		Feature: "free_plan_v1",
		Version: 1,
		Type:    domain.FeatureTypeQuota,
		Configs: domain.FeatureConfigs{Name: "Free", StorageQuota: 1 * gib},
	}}
	p := NewEntitlementQuotaProvider(&fakeEntitlements{}, features, freeTier)

	quota, err := p.GetQuotaBytes(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 1*gib, quota)
}

func TestEntitlementQuotaProvider_ExpiredUsesFallback(t *testing.T) {
	now := time.Now()
	expired := now.Add(-time.Second)
	ents := &fakeEntitlements{list: []domain.Entitlement{{
		Activated:  true,
		ValidFrom:  now.Add(-time.Hour),
		ValidUntil: &expired,
		Configs:    domain.FeatureConfigs{StorageQuota: 100 * gib},
	}}}
	p := NewEntitlementQuotaProvider(ents, &fakeFeatures{err: fmt.Errorf("wrapped: %w", sql.ErrNoRows)}, freeTier)
	fixedNow(p, now)

	quota, err := p.GetQuotaBytes(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 10*gib, quota)
}

func TestEntitlementQuotaProvider_NoFeatureLookup(t *testing.T) {
	p := NewEntitlementQuotaProvider(&fakeEntitlements{}, nil, DefaultTier{FallbackBytes: 5 * gib})

	quota, err := p.GetQuotaBytes(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 5*gib, quota)
}

func TestEntitlementQuotaProvider_Errors(t *testing.T) {
	listErr := errors.New("list failed")
	p := NewEntitlementQuotaProvider(&fakeEntitlements{err: listErr}, nil, freeTier)
	_, err := p.GetQuotaBytes(context.Background(), uuid.New())
	assert.ErrorIs(t, err, listErr)

	featureErr := errors.New("feature failed")
	p = NewEntitlementQuotaProvider(&fakeEntitlements{}, &fakeFeatures{err: featureErr}, freeTier)
	_, err = p.GetQuotaBytes(context.Background(), uuid.New())
	assert.ErrorIs(t, err, featureErr)

	p = NewEntitlementQuotaProvider(&fakeEntitlements{}, &fakeFeatures{feature: &domain.Feature{Feature: "broken"}}, freeTier)
	_, err = p.GetQuotaBytes(context.Background(), uuid.New())
	assert.Error(t, err)
}

type fakeCache struct {
	values map[uuid.UUID]int64
	getErr error
	setErr error
}

func (f *fakeCache) Get(_ context.Context, userID uuid.UUID) (int64, bool, error) {
	if f.getErr != nil {
		return 0, false, f.getErr
	}
	v, ok := f.values[userID]
	return v, ok, nil
}

func (f *fakeCache) Set(_ context.Context, userID uuid.UUID, quota int64) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.values[userID] = quota
	return nil
}

func TestCachedQuotaProvider_MissThenHit(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	log, _ := test.NewNullLogger()
	next := &fakeQuota{bytes: 100 * gib}
	cache := &fakeCache{values: map[uuid.UUID]int64{}}
	p := NewCachedQuotaProvider(next, cache, m, log)
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		quota, err := p.GetQuotaBytes(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, 100*gib, quota)
	}

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QuotaCacheTotal.WithLabelValues("miss")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.QuotaCacheTotal.WithLabelValues("hit")))
}

func TestCachedQuotaProvider_CacheFailureFallsThrough(t *testing.T) {
	log, hook := test.NewNullLogger()
	next := &fakeQuota{bytes: gib}
	cache := &fakeCache{values: map[uuid.UUID]int64{}, getErr: errors.New("redis down"), setErr: errors.New("redis down")}
	p := NewCachedQuotaProvider(next, cache, nil, log)

	quota, err := p.GetQuotaBytes(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, gib, quota)
	assert.Len(t, hook.Entries, 2)
}

func TestCachedQuotaProvider_DoesNotCacheErrors(t *testing.T) {
	log, _ := test.NewNullLogger()
	next := &fakeQuota{err: errors.New("db down")}
	cache := &fakeCache{values: map[uuid.UUID]int64{}}
	p := NewCachedQuotaProvider(next, cache, nil, log)

	_, err := p.GetQuotaBytes(context.Background(), uuid.New())
	assert.Error(t, err)
	assert.Empty(t, cache.values)
}
