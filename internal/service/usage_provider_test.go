package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSummer struct{ total int64 }

func (f fakeSummer) SumWorkspaceBytes(context.Context, uuid.UUID) (int64, error) {
	return f.total, nil
}

type fakeSizer struct{ prefix string }

func (f *fakeSizer) PrefixSize(_ context.Context, prefix string) (int64, error) {
	f.prefix = prefix
	return 4096, nil
}

func TestBlobUsageProvider(t *testing.T) {
	p := NewBlobUsageProvider(fakeSummer{total: 10 * kib})

	used, err := p.GetUsedBytes(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 10*kib, used)
}

func TestObjectStoreUsageProvider_UsesWorkspacePrefix(t *testing.T) {
	sizer := &fakeSizer{}
	p := NewObjectStoreUsageProvider(sizer)
	workspaceID := uuid.New()

	used, err := p.GetUsedBytes(context.Background(), workspaceID)
	require.NoError(t, err)
	assert.Equal(t, int64(4096), used)
	assert.Equal(t, workspaceID.String()+"/", sizer.prefix)
}
