package service

import (
	"context"

	"github.com/google/uuid"
)

type BlobSizeSummer interface {
	SumWorkspaceBytes(ctx context.Context, workspaceID uuid.UUID) (int64, error)
}

// BlobUsageProvider reads usage from the blobs table.
type BlobUsageProvider struct {
	blobs BlobSizeSummer
}

func NewBlobUsageProvider(blobs BlobSizeSummer) *BlobUsageProvider {
	return &BlobUsageProvider{blobs: blobs}
}

func (p *BlobUsageProvider) GetUsedBytes(ctx context.Context, workspaceID uuid.UUID) (int64, error) {
	return p.blobs.SumWorkspaceBytes(ctx, workspaceID)
}

type PrefixSizer interface {
	PrefixSize(ctx context.Context, prefix string) (int64, error)
}

// ObjectStoreUsageProvider reads usage by listing the workspace's prefix in
// the object store.
type ObjectStoreUsageProvider struct {
	store PrefixSizer
}

func NewObjectStoreUsageProvider(store PrefixSizer) *ObjectStoreUsageProvider {
	return &ObjectStoreUsageProvider{store: store}
}

func (p *ObjectStoreUsageProvider) GetUsedBytes(ctx context.Context, workspaceID uuid.UUID) (int64, error) {
	return p.store.PrefixSize(ctx, workspaceID.String()+"/")
}
