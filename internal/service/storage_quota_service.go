package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"blobquota/internal/domain"
	"blobquota/internal/metrics"
)

var ErrInvalidBlobSize = errors.New("blob size must not be negative")

// QuotaProvider returns the effective storage quota of a user.
type QuotaProvider interface {
	GetQuotaBytes(ctx context.Context, userID uuid.UUID) (int64, error)
}

// UsageProvider returns the bytes currently stored by a workspace.
type UsageProvider interface {
	GetUsedBytes(ctx context.Context, workspaceID uuid.UUID) (int64, error)
}

// StorageQuotaService decides whether a blob fits in a workspace. It holds no
// state of its own; concurrent checks against the same workspace can race
// with the write path, which must re-validate on commit.
type StorageQuotaService struct {
	quotas  QuotaProvider
	usage   UsageProvider
	metrics *metrics.Metrics
	log     logrus.FieldLogger
}

func NewStorageQuotaService(quotas QuotaProvider, usage UsageProvider, m *metrics.Metrics, log logrus.FieldLogger) *StorageQuotaService {
	return &StorageQuotaService{
		quotas:  quotas,
		usage:   usage,
		metrics: m,
		log:     log,
	}
}

// CheckBlobSize admits the blob iff the workspace's usage plus size stays
// within the user's quota. Reaching the quota exactly is allowed. A rejection
// is a normal result, not an error.
func (s *StorageQuotaService) CheckBlobSize(ctx context.Context, id domain.Identity, size int64) (domain.AdmissionDecision, error) {
	if size < 0 {
		return domain.AdmissionDecision{}, ErrInvalidBlobSize
	}
	start := time.Now()

	quota, used, err := s.lookup(ctx, id)
	if err != nil {
		return domain.AdmissionDecision{}, err
	}

	decision := domain.Rejected()
	if used <= quota && size <= quota-used {
		decision = domain.Admitted(quota - used - size)
	}

	if s.metrics != nil {
		s.metrics.ObserveDecision(decision.Admitted, time.Since(start).Seconds())
	}
	s.log.WithFields(logrus.Fields{
		"user_id":      id.UserID,
		"workspace_id": id.WorkspaceID,
		"size":         size,
		"quota":        quota,
		"used":         used,
		"admitted":     decision.Admitted,
	}).Debug("blob size checked")

	return decision, nil
}

func (s *StorageQuotaService) GetQuotaInfo(ctx context.Context, id domain.Identity) (*domain.QuotaInfo, error) {
	quota, used, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	available := quota - used
	if available < 0 {
		available = 0
	}

	info := &domain.QuotaInfo{
		WorkspaceID:    id.WorkspaceID,
		TotalSpace:     quota,
		UsedSpace:      used,
		AvailableSpace: available,
	}
	if quota > 0 {
		info.UsagePercent = float64(used) / float64(quota) * 100
	}

	return info, nil
}

func (s *StorageQuotaService) lookup(ctx context.Context, id domain.Identity) (quota, used int64, err error) {
	quota, err = s.quotas.GetQuotaBytes(ctx, id.UserID)
	if err != nil {
		s.collaboratorFailed("quota", id, err)
		return 0, 0, fmt.Errorf("failed to get quota: %w", err)
	}

	used, err = s.usage.GetUsedBytes(ctx, id.WorkspaceID)
	if err != nil {
		s.collaboratorFailed("usage", id, err)
		return 0, 0, fmt.Errorf("failed to get usage: %w", err)
	}

	return quota, used, nil
}

func (s *StorageQuotaService) collaboratorFailed(name string, id domain.Identity, err error) {
	if s.metrics != nil {
		s.metrics.CollaboratorError(name)
	}
	s.log.WithError(err).WithFields(logrus.Fields{
		"collaborator": name,
		"user_id":      id.UserID,
		"workspace_id": id.WorkspaceID,
	}).Error("quota lookup failed")
}
