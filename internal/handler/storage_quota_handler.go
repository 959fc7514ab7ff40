package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"blobquota/internal/auth"
	"blobquota/internal/domain"
	"blobquota/internal/repository"
	"blobquota/internal/service"
)

type QuotaService interface {
	CheckBlobSize(ctx context.Context, id domain.Identity, size int64) (domain.AdmissionDecision, error)
	GetQuotaInfo(ctx context.Context, id domain.Identity) (*domain.QuotaInfo, error)
}

type WorkspaceOwners interface {
	GetOwnerID(ctx context.Context, workspaceID uuid.UUID) (uuid.UUID, error)
}

type StorageQuotaHandler struct {
	quotaService QuotaService
	workspaces   WorkspaceOwners
	log          logrus.FieldLogger
}

func NewStorageQuotaHandler(quotaService QuotaService, workspaces WorkspaceOwners, log logrus.FieldLogger) *StorageQuotaHandler {
	return &StorageQuotaHandler{
		quotaService: quotaService,
		workspaces:   workspaces,
		log:          log,
	}
}

// BlobSizeCheckResponse is {"admitted":false} on rejection and carries the
// remaining headroom after the blob otherwise.
type BlobSizeCheckResponse struct {
	Admitted bool   `json:"admitted"`
	Size     *int64 `json:"size,omitempty"`
}

// CheckBlobSize answers whether a blob of ?size= bytes still fits in the
// workspace owner's quota.
func (h *StorageQuotaHandler) CheckBlobSize(w http.ResponseWriter, r *http.Request) {
	size, err := strconv.ParseInt(r.URL.Query().Get("size"), 10, 64)
	if err != nil || size < 0 {
		http.Error(w, "Invalid size", http.StatusBadRequest)
		return
	}

	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	decision, err := h.quotaService.CheckBlobSize(r.Context(), id, size)
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	resp := BlobSizeCheckResponse{Admitted: decision.Admitted}
	if decision.Admitted {
		resp.Size = &decision.AvailableBytes
	}
	writeJSON(w, resp)
}

func (h *StorageQuotaHandler) GetQuotaInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	quotaInfo, err := h.quotaService.GetQuotaInfo(r.Context(), id)
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	writeJSON(w, quotaInfo)
}

// identity authenticates the caller and resolves the workspace in the path to
// its owner, whose quota the workspace's blobs are charged against.
// Workspace membership is not checked here: any authenticated caller can
// query any workspace, so the gateway must enforce access.
func (h *StorageQuotaHandler) identity(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	callerID, err := auth.VerifyUser(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return domain.Identity{}, false
	}

	workspaceID, err := uuid.Parse(chi.URLParam(r, "workspaceID"))
	if err != nil {
		http.Error(w, "Invalid workspace id", http.StatusBadRequest)
		return domain.Identity{}, false
	}

	ownerID, err := h.workspaces.GetOwnerID(r.Context(), workspaceID)
	if errors.Is(err, repository.ErrWorkspaceNotFound) {
		http.Error(w, "Workspace not found", http.StatusNotFound)
		return domain.Identity{}, false
	} else if err != nil {
		h.internalError(w, r, err)
		return domain.Identity{}, false
	}

	h.log.WithFields(logrus.Fields{
		"caller_id":    callerID,
		"workspace_id": workspaceID,
		"owner_id":     ownerID,
	}).Debug("workspace quota requested")

	return domain.Identity{UserID: ownerID, WorkspaceID: workspaceID}, true
}

func (h *StorageQuotaHandler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, service.ErrInvalidBlobSize) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
