package domain

import "github.com/google/uuid"

// Identity ties a request to the user whose quota is charged and the
// workspace whose blobs are counted.
type Identity struct {
	UserID      uuid.UUID `json:"user_id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
}
