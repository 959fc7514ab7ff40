package domain

import "github.com/google/uuid"

// AdmissionDecision is the outcome of a blob size check. A rejected decision
// carries no payload; AvailableBytes is only meaningful when Admitted is true.
type AdmissionDecision struct {
	Admitted       bool  `json:"admitted"`
	AvailableBytes int64 `json:"available_bytes"`
}

func Rejected() AdmissionDecision {
	return AdmissionDecision{}
}

func Admitted(availableBytes int64) AdmissionDecision {
	return AdmissionDecision{Admitted: true, AvailableBytes: availableBytes}
}

type QuotaInfo struct {
	WorkspaceID    uuid.UUID `json:"workspace_id"`
	TotalSpace     int64     `json:"total_space"`
	UsedSpace      int64     `json:"used_space"`
	AvailableSpace int64     `json:"available_space"`
	UsagePercent   float64   `json:"usage_percent"`
}
