package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FeatureType separates quota tiers from plain feature flags in the
// features table.
type FeatureType int

const (
	FeatureTypeFlag  FeatureType = 0
	FeatureTypeQuota FeatureType = 1
)

// FeatureConfigs is the JSONB payload of a quota feature.
type FeatureConfigs struct {
	Name          string `json:"name"`
	BlobLimit     int64  `json:"blobLimit"`
	StorageQuota  int64  `json:"storageQuota"`
	HistoryPeriod int64  `json:"historyPeriod"`
	MemberLimit   int    `json:"memberLimit"`
}

func (c FeatureConfigs) Value() (driver.Value, error) {
	return json.Marshal(c)
}

func (c *FeatureConfigs) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*c = FeatureConfigs{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported feature configs type %T", src)
	}
	return json.Unmarshal(data, c)
}

// Feature is a versioned tier definition. Rows are never updated in place;
// a change produces a new version.
type Feature struct {
	ID        int64          `json:"id" db:"id"`
	Feature   string         `json:"feature" db:"feature"`
	Version   int            `json:"version" db:"version"`
	Type      FeatureType    `json:"type" db:"type"`
	Configs   FeatureConfigs `json:"configs" db:"configs"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

// Entitlement grants a feature to a user for [ValidFrom, ValidUntil).
// A nil ValidUntil never expires.
type Entitlement struct {
	ID         int64          `json:"id" db:"id"`
	UserID     uuid.UUID      `json:"user_id" db:"user_id"`
	Feature    string         `json:"feature" db:"feature"`
	Version    int            `json:"version" db:"version"`
	Reason     string         `json:"reason" db:"reason"`
	Activated  bool           `json:"activated" db:"activated"`
	ValidFrom  time.Time      `json:"valid_from" db:"created_at"`
	ValidUntil *time.Time     `json:"valid_until,omitempty" db:"expired_at"`
	Configs    FeatureConfigs `json:"configs" db:"configs"`
}

func (e Entitlement) ActiveAt(now time.Time) bool {
	if !e.Activated || now.Before(e.ValidFrom) {
		return false
	}
	return e.ValidUntil == nil || now.Before(*e.ValidUntil)
}

// ResolveStorageQuota picks the most recently granted entitlement that is
// active at now and carries a positive storage quota. Without one the
// default tier applies.
func ResolveStorageQuota(entitlements []Entitlement, now time.Time, defaultBytes int64) int64 {
	var (
		best  *Entitlement
		quota = defaultBytes
	)
	for i := range entitlements {
		e := &entitlements[i]
		if !e.ActiveAt(now) || e.Configs.StorageQuota <= 0 {
			continue
		}
		if best == nil || e.ValidFrom.After(best.ValidFrom) {
			best = e
			quota = e.Configs.StorageQuota
		}
	}
	return quota
}
