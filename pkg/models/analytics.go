package models

import (
	"time"

	"github.com/google/uuid"
)

type AnalyticsRollup struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_rollup"`
	Day       string    `gorm:"size:10;not null;uniqueIndex:idx_rollup"` // YYYY-MM-DD
	Kind      string    `gorm:"size:20;not null;uniqueIndex:idx_rollup"`
	Count     int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// ProcessedEvent records consumer-side dedup keys. Queue delivery is
// at-least-once; a key already present means the event was handled.
type ProcessedEvent struct {
	Key       string    `gorm:"primaryKey;size:120"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
