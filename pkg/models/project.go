package models

import (
	"time"

	"github.com/google/uuid"
)

type Project struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string    `gorm:"size:100;not null"`
	Secret       string    `gorm:"not null"` // HMAC key for request signatures
	BundleDigest string    `gorm:"size:120;not null"` // pinned widget bundle integrity digest, "sha384-..."

	MaxVisible  int    `gorm:"default:3"`
	StackOrder  string `gorm:"size:20;default:'newest_first'"`
	AutoDismiss bool   `gorm:"default:true"`
	DurationMs  int    `gorm:"default:5000"`
	MaxBacklog  int    `gorm:"default:0"` // 0 = queue without bound

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	Webhooks []Webhook `gorm:"constraint:OnDelete:CASCADE"`
}
