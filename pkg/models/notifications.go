package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Notification struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProjectID  uuid.UUID      `gorm:"type:uuid;not null;index"`
	TemplateID *uuid.UUID     `gorm:"type:uuid;index"`
	Tag        string         `gorm:"size:100;index:idx_project_tag"`
	Type       int            `gorm:"default:0"` // -1 urgent, 0 default, 1 informational
	Body       datatypes.JSON `gorm:"not null"`
	Status     string         `gorm:"size:50;not null;index"` // pending, sent, failed
	CreatedAt  time.Time      `gorm:"autoCreateTime"`

	Project Project `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}
