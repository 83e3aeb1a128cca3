package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Webhook struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProjectID uuid.UUID      `gorm:"type:uuid;not null;index"`
	URL       string         `gorm:"type:text;not null"`
	Secret    string         `gorm:"not null"` // signs the delivery body
	Events    datatypes.JSON // subscribed event kinds; empty = all
	Enabled   bool           `gorm:"default:true"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`

	Project Project `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}

type WebhookDelivery struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	WebhookID      uuid.UUID `gorm:"type:uuid;not null;index"`
	NotificationID uuid.UUID `gorm:"type:uuid;index"`
	Status         string    `gorm:"size:50;not null"` // delivered, retrying, failed, dlq
	Error          string    `gorm:"type:text"`
	Try            int       `gorm:"not null"`
	LatencyMs      int64     `gorm:"not null"`
	Payload        []byte
	CreatedAt      time.Time `gorm:"autoCreateTime"`

	Webhook Webhook `gorm:"foreignKey:WebhookID;constraint:OnDelete:CASCADE"`
}
