package repositories

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/enjoys-in/pinglet-sub002/pkg/models"
)

type WebhookRepository struct {
	db *gorm.DB
}

func NewWebhookRepository(db *gorm.DB) *WebhookRepository {
	return &WebhookRepository{db: db}
}

func (r *WebhookRepository) Create(w *models.Webhook) error {
	return r.db.Create(w).Error
}

func (r *WebhookRepository) GetByID(id uuid.UUID) (*models.Webhook, error) {
	var w models.Webhook
	if err := r.db.First(&w, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WebhookRepository) ListEnabled(projectID uuid.UUID) ([]models.Webhook, error) {
	var hooks []models.Webhook
	if err := r.db.Where("project_id = ? AND enabled = true", projectID).Find(&hooks).Error; err != nil {
		return nil, err
	}
	return hooks, nil
}

func (r *WebhookRepository) Delete(id uuid.UUID) error {
	return r.db.Delete(&models.Webhook{}, "id = ?", id).Error
}

func (r *WebhookRepository) CreateDelivery(d *models.WebhookDelivery) error {
	return r.db.Create(d).Error
}

func (r *WebhookRepository) ListDeliveries(webhookID uuid.UUID) ([]models.WebhookDelivery, error) {
	var deliveries []models.WebhookDelivery
	if err := r.db.Where("webhook_id = ?", webhookID).Find(&deliveries).Error; err != nil {
		return nil, err
	}
	return deliveries, nil
}
