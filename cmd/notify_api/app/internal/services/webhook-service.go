package services

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/enjoys-in/pinglet-sub002/pkg/models"
	"github.com/enjoys-in/pinglet-sub002/pkg/repositories"
	"github.com/enjoys-in/pinglet-sub002/pkg/types"
)

type WebhookService struct {
	repo *repositories.WebhookRepository
}

func NewWebhookService(db *gorm.DB) *WebhookService {
	return &WebhookService{repo: repositories.NewWebhookRepository(db)}
}

func (s *WebhookService) CreateWebhook(projectID uuid.UUID, rawURL string, events []string) (*models.Webhook, error) {
	if projectID == uuid.Nil {
		return nil, errors.New("project ID is required")
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, errors.New("webhook URL must be http(s)")
	}
	for _, e := range events {
		if !types.EventKind(e).Valid() {
			return nil, errors.New("unknown event kind: " + e)
		}
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	filter, err := json.Marshal(events)
	if err != nil {
		return nil, err
	}

	hook := &models.Webhook{
		ProjectID: projectID,
		URL:       rawURL,
		Secret:    hex.EncodeToString(secret),
		Events:    filter,
		Enabled:   true,
	}
	if err := s.repo.Create(hook); err != nil {
		return nil, err
	}
	return hook, nil
}

func (s *WebhookService) GetWebhook(id uuid.UUID) (*models.Webhook, error) {
	return s.repo.GetByID(id)
}

func (s *WebhookService) DeleteWebhook(id uuid.UUID) error {
	return s.repo.Delete(id)
}
