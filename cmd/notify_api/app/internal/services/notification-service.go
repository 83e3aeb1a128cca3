package services

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/enjoys-in/pinglet-sub002/metrics"
	"github.com/enjoys-in/pinglet-sub002/pkg/envelope"
	"github.com/enjoys-in/pinglet-sub002/pkg/keymat"
	"github.com/enjoys-in/pinglet-sub002/pkg/models"
	"github.com/enjoys-in/pinglet-sub002/pkg/repositories"
	"github.com/enjoys-in/pinglet-sub002/pkg/types"
)

// NotifyRequest is the authenticated dashboard/server call that pushes one
// notification toward a project's widgets.
type NotifyRequest struct {
	Tag      string                 `json:"tag"`
	Type     types.Severity         `json:"type"`
	Template string                 `json:"template,omitempty"`
	Body     types.NotificationBody `json:"body" binding:"required"`
}

type NotificationService struct {
	notifications *repositories.NotificationRepository
	templates     *repositories.TemplateRepository
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{
		notifications: repositories.NewNotificationRepository(db),
		templates:     repositories.NewTemplateRepository(db),
	}
}

// Prepare persists the notification record and seals its payload into the
// wire envelope the widget will decrypt. The key comes straight from the
// project's pinned bundle digest, so a stale or tampered widget build cannot
// decrypt what we return.
func (s *NotificationService) Prepare(project *models.Project, req *NotifyRequest) (uuid.UUID, *envelope.Wire, error) {
	if req.Body.Title == "" && req.Template == "" {
		return uuid.Nil, nil, errors.New("notification needs a title or a template")
	}

	bodyJSON, err := json.Marshal(req.Body)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("marshal body: %w", err)
	}

	record := &models.Notification{
		ProjectID: project.ID,
		Tag:       req.Tag,
		Type:      int(req.Type),
		Body:      datatypes.JSON(bodyJSON),
		Status:    "pending",
	}

	payload := types.PushPayload{
		ProjectID: project.ID,
		Tag:       req.Tag,
		Type:      req.Type,
		Body:      req.Body,
	}

	if req.Template != "" {
		tmpl, err := s.templates.GetByName(project.ID, req.Template)
		if err != nil {
			return uuid.Nil, nil, fmt.Errorf("template %q: %w", req.Template, err)
		}
		record.TemplateID = &tmpl.ID
		payload.TemplateTitle = tmpl.Title
		payload.TemplateDescription = tmpl.Description
		payload.TemplateMedia = tmpl.Media
	}

	if err := s.notifications.Create(record); err != nil {
		return uuid.Nil, nil, fmt.Errorf("persist notification: %w", err)
	}
	payload.ID = record.ID

	key, err := keymat.DeriveKey(project.BundleDigest)
	if err != nil {
		s.notifications.UpdateStatus(record.ID, "failed")
		return record.ID, nil, err
	}

	plaintext, err := json.Marshal(payload)
	if err != nil {
		s.notifications.UpdateStatus(record.ID, "failed")
		return record.ID, nil, fmt.Errorf("marshal payload: %w", err)
	}

	env, err := envelope.Seal(plaintext, key, project.BundleDigest)
	if err != nil {
		metrics.EnvelopesSealedTotal.WithLabelValues("failed").Inc()
		s.notifications.UpdateStatus(record.ID, "failed")
		return record.ID, nil, err
	}
	metrics.EnvelopesSealedTotal.WithLabelValues("sealed").Inc()

	if err := s.notifications.UpdateStatus(record.ID, "sent"); err != nil {
		return record.ID, nil, err
	}

	wire := env.MarshalWire()
	return record.ID, &wire, nil
}

func (s *NotificationService) Get(id uuid.UUID) (*models.Notification, error) {
	return s.notifications.GetByID(id)
}
