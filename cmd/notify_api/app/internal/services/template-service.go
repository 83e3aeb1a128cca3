package services

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/enjoys-in/pinglet-sub002/pkg/models"
	"github.com/enjoys-in/pinglet-sub002/pkg/repositories"
)

type TemplateService struct {
	repo *repositories.TemplateRepository
}

func NewTemplateService(db *gorm.DB) *TemplateService {
	return &TemplateService{repo: repositories.NewTemplateRepository(db)}
}

func (s *TemplateService) CreateTemplate(template *models.Template) error {
	if template.ProjectID == uuid.Nil {
		return errors.New("project ID is required")
	}
	if template.Name == "" {
		return errors.New("template name is required")
	}
	if template.Title == "" {
		return errors.New("template title is required")
	}
	return s.repo.Create(template)
}

func (s *TemplateService) GetTemplateByID(id uuid.UUID) (*models.Template, error) {
	if id == uuid.Nil {
		return nil, errors.New("invalid template ID")
	}
	return s.repo.GetByID(id)
}

func (s *TemplateService) ListTemplates(projectID uuid.UUID) ([]models.Template, error) {
	if projectID == uuid.Nil {
		return nil, errors.New("project ID is required")
	}
	return s.repo.List(projectID)
}

func (s *TemplateService) UpdateTemplate(template *models.Template) error {
	if template.ID == uuid.Nil {
		return errors.New("invalid template ID")
	}
	return s.repo.Update(template)
}

func (s *TemplateService) DeleteTemplate(id uuid.UUID) error {
	if id == uuid.Nil {
		return errors.New("invalid template ID")
	}
	return s.repo.Delete(id)
}
