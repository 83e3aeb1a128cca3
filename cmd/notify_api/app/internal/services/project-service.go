package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/enjoys-in/pinglet-sub002/pkg/database"
	"github.com/enjoys-in/pinglet-sub002/pkg/keymat"
	"github.com/enjoys-in/pinglet-sub002/pkg/models"
	"github.com/enjoys-in/pinglet-sub002/pkg/repositories"
)

type ProjectService struct {
	repo  *repositories.ProjectRepository
	cache *redis.Client
}

func NewProjectService(db *gorm.DB, cache *redis.Client) *ProjectService {
	return &ProjectService{repo: repositories.NewProjectRepository(db), cache: cache}
}

// invalidate drops the validation gate's cached copy of the project. Without
// this, a rotated bundle digest keeps sealing envelopes under the old key for
// the cache's lifetime, and every one of them is discarded client-side.
func (s *ProjectService) invalidate(id uuid.UUID) {
	if s.cache == nil {
		return
	}
	s.cache.Del(context.Background(), database.ProjectCacheKey(id))
}

func (s *ProjectService) CreateProject(name, bundleDigest string) (*models.Project, error) {
	if name == "" {
		return nil, errors.New("project name is required")
	}
	// Reject digests that could never derive a key; better at creation time
	// than at first notify.
	if _, err := keymat.DeriveKey(bundleDigest); err != nil {
		return nil, err
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}

	project := &models.Project{
		Name:         name,
		Secret:       hex.EncodeToString(secret),
		BundleDigest: bundleDigest,
		MaxVisible:   3,
		StackOrder:   "newest_first",
		AutoDismiss:  true,
		DurationMs:   5000,
	}
	if err := s.repo.Create(project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *ProjectService) GetProject(id uuid.UUID) (*models.Project, error) {
	return s.repo.GetByID(id)
}

func (s *ProjectService) ListProjects() ([]models.Project, error) {
	return s.repo.List()
}

func (s *ProjectService) UpdateProject(project *models.Project) error {
	if project.ID == uuid.Nil {
		return errors.New("invalid project ID")
	}
	if err := s.repo.Update(project); err != nil {
		return err
	}
	s.invalidate(project.ID)
	return nil
}

// RotateBundle re-pins the widget bundle digest after a deploy. Envelopes
// sealed before rotation become undecryptable by design.
func (s *ProjectService) RotateBundle(id uuid.UUID, bundleDigest string) error {
	if _, err := keymat.DeriveKey(bundleDigest); err != nil {
		return err
	}
	project, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	project.BundleDigest = bundleDigest
	if err := s.repo.Update(project); err != nil {
		return err
	}
	s.invalidate(id)
	return nil
}

func (s *ProjectService) DeleteProject(id uuid.UUID) error {
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	s.invalidate(id)
	return nil
}
