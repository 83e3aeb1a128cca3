package repositories

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/enjoys-in/pinglet-sub002/pkg/models"
)

type AnalyticsRepository struct {
	db *gorm.DB
}

func NewAnalyticsRepository(db *gorm.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// MarkProcessed records an event's dedup key. Returns false when the key was
// already present, meaning a redelivery that must not be counted again.
func (r *AnalyticsRepository) MarkProcessed(key string) (bool, error) {
	res := r.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.ProcessedEvent{Key: key})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// IncrementRollup bumps the (project, day, kind) counter, creating the row on
// first sight.
func (r *AnalyticsRepository) IncrementRollup(projectID uuid.UUID, day, kind string) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}, {Name: "day"}, {Name: "kind"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("analytics_rollups.count + 1")}),
	}).Create(&models.AnalyticsRollup{
		ProjectID: projectID,
		Day:       day,
		Kind:      kind,
		Count:     1,
	}).Error
}

func (r *AnalyticsRepository) GetRollup(projectID uuid.UUID, day, kind string) (*models.AnalyticsRollup, error) {
	var rollup models.AnalyticsRollup
	err := r.db.Where("project_id = ? AND day = ? AND kind = ?", projectID, day, kind).
		First(&rollup).Error
	if err != nil {
		return nil, err
	}
	return &rollup, nil
}
