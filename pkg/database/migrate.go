package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MigrateDB runs gorm auto-migration for the given models. Both services
// call it on boot so schema changes ship with the binary that needs them.
func MigrateDB(db *gorm.DB, log *zap.Logger, models ...interface{}) error {
	if err := db.AutoMigrate(models...); err != nil {
		return err
	}
	log.Info("database migrated", zap.Int("models", len(models)))
	return nil
}
