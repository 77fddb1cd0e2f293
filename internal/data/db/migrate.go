package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/clubops-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(types.Models()...)
}

// EnsureIndexes adds the constraints gorm tags cannot express.
// Partial indexes work on both Postgres and SQLite.
func EnsureIndexes(db *gorm.DB) error {
	// One open application per (subject, actor); decided ones may repeat.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_allocation_application_pending
		ON allocation_application (subject_id, actor_id)
		WHERE status = 'PENDING';
	`).Error; err != nil {
		return fmt.Errorf("create idx_allocation_application_pending: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_redemption_code_resource_valid
		ON redemption_code (resource_id, valid);
	`).Error; err != nil {
		return fmt.Errorf("create idx_redemption_code_resource_valid: %w", err)
	}
	return nil
}
