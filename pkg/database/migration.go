package database

import (
	"gorm.io/gorm"

	"github.com/draftdesk/identity/internal/model"
)

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
	)
}
