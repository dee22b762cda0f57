package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/zulandar/condobot/internal/models"
)

// AllModels returns every GORM model the bot persists.
func AllModels() []interface{} {
	return []interface{}{
		&models.LaundryReservation{},
		&models.LaundryQueueEntry{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
