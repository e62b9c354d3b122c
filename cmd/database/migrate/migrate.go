package migration

import (
	"fmt"

	"greenbite/entities"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&entities.User{}); err != nil {
		return fmt.Errorf("error migrating user database: %w", err)
	}

	if err := db.AutoMigrate(&entities.FoodItem{}); err != nil {
		return fmt.Errorf("error migrating food item database: %w", err)
	}

	// alert sweeps scan alert-enabled rows across all users
	if err := db.Exec(
		"CREATE INDEX IF NOT EXISTS idx_food_items_alert ON food_items (alert_enabled) WHERE alert_enabled",
	).Error; err != nil {
		return fmt.Errorf("error creating alert index: %w", err)
	}

	log.Info("Database migration complete")
	return nil
}
