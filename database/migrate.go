package database

import (
	"github.com/smartcommerce/notification-service/models"
	"github.com/smartcommerce/notification-service/utils"
	"gorm.io/gorm"
)

// Migrate creates/updates the notification schema at boot.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Notification{},
		&models.NotificationDelivery{},
		&models.NotificationTemplate{},
		&models.NotificationPreference{},
		&models.NotificationSubscription{},
	)
	if err != nil {
		return err
	}
	utils.InfoLogger.Println("AutoMigrate completed.")

	// Composite index backing the sweep queries; AutoMigrate only creates
	// the single-column indexes declared on the models.
	if !db.Migrator().HasIndex(&models.Notification{}, "idx_status_next_retry") {
		if err := db.Exec(
			"CREATE INDEX idx_status_next_retry ON notifications (status, next_retry_at)",
		).Error; err != nil {
			utils.ErrorLogger.Printf("Error creating sweep index: %v", err)
		}
	}
	return nil
}
