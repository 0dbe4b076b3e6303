package migration

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/DigitumDei/WellnessWingman-sub001/entities"
)

func Migrate(db *gorm.DB) error {
	if db.Dialector.Name() == "postgres" {
		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
			return fmt.Errorf("create uuid-ossp extension: %w", err)
		}
	}

	if err := db.AutoMigrate(&entities.TrackedEntry{}); err != nil {
		return fmt.Errorf("migrate tracked entries: %w", err)
	}
	if err := db.AutoMigrate(&entities.EntryAnalysis{}); err != nil {
		return fmt.Errorf("migrate entry analyses: %w", err)
	}
	if err := db.AutoMigrate(&entities.PendingCapture{}); err != nil {
		return fmt.Errorf("migrate pending capture: %w", err)
	}
	return nil
}
