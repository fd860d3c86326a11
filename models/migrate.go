package models

import (
	"fmt"

	"gorm.io/gorm"
)

// All lists every persisted model, in dependency order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&PSTOOffice{},
		&Program{},
		&StoredFile{},
		&StoredFileBlob{},
		&Application{},
		&Enrollment{},
		&TNA{},
		&Checklist{},
		&ChecklistItem{},
		&RTECMeeting{},
		&RTECParticipant{},
		&Notification{},
		&StatusHistory{},
	}
}

// AutoMigrate creates or updates every table.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
