package models

import "time"

const (
	EntityApplication   = "application"
	EntityTNA           = "tna"
	EntityChecklist     = "checklist"
	EntityChecklistItem = "checklist_item"
	EntityMeeting       = "rtec_meeting"
	EntityUser          = "user"
)

// StatusHistory tracks every status change, written in the same
// transaction as the change itself.
type StatusHistory struct {
	ID         uint      `gorm:"primaryKey;column:id" json:"id"`
	EntityType string    `gorm:"column:entity_type;size:32;index:idx_history_entity" json:"entityType"`
	EntityID   uint      `gorm:"column:entity_id;index:idx_history_entity" json:"entityId"`
	FromStatus string    `gorm:"column:from_status;size:40" json:"fromStatus"`
	ToStatus   string    `gorm:"column:to_status;size:40" json:"toStatus"`
	Action     string    `gorm:"column:action;size:64" json:"action"`
	ActorID    uint      `gorm:"column:actor_id" json:"actorId"`
	Comments   string    `gorm:"column:comments;type:text" json:"comments,omitempty"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"createdAt"`
}

func (StatusHistory) TableName() string { return "status_history" }
