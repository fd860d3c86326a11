package models

import "time"

const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// Notification is an in-app message for one recipient. Only IsRead and
// ReadAt change after creation.
type Notification struct {
	ID            uint       `gorm:"primaryKey;column:id" json:"id"`
	RecipientID   uint       `gorm:"column:recipient_id;index" json:"recipientId"`
	RecipientRole string     `gorm:"column:recipient_role;size:32" json:"recipientRole"`
	Type          string     `gorm:"column:type;size:64;index" json:"type"`
	Title         string     `gorm:"column:title;size:255" json:"title"`
	Message       string     `gorm:"column:message;type:text" json:"message"`
	ApplicationID *uint      `gorm:"column:application_id;index" json:"applicationId,omitempty"`
	RelatedType   string     `gorm:"column:related_type;size:32" json:"relatedType,omitempty"`
	RelatedID     *uint      `gorm:"column:related_id" json:"relatedId,omitempty"`
	Priority      string     `gorm:"column:priority;size:8" json:"priority"`
	DedupeKey     string     `gorm:"column:dedupe_key;size:191;uniqueIndex" json:"-"`
	IsRead        bool       `gorm:"column:is_read;index" json:"isRead"`
	ReadAt        *time.Time `gorm:"column:read_at" json:"readAt,omitempty"`
	CreatedAt     time.Time  `gorm:"column:created_at;index" json:"createdAt"`
}

func (Notification) TableName() string { return "notifications" }
