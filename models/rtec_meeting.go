package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	MeetingStatusScheduled = "scheduled"
	MeetingStatusPostponed = "postponed"
	MeetingStatusCancelled = "cancelled"
	MeetingStatusCompleted = "completed"
)

const (
	MeetingTypeInPerson = "in_person"
	MeetingTypeVirtual  = "virtual"
)

const (
	MeetingOutcomeApproved = "approved"
	MeetingOutcomeRejected = "rejected"
)

const (
	ParticipantStatusInvited   = "invited"
	ParticipantStatusConfirmed = "confirmed"
	ParticipantStatusDeclined  = "declined"
	ParticipantStatusAttended  = "attended"
	ParticipantStatusAbsent    = "absent"
)

// RTECMeeting is a Regional Technical Evaluation Committee session for one TNA.
type RTECMeeting struct {
	ID            uint  `gorm:"primaryKey;column:id" json:"id"`
	TNAID         uint  `gorm:"column:tna_id;index" json:"tnaId"`
	ApplicationID uint  `gorm:"column:application_id;index" json:"applicationId"`
	ProponentID   uint  `gorm:"column:proponent_id;index" json:"proponentId"`
	ChecklistID   *uint `gorm:"column:checklist_id" json:"checklistId,omitempty"`

	Title       string                      `gorm:"column:title;size:255" json:"title"`
	Description string                      `gorm:"column:description;type:text" json:"description,omitempty"`
	ScheduledAt time.Time                   `gorm:"column:scheduled_at;index" json:"scheduledAt"`
	Location    string                      `gorm:"column:location;size:500" json:"location,omitempty"`
	MeetingType string                      `gorm:"column:meeting_type;size:16" json:"meetingType"`
	MeetingLink string                      `gorm:"column:meeting_link;size:500" json:"meetingLink,omitempty"`
	Agenda      datatypes.JSONSlice[string] `gorm:"column:agenda" json:"agenda"`

	Status       string     `gorm:"column:status;size:16;index" json:"status"`
	Outcome      string     `gorm:"column:outcome;size:16" json:"outcome,omitempty"`
	Remarks      string     `gorm:"column:remarks;type:text" json:"remarks,omitempty"`
	CreatedBy    uint       `gorm:"column:created_by" json:"createdBy"`
	CompletedBy  *uint      `gorm:"column:completed_by" json:"completedBy,omitempty"`
	CompletedAt  *time.Time `gorm:"column:completed_at" json:"completedAt,omitempty"`
	CancelledAt  *time.Time `gorm:"column:cancelled_at" json:"cancelledAt,omitempty"`
	CancelReason string     `gorm:"column:cancel_reason;type:text" json:"cancelReason,omitempty"`

	Participants []RTECParticipant `gorm:"foreignKey:MeetingID" json:"participants"`

	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (RTECMeeting) TableName() string { return "rtec_meetings" }

type RTECParticipant struct {
	ID          uint       `gorm:"primaryKey;column:id" json:"id"`
	MeetingID   uint       `gorm:"column:meeting_id;index" json:"meetingId"`
	UserID      *uint      `gorm:"column:user_id;index" json:"userId,omitempty"`
	Name        string     `gorm:"column:name;size:191" json:"name"`
	Email       string     `gorm:"column:email;size:191" json:"email,omitempty"`
	Role        string     `gorm:"column:role;size:32" json:"role"`
	Status      string     `gorm:"column:status;size:16" json:"status"`
	RespondedAt *time.Time `gorm:"column:responded_at" json:"respondedAt,omitempty"`
	Remarks     string     `gorm:"column:remarks;type:text" json:"remarks,omitempty"`
	CreatedAt   time.Time  `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"column:updated_at" json:"updatedAt"`
}

func (RTECParticipant) TableName() string { return "rtec_participants" }
