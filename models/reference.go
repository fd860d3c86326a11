package models

import "time"

const (
	ProgramSETUP = "SETUP"
	ProgramGIA   = "GIA"
	ProgramCEST  = "CEST"
	ProgramSSCP  = "SSCP"
)

// PSTOOffice maps a province to its Provincial Science and Technology Office.
type PSTOOffice struct {
	ID            uint      `gorm:"primaryKey;column:id" json:"id"`
	Province      string    `gorm:"column:province;size:64;uniqueIndex" json:"province"`
	OfficeName    string    `gorm:"column:office_name;size:255" json:"officeName"`
	Address       string    `gorm:"column:address;size:500" json:"address"`
	ContactNumber string    `gorm:"column:contact_number;size:64" json:"contactNumber"`
	Email         string    `gorm:"column:email;size:191" json:"email"`
	HeadName      string    `gorm:"column:head_name;size:191" json:"headName"`
	UserID        *uint     `gorm:"column:user_id" json:"userId,omitempty"`
	User          *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (PSTOOffice) TableName() string { return "psto_offices" }

// Program describes one of the funding programs an application can target.
type Program struct {
	ID          uint      `gorm:"primaryKey;column:id" json:"id"`
	Code        string    `gorm:"column:code;size:16;uniqueIndex" json:"code"`
	Name        string    `gorm:"column:name;size:255" json:"name"`
	Description string    `gorm:"column:description;type:text" json:"description"`
	IsActive    bool      `gorm:"column:is_active" json:"isActive"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (Program) TableName() string { return "programs" }

const (
	EnrollmentStatusEnrolled  = "enrolled"
	EnrollmentStatusWithdrawn = "withdrawn"
)

// Enrollment records a proponent's enrollment in a program.
type Enrollment struct {
	ID             uint         `gorm:"primaryKey;column:id" json:"id"`
	ProponentID    uint         `gorm:"column:proponent_id;index" json:"proponentId"`
	Proponent      *User        `gorm:"foreignKey:ProponentID" json:"proponent,omitempty"`
	ProgramCode    string       `gorm:"column:program_code;size:16;index" json:"programCode"`
	ApplicationID  *uint        `gorm:"column:application_id;index" json:"applicationId,omitempty"`
	Application    *Application `gorm:"foreignKey:ApplicationID" json:"application,omitempty"`
	EnterpriseName string       `gorm:"column:enterprise_name;size:255" json:"enterpriseName"`
	Status         string       `gorm:"column:status;size:16" json:"status"`
	EnrolledAt     time.Time    `gorm:"column:enrolled_at" json:"enrolledAt"`
	WithdrawnAt    *time.Time   `gorm:"column:withdrawn_at" json:"withdrawnAt,omitempty"`
	CreatedAt      time.Time    `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt      time.Time    `gorm:"column:updated_at" json:"updatedAt"`

	// Populated on listing, not persisted.
	TNAStatus string `gorm:"-" json:"tnaStatus,omitempty"`
}

func (Enrollment) TableName() string { return "enrollments" }
