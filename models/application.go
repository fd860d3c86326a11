package models

import (
	"time"

	"gorm.io/gorm"
)

// Application pipeline statuses.
const (
	ApplicationStatusPending              = "pending"
	ApplicationStatusPSTOApproved         = "psto_approved"
	ApplicationStatusPSTORejected         = "psto_rejected"
	ApplicationStatusTNAScheduled         = "tna_scheduled"
	ApplicationStatusTNAConducted         = "tna_conducted"
	ApplicationStatusTNAReportSubmitted   = "tna_report_submitted"
	ApplicationStatusDOSTMimaropaApproved = "dost_mimaropa_approved"
	ApplicationStatusDOSTMimaropaRejected = "dost_mimaropa_rejected"
	ApplicationStatusRTECApproved         = "rtec_approved"
	ApplicationStatusRTECRejected         = "rtec_rejected"
	ApplicationStatusImplementation       = "implementation"
	ApplicationStatusCompleted            = "completed"
)

// Provincial review sub-states.
const (
	PSTOStatusPending  = "pending"
	PSTOStatusApproved = "approved"
	PSTOStatusRejected = "rejected"
	PSTOStatusReturned = "returned"
)

// Application is a single funding submission under one of the programs.
type Application struct {
	ID                uint   `gorm:"primaryKey;column:id" json:"id"`
	ApplicationNumber string `gorm:"column:application_number;size:40;uniqueIndex" json:"applicationNumber"`
	Program           string `gorm:"column:program;size:16;index" json:"program"`
	ProponentID       uint   `gorm:"column:proponent_id;index" json:"proponentId"`
	Proponent         *User  `gorm:"foreignKey:ProponentID" json:"proponent,omitempty"`

	EnterpriseName     string  `gorm:"column:enterprise_name;size:255" json:"enterpriseName"`
	ContactPerson      string  `gorm:"column:contact_person;size:191" json:"contactPerson"`
	Position           string  `gorm:"column:position;size:191" json:"position,omitempty"`
	OfficeAddress      string  `gorm:"column:office_address;size:500" json:"officeAddress,omitempty"`
	FactoryAddress     string  `gorm:"column:factory_address;size:500" json:"factoryAddress,omitempty"`
	ContactNumber      string  `gorm:"column:contact_number;size:64" json:"contactNumber"`
	Email              string  `gorm:"column:email;size:191" json:"email"`
	Website            string  `gorm:"column:website;size:255" json:"website,omitempty"`
	Province           string  `gorm:"column:province;size:64;index" json:"province"`
	YearEstablished    int     `gorm:"column:year_established" json:"yearEstablished,omitempty"`
	BusinessActivity   string  `gorm:"column:business_activity;size:500" json:"businessActivity,omitempty"`
	EnterpriseType     string  `gorm:"column:enterprise_type;size:64" json:"enterpriseType,omitempty"`
	InitialCapital     float64 `gorm:"column:initial_capital" json:"initialCapital,omitempty"`
	TotalAssets        float64 `gorm:"column:total_assets" json:"totalAssets,omitempty"`
	NumberOfEmployees  int     `gorm:"column:number_of_employees" json:"numberOfEmployees,omitempty"`
	ProjectTitle       string  `gorm:"column:project_title;size:500" json:"projectTitle,omitempty"`
	ProjectDescription string  `gorm:"column:project_description;type:text" json:"projectDescription,omitempty"`
	RequestedAmount    float64 `gorm:"column:requested_amount" json:"requestedAmount,omitempty"`

	LetterOfIntentFileID    *uint       `gorm:"column:letter_of_intent_file_id" json:"letterOfIntentFileId,omitempty"`
	LetterOfIntent          *StoredFile `gorm:"foreignKey:LetterOfIntentFileID" json:"letterOfIntent,omitempty"`
	EnterpriseProfileFileID *uint       `gorm:"column:enterprise_profile_file_id" json:"enterpriseProfileFileId,omitempty"`
	EnterpriseProfile       *StoredFile `gorm:"foreignKey:EnterpriseProfileFileID" json:"enterpriseProfile,omitempty"`

	Status         string     `gorm:"column:status;size:32;index" json:"status"`
	PSTOStatus     string     `gorm:"column:psto_status;size:16" json:"pstoStatus"`
	PSTOComments   string     `gorm:"column:psto_comments;type:text" json:"pstoComments,omitempty"`
	AssignedPSTOID *uint      `gorm:"column:assigned_psto_id;index" json:"assignedPSTO,omitempty"`
	AssignedPSTO   *User      `gorm:"foreignKey:AssignedPSTOID" json:"assignedPSTOUser,omitempty"`
	PSTOReviewedBy *uint      `gorm:"column:psto_reviewed_by" json:"pstoReviewedBy,omitempty"`
	PSTOReviewedAt *time.Time `gorm:"column:psto_reviewed_at" json:"pstoReviewedAt,omitempty"`

	DOSTReviewedBy *uint      `gorm:"column:dost_reviewed_by" json:"dostReviewedBy,omitempty"`
	DOSTReviewedAt *time.Time `gorm:"column:dost_reviewed_at" json:"dostReviewedAt,omitempty"`
	DOSTComments   string     `gorm:"column:dost_comments;type:text" json:"dostComments,omitempty"`

	RTECDecidedAt           *time.Time `gorm:"column:rtec_decided_at" json:"rtecDecidedAt,omitempty"`
	ImplementationStartedAt *time.Time `gorm:"column:implementation_started_at" json:"implementationStartedAt,omitempty"`
	CompletedAt             *time.Time `gorm:"column:completed_at" json:"completedAt,omitempty"`

	SubmittedAt   time.Time      `gorm:"column:submitted_at" json:"submittedAt"`
	ReturnedAt    *time.Time     `gorm:"column:returned_at" json:"returnedAt,omitempty"`
	ResubmittedAt *time.Time     `gorm:"column:resubmitted_at" json:"resubmittedAt,omitempty"`
	CreatedAt     time.Time      `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt     time.Time      `gorm:"column:updated_at" json:"updatedAt"`
	DeletedAt     gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Application) TableName() string { return "applications" }
