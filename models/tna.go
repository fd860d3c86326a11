package models

import (
	"time"

	"gorm.io/datatypes"
)

// TNA statuses, in pipeline order.
const (
	TNAStatusScheduled                 = "scheduled"
	TNAStatusConducted                 = "conducted"
	TNAStatusReportUploaded            = "report_uploaded"
	TNAStatusForwardedToDOST           = "forwarded_to_dost"
	TNAStatusDOSTApproved              = "dost_approved"
	TNAStatusDOSTRejected              = "dost_rejected"
	TNAStatusSignedByRD                = "signed_by_rd"
	TNAStatusRTECDocumentsRequested    = "rtec_documents_requested"
	TNAStatusRTECDocumentsCompleted    = "rtec_documents_completed"
	TNAStatusRTECScheduled             = "rtec_scheduled"
	TNAStatusRTECCompleted             = "rtec_completed"
	TNAStatusFundingDocumentsRequested = "funding_documents_requested"
	TNAStatusFundingCompleted          = "funding_completed"
	TNAStatusRefundDocumentsRequested  = "refund_documents_requested"
	TNAStatusRefundCompleted           = "refund_completed"
	TNAStatusCancelled                 = "cancelled"
)

// TNAAssessor is one member of the assessment team.
type TNAAssessor struct {
	UserID *uint  `json:"userId,omitempty"`
	Name   string `json:"name"`
	Role   string `json:"role,omitempty"`
}

// TNA is the technology needs assessment for one application.
type TNA struct {
	ID            uint         `gorm:"primaryKey;column:id" json:"id"`
	ApplicationID uint         `gorm:"column:application_id;uniqueIndex" json:"applicationId"`
	Application   *Application `gorm:"foreignKey:ApplicationID" json:"application,omitempty"`
	ProponentID   uint         `gorm:"column:proponent_id;index" json:"proponentId"`
	Program       string       `gorm:"column:program;size:16" json:"program"`
	Province      string       `gorm:"column:province;size:64;index" json:"province"`
	ScheduledBy   uint         `gorm:"column:scheduled_by" json:"scheduledBy"`

	ScheduledDate time.Time                        `gorm:"column:scheduled_date" json:"scheduledDate"`
	ScheduledTime string                           `gorm:"column:scheduled_time;size:16" json:"scheduledTime,omitempty"`
	Location      string                           `gorm:"column:location;size:500" json:"location"`
	Assessors     datatypes.JSONSlice[TNAAssessor] `gorm:"column:assessors" json:"assessors"`
	Notes         string                           `gorm:"column:notes;type:text" json:"notes,omitempty"`

	Status      string     `gorm:"column:status;size:40;index" json:"status"`
	ConductedAt *time.Time `gorm:"column:conducted_at" json:"conductedAt,omitempty"`

	ReportFileID     *uint       `gorm:"column:report_file_id" json:"reportFileId,omitempty"`
	ReportFile       *StoredFile `gorm:"foreignKey:ReportFileID" json:"reportFile,omitempty"`
	ReportSummary    string      `gorm:"column:report_summary;type:text" json:"reportSummary,omitempty"`
	ReportUploadedAt *time.Time  `gorm:"column:report_uploaded_at" json:"reportUploadedAt,omitempty"`

	ForwardedBy    *uint      `gorm:"column:forwarded_by" json:"forwardedBy,omitempty"`
	ForwardedAt    *time.Time `gorm:"column:forwarded_at" json:"forwardedAt,omitempty"`
	DOSTReviewedBy *uint      `gorm:"column:dost_reviewed_by" json:"dostReviewedBy,omitempty"`
	DOSTReviewedAt *time.Time `gorm:"column:dost_reviewed_at" json:"dostReviewedAt,omitempty"`
	DOSTComments   string     `gorm:"column:dost_comments;type:text" json:"dostComments,omitempty"`
	RDSignedBy     *uint      `gorm:"column:rd_signed_by" json:"rdSignedBy,omitempty"`
	RDSignedAt     *time.Time `gorm:"column:rd_signed_at" json:"rdSignedAt,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (TNA) TableName() string { return "tnas" }
