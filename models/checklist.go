package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ChecklistKindRTEC    = "rtec"
	ChecklistKindFunding = "funding"
	ChecklistKindRefund  = "refund"
)

// Overall checklist statuses. The terminal status is kind specific
// (rtec_completed, funding_completed, refund_completed).
const (
	ChecklistStatusRequested         = "documents_requested"
	ChecklistStatusSubmitted         = "documents_submitted"
	ChecklistStatusUnderReview       = "documents_under_review"
	ChecklistStatusApproved          = "documents_approved"
	ChecklistStatusRejected          = "documents_rejected"
	ChecklistStatusRevisionRequested = "documents_revision_requested"
)

// Per item statuses.
const (
	DocumentStatusPending   = "pending"
	DocumentStatusSubmitted = "submitted"
	DocumentStatusApproved  = "approved"
	DocumentStatusRejected  = "rejected"
)

// Checklist is a set of required documents requested from a proponent for
// one TNA. Kind selects the RTEC, funding or refund workflow.
type Checklist struct {
	ID            uint   `gorm:"primaryKey;column:id" json:"id"`
	Kind          string `gorm:"column:kind;size:16;uniqueIndex:idx_checklist_kind_tna" json:"kind"`
	TNAID         uint   `gorm:"column:tna_id;uniqueIndex:idx_checklist_kind_tna" json:"tnaId"`
	TNA           *TNA   `gorm:"foreignKey:TNAID" json:"tna,omitempty"`
	ApplicationID uint   `gorm:"column:application_id;index" json:"applicationId"`
	ProponentID   uint   `gorm:"column:proponent_id;index" json:"proponentId"`

	Status            string                      `gorm:"column:status;size:40;index" json:"status"`
	DocumentsToRevise datatypes.JSONSlice[string] `gorm:"column:documents_to_revise" json:"documentsToRevise"`

	RequestedBy         uint       `gorm:"column:requested_by" json:"requestedBy"`
	RequestedAt         time.Time  `gorm:"column:requested_at" json:"requestedAt"`
	DueDate             *time.Time `gorm:"column:due_date" json:"dueDate,omitempty"`
	Notes               string     `gorm:"column:notes;type:text" json:"notes,omitempty"`
	RevisionRequestedAt *time.Time `gorm:"column:revision_requested_at" json:"revisionRequestedAt,omitempty"`
	RevisionComments    string     `gorm:"column:revision_comments;type:text" json:"revisionComments,omitempty"`
	CompletedBy         *uint      `gorm:"column:completed_by" json:"completedBy,omitempty"`
	CompletedAt         *time.Time `gorm:"column:completed_at" json:"completedAt,omitempty"`

	Items []ChecklistItem `gorm:"foreignKey:ChecklistID" json:"items"`

	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (Checklist) TableName() string { return "checklists" }

// Item returns the item with the given type, or nil.
func (c *Checklist) Item(itemType string) *ChecklistItem {
	for i := range c.Items {
		if c.Items[i].Type == itemType {
			return &c.Items[i]
		}
	}
	return nil
}

// ChecklistItem is one named document slot. Additional items are requested
// out of band by a reviewer after the checklist was created.
type ChecklistItem struct {
	ID          uint   `gorm:"primaryKey;column:id" json:"id"`
	ChecklistID uint   `gorm:"column:checklist_id;uniqueIndex:idx_item_checklist_type" json:"checklistId"`
	Type        string `gorm:"column:type;size:64;uniqueIndex:idx_item_checklist_type" json:"type"`
	Label       string `gorm:"column:label;size:255" json:"label"`
	Description string `gorm:"column:description;type:text" json:"description,omitempty"`
	Additional  bool   `gorm:"column:additional" json:"additional"`
	SortOrder   int    `gorm:"column:sort_order" json:"sortOrder"`

	DocumentStatus string      `gorm:"column:document_status;size:16" json:"documentStatus"`
	FileID         *uint       `gorm:"column:file_id" json:"fileId,omitempty"`
	File           *StoredFile `gorm:"foreignKey:FileID" json:"file,omitempty"`
	TextValue      string      `gorm:"column:text_value;type:text" json:"textValue,omitempty"`
	UploadedBy     *uint       `gorm:"column:uploaded_by" json:"uploadedBy,omitempty"`
	UploadedAt     *time.Time  `gorm:"column:uploaded_at" json:"uploadedAt,omitempty"`
	ReviewedBy     *uint       `gorm:"column:reviewed_by" json:"reviewedBy,omitempty"`
	ReviewedAt     *time.Time  `gorm:"column:reviewed_at" json:"reviewedAt,omitempty"`
	Comments       string      `gorm:"column:comments;type:text" json:"comments,omitempty"`
	RequestedBy    *uint       `gorm:"column:requested_by" json:"requestedBy,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (ChecklistItem) TableName() string { return "checklist_items" }
