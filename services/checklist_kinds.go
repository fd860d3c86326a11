package services

import (
	"dost-pmns-api/models"
)

// DocumentType is one required slot of a checklist kind.
type DocumentType struct {
	Type        string `json:"type"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// ChecklistKind parameterises the generic document checklist workflow.
type ChecklistKind struct {
	Kind  string
	Title string

	// PredecessorTNAStatus is the TNA status required before the checklist
	// can be requested.
	PredecessorTNAStatus string
	// PredecessorAppStatus, when set, is also required on the application.
	PredecessorAppStatus string

	TNAStatusOnRequest  string
	TNAStatusOnComplete string
	// AppActionOnComplete advances the application when the checklist is
	// completed. Empty means the application is left alone.
	AppActionOnComplete string
	TerminalStatus      string

	ReviewerRoles []string
	Documents     []DocumentType
}

var checklistKinds = map[string]*ChecklistKind{
	models.ChecklistKindRTEC: {
		Kind:                 models.ChecklistKindRTEC,
		Title:                "RTEC documents",
		PredecessorTNAStatus: models.TNAStatusSignedByRD,
		TNAStatusOnRequest:   models.TNAStatusRTECDocumentsRequested,
		TNAStatusOnComplete:  models.TNAStatusRTECDocumentsCompleted,
		TerminalStatus:       "rtec_completed",
		ReviewerRoles:        []string{models.RoleDOSTMimaropa, models.RoleSuperAdmin},
		Documents: []DocumentType{
			{Type: "project_proposal", Label: "Project proposal"},
			{Type: "quotations_equipment", Label: "Quotations for equipment"},
			{Type: "financial_statements", Label: "Audited financial statements"},
			{Type: "business_permit", Label: "Business permit"},
			{Type: "dti_sec_registration", Label: "DTI/SEC/CDA registration"},
		},
	},
	models.ChecklistKindFunding: {
		Kind:                 models.ChecklistKindFunding,
		Title:                "Funding documents",
		PredecessorTNAStatus: models.TNAStatusRTECCompleted,
		PredecessorAppStatus: models.ApplicationStatusRTECApproved,
		TNAStatusOnRequest:   models.TNAStatusFundingDocumentsRequested,
		TNAStatusOnComplete:  models.TNAStatusFundingCompleted,
		AppActionOnComplete:  ActionStartImplementation,
		TerminalStatus:       "funding_completed",
		ReviewerRoles:        []string{models.RoleDOSTMimaropa, models.RolePSTO, models.RoleSuperAdmin},
		Documents: []DocumentType{
			{Type: "memorandum_of_agreement", Label: "Signed memorandum of agreement"},
			{Type: "project_implementation_plan", Label: "Project implementation plan"},
			{Type: "bank_account_details", Label: "Bank account details"},
			{Type: "post_dated_checks", Label: "Post-dated checks"},
			{Type: "insurance_certificate", Label: "Equipment insurance certificate"},
		},
	},
	models.ChecklistKindRefund: {
		Kind:                 models.ChecklistKindRefund,
		Title:                "Refund documents",
		PredecessorTNAStatus: models.TNAStatusFundingCompleted,
		PredecessorAppStatus: models.ApplicationStatusImplementation,
		TNAStatusOnRequest:   models.TNAStatusRefundDocumentsRequested,
		TNAStatusOnComplete:  models.TNAStatusRefundCompleted,
		AppActionOnComplete:  ActionComplete,
		TerminalStatus:       "refund_completed",
		ReviewerRoles:        []string{models.RolePSTO, models.RoleDOSTMimaropa, models.RoleSuperAdmin},
		Documents: []DocumentType{
			{Type: "refund_schedule", Label: "Refund schedule"},
			{Type: "post_dated_checks", Label: "Post-dated checks for refund"},
			{Type: "acknowledgement_receipt", Label: "Acknowledgement receipt"},
			{Type: "liquidation_report", Label: "Liquidation report"},
		},
	},
}

// LookupChecklistKind returns the kind definition, or nil.
func LookupChecklistKind(kind string) *ChecklistKind {
	return checklistKinds[kind]
}

// ChecklistKinds lists the kinds in pipeline order.
func ChecklistKinds() []*ChecklistKind {
	return []*ChecklistKind{
		checklistKinds[models.ChecklistKindRTEC],
		checklistKinds[models.ChecklistKindFunding],
		checklistKinds[models.ChecklistKindRefund],
	}
}

func (k *ChecklistKind) hasDocument(itemType string) bool {
	for _, d := range k.Documents {
		if d.Type == itemType {
			return true
		}
	}
	return false
}

func (k *ChecklistKind) isReviewer(u *models.User) bool {
	return u != nil && u.HasRole(k.ReviewerRoles...)
}

func (k *ChecklistKind) documentTypes() []string {
	out := make([]string, 0, len(k.Documents))
	for _, d := range k.Documents {
		out = append(out, d.Type)
	}
	return out
}
