package services

import (
	"testing"

	"dost-pmns-api/models"

	"github.com/stretchr/testify/assert"
)

func items(statuses ...string) []models.ChecklistItem {
	out := make([]models.ChecklistItem, len(statuses))
	for i, s := range statuses {
		out[i] = models.ChecklistItem{Type: string(rune('a' + i)), DocumentStatus: s}
	}
	return out
}

func TestDeriveOverallStatus(t *testing.T) {
	const (
		pending   = models.DocumentStatusPending
		submitted = models.DocumentStatusSubmitted
		approved  = models.DocumentStatusApproved
		rejected  = models.DocumentStatusRejected
	)

	tests := []struct {
		name  string
		items []models.ChecklistItem
		state ChecklistState
		want  string
	}{
		{
			name:  "nothing submitted",
			items: items(pending, pending, pending),
			state: ChecklistState{Status: models.ChecklistStatusRequested},
			want:  models.ChecklistStatusRequested,
		},
		{
			name:  "partially submitted stays requested",
			items: items(submitted, pending, pending),
			state: ChecklistState{Status: models.ChecklistStatusRequested},
			want:  models.ChecklistStatusRequested,
		},
		{
			name:  "all submitted",
			items: items(submitted, submitted, submitted),
			state: ChecklistState{Status: models.ChecklistStatusRequested},
			want:  models.ChecklistStatusSubmitted,
		},
		{
			name:  "some reviewed",
			items: items(approved, submitted, submitted),
			state: ChecklistState{Status: models.ChecklistStatusSubmitted},
			want:  models.ChecklistStatusUnderReview,
		},
		{
			name:  "all approved",
			items: items(approved, approved, approved),
			state: ChecklistState{Status: models.ChecklistStatusUnderReview},
			want:  models.ChecklistStatusApproved,
		},
		{
			name:  "all reviewed with a rejection",
			items: items(approved, rejected, approved),
			state: ChecklistState{Status: models.ChecklistStatusUnderReview},
			want:  models.ChecklistStatusRejected,
		},
		{
			name:  "terminal status is sticky",
			items: items(approved, rejected),
			state: ChecklistState{Status: "rtec_completed", TerminalStatus: "rtec_completed"},
			want:  "rtec_completed",
		},
		{
			name:  "empty checklist",
			items: nil,
			state: ChecklistState{Status: models.ChecklistStatusRequested},
			want:  models.ChecklistStatusRequested,
		},
		{
			name:  "revision waits on flagged items",
			items: items(approved, pending, approved),
			state: ChecklistState{Status: models.ChecklistStatusRevisionRequested, DocumentsToRevise: []string{"b"}},
			want:  models.ChecklistStatusRevisionRequested,
		},
		{
			name:  "revision resubmitted",
			items: items(approved, submitted, approved),
			state: ChecklistState{Status: models.ChecklistStatusRevisionRequested, DocumentsToRevise: []string{"b"}},
			want:  models.ChecklistStatusSubmitted,
		},
		{
			name:  "revision approved ignores earlier approvals",
			items: items(approved, approved, approved),
			state: ChecklistState{Status: models.ChecklistStatusSubmitted, DocumentsToRevise: []string{"b"}},
			want:  models.ChecklistStatusApproved,
		},
		{
			name:  "unapproved item outside the revision is still in scope",
			items: items(approved, submitted, pending),
			state: ChecklistState{Status: models.ChecklistStatusRevisionRequested, DocumentsToRevise: []string{"b"}},
			want:  models.ChecklistStatusRevisionRequested,
		},
		{
			name:  "revision rejected again",
			items: items(approved, rejected, approved),
			state: ChecklistState{Status: models.ChecklistStatusSubmitted, DocumentsToRevise: []string{"b"}},
			want:  models.ChecklistStatusRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveOverallStatus(tt.items, tt.state))
		})
	}
}

func TestChecklistProgress(t *testing.T) {
	p := checklistProgress(items(models.DocumentStatusPending, models.DocumentStatusSubmitted,
		models.DocumentStatusApproved, models.DocumentStatusApproved, models.DocumentStatusRejected))
	assert.Equal(t, ChecklistProgress{Pending: 1, Submitted: 1, Approved: 2, Rejected: 1, Total: 5}, p)
}
