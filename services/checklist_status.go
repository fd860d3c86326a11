package services

import "dost-pmns-api/models"

// ChecklistState is the part of a checklist the overall status depends on
// besides its items.
type ChecklistState struct {
	Status            string
	DocumentsToRevise []string
	TerminalStatus    string
}

// DeriveOverallStatus computes the checklist status from its items.
//
// A completed checklist keeps its terminal status. While a revision is in
// progress only the flagged items, plus any item that is not yet approved,
// are considered. With no reviewed item in scope the checklist is either
// fully resubmitted or still waiting on the proponent.
func DeriveOverallStatus(items []models.ChecklistItem, state ChecklistState) string {
	if state.TerminalStatus != "" && state.Status == state.TerminalStatus {
		return state.Status
	}

	revision := state.Status == models.ChecklistStatusRevisionRequested || len(state.DocumentsToRevise) > 0
	scope := items
	if revision {
		flagged := make(map[string]bool, len(state.DocumentsToRevise))
		for _, t := range state.DocumentsToRevise {
			flagged[t] = true
		}
		scope = make([]models.ChecklistItem, 0, len(items))
		for _, it := range items {
			if flagged[it.Type] || it.DocumentStatus != models.DocumentStatusApproved {
				scope = append(scope, it)
			}
		}
	}

	if len(scope) == 0 {
		if revision && len(items) > 0 {
			return models.ChecklistStatusApproved
		}
		return models.ChecklistStatusRequested
	}

	var submitted, approved, rejected int
	for _, it := range scope {
		switch it.DocumentStatus {
		case models.DocumentStatusSubmitted:
			submitted++
		case models.DocumentStatusApproved:
			approved++
		case models.DocumentStatusRejected:
			rejected++
		}
	}
	reviewed := approved + rejected
	total := len(scope)

	switch {
	case reviewed == total && rejected > 0:
		return models.ChecklistStatusRejected
	case reviewed == total:
		return models.ChecklistStatusApproved
	case reviewed > 0:
		return models.ChecklistStatusUnderReview
	case submitted == total:
		return models.ChecklistStatusSubmitted
	case revision:
		return models.ChecklistStatusRevisionRequested
	default:
		return models.ChecklistStatusRequested
	}
}

// ChecklistProgress counts items by state.
type ChecklistProgress struct {
	Pending   int `json:"pending"`
	Submitted int `json:"submitted"`
	Approved  int `json:"approved"`
	Rejected  int `json:"rejected"`
	Total     int `json:"total"`
}

func checklistProgress(items []models.ChecklistItem) ChecklistProgress {
	p := ChecklistProgress{Total: len(items)}
	for _, it := range items {
		switch it.DocumentStatus {
		case models.DocumentStatusSubmitted:
			p.Submitted++
		case models.DocumentStatusApproved:
			p.Approved++
		case models.DocumentStatusRejected:
			p.Rejected++
		default:
			p.Pending++
		}
	}
	return p
}
