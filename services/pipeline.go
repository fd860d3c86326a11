package services

import (
	"fmt"
	"strings"
	"time"

	"dost-pmns-api/apperror"
	"dost-pmns-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Application actions.
const (
	ActionPSTOApprove         = "psto_approve"
	ActionPSTOReject          = "psto_reject"
	ActionPSTOReturn          = "psto_return"
	ActionResubmit            = "resubmit"
	ActionTNASchedule         = "tna_schedule"
	ActionTNAConducted        = "tna_conducted"
	ActionTNAReport           = "tna_report"
	ActionDOSTApprove         = "dost_approve"
	ActionDOSTReject          = "dost_reject"
	ActionRTECApprove         = "rtec_approve"
	ActionRTECReject          = "rtec_reject"
	ActionStartImplementation = "start_implementation"
	ActionComplete            = "complete"
)

type appTransition struct {
	From  []string
	To    string
	Roles []string
}

var (
	pstoReviewers = []string{models.RolePSTO, models.RoleSuperAdmin}
	dostReviewers = []string{models.RoleDOSTMimaropa, models.RoleSuperAdmin}
)

// applicationTransitions is the application pipeline. Every forward move is
// a named action with the statuses it may start from and the roles allowed
// to trigger it directly.
var applicationTransitions = map[string]appTransition{
	ActionPSTOApprove:         {From: []string{models.ApplicationStatusPending}, To: models.ApplicationStatusPSTOApproved, Roles: pstoReviewers},
	ActionPSTOReject:          {From: []string{models.ApplicationStatusPending}, To: models.ApplicationStatusPSTORejected, Roles: pstoReviewers},
	ActionPSTOReturn:          {From: []string{models.ApplicationStatusPending}, To: models.ApplicationStatusPending, Roles: pstoReviewers},
	ActionResubmit:            {From: []string{models.ApplicationStatusPending}, To: models.ApplicationStatusPending, Roles: []string{models.RoleProponent}},
	ActionTNASchedule:         {From: []string{models.ApplicationStatusPSTOApproved}, To: models.ApplicationStatusTNAScheduled, Roles: pstoReviewers},
	ActionTNAConducted:        {From: []string{models.ApplicationStatusTNAScheduled}, To: models.ApplicationStatusTNAConducted, Roles: pstoReviewers},
	ActionTNAReport:           {From: []string{models.ApplicationStatusTNAConducted}, To: models.ApplicationStatusTNAReportSubmitted, Roles: pstoReviewers},
	ActionDOSTApprove:         {From: []string{models.ApplicationStatusTNAReportSubmitted}, To: models.ApplicationStatusDOSTMimaropaApproved, Roles: dostReviewers},
	ActionDOSTReject:          {From: []string{models.ApplicationStatusTNAReportSubmitted}, To: models.ApplicationStatusDOSTMimaropaRejected, Roles: dostReviewers},
	ActionRTECApprove:         {From: []string{models.ApplicationStatusDOSTMimaropaApproved}, To: models.ApplicationStatusRTECApproved, Roles: dostReviewers},
	ActionRTECReject:          {From: []string{models.ApplicationStatusDOSTMimaropaApproved}, To: models.ApplicationStatusRTECRejected, Roles: dostReviewers},
	ActionStartImplementation: {From: []string{models.ApplicationStatusRTECApproved}, To: models.ApplicationStatusImplementation, Roles: []string{models.RoleSuperAdmin}},
	ActionComplete:            {From: []string{models.ApplicationStatusImplementation}, To: models.ApplicationStatusCompleted, Roles: []string{models.RoleSuperAdmin}},
}

// authorizeApplicationAction returns 403 when actor may not trigger action.
func authorizeApplicationAction(action string, actor *models.User) error {
	t, ok := applicationTransitions[action]
	if !ok {
		return apperror.BadRequest("Unknown action %q", action)
	}
	return requireRole(actor, t.Roles...)
}

// advanceApplication applies action to app inside tx. Role checks are the
// caller's job; side effects of other workflows call it without one.
func advanceApplication(tx *gorm.DB, app *models.Application, action string, actorID uint, comments string, updates map[string]interface{}) (*models.StatusHistory, error) {
	t, ok := applicationTransitions[action]
	if !ok {
		return nil, apperror.BadRequest("Unknown action %q", action)
	}
	if err := requireStatus("Application", app.Status, t.From...); err != nil {
		return nil, err
	}
	return changeStatus(tx, app, models.EntityApplication, app.ID, app.Status, t.To, action, actorID, comments, updates)
}

// requireStatus returns 400 unless current is one of allowed.
func requireStatus(entity, current string, allowed ...string) error {
	for _, s := range allowed {
		if current == s {
			return nil
		}
	}
	return apperror.BadRequest("%s status must be %s (current: %s)", entity, strings.Join(allowed, " or "), current)
}

// changeStatus writes the new status plus updates with a compare-and-set on
// the old status, then appends the history row. Both happen on tx.
func changeStatus(tx *gorm.DB, model interface{}, entityType string, id uint, from, to, action string, actorID uint, comments string, updates map[string]interface{}) (*models.StatusHistory, error) {
	values := map[string]interface{}{"status": to, "updated_at": time.Now()}
	for k, v := range updates {
		values[k] = v
	}

	res := tx.Model(model).Omit(clause.Associations).Where("status = ?", from).Updates(values)
	if res.Error != nil {
		return nil, apperror.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperror.Conflict(fmt.Sprintf("%s %d was changed by another request, reload and try again", entityType, id))
	}

	history, err := recordHistory(tx, entityType, id, from, to, action, actorID, comments)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return history, nil
}
