package services

import (
	"net/http"
	"regexp"
	"testing"

	"dost-pmns-api/apperror"
	"dost-pmns-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeStatusConflictWhenStatusMoved(t *testing.T) {
	db, script := newScriptedMySQL(t, execStep{
		pattern: regexp.MustCompile("UPDATE `applications` SET .* WHERE status = \\? AND .*`id` = \\?"),
		result:  scriptedResult{rowsAffected: 0},
	})

	app := &models.Application{ID: 7, Status: models.ApplicationStatusPending}
	history, err := changeStatus(db, app, models.EntityApplication, app.ID, app.Status,
		models.ApplicationStatusPSTOApproved, ActionPSTOApprove, 3, "", nil)

	require.Error(t, err)
	assert.Nil(t, history)
	assert.Equal(t, http.StatusConflict, apperror.StatusOf(err))
	// no history row after a lost race
	assert.Zero(t, script.remaining())
}

func TestChangeStatusWritesHistory(t *testing.T) {
	db, script := newScriptedMySQL(t,
		execStep{
			pattern: regexp.MustCompile("UPDATE `applications` SET .*`psto_comments`=\\?.*`status`=\\?.* WHERE status = \\?"),
			result:  scriptedResult{rowsAffected: 1},
		},
		execStep{
			pattern: regexp.MustCompile("INSERT INTO `status_history`"),
			result:  scriptedResult{lastInsertID: 41, rowsAffected: 1},
		},
	)

	app := &models.Application{ID: 7, Status: models.ApplicationStatusPending}
	history, err := changeStatus(db, app, models.EntityApplication, app.ID, app.Status,
		models.ApplicationStatusPSTOApproved, ActionPSTOApprove, 3, " looks complete ",
		map[string]interface{}{"psto_comments": "looks complete"})

	require.NoError(t, err)
	require.NotNil(t, history)
	assert.Equal(t, uint(41), history.ID)
	assert.Equal(t, models.ApplicationStatusPending, history.FromStatus)
	assert.Equal(t, models.ApplicationStatusPSTOApproved, history.ToStatus)
	assert.Equal(t, "looks complete", history.Comments)
	assert.Zero(t, script.remaining())
}

func TestAdvanceApplicationRejectsWrongStatus(t *testing.T) {
	db, script := newScriptedMySQL(t)

	app := &models.Application{ID: 9, Status: models.ApplicationStatusPending}
	_, err := advanceApplication(db, app, ActionTNASchedule, 1, "", nil)

	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apperror.StatusOf(err))
	assert.Empty(t, script.seen, "no statement may run for an invalid transition")
}

func TestAuthorizeApplicationAction(t *testing.T) {
	psto := &models.User{ID: 1, Role: models.RolePSTO}
	dost := &models.User{ID: 2, Role: models.RoleDOSTMimaropa}
	admin := &models.User{ID: 3, Role: models.RoleSuperAdmin}
	proponent := &models.User{ID: 4, Role: models.RoleProponent}

	tests := []struct {
		name   string
		action string
		actor  *models.User
		status int
	}{
		{"psto approves", ActionPSTOApprove, psto, 0},
		{"dost cannot psto approve", ActionPSTOApprove, dost, http.StatusForbidden},
		{"proponent cannot schedule tna", ActionTNASchedule, proponent, http.StatusForbidden},
		{"dost approves tna report", ActionDOSTApprove, dost, 0},
		{"psto cannot dost approve", ActionDOSTApprove, psto, http.StatusForbidden},
		{"super admin overrides", ActionDOSTReject, admin, 0},
		{"only super admin starts implementation", ActionStartImplementation, dost, http.StatusForbidden},
		{"anonymous", ActionPSTOApprove, nil, http.StatusUnauthorized},
		{"unknown action", "teleport", admin, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := authorizeApplicationAction(tt.action, tt.actor)
			if tt.status == 0 {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.status, apperror.StatusOf(err))
		})
	}
}
