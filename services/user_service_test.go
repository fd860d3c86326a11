package services

import (
	"context"
	"net/http"
	"testing"

	"dost-pmns-api/apperror"
	"dost-pmns-api/models"
	"dost-pmns-api/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProponentScope(t *testing.T) {
	palawan := "Palawan"
	tests := []struct {
		name      string
		actor     *models.User
		requested string
		want      string
		status    int
	}{
		{name: "psto pinned to own province", actor: &models.User{Role: models.RolePSTO, Province: &palawan}, want: "Palawan"},
		{name: "psto asks own province", actor: &models.User{Role: models.RolePSTO, Province: &palawan}, requested: "palawan", want: "Palawan"},
		{name: "psto asks other province", actor: &models.User{Role: models.RolePSTO, Province: &palawan}, requested: "Romblon", status: http.StatusForbidden},
		{name: "psto without province", actor: &models.User{Role: models.RolePSTO}, status: http.StatusForbidden},
		{name: "dost sees all", actor: &models.User{Role: models.RoleDOSTMimaropa}, want: ""},
		{name: "admin filters", actor: &models.User{Role: models.RoleSuperAdmin}, requested: "romblon", want: "Romblon"},
		{name: "proponent refused", actor: &models.User{Role: models.RoleProponent, Province: &palawan}, status: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := proponentScope(tt.actor, tt.requested)
			if tt.status != 0 {
				assert.Equal(t, tt.status, apperror.StatusOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestListProponentsIsProvinceScoped(t *testing.T) {
	f := testutil.NewFixture(t)
	svc := NewUserService(f.DB)
	romblon := testutil.CreateUser(t, f.DB, models.RoleProponent, "Romblon")

	list, err := svc.ListProponents(f.PSTO, "", "", Page{})
	require.NoError(t, err)
	require.EqualValues(t, 1, list.Total)
	assert.Equal(t, f.Proponent.ID, list.Items[0].ID)

	list, err = svc.ListProponents(f.OtherPSTO, "", "", Page{})
	require.NoError(t, err)
	require.EqualValues(t, 1, list.Total)
	assert.Equal(t, romblon.ID, list.Items[0].ID)

	_, err = svc.ListProponents(f.PSTO, "Romblon", "", Page{})
	assert.Equal(t, http.StatusForbidden, apperror.StatusOf(err))

	list, err = svc.ListProponents(f.DOST, "", "", Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, list.Total)
}

func TestSetProponentStatus(t *testing.T) {
	f := testutil.NewFixture(t)
	svc := NewUserService(f.DB)
	ctx := context.Background()
	pending, err := svc.Create(CreateUserInput{
		FirstName: "Rosa",
		LastName:  "Mendoza",
		Email:     "rosa@example.com",
		Password:  testutil.Password,
		Role:      models.RoleProponent,
		Province:  "Palawan",
		Status:    models.UserStatusPending,
	})
	require.NoError(t, err)
	assert.Nil(t, pending.ActivatedAt)

	list, err := svc.PendingProponents(f.PSTO, Page{})
	require.NoError(t, err)
	require.EqualValues(t, 1, list.Total)

	_, err = svc.SetProponentStatus(ctx, f.OtherPSTO, pending.ID, models.UserStatusActive)
	assert.Equal(t, http.StatusForbidden, apperror.StatusOf(err))
	_, err = svc.SetProponentStatus(ctx, f.DOST, pending.ID, models.UserStatusActive)
	assert.Equal(t, http.StatusForbidden, apperror.StatusOf(err))
	_, err = svc.SetProponentStatus(ctx, f.PSTO, f.OtherPSTO.ID, models.UserStatusActive)
	assert.Equal(t, http.StatusNotFound, apperror.StatusOf(err))
	_, err = svc.SetProponentStatus(ctx, f.PSTO, pending.ID, models.UserStatusPending)
	assert.Equal(t, http.StatusBadRequest, apperror.StatusOf(err))

	activated, err := svc.SetProponentStatus(ctx, f.PSTO, pending.ID, models.UserStatusActive)
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusActive, activated.Status)
	require.NotNil(t, activated.ActivatedBy)
	assert.Equal(t, f.PSTO.ID, *activated.ActivatedBy)

	notes := f.Notifications(t, pending.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, NotifyAccountActivated, notes[0].Type)

	// Repeating the same status is a no-op without another notification.
	_, err = svc.SetProponentStatus(ctx, f.PSTO, pending.ID, models.UserStatusActive)
	require.NoError(t, err)
	assert.Len(t, f.Notifications(t, pending.ID), 1)

	_, err = svc.SetProponentStatus(ctx, f.Admin, pending.ID, models.UserStatusInactive)
	require.NoError(t, err)
	notes = f.Notifications(t, pending.ID)
	require.Len(t, notes, 2)
	assert.Equal(t, NotifyAccountDeactivated, notes[1].Type)

	var history []models.StatusHistory
	require.NoError(t, f.DB.Where("entity_type = ? AND entity_id = ?", models.EntityUser, pending.ID).Order("id").Find(&history).Error)
	require.Len(t, history, 2)
	assert.Equal(t, "activate", history[0].Action)
	assert.Equal(t, "deactivate", history[1].Action)
}

func TestCreateUserRules(t *testing.T) {
	f := testutil.NewFixture(t)
	svc := NewUserService(f.DB)

	_, err := svc.Create(CreateUserInput{
		FirstName: "Second", LastName: "PSTO", Email: "psto2@example.com",
		Password: testutil.Password, Role: models.RolePSTO, Province: "Palawan",
	})
	assert.Equal(t, http.StatusConflict, apperror.StatusOf(err))

	_, err = svc.Create(CreateUserInput{
		FirstName: "Dup", LastName: "Email", Email: f.DOST.Email,
		Password: testutil.Password, Role: models.RoleDOSTMimaropa,
	})
	assert.Equal(t, http.StatusConflict, apperror.StatusOf(err))

	_, err = svc.Create(CreateUserInput{
		FirstName: "No", LastName: "Province", Email: "noprov@example.com",
		Password: testutil.Password, Role: models.RoleProponent,
	})
	assert.Equal(t, http.StatusBadRequest, apperror.StatusOf(err))

	_, err = svc.Create(CreateUserInput{
		FirstName: "Bad", LastName: "Role", Email: "badrole@example.com",
		Password: testutil.Password, Role: "auditor",
	})
	assert.Equal(t, http.StatusBadRequest, apperror.StatusOf(err))

	office := models.PSTOOffice{Province: "Marinduque", OfficeName: "PSTO Marinduque"}
	require.NoError(t, f.DB.Create(&office).Error)
	psto, err := svc.Create(CreateUserInput{
		FirstName: "Marinduque", LastName: "PSTO", Email: "Marinduque.PSTO@example.com",
		Password: testutil.Password, Role: models.RolePSTO, Province: "marinduque",
	})
	require.NoError(t, err)
	assert.Equal(t, "marinduque.psto@example.com", psto.Email)
	assert.Equal(t, "Marinduque", psto.ProvinceName())
	require.NotNil(t, psto.ActivatedAt)

	require.NoError(t, f.DB.First(&office, office.ID).Error)
	require.NotNil(t, office.UserID)
	assert.Equal(t, psto.ID, *office.UserID)
}

func TestDeleteUser(t *testing.T) {
	f := testutil.NewFixture(t)
	svc := NewUserService(f.DB)

	err := svc.Delete(f.Admin, f.Admin.ID)
	assert.Equal(t, http.StatusBadRequest, apperror.StatusOf(err))

	require.NoError(t, svc.Delete(f.Admin, f.Proponent.ID))
	_, err = svc.Get(f.Proponent.ID)
	assert.Equal(t, http.StatusNotFound, apperror.StatusOf(err))

	err = svc.Delete(f.Admin, f.Proponent.ID)
	assert.Equal(t, http.StatusNotFound, apperror.StatusOf(err))
}
