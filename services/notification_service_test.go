package services

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"dost-pmns-api/apperror"
	"dost-pmns-api/models"
	"dost-pmns-api/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifySkipsDuplicateKeys(t *testing.T) {
	f := testutil.NewFixture(t)
	svc := NewNotificationService(f.DB)
	ctx := context.Background()

	n := models.Notification{Type: NotifyApplicationStatus, Title: "Status", Message: "Application moved", DedupeKey: "history:7"}
	svc.NotifyUsers(ctx, []models.User{*f.Proponent, *f.PSTO, *f.Proponent}, n)
	svc.NotifyUsers(ctx, []models.User{*f.Proponent}, n)

	notes := f.Notifications(t, f.Proponent.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, fmt.Sprintf("history:7:%d", f.Proponent.ID), notes[0].DedupeKey)
	assert.Equal(t, models.RoleProponent, notes[0].RecipientRole)
	assert.Equal(t, models.PriorityNormal, notes[0].Priority)
	assert.Len(t, f.Notifications(t, f.PSTO.ID), 1)

	// Without a key every call is delivered.
	svc.NotifyUserID(ctx, f.DOST.ID, models.Notification{Type: NotifyTNAForwarded, Title: "TNA"})
	svc.NotifyUserID(ctx, f.DOST.ID, models.Notification{Type: NotifyTNAForwarded, Title: "TNA"})
	assert.Len(t, f.Notifications(t, f.DOST.ID), 2)
}

func TestNotifyRoleHonoursProvince(t *testing.T) {
	f := testutil.NewFixture(t)
	svc := NewNotificationService(f.DB)
	ctx := context.Background()
	inactive := testutil.CreateUser(t, f.DB, models.RolePSTO, "Palawan")
	require.NoError(t, f.DB.Model(inactive).Update("status", models.UserStatusInactive).Error)

	svc.NotifyRole(ctx, models.RolePSTO, "Romblon", models.Notification{Type: NotifyProponentRegistered, Title: "New proponent"})
	assert.Empty(t, f.Notifications(t, f.PSTO.ID))
	assert.Len(t, f.Notifications(t, f.OtherPSTO.ID), 1)

	svc.NotifyRole(ctx, models.RolePSTO, "", models.Notification{Type: NotifyProponentRegistered, Title: "Everyone"})
	assert.Len(t, f.Notifications(t, f.PSTO.ID), 1)
	assert.Len(t, f.Notifications(t, f.OtherPSTO.ID), 2)
	assert.Empty(t, f.Notifications(t, inactive.ID))
}

func TestNotificationReadState(t *testing.T) {
	f := testutil.NewFixture(t)
	svc := NewNotificationService(f.DB)
	ctx := context.Background()
	for _, title := range []string{"one", "two", "three"} {
		svc.NotifyUserID(ctx, f.Proponent.ID, models.Notification{Type: NotifyApplicationStatus, Title: title})
	}
	svc.NotifyUserID(ctx, f.PSTO.ID, models.Notification{Type: NotifyApplicationStatus, Title: "other"})
	notes := f.Notifications(t, f.Proponent.ID)
	require.Len(t, notes, 3)

	count, err := svc.UnreadCount(f.Proponent.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	_, err = svc.MarkRead(f.PSTO.ID, notes[0].ID)
	assert.Equal(t, http.StatusNotFound, apperror.StatusOf(err))

	read, err := svc.MarkRead(f.Proponent.ID, notes[0].ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)
	require.NotNil(t, read.ReadAt)

	list, err := svc.List(f.Proponent.ID, true, Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, list.Total)
	assert.EqualValues(t, 2, list.Unread)
	assert.Equal(t, notificationDefaultLimit, list.Limit)

	list, err = svc.List(f.Proponent.ID, false, Page{Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 3, list.Total)
	assert.Len(t, list.Items, 1)

	marked, err := svc.MarkAllRead(f.Proponent.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, marked)
	count, err = svc.UnreadCount(f.Proponent.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = svc.UnreadCount(f.PSTO.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	assert.Equal(t, http.StatusNotFound, apperror.StatusOf(svc.Delete(f.PSTO.ID, notes[1].ID)))
	require.NoError(t, svc.Delete(f.Proponent.ID, notes[1].ID))
	assert.Len(t, f.Notifications(t, f.Proponent.ID), 2)
}
