package services

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"dost-pmns-api/apperror"
	"dost-pmns-api/models"
	"dost-pmns-api/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pdfUpload(name string) *Upload {
	body := "%PDF-1.4\n% " + name + "\n"
	return &Upload{
		Filename:    name,
		ContentType: "application/pdf",
		Size:        int64(len(body)),
		Reader:      strings.NewReader(body),
	}
}

func reloadTNA(t *testing.T, f *testutil.Fixture, id uint) models.TNA {
	t.Helper()
	var tna models.TNA
	require.NoError(t, f.DB.First(&tna, id).Error)
	return tna
}

func reloadApplication(t *testing.T, f *testutil.Fixture, id uint) models.Application {
	t.Helper()
	var app models.Application
	require.NoError(t, f.DB.First(&app, id).Error)
	return app
}

func submitAll(t *testing.T, svc *ChecklistService, kind string, actor *models.User, id uint, types ...string) *ChecklistView {
	t.Helper()
	var view *ChecklistView
	for _, typ := range types {
		var err error
		view, err = svc.SubmitItem(context.Background(), kind, actor, id, typ, SubmitItemInput{File: pdfUpload(typ + ".pdf")})
		require.NoError(t, err, typ)
	}
	return view
}

func reviewAll(t *testing.T, svc *ChecklistService, kind string, actor *models.User, id uint, action string, types ...string) *ChecklistView {
	t.Helper()
	var view *ChecklistView
	for _, typ := range types {
		var err error
		view, err = svc.ReviewItem(context.Background(), kind, actor, id, typ, ReviewItemInput{Action: action})
		require.NoError(t, err, typ)
	}
	return view
}

func TestRTECChecklistLifecycle(t *testing.T) {
	f := testutil.NewFixture(t)
	app := f.Application(t, models.ApplicationStatusDOSTMimaropaApproved)
	tna := f.TNA(t, app, models.TNAStatusSignedByRD)
	svc := NewChecklistService(f.DB)
	ctx := context.Background()
	kind := models.ChecklistKindRTEC

	view, err := svc.Request(ctx, kind, f.DOST, RequestChecklistInput{TNAID: tna.ID, Notes: "Submit before the RTEC"})
	require.NoError(t, err)
	require.Len(t, view.Items, 5)
	assert.Equal(t, models.ChecklistStatusRequested, view.Status)
	assert.Equal(t, 5, view.Progress.Pending)
	assert.Equal(t, models.TNAStatusRTECDocumentsRequested, reloadTNA(t, f, tna.ID).Status)

	notes := f.Notifications(t, f.Proponent.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, NotifyDocumentsRequested, notes[0].Type)
	assert.Equal(t, models.PriorityHigh, notes[0].Priority)

	_, err = svc.Request(ctx, kind, f.DOST, RequestChecklistInput{TNAID: tna.ID})
	assert.Equal(t, http.StatusBadRequest, apperror.StatusOf(err), "second request for the same TNA")

	types := LookupChecklistKind(kind).documentTypes()

	view = submitAll(t, svc, kind, f.Proponent, view.ID, types[:2]...)
	assert.Equal(t, models.ChecklistStatusRequested, view.Status, "partial submission")
	assert.Equal(t, 2, view.Progress.Submitted)

	view = submitAll(t, svc, kind, f.Proponent, view.ID, types[2:]...)
	assert.Equal(t, models.ChecklistStatusSubmitted, view.Status)
	assert.NotEmpty(t, f.Notifications(t, f.DOST.ID), "reviewers hear about the full submission")

	_, err = svc.ReviewItem(ctx, kind, f.PSTO, view.ID, types[0], ReviewItemInput{Action: "approve"})
	assert.Equal(t, http.StatusForbidden, apperror.StatusOf(err), "psto does not review rtec documents")

	view = reviewAll(t, svc, kind, f.DOST, view.ID, "approve", types[0])
	assert.Equal(t, models.ChecklistStatusUnderReview, view.Status)

	view = reviewAll(t, svc, kind, f.DOST, view.ID, "approve", types[1], types[2], types[4])
	view = reviewAll(t, svc, kind, f.DOST, view.ID, "reject", types[3])
	assert.Equal(t, models.ChecklistStatusRejected, view.Status)

	_, err = svc.Complete(ctx, kind, f.DOST, view.ID, "")
	assert.Equal(t, http.StatusBadRequest, apperror.StatusOf(err), "cannot complete a rejected checklist")

	_, err = svc.SubmitItem(ctx, kind, f.Proponent, view.ID, types[0], SubmitItemInput{File: pdfUpload("again.pdf")})
	assert.Equal(t, http.StatusBadRequest, apperror.StatusOf(err), "approved documents are locked")

	_, err = svc.RequestRevision(ctx, kind, f.DOST, view.ID, RevisionInput{DocumentsToRevise: []string{types[0]}})
	assert.Equal(t, http.StatusBadRequest, apperror.StatusOf(err), "approved documents cannot be revised")

	view, err = svc.RequestRevision(ctx, kind, f.DOST, view.ID, RevisionInput{
		DocumentsToRevise: []string{types[3]},
		Comments:          "Permit must be the renewed one",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ChecklistStatusRevisionRequested, view.Status)
	assert.Equal(t, []string{types[3]}, []string(view.DocumentsToRevise))
	assert.Equal(t, models.DocumentStatusPending, view.Item(types[3]).DocumentStatus)
	assert.Equal(t, models.DocumentStatusApproved, view.Item(types[0]).DocumentStatus)

	view = submitAll(t, svc, kind, f.Proponent, view.ID, types[3])
	assert.Equal(t, models.ChecklistStatusSubmitted, view.Status)

	view = reviewAll(t, svc, kind, f.DOST, view.ID, "approve", types[3])
	assert.Equal(t, models.ChecklistStatusApproved, view.Status)

	view, err = svc.Complete(ctx, kind, f.DOST, view.ID, "Ready for RTEC")
	require.NoError(t, err)
	assert.Equal(t, "rtec_completed", view.Status)
	assert.NotNil(t, view.CompletedAt)
	assert.Equal(t, models.TNAStatusRTECDocumentsCompleted, reloadTNA(t, f, tna.ID).Status)
	assert.Equal(t, models.ApplicationStatusDOSTMimaropaApproved, reloadApplication(t, f, app.ID).Status,
		"rtec documents do not move the application")

	_, err = svc.SubmitItem(ctx, kind, f.Proponent, view.ID, types[1], SubmitItemInput{Text: "late"})
	assert.Equal(t, http.StatusBadRequest, apperror.StatusOf(err))

	var history []models.StatusHistory
	require.NoError(t, f.DB.Where("entity_type = ? AND entity_id = ?", models.EntityChecklist, view.ID).Order("id").Find(&history).Error)
	require.NotEmpty(t, history)
	assert.Equal(t, "rtec_completed", history[len(history)-1].ToStatus)
}

func TestChecklistRequestPreconditions(t *testing.T) {
	f := testutil.NewFixture(t)
	app := f.Application(t, models.ApplicationStatusTNAConducted)
	tna := f.TNA(t, app, models.TNAStatusConducted)
	svc := NewChecklistService(f.DB)
	ctx := context.Background()

	_, err := svc.Request(ctx, models.ChecklistKindRTEC, f.DOST, RequestChecklistInput{TNAID: tna.ID})
	assert.Equal(t, http.StatusBadRequest, apperror.StatusOf(err))
	assert.Equal(t, models.TNAStatusConducted, reloadTNA(t, f, tna.ID).Status)

	_, err = svc.Request(ctx, models.ChecklistKindRTEC, f.PSTO, RequestChecklistInput{TNAID: tna.ID})
	assert.Equal(t, http.StatusForbidden, apperror.StatusOf(err))

	_, err = svc.Request(ctx, "tax", f.DOST, RequestChecklistInput{TNAID: tna.ID})
	assert.Equal(t, http.StatusNotFound, apperror.StatusOf(err))

	_, err = svc.Request(ctx, models.ChecklistKindRTEC, f.DOST, RequestChecklistInput{TNAID: 9999})
	assert.Equal(t, http.StatusNotFound, apperror.StatusOf(err))

	var count int64
	require.NoError(t, f.DB.Model(&models.Checklist{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestFundingChecklistStartsImplementation(t *testing.T) {
	f := testutil.NewFixture(t)
	app := f.Application(t, models.ApplicationStatusRTECApproved)
	tna := f.TNA(t, app, models.TNAStatusRTECCompleted)
	svc := NewChecklistService(f.DB)
	ctx := context.Background()
	kind := models.ChecklistKindFunding

	_, err := svc.Request(ctx, kind, f.OtherPSTO, RequestChecklistInput{TNAID: tna.ID})
	assert.Equal(t, http.StatusForbidden, apperror.StatusOf(err), "psto of another province")

	view, err := svc.Request(ctx, kind, f.PSTO, RequestChecklistInput{TNAID: tna.ID})
	require.NoError(t, err)
	assert.Equal(t, models.TNAStatusFundingDocumentsRequested, reloadTNA(t, f, tna.ID).Status)

	view, err = svc.AddItem(ctx, kind, f.PSTO, view.ID, AdditionalItemInput{Label: "Barangay clearance"})
	require.NoError(t, err)
	extra := view.Item("barangay_clearance")
	require.NotNil(t, extra)
	assert.True(t, extra.Additional)

	_, err = svc.AddItem(ctx, kind, f.PSTO, view.ID, AdditionalItemInput{Type: "barangay clearance", Label: "Again"})
	assert.Equal(t, http.StatusBadRequest, apperror.StatusOf(err))

	types := make([]string, 0, len(view.Items))
	for _, it := range view.Items {
		types = append(types, it.Type)
	}
	submitAll(t, svc, kind, f.Proponent, view.ID, types...)
	view = reviewAll(t, svc, kind, f.PSTO, view.ID, "approve", types...)
	assert.Equal(t, models.ChecklistStatusApproved, view.Status)

	view, err = svc.Complete(ctx, kind, f.PSTO, view.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "funding_completed", view.Status)
	assert.Equal(t, models.TNAStatusFundingCompleted, reloadTNA(t, f, tna.ID).Status)

	got := reloadApplication(t, f, app.ID)
	assert.Equal(t, models.ApplicationStatusImplementation, got.Status)
	assert.NotNil(t, got.ImplementationStartedAt)
}

func TestChecklistVisibility(t *testing.T) {
	f := testutil.NewFixture(t)
	app := f.Application(t, models.ApplicationStatusDOSTMimaropaApproved)
	tna := f.TNA(t, app, models.TNAStatusSignedByRD)
	svc := NewChecklistService(f.DB)

	view, err := svc.Request(context.Background(), models.ChecklistKindRTEC, f.DOST, RequestChecklistInput{TNAID: tna.ID})
	require.NoError(t, err)

	stranger := testutil.CreateUser(t, f.DB, models.RoleProponent, "Palawan")
	_, err = svc.Get(models.ChecklistKindRTEC, stranger, view.ID)
	assert.Equal(t, http.StatusForbidden, apperror.StatusOf(err))

	_, err = svc.Get(models.ChecklistKindRTEC, f.OtherPSTO, view.ID)
	assert.Equal(t, http.StatusForbidden, apperror.StatusOf(err))

	got, err := svc.GetByTNA(models.ChecklistKindRTEC, f.Proponent, tna.ID)
	require.NoError(t, err)
	assert.Equal(t, view.ID, got.ID)

	_, err = svc.Get(models.ChecklistKindFunding, f.Proponent, view.ID)
	assert.Equal(t, http.StatusNotFound, apperror.StatusOf(err), "kind mismatch")

	list, err := svc.List(models.ChecklistKindRTEC, f.OtherPSTO, ChecklistFilter{})
	require.NoError(t, err)
	assert.Zero(t, list.Total)

	list, err = svc.List(models.ChecklistKindRTEC, f.PSTO, ChecklistFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Total)
}

func TestTextResubmissionDropsRejectedFile(t *testing.T) {
	f := testutil.NewFixture(t)
	app := f.Application(t, models.ApplicationStatusDOSTMimaropaApproved)
	tna := f.TNA(t, app, models.TNAStatusSignedByRD)
	svc := NewChecklistService(f.DB)
	ctx := context.Background()
	kind := models.ChecklistKindRTEC

	view, err := svc.Request(ctx, kind, f.DOST, RequestChecklistInput{TNAID: tna.ID})
	require.NoError(t, err)
	typ := LookupChecklistKind(kind).documentTypes()[0]

	view = submitAll(t, svc, kind, f.Proponent, view.ID, typ)
	require.NotNil(t, view.Item(typ).FileID)
	reviewAll(t, svc, kind, f.DOST, view.ID, "reject", typ)

	_, err = svc.SubmitItem(ctx, kind, f.Proponent, view.ID, typ, SubmitItemInput{Text: "https://drive.example.com/proposal-v2"})
	require.NoError(t, err)

	got, err := svc.Get(kind, f.Proponent, view.ID)
	require.NoError(t, err)
	item := got.Item(typ)
	assert.Equal(t, models.DocumentStatusSubmitted, item.DocumentStatus)
	assert.Equal(t, "https://drive.example.com/proposal-v2", item.TextValue)
	assert.Nil(t, item.FileID)
	assert.Nil(t, item.File)
}

func TestRevisionKeepsOutstandingFlags(t *testing.T) {
	f := testutil.NewFixture(t)
	app := f.Application(t, models.ApplicationStatusDOSTMimaropaApproved)
	tna := f.TNA(t, app, models.TNAStatusSignedByRD)
	svc := NewChecklistService(f.DB)
	ctx := context.Background()
	kind := models.ChecklistKindRTEC
	types := LookupChecklistKind(kind).documentTypes()

	view, err := svc.Request(ctx, kind, f.DOST, RequestChecklistInput{TNAID: tna.ID})
	require.NoError(t, err)
	submitAll(t, svc, kind, f.Proponent, view.ID, types...)
	reviewAll(t, svc, kind, f.DOST, view.ID, "approve", types[0], types[1], types[2])
	view = reviewAll(t, svc, kind, f.DOST, view.ID, "reject", types[3])
	assert.Equal(t, models.ChecklistStatusUnderReview, view.Status)

	view, err = svc.RequestRevision(ctx, kind, f.DOST, view.ID, RevisionInput{DocumentsToRevise: []string{types[4]}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{types[3], types[4]}, []string(view.DocumentsToRevise))

	view = submitAll(t, svc, kind, f.Proponent, view.ID, types[3])
	assert.Equal(t, models.ChecklistStatusRevisionRequested, view.Status, "types[4] is still outstanding")

	view, err = svc.RequestRevision(ctx, kind, f.DOST, view.ID, RevisionInput{DocumentsToRevise: []string{types[3]}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{types[3], types[4]}, []string(view.DocumentsToRevise))
	assert.Equal(t, models.DocumentStatusPending, view.Item(types[4]).DocumentStatus)
}

func TestRefundChecklistCompletesApplication(t *testing.T) {
	f := testutil.NewFixture(t)
	app := f.Application(t, models.ApplicationStatusImplementation)
	tna := f.TNA(t, app, models.TNAStatusFundingCompleted)
	svc := NewChecklistService(f.DB)
	ctx := context.Background()
	kind := models.ChecklistKindRefund

	_, err := svc.Request(ctx, kind, f.Proponent, RequestChecklistInput{TNAID: tna.ID})
	assert.Equal(t, http.StatusForbidden, apperror.StatusOf(err))

	view, err := svc.Request(ctx, kind, f.PSTO, RequestChecklistInput{TNAID: tna.ID})
	require.NoError(t, err)
	require.Len(t, view.Items, 4)
	assert.Equal(t, models.TNAStatusRefundDocumentsRequested, reloadTNA(t, f, tna.ID).Status)

	types := LookupChecklistKind(kind).documentTypes()
	submitAll(t, svc, kind, f.Proponent, view.ID, types...)
	view = reviewAll(t, svc, kind, f.DOST, view.ID, "approve", types...)
	assert.Equal(t, models.ChecklistStatusApproved, view.Status)

	view, err = svc.Complete(ctx, kind, f.PSTO, view.ID, "Fully refunded")
	require.NoError(t, err)
	assert.Equal(t, "refund_completed", view.Status)
	assert.Equal(t, models.TNAStatusRefundCompleted, reloadTNA(t, f, tna.ID).Status)

	got := reloadApplication(t, f, app.ID)
	assert.Equal(t, models.ApplicationStatusCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)
}
