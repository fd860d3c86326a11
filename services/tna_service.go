package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dost-pmns-api/apperror"
	"dost-pmns-api/models"
	"dost-pmns-api/utils"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TNAService struct {
	db       *gorm.DB
	files    *FileService
	notifier *NotificationService
}

func NewTNAService(db *gorm.DB) *TNAService {
	db = resolveDB(db)
	return &TNAService{db: db, files: NewFileService(db), notifier: NewNotificationService(db)}
}

type ScheduleTNAInput struct {
	ApplicationID uint                 `json:"applicationId" binding:"required"`
	ScheduledDate time.Time            `json:"scheduledDate" binding:"required"`
	ScheduledTime string               `json:"scheduledTime"`
	Location      string               `json:"location" binding:"required"`
	Assessors     []models.TNAAssessor `json:"assessors"`
	Notes         string               `json:"notes"`
}

// Schedule creates the TNA of a psto-approved application.
func (s *TNAService) Schedule(ctx context.Context, actor *models.User, in ScheduleTNAInput) (*models.TNA, error) {
	if err := authorizeApplicationAction(ActionTNASchedule, actor); err != nil {
		return nil, err
	}
	var fields []apperror.FieldError
	if in.ApplicationID == 0 {
		fields = append(fields, apperror.FieldError{Field: "applicationId", Message: "applicationId is required"})
	}
	if in.ScheduledDate.IsZero() {
		fields = append(fields, apperror.FieldError{Field: "scheduledDate", Message: "scheduledDate is required"})
	}
	in.Location = utils.SanitizeInput(in.Location)
	if in.Location == "" {
		fields = append(fields, apperror.FieldError{Field: "location", Message: "location is required"})
	}
	if len(fields) > 0 {
		return nil, apperror.Validation(fields...)
	}

	var tna *models.TNA
	var history *models.StatusHistory
	err := s.db.Transaction(func(tx *gorm.DB) error {
		app, err := loadApplication(tx, in.ApplicationID)
		if err != nil {
			return err
		}
		if err := requireProvincialReviewer(actor, app); err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&models.TNA{}).Where("application_id = ?", app.ID).Count(&existing).Error; err != nil {
			return apperror.Internal(err)
		}
		if existing > 0 {
			return apperror.BadRequest("A TNA is already scheduled for this application")
		}

		if _, err := advanceApplication(tx, app, ActionTNASchedule, actor.ID, in.Notes, nil); err != nil {
			return err
		}

		tna = &models.TNA{
			ApplicationID: app.ID,
			ProponentID:   app.ProponentID,
			Program:       app.Program,
			Province:      app.Province,
			ScheduledBy:   actor.ID,
			ScheduledDate: in.ScheduledDate,
			ScheduledTime: utils.SanitizeInput(in.ScheduledTime),
			Location:      in.Location,
			Assessors:     datatypes.JSONSlice[models.TNAAssessor](cleanAssessors(in.Assessors)),
			Notes:         utils.SanitizeInput(in.Notes),
			Status:        models.TNAStatusScheduled,
		}
		if err := tx.Create(tna).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperror.BadRequest("A TNA is already scheduled for this application")
			}
			return apperror.Internal(err)
		}
		history, err = recordHistory(tx, models.EntityTNA, tna.ID, "", tna.Status, "schedule", actor.ID, tna.Notes)
		if err != nil {
			return apperror.Internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, apperror.From(err)
	}

	s.notifyProponent(ctx, tna, history, NotifyTNAScheduled, "Technology needs assessment scheduled",
		fmt.Sprintf("Your TNA is scheduled on %s %s at %s.", tna.ScheduledDate.Format("2006-01-02"), tna.ScheduledTime, tna.Location))
	return tna, nil
}

type RescheduleTNAInput struct {
	ScheduledDate *time.Time           `json:"scheduledDate"`
	ScheduledTime *string              `json:"scheduledTime"`
	Location      *string              `json:"location"`
	Assessors     []models.TNAAssessor `json:"assessors"`
	Notes         *string              `json:"notes"`
}

// Reschedule changes the date, place or team of a TNA that has not been held yet.
func (s *TNAService) Reschedule(ctx context.Context, actor *models.User, id uint, in RescheduleTNAInput) (*models.TNA, error) {
	if err := requireRole(actor, pstoReviewers...); err != nil {
		return nil, err
	}

	var tna *models.TNA
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		tna, err = s.loadForReviewer(tx, actor, id)
		if err != nil {
			return err
		}
		if err := requireStatus("TNA", tna.Status, models.TNAStatusScheduled); err != nil {
			return err
		}
		updates := map[string]interface{}{}
		if in.ScheduledDate != nil {
			updates["scheduled_date"] = *in.ScheduledDate
		}
		if in.ScheduledTime != nil {
			updates["scheduled_time"] = utils.SanitizeInput(*in.ScheduledTime)
		}
		if in.Location != nil {
			loc := utils.SanitizeInput(*in.Location)
			if loc == "" {
				return apperror.Required("location")
			}
			updates["location"] = loc
		}
		if in.Assessors != nil {
			updates["assessors"] = datatypes.JSONSlice[models.TNAAssessor](cleanAssessors(in.Assessors))
		}
		if in.Notes != nil {
			updates["notes"] = utils.SanitizeInput(*in.Notes)
		}
		if len(updates) == 0 {
			return apperror.BadRequest("Nothing to update")
		}
		if err := tx.Model(tna).Updates(updates).Error; err != nil {
			return apperror.Internal(err)
		}
		return tx.First(tna, tna.ID).Error
	})
	if err != nil {
		return nil, apperror.From(err)
	}

	s.notifyProponent(ctx, tna, nil, NotifyTNAUpdated, "TNA rescheduled",
		fmt.Sprintf("Your TNA was moved to %s %s at %s.", tna.ScheduledDate.Format("2006-01-02"), tna.ScheduledTime, tna.Location))
	return tna, nil
}

// MarkConducted records that the assessment took place.
func (s *TNAService) MarkConducted(ctx context.Context, actor *models.User, id uint, notes string) (*models.TNA, error) {
	return s.step(ctx, actor, id, ActionTNAConducted, models.TNAStatusScheduled, models.TNAStatusConducted, notes,
		func(now time.Time) map[string]interface{} { return map[string]interface{}{"conducted_at": now} },
		NotifyTNAUpdated, "TNA conducted", "Your technology needs assessment has been conducted.")
}

// UploadReport attaches the assessment report.
func (s *TNAService) UploadReport(ctx context.Context, actor *models.User, id uint, file *Upload, summary string) (*models.TNA, error) {
	if err := authorizeApplicationAction(ActionTNAReport, actor); err != nil {
		return nil, err
	}
	if file == nil {
		return nil, apperror.Required("report")
	}

	var tna *models.TNA
	var history *models.StatusHistory
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		tna, err = s.loadForReviewer(tx, actor, id)
		if err != nil {
			return err
		}
		if err := requireStatus("TNA", tna.Status, models.TNAStatusConducted); err != nil {
			return err
		}
		app, err := loadApplication(tx, tna.ApplicationID)
		if err != nil {
			return err
		}
		stored, err := s.files.Save(tx, "report", file, FileCategoryTNAReport, actor.ID)
		if err != nil {
			return err
		}

		now := time.Now()
		summary = utils.SanitizeInput(summary)
		history, err = changeStatus(tx, tna, models.EntityTNA, tna.ID, tna.Status, models.TNAStatusReportUploaded, "upload_report", actor.ID, summary,
			map[string]interface{}{"report_file_id": stored.ID, "report_summary": summary, "report_uploaded_at": now})
		if err != nil {
			return err
		}
		tna.ReportFile = stored
		_, err = advanceApplication(tx, app, ActionTNAReport, actor.ID, summary, nil)
		return err
	})
	if err != nil {
		return nil, apperror.From(err)
	}

	s.notifyProponent(ctx, tna, history, NotifyTNAUpdated, "TNA report submitted", "The report of your technology needs assessment has been submitted.")
	return tna, nil
}

// Forward sends the report to the regional office.
func (s *TNAService) Forward(ctx context.Context, actor *models.User, id uint, comments string) (*models.TNA, error) {
	if err := requireRole(actor, pstoReviewers...); err != nil {
		return nil, err
	}

	var tna *models.TNA
	var history *models.StatusHistory
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		tna, err = s.loadForReviewer(tx, actor, id)
		if err != nil {
			return err
		}
		if err := requireStatus("TNA", tna.Status, models.TNAStatusReportUploaded); err != nil {
			return err
		}
		now := time.Now()
		history, err = changeStatus(tx, tna, models.EntityTNA, tna.ID, tna.Status, models.TNAStatusForwardedToDOST, "forward", actor.ID, comments,
			map[string]interface{}{"forwarded_by": actor.ID, "forwarded_at": now})
		return err
	})
	if err != nil {
		return nil, apperror.From(err)
	}

	s.notifier.NotifyRole(ctx, models.RoleDOSTMimaropa, "", models.Notification{
		Type:          NotifyTNAForwarded,
		Title:         "TNA report forwarded for review",
		Message:       fmt.Sprintf("The TNA report for application %d (%s) is ready for review.", tna.ApplicationID, tna.Province),
		ApplicationID: uintPtr(tna.ApplicationID),
		RelatedType:   models.EntityTNA,
		RelatedID:     uintPtr(tna.ID),
		DedupeKey:     fmt.Sprintf("history:%d", history.ID),
	})
	return tna, nil
}

type DOSTReviewInput struct {
	Action   string `json:"action" binding:"required,oneof=approve reject"`
	Comments string `json:"comments"`
}

// DOSTReview records the regional decision on a forwarded report. Approval
// moves the application to dost_mimaropa_approved, rejection to
// dost_mimaropa_rejected.
func (s *TNAService) DOSTReview(ctx context.Context, actor *models.User, id uint, in DOSTReviewInput) (*models.TNA, error) {
	var action, tnaStatus string
	switch in.Action {
	case "approve":
		action, tnaStatus = ActionDOSTApprove, models.TNAStatusDOSTApproved
	case "reject":
		action, tnaStatus = ActionDOSTReject, models.TNAStatusDOSTRejected
	default:
		return nil, apperror.Validation(apperror.FieldError{Field: "action", Message: "action must be one of approve, reject"})
	}
	if err := authorizeApplicationAction(action, actor); err != nil {
		return nil, err
	}

	var tna models.TNA
	var history *models.StatusHistory
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&tna, id).Error; err != nil {
			return lookupErr(err, "TNA")
		}
		if err := requireStatus("TNA", tna.Status, models.TNAStatusForwardedToDOST); err != nil {
			return err
		}
		app, err := loadApplication(tx, tna.ApplicationID)
		if err != nil {
			return err
		}

		now := time.Now()
		comments := utils.SanitizeInput(in.Comments)
		if _, err := changeStatus(tx, &tna, models.EntityTNA, tna.ID, tna.Status, tnaStatus, action, actor.ID, comments,
			map[string]interface{}{"dost_reviewed_by": actor.ID, "dost_reviewed_at": now, "dost_comments": comments}); err != nil {
			return err
		}
		history, err = advanceApplication(tx, app, action, actor.ID, comments,
			map[string]interface{}{"dost_reviewed_by": actor.ID, "dost_reviewed_at": now, "dost_comments": comments})
		return err
	})
	if err != nil {
		return nil, apperror.From(err)
	}

	title := "Application approved by DOST MIMAROPA"
	if in.Action == "reject" {
		title = "Application not approved by DOST MIMAROPA"
	}
	s.notifyProponent(ctx, &tna, history, NotifyTNAReviewed, title, strings.TrimSpace("The regional office reviewed your TNA report. "+in.Comments))
	s.notifyAssignedPSTO(ctx, &tna, history, title)
	return &tna, nil
}

// DOSTReviewByApplication runs DOSTReview on the application's TNA.
func (s *TNAService) DOSTReviewByApplication(ctx context.Context, actor *models.User, applicationID uint, in DOSTReviewInput) (*models.TNA, error) {
	var tna models.TNA
	if err := s.db.Where("application_id = ?", applicationID).First(&tna).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.BadRequest("Application has no TNA to review")
		}
		return nil, apperror.Internal(err)
	}
	return s.DOSTReview(ctx, actor, tna.ID, in)
}

// RDSign records the regional director's signature on an approved TNA.
func (s *TNAService) RDSign(ctx context.Context, actor *models.User, id uint, comments string) (*models.TNA, error) {
	if err := requireRole(actor, dostReviewers...); err != nil {
		return nil, err
	}
	var tna models.TNA
	var history *models.StatusHistory
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&tna, id).Error; err != nil {
			return lookupErr(err, "TNA")
		}
		if err := requireStatus("TNA", tna.Status, models.TNAStatusDOSTApproved); err != nil {
			return err
		}
		var err error
		history, err = changeStatus(tx, &tna, models.EntityTNA, tna.ID, tna.Status, models.TNAStatusSignedByRD, "rd_sign", actor.ID, comments,
			map[string]interface{}{"rd_signed_by": actor.ID, "rd_signed_at": time.Now()})
		return err
	})
	if err != nil {
		return nil, apperror.From(err)
	}
	s.notifyAssignedPSTO(ctx, &tna, history, "TNA signed by the Regional Director")
	return &tna, nil
}

// step applies a simple TNA transition that mirrors an application action.
func (s *TNAService) step(ctx context.Context, actor *models.User, id uint, action, from, to, notes string,
	extra func(now time.Time) map[string]interface{}, notifyType, title, message string) (*models.TNA, error) {
	if err := authorizeApplicationAction(action, actor); err != nil {
		return nil, err
	}
	var tna *models.TNA
	var history *models.StatusHistory
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		tna, err = s.loadForReviewer(tx, actor, id)
		if err != nil {
			return err
		}
		if err := requireStatus("TNA", tna.Status, from); err != nil {
			return err
		}
		app, err := loadApplication(tx, tna.ApplicationID)
		if err != nil {
			return err
		}
		notes = utils.SanitizeInput(notes)
		history, err = changeStatus(tx, tna, models.EntityTNA, tna.ID, tna.Status, to, action, actor.ID, notes, extra(time.Now()))
		if err != nil {
			return err
		}
		_, err = advanceApplication(tx, app, action, actor.ID, notes, nil)
		return err
	})
	if err != nil {
		return nil, apperror.From(err)
	}
	s.notifyProponent(ctx, tna, history, notifyType, title, message)
	return tna, nil
}

type TNAFilter struct {
	Status   string
	Province string
	Page     Page
}

type TNAList struct {
	Items  []models.TNA `json:"items"`
	Total  int64        `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

func (s *TNAService) List(actor *models.User, f TNAFilter) (*TNAList, error) {
	page := f.Page.normalize(20, 100)
	q := s.db.Model(&models.TNA{})
	switch actor.Role {
	case models.RoleProponent:
		q = q.Where("tnas.proponent_id = ?", actor.ID)
	case models.RolePSTO:
		q = q.Joins("JOIN applications ON applications.id = tnas.application_id")
		q = scopeApplications(q, actor, "applications.")
	}
	if f.Status != "" {
		q = q.Where("tnas.status = ?", f.Status)
	}
	if p := models.NormalizeProvince(f.Province); p != "" {
		q = q.Where("tnas.province = ?", p)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, apperror.Internal(err)
	}
	items := []models.TNA{}
	if err := q.Preload("Application").Order("tnas.scheduled_date DESC, tnas.id DESC").
		Limit(page.Limit).Offset(page.Offset).Find(&items).Error; err != nil {
		return nil, apperror.Internal(err)
	}
	return &TNAList{Items: items, Total: total, Limit: page.Limit, Offset: page.Offset}, nil
}

func (s *TNAService) Get(actor *models.User, id uint) (*models.TNA, error) {
	var tna models.TNA
	if err := s.db.Preload("Application").Preload("ReportFile").First(&tna, id).Error; err != nil {
		return nil, lookupErr(err, "TNA")
	}
	if !canViewApplication(actor, tna.Application) {
		return nil, apperror.Forbidden("You do not have access to this TNA")
	}
	return &tna, nil
}

func (s *TNAService) GetByApplication(actor *models.User, applicationID uint) (*models.TNA, error) {
	var tna models.TNA
	if err := s.db.Select("id").Where("application_id = ?", applicationID).First(&tna).Error; err != nil {
		return nil, lookupErr(err, "TNA")
	}
	return s.Get(actor, tna.ID)
}

// ReportFile returns the stored report for download.
func (s *TNAService) ReportFile(actor *models.User, id uint) (*models.StoredFile, error) {
	tna, err := s.Get(actor, id)
	if err != nil {
		return nil, err
	}
	if tna.ReportFile == nil {
		return nil, apperror.NotFound("TNA report")
	}
	return tna.ReportFile, nil
}

func (s *TNAService) Files() *FileService { return s.files }

func (s *TNAService) loadForReviewer(tx *gorm.DB, actor *models.User, id uint) (*models.TNA, error) {
	var tna models.TNA
	if err := tx.Preload("Application").First(&tna, id).Error; err != nil {
		return nil, lookupErr(err, "TNA")
	}
	if err := requireProvincialReviewer(actor, tna.Application); err != nil {
		return nil, err
	}
	return &tna, nil
}

func (s *TNAService) notifyProponent(ctx context.Context, tna *models.TNA, history *models.StatusHistory, typ, title, message string) {
	key := ""
	if history != nil {
		key = fmt.Sprintf("history:%d", history.ID)
	}
	s.notifier.NotifyUserID(ctx, tna.ProponentID, models.Notification{
		Type:          typ,
		Title:         title,
		Message:       message,
		ApplicationID: uintPtr(tna.ApplicationID),
		RelatedType:   models.EntityTNA,
		RelatedID:     uintPtr(tna.ID),
		DedupeKey:     key,
	})
}

func (s *TNAService) notifyAssignedPSTO(ctx context.Context, tna *models.TNA, history *models.StatusHistory, title string) {
	app, err := loadApplication(s.db, tna.ApplicationID)
	if err != nil || app.AssignedPSTOID == nil {
		return
	}
	key := ""
	if history != nil {
		key = fmt.Sprintf("history:%d", history.ID)
	}
	s.notifier.NotifyUserID(ctx, *app.AssignedPSTOID, models.Notification{
		Type:          NotifyTNAReviewed,
		Title:         title,
		Message:       fmt.Sprintf("%s: TNA of application %s is now %s.", title, app.ApplicationNumber, tna.Status),
		ApplicationID: uintPtr(app.ID),
		RelatedType:   models.EntityTNA,
		RelatedID:     uintPtr(tna.ID),
		DedupeKey:     key,
	})
}

func cleanAssessors(in []models.TNAAssessor) []models.TNAAssessor {
	out := make([]models.TNAAssessor, 0, len(in))
	for _, a := range in {
		a.Name = utils.SanitizeInput(a.Name)
		a.Role = utils.SanitizeInput(a.Role)
		if a.Name == "" {
			continue
		}
		out = append(out, a)
	}
	return out
}
