package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dost-pmns-api/apperror"
	"dost-pmns-api/models"
	"dost-pmns-api/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Application file fields.
const (
	FileLetterOfIntent    = "letterOfIntent"
	FileEnterpriseProfile = "enterpriseProfile"
)

type ApplicationService struct {
	db       *gorm.DB
	files    *FileService
	notifier *NotificationService
}

func NewApplicationService(db *gorm.DB) *ApplicationService {
	db = resolveDB(db)
	return &ApplicationService{db: db, files: NewFileService(db), notifier: NewNotificationService(db)}
}

// ApplicationInput is the enterprise profile a proponent submits. Which
// fields are required depends on the program.
type ApplicationInput struct {
	EnterpriseName     string  `form:"enterpriseName" json:"enterpriseName"`
	ContactPerson      string  `form:"contactPerson" json:"contactPerson"`
	Position           string  `form:"position" json:"position"`
	OfficeAddress      string  `form:"officeAddress" json:"officeAddress"`
	FactoryAddress     string  `form:"factoryAddress" json:"factoryAddress"`
	ContactNumber      string  `form:"contactNumber" json:"contactNumber"`
	Email              string  `form:"email" json:"email"`
	Website            string  `form:"website" json:"website"`
	Province           string  `form:"province" json:"province"`
	YearEstablished    int     `form:"yearEstablished" json:"yearEstablished"`
	BusinessActivity   string  `form:"businessActivity" json:"businessActivity"`
	EnterpriseType     string  `form:"enterpriseType" json:"enterpriseType"`
	InitialCapital     float64 `form:"initialCapital" json:"initialCapital"`
	TotalAssets        float64 `form:"totalAssets" json:"totalAssets"`
	NumberOfEmployees  int     `form:"numberOfEmployees" json:"numberOfEmployees"`
	ProjectTitle       string  `form:"projectTitle" json:"projectTitle"`
	ProjectDescription string  `form:"projectDescription" json:"projectDescription"`
	RequestedAmount    float64 `form:"requestedAmount" json:"requestedAmount"`

	LetterOfIntent    *Upload `form:"-" json:"-"`
	EnterpriseProfile *Upload `form:"-" json:"-"`
}

func (in *ApplicationInput) sanitize() {
	for _, f := range []*string{
		&in.EnterpriseName, &in.ContactPerson, &in.Position, &in.OfficeAddress, &in.FactoryAddress,
		&in.ContactNumber, &in.Website, &in.BusinessActivity, &in.EnterpriseType, &in.ProjectTitle,
		&in.ProjectDescription,
	} {
		*f = utils.SanitizeInput(*f)
	}
	in.Email = utils.NormalizeEmail(in.Email)
	if p := models.NormalizeProvince(in.Province); p != "" {
		in.Province = p
	} else {
		in.Province = strings.TrimSpace(in.Province)
	}
}

// present reports which fields carry a value, keyed by JSON name.
func (in *ApplicationInput) present() map[string]bool {
	return map[string]bool{
		"enterpriseName":     in.EnterpriseName != "",
		"contactPerson":      in.ContactPerson != "",
		"position":           in.Position != "",
		"officeAddress":      in.OfficeAddress != "",
		"factoryAddress":     in.FactoryAddress != "",
		"contactNumber":      in.ContactNumber != "",
		"email":              in.Email != "",
		"website":            in.Website != "",
		"province":           in.Province != "",
		"yearEstablished":    in.YearEstablished > 0,
		"businessActivity":   in.BusinessActivity != "",
		"enterpriseType":     in.EnterpriseType != "",
		"projectTitle":       in.ProjectTitle != "",
		"projectDescription": in.ProjectDescription != "",
	}
}

// validate returns every missing or malformed field at once.
func (in *ApplicationInput) validate(program string) []apperror.FieldError {
	var fields []apperror.FieldError
	have := in.present()
	for _, name := range ProgramRequiredFields[program] {
		if !have[name] {
			fields = append(fields, apperror.FieldError{Field: name, Message: name + " is required"})
		}
	}
	if in.Email != "" && !utils.ValidateEmail(in.Email) {
		fields = append(fields, apperror.FieldError{Field: "email", Message: "email is invalid"})
	}
	if in.Province != "" && models.NormalizeProvince(in.Province) == "" {
		fields = append(fields, apperror.FieldError{Field: "province", Message: "province must be one of " + strings.Join(models.Provinces, ", ")})
	}
	if in.YearEstablished != 0 && (in.YearEstablished < 1900 || in.YearEstablished > time.Now().Year()) {
		fields = append(fields, apperror.FieldError{Field: "yearEstablished", Message: "yearEstablished is invalid"})
	}
	return fields
}

func (in *ApplicationInput) columns() map[string]interface{} {
	return map[string]interface{}{
		"enterprise_name":     in.EnterpriseName,
		"contact_person":      in.ContactPerson,
		"position":            in.Position,
		"office_address":      in.OfficeAddress,
		"factory_address":     in.FactoryAddress,
		"contact_number":      in.ContactNumber,
		"email":               in.Email,
		"website":             in.Website,
		"province":            in.Province,
		"year_established":    in.YearEstablished,
		"business_activity":   in.BusinessActivity,
		"enterprise_type":     in.EnterpriseType,
		"initial_capital":     in.InitialCapital,
		"total_assets":        in.TotalAssets,
		"number_of_employees": in.NumberOfEmployees,
		"project_title":       in.ProjectTitle,
		"project_description": in.ProjectDescription,
		"requested_amount":    in.RequestedAmount,
	}
}

// NormalizeProgram maps a route segment such as "setup" to its program code.
func NormalizeProgram(program string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(program))
	if _, ok := ProgramRequiredFields[code]; !ok {
		return "", apperror.NotFound("Program " + program)
	}
	return code, nil
}

// Submit creates a pending application and routes it to the psto of its
// province.
func (s *ApplicationService) Submit(ctx context.Context, actor *models.User, program string, in ApplicationInput) (*models.Application, error) {
	if err := requireRole(actor, models.RoleProponent); err != nil {
		return nil, err
	}
	code, err := NormalizeProgram(program)
	if err != nil {
		return nil, err
	}
	if p, err := programByCode(s.db, code); err != nil {
		return nil, apperror.Internal(err)
	} else if p != nil && !p.IsActive {
		return nil, apperror.BadRequest("%s is not accepting applications", code)
	}
	in.sanitize()
	fields := in.validate(code)
	if in.LetterOfIntent == nil {
		fields = append(fields, apperror.FieldError{Field: FileLetterOfIntent, Message: FileLetterOfIntent + " is required"})
	}
	if in.EnterpriseProfile == nil {
		fields = append(fields, apperror.FieldError{Field: FileEnterpriseProfile, Message: FileEnterpriseProfile + " is required"})
	}
	if len(fields) > 0 {
		return nil, apperror.Validation(fields...)
	}
	if err := s.files.Validate(FileLetterOfIntent, in.LetterOfIntent); err != nil {
		return nil, err
	}
	if err := s.files.Validate(FileEnterpriseProfile, in.EnterpriseProfile); err != nil {
		return nil, err
	}

	psto, err := PSTOForProvince(s.db, in.Province)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if psto == nil {
		logger().WithField("province", in.Province).Warn("no active psto user for province, application left unassigned")
	}

	now := time.Now()
	app := &models.Application{
		ApplicationNumber:  newApplicationNumber(code, now),
		Program:            code,
		ProponentID:        actor.ID,
		EnterpriseName:     in.EnterpriseName,
		ContactPerson:      in.ContactPerson,
		Position:           in.Position,
		OfficeAddress:      in.OfficeAddress,
		FactoryAddress:     in.FactoryAddress,
		ContactNumber:      in.ContactNumber,
		Email:              in.Email,
		Website:            in.Website,
		Province:           in.Province,
		YearEstablished:    in.YearEstablished,
		BusinessActivity:   in.BusinessActivity,
		EnterpriseType:     in.EnterpriseType,
		InitialCapital:     in.InitialCapital,
		TotalAssets:        in.TotalAssets,
		NumberOfEmployees:  in.NumberOfEmployees,
		ProjectTitle:       in.ProjectTitle,
		ProjectDescription: in.ProjectDescription,
		RequestedAmount:    in.RequestedAmount,
		Status:             models.ApplicationStatusPending,
		PSTOStatus:         models.PSTOStatusPending,
		SubmittedAt:        now,
	}
	if psto != nil {
		app.AssignedPSTOID = uintPtr(psto.ID)
	}

	var history *models.StatusHistory
	err = s.db.Transaction(func(tx *gorm.DB) error {
		loi, err := s.files.Save(tx, FileLetterOfIntent, in.LetterOfIntent, FileCategoryLetterOfIntent, actor.ID)
		if err != nil {
			return err
		}
		profile, err := s.files.Save(tx, FileEnterpriseProfile, in.EnterpriseProfile, FileCategoryEnterpriseProfile, actor.ID)
		if err != nil {
			return err
		}
		app.LetterOfIntentFileID = uintPtr(loi.ID)
		app.EnterpriseProfileFileID = uintPtr(profile.ID)
		if err := tx.Create(app).Error; err != nil {
			return apperror.Internal(err)
		}
		app.LetterOfIntent, app.EnterpriseProfile = loi, profile
		history, err = recordHistory(tx, models.EntityApplication, app.ID, "", app.Status, "submit", actor.ID, "")
		if err != nil {
			return apperror.Internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, apperror.From(err)
	}

	key := fmt.Sprintf("history:%d", history.ID)
	if psto != nil {
		s.notifier.Notify(ctx, models.Notification{
			RecipientID:   psto.ID,
			RecipientRole: psto.Role,
			Type:          NotifyApplicationSubmitted,
			Title:         "New " + code + " application",
			Message:       fmt.Sprintf("%s submitted application %s for %s.", app.EnterpriseName, app.ApplicationNumber, code),
			ApplicationID: uintPtr(app.ID),
			RelatedType:   models.EntityApplication,
			RelatedID:     uintPtr(app.ID),
			DedupeKey:     recipientKey(key, psto.ID),
		})
	}
	s.notifier.Notify(ctx, models.Notification{
		RecipientID:   actor.ID,
		RecipientRole: actor.Role,
		Type:          NotifyApplicationReceived,
		Title:         "Application received",
		Message:       fmt.Sprintf("Your %s application %s was received and is pending provincial review.", code, app.ApplicationNumber),
		ApplicationID: uintPtr(app.ID),
		RelatedType:   models.EntityApplication,
		RelatedID:     uintPtr(app.ID),
		DedupeKey:     recipientKey(key, actor.ID),
	})
	return app, nil
}

func newApplicationNumber(program string, now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s-%s-%s", program, now.Format("20060102"), suffix)
}

type ApplicationFilter struct {
	Program    string
	Status     string
	PSTOStatus string
	Province   string
	Search     string
	Page       Page
}

type ApplicationList struct {
	Items  []models.Application `json:"items"`
	Total  int64                `json:"total"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

func (s *ApplicationService) List(actor *models.User, f ApplicationFilter) (*ApplicationList, error) {
	page := f.Page.normalize(20, 100)
	q := scopeApplications(s.db.Model(&models.Application{}), actor, "")
	if f.Program != "" {
		code, err := NormalizeProgram(f.Program)
		if err != nil {
			return nil, err
		}
		q = q.Where("program = ?", code)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.PSTOStatus != "" {
		q = q.Where("psto_status = ?", f.PSTOStatus)
	}
	if p := models.NormalizeProvince(f.Province); p != "" {
		q = q.Where("province = ?", p)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("(LOWER(enterprise_name) LIKE ? OR LOWER(application_number) LIKE ? OR LOWER(project_title) LIKE ?)", like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, apperror.Internal(err)
	}
	items := []models.Application{}
	if err := q.Order("submitted_at DESC, id DESC").Limit(page.Limit).Offset(page.Offset).Find(&items).Error; err != nil {
		return nil, apperror.Internal(err)
	}
	return &ApplicationList{Items: items, Total: total, Limit: page.Limit, Offset: page.Offset}, nil
}

func (s *ApplicationService) Get(actor *models.User, id uint) (*models.Application, error) {
	var app models.Application
	err := s.db.Preload("Proponent").Preload("AssignedPSTO").
		Preload("LetterOfIntent").Preload("EnterpriseProfile").
		First(&app, id).Error
	if err != nil {
		return nil, lookupErr(err, "Application")
	}
	if !canViewApplication(actor, &app) {
		return nil, apperror.Forbidden("You do not have access to this application")
	}
	return &app, nil
}

// Resubmit lets the proponent correct an application the psto returned.
func (s *ApplicationService) Resubmit(ctx context.Context, actor *models.User, id uint, in ApplicationInput) (*models.Application, error) {
	if err := authorizeApplicationAction(ActionResubmit, actor); err != nil {
		return nil, err
	}

	var app *models.Application
	var history *models.StatusHistory
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		app, err = loadApplication(tx, id)
		if err != nil {
			return err
		}
		if app.ProponentID != actor.ID {
			return apperror.Forbidden("You can only resubmit your own application")
		}
		if app.PSTOStatus != models.PSTOStatusReturned {
			return apperror.BadRequest("Application can only be resubmitted after it was returned for revision (current: %s)", app.PSTOStatus)
		}

		in.sanitize()
		if fields := in.validate(app.Program); len(fields) > 0 {
			return apperror.Validation(fields...)
		}
		updates := in.columns()
		if in.LetterOfIntent != nil {
			f, err := s.files.Save(tx, FileLetterOfIntent, in.LetterOfIntent, FileCategoryLetterOfIntent, actor.ID)
			if err != nil {
				return err
			}
			updates["letter_of_intent_file_id"] = f.ID
		}
		if in.EnterpriseProfile != nil {
			f, err := s.files.Save(tx, FileEnterpriseProfile, in.EnterpriseProfile, FileCategoryEnterpriseProfile, actor.ID)
			if err != nil {
				return err
			}
			updates["enterprise_profile_file_id"] = f.ID
		}
		updates["psto_status"] = models.PSTOStatusPending
		updates["resubmitted_at"] = time.Now()
		if psto, err := PSTOForProvince(tx, in.Province); err == nil && psto != nil {
			updates["assigned_psto_id"] = psto.ID
		}

		history, err = advanceApplication(tx, app, ActionResubmit, actor.ID, "", updates)
		return err
	})
	if err != nil {
		return nil, apperror.From(err)
	}

	app, err = s.Get(actor, id)
	if err != nil {
		return nil, err
	}
	if app.AssignedPSTOID != nil {
		s.notifier.NotifyUserID(ctx, *app.AssignedPSTOID, models.Notification{
			Type:          NotifyApplicationResubmit,
			Title:         "Application resubmitted",
			Message:       fmt.Sprintf("%s resubmitted application %s.", app.EnterpriseName, app.ApplicationNumber),
			ApplicationID: uintPtr(app.ID),
			RelatedType:   models.EntityApplication,
			RelatedID:     uintPtr(app.ID),
			DedupeKey:     fmt.Sprintf("history:%d", history.ID),
		})
	}
	return app, nil
}

// PSTO review decisions.
const (
	PSTODecisionApprove = "approve"
	PSTODecisionReject  = "reject"
	PSTODecisionReturn  = "return"
)

// PSTOReview applies the provincial decision on a pending application.
func (s *ApplicationService) PSTOReview(ctx context.Context, actor *models.User, id uint, decision, comments string) (*models.Application, error) {
	var action, pstoStatus, title string
	switch decision {
	case PSTODecisionApprove:
		action, pstoStatus, title = ActionPSTOApprove, models.PSTOStatusApproved, "Application approved by PSTO"
	case PSTODecisionReject:
		action, pstoStatus, title = ActionPSTOReject, models.PSTOStatusRejected, "Application rejected by PSTO"
	case PSTODecisionReturn:
		action, pstoStatus, title = ActionPSTOReturn, models.PSTOStatusReturned, "Application returned for revision"
	default:
		return nil, apperror.BadRequest("Unknown decision %q", decision)
	}
	if err := authorizeApplicationAction(action, actor); err != nil {
		return nil, err
	}
	comments = utils.SanitizeInput(comments)
	if decision == PSTODecisionReturn && comments == "" {
		return nil, apperror.Required("comments")
	}

	var app *models.Application
	var history *models.StatusHistory
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		app, err = loadApplication(tx, id)
		if err != nil {
			return err
		}
		if err := requireProvincialReviewer(actor, app); err != nil {
			return err
		}
		if err := requireStatus("Application", app.Status, models.ApplicationStatusPending); err != nil {
			return err
		}
		if app.PSTOStatus != models.PSTOStatusPending {
			return apperror.BadRequest("Application PSTO status must be pending (current: %s)", app.PSTOStatus)
		}

		now := time.Now()
		updates := map[string]interface{}{
			"psto_status":      pstoStatus,
			"psto_comments":    comments,
			"psto_reviewed_by": actor.ID,
			"psto_reviewed_at": now,
		}
		if decision == PSTODecisionReturn {
			updates["returned_at"] = now
		}
		history, err = advanceApplication(tx, app, action, actor.ID, comments, updates)
		return err
	})
	if err != nil {
		return nil, apperror.From(err)
	}

	typ := NotifyApplicationStatus
	priority := models.PriorityNormal
	if decision == PSTODecisionReturn {
		typ, priority = NotifyApplicationReturned, models.PriorityHigh
	}
	message := fmt.Sprintf("Application %s: %s.", app.ApplicationNumber, strings.ToLower(title))
	if comments != "" {
		message += " " + comments
	}
	s.notifier.NotifyUserID(ctx, app.ProponentID, models.Notification{
		Type:          typ,
		Title:         title,
		Message:       message,
		ApplicationID: uintPtr(app.ID),
		RelatedType:   models.EntityApplication,
		RelatedID:     uintPtr(app.ID),
		Priority:      priority,
		DedupeKey:     fmt.Sprintf("history:%d", history.ID),
	})
	return s.Get(actor, id)
}

// DOSTReview records the regional decision through the application's TNA.
func (s *ApplicationService) DOSTReview(ctx context.Context, actor *models.User, id uint, in DOSTReviewInput) (*models.Application, error) {
	if _, err := NewTNAService(s.db).DOSTReviewByApplication(ctx, actor, id, in); err != nil {
		return nil, err
	}
	return s.Get(actor, id)
}

// StartImplementation and Complete are manual overrides of the transitions
// the funding and refund checklists normally perform.
func (s *ApplicationService) StartImplementation(ctx context.Context, actor *models.User, id uint, comments string) (*models.Application, error) {
	return s.override(ctx, actor, id, ActionStartImplementation, "implementation_started_at", comments)
}

func (s *ApplicationService) Complete(ctx context.Context, actor *models.User, id uint, comments string) (*models.Application, error) {
	return s.override(ctx, actor, id, ActionComplete, "completed_at", comments)
}

func (s *ApplicationService) override(ctx context.Context, actor *models.User, id uint, action, stampColumn, comments string) (*models.Application, error) {
	if err := authorizeApplicationAction(action, actor); err != nil {
		return nil, err
	}
	var app *models.Application
	var history *models.StatusHistory
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		app, err = loadApplication(tx, id)
		if err != nil {
			return err
		}
		history, err = advanceApplication(tx, app, action, actor.ID, utils.SanitizeInput(comments),
			map[string]interface{}{stampColumn: time.Now()})
		return err
	})
	if err != nil {
		return nil, apperror.From(err)
	}
	s.notifier.NotifyUserID(ctx, app.ProponentID, models.Notification{
		Type:          NotifyApplicationStatus,
		Title:         "Application status updated",
		Message:       fmt.Sprintf("Application %s is now %s.", app.ApplicationNumber, humanStatus(app.Status)),
		ApplicationID: uintPtr(app.ID),
		RelatedType:   models.EntityApplication,
		RelatedID:     uintPtr(app.ID),
		DedupeKey:     fmt.Sprintf("history:%d", history.ID),
	})
	return s.Get(actor, id)
}

// History returns the status history of the application and of its TNA.
func (s *ApplicationService) History(actor *models.User, id uint) ([]models.StatusHistory, error) {
	if _, err := s.Get(actor, id); err != nil {
		return nil, err
	}
	q := s.db.Where("entity_type = ? AND entity_id = ?", models.EntityApplication, id)
	var tna models.TNA
	if err := s.db.Select("id").Where("application_id = ?", id).First(&tna).Error; err == nil {
		q = q.Or("entity_type = ? AND entity_id = ?", models.EntityTNA, tna.ID)
	}
	rows := []models.StatusHistory{}
	if err := q.Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, apperror.Internal(err)
	}
	return rows, nil
}

// File returns one of the application's uploaded files.
func (s *ApplicationService) File(actor *models.User, id uint, field string) (*models.StoredFile, error) {
	app, err := s.Get(actor, id)
	if err != nil {
		return nil, err
	}
	var f *models.StoredFile
	switch field {
	case FileLetterOfIntent:
		f = app.LetterOfIntent
	case FileEnterpriseProfile:
		f = app.EnterpriseProfile
	default:
		return nil, apperror.BadRequest("File type must be %s or %s", FileLetterOfIntent, FileEnterpriseProfile)
	}
	if f == nil {
		return nil, apperror.NotFound("File")
	}
	return f, nil
}

func (s *ApplicationService) Files() *FileService { return s.files }
