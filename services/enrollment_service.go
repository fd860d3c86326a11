package services

import (
	"context"
	"errors"
	"time"

	"dost-pmns-api/apperror"
	"dost-pmns-api/models"
	"dost-pmns-api/utils"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// enrichConcurrency bounds the TNA lookups run per listing.
const enrichConcurrency = 8

type EnrollmentService struct {
	db *gorm.DB
}

func NewEnrollmentService(db *gorm.DB) *EnrollmentService {
	return &EnrollmentService{db: resolveDB(db)}
}

type EnrollInput struct {
	Program        string `json:"program" binding:"required"`
	ApplicationID  *uint  `json:"applicationId"`
	EnterpriseName string `json:"enterpriseName"`
}

// Enroll registers the proponent in a program, optionally tied to one of
// their applications.
func (s *EnrollmentService) Enroll(actor *models.User, in EnrollInput) (*models.Enrollment, error) {
	if err := requireRole(actor, models.RoleProponent); err != nil {
		return nil, err
	}
	code, err := NormalizeProgram(in.Program)
	if err != nil {
		return nil, apperror.Validation(apperror.FieldError{Field: "program", Message: "program must be one of SETUP, GIA, CEST, SSCP"})
	}

	e := &models.Enrollment{
		ProponentID:    actor.ID,
		ProgramCode:    code,
		EnterpriseName: utils.SanitizeInput(in.EnterpriseName),
		Status:         models.EnrollmentStatusEnrolled,
		EnrolledAt:     time.Now(),
	}
	if e.EnterpriseName == "" {
		e.EnterpriseName = actor.EnterpriseName
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if in.ApplicationID != nil {
			app, err := loadApplication(tx, *in.ApplicationID)
			if err != nil {
				return err
			}
			if app.ProponentID != actor.ID {
				return apperror.Forbidden("You can only enroll with your own application")
			}
			if app.Program != code {
				return apperror.BadRequest("Application %s is not a %s application", app.ApplicationNumber, code)
			}
			e.ApplicationID = uintPtr(app.ID)
			if e.EnterpriseName == "" {
				e.EnterpriseName = app.EnterpriseName
			}
		}

		var existing models.Enrollment
		err := tx.Where("proponent_id = ? AND program_code = ? AND status = ?", actor.ID, code, models.EnrollmentStatusEnrolled).
			First(&existing).Error
		if err == nil {
			return apperror.Conflict("You are already enrolled in " + code)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.Internal(err)
		}
		if err := tx.Create(e).Error; err != nil {
			return apperror.Internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, apperror.From(err)
	}
	return e, nil
}

type EnrollmentFilter struct {
	Program string
	Status  string
	Page    Page
}

type EnrollmentList struct {
	Items  []models.Enrollment `json:"items"`
	Total  int64               `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

// List returns enrollments visible to actor, each with the TNA status of its
// linked application.
func (s *EnrollmentService) List(ctx context.Context, actor *models.User, f EnrollmentFilter) (*EnrollmentList, error) {
	page := f.Page.normalize(20, 100)
	q := s.db.WithContext(ctx).Model(&models.Enrollment{})
	switch actor.Role {
	case models.RoleProponent:
		q = q.Where("enrollments.proponent_id = ?", actor.ID)
	case models.RolePSTO:
		q = q.Joins("JOIN users ON users.id = enrollments.proponent_id").Where("users.province = ?", actor.ProvinceName())
	}
	if f.Program != "" {
		q = q.Where("enrollments.program_code = ?", f.Program)
	}
	if f.Status != "" {
		q = q.Where("enrollments.status = ?", f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, apperror.Internal(err)
	}
	items := []models.Enrollment{}
	if err := q.Preload("Proponent").Order("enrollments.enrolled_at DESC, enrollments.id DESC").
		Limit(page.Limit).Offset(page.Offset).Find(&items).Error; err != nil {
		return nil, apperror.Internal(err)
	}
	if err := s.enrichTNAStatus(ctx, items); err != nil {
		return nil, apperror.Internal(err)
	}
	return &EnrollmentList{Items: items, Total: total, Limit: page.Limit, Offset: page.Offset}, nil
}

func (s *EnrollmentService) enrichTNAStatus(ctx context.Context, items []models.Enrollment) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)
	for i := range items {
		if items[i].ApplicationID == nil {
			continue
		}
		e := &items[i]
		g.Go(func() error {
			var tna models.TNA
			err := s.db.WithContext(gctx).Select("status").Where("application_id = ?", *e.ApplicationID).First(&tna).Error
			switch {
			case err == nil:
				e.TNAStatus = tna.Status
			case errors.Is(err, gorm.ErrRecordNotFound):
			default:
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

// Withdraw ends an enrollment. Proponents withdraw their own, super_admin any.
func (s *EnrollmentService) Withdraw(actor *models.User, id uint) (*models.Enrollment, error) {
	if err := requireRole(actor, models.RoleProponent, models.RoleSuperAdmin); err != nil {
		return nil, err
	}
	var e models.Enrollment
	if err := s.db.First(&e, id).Error; err != nil {
		return nil, lookupErr(err, "Enrollment")
	}
	if actor.Role == models.RoleProponent && e.ProponentID != actor.ID {
		return nil, apperror.Forbidden("You can only withdraw your own enrollment")
	}
	if e.Status == models.EnrollmentStatusWithdrawn {
		return nil, apperror.BadRequest("Enrollment is already withdrawn")
	}
	now := time.Now()
	res := s.db.Model(&e).Where("status = ?", models.EnrollmentStatusEnrolled).
		Updates(map[string]interface{}{"status": models.EnrollmentStatusWithdrawn, "withdrawn_at": now})
	if res.Error != nil {
		return nil, apperror.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperror.Conflict("Enrollment was changed by another request, reload and try again")
	}
	return &e, nil
}
