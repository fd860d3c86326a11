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

	"gorm.io/gorm"
)

type UserService struct {
	db       *gorm.DB
	notifier *NotificationService
}

func NewUserService(db *gorm.DB) *UserService {
	db = resolveDB(db)
	return &UserService{db: db, notifier: NewNotificationService(db)}
}

type UserFilter struct {
	Role     string
	Province string
	Status   string
	Search   string
	Page     Page
}

type UserList struct {
	Items  []models.User `json:"items"`
	Total  int64         `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

func (s *UserService) List(f UserFilter) (*UserList, error) {
	page := f.Page.normalize(50, 200)
	q := s.db.Model(&models.User{})
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	if p := models.NormalizeProvince(f.Province); p != "" {
		q = q.Where("province = ?", p)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		like := "%" + term + "%"
		q = q.Where("(first_name LIKE ? OR last_name LIKE ? OR email LIKE ? OR enterprise_name LIKE ?)", like, like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, apperror.Internal(err)
	}
	items := []models.User{}
	if err := q.Order("id DESC").Limit(page.Limit).Offset(page.Offset).Find(&items).Error; err != nil {
		return nil, apperror.Internal(err)
	}
	return &UserList{Items: items, Total: total, Limit: page.Limit, Offset: page.Offset}, nil
}

func (s *UserService) Get(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, lookupErr(err, "User")
	}
	return &user, nil
}

type CreateUserInput struct {
	FirstName      string `json:"firstName" binding:"required"`
	LastName       string `json:"lastName" binding:"required"`
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required,min=8"`
	Role           string `json:"role" binding:"required"`
	Province       string `json:"province"`
	Status         string `json:"status"`
	ContactNumber  string `json:"contactNumber"`
	EnterpriseName string `json:"enterpriseName"`
}

// Create adds an account of any role. Staff accounts start active; a psto
// account needs a province that has no psto yet.
func (s *UserService) Create(in CreateUserInput) (*models.User, error) {
	in.Email = utils.NormalizeEmail(in.Email)
	in.FirstName = utils.SanitizeInput(in.FirstName)
	in.LastName = utils.SanitizeInput(in.LastName)

	var fields []apperror.FieldError
	if in.FirstName == "" {
		fields = append(fields, apperror.FieldError{Field: "firstName", Message: "firstName is required"})
	}
	if in.LastName == "" {
		fields = append(fields, apperror.FieldError{Field: "lastName", Message: "lastName is required"})
	}
	if !utils.ValidateEmail(in.Email) {
		fields = append(fields, apperror.FieldError{Field: "email", Message: "email must be a valid email address"})
	}
	if ok, msg := utils.ValidatePassword(in.Password); !ok {
		fields = append(fields, apperror.FieldError{Field: "password", Message: msg})
	}
	if !models.IsValidRole(in.Role) {
		fields = append(fields, apperror.FieldError{Field: "role", Message: "role must be one of psto, dost_mimaropa, super_admin, proponent"})
	}
	province := models.NormalizeProvince(in.Province)
	if in.Province != "" && province == "" {
		fields = append(fields, apperror.FieldError{Field: "province", Message: "province must be one of " + strings.Join(models.Provinces, ", ")})
	}
	if (in.Role == models.RolePSTO || in.Role == models.RoleProponent) && in.Province == "" {
		fields = append(fields, apperror.FieldError{Field: "province", Message: "province is required for " + in.Role})
	}
	status := in.Status
	if status == "" {
		status = models.UserStatusActive
	}
	if status != models.UserStatusActive && status != models.UserStatusPending && status != models.UserStatusInactive {
		fields = append(fields, apperror.FieldError{Field: "status", Message: "status must be one of pending, active, inactive"})
	}
	if len(fields) > 0 {
		return nil, apperror.Validation(fields...)
	}

	user := &models.User{
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Email:          in.Email,
		Password:       in.Password,
		Role:           in.Role,
		Status:         status,
		ContactNumber:  utils.SanitizeInput(in.ContactNumber),
		EnterpriseName: utils.SanitizeInput(in.EnterpriseName),
	}
	if province != "" {
		user.Province = &province
	}
	if status == models.UserStatusActive {
		user.ActivatedAt = timePtr(time.Now())
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := ensureEmailAvailable(tx, user.Email, 0); err != nil {
			return err
		}
		if user.Role == models.RolePSTO {
			if err := ensureProvinceHasNoPSTO(tx, province, 0); err != nil {
				return err
			}
		}
		if err := tx.Create(user).Error; err != nil {
			return apperror.Internal(err)
		}
		if user.Role == models.RolePSTO {
			return linkPSTOOffice(tx, province, user.ID)
		}
		return nil
	})
	if err != nil {
		return nil, apperror.From(err)
	}
	return user, nil
}

type UpdateUserInput struct {
	FirstName      *string `json:"firstName"`
	LastName       *string `json:"lastName"`
	Email          *string `json:"email"`
	Role           *string `json:"role"`
	Province       *string `json:"province"`
	Status         *string `json:"status"`
	ContactNumber  *string `json:"contactNumber"`
	EnterpriseName *string `json:"enterpriseName"`
}

func (s *UserService) Update(id uint, in UpdateUserInput) (*models.User, error) {
	var user models.User
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			return lookupErr(err, "User")
		}

		if in.FirstName != nil {
			user.FirstName = utils.SanitizeInput(*in.FirstName)
		}
		if in.LastName != nil {
			user.LastName = utils.SanitizeInput(*in.LastName)
		}
		if in.ContactNumber != nil {
			user.ContactNumber = utils.SanitizeInput(*in.ContactNumber)
		}
		if in.EnterpriseName != nil {
			user.EnterpriseName = utils.SanitizeInput(*in.EnterpriseName)
		}
		if in.Email != nil {
			email := utils.NormalizeEmail(*in.Email)
			if !utils.ValidateEmail(email) {
				return apperror.Validation(apperror.FieldError{Field: "email", Message: "email must be a valid email address"})
			}
			if err := ensureEmailAvailable(tx, email, user.ID); err != nil {
				return err
			}
			user.Email = email
		}
		if in.Role != nil {
			if !models.IsValidRole(*in.Role) {
				return apperror.Validation(apperror.FieldError{Field: "role", Message: "role is invalid"})
			}
			user.Role = *in.Role
		}
		if in.Province != nil {
			p := models.NormalizeProvince(*in.Province)
			if p == "" {
				return apperror.Validation(apperror.FieldError{Field: "province", Message: "province is invalid"})
			}
			user.Province = &p
		}
		if in.Status != nil {
			switch *in.Status {
			case models.UserStatusActive, models.UserStatusPending, models.UserStatusInactive:
				user.Status = *in.Status
			default:
				return apperror.Validation(apperror.FieldError{Field: "status", Message: "status is invalid"})
			}
		}
		if user.Role == models.RolePSTO {
			if user.ProvinceName() == "" {
				return apperror.Validation(apperror.FieldError{Field: "province", Message: "province is required for psto"})
			}
			if err := ensureProvinceHasNoPSTO(tx, user.ProvinceName(), user.ID); err != nil {
				return err
			}
		}
		if err := tx.Save(&user).Error; err != nil {
			return apperror.Internal(err)
		}
		if user.Role == models.RolePSTO {
			return linkPSTOOffice(tx, user.ProvinceName(), user.ID)
		}
		return nil
	})
	if err != nil {
		return nil, apperror.From(err)
	}
	return &user, nil
}

// Delete soft deletes the account.
func (s *UserService) Delete(actor *models.User, id uint) error {
	if actor != nil && actor.ID == id {
		return apperror.BadRequest("You cannot delete your own account")
	}
	res := s.db.Delete(&models.User{}, id)
	if res.Error != nil {
		return apperror.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("User")
	}
	return nil
}

// proponentScope decides which province a listing is limited to. A psto is
// always pinned to its own province; asking for another one is forbidden.
func proponentScope(actor *models.User, requested string) (string, error) {
	requested = models.NormalizeProvince(requested)
	switch actor.Role {
	case models.RolePSTO:
		own := actor.ProvinceName()
		if own == "" {
			return "", apperror.Forbidden("Your account has no province assigned")
		}
		if requested != "" && requested != own {
			return "", apperror.Forbidden("You can only access proponents in " + own)
		}
		return own, nil
	case models.RoleSuperAdmin, models.RoleDOSTMimaropa:
		return requested, nil
	}
	return "", apperror.Forbidden("")
}

func (s *UserService) ListProponents(actor *models.User, province, status string, page Page) (*UserList, error) {
	scope, err := proponentScope(actor, province)
	if err != nil {
		return nil, err
	}
	return s.List(UserFilter{Role: models.RoleProponent, Province: scope, Status: status, Page: page})
}

func (s *UserService) PendingProponents(actor *models.User, page Page) (*UserList, error) {
	return s.ListProponents(actor, "", models.UserStatusPending, page)
}

// SetProponentStatus activates or deactivates a proponent. A psto may only
// act on its own province.
func (s *UserService) SetProponentStatus(ctx context.Context, actor *models.User, id uint, status string) (*models.User, error) {
	if err := requireRole(actor, models.RolePSTO, models.RoleSuperAdmin); err != nil {
		return nil, err
	}
	if status != models.UserStatusActive && status != models.UserStatusInactive {
		return nil, apperror.BadRequest("Unsupported status %q", status)
	}

	var user models.User
	var history *models.StatusHistory
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND role = ?", id, models.RoleProponent).First(&user).Error; err != nil {
			return lookupErr(err, "Proponent")
		}
		if actor.Role == models.RolePSTO && user.ProvinceName() != actor.ProvinceName() {
			return apperror.Forbidden("You can only manage proponents in your province")
		}
		from := user.Status
		if from == status {
			return nil
		}

		updates := map[string]interface{}{"status": status}
		if status == models.UserStatusActive {
			now := time.Now()
			updates["activated_at"] = now
			updates["activated_by"] = actor.ID
			user.ActivatedAt = &now
			user.ActivatedBy = uintPtr(actor.ID)
		}
		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			return apperror.Internal(err)
		}

		action := "activate"
		if status == models.UserStatusInactive {
			action = "deactivate"
		}
		var err error
		history, err = recordHistory(tx, models.EntityUser, user.ID, from, status, action, actor.ID, "")
		if err != nil {
			return apperror.Internal(err)
		}
		user.Status = status
		return nil
	})
	if err != nil {
		return nil, apperror.From(err)
	}

	if history != nil {
		n := models.Notification{
			RecipientID:   user.ID,
			RecipientRole: user.Role,
			Type:          NotifyAccountActivated,
			Title:         "Account activated",
			Message:       "Your account has been activated. You can now log in and submit applications.",
			RelatedType:   models.EntityUser,
			RelatedID:     uintPtr(user.ID),
			Priority:      models.PriorityHigh,
			DedupeKey:     fmt.Sprintf("history:%d:%d", history.ID, user.ID),
		}
		if status == models.UserStatusInactive {
			n.Type = NotifyAccountDeactivated
			n.Title = "Account deactivated"
			n.Message = "Your account has been deactivated by your provincial office."
		}
		s.notifier.Notify(ctx, n)
	}
	return &user, nil
}

func ensureProvinceHasNoPSTO(tx *gorm.DB, province string, exceptID uint) error {
	var existing models.User
	q := tx.Where("role = ? AND province = ?", models.RolePSTO, province)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	err := q.First(&existing).Error
	if err == nil {
		return apperror.Conflict(fmt.Sprintf("Province %s already has a PSTO account (%s)", province, existing.Email))
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return apperror.Internal(err)
}

// linkPSTOOffice points the province office at its psto user when the office exists.
func linkPSTOOffice(tx *gorm.DB, province string, userID uint) error {
	if err := tx.Model(&models.PSTOOffice{}).Where("province = ?", province).Update("user_id", userID).Error; err != nil {
		return apperror.Internal(err)
	}
	return nil
}
