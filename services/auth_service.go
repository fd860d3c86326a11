package services

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"dost-pmns-api/apperror"
	"dost-pmns-api/config"
	"dost-pmns-api/models"
	"dost-pmns-api/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Claims is the signed session payload.
type Claims struct {
	ID     uint   `json:"id"`
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type AuthService struct {
	db       *gorm.DB
	cfg      *config.Config
	notifier *NotificationService

	Mailer Mailer
}

func NewAuthService(db *gorm.DB) *AuthService {
	db = resolveDB(db)
	cfg := config.Current()
	return &AuthService{
		db:       db,
		cfg:      cfg,
		notifier: NewNotificationService(db),
		Mailer:   config.NewSMTPMailer(cfg.SMTP),
	}
}

type RegisterInput struct {
	FirstName      string `json:"firstName" binding:"required"`
	LastName       string `json:"lastName" binding:"required"`
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required,min=8"`
	Province       string `json:"province" binding:"required"`
	ContactNumber  string `json:"contactNumber"`
	EnterpriseName string `json:"enterpriseName"`
}

// Register creates a pending proponent account and tells the provincial
// office about it.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.FirstName = utils.SanitizeInput(in.FirstName)
	in.LastName = utils.SanitizeInput(in.LastName)
	in.Email = utils.NormalizeEmail(in.Email)
	in.ContactNumber = utils.SanitizeInput(in.ContactNumber)
	in.EnterpriseName = utils.SanitizeInput(in.EnterpriseName)

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
	province := models.NormalizeProvince(in.Province)
	if province == "" {
		fields = append(fields, apperror.FieldError{Field: "province", Message: "province must be one of " + strings.Join(models.Provinces, ", ")})
	}
	if len(fields) > 0 {
		return nil, apperror.Validation(fields...)
	}

	if err := ensureEmailAvailable(s.db, in.Email, 0); err != nil {
		return nil, err
	}

	user := &models.User{
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Email:          in.Email,
		Password:       in.Password,
		Role:           models.RoleProponent,
		Province:       &province,
		Status:         models.UserStatusPending,
		ContactNumber:  in.ContactNumber,
		EnterpriseName: in.EnterpriseName,
	}
	if err := s.db.Create(user).Error; err != nil {
		return nil, apperror.Internal(err)
	}

	s.notifier.NotifyRole(ctx, models.RolePSTO, province, models.Notification{
		Type:        NotifyProponentRegistered,
		Title:       "New proponent registration",
		Message:     fmt.Sprintf("%s (%s) registered and is awaiting activation.", user.FullName(), user.Email),
		RelatedType: models.EntityUser,
		RelatedID:   uintPtr(user.ID),
		DedupeKey:   fmt.Sprintf("registered:%d", user.ID),
	})
	return user, nil
}

type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

// Login verifies the credentials and issues a session token.
func (s *AuthService) Login(email, password string) (*LoginResult, error) {
	email = utils.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperror.Required("email", "password")
	}

	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Unauthorized("Invalid email or password")
		}
		return nil, apperror.Internal(err)
	}

	ok, err := s.verifyPassword(&user, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.Unauthorized("Invalid email or password")
	}

	switch user.Status {
	case models.UserStatusPending:
		return nil, apperror.Forbidden("Account is pending activation by your provincial office")
	case models.UserStatusInactive:
		return nil, apperror.Forbidden("Account is inactive")
	}

	now := time.Now()
	if err := s.db.Model(&user).UpdateColumn("last_login_at", now).Error; err != nil {
		logger().WithError(err).WithField("user_id", user.ID).Warn("failed to record last login")
	}
	user.LastLoginAt = &now

	token, expiresAt, err := s.IssueToken(&user)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: &user}, nil
}

// verifyPassword compares against the bcrypt hash. Accounts still holding a
// plaintext password are accepted while legacy passwords are allowed and are
// re-hashed on the first successful login.
func (s *AuthService) verifyPassword(user *models.User, password string) (bool, error) {
	if models.IsPasswordHash(user.Password) {
		return models.CheckPasswordHash(password, user.Password), nil
	}
	if !s.cfg.AllowLegacyPasswd || user.Password == "" {
		return false, nil
	}
	if subtle.ConstantTimeCompare([]byte(user.Password), []byte(password)) != 1 {
		return false, nil
	}

	hashed, err := models.HashPassword(password)
	if err != nil {
		return false, apperror.Internal(err)
	}
	if err := s.db.Model(user).UpdateColumn("password", hashed).Error; err != nil {
		logger().WithError(err).WithField("user_id", user.ID).Warn("failed to upgrade legacy password")
	} else {
		logger().WithField("user_id", user.ID).Info("upgraded legacy plaintext password")
		user.Password = hashed
	}
	return true, nil
}

// IssueToken signs an HS256 token for user.
func (s *AuthService) IssueToken(user *models.User) (string, time.Time, error) {
	if s.cfg.JWTSecret == "" {
		return "", time.Time{}, errors.New("JWT_SECRET is not configured")
	}
	now := time.Now()
	expiresAt := now.Add(s.cfg.TokenTTL())
	claims := Claims{
		ID:     user.ID,
		UserID: user.UserCode,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(user.ID),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseToken validates the signature and expiry.
func (s *AuthService) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, apperror.Unauthorized("Invalid or expired token")
	}
	return claims, nil
}

// Principal re-reads the user named by claims. Removed or deactivated
// accounts are rejected even while their token is still valid.
func (s *AuthService) Principal(claims *Claims) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, claims.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Unauthorized("User not found")
		}
		return nil, apperror.Internal(err)
	}
	if user.Status != models.UserStatusActive {
		return nil, apperror.Unauthorized("Account is not active")
	}
	return &user, nil
}

// ChangePassword replaces the caller's password after checking the current one.
func (s *AuthService) ChangePassword(user *models.User, current, next string) error {
	ok, err := s.verifyPassword(user, current)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.BadRequest("Current password is incorrect")
	}
	if valid, msg := utils.ValidatePassword(next); !valid {
		return apperror.Validation(apperror.FieldError{Field: "newPassword", Message: msg})
	}
	hashed, err := models.HashPassword(next)
	if err != nil {
		return apperror.Internal(err)
	}
	if err := s.db.Model(user).UpdateColumn("password", hashed).Error; err != nil {
		return apperror.Internal(err)
	}
	user.Password = hashed
	return nil
}

type ForgotPasswordResult struct {
	// ResetURL is only filled in development.
	ResetURL string `json:"resetUrl,omitempty"`
}

// ForgotPassword issues a single-use reset token. Unknown emails succeed
// silently so accounts cannot be enumerated.
func (s *AuthService) ForgotPassword(email string) (*ForgotPasswordResult, error) {
	email = utils.NormalizeEmail(email)
	if !utils.ValidateEmail(email) {
		return nil, apperror.Validation(apperror.FieldError{Field: "email", Message: "email must be a valid email address"})
	}

	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ForgotPasswordResult{}, nil
		}
		return nil, apperror.Internal(err)
	}

	rawToken := strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	hashed := hashResetToken(rawToken)
	expires := time.Now().Add(s.cfg.PasswordResetTTL)

	if err := s.db.Model(&user).Updates(map[string]interface{}{
		"reset_password_token":   hashed,
		"reset_password_expires": expires,
	}).Error; err != nil {
		return nil, apperror.Internal(err)
	}

	resetURL, err := utils.BuildResetURL(s.cfg.AppBaseURL, rawToken)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	if err := s.sendPasswordResetEmail(user, resetURL); err != nil {
		logger().WithError(err).WithField("user_id", user.ID).Warn("password reset email not sent")
	}

	result := &ForgotPasswordResult{}
	if s.cfg.IsDevelopment() {
		result.ResetURL = resetURL
	}
	return result, nil
}

type ResetPasswordInput struct {
	Token           string `json:"token" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

// ResetPassword consumes the token and sets the new password.
func (s *AuthService) ResetPassword(in ResetPasswordInput) error {
	in.Token = utils.SanitizeInput(in.Token)
	if in.Token == "" {
		return apperror.Required("token")
	}
	if in.NewPassword != in.ConfirmPassword {
		return apperror.Validation(apperror.FieldError{Field: "confirmPassword", Message: "Passwords do not match"})
	}
	if ok, msg := utils.ValidatePassword(in.NewPassword); !ok {
		return apperror.Validation(apperror.FieldError{Field: "newPassword", Message: msg})
	}

	hashedPassword, err := models.HashPassword(in.NewPassword)
	if err != nil {
		return apperror.Internal(err)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		err := tx.Where("reset_password_token = ? AND reset_password_expires > ?", hashResetToken(in.Token), time.Now()).
			First(&user).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.BadRequest("Invalid or expired token")
			}
			return apperror.Internal(err)
		}
		return tx.Model(&user).Updates(map[string]interface{}{
			"password":               hashedPassword,
			"reset_password_token":   nil,
			"reset_password_expires": nil,
		}).Error
	})
}

func hashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func (s *AuthService) sendPasswordResetEmail(user models.User, resetURL string) error {
	if s.Mailer == nil {
		return nil
	}
	fullName := user.FullName()
	if fullName == "" {
		fullName = "user"
	}
	expiresIn := s.cfg.PasswordResetTTL.String()

	subject := "Password reset instructions"
	paragraphs := []string{
		fmt.Sprintf("Dear %s,", fullName),
		"We received a request to reset the password of your DOST MIMAROPA PMNS account.",
		fmt.Sprintf("Use the button below to choose a new password. The link expires in %s.", expiresIn),
		"If you did not request this, you can ignore this email.",
	}
	meta := []utils.EmailMetaItem{{Label: "Link expires in", Value: expiresIn}}

	escaped := template.HTMLEscapeString(resetURL)
	footerHTML := fmt.Sprintf(
		"If the button does not work, copy this link into your browser:<br /><a href=\"%s\" style=\"color:#2563eb;\">%s</a>",
		escaped, escaped,
	)

	html := utils.BuildEmailTemplate(subject, paragraphs, meta, "Reset password", resetURL, footerHTML)
	return s.Mailer.Send([]string{user.Email}, subject, html)
}

func ensureEmailAvailable(db *gorm.DB, email string, exceptID uint) error {
	var count int64
	q := db.Unscoped().Model(&models.User{}).Where("email = ?", email)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return apperror.Internal(err)
	}
	if count > 0 {
		return apperror.Conflict("Email is already registered")
	}
	return nil
}
