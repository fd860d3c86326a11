package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	RolePSTO         = "psto"
	RoleDOSTMimaropa = "dost_mimaropa"
	RoleSuperAdmin   = "super_admin"
	RoleProponent    = "proponent"
)

const (
	UserStatusPending  = "pending"
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// Provinces covered by the MIMAROPA region.
var Provinces = []string{
	"Marinduque",
	"Occidental Mindoro",
	"Oriental Mindoro",
	"Romblon",
	"Palawan",
}

func IsValidRole(role string) bool {
	switch role {
	case RolePSTO, RoleDOSTMimaropa, RoleSuperAdmin, RoleProponent:
		return true
	}
	return false
}

// NormalizeProvince returns the canonical province name, or "" when unknown.
func NormalizeProvince(p string) string {
	p = strings.TrimSpace(p)
	for _, known := range Provinces {
		if strings.EqualFold(known, p) {
			return known
		}
	}
	return ""
}

type User struct {
	ID             uint    `gorm:"primaryKey;column:id" json:"id"`
	UserCode       string  `gorm:"column:user_code;size:40;uniqueIndex" json:"userId"`
	FirstName      string  `gorm:"column:first_name;size:100" json:"firstName"`
	LastName       string  `gorm:"column:last_name;size:100" json:"lastName"`
	Email          string  `gorm:"column:email;size:191;uniqueIndex" json:"email"`
	Password       string  `gorm:"column:password;size:255" json:"-"`
	Role           string  `gorm:"column:role;size:32;index" json:"role"`
	Province       *string `gorm:"column:province;size:64;index" json:"province,omitempty"`
	Status         string  `gorm:"column:status;size:16;index" json:"status"`
	ContactNumber  string  `gorm:"column:contact_number;size:32" json:"contactNumber,omitempty"`
	EnterpriseName string  `gorm:"column:enterprise_name;size:255" json:"enterpriseName,omitempty"`

	ResetPasswordToken   *string    `gorm:"column:reset_password_token;size:128;index" json:"-"`
	ResetPasswordExpires *time.Time `gorm:"column:reset_password_expires" json:"-"`

	LastLoginAt *time.Time     `gorm:"column:last_login_at" json:"lastLoginAt,omitempty"`
	ActivatedAt *time.Time     `gorm:"column:activated_at" json:"activatedAt,omitempty"`
	ActivatedBy *uint          `gorm:"column:activated_by" json:"activatedBy,omitempty"`
	CreatedAt   time.Time      `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt   time.Time      `gorm:"column:updated_at" json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (User) TableName() string { return "users" }

// BeforeCreate assigns the public user code and guarantees the stored
// password is a bcrypt hash.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UserCode == "" {
		u.UserCode = "USR-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
	}
	if u.Password != "" && !IsPasswordHash(u.Password) {
		hashed, err := HashPassword(u.Password)
		if err != nil {
			return err
		}
		u.Password = hashed
	}
	return nil
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u User) HasRole(roles ...string) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// ProvinceName returns the province or "" when unset.
func (u User) ProvinceName() string {
	if u.Province == nil {
		return ""
	}
	return *u.Province
}

// IsPasswordHash reports whether s looks like a bcrypt hash.
func IsPasswordHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

// HashPassword hashes password using bcrypt.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares password with hash.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
