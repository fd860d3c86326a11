// Package testutil opens throwaway databases and seeds the users and
// pipeline records the service and handler tests start from.
package testutil

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dost-pmns-api/config"
	"dost-pmns-api/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Password is the plaintext password of every seeded user.
const Password = "Password123!"

const JWTSecret = "test-secret"

var (
	seq      atomic.Uint64
	hashOnce sync.Once
	hashed   string
)

// NewDB opens an in-memory database, migrates it and installs it as
// config.DB. config.App is reset to defaults with uploads in a temp dir.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString()[:8])
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// One connection keeps the shared in-memory database alive and
	// serialises writers.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := config.Default()
	cfg.Environment = "test"
	cfg.JWTSecret = JWTSecret
	cfg.UploadPath = t.TempDir()
	cfg.UploadDBBackup = false

	prevDB, prevApp := config.DB, config.App
	config.DB = db
	config.App = cfg
	t.Cleanup(func() {
		config.DB = prevDB
		config.App = prevApp
	})
	return db
}

func passwordHash(t testing.TB) string {
	hashOnce.Do(func() {
		b, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("hash password: %v", err)
		}
		hashed = string(b)
	})
	return hashed
}

// CreateUser inserts an active user. province may be empty for staff roles.
func CreateUser(t testing.TB, db *gorm.DB, role, province string) *models.User {
	t.Helper()
	n := seq.Add(1)
	now := time.Now()
	u := &models.User{
		FirstName:   "Test",
		LastName:    fmt.Sprintf("User%d", n),
		Email:       fmt.Sprintf("%s%d@example.com", strings.ReplaceAll(role, "_", ""), n),
		Password:    passwordHash(t),
		Role:        role,
		Status:      models.UserStatusActive,
		ActivatedAt: &now,
	}
	if province != "" {
		u.Province = &province
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create %s user: %v", role, err)
	}
	return u
}

// Fixture is the cast shared by most workflow tests: one user per role in
// Palawan, plus a psto of another province.
type Fixture struct {
	DB        *gorm.DB
	Admin     *models.User
	DOST      *models.User
	PSTO      *models.User
	OtherPSTO *models.User
	Proponent *models.User
}

func NewFixture(t testing.TB) *Fixture {
	t.Helper()
	db := NewDB(t)
	return &Fixture{
		DB:        db,
		Admin:     CreateUser(t, db, models.RoleSuperAdmin, ""),
		DOST:      CreateUser(t, db, models.RoleDOSTMimaropa, ""),
		PSTO:      CreateUser(t, db, models.RolePSTO, "Palawan"),
		OtherPSTO: CreateUser(t, db, models.RolePSTO, "Romblon"),
		Proponent: CreateUser(t, db, models.RoleProponent, "Palawan"),
	}
}

// Application inserts a SETUP application of the fixture proponent that
// already sits at status.
func (f *Fixture) Application(t testing.TB, status string) *models.Application {
	t.Helper()
	n := seq.Add(1)
	pstoStatus := models.PSTOStatusApproved
	if status == models.ApplicationStatusPending {
		pstoStatus = models.PSTOStatusPending
	}
	app := &models.Application{
		ApplicationNumber: fmt.Sprintf("SETUP-TEST-%06d", n),
		Program:           "SETUP",
		ProponentID:       f.Proponent.ID,
		EnterpriseName:    "Palawan Cashew Processors",
		ContactPerson:     f.Proponent.FullName(),
		ContactNumber:     "09171234567",
		Email:             f.Proponent.Email,
		Province:          f.Proponent.ProvinceName(),
		Status:            status,
		PSTOStatus:        pstoStatus,
		AssignedPSTOID:    &f.PSTO.ID,
		SubmittedAt:       time.Now(),
	}
	if err := f.DB.Create(app).Error; err != nil {
		t.Fatalf("create application: %v", err)
	}
	return app
}

// TNA inserts the assessment of app at status.
func (f *Fixture) TNA(t testing.TB, app *models.Application, status string) *models.TNA {
	t.Helper()
	tna := &models.TNA{
		ApplicationID: app.ID,
		ProponentID:   app.ProponentID,
		Program:       app.Program,
		Province:      app.Province,
		ScheduledBy:   f.PSTO.ID,
		ScheduledDate: time.Now().Add(72 * time.Hour),
		Location:      "Puerto Princesa City",
		Status:        status,
	}
	if err := f.DB.Create(tna).Error; err != nil {
		t.Fatalf("create tna: %v", err)
	}
	return tna
}

// Notifications returns every notification addressed to userID, oldest first.
func (f *Fixture) Notifications(t testing.TB, userID uint) []models.Notification {
	t.Helper()
	var rows []models.Notification
	if err := f.DB.Where("recipient_id = ?", userID).Order("id").Find(&rows).Error; err != nil {
		t.Fatalf("load notifications: %v", err)
	}
	return rows
}
