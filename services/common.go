package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"dost-pmns-api/apperror"
	"dost-pmns-api/config"
	"dost-pmns-api/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Mailer delivers HTML email.
type Mailer interface {
	Send(to []string, subject, html string) error
}

// Page is a limit/offset window. Zero values select the defaults.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) normalize(def, max int) Page {
	if p.Limit <= 0 {
		p.Limit = def
	}
	if p.Limit > max {
		p.Limit = max
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

func resolveDB(db *gorm.DB) *gorm.DB {
	if db == nil {
		return config.DB
	}
	return db
}

func logger() *logrus.Logger {
	return config.Logger
}

// persistentContext keeps request values but drops cancellation. Used for
// writes that follow a commit.
func persistentContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}

// lookupErr maps a gorm lookup failure to a 404 or 500.
func lookupErr(err error, resource string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(resource)
	}
	return apperror.Internal(err)
}

func requireRole(actor *models.User, roles ...string) error {
	if actor == nil {
		return apperror.Unauthorized("")
	}
	if !actor.HasRole(roles...) {
		return apperror.Forbidden("")
	}
	return nil
}

// recordHistory appends an audit row. It must run on the transaction that
// performs the status change.
func recordHistory(tx *gorm.DB, entityType string, entityID uint, from, to, action string, actorID uint, comments string) (*models.StatusHistory, error) {
	row := &models.StatusHistory{
		EntityType: entityType,
		EntityID:   entityID,
		FromStatus: from,
		ToStatus:   to,
		Action:     action,
		ActorID:    actorID,
		Comments:   strings.TrimSpace(comments),
	}
	if err := tx.Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// activeUsers returns active users with the given role, optionally
// restricted to a province.
func activeUsers(db *gorm.DB, role, province string) ([]models.User, error) {
	q := db.Where("role = ? AND status = ?", role, models.UserStatusActive)
	if province != "" {
		q = q.Where("province = ?", province)
	}
	var users []models.User
	if err := q.Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func timePtr(t time.Time) *time.Time { return &t }

func uintPtr(v uint) *uint { return &v }
