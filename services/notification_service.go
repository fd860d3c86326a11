package services

import (
	"context"
	"fmt"
	"time"

	"dost-pmns-api/apperror"
	"dost-pmns-api/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Notification types.
const (
	NotifyProponentRegistered  = "proponent_registered"
	NotifyAccountActivated     = "account_activated"
	NotifyAccountDeactivated   = "account_deactivated"
	NotifyApplicationSubmitted = "application_submitted"
	NotifyApplicationReceived  = "application_received"
	NotifyApplicationStatus    = "application_status_changed"
	NotifyApplicationReturned  = "application_returned"
	NotifyApplicationResubmit  = "application_resubmitted"
	NotifyTNAScheduled         = "tna_scheduled"
	NotifyTNAUpdated           = "tna_updated"
	NotifyTNAForwarded         = "tna_forwarded"
	NotifyTNAReviewed          = "tna_reviewed"
	NotifyDocumentsRequested   = "documents_requested"
	NotifyDocumentSubmitted    = "document_submitted"
	NotifyDocumentReviewed     = "document_reviewed"
	NotifyDocumentsStatus      = "documents_status_changed"
	NotifyRevisionRequested    = "documents_revision_requested"
	NotifyDocumentsCompleted   = "documents_completed"
	NotifyMeetingScheduled     = "rtec_meeting_scheduled"
	NotifyMeetingUpdated       = "rtec_meeting_updated"
	NotifyMeetingCompleted     = "rtec_meeting_completed"
	NotifyParticipantResponded = "rtec_participant_responded"
)

const (
	notificationDefaultLimit = 20
	notificationMaxLimit     = 100
)

type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: resolveDB(db)}
}

// Notify stores the notifications after the business change committed.
// Rows whose dedupe key already exists are skipped. Failures are logged and
// never returned.
func (s *NotificationService) Notify(ctx context.Context, items ...models.Notification) {
	if len(items) == 0 {
		return
	}
	for i := range items {
		if items[i].DedupeKey == "" {
			items[i].DedupeKey = uuid.NewString()
		}
		if items[i].Priority == "" {
			items[i].Priority = models.PriorityNormal
		}
	}

	err := s.db.WithContext(persistentContext(ctx)).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&items).Error
	if err != nil {
		logger().WithError(err).WithField("count", len(items)).Warn("failed to create notifications")
	}
}

// NotifyUsers sends the same message to each user. The dedupe key, when set,
// is suffixed with the recipient id.
func (s *NotificationService) NotifyUsers(ctx context.Context, users []models.User, template models.Notification) {
	items := make([]models.Notification, 0, len(users))
	seen := make(map[uint]bool, len(users))
	for _, u := range users {
		if seen[u.ID] {
			continue
		}
		seen[u.ID] = true
		n := template
		n.RecipientID = u.ID
		n.RecipientRole = u.Role
		if template.DedupeKey != "" {
			n.DedupeKey = recipientKey(template.DedupeKey, u.ID)
		}
		items = append(items, n)
	}
	s.Notify(ctx, items...)
}

// NotifyRole sends the message to every active user with role, optionally
// restricted to a province.
func (s *NotificationService) NotifyRole(ctx context.Context, role, province string, template models.Notification) {
	users, err := activeUsers(s.db.WithContext(persistentContext(ctx)), role, province)
	if err != nil {
		logger().WithError(err).WithField("role", role).Warn("failed to resolve notification recipients")
		return
	}
	s.NotifyUsers(ctx, users, template)
}

// NotifyUserID sends the message to a single user looked up by id.
func (s *NotificationService) NotifyUserID(ctx context.Context, userID uint, template models.Notification) {
	if userID == 0 {
		return
	}
	var user models.User
	if err := s.db.WithContext(persistentContext(ctx)).First(&user, userID).Error; err != nil {
		logger().WithError(err).WithField("user_id", userID).Warn("notification recipient not found")
		return
	}
	s.NotifyUsers(ctx, []models.User{user}, template)
}

func recipientKey(key string, userID uint) string {
	return fmt.Sprintf("%s:%d", key, userID)
}

type NotificationList struct {
	Items  []models.Notification `json:"items"`
	Total  int64                 `json:"total"`
	Unread int64                 `json:"unread"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}

func (s *NotificationService) List(recipientID uint, unreadOnly bool, page Page) (*NotificationList, error) {
	page = page.normalize(notificationDefaultLimit, notificationMaxLimit)

	q := s.db.Model(&models.Notification{}).Where("recipient_id = ?", recipientID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, apperror.Internal(err)
	}

	items := []models.Notification{}
	if err := q.Order("created_at DESC, id DESC").Limit(page.Limit).Offset(page.Offset).Find(&items).Error; err != nil {
		return nil, apperror.Internal(err)
	}

	unread, err := s.UnreadCount(recipientID)
	if err != nil {
		return nil, err
	}

	return &NotificationList{Items: items, Total: total, Unread: unread, Limit: page.Limit, Offset: page.Offset}, nil
}

func (s *NotificationService) UnreadCount(recipientID uint) (int64, error) {
	var n int64
	if err := s.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&n).Error; err != nil {
		return 0, apperror.Internal(err)
	}
	return n, nil
}

func (s *NotificationService) MarkRead(recipientID, id uint) (*models.Notification, error) {
	var n models.Notification
	if err := s.db.Where("id = ? AND recipient_id = ?", id, recipientID).First(&n).Error; err != nil {
		return nil, lookupErr(err, "Notification")
	}
	if n.IsRead {
		return &n, nil
	}
	now := time.Now()
	if err := s.db.Model(&n).Updates(map[string]interface{}{"is_read": true, "read_at": now}).Error; err != nil {
		return nil, apperror.Internal(err)
	}
	n.IsRead = true
	n.ReadAt = &now
	return &n, nil
}

func (s *NotificationService) MarkAllRead(recipientID uint) (int64, error) {
	res := s.db.Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()})
	if res.Error != nil {
		return 0, apperror.Internal(res.Error)
	}
	return res.RowsAffected, nil
}

func (s *NotificationService) Delete(recipientID, id uint) error {
	res := s.db.Where("id = ? AND recipient_id = ?", id, recipientID).Delete(&models.Notification{})
	if res.Error != nil {
		return apperror.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("Notification")
	}
	return nil
}
