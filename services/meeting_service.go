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

type MeetingService struct {
	db       *gorm.DB
	notifier *NotificationService
}

func NewMeetingService(db *gorm.DB) *MeetingService {
	db = resolveDB(db)
	return &MeetingService{db: db, notifier: NewNotificationService(db)}
}

type ParticipantInput struct {
	UserID *uint  `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

type CreateMeetingInput struct {
	TNAID        uint               `json:"tnaId" binding:"required"`
	Title        string             `json:"title" binding:"required"`
	Description  string             `json:"description"`
	ScheduledAt  time.Time          `json:"scheduledAt" binding:"required"`
	Location     string             `json:"location"`
	MeetingType  string             `json:"meetingType"`
	MeetingLink  string             `json:"meetingLink"`
	Agenda       []string           `json:"agenda"`
	Participants []ParticipantInput `json:"participants"`
}

func validateMeetingPlace(meetingType, location, link string) []apperror.FieldError {
	var fields []apperror.FieldError
	switch meetingType {
	case models.MeetingTypeInPerson:
		if location == "" {
			fields = append(fields, apperror.FieldError{Field: "location", Message: "location is required for in-person meetings"})
		}
	case models.MeetingTypeVirtual:
		if link == "" {
			fields = append(fields, apperror.FieldError{Field: "meetingLink", Message: "meetingLink is required for virtual meetings"})
		}
	default:
		fields = append(fields, apperror.FieldError{Field: "meetingType", Message: "meetingType must be in_person or virtual"})
	}
	return fields
}

// Create schedules the RTEC meeting of a TNA whose RTEC documents are
// complete.
func (s *MeetingService) Create(ctx context.Context, actor *models.User, in CreateMeetingInput) (*models.RTECMeeting, error) {
	if err := requireRole(actor, dostReviewers...); err != nil {
		return nil, err
	}
	in.Title = utils.SanitizeInput(in.Title)
	in.Location = utils.SanitizeInput(in.Location)
	in.MeetingLink = strings.TrimSpace(in.MeetingLink)
	if in.MeetingType == "" {
		in.MeetingType = models.MeetingTypeInPerson
	}
	var fields []apperror.FieldError
	if in.TNAID == 0 {
		fields = append(fields, apperror.FieldError{Field: "tnaId", Message: "tnaId is required"})
	}
	if in.Title == "" {
		fields = append(fields, apperror.FieldError{Field: "title", Message: "title is required"})
	}
	if in.ScheduledAt.IsZero() {
		fields = append(fields, apperror.FieldError{Field: "scheduledAt", Message: "scheduledAt is required"})
	}
	fields = append(fields, validateMeetingPlace(in.MeetingType, in.Location, in.MeetingLink)...)
	participants, pfields := cleanParticipants(in.Participants)
	fields = append(fields, pfields...)
	if len(fields) > 0 {
		return nil, apperror.Validation(fields...)
	}

	var meeting *models.RTECMeeting
	var history *models.StatusHistory
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var tna models.TNA
		if err := tx.First(&tna, in.TNAID).Error; err != nil {
			return lookupErr(err, "TNA")
		}
		if err := requireStatus("TNA", tna.Status, models.TNAStatusRTECDocumentsCompleted); err != nil {
			return err
		}

		var active int64
		if err := tx.Model(&models.RTECMeeting{}).
			Where("tna_id = ? AND status IN ?", tna.ID, []string{models.MeetingStatusScheduled, models.MeetingStatusPostponed}).
			Count(&active).Error; err != nil {
			return apperror.Internal(err)
		}
		if active > 0 {
			return apperror.BadRequest("An RTEC meeting is already scheduled for this TNA")
		}

		meeting = &models.RTECMeeting{
			TNAID:         tna.ID,
			ApplicationID: tna.ApplicationID,
			ProponentID:   tna.ProponentID,
			Title:         in.Title,
			Description:   utils.SanitizeInput(in.Description),
			ScheduledAt:   in.ScheduledAt,
			Location:      in.Location,
			MeetingType:   in.MeetingType,
			MeetingLink:   in.MeetingLink,
			Agenda:        datatypes.JSONSlice[string](cleanAgenda(in.Agenda)),
			Status:        models.MeetingStatusScheduled,
			CreatedBy:     actor.ID,
			Participants:  participants,
		}
		var checklist models.Checklist
		err := tx.Select("id").Where("kind = ? AND tna_id = ?", models.ChecklistKindRTEC, tna.ID).First(&checklist).Error
		switch {
		case err == nil:
			meeting.ChecklistID = uintPtr(checklist.ID)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return apperror.Internal(err)
		}
		if err := tx.Create(meeting).Error; err != nil {
			return apperror.Internal(err)
		}
		history, err = recordHistory(tx, models.EntityMeeting, meeting.ID, "", meeting.Status, "schedule", actor.ID, "")
		if err != nil {
			return apperror.Internal(err)
		}
		_, err = changeStatus(tx, &tna, models.EntityTNA, tna.ID, tna.Status, models.TNAStatusRTECScheduled, "schedule_rtec_meeting", actor.ID, "", nil)
		return err
	})
	if err != nil {
		return nil, apperror.From(err)
	}

	s.notifyAll(ctx, meeting, history, NotifyMeetingScheduled, "RTEC meeting scheduled",
		fmt.Sprintf("%s is scheduled on %s.", meeting.Title, meeting.ScheduledAt.Format("2006-01-02 15:04")))
	return meeting, nil
}

type MeetingFilter struct {
	Status        string
	TNAID         uint
	ApplicationID uint
	Page          Page
}

type MeetingList struct {
	Items  []models.RTECMeeting `json:"items"`
	Total  int64                `json:"total"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

func (s *MeetingService) List(actor *models.User, f MeetingFilter) (*MeetingList, error) {
	page := f.Page.normalize(20, 100)
	q := s.db.Model(&models.RTECMeeting{})
	switch actor.Role {
	case models.RoleSuperAdmin, models.RoleDOSTMimaropa:
	case models.RoleProponent:
		q = q.Where("rtec_meetings.proponent_id = ?", actor.ID)
	default:
		q = q.Joins("JOIN applications ON applications.id = rtec_meetings.application_id")
		q = q.Where("(applications.assigned_psto_id = ? OR applications.province = ? OR rtec_meetings.id IN (?))",
			actor.ID, actor.ProvinceName(),
			s.db.Model(&models.RTECParticipant{}).Select("meeting_id").Where("user_id = ?", actor.ID))
	}
	if f.Status != "" {
		q = q.Where("rtec_meetings.status = ?", f.Status)
	}
	if f.TNAID != 0 {
		q = q.Where("rtec_meetings.tna_id = ?", f.TNAID)
	}
	if f.ApplicationID != 0 {
		q = q.Where("rtec_meetings.application_id = ?", f.ApplicationID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, apperror.Internal(err)
	}
	items := []models.RTECMeeting{}
	if err := q.Preload("Participants").Order("rtec_meetings.scheduled_at DESC, rtec_meetings.id DESC").
		Limit(page.Limit).Offset(page.Offset).Find(&items).Error; err != nil {
		return nil, apperror.Internal(err)
	}
	return &MeetingList{Items: items, Total: total, Limit: page.Limit, Offset: page.Offset}, nil
}

func (s *MeetingService) Get(actor *models.User, id uint) (*models.RTECMeeting, error) {
	m, err := s.load(s.db, id)
	if err != nil {
		return nil, err
	}
	if s.isParticipant(actor, m) {
		return m, nil
	}
	app, err := loadApplication(s.db, m.ApplicationID)
	if err != nil {
		return nil, err
	}
	if !canViewApplication(actor, app) {
		return nil, apperror.Forbidden("You do not have access to this meeting")
	}
	return m, nil
}

type UpdateMeetingInput struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	ScheduledAt *time.Time `json:"scheduledAt"`
	Location    *string    `json:"location"`
	MeetingType *string    `json:"meetingType"`
	MeetingLink *string    `json:"meetingLink"`
	Agenda      []string   `json:"agenda"`
}

// Update edits or reschedules a meeting that has not been held. A postponed
// meeting that gets a new date is scheduled again.
func (s *MeetingService) Update(ctx context.Context, actor *models.User, id uint, in UpdateMeetingInput) (*models.RTECMeeting, error) {
	if err := requireRole(actor, dostReviewers...); err != nil {
		return nil, err
	}

	var m *models.RTECMeeting
	var history *models.StatusHistory
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		m, err = s.load(tx, id)
		if err != nil {
			return err
		}
		if err := requireStatus("Meeting", m.Status, models.MeetingStatusScheduled, models.MeetingStatusPostponed); err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if in.Title != nil {
			title := utils.SanitizeInput(*in.Title)
			if title == "" {
				return apperror.Required("title")
			}
			updates["title"] = title
		}
		if in.Description != nil {
			updates["description"] = utils.SanitizeInput(*in.Description)
		}
		if in.ScheduledAt != nil {
			updates["scheduled_at"] = *in.ScheduledAt
		}
		meetingType, location, link := m.MeetingType, m.Location, m.MeetingLink
		if in.MeetingType != nil {
			meetingType = *in.MeetingType
			updates["meeting_type"] = meetingType
		}
		if in.Location != nil {
			location = utils.SanitizeInput(*in.Location)
			updates["location"] = location
		}
		if in.MeetingLink != nil {
			link = strings.TrimSpace(*in.MeetingLink)
			updates["meeting_link"] = link
		}
		if fields := validateMeetingPlace(meetingType, location, link); len(fields) > 0 {
			return apperror.Validation(fields...)
		}
		if in.Agenda != nil {
			updates["agenda"] = datatypes.JSONSlice[string](cleanAgenda(in.Agenda))
		}
		if len(updates) == 0 {
			return apperror.BadRequest("Nothing to update")
		}

		if m.Status == models.MeetingStatusPostponed && in.ScheduledAt != nil {
			history, err = changeStatus(tx, m, models.EntityMeeting, m.ID, m.Status, models.MeetingStatusScheduled, "reschedule", actor.ID, "", updates)
			if err != nil {
				return err
			}
		} else if err := tx.Model(m).Updates(updates).Error; err != nil {
			return apperror.Internal(err)
		}
		m, err = s.load(tx, id)
		return err
	})
	if err != nil {
		return nil, apperror.From(err)
	}

	s.notifyAll(ctx, m, history, NotifyMeetingUpdated, "RTEC meeting updated",
		fmt.Sprintf("%s is now on %s.", m.Title, m.ScheduledAt.Format("2006-01-02 15:04")))
	return m, nil
}

// AddParticipant invites another participant to an open meeting.
func (s *MeetingService) AddParticipant(ctx context.Context, actor *models.User, id uint, in ParticipantInput) (*models.RTECMeeting, error) {
	if err := requireRole(actor, dostReviewers...); err != nil {
		return nil, err
	}
	cleaned, fields := cleanParticipants([]ParticipantInput{in})
	if len(fields) > 0 {
		return nil, apperror.Validation(fields...)
	}
	p := cleaned[0]

	var m *models.RTECMeeting
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		m, err = s.load(tx, id)
		if err != nil {
			return err
		}
		if err := requireStatus("Meeting", m.Status, models.MeetingStatusScheduled, models.MeetingStatusPostponed); err != nil {
			return err
		}
		for _, existing := range m.Participants {
			if (p.UserID != nil && existing.UserID != nil && *p.UserID == *existing.UserID) ||
				(p.Email != "" && strings.EqualFold(p.Email, existing.Email)) {
				return apperror.BadRequest("%s is already a participant", p.Name)
			}
		}
		p.MeetingID = m.ID
		if err := tx.Create(&p).Error; err != nil {
			return apperror.Internal(err)
		}
		m, err = s.load(tx, id)
		return err
	})
	if err != nil {
		return nil, apperror.From(err)
	}

	if p.UserID != nil {
		s.notifier.NotifyUserID(ctx, *p.UserID, models.Notification{
			Type:          NotifyMeetingScheduled,
			Title:         "RTEC meeting invitation",
			Message:       fmt.Sprintf("You are invited to %s on %s.", m.Title, m.ScheduledAt.Format("2006-01-02 15:04")),
			ApplicationID: uintPtr(m.ApplicationID),
			RelatedType:   models.EntityMeeting,
			RelatedID:     uintPtr(m.ID),
			DedupeKey:     fmt.Sprintf("participant:%d", p.ID),
		})
	}
	return m, nil
}

type RespondInput struct {
	Response string `json:"response" binding:"required,oneof=confirm decline"`
	Remarks  string `json:"remarks"`
}

// Respond records a participant's own confirmation or decline.
func (s *MeetingService) Respond(ctx context.Context, actor *models.User, id, participantID uint, in RespondInput) (*models.RTECParticipant, error) {
	var status string
	switch in.Response {
	case "confirm":
		status = models.ParticipantStatusConfirmed
	case "decline":
		status = models.ParticipantStatusDeclined
	default:
		return nil, apperror.Validation(apperror.FieldError{Field: "response", Message: "response must be one of confirm, decline"})
	}

	var m *models.RTECMeeting
	var p models.RTECParticipant
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		m, err = s.load(tx, id)
		if err != nil {
			return err
		}
		if err := requireStatus("Meeting", m.Status, models.MeetingStatusScheduled, models.MeetingStatusPostponed); err != nil {
			return err
		}
		if err := tx.Where("meeting_id = ?", m.ID).First(&p, participantID).Error; err != nil {
			return lookupErr(err, "Participant")
		}
		if p.UserID == nil || *p.UserID != actor.ID {
			return apperror.Forbidden("You can only respond for yourself")
		}
		now := time.Now()
		remarks := utils.SanitizeInput(in.Remarks)
		if err := tx.Model(&p).Updates(map[string]interface{}{"status": status, "responded_at": now, "remarks": remarks}).Error; err != nil {
			return apperror.Internal(err)
		}
		p.Status, p.RespondedAt, p.Remarks = status, &now, remarks
		return nil
	})
	if err != nil {
		return nil, apperror.From(err)
	}

	s.notifier.NotifyUserID(ctx, m.CreatedBy, models.Notification{
		Type:          NotifyParticipantResponded,
		Title:         "Participant " + status,
		Message:       fmt.Sprintf("%s %s the invitation to %s.", p.Name, status, m.Title),
		ApplicationID: uintPtr(m.ApplicationID),
		RelatedType:   models.EntityMeeting,
		RelatedID:     uintPtr(m.ID),
		DedupeKey:     fmt.Sprintf("participant:%d:%s", p.ID, status),
	})
	return &p, nil
}

type AttendanceInput struct {
	Status  string `json:"status" binding:"required,oneof=attended absent"`
	Remarks string `json:"remarks"`
}

// Attendance marks whether a participant attended.
func (s *MeetingService) Attendance(actor *models.User, id, participantID uint, in AttendanceInput) (*models.RTECParticipant, error) {
	if err := requireRole(actor, dostReviewers...); err != nil {
		return nil, err
	}
	if in.Status != models.ParticipantStatusAttended && in.Status != models.ParticipantStatusAbsent {
		return nil, apperror.Validation(apperror.FieldError{Field: "status", Message: "status must be one of attended, absent"})
	}

	var p models.RTECParticipant
	err := s.db.Transaction(func(tx *gorm.DB) error {
		m, err := s.load(tx, id)
		if err != nil {
			return err
		}
		if err := requireStatus("Meeting", m.Status, models.MeetingStatusScheduled, models.MeetingStatusCompleted); err != nil {
			return err
		}
		if err := tx.Where("meeting_id = ?", m.ID).First(&p, participantID).Error; err != nil {
			return lookupErr(err, "Participant")
		}
		updates := map[string]interface{}{"status": in.Status}
		if remarks := utils.SanitizeInput(in.Remarks); remarks != "" {
			updates["remarks"] = remarks
		}
		if err := tx.Model(&p).Updates(updates).Error; err != nil {
			return apperror.Internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, apperror.From(err)
	}
	return &p, nil
}

// Postpone puts a scheduled meeting on hold. The TNA stays rtec_scheduled.
func (s *MeetingService) Postpone(ctx context.Context, actor *models.User, id uint, reason string) (*models.RTECMeeting, error) {
	if err := requireRole(actor, dostReviewers...); err != nil {
		return nil, err
	}
	reason = utils.SanitizeInput(reason)

	var m *models.RTECMeeting
	var history *models.StatusHistory
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		m, err = s.load(tx, id)
		if err != nil {
			return err
		}
		if err := requireStatus("Meeting", m.Status, models.MeetingStatusScheduled); err != nil {
			return err
		}
		history, err = changeStatus(tx, m, models.EntityMeeting, m.ID, m.Status, models.MeetingStatusPostponed, "postpone", actor.ID, reason,
			map[string]interface{}{"remarks": reason})
		return err
	})
	if err != nil {
		return nil, apperror.From(err)
	}

	s.notifyAll(ctx, m, history, NotifyMeetingUpdated, "RTEC meeting postponed",
		strings.TrimSpace(fmt.Sprintf("%s has been postponed. %s", m.Title, reason)))
	return m, nil
}

// Cancel calls off an open meeting and hands the TNA back so a new
// meeting can be scheduled.
func (s *MeetingService) Cancel(ctx context.Context, actor *models.User, id uint, reason string) (*models.RTECMeeting, error) {
	if err := requireRole(actor, dostReviewers...); err != nil {
		return nil, err
	}
	reason = utils.SanitizeInput(reason)

	var m *models.RTECMeeting
	var history *models.StatusHistory
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		m, err = s.load(tx, id)
		if err != nil {
			return err
		}
		if err := requireStatus("Meeting", m.Status, models.MeetingStatusScheduled, models.MeetingStatusPostponed); err != nil {
			return err
		}
		now := time.Now()
		history, err = changeStatus(tx, m, models.EntityMeeting, m.ID, m.Status, models.MeetingStatusCancelled, "cancel", actor.ID, reason,
			map[string]interface{}{"cancelled_at": now, "cancel_reason": reason})
		if err != nil {
			return err
		}

		var tna models.TNA
		if err := tx.First(&tna, m.TNAID).Error; err != nil {
			return lookupErr(err, "TNA")
		}
		if tna.Status == models.TNAStatusRTECScheduled {
			_, err = changeStatus(tx, &tna, models.EntityTNA, tna.ID, tna.Status, models.TNAStatusRTECDocumentsCompleted, "cancel_rtec_meeting", actor.ID, reason, nil)
		}
		return err
	})
	if err != nil {
		return nil, apperror.From(err)
	}

	s.notifyAll(ctx, m, history, NotifyMeetingUpdated, "RTEC meeting cancelled",
		strings.TrimSpace(fmt.Sprintf("%s has been cancelled. %s", m.Title, reason)))
	return m, nil
}

type CompleteMeetingInput struct {
	Outcome string `json:"outcome" binding:"required,oneof=approved rejected"`
	Remarks string `json:"remarks"`
}

// Complete records the committee decision. The TNA moves to rtec_completed
// and the application to rtec_approved or rtec_rejected.
func (s *MeetingService) Complete(ctx context.Context, actor *models.User, id uint, in CompleteMeetingInput) (*models.RTECMeeting, error) {
	var action string
	switch in.Outcome {
	case models.MeetingOutcomeApproved:
		action = ActionRTECApprove
	case models.MeetingOutcomeRejected:
		action = ActionRTECReject
	default:
		return nil, apperror.Validation(apperror.FieldError{Field: "outcome", Message: "outcome must be one of approved, rejected"})
	}
	if err := authorizeApplicationAction(action, actor); err != nil {
		return nil, err
	}
	remarks := utils.SanitizeInput(in.Remarks)

	var m *models.RTECMeeting
	var history *models.StatusHistory
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		m, err = s.load(tx, id)
		if err != nil {
			return err
		}
		if err := requireStatus("Meeting", m.Status, models.MeetingStatusScheduled); err != nil {
			return err
		}
		now := time.Now()
		history, err = changeStatus(tx, m, models.EntityMeeting, m.ID, m.Status, models.MeetingStatusCompleted, "complete", actor.ID, remarks,
			map[string]interface{}{"outcome": in.Outcome, "remarks": remarks, "completed_by": actor.ID, "completed_at": now})
		if err != nil {
			return err
		}

		var tna models.TNA
		if err := tx.First(&tna, m.TNAID).Error; err != nil {
			return lookupErr(err, "TNA")
		}
		if err := requireStatus("TNA", tna.Status, models.TNAStatusRTECScheduled); err != nil {
			return err
		}
		if _, err := changeStatus(tx, &tna, models.EntityTNA, tna.ID, tna.Status, models.TNAStatusRTECCompleted, "complete_rtec_meeting", actor.ID, remarks, nil); err != nil {
			return err
		}

		app, err := loadApplication(tx, m.ApplicationID)
		if err != nil {
			return err
		}
		_, err = advanceApplication(tx, app, action, actor.ID, remarks, map[string]interface{}{"rtec_decided_at": now})
		return err
	})
	if err != nil {
		return nil, apperror.From(err)
	}

	s.notifyAll(ctx, m, history, NotifyMeetingCompleted, "RTEC evaluation "+in.Outcome,
		strings.TrimSpace(fmt.Sprintf("The committee %s the project after %s. %s", in.Outcome, m.Title, remarks)))
	return m, nil
}

func (s *MeetingService) load(db *gorm.DB, id uint) (*models.RTECMeeting, error) {
	var m models.RTECMeeting
	err := db.Preload("Participants", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).First(&m, id).Error
	if err != nil {
		return nil, lookupErr(err, "Meeting")
	}
	return &m, nil
}

func (s *MeetingService) isParticipant(actor *models.User, m *models.RTECMeeting) bool {
	for _, p := range m.Participants {
		if p.UserID != nil && *p.UserID == actor.ID {
			return true
		}
	}
	return false
}

// notifyAll tells the proponent and every participant with an account.
func (s *MeetingService) notifyAll(ctx context.Context, m *models.RTECMeeting, history *models.StatusHistory, typ, title, message string) {
	ids := []uint{m.ProponentID}
	for _, p := range m.Participants {
		if p.UserID != nil {
			ids = append(ids, *p.UserID)
		}
	}
	var users []models.User
	if err := s.db.WithContext(persistentContext(ctx)).Where("id IN ?", ids).Find(&users).Error; err != nil {
		logger().WithError(err).WithField("meeting_id", m.ID).Warn("failed to resolve meeting recipients")
		return
	}
	key := ""
	if history != nil {
		key = fmt.Sprintf("history:%d", history.ID)
	}
	s.notifier.NotifyUsers(ctx, users, models.Notification{
		Type:          typ,
		Title:         title,
		Message:       message,
		ApplicationID: uintPtr(m.ApplicationID),
		RelatedType:   models.EntityMeeting,
		RelatedID:     uintPtr(m.ID),
		DedupeKey:     key,
	})
}

func cleanAgenda(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		if item = utils.SanitizeInput(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func cleanParticipants(in []ParticipantInput) ([]models.RTECParticipant, []apperror.FieldError) {
	var fields []apperror.FieldError
	out := make([]models.RTECParticipant, 0, len(in))
	for i, p := range in {
		name := utils.SanitizeInput(p.Name)
		email := utils.NormalizeEmail(p.Email)
		if name == "" {
			fields = append(fields, apperror.FieldError{Field: fmt.Sprintf("participants[%d].name", i), Message: fmt.Sprintf("participants[%d].name is required", i)})
		}
		if email != "" && !utils.ValidateEmail(email) {
			fields = append(fields, apperror.FieldError{Field: fmt.Sprintf("participants[%d].email", i), Message: fmt.Sprintf("participants[%d].email is invalid", i)})
		}
		role := utils.SanitizeInput(p.Role)
		if role == "" {
			role = "member"
		}
		out = append(out, models.RTECParticipant{
			UserID: p.UserID,
			Name:   name,
			Email:  email,
			Role:   role,
			Status: models.ParticipantStatusInvited,
		})
	}
	return out, fields
}
