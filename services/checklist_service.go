package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"dost-pmns-api/apperror"
	"dost-pmns-api/models"
	"dost-pmns-api/utils"

	"gorm.io/gorm"
)

// ChecklistService runs the document checklist workflow for every kind.
type ChecklistService struct {
	db       *gorm.DB
	files    *FileService
	notifier *NotificationService
}

func NewChecklistService(db *gorm.DB) *ChecklistService {
	db = resolveDB(db)
	return &ChecklistService{db: db, files: NewFileService(db), notifier: NewNotificationService(db)}
}

// ChecklistView is a checklist with its computed progress.
type ChecklistView struct {
	*models.Checklist
	Title    string            `json:"title"`
	Progress ChecklistProgress `json:"progress"`
}

func newChecklistView(k *ChecklistKind, c *models.Checklist) *ChecklistView {
	return &ChecklistView{Checklist: c, Title: k.Title, Progress: checklistProgress(c.Items)}
}

func (s *ChecklistService) kind(kind string) (*ChecklistKind, error) {
	k := LookupChecklistKind(kind)
	if k == nil {
		return nil, apperror.NotFound("Checklist kind " + kind)
	}
	return k, nil
}

func (s *ChecklistService) requireReviewer(k *ChecklistKind, actor *models.User) error {
	if actor == nil {
		return apperror.Unauthorized("")
	}
	if !k.isReviewer(actor) {
		return apperror.Forbidden(fmt.Sprintf("Only %s can manage %s", strings.Join(k.ReviewerRoles, ", "), strings.ToLower(k.Title)))
	}
	return nil
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order ASC, id ASC")
}

func (s *ChecklistService) load(db *gorm.DB, k *ChecklistKind, id uint) (*models.Checklist, error) {
	var c models.Checklist
	err := db.Preload("Items", preloadItems).Preload("Items.File").
		Where("kind = ?", k.Kind).First(&c, id).Error
	if err != nil {
		return nil, lookupErr(err, k.Title)
	}
	return &c, nil
}

type RequestChecklistInput struct {
	TNAID   uint       `json:"tnaId" binding:"required"`
	DueDate *time.Time `json:"dueDate"`
	Notes   string     `json:"notes"`
}

// Request creates the checklist for a TNA once the TNA reached the kind's
// predecessor status. A second request for the same TNA is rejected.
func (s *ChecklistService) Request(ctx context.Context, kind string, actor *models.User, in RequestChecklistInput) (*ChecklistView, error) {
	k, err := s.kind(kind)
	if err != nil {
		return nil, err
	}
	if err := s.requireReviewer(k, actor); err != nil {
		return nil, err
	}
	if in.TNAID == 0 {
		return nil, apperror.Required("tnaId")
	}

	var checklist *models.Checklist
	var history *models.StatusHistory
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var tna models.TNA
		if err := tx.First(&tna, in.TNAID).Error; err != nil {
			return lookupErr(err, "TNA")
		}
		app, err := loadApplication(tx, tna.ApplicationID)
		if err != nil {
			return err
		}
		if err := requireProvincialReviewer(actor, app); err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&models.Checklist{}).Where("kind = ? AND tna_id = ?", k.Kind, tna.ID).Count(&existing).Error; err != nil {
			return apperror.Internal(err)
		}
		if existing > 0 {
			return apperror.BadRequest("%s have already been requested for this TNA", k.Title)
		}

		if err := requireStatus("TNA", tna.Status, k.PredecessorTNAStatus); err != nil {
			return err
		}
		if k.PredecessorAppStatus != "" {
			if err := requireStatus("Application", app.Status, k.PredecessorAppStatus); err != nil {
				return err
			}
		}

		now := time.Now()
		checklist = &models.Checklist{
			Kind:          k.Kind,
			TNAID:         tna.ID,
			ApplicationID: app.ID,
			ProponentID:   app.ProponentID,
			Status:        models.ChecklistStatusRequested,
			RequestedBy:   actor.ID,
			RequestedAt:   now,
			DueDate:       in.DueDate,
			Notes:         utils.SanitizeInput(in.Notes),
		}
		for i, d := range k.Documents {
			checklist.Items = append(checklist.Items, models.ChecklistItem{
				Type:           d.Type,
				Label:          d.Label,
				Description:    d.Description,
				SortOrder:      i + 1,
				DocumentStatus: models.DocumentStatusPending,
			})
		}
		if err := tx.Create(checklist).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperror.BadRequest("%s have already been requested for this TNA", k.Title)
			}
			return apperror.Internal(err)
		}

		if _, err := recordHistory(tx, models.EntityChecklist, checklist.ID, "", checklist.Status, "request", actor.ID, checklist.Notes); err != nil {
			return apperror.Internal(err)
		}
		history, err = changeStatus(tx, &tna, models.EntityTNA, tna.ID, tna.Status, k.TNAStatusOnRequest, "request_"+k.Kind+"_documents", actor.ID, "", nil)
		return err
	})
	if err != nil {
		return nil, apperror.From(err)
	}

	s.notifier.NotifyUserID(ctx, checklist.ProponentID, models.Notification{
		Type:          NotifyDocumentsRequested,
		Title:         k.Title + " requested",
		Message:       fmt.Sprintf("Please submit the %d required %s.", len(checklist.Items), strings.ToLower(k.Title)),
		ApplicationID: uintPtr(checklist.ApplicationID),
		RelatedType:   models.EntityChecklist,
		RelatedID:     uintPtr(checklist.ID),
		Priority:      models.PriorityHigh,
		DedupeKey:     fmt.Sprintf("history:%d", history.ID),
	})

	return s.Get(kind, actor, checklist.ID)
}

type ChecklistFilter struct {
	Status string
	TNAID  uint
	Page   Page
}

type ChecklistList struct {
	Items  []*ChecklistView `json:"items"`
	Total  int64            `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

func (s *ChecklistService) List(kind string, actor *models.User, f ChecklistFilter) (*ChecklistList, error) {
	k, err := s.kind(kind)
	if err != nil {
		return nil, err
	}
	page := f.Page.normalize(20, 100)

	q := s.db.Model(&models.Checklist{}).Where("checklists.kind = ?", k.Kind)
	if actor.Role != models.RoleSuperAdmin && actor.Role != models.RoleDOSTMimaropa {
		q = q.Joins("JOIN applications ON applications.id = checklists.application_id")
		q = scopeApplications(q, actor, "applications.")
	}
	if f.Status != "" {
		q = q.Where("checklists.status = ?", f.Status)
	}
	if f.TNAID != 0 {
		q = q.Where("checklists.tna_id = ?", f.TNAID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, apperror.Internal(err)
	}
	var rows []models.Checklist
	if err := q.Preload("Items", preloadItems).
		Order("checklists.id DESC").Limit(page.Limit).Offset(page.Offset).
		Find(&rows).Error; err != nil {
		return nil, apperror.Internal(err)
	}

	out := &ChecklistList{Items: make([]*ChecklistView, 0, len(rows)), Total: total, Limit: page.Limit, Offset: page.Offset}
	for i := range rows {
		out.Items = append(out.Items, newChecklistView(k, &rows[i]))
	}
	return out, nil
}

func (s *ChecklistService) Get(kind string, actor *models.User, id uint) (*ChecklistView, error) {
	k, err := s.kind(kind)
	if err != nil {
		return nil, err
	}
	c, err := s.load(s.db, k, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeView(actor, c); err != nil {
		return nil, err
	}
	return newChecklistView(k, c), nil
}

func (s *ChecklistService) GetByTNA(kind string, actor *models.User, tnaID uint) (*ChecklistView, error) {
	k, err := s.kind(kind)
	if err != nil {
		return nil, err
	}
	var c models.Checklist
	if err := s.db.Select("id").Where("kind = ? AND tna_id = ?", k.Kind, tnaID).First(&c).Error; err != nil {
		return nil, lookupErr(err, k.Title)
	}
	return s.Get(kind, actor, c.ID)
}

func (s *ChecklistService) authorizeView(actor *models.User, c *models.Checklist) error {
	app, err := loadApplication(s.db, c.ApplicationID)
	if err != nil {
		return err
	}
	if !canViewApplication(actor, app) {
		return apperror.Forbidden("You do not have access to this checklist")
	}
	return nil
}

type SubmitItemInput struct {
	File *Upload
	Text string
}

// SubmitItem stores the proponent's document for one slot, replacing any
// earlier submission, and re-derives the overall status.
func (s *ChecklistService) SubmitItem(ctx context.Context, kind string, actor *models.User, id uint, itemType string, in SubmitItemInput) (*ChecklistView, error) {
	k, err := s.kind(kind)
	if err != nil {
		return nil, err
	}
	if err := requireRole(actor, models.RoleProponent); err != nil {
		return nil, err
	}
	in.Text = utils.SanitizeInput(in.Text)
	if in.File == nil && in.Text == "" {
		return nil, apperror.Required("file")
	}

	var c *models.Checklist
	var history *models.StatusHistory
	err = s.db.Transaction(func(tx *gorm.DB) error {
		c, err = s.load(tx, k, id)
		if err != nil {
			return err
		}
		if c.ProponentID != actor.ID {
			return apperror.Forbidden("You can only submit documents for your own application")
		}
		if c.Status == k.TerminalStatus {
			return apperror.BadRequest("%s are already completed", k.Title)
		}
		item := c.Item(itemType)
		if item == nil {
			return unknownItemType(k, c, itemType)
		}
		if item.DocumentStatus == models.DocumentStatusApproved {
			return apperror.BadRequest("Document %s is already approved", itemType)
		}

		now := time.Now()
		updates := map[string]interface{}{
			"document_status": models.DocumentStatusSubmitted,
			"text_value":      in.Text,
			"uploaded_by":     actor.ID,
			"uploaded_at":     now,
			"reviewed_by":     nil,
			"reviewed_at":     nil,
		}
		if in.File != nil {
			file, err := s.files.Save(tx, "file", in.File, FileCategoryChecklist, actor.ID)
			if err != nil {
				return err
			}
			updates["file_id"] = file.ID
			item.FileID = &file.ID
			item.File = file
		} else {
			updates["file_id"] = nil
			item.FileID = nil
			item.File = nil
		}
		from := item.DocumentStatus
		if err := tx.Model(item).Updates(updates).Error; err != nil {
			return apperror.Internal(err)
		}
		item.DocumentStatus = models.DocumentStatusSubmitted
		item.TextValue = in.Text
		item.UploadedBy = uintPtr(actor.ID)
		item.UploadedAt = &now
		item.ReviewedBy = nil
		item.ReviewedAt = nil
		if _, err := recordHistory(tx, models.EntityChecklistItem, item.ID, from, item.DocumentStatus, "submit", actor.ID, ""); err != nil {
			return apperror.Internal(err)
		}

		history, err = s.rederive(tx, k, c, "submit_item", actor.ID, "", nil)
		return err
	})
	if err != nil {
		return nil, apperror.From(err)
	}

	if history != nil {
		s.notifyReviewers(ctx, k, c, models.Notification{
			Type:          NotifyDocumentSubmitted,
			Title:         k.Title + " updated",
			Message:       fmt.Sprintf("%s for application %d are now %s.", k.Title, c.ApplicationID, humanStatus(c.Status)),
			ApplicationID: uintPtr(c.ApplicationID),
			RelatedType:   models.EntityChecklist,
			RelatedID:     uintPtr(c.ID),
			DedupeKey:     fmt.Sprintf("history:%d", history.ID),
		})
	}
	return newChecklistView(k, c), nil
}

type ReviewItemInput struct {
	Action   string `json:"action" binding:"required,oneof=approve reject"`
	Comments string `json:"comments"`
}

// ReviewItem approves or rejects a submitted document.
func (s *ChecklistService) ReviewItem(ctx context.Context, kind string, actor *models.User, id uint, itemType string, in ReviewItemInput) (*ChecklistView, error) {
	k, err := s.kind(kind)
	if err != nil {
		return nil, err
	}
	if err := s.requireReviewer(k, actor); err != nil {
		return nil, err
	}
	var to string
	switch in.Action {
	case "approve":
		to = models.DocumentStatusApproved
	case "reject":
		to = models.DocumentStatusRejected
	default:
		return nil, apperror.Validation(apperror.FieldError{Field: "action", Message: "action must be one of approve, reject"})
	}

	var c *models.Checklist
	var item *models.ChecklistItem
	var itemHistory *models.StatusHistory
	err = s.db.Transaction(func(tx *gorm.DB) error {
		c, err = s.load(tx, k, id)
		if err != nil {
			return err
		}
		if err := s.requireProvince(tx, actor, c); err != nil {
			return err
		}
		item = c.Item(itemType)
		if item == nil {
			return unknownItemType(k, c, itemType)
		}
		if item.DocumentStatus != models.DocumentStatusSubmitted {
			return apperror.BadRequest("Document %s must be submitted before review (current: %s)", itemType, item.DocumentStatus)
		}

		now := time.Now()
		comments := utils.SanitizeInput(in.Comments)
		if err := tx.Model(item).Updates(map[string]interface{}{
			"document_status": to,
			"reviewed_by":     actor.ID,
			"reviewed_at":     now,
			"comments":        comments,
		}).Error; err != nil {
			return apperror.Internal(err)
		}
		item.DocumentStatus = to
		item.ReviewedBy = uintPtr(actor.ID)
		item.ReviewedAt = &now
		item.Comments = comments
		itemHistory, err = recordHistory(tx, models.EntityChecklistItem, item.ID, models.DocumentStatusSubmitted, to, in.Action, actor.ID, comments)
		if err != nil {
			return apperror.Internal(err)
		}

		_, err = s.rederive(tx, k, c, "review_item", actor.ID, "", nil)
		return err
	})
	if err != nil {
		return nil, apperror.From(err)
	}

	recipient := c.ProponentID
	if item.UploadedBy != nil {
		recipient = *item.UploadedBy
	}
	n := models.Notification{
		Type:          NotifyDocumentReviewed,
		Title:         fmt.Sprintf("%s %s", item.Label, to),
		Message:       fmt.Sprintf("Your %s was %s. Overall status: %s.", item.Label, to, humanStatus(c.Status)),
		ApplicationID: uintPtr(c.ApplicationID),
		RelatedType:   models.EntityChecklist,
		RelatedID:     uintPtr(c.ID),
		DedupeKey:     fmt.Sprintf("history:%d", itemHistory.ID),
	}
	if to == models.DocumentStatusRejected {
		n.Priority = models.PriorityHigh
		if item.Comments != "" {
			n.Message += " Comments: " + item.Comments
		}
	}
	s.notifier.NotifyUserID(ctx, recipient, n)
	return newChecklistView(k, c), nil
}

type AdditionalItemInput struct {
	Type        string `json:"type"`
	Label       string `json:"label" binding:"required"`
	Description string `json:"description"`
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// AddItem requests an extra document that is not part of the kind's list.
func (s *ChecklistService) AddItem(ctx context.Context, kind string, actor *models.User, id uint, in AdditionalItemInput) (*ChecklistView, error) {
	k, err := s.kind(kind)
	if err != nil {
		return nil, err
	}
	if err := s.requireReviewer(k, actor); err != nil {
		return nil, err
	}
	label := utils.SanitizeInput(in.Label)
	if label == "" {
		return nil, apperror.Required("label")
	}
	itemType := in.Type
	if strings.TrimSpace(itemType) == "" {
		itemType = label
	}
	itemType = strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(itemType), "_"), "_")
	if itemType == "" {
		return nil, apperror.Validation(apperror.FieldError{Field: "type", Message: "type must contain letters or digits"})
	}

	var c *models.Checklist
	var item *models.ChecklistItem
	err = s.db.Transaction(func(tx *gorm.DB) error {
		c, err = s.load(tx, k, id)
		if err != nil {
			return err
		}
		if err := s.requireProvince(tx, actor, c); err != nil {
			return err
		}
		if c.Status == k.TerminalStatus {
			return apperror.BadRequest("%s are already completed", k.Title)
		}
		if c.Item(itemType) != nil {
			return apperror.BadRequest("Document %s is already part of this checklist", itemType)
		}

		item = &models.ChecklistItem{
			ChecklistID:    c.ID,
			Type:           itemType,
			Label:          label,
			Description:    utils.SanitizeInput(in.Description),
			Additional:     true,
			SortOrder:      len(c.Items) + 1,
			DocumentStatus: models.DocumentStatusPending,
			RequestedBy:    uintPtr(actor.ID),
		}
		if err := tx.Create(item).Error; err != nil {
			return apperror.Internal(err)
		}
		c.Items = append(c.Items, *item)
		if _, err := recordHistory(tx, models.EntityChecklistItem, item.ID, "", item.DocumentStatus, "request_additional", actor.ID, item.Label); err != nil {
			return apperror.Internal(err)
		}
		_, err = s.rederive(tx, k, c, "add_item", actor.ID, "", nil)
		return err
	})
	if err != nil {
		return nil, apperror.From(err)
	}

	s.notifier.NotifyUserID(ctx, c.ProponentID, models.Notification{
		Type:          NotifyDocumentsRequested,
		Title:         "Additional document requested",
		Message:       fmt.Sprintf("Please submit %s for your %s.", item.Label, strings.ToLower(k.Title)),
		ApplicationID: uintPtr(c.ApplicationID),
		RelatedType:   models.EntityChecklist,
		RelatedID:     uintPtr(c.ID),
		DedupeKey:     fmt.Sprintf("checklist-item:%d", item.ID),
	})
	return newChecklistView(k, c), nil
}

type RevisionInput struct {
	DocumentsToRevise []string `json:"documentsToRevise" binding:"required,min=1"`
	Comments          string   `json:"comments"`
}

// RequestRevision sends the flagged documents back to the proponent. Items
// that are currently rejected are always included.
func (s *ChecklistService) RequestRevision(ctx context.Context, kind string, actor *models.User, id uint, in RevisionInput) (*ChecklistView, error) {
	k, err := s.kind(kind)
	if err != nil {
		return nil, err
	}
	if err := s.requireReviewer(k, actor); err != nil {
		return nil, err
	}
	if len(in.DocumentsToRevise) == 0 {
		return nil, apperror.Required("documentsToRevise")
	}

	var c *models.Checklist
	var history *models.StatusHistory
	err = s.db.Transaction(func(tx *gorm.DB) error {
		c, err = s.load(tx, k, id)
		if err != nil {
			return err
		}
		if err := s.requireProvince(tx, actor, c); err != nil {
			return err
		}
		if err := requireStatus(k.Title, c.Status,
			models.ChecklistStatusSubmitted, models.ChecklistStatusUnderReview,
			models.ChecklistStatusRejected, models.ChecklistStatusApproved,
			models.ChecklistStatusRevisionRequested); err != nil {
			return err
		}

		flagged := make([]string, 0, len(in.DocumentsToRevise))
		seen := map[string]bool{}
		for _, t := range in.DocumentsToRevise {
			t = strings.TrimSpace(t)
			item := c.Item(t)
			if item == nil {
				return unknownItemType(k, c, t)
			}
			if item.DocumentStatus == models.DocumentStatusApproved {
				return apperror.BadRequest("Document %s is already approved", t)
			}
			if !seen[t] {
				seen[t] = true
				flagged = append(flagged, t)
			}
		}
		// Earlier flags stay until the proponent resubmits them.
		for _, t := range c.DocumentsToRevise {
			if item := c.Item(t); item != nil && item.DocumentStatus == models.DocumentStatusPending && !seen[t] {
				seen[t] = true
				flagged = append(flagged, t)
			}
		}
		for _, it := range c.Items {
			if it.DocumentStatus == models.DocumentStatusRejected && !seen[it.Type] {
				seen[it.Type] = true
				flagged = append(flagged, it.Type)
			}
		}

		for _, t := range flagged {
			item := c.Item(t)
			from := item.DocumentStatus
			if from == models.DocumentStatusPending {
				continue
			}
			if err := tx.Model(item).Updates(map[string]interface{}{
				"document_status": models.DocumentStatusPending,
				"reviewed_by":     nil,
				"reviewed_at":     nil,
			}).Error; err != nil {
				return apperror.Internal(err)
			}
			item.DocumentStatus = models.DocumentStatusPending
			if _, err := recordHistory(tx, models.EntityChecklistItem, item.ID, from, item.DocumentStatus, "revision_requested", actor.ID, in.Comments); err != nil {
				return apperror.Internal(err)
			}
		}

		comments := utils.SanitizeInput(in.Comments)
		c.DocumentsToRevise = flagged
		now := time.Now()
		extra := map[string]interface{}{
			"documents_to_revise":   c.DocumentsToRevise,
			"revision_requested_at": now,
			"revision_comments":     comments,
		}
		c.RevisionRequestedAt = &now
		c.RevisionComments = comments
		history, err = s.rederive(tx, k, c, "request_revision", actor.ID, comments, extra)
		return err
	})
	if err != nil {
		return nil, apperror.From(err)
	}

	key := fmt.Sprintf("revision:%d:%d", c.ID, c.RevisionRequestedAt.UnixNano())
	if history != nil {
		key = fmt.Sprintf("history:%d", history.ID)
	}
	s.notifier.NotifyUserID(ctx, c.ProponentID, models.Notification{
		Type:          NotifyRevisionRequested,
		Title:         k.Title + " revision requested",
		Message:       fmt.Sprintf("Please revise: %s. %s", strings.Join(c.DocumentsToRevise, ", "), c.RevisionComments),
		ApplicationID: uintPtr(c.ApplicationID),
		RelatedType:   models.EntityChecklist,
		RelatedID:     uintPtr(c.ID),
		Priority:      models.PriorityHigh,
		DedupeKey:     key,
	})
	return newChecklistView(k, c), nil
}

// Complete closes an approved checklist and moves the TNA, and for funding
// and refund the application, to the next stage.
func (s *ChecklistService) Complete(ctx context.Context, kind string, actor *models.User, id uint, comments string) (*ChecklistView, error) {
	k, err := s.kind(kind)
	if err != nil {
		return nil, err
	}
	if err := s.requireReviewer(k, actor); err != nil {
		return nil, err
	}

	var c *models.Checklist
	var history *models.StatusHistory
	err = s.db.Transaction(func(tx *gorm.DB) error {
		c, err = s.load(tx, k, id)
		if err != nil {
			return err
		}
		if err := s.requireProvince(tx, actor, c); err != nil {
			return err
		}
		if err := requireStatus(k.Title, c.Status, models.ChecklistStatusApproved); err != nil {
			return err
		}

		now := time.Now()
		comments = utils.SanitizeInput(comments)
		history, err = changeStatus(tx, c, models.EntityChecklist, c.ID, c.Status, k.TerminalStatus, "complete", actor.ID, comments,
			map[string]interface{}{"completed_by": actor.ID, "completed_at": now})
		if err != nil {
			return err
		}
		c.Status = k.TerminalStatus
		c.CompletedBy = uintPtr(actor.ID)
		c.CompletedAt = &now

		var tna models.TNA
		if err := tx.First(&tna, c.TNAID).Error; err != nil {
			return lookupErr(err, "TNA")
		}
		if err := requireStatus("TNA", tna.Status, k.TNAStatusOnRequest); err != nil {
			return err
		}
		if _, err := changeStatus(tx, &tna, models.EntityTNA, tna.ID, tna.Status, k.TNAStatusOnComplete, "complete_"+k.Kind+"_documents", actor.ID, comments, nil); err != nil {
			return err
		}

		if k.AppActionOnComplete != "" {
			app, err := loadApplication(tx, c.ApplicationID)
			if err != nil {
				return err
			}
			updates := map[string]interface{}{}
			switch k.AppActionOnComplete {
			case ActionStartImplementation:
				updates["implementation_started_at"] = now
			case ActionComplete:
				updates["completed_at"] = now
			}
			if _, err := advanceApplication(tx, app, k.AppActionOnComplete, actor.ID, comments, updates); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperror.From(err)
	}

	s.notifier.NotifyUserID(ctx, c.ProponentID, models.Notification{
		Type:          NotifyDocumentsCompleted,
		Title:         k.Title + " completed",
		Message:       fmt.Sprintf("All %s for application %d have been approved and completed.", strings.ToLower(k.Title), c.ApplicationID),
		ApplicationID: uintPtr(c.ApplicationID),
		RelatedType:   models.EntityChecklist,
		RelatedID:     uintPtr(c.ID),
		Priority:      models.PriorityHigh,
		DedupeKey:     fmt.Sprintf("history:%d", history.ID),
	})
	return newChecklistView(k, c), nil
}

// ItemFile returns the stored file of one item.
func (s *ChecklistService) ItemFile(kind string, actor *models.User, id uint, itemType string) (*models.StoredFile, error) {
	view, err := s.Get(kind, actor, id)
	if err != nil {
		return nil, err
	}
	item := view.Item(itemType)
	if item == nil || item.File == nil {
		return nil, apperror.NotFound("Document file")
	}
	return item.File, nil
}

// Files exposes the file service for serving downloads.
func (s *ChecklistService) Files() *FileService { return s.files }

// rederive recomputes the overall status and persists it, together with
// extra, when it changed. The returned history is nil when nothing changed.
func (s *ChecklistService) rederive(tx *gorm.DB, k *ChecklistKind, c *models.Checklist, action string, actorID uint, comments string, extra map[string]interface{}) (*models.StatusHistory, error) {
	next := DeriveOverallStatus(c.Items, ChecklistState{
		Status:            c.Status,
		DocumentsToRevise: c.DocumentsToRevise,
		TerminalStatus:    k.TerminalStatus,
	})
	if next == c.Status {
		if len(extra) > 0 {
			if err := tx.Model(c).Updates(extra).Error; err != nil {
				return nil, apperror.Internal(err)
			}
		}
		return nil, nil
	}
	from := c.Status
	history, err := changeStatus(tx, c, models.EntityChecklist, c.ID, from, next, action, actorID, comments, extra)
	if err != nil {
		return nil, err
	}
	c.Status = next
	return history, nil
}

// requireProvince stops a psto reviewer from acting on another province.
func (s *ChecklistService) requireProvince(tx *gorm.DB, actor *models.User, c *models.Checklist) error {
	if actor.Role != models.RolePSTO {
		return nil
	}
	app, err := loadApplication(tx, c.ApplicationID)
	if err != nil {
		return err
	}
	return requireProvincialReviewer(actor, app)
}

func (s *ChecklistService) notifyReviewers(ctx context.Context, k *ChecklistKind, c *models.Checklist, n models.Notification) {
	app, err := loadApplication(s.db, c.ApplicationID)
	if err != nil {
		logger().WithError(err).WithField("checklist_id", c.ID).Warn("cannot resolve reviewers")
		return
	}
	for _, role := range k.ReviewerRoles {
		switch role {
		case models.RolePSTO:
			s.notifier.NotifyRole(ctx, role, app.Province, n)
		case models.RoleDOSTMimaropa:
			s.notifier.NotifyRole(ctx, role, "", n)
		}
	}
}

func unknownItemType(k *ChecklistKind, c *models.Checklist, itemType string) error {
	valid := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		valid = append(valid, it.Type)
	}
	return apperror.Validation(apperror.FieldError{
		Field:   "type",
		Message: fmt.Sprintf("%q is not a %s document type (valid: %s)", itemType, k.Kind, strings.Join(valid, ", ")),
	})
}

func humanStatus(status string) string {
	return strings.ReplaceAll(strings.TrimPrefix(status, "documents_"), "_", " ")
}
