package controllers

import (
	"net/http"

	"dost-pmns-api/apperror"
	"dost-pmns-api/services"

	"github.com/gin-gonic/gin"
)

const ctxChecklistKind = "checklistKind"

// WithChecklistKind binds a route group to one checklist kind (rtec,
// funding or refund).
func WithChecklistKind(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ctxChecklistKind, kind)
		c.Next()
	}
}

func checklistKind(c *gin.Context) string {
	return c.GetString(ctxChecklistKind)
}

type RequestChecklistRequest struct {
	TNAID   uint    `json:"tnaId" binding:"required"`
	DueDate *string `json:"dueDate"`
	Notes   string  `json:"notes"`
}

type CompleteChecklistRequest struct {
	Comments string `json:"comments"`
}

func RequestChecklist(c *gin.Context) {
	var req RequestChecklistRequest
	if !bindJSON(c, &req) {
		return
	}
	due, err := parseOptionalDate("dueDate", req.DueDate)
	if err != nil {
		respondError(c, err)
		return
	}
	view, err := services.NewChecklistService(nil).Request(c.Request.Context(), checklistKind(c), currentUser(c),
		services.RequestChecklistInput{TNAID: req.TNAID, DueDate: due, Notes: req.Notes})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, view.Title+" requested", view)
}

func ListChecklists(c *gin.Context) {
	list, err := services.NewChecklistService(nil).List(checklistKind(c), currentUser(c), services.ChecklistFilter{
		Status: c.Query("status"),
		TNAID:  queryUint(c, "tnaId"),
		Page:   queryPage(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", list)
}

func GetChecklist(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	view, err := services.NewChecklistService(nil).Get(checklistKind(c), currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", view)
}

func GetChecklistByTNA(c *gin.Context) {
	id, ok := paramID(c, "tnaId")
	if !ok {
		return
	}
	view, err := services.NewChecklistService(nil).GetByTNA(checklistKind(c), currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", view)
}

// ChecklistDocumentTypes lists the required document slots of the kind.
func ChecklistDocumentTypes(c *gin.Context) {
	k := services.LookupChecklistKind(checklistKind(c))
	if k == nil {
		respondError(c, apperror.NotFound("Checklist kind "+checklistKind(c)))
		return
	}
	respondOK(c, http.StatusOK, "", k.Documents)
}

// SubmitChecklistItem accepts a multipart "file" or a "text" value.
func SubmitChecklistItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	upload, cleanup, err := formUpload(c, "file")
	defer cleanup()
	if err != nil {
		respondError(c, err)
		return
	}
	in := services.SubmitItemInput{File: upload, Text: c.PostForm("text")}
	if upload == nil && in.Text == "" && c.ContentType() == gin.MIMEJSON {
		var body struct {
			Text string `json:"text"`
		}
		if !bindJSON(c, &body) {
			return
		}
		in.Text = body.Text
	}

	view, err := services.NewChecklistService(nil).SubmitItem(c.Request.Context(), checklistKind(c), currentUser(c), id, c.Param("type"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Document submitted", view)
}

func ReviewChecklistItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.ReviewItemInput
	if !bindJSON(c, &req) {
		return
	}
	view, err := services.NewChecklistService(nil).ReviewItem(c.Request.Context(), checklistKind(c), currentUser(c), id, c.Param("type"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Document reviewed", view)
}

func DownloadChecklistItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	svc := services.NewChecklistService(nil)
	file, err := svc.ItemFile(checklistKind(c), currentUser(c), id, c.Param("type"))
	if err != nil {
		respondError(c, err)
		return
	}
	serveFile(c, svc.Files(), file)
}

func AddChecklistItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.AdditionalItemInput
	if !bindJSON(c, &req) {
		return
	}
	view, err := services.NewChecklistService(nil).AddItem(c.Request.Context(), checklistKind(c), currentUser(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, "Additional document requested", view)
}

func RequestChecklistRevision(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.RevisionInput
	if !bindJSON(c, &req) {
		return
	}
	view, err := services.NewChecklistService(nil).RequestRevision(c.Request.Context(), checklistKind(c), currentUser(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Revision requested", view)
}

func CompleteChecklist(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req CompleteChecklistRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	view, err := services.NewChecklistService(nil).Complete(c.Request.Context(), checklistKind(c), currentUser(c), id, req.Comments)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, view.Title+" completed", view)
}
