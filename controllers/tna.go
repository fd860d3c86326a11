package controllers

import (
	"net/http"

	"dost-pmns-api/models"
	"dost-pmns-api/services"

	"github.com/gin-gonic/gin"
)

type ScheduleTNARequest struct {
	ApplicationID uint                 `json:"applicationId" binding:"required"`
	ScheduledDate string               `json:"scheduledDate" binding:"required"`
	ScheduledTime string               `json:"scheduledTime"`
	Location      string               `json:"location" binding:"required"`
	Assessors     []models.TNAAssessor `json:"assessors"`
	Notes         string               `json:"notes"`
}

type RescheduleTNARequest struct {
	ScheduledDate *string              `json:"scheduledDate"`
	ScheduledTime *string              `json:"scheduledTime"`
	Location      *string              `json:"location"`
	Assessors     []models.TNAAssessor `json:"assessors"`
	Notes         *string              `json:"notes"`
}

type NotesRequest struct {
	Notes    string `json:"notes" form:"notes"`
	Comments string `json:"comments" form:"comments"`
}

func (r NotesRequest) text() string { return firstNonEmpty(r.Notes, r.Comments) }

func bindNotes(c *gin.Context) (NotesRequest, bool) {
	var req NotesRequest
	if c.Request.ContentLength > 0 && !bind(c, &req) {
		return req, false
	}
	return req, true
}

func ScheduleTNA(c *gin.Context) {
	var req ScheduleTNARequest
	if !bindJSON(c, &req) {
		return
	}
	date, err := parseDate("scheduledDate", req.ScheduledDate)
	if err != nil {
		respondError(c, err)
		return
	}
	tna, err := services.NewTNAService(nil).Schedule(c.Request.Context(), currentUser(c), services.ScheduleTNAInput{
		ApplicationID: req.ApplicationID,
		ScheduledDate: date,
		ScheduledTime: req.ScheduledTime,
		Location:      req.Location,
		Assessors:     req.Assessors,
		Notes:         req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, "TNA scheduled successfully", tna)
}

func RescheduleTNA(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req RescheduleTNARequest
	if !bindJSON(c, &req) {
		return
	}
	date, err := parseOptionalDate("scheduledDate", req.ScheduledDate)
	if err != nil {
		respondError(c, err)
		return
	}
	tna, err := services.NewTNAService(nil).Reschedule(c.Request.Context(), currentUser(c), id, services.RescheduleTNAInput{
		ScheduledDate: date,
		ScheduledTime: req.ScheduledTime,
		Location:      req.Location,
		Assessors:     req.Assessors,
		Notes:         req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "TNA rescheduled", tna)
}

func MarkTNAConducted(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	req, ok := bindNotes(c)
	if !ok {
		return
	}
	tna, err := services.NewTNAService(nil).MarkConducted(c.Request.Context(), currentUser(c), id, req.text())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "TNA marked as conducted", tna)
}

// UploadTNAReport takes a multipart "report" file and optional "summary".
func UploadTNAReport(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	report, cleanup, err := formUpload(c, "report")
	defer cleanup()
	if err != nil {
		respondError(c, err)
		return
	}
	tna, err := services.NewTNAService(nil).UploadReport(c.Request.Context(), currentUser(c), id, report, c.PostForm("summary"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "TNA report uploaded", tna)
}

func DownloadTNAReport(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	svc := services.NewTNAService(nil)
	file, err := svc.ReportFile(currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	serveFile(c, svc.Files(), file)
}

func ForwardTNA(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	req, ok := bindNotes(c)
	if !ok {
		return
	}
	tna, err := services.NewTNAService(nil).Forward(c.Request.Context(), currentUser(c), id, req.text())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "TNA report forwarded to DOST MIMAROPA", tna)
}

func DOSTReviewTNA(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.DOSTReviewInput
	if !bindJSON(c, &req) {
		return
	}
	tna, err := services.NewTNAService(nil).DOSTReview(c.Request.Context(), currentUser(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "TNA review recorded", tna)
}

func RDSignTNA(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	req, ok := bindNotes(c)
	if !ok {
		return
	}
	tna, err := services.NewTNAService(nil).RDSign(c.Request.Context(), currentUser(c), id, req.text())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "TNA signed by the Regional Director", tna)
}

func ListTNAs(c *gin.Context) {
	list, err := services.NewTNAService(nil).List(currentUser(c), services.TNAFilter{
		Status:   c.Query("status"),
		Province: c.Query("province"),
		Page:     queryPage(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", list)
}

func GetTNA(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	tna, err := services.NewTNAService(nil).Get(currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", tna)
}

func GetTNAByApplication(c *gin.Context) {
	id, ok := paramID(c, "applicationId")
	if !ok {
		return
	}
	tna, err := services.NewTNAService(nil).GetByApplication(currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", tna)
}
