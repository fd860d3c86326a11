package controllers

import (
	"context"
	"net/http"

	"dost-pmns-api/models"
	"dost-pmns-api/services"

	"github.com/gin-gonic/gin"
)

type ReviewRequest struct {
	Comments string `json:"comments" form:"comments"`
}

// applicationUploads reads the two application files from the multipart body.
func applicationUploads(c *gin.Context, in *services.ApplicationInput) (func(), error) {
	loi, closeLOI, err := formUpload(c, services.FileLetterOfIntent)
	if err != nil {
		return closeLOI, err
	}
	profile, closeProfile, err := formUpload(c, services.FileEnterpriseProfile)
	if err != nil {
		closeLOI()
		return closeProfile, err
	}
	in.LetterOfIntent, in.EnterpriseProfile = loi, profile
	return func() { closeLOI(); closeProfile() }, nil
}

// SubmitApplication handles a multipart application under /programs/:program.
func SubmitApplication(c *gin.Context) {
	var req services.ApplicationInput
	if !bind(c, &req) {
		return
	}
	cleanup, err := applicationUploads(c, &req)
	defer cleanup()
	if err != nil {
		respondError(c, err)
		return
	}

	app, err := services.NewApplicationService(nil).Submit(c.Request.Context(), currentUser(c), c.Param("program"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, "Application submitted successfully", app)
}

func ListApplications(c *gin.Context) {
	list, err := services.NewApplicationService(nil).List(currentUser(c), services.ApplicationFilter{
		Program:    firstNonEmpty(c.Param("program"), c.Query("program")),
		Status:     c.Query("status"),
		PSTOStatus: c.Query("pstoStatus"),
		Province:   c.Query("province"),
		Search:     c.Query("search"),
		Page:       queryPage(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", list)
}

func GetApplication(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	app, err := services.NewApplicationService(nil).Get(currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", app)
}

// ResubmitApplication replaces the data of a returned application.
func ResubmitApplication(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.ApplicationInput
	if !bind(c, &req) {
		return
	}
	cleanup, err := applicationUploads(c, &req)
	defer cleanup()
	if err != nil {
		respondError(c, err)
		return
	}

	app, err := services.NewApplicationService(nil).Resubmit(c.Request.Context(), currentUser(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Application resubmitted successfully", app)
}

// PSTOReviewApplication handles /psto/approve, /psto/reject and /psto/return.
func PSTOReviewApplication(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req ReviewRequest
	if c.Request.ContentLength > 0 && !bind(c, &req) {
		return
	}
	app, err := services.NewApplicationService(nil).PSTOReview(c.Request.Context(), currentUser(c), id, c.Param("decision"), req.Comments)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Application review recorded", app)
}

// DOSTReviewApplication handles /dost/approve and /dost/reject.
func DOSTReviewApplication(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req ReviewRequest
	if c.Request.ContentLength > 0 && !bind(c, &req) {
		return
	}
	app, err := services.NewApplicationService(nil).DOSTReview(c.Request.Context(), currentUser(c), id,
		services.DOSTReviewInput{Action: c.Param("decision"), Comments: req.Comments})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Application review recorded", app)
}

func StartImplementation(c *gin.Context) {
	applicationOverride(c, services.NewApplicationService(nil).StartImplementation, "Implementation started")
}

func CompleteApplication(c *gin.Context) {
	applicationOverride(c, services.NewApplicationService(nil).Complete, "Application completed")
}

func applicationOverride(c *gin.Context, fn func(context.Context, *models.User, uint, string) (*models.Application, error), message string) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req ReviewRequest
	if c.Request.ContentLength > 0 && !bind(c, &req) {
		return
	}
	app, err := fn(c.Request.Context(), currentUser(c), id, req.Comments)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, message, app)
}

func ApplicationHistory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	rows, err := services.NewApplicationService(nil).History(currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", rows)
}

// DownloadApplicationFile serves letterOfIntent or enterpriseProfile.
func DownloadApplicationFile(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	svc := services.NewApplicationService(nil)
	file, err := svc.File(currentUser(c), id, c.Param("type"))
	if err != nil {
		respondError(c, err)
		return
	}
	serveFile(c, svc.Files(), file)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
