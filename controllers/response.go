package controllers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dost-pmns-api/apperror"
	"dost-pmns-api/config"
	"dost-pmns-api/middleware"
	"dost-pmns-api/models"
	"dost-pmns-api/services"
	"dost-pmns-api/utils"

	"github.com/gin-gonic/gin"
)

func respondOK(c *gin.Context, status int, message string, data interface{}) {
	body := gin.H{"success": true, "data": data}
	if message != "" {
		body["message"] = message
	}
	c.JSON(status, body)
}

// respondError writes the error envelope. Raw causes of 500s are only
// exposed in development.
func respondError(c *gin.Context, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		err = apperror.TooLarge("Request body is too large")
	}
	ae := apperror.From(err)
	body := gin.H{"success": false, "message": ae.Message, "error": ae.Code}
	if len(ae.Fields) > 0 {
		body["errors"] = ae.Fields
	}
	if ae.Status >= http.StatusInternalServerError {
		config.Logger.WithError(ae).WithFields(map[string]interface{}{
			"path":       c.Request.URL.Path,
			"request_id": c.GetString("requestID"),
		}).Error("request failed")
		if config.Current().IsDevelopment() && ae.Err != nil {
			body["details"] = ae.Err.Error()
		}
	}
	c.AbortWithStatusJSON(ae.Status, body)
}

// bindJSON binds and validates the body, writing the 400 itself on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, bindError(err))
		return false
	}
	return true
}

// bind is bindJSON for handlers that also accept form posts.
func bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBind(dst); err != nil {
		respondError(c, bindError(err))
		return false
	}
	return true
}

func bindError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return apperror.TooLarge("Request body is too large")
	}
	return utils.BindingError(err)
}

// currentUser returns the authenticated user. Routes that use it always sit
// behind AuthMiddleware.
func currentUser(c *gin.Context) *models.User {
	return middleware.CurrentUser(c)
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondError(c, apperror.BadRequest("Invalid %s", name))
		return 0, false
	}
	return uint(id), true
}

func queryUint(c *gin.Context, name string) uint {
	v, err := strconv.ParseUint(c.Query(name), 10, 64)
	if err != nil {
		return 0
	}
	return uint(v)
}

func queryPage(c *gin.Context) services.Page {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	if page, _ := strconv.Atoi(c.Query("page")); page > 1 && limit > 0 && offset == 0 {
		offset = (page - 1) * limit
	}
	return services.Page{Limit: limit, Offset: offset}
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02"}

// parseDate accepts RFC 3339 timestamps or plain dates in local time.
func parseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, apperror.Required(field)
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperror.Validation(apperror.FieldError{Field: field, Message: field + " must be a date (YYYY-MM-DD) or RFC 3339 timestamp"})
}

func parseOptionalDate(field string, value *string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	t, err := parseDate(field, *value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// formUpload opens the named multipart file. A missing file yields nil
// without an error; the caller decides whether it was required.
func formUpload(c *gin.Context, field string) (*services.Upload, func(), error) {
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, func() {}, nil
		}
		return nil, func() {}, bindError(err)
	}
	return openUpload(header)
}

func openUpload(header *multipart.FileHeader) (*services.Upload, func(), error) {
	f, err := header.Open()
	if err != nil {
		return nil, func() {}, apperror.BadRequest("Unable to read uploaded file %s", header.Filename)
	}
	return &services.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Reader:      f,
	}, func() { _ = f.Close() }, nil
}

// serveFile streams a stored file. ?download=1 forces an attachment.
func serveFile(c *gin.Context, files *services.FileService, file *models.StoredFile) {
	inline := c.Query("download") == ""
	if err := files.Serve(c.Writer, file, inline); err != nil {
		respondError(c, err)
	}
}
