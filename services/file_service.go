package services

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dost-pmns-api/apperror"
	"dost-pmns-api/config"
	"dost-pmns-api/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// File categories.
const (
	FileCategoryLetterOfIntent    = "letter_of_intent"
	FileCategoryEnterpriseProfile = "enterprise_profile"
	FileCategoryTNAReport         = "tna_report"
	FileCategoryChecklist         = "checklist_document"
)

// AllowedExtensions maps accepted upload extensions to their content type.
var AllowedExtensions = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// Upload is an incoming file, independent of the transport that carried it.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

type FileService struct {
	db          *gorm.DB
	root        string
	maxBytes    int64
	storeBackup bool
}

func NewFileService(db *gorm.DB) *FileService {
	cfg := config.Current()
	return &FileService{
		db:          resolveDB(db),
		root:        cfg.UploadPath,
		maxBytes:    cfg.MaxUploadBytes(),
		storeBackup: cfg.UploadDBBackup,
	}
}

// Validate checks the extension and declared size of an upload.
func (s *FileService) Validate(field string, up *Upload) error {
	if up == nil || up.Reader == nil {
		return apperror.Required(field)
	}
	ext := strings.ToLower(filepath.Ext(up.Filename))
	if _, ok := AllowedExtensions[ext]; !ok {
		return apperror.Validation(apperror.FieldError{
			Field:   field,
			Message: fmt.Sprintf("%s must be a PDF, Word document or image (got %q)", field, ext),
		})
	}
	if up.Size > s.maxBytes {
		return apperror.TooLarge(fmt.Sprintf("%s exceeds the %d MB upload limit", field, s.maxBytes/(1024*1024)))
	}
	return nil
}

// Save writes the upload to UPLOAD_PATH/<yyyy>/<mm>/ and records it through
// tx. The disk copy is removed again when the metadata insert fails.
func (s *FileService) Save(tx *gorm.DB, field string, up *Upload, category string, uploaderID uint) (*models.StoredFile, error) {
	if err := s.Validate(field, up); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(up.Reader, s.maxBytes+1))
	if err != nil {
		return nil, apperror.BadRequest("Failed to read %s: %v", field, err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, apperror.TooLarge(fmt.Sprintf("%s exceeds the %d MB upload limit", field, s.maxBytes/(1024*1024)))
	}
	if len(data) == 0 {
		return nil, apperror.Validation(apperror.FieldError{Field: field, Message: field + " is empty"})
	}

	now := time.Now()
	ext := strings.ToLower(filepath.Ext(up.Filename))
	dir := filepath.Join(s.root, now.Format("2006"), now.Format("01"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperror.Internal(fmt.Errorf("create upload dir: %w", err))
	}

	storedName := uuid.NewString() + ext
	fullPath := filepath.Join(dir, storedName)
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return nil, apperror.Internal(fmt.Errorf("write upload: %w", err))
	}

	sum := sha256.Sum256(data)
	mimeType := up.ContentType
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = AllowedExtensions[ext]
	}

	file := &models.StoredFile{
		OriginalName: filepath.Base(up.Filename),
		StoredName:   storedName,
		StoredPath:   fullPath,
		Category:     category,
		FileSize:     int64(len(data)),
		MimeType:     mimeType,
		FileHash:     hex.EncodeToString(sum[:]),
		HasBackup:    s.storeBackup,
		UploadedBy:   uploaderID,
		UploadedAt:   now,
	}

	err = tx.Transaction(func(inner *gorm.DB) error {
		if err := inner.Create(file).Error; err != nil {
			return err
		}
		if s.storeBackup {
			return inner.Create(&models.StoredFileBlob{FileID: file.ID, Data: data}).Error
		}
		return nil
	})
	if err != nil {
		_ = os.Remove(fullPath)
		return nil, apperror.Internal(fmt.Errorf("record upload: %w", err))
	}
	return file, nil
}

// Get loads the metadata row.
func (s *FileService) Get(id uint) (*models.StoredFile, error) {
	var file models.StoredFile
	if err := s.db.First(&file, id).Error; err != nil {
		return nil, lookupErr(err, "File")
	}
	return &file, nil
}

// Read returns the file contents, preferring the disk copy and falling back
// to the database backup.
func (s *FileService) Read(file *models.StoredFile) ([]byte, error) {
	if file == nil {
		return nil, apperror.NotFound("File")
	}
	data, err := os.ReadFile(file.StoredPath)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		logger().WithError(err).WithField("file_id", file.ID).Warn("reading upload from disk failed, trying backup")
	}

	var blob models.StoredFileBlob
	if err := s.db.Where("file_id = ?", file.ID).First(&blob).Error; err != nil {
		return nil, lookupErr(err, "File")
	}
	return blob.Data, nil
}

// Serve writes the file to w with download headers.
func (s *FileService) Serve(w http.ResponseWriter, file *models.StoredFile, inline bool) error {
	data, err := s.Read(file)
	if err != nil {
		return err
	}
	disposition := "attachment"
	if inline {
		disposition = "inline"
	}
	w.Header().Set("Content-Type", file.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, file.OriginalName))
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	w.WriteHeader(http.StatusOK)
	_, err = io.Copy(w, bytes.NewReader(data))
	return err
}
