package models

import "time"

// StoredFile is the metadata for an uploaded file kept under UPLOAD_PATH.
type StoredFile struct {
	ID           uint      `gorm:"primaryKey;column:id" json:"id"`
	OriginalName string    `gorm:"column:original_name;size:255" json:"originalName"`
	StoredName   string    `gorm:"column:stored_name;size:191;uniqueIndex" json:"storedName"`
	StoredPath   string    `gorm:"column:stored_path;size:500" json:"-"`
	Category     string    `gorm:"column:category;size:64" json:"category"`
	FileSize     int64     `gorm:"column:file_size" json:"fileSize"`
	MimeType     string    `gorm:"column:mime_type;size:191" json:"mimeType"`
	FileHash     string    `gorm:"column:file_hash;size:64" json:"fileHash"`
	HasBackup    bool      `gorm:"column:has_backup" json:"hasBackup"`
	UploadedBy   uint      `gorm:"column:uploaded_by;index" json:"uploadedBy"`
	UploadedAt   time.Time `gorm:"column:uploaded_at" json:"uploadedAt"`
}

func (StoredFile) TableName() string { return "stored_files" }

// StoredFileBlob holds a copy of the file bytes as a fallback when the disk
// copy is missing.
type StoredFileBlob struct {
	FileID    uint      `gorm:"primaryKey;autoIncrement:false;column:file_id"`
	Data      []byte    `gorm:"column:data"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (StoredFileBlob) TableName() string { return "stored_file_blobs" }

// GetFileSizeInMB reports the size in megabytes.
func (f *StoredFile) GetFileSizeInMB() float64 {
	return float64(f.FileSize) / (1024 * 1024)
}
