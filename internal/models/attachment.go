package models

import (
	"time"

	"gorm.io/datatypes"
)

// Attachment is an uploaded file linked to a request or a complaint
type Attachment struct {
	ID               uint      `json:"file_id" gorm:"primaryKey"`
	Filename         string    `json:"filename" gorm:"type:varchar(255);not null"`
	OriginalFilename string    `json:"original_filename" gorm:"type:varchar(255);not null"`
	Path             string    `json:"-" gorm:"type:varchar(500);not null"`
	Size             int64     `json:"file_size" gorm:"not null"`
	ContentType      string    `json:"file_type" gorm:"type:varchar(100);not null"`
	UploadedBy       uint      `json:"uploaded_by" gorm:"not null;index"`
	UploadDate       time.Time `json:"upload_date" gorm:"not null"`
	RequestID        *uint     `json:"request_id" gorm:"index"`
	ComplaintID      *uint     `json:"complaint_id" gorm:"index"`
}

// AuditLog records a mutation made through the API
type AuditLog struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	AccountID  uint           `json:"account_id" gorm:"not null;index"`
	Action     string         `json:"action" gorm:"type:varchar(64);not null"`
	Resource   string         `json:"resource" gorm:"type:varchar(64);not null"`
	ResourceID uint           `json:"resource_id"`
	Details    datatypes.JSON `json:"details" gorm:"type:jsonb"`
	IPAddress  string         `json:"ip_address" gorm:"type:varchar(64)"`
	CreatedAt  time.Time      `json:"created_at"`
}
