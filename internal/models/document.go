package models

import (
	"time"

	"gorm.io/gorm"
)

type DocumentKind string

const (
	DocConstitution DocumentKind = "CONSTITUTION"
	DocMinutes      DocumentKind = "MINUTES"
	DocReceipt      DocumentKind = "RECEIPT"
	DocOther        DocumentKind = "OTHER"
)

type Document struct {
	ID          uint           `gorm:"primaryKey"`
	GroupID     uint           `gorm:"index;not null"`
	Kind        DocumentKind   `gorm:"size:20;not null;default:OTHER"`
	FileName    string         `gorm:"size:255;not null"` // original upload name
	StorageKey  string         `gorm:"size:100;not null"` // uuid-based name on disk
	ContentType string         `gorm:"size:100"`
	SizeBytes   int64          `gorm:"not null"`
	UploadedBy  uint           `gorm:"not null"`
	CreatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}
