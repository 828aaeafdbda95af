package models

import "time"

// RefreshSession: one row per issued refresh token. The token itself is opaque;
// only its bcrypt hash is stored. Rotation marks the old row revoked.
type RefreshSession struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"index;not null"`
	User      User
	TokenHash string    `gorm:"size:255;not null"`
	ExpiresAt time.Time `gorm:"not null"`
	RevokedAt *time.Time
	CreatedAt time.Time
}
