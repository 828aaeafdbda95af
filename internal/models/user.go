package models

import "time"

type UserRole string

const (
	RolePlatformAdmin UserRole = "platform_admin"
	RoleMember        UserRole = "member"
)

type User struct {
	ID           uint     `gorm:"primaryKey"`
	Name         string   `gorm:"size:100;not null"`
	Email        string   `gorm:"size:100;uniqueIndex;not null"`
	Phone        string   `gorm:"size:30"`
	PasswordHash string   `gorm:"size:255;not null"`
	Role         UserRole `gorm:"size:20;not null;default:member"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
