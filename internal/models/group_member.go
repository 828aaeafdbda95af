package models

import (
	"time"

	"gorm.io/gorm"
)

type MemberRole string

const (
	RoleChairperson MemberRole = "CHAIRPERSON"
	RoleTreasurer   MemberRole = "TREASURER"
	RoleSecretary   MemberRole = "SECRETARY"
	RoleOrdinary    MemberRole = "MEMBER"
)

type MemberStatus string

const (
	MemberStatusActive    MemberStatus = "ACTIVE"
	MemberStatusSuspended MemberStatus = "SUSPENDED"
	MemberStatusLeft      MemberStatus = "LEFT"
)

type GroupMember struct {
	ID        uint `gorm:"primaryKey"`
	GroupID   uint `gorm:"index:idx_group_user;not null"`
	Group     Group
	UserID    uint `gorm:"index:idx_group_user;not null"`
	User      User
	Role      MemberRole   `gorm:"size:20;not null;default:MEMBER"`
	Status    MemberStatus `gorm:"size:20;not null;default:ACTIVE"`
	JoinedAt  time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}
