package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ContributionStatus string

const (
	ContributionPending   ContributionStatus = "PENDING"
	ContributionApproved  ContributionStatus = "APPROVED"
	ContributionRejected  ContributionStatus = "REJECTED"
	ContributionCancelled ContributionStatus = "CANCELLED"
)

type Contribution struct {
	ID         uint `gorm:"primaryKey"`
	GroupID    uint `gorm:"index;not null"`
	Group      Group
	MemberID   uint `gorm:"index;not null"` // GroupMember.ID, not User.ID
	Member     GroupMember
	Amount     decimal.Decimal    `gorm:"type:numeric(14,2);not null"`
	Status     ContributionStatus `gorm:"size:20;not null;default:PENDING;index"`
	PeriodDate time.Time          `gorm:"index;not null"` // which contribution period this covers
	Note       string             `gorm:"size:255"`
	DecidedBy  *uint              // member who approved/rejected/cancelled
	DecidedAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
