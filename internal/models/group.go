package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type GroupType string

const (
	GroupTypeSavings GroupType = "SAVINGS"
	GroupTypeGrocery GroupType = "GROCERY"
	GroupTypeBurial  GroupType = "BURIAL"
)

type GroupStatus string

const (
	GroupStatusActive    GroupStatus = "ACTIVE"
	GroupStatusSuspended GroupStatus = "SUSPENDED"
	GroupStatusDissolved GroupStatus = "DISSOLVED"
)

type ContributionFrequency string

const (
	FrequencyWeekly   ContributionFrequency = "WEEKLY"
	FrequencyBiweekly ContributionFrequency = "BIWEEKLY"
	FrequencyMonthly  ContributionFrequency = "MONTHLY"
)

type Group struct {
	ID                 uint                  `gorm:"primaryKey"`
	Reference          string                `gorm:"size:36;uniqueIndex;not null"` // uuid, stable external identifier
	Name               string                `gorm:"size:100;not null"`
	Description        string                `gorm:"size:500"`
	Type               GroupType             `gorm:"size:20;not null;index"`
	Status             GroupStatus           `gorm:"size:20;not null;default:ACTIVE;index"`
	Currency           string                `gorm:"size:3;not null;default:ZAR"`
	ContributionAmount decimal.Decimal       `gorm:"type:numeric(14,2);not null"`
	Frequency          ContributionFrequency `gorm:"size:20;not null"`
	Rules              string                `gorm:"type:text"` // free-form constitution/rules blob
	CreatedBy          uint                  `gorm:"index;not null"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
	DeletedAt          gorm.DeletedAt `gorm:"index"`

	Members       []GroupMember  `gorm:"constraint:OnDelete:CASCADE"`
	Contributions []Contribution `gorm:"constraint:OnDelete:CASCADE"`
}
