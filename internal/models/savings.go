package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type SavingsRule struct {
	ID            uint `gorm:"primaryKey"`
	GroupID       uint `gorm:"index;not null"`
	Group         Group
	TargetAmount  decimal.Decimal       `gorm:"type:numeric(14,2);not null"`
	Frequency     ContributionFrequency `gorm:"size:20;not null"`
	PenaltyAmount decimal.Decimal       `gorm:"type:numeric(14,2);not null;default:0"` // late/missed contribution penalty
	PayoutDate    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type LedgerEntryType string

const (
	LedgerContribution LedgerEntryType = "CONTRIBUTION"
	LedgerPayout       LedgerEntryType = "PAYOUT"
	LedgerPenalty      LedgerEntryType = "PENALTY"
	LedgerAdjustment   LedgerEntryType = "ADJUSTMENT"
)

// LedgerEntry: append-only money movement on a group. Positive amounts credit the
// pool, negative amounts debit it. Balance is derived, never stored.
type LedgerEntry struct {
	ID          uint `gorm:"primaryKey"`
	GroupID     uint `gorm:"index;not null"`
	Group       Group
	MemberID    *uint // nil for group-level entries
	Type        LedgerEntryType `gorm:"size:20;not null;index"`
	Amount      decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Description string          `gorm:"size:255"`
	RecordedBy  uint            `gorm:"not null"`
	CreatedAt   time.Time
}
