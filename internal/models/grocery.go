package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type GroceryProduct struct {
	ID        uint            `gorm:"primaryKey"`
	GroupID   uint            `gorm:"index;not null"`
	Name      string          `gorm:"size:100;not null"`
	Unit      string          `gorm:"size:20;not null"` // kg, unit, case
	UnitCost  decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Active    bool            `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

type PurchaseStatus string

const (
	PurchasePending  PurchaseStatus = "PENDING"
	PurchaseApproved PurchaseStatus = "APPROVED"
	PurchaseRejected PurchaseStatus = "REJECTED"
)

type GroceryPurchase struct {
	ID          uint `gorm:"primaryKey"`
	GroupID     uint `gorm:"index;not null"`
	Group       Group
	Status      PurchaseStatus  `gorm:"size:20;not null;default:PENDING;index"`
	Supplier    string          `gorm:"size:100"`
	TotalCost   decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	RequestedBy uint            `gorm:"not null"`
	DecidedBy   *uint
	DecidedAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Items []GroceryPurchaseItem `gorm:"constraint:OnDelete:CASCADE"`
}

type GroceryPurchaseItem struct {
	ID                uint `gorm:"primaryKey"`
	GroceryPurchaseID uint `gorm:"index;not null"`
	ProductID         uint `gorm:"index;not null"`
	Product           GroceryProduct
	Quantity          float64         `gorm:"not null"`
	UnitCost          decimal.Decimal `gorm:"type:numeric(14,2);not null"`
}

type AllocationRule string

const (
	AllocationEqualShare           AllocationRule = "EQUAL_SHARE"
	AllocationContributionWeighted AllocationRule = "CONTRIBUTION_WEIGHTED"
	AllocationCustom               AllocationRule = "CUSTOM"
)

type GroceryDistribution struct {
	ID        uint `gorm:"primaryKey"`
	GroupID   uint `gorm:"index;not null"`
	Group     Group
	Rule      AllocationRule `gorm:"size:30;not null"`
	Note      string         `gorm:"size:255"`
	CreatedBy uint           `gorm:"not null"`
	CreatedAt time.Time

	Items []GroceryDistributionItem `gorm:"constraint:OnDelete:CASCADE"`
}

type GroceryDistributionItem struct {
	ID                    uint `gorm:"primaryKey"`
	GroceryDistributionID uint `gorm:"index;not null"`
	ProductID             uint `gorm:"index;not null"`
	Product               GroceryProduct
	MemberID              uint    `gorm:"index;not null"` // GroupMember.ID
	Quantity              float64 `gorm:"not null"`
}
