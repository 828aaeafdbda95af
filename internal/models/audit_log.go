package models

import "time"

type AuditAction string

const (
	AuditActionCreate  AuditAction = "create"
	AuditActionUpdate  AuditAction = "update"
	AuditActionDelete  AuditAction = "delete"
	AuditActionApprove AuditAction = "approve"
	AuditActionReject  AuditAction = "reject"
	AuditActionCancel  AuditAction = "cancel"
)

// AuditLog is append-only: there is no code path that updates or deletes a row.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	GroupID *uint `json:"group_id"`

	ActorID   uint   `json:"actor_id"`
	ActorName string `gorm:"size:100" json:"actor_name"` // denormalized, survives user renames

	// e.g. "group", "contribution", "grocery_distribution"
	EntityType string `gorm:"size:50;index" json:"entity_type"`
	EntityID   uint   `gorm:"index" json:"entity_id"`

	Action      AuditAction `gorm:"size:20" json:"action"`
	Description string      `gorm:"size:255" json:"description"`

	// Entity snapshots as JSON ("null" when not applicable)
	BeforeData string `gorm:"type:jsonb" json:"before_data"`
	AfterData  string `gorm:"type:jsonb" json:"after_data"`

	Outcome   string `gorm:"size:20;default:success" json:"outcome"`
	RequestID string `gorm:"size:64" json:"request_id"`
}
