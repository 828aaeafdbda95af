package models

import "time"

type NotificationType string

const (
	NotifyMemberAdded          NotificationType = "MEMBER_ADDED"
	NotifyMemberRemoved        NotificationType = "MEMBER_REMOVED"
	NotifyContributionDecision NotificationType = "CONTRIBUTION_DECISION"
	NotifyDistributionCreated  NotificationType = "DISTRIBUTION_CREATED"
	NotifyGroupDissolved       NotificationType = "GROUP_DISSOLVED"
)

type Notification struct {
	ID        uint `gorm:"primaryKey"`
	UserID    uint `gorm:"index;not null"`
	GroupID   *uint
	Type      NotificationType `gorm:"size:30;not null"`
	Title     string           `gorm:"size:150;not null"`
	Body      string           `gorm:"size:500"`
	ReadAt    *time.Time
	CreatedAt time.Time
}
