package notification

import (
	"github.com/kumbulanit/stockvelOS-sub001/internal/database"
	"github.com/kumbulanit/stockvelOS-sub001/internal/logger"
	"github.com/kumbulanit/stockvelOS-sub001/internal/models"

	"go.uber.org/zap"
)

// Notify inserts a notification row for one user. Best-effort: failures are
// logged and never propagate to the triggering operation.
func Notify(userID uint, groupID *uint, typ models.NotificationType, title, body string) {
	n := models.Notification{
		UserID:  userID,
		GroupID: groupID,
		Type:    typ,
		Title:   title,
		Body:    body,
	}
	if err := database.DB.Create(&n).Error; err != nil {
		logger.L.Warn("notification write failed",
			zap.Uint("user_id", userID),
			zap.String("type", string(typ)),
			zap.Error(err))
	}
}

// NotifyGroup fans out to every active member of a group, optionally skipping
// the actor who caused the event.
func NotifyGroup(groupID uint, skipUserID uint, typ models.NotificationType, title, body string) {
	var members []models.GroupMember
	if err := database.DB.Where("group_id = ? AND status = ?", groupID, models.MemberStatusActive).
		Find(&members).Error; err != nil {
		logger.L.Warn("notification fan-out failed", zap.Uint("group_id", groupID), zap.Error(err))
		return
	}
	gid := groupID
	for _, m := range members {
		if m.UserID == skipUserID {
			continue
		}
		Notify(m.UserID, &gid, typ, title, body)
	}
}
