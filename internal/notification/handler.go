package notification

import (
	"fmt"
	"time"

	"github.com/kumbulanit/stockvelOS-sub001/internal/apperr"
	"github.com/kumbulanit/stockvelOS-sub001/internal/auth"
	"github.com/kumbulanit/stockvelOS-sub001/internal/database"
	"github.com/kumbulanit/stockvelOS-sub001/internal/models"

	"github.com/gofiber/fiber/v2"
)

type NotificationResponse struct {
	ID        uint                    `json:"id"`
	GroupID   *uint                   `json:"group_id"`
	Type      models.NotificationType `json:"type"`
	Title     string                  `json:"title"`
	Body      string                  `json:"body"`
	ReadAt    *string                 `json:"read_at"`
	CreatedAt string                  `json:"created_at"`
}

// GET /api/v1/notifications?unread=true
func ListNotificationsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		dbq := database.DB.Where("user_id = ?", userID)
		if c.Query("unread") == "true" {
			dbq = dbq.Where("read_at IS NULL")
		}

		var notes []models.Notification
		if err := dbq.Order("id desc").Limit(100).Find(&notes).Error; err != nil {
			return fmt.Errorf("list notifications: %w", err)
		}

		res := make([]NotificationResponse, 0, len(notes))
		for _, n := range notes {
			item := NotificationResponse{
				ID:        n.ID,
				GroupID:   n.GroupID,
				Type:      n.Type,
				Title:     n.Title,
				Body:      n.Body,
				CreatedAt: n.CreatedAt.Format(time.RFC3339),
			}
			if n.ReadAt != nil {
				s := n.ReadAt.Format(time.RFC3339)
				item.ReadAt = &s
			}
			res = append(res, item)
		}
		return c.JSON(res)
	}
}

// GET /api/v1/notifications/unread-count
func UnreadCountHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		var count int64
		database.DB.Model(&models.Notification{}).
			Where("user_id = ? AND read_at IS NULL", userID).Count(&count)

		return c.JSON(fiber.Map{"count": count})
	}
}

// POST /api/v1/notifications/:id/read
func MarkReadHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		var note models.Notification
		if err := database.DB.First(&note, "id = ? AND user_id = ?", c.Params("id"), userID).Error; err != nil {
			return apperr.NotFound("notification not found")
		}

		if note.ReadAt == nil {
			now := time.Now()
			if err := database.DB.Model(&note).Update("read_at", &now).Error; err != nil {
				return fmt.Errorf("mark notification read: %w", err)
			}
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/v1/notifications/read-all
func MarkAllReadHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		now := time.Now()
		if err := database.DB.Model(&models.Notification{}).
			Where("user_id = ? AND read_at IS NULL", userID).
			Update("read_at", &now).Error; err != nil {
			return fmt.Errorf("mark all notifications read: %w", err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
