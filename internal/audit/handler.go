package audit

import (
	"fmt"

	"github.com/kumbulanit/stockvelOS-sub001/internal/apperr"
	"github.com/kumbulanit/stockvelOS-sub001/internal/auth"
	"github.com/kumbulanit/stockvelOS-sub001/internal/database"
	"github.com/kumbulanit/stockvelOS-sub001/internal/models"

	"github.com/gofiber/fiber/v2"
)

type AuditLogResponse struct {
	ID          uint               `json:"id"`
	CreatedAt   string             `json:"created_at"`
	GroupID     *uint              `json:"group_id"`
	ActorID     uint               `json:"actor_id"`
	ActorName   string             `json:"actor_name"`
	EntityType  string             `json:"entity_type"`
	EntityID    uint               `json:"entity_id"`
	Action      models.AuditAction `json:"action"`
	Description string             `json:"description"`
	Outcome     string             `json:"outcome"`
	RequestID   string             `json:"request_id"`
}

// GET /api/v1/audit-logs?group_id=1&entity_type=contribution&action=approve
// Platform admins see everything; other callers must scope to a group they chair.
func ListAuditLogsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		role, _ := c.Locals(auth.CtxUserRoleKey).(models.UserRole)

		dbq := database.DB.Model(&models.AuditLog{})

		if role != models.RolePlatformAdmin {
			gidStr := c.Query("group_id")
			if gidStr == "" {
				return apperr.Forbidden("group_id is required")
			}
			var gid uint
			if _, err := fmt.Sscan(gidStr, &gid); err != nil || gid == 0 {
				return apperr.Validation("group_id is invalid")
			}

			var chair models.GroupMember
			if err := database.DB.Where(
				"group_id = ? AND user_id = ? AND role = ? AND status = ?",
				gid, userID, models.RoleChairperson, models.MemberStatusActive,
			).First(&chair).Error; err != nil {
				return apperr.Forbidden("only the group chairperson can view audit logs")
			}
			dbq = dbq.Where("group_id = ?", gid)
		} else if gidStr := c.Query("group_id"); gidStr != "" {
			dbq = dbq.Where("group_id = ?", gidStr)
		}

		if et := c.Query("entity_type"); et != "" {
			dbq = dbq.Where("entity_type = ?", et)
		}
		if a := c.Query("action"); a != "" {
			dbq = dbq.Where("action = ?", a)
		}

		page := c.QueryInt("page", 1)
		pageSize := c.QueryInt("page_size", 50)
		if page < 1 {
			page = 1
		}
		if pageSize < 1 || pageSize > 200 {
			pageSize = 50
		}

		var total int64
		dbq.Count(&total)

		var logs []models.AuditLog
		if err := dbq.Order("id desc").
			Offset((page - 1) * pageSize).Limit(pageSize).
			Find(&logs).Error; err != nil {
			return fmt.Errorf("list audit logs: %w", err)
		}

		res := make([]AuditLogResponse, 0, len(logs))
		for _, l := range logs {
			res = append(res, AuditLogResponse{
				ID:          l.ID,
				CreatedAt:   l.CreatedAt.Format("2006-01-02 15:04:05"),
				GroupID:     l.GroupID,
				ActorID:     l.ActorID,
				ActorName:   l.ActorName,
				EntityType:  l.EntityType,
				EntityID:    l.EntityID,
				Action:      l.Action,
				Description: l.Description,
				Outcome:     l.Outcome,
				RequestID:   l.RequestID,
			})
		}

		return c.JSON(fiber.Map{
			"items":     res,
			"total":     total,
			"page":      page,
			"page_size": pageSize,
		})
	}
}
