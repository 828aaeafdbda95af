package group

import (
	"fmt"
	"strings"
	"time"

	"github.com/kumbulanit/stockvelOS-sub001/internal/apperr"
	"github.com/kumbulanit/stockvelOS-sub001/internal/audit"
	"github.com/kumbulanit/stockvelOS-sub001/internal/auth"
	"github.com/kumbulanit/stockvelOS-sub001/internal/database"
	"github.com/kumbulanit/stockvelOS-sub001/internal/models"
	"github.com/kumbulanit/stockvelOS-sub001/internal/notification"
	"github.com/kumbulanit/stockvelOS-sub001/internal/validate"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateGroupRequest struct {
	Name               string          `json:"name" validate:"required,min=3,max=100"`
	Description        string          `json:"description" validate:"max=500"`
	Type               string          `json:"type" validate:"required,oneof=SAVINGS GROCERY BURIAL"`
	Currency           string          `json:"currency" validate:"omitempty,len=3"`
	ContributionAmount decimal.Decimal `json:"contribution_amount"`
	Frequency          string          `json:"frequency" validate:"required,oneof=WEEKLY BIWEEKLY MONTHLY"`
	Rules              string          `json:"rules"`
}

type UpdateGroupRequest struct {
	Name               *string          `json:"name"`
	Description        *string          `json:"description"`
	Status             *string          `json:"status"`
	ContributionAmount *decimal.Decimal `json:"contribution_amount"`
	Frequency          *string          `json:"frequency"`
	Rules              *string          `json:"rules"`
}

type GroupResponse struct {
	ID                 uint            `json:"id"`
	Reference          string          `json:"reference"`
	Name               string          `json:"name"`
	Description        string          `json:"description"`
	Type               string          `json:"type"`
	Status             string          `json:"status"`
	Currency           string          `json:"currency"`
	ContributionAmount decimal.Decimal `json:"contribution_amount"`
	Frequency          string          `json:"frequency"`
	Rules              string          `json:"rules"`
	MemberCount        int64           `json:"member_count"`
	CreatedAt          string          `json:"created_at"`
}

func toGroupResponse(g *models.Group, memberCount int64) GroupResponse {
	return GroupResponse{
		ID:                 g.ID,
		Reference:          g.Reference,
		Name:               g.Name,
		Description:        g.Description,
		Type:               string(g.Type),
		Status:             string(g.Status),
		Currency:           g.Currency,
		ContributionAmount: g.ContributionAmount,
		Frequency:          string(g.Frequency),
		Rules:              g.Rules,
		MemberCount:        memberCount,
		CreatedAt:          g.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// POST /api/v1/groups
//
// The chair-uniqueness check and the group+membership inserts run in one
// transaction, serialized on the caller's user row, so two concurrent creates
// cannot both pass the check.
func CreateGroupHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, userName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		var body CreateGroupRequest
		if err := c.BodyParser(&body); err != nil {
			return apperr.Validation("invalid request body")
		}
		body.Name = strings.TrimSpace(body.Name)
		if err := validate.Struct(body); err != nil {
			return err
		}
		if !body.ContributionAmount.IsPositive() {
			return apperr.Validation("contribution_amount must be greater than zero")
		}
		currency := strings.ToUpper(strings.TrimSpace(body.Currency))
		if currency == "" {
			currency = "ZAR"
		}

		grp := models.Group{
			Reference:          uuid.NewString(),
			Name:               body.Name,
			Description:        body.Description,
			Type:               models.GroupType(body.Type),
			Status:             models.GroupStatusActive,
			Currency:           currency,
			ContributionAmount: body.ContributionAmount,
			Frequency:          models.ContributionFrequency(body.Frequency),
			Rules:              body.Rules,
			CreatedBy:          userID,
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if grp.Type == models.GroupTypeSavings {
				chairs, err := ChairsActiveSavingsGroup(tx, userID, 0)
				if err != nil {
					return fmt.Errorf("chair uniqueness check: %w", err)
				}
				if chairs {
					return apperr.Conflict(apperr.CodeChairConflict,
						"you already chair an active savings group")
				}
			}

			if err := tx.Create(&grp).Error; err != nil {
				return fmt.Errorf("create group: %w", err)
			}

			member := models.GroupMember{
				GroupID:  grp.ID,
				UserID:   userID,
				Role:     models.RoleChairperson,
				Status:   models.MemberStatusActive,
				JoinedAt: time.Now(),
			}
			if err := tx.Create(&member).Error; err != nil {
				return fmt.Errorf("create chairperson membership: %w", err)
			}
			return nil
		})
		if err != nil {
			return err
		}

		gid := grp.ID
		audit.MustLog(audit.LogOptions{
			GroupID:     &gid,
			ActorID:     userID,
			ActorName:   userName,
			EntityType:  "group",
			EntityID:    grp.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Group '%s' created", grp.Name),
			After:       grp,
			RequestID:   audit.RequestID(c),
		})

		return c.Status(fiber.StatusCreated).JSON(toGroupResponse(&grp, 1))
	}
}

// GET /api/v1/groups?type=SAVINGS&status=ACTIVE
func ListGroupsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		role, _ := c.Locals(auth.CtxUserRoleKey).(models.UserRole)

		dbq := database.DB.Model(&models.Group{})

		// Ordinary users only see groups they belong to
		if role != models.RolePlatformAdmin {
			dbq = dbq.Where(
				"id IN (?)",
				database.DB.Model(&models.GroupMember{}).
					Select("group_id").
					Where("user_id = ? AND status = ?", userID, models.MemberStatusActive),
			)
		}

		if t := c.Query("type"); t != "" {
			dbq = dbq.Where("type = ?", t)
		}
		if s := c.Query("status"); s != "" {
			dbq = dbq.Where("status = ?", s)
		}

		page := c.QueryInt("page", 1)
		pageSize := c.QueryInt("page_size", 20)
		if page < 1 {
			page = 1
		}
		if pageSize < 1 || pageSize > 100 {
			pageSize = 20
		}

		var total int64
		dbq.Count(&total)

		var groups []models.Group
		if err := dbq.Order("id desc").
			Offset((page - 1) * pageSize).Limit(pageSize).
			Find(&groups).Error; err != nil {
			return fmt.Errorf("list groups: %w", err)
		}

		res := make([]GroupResponse, 0, len(groups))
		for i := range groups {
			var count int64
			database.DB.Model(&models.GroupMember{}).
				Where("group_id = ? AND status = ?", groups[i].ID, models.MemberStatusActive).
				Count(&count)
			res = append(res, toGroupResponse(&groups[i], count))
		}

		return c.JSON(fiber.Map{
			"items":     res,
			"total":     total,
			"page":      page,
			"page_size": pageSize,
		})
	}
}

// GET /api/v1/groups/:id
func GetGroupHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		var grp models.Group
		if err := database.DB.First(&grp, "id = ?", c.Params("id")).Error; err != nil {
			return apperr.NotFound("group not found")
		}

		role, _ := c.Locals(auth.CtxUserRoleKey).(models.UserRole)
		if role != models.RolePlatformAdmin {
			if _, err := ActiveMembership(grp.ID, userID); err != nil {
				return err
			}
		}

		var count int64
		database.DB.Model(&models.GroupMember{}).
			Where("group_id = ? AND status = ?", grp.ID, models.MemberStatusActive).
			Count(&count)

		return c.JSON(toGroupResponse(&grp, count))
	}
}

// PUT /api/v1/groups/:id  (chairperson only)
func UpdateGroupHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, userName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		var grp models.Group
		if err := database.DB.First(&grp, "id = ?", c.Params("id")).Error; err != nil {
			return apperr.NotFound("group not found")
		}

		if _, err := RequireOfficer(grp.ID, userID, models.RoleChairperson); err != nil {
			return err
		}

		var body UpdateGroupRequest
		if err := c.BodyParser(&body); err != nil {
			return apperr.Validation("invalid request body")
		}

		before := grp

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return apperr.Validation("name cannot be empty")
			}
			grp.Name = name
		}
		if body.Description != nil {
			grp.Description = *body.Description
		}
		if body.Status != nil {
			switch models.GroupStatus(*body.Status) {
			case models.GroupStatusActive, models.GroupStatusSuspended:
				grp.Status = models.GroupStatus(*body.Status)
			default:
				return apperr.Validation("status must be ACTIVE or SUSPENDED")
			}
		}
		if body.ContributionAmount != nil {
			if !body.ContributionAmount.IsPositive() {
				return apperr.Validation("contribution_amount must be greater than zero")
			}
			grp.ContributionAmount = *body.ContributionAmount
		}
		if body.Frequency != nil {
			switch models.ContributionFrequency(*body.Frequency) {
			case models.FrequencyWeekly, models.FrequencyBiweekly, models.FrequencyMonthly:
				grp.Frequency = models.ContributionFrequency(*body.Frequency)
			default:
				return apperr.Validation("frequency must be WEEKLY, BIWEEKLY or MONTHLY")
			}
		}
		if body.Rules != nil {
			grp.Rules = *body.Rules
		}

		if err := database.DB.Save(&grp).Error; err != nil {
			return fmt.Errorf("update group: %w", err)
		}

		gid := grp.ID
		audit.MustLog(audit.LogOptions{
			GroupID:     &gid,
			ActorID:     userID,
			ActorName:   userName,
			EntityType:  "group",
			EntityID:    grp.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Group '%s' updated", grp.Name),
			Before:      before,
			After:       grp,
			RequestID:   audit.RequestID(c),
		})

		var count int64
		database.DB.Model(&models.GroupMember{}).
			Where("group_id = ? AND status = ?", grp.ID, models.MemberStatusActive).
			Count(&count)

		return c.JSON(toGroupResponse(&grp, count))
	}
}

// DELETE /api/v1/groups/:id  (chairperson only)
//
// Soft delete; status is forced to DISSOLVED in the same update. A second call
// sees the soft-deleted row as missing and returns 404.
func RemoveGroupHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, userName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		var grp models.Group
		if err := database.DB.First(&grp, "id = ?", c.Params("id")).Error; err != nil {
			return apperr.NotFound("group not found")
		}

		if _, err := RequireOfficer(grp.ID, userID, models.RoleChairperson); err != nil {
			return err
		}

		before := grp

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&grp).Update("status", models.GroupStatusDissolved).Error; err != nil {
				return fmt.Errorf("dissolve group: %w", err)
			}
			if err := tx.Delete(&grp).Error; err != nil {
				return fmt.Errorf("soft-delete group: %w", err)
			}
			return nil
		})
		if err != nil {
			return err
		}

		gid := grp.ID
		audit.MustLog(audit.LogOptions{
			GroupID:     &gid,
			ActorID:     userID,
			ActorName:   userName,
			EntityType:  "group",
			EntityID:    grp.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Group '%s' dissolved", grp.Name),
			Before:      before,
			RequestID:   audit.RequestID(c),
		})

		notification.NotifyGroup(grp.ID, userID, models.NotifyGroupDissolved,
			"Group dissolved",
			fmt.Sprintf("The group '%s' has been dissolved by its chairperson.", grp.Name))

		return c.SendStatus(fiber.StatusNoContent)
	}
}
