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
	"gorm.io/gorm"
)

type AddMemberRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"omitempty,oneof=CHAIRPERSON TREASURER SECRETARY MEMBER"`
}

type ChangeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=CHAIRPERSON TREASURER SECRETARY MEMBER"`
}

type MemberResponse struct {
	ID       uint   `json:"id"`
	UserID   uint   `json:"user_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Status   string `json:"status"`
	JoinedAt string `json:"joined_at"`
}

func toMemberResponse(m *models.GroupMember) MemberResponse {
	return MemberResponse{
		ID:       m.ID,
		UserID:   m.UserID,
		Name:     m.User.Name,
		Email:    m.User.Email,
		Role:     string(m.Role),
		Status:   string(m.Status),
		JoinedAt: m.JoinedAt.Format("2006-01-02"),
	}
}

func loadActiveGroup(c *fiber.Ctx) (*models.Group, error) {
	var grp models.Group
	if err := database.DB.First(&grp, "id = ?", c.Params("id")).Error; err != nil {
		return nil, apperr.NotFound("group not found")
	}
	if grp.Status != models.GroupStatusActive {
		return nil, apperr.BusinessRule("group is not active")
	}
	return &grp, nil
}

// POST /api/v1/groups/:id/members  (chairperson or secretary)
//
// Adding a CHAIRPERSON to a SAVINGS group re-runs the chair-uniqueness check:
// the invited user may not already chair another active savings group.
func AddMemberHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, userName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		grp, err := loadActiveGroup(c)
		if err != nil {
			return err
		}
		if _, err := RequireOfficer(grp.ID, userID, models.RoleChairperson, models.RoleSecretary); err != nil {
			return err
		}

		var body AddMemberRequest
		if err := c.BodyParser(&body); err != nil {
			return apperr.Validation("invalid request body")
		}
		body.Email = strings.TrimSpace(strings.ToLower(body.Email))
		if err := validate.Struct(body); err != nil {
			return err
		}
		role := models.MemberRole(body.Role)
		if role == "" {
			role = models.RoleOrdinary
		}

		var user models.User
		if err := database.DB.Where("email = ?", body.Email).First(&user).Error; err != nil {
			return apperr.NotFound("no registered user with that email")
		}

		var existing models.GroupMember
		if err := database.DB.Where(
			"group_id = ? AND user_id = ? AND status <> ?",
			grp.ID, user.ID, models.MemberStatusLeft,
		).First(&existing).Error; err == nil {
			return apperr.Conflict(apperr.CodeConflict, "user is already a member of this group")
		}

		member := models.GroupMember{
			GroupID:  grp.ID,
			UserID:   user.ID,
			Role:     role,
			Status:   models.MemberStatusActive,
			JoinedAt: time.Now(),
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if role == models.RoleChairperson && grp.Type == models.GroupTypeSavings {
				chairs, err := ChairsActiveSavingsGroup(tx, user.ID, 0)
				if err != nil {
					return fmt.Errorf("chair uniqueness check: %w", err)
				}
				if chairs {
					return apperr.Conflict(apperr.CodeChairConflict,
						"user already chairs an active savings group")
				}
			}
			if err := tx.Create(&member).Error; err != nil {
				return fmt.Errorf("create membership: %w", err)
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
			EntityType:  "group_member",
			EntityID:    member.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("%s added to '%s' as %s", user.Name, grp.Name, role),
			After:       member,
			RequestID:   audit.RequestID(c),
		})

		notification.Notify(user.ID, &gid, models.NotifyMemberAdded,
			"Added to a group",
			fmt.Sprintf("You were added to '%s' as %s.", grp.Name, role))

		member.User = user
		return c.Status(fiber.StatusCreated).JSON(toMemberResponse(&member))
	}
}

// GET /api/v1/groups/:id/members
func ListMembersHandler() fiber.Handler {
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

		var members []models.GroupMember
		if err := database.DB.Preload("User").
			Where("group_id = ? AND status = ?", grp.ID, models.MemberStatusActive).
			Order("joined_at asc").
			Find(&members).Error; err != nil {
			return fmt.Errorf("list members: %w", err)
		}

		res := make([]MemberResponse, 0, len(members))
		for i := range members {
			res = append(res, toMemberResponse(&members[i]))
		}
		return c.JSON(res)
	}
}

// PUT /api/v1/groups/:id/members/:memberId/role  (chairperson only)
func ChangeMemberRoleHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, userName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		grp, err := loadActiveGroup(c)
		if err != nil {
			return err
		}
		if _, err := RequireOfficer(grp.ID, userID, models.RoleChairperson); err != nil {
			return err
		}

		var body ChangeRoleRequest
		if err := c.BodyParser(&body); err != nil {
			return apperr.Validation("invalid request body")
		}
		if err := validate.Struct(body); err != nil {
			return err
		}
		newRole := models.MemberRole(body.Role)

		var member models.GroupMember
		if err := database.DB.Preload("User").
			First(&member, "id = ? AND group_id = ?", c.Params("memberId"), grp.ID).Error; err != nil {
			return apperr.NotFound("member not found")
		}

		before := member

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if newRole == models.RoleChairperson && grp.Type == models.GroupTypeSavings {
				chairs, err := ChairsActiveSavingsGroup(tx, member.UserID, grp.ID)
				if err != nil {
					return fmt.Errorf("chair uniqueness check: %w", err)
				}
				if chairs {
					return apperr.Conflict(apperr.CodeChairConflict,
						"user already chairs an active savings group")
				}
			}
			if err := tx.Model(&member).Update("role", newRole).Error; err != nil {
				return fmt.Errorf("change member role: %w", err)
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
			EntityType:  "group_member",
			EntityID:    member.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Role of %s changed to %s", member.User.Name, newRole),
			Before:      before,
			After:       member,
			RequestID:   audit.RequestID(c),
		})

		return c.JSON(toMemberResponse(&member))
	}
}

// DELETE /api/v1/groups/:id/members/:memberId  (chairperson only)
func RemoveMemberHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, userName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		grp, err := loadActiveGroup(c)
		if err != nil {
			return err
		}
		if _, err := RequireOfficer(grp.ID, userID, models.RoleChairperson); err != nil {
			return err
		}

		var member models.GroupMember
		if err := database.DB.Preload("User").
			First(&member, "id = ? AND group_id = ?", c.Params("memberId"), grp.ID).Error; err != nil {
			return apperr.NotFound("member not found")
		}
		if member.UserID == userID {
			return apperr.BusinessRule("the chairperson cannot remove themselves; dissolve or hand over the group first")
		}

		before := member

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&member).Update("status", models.MemberStatusLeft).Error; err != nil {
				return fmt.Errorf("mark member left: %w", err)
			}
			if err := tx.Delete(&member).Error; err != nil {
				return fmt.Errorf("soft-delete membership: %w", err)
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
			EntityType:  "group_member",
			EntityID:    member.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("%s removed from '%s'", member.User.Name, grp.Name),
			Before:      before,
			RequestID:   audit.RequestID(c),
		})

		notification.Notify(member.UserID, &gid, models.NotifyMemberRemoved,
			"Removed from a group",
			fmt.Sprintf("You were removed from '%s'.", grp.Name))

		return c.SendStatus(fiber.StatusNoContent)
	}
}
