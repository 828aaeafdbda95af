package contribution

import (
	"fmt"
	"time"

	"github.com/kumbulanit/stockvelOS-sub001/internal/apperr"
	"github.com/kumbulanit/stockvelOS-sub001/internal/audit"
	"github.com/kumbulanit/stockvelOS-sub001/internal/auth"
	"github.com/kumbulanit/stockvelOS-sub001/internal/database"
	"github.com/kumbulanit/stockvelOS-sub001/internal/group"
	"github.com/kumbulanit/stockvelOS-sub001/internal/models"
	"github.com/kumbulanit/stockvelOS-sub001/internal/notification"
	"github.com/kumbulanit/stockvelOS-sub001/internal/validate"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateContributionRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	PeriodDate string          `json:"period_date" validate:"required"` // "2026-08-01"
	Note       string          `json:"note" validate:"max=255"`
}

type DecisionRequest struct {
	Note string `json:"note" validate:"max=255"`
}

type ContributionResponse struct {
	ID         uint            `json:"id"`
	GroupID    uint            `json:"group_id"`
	MemberID   uint            `json:"member_id"`
	MemberName string          `json:"member_name,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Status     string          `json:"status"`
	PeriodDate string          `json:"period_date"`
	Note       string          `json:"note"`
	DecidedBy  *uint           `json:"decided_by"`
	CreatedAt  string          `json:"created_at"`
}

func toContributionResponse(cn *models.Contribution) ContributionResponse {
	res := ContributionResponse{
		ID:         cn.ID,
		GroupID:    cn.GroupID,
		MemberID:   cn.MemberID,
		Amount:     cn.Amount,
		Status:     string(cn.Status),
		PeriodDate: cn.PeriodDate.Format("2006-01-02"),
		Note:       cn.Note,
		DecidedBy:  cn.DecidedBy,
		CreatedAt:  cn.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if cn.Member.User.Name != "" {
		res.MemberName = cn.Member.User.Name
	}
	return res
}

// POST /api/v1/groups/:id/contributions
func CreateContributionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, userName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		var grp models.Group
		if err := database.DB.First(&grp, "id = ?", c.Params("id")).Error; err != nil {
			return apperr.NotFound("group not found")
		}
		if grp.Status != models.GroupStatusActive {
			return apperr.BusinessRule("contributions can only be made to an active group")
		}

		member, err := group.ActiveMembership(grp.ID, userID)
		if err != nil {
			return err
		}

		var body CreateContributionRequest
		if err := c.BodyParser(&body); err != nil {
			return apperr.Validation("invalid request body")
		}
		if err := validate.Struct(body); err != nil {
			return err
		}
		if !body.Amount.IsPositive() {
			return apperr.Validation("amount must be greater than zero")
		}
		period, err := time.Parse("2006-01-02", body.PeriodDate)
		if err != nil {
			return apperr.Validation("period_date must be YYYY-MM-DD")
		}

		cn := models.Contribution{
			GroupID:    grp.ID,
			MemberID:   member.ID,
			Amount:     body.Amount,
			Status:     models.ContributionPending,
			PeriodDate: period,
			Note:       body.Note,
		}
		if err := database.DB.Create(&cn).Error; err != nil {
			return fmt.Errorf("create contribution: %w", err)
		}

		gid := grp.ID
		audit.MustLog(audit.LogOptions{
			GroupID:     &gid,
			ActorID:     userID,
			ActorName:   userName,
			EntityType:  "contribution",
			EntityID:    cn.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Contribution of %s %s recorded", grp.Currency, cn.Amount),
			After:       cn,
			RequestID:   audit.RequestID(c),
		})

		return c.Status(fiber.StatusCreated).JSON(toContributionResponse(&cn))
	}
}

// GET /api/v1/groups/:id/contributions?status=PENDING&member_id=3
func ListContributionsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		var grp models.Group
		if err := database.DB.First(&grp, "id = ?", c.Params("id")).Error; err != nil {
			return apperr.NotFound("group not found")
		}
		if _, err := group.ActiveMembership(grp.ID, userID); err != nil {
			return err
		}

		dbq := database.DB.Preload("Member.User").Where("group_id = ?", grp.ID)
		if s := c.Query("status"); s != "" {
			dbq = dbq.Where("status = ?", s)
		}
		if m := c.Query("member_id"); m != "" {
			dbq = dbq.Where("member_id = ?", m)
		}

		var contributions []models.Contribution
		if err := dbq.Order("id desc").Limit(200).Find(&contributions).Error; err != nil {
			return fmt.Errorf("list contributions: %w", err)
		}

		res := make([]ContributionResponse, 0, len(contributions))
		for i := range contributions {
			res = append(res, toContributionResponse(&contributions[i]))
		}
		return c.JSON(res)
	}
}

// GET /api/v1/groups/:id/contributions/:contribId
func GetContributionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		var cn models.Contribution
		if err := database.DB.Preload("Member.User").
			First(&cn, "id = ? AND group_id = ?", c.Params("contribId"), c.Params("id")).Error; err != nil {
			return apperr.NotFound("contribution not found")
		}
		if _, err := group.ActiveMembership(cn.GroupID, userID); err != nil {
			return err
		}
		return c.JSON(toContributionResponse(&cn))
	}
}

// POST /api/v1/groups/:id/contributions/:contribId/approve
// POST /api/v1/groups/:id/contributions/:contribId/reject
// POST /api/v1/groups/:id/contributions/:contribId/cancel
func ApproveContributionHandler() fiber.Handler {
	return decisionHandler(models.ContributionApproved, models.AuditActionApprove)
}

func RejectContributionHandler() fiber.Handler {
	return decisionHandler(models.ContributionRejected, models.AuditActionReject)
}

func CancelContributionHandler() fiber.Handler {
	return decisionHandler(models.ContributionCancelled, models.AuditActionCancel)
}

// decisionHandler applies one transition from the table. Approve/reject need a
// chairperson or treasurer; cancel is limited to the contributing member and
// the treasurer.
// The status check and update run in a single transaction so two racing
// decisions cannot both apply.
func decisionHandler(target models.ContributionStatus, action models.AuditAction) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, userName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		var body DecisionRequest
		// body is optional on decision endpoints
		_ = c.BodyParser(&body)

		var cn models.Contribution
		if err := database.DB.Preload("Member.User").
			First(&cn, "id = ? AND group_id = ?", c.Params("contribId"), c.Params("id")).Error; err != nil {
			return apperr.NotFound("contribution not found")
		}

		caller, err := group.ActiveMembership(cn.GroupID, userID)
		if err != nil {
			return err
		}

		isOfficer := caller.Role == models.RoleChairperson || caller.Role == models.RoleTreasurer
		if target == models.ContributionCancelled {
			if caller.Role != models.RoleTreasurer && caller.ID != cn.MemberID {
				return apperr.Forbidden("only the contributing member or a treasurer can cancel")
			}
		} else if !isOfficer {
			return apperr.Forbidden("only the chairperson or treasurer can decide contributions")
		}

		before := cn

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			var current models.Contribution
			if err := group.LockForUpdate(tx).First(&current, cn.ID).Error; err != nil {
				return fmt.Errorf("reload contribution: %w", err)
			}
			if err := checkTransition(current.Status, target); err != nil {
				return err
			}

			now := time.Now()
			updates := map[string]interface{}{
				"status":     target,
				"decided_by": caller.ID,
				"decided_at": &now,
			}
			if body.Note != "" {
				updates["note"] = body.Note
			}
			if err := tx.Model(&current).Updates(updates).Error; err != nil {
				return fmt.Errorf("update contribution status: %w", err)
			}

			// Approval credits the group pool
			if target == models.ContributionApproved {
				entry := models.LedgerEntry{
					GroupID:     cn.GroupID,
					MemberID:    &cn.MemberID,
					Type:        models.LedgerContribution,
					Amount:      cn.Amount,
					Description: fmt.Sprintf("Contribution #%d approved", cn.ID),
					RecordedBy:  userID,
				}
				if err := tx.Create(&entry).Error; err != nil {
					return fmt.Errorf("post ledger entry: %w", err)
				}
			}

			cn = current
			cn.Status = target
			cn.DecidedBy = &caller.ID
			cn.DecidedAt = &now
			return nil
		})
		if err != nil {
			return err
		}
		// the lock-reloaded row carries no associations; the notification below
		// needs the member back
		cn.Member = before.Member

		gid := cn.GroupID
		audit.MustLog(audit.LogOptions{
			GroupID:     &gid,
			ActorID:     userID,
			ActorName:   userName,
			EntityType:  "contribution",
			EntityID:    cn.ID,
			Action:      action,
			Description: fmt.Sprintf("Contribution #%d %s", cn.ID, target),
			Before:      before,
			After:       cn,
			RequestID:   audit.RequestID(c),
		})

		notification.Notify(cn.Member.UserID, &gid, models.NotifyContributionDecision,
			"Contribution "+string(target),
			fmt.Sprintf("Your contribution of %s was %s.", cn.Amount, target))

		return c.JSON(toContributionResponse(&cn))
	}
}
