package savings

import (
	"fmt"
	"time"

	"github.com/kumbulanit/stockvelOS-sub001/internal/apperr"
	"github.com/kumbulanit/stockvelOS-sub001/internal/audit"
	"github.com/kumbulanit/stockvelOS-sub001/internal/auth"
	"github.com/kumbulanit/stockvelOS-sub001/internal/database"
	"github.com/kumbulanit/stockvelOS-sub001/internal/group"
	"github.com/kumbulanit/stockvelOS-sub001/internal/models"
	"github.com/kumbulanit/stockvelOS-sub001/internal/validate"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type SaveRuleRequest struct {
	TargetAmount  decimal.Decimal `json:"target_amount"`
	Frequency     string          `json:"frequency" validate:"required,oneof=WEEKLY BIWEEKLY MONTHLY"`
	PenaltyAmount decimal.Decimal `json:"penalty_amount"`
	PayoutDate    *string         `json:"payout_date"` // "2026-12-15"
}

type RuleResponse struct {
	ID            uint            `json:"id"`
	GroupID       uint            `json:"group_id"`
	TargetAmount  decimal.Decimal `json:"target_amount"`
	Frequency     string          `json:"frequency"`
	PenaltyAmount decimal.Decimal `json:"penalty_amount"`
	PayoutDate    *string         `json:"payout_date"`
}

type CreateLedgerEntryRequest struct {
	Type        string          `json:"type" validate:"required,oneof=PAYOUT PENALTY ADJUSTMENT"`
	Amount      decimal.Decimal `json:"amount"`
	MemberID    *uint           `json:"member_id"`
	Description string          `json:"description" validate:"max=255"`
}

type LedgerEntryResponse struct {
	ID          uint            `json:"id"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Balance     decimal.Decimal `json:"balance"` // running balance after this entry
	MemberID    *uint           `json:"member_id"`
	Description string          `json:"description"`
	CreatedAt   string          `json:"created_at"`
}

func toRuleResponse(r *models.SavingsRule) RuleResponse {
	res := RuleResponse{
		ID:            r.ID,
		GroupID:       r.GroupID,
		TargetAmount:  r.TargetAmount,
		Frequency:     string(r.Frequency),
		PenaltyAmount: r.PenaltyAmount,
	}
	if r.PayoutDate != nil {
		s := r.PayoutDate.Format("2006-01-02")
		res.PayoutDate = &s
	}
	return res
}

// PUT /api/v1/groups/:id/savings-rule  (chairperson or treasurer; upsert)
func SaveRuleHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, userName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		var grp models.Group
		if err := database.DB.First(&grp, "id = ?", c.Params("id")).Error; err != nil {
			return apperr.NotFound("group not found")
		}
		if _, err := group.RequireOfficer(grp.ID, userID, models.RoleChairperson, models.RoleTreasurer); err != nil {
			return err
		}

		var body SaveRuleRequest
		if err := c.BodyParser(&body); err != nil {
			return apperr.Validation("invalid request body")
		}
		if err := validate.Struct(body); err != nil {
			return err
		}
		if !body.TargetAmount.IsPositive() {
			return apperr.Validation("target_amount must be greater than zero")
		}
		if body.PenaltyAmount.IsNegative() {
			return apperr.Validation("penalty_amount cannot be negative")
		}

		var payout *time.Time
		if body.PayoutDate != nil && *body.PayoutDate != "" {
			d, err := time.Parse("2006-01-02", *body.PayoutDate)
			if err != nil {
				return apperr.Validation("payout_date must be YYYY-MM-DD")
			}
			payout = &d
		}

		var rule models.SavingsRule
		action := models.AuditActionUpdate
		var before any
		if err := database.DB.Where("group_id = ?", grp.ID).First(&rule).Error; err != nil {
			rule = models.SavingsRule{GroupID: grp.ID}
			action = models.AuditActionCreate
		} else {
			cp := rule
			before = cp
		}

		rule.TargetAmount = body.TargetAmount
		rule.Frequency = models.ContributionFrequency(body.Frequency)
		rule.PenaltyAmount = body.PenaltyAmount
		rule.PayoutDate = payout

		if err := database.DB.Save(&rule).Error; err != nil {
			return fmt.Errorf("save savings rule: %w", err)
		}

		gid := grp.ID
		audit.MustLog(audit.LogOptions{
			GroupID:     &gid,
			ActorID:     userID,
			ActorName:   userName,
			EntityType:  "savings_rule",
			EntityID:    rule.ID,
			Action:      action,
			Description: fmt.Sprintf("Savings rule for '%s' saved", grp.Name),
			Before:      before,
			After:       rule,
			RequestID:   audit.RequestID(c),
		})

		return c.JSON(toRuleResponse(&rule))
	}
}

// GET /api/v1/groups/:id/savings-rule
func GetRuleHandler() fiber.Handler {
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

		var rule models.SavingsRule
		if err := database.DB.Where("group_id = ?", grp.ID).First(&rule).Error; err != nil {
			return apperr.NotFound("no savings rule configured for this group")
		}
		return c.JSON(toRuleResponse(&rule))
	}
}

// POST /api/v1/groups/:id/ledger  (treasurer or chairperson; manual entries)
//
// PAYOUT and PENALTY debit the pool and are stored negative; ADJUSTMENT keeps
// the sign the caller provides.
func CreateLedgerEntryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, userName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		var grp models.Group
		if err := database.DB.First(&grp, "id = ?", c.Params("id")).Error; err != nil {
			return apperr.NotFound("group not found")
		}
		if _, err := group.RequireOfficer(grp.ID, userID, models.RoleChairperson, models.RoleTreasurer); err != nil {
			return err
		}

		var body CreateLedgerEntryRequest
		if err := c.BodyParser(&body); err != nil {
			return apperr.Validation("invalid request body")
		}
		if err := validate.Struct(body); err != nil {
			return err
		}
		if body.Amount.IsZero() {
			return apperr.Validation("amount cannot be zero")
		}

		amount := body.Amount
		typ := models.LedgerEntryType(body.Type)
		if typ == models.LedgerPayout || typ == models.LedgerPenalty {
			if amount.IsNegative() {
				return apperr.Validation("amount must be positive; the entry type determines the sign")
			}
			amount = amount.Neg()
		}

		if body.MemberID != nil {
			var member models.GroupMember
			if err := database.DB.First(&member, "id = ? AND group_id = ?", *body.MemberID, grp.ID).Error; err != nil {
				return apperr.Validation("member_id does not belong to this group")
			}
		}

		entry := models.LedgerEntry{
			GroupID:     grp.ID,
			MemberID:    body.MemberID,
			Type:        typ,
			Amount:      amount,
			Description: body.Description,
			RecordedBy:  userID,
		}
		if err := database.DB.Create(&entry).Error; err != nil {
			return fmt.Errorf("create ledger entry: %w", err)
		}

		gid := grp.ID
		audit.MustLog(audit.LogOptions{
			GroupID:     &gid,
			ActorID:     userID,
			ActorName:   userName,
			EntityType:  "ledger_entry",
			EntityID:    entry.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("%s of %s %s posted", typ, grp.Currency, amount.Abs()),
			After:       entry,
			RequestID:   audit.RequestID(c),
		})

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":     entry.ID,
			"type":   entry.Type,
			"amount": entry.Amount,
		})
	}
}

// GET /api/v1/groups/:id/ledger
func ListLedgerHandler() fiber.Handler {
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

		var entries []models.LedgerEntry
		if err := database.DB.Where("group_id = ?", grp.ID).
			Order("id asc").Find(&entries).Error; err != nil {
			return fmt.Errorf("list ledger: %w", err)
		}

		balance := decimal.Zero
		res := make([]LedgerEntryResponse, 0, len(entries))
		for _, e := range entries {
			balance = balance.Add(e.Amount)
			res = append(res, LedgerEntryResponse{
				ID:          e.ID,
				Type:        string(e.Type),
				Amount:      e.Amount,
				Balance:     balance,
				MemberID:    e.MemberID,
				Description: e.Description,
				CreatedAt:   e.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}

		return c.JSON(fiber.Map{
			"currency": grp.Currency,
			"balance":  balance,
			"entries":  res,
		})
	}
}
