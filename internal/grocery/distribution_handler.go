package grocery

import (
	"fmt"

	"github.com/kumbulanit/stockvelOS-sub001/internal/apperr"
	"github.com/kumbulanit/stockvelOS-sub001/internal/audit"
	"github.com/kumbulanit/stockvelOS-sub001/internal/auth"
	"github.com/kumbulanit/stockvelOS-sub001/internal/database"
	"github.com/kumbulanit/stockvelOS-sub001/internal/group"
	"github.com/kumbulanit/stockvelOS-sub001/internal/models"
	"github.com/kumbulanit/stockvelOS-sub001/internal/notification"
	"github.com/kumbulanit/stockvelOS-sub001/internal/validate"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type DistributionQuantity struct {
	ProductID uint    `json:"product_id" validate:"required"`
	Quantity  float64 `json:"quantity" validate:"required,gt=0"`
}

type CustomAllocation struct {
	MemberID  uint    `json:"member_id" validate:"required"`
	ProductID uint    `json:"product_id" validate:"required"`
	Quantity  float64 `json:"quantity" validate:"required,gt=0"`
}

type CreateDistributionRequest struct {
	Rule       string                 `json:"rule" validate:"required,oneof=EQUAL_SHARE CONTRIBUTION_WEIGHTED CUSTOM"`
	Note       string                 `json:"note" validate:"max=255"`
	Quantities []DistributionQuantity `json:"quantities" validate:"omitempty,dive"`
	Custom     []CustomAllocation     `json:"custom" validate:"omitempty,dive"`
}

type DistributionItemResponse struct {
	MemberID    uint    `json:"member_id"`
	ProductID   uint    `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    float64 `json:"quantity"`
}

type DistributionResponse struct {
	ID        uint                       `json:"id"`
	GroupID   uint                       `json:"group_id"`
	Rule      string                     `json:"rule"`
	Note      string                     `json:"note"`
	Items     []DistributionItemResponse `json:"items"`
	CreatedAt string                     `json:"created_at"`
}

func toDistributionResponse(d *models.GroceryDistribution) DistributionResponse {
	items := make([]DistributionItemResponse, 0, len(d.Items))
	for _, it := range d.Items {
		items = append(items, DistributionItemResponse{
			MemberID:    it.MemberID,
			ProductID:   it.ProductID,
			ProductName: it.Product.Name,
			Quantity:    it.Quantity,
		})
	}
	return DistributionResponse{
		ID:        d.ID,
		GroupID:   d.GroupID,
		Rule:      string(d.Rule),
		Note:      d.Note,
		Items:     items,
		CreatedAt: d.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// POST /api/v1/groups/:id/grocery/distributions  (chairperson or treasurer)
//
// Allocation and the stock check run inside one transaction with the stock
// aggregation locked, so two concurrent distributions cannot both allocate the
// same units.
func CreateDistributionHandler() fiber.Handler {
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

		var body CreateDistributionRequest
		if err := c.BodyParser(&body); err != nil {
			return apperr.Validation("invalid request body")
		}
		if err := validate.Struct(body); err != nil {
			return err
		}
		rule := models.AllocationRule(body.Rule)
		if rule != models.AllocationCustom && len(body.Quantities) == 0 {
			return apperr.Validation("quantities are required for this allocation rule")
		}

		var members []models.GroupMember
		if err := database.DB.Where("group_id = ? AND status = ?", grp.ID, models.MemberStatusActive).
			Find(&members).Error; err != nil {
			return fmt.Errorf("list members: %w", err)
		}
		memberIDs := make([]uint, 0, len(members))
		for _, m := range members {
			memberIDs = append(memberIDs, m.ID)
		}

		// Weights: approved contribution totals per member
		weights := make(map[uint]float64)
		if rule == models.AllocationContributionWeighted {
			type weightRow struct {
				MemberID uint
				Total    float64
			}
			var rows []weightRow
			if err := database.DB.Model(&models.Contribution{}).
				Select("member_id, SUM(amount) as total").
				Where("group_id = ? AND status = ?", grp.ID, models.ContributionApproved).
				Group("member_id").
				Scan(&rows).Error; err != nil {
				return fmt.Errorf("sum contribution weights: %w", err)
			}
			for _, r := range rows {
				weights[r.MemberID] = r.Total
			}
		}

		quantities := make(map[uint]float64, len(body.Quantities))
		for _, q := range body.Quantities {
			quantities[q.ProductID] += q.Quantity
		}
		custom := make([]Allocation, 0, len(body.Custom))
		for _, a := range body.Custom {
			custom = append(custom, Allocation{MemberID: a.MemberID, ProductID: a.ProductID, Quantity: a.Quantity})
		}

		allocs, err := Allocate(rule, memberIDs, weights, quantities, custom)
		if err != nil {
			return apperr.BusinessRule(err.Error())
		}

		dist := models.GroceryDistribution{
			GroupID:   grp.ID,
			Rule:      rule,
			Note:      body.Note,
			CreatedBy: userID,
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			// lock the group row as the per-group mutex for stock math
			var locked models.Group
			if err := group.LockForUpdate(tx).First(&locked, grp.ID).Error; err != nil {
				return fmt.Errorf("lock group: %w", err)
			}

			stock, err := currentStock(tx, grp.ID)
			if err != nil {
				return err
			}

			for productID, wanted := range totalsByProduct(allocs) {
				var product models.GroceryProduct
				if err := tx.First(&product, "id = ? AND group_id = ?", productID, grp.ID).Error; err != nil {
					return apperr.Validation(fmt.Sprintf("product %d does not belong to this group", productID))
				}
				// small float tolerance so an exact full-stock split passes
				if wanted > stock[productID]+1e-9 {
					return apperr.New(409, apperr.CodeInsufficientStock,
						fmt.Sprintf("product '%s': requested %.3f exceeds stock %.3f",
							product.Name, wanted, stock[productID]))
				}
			}

			items := make([]models.GroceryDistributionItem, 0, len(allocs))
			for _, a := range allocs {
				items = append(items, models.GroceryDistributionItem{
					ProductID: a.ProductID,
					MemberID:  a.MemberID,
					Quantity:  a.Quantity,
				})
			}
			dist.Items = items

			if err := tx.Create(&dist).Error; err != nil {
				return fmt.Errorf("create distribution: %w", err)
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
			EntityType:  "grocery_distribution",
			EntityID:    dist.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Distribution #%d created under %s", dist.ID, rule),
			After:       dist,
			RequestID:   audit.RequestID(c),
		})

		notification.NotifyGroup(grp.ID, userID, models.NotifyDistributionCreated,
			"Grocery distribution",
			fmt.Sprintf("A distribution was created for '%s'. Check your allocation.", grp.Name))

		database.DB.Preload("Items.Product").First(&dist, dist.ID)
		return c.Status(fiber.StatusCreated).JSON(toDistributionResponse(&dist))
	}
}

// GET /api/v1/groups/:id/grocery/distributions
func ListDistributionsHandler() fiber.Handler {
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

		var dists []models.GroceryDistribution
		if err := database.DB.Preload("Items.Product").
			Where("group_id = ?", grp.ID).
			Order("id desc").Limit(50).
			Find(&dists).Error; err != nil {
			return fmt.Errorf("list distributions: %w", err)
		}

		res := make([]DistributionResponse, 0, len(dists))
		for i := range dists {
			res = append(res, toDistributionResponse(&dists[i]))
		}
		return c.JSON(res)
	}
}

// GET /api/v1/groups/:id/grocery/distributions/:distId
func GetDistributionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		var dist models.GroceryDistribution
		if err := database.DB.Preload("Items.Product").
			First(&dist, "id = ? AND group_id = ?", c.Params("distId"), c.Params("id")).Error; err != nil {
			return apperr.NotFound("distribution not found")
		}
		if _, err := group.ActiveMembership(dist.GroupID, userID); err != nil {
			return err
		}
		return c.JSON(toDistributionResponse(&dist))
	}
}
