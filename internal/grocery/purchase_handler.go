package grocery

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
	"gorm.io/gorm"
)

type PurchaseItemRequest struct {
	ProductID uint            `json:"product_id" validate:"required"`
	Quantity  float64         `json:"quantity" validate:"required,gt=0"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

type CreatePurchaseRequest struct {
	Supplier string                `json:"supplier" validate:"max=100"`
	Items    []PurchaseItemRequest `json:"items" validate:"required,min=1,dive"`
}

type PurchaseItemResponse struct {
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    float64         `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
}

type PurchaseResponse struct {
	ID        uint                   `json:"id"`
	GroupID   uint                   `json:"group_id"`
	Status    string                 `json:"status"`
	Supplier  string                 `json:"supplier"`
	TotalCost decimal.Decimal        `json:"total_cost"`
	Items     []PurchaseItemResponse `json:"items"`
	CreatedAt string                 `json:"created_at"`
}

func toPurchaseResponse(p *models.GroceryPurchase) PurchaseResponse {
	items := make([]PurchaseItemResponse, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, PurchaseItemResponse{
			ProductID:   it.ProductID,
			ProductName: it.Product.Name,
			Quantity:    it.Quantity,
			UnitCost:    it.UnitCost,
		})
	}
	return PurchaseResponse{
		ID:        p.ID,
		GroupID:   p.GroupID,
		Status:    string(p.Status),
		Supplier:  p.Supplier,
		TotalCost: p.TotalCost,
		Items:     items,
		CreatedAt: p.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// POST /api/v1/groups/:id/grocery/purchases  (any active member proposes)
func CreatePurchaseHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, userName, err := auth.CurrentUser(c)
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

		var body CreatePurchaseRequest
		if err := c.BodyParser(&body); err != nil {
			return apperr.Validation("invalid request body")
		}
		if err := validate.Struct(body); err != nil {
			return err
		}

		purchase := models.GroceryPurchase{
			GroupID:     grp.ID,
			Status:      models.PurchasePending,
			Supplier:    body.Supplier,
			RequestedBy: userID,
			TotalCost:   decimal.Zero,
		}

		items := make([]models.GroceryPurchaseItem, 0, len(body.Items))
		total := decimal.Zero
		for _, it := range body.Items {
			var product models.GroceryProduct
			if err := database.DB.First(&product, "id = ? AND group_id = ?", it.ProductID, grp.ID).Error; err != nil {
				return apperr.Validation(fmt.Sprintf("product %d does not belong to this group", it.ProductID))
			}
			if !product.Active {
				return apperr.BusinessRule(fmt.Sprintf("product '%s' is inactive", product.Name))
			}

			unitCost := it.UnitCost
			if unitCost.IsZero() {
				unitCost = product.UnitCost
			}
			if unitCost.IsNegative() {
				return apperr.Validation("unit_cost cannot be negative")
			}

			items = append(items, models.GroceryPurchaseItem{
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
				UnitCost:  unitCost,
			})
			total = total.Add(unitCost.Mul(decimal.NewFromFloat(it.Quantity)))
		}
		purchase.TotalCost = total
		purchase.Items = items

		if err := database.DB.Create(&purchase).Error; err != nil {
			return fmt.Errorf("create purchase: %w", err)
		}

		gid := grp.ID
		audit.MustLog(audit.LogOptions{
			GroupID:     &gid,
			ActorID:     userID,
			ActorName:   userName,
			EntityType:  "grocery_purchase",
			EntityID:    purchase.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Purchase of %s %s proposed", grp.Currency, total),
			After:       purchase,
			RequestID:   audit.RequestID(c),
		})

		database.DB.Preload("Items.Product").First(&purchase, purchase.ID)
		return c.Status(fiber.StatusCreated).JSON(toPurchaseResponse(&purchase))
	}
}

// GET /api/v1/groups/:id/grocery/purchases?status=PENDING
func ListPurchasesHandler() fiber.Handler {
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

		dbq := database.DB.Preload("Items.Product").Where("group_id = ?", grp.ID)
		if s := c.Query("status"); s != "" {
			dbq = dbq.Where("status = ?", s)
		}

		var purchases []models.GroceryPurchase
		if err := dbq.Order("id desc").Limit(100).Find(&purchases).Error; err != nil {
			return fmt.Errorf("list purchases: %w", err)
		}

		res := make([]PurchaseResponse, 0, len(purchases))
		for i := range purchases {
			res = append(res, toPurchaseResponse(&purchases[i]))
		}
		return c.JSON(res)
	}
}

// POST /api/v1/groups/:id/grocery/purchases/:purchaseId/approve
// POST /api/v1/groups/:id/grocery/purchases/:purchaseId/reject
//
// Only a PENDING purchase can be decided. Approval is what makes the purchased
// quantities count as stock.
func ApprovePurchaseHandler() fiber.Handler {
	return purchaseDecisionHandler(models.PurchaseApproved, models.AuditActionApprove)
}

func RejectPurchaseHandler() fiber.Handler {
	return purchaseDecisionHandler(models.PurchaseRejected, models.AuditActionReject)
}

func purchaseDecisionHandler(target models.PurchaseStatus, action models.AuditAction) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, userName, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		var grp models.Group
		if err := database.DB.First(&grp, "id = ?", c.Params("id")).Error; err != nil {
			return apperr.NotFound("group not found")
		}
		caller, err := group.RequireOfficer(grp.ID, userID, models.RoleChairperson, models.RoleTreasurer)
		if err != nil {
			return err
		}

		var purchase models.GroceryPurchase
		if err := database.DB.Preload("Items.Product").
			First(&purchase, "id = ? AND group_id = ?", c.Params("purchaseId"), grp.ID).Error; err != nil {
			return apperr.NotFound("purchase not found")
		}

		before := purchase

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			var current models.GroceryPurchase
			if err := group.LockForUpdate(tx).First(&current, purchase.ID).Error; err != nil {
				return fmt.Errorf("reload purchase: %w", err)
			}
			if current.Status != models.PurchasePending {
				return apperr.New(409, apperr.CodeInvalidTransition,
					fmt.Sprintf("cannot move purchase from %s to %s", current.Status, target))
			}

			now := time.Now()
			if err := tx.Model(&current).Updates(map[string]interface{}{
				"status":     target,
				"decided_by": caller.ID,
				"decided_at": &now,
			}).Error; err != nil {
				return fmt.Errorf("update purchase status: %w", err)
			}

			// Approval debits the pool by the purchase cost
			if target == models.PurchaseApproved {
				entry := models.LedgerEntry{
					GroupID:     grp.ID,
					Type:        models.LedgerAdjustment,
					Amount:      purchase.TotalCost.Neg(),
					Description: fmt.Sprintf("Grocery purchase #%d approved", purchase.ID),
					RecordedBy:  userID,
				}
				if err := tx.Create(&entry).Error; err != nil {
					return fmt.Errorf("post purchase ledger entry: %w", err)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		purchase.Status = target

		gid := grp.ID
		audit.MustLog(audit.LogOptions{
			GroupID:     &gid,
			ActorID:     userID,
			ActorName:   userName,
			EntityType:  "grocery_purchase",
			EntityID:    purchase.ID,
			Action:      action,
			Description: fmt.Sprintf("Purchase #%d %s", purchase.ID, target),
			Before:      before,
			After:       purchase,
			RequestID:   audit.RequestID(c),
		})

		return c.JSON(toPurchaseResponse(&purchase))
	}
}
