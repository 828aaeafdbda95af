package grocery

import (
	"fmt"

	"github.com/kumbulanit/stockvelOS-sub001/internal/apperr"
	"github.com/kumbulanit/stockvelOS-sub001/internal/auth"
	"github.com/kumbulanit/stockvelOS-sub001/internal/database"
	"github.com/kumbulanit/stockvelOS-sub001/internal/group"
	"github.com/kumbulanit/stockvelOS-sub001/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type stockRow struct {
	ProductID uint
	Total     float64
}

// currentStock returns per-product stock for a group: approved purchase
// quantities minus everything already distributed. Runs on the supplied tx so
// distribution creation can hold it inside its transaction.
func currentStock(tx *gorm.DB, groupID uint) (map[uint]float64, error) {
	stock := make(map[uint]float64)

	var purchased []stockRow
	err := tx.Model(&models.GroceryPurchaseItem{}).
		Select("grocery_purchase_items.product_id as product_id, SUM(grocery_purchase_items.quantity) as total").
		Joins("JOIN grocery_purchases ON grocery_purchases.id = grocery_purchase_items.grocery_purchase_id").
		Where("grocery_purchases.group_id = ? AND grocery_purchases.status = ?", groupID, models.PurchaseApproved).
		Group("grocery_purchase_items.product_id").
		Scan(&purchased).Error
	if err != nil {
		return nil, fmt.Errorf("sum purchases: %w", err)
	}
	for _, r := range purchased {
		stock[r.ProductID] = r.Total
	}

	var distributed []stockRow
	err = tx.Model(&models.GroceryDistributionItem{}).
		Select("grocery_distribution_items.product_id as product_id, SUM(grocery_distribution_items.quantity) as total").
		Joins("JOIN grocery_distributions ON grocery_distributions.id = grocery_distribution_items.grocery_distribution_id").
		Where("grocery_distributions.group_id = ?", groupID).
		Group("grocery_distribution_items.product_id").
		Scan(&distributed).Error
	if err != nil {
		return nil, fmt.Errorf("sum distributions: %w", err)
	}
	for _, r := range distributed {
		stock[r.ProductID] -= r.Total
	}

	return stock, nil
}

// StockValue prices the group's current stock at catalog unit cost.
func StockValue(tx *gorm.DB, groupID uint) (decimal.Decimal, error) {
	stock, err := currentStock(tx, groupID)
	if err != nil {
		return decimal.Zero, err
	}

	value := decimal.Zero
	for productID, qty := range stock {
		if qty <= 0 {
			continue
		}
		var product models.GroceryProduct
		if err := tx.Unscoped().First(&product, productID).Error; err != nil {
			continue
		}
		value = value.Add(product.UnitCost.Mul(decimal.NewFromFloat(qty)))
	}
	return value, nil
}

// GET /api/v1/groups/:id/grocery/stock
func GetStockHandler() fiber.Handler {
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

		stock, err := currentStock(database.DB, grp.ID)
		if err != nil {
			return err
		}

		var products []models.GroceryProduct
		if err := database.DB.Where("group_id = ?", grp.ID).Order("name asc").Find(&products).Error; err != nil {
			return fmt.Errorf("list products: %w", err)
		}

		type stockItem struct {
			ProductID uint    `json:"product_id"`
			Name      string  `json:"name"`
			Unit      string  `json:"unit"`
			Quantity  float64 `json:"quantity"`
		}
		res := make([]stockItem, 0, len(products))
		for _, p := range products {
			res = append(res, stockItem{
				ProductID: p.ID,
				Name:      p.Name,
				Unit:      p.Unit,
				Quantity:  stock[p.ID],
			})
		}
		return c.JSON(res)
	}
}
