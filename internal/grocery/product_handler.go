package grocery

import (
	"fmt"
	"strings"

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

type CreateProductRequest struct {
	Name     string          `json:"name" validate:"required,min=2,max=100"`
	Unit     string          `json:"unit" validate:"required,max=20"`
	UnitCost decimal.Decimal `json:"unit_cost"`
}

type UpdateProductRequest struct {
	Name     *string          `json:"name"`
	Unit     *string          `json:"unit"`
	UnitCost *decimal.Decimal `json:"unit_cost"`
	Active   *bool            `json:"active"`
}

type ProductResponse struct {
	ID       uint            `json:"id"`
	Name     string          `json:"name"`
	Unit     string          `json:"unit"`
	UnitCost decimal.Decimal `json:"unit_cost"`
	Active   bool            `json:"active"`
}

func toProductResponse(p *models.GroceryProduct) ProductResponse {
	return ProductResponse{ID: p.ID, Name: p.Name, Unit: p.Unit, UnitCost: p.UnitCost, Active: p.Active}
}

// POST /api/v1/groups/:id/grocery/products  (chairperson or treasurer)
func CreateProductHandler() fiber.Handler {
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

		var body CreateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return apperr.Validation("invalid request body")
		}
		body.Name = strings.TrimSpace(body.Name)
		if err := validate.Struct(body); err != nil {
			return err
		}
		if body.UnitCost.IsNegative() {
			return apperr.Validation("unit_cost cannot be negative")
		}

		product := models.GroceryProduct{
			GroupID:  grp.ID,
			Name:     body.Name,
			Unit:     body.Unit,
			UnitCost: body.UnitCost,
			Active:   true,
		}
		if err := database.DB.Create(&product).Error; err != nil {
			return fmt.Errorf("create product: %w", err)
		}

		gid := grp.ID
		audit.MustLog(audit.LogOptions{
			GroupID:     &gid,
			ActorID:     userID,
			ActorName:   userName,
			EntityType:  "grocery_product",
			EntityID:    product.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Product '%s' added to catalog", product.Name),
			After:       product,
			RequestID:   audit.RequestID(c),
		})

		return c.Status(fiber.StatusCreated).JSON(toProductResponse(&product))
	}
}

// GET /api/v1/groups/:id/grocery/products
func ListProductsHandler() fiber.Handler {
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

		dbq := database.DB.Where("group_id = ?", grp.ID)
		if c.Query("active") == "true" {
			dbq = dbq.Where("active = ?", true)
		}

		var products []models.GroceryProduct
		if err := dbq.Order("name asc").Find(&products).Error; err != nil {
			return fmt.Errorf("list products: %w", err)
		}

		res := make([]ProductResponse, 0, len(products))
		for i := range products {
			res = append(res, toProductResponse(&products[i]))
		}
		return c.JSON(res)
	}
}

// PUT /api/v1/groups/:id/grocery/products/:productId  (chairperson or treasurer)
func UpdateProductHandler() fiber.Handler {
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

		var product models.GroceryProduct
		if err := database.DB.First(&product, "id = ? AND group_id = ?", c.Params("productId"), grp.ID).Error; err != nil {
			return apperr.NotFound("product not found")
		}

		var body UpdateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return apperr.Validation("invalid request body")
		}

		before := product

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return apperr.Validation("name cannot be empty")
			}
			product.Name = name
		}
		if body.Unit != nil {
			product.Unit = *body.Unit
		}
		if body.UnitCost != nil {
			if body.UnitCost.IsNegative() {
				return apperr.Validation("unit_cost cannot be negative")
			}
			product.UnitCost = *body.UnitCost
		}
		if body.Active != nil {
			product.Active = *body.Active
		}

		if err := database.DB.Save(&product).Error; err != nil {
			return fmt.Errorf("update product: %w", err)
		}

		gid := grp.ID
		audit.MustLog(audit.LogOptions{
			GroupID:     &gid,
			ActorID:     userID,
			ActorName:   userName,
			EntityType:  "grocery_product",
			EntityID:    product.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Product '%s' updated", product.Name),
			Before:      before,
			After:       product,
			RequestID:   audit.RequestID(c),
		})

		return c.JSON(toProductResponse(&product))
	}
}

// DELETE /api/v1/groups/:id/grocery/products/:productId  (chairperson or treasurer)
func DeleteProductHandler() fiber.Handler {
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

		var product models.GroceryProduct
		if err := database.DB.First(&product, "id = ? AND group_id = ?", c.Params("productId"), grp.ID).Error; err != nil {
			return apperr.NotFound("product not found")
		}

		if err := database.DB.Delete(&product).Error; err != nil {
			return fmt.Errorf("delete product: %w", err)
		}

		gid := grp.ID
		audit.MustLog(audit.LogOptions{
			GroupID:     &gid,
			ActorID:     userID,
			ActorName:   userName,
			EntityType:  "grocery_product",
			EntityID:    product.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Product '%s' removed from catalog", product.Name),
			Before:      product,
			RequestID:   audit.RequestID(c),
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}
