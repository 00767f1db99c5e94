package inventory

import (
	"strings"

	"branchops-backend/internal/audit"
	"branchops-backend/internal/auth"
	"branchops-backend/internal/database"
	"branchops-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type ItemResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Quantity     int     `json:"quantity"`
	Price        float64 `json:"price"`
	ReorderPoint int     `json:"reorder_point"`
	BranchID     string  `json:"branch_id"`
	LowStock     bool    `json:"low_stock"`
	CreatedAt    string  `json:"created_at"`
}

type CreateItemRequest struct {
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Quantity     int     `json:"quantity"`
	Price        float64 `json:"price"`
	ReorderPoint *int    `json:"reorder_point"`
	BranchID     string  `json:"branch_id"`
}

type UpdateItemRequest struct {
	Name         *string  `json:"name"`
	Description  *string  `json:"description"`
	Quantity     *int     `json:"quantity"`
	Price        *float64 `json:"price"`
	ReorderPoint *int     `json:"reorder_point"`
}

func itemResponse(i *models.InventoryItem) ItemResponse {
	return ItemResponse{
		ID:           i.ID,
		Name:         i.Name,
		Description:  i.Description,
		Quantity:     i.Quantity,
		Price:        i.Price,
		ReorderPoint: i.ReorderPoint,
		BranchID:     i.BranchID,
		LowStock:     i.LowStock(),
		CreatedAt:    i.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// GET /api/inventory?branch_id=NYC01&low_stock=true&search=flour
func ListItemsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		scope, err := auth.ResolveBranchScope(c)
		if err != nil {
			return err
		}

		dbq := database.DB.Model(&models.InventoryItem{})
		if scope.Code != nil {
			dbq = dbq.Where("branch_id = ?", *scope.Code)
		}
		if c.Query("low_stock") == "true" {
			dbq = dbq.Where("quantity <= reorder_point")
		}
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			dbq = dbq.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
		}

		var items []models.InventoryItem
		if err := dbq.Order("created_at desc").Find(&items).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list inventory")
		}

		res := make([]ItemResponse, 0, len(items))
		for i := range items {
			res = append(res, itemResponse(&items[i]))
		}
		return c.JSON(res)
	}
}

// POST /api/inventory
func CreateItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateItemRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "item name is required")
		}
		if body.Quantity < 0 || body.Price < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "quantity and price cannot be negative")
		}

		branchID, err := auth.BranchForWrite(c, body.BranchID)
		if err != nil {
			return err
		}

		item := models.InventoryItem{
			Name:        body.Name,
			Description: strings.TrimSpace(body.Description),
			Quantity:    body.Quantity,
			Price:       body.Price,
			BranchID:    branchID,
		}
		if body.ReorderPoint != nil {
			item.ReorderPoint = *body.ReorderPoint
		} else {
			item.ReorderPoint = 10
		}

		if err := database.DB.Create(&item).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not create item")
		}

		userID, _ := c.Locals(auth.CtxUserIDKey).(string)
		email, _ := c.Locals(auth.CtxEmailKey).(string)
		audit.Record(audit.LogOptions{
			BranchID:    &item.BranchID,
			UserID:      userID,
			UserEmail:   email,
			EntityType:  "inventory_item",
			EntityID:    item.ID,
			Action:      models.AuditActionCreate,
			Description: "inventory item created: " + item.Name,
			After:       item,
		})

		return c.Status(fiber.StatusCreated).JSON(itemResponse(&item))
	}
}

// PUT /api/inventory/:id
func UpdateItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		item, err := loadScoped(c)
		if err != nil {
			return err
		}
		before := *item

		var body UpdateItemRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "item name cannot be empty")
			}
			item.Name = name
		}
		if body.Description != nil {
			item.Description = strings.TrimSpace(*body.Description)
		}
		if body.Quantity != nil {
			if *body.Quantity < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "quantity cannot be negative")
			}
			item.Quantity = *body.Quantity
		}
		if body.Price != nil {
			if *body.Price < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "price cannot be negative")
			}
			item.Price = *body.Price
		}
		if body.ReorderPoint != nil {
			item.ReorderPoint = *body.ReorderPoint
		}

		if err := database.DB.Save(item).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not update item")
		}

		userID, _ := c.Locals(auth.CtxUserIDKey).(string)
		email, _ := c.Locals(auth.CtxEmailKey).(string)
		audit.Record(audit.LogOptions{
			BranchID:    &item.BranchID,
			UserID:      userID,
			UserEmail:   email,
			EntityType:  "inventory_item",
			EntityID:    item.ID,
			Action:      models.AuditActionUpdate,
			Description: "inventory item updated: " + item.Name,
			Before:      before,
			After:       *item,
		})

		return c.JSON(itemResponse(item))
	}
}

// DELETE /api/inventory/:id
func DeleteItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		item, err := loadScoped(c)
		if err != nil {
			return err
		}

		if err := database.DB.Delete(&models.InventoryItem{}, "id = ?", item.ID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not delete item")
		}

		userID, _ := c.Locals(auth.CtxUserIDKey).(string)
		email, _ := c.Locals(auth.CtxEmailKey).(string)
		audit.Record(audit.LogOptions{
			BranchID:    &item.BranchID,
			UserID:      userID,
			UserEmail:   email,
			EntityType:  "inventory_item",
			EntityID:    item.ID,
			Action:      models.AuditActionDelete,
			Description: "inventory item deleted: " + item.Name,
			Before:      *item,
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}

func loadScoped(c *fiber.Ctx) (*models.InventoryItem, error) {
	scope, err := auth.ResolveBranchScope(c)
	if err != nil {
		return nil, err
	}

	id := c.Params("id")
	var item models.InventoryItem
	if err := database.DB.First(&item, "id = ?", id).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "item not found")
	}
	if !scope.IsAdmin && (scope.Code == nil || item.BranchID != *scope.Code) {
		return nil, fiber.NewError(fiber.StatusNotFound, "item not found")
	}
	return &item, nil
}
