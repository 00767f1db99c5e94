package sales

import (
	"time"

	"branchops-backend/internal/audit"
	"branchops-backend/internal/auth"
	"branchops-backend/internal/database"
	"branchops-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SaleResponse struct {
	ID          string  `json:"id"`
	ItemID      string  `json:"item_id"`
	Quantity    int     `json:"quantity"`
	TotalAmount float64 `json:"total_amount"`
	EmployeeID  string  `json:"employee_id"`
	BranchID    string  `json:"branch_id"`
	CreatedAt   string  `json:"created_at"`
}

type CreateSaleRequest struct {
	ItemID     string `json:"item_id"`
	Quantity   int    `json:"quantity"`
	EmployeeID string `json:"employee_id"`
	BranchID   string `json:"branch_id"`
}

type SummaryResponse struct {
	BranchID   *string `json:"branch_id"`
	Days       int     `json:"days"`
	SaleCount  int64   `json:"sale_count"`
	TotalUnits int64   `json:"total_units"`
	Revenue    float64 `json:"revenue"`
}

func saleResponse(s *models.Sale) SaleResponse {
	return SaleResponse{
		ID:          s.ID,
		ItemID:      s.ItemID,
		Quantity:    s.Quantity,
		TotalAmount: s.TotalAmount,
		EmployeeID:  s.EmployeeID,
		BranchID:    s.BranchID,
		CreatedAt:   s.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// GET /api/sales?branch_id=NYC01
func ListSalesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		scope, err := auth.ResolveBranchScope(c)
		if err != nil {
			return err
		}

		dbq := database.DB.Model(&models.Sale{})
		if scope.Code != nil {
			dbq = dbq.Where("branch_id = ?", *scope.Code)
		}

		var sales []models.Sale
		if err := dbq.Order("created_at desc").Limit(200).Find(&sales).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list sales")
		}

		res := make([]SaleResponse, 0, len(sales))
		for i := range sales {
			res = append(res, saleResponse(&sales[i]))
		}
		return c.JSON(res)
	}
}

// POST /api/sales
//
// Recording a sale decrements the item's stock in the same transaction, so a
// concurrent sale cannot oversell the row.
func CreateSaleHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateSaleRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.ItemID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "item_id is required")
		}
		if body.Quantity <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "quantity must be positive")
		}

		branchID, err := auth.BranchForWrite(c, body.BranchID)
		if err != nil {
			return err
		}

		var sale models.Sale
		txErr := database.DB.Transaction(func(tx *gorm.DB) error {
			var item models.InventoryItem
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&item, "id = ? AND branch_id = ?", body.ItemID, branchID).Error; err != nil {
				return fiber.NewError(fiber.StatusNotFound, "item not found in this branch")
			}
			if item.Quantity < body.Quantity {
				return fiber.NewError(fiber.StatusBadRequest, "not enough stock")
			}

			if err := tx.Model(&models.InventoryItem{}).Where("id = ?", item.ID).
				Update("quantity", item.Quantity-body.Quantity).Error; err != nil {
				return err
			}

			sale = models.Sale{
				ItemID:      item.ID,
				Quantity:    body.Quantity,
				TotalAmount: float64(body.Quantity) * item.Price,
				EmployeeID:  body.EmployeeID,
				BranchID:    branchID,
			}
			return tx.Create(&sale).Error
		})
		if txErr != nil {
			if e, ok := txErr.(*fiber.Error); ok {
				return e
			}
			return fiber.NewError(fiber.StatusInternalServerError, "could not record sale")
		}

		userID, _ := c.Locals(auth.CtxUserIDKey).(string)
		email, _ := c.Locals(auth.CtxEmailKey).(string)
		audit.Record(audit.LogOptions{
			BranchID:    &sale.BranchID,
			UserID:      userID,
			UserEmail:   email,
			EntityType:  "sale",
			EntityID:    sale.ID,
			Action:      models.AuditActionCreate,
			Description: "sale recorded",
			After:       sale,
		})

		return c.Status(fiber.StatusCreated).JSON(saleResponse(&sale))
	}
}

// GET /api/sales/summary?days=30&branch_id=NYC01
func SummaryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		scope, err := auth.ResolveBranchScope(c)
		if err != nil {
			return err
		}

		days := c.QueryInt("days", 30)
		if days <= 0 || days > 365 {
			days = 30
		}
		since := time.Now().AddDate(0, 0, -days)

		dbq := database.DB.Model(&models.Sale{}).Where("created_at >= ?", since)
		if scope.Code != nil {
			dbq = dbq.Where("branch_id = ?", *scope.Code)
		}

		var agg struct {
			SaleCount  int64
			TotalUnits int64
			Revenue    float64
		}
		if err := dbq.Select("COUNT(*) AS sale_count, COALESCE(SUM(quantity),0) AS total_units, COALESCE(SUM(total_amount),0) AS revenue").
			Scan(&agg).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not compute summary")
		}

		return c.JSON(SummaryResponse{
			BranchID:   scope.Code,
			Days:       days,
			SaleCount:  agg.SaleCount,
			TotalUnits: agg.TotalUnits,
			Revenue:    agg.Revenue,
		})
	}
}
