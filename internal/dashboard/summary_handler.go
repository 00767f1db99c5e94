package dashboard

import (
	"time"

	"branchops-backend/internal/auth"
	"branchops-backend/internal/database"
	"branchops-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SummaryResponse backs the dashboard's stat cards.
type SummaryResponse struct {
	BranchID       *string `json:"branch_id"`
	TotalSales     float64 `json:"total_sales"`
	EmployeeCount  int64   `json:"employee_count"`
	InventoryCount int64   `json:"inventory_count"`
	LowStockCount  int64   `json:"low_stock_count"`
	BranchCount    int64   `json:"branch_count"`
}

// GET /api/dashboard/summary?days=30&branch_id=NYC01
//
// Branch managers get their own branch's numbers; admins get the whole
// business or a single branch via ?branch_id=.
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

		scoped := func(dbq *gorm.DB) *gorm.DB {
			if scope.Code != nil {
				return dbq.Where("branch_id = ?", *scope.Code)
			}
			return dbq
		}

		res := SummaryResponse{BranchID: scope.Code}

		if err := scoped(database.DB.Model(&models.Sale{}).Where("created_at >= ?", since)).
			Select("COALESCE(SUM(total_amount),0)").Scan(&res.TotalSales).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not compute sales total")
		}
		if err := scoped(database.DB.Model(&models.Employee{})).Count(&res.EmployeeCount).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not count employees")
		}
		if err := scoped(database.DB.Model(&models.InventoryItem{})).Count(&res.InventoryCount).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not count inventory")
		}
		if err := scoped(database.DB.Model(&models.InventoryItem{}).Where("quantity <= reorder_point")).
			Count(&res.LowStockCount).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not count low stock")
		}

		branchQ := database.DB.Model(&models.Branch{})
		if scope.Code != nil {
			branchQ = branchQ.Where("branch_code = ?", *scope.Code)
		}
		if err := branchQ.Count(&res.BranchCount).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not count branches")
		}

		return c.JSON(res)
	}
}
