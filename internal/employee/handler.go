package employee

import (
	"strings"

	"branchops-backend/internal/audit"
	"branchops-backend/internal/auth"
	"branchops-backend/internal/database"
	"branchops-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type EmployeeResponse struct {
	ID        string  `json:"id"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     string  `json:"email"`
	Position  string  `json:"position"`
	Salary    float64 `json:"salary"`
	BranchID  string  `json:"branch_id"`
	CreatedAt string  `json:"created_at"`
}

type CreateEmployeeRequest struct {
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     string  `json:"email"`
	Position  string  `json:"position"`
	Salary    float64 `json:"salary"`
	BranchID  string  `json:"branch_id"` // admin only, managers always write their own branch
}

type UpdateEmployeeRequest struct {
	FirstName *string  `json:"first_name"`
	LastName  *string  `json:"last_name"`
	Email     *string  `json:"email"`
	Position  *string  `json:"position"`
	Salary    *float64 `json:"salary"`
}

func employeeResponse(e *models.Employee) EmployeeResponse {
	return EmployeeResponse{
		ID:        e.ID,
		FirstName: e.FirstName,
		LastName:  e.LastName,
		Email:     e.Email,
		Position:  e.Position,
		Salary:    e.Salary,
		BranchID:  e.BranchID,
		CreatedAt: e.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// GET /api/employees?branch_id=NYC01&search=smith
func ListEmployeesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		scope, err := auth.ResolveBranchScope(c)
		if err != nil {
			return err
		}

		dbq := database.DB.Model(&models.Employee{})
		if scope.Code != nil {
			dbq = dbq.Where("branch_id = ?", *scope.Code)
		}
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			like := "%" + strings.ToLower(search) + "%"
			dbq = dbq.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?", like, like, like)
		}

		var employees []models.Employee
		if err := dbq.Order("created_at desc").Find(&employees).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list employees")
		}

		res := make([]EmployeeResponse, 0, len(employees))
		for i := range employees {
			res = append(res, employeeResponse(&employees[i]))
		}
		return c.JSON(res)
	}
}

// POST /api/employees
func CreateEmployeeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateEmployeeRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		body.FirstName = strings.TrimSpace(body.FirstName)
		body.LastName = strings.TrimSpace(body.LastName)
		body.Email = strings.ToLower(strings.TrimSpace(body.Email))
		if body.FirstName == "" || body.LastName == "" {
			return fiber.NewError(fiber.StatusBadRequest, "first and last name are required")
		}

		branchID, err := auth.BranchForWrite(c, body.BranchID)
		if err != nil {
			return err
		}

		e := models.Employee{
			FirstName: body.FirstName,
			LastName:  body.LastName,
			Email:     body.Email,
			Position:  strings.TrimSpace(body.Position),
			Salary:    body.Salary,
			BranchID:  branchID,
		}
		if err := database.DB.Create(&e).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not create employee")
		}

		userID, _ := c.Locals(auth.CtxUserIDKey).(string)
		email, _ := c.Locals(auth.CtxEmailKey).(string)
		audit.Record(audit.LogOptions{
			BranchID:    &e.BranchID,
			UserID:      userID,
			UserEmail:   email,
			EntityType:  "employee",
			EntityID:    e.ID,
			Action:      models.AuditActionCreate,
			Description: "employee created: " + e.FirstName + " " + e.LastName,
			After:       e,
		})

		return c.Status(fiber.StatusCreated).JSON(employeeResponse(&e))
	}
}

// PUT /api/employees/:id
func UpdateEmployeeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		e, err := loadScoped(c)
		if err != nil {
			return err
		}
		before := *e

		var body UpdateEmployeeRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		if body.FirstName != nil {
			e.FirstName = strings.TrimSpace(*body.FirstName)
		}
		if body.LastName != nil {
			e.LastName = strings.TrimSpace(*body.LastName)
		}
		if body.Email != nil {
			e.Email = strings.ToLower(strings.TrimSpace(*body.Email))
		}
		if body.Position != nil {
			e.Position = strings.TrimSpace(*body.Position)
		}
		if body.Salary != nil {
			e.Salary = *body.Salary
		}
		if e.FirstName == "" || e.LastName == "" {
			return fiber.NewError(fiber.StatusBadRequest, "first and last name are required")
		}

		if err := database.DB.Save(e).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not update employee")
		}

		userID, _ := c.Locals(auth.CtxUserIDKey).(string)
		email, _ := c.Locals(auth.CtxEmailKey).(string)
		audit.Record(audit.LogOptions{
			BranchID:    &e.BranchID,
			UserID:      userID,
			UserEmail:   email,
			EntityType:  "employee",
			EntityID:    e.ID,
			Action:      models.AuditActionUpdate,
			Description: "employee updated: " + e.FirstName + " " + e.LastName,
			Before:      before,
			After:       *e,
		})

		return c.JSON(employeeResponse(e))
	}
}

// DELETE /api/employees/:id
func DeleteEmployeeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		e, err := loadScoped(c)
		if err != nil {
			return err
		}

		if err := database.DB.Delete(&models.Employee{}, "id = ?", e.ID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not delete employee")
		}

		userID, _ := c.Locals(auth.CtxUserIDKey).(string)
		email, _ := c.Locals(auth.CtxEmailKey).(string)
		audit.Record(audit.LogOptions{
			BranchID:    &e.BranchID,
			UserID:      userID,
			UserEmail:   email,
			EntityType:  "employee",
			EntityID:    e.ID,
			Action:      models.AuditActionDelete,
			Description: "employee deleted: " + e.FirstName + " " + e.LastName,
			Before:      *e,
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}

// loadScoped fetches the employee and verifies the caller's branch scope
// covers it. Managers get a 404 for rows outside their branch, not a 403,
// to avoid confirming the row exists.
func loadScoped(c *fiber.Ctx) (*models.Employee, error) {
	scope, err := auth.ResolveBranchScope(c)
	if err != nil {
		return nil, err
	}

	id := c.Params("id")
	var e models.Employee
	if err := database.DB.First(&e, "id = ?", id).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "employee not found")
	}
	if !scope.IsAdmin && (scope.Code == nil || e.BranchID != *scope.Code) {
		return nil, fiber.NewError(fiber.StatusNotFound, "employee not found")
	}
	return &e, nil
}
