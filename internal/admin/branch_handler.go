package admin

import (
	"errors"
	"strings"

	"branchops-backend/internal/apperr"
	"branchops-backend/internal/audit"
	"branchops-backend/internal/auth"
	"branchops-backend/internal/database"
	"branchops-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type BranchResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Address    string `json:"address"`
	Phone      string `json:"phone"`
	BranchCode string `json:"branch_code"`
	ManagerID  string `json:"manager_id"`
	CreatedAt  string `json:"created_at"`
}

type CreateBranchRequest struct {
	Name       string  `json:"name"`
	Address    string  `json:"address"`
	Phone      *string `json:"phone"`
	BranchCode string  `json:"branch_code"` // optional, derived from name when empty
}

type UpdateBranchRequest struct {
	Name      *string `json:"name"`
	Address   *string `json:"address"`
	Phone     *string `json:"phone"`
	ManagerID *string `json:"manager_id"`
}

type CreateBranchManagerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func branchResponse(b *models.Branch) BranchResponse {
	return BranchResponse{
		ID:         b.ID,
		Name:       b.Name,
		Address:    b.Address,
		Phone:      b.Phone,
		BranchCode: b.BranchCode,
		ManagerID:  b.ManagerID,
		CreatedAt:  b.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func auditUser(c *fiber.Ctx) (string, string) {
	userID, _ := c.Locals(auth.CtxUserIDKey).(string)
	email, _ := c.Locals(auth.CtxEmailKey).(string)
	return userID, email
}

// POST /api/admin/branches
func CreateBranchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateBranchRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "branch name is required")
		}

		branch := models.Branch{
			Name:       body.Name,
			Address:    body.Address,
			BranchCode: strings.ToUpper(strings.TrimSpace(body.BranchCode)),
		}
		if body.Phone != nil {
			branch.Phone = strings.TrimSpace(*body.Phone)
		}

		if err := database.DB.Create(&branch).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fiber.NewError(fiber.StatusConflict, "branch name or code already exists")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "could not create branch")
		}

		// BeforeCreate assigned the ID, so a derived code has to wait until now
		if branch.BranchCode == "" {
			branch.BranchCode = database.DeriveBranchCode(branch.Name, branch.ID)
			if err := database.DB.Model(&branch).Update("branch_code", branch.BranchCode).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "could not assign branch code")
			}
		}

		userID, email := auditUser(c)
		audit.Record(audit.LogOptions{
			BranchID:    &branch.BranchCode,
			UserID:      userID,
			UserEmail:   email,
			EntityType:  "branch",
			EntityID:    branch.ID,
			Action:      models.AuditActionCreate,
			Description: "branch created: " + branch.Name,
			After:       branch,
		})

		return c.Status(fiber.StatusCreated).JSON(branchResponse(&branch))
	}
}

// GET /api/branches (any authenticated user; pages need the branch list for filters)
func ListBranchesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var branches []models.Branch
		if err := database.DB.Order("name asc").Find(&branches).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list branches")
		}

		res := make([]BranchResponse, 0, len(branches))
		for i := range branches {
			res = append(res, branchResponse(&branches[i]))
		}
		return c.JSON(res)
	}
}

// GET /api/admin/branches/:id
func GetBranchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var branch models.Branch
		if err := database.DB.First(&branch, "id = ?", id).Error; err != nil {
			return apperr.ErrBranchNotFound
		}

		return c.JSON(branchResponse(&branch))
	}
}

// PUT /api/admin/branches/:id
func UpdateBranchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var branch models.Branch
		if err := database.DB.First(&branch, "id = ?", id).Error; err != nil {
			return apperr.ErrBranchNotFound
		}
		before := branch

		var body UpdateBranchRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "branch name cannot be empty")
			}
			branch.Name = name
		}
		if body.Address != nil {
			branch.Address = *body.Address
		}
		if body.Phone != nil {
			branch.Phone = strings.TrimSpace(*body.Phone)
		}
		if body.ManagerID != nil {
			branch.ManagerID = *body.ManagerID
		}

		if err := database.DB.Save(&branch).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not update branch")
		}

		userID, email := auditUser(c)
		audit.Record(audit.LogOptions{
			BranchID:    &branch.BranchCode,
			UserID:      userID,
			UserEmail:   email,
			EntityType:  "branch",
			EntityID:    branch.ID,
			Action:      models.AuditActionUpdate,
			Description: "branch updated: " + branch.Name,
			Before:      before,
			After:       branch,
		})

		return c.JSON(branchResponse(&branch))
	}
}

// DELETE /api/admin/branches/:id
func DeleteBranchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var branch models.Branch
		if err := database.DB.First(&branch, "id = ?", id).Error; err != nil {
			return apperr.ErrBranchNotFound
		}

		if err := database.DB.Delete(&models.Branch{}, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not delete branch")
		}

		userID, email := auditUser(c)
		audit.Record(audit.LogOptions{
			BranchID:    &branch.BranchCode,
			UserID:      userID,
			UserEmail:   email,
			EntityType:  "branch",
			EntityID:    branch.ID,
			Action:      models.AuditActionDelete,
			Description: "branch deleted: " + branch.Name,
			Before:      branch,
		})

		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/admin/branches/:id/manager
//
// Creates a user together with a branch_manager profile bound to the branch,
// and records the user as the branch manager.
func CreateBranchManagerHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID := c.Params("id")

		var branch models.Branch
		if err := database.DB.First(&branch, "id = ?", branchID).Error; err != nil {
			return apperr.ErrBranchNotFound
		}

		var body CreateBranchManagerRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		body.Email = strings.ToLower(strings.TrimSpace(body.Email))
		if body.Email == "" || body.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "email and password are required")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not hash password")
		}

		user := models.User{
			Email:        body.Email,
			PasswordHash: string(hash),
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			p := models.UserProfile{
				ID:       user.ID,
				Role:     models.RoleBranchManager,
				BranchID: &branch.BranchCode,
			}
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
			return tx.Model(&models.Branch{}).Where("id = ?", branch.ID).
				Update("manager_id", user.ID).Error
		})
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.ErrEmailTaken
			}
			return fiber.NewError(fiber.StatusInternalServerError, "could not create branch manager")
		}

		userID, email := auditUser(c)
		audit.Record(audit.LogOptions{
			BranchID:    &branch.BranchCode,
			UserID:      userID,
			UserEmail:   email,
			EntityType:  "user_profile",
			EntityID:    user.ID,
			Action:      models.AuditActionCreate,
			Description: "branch manager created for " + branch.Name,
		})

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":        user.ID,
			"email":     user.Email,
			"role":      models.RoleBranchManager,
			"branch_id": branch.BranchCode,
		})
	}
}
