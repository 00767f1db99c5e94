package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"branchops-backend/internal/apperr"
	"branchops-backend/internal/database"
	"branchops-backend/internal/models"
)

// BranchScope is the branch filter a request must apply to branch-owned rows.
// Code == nil means unrestricted (admin without an explicit filter).
type BranchScope struct {
	Code    *string
	IsAdmin bool
}

// ResolveBranchScope decides which branch the caller may touch.
// Branch managers are pinned to their own branch code; a manager without an
// assigned branch cannot see branch-owned rows at all. Admins see everything
// and may narrow with ?branch_id=.
func ResolveBranchScope(c *fiber.Ctx) (BranchScope, error) {
	profile, err := CurrentProfile(c)
	if err != nil {
		return BranchScope{}, fiber.NewError(fiber.StatusForbidden, "no profile for this user")
	}

	if profile.Role == models.RoleBranchManager {
		if profile.BranchID == nil || *profile.BranchID == "" {
			return BranchScope{}, fiber.NewError(fiber.StatusForbidden, "branch manager has no branch assigned")
		}
		return BranchScope{Code: profile.BranchID}, nil
	}

	scope := BranchScope{IsAdmin: true}
	if q := c.Query("branch_id"); q != "" {
		scope.Code = &q
	}
	return scope, nil
}

// BranchForWrite returns the branch code a mutation must be recorded under.
// Branch managers always write to their own branch; admins must name one,
// either in the body or via ?branch_id=. An admin-supplied code is checked
// against the branches table so rows cannot be filed under a branch that
// does not exist.
func BranchForWrite(c *fiber.Ctx, bodyBranchID string) (string, error) {
	scope, err := ResolveBranchScope(c)
	if err != nil {
		return "", err
	}

	if !scope.IsAdmin {
		return *scope.Code, nil
	}

	code := bodyBranchID
	if code == "" && scope.Code != nil {
		code = *scope.Code
	}
	if code == "" {
		return "", fiber.NewError(fiber.StatusBadRequest, "branch_id is required")
	}
	if err := branchCodeExists(code); err != nil {
		return "", err
	}
	return code, nil
}

func branchCodeExists(code string) error {
	var branch models.Branch
	if err := database.DB.First(&branch, "branch_code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrBranchNotFound
		}
		return err
	}
	return nil
}
