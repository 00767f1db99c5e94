package profile

import (
	"errors"
	"time"

	"branchops-backend/internal/apperr"
	"branchops-backend/internal/auth"
	"branchops-backend/internal/database"
	"branchops-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ProfileResponse struct {
	ID        string          `json:"id"`
	Role      models.UserRole `json:"role"`
	BranchID  *string         `json:"branch_id"`
	CreatedAt string          `json:"created_at"`
}

type CreateProfileRequest struct {
	ID       string          `json:"id"`
	Role     models.UserRole `json:"role"`
	BranchID *string         `json:"branch_id"`
}

type UpdateProfileRequest struct {
	Role     *models.UserRole `json:"role"`
	BranchID *string          `json:"branch_id"`
}

func profileResponse(p *models.UserProfile) ProfileResponse {
	return ProfileResponse{
		ID:        p.ID,
		Role:      p.Role,
		BranchID:  p.BranchID,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}

func validRole(r models.UserRole) bool {
	return r == models.RoleAdmin || r == models.RoleBranchManager
}

// GET /api/profiles/:id
//
// Absence is reported with code PROFILE_NOT_FOUND so clients can tell
// "create a default profile" apart from a backend failure. Callers may only
// read their own profile unless they are an admin.
func GetProfileHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		callerID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}
		if id != callerID {
			caller, err := auth.CurrentProfile(c)
			if err != nil || caller.Role != models.RoleAdmin {
				return fiber.NewError(fiber.StatusForbidden, "cannot read another user's profile")
			}
		}

		var p models.UserProfile
		if err := database.DB.First(&p, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrProfileNotFound
			}
			return fiber.NewError(fiber.StatusInternalServerError, "could not load profile")
		}

		return c.JSON(profileResponse(&p))
	}
}

// POST /api/profiles
//
// A duplicate insert (two clients racing the same get-or-create) is reported
// with code PROFILE_EXISTS, never a generic 500: the client recovers by
// re-fetching. Non-admin callers may only create their own profile.
func CreateProfileHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateProfileRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		callerID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}
		if body.ID == "" {
			body.ID = callerID
		}
		if body.ID != callerID {
			caller, err := auth.CurrentProfile(c)
			if err != nil || caller.Role != models.RoleAdmin {
				return fiber.NewError(fiber.StatusForbidden, "cannot create a profile for another user")
			}
		}
		if !validRole(body.Role) {
			return fiber.NewError(fiber.StatusBadRequest, "role must be admin or branch_manager")
		}
		if body.BranchID != nil && *body.BranchID != "" {
			var branch models.Branch
			if err := database.DB.First(&branch, "branch_code = ?", *body.BranchID).Error; err != nil {
				return apperr.ErrBranchNotFound
			}
		}

		p := models.UserProfile{
			ID:       body.ID,
			Role:     body.Role,
			BranchID: body.BranchID,
		}
		if err := database.DB.Create(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.ErrProfileExists
			}
			return fiber.NewError(fiber.StatusInternalServerError, "could not create profile")
		}

		return c.Status(fiber.StatusCreated).JSON(profileResponse(&p))
	}
}

// PUT /api/profiles/:id (admin only, wired behind RequireRole)
func UpdateProfileHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var p models.UserProfile
		if err := database.DB.First(&p, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrProfileNotFound
			}
			return fiber.NewError(fiber.StatusInternalServerError, "could not load profile")
		}

		var body UpdateProfileRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		if body.Role != nil {
			if !validRole(*body.Role) {
				return fiber.NewError(fiber.StatusBadRequest, "role must be admin or branch_manager")
			}
			p.Role = *body.Role
		}
		if body.BranchID != nil {
			if *body.BranchID == "" {
				p.BranchID = nil
			} else {
				var branch models.Branch
				if err := database.DB.First(&branch, "branch_code = ?", *body.BranchID).Error; err != nil {
					return apperr.ErrBranchNotFound
				}
				p.BranchID = body.BranchID
			}
		}

		if err := database.DB.Save(&p).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not update profile")
		}

		return c.JSON(profileResponse(&p))
	}
}

// GET /api/profiles (admin only)
func ListProfilesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var profiles []models.UserProfile
		if err := database.DB.Order("created_at desc").Find(&profiles).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list profiles")
		}

		res := make([]ProfileResponse, 0, len(profiles))
		for i := range profiles {
			res = append(res, profileResponse(&profiles[i]))
		}
		return c.JSON(res)
	}
}
