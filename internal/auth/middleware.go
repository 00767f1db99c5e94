package auth

import (
	"strings"

	"branchops-backend/internal/apperr"
	"branchops-backend/internal/config"
	"branchops-backend/internal/database"
	"branchops-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	CtxUserIDKey  = "user_id"
	CtxEmailKey   = "user_email"
	CtxTokenIDKey = "token_id"
	CtxClaimsKey  = "token_claims"
)

func JWTMiddleware(cfg *config.Config, revocations *RevocationStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing Authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization must be 'Bearer <token>'")
		}

		claims, err := ParseToken(cfg.JWTSecret, parts[1])
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}

		if revocations != nil && revocations.IsRevoked(c.Context(), claims.ID) {
			return apperr.ErrTokenRevoked
		}

		c.Locals(CtxUserIDKey, claims.UserID)
		c.Locals(CtxEmailKey, claims.Email)
		c.Locals(CtxTokenIDKey, claims.ID)
		c.Locals(CtxClaimsKey, claims)

		return c.Next()
	}
}

// RequireRole loads the caller's profile and rejects the request unless its
// role is allowed. Authorization is resolved from the database, not the
// token, so role changes apply immediately. A missing profile is a 403, not
// a 404: the profile endpoints are the only place absence is meaningful.
func RequireRole(allowedRoles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		profile, err := CurrentProfile(c)
		if err != nil {
			return fiber.NewError(fiber.StatusForbidden, "no profile for this user")
		}

		for _, r := range allowedRoles {
			if r == profile.Role {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "insufficient role for this operation")
	}
}

// CurrentUserID returns the authenticated user's ID from the request context.
func CurrentUserID(c *fiber.Ctx) (string, error) {
	id, ok := c.Locals(CtxUserIDKey).(string)
	if !ok || id == "" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "no authenticated user")
	}
	return id, nil
}

// CurrentProfile fetches the caller's profile row.
func CurrentProfile(c *fiber.Ctx) (*models.UserProfile, error) {
	userID, err := CurrentUserID(c)
	if err != nil {
		return nil, err
	}

	var profile models.UserProfile
	if err := database.DB.First(&profile, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}
