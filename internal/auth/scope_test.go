package auth

import (
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"branchops-backend/internal/apperr"
	"branchops-backend/internal/database"
	"branchops-backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupScopeDB(t *testing.T) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Branch{}, &models.UserProfile{}))

	prev := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = prev })
}

// scopeTestApp routes a write through BranchForWrite with the caller already
// authenticated as userID. The branch code travels as ?branch=, standing in
// for the body field real handlers pass.
func scopeTestApp(userID string) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(apperr.ErrorResponse{Error: e.Message})
			}
			mapped := apperr.FromError(err)
			return c.Status(mapped.StatusCode).JSON(mapped.ToResponse())
		},
	})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(CtxUserIDKey, userID)
		return c.Next()
	})
	app.Post("/write", func(c *fiber.Ctx) error {
		code, err := BranchForWrite(c, c.Query("branch"))
		if err != nil {
			return err
		}
		return c.SendString(code)
	})
	return app
}

func TestBranchForWrite_AdminExistingBranch(t *testing.T) {
	setupScopeDB(t)
	require.NoError(t, database.DB.Create(&models.Branch{Name: "Downtown", BranchCode: "NYC01"}).Error)
	require.NoError(t, database.DB.Create(&models.UserProfile{ID: "u-admin", Role: models.RoleAdmin}).Error)

	app := scopeTestApp("u-admin")
	resp, err := app.Test(httptest.NewRequest("POST", "/write?branch=NYC01", nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "NYC01", string(body))
}

func TestBranchForWrite_AdminUnknownBranchRejected(t *testing.T) {
	setupScopeDB(t)
	require.NoError(t, database.DB.Create(&models.Branch{Name: "Downtown", BranchCode: "NYC01"}).Error)
	require.NoError(t, database.DB.Create(&models.UserProfile{ID: "u-admin", Role: models.RoleAdmin}).Error)

	app := scopeTestApp("u-admin")
	resp, err := app.Test(httptest.NewRequest("POST", "/write?branch=GHOST1", nil))
	require.NoError(t, err)

	// a write must never be filed under a branch that does not exist
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "BRANCH_NOT_FOUND")
}

func TestBranchForWrite_AdminWithoutBranchRejected(t *testing.T) {
	setupScopeDB(t)
	require.NoError(t, database.DB.Create(&models.UserProfile{ID: "u-admin", Role: models.RoleAdmin}).Error)

	app := scopeTestApp("u-admin")
	resp, err := app.Test(httptest.NewRequest("POST", "/write", nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestBranchForWrite_ManagerPinnedToOwnBranch(t *testing.T) {
	setupScopeDB(t)
	nyc := "NYC01"
	require.NoError(t, database.DB.Create(&models.Branch{Name: "Downtown", BranchCode: nyc}).Error)
	require.NoError(t, database.DB.Create(&models.UserProfile{
		ID: "u-mgr", Role: models.RoleBranchManager, BranchID: &nyc,
	}).Error)

	app := scopeTestApp("u-mgr")

	// the manager's own branch wins, whatever the body claims
	resp, err := app.Test(httptest.NewRequest("POST", "/write?branch=LA099", nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "NYC01", string(body))
}
