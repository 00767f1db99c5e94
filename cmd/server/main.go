package main

import (
	"log"
	"strings"

	"branchops-backend/internal/admin"
	"branchops-backend/internal/apperr"
	"branchops-backend/internal/audit"
	"branchops-backend/internal/auth"
	"branchops-backend/internal/cache"
	"branchops-backend/internal/config"
	"branchops-backend/internal/dashboard"
	"branchops-backend/internal/database"
	"branchops-backend/internal/employee"
	"branchops-backend/internal/inventory"
	"branchops-backend/internal/models"
	"branchops-backend/internal/profile"
	"branchops-backend/internal/sales"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	cfg := config.Load()
	database.Init(cfg)

	revocations := auth.NewRevocationStore(cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB))

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(apperr.ErrorResponse{Error: e.Message})
			}
			mapped := apperr.FromError(err)
			if mapped.Code == "INTERNAL_ERROR" {
				log.Println("unexpected error:", err)
			}
			return c.Status(mapped.StatusCode).JSON(mapped.ToResponse())
		},
	})

	app.Use(recover.New())
	app.Use(logger.New())

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register", auth.RegisterHandler(cfg))
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg, revocations))

	protected.Get("/auth/session", auth.SessionHandler())
	protected.Post("/auth/logout", auth.LogoutHandler(revocations))

	// Profiles: reads and self-creation are open to any authenticated user so
	// the client-side get-or-create can run before a role exists
	protected.Get("/profiles/:id", profile.GetProfileHandler())
	protected.Post("/profiles", profile.CreateProfileHandler())

	// Admin routes
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleAdmin))

	adminRoutes.Post("/branches", admin.CreateBranchHandler())
	adminRoutes.Get("/branches/:id", admin.GetBranchHandler())
	adminRoutes.Put("/branches/:id", admin.UpdateBranchHandler())
	adminRoutes.Delete("/branches/:id", admin.DeleteBranchHandler())
	adminRoutes.Post("/branches/:id/manager", admin.CreateBranchManagerHandler())

	adminRoutes.Get("/profiles", profile.ListProfilesHandler())
	adminRoutes.Put("/profiles/:id", profile.UpdateProfileHandler())

	adminRoutes.Get("/audit-logs", audit.ListAuditLogsHandler())

	// Shared (authenticated) routes, branch-scoped by the caller's profile
	protected.Get("/branches", admin.ListBranchesHandler())

	protected.Get("/employees", employee.ListEmployeesHandler())
	protected.Post("/employees", employee.CreateEmployeeHandler())
	protected.Put("/employees/:id", employee.UpdateEmployeeHandler())
	protected.Delete("/employees/:id", employee.DeleteEmployeeHandler())

	protected.Get("/inventory", inventory.ListItemsHandler())
	protected.Post("/inventory", inventory.CreateItemHandler())
	protected.Put("/inventory/:id", inventory.UpdateItemHandler())
	protected.Delete("/inventory/:id", inventory.DeleteItemHandler())

	protected.Get("/sales", sales.ListSalesHandler())
	protected.Post("/sales", sales.CreateSaleHandler())
	protected.Get("/sales/summary", sales.SummaryHandler())

	protected.Get("/dashboard/summary", dashboard.SummaryHandler())

	log.Println("server listening on port", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}
