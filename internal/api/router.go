package api

import (
	"payme-bot/internal/api/handlers"
	"payme-bot/pkg/config"
	"payme-bot/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

func SetupRouter(
	messageHandler *handlers.MessageHandler,
	triggerHandler *handlers.TriggerHandler,
	taxonomyHandler *handlers.TaxonomyHandler,
	userHandler *handlers.UserHandler,
	accessCfg config.AccessConfig,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept," + middleware.ChatUserHeader,
	}))
	app.Use(logger.New())

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// API routes
	api := app.Group("/api/v1")
	api.Use(middleware.AllowList(accessCfg, appLogger))

	api.Post("/messages", messageHandler.HandleMessage)
	api.Post("/expenses/:id/triggers", triggerHandler.ApplyTrigger)

	taxonomy := api.Group("/taxonomy")
	taxonomy.Get("/categories", taxonomyHandler.ListCategories)
	taxonomy.Get("/categories/:id/subcategories", taxonomyHandler.ListSubcategories)

	// Admin routes
	admin := api.Group("/admin", middleware.AdminOnly())
	admin.Get("/users", userHandler.ListUsers)
	admin.Put("/users/:chat_id/active", userHandler.SetActive)

	return app
}
