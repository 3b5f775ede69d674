package http

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/shoutzor/backend/internal/config"
	"github.com/shoutzor/backend/internal/core/ports"
	"github.com/shoutzor/backend/internal/core/services"
	"github.com/shoutzor/backend/internal/infrastructure/logger"
	"github.com/shoutzor/backend/internal/transport/http/handlers"
	httpmw "github.com/shoutzor/backend/internal/transport/http/middleware"
)

type RouterConfig struct {
	Runtime  ports.RuntimeConfig
	Workflow *services.InstallWorkflow
	Provider handlers.AppProvider
	Auth     config.AuthConfig
	Logger   *logger.Logger
}

func SetupRoutes(app *fiber.App, cfg RouterConfig) {
	installHandler := handlers.NewInstallHandler(cfg.Workflow, cfg.Logger)
	uploadHandler := handlers.NewUploadHandler(cfg.Provider, cfg.Logger)
	requestHandler := handlers.NewRequestHandler(cfg.Provider, cfg.Logger)
	taskHandler := handlers.NewTaskHandler(cfg.Provider, cfg.Logger)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"installed": cfg.Runtime.GetBool("shoutzor.installed"),
		})
	})

	// Installer routes, closed once installation has finished
	install := app.Group("/api/install", httpmw.NotInstalled(cfg.Runtime))
	install.Get("/steps", installHandler.GetSteps)
	install.Get("/db-fields", installHandler.GetDBFields)
	install.Post("/sql", installHandler.ConfigureSQL)
	install.Post("/steps/:slug", installHandler.RunStep)

	// Install progress stream
	app.Use("/ws", httpmw.NotInstalled(cfg.Runtime), func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws/install", websocket.New(installHandler.Stream))

	// API v1 routes
	api := app.Group("/api/v1", httpmw.Installed(cfg.Runtime), httpmw.AdminAuth(cfg.Auth))

	uploads := api.Group("/uploads")
	uploads.Post("/", uploadHandler.Upload)
	uploads.Get("/:id", uploadHandler.GetUpload)

	requests := api.Group("/requests")
	requests.Post("/", requestHandler.CreateRequest)
	requests.Get("/", requestHandler.GetRequests)
	requests.Post("/next", requestHandler.NextRequest)
	requests.Post("/:id/played", requestHandler.MarkPlayed)

	tasks := api.Group("/tasks")
	tasks.Get("/:id", taskHandler.GetTaskStatus)
}
