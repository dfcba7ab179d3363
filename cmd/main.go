package main

import (
	"log"

	"github.com/faruque-tulsi/license-server/internal/config"
	"github.com/faruque-tulsi/license-server/internal/database"
	"github.com/faruque-tulsi/license-server/internal/handler"
	"github.com/faruque-tulsi/license-server/internal/middleware"
	"github.com/faruque-tulsi/license-server/internal/service"
	"github.com/faruque-tulsi/license-server/internal/util"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	cfg := config.Load()

	database.InitDB(cfg.DBPath)
	util.InitJWT(cfg.JWTSecret)

	remote := service.NewRemoteClient(cfg.RemoteURL, cfg.RemoteAdminToken, cfg.RemoteTimeout, cfg.RemoteFailClosed)

	mirror, err := service.NewSheetMirror(cfg.SheetSyncEnabled, cfg.SheetCredentials, cfg.SheetID, cfg.SheetName)
	if err != nil {
		log.Fatal("failed to initialize sheet mirror: ", err)
	}

	handler.Init(remote, mirror)

	if cfg.SyncEnabled() {
		log.Println("remote sync enabled, starting background pusher")
		syncer := service.NewSyncer(remote, mirror)
		go syncer.RunPeriodic(cfg.SyncStartDelay, cfg.SyncInterval)
	} else {
		log.Println("remote sync not configured, running local-only")
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New())

	// Client routes
	app.Post("/activate", handler.HandleActivate)
	app.Post("/validate", handler.HandleValidate)
	app.Get("/info/:key", handler.HandleLicenseInfo)
	app.Get("/health", handler.HandleHealth)

	// Admin routes
	admin := app.Group("/admin")
	admin.Post("/login", handler.HandleAdminLogin)

	protected := admin.Group("/", middleware.Auth())
	protected.Post("/generate", handler.HandleGenerateLicense)
	protected.Get("/licenses", handler.HandleListLicenses)
	protected.Get("/licenses/:key", handler.HandleGetLicense)
	protected.Delete("/licenses/:key", handler.HandleDeleteLicense)
	protected.Post("/block", handler.HandleBlockLicense)
	protected.Post("/unblock", handler.HandleUnblockLicense)
	protected.Post("/extend", handler.HandleExtendLicense)
	protected.Get("/activations", handler.HandleListActivations)
	protected.Delete("/activation/:id", handler.HandleDeactivateDevice)
	protected.Get("/stats", handler.HandleStats)
	protected.Get("/logs", handler.HandleValidationLogs)
	protected.Post("/export-sheet", handler.HandleExportSheet)

	log.Fatal(app.Listen(":" + cfg.Port))
}
