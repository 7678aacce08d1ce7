package main

import (
	"fmt"
	"log"
	"os"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/FelipeCastroBR/TeleGate/app/controllers"
	"github.com/FelipeCastroBR/TeleGate/app/models"
	"github.com/FelipeCastroBR/TeleGate/app/repository"
	"github.com/FelipeCastroBR/TeleGate/internal/pkg/cache"
	"github.com/FelipeCastroBR/TeleGate/internal/pkg/database"
	"github.com/FelipeCastroBR/TeleGate/internal/pkg/env"
	"github.com/FelipeCastroBR/TeleGate/internal/pkg/mail"
	"github.com/FelipeCastroBR/TeleGate/internal/pkg/notifier"
	"github.com/FelipeCastroBR/TeleGate/internal/pkg/payments"
	"github.com/FelipeCastroBR/TeleGate/internal/pkg/provisioner"
	"github.com/FelipeCastroBR/TeleGate/internal/pkg/router"
	"github.com/FelipeCastroBR/TeleGate/internal/pkg/sweeper"
	"github.com/FelipeCastroBR/TeleGate/internal/pkg/telegram"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	db := database.GetDB()
	if err := models.LoadSettings(db); err != nil {
		log.Printf("failed to load settings, using defaults: %v", err)
	}
	repository.InitializeFactory(db)
	repos := repository.GetGlobalRepositories()

	tg, err := telegram.NewClientFromEnv()
	if err != nil {
		log.Fatalf("telegram client setup failed: %v", err)
	}
	mailer := mail.NewSMTPMailer()

	links := provisioner.New(tg)
	dispatcher := notifier.NewDispatcher(repos.Notification, mailer, tg)
	paymentService := payments.NewService(repos.Payment, repos.Invite, repos.Activity, links, dispatcher)

	settings := models.GetAppSettings()
	sweep := sweeper.New(repos.Payment, repos.Activity, repos.Cron, paymentService, settings.GetSweepBatchSize())
	manager := sweeper.InitManager(sweep, repos.Member, dispatcher, repos.Cron)
	manager.Start()

	controllers.SetupServices(paymentService, manager)

	// Find the project root for the OpenAPI document
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/telegate to project root
		"../../../", // Fallback
	}
	basePath := ""
	for _, path := range basePaths {
		if _, err := os.Stat(path + "public/docs"); !os.IsNotExist(err) {
			basePath = path
			break
		}
	}
	if basePath == "" {
		panic("Could not find project root directory")
	}

	// init fiber app
	app := fiber.New(fiber.Config{
		AppName: "TeleGate",
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "test"),
		},
	}), monitor.New())

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app)

	return app
}
