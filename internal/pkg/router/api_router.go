package router

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	redisstorage "github.com/gofiber/storage/redis"

	apiv1 "github.com/FelipeCastroBR/TeleGate/internal/api/v1"
	"github.com/FelipeCastroBR/TeleGate/internal/pkg/cache"
	"github.com/FelipeCastroBR/TeleGate/internal/pkg/env"
	"github.com/FelipeCastroBR/TeleGate/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        60,
		Expiration: 1 * time.Minute,
		Storage:    newLimiterStorage(),
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "TeleGate API",
		})
	})

	// API v1 routes
	v1 := api.Group("/v1")
	apiServer := apiv1.NewAPIServer()

	v1.Get("/ping", apiServer.GetPing)
	v1.Get("/plans", apiServer.GetPlans)
	v1.Get("/payments/:id", apiServer.GetPayment)
	v1.Patch("/payments/:id", apiServer.PatchPayment)

	cron := v1.Group("/cron", middleware.CronAuthMiddleware())
	cron.Post("/process-approved-payments", apiServer.PostProcessApprovedPayments)
	cron.Get("/process-approved-payments", apiServer.GetProcessApprovedPayments)
}

// newLimiterStorage backs the rate limiter with Redis so limits hold across
// instances. Uses database 1, the cache itself uses 0.
func newLimiterStorage() *redisstorage.Storage {
	cacheClient := cache.GetClient()
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if cacheClient != nil {
		addr := cacheClient.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := cacheClient.Options().Password; p != "" {
			password = p
		}
	}

	return redisstorage.New(redisstorage.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1,
		Reset:    false,
	})
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
