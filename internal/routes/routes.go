package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/crypto-node/cryptonode/internal/bandwidth"
	"github.com/crypto-node/cryptonode/internal/config"
	"github.com/crypto-node/cryptonode/internal/ledger"
	"github.com/crypto-node/cryptonode/internal/middleware"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg     config.Config
	Store   ledger.Store
	Monitor *bandwidth.Monitor
	Cache   *redis.Client
	Logger  *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	RegisterHealthRoutes(app, d)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	ledgerHandler := ledger.NewHandler(d.Store)
	bandwidthHandler := bandwidth.NewHandler(d.Monitor)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals(middleware.RequestIDHeader).(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Replay protection only applies to the mutating ledger endpoints.
	if d.Cache != nil {
		api.Use("/wallets", middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
		api.Use("/transactions", middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterWalletRoutes(api, ledgerHandler)
	RegisterTransactionRoutes(api, ledgerHandler)
	RegisterBandwidthRoutes(api, bandwidthHandler)

	return nil
}
