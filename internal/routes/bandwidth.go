package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/crypto-node/cryptonode/internal/bandwidth"
)

// RegisterBandwidthRoutes wires metrics and monitoring-control endpoints.
func RegisterBandwidthRoutes(r fiber.Router, h *bandwidth.Handler) {
	r.Get("/bandwidth/metrics", h.Metrics)
	r.Get("/bandwidth/rewards", h.Rewards)
	r.Put("/bandwidth/reward-rate", h.UpdateRewardRate)
	r.Put("/bandwidth/min-bandwidth", h.UpdateMinBandwidth)
	r.Post("/bandwidth/monitor/:walletId", h.StartMonitoring)
	r.Delete("/bandwidth/monitor/:walletId", h.StopMonitoring)
}
