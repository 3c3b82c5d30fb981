package bandwidth

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/crypto-node/cryptonode/internal/ledger"
)

// Handler exposes bandwidth metrics and monitoring control endpoints.
type Handler struct {
	monitor *Monitor
}

// NewHandler constructs a bandwidth handler.
func NewHandler(monitor *Monitor) *Handler {
	return &Handler{monitor: monitor}
}

// Metrics returns the current bandwidth metrics snapshot.
func (h *Handler) Metrics(c *fiber.Ctx) error {
	return c.JSON(h.monitor.Snapshot())
}

// Rewards reports the derived lifetime total and the hourly projection at the
// current rate.
func (h *Handler) Rewards(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"total_rewards":            h.monitor.TotalRewards(),
		"estimated_hourly_rewards": h.monitor.EstimatedHourlyRewards(),
		"reward_rate":              h.monitor.RewardRate(),
		"min_bandwidth":            h.monitor.MinBandwidth(),
	})
}

type updateRateRequest struct {
	Rate float64 `json:"rate"`
}

// UpdateRewardRate sets the per-MiB reward rate.
func (h *Handler) UpdateRewardRate(c *fiber.Ctx) error {
	var req updateRateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.monitor.UpdateRewardRate(req.Rate); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(fiber.Map{"reward_rate": h.monitor.RewardRate()})
}

type updateMinBandwidthRequest struct {
	Bytes uint64 `json:"bytes"`
}

// UpdateMinBandwidth sets the minimum sample that earns a reward.
func (h *Handler) UpdateMinBandwidth(c *fiber.Ctx) error {
	var req updateMinBandwidthRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.monitor.UpdateMinBandwidth(req.Bytes); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(fiber.Map{"min_bandwidth": h.monitor.MinBandwidth()})
}

// StartMonitoring begins the measurement loop for a wallet.
func (h *Handler) StartMonitoring(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("walletId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid wallet id")
	}
	// The loop must outlive the request, so it detaches from the request context.
	if err := h.monitor.StartMonitoring(context.Background(), id); err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"wallet_id": id, "monitoring": true})
}

// StopMonitoring cancels the measurement loop for a wallet.
func (h *Handler) StopMonitoring(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("walletId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid wallet id")
	}
	if err := h.monitor.StopMonitoring(id); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"wallet_id": id, "monitoring": false})
}
