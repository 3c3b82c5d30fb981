package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/crypto-node/cryptonode/internal/ledger"
)

// RegisterTransactionRoutes wires transaction endpoints.
func RegisterTransactionRoutes(r fiber.Router, h *ledger.Handler) {
	r.Post("/transactions", h.CreateTransaction)
	r.Patch("/transactions/:txId/status", h.UpdateTransactionStatus)
	r.Get("/addresses/:address/transactions", h.TransactionHistory)
}
