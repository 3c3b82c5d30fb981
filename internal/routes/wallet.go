package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/crypto-node/cryptonode/internal/ledger"
)

// RegisterWalletRoutes wires wallet-related endpoints.
func RegisterWalletRoutes(r fiber.Router, h *ledger.Handler) {
	r.Post("/wallets", h.CreateWallet)
	r.Get("/wallets", h.ListWallets)
	r.Get("/wallets/:walletId", h.GetWallet)
	r.Delete("/wallets/:walletId", h.DeleteWallet)
}
