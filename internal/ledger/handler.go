package ledger

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handler exposes wallet and transaction endpoints.
type Handler struct {
	store Store
}

// NewHandler constructs a ledger handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type createWalletRequest struct {
	Currency string `json:"currency"`
}

// CreateWallet provisions a wallet for the requested currency.
func (h *Handler) CreateWallet(c *fiber.Ctx) error {
	var req createWalletRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	currency := Currency(req.Currency)
	if req.Currency == "" {
		currency = CurrencyBitcoin
	}
	if !currency.Valid() {
		return fiber.NewError(http.StatusBadRequest, "unsupported currency")
	}

	wallet, err := h.store.CreateWallet(c.UserContext(), currency)
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.Status(http.StatusCreated).JSON(wallet)
}

// ListWallets returns a snapshot of all wallets.
func (h *Handler) ListWallets(c *fiber.Ctx) error {
	wallets, err := h.store.ListWallets(c.UserContext())
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.JSON(fiber.Map{"wallets": wallets})
}

// GetWallet returns a single wallet by id.
func (h *Handler) GetWallet(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("walletId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid wallet id")
	}

	wallet, err := h.store.GetWallet(c.UserContext(), id)
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.JSON(wallet)
}

// DeleteWallet removes a wallet. Its transaction history is retained.
func (h *Handler) DeleteWallet(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("walletId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid wallet id")
	}

	if err := h.store.DeleteWallet(c.UserContext(), id); err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.SendStatus(http.StatusNoContent)
}

type createTransactionRequest struct {
	FromWalletID string  `json:"from_wallet_id"`
	ToAddress    string  `json:"to_address"`
	Amount       float64 `json:"amount"`
}

// CreateTransaction records a pending transfer from a wallet to an address.
func (h *Handler) CreateTransaction(c *fiber.Ctx) error {
	var req createTransactionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	fromID, err := uuid.Parse(req.FromWalletID)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid from_wallet_id")
	}

	from, err := h.store.GetWallet(c.UserContext(), fromID)
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}

	tx, err := h.store.CreateTransaction(c.UserContext(), from, req.ToAddress, req.Amount)
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.Status(http.StatusCreated).JSON(tx)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateTransactionStatus transitions a transaction's lifecycle status.
func (h *Handler) UpdateTransactionStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("txId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid transaction id")
	}

	var req updateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	status := TransactionStatus(req.Status)
	if !status.Valid() {
		return fiber.NewError(http.StatusBadRequest, "unknown status")
	}

	tx, err := h.store.UpdateTransactionStatus(c.UserContext(), id, status)
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.JSON(tx)
}

// TransactionHistory lists all transactions touching an address.
func (h *Handler) TransactionHistory(c *fiber.Ctx) error {
	address := c.Params("address")
	history, err := h.store.TransactionHistory(c.UserContext(), address)
	if err != nil {
		return fiber.NewError(statusFor(err), err.Error())
	}
	return c.JSON(fiber.Map{"transactions": history})
}
