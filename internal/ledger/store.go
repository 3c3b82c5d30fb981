package ledger

import (
	"context"

	"github.com/google/uuid"
)

// FeePolicy computes the fee attached to a transaction at creation time as a
// deterministic function of the amount. Production deployments replace the
// fixed example policy with a network-conditions-aware one.
type FeePolicy func(amount float64) float64

// FixedFee returns a policy charging the same fee regardless of amount.
func FixedFee(fee float64) FeePolicy {
	return func(float64) float64 { return fee }
}

// DefaultFeePolicy is the example policy used when none is configured.
var DefaultFeePolicy = FixedFee(0.001)

// Store is the combined wallet and transaction record store. It exclusively
// owns both collections; no balance is mutated except through its operations.
//
// CreateTransaction's balance check is advisory only: creating a transaction
// reserves no funds, and the sender balance is untouched until the transaction
// is confirmed. Confirming is not idempotent — confirming the same transaction
// twice debits the sender twice.
type Store interface {
	// CreateWallet generates a key pair, derives the wallet address from the
	// public key and stores a zero-balance wallet. Fails only when key
	// generation fails (ErrCryptoOperation).
	CreateWallet(ctx context.Context, currency Currency) (Wallet, error)

	// GetWallet returns the wallet by id, or ErrNotFound.
	GetWallet(ctx context.Context, id uuid.UUID) (Wallet, error)

	// ListWallets returns a snapshot of all wallets. Order is unspecified.
	ListWallets(ctx context.Context) ([]Wallet, error)

	// CreateTransaction appends a Pending transaction from the given wallet.
	// Fails with ErrInvalidInput when amount <= 0 or the sender balance is
	// below the amount at creation time.
	CreateTransaction(ctx context.Context, from Wallet, toAddress string, amount float64) (Transaction, error)

	// UpdateTransactionStatus sets the status of a transaction, or returns
	// ErrNotFound. Setting StatusConfirmed debits amount+fee from every wallet
	// whose address matches the transaction's sender address. StatusFailed has
	// no balance effect.
	UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status TransactionStatus) (Transaction, error)

	// UpdateWalletBalance unconditionally sets a wallet's balance, or returns
	// ErrNotFound. Non-negativity is the caller's responsibility.
	UpdateWalletBalance(ctx context.Context, id uuid.UUID, balance float64) (Wallet, error)

	// CreditWallet atomically adds amount to a wallet's balance, or returns
	// ErrNotFound. All recurring reward application goes through this
	// operation so that concurrent balance mutators cannot lose updates.
	CreditWallet(ctx context.Context, id uuid.UUID, amount float64) (Wallet, error)

	// DeleteWallet removes a wallet, or returns ErrNotFound. Transactions
	// referencing the wallet's address remain; history is immutable.
	DeleteWallet(ctx context.Context, id uuid.UUID) error

	// TransactionHistory returns every transaction where the address appears
	// as sender or recipient, in insertion order.
	TransactionHistory(ctx context.Context, address string) ([]Transaction, error)
}
