package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Currency identifies the asset a wallet holds. The set is closed but new
// currencies can be added without touching the store.
type Currency string

const (
	CurrencyBitcoin  Currency = "BTC"
	CurrencyEthereum Currency = "ETH"
)

// Valid reports whether the currency is one of the supported kinds.
func (c Currency) Valid() bool {
	switch c {
	case CurrencyBitcoin, CurrencyEthereum:
		return true
	default:
		return false
	}
}

// TransactionStatus is the lifecycle state of a transaction. Pending is the
// initial state; Confirmed and Failed are terminal.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusConfirmed TransactionStatus = "confirmed"
	StatusFailed    TransactionStatus = "failed"
)

// Valid reports whether the status is a known lifecycle state.
func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusFailed:
		return true
	default:
		return false
	}
}

// Wallet is an addressable balance-holding identity with an associated key
// pair. The private key never leaves the process through serialization.
type Wallet struct {
	ID         uuid.UUID `json:"id"`
	Address    string    `json:"address"`
	PublicKey  []byte    `json:"public_key"`
	PrivateKey []byte    `json:"-"`
	Currency   Currency  `json:"currency"`
	Balance    float64   `json:"balance"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Transaction is an append-only transfer record between two addresses. Only
// the status field changes after creation.
type Transaction struct {
	ID          uuid.UUID         `json:"id"`
	FromAddress string            `json:"from_address"`
	ToAddress   string            `json:"to_address"`
	Amount      float64           `json:"amount"`
	Currency    Currency          `json:"currency"`
	Status      TransactionStatus `json:"status"`
	Fee         *float64          `json:"fee,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// FeeAmount returns the transaction fee, treating an absent fee as zero.
func (t Transaction) FeeAmount() float64 {
	if t.Fee == nil {
		return 0
	}
	return *t.Fee
}
