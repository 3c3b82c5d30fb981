package ledger

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps wallets and transactions in process memory behind
// reader/writer locks: one for the wallet collection, one for the transaction
// log. Locks are never held across blocking calls. When a confirmation needs
// both, the transaction lock is taken before the wallet lock.
type MemoryStore struct {
	walletMu sync.RWMutex
	wallets  map[uuid.UUID]Wallet

	txMu sync.RWMutex
	txs  []Transaction

	entropy io.Reader
	fee     FeePolicy
}

// NewMemory creates an in-memory store with the default fee policy.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		wallets: make(map[uuid.UUID]Wallet),
		entropy: rand.Reader,
		fee:     DefaultFeePolicy,
	}
}

// NewMemoryWithFeePolicy creates an in-memory store with a custom fee policy.
func NewMemoryWithFeePolicy(fee FeePolicy) *MemoryStore {
	s := NewMemory()
	s.fee = fee
	return s
}

func (s *MemoryStore) CreateWallet(_ context.Context, currency Currency) (Wallet, error) {
	pub, priv, err := generateKeyPair(s.entropy)
	if err != nil {
		return Wallet{}, err
	}

	now := time.Now().UTC()
	wallet := Wallet{
		ID:         uuid.New(),
		Address:    DeriveAddress(pub),
		PublicKey:  pub,
		PrivateKey: priv,
		Currency:   currency,
		Balance:    0,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	s.walletMu.Lock()
	s.wallets[wallet.ID] = wallet
	s.walletMu.Unlock()

	return wallet, nil
}

func (s *MemoryStore) GetWallet(_ context.Context, id uuid.UUID) (Wallet, error) {
	s.walletMu.RLock()
	defer s.walletMu.RUnlock()
	wallet, ok := s.wallets[id]
	if !ok {
		return Wallet{}, fmt.Errorf("wallet %s: %w", id, ErrNotFound)
	}
	return wallet, nil
}

func (s *MemoryStore) ListWallets(_ context.Context) ([]Wallet, error) {
	s.walletMu.RLock()
	defer s.walletMu.RUnlock()
	wallets := make([]Wallet, 0, len(s.wallets))
	for _, w := range s.wallets {
		wallets = append(wallets, w)
	}
	return wallets, nil
}

func (s *MemoryStore) CreateTransaction(_ context.Context, from Wallet, toAddress string, amount float64) (Transaction, error) {
	if amount <= 0 {
		return Transaction{}, fmt.Errorf("amount must be positive: %w", ErrInvalidInput)
	}
	// Advisory check only: no funds are reserved until confirmation.
	if from.Balance < amount {
		return Transaction{}, fmt.Errorf("insufficient balance: %w", ErrInvalidInput)
	}

	fee := s.fee(amount)
	tx := Transaction{
		ID:          uuid.New(),
		FromAddress: from.Address,
		ToAddress:   toAddress,
		Amount:      amount,
		Currency:    from.Currency,
		Status:      StatusPending,
		Fee:         &fee,
		CreatedAt:   time.Now().UTC(),
	}

	s.txMu.Lock()
	s.txs = append(s.txs, tx)
	s.txMu.Unlock()

	return tx, nil
}

func (s *MemoryStore) UpdateTransactionStatus(_ context.Context, id uuid.UUID, status TransactionStatus) (Transaction, error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	idx := -1
	for i := range s.txs {
		if s.txs[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Transaction{}, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}

	s.txs[idx].Status = status
	tx := s.txs[idx]

	if status == StatusConfirmed {
		// Address, not wallet id, is the join key. Every wallet holding the
		// sender address is debited amount+fee.
		s.walletMu.Lock()
		now := time.Now().UTC()
		for wid, w := range s.wallets {
			if w.Address == tx.FromAddress {
				w.Balance -= tx.Amount + tx.FeeAmount()
				w.UpdatedAt = now
				s.wallets[wid] = w
			}
		}
		s.walletMu.Unlock()
	}

	return tx, nil
}

func (s *MemoryStore) UpdateWalletBalance(_ context.Context, id uuid.UUID, balance float64) (Wallet, error) {
	s.walletMu.Lock()
	defer s.walletMu.Unlock()
	wallet, ok := s.wallets[id]
	if !ok {
		return Wallet{}, fmt.Errorf("wallet %s: %w", id, ErrNotFound)
	}
	wallet.Balance = balance
	wallet.UpdatedAt = time.Now().UTC()
	s.wallets[id] = wallet
	return wallet, nil
}

func (s *MemoryStore) CreditWallet(_ context.Context, id uuid.UUID, amount float64) (Wallet, error) {
	s.walletMu.Lock()
	defer s.walletMu.Unlock()
	wallet, ok := s.wallets[id]
	if !ok {
		return Wallet{}, fmt.Errorf("wallet %s: %w", id, ErrNotFound)
	}
	wallet.Balance += amount
	wallet.UpdatedAt = time.Now().UTC()
	s.wallets[id] = wallet
	return wallet, nil
}

func (s *MemoryStore) DeleteWallet(_ context.Context, id uuid.UUID) error {
	s.walletMu.Lock()
	defer s.walletMu.Unlock()
	if _, ok := s.wallets[id]; !ok {
		return fmt.Errorf("wallet %s: %w", id, ErrNotFound)
	}
	delete(s.wallets, id)
	return nil
}

func (s *MemoryStore) TransactionHistory(_ context.Context, address string) ([]Transaction, error) {
	s.txMu.RLock()
	defer s.txMu.RUnlock()
	var history []Transaction
	for _, tx := range s.txs {
		if tx.FromAddress == address || tx.ToAddress == address {
			history = append(history, tx)
		}
	}
	return history, nil
}
