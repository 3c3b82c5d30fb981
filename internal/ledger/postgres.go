package ledger

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists wallets and transactions in PostgreSQL. Confirmation
// debits run inside a single database transaction with the affected wallet
// rows locked, so a concurrent reward credit cannot be lost.
//
// Expected schema:
//
//	CREATE TABLE wallets (
//	    id          UUID PRIMARY KEY,
//	    address     TEXT NOT NULL,
//	    public_key  BYTEA NOT NULL,
//	    private_key BYTEA NOT NULL,
//	    currency    TEXT NOT NULL,
//	    balance     DOUBLE PRECISION NOT NULL DEFAULT 0,
//	    created_at  TIMESTAMPTZ NOT NULL,
//	    updated_at  TIMESTAMPTZ NOT NULL
//	);
//	CREATE TABLE transactions (
//	    seq          BIGSERIAL,
//	    id           UUID PRIMARY KEY,
//	    from_address TEXT NOT NULL,
//	    to_address   TEXT NOT NULL,
//	    amount       DOUBLE PRECISION NOT NULL,
//	    currency     TEXT NOT NULL,
//	    status       TEXT NOT NULL,
//	    fee          DOUBLE PRECISION,
//	    created_at   TIMESTAMPTZ NOT NULL
//	);
type PostgresStore struct {
	db  *pgxpool.Pool
	fee FeePolicy
}

// NewPostgres constructs a Postgres-backed store with the default fee policy.
func NewPostgres(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db, fee: DefaultFeePolicy}
}

const walletColumns = `id, address, public_key, private_key, currency, balance, created_at, updated_at`

func scanWallet(row pgx.Row) (Wallet, error) {
	var w Wallet
	if err := row.Scan(&w.ID, &w.Address, &w.PublicKey, &w.PrivateKey, &w.Currency, &w.Balance, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return Wallet{}, err
	}
	w.CreatedAt = w.CreatedAt.UTC()
	w.UpdatedAt = w.UpdatedAt.UTC()
	return w, nil
}

func (s *PostgresStore) CreateWallet(ctx context.Context, currency Currency) (Wallet, error) {
	pub, priv, err := generateKeyPair(rand.Reader)
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

	_, err = s.db.Exec(ctx, `INSERT INTO wallets (`+walletColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		wallet.ID, wallet.Address, wallet.PublicKey, wallet.PrivateKey,
		wallet.Currency, wallet.Balance, wallet.CreatedAt, wallet.UpdatedAt)
	if err != nil {
		return Wallet{}, fmt.Errorf("insert wallet: %w", err)
	}
	return wallet, nil
}

func (s *PostgresStore) GetWallet(ctx context.Context, id uuid.UUID) (Wallet, error) {
	row := s.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1`, id)
	wallet, err := scanWallet(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, fmt.Errorf("wallet %s: %w", id, ErrNotFound)
		}
		return Wallet{}, err
	}
	return wallet, nil
}

func (s *PostgresStore) ListWallets(ctx context.Context) ([]Wallet, error) {
	rows, err := s.db.Query(ctx, `SELECT `+walletColumns+` FROM wallets`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var wallets []Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

func (s *PostgresStore) CreateTransaction(ctx context.Context, from Wallet, toAddress string, amount float64) (Transaction, error) {
	if amount <= 0 {
		return Transaction{}, fmt.Errorf("amount must be positive: %w", ErrInvalidInput)
	}
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

	_, err := s.db.Exec(ctx, `INSERT INTO transactions (id, from_address, to_address, amount, currency, status, fee, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		tx.ID, tx.FromAddress, tx.ToAddress, tx.Amount, tx.Currency, tx.Status, tx.Fee, tx.CreatedAt)
	if err != nil {
		return Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return tx, nil
}

func (s *PostgresStore) UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status TransactionStatus) (Transaction, error) {
	dbTx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Transaction{}, err
	}
	defer dbTx.Rollback(ctx) // nolint:errcheck

	row := dbTx.QueryRow(ctx, `UPDATE transactions SET status = $2 WHERE id = $1
        RETURNING id, from_address, to_address, amount, currency, status, fee, created_at`, id, status)
	var tx Transaction
	if err := row.Scan(&tx.ID, &tx.FromAddress, &tx.ToAddress, &tx.Amount, &tx.Currency, &tx.Status, &tx.Fee, &tx.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
		}
		return Transaction{}, err
	}
	tx.CreatedAt = tx.CreatedAt.UTC()

	if status == StatusConfirmed {
		_, err := dbTx.Exec(ctx, `UPDATE wallets SET balance = balance - $2, updated_at = $3
            WHERE address = $1`, tx.FromAddress, tx.Amount+tx.FeeAmount(), time.Now().UTC())
		if err != nil {
			return Transaction{}, fmt.Errorf("debit sender: %w", err)
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

func (s *PostgresStore) UpdateWalletBalance(ctx context.Context, id uuid.UUID, balance float64) (Wallet, error) {
	row := s.db.QueryRow(ctx, `UPDATE wallets SET balance = $2, updated_at = $3 WHERE id = $1
        RETURNING `+walletColumns, id, balance, time.Now().UTC())
	wallet, err := scanWallet(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, fmt.Errorf("wallet %s: %w", id, ErrNotFound)
		}
		return Wallet{}, err
	}
	return wallet, nil
}

func (s *PostgresStore) CreditWallet(ctx context.Context, id uuid.UUID, amount float64) (Wallet, error) {
	row := s.db.QueryRow(ctx, `UPDATE wallets SET balance = balance + $2, updated_at = $3 WHERE id = $1
        RETURNING `+walletColumns, id, amount, time.Now().UTC())
	wallet, err := scanWallet(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, fmt.Errorf("wallet %s: %w", id, ErrNotFound)
		}
		return Wallet{}, err
	}
	return wallet, nil
}

func (s *PostgresStore) DeleteWallet(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM wallets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) TransactionHistory(ctx context.Context, address string) ([]Transaction, error) {
	rows, err := s.db.Query(ctx, `SELECT id, from_address, to_address, amount, currency, status, fee, created_at
        FROM transactions WHERE from_address = $1 OR to_address = $1 ORDER BY seq`, address)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []Transaction
	for rows.Next() {
		var tx Transaction
		if err := rows.Scan(&tx.ID, &tx.FromAddress, &tx.ToAddress, &tx.Amount, &tx.Currency, &tx.Status, &tx.Fee, &tx.CreatedAt); err != nil {
			return nil, err
		}
		tx.CreatedAt = tx.CreatedAt.UTC()
		history = append(history, tx)
	}
	return history, rows.Err()
}
