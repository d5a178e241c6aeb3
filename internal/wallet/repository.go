package wallet

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be positive")
)

const walletColumns = "id, user_id, available_cents, locked_cents, currency, created_at, updated_at"

type PostgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetOrCreateWallet(ctx context.Context, userID int) (*Wallet, error) {
	w := &Wallet{}
	err := r.db.GetContext(ctx, w,
		`SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, userID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	err = r.db.QueryRowxContext(ctx,
		`INSERT INTO wallets (user_id)
		 VALUES ($1)
		 RETURNING `+walletColumns,
		userID,
	).StructScan(w)

	if err != nil {
		return nil, err
	}

	return w, nil
}

// GetOrCreateForUpdate locks the user's wallet row for the duration of the
// transaction, creating a zero-balance wallet if none exists. Every fund
// movement goes through this lock so concurrent mutations of the same
// wallet serialize.
func GetOrCreateForUpdate(ctx context.Context, tx *sqlx.Tx, userID int) (*Wallet, error) {
	var w Wallet
	err := tx.QueryRowxContext(ctx,
		`SELECT `+walletColumns+`
		 FROM wallets
		 WHERE user_id = $1
		 FOR UPDATE`,
		userID,
	).StructScan(&w)
	if err == nil {
		return &w, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	err = tx.QueryRowxContext(ctx,
		`INSERT INTO wallets (user_id)
		 VALUES ($1)
		 RETURNING `+walletColumns,
		userID,
	).StructScan(&w)
	if err != nil {
		return nil, err
	}

	return &w, nil
}

// UpdateBalances writes both balances of a locked wallet row. Callers must
// hold the row lock from GetOrCreateForUpdate and must not pass negative
// balances; the table's CHECK constraints are the backstop.
func UpdateBalances(ctx context.Context, tx *sqlx.Tx, walletID int, availableCents, lockedCents int64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE wallets
		 SET available_cents = $1, locked_cents = $2, updated_at = NOW()
		 WHERE id = $3`,
		availableCents, lockedCents, walletID,
	)
	return err
}

// AppendTransaction adds an immutable audit row. referenceID links the row
// to the session that caused it, nil for deposits and withdrawals.
func AppendTransaction(ctx context.Context, tx *sqlx.Tx, walletID int, amountCents int64, txType, description string, referenceID *int) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO wallet_transactions (wallet_id, amount_cents, type, description, reference_id)
		 VALUES ($1, $2, $3, $4, $5)`,
		walletID, amountCents, txType, description, referenceID,
	)
	return err
}

func (r *PostgresRepository) Deposit(ctx context.Context, userID int, amountCents int64, description string) (*Wallet, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	w, err := GetOrCreateForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	w.AvailableCents += amountCents
	if err := UpdateBalances(ctx, tx, w.ID, w.AvailableCents, w.LockedCents); err != nil {
		return nil, err
	}

	if err := AppendTransaction(ctx, tx, w.ID, amountCents, TypeDeposit, description, nil); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return w, nil
}

func (r *PostgresRepository) Withdraw(ctx context.Context, userID int, amountCents int64, bankDetails string) (*Wallet, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	w, err := GetOrCreateForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	if w.AvailableCents < amountCents {
		return nil, ErrInsufficientFunds
	}

	w.AvailableCents -= amountCents
	if err := UpdateBalances(ctx, tx, w.ID, w.AvailableCents, w.LockedCents); err != nil {
		return nil, err
	}

	// Records intent only. No bank transfer is issued here; payouts are
	// reconciled against these rows out of band.
	if err := AppendTransaction(ctx, tx, w.ID, -amountCents, TypeWithdrawal, "Withdrawal to "+bankDetails, nil); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return w, nil
}

func (r *PostgresRepository) GetTransactions(ctx context.Context, userID int, limit, offset int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}

	var walletID int
	err := r.db.GetContext(ctx, &walletID, `SELECT id FROM wallets WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []Transaction{}, nil
		}
		return nil, err
	}

	var txs []Transaction
	err = r.db.SelectContext(ctx, &txs, `
		SELECT id, wallet_id, amount_cents, type, description, reference_id, created_at
		FROM wallet_transactions
		WHERE wallet_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, walletID, limit, offset)
	if err != nil {
		return nil, err
	}

	return txs, nil
}
