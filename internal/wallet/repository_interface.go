package wallet

import "context"

type Repository interface {
	GetOrCreateWallet(ctx context.Context, userID int) (*Wallet, error)
	Deposit(ctx context.Context, userID int, amountCents int64, description string) (*Wallet, error)
	Withdraw(ctx context.Context, userID int, amountCents int64, bankDetails string) (*Wallet, error)
	GetTransactions(ctx context.Context, userID int, limit, offset int) ([]Transaction, error)
}
