package wallet

import "time"

// Transaction types. Holds and releases bracket a session's escrow lock;
// payment/earning/receiving record settlement. The log is append-only.
const (
	TypeDeposit    = "deposit"
	TypeWithdrawal = "withdrawal"
	TypeHold       = "hold"
	TypeRelease    = "release"
	TypePayment    = "payment"
	TypeEarning    = "earning"
	TypeReceiving  = "receiving"
)

// Wallet holds a user's spendable and escrowed funds. Created lazily on
// first access, never deleted. Both balances stay non-negative.
type Wallet struct {
	ID             int       `db:"id" json:"id"`
	UserID         int       `db:"user_id" json:"user_id"`
	AvailableCents int64     `db:"available_cents" json:"available_cents"`
	LockedCents    int64     `db:"locked_cents" json:"locked_cents"`
	Currency       string    `db:"currency" json:"currency"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

type Transaction struct {
	ID          int       `db:"id" json:"id"`
	WalletID    int       `db:"wallet_id" json:"wallet_id"`
	AmountCents int64     `db:"amount_cents" json:"amount_cents"` // negative = debit
	Type        string    `db:"type" json:"type"`
	Description string    `db:"description" json:"description"`
	ReferenceID *int      `db:"reference_id" json:"reference_id,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type WalletResponse struct {
	Balance int64         `json:"balance"`
	Locked  int64         `json:"locked"`
	History []Transaction `json:"history"`
}

type CreateDepositRequest struct {
	AmountInCents int64  `json:"amount_in_cents" binding:"required"`
	ReturnURL     string `json:"return_url" binding:"required"`
}

type CreateDepositResponse struct {
	URL        string `json:"url"`
	Simulation bool   `json:"simulation"`
}

type ConfirmSimulatedDepositRequest struct {
	AmountInCents int64 `json:"amount_in_cents" binding:"required"`
}

type WithdrawRequest struct {
	AmountInCents int64  `json:"amount_in_cents" binding:"required"`
	BankDetails   string `json:"bank_details" binding:"required"`
}
