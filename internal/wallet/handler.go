package wallet

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"macronata/internal/auth"
	"macronata/internal/logger"
	"macronata/internal/metrics"
	"macronata/internal/payments"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	repo     Repository
	checkout payments.Provider

	// simulate enables the development-only deposit confirmation path.
	// It credits wallets without gateway verification and must stay off
	// in production.
	simulate bool
}

func NewHandler(repo Repository, checkout payments.Provider, simulate bool) *Handler {
	return &Handler{
		repo:     repo,
		checkout: checkout,
		simulate: simulate,
	}
}

// MyWallet returns the caller's balances and transaction history.
func (h *Handler) MyWallet(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	w, err := h.repo.GetOrCreateWallet(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load wallet"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	history, err := h.repo.GetTransactions(c.Request.Context(), userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load transactions"})
		return
	}

	c.JSON(http.StatusOK, WalletResponse{
		Balance: w.AvailableCents,
		Locked:  w.LockedCents,
		History: history,
	})
}

// CreateDeposit returns a hosted checkout URL for topping up the wallet.
// In simulation mode no checkout is created; the client is expected to call
// the simulated confirmation endpoint instead.
func (h *Handler) CreateDeposit(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req CreateDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AmountInCents <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount_in_cents must be positive"})
		return
	}

	if h.simulate {
		c.JSON(http.StatusOK, CreateDepositResponse{Simulation: true})
		return
	}

	result, err := h.checkout.CreateDepositCheckout(c.Request.Context(), payments.CheckoutParams{
		UserID:      userID,
		AmountCents: req.AmountInCents,
		SuccessURL:  req.ReturnURL,
		CancelURL:   req.ReturnURL,
		Description: "Macronata wallet deposit",
	})
	if err != nil {
		logger.Errorf("Failed to create checkout session for user %d: %v", userID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Payment gateway unavailable"})
		return
	}

	metrics.RecordDeposit("checkout")
	c.JSON(http.StatusOK, CreateDepositResponse{URL: result.URL})
}

// ConfirmSimulatedDeposit credits the wallet directly. Only wired up when
// simulation mode is on; the route does not exist in production.
func (h *Handler) ConfirmSimulatedDeposit(c *gin.Context) {
	if !h.simulate {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req ConfirmSimulatedDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AmountInCents <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount_in_cents must be positive"})
		return
	}

	w, err := h.repo.Deposit(c.Request.Context(), userID, req.AmountInCents, "Simulated deposit")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to credit wallet"})
		return
	}

	metrics.RecordDeposit("simulated")
	c.JSON(http.StatusOK, gin.H{
		"status":      "confirmed",
		"new_balance": w.AvailableCents,
	})
}

// Withdraw debits the caller's available balance and records payout intent.
func (h *Handler) Withdraw(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AmountInCents <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount_in_cents must be positive"})
		return
	}

	w, err := h.repo.Withdraw(c.Request.Context(), userID, req.AmountInCents, req.BankDetails)
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			c.JSON(http.StatusPaymentRequired, gin.H{"error": "Insufficient funds"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to withdraw"})
		return
	}

	metrics.RecordWithdrawal()
	c.JSON(http.StatusOK, gin.H{
		"msg":         fmt.Sprintf("Withdrawal of %d cents requested", req.AmountInCents),
		"new_balance": w.AvailableCents,
	})
}
