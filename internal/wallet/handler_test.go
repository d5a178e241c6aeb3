package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"macronata/internal/logger"
	"macronata/internal/payments"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init()

	code := m.Run()
	os.Exit(code)
}

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetOrCreateWallet(ctx context.Context, userID int) (*Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Wallet), args.Error(1)
}

func (m *MockRepository) Deposit(ctx context.Context, userID int, amountCents int64, description string) (*Wallet, error) {
	args := m.Called(ctx, userID, amountCents, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Wallet), args.Error(1)
}

func (m *MockRepository) Withdraw(ctx context.Context, userID int, amountCents int64, bankDetails string) (*Wallet, error) {
	args := m.Called(ctx, userID, amountCents, bankDetails)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Wallet), args.Error(1)
}

func (m *MockRepository) GetTransactions(ctx context.Context, userID int, limit, offset int) ([]Transaction, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Transaction), args.Error(1)
}

type fakeCheckout struct {
	result *payments.CheckoutResult
	err    error
}

func (f *fakeCheckout) CreateDepositCheckout(ctx context.Context, params payments.CheckoutParams) (*payments.CheckoutResult, error) {
	return f.result, f.err
}

func performRequest(h gin.HandlerFunc, userID int, body interface{}) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	c.Request = httptest.NewRequest(http.MethodPost, "/", &buf)
	c.Request.Header.Set("Content-Type", "application/json")
	if userID > 0 {
		c.Set("user_id", userID)
	}

	h(c)
	return rec
}

func TestMyWallet_ReturnsBalancesAndHistory(t *testing.T) {
	repo := new(MockRepository)
	h := NewHandler(repo, &fakeCheckout{}, true)

	repo.On("GetOrCreateWallet", mock.Anything, 1).
		Return(&Wallet{ID: 5, UserID: 1, AvailableCents: 10000, LockedCents: 20000}, nil)
	repo.On("GetTransactions", mock.Anything, 1, 50, 0).
		Return([]Transaction{{ID: 1, WalletID: 5, AmountCents: -20000, Type: TypeHold}}, nil)

	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/my_wallet", nil)
	c.Set("user_id", 1)

	h.MyWallet(c)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp WalletResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(10000), resp.Balance)
	assert.Equal(t, int64(20000), resp.Locked)
	assert.Len(t, resp.History, 1)
	repo.AssertExpectations(t)
}

func TestMyWallet_Unauthenticated(t *testing.T) {
	repo := new(MockRepository)
	h := NewHandler(repo, &fakeCheckout{}, true)

	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/my_wallet", nil)

	h.MyWallet(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateDeposit_SimulationMode(t *testing.T) {
	repo := new(MockRepository)
	h := NewHandler(repo, &fakeCheckout{}, true)

	rec := performRequest(h.CreateDeposit, 1, CreateDepositRequest{
		AmountInCents: 5000,
		ReturnURL:     "https://app.example.com/wallet",
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp CreateDepositResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Simulation)
	assert.Empty(t, resp.URL)
}

func TestCreateDeposit_ViaGateway(t *testing.T) {
	repo := new(MockRepository)
	checkout := &fakeCheckout{result: &payments.CheckoutResult{URL: "https://checkout.stripe.com/pay/cs_test_123"}}
	h := NewHandler(repo, checkout, false)

	rec := performRequest(h.CreateDeposit, 1, CreateDepositRequest{
		AmountInCents: 5000,
		ReturnURL:     "https://app.example.com/wallet",
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp CreateDepositResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Simulation)
	assert.Equal(t, "https://checkout.stripe.com/pay/cs_test_123", resp.URL)
}

func TestCreateDeposit_GatewayDown(t *testing.T) {
	repo := new(MockRepository)
	checkout := &fakeCheckout{err: payments.ErrNotConfigured}
	h := NewHandler(repo, checkout, false)

	rec := performRequest(h.CreateDeposit, 1, CreateDepositRequest{
		AmountInCents: 5000,
		ReturnURL:     "https://app.example.com/wallet",
	})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestCreateDeposit_RejectsNonPositiveAmount(t *testing.T) {
	repo := new(MockRepository)
	h := NewHandler(repo, &fakeCheckout{}, true)

	rec := performRequest(h.CreateDeposit, 1, map[string]interface{}{
		"amount_in_cents": -100,
		"return_url":      "https://app.example.com/wallet",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfirmSimulatedDeposit_Success(t *testing.T) {
	repo := new(MockRepository)
	h := NewHandler(repo, &fakeCheckout{}, true)

	repo.On("Deposit", mock.Anything, 1, int64(5000), "Simulated deposit").
		Return(&Wallet{ID: 5, UserID: 1, AvailableCents: 15000}, nil)

	rec := performRequest(h.ConfirmSimulatedDeposit, 1, ConfirmSimulatedDepositRequest{AmountInCents: 5000})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "confirmed", resp["status"])
	assert.Equal(t, float64(15000), resp["new_balance"])
	repo.AssertExpectations(t)
}

func TestConfirmSimulatedDeposit_DisabledInProduction(t *testing.T) {
	repo := new(MockRepository)
	h := NewHandler(repo, &fakeCheckout{}, false)

	rec := performRequest(h.ConfirmSimulatedDeposit, 1, ConfirmSimulatedDepositRequest{AmountInCents: 5000})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	repo.AssertNotCalled(t, "Deposit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWithdraw_Handler_Success(t *testing.T) {
	repo := new(MockRepository)
	h := NewHandler(repo, &fakeCheckout{}, true)

	repo.On("Withdraw", mock.Anything, 1, int64(4000), "FNB ****1234").
		Return(&Wallet{ID: 5, UserID: 1, AvailableCents: 6000}, nil)

	rec := performRequest(h.Withdraw, 1, WithdrawRequest{AmountInCents: 4000, BankDetails: "FNB ****1234"})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, float64(6000), resp["new_balance"])
	repo.AssertExpectations(t)
}

func TestWithdraw_Handler_InsufficientFunds(t *testing.T) {
	repo := new(MockRepository)
	h := NewHandler(repo, &fakeCheckout{}, true)

	repo.On("Withdraw", mock.Anything, 1, int64(999999), "FNB ****1234").
		Return(nil, ErrInsufficientFunds)

	rec := performRequest(h.Withdraw, 1, WithdrawRequest{AmountInCents: 999999, BankDetails: "FNB ****1234"})

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	repo.AssertExpectations(t)
}
