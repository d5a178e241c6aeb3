package payments

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v82"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
)

var ErrNotConfigured = errors.New("payment gateway not configured")

// CheckoutParams describe a one-off wallet deposit.
type CheckoutParams struct {
	UserID      int
	AmountCents int64
	Currency    string
	SuccessURL  string
	CancelURL   string
	Description string
}

type CheckoutResult struct {
	URL       string
	SessionID string
}

// Provider creates hosted checkout pages. The real implementation talks to
// Stripe; tests substitute their own.
type Provider interface {
	CreateDepositCheckout(ctx context.Context, params CheckoutParams) (*CheckoutResult, error)
}

type Client struct {
	secretKey string
}

func NewClient(secretKey string) *Client {
	// stripe-go keys the global client off this value.
	stripe.Key = secretKey

	return &Client{secretKey: secretKey}
}

// CreateDepositCheckout creates a Stripe Checkout Session in payment mode
// with inline price data. Metadata carries the user id so a webhook handler
// can credit the right wallet.
func (c *Client) CreateDepositCheckout(ctx context.Context, params CheckoutParams) (*CheckoutResult, error) {
	if c.secretKey == "" {
		return nil, ErrNotConfigured
	}

	currency := params.Currency
	if currency == "" {
		currency = "zar"
	}

	sessionParams := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(params.Description),
					},
					UnitAmount: stripe.Int64(params.AmountCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(params.SuccessURL),
		CancelURL:  stripe.String(params.CancelURL),
		Metadata: map[string]string{
			"purpose": "wallet_deposit",
			"user_id": strconv.Itoa(params.UserID),
		},
	}

	sess, err := checkoutsession.New(sessionParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return &CheckoutResult{
		URL:       sess.URL,
		SessionID: sess.ID,
	}, nil
}
