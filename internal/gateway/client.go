// Package gateway holds the outbound payment-gateway collaborator. The
// engine only consumes callbacks; the client's job is quoting a
// destination for a new payment request.
package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/minhngoc/codepay-backend/internal/services"
	"github.com/shopspring/decimal"
)

type Client struct {
	apiURL        string
	apiKey        string
	walletAddress string
	http          *http.Client
}

func NewClient(apiURL, apiKey, walletAddress string) *Client {
	return &Client{
		apiURL:        apiURL,
		apiKey:        apiKey,
		walletAddress: walletAddress,
		http:          &http.Client{Timeout: 10 * time.Second},
	}
}

// CreatePaymentRequest quotes the configured wallet address for the full
// amount.
// TODO: create a per-order payment session via the gateway API once
// credentials are provisioned; the callback already carries the session id.
func (c *Client) CreatePaymentRequest(ctx context.Context, orderID string, amount decimal.Decimal) (services.PaymentQuote, error) {
	return services.PaymentQuote{Address: c.walletAddress, Amount: amount}, nil
}
