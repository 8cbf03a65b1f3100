// Package gateway talks to the third-party payment gateway: order creation
// before checkout and signature verification for callbacks and webhooks.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/saumyadesai17/maayaro-sub001/pkg/httpclient"
)

// Config holds payment gateway credentials and endpoints.
type Config struct {
	BaseURL       string `env:"GATEWAY_BASE_URL" envDefault:"https://api.gateway.test"`
	KeyID         string `env:"GATEWAY_KEY_ID"`
	KeySecret     string `env:"GATEWAY_KEY_SECRET"`
	WebhookSecret string `env:"GATEWAY_WEBHOOK_SECRET"`
}

// Order is the gateway's order record returned by CreateOrder.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Client is the HTTP client for the payment gateway. Calls go through a
// circuit breaker so a dead gateway fails fast instead of piling up.
type Client struct {
	http   *httpclient.CircuitBreakerClient
	cfg    Config
	logger *slog.Logger
}

// NewClient creates a payment gateway client.
func NewClient(cfg Config, http *httpclient.CircuitBreakerClient, logger *slog.Logger) *Client {
	return &Client{
		http:   http,
		cfg:    cfg,
		logger: logger,
	}
}

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// CreateOrder registers an order with the gateway. Amount is in minor
// currency units (paise); receipt is the order number so gateway dashboards
// line up with local records.
func (c *Client) CreateOrder(ctx context.Context, amountMinorUnits int64, receipt string) (*Order, error) {
	body, err := json.Marshal(createOrderRequest{
		Amount:   amountMinorUnits,
		Currency: "INR",
		Receipt:  receipt,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal create order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create gateway order: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, httpclient.ParseResponseError(resp, "payment gateway")
	}

	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("decode gateway order: %w", err)
	}

	c.logger.InfoContext(ctx, "gateway order created",
		slog.String("gateway_order_id", order.ID),
		slog.String("receipt", receipt),
		slog.Int64("amount", amountMinorUnits),
	)

	return &order, nil
}

// VerifyPaymentSignature checks a client-submitted verification triple
// against the configured key secret.
func (c *Client) VerifyPaymentSignature(gatewayOrderRef, gatewayPaymentRef, signature string) bool {
	return VerifyPaymentSignature(gatewayOrderRef, gatewayPaymentRef, signature, c.cfg.KeySecret)
}

// VerifyWebhookSignature checks a webhook signature against the raw body.
func (c *Client) VerifyWebhookSignature(rawBody []byte, signature string) bool {
	return VerifyWebhookSignature(rawBody, signature, c.cfg.WebhookSecret)
}
