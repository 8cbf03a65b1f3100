// Package carrier talks to the third-party shipping carrier: shipment
// creation from an order projection and tracking via webhook-shaped pulls.
package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/saumyadesai17/maayaro-sub001/internal/domain"
	"github.com/saumyadesai17/maayaro-sub001/internal/pricing"
	"github.com/saumyadesai17/maayaro-sub001/pkg/httpclient"
)

// Config holds shipping carrier credentials and endpoints.
type Config struct {
	BaseURL        string `env:"CARRIER_BASE_URL" envDefault:"https://api.carrier.test"`
	Email          string `env:"CARRIER_EMAIL"`
	Password       string `env:"CARRIER_PASSWORD"`
	PickupLocation string `env:"CARRIER_PICKUP_LOCATION" envDefault:"Primary"`
}

// ShipmentRequest is what CreateShipment sends: the order's carrier payload
// plus identifiers the carrier echoes back.
type ShipmentRequest struct {
	OrderNumber string
	OrderDate   time.Time
	Payload     pricing.CarrierPayload
}

// ShipmentResponse is the carrier's reply to a created shipment.
type ShipmentResponse struct {
	CarrierOrderID    string `json:"order_id"`
	CarrierShipmentID string `json:"shipment_id"`
	AWBCode           string `json:"awb_code"`
	CourierName       string `json:"courier_name"`
}

// Client is the HTTP client for the shipping carrier. Authentication tokens
// come from the injected cache; calls go through a circuit breaker.
type Client struct {
	http   *httpclient.CircuitBreakerClient
	cfg    Config
	tokens *TokenCache
	logger *slog.Logger
}

// NewClient creates a carrier client. The client is its own token source:
// pass the returned client to NewTokenCache and attach the cache with
// WithTokenCache, or use NewClientWithCache for the usual wiring.
func NewClient(cfg Config, http *httpclient.CircuitBreakerClient, logger *slog.Logger) *Client {
	return &Client{
		http:   http,
		cfg:    cfg,
		logger: logger,
	}
}

// NewClientWithCache creates a carrier client with a token cache wired to
// the client's own login call.
func NewClientWithCache(cfg Config, http *httpclient.CircuitBreakerClient, skew time.Duration, logger *slog.Logger) *Client {
	c := NewClient(cfg, http, logger)
	c.tokens = NewTokenCache(c, skew)
	return c
}

// WithTokenCache attaches a token cache (useful for tests with a fake source).
func (c *Client) WithTokenCache(cache *TokenCache) *Client {
	c.tokens = cache
	return c
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// FetchToken logs in to the carrier and returns a fresh token. Implements
// TokenSource.
func (c *Client) FetchToken(ctx context.Context) (string, time.Time, error) {
	body, err := json.Marshal(loginRequest{Email: c.cfg.Email, Password: c.cfg.Password})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("marshal login request: %w", err)
	}

	resp, err := c.http.Post(ctx, c.cfg.BaseURL+"/v1/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("carrier login: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", time.Time{}, httpclient.ParseResponseError(resp, "shipping carrier")
	}

	var login loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		return "", time.Time{}, fmt.Errorf("decode login response: %w", err)
	}

	expiresAt := time.Now().Add(time.Duration(login.ExpiresIn) * time.Second)
	c.logger.DebugContext(ctx, "carrier token refreshed", slog.Time("expires_at", expiresAt))

	return login.Token, expiresAt, nil
}

type createShipmentBody struct {
	OrderNumber     string                `json:"order_id"`
	OrderDate       string                `json:"order_date"`
	PickupLocation  string                `json:"pickup_location"`
	BillingAddress  domain.Address        `json:"billing_address"`
	ShippingAddress domain.Address        `json:"shipping_address"`
	Items           []pricing.CarrierItem `json:"order_items"`
	PaymentMethod   string                `json:"payment_method"`
	SubTotal        float64               `json:"sub_total"`
	Discount        float64               `json:"total_discount"`
	ShippingCharges float64               `json:"shipping_charges"`
	Length          float64               `json:"length,omitempty"`
	Breadth         float64               `json:"breadth,omitempty"`
	Height          float64               `json:"height,omitempty"`
	Weight          float64               `json:"weight,omitempty"`
}

// CreateShipment registers a shipment with the carrier. Items arrive priced
// tax-inclusive; the carrier re-derives the taxable base itself.
func (c *Client) CreateShipment(ctx context.Context, req ShipmentRequest) (*ShipmentResponse, error) {
	body := createShipmentBody{
		OrderNumber:     req.OrderNumber,
		OrderDate:       req.OrderDate.Format("2006-01-02 15:04"),
		PickupLocation:  c.cfg.PickupLocation,
		BillingAddress:  req.Payload.BillingAddress,
		ShippingAddress: req.Payload.ShippingAddress,
		Items:           req.Payload.Items,
		PaymentMethod:   req.Payload.PaymentMethod,
		SubTotal:        req.Payload.SubTotal,
		Discount:        req.Payload.Discount,
		ShippingCharges: req.Payload.ShippingCharges,
	}
	if d := req.Payload.Dimensions; d != nil {
		body.Length = d.Length
		body.Breadth = d.Breadth
		body.Height = d.Height
		body.Weight = d.Weight
	}

	var out ShipmentResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/orders/create", body, &out); err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "carrier shipment created",
		slog.String("order_number", req.OrderNumber),
		slog.String("carrier_shipment_id", out.CarrierShipmentID),
		slog.String("awb_code", out.AWBCode),
	)

	return &out, nil
}

type trackResponse struct {
	ShipmentID    string `json:"shipment_id"`
	CurrentStatus string `json:"current_status"`
	Delivered     bool   `json:"delivered"`
	RTO           bool   `json:"rto"`
	PickupDate    string `json:"pickup_date"`
	Location      string `json:"location"`
	Remarks       string `json:"remarks"`
}

// Track pulls the current tracking state for a shipment and normalizes it to
// the same shape the webhook delivers.
func (c *Client) Track(ctx context.Context, carrierShipmentID string) (*domain.CarrierUpdate, error) {
	var out trackResponse
	path := "/v1/track/shipment/" + url.PathEscape(carrierShipmentID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}

	update := &domain.CarrierUpdate{
		CarrierShipmentID: out.ShipmentID,
		Delivered:         out.Delivered,
		RTO:               out.RTO,
		CurrentStatus:     out.CurrentStatus,
		Location:          out.Location,
		Remarks:           out.Remarks,
	}
	if update.CarrierShipmentID == "" {
		update.CarrierShipmentID = carrierShipmentID
	}
	if out.PickupDate != "" {
		if ts, err := time.Parse("2006-01-02 15:04:05", out.PickupDate); err == nil {
			update.PickupDate = &ts
		}
	}
	if raw, err := json.Marshal(out); err == nil {
		update.Raw = raw
	}

	return update, nil
}

// doJSON performs an authenticated JSON request, retrying once with a fresh
// token when the carrier rejects the cached one.
func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	resp, err := c.authedDo(ctx, method, path, body, false)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		_ = resp.Body.Close()
		c.tokens.Invalidate()
		resp, err = c.authedDo(ctx, method, path, body, true)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return httpclient.ParseResponseError(resp, "shipping carrier")
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode carrier response: %w", err)
		}
	}
	return nil
}

func (c *Client) authedDo(ctx context.Context, method, path string, body any, _ bool) (*http.Response, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("carrier token: %w", err)
	}

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal carrier request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create carrier request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("carrier request %s %s: %w", method, path, err)
	}
	return resp, nil
}
