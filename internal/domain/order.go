package domain

import (
	"time"

	"github.com/google/uuid"
)

// Order status constants.
const (
	OrderStatusPending    = "pending"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
	OrderStatusRefunded   = "refunded"
	OrderStatusFailed     = "failed"
)

// Shipping method constants.
const (
	ShippingStandard = "standard"
	ShippingExpress  = "express"
	ShippingSameDay  = "same-day"
)

// OrderFinancials is the authoritative monetary summary of an order.
// Invariant: Total = Subtotal - Discount + Tax + ShippingFee. The shipping
// fee is tax-inclusive; ShippingTax reports its extracted tax component and
// is never added on top.
type OrderFinancials struct {
	Subtotal    float64 `json:"subtotal"`
	Discount    float64 `json:"discount"`
	ShippingFee float64 `json:"shipping_fee"`
	ShippingTax float64 `json:"shipping_tax"`
	Tax         float64 `json:"tax"`
	Total       float64 `json:"total"`
}

// Order represents a customer order.
type Order struct {
	ID                uuid.UUID       `json:"id"`
	OrderNumber       string          `json:"order_number"`
	UserID            uuid.UUID       `json:"user_id"`
	Status            string          `json:"status"`
	Items             []OrderItem     `json:"items,omitempty"`
	Financials        OrderFinancials `json:"financials"`
	ShippingMethod    string          `json:"shipping_method"`
	PaymentMethod     string          `json:"payment_method"`
	ShippingAddressID uuid.UUID       `json:"shipping_address_id"`
	BillingAddressID  uuid.UUID       `json:"billing_address_id"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// ValidOrderStatuses returns all valid order statuses.
func ValidOrderStatuses() []string {
	return []string{
		OrderStatusPending,
		OrderStatusConfirmed,
		OrderStatusProcessing,
		OrderStatusShipped,
		OrderStatusDelivered,
		OrderStatusCancelled,
		OrderStatusRefunded,
		OrderStatusFailed,
	}
}

// IsValidOrderStatus checks if a status string is valid.
func IsValidOrderStatus(status string) bool {
	for _, s := range ValidOrderStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// AllowedTransitions defines which order status transitions are valid.
// Gateway and carrier notifications arrive in no guaranteed order, so no
// backward transition exists; out-of-order deliveries must be rejected or
// no-opped rather than overwrite forward progress.
func AllowedTransitions() map[string][]string {
	return map[string][]string{
		OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled, OrderStatusFailed},
		OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled, OrderStatusRefunded, OrderStatusFailed},
		OrderStatusProcessing: {OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled},
		OrderStatusShipped:    {OrderStatusDelivered},
		OrderStatusDelivered:  {OrderStatusRefunded},
		OrderStatusCancelled:  {},
		OrderStatusRefunded:   {},
		OrderStatusFailed:     {},
	}
}

// orderProgression ranks the happy-path statuses so a stale duplicate
// notification can be told apart from a genuine conflict.
var orderProgression = map[string]int{
	OrderStatusPending:    0,
	OrderStatusConfirmed:  1,
	OrderStatusProcessing: 2,
	OrderStatusShipped:    3,
	OrderStatusDelivered:  4,
}

// OrderStatusReached reports whether current already is, or has moved past,
// the target status. Terminal statuses only match exactly.
func OrderStatusReached(current, target string) bool {
	c, okc := orderProgression[current]
	t, okt := orderProgression[target]
	if okc && okt {
		return c >= t
	}
	return current == target
}

// CanTransitionTo checks if the order can transition to the target status.
func (o *Order) CanTransitionTo(target string) bool {
	allowed, ok := AllowedTransitions()[o.Status]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}
