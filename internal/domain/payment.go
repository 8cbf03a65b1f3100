package domain

import (
	"time"

	"github.com/google/uuid"
)

// Payment status constants.
const (
	PaymentStatusCreated  = "created"
	PaymentStatusCaptured = "captured"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

// Payment is the gateway-side record for an order. Zero-or-one per order at
// creation; the reconciler may create it late when the eager record is
// missing.
type Payment struct {
	ID               uuid.UUID `json:"id"`
	OrderID          uuid.UUID `json:"order_id"`
	GatewayOrderID   string    `json:"gateway_order_id,omitempty"`
	GatewayPaymentID string    `json:"gateway_payment_id,omitempty"`
	GatewaySignature string    `json:"-"`
	Amount           float64   `json:"amount"`
	Status           string    `json:"status"`
	FailureReason    string    `json:"failure_reason,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// PaymentTransitions defines which payment status transitions are valid.
// Re-applying a terminal status over itself is treated as an idempotent
// no-op by the service layer, not a transition.
func PaymentTransitions() map[string][]string {
	return map[string][]string{
		PaymentStatusCreated:  {PaymentStatusCaptured, PaymentStatusFailed},
		PaymentStatusCaptured: {PaymentStatusRefunded, PaymentStatusFailed},
		PaymentStatusFailed:   {PaymentStatusCaptured},
		PaymentStatusRefunded: {},
	}
}

// CanTransitionTo checks if the payment can transition to the target status.
func (p *Payment) CanTransitionTo(target string) bool {
	allowed, ok := PaymentTransitions()[p.Status]
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
