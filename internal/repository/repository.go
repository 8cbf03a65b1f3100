// Package repository defines the persistence interfaces for the order engine.
// Implementations live in the postgres and redis subpackages; services depend
// only on these interfaces so tests can substitute mocks.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/saumyadesai17/maayaro-sub001/internal/domain"
)

// OrderFilter defines filter criteria for listing orders.
type OrderFilter struct {
	UserID  *uuid.UUID
	Status  *string
	Page    int
	PerPage int
}

// OrderRepository persists orders. The header and line inserts are separate
// operations on purpose: the materializer compensates a failed line insert
// with an explicit header delete rather than relying on a surrounding
// transaction.
type OrderRepository interface {
	// CreateHeader inserts the order row without its items.
	CreateHeader(ctx context.Context, order *domain.Order) error

	// InsertItems inserts the order's line items.
	InsertItems(ctx context.Context, orderID uuid.UUID, items []domain.OrderItem) error

	// Delete removes an order header (and, via cascade, any items). Used as
	// a compensating action only.
	Delete(ctx context.Context, id uuid.UUID) error

	// GetByID retrieves an order with its items.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)

	// GetItems retrieves the persisted line items of an order.
	GetItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error)

	// LatestForUser returns the user's most recently created order.
	LatestForUser(ctx context.Context, userID uuid.UUID) (*domain.Order, error)

	// List returns orders matching the filter along with the total count.
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, int, error)

	// UpdateStatusIf conditionally sets the order status. The write only
	// happens when the current status is one of expected; it reports whether
	// a row was updated. Duplicate webhook deliveries rely on this to stay
	// idempotent.
	UpdateStatusIf(ctx context.Context, id uuid.UUID, target string, expected []string) (bool, error)
}

// PaymentRepository persists payments and their gateway references.
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error

	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)

	// GetByGatewayOrderID looks a payment up by the gateway's order
	// reference, the primary discovery path for reconciliation.
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Payment, error)

	// LatestForOrder returns the most recent payment row for an order.
	LatestForOrder(ctx context.Context, orderID uuid.UUID) (*domain.Payment, error)

	// SetGatewayOrderID records the gateway order reference after the
	// gateway order is created.
	SetGatewayOrderID(ctx context.Context, id uuid.UUID, gatewayOrderID string) error

	// Capture marks the payment captured and stores the gateway refs. Safe
	// to re-apply with the same inputs.
	Capture(ctx context.Context, id uuid.UUID, gatewayOrderID, gatewayPaymentID, signature string) error

	// Fail marks the payment failed with a reason.
	Fail(ctx context.Context, id uuid.UUID, reason string) error

	// Refund marks the payment refunded.
	Refund(ctx context.Context, id uuid.UUID) error
}

// ShipmentRepository persists shipments and their append-only tracking log.
type ShipmentRepository interface {
	Create(ctx context.Context, shipment *domain.Shipment) error

	GetByID(ctx context.Context, id uuid.UUID) (*domain.Shipment, error)

	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Shipment, error)

	GetByCarrierShipmentID(ctx context.Context, carrierShipmentID string) (*domain.Shipment, error)

	// UpdateStatus sets the shipment status. Idempotent set, not an append.
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error

	// AppendTracking appends one entry to the tracking log. Entries are
	// never updated or removed.
	AppendTracking(ctx context.Context, update *domain.TrackingUpdate) error

	// ListTracking returns the tracking log in insertion order.
	ListTracking(ctx context.Context, shipmentID uuid.UUID) ([]domain.TrackingUpdate, error)
}

// VariantRepository reads variants for pricing and adjusts stock.
type VariantRepository interface {
	// GetByIDs returns the variants for the given IDs keyed by ID.
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Variant, error)

	// AdjustStock atomically adds delta (negative to decrement) to a
	// variant's stock. Decrements that would go negative fail with
	// ErrInsufficientStock.
	AdjustStock(ctx context.Context, variantID uuid.UUID, delta int) error
}

// AddressRepository reads the upstream address book.
type AddressRepository interface {
	// GetOwned returns the address only when it belongs to the given user.
	GetOwned(ctx context.Context, id, userID uuid.UUID) (*domain.Address, error)
}

// SettingsRepository reads raw site settings rows.
type SettingsRepository interface {
	GetSettings(ctx context.Context, keys []string) (map[string]string, error)
}

// CartStore reads and clears the customer's cart.
type CartStore interface {
	// GetLines returns the cart lines for a user. A missing cart is an
	// empty slice, not an error.
	GetLines(ctx context.Context, userID uuid.UUID) ([]domain.CartLine, error)

	// Clear removes the user's cart after payment capture.
	Clear(ctx context.Context, userID uuid.UUID) error
}
