package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Shipment status constants.
const (
	ShipmentStatusCreated   = "created"
	ShipmentStatusInTransit = "in_transit"
	ShipmentStatusDelivered = "delivered"
	ShipmentStatusReturned  = "returned"
)

// Shipment is the carrier-side record for an order.
type Shipment struct {
	ID                uuid.UUID        `json:"id"`
	OrderID           uuid.UUID        `json:"order_id"`
	CarrierOrderID    string           `json:"carrier_order_id,omitempty"`
	CarrierShipmentID string           `json:"carrier_shipment_id,omitempty"`
	AWBCode           string           `json:"awb_code,omitempty"`
	CourierName       string           `json:"courier_name,omitempty"`
	Status            string           `json:"status"`
	TrackingUpdates   []TrackingUpdate `json:"tracking_updates,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// TrackingUpdate is one entry of the append-only tracking log. Entries are
// never replaced, so intermediate history survives repeated polling.
type TrackingUpdate struct {
	ID         int64           `json:"id"`
	ShipmentID uuid.UUID       `json:"shipment_id"`
	Status     string          `json:"status"`
	Location   string          `json:"location,omitempty"`
	Remarks    string          `json:"remarks,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	CreatedAt  time.Time       `json:"created_at"`
}

// CarrierUpdate is the normalized shape of a carrier webhook or poll result.
type CarrierUpdate struct {
	CarrierShipmentID string          `json:"carrier_shipment_id"`
	Delivered         bool            `json:"delivered"`
	RTO               bool            `json:"rto"`
	PickupDate        *time.Time      `json:"pickup_date,omitempty"`
	CurrentStatus     string          `json:"current_status,omitempty"`
	Location          string          `json:"location,omitempty"`
	Remarks           string          `json:"remarks,omitempty"`
	Raw               json.RawMessage `json:"-"`
}

// DeriveStatus maps a carrier update onto a shipment status. Delivered wins
// over RTO, RTO over pickup; anything else leaves the current status
// unchanged.
func (u CarrierUpdate) DeriveStatus(current string) string {
	switch {
	case u.Delivered:
		return ShipmentStatusDelivered
	case u.RTO:
		return ShipmentStatusReturned
	case u.PickupDate != nil:
		return ShipmentStatusInTransit
	default:
		return current
	}
}
