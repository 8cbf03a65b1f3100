package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem is one persisted order line with its computed tax breakdown.
type OrderItem struct {
	ID             uuid.UUID `json:"id"`
	OrderID        uuid.UUID `json:"order_id"`
	VariantID      uuid.UUID `json:"variant_id"`
	Name           string    `json:"name"`
	SKU            string    `json:"sku"`
	Quantity       int       `json:"quantity"`
	UnitPrice      float64   `json:"unit_price"`
	BaseTotal      float64   `json:"base_total"`
	TaxAmount      float64   `json:"tax_amount"`
	GSTRatePercent float64   `json:"gst_rate_percent"`
	TotalWithTax   float64   `json:"total_with_tax"`
	CreatedAt      time.Time `json:"created_at"`
}
