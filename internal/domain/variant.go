package domain

import (
	"time"

	"github.com/google/uuid"
)

// Variant is the denormalized variant row read for pricing: variant fields
// plus the product fields pricing falls back to. UnitPrice and GSTRate are
// nullable upstream.
type Variant struct {
	ID            uuid.UUID `json:"id"`
	ProductID     uuid.UUID `json:"product_id"`
	SKU           string    `json:"sku"`
	ProductName   string    `json:"product_name"`
	UnitPrice     *float64  `json:"unit_price,omitempty"`
	BasePrice     float64   `json:"base_price"`
	GSTRate       *float64  `json:"gst_rate,omitempty"`
	StockQuantity int       `json:"stock_quantity"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CartLine is one transient cart entry. Owned by the calling request and
// never persisted here.
type CartLine struct {
	VariantID       uuid.UUID `json:"variant_id"`
	Quantity        int       `json:"quantity"`
	GSTRateOverride *float64  `json:"gst_rate_override,omitempty"`
}

// Address is a stored shipping or billing address. The address book itself
// is owned by an upstream collaborator; orders only reference and read it.
type Address struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone"`
	Line1     string    `json:"line1"`
	Line2     string    `json:"line2,omitempty"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	Pincode   string    `json:"pincode"`
	Country   string    `json:"country"`
	CreatedAt time.Time `json:"created_at"`
}
