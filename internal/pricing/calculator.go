// Package pricing turns cart lines into an authoritative, tax-correct
// monetary breakdown plus a carrier-facing payload. Calculate is pure: no
// side effects, identical output for identical input.
package pricing

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/saumyadesai17/maayaro-sub001/internal/domain"
	"github.com/saumyadesai17/maayaro-sub001/internal/policy"
	apperrors "github.com/saumyadesai17/maayaro-sub001/pkg/errors"
)

// Validation modes for the self-validation step.
const (
	ValidationWarn   = "warn"
	ValidationReject = "reject"
)

// Line pairs a cart line with the variant row it was resolved against.
type Line struct {
	Cart    domain.CartLine
	Variant domain.Variant
}

// Dimensions are the parcel dimensions forwarded to the carrier.
type Dimensions struct {
	Length  float64 `json:"length"`
	Breadth float64 `json:"breadth"`
	Height  float64 `json:"height"`
	Weight  float64 `json:"weight"`
}

// Input is everything Calculate needs. ShippingAddress may equal
// BillingAddress when ShippingIsBilling was set upstream.
type Input struct {
	Lines           []Line
	ShippingMethod  string
	Discount        float64
	PaymentMethod   string
	ShippingAddress domain.Address
	BillingAddress  domain.Address
	Dimensions      *Dimensions
	Policy          policy.Policy
	ValidationMode  string
}

// ComputedLine is the immutable derived form of one cart line.
type ComputedLine struct {
	VariantID      uuid.UUID `json:"variant_id"`
	Name           string    `json:"name"`
	SKU            string    `json:"sku"`
	Quantity       int       `json:"quantity"`
	UnitPrice      float64   `json:"unit_price"`
	BaseTotal      float64   `json:"base_total"`
	TaxAmount      float64   `json:"tax_amount"`
	GSTRatePercent float64   `json:"gst_rate_percent"`
	TotalWithTax   float64   `json:"total_with_tax"`
}

/// CarrierItem is one order item in the carrier's convention: the selling
// price is the line's tax-inclusive total, because the carrier re-derives
// the taxable base itself by dividing by 1+rate.
type CarrierItem struct {
	Name         string  `json:"name"`
	SKU          string  `json:"sku"`
	Units        int     `json:"units"`
	SellingPrice float64 `json:"selling_price"`
	GSTPercent   float64 `json:"tax"`
}

// CarrierPayload is the carrier-shaped projection of the order.
type CarrierPayload struct {
	Items           []CarrierItem  `json:"order_items"`
	SubTotal        float64        `json:"sub_total"`
	Discount        float64        `json:"discount"`
	ShippingCharges float64        `json:"shipping_charges"`
	PaymentMethod   string         `json:"payment_method"`
	ShippingAddress domain.Address `json:"shipping_address"`
	BillingAddress  domain.Address `json:"billing_address"`
	Dimensions      *Dimensions    `json:"dimensions,omitempty"`
}

// Validation holds the outcome of the self-validation step. Warnings are
// non-fatal under the warn mode; reject mode turns them into an error.
type Validation struct {
	IsValid  bool     `json:"is_valid"`
	Warnings []string `json:"warnings,omitempty"`
}

// Result is the full output of a calculation.
type Result struct {
	Lines          []ComputedLine
	Financials     domain.OrderFinancials
	CarrierPayload CarrierPayload
	GatewayAmount  int64
	Validation     Validation
}

// tolerance for reconciling independently derived totals.
const tolerance = 0.01

// round2 rounds to two decimal places, half away from zero.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round2 rounds a monetary amount to two decimal places the same way the
// calculator rounds internally.
func Round2(v float64) float64 {
	return round2(v)
}

// NormalizeGSTRate converts a raw stored rate to a whole percent. Rates at
// or below 1 are stored as decimal fractions upstream (0.18 means 18%).
func NormalizeGSTRate(raw float64) float64 {
	if raw <= 1 {
		return raw * 100
	}
	return raw
}

// MinorUnits converts a rupee amount to paise for the payment gateway.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// Calculate computes per-line tax, shipping fee, totals, and the carrier
// payload for the given cart, then self-validates the result.
func Calculate(in Input) (*Result, error) {
	if len(in.Lines) == 0 {
		return nil, apperrors.InvalidInput("cart is empty")
	}
	if in.Discount < 0 {
		return nil, apperrors.InvalidInput("discount cannot be negative")
	}

	// Stock is checked across the whole cart before anything is computed.
	for _, l := range in.Lines {
		if l.Cart.Quantity <= 0 {
			return nil, apperrors.InvalidInput(fmt.Sprintf("variant %s: quantity must be positive", l.Cart.VariantID))
		}
		if l.Cart.Quantity > l.Variant.StockQuantity {
			return nil, apperrors.InsufficientStock(l.Cart.VariantID.String(), l.Cart.Quantity, l.Variant.StockQuantity)
		}
	}

	lines := make([]ComputedLine, 0, len(in.Lines))
	var subtotal, itemTax, maxGSTRate float64

	for _, l := range in.Lines {
		unitPrice, err := resolveUnitPrice(l.Variant)
		if err != nil {
			return nil, err
		}

		rate := resolveGSTRate(l, in.Policy)
		if rate > maxGSTRate {
			maxGSTRate = rate
		}

		baseTotal := round2(unitPrice * float64(l.Cart.Quantity))
		taxAmount := round2(baseTotal * rate / 100)
		totalWithTax := baseTotal + taxAmount

		lines = append(lines, ComputedLine{
			VariantID:      l.Variant.ID,
			Name:           l.Variant.ProductName,
			SKU:            l.Variant.SKU,
			Quantity:       l.Cart.Quantity,
			UnitPrice:      unitPrice,
			BaseTotal:      baseTotal,
			TaxAmount:      taxAmount,
			GSTRatePercent: rate,
			TotalWithTax:   totalWithTax,
		})

		subtotal += baseTotal
		itemTax += taxAmount
	}
	subtotal = round2(subtotal)
	itemTax = round2(itemTax)

	shippingFee, err := shippingFeeFor(in.ShippingMethod, subtotal, in.Policy)
	if err != nil {
		return nil, err
	}

	// The shipping fee is tax-inclusive; its tax component is extracted for
	// reporting using the highest line rate, not a blended rate.
	var shippingTax float64
	if shippingFee > 0 && maxGSTRate > 0 {
		r := maxGSTRate / 100
		shippingTax = round2(shippingFee / (1 + r) * r)
	}

	if in.Discount > subtotal+shippingFee {
		return nil, apperrors.DiscountExceedsTotal(in.Discount, subtotal+shippingFee)
	}

	total := round2(subtotal - in.Discount + itemTax + shippingFee)

	// Tax covers the item lines only. The shipping fee is tax-inclusive, so
	// its tax component already sits inside ShippingFee; ShippingTax merely
	// reports it.
	financials := domain.OrderFinancials{
		Subtotal:    subtotal,
		Discount:    in.Discount,
		ShippingFee: shippingFee,
		ShippingTax: shippingTax,
		Tax:         itemTax,
		Total:       total,
	}

	payload := buildCarrierPayload(in, lines, shippingFee)

	result := &Result{
		Lines:          lines,
		Financials:     financials,
		CarrierPayload: payload,
		GatewayAmount:  MinorUnits(total),
		Validation:     validate(financials, payload, itemTax),
	}

	if in.ValidationMode == ValidationReject && !result.Validation.IsValid {
		return nil, apperrors.Conflict(fmt.Sprintf("order totals failed reconciliation: %v", result.Validation.Warnings))
	}

	return result, nil
}

// resolveUnitPrice takes the variant price, falling back to the product base
// price when the variant has none.
func resolveUnitPrice(v domain.Variant) (float64, error) {
	if v.UnitPrice != nil && *v.UnitPrice > 0 {
		return *v.UnitPrice, nil
	}
	if v.BasePrice > 0 {
		return v.BasePrice, nil
	}
	return 0, apperrors.InvalidPrice(v.ID.String())
}

// resolveGSTRate applies the precedence line override, then product rate,
// then policy default, normalizing fractions to percents.
func resolveGSTRate(l Line, p policy.Policy) float64 {
	if l.Cart.GSTRateOverride != nil {
		return NormalizeGSTRate(*l.Cart.GSTRateOverride)
	}
	if l.Variant.GSTRate != nil {
		return NormalizeGSTRate(*l.Variant.GSTRate)
	}
	return NormalizeGSTRate(p.TaxRatePercent)
}

func shippingFeeFor(method string, subtotal float64, p policy.Policy) (float64, error) {
	switch method {
	case domain.ShippingStandard:
		if subtotal >= p.FreeShippingThreshold {
			return 0, nil
		}
		return p.StandardFee, nil
	case domain.ShippingExpress:
		return p.ExpressFee, nil
	case domain.ShippingSameDay:
		return p.SameDayFee, nil
	default:
		return 0, apperrors.InvalidInput(fmt.Sprintf("unknown shipping method %q", method))
	}
}

func buildCarrierPayload(in Input, lines []ComputedLine, shippingFee float64) CarrierPayload {
	items := make([]CarrierItem, 0, len(lines))
	var declaredSubtotal float64
	for _, l := range lines {
		items = append(items, CarrierItem{
			Name:         l.Name,
			SKU:          l.SKU,
			Units:        l.Quantity,
			SellingPrice: l.TotalWithTax,
			GSTPercent:   l.GSTRatePercent,
		})
		declaredSubtotal += l.TotalWithTax
	}

	return CarrierPayload{
		Items:           items,
		SubTotal:        round2(declaredSubtotal),
		Discount:        in.Discount,
		ShippingCharges: shippingFee,
		PaymentMethod:   in.PaymentMethod,
		ShippingAddress: in.ShippingAddress,
		BillingAddress:  in.BillingAddress,
		Dimensions:      in.Dimensions,
	}
}

// validate reconciles the carrier payload against the order's own totals.
// Mismatches are collected as warnings; the caller decides whether a warning
// blocks checkout.
func validate(f domain.OrderFinancials, p CarrierPayload, itemTax float64) Validation {
	v := Validation{IsValid: true}

	// The carrier derives its total from its own fields; it must land on the
	// amount the customer is charged.
	carrierTotal := round2(p.SubTotal - p.Discount + p.ShippingCharges)
	if math.Abs(carrierTotal-f.Total) > tolerance {
		v.IsValid = false
		v.Warnings = append(v.Warnings, fmt.Sprintf(
			"carrier-derived total %.2f does not match order total %.2f", carrierTotal, f.Total))
	}

	var itemSum float64
	for _, it := range p.Items {
		itemSum += it.SellingPrice
	}
	itemSum = round2(itemSum)
	if math.Abs(itemSum-p.SubTotal) > tolerance {
		v.IsValid = false
		v.Warnings = append(v.Warnings, fmt.Sprintf(
			"carrier item sum %.2f does not match declared subtotal %.2f", itemSum, p.SubTotal))
	}

	// The declared subtotal is tax-inclusive, so it must equal the pre-tax
	// subtotal plus item tax.
	if math.Abs(p.SubTotal-round2(f.Subtotal+itemTax)) > tolerance {
		v.IsValid = false
		v.Warnings = append(v.Warnings, fmt.Sprintf(
			"declared subtotal %.2f does not match subtotal plus item tax %.2f", p.SubTotal, round2(f.Subtotal+itemTax)))
	}

	return v
}
