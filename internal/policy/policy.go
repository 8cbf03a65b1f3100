// Package policy resolves the tax rate and shipping fee table from site
// settings, falling back to defaults when rows are missing or unparseable.
package policy

import (
	"context"
	"log/slog"
	"strconv"
)

// Default policy values used when site_settings has no valid override.
const (
	DefaultTaxRatePercent        = 18.0
	DefaultFreeShippingThreshold = 999.0
	DefaultStandardFee           = 150.0
	DefaultExpressFee            = 250.0
	DefaultSameDayFee            = 400.0
)

// Setting keys in site_settings.
const (
	KeyTaxRatePercent        = "tax_rate_percent"
	KeyFreeShippingThreshold = "free_shipping_threshold"
	KeyStandardFee           = "shipping_fee_standard"
	KeyExpressFee            = "shipping_fee_express"
	KeySameDayFee            = "shipping_fee_same_day"
)

// Policy is the resolved rate and fee table applied to a checkout.
type Policy struct {
	TaxRatePercent        float64
	FreeShippingThreshold float64
	StandardFee           float64
	ExpressFee            float64
	SameDayFee            float64
}

// Defaults returns the built-in policy.
func Defaults() Policy {
	return Policy{
		TaxRatePercent:        DefaultTaxRatePercent,
		FreeShippingThreshold: DefaultFreeShippingThreshold,
		StandardFee:           DefaultStandardFee,
		ExpressFee:            DefaultExpressFee,
		SameDayFee:            DefaultSameDayFee,
	}
}

// SettingsStore reads raw site settings. Missing keys are absent from the map.
type SettingsStore interface {
	GetSettings(ctx context.Context, keys []string) (map[string]string, error)
}

// Resolver resolves the active policy from stored settings.
type Resolver struct {
	store  SettingsStore
	logger *slog.Logger
}

// NewResolver creates a policy resolver.
func NewResolver(store SettingsStore, logger *slog.Logger) *Resolver {
	return &Resolver{store: store, logger: logger}
}

// Resolve returns the active policy. There is no failure mode beyond
// defaults: a store error logs a warning and returns the built-in values.
func (r *Resolver) Resolve(ctx context.Context) Policy {
	p := Defaults()

	settings, err := r.store.GetSettings(ctx, []string{
		KeyTaxRatePercent,
		KeyFreeShippingThreshold,
		KeyStandardFee,
		KeyExpressFee,
		KeySameDayFee,
	})
	if err != nil {
		r.logger.WarnContext(ctx, "failed to load site settings, using policy defaults",
			slog.String("error", err.Error()),
		)
		return p
	}

	p.TaxRatePercent = parseOrDefault(ctx, r.logger, settings, KeyTaxRatePercent, p.TaxRatePercent)
	p.FreeShippingThreshold = parseOrDefault(ctx, r.logger, settings, KeyFreeShippingThreshold, p.FreeShippingThreshold)
	p.StandardFee = parseOrDefault(ctx, r.logger, settings, KeyStandardFee, p.StandardFee)
	p.ExpressFee = parseOrDefault(ctx, r.logger, settings, KeyExpressFee, p.ExpressFee)
	p.SameDayFee = parseOrDefault(ctx, r.logger, settings, KeySameDayFee, p.SameDayFee)

	return p
}

func parseOrDefault(ctx context.Context, logger *slog.Logger, settings map[string]string, key string, fallback float64) float64 {
	raw, ok := settings[key]
	if !ok || raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		logger.WarnContext(ctx, "invalid site setting, using default",
			slog.String("key", key),
			slog.String("value", raw),
		)
		return fallback
	}
	return v
}
