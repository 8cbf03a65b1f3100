package policy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubStore struct {
	settings map[string]string
	err      error
}

func (s *stubStore) GetSettings(_ context.Context, _ []string) (map[string]string, error) {
	return s.settings, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResolve_Defaults(t *testing.T) {
	r := NewResolver(&stubStore{settings: map[string]string{}}, discardLogger())

	p := r.Resolve(context.Background())

	assert.InDelta(t, 18.0, p.TaxRatePercent, 0.001)
	assert.InDelta(t, 999.0, p.FreeShippingThreshold, 0.001)
	assert.InDelta(t, 150.0, p.StandardFee, 0.001)
	assert.InDelta(t, 250.0, p.ExpressFee, 0.001)
	assert.InDelta(t, 400.0, p.SameDayFee, 0.001)
}

func TestResolve_StoredOverrides(t *testing.T) {
	r := NewResolver(&stubStore{settings: map[string]string{
		KeyTaxRatePercent:        "12",
		KeyFreeShippingThreshold: "1500",
		KeyStandardFee:           "99",
	}}, discardLogger())

	p := r.Resolve(context.Background())

	assert.InDelta(t, 12.0, p.TaxRatePercent, 0.001)
	assert.InDelta(t, 1500.0, p.FreeShippingThreshold, 0.001)
	assert.InDelta(t, 99.0, p.StandardFee, 0.001)
	assert.InDelta(t, 250.0, p.ExpressFee, 0.001)
}

func TestResolve_InvalidValuesFallBack(t *testing.T) {
	r := NewResolver(&stubStore{settings: map[string]string{
		KeyTaxRatePercent: "eighteen",
		KeyStandardFee:    "-5",
	}}, discardLogger())

	p := r.Resolve(context.Background())

	assert.InDelta(t, 18.0, p.TaxRatePercent, 0.001)
	assert.InDelta(t, 150.0, p.StandardFee, 0.001)
}

func TestResolve_StoreErrorUsesDefaults(t *testing.T) {
	r := NewResolver(&stubStore{err: errors.New("connection refused")}, discardLogger())

	p := r.Resolve(context.Background())

	assert.Equal(t, Defaults(), p)
}
