package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Sentinel error identity ---

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound, ErrAlreadyExists, ErrInvalidInput, ErrUnauthorized,
		ErrForbidden, ErrInternal, ErrConflict, ErrStateConflict,
		ErrServiceUnavail, ErrInsufficientStock, ErrInvalidSignature,
	}

	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotEqual(t, sentinels[i], sentinels[j],
				"sentinels %d and %d should be distinct", i, j)
		}
	}
}

// --- AppError behavior ---

func TestAppError_ErrorString_WithWrappedError(t *testing.T) {
	inner := fmt.Errorf("db connection lost")
	appErr := &AppError{Code: "INTERNAL_ERROR", Message: "something broke", Err: inner}
	assert.Contains(t, appErr.Error(), "INTERNAL_ERROR")
	assert.Contains(t, appErr.Error(), "something broke")
	assert.Contains(t, appErr.Error(), "db connection lost")
}

func TestAppError_ErrorString_WithoutWrappedError(t *testing.T) {
	appErr := &AppError{Code: "NOT_FOUND", Message: "order not found"}
	assert.Equal(t, "NOT_FOUND: order not found", appErr.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	appErr := &AppError{Code: "NOT_FOUND", Message: "nope", Err: ErrNotFound}
	assert.True(t, errors.Is(appErr, ErrNotFound))
}

func TestAppError_Unwrap_Nil(t *testing.T) {
	appErr := &AppError{Code: "TEST", Message: "test"}
	assert.Nil(t, appErr.Unwrap())
}

// --- Constructor functions ---

func TestNotFound(t *testing.T) {
	err := NotFound("order", "abc-123")
	require.NotNil(t, err)
	assert.Equal(t, "NOT_FOUND", err.Code)
	assert.Contains(t, err.Message, "order")
	assert.Contains(t, err.Message, "abc-123")
	assert.Equal(t, http.StatusNotFound, err.Status)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestInvalidInput(t *testing.T) {
	err := InvalidInput("shipping method is required")
	require.NotNil(t, err)
	assert.Equal(t, "INVALID_INPUT", err.Code)
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestInsufficientStock(t *testing.T) {
	err := InsufficientStock("var-001", 5, 2)
	require.NotNil(t, err)
	assert.Equal(t, "INSUFFICIENT_STOCK", err.Code)
	assert.Contains(t, err.Message, "var-001")
	assert.Contains(t, err.Message, "requested 5")
	assert.Contains(t, err.Message, "only 2")
	assert.Equal(t, http.StatusConflict, err.Status)
	assert.True(t, errors.Is(err, ErrInsufficientStock))
}

func TestInvalidPrice(t *testing.T) {
	err := InvalidPrice("var-002")
	require.NotNil(t, err)
	assert.Equal(t, "INVALID_PRICE", err.Code)
	assert.Contains(t, err.Message, "var-002")
	assert.Equal(t, http.StatusUnprocessableEntity, err.Status)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestDiscountExceedsTotal(t *testing.T) {
	err := DiscountExceedsTotal(3000, 2510)
	require.NotNil(t, err)
	assert.Equal(t, "DISCOUNT_EXCEEDS_TOTAL", err.Code)
	assert.Contains(t, err.Message, "3000.00")
	assert.Contains(t, err.Message, "2510.00")
	assert.Equal(t, http.StatusUnprocessableEntity, err.Status)
}

func TestInvalidSignature(t *testing.T) {
	err := InvalidSignature("payment signature mismatch")
	require.NotNil(t, err)
	assert.Equal(t, "INVALID_SIGNATURE", err.Code)
	assert.Equal(t, http.StatusUnauthorized, err.Status)
	assert.True(t, errors.Is(err, ErrInvalidSignature))
}

func TestStateConflict(t *testing.T) {
	err := StateConflict("order", "cancelled", "confirmed")
	require.NotNil(t, err)
	assert.Equal(t, "STATE_CONFLICT", err.Code)
	assert.Contains(t, err.Message, `"cancelled"`)
	assert.Contains(t, err.Message, `"confirmed"`)
	assert.Equal(t, http.StatusConflict, err.Status)
	assert.True(t, errors.Is(err, ErrStateConflict))
}

func TestInvalidOrderStateForShipment(t *testing.T) {
	err := InvalidOrderStateForShipment("delivered")
	require.NotNil(t, err)
	assert.Equal(t, "INVALID_ORDER_STATE_FOR_SHIPMENT", err.Code)
	assert.Contains(t, err.Message, `"delivered"`)
	assert.Equal(t, http.StatusConflict, err.Status)
	assert.True(t, errors.Is(err, ErrStateConflict))
}

func TestDependencyUnavailable(t *testing.T) {
	inner := errors.New("connection refused")
	err := DependencyUnavailable("payment gateway", inner)
	require.NotNil(t, err)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", err.Code)
	assert.Equal(t, http.StatusBadGateway, err.Status)
	assert.True(t, errors.Is(err, inner))
}

// --- HTTPStatus mapping ---

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error uses its status", Conflict("dup"), http.StatusConflict},
		{"wrapped app error", fmt.Errorf("outer: %w", NotFound("order", "x")), http.StatusNotFound},
		{"not found sentinel", ErrNotFound, http.StatusNotFound},
		{"state conflict sentinel", fmt.Errorf("cascade: %w", ErrStateConflict), http.StatusConflict},
		{"insufficient stock sentinel", ErrInsufficientStock, http.StatusConflict},
		{"invalid signature sentinel", ErrInvalidSignature, http.StatusUnauthorized},
		{"invalid input sentinel", ErrInvalidInput, http.StatusBadRequest},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
