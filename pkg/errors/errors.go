package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard sentinel errors for common cases.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrAlreadyExists     = errors.New("resource already exists")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrInternal          = errors.New("internal error")
	ErrConflict          = errors.New("conflict")
	ErrStateConflict     = errors.New("state conflict")
	ErrServiceUnavail    = errors.New("service unavailable")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidSignature  = errors.New("invalid signature")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// Forbidden creates a 403 error.
func Forbidden(message string) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     ErrForbidden,
	}
}

// Conflict creates a 409 error.
func Conflict(message string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     ErrConflict,
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// InvalidPrice creates a 422 error for a cart line whose price cannot be resolved.
func InvalidPrice(variantID string) *AppError {
	return &AppError{
		Code:    "INVALID_PRICE",
		Message: fmt.Sprintf("no numeric price available for variant %s", variantID),
		Status:  http.StatusUnprocessableEntity,
		Err:     ErrInvalidInput,
	}
}

// InsufficientStock creates a 409 error for a cart line exceeding available stock.
func InsufficientStock(variantID string, requested, available int) *AppError {
	return &AppError{
		Code:    "INSUFFICIENT_STOCK",
		Message: fmt.Sprintf("variant %s: requested %d but only %d in stock", variantID, requested, available),
		Status:  http.StatusConflict,
		Err:     ErrInsufficientStock,
	}
}

// DiscountExceedsTotal creates a 422 error for an over-large discount.
func DiscountExceedsTotal(discount, maximum float64) *AppError {
	return &AppError{
		Code:    "DISCOUNT_EXCEEDS_TOTAL",
		Message: fmt.Sprintf("discount %.2f exceeds order total %.2f", discount, maximum),
		Status:  http.StatusUnprocessableEntity,
		Err:     ErrInvalidInput,
	}
}

// InvalidSignature creates a 401 error for a failed gateway signature check.
func InvalidSignature(message string) *AppError {
	return &AppError{
		Code:    "INVALID_SIGNATURE",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrInvalidSignature,
	}
}

// StateConflict creates a 409 error for a status transition that is not
// allowed from the current state.
func StateConflict(entity, from, to string) *AppError {
	return &AppError{
		Code:    "STATE_CONFLICT",
		Message: fmt.Sprintf("%s cannot transition from %q to %q", entity, from, to),
		Status:  http.StatusConflict,
		Err:     ErrStateConflict,
	}
}

// InvalidOrderStateForShipment creates a 409 error for shipment creation
// against an order that is already past fulfillment or terminal.
func InvalidOrderStateForShipment(status string) *AppError {
	return &AppError{
		Code:    "INVALID_ORDER_STATE_FOR_SHIPMENT",
		Message: fmt.Sprintf("order in status %q cannot be shipped", status),
		Status:  http.StatusConflict,
		Err:     ErrStateConflict,
	}
}

// DependencyUnavailable creates a 502 error for an unreachable gateway or carrier.
func DependencyUnavailable(dependency string, err error) *AppError {
	return &AppError{
		Code:    "DEPENDENCY_UNAVAILABLE",
		Message: fmt.Sprintf("%s is unavailable", dependency),
		Status:  http.StatusBadGateway,
		Err:     fmt.Errorf("%s: %w", dependency, err),
	}
}

// ServiceUnavailable creates a 503 error.
func ServiceUnavailable(message string) *AppError {
	return &AppError{
		Code:    "SERVICE_UNAVAILABLE",
		Message: message,
		Status:  http.StatusServiceUnavailable,
		Err:     ErrServiceUnavail,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrConflict),
		errors.Is(err, ErrStateConflict), errors.Is(err, ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidSignature):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrServiceUnavail):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
