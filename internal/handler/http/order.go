package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/saumyadesai17/maayaro-sub001/internal/pricing"
	"github.com/saumyadesai17/maayaro-sub001/internal/repository"
	"github.com/saumyadesai17/maayaro-sub001/internal/service"
	"github.com/saumyadesai17/maayaro-sub001/pkg/httputil"
	"github.com/saumyadesai17/maayaro-sub001/pkg/validator"
)

// OrderHandler handles HTTP requests for checkout and order endpoints.
type OrderHandler struct {
	service *service.OrderService
	logger  *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(svc *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// DimensionsRequest is the optional parcel dimensions block.
type DimensionsRequest struct {
	Length  float64 `json:"length" validate:"gte=0"`
	Breadth float64 `json:"breadth" validate:"gte=0"`
	Height  float64 `json:"height" validate:"gte=0"`
	Weight  float64 `json:"weight" validate:"gte=0"`
}

// CheckoutRequest is the JSON request body for placing an order from the
// current cart.
type CheckoutRequest struct {
	ShippingMethod    string             `json:"shipping_method" validate:"required,oneof=standard express same-day"`
	PaymentMethod     string             `json:"payment_method" validate:"required,oneof=prepaid cod"`
	Discount          float64            `json:"discount" validate:"gte=0"`
	ShippingAddressID string             `json:"shipping_address_id" validate:"omitempty,uuid"`
	BillingAddressID  string             `json:"billing_address_id" validate:"required,uuid"`
	ShippingIsBilling bool               `json:"shipping_is_billing"`
	Dimensions        *DimensionsRequest `json:"dimensions"`
}

func (req CheckoutRequest) toInput(userID uuid.UUID) (service.PlaceOrderInput, error) {
	input := service.PlaceOrderInput{
		UserID:            userID,
		ShippingMethod:    req.ShippingMethod,
		PaymentMethod:     req.PaymentMethod,
		Discount:          req.Discount,
		ShippingIsBilling: req.ShippingIsBilling,
	}
	billingID, err := uuid.Parse(req.BillingAddressID)
	if err != nil {
		return input, err
	}
	input.BillingAddressID = billingID
	if !req.ShippingIsBilling {
		shippingID, err := uuid.Parse(req.ShippingAddressID)
		if err != nil {
			return input, err
		}
		input.ShippingAddressID = shippingID
	}
	if req.Dimensions != nil {
		input.Dimensions = &pricing.Dimensions{
			Length:  req.Dimensions.Length,
			Breadth: req.Dimensions.Breadth,
			Height:  req.Dimensions.Height,
			Weight:  req.Dimensions.Weight,
		}
	}
	return input, nil
}

// --- Handlers ---

// Checkout handles POST /api/v1/checkout
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(w, r)
	if !ok {
		return
	}

	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	input, err := req.toInput(userID)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid address id: " + err.Error()},
		})
		return
	}

	result, err := h.service.PlaceOrder(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: result})
}

// Quote handles POST /api/v1/checkout/quote
func (h *OrderHandler) Quote(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	input, err := req.toInput(userID)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid address id: " + err.Error()},
		})
		return
	}

	result, err := h.service.Quote(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// ListOrders handles GET /api/v1/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(w, r)
	if !ok {
		return
	}

	filter := repository.OrderFilter{
		UserID:  &userID,
		Page:    1,
		PerPage: 20,
	}

	if v := r.URL.Query().Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "page must be a valid positive integer"},
			})
			return
		}
		filter.Page = page
	}
	if v := r.URL.Query().Get("per_page"); v != "" {
		perPage, err := strconv.Atoi(v)
		if err != nil || perPage < 1 || perPage > 100 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "per_page must be a valid integer between 1 and 100"},
			})
			return
		}
		filter.PerPage = perPage
	}
	if v := r.URL.Query().Get("status"); v != "" {
		filter.Status = &v
	}

	orders, total, err := h.service.ListOrders(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(orders, total, filter.Page, filter.PerPage))
}

// GetOrder handles GET /api/v1/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(w, r)
	if !ok {
		return
	}

	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	order, err := h.service.GetOrder(r.Context(), id, userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}
