package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/saumyadesai17/maayaro-sub001/internal/service"
	"github.com/saumyadesai17/maayaro-sub001/pkg/httputil"
	"github.com/saumyadesai17/maayaro-sub001/pkg/validator"
)

// PaymentHandler handles HTTP requests for payment reconciliation.
type PaymentHandler struct {
	service *service.PaymentService
	logger  *slog.Logger
}

// NewPaymentHandler creates a new payment HTTP handler.
func NewPaymentHandler(svc *service.PaymentService, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// VerifyPaymentRequest is the JSON body the storefront posts back after the
// customer completes gateway checkout.
type VerifyPaymentRequest struct {
	GatewayOrderID   string `json:"gateway_order_id" validate:"required"`
	GatewayPaymentID string `json:"gateway_payment_id" validate:"required"`
	Signature        string `json:"signature" validate:"required"`
}

// PaymentFailureRequest reports an abandoned or declined gateway checkout.
type PaymentFailureRequest struct {
	GatewayOrderID string `json:"gateway_order_id"`
	Reason         string `json:"reason"`
}

// --- Handlers ---

// VerifyPayment handles POST /api/v1/payments/verify
func (h *PaymentHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req VerifyPaymentRequest
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

	payment, err := h.service.Verify(r.Context(), service.VerifyInput{
		UserID:           userID,
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		Signature:        req.Signature,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: payment})
}

// PaymentFailed handles POST /api/v1/payments/failed
func (h *PaymentHandler) PaymentFailed(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromRequest(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req PaymentFailureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := h.service.HandleFailure(r.Context(), service.FailureInput{
		UserID:         userID,
		GatewayOrderID: req.GatewayOrderID,
		Reason:         req.Reason,
	}); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"status": "recorded"}})
}

// GatewayWebhook handles POST /webhooks/payment
//
// The signature covers the raw body, so the body is read before any JSON
// decoding and passed through untouched.
func (h *PaymentHandler) GatewayWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "unreadable request body"},
		})
		return
	}

	signature := r.Header.Get("X-Webhook-Signature")

	if err := h.service.HandleWebhook(r.Context(), body, signature); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"status": "ok"}})
}
