package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/saumyadesai17/maayaro-sub001/internal/domain"
	"github.com/saumyadesai17/maayaro-sub001/internal/pricing"
	"github.com/saumyadesai17/maayaro-sub001/internal/service"
	"github.com/saumyadesai17/maayaro-sub001/pkg/httputil"
	"github.com/saumyadesai17/maayaro-sub001/pkg/validator"
)

// ShipmentHandler handles HTTP requests for shipment endpoints.
type ShipmentHandler struct {
	service *service.ShipmentService
	logger  *slog.Logger
}

// NewShipmentHandler creates a new shipment HTTP handler.
func NewShipmentHandler(svc *service.ShipmentService, logger *slog.Logger) *ShipmentHandler {
	return &ShipmentHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateShipmentRequest is the JSON request body for registering an order
// with the carrier.
type CreateShipmentRequest struct {
	OrderID    string             `json:"order_id" validate:"required,uuid"`
	Dimensions *DimensionsRequest `json:"dimensions"`
}

// CarrierWebhookRequest is the carrier's status notification body.
type CarrierWebhookRequest struct {
	ShipmentID    string `json:"shipment_id" validate:"required"`
	CurrentStatus string `json:"current_status"`
	Delivered     bool   `json:"delivered"`
	RTO           bool   `json:"rto"`
	PickupDate    string `json:"pickup_date"`
	Location      string `json:"location"`
	Remarks       string `json:"remarks"`
}

// --- Handlers ---

// CreateShipment handles POST /api/v1/shipments
func (h *ShipmentHandler) CreateShipment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateShipmentRequest
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

	orderID, ok := httputil.ParseUUID(w, req.OrderID)
	if !ok {
		return
	}

	var dims *pricing.Dimensions
	if req.Dimensions != nil {
		dims = &pricing.Dimensions{
			Length:  req.Dimensions.Length,
			Breadth: req.Dimensions.Breadth,
			Height:  req.Dimensions.Height,
			Weight:  req.Dimensions.Weight,
		}
	}

	shipment, err := h.service.CreateShipment(r.Context(), orderID, dims)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: shipment})
}

// GetShipment handles GET /api/v1/shipments/{id}
func (h *ShipmentHandler) GetShipment(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	shipment, err := h.service.GetShipment(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: shipment})
}

// TrackShipment handles POST /api/v1/shipments/{id}/track
func (h *ShipmentHandler) TrackShipment(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	shipment, err := h.service.Track(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: shipment})
}

// CarrierWebhook handles POST /webhooks/carrier
func (h *ShipmentHandler) CarrierWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CarrierWebhookRequest
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

	update := &domain.CarrierUpdate{
		CarrierShipmentID: req.ShipmentID,
		CurrentStatus:     req.CurrentStatus,
		Delivered:         req.Delivered,
		RTO:               req.RTO,
		Location:          req.Location,
		Remarks:           req.Remarks,
	}
	if req.PickupDate != "" {
		if t, err := time.Parse("2006-01-02 15:04:05", req.PickupDate); err == nil {
			update.PickupDate = &t
		}
	}
	if payload, err := json.Marshal(req); err == nil {
		update.Raw = payload
	}

	shipment, err := h.service.ApplyCarrierUpdate(r.Context(), update)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: shipment})
}
