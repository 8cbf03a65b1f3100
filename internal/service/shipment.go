package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/saumyadesai17/maayaro-sub001/internal/carrier"
	"github.com/saumyadesai17/maayaro-sub001/internal/domain"
	"github.com/saumyadesai17/maayaro-sub001/internal/event"
	"github.com/saumyadesai17/maayaro-sub001/internal/pricing"
	"github.com/saumyadesai17/maayaro-sub001/internal/repository"
	apperrors "github.com/saumyadesai17/maayaro-sub001/pkg/errors"
)

// CarrierClient is the slice of the carrier API the reconciler needs.
type CarrierClient interface {
	CreateShipment(ctx context.Context, req carrier.ShipmentRequest) (*carrier.ShipmentResponse, error)
	Track(ctx context.Context, carrierShipmentID string) (*domain.CarrierUpdate, error)
}

// ShipmentService registers shipments with the carrier and folds carrier
// status updates back onto shipments and orders.
type ShipmentService struct {
	shipments repository.ShipmentRepository
	orders    repository.OrderRepository
	addresses repository.AddressRepository
	carrier   CarrierClient
	producer  *event.Producer
	logger    *slog.Logger
}

// NewShipmentService creates the shipment reconciler.
func NewShipmentService(
	shipments repository.ShipmentRepository,
	orders repository.OrderRepository,
	addresses repository.AddressRepository,
	carrierClient CarrierClient,
	producer *event.Producer,
	logger *slog.Logger,
) *ShipmentService {
	return &ShipmentService{
		shipments: shipments,
		orders:    orders,
		addresses: addresses,
		carrier:   carrierClient,
		producer:  producer,
		logger:    logger,
	}
}

// shippableStatuses are the order statuses a shipment may be created from.
var shippableStatuses = []string{
	domain.OrderStatusPending,
	domain.OrderStatusConfirmed,
	domain.OrderStatusProcessing,
}

// CreateShipment registers the order with the carrier and records the
// returned references. Calling it again for the same order returns the
// existing shipment instead of registering twice.
//
// The carrier payload is rebuilt from the persisted line items, not from a
// fresh calculation: the items carry their tax-inclusive totals, which is
// the carrier's pricing convention.
func (s *ShipmentService) CreateShipment(ctx context.Context, orderID uuid.UUID, dims *pricing.Dimensions) (*domain.Shipment, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("order", orderID.String())
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	if !isShippable(order.Status) {
		return nil, apperrors.InvalidOrderStateForShipment(order.Status)
	}

	if existing, err := s.shipments.GetByOrderID(ctx, orderID); err == nil {
		return existing, nil
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("check existing shipment: %w", err)
	}

	payload, err := s.buildCarrierPayload(ctx, order, dims)
	if err != nil {
		return nil, err
	}

	resp, err := s.carrier.CreateShipment(ctx, carrier.ShipmentRequest{
		OrderNumber: order.OrderNumber,
		OrderDate:   order.CreatedAt,
		Payload:     *payload,
	})
	if err != nil {
		return nil, fmt.Errorf("register carrier shipment: %w", err)
	}

	shipment := &domain.Shipment{
		ID:                uuid.New(),
		OrderID:           order.ID,
		CarrierOrderID:    resp.CarrierOrderID,
		CarrierShipmentID: resp.CarrierShipmentID,
		AWBCode:           resp.AWBCode,
		CourierName:       resp.CourierName,
		Status:            domain.ShipmentStatusCreated,
	}
	if err := s.shipments.Create(ctx, shipment); err != nil {
		return nil, fmt.Errorf("persist shipment: %w", err)
	}

	// Orders still pending payment stay pending; confirmation moves them
	// forward later. No row updated is fine here.
	if updated, err := s.orders.UpdateStatusIf(ctx, order.ID, domain.OrderStatusProcessing,
		[]string{domain.OrderStatusConfirmed}); err != nil {
		s.logger.ErrorContext(ctx, "failed to move order to processing",
			slog.String("order_id", order.ID.String()),
			slog.String("error", err.Error()),
		)
	} else if updated {
		if err := s.producer.PublishOrderStatusChanged(ctx, order.ID.String(),
			domain.OrderStatusConfirmed, domain.OrderStatusProcessing); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish order.status_changed event",
				slog.String("order_id", order.ID.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.producer.PublishShipmentCreated(ctx, shipment); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish shipment.created event",
			slog.String("shipment_id", shipment.ID.String()),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "shipment created",
		slog.String("shipment_id", shipment.ID.String()),
		slog.String("order_id", order.ID.String()),
		slog.String("carrier_shipment_id", shipment.CarrierShipmentID),
		slog.String("awb_code", shipment.AWBCode),
	)
	return shipment, nil
}

// ApplyCarrierUpdate folds one carrier notification into the shipment: the
// derived status is written as an idempotent set and the raw update is
// appended to the tracking log. A delivered shipment cascades the order to
// delivered.
func (s *ShipmentService) ApplyCarrierUpdate(ctx context.Context, update *domain.CarrierUpdate) (*domain.Shipment, error) {
	shipment, err := s.shipments.GetByCarrierShipmentID(ctx, update.CarrierShipmentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("shipment", update.CarrierShipmentID)
		}
		return nil, fmt.Errorf("find shipment: %w", err)
	}
	return s.applyUpdate(ctx, shipment, update)
}

// Track polls the carrier for the shipment's current state and folds the
// result through the same path a webhook takes.
func (s *ShipmentService) Track(ctx context.Context, shipmentID uuid.UUID) (*domain.Shipment, error) {
	shipment, err := s.shipments.GetByID(ctx, shipmentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("shipment", shipmentID.String())
		}
		return nil, fmt.Errorf("get shipment: %w", err)
	}
	if shipment.CarrierShipmentID == "" {
		return nil, apperrors.Conflict("shipment has no carrier reference")
	}

	update, err := s.carrier.Track(ctx, shipment.CarrierShipmentID)
	if err != nil {
		return nil, fmt.Errorf("track shipment: %w", err)
	}
	return s.applyUpdate(ctx, shipment, update)
}

// GetShipment returns a shipment with its full tracking log.
func (s *ShipmentService) GetShipment(ctx context.Context, shipmentID uuid.UUID) (*domain.Shipment, error) {
	shipment, err := s.shipments.GetByID(ctx, shipmentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("shipment", shipmentID.String())
		}
		return nil, fmt.Errorf("get shipment: %w", err)
	}
	return s.withTracking(ctx, shipment)
}

// GetShipmentForOrder returns the order's shipment with its tracking log.
func (s *ShipmentService) GetShipmentForOrder(ctx context.Context, orderID uuid.UUID) (*domain.Shipment, error) {
	shipment, err := s.shipments.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("shipment", orderID.String())
		}
		return nil, fmt.Errorf("get shipment: %w", err)
	}
	return s.withTracking(ctx, shipment)
}

func (s *ShipmentService) applyUpdate(ctx context.Context, shipment *domain.Shipment, update *domain.CarrierUpdate) (*domain.Shipment, error) {
	newStatus := update.DeriveStatus(shipment.Status)
	if newStatus != shipment.Status {
		if err := s.shipments.UpdateStatus(ctx, shipment.ID, newStatus); err != nil {
			return nil, fmt.Errorf("update shipment status: %w", err)
		}
		shipment.Status = newStatus
	}

	occurred := time.Now().UTC()
	if update.PickupDate != nil {
		occurred = *update.PickupDate
	}
	entry := &domain.TrackingUpdate{
		ShipmentID: shipment.ID,
		Status:     newStatus,
		Location:   update.Location,
		Remarks:    update.Remarks,
		Payload:    update.Raw,
		OccurredAt: occurred,
	}
	if err := s.shipments.AppendTracking(ctx, entry); err != nil {
		return nil, fmt.Errorf("append tracking entry: %w", err)
	}

	if newStatus == domain.ShipmentStatusDelivered {
		s.cascadeDelivered(ctx, shipment)
	}

	return s.withTracking(ctx, shipment)
}

// cascadeDelivered moves the order to delivered. The conditional update
// makes repeat deliveries of the same carrier notification a no-op.
func (s *ShipmentService) cascadeDelivered(ctx context.Context, shipment *domain.Shipment) {
	updated, err := s.orders.UpdateStatusIf(ctx, shipment.OrderID, domain.OrderStatusDelivered,
		[]string{domain.OrderStatusProcessing, domain.OrderStatusShipped})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to cascade delivery to order",
			slog.String("order_id", shipment.OrderID.String()),
			slog.String("error", err.Error()),
		)
		return
	}
	if !updated {
		return
	}
	if err := s.producer.PublishOrderStatusChanged(ctx, shipment.OrderID.String(),
		domain.OrderStatusShipped, domain.OrderStatusDelivered); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.status_changed event",
			slog.String("order_id", shipment.OrderID.String()),
			slog.String("error", err.Error()),
		)
	}
	if err := s.producer.PublishShipmentDelivered(ctx, shipment); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish shipment.delivered event",
			slog.String("shipment_id", shipment.ID.String()),
			slog.String("error", err.Error()),
		)
	}
}

func (s *ShipmentService) withTracking(ctx context.Context, shipment *domain.Shipment) (*domain.Shipment, error) {
	updates, err := s.shipments.ListTracking(ctx, shipment.ID)
	if err != nil {
		return nil, fmt.Errorf("list tracking updates: %w", err)
	}
	shipment.TrackingUpdates = updates
	return shipment, nil
}

func (s *ShipmentService) buildCarrierPayload(ctx context.Context, order *domain.Order, dims *pricing.Dimensions) (*pricing.CarrierPayload, error) {
	items := order.Items
	if len(items) == 0 {
		loaded, err := s.orders.GetItems(ctx, order.ID)
		if err != nil {
			return nil, fmt.Errorf("load order items: %w", err)
		}
		items = loaded
	}
	if len(items) == 0 {
		return nil, apperrors.Conflict("order has no line items")
	}

	carrierItems := make([]pricing.CarrierItem, len(items))
	subTotal := 0.0
	for i, item := range items {
		carrierItems[i] = pricing.CarrierItem{
			Name:         item.Name,
			SKU:          item.SKU,
			Units:        item.Quantity,
			SellingPrice: item.TotalWithTax,
			GSTPercent:   item.GSTRatePercent,
		}
		subTotal += item.TotalWithTax
	}

	shipping, err := s.addresses.GetOwned(ctx, order.ShippingAddressID, order.UserID)
	if err != nil {
		return nil, fmt.Errorf("resolve shipping address: %w", err)
	}
	billing := shipping
	if order.BillingAddressID != order.ShippingAddressID {
		billing, err = s.addresses.GetOwned(ctx, order.BillingAddressID, order.UserID)
		if err != nil {
			return nil, fmt.Errorf("resolve billing address: %w", err)
		}
	}

	return &pricing.CarrierPayload{
		Items:           carrierItems,
		SubTotal:        pricing.Round2(subTotal),
		Discount:        order.Financials.Discount,
		ShippingCharges: order.Financials.ShippingFee,
		PaymentMethod:   order.PaymentMethod,
		ShippingAddress: *shipping,
		BillingAddress:  *billing,
		Dimensions:      dims,
	}, nil
}

func isShippable(status string) bool {
	for _, s := range shippableStatuses {
		if s == status {
			return true
		}
	}
	return false
}
