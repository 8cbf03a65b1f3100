// Package event publishes the engine's domain events to Kafka. Publish
// failures are wrapped and returned; callers log them and carry on, an event
// stream hiccup never fails an order.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/saumyadesai17/maayaro-sub001/internal/domain"
	pkgkafka "github.com/saumyadesai17/maayaro-sub001/pkg/kafka"
)

// Kafka topics for the order engine's domain events.
const (
	TopicOrderCreated       = "maayaro.order.created"
	TopicOrderStatusChanged = "maayaro.order.status_changed"
	TopicPaymentCaptured    = "maayaro.payment.captured"
	TopicPaymentFailed      = "maayaro.payment.failed"
	TopicPaymentRefunded    = "maayaro.payment.refunded"
	TopicShipmentCreated    = "maayaro.shipment.created"
	TopicShipmentDelivered  = "maayaro.shipment.delivered"
)

// Aggregate type constants.
const (
	AggregateTypeOrder    = "order"
	AggregateTypePayment  = "payment"
	AggregateTypeShipment = "shipment"
)

// Source identifier for events originating from this service.
const SourceOrderEngine = "order-engine"

// OrderCreatedData is the payload for an order.created event.
type OrderCreatedData struct {
	ID          string                 `json:"id"`
	OrderNumber string                 `json:"order_number"`
	UserID      string                 `json:"user_id"`
	Status      string                 `json:"status"`
	Financials  domain.OrderFinancials `json:"financials"`
	Items       []OrderItemData        `json:"items"`
}

// OrderItemData is the event payload for an order line.
type OrderItemData struct {
	VariantID      string  `json:"variant_id"`
	Name           string  `json:"name"`
	SKU            string  `json:"sku"`
	Quantity       int     `json:"quantity"`
	UnitPrice      float64 `json:"unit_price"`
	TotalWithTax   float64 `json:"total_with_tax"`
	GSTRatePercent float64 `json:"gst_rate_percent"`
}

// OrderStatusChangedData is the payload for an order.status_changed event.
type OrderStatusChangedData struct {
	OrderID   string `json:"order_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// PaymentEventData is the payload for payment.* events.
type PaymentEventData struct {
	PaymentID        string  `json:"payment_id"`
	OrderID          string  `json:"order_id"`
	GatewayOrderID   string  `json:"gateway_order_id,omitempty"`
	GatewayPaymentID string  `json:"gateway_payment_id,omitempty"`
	Amount           float64 `json:"amount"`
	Status           string  `json:"status"`
	Reason           string  `json:"reason,omitempty"`
}

// ShipmentEventData is the payload for shipment.* events.
type ShipmentEventData struct {
	ShipmentID        string `json:"shipment_id"`
	OrderID           string `json:"order_id"`
	CarrierShipmentID string `json:"carrier_shipment_id,omitempty"`
	AWBCode           string `json:"awb_code,omitempty"`
	CourierName       string `json:"courier_name,omitempty"`
	Status            string `json:"status"`
}

// Producer publishes domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceOrderEngine, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	return nil
}

// PublishOrderCreated publishes an order.created event with the full order
// snapshot.
func (p *Producer) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	items := make([]OrderItemData, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderItemData{
			VariantID:      item.VariantID.String(),
			Name:           item.Name,
			SKU:            item.SKU,
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice,
			TotalWithTax:   item.TotalWithTax,
			GSTRatePercent: item.GSTRatePercent,
		}
	}

	data := OrderCreatedData{
		ID:          order.ID.String(),
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID.String(),
		Status:      order.Status,
		Financials:  order.Financials,
		Items:       items,
	}

	return p.publish(ctx, TopicOrderCreated, data.ID, AggregateTypeOrder, data)
}

// PublishOrderStatusChanged publishes an order.status_changed event.
func (p *Producer) PublishOrderStatusChanged(ctx context.Context, orderID, oldStatus, newStatus string) error {
	return p.publish(ctx, TopicOrderStatusChanged, orderID, AggregateTypeOrder, OrderStatusChangedData{
		OrderID:   orderID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
	})
}

// PublishPaymentCaptured publishes a payment.captured event.
func (p *Producer) PublishPaymentCaptured(ctx context.Context, payment *domain.Payment) error {
	return p.publish(ctx, TopicPaymentCaptured, payment.ID.String(), AggregateTypePayment, paymentData(payment, ""))
}

// PublishPaymentFailed publishes a payment.failed event.
func (p *Producer) PublishPaymentFailed(ctx context.Context, payment *domain.Payment, reason string) error {
	return p.publish(ctx, TopicPaymentFailed, payment.ID.String(), AggregateTypePayment, paymentData(payment, reason))
}

// PublishPaymentRefunded publishes a payment.refunded event.
func (p *Producer) PublishPaymentRefunded(ctx context.Context, payment *domain.Payment) error {
	return p.publish(ctx, TopicPaymentRefunded, payment.ID.String(), AggregateTypePayment, paymentData(payment, ""))
}

// PublishShipmentCreated publishes a shipment.created event.
func (p *Producer) PublishShipmentCreated(ctx context.Context, shipment *domain.Shipment) error {
	return p.publish(ctx, TopicShipmentCreated, shipment.ID.String(), AggregateTypeShipment, shipmentData(shipment))
}

// PublishShipmentDelivered publishes a shipment.delivered event.
func (p *Producer) PublishShipmentDelivered(ctx context.Context, shipment *domain.Shipment) error {
	return p.publish(ctx, TopicShipmentDelivered, shipment.ID.String(), AggregateTypeShipment, shipmentData(shipment))
}

func paymentData(payment *domain.Payment, reason string) PaymentEventData {
	return PaymentEventData{
		PaymentID:        payment.ID.String(),
		OrderID:          payment.OrderID.String(),
		GatewayOrderID:   payment.GatewayOrderID,
		GatewayPaymentID: payment.GatewayPaymentID,
		Amount:           payment.Amount,
		Status:           payment.Status,
		Reason:           reason,
	}
}

func shipmentData(shipment *domain.Shipment) ShipmentEventData {
	return ShipmentEventData{
		ShipmentID:        shipment.ID.String(),
		OrderID:           shipment.OrderID.String(),
		CarrierShipmentID: shipment.CarrierShipmentID,
		AWBCode:           shipment.AWBCode,
		CourierName:       shipment.CourierName,
		Status:            shipment.Status,
	}
}
