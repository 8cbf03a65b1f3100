package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/saumyadesai17/maayaro-sub001/internal/domain"
	"github.com/saumyadesai17/maayaro-sub001/internal/event"
	"github.com/saumyadesai17/maayaro-sub001/internal/repository"
	apperrors "github.com/saumyadesai17/maayaro-sub001/pkg/errors"
)

// SignatureVerifier checks gateway signatures. Satisfied by gateway.Client.
type SignatureVerifier interface {
	VerifyPaymentSignature(gatewayOrderID, gatewayPaymentID, signature string) bool
	VerifyWebhookSignature(body []byte, signature string) bool
}

// PaymentService reconciles gateway notifications against stored payments.
type PaymentService struct {
	payments repository.PaymentRepository
	orders   repository.OrderRepository
	variants repository.VariantRepository
	cart     repository.CartStore
	verifier SignatureVerifier
	producer *event.Producer
	logger   *slog.Logger
}

// NewPaymentService creates the payment reconciler.
func NewPaymentService(
	payments repository.PaymentRepository,
	orders repository.OrderRepository,
	variants repository.VariantRepository,
	cart repository.CartStore,
	verifier SignatureVerifier,
	producer *event.Producer,
	logger *slog.Logger,
) *PaymentService {
	return &PaymentService{
		payments: payments,
		orders:   orders,
		variants: variants,
		cart:     cart,
		verifier: verifier,
		producer: producer,
		logger:   logger,
	}
}

// VerifyInput are the parameters the storefront posts back after the
// customer completes gateway checkout.
type VerifyInput struct {
	UserID           uuid.UUID
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// Verify authenticates the gateway callback and captures the payment.
//
// Discovery runs three paths in order: the payment holding the gateway
// order reference, then the latest payment of the user's latest order, then
// a payment created on the spot from the order's total. The record can be
// missing because the placeholder insert at checkout is not fatal.
func (s *PaymentService) Verify(ctx context.Context, input VerifyInput) (*domain.Payment, error) {
	if !s.verifier.VerifyPaymentSignature(input.GatewayOrderID, input.GatewayPaymentID, input.Signature) {
		return nil, apperrors.InvalidSignature("payment signature verification failed")
	}

	payment, err := s.discoverPayment(ctx, input)
	if err != nil {
		return nil, err
	}

	// Duplicate callback for an already captured payment is a no-op.
	if payment.Status == domain.PaymentStatusCaptured && payment.GatewayPaymentID == input.GatewayPaymentID {
		return payment, nil
	}
	if payment.Status == domain.PaymentStatusRefunded {
		return nil, apperrors.StateConflict("payment", payment.Status, domain.PaymentStatusCaptured)
	}

	if err := s.payments.Capture(ctx, payment.ID, input.GatewayOrderID, input.GatewayPaymentID, input.Signature); err != nil {
		return nil, fmt.Errorf("capture payment: %w", err)
	}
	payment.Status = domain.PaymentStatusCaptured
	payment.GatewayOrderID = input.GatewayOrderID
	payment.GatewayPaymentID = input.GatewayPaymentID
	payment.FailureReason = ""

	if err := s.cascadeOrder(ctx, payment.OrderID, domain.OrderStatusConfirmed, []string{domain.OrderStatusPending}); err != nil {
		return nil, err
	}

	if err := s.cart.Clear(ctx, input.UserID); err != nil {
		s.logger.WarnContext(ctx, "failed to clear cart after capture",
			slog.String("user_id", input.UserID.String()),
			slog.String("error", err.Error()),
		)
	}

	if err := s.producer.PublishPaymentCaptured(ctx, payment); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish payment.captured event",
			slog.String("payment_id", payment.ID.String()),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "payment captured",
		slog.String("payment_id", payment.ID.String()),
		slog.String("order_id", payment.OrderID.String()),
		slog.String("gateway_payment_id", input.GatewayPaymentID),
	)
	return payment, nil
}

// FailureInput reports an abandoned or declined gateway checkout.
type FailureInput struct {
	UserID         uuid.UUID
	GatewayOrderID string
	Reason         string
}

// HandleFailure marks the payment failed and cancels the order, restoring
// the stock that checkout decremented. Stock is restored only when this
// call actually performed the cancellation, so duplicates cannot restore
// twice.
func (s *PaymentService) HandleFailure(ctx context.Context, input FailureInput) error {
	payment, err := s.discoverPayment(ctx, VerifyInput{UserID: input.UserID, GatewayOrderID: input.GatewayOrderID})
	if err != nil {
		return err
	}
	return s.failPayment(ctx, payment, input.Reason)
}

// gatewayWebhookEvent is the envelope the gateway posts to the webhook.
type gatewayWebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				Amount           int64  `json:"amount"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// HandleWebhook authenticates and applies one gateway webhook delivery. The
// signature covers the raw body, so it must be verified before any parsing.
// Unknown event types are acknowledged and logged, not failed, or the
// gateway would retry them forever.
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !s.verifier.VerifyWebhookSignature(body, signature) {
		return apperrors.InvalidSignature("webhook signature verification failed")
	}

	var evt gatewayWebhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return apperrors.InvalidInput("malformed webhook payload")
	}
	entity := evt.Payload.Payment.Entity

	switch evt.Event {
	case "payment.captured":
		return s.applyWebhookCapture(ctx, entity.OrderID, entity.ID, signature)
	case "payment.failed":
		payment, err := s.payments.GetByGatewayOrderID(ctx, entity.OrderID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				s.logger.WarnContext(ctx, "webhook for unknown gateway order",
					slog.String("event", evt.Event),
					slog.String("gateway_order_id", entity.OrderID),
				)
				return nil
			}
			return fmt.Errorf("find payment: %w", err)
		}
		return s.failPayment(ctx, payment, entity.ErrorDescription)
	case "refund.created":
		return s.applyWebhookRefund(ctx, entity.OrderID)
	default:
		s.logger.InfoContext(ctx, "ignoring unhandled webhook event", slog.String("event", evt.Event))
		return nil
	}
}

func (s *PaymentService) applyWebhookCapture(ctx context.Context, gatewayOrderID, gatewayPaymentID, signature string) error {
	payment, err := s.payments.GetByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "capture webhook for unknown gateway order",
				slog.String("gateway_order_id", gatewayOrderID),
			)
			return nil
		}
		return fmt.Errorf("find payment: %w", err)
	}

	if payment.Status == domain.PaymentStatusCaptured && payment.GatewayPaymentID == gatewayPaymentID {
		return nil
	}
	if payment.Status == domain.PaymentStatusRefunded {
		return apperrors.StateConflict("payment", payment.Status, domain.PaymentStatusCaptured)
	}

	if err := s.payments.Capture(ctx, payment.ID, gatewayOrderID, gatewayPaymentID, signature); err != nil {
		return fmt.Errorf("capture payment: %w", err)
	}
	payment.Status = domain.PaymentStatusCaptured
	payment.GatewayPaymentID = gatewayPaymentID

	if err := s.cascadeOrder(ctx, payment.OrderID, domain.OrderStatusConfirmed, []string{domain.OrderStatusPending}); err != nil {
		return err
	}

	if order, err := s.orders.GetByID(ctx, payment.OrderID); err == nil {
		if err := s.cart.Clear(ctx, order.UserID); err != nil {
			s.logger.WarnContext(ctx, "failed to clear cart after webhook capture",
				slog.String("user_id", order.UserID.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.producer.PublishPaymentCaptured(ctx, payment); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish payment.captured event",
			slog.String("payment_id", payment.ID.String()),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

func (s *PaymentService) applyWebhookRefund(ctx context.Context, gatewayOrderID string) error {
	payment, err := s.payments.GetByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "refund webhook for unknown gateway order",
				slog.String("gateway_order_id", gatewayOrderID),
			)
			return nil
		}
		return fmt.Errorf("find payment: %w", err)
	}

	if payment.Status == domain.PaymentStatusRefunded {
		return nil
	}
	if !payment.CanTransitionTo(domain.PaymentStatusRefunded) {
		return apperrors.StateConflict("payment", payment.Status, domain.PaymentStatusRefunded)
	}

	if err := s.payments.Refund(ctx, payment.ID); err != nil {
		return fmt.Errorf("refund payment: %w", err)
	}
	payment.Status = domain.PaymentStatusRefunded

	if err := s.cascadeOrder(ctx, payment.OrderID, domain.OrderStatusRefunded,
		[]string{domain.OrderStatusConfirmed, domain.OrderStatusDelivered}); err != nil {
		return err
	}

	if err := s.producer.PublishPaymentRefunded(ctx, payment); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish payment.refunded event",
			slog.String("payment_id", payment.ID.String()),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

func (s *PaymentService) failPayment(ctx context.Context, payment *domain.Payment, reason string) error {
	if payment.Status == domain.PaymentStatusFailed {
		return nil
	}
	if !payment.CanTransitionTo(domain.PaymentStatusFailed) {
		return apperrors.StateConflict("payment", payment.Status, domain.PaymentStatusFailed)
	}

	if err := s.payments.Fail(ctx, payment.ID, reason); err != nil {
		return fmt.Errorf("fail payment: %w", err)
	}
	payment.Status = domain.PaymentStatusFailed
	payment.FailureReason = reason

	cancelled, err := s.orders.UpdateStatusIf(ctx, payment.OrderID, domain.OrderStatusCancelled,
		[]string{domain.OrderStatusPending, domain.OrderStatusConfirmed})
	if err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}
	if cancelled {
		s.restoreStock(ctx, payment.OrderID)
		if err := s.producer.PublishOrderStatusChanged(ctx, payment.OrderID.String(),
			domain.OrderStatusPending, domain.OrderStatusCancelled); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish order.status_changed event",
				slog.String("order_id", payment.OrderID.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.producer.PublishPaymentFailed(ctx, payment, reason); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish payment.failed event",
			slog.String("payment_id", payment.ID.String()),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "payment failed",
		slog.String("payment_id", payment.ID.String()),
		slog.String("order_id", payment.OrderID.String()),
		slog.String("reason", reason),
	)
	return nil
}

// restoreStock returns the order's reserved units to inventory. Only called
// on the winning cancellation so duplicates cannot restore twice.
func (s *PaymentService) restoreStock(ctx context.Context, orderID uuid.UUID) {
	items, err := s.orders.GetItems(ctx, orderID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load items for stock restore",
			slog.String("order_id", orderID.String()),
			slog.String("error", err.Error()),
		)
		return
	}
	for _, item := range items {
		if err := s.variants.AdjustStock(ctx, item.VariantID, item.Quantity); err != nil {
			s.logger.ErrorContext(ctx, "stock restore failed",
				slog.String("order_id", orderID.String()),
				slog.String("variant_id", item.VariantID.String()),
				slog.String("error", err.Error()),
			)
		}
	}
}

// cascadeOrder conditionally moves the order forward. When no row updates,
// a status at or past the target is a benign duplicate; anything else is a
// conflict.
func (s *PaymentService) cascadeOrder(ctx context.Context, orderID uuid.UUID, target string, expected []string) error {
	updated, err := s.orders.UpdateStatusIf(ctx, orderID, target, expected)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if updated {
		if err := s.producer.PublishOrderStatusChanged(ctx, orderID.String(), expected[0], target); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish order.status_changed event",
				slog.String("order_id", orderID.String()),
				slog.String("error", err.Error()),
			)
		}
		return nil
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("get order: %w", err)
	}
	if domain.OrderStatusReached(order.Status, target) {
		return nil
	}
	return apperrors.StateConflict("order", order.Status, target)
}

// discoverPayment resolves the payment record a gateway notification refers
// to, creating one from the order total when both lookups miss.
func (s *PaymentService) discoverPayment(ctx context.Context, input VerifyInput) (*domain.Payment, error) {
	if input.GatewayOrderID != "" {
		payment, err := s.payments.GetByGatewayOrderID(ctx, input.GatewayOrderID)
		if err == nil {
			return payment, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("find payment by gateway ref: %w", err)
		}
	}

	order, err := s.orders.LatestForUser(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("payment", input.GatewayOrderID)
		}
		return nil, fmt.Errorf("find latest order: %w", err)
	}

	payment, err := s.payments.LatestForOrder(ctx, order.ID)
	if err == nil {
		if payment.GatewayOrderID == "" && input.GatewayOrderID != "" {
			if err := s.payments.SetGatewayOrderID(ctx, payment.ID, input.GatewayOrderID); err != nil {
				s.logger.WarnContext(ctx, "failed to backfill gateway order reference",
					slog.String("payment_id", payment.ID.String()),
					slog.String("error", err.Error()),
				)
			} else {
				payment.GatewayOrderID = input.GatewayOrderID
			}
		}
		return payment, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("find payment for order: %w", err)
	}

	// The checkout placeholder insert is non-fatal, so the record may not
	// exist at all. Recreate it from the order's authoritative total.
	payment = &domain.Payment{
		ID:             uuid.New(),
		OrderID:        order.ID,
		GatewayOrderID: input.GatewayOrderID,
		Amount:         order.Financials.Total,
		Status:         domain.PaymentStatusCreated,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("create payment record: %w", err)
	}
	s.logger.InfoContext(ctx, "recreated missing payment record",
		slog.String("payment_id", payment.ID.String()),
		slog.String("order_id", order.ID.String()),
	)
	return payment, nil
}
