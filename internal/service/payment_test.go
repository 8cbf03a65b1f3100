package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saumyadesai17/maayaro-sub001/internal/domain"
	apperrors "github.com/saumyadesai17/maayaro-sub001/pkg/errors"
)

type paymentTestDeps struct {
	payments *mockPaymentRepository
	orders   *mockOrderRepository
	variants *mockVariantRepository
	cart     *mockCartStore
	verifier *mockSignatureVerifier
	svc      *PaymentService
}

func newPaymentTestService(t *testing.T) *paymentTestDeps {
	t.Helper()
	d := &paymentTestDeps{
		payments: new(mockPaymentRepository),
		orders:   new(mockOrderRepository),
		variants: new(mockVariantRepository),
		cart:     new(mockCartStore),
		verifier: new(mockSignatureVerifier),
	}
	d.svc = NewPaymentService(d.payments, d.orders, d.variants, d.cart, d.verifier, newTestProducer(), newTestLogger())
	return d
}

func TestVerify_CapturesAndConfirms(t *testing.T) {
	d := newPaymentTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	orderID := uuid.New()
	paymentID := uuid.New()

	d.verifier.On("VerifyPaymentSignature", "order_gw123", "pay_gw456", "sig").Return(true)
	d.payments.On("GetByGatewayOrderID", ctx, "order_gw123").Return(&domain.Payment{
		ID:             paymentID,
		OrderID:        orderID,
		GatewayOrderID: "order_gw123",
		Amount:         2510,
		Status:         domain.PaymentStatusCreated,
	}, nil)
	d.payments.On("Capture", ctx, paymentID, "order_gw123", "pay_gw456", "sig").Return(nil)
	d.orders.On("UpdateStatusIf", ctx, orderID, domain.OrderStatusConfirmed,
		[]string{domain.OrderStatusPending}).Return(true, nil)
	d.cart.On("Clear", ctx, userID).Return(nil)

	payment, err := d.svc.Verify(ctx, VerifyInput{
		UserID:           userID,
		GatewayOrderID:   "order_gw123",
		GatewayPaymentID: "pay_gw456",
		Signature:        "sig",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCaptured, payment.Status)
	assert.Equal(t, "pay_gw456", payment.GatewayPaymentID)
	d.payments.AssertExpectations(t)
	d.orders.AssertExpectations(t)
	d.cart.AssertExpectations(t)
}

func TestVerify_InvalidSignatureChangesNothing(t *testing.T) {
	d := newPaymentTestService(t)
	ctx := context.Background()

	d.verifier.On("VerifyPaymentSignature", "order_gw123", "pay_gw456", "bad").Return(false)

	_, err := d.svc.Verify(ctx, VerifyInput{
		UserID:           uuid.New(),
		GatewayOrderID:   "order_gw123",
		GatewayPaymentID: "pay_gw456",
		Signature:        "bad",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidSignature)
	d.payments.AssertNotCalled(t, "GetByGatewayOrderID", mock.Anything, mock.Anything)
	d.payments.AssertNotCalled(t, "Capture", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	d.orders.AssertNotCalled(t, "UpdateStatusIf", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestVerify_DuplicateCaptureIsNoOp(t *testing.T) {
	d := newPaymentTestService(t)
	ctx := context.Background()

	d.verifier.On("VerifyPaymentSignature", "order_gw123", "pay_gw456", "sig").Return(true)
	d.payments.On("GetByGatewayOrderID", ctx, "order_gw123").Return(&domain.Payment{
		ID:               uuid.New(),
		OrderID:          uuid.New(),
		GatewayOrderID:   "order_gw123",
		GatewayPaymentID: "pay_gw456",
		Status:           domain.PaymentStatusCaptured,
	}, nil)

	payment, err := d.svc.Verify(ctx, VerifyInput{
		UserID:           uuid.New(),
		GatewayOrderID:   "order_gw123",
		GatewayPaymentID: "pay_gw456",
		Signature:        "sig",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCaptured, payment.Status)
	d.payments.AssertNotCalled(t, "Capture", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	d.cart.AssertNotCalled(t, "Clear", mock.Anything, mock.Anything)
}

func TestVerify_FallsBackToLatestOrderPayment(t *testing.T) {
	d := newPaymentTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	orderID := uuid.New()
	paymentID := uuid.New()

	d.verifier.On("VerifyPaymentSignature", "order_gw123", "pay_gw456", "sig").Return(true)
	d.payments.On("GetByGatewayOrderID", ctx, "order_gw123").
		Return(nil, apperrors.NotFound("payment", "order_gw123"))
	d.orders.On("LatestForUser", ctx, userID).Return(&domain.Order{
		ID:     orderID,
		UserID: userID,
		Status: domain.OrderStatusPending,
	}, nil)
	d.payments.On("LatestForOrder", ctx, orderID).Return(&domain.Payment{
		ID:      paymentID,
		OrderID: orderID,
		Status:  domain.PaymentStatusCreated,
	}, nil)
	d.payments.On("SetGatewayOrderID", ctx, paymentID, "order_gw123").Return(nil)
	d.payments.On("Capture", ctx, paymentID, "order_gw123", "pay_gw456", "sig").Return(nil)
	d.orders.On("UpdateStatusIf", ctx, orderID, domain.OrderStatusConfirmed,
		[]string{domain.OrderStatusPending}).Return(true, nil)
	d.cart.On("Clear", ctx, userID).Return(nil)

	payment, err := d.svc.Verify(ctx, VerifyInput{
		UserID:           userID,
		GatewayOrderID:   "order_gw123",
		GatewayPaymentID: "pay_gw456",
		Signature:        "sig",
	})

	require.NoError(t, err)
	assert.Equal(t, "order_gw123", payment.GatewayOrderID)
	d.payments.AssertExpectations(t)
}

func TestVerify_RecreatesMissingPayment(t *testing.T) {
	d := newPaymentTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	orderID := uuid.New()

	d.verifier.On("VerifyPaymentSignature", "order_gw123", "pay_gw456", "sig").Return(true)
	d.payments.On("GetByGatewayOrderID", ctx, "order_gw123").
		Return(nil, apperrors.NotFound("payment", "order_gw123"))
	d.orders.On("LatestForUser", ctx, userID).Return(&domain.Order{
		ID:         orderID,
		UserID:     userID,
		Status:     domain.OrderStatusPending,
		Financials: domain.OrderFinancials{Total: 2510},
	}, nil)
	d.payments.On("LatestForOrder", ctx, orderID).
		Return(nil, apperrors.NotFound("payment", orderID.String()))
	d.payments.On("Create", ctx, mock.MatchedBy(func(p *domain.Payment) bool {
		return p.OrderID == orderID && p.Amount == 2510 && p.GatewayOrderID == "order_gw123"
	})).Return(nil)
	d.payments.On("Capture", ctx, mock.Anything, "order_gw123", "pay_gw456", "sig").Return(nil)
	d.orders.On("UpdateStatusIf", ctx, orderID, domain.OrderStatusConfirmed,
		[]string{domain.OrderStatusPending}).Return(true, nil)
	d.cart.On("Clear", ctx, userID).Return(nil)

	payment, err := d.svc.Verify(ctx, VerifyInput{
		UserID:           userID,
		GatewayOrderID:   "order_gw123",
		GatewayPaymentID: "pay_gw456",
		Signature:        "sig",
	})

	require.NoError(t, err)
	assert.Equal(t, orderID, payment.OrderID)
	d.payments.AssertExpectations(t)
}

func TestVerify_OrderAlreadyConfirmedIsBenign(t *testing.T) {
	d := newPaymentTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	orderID := uuid.New()
	paymentID := uuid.New()

	d.verifier.On("VerifyPaymentSignature", "order_gw123", "pay_new", "sig").Return(true)
	d.payments.On("GetByGatewayOrderID", ctx, "order_gw123").Return(&domain.Payment{
		ID:             paymentID,
		OrderID:        orderID,
		GatewayOrderID: "order_gw123",
		Status:         domain.PaymentStatusCreated,
	}, nil)
	d.payments.On("Capture", ctx, paymentID, "order_gw123", "pay_new", "sig").Return(nil)
	d.orders.On("UpdateStatusIf", ctx, orderID, domain.OrderStatusConfirmed,
		[]string{domain.OrderStatusPending}).Return(false, nil)
	d.orders.On("GetByID", ctx, orderID).Return(&domain.Order{
		ID:     orderID,
		Status: domain.OrderStatusProcessing,
	}, nil)
	d.cart.On("Clear", ctx, userID).Return(nil)

	_, err := d.svc.Verify(ctx, VerifyInput{
		UserID:           userID,
		GatewayOrderID:   "order_gw123",
		GatewayPaymentID: "pay_new",
		Signature:        "sig",
	})

	require.NoError(t, err)
}

func TestVerify_CancelledOrderConflicts(t *testing.T) {
	d := newPaymentTestService(t)
	ctx := context.Background()
	orderID := uuid.New()
	paymentID := uuid.New()

	d.verifier.On("VerifyPaymentSignature", "order_gw123", "pay_gw456", "sig").Return(true)
	d.payments.On("GetByGatewayOrderID", ctx, "order_gw123").Return(&domain.Payment{
		ID:      paymentID,
		OrderID: orderID,
		Status:  domain.PaymentStatusCreated,
	}, nil)
	d.payments.On("Capture", ctx, paymentID, "order_gw123", "pay_gw456", "sig").Return(nil)
	d.orders.On("UpdateStatusIf", ctx, orderID, domain.OrderStatusConfirmed,
		[]string{domain.OrderStatusPending}).Return(false, nil)
	d.orders.On("GetByID", ctx, orderID).Return(&domain.Order{
		ID:     orderID,
		Status: domain.OrderStatusCancelled,
	}, nil)

	_, err := d.svc.Verify(ctx, VerifyInput{
		UserID:           uuid.New(),
		GatewayOrderID:   "order_gw123",
		GatewayPaymentID: "pay_gw456",
		Signature:        "sig",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrStateConflict)
}

func TestHandleFailure_CancelsAndRestoresStock(t *testing.T) {
	d := newPaymentTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	orderID := uuid.New()
	paymentID := uuid.New()
	variantID := uuid.New()

	d.payments.On("GetByGatewayOrderID", ctx, "order_gw123").Return(&domain.Payment{
		ID:      paymentID,
		OrderID: orderID,
		Status:  domain.PaymentStatusCreated,
	}, nil)
	d.payments.On("Fail", ctx, paymentID, "card declined").Return(nil)
	d.orders.On("UpdateStatusIf", ctx, orderID, domain.OrderStatusCancelled,
		[]string{domain.OrderStatusPending, domain.OrderStatusConfirmed}).Return(true, nil)
	d.orders.On("GetItems", ctx, orderID).Return([]domain.OrderItem{
		{VariantID: variantID, Quantity: 2},
	}, nil)
	d.variants.On("AdjustStock", ctx, variantID, 2).Return(nil)

	err := d.svc.HandleFailure(ctx, FailureInput{
		UserID:         userID,
		GatewayOrderID: "order_gw123",
		Reason:         "card declined",
	})

	require.NoError(t, err)
	d.variants.AssertExpectations(t)
}

func TestHandleFailure_DuplicateDoesNotRestoreTwice(t *testing.T) {
	d := newPaymentTestService(t)
	ctx := context.Background()
	orderID := uuid.New()
	paymentID := uuid.New()

	d.payments.On("GetByGatewayOrderID", ctx, "order_gw123").Return(&domain.Payment{
		ID:      paymentID,
		OrderID: orderID,
		Status:  domain.PaymentStatusFailed,
	}, nil)

	err := d.svc.HandleFailure(ctx, FailureInput{
		UserID:         uuid.New(),
		GatewayOrderID: "order_gw123",
		Reason:         "card declined",
	})

	require.NoError(t, err)
	d.payments.AssertNotCalled(t, "Fail", mock.Anything, mock.Anything, mock.Anything)
	d.variants.AssertNotCalled(t, "AdjustStock", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleWebhook_InvalidSignatureRejectedBeforeParsing(t *testing.T) {
	d := newPaymentTestService(t)
	ctx := context.Background()
	body := []byte(`{"event":"payment.captured"}`)

	d.verifier.On("VerifyWebhookSignature", body, "bad").Return(false)

	err := d.svc.HandleWebhook(ctx, body, "bad")

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidSignature)
	d.payments.AssertNotCalled(t, "GetByGatewayOrderID", mock.Anything, mock.Anything)
}

func TestHandleWebhook_Captured(t *testing.T) {
	d := newPaymentTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	orderID := uuid.New()
	paymentID := uuid.New()
	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_gw456","order_id":"order_gw123","amount":251000}}}}`)

	d.verifier.On("VerifyWebhookSignature", body, "sig").Return(true)
	d.payments.On("GetByGatewayOrderID", ctx, "order_gw123").Return(&domain.Payment{
		ID:             paymentID,
		OrderID:        orderID,
		GatewayOrderID: "order_gw123",
		Status:         domain.PaymentStatusCreated,
	}, nil)
	d.payments.On("Capture", ctx, paymentID, "order_gw123", "pay_gw456", "sig").Return(nil)
	d.orders.On("UpdateStatusIf", ctx, orderID, domain.OrderStatusConfirmed,
		[]string{domain.OrderStatusPending}).Return(true, nil)
	d.orders.On("GetByID", ctx, orderID).Return(&domain.Order{ID: orderID, UserID: userID}, nil)
	d.cart.On("Clear", ctx, userID).Return(nil)

	err := d.svc.HandleWebhook(ctx, body, "sig")

	require.NoError(t, err)
	d.payments.AssertExpectations(t)
	d.cart.AssertExpectations(t)
}

func TestHandleWebhook_DuplicateCapturedIsNoOp(t *testing.T) {
	d := newPaymentTestService(t)
	ctx := context.Background()
	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_gw456","order_id":"order_gw123"}}}}`)

	d.verifier.On("VerifyWebhookSignature", body, "sig").Return(true)
	d.payments.On("GetByGatewayOrderID", ctx, "order_gw123").Return(&domain.Payment{
		ID:               uuid.New(),
		OrderID:          uuid.New(),
		GatewayOrderID:   "order_gw123",
		GatewayPaymentID: "pay_gw456",
		Status:           domain.PaymentStatusCaptured,
	}, nil)

	err := d.svc.HandleWebhook(ctx, body, "sig")

	require.NoError(t, err)
	d.payments.AssertNotCalled(t, "Capture", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	d.orders.AssertNotCalled(t, "UpdateStatusIf", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleWebhook_Refund(t *testing.T) {
	d := newPaymentTestService(t)
	ctx := context.Background()
	orderID := uuid.New()
	paymentID := uuid.New()
	body := []byte(`{"event":"refund.created","payload":{"payment":{"entity":{"order_id":"order_gw123"}}}}`)

	d.verifier.On("VerifyWebhookSignature", body, "sig").Return(true)
	d.payments.On("GetByGatewayOrderID", ctx, "order_gw123").Return(&domain.Payment{
		ID:      paymentID,
		OrderID: orderID,
		Status:  domain.PaymentStatusCaptured,
	}, nil)
	d.payments.On("Refund", ctx, paymentID).Return(nil)
	d.orders.On("UpdateStatusIf", ctx, orderID, domain.OrderStatusRefunded,
		[]string{domain.OrderStatusConfirmed, domain.OrderStatusDelivered}).Return(true, nil)

	err := d.svc.HandleWebhook(ctx, body, "sig")

	require.NoError(t, err)
	d.payments.AssertExpectations(t)
}

func TestHandleWebhook_UnknownEventAcknowledged(t *testing.T) {
	d := newPaymentTestService(t)
	ctx := context.Background()
	body := []byte(`{"event":"settlement.processed"}`)

	d.verifier.On("VerifyWebhookSignature", body, "sig").Return(true)

	err := d.svc.HandleWebhook(ctx, body, "sig")

	require.NoError(t, err)
	d.payments.AssertNotCalled(t, "GetByGatewayOrderID", mock.Anything, mock.Anything)
}

func TestHandleWebhook_UnknownGatewayOrderAcknowledged(t *testing.T) {
	d := newPaymentTestService(t)
	ctx := context.Background()
	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_x","order_id":"order_unknown"}}}}`)

	d.verifier.On("VerifyWebhookSignature", body, "sig").Return(true)
	d.payments.On("GetByGatewayOrderID", ctx, "order_unknown").
		Return(nil, apperrors.NotFound("payment", "order_unknown"))

	err := d.svc.HandleWebhook(ctx, body, "sig")

	require.NoError(t, err)
}
