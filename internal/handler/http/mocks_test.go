package http

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/saumyadesai17/maayaro-sub001/internal/carrier"
	"github.com/saumyadesai17/maayaro-sub001/internal/domain"
	"github.com/saumyadesai17/maayaro-sub001/internal/event"
	"github.com/saumyadesai17/maayaro-sub001/internal/gateway"
	"github.com/saumyadesai17/maayaro-sub001/internal/repository"
	pkgkafka "github.com/saumyadesai17/maayaro-sub001/pkg/kafka"
)

// --- Mock Repositories ---

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) CreateHeader(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *mockOrderRepository) InsertItems(ctx context.Context, orderID uuid.UUID, items []domain.OrderItem) error {
	args := m.Called(ctx, orderID, items)
	return args.Error(0)
}

func (m *mockOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) GetItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.OrderItem), args.Error(1)
}

func (m *mockOrderRepository) LatestForUser(ctx context.Context, userID uuid.UUID) (*domain.Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Order), args.Int(1), args.Error(2)
}

func (m *mockOrderRepository) UpdateStatusIf(ctx context.Context, id uuid.UUID, target string, expected []string) (bool, error) {
	args := m.Called(ctx, id, target, expected)
	return args.Bool(0), args.Error(1)
}

type mockPaymentRepository struct {
	mock.Mock
}

func (m *mockPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *mockPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *mockPaymentRepository) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Payment, error) {
	args := m.Called(ctx, gatewayOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *mockPaymentRepository) LatestForOrder(ctx context.Context, orderID uuid.UUID) (*domain.Payment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *mockPaymentRepository) SetGatewayOrderID(ctx context.Context, id uuid.UUID, gatewayOrderID string) error {
	args := m.Called(ctx, id, gatewayOrderID)
	return args.Error(0)
}

func (m *mockPaymentRepository) Capture(ctx context.Context, id uuid.UUID, gatewayOrderID, gatewayPaymentID, signature string) error {
	args := m.Called(ctx, id, gatewayOrderID, gatewayPaymentID, signature)
	return args.Error(0)
}

func (m *mockPaymentRepository) Fail(ctx context.Context, id uuid.UUID, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

func (m *mockPaymentRepository) Refund(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockShipmentRepository struct {
	mock.Mock
}

func (m *mockShipmentRepository) Create(ctx context.Context, shipment *domain.Shipment) error {
	args := m.Called(ctx, shipment)
	return args.Error(0)
}

func (m *mockShipmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Shipment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Shipment), args.Error(1)
}

func (m *mockShipmentRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Shipment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Shipment), args.Error(1)
}

func (m *mockShipmentRepository) GetByCarrierShipmentID(ctx context.Context, carrierShipmentID string) (*domain.Shipment, error) {
	args := m.Called(ctx, carrierShipmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Shipment), args.Error(1)
}

func (m *mockShipmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *mockShipmentRepository) AppendTracking(ctx context.Context, update *domain.TrackingUpdate) error {
	args := m.Called(ctx, update)
	return args.Error(0)
}

func (m *mockShipmentRepository) ListTracking(ctx context.Context, shipmentID uuid.UUID) ([]domain.TrackingUpdate, error) {
	args := m.Called(ctx, shipmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TrackingUpdate), args.Error(1)
}

type mockVariantRepository struct {
	mock.Mock
}

func (m *mockVariantRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Variant, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]domain.Variant), args.Error(1)
}

func (m *mockVariantRepository) AdjustStock(ctx context.Context, variantID uuid.UUID, delta int) error {
	args := m.Called(ctx, variantID, delta)
	return args.Error(0)
}

type mockAddressRepository struct {
	mock.Mock
}

func (m *mockAddressRepository) GetOwned(ctx context.Context, id, userID uuid.UUID) (*domain.Address, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Address), args.Error(1)
}

type mockSettingsStore struct {
	mock.Mock
}

func (m *mockSettingsStore) GetSettings(ctx context.Context, keys []string) (map[string]string, error) {
	args := m.Called(ctx, keys)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

type mockCartStore struct {
	mock.Mock
}

func (m *mockCartStore) GetLines(ctx context.Context, userID uuid.UUID) ([]domain.CartLine, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CartLine), args.Error(1)
}

func (m *mockCartStore) Clear(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// --- Mock Collaborator Clients ---

type mockGatewayClient struct {
	mock.Mock
}

func (m *mockGatewayClient) CreateOrder(ctx context.Context, amountMinorUnits int64, receipt string) (*gateway.Order, error) {
	args := m.Called(ctx, amountMinorUnits, receipt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Order), args.Error(1)
}

type mockSignatureVerifier struct {
	mock.Mock
}

func (m *mockSignatureVerifier) VerifyPaymentSignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	args := m.Called(gatewayOrderID, gatewayPaymentID, signature)
	return args.Bool(0)
}

func (m *mockSignatureVerifier) VerifyWebhookSignature(body []byte, signature string) bool {
	args := m.Called(body, signature)
	return args.Bool(0)
}

type mockCarrierClient struct {
	mock.Mock
}

func (m *mockCarrierClient) CreateShipment(ctx context.Context, req carrier.ShipmentRequest) (*carrier.ShipmentResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*carrier.ShipmentResponse), args.Error(1)
}

func (m *mockCarrierClient) Track(ctx context.Context, carrierShipmentID string) (*domain.CarrierUpdate, error) {
	args := m.Called(ctx, carrierShipmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CarrierUpdate), args.Error(1)
}

// --- Test Helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testEventProducer builds an event producer that will fail silently in tests
// (no real broker behind it).
func testEventProducer() *event.Producer {
	logger := testLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:19092"})
	return event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
}

func floatPtr(f float64) *float64 {
	return &f
}
