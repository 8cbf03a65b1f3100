package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/saumyadesai17/maayaro-sub001/internal/domain"
	"github.com/saumyadesai17/maayaro-sub001/internal/event"
	"github.com/saumyadesai17/maayaro-sub001/internal/gateway"
	"github.com/saumyadesai17/maayaro-sub001/internal/policy"
	"github.com/saumyadesai17/maayaro-sub001/internal/pricing"
	"github.com/saumyadesai17/maayaro-sub001/internal/repository"
	apperrors "github.com/saumyadesai17/maayaro-sub001/pkg/errors"
)

// GatewayClient is the slice of the payment gateway the materializer needs.
type GatewayClient interface {
	CreateOrder(ctx context.Context, amountMinorUnits int64, receipt string) (*gateway.Order, error)
}

// OrderNumberGenerator supplies globally unique order numbers.
type OrderNumberGenerator interface {
	Next(ctx context.Context) (string, error)
}

// NumberGeneratorFunc adapts a function to OrderNumberGenerator.
type NumberGeneratorFunc func(ctx context.Context) (string, error)

// Next implements OrderNumberGenerator.
func (f NumberGeneratorFunc) Next(ctx context.Context) (string, error) { return f(ctx) }

// NewOrderNumberGenerator returns the default generator: a date prefix plus
// a random suffix, unique enough for gateway receipts.
func NewOrderNumberGenerator() OrderNumberGenerator {
	return NumberGeneratorFunc(func(context.Context) (string, error) {
		suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
		return fmt.Sprintf("MAA-%s-%s", time.Now().UTC().Format("20060102"), suffix), nil
	})
}

// OrderService materializes orders: it runs the financial calculation and
// persists the order, its lines, the payment placeholder, and the stock
// decrements as one logical unit with compensating actions.
type OrderService struct {
	orders         repository.OrderRepository
	payments       repository.PaymentRepository
	variants       repository.VariantRepository
	addresses      repository.AddressRepository
	cart           repository.CartStore
	policies       *policy.Resolver
	gateway        GatewayClient
	numbers        OrderNumberGenerator
	producer       *event.Producer
	validationMode string
	logger         *slog.Logger
}

// NewOrderService creates the order materializer.
func NewOrderService(
	orders repository.OrderRepository,
	payments repository.PaymentRepository,
	variants repository.VariantRepository,
	addresses repository.AddressRepository,
	cart repository.CartStore,
	policies *policy.Resolver,
	gw GatewayClient,
	numbers OrderNumberGenerator,
	producer *event.Producer,
	validationMode string,
	logger *slog.Logger,
) *OrderService {
	if validationMode == "" {
		validationMode = pricing.ValidationWarn
	}
	return &OrderService{
		orders:         orders,
		payments:       payments,
		variants:       variants,
		addresses:      addresses,
		cart:           cart,
		policies:       policies,
		gateway:        gw,
		numbers:        numbers,
		producer:       producer,
		validationMode: validationMode,
		logger:         logger,
	}
}

// PlaceOrderInput holds the checkout parameters.
type PlaceOrderInput struct {
	UserID            uuid.UUID
	ShippingMethod    string
	PaymentMethod     string
	Discount          float64
	ShippingAddressID uuid.UUID
	BillingAddressID  uuid.UUID
	ShippingIsBilling bool
	Dimensions        *pricing.Dimensions
}

// PlaceOrderResult is what checkout returns to the storefront.
type PlaceOrderResult struct {
	Order          *domain.Order      `json:"order"`
	Payment        *domain.Payment    `json:"payment,omitempty"`
	GatewayOrderID string             `json:"gateway_order_id,omitempty"`
	GatewayAmount  int64              `json:"gateway_amount"`
	Validation     pricing.Validation `json:"validation"`
}

// PlaceOrder turns the user's cart into a persisted order.
//
// The sequence is deliberate: header, lines (failure compensated by a header
// delete), payment placeholder (failure logged, not fatal, since the
// reconciler can recreate it), then the stock decrement last because it is
// the least reversible step. A stock decrement failure is logged and the
// order stands.
func (s *OrderService) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*PlaceOrderResult, error) {
	lines, err := s.cart.GetLines(ctx, input.UserID)
	if err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}
	if len(lines) == 0 {
		return nil, apperrors.InvalidInput("cart is empty")
	}

	billing, err := s.resolveAddress(ctx, input.BillingAddressID, input.UserID, "billing")
	if err != nil {
		return nil, err
	}
	shipping := billing
	if !input.ShippingIsBilling {
		shipping, err = s.resolveAddress(ctx, input.ShippingAddressID, input.UserID, "shipping")
		if err != nil {
			return nil, err
		}
	}

	priced, err := s.priceCart(ctx, lines, input, *shipping, *billing)
	if err != nil {
		return nil, err
	}

	if !priced.Validation.IsValid {
		s.logger.WarnContext(ctx, "order totals reconciliation produced warnings",
			slog.String("user_id", input.UserID.String()),
			slog.Any("warnings", priced.Validation.Warnings),
		)
	}

	orderNumber, err := s.numbers.Next(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate order number: %w", err)
	}

	// The gateway order is created before the payment placeholder so the
	// gateway reference is stored when available. A gateway outage does not
	// block checkout; the reconciler's discovery paths cover a missing ref.
	gatewayOrderID := ""
	if gwOrder, gwErr := s.gateway.CreateOrder(ctx, priced.GatewayAmount, orderNumber); gwErr != nil {
		s.logger.ErrorContext(ctx, "failed to create gateway order, proceeding without reference",
			slog.String("order_number", orderNumber),
			slog.String("error", gwErr.Error()),
		)
	} else {
		gatewayOrderID = gwOrder.ID
	}

	order := &domain.Order{
		ID:                uuid.New(),
		OrderNumber:       orderNumber,
		UserID:            input.UserID,
		Status:            domain.OrderStatusPending,
		Financials:        priced.Financials,
		ShippingMethod:    input.ShippingMethod,
		PaymentMethod:     input.PaymentMethod,
		ShippingAddressID: shipping.ID,
		BillingAddressID:  billing.ID,
	}

	if err := s.orders.CreateHeader(ctx, order); err != nil {
		return nil, fmt.Errorf("create order header: %w", err)
	}

	items := make([]domain.OrderItem, len(priced.Lines))
	for i, l := range priced.Lines {
		items[i] = domain.OrderItem{
			ID:             uuid.New(),
			OrderID:        order.ID,
			VariantID:      l.VariantID,
			Name:           l.Name,
			SKU:            l.SKU,
			Quantity:       l.Quantity,
			UnitPrice:      l.UnitPrice,
			BaseTotal:      l.BaseTotal,
			TaxAmount:      l.TaxAmount,
			GSTRatePercent: l.GSTRatePercent,
			TotalWithTax:   l.TotalWithTax,
		}
	}

	if err := s.orders.InsertItems(ctx, order.ID, items); err != nil {
		// Compensating delete so an itemless order never surfaces in
		// listings. The delete itself is best-effort.
		if delErr := s.orders.Delete(ctx, order.ID); delErr != nil {
			s.logger.ErrorContext(ctx, "compensating order delete failed",
				slog.String("order_id", order.ID.String()),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, fmt.Errorf("persist order lines: %w", err)
	}
	order.Items = items

	payment := &domain.Payment{
		ID:             uuid.New(),
		OrderID:        order.ID,
		GatewayOrderID: gatewayOrderID,
		Amount:         priced.Financials.Total,
		Status:         domain.PaymentStatusCreated,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		s.logger.WarnContext(ctx, "failed to create payment placeholder, reconciler will recreate it",
			slog.String("order_id", order.ID.String()),
			slog.String("error", err.Error()),
		)
		payment = nil
	}

	for _, item := range items {
		if err := s.variants.AdjustStock(ctx, item.VariantID, -item.Quantity); err != nil {
			s.logger.ErrorContext(ctx, "stock decrement failed, order stands",
				slog.String("order_id", order.ID.String()),
				slog.String("variant_id", item.VariantID.String()),
				slog.Int("quantity", item.Quantity),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.producer.PublishOrderCreated(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.created event",
			slog.String("order_id", order.ID.String()),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID.String()),
		slog.String("order_number", order.OrderNumber),
		slog.Float64("total", order.Financials.Total),
	)

	return &PlaceOrderResult{
		Order:          order,
		Payment:        payment,
		GatewayOrderID: gatewayOrderID,
		GatewayAmount:  priced.GatewayAmount,
		Validation:     priced.Validation,
	}, nil
}

// Quote prices the user's current cart without creating anything. The
// storefront uses it to render the order summary.
func (s *OrderService) Quote(ctx context.Context, input PlaceOrderInput) (*pricing.Result, error) {
	lines, err := s.cart.GetLines(ctx, input.UserID)
	if err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}
	if len(lines) == 0 {
		return nil, apperrors.InvalidInput("cart is empty")
	}

	billing, err := s.resolveAddress(ctx, input.BillingAddressID, input.UserID, "billing")
	if err != nil {
		return nil, err
	}
	shipping := billing
	if !input.ShippingIsBilling {
		shipping, err = s.resolveAddress(ctx, input.ShippingAddressID, input.UserID, "shipping")
		if err != nil {
			return nil, err
		}
	}

	return s.priceCart(ctx, lines, input, *shipping, *billing)
}

// GetOrder returns an order with its items, scoped to the owning user.
func (s *OrderService) GetOrder(ctx context.Context, id, userID uuid.UUID) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("order", id.String())
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.UserID != userID {
		return nil, apperrors.NotFound("order", id.String())
	}
	return order, nil
}

// ListOrders returns orders matching the filter with the total count.
func (s *OrderService) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	return s.orders.List(ctx, filter)
}

func (s *OrderService) resolveAddress(ctx context.Context, id, userID uuid.UUID, kind string) (*domain.Address, error) {
	if id == uuid.Nil {
		return nil, apperrors.InvalidInput(kind + " address is required")
	}
	addr, err := s.addresses.GetOwned(ctx, id, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.InvalidInput(kind + " address not found")
		}
		return nil, fmt.Errorf("resolve %s address: %w", kind, err)
	}
	return addr, nil
}

func (s *OrderService) priceCart(ctx context.Context, lines []domain.CartLine, input PlaceOrderInput, shipping, billing domain.Address) (*pricing.Result, error) {
	ids := make([]uuid.UUID, len(lines))
	for i, l := range lines {
		ids[i] = l.VariantID
	}

	variants, err := s.variants.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load variants: %w", err)
	}

	priceLines := make([]pricing.Line, len(lines))
	for i, l := range lines {
		v, ok := variants[l.VariantID]
		if !ok {
			return nil, apperrors.InvalidInput(fmt.Sprintf("variant %s no longer exists", l.VariantID))
		}
		priceLines[i] = pricing.Line{Cart: l, Variant: v}
	}

	return pricing.Calculate(pricing.Input{
		Lines:           priceLines,
		ShippingMethod:  input.ShippingMethod,
		Discount:        input.Discount,
		PaymentMethod:   input.PaymentMethod,
		ShippingAddress: shipping,
		BillingAddress:  billing,
		Dimensions:      input.Dimensions,
		Policy:          s.policies.Resolve(ctx),
		ValidationMode:  s.validationMode,
	})
}
