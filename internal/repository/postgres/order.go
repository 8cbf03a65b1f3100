package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/saumyadesai17/maayaro-sub001/internal/domain"
	"github.com/saumyadesai17/maayaro-sub001/internal/repository"
	"github.com/saumyadesai17/maayaro-sub001/pkg/database"
	apperrors "github.com/saumyadesai17/maayaro-sub001/pkg/errors"
)

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

const orderColumns = `id, order_number, user_id, status, subtotal, discount, shipping_fee, shipping_tax, tax, total, shipping_method, payment_method, shipping_address_id, billing_address_id, created_at, updated_at`

// CreateHeader inserts the order row without its items.
func (r *OrderRepository) CreateHeader(ctx context.Context, o *domain.Order) error {
	query := `
		INSERT INTO orders (id, order_number, user_id, status, subtotal, discount, shipping_fee, shipping_tax, tax, total, shipping_method, payment_method, shipping_address_id, billing_address_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		o.ID,
		o.OrderNumber,
		o.UserID,
		o.Status,
		o.Financials.Subtotal,
		o.Financials.Discount,
		o.Financials.ShippingFee,
		o.Financials.ShippingTax,
		o.Financials.Tax,
		o.Financials.Total,
		o.ShippingMethod,
		o.PaymentMethod,
		o.ShippingAddressID,
		o.BillingAddressID,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	return nil
}

// InsertItems inserts the order's line items.
func (r *OrderRepository) InsertItems(ctx context.Context, orderID uuid.UUID, items []domain.OrderItem) error {
	query := `
		INSERT INTO order_items (id, order_id, variant_id, name, sku, quantity, unit_price, base_total, tax_amount, gst_rate_percent, total_with_tax)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	for i := range items {
		item := &items[i]
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.OrderID = orderID

		_, err := r.pool.Exec(ctx, query,
			item.ID,
			item.OrderID,
			item.VariantID,
			item.Name,
			item.SKU,
			item.Quantity,
			item.UnitPrice,
			item.BaseTotal,
			item.TaxAmount,
			item.GSTRatePercent,
			item.TotalWithTax,
		)
		if err != nil {
			return fmt.Errorf("insert order item %s: %w", item.SKU, err)
		}
	}

	return nil
}

// Delete removes an order header; order_items cascade.
func (r *OrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// GetByID retrieves an order with its items.
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)

	o, err := r.scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	items, err := r.GetItems(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items

	return o, nil
}

// GetItems retrieves the persisted line items of an order in insertion order.
func (r *OrderRepository) GetItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error) {
	query := `
		SELECT id, order_id, variant_id, name, sku, quantity, unit_price, base_total, tax_amount, gst_rate_percent, total_with_tax, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(
			&it.ID,
			&it.OrderID,
			&it.VariantID,
			&it.Name,
			&it.SKU,
			&it.Quantity,
			&it.UnitPrice,
			&it.BaseTotal,
			&it.TaxAmount,
			&it.GSTRatePercent,
			&it.TotalWithTax,
			&it.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return items, nil
}

// LatestForUser returns the user's most recently created order.
func (r *OrderRepository) LatestForUser(ctx context.Context, userID uuid.UUID) (*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`, orderColumns)
	return r.scanOrder(r.pool.QueryRow(ctx, query, userID))
}

// List returns orders matching the filter along with the total count.
func (r *OrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argIndex))
		args = append(args, *filter.UserID)
		argIndex++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM orders
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		orderColumns, whereClause, argIndex, argIndex+1,
	)

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var totalCount int
	orders := make([]domain.Order, 0)

	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(
			&o.ID,
			&o.OrderNumber,
			&o.UserID,
			&o.Status,
			&o.Financials.Subtotal,
			&o.Financials.Discount,
			&o.Financials.ShippingFee,
			&o.Financials.ShippingTax,
			&o.Financials.Tax,
			&o.Financials.Total,
			&o.ShippingMethod,
			&o.PaymentMethod,
			&o.ShippingAddressID,
			&o.BillingAddressID,
			&o.CreatedAt,
			&o.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, totalCount, nil
}

// UpdateStatusIf conditionally sets the order status; the write only happens
// when the current status is one of expected.
func (r *OrderRepository) UpdateStatusIf(ctx context.Context, id uuid.UUID, target string, expected []string) (bool, error) {
	query := `
		UPDATE orders
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = ANY($3)`

	tag, err := r.pool.Exec(ctx, query, id, target, expected)
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func (r *OrderRepository) scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.UserID,
		&o.Status,
		&o.Financials.Subtotal,
		&o.Financials.Discount,
		&o.Financials.ShippingFee,
		&o.Financials.ShippingTax,
		&o.Financials.Tax,
		&o.Financials.Total,
		&o.ShippingMethod,
		&o.PaymentMethod,
		&o.ShippingAddressID,
		&o.BillingAddressID,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	return &o, nil
}
