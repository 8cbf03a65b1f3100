package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/saumyadesai17/maayaro-sub001/internal/domain"
	"github.com/saumyadesai17/maayaro-sub001/pkg/database"
	apperrors "github.com/saumyadesai17/maayaro-sub001/pkg/errors"
)

// PaymentRepository implements repository.PaymentRepository using PostgreSQL.
type PaymentRepository struct {
	pool database.DBTX
}

// NewPaymentRepository creates a new PostgreSQL-backed payment repository.
func NewPaymentRepository(pool database.DBTX) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

const paymentColumns = `id, order_id, gateway_order_id, gateway_payment_id, gateway_signature, amount, status, failure_reason, created_at, updated_at`

// Create inserts a new payment row.
func (r *PaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	query := `
		INSERT INTO payments (id, order_id, gateway_order_id, gateway_payment_id, gateway_signature, amount, status, failure_reason)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $7, NULLIF($8, ''))
		RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		p.ID,
		p.OrderID,
		p.GatewayOrderID,
		p.GatewayPaymentID,
		p.GatewaySignature,
		p.Amount,
		p.Status,
		p.FailureReason,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}

	return nil
}

// GetByID retrieves a payment by its ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE id = $1`, paymentColumns)
	return scanPayment(r.pool.QueryRow(ctx, query, id))
}

// GetByGatewayOrderID looks a payment up by the gateway's order reference.
func (r *PaymentRepository) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE gateway_order_id = $1 ORDER BY created_at DESC LIMIT 1`, paymentColumns)
	return scanPayment(r.pool.QueryRow(ctx, query, gatewayOrderID))
}

// LatestForOrder returns the most recent payment row for an order.
func (r *PaymentRepository) LatestForOrder(ctx context.Context, orderID uuid.UUID) (*domain.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE order_id = $1 ORDER BY created_at DESC LIMIT 1`, paymentColumns)
	return scanPayment(r.pool.QueryRow(ctx, query, orderID))
}

// SetGatewayOrderID records the gateway order reference.
func (r *PaymentRepository) SetGatewayOrderID(ctx context.Context, id uuid.UUID, gatewayOrderID string) error {
	query := `UPDATE payments SET gateway_order_id = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, gatewayOrderID)
	if err != nil {
		return fmt.Errorf("set gateway order id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Capture marks the payment captured and stores the gateway refs. The write
// is an idempotent set, so re-delivery with identical inputs converges on the
// same row.
func (r *PaymentRepository) Capture(ctx context.Context, id uuid.UUID, gatewayOrderID, gatewayPaymentID, signature string) error {
	query := `
		UPDATE payments
		SET status = $2,
		    gateway_order_id = COALESCE(NULLIF($3, ''), gateway_order_id),
		    gateway_payment_id = NULLIF($4, ''),
		    gateway_signature = NULLIF($5, ''),
		    failure_reason = NULL,
		    updated_at = NOW()
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, domain.PaymentStatusCaptured, gatewayOrderID, gatewayPaymentID, signature)
	if err != nil {
		return fmt.Errorf("capture payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Fail marks the payment failed with a reason.
func (r *PaymentRepository) Fail(ctx context.Context, id uuid.UUID, reason string) error {
	query := `UPDATE payments SET status = $2, failure_reason = NULLIF($3, ''), updated_at = NOW() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, domain.PaymentStatusFailed, reason)
	if err != nil {
		return fmt.Errorf("fail payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Refund marks the payment refunded.
func (r *PaymentRepository) Refund(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE payments SET status = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, domain.PaymentStatusRefunded)
	if err != nil {
		return fmt.Errorf("refund payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var (
		p                domain.Payment
		gatewayOrderID   sql.NullString
		gatewayPaymentID sql.NullString
		gatewaySignature sql.NullString
		failureReason    sql.NullString
	)

	err := row.Scan(
		&p.ID,
		&p.OrderID,
		&gatewayOrderID,
		&gatewayPaymentID,
		&gatewaySignature,
		&p.Amount,
		&p.Status,
		&failureReason,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}

	p.GatewayOrderID = gatewayOrderID.String
	p.GatewayPaymentID = gatewayPaymentID.String
	p.GatewaySignature = gatewaySignature.String
	p.FailureReason = failureReason.String

	return &p, nil
}
