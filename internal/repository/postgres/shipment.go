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

// ShipmentRepository implements repository.ShipmentRepository using PostgreSQL.
type ShipmentRepository struct {
	pool database.DBTX
}

// NewShipmentRepository creates a new PostgreSQL-backed shipment repository.
func NewShipmentRepository(pool database.DBTX) *ShipmentRepository {
	return &ShipmentRepository{pool: pool}
}

const shipmentColumns = `id, order_id, carrier_order_id, carrier_shipment_id, awb_code, courier_name, status, created_at, updated_at`

// Create inserts a new shipment row.
func (r *ShipmentRepository) Create(ctx context.Context, s *domain.Shipment) error {
	query := `
		INSERT INTO shipments (id, order_id, carrier_order_id, carrier_shipment_id, awb_code, courier_name, status)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7)
		RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		s.ID,
		s.OrderID,
		s.CarrierOrderID,
		s.CarrierShipmentID,
		s.AWBCode,
		s.CourierName,
		s.Status,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert shipment: %w", err)
	}

	return nil
}

// GetByID retrieves a shipment with its tracking log.
func (r *ShipmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Shipment, error) {
	query := fmt.Sprintf(`SELECT %s FROM shipments WHERE id = $1`, shipmentColumns)
	return r.getOne(ctx, query, id)
}

// GetByOrderID retrieves the shipment for an order.
func (r *ShipmentRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Shipment, error) {
	query := fmt.Sprintf(`SELECT %s FROM shipments WHERE order_id = $1 ORDER BY created_at DESC LIMIT 1`, shipmentColumns)
	return r.getOne(ctx, query, orderID)
}

// GetByCarrierShipmentID retrieves a shipment by the carrier's reference.
func (r *ShipmentRepository) GetByCarrierShipmentID(ctx context.Context, carrierShipmentID string) (*domain.Shipment, error) {
	query := fmt.Sprintf(`SELECT %s FROM shipments WHERE carrier_shipment_id = $1`, shipmentColumns)
	return r.getOne(ctx, query, carrierShipmentID)
}

// UpdateStatus sets the shipment status.
func (r *ShipmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `UPDATE shipments SET status = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("update shipment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// AppendTracking appends one entry to the append-only tracking log.
func (r *ShipmentRepository) AppendTracking(ctx context.Context, u *domain.TrackingUpdate) error {
	query := `
		INSERT INTO shipment_tracking_updates (shipment_id, status, location, remarks, payload, occurred_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, COALESCE($6, NOW()))
		RETURNING id, created_at`

	var occurredAt any
	if !u.OccurredAt.IsZero() {
		occurredAt = u.OccurredAt
	}

	err := r.pool.QueryRow(ctx, query,
		u.ShipmentID,
		u.Status,
		u.Location,
		u.Remarks,
		u.Payload,
		occurredAt,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return fmt.Errorf("append tracking update: %w", err)
	}

	return nil
}

// ListTracking returns the tracking log in insertion order.
func (r *ShipmentRepository) ListTracking(ctx context.Context, shipmentID uuid.UUID) ([]domain.TrackingUpdate, error) {
	query := `
		SELECT id, shipment_id, status, location, remarks, payload, occurred_at, created_at
		FROM shipment_tracking_updates
		WHERE shipment_id = $1
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("query tracking updates: %w", err)
	}
	defer rows.Close()

	updates := make([]domain.TrackingUpdate, 0)
	for rows.Next() {
		var (
			u        domain.TrackingUpdate
			location sql.NullString
			remarks  sql.NullString
		)
		if err := rows.Scan(
			&u.ID,
			&u.ShipmentID,
			&u.Status,
			&location,
			&remarks,
			&u.Payload,
			&u.OccurredAt,
			&u.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan tracking update: %w", err)
		}
		u.Location = location.String
		u.Remarks = remarks.String
		updates = append(updates, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracking updates: %w", err)
	}

	return updates, nil
}

func (r *ShipmentRepository) getOne(ctx context.Context, query string, arg any) (*domain.Shipment, error) {
	var (
		s                 domain.Shipment
		carrierOrderID    sql.NullString
		carrierShipmentID sql.NullString
		awbCode           sql.NullString
		courierName       sql.NullString
	)

	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&s.ID,
		&s.OrderID,
		&carrierOrderID,
		&carrierShipmentID,
		&awbCode,
		&courierName,
		&s.Status,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan shipment: %w", err)
	}

	s.CarrierOrderID = carrierOrderID.String
	s.CarrierShipmentID = carrierShipmentID.String
	s.AWBCode = awbCode.String
	s.CourierName = courierName.String

	return &s, nil
}
