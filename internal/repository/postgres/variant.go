package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/saumyadesai17/maayaro-sub001/internal/domain"
	"github.com/saumyadesai17/maayaro-sub001/pkg/database"
	apperrors "github.com/saumyadesai17/maayaro-sub001/pkg/errors"
)

// VariantRepository implements repository.VariantRepository using PostgreSQL.
type VariantRepository struct {
	pool database.DBTX
}

// NewVariantRepository creates a new PostgreSQL-backed variant repository.
func NewVariantRepository(pool database.DBTX) *VariantRepository {
	return &VariantRepository{pool: pool}
}

// GetByIDs returns the variants for the given IDs keyed by ID. The query
// returns one flat row per variant; the product fields pricing falls back to
// are denormalized onto it so callers never deal with join-shape ambiguity.
func (r *VariantRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Variant, error) {
	query := `
		SELECT id, product_id, sku, product_name, unit_price, base_price, gst_rate, stock_quantity, created_at, updated_at
		FROM product_variants
		WHERE id = ANY($1)`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("query variants: %w", err)
	}
	defer rows.Close()

	variants := make(map[uuid.UUID]domain.Variant, len(ids))
	for rows.Next() {
		var v domain.Variant
		if err := rows.Scan(
			&v.ID,
			&v.ProductID,
			&v.SKU,
			&v.ProductName,
			&v.UnitPrice,
			&v.BasePrice,
			&v.GSTRate,
			&v.StockQuantity,
			&v.CreatedAt,
			&v.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		variants[v.ID] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variants: %w", err)
	}

	return variants, nil
}

// AdjustStock atomically adds delta to a variant's stock. The guard in the
// WHERE clause keeps stock from going negative under concurrent decrements;
// a decrement that would go negative affects zero rows and fails.
func (r *VariantRepository) AdjustStock(ctx context.Context, variantID uuid.UUID, delta int) error {
	query := `
		UPDATE product_variants
		SET stock_quantity = stock_quantity + $2, updated_at = NOW()
		WHERE id = $1 AND stock_quantity + $2 >= 0`

	tag, err := r.pool.Exec(ctx, query, variantID, delta)
	if err != nil {
		return fmt.Errorf("adjust stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if delta < 0 {
			return apperrors.ErrInsufficientStock
		}
		return apperrors.ErrNotFound
	}
	return nil
}
