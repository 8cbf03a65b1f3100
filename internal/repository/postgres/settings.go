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

// SettingsRepository reads site_settings rows.
type SettingsRepository struct {
	pool database.DBTX
}

// NewSettingsRepository creates a new PostgreSQL-backed settings repository.
func NewSettingsRepository(pool database.DBTX) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// GetSettings returns the values for the given keys. Missing keys are simply
// absent from the returned map.
func (r *SettingsRepository) GetSettings(ctx context.Context, keys []string) (map[string]string, error) {
	query := `SELECT key, value FROM site_settings WHERE key = ANY($1)`

	rows, err := r.pool.Query(ctx, query, keys)
	if err != nil {
		return nil, fmt.Errorf("query site settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string, len(keys))
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan site setting: %w", err)
		}
		settings[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate site settings: %w", err)
	}

	return settings, nil
}

// AddressRepository reads the address book.
type AddressRepository struct {
	pool database.DBTX
}

// NewAddressRepository creates a new PostgreSQL-backed address repository.
func NewAddressRepository(pool database.DBTX) *AddressRepository {
	return &AddressRepository{pool: pool}
}

// GetOwned returns the address only when it belongs to the given user.
func (r *AddressRepository) GetOwned(ctx context.Context, id, userID uuid.UUID) (*domain.Address, error) {
	query := `
		SELECT id, user_id, full_name, phone, line1, line2, city, state, pincode, country, created_at
		FROM addresses
		WHERE id = $1 AND user_id = $2`

	var (
		a     domain.Address
		line2 sql.NullString
	)
	err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&a.ID,
		&a.UserID,
		&a.FullName,
		&a.Phone,
		&a.Line1,
		&line2,
		&a.City,
		&a.State,
		&a.Pincode,
		&a.Country,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan address: %w", err)
	}
	a.Line2 = line2.String

	return &a, nil
}
