package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saumyadesai17/maayaro-sub001/pkg/database"
	apperrors "github.com/saumyadesai17/maayaro-sub001/pkg/errors"
)

func TestSettingsRepository_GetSettings(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	repo := NewSettingsRepository(mock)
	defer mock.ExpectationsWereMet()

	keys := []string{"tax_rate_percent", "free_shipping_threshold", "shipping_fee_standard"}

	rows := pgxmock.NewRows([]string{"key", "value"}).
		AddRow("tax_rate_percent", "18").
		AddRow("shipping_fee_standard", "150")

	mock.ExpectQuery("SELECT key, value FROM site_settings").
		WithArgs(keys).
		WillReturnRows(rows)

	settings, err := repo.GetSettings(context.Background(), keys)
	require.NoError(t, err)

	assert.Equal(t, "18", settings["tax_rate_percent"])
	assert.Equal(t, "150", settings["shipping_fee_standard"])

	// Unconfigured keys are simply absent.
	_, ok := settings["free_shipping_threshold"]
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressRepository_GetOwned(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	repo := NewAddressRepository(mock)
	defer mock.ExpectationsWereMet()

	id := uuid.New()
	userID := uuid.New()
	now := time.Now().UTC().Truncate(time.Microsecond)

	rows := pgxmock.NewRows([]string{
		"id", "user_id", "full_name", "phone", "line1", "line2",
		"city", "state", "pincode", "country", "created_at",
	}).AddRow(
		id, userID, "Asha Rao", "+919876543210", "14 MG Road", nil,
		"Bengaluru", "Karnataka", "560001", "India", now,
	)

	mock.ExpectQuery("FROM addresses").
		WithArgs(id, userID).
		WillReturnRows(rows)

	addr, err := repo.GetOwned(context.Background(), id, userID)
	require.NoError(t, err)

	assert.Equal(t, id, addr.ID)
	assert.Equal(t, "Asha Rao", addr.FullName)
	assert.Empty(t, addr.Line2)
	assert.Equal(t, "560001", addr.Pincode)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressRepository_GetOwned_WrongUser(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	repo := NewAddressRepository(mock)
	defer mock.ExpectationsWereMet()

	id := uuid.New()
	userID := uuid.New()

	mock.ExpectQuery("FROM addresses").
		WithArgs(id, userID).
		WillReturnError(pgx.ErrNoRows)

	addr, err := repo.GetOwned(context.Background(), id, userID)
	assert.Nil(t, addr)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
