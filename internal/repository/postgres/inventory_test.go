package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madukaneranga/Kixora-sub002/internal/domain"
	"github.com/madukaneranga/Kixora-sub002/pkg/database"
	apperrors "github.com/madukaneranga/Kixora-sub002/pkg/errors"
)

func setupInventoryRepo(t *testing.T) (*InventoryRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	repo := NewInventoryRepository(mock)
	return repo, mock
}

var inventoryColumns = []string{
	"variant_id", "product_id", "stock_count", "variant_active", "product_active", "updated_at",
}

var lockColumns = []string{"stock_count", "variant_active", "product_active"}

func sampleRecord() domain.InventoryRecord {
	return domain.InventoryRecord{
		VariantID:     "var-1",
		ProductID:     "prod-1",
		StockCount:    10,
		VariantActive: true,
		ProductActive: true,
		UpdatedAt:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestInventoryRepository_GetByVariant_Success(t *testing.T) {
	repo, mock := setupInventoryRepo(t)
	defer mock.Close()

	rec := sampleRecord()
	mock.ExpectQuery("SELECT .+ FROM inventory").
		WithArgs(rec.VariantID).
		WillReturnRows(
			pgxmock.NewRows(inventoryColumns).
				AddRow(rec.VariantID, rec.ProductID, rec.StockCount,
					rec.VariantActive, rec.ProductActive, rec.UpdatedAt),
		)

	result, err := repo.GetByVariant(context.Background(), rec.VariantID)
	require.NoError(t, err)
	assert.Equal(t, rec.VariantID, result.VariantID)
	assert.Equal(t, rec.StockCount, result.StockCount)
	assert.True(t, result.Active())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryRepository_GetByVariant_NotFound(t *testing.T) {
	repo, mock := setupInventoryRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM inventory").
		WithArgs("var-x").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByVariant(context.Background(), "var-x")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryRepository_Decrement_Success(t *testing.T) {
	repo, mock := setupInventoryRepo(t)
	defer mock.Close()

	orderID := "order-1"

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FOR UPDATE").
		WithArgs("var-1").
		WillReturnRows(pgxmock.NewRows(lockColumns).AddRow(10, true, true))
	mock.ExpectExec("UPDATE inventory SET stock_count = stock_count -").
		WithArgs(3, "var-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO stock_movements").
		WithArgs("var-1", -3, domain.MovementReasonOrder, &orderID).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := repo.Decrement(context.Background(), "var-1", 3, &orderID)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryRepository_Decrement_InsufficientStock(t *testing.T) {
	repo, mock := setupInventoryRepo(t)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FOR UPDATE").
		WithArgs("var-1").
		WillReturnRows(pgxmock.NewRows(lockColumns).AddRow(2, true, true))
	mock.ExpectRollback()

	err := repo.Decrement(context.Background(), "var-1", 5, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)

	// The available count rides on the error so callers can surface it.
	var stockErr *apperrors.StockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 2, stockErr.Available)
	assert.Equal(t, "var-1", stockErr.VariantID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryRepository_Decrement_InactiveVariant(t *testing.T) {
	repo, mock := setupInventoryRepo(t)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FOR UPDATE").
		WithArgs("var-1").
		WillReturnRows(pgxmock.NewRows(lockColumns).AddRow(10, false, true))
	mock.ExpectRollback()

	err := repo.Decrement(context.Background(), "var-1", 1, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrVariantInactive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryRepository_Decrement_UnknownVariant(t *testing.T) {
	repo, mock := setupInventoryRepo(t)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .+ FOR UPDATE").
		WithArgs("var-x").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	err := repo.Decrement(context.Background(), "var-x", 1, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryRepository_Decrement_RejectsNonPositiveQuantity(t *testing.T) {
	repo, mock := setupInventoryRepo(t)
	defer mock.Close()

	err := repo.Decrement(context.Background(), "var-1", 0, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryRepository_Restock_UpsertsAndRecordsMovement(t *testing.T) {
	repo, mock := setupInventoryRepo(t)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO inventory").
		WithArgs("var-1", "prod-1", 25).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO stock_movements").
		WithArgs("var-1", 25, domain.MovementReasonRestock, (*string)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := repo.Restock(context.Background(), "var-1", "prod-1", 25, nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryRepository_SetVariantActive_NotFound(t *testing.T) {
	repo, mock := setupInventoryRepo(t)
	defer mock.Close()

	mock.ExpectExec("UPDATE inventory SET variant_active").
		WithArgs(false, "var-x").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.SetVariantActive(context.Background(), "var-x", false)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
