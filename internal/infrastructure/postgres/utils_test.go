package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/pharmacy-inventory/internal/domain"
)

func TestMapError_CodigosDeConcurrencia(t *testing.T) {
	for _, code := range []string{"40001", "40P01", "55P03"} {
		err := mapError(fmt.Errorf("update batch: %w", &pgconn.PgError{Code: code, Message: "x"}))
		assert.ErrorIs(t, err, domain.ErrConcurrencyConflict, code)
	}
}

func TestMapError_CheckViolationEsStockInsuficiente(t *testing.T) {
	err := mapError(&pgconn.PgError{Code: "23514", ConstraintName: "stock_batches_reserved_check"})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	err = mapError(&pgconn.PgError{Code: "23514", ConstraintName: "stock_transfers_locations_check"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMapError_OtrosErroresSinCambio(t *testing.T) {
	plain := errors.New("conexión cerrada")
	assert.Same(t, plain, mapError(plain))
	assert.Nil(t, mapError(nil))

	v := domain.NewViolation(domain.ErrNotFound, "lote", "b1")
	assert.ErrorIs(t, mapError(v), domain.ErrNotFound)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23514"}))
}
