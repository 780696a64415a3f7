package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
)

// BatchRepository persistencia de lotes. Solo el ledger escribe cantidades.
type BatchRepository interface {
	// Create falla con domain.ErrDuplicateBatch si (batch_number, location) ya existe.
	Create(ctx context.Context, b *entity.StockBatch) error
	GetByID(ctx context.Context, id string) (*entity.StockBatch, error)
	// GetForUpdate bloquea la fila del lote (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, id string) (*entity.StockBatch, error)
	FindByNumberAndLocation(ctx context.Context, batchNumber, locationID string) (*entity.StockBatch, error)
	// ListAllocatableForUpdate bloquea, en orden ascendente de id, los lotes del medicamento
	// no vencidos a asOf con disponible > 0. locationID vacío = todas las ubicaciones.
	ListAllocatableForUpdate(ctx context.Context, medicationID, locationID string, asOf time.Time) ([]*entity.StockBatch, error)
	ListByMedication(ctx context.Context, medicationID string) ([]*entity.StockBatch, error)
	UpdateQuantities(ctx context.Context, id string, onHand, reserved int64) error
	UpdateSellingPrice(ctx context.Context, id string, price decimal.Decimal) error
	CountByMedication(ctx context.Context, medicationID string) (int, error)
	// AvailableByMedication suma on_hand - reserved de los lotes no vencidos a asOf.
	AvailableByMedication(ctx context.Context, medicationID string, asOf time.Time) (int64, error)
}
