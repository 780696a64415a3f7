package repository

import (
	"context"

	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
)

// DispenseRepository persistencia de despachos (inmutables).
type DispenseRepository interface {
	Create(ctx context.Context, d *entity.DispenseRecord) error
	GetByID(ctx context.Context, id string) (*entity.DispenseRecord, error)
	// SumDispensed unidades despachadas desde el lote para la línea de prescripción.
	SumDispensed(ctx context.Context, prescriptionLineID, batchID string) (int64, error)
}
