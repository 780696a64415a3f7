package repository

import (
	"context"

	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
)

// ReturnRepository persistencia de devoluciones.
type ReturnRepository interface {
	Create(ctx context.Context, r *entity.ReturnRecord) error
	GetByID(ctx context.Context, id string) (*entity.ReturnRecord, error)
	// SumPatientReturned unidades ya devueltas por pacientes al lote. Con prescriptionLineID
	// filtra por la línea de prescripción; sin ella, por el despacho.
	SumPatientReturned(ctx context.Context, prescriptionLineID, dispenseID, batchID string) (int64, error)
}
