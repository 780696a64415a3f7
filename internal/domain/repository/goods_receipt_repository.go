package repository

import (
	"context"

	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
)

// GoodsReceiptRepository persistencia de GRN con sus líneas.
type GoodsReceiptRepository interface {
	Create(ctx context.Context, g *entity.GoodsReceiptNote) error
	GetByID(ctx context.Context, id string) (*entity.GoodsReceiptNote, error)
	GetForUpdate(ctx context.Context, id string) (*entity.GoodsReceiptNote, error)
	// Update persiste estado, aprobador y el lote creado por cada línea.
	Update(ctx context.Context, g *entity.GoodsReceiptNote) error
	// SumQuantityForPOLine suma lo recibido para la línea de la orden en GRN con los estados dados,
	// excluyendo el GRN excludeID.
	SumQuantityForPOLine(ctx context.Context, poLineID string, statuses []string, excludeID string) (int64, error)
}
