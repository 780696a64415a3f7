package repository

import (
	"context"

	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
)

// TransferRepository persistencia de transferencias entre ubicaciones.
type TransferRepository interface {
	Create(ctx context.Context, t *entity.StockTransfer) error
	GetByID(ctx context.Context, id string) (*entity.StockTransfer, error)
	GetForUpdate(ctx context.Context, id string) (*entity.StockTransfer, error)
	Update(ctx context.Context, t *entity.StockTransfer) error
}
