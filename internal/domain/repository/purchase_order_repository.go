package repository

import (
	"context"

	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
)

// PurchaseOrderRepository persistencia de órdenes de compra con sus líneas.
type PurchaseOrderRepository interface {
	Create(ctx context.Context, po *entity.PurchaseOrder) error
	GetByID(ctx context.Context, id string) (*entity.PurchaseOrder, error)
	GetForUpdate(ctx context.Context, id string) (*entity.PurchaseOrder, error)
	UpdateStatus(ctx context.Context, po *entity.PurchaseOrder) error
	UpdateLineReceived(ctx context.Context, lineID string, received int64) error
}
