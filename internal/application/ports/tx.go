package ports

import (
	"context"

	"github.com/jhoicas/pharmacy-inventory/internal/domain/repository"
)

// Repos repositorios atados a una misma transacción.
type Repos struct {
	Medications    repository.MedicationRepository
	Batches        repository.BatchRepository
	PurchaseOrders repository.PurchaseOrderRepository
	GoodsReceipts  repository.GoodsReceiptRepository
	Reservations   repository.ReservationRepository
	Dispenses      repository.DispenseRepository
	Returns        repository.ReturnRepository
	Transfers      repository.TransferRepository
	Audit          repository.AuditRepository
	Sequences      repository.SequenceRepository
}

// TxRunner ejecuta fn dentro de una transacción serializable: Commit si fn devuelve nil,
// Rollback en cualquier otro caso (incluido un panic). Los conflictos de bloqueo o
// serialización se reportan como domain.ErrConcurrencyConflict.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context, repos Repos) error) error
}
