package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jhoicas/pharmacy-inventory/internal/application/ports"
)

// Querier lo implementan *pgxpool.Pool y pgx.Tx; los repos no distinguen entre ambos.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewRepos ata todos los repositorios al mismo Querier.
func NewRepos(q Querier) ports.Repos {
	return ports.Repos{
		Medications:    NewMedicationRepository(q),
		Batches:        NewBatchRepository(q),
		PurchaseOrders: NewPurchaseOrderRepository(q),
		GoodsReceipts:  NewGoodsReceiptRepository(q),
		Reservations:   NewReservationRepository(q),
		Dispenses:      NewDispenseRepository(q),
		Returns:        NewReturnRepository(q),
		Transfers:      NewTransferRepository(q),
		Audit:          NewAuditRepository(q),
		Sequences:      NewSequenceRepository(q),
	}
}
