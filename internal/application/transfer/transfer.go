package transfer

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/jhoicas/pharmacy-inventory/internal/application/ledger"
	"github.com/jhoicas/pharmacy-inventory/internal/application/ports"
	"github.com/jhoicas/pharmacy-inventory/internal/application/sequence"
	"github.com/jhoicas/pharmacy-inventory/internal/domain"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
)

// TransferUseCase transferencias entre ubicaciones y devoluciones de paciente o a proveedor.
// Ajusta el ledger fuera del camino compra/despacho.
type TransferUseCase struct {
	txRunner  ports.TxRunner
	ledger    *ledger.Ledger
	publisher ports.EventPublisher
	metrics   ports.Metrics
	log       zerolog.Logger
	now       func() time.Time
}

// NewTransferUseCase construye el caso de uso.
func NewTransferUseCase(txRunner ports.TxRunner, l *ledger.Ledger, publisher ports.EventPublisher, metrics ports.Metrics, log zerolog.Logger) *TransferUseCase {
	if publisher == nil {
		publisher = ports.NopPublisher{}
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &TransferUseCase{txRunner: txRunner, ledger: l, publisher: publisher, metrics: metrics, log: log, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (uc *TransferUseCase) WithClock(now func() time.Time) *TransferUseCase {
	uc.now = now
	return uc
}

// TransferInput entrada de RequestTransfer.
type TransferInput struct {
	SourceLocationID string
	DestLocationID   string
	BatchID          string
	Quantity         int64
	Reason           string
	Actor            string
}

// RequestTransfer registra la solicitud (REQUESTED). Verifica disponibilidad sin retener stock;
// la verificación definitiva ocurre al completar.
func (uc *TransferUseCase) RequestTransfer(ctx context.Context, in TransferInput) (*entity.StockTransfer, error) {
	if in.SourceLocationID == "" || in.DestLocationID == "" || in.BatchID == "" || in.Quantity <= 0 {
		return nil, domain.ErrInvalidInput
	}
	if in.SourceLocationID == in.DestLocationID {
		return nil, domain.NewViolation(domain.ErrInvalidInput, "ubicación", in.DestLocationID)
	}
	now := uc.now()
	var t *entity.StockTransfer
	err := uc.txRunner.Run(ctx, func(ctx context.Context, repos ports.Repos) error {
		b, err := repos.Batches.GetByID(ctx, in.BatchID)
		if err != nil {
			return err
		}
		if b == nil {
			return domain.NewViolation(domain.ErrNotFound, "lote", in.BatchID)
		}
		if b.LocationID != in.SourceLocationID {
			return domain.NewViolation(domain.ErrInvalidInput, "lote", b.ID)
		}
		if in.Quantity > b.Available() {
			return domain.NewQuantityViolation(domain.ErrInsufficientStock, "lote", b.ID, in.Quantity, b.Available())
		}
		number, err := sequence.Next(ctx, repos.Sequences, sequence.Transfer, now)
		if err != nil {
			return err
		}
		t = &entity.StockTransfer{
			ID:               uuid.New().String(),
			Number:           number,
			SourceLocationID: in.SourceLocationID,
			DestLocationID:   in.DestLocationID,
			MedicationID:     b.MedicationID,
			SourceBatchID:    b.ID,
			Quantity:         in.Quantity,
			Reason:           in.Reason,
			Status:           entity.TransferRequested,
			RequestedBy:      in.Actor,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		return repos.Transfers.Create(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ApproveTransfer REQUESTED -> APPROVED.
func (uc *TransferUseCase) ApproveTransfer(ctx context.Context, id, actor string) (*entity.StockTransfer, error) {
	return uc.transition(ctx, id, func(t *entity.StockTransfer, now time.Time) bool {
		return t.Approve(actor, now)
	})
}

// RejectTransfer REQUESTED|APPROVED -> REJECTED.
func (uc *TransferUseCase) RejectTransfer(ctx context.Context, id, actor string) (*entity.StockTransfer, error) {
	return uc.transition(ctx, id, func(t *entity.StockTransfer, now time.Time) bool {
		return t.Reject(actor, now)
	})
}

// CompleteTransfer descuenta el lote origen y crea o incrementa el lote destino (mismo número
// de lote, nueva ubicación) en una sola transacción. Ambos lotes se bloquean en orden
// ascendente de id.
func (uc *TransferUseCase) CompleteTransfer(ctx context.Context, id, actor string) (*entity.StockTransfer, error) {
	if id == "" {
		return nil, domain.ErrInvalidInput
	}
	now := uc.now()
	var t *entity.StockTransfer
	err := uc.txRunner.Run(ctx, func(ctx context.Context, repos ports.Repos) error {
		var err error
		t, err = repos.Transfers.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if t == nil {
			return domain.NewViolation(domain.ErrNotFound, "transferencia", id)
		}
		if t.Status != entity.TransferApproved {
			return domain.NewViolation(domain.ErrInvalidState, "transferencia", t.ID)
		}
		src, err := repos.Batches.GetByID(ctx, t.SourceBatchID)
		if err != nil {
			return err
		}
		if src == nil {
			return domain.NewViolation(domain.ErrNotFound, "lote", t.SourceBatchID)
		}
		dst, err := repos.Batches.FindByNumberAndLocation(ctx, src.BatchNumber, t.DestLocationID)
		if err != nil {
			return err
		}

		ids := []string{src.ID}
		if dst != nil {
			ids = append(ids, dst.ID)
		}
		sort.Strings(ids)
		locked := map[string]*entity.StockBatch{}
		for _, bid := range ids {
			b, err := repos.Batches.GetForUpdate(ctx, bid)
			if err != nil {
				return err
			}
			locked[bid] = b
		}
		totalBefore := locked[src.ID].QuantityOnHand
		if dst != nil {
			totalBefore += locked[dst.ID].QuantityOnHand
		}

		m := ledger.Mutation{Actor: actor, CorrelationID: t.ID, Reason: t.Reason, At: now}
		srcAfter, err := uc.ledger.Adjust(ctx, repos, src.ID, -t.Quantity, entity.OpTransferOut, m)
		if err != nil {
			return err
		}
		var dstAfter *entity.StockBatch
		if dst != nil {
			if dstAfter, err = uc.ledger.Adjust(ctx, repos, dst.ID, t.Quantity, entity.OpTransferIn, m); err != nil {
				return err
			}
		} else {
			nb := &entity.StockBatch{
				MedicationID:      src.MedicationID,
				BatchNumber:       src.BatchNumber,
				LocationID:        t.DestLocationID,
				QuantityOnHand:    t.Quantity,
				ExpiryDate:        src.ExpiryDate,
				ReceivedDate:      src.ReceivedDate,
				UnitPurchasePrice: src.UnitPurchasePrice,
				UnitSellingPrice:  src.UnitSellingPrice,
				SourceType:        entity.BatchSourceTransferIn,
				SourceRef:         t.ID,
			}
			if _, err := uc.ledger.PostReceipt(ctx, repos, nb, m); err != nil {
				return err
			}
			dstAfter = nb
		}
		if srcAfter.QuantityOnHand+dstAfter.QuantityOnHand != totalBefore {
			panic(domain.NewViolation(domain.ErrTransferAtomicityViolation, "transferencia", t.ID))
		}
		t.Complete(actor, dstAfter.ID, now)
		return repos.Transfers.Update(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	uc.metrics.StockMoved(entity.OpTransferOut, t.Quantity)
	uc.log.Info().
		Str("transfer", t.Number).
		Str("from", t.SourceLocationID).
		Str("to", t.DestLocationID).
		Int64("quantity", t.Quantity).
		Msg("transferencia completada")
	return t, nil
}

// GetTransfer obtiene una transferencia.
func (uc *TransferUseCase) GetTransfer(ctx context.Context, id string) (*entity.StockTransfer, error) {
	var t *entity.StockTransfer
	err := uc.txRunner.Run(ctx, func(ctx context.Context, repos ports.Repos) error {
		var err error
		t, err = repos.Transfers.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.NewViolation(domain.ErrNotFound, "transferencia", id)
	}
	return t, nil
}

func (uc *TransferUseCase) transition(ctx context.Context, id string, apply func(*entity.StockTransfer, time.Time) bool) (*entity.StockTransfer, error) {
	if id == "" {
		return nil, domain.ErrInvalidInput
	}
	now := uc.now()
	var t *entity.StockTransfer
	err := uc.txRunner.Run(ctx, func(ctx context.Context, repos ports.Repos) error {
		var err error
		t, err = repos.Transfers.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if t == nil {
			return domain.NewViolation(domain.ErrNotFound, "transferencia", id)
		}
		if !apply(t, now) {
			return domain.NewViolation(domain.ErrInvalidState, "transferencia", t.ID)
		}
		return repos.Transfers.Update(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (uc *TransferUseCase) publish(ctx context.Context, events ...entity.DomainEvent) {
	if len(events) == 0 {
		return
	}
	if err := uc.publisher.Publish(ctx, events...); err != nil {
		uc.log.Warn().Err(err).Msg("publicar eventos de transferencias y devoluciones")
	}
}
