package purchase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/jhoicas/pharmacy-inventory/internal/application/ledger"
	"github.com/jhoicas/pharmacy-inventory/internal/application/ports"
	"github.com/jhoicas/pharmacy-inventory/internal/application/sequence"
	"github.com/jhoicas/pharmacy-inventory/internal/domain"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
)

// PurchaseUseCase flujo de compras: orden de compra -> aprobación -> GRN -> aprobación del GRN.
// Solo ApproveGRN escribe en el ledger.
type PurchaseUseCase struct {
	txRunner  ports.TxRunner
	ledger    *ledger.Ledger
	publisher ports.EventPublisher
	log       zerolog.Logger
	now       func() time.Time
}

// NewPurchaseUseCase construye el caso de uso.
func NewPurchaseUseCase(txRunner ports.TxRunner, l *ledger.Ledger, publisher ports.EventPublisher, log zerolog.Logger) *PurchaseUseCase {
	if publisher == nil {
		publisher = ports.NopPublisher{}
	}
	return &PurchaseUseCase{txRunner: txRunner, ledger: l, publisher: publisher, log: log, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (uc *PurchaseUseCase) WithClock(now func() time.Time) *PurchaseUseCase {
	uc.now = now
	return uc
}

// OrderLineInput ítem a ordenar.
type OrderLineInput struct {
	MedicationID string
	Quantity     int64
	UnitPrice    decimal.Decimal
}

// CreatePurchaseOrder crea la orden en DRAFT con número PO-YYYYMMDD-NNNN.
func (uc *PurchaseUseCase) CreatePurchaseOrder(ctx context.Context, supplierID string, lines []OrderLineInput, actor string) (*entity.PurchaseOrder, error) {
	if supplierID == "" || len(lines) == 0 {
		return nil, domain.ErrInvalidInput
	}
	for _, l := range lines {
		if l.MedicationID == "" || l.Quantity <= 0 || l.UnitPrice.IsNegative() {
			return nil, domain.ErrInvalidInput
		}
	}
	now := uc.now()
	var po *entity.PurchaseOrder
	err := uc.txRunner.Run(ctx, func(ctx context.Context, repos ports.Repos) error {
		for _, l := range lines {
			m, err := repos.Medications.GetByID(ctx, l.MedicationID)
			if err != nil {
				return err
			}
			if m == nil {
				return domain.NewViolation(domain.ErrNotFound, "medicamento", l.MedicationID)
			}
		}
		number, err := sequence.Next(ctx, repos.Sequences, sequence.PurchaseOrder, now)
		if err != nil {
			return err
		}
		po = &entity.PurchaseOrder{
			ID:         uuid.New().String(),
			Number:     number,
			SupplierID: supplierID,
			Status:     entity.POStatusDraft,
			CreatedBy:  actor,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		for i, l := range lines {
			po.Lines = append(po.Lines, entity.PurchaseOrderLine{
				ID:              uuid.New().String(),
				PurchaseOrderID: po.ID,
				LineNo:          i + 1,
				MedicationID:    l.MedicationID,
				OrderedQuantity: l.Quantity,
				UnitPrice:       l.UnitPrice,
			})
		}
		return repos.PurchaseOrders.Create(ctx, po)
	})
	if err != nil {
		return nil, err
	}
	return po, nil
}

// SubmitPurchaseOrder DRAFT -> PENDING_APPROVAL.
func (uc *PurchaseUseCase) SubmitPurchaseOrder(ctx context.Context, id, actor string) (*entity.PurchaseOrder, error) {
	return uc.transitionOrder(ctx, id, func(po *entity.PurchaseOrder, now time.Time) error {
		if !po.Submit(now) {
			return domain.NewViolation(domain.ErrInvalidState, "orden de compra", po.ID)
		}
		return nil
	})
}

// ApprovePurchaseOrder PENDING_APPROVAL -> APPROVED. Un segundo intento observa el estado
// terminal y falla con ErrAlreadyApproved.
func (uc *PurchaseUseCase) ApprovePurchaseOrder(ctx context.Context, id, approverID string) (*entity.PurchaseOrder, error) {
	return uc.transitionOrder(ctx, id, func(po *entity.PurchaseOrder, now time.Time) error {
		if po.IsApproved() {
			return domain.NewViolation(domain.ErrAlreadyApproved, "orden de compra", po.ID)
		}
		if !po.Approve(approverID, now) {
			return domain.NewViolation(domain.ErrInvalidState, "orden de compra", po.ID)
		}
		return nil
	})
}

// RejectPurchaseOrder PENDING_APPROVAL -> REJECTED.
func (uc *PurchaseUseCase) RejectPurchaseOrder(ctx context.Context, id, approverID string) (*entity.PurchaseOrder, error) {
	return uc.transitionOrder(ctx, id, func(po *entity.PurchaseOrder, now time.Time) error {
		if po.IsApproved() {
			return domain.NewViolation(domain.ErrAlreadyApproved, "orden de compra", po.ID)
		}
		if !po.Reject(approverID, now) {
			return domain.NewViolation(domain.ErrInvalidState, "orden de compra", po.ID)
		}
		return nil
	})
}

// GetPurchaseOrder obtiene la orden con sus líneas.
func (uc *PurchaseUseCase) GetPurchaseOrder(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	var po *entity.PurchaseOrder
	err := uc.txRunner.Run(ctx, func(ctx context.Context, repos ports.Repos) error {
		var err error
		po, err = repos.PurchaseOrders.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if po == nil {
		return nil, domain.NewViolation(domain.ErrNotFound, "orden de compra", id)
	}
	return po, nil
}

func (uc *PurchaseUseCase) transitionOrder(ctx context.Context, id string, apply func(*entity.PurchaseOrder, time.Time) error) (*entity.PurchaseOrder, error) {
	if id == "" {
		return nil, domain.ErrInvalidInput
	}
	now := uc.now()
	var po *entity.PurchaseOrder
	err := uc.txRunner.Run(ctx, func(ctx context.Context, repos ports.Repos) error {
		var err error
		// Bloqueo de la fila: un solo aprobador gana.
		po, err = repos.PurchaseOrders.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if po == nil {
			return domain.NewViolation(domain.ErrNotFound, "orden de compra", id)
		}
		if err := apply(po, now); err != nil {
			return err
		}
		return repos.PurchaseOrders.UpdateStatus(ctx, po)
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("purchase_order", po.Number).Str("status", po.Status).Msg("orden de compra actualizada")
	return po, nil
}
