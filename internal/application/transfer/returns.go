package transfer

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/jhoicas/pharmacy-inventory/internal/application/ledger"
	"github.com/jhoicas/pharmacy-inventory/internal/application/ports"
	"github.com/jhoicas/pharmacy-inventory/internal/application/sequence"
	"github.com/jhoicas/pharmacy-inventory/internal/domain"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
)

// ReturnInput entrada de ReturnStock. RelatedDispenseID es obligatorio para PATIENT.
type ReturnInput struct {
	Kind              string
	BatchID           string
	Quantity          int64
	RelatedDispenseID string
	Condition         string // PATIENT: UNOPENED (default) | OPENED | DAMAGED
	Reason            string // SUPPLIER: DAMAGED, EXPIRED, WRONG_ITEM... (default OTHER)
	Actor             string
}

// ReturnResult registro creado y existencias del lote después de la devolución.
type ReturnResult struct {
	Record           *entity.ReturnRecord
	AdjustedQuantity int64
}

// ReturnStock aplica una devolución. Paciente: no puede superar lo despachado desde el lote
// a esa prescripción menos lo ya devuelto (ErrOverReturn); solo UNOPENED vuelve al stock.
// Proveedor: descuenta on_hand de forma permanente (ErrInsufficientStock) y registra el crédito.
func (uc *TransferUseCase) ReturnStock(ctx context.Context, in ReturnInput) (*ReturnResult, error) {
	if in.BatchID == "" || in.Quantity <= 0 {
		return nil, domain.ErrInvalidInput
	}
	switch in.Kind {
	case entity.ReturnPatient:
		if in.RelatedDispenseID == "" {
			return nil, domain.ErrInvalidInput
		}
		if in.Condition == "" {
			in.Condition = entity.ConditionUnopened
		}
		if !entity.ValidCondition(in.Condition) {
			return nil, domain.ErrInvalidInput
		}
		return uc.patientReturn(ctx, in)
	case entity.ReturnSupplier:
		if in.Reason == "" {
			in.Reason = entity.ReasonOther
		}
		if !entity.ValidSupplierReason(in.Reason) {
			return nil, domain.ErrInvalidInput
		}
		return uc.supplierReturn(ctx, in)
	default:
		return nil, domain.ErrInvalidInput
	}
}

// GetReturn obtiene una devolución.
func (uc *TransferUseCase) GetReturn(ctx context.Context, id string) (*entity.ReturnRecord, error) {
	var rec *entity.ReturnRecord
	err := uc.txRunner.Run(ctx, func(ctx context.Context, repos ports.Repos) error {
		var err error
		rec, err = repos.Returns.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.NewViolation(domain.ErrNotFound, "devolución", id)
	}
	return rec, nil
}

func (uc *TransferUseCase) patientReturn(ctx context.Context, in ReturnInput) (*ReturnResult, error) {
	now := uc.now()
	var out *ReturnResult
	err := uc.txRunner.Run(ctx, func(ctx context.Context, repos ports.Repos) error {
		d, err := repos.Dispenses.GetByID(ctx, in.RelatedDispenseID)
		if err != nil {
			return err
		}
		if d == nil {
			return domain.NewViolation(domain.ErrNotFound, "despacho", in.RelatedDispenseID)
		}
		// Bloquear el lote antes de sumar devoluciones previas serializa devoluciones concurrentes.
		b, err := repos.Batches.GetForUpdate(ctx, in.BatchID)
		if err != nil {
			return err
		}
		if b == nil {
			return domain.NewViolation(domain.ErrNotFound, "lote", in.BatchID)
		}
		dispensed := d.QuantityFromBatch(b.ID)
		if d.PrescriptionLineID != "" {
			if dispensed, err = repos.Dispenses.SumDispensed(ctx, d.PrescriptionLineID, b.ID); err != nil {
				return err
			}
		}
		returned, err := repos.Returns.SumPatientReturned(ctx, d.PrescriptionLineID, d.ID, b.ID)
		if err != nil {
			return err
		}
		if in.Quantity > dispensed-returned {
			return domain.NewQuantityViolation(domain.ErrOverReturn, "despacho", d.ID, in.Quantity, dispensed-returned)
		}

		number, err := sequence.Next(ctx, repos.Sequences, sequence.PatientReturn, now)
		if err != nil {
			return err
		}
		rec := &entity.ReturnRecord{
			ID:                 uuid.New().String(),
			Number:             number,
			Kind:               entity.ReturnPatient,
			BatchID:            b.ID,
			MedicationID:       b.MedicationID,
			Quantity:           in.Quantity,
			RelatedDispenseID:  d.ID,
			PrescriptionLineID: d.PrescriptionLineID,
			Condition:          in.Condition,
			Reason:             in.Reason,
			Restocked:          in.Condition == entity.ConditionUnopened,
			RefundAmount:       d.UnitPriceForBatch(b.ID).Mul(decimal.NewFromInt(in.Quantity)),
			CreditAmount:       decimal.Zero,
			CreatedBy:          in.Actor,
			CreatedAt:          now,
		}
		adjusted := b.QuantityOnHand
		if rec.Restocked {
			// La correlación es el despacho original: la auditoría une salida y devolución.
			after, err := uc.ledger.Adjust(ctx, repos, b.ID, in.Quantity, entity.OpPatientReturn, ledger.Mutation{
				Actor:         in.Actor,
				CorrelationID: d.ID,
				Reason:        rec.Number,
				At:            now,
			})
			if err != nil {
				return err
			}
			adjusted = after.QuantityOnHand
		}
		if err := repos.Returns.Create(ctx, rec); err != nil {
			return err
		}
		out = &ReturnResult{Record: rec, AdjustedQuantity: adjusted}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out.Record.Restocked {
		uc.metrics.StockMoved(entity.OpPatientReturn, in.Quantity)
	}
	return out, nil
}

func (uc *TransferUseCase) supplierReturn(ctx context.Context, in ReturnInput) (*ReturnResult, error) {
	now := uc.now()
	var (
		out *ReturnResult
		low *entity.DomainEvent
	)
	err := uc.txRunner.Run(ctx, func(ctx context.Context, repos ports.Repos) error {
		low = nil
		b, err := repos.Batches.GetForUpdate(ctx, in.BatchID)
		if err != nil {
			return err
		}
		if b == nil {
			return domain.NewViolation(domain.ErrNotFound, "lote", in.BatchID)
		}
		totalBefore, err := repos.Batches.AvailableByMedication(ctx, b.MedicationID, now)
		if err != nil {
			return err
		}
		number, err := sequence.Next(ctx, repos.Sequences, sequence.SupplierReturn, now)
		if err != nil {
			return err
		}
		rec := &entity.ReturnRecord{
			ID:           uuid.New().String(),
			Number:       number,
			Kind:         entity.ReturnSupplier,
			BatchID:      b.ID,
			MedicationID: b.MedicationID,
			Quantity:     in.Quantity,
			Reason:       in.Reason,
			RefundAmount: decimal.Zero,
			CreditAmount: b.UnitPurchasePrice.Mul(decimal.NewFromInt(in.Quantity)),
			CreatedBy:    in.Actor,
			CreatedAt:    now,
		}
		after, err := uc.ledger.Adjust(ctx, repos, b.ID, -in.Quantity, entity.OpSupplierReturn, ledger.Mutation{
			Actor:         in.Actor,
			CorrelationID: rec.ID,
			Reason:        in.Reason,
			At:            now,
		})
		if err != nil {
			return err
		}
		if err := repos.Returns.Create(ctx, rec); err != nil {
			return err
		}
		if !b.IsExpired(now) {
			med, err := repos.Medications.GetByID(ctx, b.MedicationID)
			if err != nil {
				return err
			}
			if med != nil {
				low = ledger.LowStockEvent(med, totalBefore, totalBefore-in.Quantity, now)
			}
		}
		out = &ReturnResult{Record: rec, AdjustedQuantity: after.QuantityOnHand}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.metrics.StockMoved(entity.OpSupplierReturn, in.Quantity)
	events := []entity.DomainEvent{{
		ID:            uuid.New().String(),
		Type:          entity.EventSupplierCredit,
		Subject:       out.Record.ID,
		CorrelationID: out.Record.ID,
		OccurredAt:    now,
		Data: map[string]any{
			"return_number": out.Record.Number,
			"batch_id":      out.Record.BatchID,
			"quantity":      out.Record.Quantity,
			"reason":        out.Record.Reason,
			"credit_amount": out.Record.CreditAmount.String(),
		},
	}}
	if low != nil {
		events = append(events, *low)
	}
	uc.publish(ctx, events...)
	return out, nil
}
