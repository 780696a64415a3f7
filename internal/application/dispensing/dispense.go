package dispensing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/jhoicas/pharmacy-inventory/internal/application/allocation"
	"github.com/jhoicas/pharmacy-inventory/internal/application/ledger"
	"github.com/jhoicas/pharmacy-inventory/internal/application/ports"
	"github.com/jhoicas/pharmacy-inventory/internal/application/sequence"
	"github.com/jhoicas/pharmacy-inventory/internal/domain"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
)

// DispenseUseCase convierte una reserva HELD en un despacho definitivo.
type DispenseUseCase struct {
	txRunner  ports.TxRunner
	ledger    *ledger.Ledger
	publisher ports.EventPublisher
	metrics   ports.Metrics
	log       zerolog.Logger
	now       func() time.Time
}

// NewDispenseUseCase construye el caso de uso.
func NewDispenseUseCase(txRunner ports.TxRunner, l *ledger.Ledger, publisher ports.EventPublisher, metrics ports.Metrics, log zerolog.Logger) *DispenseUseCase {
	if publisher == nil {
		publisher = ports.NopPublisher{}
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &DispenseUseCase{txRunner: txRunner, ledger: l, publisher: publisher, metrics: metrics, log: log, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (uc *DispenseUseCase) WithClock(now func() time.Time) *DispenseUseCase {
	uc.now = now
	return uc
}

// DispenseReservation confirma la reserva: HELD -> COMMITTED, descuenta cada línea en el
// ledger y congela el precio de venta de cada lote en el registro. Un segundo intento falla
// con ErrReservationNotHeld; si el barrido ya la liberó, con ErrReservationExpired.
func (uc *DispenseUseCase) DispenseReservation(ctx context.Context, reservationID, actor string) (*entity.DispenseRecord, error) {
	if reservationID == "" || actor == "" {
		return nil, domain.ErrInvalidInput
	}
	now := uc.now()
	var rec *entity.DispenseRecord
	err := uc.txRunner.Run(ctx, func(ctx context.Context, repos ports.Repos) error {
		// Primero la fila de la reserva, luego los lotes: misma disciplina que el barrido.
		res, err := repos.Reservations.GetForUpdate(ctx, reservationID)
		if err != nil {
			return err
		}
		if res == nil {
			return domain.NewViolation(domain.ErrNotFound, "reserva", reservationID)
		}
		if err := allocation.RequireHeld(res); err != nil {
			return err
		}
		number, err := sequence.Next(ctx, repos.Sequences, sequence.Dispense, now)
		if err != nil {
			return err
		}
		rec = &entity.DispenseRecord{
			ID:                 uuid.New().String(),
			Number:             number,
			ReservationID:      res.ID,
			MedicationID:       res.MedicationID,
			PrescriptionLineID: res.PrescriptionLineID,
			DispensedBy:        actor,
			DispensedAt:        now,
			Total:              decimal.Zero,
		}
		batches, err := uc.ledger.CommitReservation(ctx, repos, res, ledger.Mutation{
			Actor:         actor,
			CorrelationID: rec.ID,
			Reason:        res.Number,
			At:            now,
		})
		if err != nil {
			return err
		}
		for _, line := range res.Lines {
			b := batches[line.BatchID]
			total := b.UnitSellingPrice.Mul(decimal.NewFromInt(line.Quantity))
			rec.Lines = append(rec.Lines, entity.DispenseLine{
				DispenseID:        rec.ID,
				Ordinal:           line.Ordinal,
				BatchID:           line.BatchID,
				Quantity:          line.Quantity,
				UnitPrice:         b.UnitSellingPrice,
				LineTotal:         total,
				ExpiredAtDispense: b.IsExpired(now),
			})
			rec.Total = rec.Total.Add(total)
		}
		if err := repos.Dispenses.Create(ctx, rec); err != nil {
			return err
		}
		res.Finish(entity.ReservationCommitted, now)
		return repos.Reservations.UpdateStatus(ctx, res)
	})
	if err != nil {
		return nil, err
	}

	var units int64
	for _, l := range rec.Lines {
		units += l.Quantity
	}
	uc.metrics.StockMoved(entity.OpDispense, units)
	uc.publish(ctx, dispenseEvents(rec)...)
	return rec, nil
}

// GetDispense obtiene un despacho.
func (uc *DispenseUseCase) GetDispense(ctx context.Context, id string) (*entity.DispenseRecord, error) {
	var rec *entity.DispenseRecord
	err := uc.txRunner.Run(ctx, func(ctx context.Context, repos ports.Repos) error {
		var err error
		rec, err = repos.Dispenses.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.NewViolation(domain.ErrNotFound, "despacho", id)
	}
	return rec, nil
}

// dispenseEvents ítems de facturación y, si aplica, aviso de lote vencido despachado.
func dispenseEvents(rec *entity.DispenseRecord) []entity.DomainEvent {
	items := make([]map[string]any, 0, len(rec.Lines))
	var expired []string
	for _, l := range rec.Lines {
		items = append(items, map[string]any{
			"batch_id":   l.BatchID,
			"quantity":   l.Quantity,
			"unit_price": l.UnitPrice.String(),
			"line_total": l.LineTotal.String(),
		})
		if l.ExpiredAtDispense {
			expired = append(expired, l.BatchID)
		}
	}
	events := []entity.DomainEvent{{
		ID:            uuid.New().String(),
		Type:          entity.EventDispenseCommitted,
		Subject:       rec.ID,
		CorrelationID: rec.ID,
		OccurredAt:    rec.DispensedAt,
		Data: map[string]any{
			"dispense_number":      rec.Number,
			"reservation_id":       rec.ReservationID,
			"prescription_line_id": rec.PrescriptionLineID,
			"medication_id":        rec.MedicationID,
			"total":                rec.Total.String(),
			"items":                items,
		},
	}}
	if len(expired) > 0 {
		events = append(events, entity.DomainEvent{
			ID:            uuid.New().String(),
			Type:          entity.EventExpiredBatchDispense,
			Subject:       rec.ID,
			CorrelationID: rec.ID,
			OccurredAt:    rec.DispensedAt,
			Data:          map[string]any{"batch_ids": expired},
		})
	}
	return events
}

func (uc *DispenseUseCase) publish(ctx context.Context, events ...entity.DomainEvent) {
	if err := uc.publisher.Publish(ctx, events...); err != nil {
		uc.log.Warn().Err(err).Msg("publicar eventos de despacho")
	}
}
