package allocation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/jhoicas/pharmacy-inventory/internal/application/ledger"
	"github.com/jhoicas/pharmacy-inventory/internal/application/ports"
	"github.com/jhoicas/pharmacy-inventory/internal/application/sequence"
	"github.com/jhoicas/pharmacy-inventory/internal/domain"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/inventory"
)

// AllocateUseCase reserva stock por FEFO y libera reservas (explícitamente o por vencimiento).
type AllocateUseCase struct {
	txRunner    ports.TxRunner
	ledger      *ledger.Ledger
	publisher   ports.EventPublisher
	metrics     ports.Metrics
	log         zerolog.Logger
	holdTimeout time.Duration
	now         func() time.Time
}

// NewAllocateUseCase construye el caso de uso. holdTimeout es el tiempo máximo en HELD.
func NewAllocateUseCase(
	txRunner ports.TxRunner,
	l *ledger.Ledger,
	publisher ports.EventPublisher,
	metrics ports.Metrics,
	log zerolog.Logger,
	holdTimeout time.Duration,
) *AllocateUseCase {
	if publisher == nil {
		publisher = ports.NopPublisher{}
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	if holdTimeout <= 0 {
		holdTimeout = 15 * time.Minute
	}
	return &AllocateUseCase{
		txRunner:    txRunner,
		ledger:      l,
		publisher:   publisher,
		metrics:     metrics,
		log:         log,
		holdTimeout: holdTimeout,
		now:         time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (uc *AllocateUseCase) WithClock(now func() time.Time) *AllocateUseCase {
	uc.now = now
	return uc
}

// AllocateInput entrada de Allocate. AsOf cero usa la fecha actual; LocationID vacío
// considera todas las ubicaciones.
type AllocateInput struct {
	MedicationID       string
	Quantity           int64
	AsOf               time.Time
	PrescriptionLineID string
	LocationID         string
	Actor              string
}

// Allocate reserva qty unidades repartidas en lotes por orden FEFO. Si el disponible no
// alcanza falla con ErrInsufficientStock y no queda ninguna retención parcial.
func (uc *AllocateUseCase) Allocate(ctx context.Context, in AllocateInput) (*entity.Reservation, error) {
	if in.MedicationID == "" || in.Quantity <= 0 {
		return nil, domain.ErrInvalidInput
	}
	now := uc.now()
	asOf := in.AsOf
	if asOf.IsZero() {
		asOf = now
	}
	var (
		res *entity.Reservation
		low *entity.DomainEvent
	)
	err := uc.txRunner.Run(ctx, func(ctx context.Context, repos ports.Repos) error {
		low = nil
		med, err := repos.Medications.GetByID(ctx, in.MedicationID)
		if err != nil {
			return err
		}
		if med == nil {
			return domain.NewViolation(domain.ErrNotFound, "medicamento", in.MedicationID)
		}
		// Bloqueo en orden de id; el orden FEFO se calcula en memoria.
		candidates, err := repos.Batches.ListAllocatableForUpdate(ctx, in.MedicationID, in.LocationID, asOf)
		if err != nil {
			return err
		}
		picks, available := inventory.SelectBatches(candidates, in.Quantity, asOf)
		if picks == nil {
			return domain.NewQuantityViolation(domain.ErrInsufficientStock, "medicamento", in.MedicationID, in.Quantity, available)
		}
		// El umbral de reorden se mide sobre todo el medicamento (todas las ubicaciones) a la
		// fecha actual, antes y después de reservar; asOf y LocationID solo eligen los lotes.
		totalBefore, err := repos.Batches.AvailableByMedication(ctx, in.MedicationID, now)
		if err != nil {
			return err
		}

		number, err := sequence.Next(ctx, repos.Sequences, sequence.Reservation, now)
		if err != nil {
			return err
		}
		res = &entity.Reservation{
			ID:                 uuid.New().String(),
			Number:             number,
			MedicationID:       in.MedicationID,
			PrescriptionLineID: in.PrescriptionLineID,
			LocationID:         in.LocationID,
			Quantity:           in.Quantity,
			Status:             entity.ReservationHeld,
			ExpiresAt:          now.Add(uc.holdTimeout),
			CreatedBy:          in.Actor,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		m := ledger.Mutation{Actor: in.Actor, CorrelationID: res.ID, Reason: in.PrescriptionLineID, At: now}
		for i, p := range picks {
			if err := uc.ledger.Reserve(ctx, repos, res.ID, p.BatchID, p.Quantity, m); err != nil {
				return err
			}
			res.Lines = append(res.Lines, entity.AllocationLine{
				ReservationID: res.ID,
				Ordinal:       i + 1,
				BatchID:       p.BatchID,
				Quantity:      p.Quantity,
			})
		}
		if err := repos.Reservations.Create(ctx, res); err != nil {
			return err
		}
		totalAfter, err := repos.Batches.AvailableByMedication(ctx, in.MedicationID, now)
		if err != nil {
			return err
		}
		low = ledger.LowStockEvent(med, totalBefore, totalAfter, now)
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			uc.metrics.AllocationFailed("insufficient_stock")
		}
		return nil, err
	}
	uc.metrics.StockMoved(entity.OpReserve, in.Quantity)
	if low != nil {
		uc.publish(ctx, *low)
	}
	return res, nil
}

// Release libera una reserva HELD a pedido del llamador.
func (uc *AllocateUseCase) Release(ctx context.Context, reservationID, actor string) (*entity.Reservation, error) {
	if reservationID == "" {
		return nil, domain.ErrInvalidInput
	}
	now := uc.now()
	var res *entity.Reservation
	err := uc.txRunner.Run(ctx, func(ctx context.Context, repos ports.Repos) error {
		var err error
		res, err = repos.Reservations.GetForUpdate(ctx, reservationID)
		if err != nil {
			return err
		}
		if res == nil {
			return domain.NewViolation(domain.ErrNotFound, "reserva", reservationID)
		}
		if err := RequireHeld(res); err != nil {
			return err
		}
		m := ledger.Mutation{Actor: actor, CorrelationID: res.ID, At: now}
		if err := uc.ledger.Release(ctx, repos, res, entity.OpRelease, m); err != nil {
			return err
		}
		res.Finish(entity.ReservationReleased, now)
		return repos.Reservations.UpdateStatus(ctx, res)
	})
	if err != nil {
		return nil, err
	}
	uc.metrics.StockMoved(entity.OpRelease, res.Quantity)
	return res, nil
}

// GetReservation obtiene la reserva con sus líneas.
func (uc *AllocateUseCase) GetReservation(ctx context.Context, id string) (*entity.Reservation, error) {
	var res *entity.Reservation
	err := uc.txRunner.Run(ctx, func(ctx context.Context, repos ports.Repos) error {
		var err error
		res, err = repos.Reservations.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, domain.NewViolation(domain.ErrNotFound, "reserva", id)
	}
	return res, nil
}

// RequireHeld traduce el estado de una reserva no retenida al error del contrato:
// EXPIRED -> ErrReservationExpired, cualquier otro -> ErrReservationNotHeld.
func RequireHeld(res *entity.Reservation) error {
	switch res.Status {
	case entity.ReservationHeld:
		return nil
	case entity.ReservationExpired:
		return domain.NewViolation(domain.ErrReservationExpired, "reserva", res.ID)
	default:
		return domain.NewViolation(domain.ErrReservationNotHeld, "reserva", res.ID)
	}
}

func (uc *AllocateUseCase) publish(ctx context.Context, events ...entity.DomainEvent) {
	if err := uc.publisher.Publish(ctx, events...); err != nil {
		uc.log.Warn().Err(err).Msg("publicar eventos de asignación")
	}
}
