package allocation

import (
	"context"
	"errors"
	"time"

	"github.com/jhoicas/pharmacy-inventory/internal/application/ledger"
	"github.com/jhoicas/pharmacy-inventory/internal/application/ports"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
)

// SweeperActor actor registrado en la auditoría de las liberaciones por vencimiento.
const SweeperActor = "system:sweeper"

const sweepBatchSize = 100

// SweepExpired libera las reservas HELD cuyo plazo venció y las marca EXPIRED.
// Cada reserva se procesa en su propia transacción bloqueando primero la fila de la
// reserva, igual que el despacho: si el despacho ganó, la reserva se omite.
func (uc *AllocateUseCase) SweepExpired(ctx context.Context) (int, error) {
	now := uc.now()
	var ids []string
	err := uc.txRunner.Run(ctx, func(ctx context.Context, repos ports.Repos) error {
		var err error
		ids, err = repos.Reservations.ListExpiredHeld(ctx, now, sweepBatchSize)
		return err
	})
	if err != nil {
		return 0, err
	}

	var (
		expired int
		units   int64
		errs    []error
	)
	for _, id := range ids {
		var qty int64
		err := uc.txRunner.Run(ctx, func(ctx context.Context, repos ports.Repos) error {
			qty = 0
			res, err := repos.Reservations.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if res == nil || !res.PastTimeout(now) {
				return nil
			}
			m := ledger.Mutation{Actor: SweeperActor, CorrelationID: res.ID, Reason: "hold timeout", At: now}
			if err := uc.ledger.Release(ctx, repos, res, entity.OpExpire, m); err != nil {
				return err
			}
			res.Finish(entity.ReservationExpired, now)
			if err := repos.Reservations.UpdateStatus(ctx, res); err != nil {
				return err
			}
			qty = res.Quantity
			return nil
		})
		if err != nil {
			uc.log.Error().Err(err).Str("reservation_id", id).Msg("liberar reserva vencida")
			errs = append(errs, err)
			continue
		}
		if qty > 0 {
			expired++
			units += qty
		}
	}
	if expired > 0 {
		uc.metrics.ReservationsExpired(expired)
		uc.metrics.StockMoved(entity.OpExpire, units)
		uc.log.Info().Int("expired", expired).Msg("reservas vencidas liberadas")
	}
	return expired, errors.Join(errs...)
}

// RunSweeper ejecuta SweepExpired cada interval hasta que ctx se cancele.
func (uc *AllocateUseCase) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := uc.SweepExpired(ctx); err != nil {
				uc.log.Warn().Err(err).Msg("barrido de reservas")
			}
		}
	}
}
