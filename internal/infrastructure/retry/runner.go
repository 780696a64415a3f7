// Package retry reintenta unidades de trabajo completas que fallan por conflicto de
// concurrencia (bloqueo con espera agotada, serialización, deadlock).
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/jhoicas/pharmacy-inventory/internal/application/ports"
	"github.com/jhoicas/pharmacy-inventory/internal/domain"
)

var _ ports.TxRunner = (*Runner)(nil)

// Config parámetros de reintento.
type Config struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// Runner decora un TxRunner. Solo reintenta domain.ErrConcurrencyConflict; cualquier otro
// error es terminal. Agotados los reintentos, devuelve ErrConcurrencyConflict al llamador.
type Runner struct {
	next    ports.TxRunner
	cfg     Config
	metrics ports.Metrics
	log     zerolog.Logger
}

// NewRunner construye el decorador.
func NewRunner(next ports.TxRunner, cfg Config, metrics ports.Metrics, log zerolog.Logger) *Runner {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 20 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = time.Second
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &Runner{next: next, cfg: cfg, metrics: metrics, log: log}
}

// Run ejecuta fn con reintentos y backoff exponencial.
func (r *Runner) Run(ctx context.Context, fn func(ctx context.Context, repos ports.Repos) error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.cfg.BaseDelay
	eb.MaxInterval = r.cfg.MaxDelay
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(r.cfg.MaxRetries)), ctx)

	attempt := 0
	op := func() error {
		attempt++
		err := r.next.Run(ctx, fn)
		if err == nil || errors.Is(err, domain.ErrConcurrencyConflict) {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		r.metrics.ConcurrencyRetry(attempt)
		r.log.Debug().Err(err).Int("attempt", attempt).Dur("wait", wait).Msg("reintento por conflicto de concurrencia")
	}
	err := backoff.RetryNotify(op, policy, notify)
	if err != nil && errors.Is(err, domain.ErrConcurrencyConflict) {
		r.log.Warn().Int("attempts", attempt).Msg("conflicto de concurrencia tras agotar reintentos")
	}
	return err
}
