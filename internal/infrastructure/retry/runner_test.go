package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/pharmacy-inventory/internal/application/ports"
	"github.com/jhoicas/pharmacy-inventory/internal/domain"
	"github.com/jhoicas/pharmacy-inventory/internal/infrastructure/retry"
)

// flakyRunner falla con conflicto las primeras n veces.
type flakyRunner struct {
	failures int
	calls    int
}

func (f *flakyRunner) Run(ctx context.Context, fn func(ctx context.Context, repos ports.Repos) error) error {
	f.calls++
	if f.calls <= f.failures {
		return domain.ErrConcurrencyConflict
	}
	return fn(ctx, ports.Repos{})
}

type retryCounter struct {
	ports.NopMetrics
	retries int
}

func (c *retryCounter) ConcurrencyRetry(int) { c.retries++ }

func cfg(max int) retry.Config {
	return retry.Config{MaxRetries: max, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestRunner_ReintentaHastaExito(t *testing.T) {
	inner := &flakyRunner{failures: 2}
	metrics := &retryCounter{}
	r := retry.NewRunner(inner, cfg(3), metrics, zerolog.Nop())

	err := r.Run(context.Background(), func(context.Context, ports.Repos) error { return nil })

	assert.NoError(t, err)
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, 2, metrics.retries)
}

func TestRunner_AgotaReintentos(t *testing.T) {
	inner := &flakyRunner{failures: 10}
	r := retry.NewRunner(inner, cfg(2), nil, zerolog.Nop())

	err := r.Run(context.Background(), func(context.Context, ports.Repos) error { return nil })

	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)
	assert.Equal(t, 3, inner.calls, "intento inicial + 2 reintentos")
}

func TestRunner_NoReintentaErroresDeNegocio(t *testing.T) {
	inner := &flakyRunner{}
	r := retry.NewRunner(inner, cfg(5), nil, zerolog.Nop())
	want := domain.NewQuantityViolation(domain.ErrInsufficientStock, "lote", "b1", 5, 2)

	err := r.Run(context.Background(), func(context.Context, ports.Repos) error { return want })

	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	var v *domain.Violation
	assert.True(t, errors.As(err, &v))
	assert.Equal(t, int64(2), v.Available)
	assert.Equal(t, 1, inner.calls)
}
