package ports

import (
	"context"

	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
)

// EventPublisher publica eventos de dominio hacia colaboradores externos
// (notificaciones, facturación). Se invoca después del commit.
type EventPublisher interface {
	Publish(ctx context.Context, events ...entity.DomainEvent) error
}

// NopPublisher descarta los eventos.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ...entity.DomainEvent) error { return nil }
