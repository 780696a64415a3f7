package events

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/jhoicas/pharmacy-inventory/internal/application/ports"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
)

var _ ports.EventPublisher = (*LogPublisher)(nil)

// LogPublisher escribe los eventos en el log (sin broker configurado).
type LogPublisher struct {
	log zerolog.Logger
}

// NewLogPublisher construye el publicador.
func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, events ...entity.DomainEvent) error {
	for _, e := range events {
		p.log.Info().
			Str("event_id", e.ID).
			Str("type", e.Type).
			Str("subject", e.Subject).
			Str("correlation_id", e.CorrelationID).
			Interface("data", e.Data).
			Msg("evento de dominio")
	}
	return nil
}
