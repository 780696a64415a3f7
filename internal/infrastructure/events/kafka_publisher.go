// Package events publica eventos de dominio hacia colaboradores externos.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
	"github.com/jhoicas/pharmacy-inventory/internal/application/ports"
	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
)

var _ ports.EventPublisher = (*KafkaPublisher)(nil)

// ErrPublisherUnavailable el circuito está abierto o saturado.
var ErrPublisherUnavailable = errors.New("publicador de eventos no disponible")

// MessageWriter subconjunto de *kafka.Writer usado por el publicador.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Recorder registra el resultado de cada publicación (métricas).
type Recorder interface {
	EventPublished(eventType string, err error)
}

// KafkaConfig configuración del productor.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	Source       string // nombre del servicio emisor (header ce-source)
	BatchTimeout time.Duration
}

// BreakerConfig umbrales del circuito.
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultBreakerConfig valores por defecto del circuito del productor.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{MaxRequests: 5, Interval: time.Minute, Timeout: 30 * time.Second, FailureThreshold: 5}
}

// KafkaPublisher escribe eventos como mensajes JSON con headers CloudEvents,
// protegido por un circuit breaker.
type KafkaPublisher struct {
	writer   MessageWriter
	source   string
	cb       *gobreaker.CircuitBreaker
	recorder Recorder
	log      zerolog.Logger
}

// NewKafkaPublisher construye el publicador sobre un kafka.Writer.
func NewKafkaPublisher(cfg KafkaConfig, breaker BreakerConfig, recorder Recorder, log zerolog.Logger) *KafkaPublisher {
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 50 * time.Millisecond
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: cfg.BatchTimeout,
	}
	return NewKafkaPublisherWithWriter(w, cfg.Source, breaker, recorder, log)
}

// NewKafkaPublisherWithWriter permite inyectar el writer.
func NewKafkaPublisherWithWriter(w MessageWriter, source string, breaker BreakerConfig, recorder Recorder, log zerolog.Logger) *KafkaPublisher {
	settings := gobreaker.Settings{
		Name:        "kafka-events",
		MaxRequests: breaker.MaxRequests,
		Interval:    breaker.Interval,
		Timeout:     breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breaker.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("cambio de estado del circuito")
		},
	}
	return &KafkaPublisher{
		writer:   w,
		source:   source,
		cb:       gobreaker.NewCircuitBreaker(settings),
		recorder: recorder,
		log:      log,
	}
}

// Publish escribe todos los eventos en un solo lote.
func (p *KafkaPublisher) Publish(ctx context.Context, events ...entity.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		msg, err := p.message(e)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	_, err := p.cb.Execute(func() (interface{}, error) {
		return nil, p.writer.WriteMessages(ctx, msgs...)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%w: %v", ErrPublisherUnavailable, err)
	}
	if p.recorder != nil {
		for _, e := range events {
			p.recorder.EventPublished(e.Type, err)
		}
	}
	if err != nil {
		return fmt.Errorf("publicar %d eventos: %w", len(events), err)
	}
	return nil
}

// State estado del circuito.
func (p *KafkaPublisher) State() gobreaker.State {
	return p.cb.State()
}

// Close cierra el writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

type envelope struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	Source        string         `json:"source"`
	Subject       string         `json:"subject"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Time          time.Time      `json:"time"`
	Data          map[string]any `json:"data,omitempty"`
}

func (p *KafkaPublisher) message(e entity.DomainEvent) (kafka.Message, error) {
	data, err := json.Marshal(envelope{
		ID:            e.ID,
		Type:          e.Type,
		Source:        p.source,
		Subject:       e.Subject,
		CorrelationID: e.CorrelationID,
		Time:          e.OccurredAt.UTC(),
		Data:          e.Data,
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("serializar evento %s: %w", e.Type, err)
	}
	headers := []kafka.Header{
		{Key: "ce-specversion", Value: []byte("1.0")},
		{Key: "ce-id", Value: []byte(e.ID)},
		{Key: "ce-type", Value: []byte(e.Type)},
		{Key: "ce-source", Value: []byte(p.source)},
		{Key: "content-type", Value: []byte("application/json")},
	}
	if e.CorrelationID != "" {
		headers = append(headers, kafka.Header{Key: "ce-correlationid", Value: []byte(e.CorrelationID)})
	}
	return kafka.Message{
		Key:     []byte(e.Subject),
		Value:   data,
		Headers: headers,
		Time:    e.OccurredAt,
	}, nil
}
