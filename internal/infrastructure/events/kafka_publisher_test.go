package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pharmacy-inventory/internal/domain/entity"
	"github.com/jhoicas/pharmacy-inventory/internal/infrastructure/events"
)

type fakeWriter struct {
	fail  error
	calls int
	msgs  []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.calls++
	if w.fail != nil {
		return w.fail
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func sampleEvent() entity.DomainEvent {
	return entity.DomainEvent{
		ID:            "ev-1",
		Type:          entity.EventDispenseCommitted,
		Subject:       "dsp-1",
		CorrelationID: "dsp-1",
		OccurredAt:    time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
		Data:          map[string]any{"total": "12.50"},
	}
}

func TestKafkaPublisher_Mensaje(t *testing.T) {
	w := &fakeWriter{}
	p := events.NewKafkaPublisherWithWriter(w, "pharmacy-inventory", events.DefaultBreakerConfig(), nil, zerolog.Nop())

	require.NoError(t, p.Publish(context.Background(), sampleEvent()))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "dsp-1", string(msg.Key))
	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, entity.EventDispenseCommitted, body["type"])
	assert.Equal(t, "pharmacy-inventory", body["source"])

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, entity.EventDispenseCommitted, headers["ce-type"])
	assert.Equal(t, "dsp-1", headers["ce-correlationid"])
}

func TestKafkaPublisher_AbreCircuito(t *testing.T) {
	w := &fakeWriter{fail: errors.New("broker caído")}
	cfg := events.BreakerConfig{MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute, FailureThreshold: 2}
	p := events.NewKafkaPublisherWithWriter(w, "test", cfg, nil, zerolog.Nop())

	for i := 0; i < 2; i++ {
		assert.Error(t, p.Publish(context.Background(), sampleEvent()))
	}
	assert.Equal(t, gobreaker.StateOpen, p.State())

	err := p.Publish(context.Background(), sampleEvent())
	assert.ErrorIs(t, err, events.ErrPublisherUnavailable)
	assert.Equal(t, 2, w.calls, "con el circuito abierto no se llama al broker")
}
